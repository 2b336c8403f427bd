package redis

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/goodtune/timeleak/internal/config"
	"github.com/goodtune/timeleak/internal/storage"
)

// DefaultKeyPrefix namespaces every key written by the store.
const DefaultKeyPrefix = "timeleak"

// Store implements the storage.Store interface using Redis
type Store struct {
	client       *redis.Client
	keys         keys
	addr         string
	usageStore   *usageStore
	taglineStore *taglineStore
}

// Open creates a new Redis-backed storage instance
func Open(cfg config.RedisConfig) (*Store, error) {
	dialTimeout, err := time.ParseDuration(cfg.DialTimeout)
	if err != nil {
		return nil, fmt.Errorf("invalid dial_timeout: %w", err)
	}

	readTimeout, err := time.ParseDuration(cfg.ReadTimeout)
	if err != nil {
		return nil, fmt.Errorf("invalid read_timeout: %w", err)
	}

	writeTimeout, err := time.ParseDuration(cfg.WriteTimeout)
	if err != nil {
		return nil, fmt.Errorf("invalid write_timeout: %w", err)
	}

	// Host may already carry the port.
	addr := cfg.Host
	if cfg.Port > 0 {
		addr = fmt.Sprintf("%s:%d", cfg.Host, cfg.Port)
	}

	client := redis.NewClient(&redis.Options{
		Addr:         addr,
		Password:     cfg.Password,
		DB:           cfg.DB,
		PoolSize:     cfg.PoolSize,
		MinIdleConns: cfg.MinIdleConns,
		DialTimeout:  dialTimeout,
		ReadTimeout:  readTimeout,
		WriteTimeout: writeTimeout,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("failed to connect to Redis at %s: %w", addr, err)
	}

	prefix := cfg.KeyPrefix
	if prefix == "" {
		prefix = DefaultKeyPrefix
	}
	k := keys{prefix: prefix}

	return &Store{
		client:       client,
		keys:         k,
		addr:         addr,
		usageStore:   &usageStore{client: client, keys: k},
		taglineStore: &taglineStore{client: client, keys: k},
	}, nil
}

// Close closes the Redis connection
func (s *Store) Close() error {
	return s.client.Close()
}

// Backend identifies the store in logs and metrics.
func (s *Store) Backend() string {
	return "redis"
}

// Usage returns the UsageStore implementation
func (s *Store) Usage() storage.UsageStore {
	return s.usageStore
}

// Taglines returns the TaglineStore implementation
func (s *Store) Taglines() storage.TaglineStore {
	return s.taglineStore
}

// Probe counts indexed usage records and decodes one of up to sample of them.
func (s *Store) Probe(ctx context.Context, sample int) (*storage.ProbeResult, error) {
	result := &storage.ProbeResult{
		Backend:  s.Backend(),
		Location: fmt.Sprintf("redis://%s (prefix %q)", s.addr, s.keys.prefix),
	}

	if err := s.client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("ping: %w", err)
	}
	if sample <= 0 {
		return result, nil
	}

	phones, err := s.client.SRandMemberN(ctx, s.keys.usageIndex(), int64(sample)).Result()
	if err != nil {
		return nil, fmt.Errorf("sample usage index: %w", err)
	}
	result.SampledDocuments = len(phones)

	for _, phone := range phones {
		rec, err := s.usageStore.FindByPhoneNumber(ctx, phone)
		if err == nil {
			result.Sample = rec
			break
		}
	}

	return result, nil
}
