package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"

	"github.com/goodtune/timeleak/internal/storage"
)

var putUsage = redis.NewScript(putUsageScript)

type usageStore struct {
	client *redis.Client
	keys   keys
}

// FindByPhoneNumber retrieves the usage document stored under an exact phone number
func (s *usageStore) FindByPhoneNumber(ctx context.Context, phoneNumber string) (*storage.UsageRecord, error) {
	data, err := s.client.Get(ctx, s.keys.usage(phoneNumber)).Result()
	if errors.Is(err, redis.Nil) {
		return nil, storage.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get usage %s: %w", phoneNumber, err)
	}

	rec, err := parseUsageRecord(data)
	if err != nil {
		return nil, err
	}
	if rec.PhoneNumber == "" {
		rec.PhoneNumber = phoneNumber
	}
	return rec, nil
}

// Put stores a usage document, replacing any existing one for the same number
func (s *usageStore) Put(ctx context.Context, record storage.UsageRecord) error {
	if record.PhoneNumber == "" {
		return errors.New("usage record has no phone number")
	}

	data, err := json.Marshal(record)
	if err != nil {
		return fmt.Errorf("encode usage record: %w", err)
	}

	scriptKeys := []string{s.keys.usage(record.PhoneNumber), s.keys.usageIndex()}
	return putUsage.Run(ctx, s.client, scriptKeys, record.PhoneNumber, string(data)).Err()
}
