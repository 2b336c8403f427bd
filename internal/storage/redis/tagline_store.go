package redis

import (
	"context"
	"fmt"
	"sort"

	"github.com/redis/go-redis/v9"
)

type taglineStore struct {
	client *redis.Client
	keys   keys
}

// List returns every tagline, sorted
func (s *taglineStore) List(ctx context.Context) ([]string, error) {
	taglines, err := s.client.SMembers(ctx, s.keys.taglines()).Result()
	if err != nil {
		return nil, fmt.Errorf("list taglines: %w", err)
	}
	sort.Strings(taglines)
	return taglines, nil
}

// Add stores taglines; duplicates are ignored
func (s *taglineStore) Add(ctx context.Context, taglines ...string) error {
	if len(taglines) == 0 {
		return nil
	}

	members := make([]interface{}, len(taglines))
	for i, t := range taglines {
		members[i] = t
	}
	return s.client.SAdd(ctx, s.keys.taglines(), members...).Err()
}
