package redis

import (
	"encoding/json"
	"fmt"

	"github.com/goodtune/timeleak/internal/storage"
)

// keys builds the Redis key layout:
//
//	{prefix}:usage:{phoneNumber}   JSON usage document
//	{prefix}:usage:index           set of phone numbers with a document
//	{prefix}:taglines              set of tagline strings
type keys struct {
	prefix string
}

func (k keys) usage(phoneNumber string) string {
	return fmt.Sprintf("%s:usage:%s", k.prefix, phoneNumber)
}

func (k keys) usageIndex() string {
	return k.prefix + ":usage:index"
}

func (k keys) taglines() string {
	return k.prefix + ":taglines"
}

// parseUsageRecord decodes a stored JSON usage document.
func parseUsageRecord(data string) (*storage.UsageRecord, error) {
	if data == "" {
		return nil, storage.ErrNotFound
	}

	var rec storage.UsageRecord
	if err := json.Unmarshal([]byte(data), &rec); err != nil {
		return nil, fmt.Errorf("failed to decode usage record: %w", err)
	}
	return &rec, nil
}
