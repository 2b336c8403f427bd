package storage

import (
	"context"
	"errors"
)

// ErrNotFound is returned when a record is missing from storage.
var ErrNotFound = errors.New("storage: record not found")

// Store represents the root storage interface.
// Usage records are written by the device uploader; this service only reads them
// (Put exists for seeding development stores).
type Store interface {
	Close() error
	Backend() string
	Usage() UsageStore
	Taglines() TaglineStore
	Probe(ctx context.Context, sample int) (*ProbeResult, error)
}

// UsageStore manages daily usage snapshots keyed by canonical phone number.
type UsageStore interface {
	// FindByPhoneNumber returns the record whose phone number field equals
	// phoneNumber exactly, or ErrNotFound.
	FindByPhoneNumber(ctx context.Context, phoneNumber string) (*UsageRecord, error)
	Put(ctx context.Context, record UsageRecord) error
}

// TaglineStore manages the small collection of display taglines.
type TaglineStore interface {
	List(ctx context.Context) ([]string, error)
	Add(ctx context.Context, taglines ...string) error
}

// ProbeResult summarizes a connectivity check against a backend.
type ProbeResult struct {
	Backend          string
	Location         string // collection or key namespace that was read
	SampledDocuments int
	Sample           *UsageRecord
}
