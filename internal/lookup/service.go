// Package lookup validates a phone number, fetches its usage record and turns it
// into a display aggregate.
package lookup

import (
	"context"
	"errors"
	"time"

	"github.com/rs/zerolog"

	"github.com/goodtune/timeleak/internal/metrics"
	"github.com/goodtune/timeleak/internal/phone"
	"github.com/goodtune/timeleak/internal/storage"
	"github.com/goodtune/timeleak/internal/usage"
)

// Stage is a step of a single lookup.
type Stage int

const (
	StageIdle Stage = iota
	StageValidating
	StageQuerying
	StageTransforming
	StageDone
)

func (s Stage) String() string {
	switch s {
	case StageIdle:
		return "idle"
	case StageValidating:
		return "validating"
	case StageQuerying:
		return "querying"
	case StageTransforming:
		return "transforming"
	case StageDone:
		return "done"
	}
	return "unknown"
}

// QueryFunc fetches the record stored under a canonical phone number. It returns
// storage.ErrNotFound when there is none. storage.UsageStore.FindByPhoneNumber
// satisfies it.
type QueryFunc func(ctx context.Context, phoneNumber string) (*storage.UsageRecord, error)

// Options configures a Service.
type Options struct {
	Normalizer  phone.Normalizer
	Transformer *usage.Transformer

	// Backend labels store query metrics.
	Backend string
}

// Service performs lookups. It holds no per-lookup state and is safe for
// concurrent use.
type Service struct {
	query       QueryFunc
	normalizer  phone.Normalizer
	transformer *usage.Transformer
	backend     string
	logger      zerolog.Logger
}

// NewService creates a lookup service.
func NewService(query QueryFunc, opts Options, logger zerolog.Logger) *Service {
	transformer := opts.Transformer
	if transformer == nil {
		transformer = &usage.Transformer{}
	}
	backend := opts.Backend
	if backend == "" {
		backend = "unknown"
	}

	return &Service{
		query:       query,
		normalizer:  opts.Normalizer,
		transformer: transformer,
		backend:     backend,
		logger:      logger.With().Str("component", "lookup").Logger(),
	}
}

// Lookup normalizes rawInput, queries the store once and transforms the record.
// The store is never contacted for an invalid number. Cancellation and deadlines
// come from ctx; a cancelled query fails with ErrStoreUnavailable.
func (s *Service) Lookup(ctx context.Context, rawInput, defaultCountryCode string) (*usage.Aggregate, error) {
	start := time.Now()

	agg, err := s.lookup(ctx, rawInput, defaultCountryCode)

	code := CodeOf(err)
	metrics.LookupsTotal.WithLabelValues(string(code)).Inc()
	metrics.LookupDuration.WithLabelValues(string(code)).Observe(time.Since(start).Seconds())

	return agg, err
}

func (s *Service) lookup(ctx context.Context, rawInput, defaultCountryCode string) (*usage.Aggregate, error) {
	stage := StageValidating
	canonical, err := s.normalizer.Normalize(rawInput, defaultCountryCode)
	if err != nil {
		s.logger.Debug().Err(err).Msg("Rejected phone number")
		return nil, &Error{Stage: stage, Code: CodeInvalidPhoneNumber, Err: err}
	}

	stage = StageQuerying
	log := s.logger.With().Str("phone", canonical).Logger()

	queryStart := time.Now()
	rec, err := s.query(ctx, canonical)
	metrics.StoreQueryDuration.WithLabelValues(s.backend).Observe(time.Since(queryStart).Seconds())

	switch {
	case errors.Is(err, storage.ErrNotFound):
		log.Debug().Msg("No usage record")
		return nil, &Error{Stage: stage, Code: CodeNoDataFound, Err: err}
	case err != nil:
		log.Error().Err(err).Str("backend", s.backend).Msg("Usage store query failed")
		return nil, &Error{Stage: stage, Code: CodeStoreUnavailable, Err: err}
	case rec == nil:
		log.Debug().Msg("Usage store returned no record")
		return nil, &Error{Stage: stage, Code: CodeNoDataFound, Err: storage.ErrNotFound}
	}

	if rec.GoalTime != nil {
		if _, fromMs := usage.GoalMinutes(*rec.GoalTime); fromMs {
			log.Debug().Int64("goal_time", *rec.GoalTime).Msg("Interpreting goal time as milliseconds")
		}
	}

	agg := s.transformer.Transform(*rec)
	if agg.PhoneNumber == "" {
		agg.PhoneNumber = canonical
	}
	if agg.Inconsistent {
		metrics.InconsistentRecords.Inc()
		log.Warn().
			Int("total_minutes", agg.TotalScreenTimeMinutes).
			Int("other_minutes", agg.CategoryBreakdown[usage.CategoryOther]).
			Msg("Category subtotals exceed total screen time")
	}

	log.Debug().Stringer("stage", StageDone).Int("total_minutes", agg.TotalScreenTimeMinutes).Msg("Lookup complete")
	return &agg, nil
}
