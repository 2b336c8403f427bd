// Package tagline serves a random motivational tagline from the store, with a
// fixed fallback when none can be read.
package tagline

import (
	"context"
	"math/rand/v2"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"
	"github.com/rs/zerolog"

	"github.com/goodtune/timeleak/internal/metrics"
	"github.com/goodtune/timeleak/internal/storage"
)

// DefaultFallback is shown when the store has no taglines or cannot be read.
const DefaultFallback = "Call them out. Log them off."

// Sources reported in metrics and by Pick.
const (
	SourceCache    = "cache"
	SourceStore    = "store"
	SourceFallback = "fallback"
)

const cacheKey = "taglines"

// Config holds tagline service settings
type Config struct {
	// CacheTTL is how long a successful read is reused. Zero disables caching.
	CacheTTL time.Duration
	Fallback string
}

// Service picks taglines. It is safe for concurrent use.
type Service struct {
	store    storage.TaglineStore
	cache    *expirable.LRU[string, []string]
	fallback string
	intn     func(n int) int
	logger   zerolog.Logger
}

// NewService creates a tagline service reading from store.
func NewService(store storage.TaglineStore, cfg Config, logger zerolog.Logger) *Service {
	fallback := cfg.Fallback
	if fallback == "" {
		fallback = DefaultFallback
	}

	s := &Service{
		store:    store,
		fallback: fallback,
		intn:     rand.IntN,
		logger:   logger.With().Str("component", "tagline").Logger(),
	}
	if cfg.CacheTTL > 0 {
		s.cache = expirable.NewLRU[string, []string](1, nil, cfg.CacheTTL)
	}
	return s
}

// Random returns a uniformly chosen tagline, or the fallback.
func (s *Service) Random(ctx context.Context) string {
	text, _ := s.Pick(ctx)
	return text
}

// Pick is Random that also reports where the tagline came from.
func (s *Service) Pick(ctx context.Context) (text, source string) {
	taglines, source := s.load(ctx)
	if len(taglines) == 0 {
		source = SourceFallback
		text = s.fallback
	} else {
		text = taglines[s.intn(len(taglines))]
	}

	metrics.TaglineFetchesTotal.WithLabelValues(source).Inc()
	return text, source
}

// Invalidate drops cached taglines.
func (s *Service) Invalidate() {
	if s.cache != nil {
		s.cache.Purge()
	}
}

func (s *Service) load(ctx context.Context) ([]string, string) {
	if s.cache != nil {
		if taglines, ok := s.cache.Get(cacheKey); ok {
			return taglines, SourceCache
		}
	}

	if s.store == nil {
		return nil, SourceFallback
	}

	taglines, err := s.store.List(ctx)
	if err != nil {
		s.logger.Warn().Err(err).Msg("Failed to fetch taglines, using fallback")
		return nil, SourceFallback
	}
	if len(taglines) == 0 {
		s.logger.Debug().Msg("No taglines stored, using fallback")
	}

	if s.cache != nil {
		s.cache.Add(cacheKey, taglines)
	}
	return taglines, SourceStore
}
