package metrics

import (
	"context"
	"errors"
	"net"
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"
)

var (
	// Lookup metrics
	LookupsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "timeleak_lookups_total",
			Help: "Total screen-time lookups by outcome",
		},
		[]string{"outcome"},
	)

	LookupDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "timeleak_lookup_duration_seconds",
			Help:    "Lookup duration in seconds, from validation to transformed result",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"outcome"},
	)

	InconsistentRecords = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "timeleak_inconsistent_records_total",
			Help: "Records whose category subtotals exceed the total screen time",
		},
	)

	// Store metrics
	StoreQueryDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "timeleak_store_query_duration_seconds",
			Help:    "Usage store query duration in seconds",
			Buckets: []float64{.005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10},
		},
		[]string{"backend"},
	)

	// Tagline metrics
	TaglineFetchesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "timeleak_tagline_fetches_total",
			Help: "Tagline fetches by source (cache, store, fallback)",
		},
		[]string{"source"},
	)

	// HTTP metrics
	HTTPRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "timeleak_http_requests_total",
			Help: "Total HTTP requests served",
		},
		[]string{"route", "status"},
	)
)

func init() {
	prometheus.MustRegister(
		LookupsTotal,
		LookupDuration,
		InconsistentRecords,
		StoreQueryDuration,
		TaglineFetchesTotal,
		HTTPRequestsTotal,
	)
}

// Server is the metrics HTTP server
type Server struct {
	server   *http.Server
	logger   zerolog.Logger
	listener net.Listener // Optional pre-created listener (for systemd socket activation)
}

// NewServer creates a new metrics server
func NewServer(addr string, logger zerolog.Logger) *Server {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("OK"))
	})

	return &Server{
		server: &http.Server{
			Addr:    addr,
			Handler: mux,
		},
		logger: logger.With().Str("component", "metrics").Logger(),
	}
}

// Handler returns the metrics mux.
func (s *Server) Handler() http.Handler {
	return s.server.Handler
}

// SetListener sets a pre-created listener for systemd socket activation
func (s *Server) SetListener(ln net.Listener) {
	s.listener = ln
}

// Start serves metrics in the background.
func (s *Server) Start() error {
	if s.listener == nil {
		ln, err := net.Listen("tcp", s.server.Addr)
		if err != nil {
			return err
		}
		s.listener = ln
	} else {
		s.logger.Debug().Msg("Using systemd socket-activated metrics listener")
	}

	s.logger.Info().Str("addr", s.listener.Addr().String()).Msg("Starting metrics server")
	go func() {
		if err := s.server.Serve(s.listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.logger.Error().Err(err).Msg("Metrics server error")
		}
	}()
	return nil
}

// Stop stops the metrics server
func (s *Server) Stop(ctx context.Context) error {
	s.logger.Info().Msg("Stopping metrics server")
	return s.server.Shutdown(ctx)
}
