// Package web serves the screen-time lookup pages and JSON API.
package web

import (
	"context"
	"embed"
	"errors"
	"fmt"
	"io/fs"
	"net"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"github.com/rs/zerolog"

	"github.com/goodtune/timeleak/internal/usage"
)

//go:embed templates/*.html
var templateFS embed.FS

//go:embed static/*
var staticFS embed.FS

//go:embed content/*.md
var contentFS embed.FS

// Config holds the web server configuration.
type Config struct {
	ListenAddr         string
	Version            string
	DefaultCountryCode string
	DefaultGoalMinutes int
	TopApps            int
	TrackingID         string // analytics tag; empty disables it
	RateLimit          int
	RateLimitWindow    time.Duration
	AllowedOrigins     []string
	ReadTimeout        time.Duration
	WriteTimeout       time.Duration
}

// Lookuper resolves a user-entered phone number to a usage aggregate.
type Lookuper interface {
	Lookup(ctx context.Context, rawInput, defaultCountryCode string) (*usage.Aggregate, error)
}

// TaglinePicker supplies taglines and reports their source.
type TaglinePicker interface {
	Pick(ctx context.Context) (text, source string)
}

// Server is the public HTTP server.
type Server struct {
	config      Config
	lookup      Lookuper
	taglines    TaglinePicker
	renderer    *Renderer
	content     fs.FS
	rateLimiter *RateLimiter
	router      *mux.Router
	server      *http.Server
	listener    net.Listener // Optional pre-created listener (for systemd socket activation)
	logger      zerolog.Logger
}

// NewServer creates the web server.
func NewServer(cfg Config, lookuper Lookuper, taglines TaglinePicker, logger zerolog.Logger) (*Server, error) {
	logger = logger.With().Str("component", "web").Logger()

	if cfg.RateLimit == 0 {
		cfg.RateLimit = 60
	}
	if cfg.RateLimitWindow == 0 {
		cfg.RateLimitWindow = time.Minute
	}
	if cfg.ReadTimeout == 0 {
		cfg.ReadTimeout = 15 * time.Second
	}
	if cfg.WriteTimeout == 0 {
		cfg.WriteTimeout = 15 * time.Second
	}
	if cfg.DefaultGoalMinutes <= 0 {
		cfg.DefaultGoalMinutes = 120
	}
	if cfg.TopApps <= 0 {
		cfg.TopApps = 5
	}

	templateSub, err := fs.Sub(templateFS, "templates")
	if err != nil {
		return nil, fmt.Errorf("template sub-FS: %w", err)
	}
	contentSub, err := fs.Sub(contentFS, "content")
	if err != nil {
		return nil, fmt.Errorf("content sub-FS: %w", err)
	}

	renderer, err := NewRenderer(templateSub, cfg.Version, logger)
	if err != nil {
		return nil, err
	}

	s := &Server{
		config:      cfg,
		lookup:      lookuper,
		taglines:    taglines,
		renderer:    renderer,
		content:     contentSub,
		rateLimiter: NewRateLimiter(cfg.RateLimit, cfg.RateLimitWindow),
		router:      mux.NewRouter(),
		logger:      logger,
	}

	s.setupRoutes()

	s.server = &http.Server{
		Addr:         cfg.ListenAddr,
		Handler:      s.router,
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
		IdleTimeout:  60 * time.Second,
	}

	return s, nil
}

// setupRoutes configures all HTTP routes.
func (s *Server) setupRoutes() {
	security := SecurityHeaders(s.config.TrackingID != "")

	s.router.Use(RequestIDMiddleware)
	s.router.Use(LoggingMiddleware(s.logger))
	s.router.Use(security)

	s.router.HandleFunc("/health", s.handleHealth).Methods("GET")

	staticSub, err := fs.Sub(staticFS, "static")
	if err == nil {
		s.router.PathPrefix("/static/").Handler(http.StripPrefix("/static/", http.FileServer(http.FS(staticSub))))
	}

	// Pages
	pages := s.router.NewRoute().Subrouter()
	pages.Use(RateLimitMiddleware(s.rateLimiter))
	pages.HandleFunc("/", s.handleIndex).Methods("GET")
	pages.HandleFunc("/lookup", s.handleLookup).Methods("GET")
	pages.HandleFunc("/about", s.handleContent("about")).Methods("GET")
	pages.HandleFunc("/wellness", s.handleContent("wellness")).Methods("GET")

	// JSON API
	api := s.router.PathPrefix("/api/v1").Subrouter()
	if len(s.config.AllowedOrigins) > 0 {
		api.Use(CORSMiddleware(s.config.AllowedOrigins))
	}
	api.Use(RateLimitMiddleware(s.rateLimiter))
	api.HandleFunc("/screentime", s.handleAPIScreenTime).Methods("GET", "OPTIONS")
	api.HandleFunc("/tagline", s.handleAPITagline).Methods("GET", "OPTIONS")

	var notFound http.Handler = http.HandlerFunc(s.handleNotFound)
	notFound = security(notFound)
	notFound = LoggingMiddleware(s.logger)(notFound)
	s.router.NotFoundHandler = RequestIDMiddleware(notFound)
}

// Handler returns the root handler.
func (s *Server) Handler() http.Handler {
	return s.router
}

// SetListener sets a pre-created listener for systemd socket activation
func (s *Server) SetListener(ln net.Listener) {
	s.listener = ln
}

// Start starts serving in the background.
func (s *Server) Start() error {
	if s.listener == nil {
		ln, err := net.Listen("tcp", s.config.ListenAddr)
		if err != nil {
			return fmt.Errorf("listen on %s: %w", s.config.ListenAddr, err)
		}
		s.listener = ln
	} else {
		s.logger.Debug().Msg("Using systemd socket-activated HTTP listener")
	}

	s.logger.Info().
		Str("addr", s.listener.Addr().String()).
		Bool("analytics", s.config.TrackingID != "").
		Msg("Starting web server")

	go func() {
		if err := s.server.Serve(s.listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.logger.Error().Err(err).Msg("Web server error")
		}
	}()

	return nil
}

// Stop gracefully stops the web server.
func (s *Server) Stop(ctx context.Context) error {
	s.logger.Info().Msg("Stopping web server")
	s.rateLimiter.Stop()

	if err := s.server.Shutdown(ctx); err != nil {
		return fmt.Errorf("web server shutdown: %w", err)
	}

	return nil
}
