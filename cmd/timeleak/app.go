package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/goodtune/timeleak/internal/config"
	"github.com/goodtune/timeleak/internal/lookup"
	"github.com/goodtune/timeleak/internal/phone"
	"github.com/goodtune/timeleak/internal/storage"
	"github.com/goodtune/timeleak/internal/storage/firestore"
	"github.com/goodtune/timeleak/internal/storage/redis"
	"github.com/goodtune/timeleak/internal/usage"
)

func openStorage(ctx context.Context, cfg config.StorageConfig) (storage.Store, error) {
	storageType := cfg.Type
	if storageType == "" {
		storageType = "firestore"
	}

	switch storageType {
	case "firestore":
		store, err := firestore.Open(ctx, cfg.Firestore)
		if err != nil {
			return nil, err
		}
		return store, nil
	case "redis":
		store, err := redis.Open(cfg.Redis)
		if err != nil {
			return nil, err
		}
		return store, nil
	default:
		return nil, fmt.Errorf("unsupported storage type: %s (must be 'firestore' or 'redis')", storageType)
	}
}

// newLookupService wires the normalizer, transformer and store query together.
func newLookupService(cfg *config.Config, store storage.Store, logger zerolog.Logger) (*lookup.Service, error) {
	loc, err := time.LoadLocation(cfg.Display.Timezone)
	if err != nil {
		return nil, fmt.Errorf("invalid display timezone: %w", err)
	}

	categories, err := categoryMap(cfg.Categories)
	if err != nil {
		return nil, err
	}

	return lookup.NewService(store.Usage().FindByPhoneNumber, lookup.Options{
		Normalizer:  phone.Normalizer{Strict: cfg.Lookup.StrictValidation},
		Transformer: usage.NewTransformer(categories, loc, cfg.Display.DateLayout),
		Backend:     store.Backend(),
	}, logger), nil
}

// categoryMap builds the package to category table from configuration.
func categoryMap(rules []config.CategoryRule) (usage.CategoryMap, error) {
	categories := make(usage.CategoryMap, len(rules))
	for _, rule := range rules {
		category, ok := usage.ParseCategory(rule.Category)
		if !ok {
			return nil, fmt.Errorf("unknown category %q for app %q", rule.Category, rule.Package)
		}
		categories[rule.Package] = category
	}
	return categories, nil
}

// setupLogger configures the logger based on configuration
func setupLogger(cfg config.LoggingConfig) zerolog.Logger {
	// Set log level
	level := zerolog.InfoLevel
	switch cfg.Level {
	case "debug":
		level = zerolog.DebugLevel
	case "info":
		level = zerolog.InfoLevel
	case "warn":
		level = zerolog.WarnLevel
	case "error":
		level = zerolog.ErrorLevel
	}

	zerolog.SetGlobalLevel(level)

	// Set output format
	if cfg.Format == "text" {
		return zerolog.New(zerolog.ConsoleWriter{Out: os.Stdout}).With().Timestamp().Logger()
	}

	// Default to JSON
	return zerolog.New(os.Stdout).With().Timestamp().Logger()
}

// contextWithTimeout derives a command context bounded by timeout.
func contextWithTimeout(cmd *cobra.Command, timeout time.Duration) (context.Context, context.CancelFunc) {
	return context.WithTimeout(cmd.Context(), timeout)
}

// quietLogger is used by the one-shot commands, which report on stdout.
func quietLogger() zerolog.Logger {
	return zerolog.New(os.Stderr).Level(zerolog.ErrorLevel).With().Timestamp().Logger()
}
