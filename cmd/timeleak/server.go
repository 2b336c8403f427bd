package main

import (
	"context"
	"fmt"
	"net"
	"os"
	"os/signal"
	"strconv"
	"syscall"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/goodtune/timeleak/internal/config"
	"github.com/goodtune/timeleak/internal/metrics"
	"github.com/goodtune/timeleak/internal/systemd"
	"github.com/goodtune/timeleak/internal/tagline"
	"github.com/goodtune/timeleak/internal/web"
)

var serverCmd = &cobra.Command{
	Use:   "server",
	Short: "Start the Timeleak web server",
	Long:  `Start the public web server with the lookup pages, the JSON API and the metrics endpoint.`,
	RunE:  runServer,
}

func init() {
	rootCmd.AddCommand(serverCmd)
}

func runServer(cmd *cobra.Command, args []string) error {
	// Load configuration
	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}

	// Setup logger
	logger := setupLogger(cfg.Logging)
	log.Logger = logger

	logger.Info().
		Str("version", version).
		Str("config", configPath).
		Msg("Starting Timeleak")

	// Check for systemd socket activation
	sdListeners, err := systemd.GetListeners()
	if err != nil {
		return fmt.Errorf("failed to get systemd listeners: %w", err)
	}
	if sdListeners.Activated {
		logger.Info().Msg("Running with systemd socket activation")
	}

	// Initialize storage
	ctx := context.Background()
	store, err := openStorage(ctx, cfg.Storage)
	if err != nil {
		return fmt.Errorf("failed to initialize storage: %w", err)
	}
	defer func() {
		if err := store.Close(); err != nil {
			logger.Error().Err(err).Msg("Failed to close storage")
		}
	}()

	logger.Info().
		Str("type", store.Backend()).
		Msg("Storage initialized")

	// Lookup and tagline services
	lookupService, err := newLookupService(cfg, store, logger)
	if err != nil {
		return err
	}

	taglineService := tagline.NewService(store.Taglines(), tagline.Config{
		CacheTTL: config.Duration(cfg.Taglines.CacheTTL),
		Fallback: cfg.Taglines.Fallback,
	}, logger)

	// Web server
	webServer, err := web.NewServer(web.Config{
		ListenAddr:         net.JoinHostPort(cfg.Server.BindAddress, strconv.Itoa(cfg.Server.HTTPPort)),
		Version:            version,
		DefaultCountryCode: cfg.Lookup.DefaultCountryCode,
		DefaultGoalMinutes: cfg.Display.DefaultGoalMinutes,
		TopApps:            cfg.Display.TopApps,
		TrackingID:         cfg.Analytics.TrackingID,
		RateLimit:          cfg.RateLimit.Requests,
		RateLimitWindow:    config.Duration(cfg.RateLimit.Window),
		AllowedOrigins:     cfg.Server.AllowedOrigins,
		ReadTimeout:        config.Duration(cfg.Server.ReadTimeout),
		WriteTimeout:       config.Duration(cfg.Server.WriteTimeout),
	}, lookupService, taglineService, logger)
	if err != nil {
		return fmt.Errorf("failed to initialize web server: %w", err)
	}
	if sdListeners.HTTP != nil {
		webServer.SetListener(sdListeners.HTTP)
	}

	if err := webServer.Start(); err != nil {
		return fmt.Errorf("failed to start web server: %w", err)
	}

	// Metrics server (port 0 disables it)
	var metricsServer *metrics.Server
	if cfg.Server.MetricsPort > 0 || sdListeners.Metrics != nil {
		metricsServer = metrics.NewServer(net.JoinHostPort(cfg.Server.BindAddress, strconv.Itoa(cfg.Server.MetricsPort)), logger)
		if sdListeners.Metrics != nil {
			metricsServer.SetListener(sdListeners.Metrics)
		}
		if err := metricsServer.Start(); err != nil {
			logger.Error().Err(err).Msg("Failed to start metrics server")
			metricsServer = nil
		}
	}

	// Notify systemd that we're ready
	if err := systemd.NotifyReady(); err != nil {
		logger.Warn().Err(err).Msg("Failed to send systemd ready notification")
	}

	logger.Info().
		Str("storage", store.Backend()).
		Str("default_country_code", cfg.Lookup.DefaultCountryCode).
		Int("categories", len(cfg.Categories)).
		Msg("Timeleak started successfully")

	// Wait for shutdown signal
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	sig := <-sigChan
	logger.Info().Str("signal", sig.String()).Msg("Shutdown signal received, gracefully stopping...")

	// Notify systemd that we're stopping
	if err := systemd.NotifyStopping(); err != nil {
		logger.Warn().Err(err).Msg("Failed to send systemd stopping notification")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), config.Duration(cfg.Server.ShutdownTimeout))
	defer cancel()

	if err := webServer.Stop(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("Error stopping web server")
	}

	if metricsServer != nil {
		if err := metricsServer.Stop(shutdownCtx); err != nil {
			logger.Error().Err(err).Msg("Error stopping metrics server")
		}
	}

	logger.Info().Msg("Timeleak stopped")

	return nil
}
