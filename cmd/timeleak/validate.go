package main

import (
	"fmt"
	"os"
	"reflect"
	"sort"
	"strings"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/goodtune/timeleak/internal/config"
)

var (
	validateDump bool
)

var validateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Validate configuration file",
	Long:  `Validate the Timeleak configuration file for syntax and semantic errors.`,
	RunE:  runValidate,
}

func init() {
	validateCmd.Flags().BoolVar(&validateDump, "dump", false, "Dump full configuration with defaults highlighted")
	rootCmd.AddCommand(validateCmd)
}

func runValidate(cmd *cobra.Command, args []string) error {
	// Load configuration
	cfg, err := config.Load(configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "❌ Configuration validation failed: %v\n", err)
		return err
	}

	// Check for unknown keys (always, not just with --dump)
	unknownKeys, err := findUnknownKeys(configPath)
	if err != nil {
		_, _ = fmt.Fprintf(os.Stderr, "⚠️  Warning: Could not check for unknown keys: %v\n", err)
	}

	_, _ = fmt.Fprintf(os.Stdout, "✅ Configuration is valid: %s\n", configPath)

	// Warn about unknown keys
	if len(unknownKeys) > 0 {
		red := color.New(color.FgRed, color.Bold)
		fmt.Fprintln(os.Stdout)
		red.Fprintf(os.Stdout, "⚠️  WARNING: Found %d unknown configuration key(s):\n", len(unknownKeys))
		for _, key := range unknownKeys {
			red.Fprintf(os.Stdout, "   - %s\n", key)
		}
		fmt.Fprintln(os.Stdout, "\nThese keys will be ignored and may indicate typos or deprecated settings.")
	}

	// If dump requested, show full configuration with defaults highlighted
	if validateDump {
		_, _ = fmt.Fprintln(os.Stdout, "\n"+strings.Repeat("=", 80))
		_, _ = fmt.Fprintln(os.Stdout, "FULL CONFIGURATION (values different from defaults are highlighted)")
		_, _ = fmt.Fprintln(os.Stdout, strings.Repeat("=", 80))

		dumpConfig(cfg, config.Defaults(), unknownKeys)
	}

	return nil
}

// findUnknownKeys loads the config file and checks for unknown keys
func findUnknownKeys(configPath string) ([]string, error) {
	v := viper.New()
	v.SetConfigFile(configPath)

	if err := v.ReadInConfig(); err != nil {
		return nil, err
	}

	validKeys := getValidKeys()

	unknown := []string{}
	for _, key := range v.AllKeys() {
		if !validKeys[key] {
			unknown = append(unknown, key)
		}
	}
	sort.Strings(unknown)

	return unknown, nil
}

// getValidKeys returns a set of all valid configuration keys
func getValidKeys() map[string]bool {
	keys := map[string]bool{
		// Server
		"server.bind_address":     true,
		"server.http_port":        true,
		"server.metrics_port":     true,
		"server.read_timeout":     true,
		"server.write_timeout":    true,
		"server.shutdown_timeout": true,
		"server.allowed_origins":  true,

		// Storage
		"storage.type":                         true,
		"storage.firestore.project_id":         true,
		"storage.firestore.database_id":        true,
		"storage.firestore.credentials_file":   true,
		"storage.firestore.emulator_host":      true,
		"storage.firestore.usage_collection":   true,
		"storage.firestore.tagline_collection": true,
		"storage.redis.host":                   true,
		"storage.redis.port":                   true,
		"storage.redis.password":               true,
		"storage.redis.db":                     true,
		"storage.redis.pool_size":              true,
		"storage.redis.min_idle_conns":         true,
		"storage.redis.dial_timeout":           true,
		"storage.redis.read_timeout":           true,
		"storage.redis.write_timeout":          true,
		"storage.redis.key_prefix":             true,

		// Lookup
		"lookup.default_country_code": true,
		"lookup.strict_validation":    true,

		// Display
		"display.timezone":             true,
		"display.date_layout":          true,
		"display.default_goal_minutes": true,
		"display.top_apps":             true,

		// Categories (a list; viper reports it as a single key)
		"categories": true,

		// Taglines
		"taglines.cache_ttl": true,
		"taglines.fallback":  true,

		// Analytics
		"analytics.tracking_id": true,

		// Rate limiting
		"rate_limit.requests": true,
		"rate_limit.window":   true,

		// Logging
		"logging.level":  true,
		"logging.format": true,
	}

	return keys
}

// dumpConfig dumps configuration with color highlighting for non-default values
func dumpConfig(cfg, defaultCfg *config.Config, unknownKeys []string) {
	yellow := color.New(color.FgYellow, color.Bold)
	green := color.New(color.FgGreen)
	cyan := color.New(color.FgCyan, color.Bold)

	// Server
	_, _ = cyan.Println("\n[server]")
	dumpField("  bind_address", cfg.Server.BindAddress, defaultCfg.Server.BindAddress, yellow, green)
	dumpField("  http_port", cfg.Server.HTTPPort, defaultCfg.Server.HTTPPort, yellow, green)
	dumpField("  metrics_port", cfg.Server.MetricsPort, defaultCfg.Server.MetricsPort, yellow, green)
	dumpField("  read_timeout", cfg.Server.ReadTimeout, defaultCfg.Server.ReadTimeout, yellow, green)
	dumpField("  write_timeout", cfg.Server.WriteTimeout, defaultCfg.Server.WriteTimeout, yellow, green)
	dumpField("  shutdown_timeout", cfg.Server.ShutdownTimeout, defaultCfg.Server.ShutdownTimeout, yellow, green)
	dumpField("  allowed_origins", cfg.Server.AllowedOrigins, defaultCfg.Server.AllowedOrigins, yellow, green)

	// Storage
	_, _ = cyan.Println("\n[storage]")
	dumpField("  type", cfg.Storage.Type, defaultCfg.Storage.Type, yellow, green)
	_, _ = cyan.Println("  [storage.firestore]")
	dumpField("    project_id", cfg.Storage.Firestore.ProjectID, defaultCfg.Storage.Firestore.ProjectID, yellow, green)
	dumpField("    database_id", cfg.Storage.Firestore.DatabaseID, defaultCfg.Storage.Firestore.DatabaseID, yellow, green)
	dumpField("    credentials_file", cfg.Storage.Firestore.CredentialsFile, defaultCfg.Storage.Firestore.CredentialsFile, yellow, green)
	dumpField("    emulator_host", cfg.Storage.Firestore.EmulatorHost, defaultCfg.Storage.Firestore.EmulatorHost, yellow, green)
	dumpField("    usage_collection", cfg.Storage.Firestore.UsageCollection, defaultCfg.Storage.Firestore.UsageCollection, yellow, green)
	dumpField("    tagline_collection", cfg.Storage.Firestore.TaglineCollection, defaultCfg.Storage.Firestore.TaglineCollection, yellow, green)
	_, _ = cyan.Println("  [storage.redis]")
	dumpField("    host", cfg.Storage.Redis.Host, defaultCfg.Storage.Redis.Host, yellow, green)
	dumpField("    port", cfg.Storage.Redis.Port, defaultCfg.Storage.Redis.Port, yellow, green)
	dumpField("    password", redactPassword(cfg.Storage.Redis.Password), redactPassword(defaultCfg.Storage.Redis.Password), yellow, green)
	dumpField("    db", cfg.Storage.Redis.DB, defaultCfg.Storage.Redis.DB, yellow, green)
	dumpField("    pool_size", cfg.Storage.Redis.PoolSize, defaultCfg.Storage.Redis.PoolSize, yellow, green)
	dumpField("    min_idle_conns", cfg.Storage.Redis.MinIdleConns, defaultCfg.Storage.Redis.MinIdleConns, yellow, green)
	dumpField("    dial_timeout", cfg.Storage.Redis.DialTimeout, defaultCfg.Storage.Redis.DialTimeout, yellow, green)
	dumpField("    read_timeout", cfg.Storage.Redis.ReadTimeout, defaultCfg.Storage.Redis.ReadTimeout, yellow, green)
	dumpField("    write_timeout", cfg.Storage.Redis.WriteTimeout, defaultCfg.Storage.Redis.WriteTimeout, yellow, green)
	dumpField("    key_prefix", cfg.Storage.Redis.KeyPrefix, defaultCfg.Storage.Redis.KeyPrefix, yellow, green)

	// Lookup
	_, _ = cyan.Println("\n[lookup]")
	dumpField("  default_country_code", cfg.Lookup.DefaultCountryCode, defaultCfg.Lookup.DefaultCountryCode, yellow, green)
	dumpField("  strict_validation", cfg.Lookup.StrictValidation, defaultCfg.Lookup.StrictValidation, yellow, green)

	// Display
	_, _ = cyan.Println("\n[display]")
	dumpField("  timezone", cfg.Display.Timezone, defaultCfg.Display.Timezone, yellow, green)
	dumpField("  date_layout", cfg.Display.DateLayout, defaultCfg.Display.DateLayout, yellow, green)
	dumpField("  default_goal_minutes", cfg.Display.DefaultGoalMinutes, defaultCfg.Display.DefaultGoalMinutes, yellow, green)
	dumpField("  top_apps", cfg.Display.TopApps, defaultCfg.Display.TopApps, yellow, green)

	// Categories
	_, _ = cyan.Println("\n[categories]")
	if len(cfg.Categories) == 0 {
		_, _ = green.Println("  (none, every app is Other)")
	}
	for _, rule := range cfg.Categories {
		_, _ = yellow.Printf("  %s = %s\n", rule.Package, rule.Category)
	}

	// Taglines
	_, _ = cyan.Println("\n[taglines]")
	dumpField("  cache_ttl", cfg.Taglines.CacheTTL, defaultCfg.Taglines.CacheTTL, yellow, green)
	dumpField("  fallback", cfg.Taglines.Fallback, defaultCfg.Taglines.Fallback, yellow, green)

	// Analytics
	_, _ = cyan.Println("\n[analytics]")
	dumpField("  tracking_id", cfg.Analytics.TrackingID, defaultCfg.Analytics.TrackingID, yellow, green)

	// Rate limiting
	_, _ = cyan.Println("\n[rate_limit]")
	dumpField("  requests", cfg.RateLimit.Requests, defaultCfg.RateLimit.Requests, yellow, green)
	dumpField("  window", cfg.RateLimit.Window, defaultCfg.RateLimit.Window, yellow, green)

	// Logging
	_, _ = cyan.Println("\n[logging]")
	dumpField("  level", cfg.Logging.Level, defaultCfg.Logging.Level, yellow, green)
	dumpField("  format", cfg.Logging.Format, defaultCfg.Logging.Format, yellow, green)

	// Display unknown keys if any
	if len(unknownKeys) > 0 {
		red := color.New(color.FgRed, color.Bold)

		_, _ = cyan.Println("\n[UNKNOWN KEYS - These will be ignored!]")
		for _, key := range unknownKeys {
			_, _ = red.Printf("  %s = (unknown key - check for typos)\n", key)
		}
	}

	_, _ = fmt.Fprintln(os.Stdout, "\n"+strings.Repeat("=", 80))
}

// dumpField prints a field with color if it differs from default
func dumpField(name string, value, defaultValue interface{}, modifiedColor, defaultColor *color.Color) {
	isDefault := reflect.DeepEqual(value, defaultValue)

	valueStr := fmt.Sprintf("%v", value)

	if isDefault {
		_, _ = defaultColor.Printf("%s = %s\n", name, valueStr)
	} else {
		_, _ = modifiedColor.Printf("%s = %s  (modified from default: %v)\n", name, valueStr, defaultValue)
	}
}

// redactPassword redacts password if not empty
func redactPassword(password string) string {
	if password == "" {
		return ""
	}
	return "***REDACTED***"
}
