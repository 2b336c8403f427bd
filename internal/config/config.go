package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"

	"github.com/goodtune/timeleak/internal/phone"
)

// Config holds the complete application configuration
type Config struct {
	Server     ServerConfig    `mapstructure:"server"`
	Storage    StorageConfig   `mapstructure:"storage"`
	Lookup     LookupConfig    `mapstructure:"lookup"`
	Display    DisplayConfig   `mapstructure:"display"`
	Categories []CategoryRule  `mapstructure:"categories"`
	Taglines   TaglineConfig   `mapstructure:"taglines"`
	Analytics  AnalyticsConfig `mapstructure:"analytics"`
	RateLimit  RateLimitConfig `mapstructure:"rate_limit"`
	Logging    LoggingConfig   `mapstructure:"logging"`
}

// ServerConfig defines server ports and addresses
type ServerConfig struct {
	BindAddress     string   `mapstructure:"bind_address"`
	HTTPPort        int      `mapstructure:"http_port"`
	MetricsPort     int      `mapstructure:"metrics_port"`
	ReadTimeout     string   `mapstructure:"read_timeout"`
	WriteTimeout    string   `mapstructure:"write_timeout"`
	ShutdownTimeout string   `mapstructure:"shutdown_timeout"`
	AllowedOrigins  []string `mapstructure:"allowed_origins"` // CORS origins for the JSON API
}

// StorageConfig defines storage backend settings
type StorageConfig struct {
	Type      string          `mapstructure:"type"` // "firestore" or "redis"
	Firestore FirestoreConfig `mapstructure:"firestore"`
	Redis     RedisConfig     `mapstructure:"redis"`
}

// FirestoreConfig defines the Cloud Firestore connection
type FirestoreConfig struct {
	ProjectID         string `mapstructure:"project_id"`
	DatabaseID        string `mapstructure:"database_id"`
	CredentialsFile   string `mapstructure:"credentials_file"`
	EmulatorHost      string `mapstructure:"emulator_host"`
	UsageCollection   string `mapstructure:"usage_collection"`
	TaglineCollection string `mapstructure:"tagline_collection"`
}

// RedisConfig defines the Redis connection
type RedisConfig struct {
	Host         string `mapstructure:"host"`
	Port         int    `mapstructure:"port"`
	Password     string `mapstructure:"password"`
	DB           int    `mapstructure:"db"`
	PoolSize     int    `mapstructure:"pool_size"`
	MinIdleConns int    `mapstructure:"min_idle_conns"`
	DialTimeout  string `mapstructure:"dial_timeout"`
	ReadTimeout  string `mapstructure:"read_timeout"`
	WriteTimeout string `mapstructure:"write_timeout"`
	KeyPrefix    string `mapstructure:"key_prefix"`
}

// LookupConfig defines phone number handling
type LookupConfig struct {
	DefaultCountryCode string `mapstructure:"default_country_code"`
	StrictValidation   bool   `mapstructure:"strict_validation"`
}

// DisplayConfig defines presentation defaults
type DisplayConfig struct {
	Timezone           string `mapstructure:"timezone"`
	DateLayout         string `mapstructure:"date_layout"`
	DefaultGoalMinutes int    `mapstructure:"default_goal_minutes"`
	TopApps            int    `mapstructure:"top_apps"`
}

// CategoryRule assigns an app package to a usage category
type CategoryRule struct {
	Package  string `mapstructure:"package"`
	Category string `mapstructure:"category"`
}

// TaglineConfig defines the tagline cache
type TaglineConfig struct {
	CacheTTL string `mapstructure:"cache_ttl"`
	Fallback string `mapstructure:"fallback"`
}

// AnalyticsConfig defines the page analytics tag
type AnalyticsConfig struct {
	TrackingID string `mapstructure:"tracking_id"`
}

// RateLimitConfig defines per-client request limits
type RateLimitConfig struct {
	Requests int    `mapstructure:"requests"`
	Window   string `mapstructure:"window"`
}

// LoggingConfig defines logging behavior
type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// Known category names; must match usage.Category values.
var knownCategories = map[string]bool{
	"Social Media":  true,
	"Entertainment": true,
	"Productivity":  true,
	"Messaging":     true,
	"Other":         true,
}

// Load loads configuration from an optional .env file, the config file and
// environment variables, in increasing order of precedence.
func Load(configPath string) (*Config, error) {
	if err := loadDotEnv(); err != nil {
		return nil, err
	}

	v := viper.New()

	// Set defaults
	setDefaults(v)

	// Configure viper
	v.SetConfigFile(configPath)
	v.SetEnvPrefix("TIMELEAK")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	bindLegacyEnv(v)

	// Read config file
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) && !errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
		// Config file not found, use defaults and environment variables
	}

	// Unmarshal config
	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	// Validate config
	if err := validate(&config); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &config, nil
}

// Defaults returns the configuration produced by defaults alone.
func Defaults() *Config {
	v := viper.New()
	setDefaults(v)

	var cfg Config
	_ = v.Unmarshal(&cfg)
	return &cfg
}

// loadDotEnv loads TIMELEAK_ENV_FILE or ./.env when present. Existing environment
// variables are never overridden.
func loadDotEnv() error {
	path := os.Getenv("TIMELEAK_ENV_FILE")
	if path == "" {
		path = ".env"
	}
	if _, err := os.Stat(path); err != nil {
		return nil
	}
	if err := godotenv.Load(path); err != nil {
		return fmt.Errorf("failed to load env file %s: %w", path, err)
	}
	return nil
}

// bindLegacyEnv accepts the Firebase and analytics variable names found in
// existing .env files.
func bindLegacyEnv(v *viper.Viper) {
	_ = v.BindEnv("storage.firestore.project_id", "TIMELEAK_STORAGE_FIRESTORE_PROJECT_ID", "FIREBASE_PROJECT_ID", "VITE_FIREBASE_PROJECT_ID")
	_ = v.BindEnv("storage.firestore.credentials_file", "TIMELEAK_STORAGE_FIRESTORE_CREDENTIALS_FILE", "FIREBASE_CREDENTIALS_FILE", "GOOGLE_APPLICATION_CREDENTIALS")
	_ = v.BindEnv("storage.firestore.emulator_host", "TIMELEAK_STORAGE_FIRESTORE_EMULATOR_HOST", "FIRESTORE_EMULATOR_HOST")
	_ = v.BindEnv("analytics.tracking_id", "TIMELEAK_ANALYTICS_TRACKING_ID", "GA_TRACKING_ID", "VITE_GA_TRACKING_ID")
}

// setDefaults sets default configuration values
func setDefaults(v *viper.Viper) {
	// Server defaults
	v.SetDefault("server.bind_address", "0.0.0.0")
	v.SetDefault("server.http_port", 8080)
	v.SetDefault("server.metrics_port", 9090)
	v.SetDefault("server.read_timeout", "15s")
	v.SetDefault("server.write_timeout", "15s")
	v.SetDefault("server.shutdown_timeout", "10s")
	v.SetDefault("server.allowed_origins", []string{})

	// Storage defaults
	v.SetDefault("storage.type", "firestore")
	v.SetDefault("storage.firestore.project_id", "")
	v.SetDefault("storage.firestore.database_id", "(default)")
	v.SetDefault("storage.firestore.credentials_file", "")
	v.SetDefault("storage.firestore.emulator_host", "")
	v.SetDefault("storage.firestore.usage_collection", "usage_data")
	v.SetDefault("storage.firestore.tagline_collection", "taglines")
	v.SetDefault("storage.redis.host", "localhost")
	v.SetDefault("storage.redis.port", 6379)
	v.SetDefault("storage.redis.password", "")
	v.SetDefault("storage.redis.db", 0)
	v.SetDefault("storage.redis.pool_size", 10)
	v.SetDefault("storage.redis.min_idle_conns", 2)
	v.SetDefault("storage.redis.dial_timeout", "5s")
	v.SetDefault("storage.redis.read_timeout", "3s")
	v.SetDefault("storage.redis.write_timeout", "3s")
	v.SetDefault("storage.redis.key_prefix", "timeleak")

	// Lookup defaults
	v.SetDefault("lookup.default_country_code", "1")
	v.SetDefault("lookup.strict_validation", false)

	// Display defaults
	v.SetDefault("display.timezone", "Local")
	v.SetDefault("display.date_layout", "January 2, 2006")
	v.SetDefault("display.default_goal_minutes", 120)
	v.SetDefault("display.top_apps", 5)

	// Category defaults: nothing mapped, every app falls back to Other
	v.SetDefault("categories", []CategoryRule{})

	// Tagline defaults
	v.SetDefault("taglines.cache_ttl", "10m")
	v.SetDefault("taglines.fallback", "Call them out. Log them off.")

	// Analytics defaults
	v.SetDefault("analytics.tracking_id", "")

	// Rate limit defaults
	v.SetDefault("rate_limit.requests", 60)
	v.SetDefault("rate_limit.window", "1m")

	// Logging defaults
	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "json")
}

// validate validates the configuration
func validate(cfg *Config) error {
	if cfg.Server.HTTPPort <= 0 || cfg.Server.HTTPPort > 65535 {
		return fmt.Errorf("invalid HTTP port: %d", cfg.Server.HTTPPort)
	}
	if cfg.Server.MetricsPort < 0 || cfg.Server.MetricsPort > 65535 {
		return fmt.Errorf("invalid metrics port: %d", cfg.Server.MetricsPort)
	}

	for name, value := range map[string]string{
		"read_timeout":     cfg.Server.ReadTimeout,
		"write_timeout":    cfg.Server.WriteTimeout,
		"shutdown_timeout": cfg.Server.ShutdownTimeout,
	} {
		if _, err := time.ParseDuration(value); err != nil {
			return fmt.Errorf("invalid server.%s: %w", name, err)
		}
	}

	if cfg.Storage.Type == "" {
		cfg.Storage.Type = "firestore"
	}
	switch cfg.Storage.Type {
	case "firestore":
		fs := cfg.Storage.Firestore
		if fs.ProjectID == "" {
			return fmt.Errorf("storage.firestore.project_id is required")
		}
		for name, value := range map[string]string{
			"project_id":       fs.ProjectID,
			"credentials_file": fs.CredentialsFile,
		} {
			if isPlaceholder(value) {
				return fmt.Errorf("storage.firestore.%s contains a placeholder value: %q", name, value)
			}
		}
		if fs.UsageCollection == "" {
			return fmt.Errorf("storage.firestore.usage_collection is required")
		}
	case "redis":
		if cfg.Storage.Redis.Host == "" {
			return fmt.Errorf("storage.redis.host is required")
		}
		for name, value := range map[string]string{
			"dial_timeout":  cfg.Storage.Redis.DialTimeout,
			"read_timeout":  cfg.Storage.Redis.ReadTimeout,
			"write_timeout": cfg.Storage.Redis.WriteTimeout,
		} {
			if _, err := time.ParseDuration(value); err != nil {
				return fmt.Errorf("invalid storage.redis.%s: %w", name, err)
			}
		}
	default:
		return fmt.Errorf("unsupported storage type: %s (must be 'firestore' or 'redis')", cfg.Storage.Type)
	}

	if strings.TrimSpace(cfg.Lookup.DefaultCountryCode) == "" {
		return fmt.Errorf("lookup.default_country_code is required")
	}
	if _, err := phone.RegionFor(cfg.Lookup.DefaultCountryCode); err != nil {
		return fmt.Errorf("invalid lookup.default_country_code %q: %w", cfg.Lookup.DefaultCountryCode, err)
	}

	if _, err := time.LoadLocation(cfg.Display.Timezone); err != nil {
		return fmt.Errorf("invalid display.timezone %q: %w", cfg.Display.Timezone, err)
	}
	if cfg.Display.DefaultGoalMinutes <= 0 {
		return fmt.Errorf("display.default_goal_minutes must be positive, got %d", cfg.Display.DefaultGoalMinutes)
	}
	if cfg.Display.TopApps <= 0 {
		cfg.Display.TopApps = 5
	}

	for i, rule := range cfg.Categories {
		if rule.Package == "" {
			return fmt.Errorf("categories[%d]: package is required", i)
		}
		if !knownCategories[rule.Category] {
			return fmt.Errorf("unknown category %q for app %q", rule.Category, rule.Package)
		}
	}

	if _, err := time.ParseDuration(cfg.Taglines.CacheTTL); err != nil {
		return fmt.Errorf("invalid taglines.cache_ttl: %w", err)
	}
	if _, err := time.ParseDuration(cfg.RateLimit.Window); err != nil {
		return fmt.Errorf("invalid rate_limit.window: %w", err)
	}

	return nil
}

// Duration parses a validated duration setting. Invalid values yield zero.
func Duration(value string) time.Duration {
	d, _ := time.ParseDuration(value)
	return d
}

// isPlaceholder reports whether a value looks like an unedited template value.
func isPlaceholder(value string) bool {
	lower := strings.ToLower(value)
	return strings.Contains(lower, "your_") || strings.HasSuffix(lower, "here")
}
