package config

import (
	"os"
	"path/filepath"
	"testing"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(body), 0600); err != nil {
		t.Fatalf("failed to write config: %v", err)
	}
	return path
}

func TestLoad_RedisDefaults(t *testing.T) {
	t.Chdir(t.TempDir())
	path := writeConfig(t, `
storage:
  type: redis
`)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if cfg.Server.HTTPPort != 8080 {
		t.Errorf("Expected HTTP port 8080, got %d", cfg.Server.HTTPPort)
	}
	if cfg.Storage.Redis.KeyPrefix != "timeleak" {
		t.Errorf("Expected key prefix timeleak, got %s", cfg.Storage.Redis.KeyPrefix)
	}
	if cfg.Lookup.DefaultCountryCode != "1" {
		t.Errorf("Expected default country code 1, got %s", cfg.Lookup.DefaultCountryCode)
	}
	if cfg.Display.DefaultGoalMinutes != 120 {
		t.Errorf("Expected default goal 120, got %d", cfg.Display.DefaultGoalMinutes)
	}
	if cfg.Taglines.Fallback != "Call them out. Log them off." {
		t.Errorf("Unexpected fallback tagline %q", cfg.Taglines.Fallback)
	}
}

func TestLoad_MissingFileUsesEnvironment(t *testing.T) {
	t.Chdir(t.TempDir())
	t.Setenv("TIMELEAK_STORAGE_TYPE", "redis")
	t.Setenv("TIMELEAK_SERVER_HTTP_PORT", "9000")

	cfg, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.Storage.Type != "redis" {
		t.Errorf("Expected storage type redis, got %s", cfg.Storage.Type)
	}
	if cfg.Server.HTTPPort != 9000 {
		t.Errorf("Expected HTTP port 9000, got %d", cfg.Server.HTTPPort)
	}
}

func TestLoad_LegacyFirebaseEnv(t *testing.T) {
	dir := t.TempDir()
	t.Chdir(dir)
	envFile := filepath.Join(dir, ".env")
	if err := os.WriteFile(envFile, []byte("VITE_FIREBASE_PROJECT_ID=screen-time-prod\nGA_TRACKING_ID=G-TEST123\n"), 0600); err != nil {
		t.Fatalf("failed to write .env: %v", err)
	}
	t.Cleanup(func() {
		os.Unsetenv("VITE_FIREBASE_PROJECT_ID")
		os.Unsetenv("GA_TRACKING_ID")
	})

	cfg, err := Load(filepath.Join(dir, "missing.yaml"))
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.Storage.Firestore.ProjectID != "screen-time-prod" {
		t.Errorf("Expected project screen-time-prod, got %q", cfg.Storage.Firestore.ProjectID)
	}
	if cfg.Analytics.TrackingID != "G-TEST123" {
		t.Errorf("Expected tracking ID G-TEST123, got %q", cfg.Analytics.TrackingID)
	}
	if cfg.Storage.Firestore.UsageCollection != "usage_data" {
		t.Errorf("Expected usage collection usage_data, got %q", cfg.Storage.Firestore.UsageCollection)
	}
}

func TestLoad_Invalid(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{"firestore without project", "storage:\n  type: firestore\n"},
		{"placeholder project", "storage:\n  type: firestore\n  firestore:\n    project_id: your_project_id\n"},
		{"unknown storage", "storage:\n  type: bolt\n"},
		{"bad port", "server:\n  http_port: 70000\nstorage:\n  type: redis\n"},
		{"bad timezone", "storage:\n  type: redis\ndisplay:\n  timezone: Mars/Olympus\n"},
		{"unknown category", "storage:\n  type: redis\ncategories:\n  - package: com.example\n    category: Gaming\n"},
		{"bad redis timeout", "storage:\n  type: redis\n  redis:\n    dial_timeout: soon\n"},
		{"bad server timeout", "server:\n  read_timeout: forever\nstorage:\n  type: redis\n"},
		{"unknown country code", "storage:\n  type: redis\nlookup:\n  default_country_code: \"999\"\n"},
		{"unknown region", "storage:\n  type: redis\nlookup:\n  default_country_code: ZZ\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Chdir(t.TempDir())
			if _, err := Load(writeConfig(t, tt.body)); err == nil {
				t.Error("Expected validation error, got nil")
			}
		})
	}
}

func TestLoad_Categories(t *testing.T) {
	t.Chdir(t.TempDir())
	path := writeConfig(t, `
storage:
  type: redis
categories:
  - package: com.instagram.android
    category: Social Media
  - package: com.whatsapp
    category: Messaging
`)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if len(cfg.Categories) != 2 {
		t.Fatalf("Expected 2 category rules, got %d", len(cfg.Categories))
	}
	if got := cfg.Categories[1]; got.Package != "com.whatsapp" || got.Category != "Messaging" {
		t.Errorf("Expected com.whatsapp -> Messaging, got %+v", got)
	}
}
