package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func validConfig() Config {
	return Config{
		Port:              8080,
		DataBackend:       "sqlite",
		SQLiteDBPath:      "./data/books.db",
		SummarizerTimeout: 30 * time.Second,
		MaxRetries:        2,
		NotificationTTL:   5 * time.Second,
		Timezone:          "UTC",
	}
}

func TestLoad_Defaults(t *testing.T) {
	for _, key := range []string{"PORT", "DATA_BACKEND", "SQLITE_DB_PATH", "GEMINI_API_KEY", "API_KEY", "GEMINI_MODEL", "SUMMARIZER_TIMEOUT", "NOTIFICATION_TTL", "TRACING_ENABLED", "TIMEZONE"} {
		t.Setenv(key, "")
	}

	cfg := Load()

	if cfg.Port != 8080 {
		t.Errorf("expected port 8080, got %d", cfg.Port)
	}
	if cfg.DataBackend != "sqlite" {
		t.Errorf("expected sqlite backend, got %s", cfg.DataBackend)
	}
	if cfg.GeminiModel != "gemini-2.5-flash" {
		t.Errorf("unexpected model %s", cfg.GeminiModel)
	}
	if cfg.SummarizerTimeout != 30*time.Second {
		t.Errorf("expected 30s timeout, got %s", cfg.SummarizerTimeout)
	}
	if cfg.NotificationTTL != 5*time.Second {
		t.Errorf("expected 5s TTL, got %s", cfg.NotificationTTL)
	}
	if cfg.TracingEnabled {
		t.Error("expected tracing disabled by default")
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("defaults should validate, got %v", err)
	}
}

func TestLoad_Overrides(t *testing.T) {
	t.Setenv("PORT", "9090")
	t.Setenv("DATA_BACKEND", "memory")
	t.Setenv("SUMMARIZER_TIMEOUT", "5s")
	t.Setenv("TRACING_ENABLED", "true")
	t.Setenv("TIMEZONE", "Africa/Algiers")

	cfg := Load()

	if cfg.Port != 9090 || cfg.DataBackend != "memory" || cfg.SummarizerTimeout != 5*time.Second || !cfg.TracingEnabled {
		t.Errorf("overrides not applied: %+v", cfg)
	}
	if cfg.Location().String() != "Africa/Algiers" {
		t.Errorf("unexpected location %s", cfg.Location())
	}
}

func TestLoad_InvalidNumbersFallBack(t *testing.T) {
	t.Setenv("PORT", "eighty")
	t.Setenv("SUMMARIZER_TIMEOUT", "soon")

	cfg := Load()

	if cfg.Port != 8080 {
		t.Errorf("expected fallback port, got %d", cfg.Port)
	}
	if cfg.SummarizerTimeout != 30*time.Second {
		t.Errorf("expected fallback timeout, got %s", cfg.SummarizerTimeout)
	}
}

func TestLoad_APIKeyFallback(t *testing.T) {
	tests := []struct {
		name   string
		gemini string
		legacy string
		want   string
	}{
		{"gemini key wins", "g-key", "legacy", "g-key"},
		{"legacy key used", "", "legacy", "legacy"},
		{"none", "", "", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv("GEMINI_API_KEY", tt.gemini)
			t.Setenv("API_KEY", tt.legacy)

			if got := Load().GeminiAPIKey; got != tt.want {
				t.Errorf("expected %q, got %q", tt.want, got)
			}
		})
	}
}

func TestConfig_Validate(t *testing.T) {
	tests := []struct {
		name        string
		mutate      func(c *Config)
		errorString string
	}{
		{"valid", func(c *Config) {}, ""},
		{"memory backend without path", func(c *Config) { c.DataBackend = "memory"; c.SQLiteDBPath = "" }, ""},
		{"port out of range", func(c *Config) { c.Port = 70000 }, "invalid port 70000"},
		{"unknown backend", func(c *Config) { c.DataBackend = "sheets" }, "invalid data backend 'sheets'"},
		{"sqlite without path", func(c *Config) { c.SQLiteDBPath = " " }, "SQLite database path cannot be empty"},
		{"zero timeout", func(c *Config) { c.SummarizerTimeout = 0 }, "invalid summarizer timeout"},
		{"negative retries", func(c *Config) { c.MaxRetries = -1 }, "invalid max retries"},
		{"zero TTL", func(c *Config) { c.NotificationTTL = 0 }, "invalid notification TTL"},
		{"bad timezone", func(c *Config) { c.Timezone = "Mars/Olympus" }, "invalid timezone"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validConfig()
			tt.mutate(&cfg)

			err := cfg.Validate()
			if tt.errorString == "" {
				if err != nil {
					t.Errorf("Config.Validate() error = %v, want nil", err)
				}
				return
			}
			if err == nil || !strings.Contains(err.Error(), tt.errorString) {
				t.Errorf("Config.Validate() error = %v, want error containing %q", err, tt.errorString)
			}
		})
	}
}

func TestConfig_ValidateReportsAllProblems(t *testing.T) {
	cfg := validConfig()
	cfg.Port = 0
	cfg.DataBackend = "postgres"

	err := cfg.Validate()
	if err == nil {
		t.Fatal("expected error")
	}
	if !strings.Contains(err.Error(), "invalid port") || !strings.Contains(err.Error(), "invalid data backend") {
		t.Errorf("expected both problems reported, got %v", err)
	}
}

func TestLoadDotEnv(t *testing.T) {
	path := filepath.Join(t.TempDir(), ".env")
	content := "# local settings\nBOOKS_TEST_MODEL=\"gemini-test\"\nBOOKS_TEST_PRESET=from-file\n"
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatal(err)
	}
	t.Setenv("BOOKS_TEST_MODEL", "")
	os.Unsetenv("BOOKS_TEST_MODEL")
	t.Setenv("BOOKS_TEST_PRESET", "from-env")

	if err := LoadDotEnv(path); err != nil {
		t.Fatalf("LoadDotEnv: %v", err)
	}
	t.Cleanup(func() { os.Unsetenv("BOOKS_TEST_MODEL") })

	if got := os.Getenv("BOOKS_TEST_MODEL"); got != "gemini-test" {
		t.Errorf("expected unquoted value from file, got %q", got)
	}
	if got := os.Getenv("BOOKS_TEST_PRESET"); got != "from-env" {
		t.Errorf("environment must win over file, got %q", got)
	}
}

func TestLoadDotEnv_MissingFile(t *testing.T) {
	if err := LoadDotEnv(filepath.Join(t.TempDir(), "absent.env")); err != nil {
		t.Errorf("expected missing file to be ignored, got %v", err)
	}
}
