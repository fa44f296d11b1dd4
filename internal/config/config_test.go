package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestLoadConfigCreatesDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")

	cfg, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("Failed to load config: %v", err)
	}

	if _, err := os.Stat(path); err != nil {
		t.Errorf("Expected default config file to be written: %v", err)
	}
	if cfg.Database.Driver != "sqlite" {
		t.Errorf("Expected sqlite driver, got %s", cfg.Database.Driver)
	}
	if cfg.Media.MaxAudioSizeMB != 10 || cfg.Media.MaxImageSizeMB != 5 {
		t.Errorf("Unexpected media limits: %+v", cfg.Media)
	}

	ttl, err := cfg.TokenTTL()
	if err != nil {
		t.Fatalf("Failed to parse token ttl: %v", err)
	}
	if ttl != 24*time.Hour {
		t.Errorf("Expected 24h token ttl, got %v", ttl)
	}

	// Reloading the written file yields the same values.
	again, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("Failed to reload config: %v", err)
	}
	if again.GetAddress() != cfg.GetAddress() {
		t.Errorf("Expected %s after reload, got %s", cfg.GetAddress(), again.GetAddress())
	}
}

func TestLoadConfigFromFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	content := `
[server]
port = "8080"
host = "127.0.0.1"

[database]
driver = "mongo"
mongo_uri = "mongodb://db:27017"
mongo_database = "music"

[logging]
level = "debug"
format = "json"
`
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("Failed to write config: %v", err)
	}

	cfg, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("Failed to load config: %v", err)
	}

	if cfg.GetAddress() != "127.0.0.1:8080" {
		t.Errorf("Expected 127.0.0.1:8080, got %s", cfg.GetAddress())
	}
	if cfg.Database.Driver != "mongo" || cfg.Database.MongoDatabase != "music" {
		t.Errorf("Unexpected database section: %+v", cfg.Database)
	}
	// Sections absent from the file keep their defaults.
	if cfg.Auth.BcryptCost != 12 {
		t.Errorf("Expected default bcrypt cost, got %d", cfg.Auth.BcryptCost)
	}
}

func TestApplyEnv(t *testing.T) {
	t.Setenv("PORT", "9999")
	t.Setenv("MONGO_URI", "mongodb://env:27017")
	t.Setenv("JWT_SECRET", "from-env")
	t.Setenv("CADENZA_DB_DRIVER", "mongo")
	t.Setenv("NGROK_AUTHTOKEN", "tok")

	cfg := DefaultConfig()
	cfg.ApplyEnv()

	if cfg.Server.Port != "9999" {
		t.Errorf("Expected port 9999, got %s", cfg.Server.Port)
	}
	if cfg.Database.MongoURI != "mongodb://env:27017" || cfg.Database.Driver != "mongo" {
		t.Errorf("Unexpected database section: %+v", cfg.Database)
	}
	if cfg.Auth.JWTSecret != "from-env" {
		t.Errorf("Expected secret from env, got %s", cfg.Auth.JWTSecret)
	}
	if cfg.Ngrok.AuthToken != "tok" {
		t.Errorf("Expected ngrok token from env, got %s", cfg.Ngrok.AuthToken)
	}
}

func TestLoadDotEnv(t *testing.T) {
	path := filepath.Join(t.TempDir(), ".env")
	if err := os.WriteFile(path, []byte("CADENZA_TEST_DOTENV=loaded\n"), 0644); err != nil {
		t.Fatalf("Failed to write .env: %v", err)
	}
	t.Cleanup(func() { os.Unsetenv("CADENZA_TEST_DOTENV") })

	LoadDotEnv(path, filepath.Join(t.TempDir(), "missing.env"))

	if got := os.Getenv("CADENZA_TEST_DOTENV"); got != "loaded" {
		t.Errorf("Expected value from .env, got %q", got)
	}
}

func TestEnsureJWTSecret(t *testing.T) {
	cfg := DefaultConfig()

	generated, err := cfg.EnsureJWTSecret()
	if err != nil {
		t.Fatalf("Failed to generate secret: %v", err)
	}
	if !generated || len(cfg.Auth.JWTSecret) != 64 {
		t.Errorf("Expected a generated 64 char secret, got %q", cfg.Auth.JWTSecret)
	}

	secret := cfg.Auth.JWTSecret
	generated, _ = cfg.EnsureJWTSecret()
	if generated || cfg.Auth.JWTSecret != secret {
		t.Error("Expected an existing secret to be kept")
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
		errMsg string
	}{
		{"empty port", func(c *Config) { c.Server.Port = "" }, "port"},
		{"unknown driver", func(c *Config) { c.Database.Driver = "postgres" }, "driver"},
		{"mongo without uri", func(c *Config) { c.Database.Driver = "mongo"; c.Database.MongoURI = "" }, "mongo_uri"},
		{"bad ttl", func(c *Config) { c.Auth.TokenTTL = "tomorrow" }, "token ttl"},
		{"zero ttl", func(c *Config) { c.Auth.TokenTTL = "0s" }, "positive"},
		{"low bcrypt cost", func(c *Config) { c.Auth.BcryptCost = 2 }, "bcrypt"},
		{"bad log level", func(c *Config) { c.Logging.Level = "trace" }, "log level"},
		{"bad log format", func(c *Config) { c.Logging.Format = "xml" }, "log format"},
		{"relative prefix", func(c *Config) { c.Media.URLPrefix = "uploads" }, "prefix"},
		{"import without path", func(c *Config) { c.Import.Enabled = true; c.Import.Path = "" }, "import"},
	}

	if err := DefaultConfig().Validate(); err != nil {
		t.Fatalf("Expected defaults to validate, got %v", err)
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(cfg)
			err := cfg.Validate()
			if err == nil {
				t.Fatal("Expected validation error")
			}
			if !strings.Contains(err.Error(), tt.errMsg) {
				t.Errorf("Expected error containing %q, got %v", tt.errMsg, err)
			}
		})
	}
}

func TestNewLogger(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Logging.Level = "debug"
	cfg.Logging.Format = "json"
	cfg.Logging.File = filepath.Join(t.TempDir(), "cadenza.log")

	logger, closer, err := cfg.NewLogger()
	if err != nil {
		t.Fatalf("Failed to build logger: %v", err)
	}
	logger.WithField("component", "test").Info("hello")
	closer.Close()

	data, err := os.ReadFile(cfg.Logging.File)
	if err != nil {
		t.Fatalf("Failed to read log file: %v", err)
	}
	if !strings.Contains(string(data), `"component":"test"`) {
		t.Errorf("Expected JSON log line, got %s", data)
	}
}

func TestIsImportFormat(t *testing.T) {
	cfg := DefaultConfig()
	if !cfg.IsImportFormat(".flac") {
		t.Error("Expected .flac to be importable")
	}
	if cfg.IsImportFormat(".ogg") {
		t.Error("Expected .ogg to be rejected")
	}
}
