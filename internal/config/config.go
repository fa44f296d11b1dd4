package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/BurntSushi/toml"
)

// Config represents the application configuration
type Config struct {
	Server   ServerConfig   `toml:"server"`
	Database DatabaseConfig `toml:"database"`
	Media    MediaConfig    `toml:"media"`
	Auth     AuthConfig     `toml:"auth"`
	Logging  LoggingConfig  `toml:"logging"`
	Import   ImportConfig   `toml:"import"`
	Ngrok    NgrokConfig    `toml:"ngrok"`
}

// ServerConfig contains server-related configuration
type ServerConfig struct {
	Port            string `toml:"port"`
	Host            string `toml:"host"`
	EnableCORS      bool   `toml:"enable_cors"`
	ReadTimeout     int    `toml:"read_timeout_seconds"`
	WriteTimeout    int    `toml:"write_timeout_seconds"`
	ShutdownTimeout int    `toml:"shutdown_timeout_seconds"`
}

// DatabaseConfig selects and configures the catalog store
type DatabaseConfig struct {
	Driver         string `toml:"driver"` // sqlite or mongo
	Path           string `toml:"path"`
	MaxConnections int    `toml:"max_connections"`
	MongoURI       string `toml:"mongo_uri"`
	MongoDatabase  string `toml:"mongo_database"`
}

// MediaConfig contains upload storage configuration
type MediaConfig struct {
	UploadDir      string `toml:"upload_dir"`
	URLPrefix      string `toml:"url_prefix"`
	MaxAudioSizeMB int    `toml:"max_audio_size_mb"`
	MaxImageSizeMB int    `toml:"max_image_size_mb"`
}

// AuthConfig contains bearer token and password hashing configuration
type AuthConfig struct {
	JWTSecret          string `toml:"jwt_secret"`
	TokenTTL           string `toml:"token_ttl"`
	BcryptCost         int    `toml:"bcrypt_cost"`
	LoginRatePerMinute int    `toml:"login_rate_per_minute"`
	LoginBurst         int    `toml:"login_burst"`
}

// LoggingConfig contains logging configuration
type LoggingConfig struct {
	Level          string `toml:"level"`
	Format         string `toml:"format"`
	File           string `toml:"file"`
	RequestLogging bool   `toml:"request_logging"`
}

// ImportConfig contains drop-folder import configuration
type ImportConfig struct {
	Enabled         bool     `toml:"enabled"`
	Path            string   `toml:"path"`
	WatchForChanges bool     `toml:"watch_for_changes"`
	ScanOnStartup   bool     `toml:"scan_on_startup"`
	DefaultImage    string   `toml:"default_image"`
	Workers         int      `toml:"workers"`
	Formats         []string `toml:"supported_formats"`
}

// NgrokConfig contains ngrok tunnel configuration
type NgrokConfig struct {
	Enabled   bool   `toml:"enabled"`
	AuthToken string `toml:"auth_token"`
	Domain    string `toml:"domain"`
}

// DefaultConfig returns a configuration with sensible defaults
func DefaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Port:            "5000",
			Host:            "0.0.0.0",
			EnableCORS:      true,
			ReadTimeout:     30,
			WriteTimeout:    60,
			ShutdownTimeout: 15,
		},
		Database: DatabaseConfig{
			Driver:         "sqlite",
			Path:           "./cadenza.db",
			MaxConnections: 5,
			MongoURI:       "mongodb://localhost:27017",
			MongoDatabase:  "cadenza",
		},
		Media: MediaConfig{
			UploadDir:      "./uploads",
			URLPrefix:      "/uploads",
			MaxAudioSizeMB: 10,
			MaxImageSizeMB: 5,
		},
		Auth: AuthConfig{
			JWTSecret:          "",
			TokenTTL:           "24h",
			BcryptCost:         12,
			LoginRatePerMinute: 10,
			LoginBurst:         5,
		},
		Logging: LoggingConfig{
			Level:          "info",
			Format:         "text",
			File:           "",
			RequestLogging: true,
		},
		Import: ImportConfig{
			Enabled:         false,
			Path:            "./import",
			WatchForChanges: true,
			ScanOnStartup:   true,
			DefaultImage:    "",
			Workers:         2,
			Formats:         []string{".mp3", ".flac", ".wav", ".m4a"},
		},
		Ngrok: NgrokConfig{
			Enabled: false,
		},
	}
}

// LoadConfig loads configuration from a TOML file, then applies environment
// overrides. A missing file is created with defaults.
func LoadConfig(configPath string) (*Config, error) {
	cfg := DefaultConfig()

	if _, err := os.Stat(configPath); os.IsNotExist(err) {
		if err := cfg.SaveToFile(configPath); err != nil {
			return nil, fmt.Errorf("failed to create default config file: %w", err)
		}
		fmt.Printf("Created default configuration file at: %s\n", configPath)
	} else if _, err := toml.DecodeFile(configPath, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	cfg.ApplyEnv()

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

// SaveToFile saves the configuration to a TOML file
func (c *Config) SaveToFile(configPath string) error {
	dir := filepath.Dir(configPath)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	file, err := os.Create(configPath)
	if err != nil {
		return fmt.Errorf("failed to create config file: %w", err)
	}
	defer file.Close()

	header := `# Cadenza Catalog Server Configuration
# Environment variables PORT, MONGO_URI, JWT_SECRET, CADENZA_DB_DRIVER and
# NGROK_AUTHTOKEN override the values below. A .env file is read if present.

`
	if _, err := file.WriteString(header); err != nil {
		return fmt.Errorf("failed to write config header: %w", err)
	}

	encoder := toml.NewEncoder(file)
	if err := encoder.Encode(c); err != nil {
		return fmt.Errorf("failed to encode config to TOML: %w", err)
	}

	return nil
}

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	if c.Server.Port == "" {
		return fmt.Errorf("server port cannot be empty")
	}
	if c.Server.Host == "" {
		return fmt.Errorf("server host cannot be empty")
	}
	if c.Server.ReadTimeout < 0 || c.Server.WriteTimeout < 0 || c.Server.ShutdownTimeout < 0 {
		return fmt.Errorf("server timeouts cannot be negative")
	}

	switch c.Database.Driver {
	case "sqlite":
		if c.Database.Path == "" {
			return fmt.Errorf("database path cannot be empty")
		}
		if c.Database.MaxConnections < 1 {
			return fmt.Errorf("database max connections must be at least 1")
		}
	case "mongo":
		if c.Database.MongoURI == "" || c.Database.MongoDatabase == "" {
			return fmt.Errorf("mongo_uri and mongo_database are required for the mongo driver")
		}
	default:
		return fmt.Errorf("invalid database driver: %s (must be sqlite or mongo)", c.Database.Driver)
	}

	if c.Media.UploadDir == "" {
		return fmt.Errorf("media upload dir cannot be empty")
	}
	if c.Media.URLPrefix == "" || c.Media.URLPrefix[0] != '/' {
		return fmt.Errorf("media url prefix must start with /")
	}
	if c.Media.MaxAudioSizeMB < 1 || c.Media.MaxImageSizeMB < 1 {
		return fmt.Errorf("media size limits must be at least 1 MB")
	}

	if _, err := c.TokenTTL(); err != nil {
		return err
	}
	if c.Auth.BcryptCost < 4 || c.Auth.BcryptCost > 31 {
		return fmt.Errorf("bcrypt cost must be between 4 and 31")
	}
	if c.Auth.LoginRatePerMinute < 1 || c.Auth.LoginBurst < 1 {
		return fmt.Errorf("login rate and burst must be at least 1")
	}

	validLogLevels := map[string]bool{
		"debug": true, "info": true, "warn": true, "error": true,
	}
	if !validLogLevels[c.Logging.Level] {
		return fmt.Errorf("invalid log level: %s (must be debug, info, warn, or error)", c.Logging.Level)
	}

	validLogFormats := map[string]bool{
		"text": true, "json": true,
	}
	if !validLogFormats[c.Logging.Format] {
		return fmt.Errorf("invalid log format: %s (must be text or json)", c.Logging.Format)
	}

	if c.Import.Enabled && c.Import.Path == "" {
		return fmt.Errorf("import path cannot be empty when import is enabled")
	}

	return nil
}

// GetAddress returns the full server address
func (c *Config) GetAddress() string {
	return c.Server.Host + ":" + c.Server.Port
}

// TokenTTL parses the configured bearer token lifetime
func (c *Config) TokenTTL() (time.Duration, error) {
	return c.Auth.ParseTokenTTL()
}

// ParseTokenTTL parses TokenTTL, e.g. "24h"
func (a *AuthConfig) ParseTokenTTL() (time.Duration, error) {
	ttl, err := time.ParseDuration(a.TokenTTL)
	if err != nil {
		return 0, fmt.Errorf("invalid token ttl %q: %w", a.TokenTTL, err)
	}
	if ttl <= 0 {
		return 0, fmt.Errorf("token ttl must be positive")
	}
	return ttl, nil
}

// IsImportFormat checks if a file extension is accepted by the importer
func (c *Config) IsImportFormat(ext string) bool {
	for _, supported := range c.Import.Formats {
		if supported == ext {
			return true
		}
	}
	return false
}
