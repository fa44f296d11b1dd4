package config

import (
	"crypto/rand"
	"encoding/hex"
	"os"

	"github.com/joho/godotenv"
)

// LoadDotEnv reads KEY=value pairs from the given files into the process
// environment. Missing files are ignored and existing variables win.
func LoadDotEnv(files ...string) {
	for _, file := range files {
		if _, err := os.Stat(file); err == nil {
			_ = godotenv.Load(file)
		}
	}
}

// ApplyEnv overrides file values with environment variables.
func (c *Config) ApplyEnv() {
	if v := os.Getenv("PORT"); v != "" {
		c.Server.Port = v
	}
	if v := os.Getenv("CADENZA_DB_DRIVER"); v != "" {
		c.Database.Driver = v
	}
	if v := os.Getenv("MONGO_URI"); v != "" {
		c.Database.MongoURI = v
	}
	if v := os.Getenv("JWT_SECRET"); v != "" {
		c.Auth.JWTSecret = v
	}
	if v := os.Getenv("NGROK_AUTHTOKEN"); v != "" {
		c.Ngrok.AuthToken = v
	}
}

// EnsureJWTSecret fills an empty secret with a random one and reports
// whether it did so. Tokens signed with a generated secret do not survive a
// restart.
func (c *Config) EnsureJWTSecret() (bool, error) {
	if c.Auth.JWTSecret != "" {
		return false, nil
	}

	buf := make([]byte, 32)
	if _, err := rand.Read(buf); err != nil {
		return false, err
	}
	c.Auth.JWTSecret = hex.EncodeToString(buf)
	return true, nil
}
