// Package config loads module configuration from the environment.
package config

import (
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"golang.org/x/crypto/bcrypt"
)

type Config struct {
	// Database
	SQLiteDBPath string

	// Auth
	BcryptCost int

	// Ledger
	HistoryWindow time.Duration

	// Logging
	LogLevel slog.Level
}

func Load() *Config {
	return &Config{
		SQLiteDBPath:  getEnv("SQLITE_DB_PATH", "./data/defesa.db"),
		BcryptCost:    getEnvInt("BCRYPT_COST", bcrypt.DefaultCost),
		HistoryWindow: getEnvDuration("HISTORY_WINDOW", 30*24*time.Hour),
		LogLevel:      parseLevel(getEnv("LOG_LEVEL", "info")),
	}
}

func (c *Config) Validate() error {
	if strings.TrimSpace(c.SQLiteDBPath) == "" {
		return fmt.Errorf("SQLITE_DB_PATH must not be empty")
	}
	if c.BcryptCost < bcrypt.MinCost || c.BcryptCost > bcrypt.MaxCost {
		return fmt.Errorf("invalid bcrypt cost %d: must be between %d and %d",
			c.BcryptCost, bcrypt.MinCost, bcrypt.MaxCost)
	}
	if c.HistoryWindow <= 0 {
		return fmt.Errorf("invalid history window %s: must be positive", c.HistoryWindow)
	}
	return nil
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return fallback
}

func getEnvDuration(key string, fallback time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return fallback
}

func parseLevel(s string) slog.Level {
	switch strings.ToLower(s) {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
