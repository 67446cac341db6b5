package utils

import (
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"duocal/src-server/occurrence"
	"duocal/src-server/timeconv"
)

type Config struct {
	port   string
	dbPath string

	location       *time.Location
	horizonMonths  int
	maxOccurrences int

	metricCollectionInterval time.Duration
	logLevel                 slog.Level
}

func NewConfig() *Config {
	return &Config{
		port: func() string {
			port := os.Getenv("PORT")
			if port == "" {
				port = "8080"
			}
			slog.Debug("env", "PORT", port)
			return port
		}(),
		dbPath: func() string {
			dbPath := os.Getenv("DB_PATH")
			if dbPath == "" {
				dbPath = "./sqlite.db"
			}
			slog.Debug("env", "DB_PATH", dbPath)
			return dbPath
		}(),

		location: func() *time.Location {
			timezoneStr := os.Getenv("TIMEZONE")
			switch timezoneStr {
			case "":
				slog.Warn("TIMEZONE is not set, using local timezone", "timezone", time.Local)
				return time.Local
			case "UTC":
				return time.UTC
			}
			loc, err := timeconv.LoadLocation(timezoneStr)
			if err != nil {
				slog.Error("invalid timezone", "timezone", timezoneStr, "error", err)
				os.Exit(1)
			}
			slog.Debug("env", "TIMEZONE", timezoneStr)
			return loc
		}(),
		horizonMonths:  positiveIntEnv("HORIZON_MONTHS", occurrence.DefaultHorizonMonths),
		maxOccurrences: positiveIntEnv("MAX_OCCURRENCES", occurrence.DefaultMaxOccurrences),

		metricCollectionInterval: func() time.Duration {
			raw := os.Getenv("METRIC_COLLECTION_INTERVAL")
			if raw == "" {
				raw = "15s"
			}
			interval, err := time.ParseDuration(raw)
			if err != nil || interval <= 0 {
				slog.Error("invalid METRIC_COLLECTION_INTERVAL", "value", raw, "error", err)
				os.Exit(1)
			}
			slog.Debug("env", "METRIC_COLLECTION_INTERVAL", interval)
			return interval
		}(),
		logLevel: ParseLogLevel(os.Getenv("LOG_LEVEL")),
	}
}

func positiveIntEnv(key string, fallback int) int {
	raw := os.Getenv(key)
	if raw == "" {
		return fallback
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n <= 0 {
		slog.Warn("invalid env value, using default", "key", key, "value", raw, "default", fallback)
		return fallback
	}
	slog.Debug("env", key, n)
	return n
}

// ParseLogLevel maps LOG_LEVEL to a slog level, defaulting to debug.
func ParseLogLevel(raw string) slog.Level {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "info":
		return slog.LevelInfo
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	}
	return slog.LevelDebug
}

// Get PORT env, default to 8080
func (c *Config) GetPort() string {
	return c.port
}

// Get DB_PATH env, default to ./sqlite.db
func (c *Config) GetDBPath() string {
	return c.dbPath
}

// Get TIMEZONE env, used when a request names no viewer timezone
func (c *Config) GetLocation() *time.Location {
	return c.location
}

// Expansion bounds from HORIZON_MONTHS and MAX_OCCURRENCES
func (c *Config) GetExpandOptions() occurrence.ExpandOptions {
	return occurrence.ExpandOptions{
		HorizonMonths:  c.horizonMonths,
		MaxOccurrences: c.maxOccurrences,
	}
}

// Get METRIC_COLLECTION_INTERVAL env
func (c *Config) GetMetricCollectionInterval() time.Duration {
	return c.metricCollectionInterval
}

// Get LOG_LEVEL env
func (c *Config) GetLogLevel() slog.Level {
	return c.logLevel
}
