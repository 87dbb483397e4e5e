// Package config loads HyperGraphDB's ambient settings from environment
// variables, all prefixed HGDB_, with an optional YAML overlay file for
// deployments that prefer a checked-in config over a pile of env vars.
//
// Example:
//
//	cfg := config.LoadFromEnv()
//	if err := cfg.Validate(); err != nil {
//		log.Fatalf("invalid config: %v", err)
//	}
package config

import (
	"fmt"
	"os"
	"runtime/debug"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config holds every HyperGraphDB setting loaded from the environment (or
// an overlay file). The zero value is not meaningful; use LoadFromEnv.
type Config struct {
	// Database settings
	Database DatabaseConfig

	// Crawl settings
	Crawl CrawlConfig

	// Runtime memory tuning
	Memory MemoryConfig

	// Logging
	Logging LoggingConfig
}

// DatabaseConfig holds core-store settings.
type DatabaseConfig struct {
	// DataDir is the directory badgerstore persists the local feed log
	// to. Empty means in-memory (tests only).
	DataDir string
}

// CrawlConfig holds bounded-traversal defaults (spec §4.F/§4.G). These
// values are loaded and validated here only: pkg/crawler and pkg/query do
// not read them (a crawl bound is passed via crawler.WithBound, and both
// packages use a fixed concurrency limit of 8).
type CrawlConfig struct {
	// Bound caps vertices visited by a single Crawl call. 0 = unbounded.
	Bound int
	// HopConcurrency bounds concurrent edge-hop resolution within one
	// query step.
	HopConcurrency int
	// LoadConcurrency bounds concurrent vertex loads within one crawl
	// level.
	LoadConcurrency int
}

// MemoryConfig holds Go runtime memory tuning, independent of any graph
// semantics.
type MemoryConfig struct {
	// RuntimeLimit is the soft memory limit (GOMEMLIMIT) in bytes.
	// 0 = unlimited (Go manages automatically).
	RuntimeLimit int64
	// RuntimeLimitStr is the human-readable form (e.g. "2GB", "512MB").
	RuntimeLimitStr string
	// GCPercent controls GC aggressiveness (GOGC). 100 is the Go default.
	GCPercent int
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	// Level (debug, info, warn, error).
	Level string
	// Format (json, console).
	Format string
	// Output path (stdout, stderr, or a file path).
	Output string
}

// LoadFromEnv loads configuration from HGDB_-prefixed environment
// variables. Every field has a sensible default, so LoadFromEnv can be
// called without any environment variables set.
func LoadFromEnv() *Config {
	cfg := &Config{}

	cfg.Database.DataDir = getEnv("HGDB_DATA_DIR", "./data")

	cfg.Crawl.Bound = getEnvInt("HGDB_CRAWL_BOUND", 0)
	cfg.Crawl.HopConcurrency = getEnvInt("HGDB_HOP_CONCURRENCY", 8)
	cfg.Crawl.LoadConcurrency = getEnvInt("HGDB_LOAD_CONCURRENCY", 8)

	cfg.Memory.RuntimeLimitStr = getEnv("HGDB_MEMORY_LIMIT", "0")
	cfg.Memory.RuntimeLimit = parseMemorySize(cfg.Memory.RuntimeLimitStr)
	cfg.Memory.GCPercent = getEnvInt("HGDB_GC_PERCENT", 100)

	cfg.Logging.Level = getEnv("HGDB_LOG_LEVEL", "info")
	cfg.Logging.Format = getEnv("HGDB_LOG_FORMAT", "json")
	cfg.Logging.Output = getEnv("HGDB_LOG_OUTPUT", "stdout")

	return cfg
}

// LoadFromFile reads a YAML overlay at path and applies it on top of
// LoadFromEnv's result — any field the file sets wins over the
// environment-derived default, any field it omits keeps its env value.
func LoadFromFile(path string) (*Config, error) {
	cfg := LoadFromEnv()

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("config: reading overlay %q: %w", path, err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("config: parsing overlay %q: %w", path, err)
	}
	return cfg, nil
}

// Validate checks the configuration for logical errors.
func (c *Config) Validate() error {
	if c.Crawl.Bound < 0 {
		return fmt.Errorf("invalid crawl bound: %d", c.Crawl.Bound)
	}
	if c.Crawl.HopConcurrency <= 0 {
		return fmt.Errorf("invalid hop concurrency: %d", c.Crawl.HopConcurrency)
	}
	if c.Crawl.LoadConcurrency <= 0 {
		return fmt.Errorf("invalid load concurrency: %d", c.Crawl.LoadConcurrency)
	}
	return nil
}

// String returns a string representation of the Config, safe for logging.
func (c *Config) String() string {
	return fmt.Sprintf(
		"Config{DataDir: %s, CrawlBound: %d, LogLevel: %s}",
		c.Database.DataDir, c.Crawl.Bound, c.Logging.Level,
	)
}

// ApplyRuntimeMemory applies the runtime memory settings to the Go
// runtime. Call early in main(), before heavy allocations.
func (c *MemoryConfig) ApplyRuntimeMemory() {
	if c.RuntimeLimit > 0 {
		debug.SetMemoryLimit(c.RuntimeLimit)
	}
	if c.GCPercent != 100 {
		debug.SetGCPercent(c.GCPercent)
	}
}

// Helper functions for environment variable parsing.

func getEnv(key, defaultVal string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return defaultVal
}

func getEnvInt(key string, defaultVal int) int {
	if val := os.Getenv(key); val != "" {
		if i, err := strconv.Atoi(val); err == nil {
			return i
		}
	}
	return defaultVal
}

// parseMemorySize parses a human-readable memory size string. Supports
// "1024", "1KB", "1MB", "1GB", "1TB", "0", "unlimited".
func parseMemorySize(s string) int64 {
	s = strings.TrimSpace(strings.ToUpper(s))
	if s == "" || s == "0" || s == "UNLIMITED" {
		return 0
	}

	s = strings.TrimSuffix(s, "B")

	var multiplier int64 = 1
	switch {
	case strings.HasSuffix(s, "K"):
		multiplier = 1024
		s = strings.TrimSuffix(s, "K")
	case strings.HasSuffix(s, "M"):
		multiplier = 1024 * 1024
		s = strings.TrimSuffix(s, "M")
	case strings.HasSuffix(s, "G"):
		multiplier = 1024 * 1024 * 1024
		s = strings.TrimSuffix(s, "G")
	case strings.HasSuffix(s, "T"):
		multiplier = 1024 * 1024 * 1024 * 1024
		s = strings.TrimSuffix(s, "T")
	}

	val, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return 0
	}
	return val * multiplier
}

// FormatMemorySize formats bytes as a human-readable string.
func FormatMemorySize(bytes int64) string {
	const (
		KB = 1024
		MB = KB * 1024
		GB = MB * 1024
		TB = GB * 1024
	)

	switch {
	case bytes >= TB:
		return fmt.Sprintf("%.2f TB", float64(bytes)/float64(TB))
	case bytes >= GB:
		return fmt.Sprintf("%.2f GB", float64(bytes)/float64(GB))
	case bytes >= MB:
		return fmt.Sprintf("%.2f MB", float64(bytes)/float64(MB))
	case bytes >= KB:
		return fmt.Sprintf("%.2f KB", float64(bytes)/float64(KB))
	default:
		return fmt.Sprintf("%d B", bytes)
	}
}
