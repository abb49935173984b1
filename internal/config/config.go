// Package config holds the environment-driven server configuration.
// Every tunable has a default; the environment overrides, nothing else
// does. Credentials are read here once and handed to the executor —
// the pipeline itself never touches them.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"
)

// Config holds all server settings.
type Config struct {
	// APIURL is the base URL of the outline-note API.
	APIURL string

	// APIKey is the environment-level fallback credential, used when a
	// request carries no credential of its own.
	APIKey string

	// HTTPAddr is the listen address for the serve-http mode.
	HTTPAddr string

	// CacheDir is where the durable cache tier keeps its database.
	CacheDir string

	// CachePersist enables the sqlite-backed cache tier. Disable on
	// ephemeral filesystems (edge deployments).
	CachePersist bool

	// CacheCapacity bounds the in-memory cache tier.
	CacheCapacity int

	// OverloadFloor is the minimum backoff before retrying a
	// rate-limited call, applied from the first retry on.
	OverloadFloor time.Duration
}

// DefaultConfig returns the built-in defaults.
func DefaultConfig() Config {
	home, _ := os.UserHomeDir()
	return Config{
		APIURL:        "https://api.outlinehq.com/v1",
		HTTPAddr:      ":8080",
		CacheDir:      filepath.Join(home, ".outline-mcp"),
		CachePersist:  true,
		CacheCapacity: 1024,
		OverloadFloor: 5 * time.Second,
	}
}

// FromEnv returns DefaultConfig with environment overrides applied.
//
//	OUTLINE_API_URL            API base URL
//	OUTLINE_API_KEY            fallback credential
//	OUTLINE_HTTP_ADDR          serve-http listen address
//	OUTLINE_CACHE_DIR          durable cache directory
//	OUTLINE_CACHE_PERSIST      "0"/"false" disables the durable tier
//	OUTLINE_CACHE_CAPACITY     in-memory entry bound
//	OUTLINE_OVERLOAD_FLOOR_MS  rate-limit retry floor in milliseconds
func FromEnv() (Config, error) {
	cfg := DefaultConfig()

	cfg.APIURL = envStr("OUTLINE_API_URL", cfg.APIURL)
	cfg.APIKey = envStr("OUTLINE_API_KEY", cfg.APIKey)
	cfg.HTTPAddr = envStr("OUTLINE_HTTP_ADDR", cfg.HTTPAddr)
	cfg.CacheDir = envStr("OUTLINE_CACHE_DIR", cfg.CacheDir)

	var err error
	if cfg.CachePersist, err = envBool("OUTLINE_CACHE_PERSIST", cfg.CachePersist); err != nil {
		return cfg, err
	}
	if cfg.CacheCapacity, err = envInt("OUTLINE_CACHE_CAPACITY", cfg.CacheCapacity); err != nil {
		return cfg, err
	}

	floorMS, err := envInt("OUTLINE_OVERLOAD_FLOOR_MS", int(cfg.OverloadFloor/time.Millisecond))
	if err != nil {
		return cfg, err
	}
	cfg.OverloadFloor = time.Duration(floorMS) * time.Millisecond

	return cfg, nil
}

func envStr(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func envInt(key string, def int) (int, error) {
	v := os.Getenv(key)
	if v == "" {
		return def, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return def, fmt.Errorf("config: %s: %w", key, err)
	}
	return n, nil
}

func envBool(key string, def bool) (bool, error) {
	v := os.Getenv(key)
	if v == "" {
		return def, nil
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return def, fmt.Errorf("config: %s: %w", key, err)
	}
	return b, nil
}
