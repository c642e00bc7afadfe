// Package config loads the settings shared by the storage daemon and the MCP
// server from the environment.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

const (
	EnvSocket        = "CACHESTORAGE_SOCK"
	EnvDB            = "CACHESTORAGE_DB"
	EnvBucket        = "CACHESTORAGE_BUCKET"
	EnvRedisAddr     = "CACHESTORAGE_REDIS_ADDR"
	EnvRedisPassword = "CACHESTORAGE_REDIS_PASSWORD"
	EnvRedisDB       = "CACHESTORAGE_REDIS_DB"
	EnvRedisPrefix   = "CACHESTORAGE_REDIS_PREFIX"
	EnvFetchTTL      = "CACHESTORAGE_FETCH_TTL"
	EnvSearchTTL     = "CACHESTORAGE_SEARCH_TTL"
)

var ErrInvalid = errors.New("config: invalid")

// Config holds daemon and server settings. Durations are whole minutes so
// they map onto the cache's minute interval.
type Config struct {
	SocketPath string
	DBPath     string
	Bucket     string

	// RedisAddr, when set, makes the daemon host the local namespace in Redis
	// instead of DBPath.
	RedisAddr     string
	RedisPassword string
	RedisDB       int
	RedisPrefix   string

	FetchTTLMinutes  int
	SearchTTLMinutes int
}

// Default returns the configuration used when nothing is set.
func Default() Config {
	dir := cacheDir()
	return Config{
		SocketPath:       filepath.Join(dir, "cache.sock"),
		DBPath:           filepath.Join(dir, "local.bbolt"),
		Bucket:           "local",
		RedisPrefix:      "cachestorage:",
		FetchTTLMinutes:  15,
		SearchTTLMinutes: 5,
	}
}

func cacheDir() string {
	home, _ := os.UserHomeDir()
	if home == "" {
		home = "."
	}
	return filepath.Join(home, ".cache", "cachestorage")
}

// Load reads a .env file from the working directory when present, then
// overlays environment variables on Default.
func Load() (Config, error) {
	if _, err := os.Stat(".env"); err == nil {
		if err := godotenv.Load(".env"); err != nil {
			return Config{}, fmt.Errorf("load .env: %w", err)
		}
	}
	cfg := Default()
	env, err := FromEnv()
	if err != nil {
		return Config{}, err
	}
	cfg.Merge(&env)
	return cfg, cfg.Validate()
}

// FromEnv returns only the values set in the environment.
func FromEnv() (Config, error) {
	cfg := Config{
		SocketPath:    os.Getenv(EnvSocket),
		DBPath:        os.Getenv(EnvDB),
		Bucket:        os.Getenv(EnvBucket),
		RedisAddr:     os.Getenv(EnvRedisAddr),
		RedisPassword: os.Getenv(EnvRedisPassword),
		RedisPrefix:   os.Getenv(EnvRedisPrefix),
	}
	var err error
	if cfg.RedisDB, err = intEnv(EnvRedisDB); err != nil {
		return Config{}, err
	}
	if cfg.FetchTTLMinutes, err = intEnv(EnvFetchTTL); err != nil {
		return Config{}, err
	}
	if cfg.SearchTTLMinutes, err = intEnv(EnvSearchTTL); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func intEnv(name string) (int, error) {
	v := os.Getenv(name)
	if v == "" {
		return 0, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("%w: %s=%q: %v", ErrInvalid, name, v, err)
	}
	return n, nil
}

// Merge applies non-zero values from source into c.
func (c *Config) Merge(source *Config) {
	if source.SocketPath != "" {
		c.SocketPath = source.SocketPath
	}
	if source.DBPath != "" {
		c.DBPath = source.DBPath
	}
	if source.Bucket != "" {
		c.Bucket = source.Bucket
	}
	if source.RedisAddr != "" {
		c.RedisAddr = source.RedisAddr
	}
	if source.RedisPassword != "" {
		c.RedisPassword = source.RedisPassword
	}
	if source.RedisDB != 0 {
		c.RedisDB = source.RedisDB
	}
	if source.RedisPrefix != "" {
		c.RedisPrefix = source.RedisPrefix
	}
	if source.FetchTTLMinutes != 0 {
		c.FetchTTLMinutes = source.FetchTTLMinutes
	}
	if source.SearchTTLMinutes != 0 {
		c.SearchTTLMinutes = source.SearchTTLMinutes
	}
}

// Validate reports settings that cannot work.
func (c *Config) Validate() error {
	if c.SocketPath == "" {
		return fmt.Errorf("%w: socket path is empty", ErrInvalid)
	}
	if c.RedisAddr == "" && c.DBPath == "" {
		return fmt.Errorf("%w: neither a database path nor a redis address is set", ErrInvalid)
	}
	if c.FetchTTLMinutes < 0 || c.SearchTTLMinutes < 0 {
		return fmt.Errorf("%w: ttl must not be negative", ErrInvalid)
	}
	return nil
}

// FetchTTL is how long fetched pages stay cached.
func (c *Config) FetchTTL() time.Duration {
	return time.Duration(c.FetchTTLMinutes) * time.Minute
}

// SearchTTL is how long search results stay cached.
func (c *Config) SearchTTL() time.Duration {
	return time.Duration(c.SearchTTLMinutes) * time.Minute
}
