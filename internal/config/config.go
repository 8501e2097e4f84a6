// Package config provides configuration management for the wallet wrapped service.
// It loads configuration from environment variables and .env files.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config holds all application configuration
type Config struct {
	Server    ServerConfig
	Database  DatabaseConfig
	RPC       RPCConfig
	Indexer   IndexerConfig
	Cache     CacheConfig
	Pricing   PricingConfig
	RateLimit RateLimitConfig
	Logging   LoggingConfig
}

// ServerConfig holds HTTP server configuration
type ServerConfig struct {
	Port string
	Host string
}

// DatabaseConfig holds database configuration
type DatabaseConfig struct {
	Postgres PostgresConfig
	Redis    RedisConfig
}

// PostgresConfig holds Postgres configuration
type PostgresConfig struct {
	Host           string
	Port           string
	Database       string
	User           string
	Password       string
	MaxConnections int
}

// RedisConfig holds Redis configuration
type RedisConfig struct {
	Host           string
	Port           string
	Password       string
	DB             int
	MaxConnections int
}

// RPCConfig holds RPC endpoint pool and retry configuration
type RPCConfig struct {
	// Endpoints is the ordered, deduplicated list of chain-read RPC URLs
	Endpoints []string
	// MaxConcurrent caps simultaneous in-flight requests across all callers
	MaxConcurrent int
	// BackoffInitial is the first wait after a full failed rotation pass
	BackoffInitial time.Duration
	// BackoffMax caps the exponentially growing wait
	BackoffMax time.Duration
	// BackoffRounds is the number of backoff retries before giving up
	BackoffRounds int
	// RequestTimeout bounds a single HTTP round trip
	RequestTimeout time.Duration
}

// IndexerConfig holds indexing pipeline configuration
type IndexerConfig struct {
	PageSize   int // transactions requested per history page
	MaxRecords int // safety cap on total indexed records per wallet
}

// CacheConfig holds snapshot cache configuration
type CacheConfig struct {
	SnapshotTTL time.Duration
}

// PricingConfig holds native-asset price feed configuration
type PricingConfig struct {
	APIKey   string
	CacheTTL time.Duration
}

// RateLimitConfig holds API rate limiting configuration
type RateLimitConfig struct {
	RequestsPerSecond int
	Burst             int
}

// LoggingConfig holds logging configuration
type LoggingConfig struct {
	Level  string
	Format string
}

// DefaultEndpoints is the mainnet endpoint list used when SUI_RPC_URLS is unset.
var DefaultEndpoints = []string{
	"https://fullnode.mainnet.sui.io:443",
	"https://mainnet.suiet.app",
	"https://rpc-mainnet.suiscan.xyz",
	"https://mainnet.sui.rpcpool.com",
	"https://sui-mainnet.nodeinfra.com",
	"https://mainnet-rpc.sui.chainbase.online",
	"https://sui-mainnet-ca-1.cosmostation.io",
	"https://sui-mainnet-ca-2.cosmostation.io",
	"https://sui-mainnet-us-1.cosmostation.io",
	"https://sui-mainnet-us-2.cosmostation.io",
}

// LoadConfig loads configuration from .env file and environment variables
func LoadConfig() (*Config, error) {
	// .env file is optional - environment variables can be set directly
	if err := godotenv.Load(); err != nil {
		if !os.IsNotExist(err) {
			return nil, fmt.Errorf("error loading .env file: %w", err)
		}
	}

	config := &Config{
		Server: ServerConfig{
			Port: getEnv("SERVER_PORT", "8080"),
			Host: getEnv("SERVER_HOST", "0.0.0.0"),
		},
		Database: DatabaseConfig{
			Postgres: PostgresConfig{
				Host:           getEnv("POSTGRES_HOST", "localhost"),
				Port:           getEnv("POSTGRES_PORT", "5432"),
				Database:       getEnv("POSTGRES_DB", "sui_wrapped"),
				User:           getEnv("POSTGRES_USER", "wrapped"),
				Password:       getEnv("POSTGRES_PASSWORD", ""),
				MaxConnections: getEnvAsInt("POSTGRES_MAX_CONNECTIONS", 50),
			},
			Redis: RedisConfig{
				Host:           getEnv("REDIS_HOST", "localhost"),
				Port:           getEnv("REDIS_PORT", "6379"),
				Password:       getEnv("REDIS_PASSWORD", ""),
				DB:             getEnvAsInt("REDIS_DB", 0),
				MaxConnections: getEnvAsInt("REDIS_MAX_CONNECTIONS", 50),
			},
		},
		RPC: RPCConfig{
			Endpoints:      parseEndpoints(getEnv("SUI_RPC_URLS", "")),
			MaxConcurrent:  getEnvAsInt("RPC_MAX_CONCURRENT", 15),
			BackoffInitial: getEnvAsDuration("RPC_BACKOFF_INITIAL", 2*time.Second),
			BackoffMax:     getEnvAsDuration("RPC_BACKOFF_MAX", 32*time.Second),
			BackoffRounds:  getEnvAsInt("RPC_BACKOFF_ROUNDS", 5),
			RequestTimeout: getEnvAsDuration("RPC_REQUEST_TIMEOUT", 30*time.Second),
		},
		Indexer: IndexerConfig{
			PageSize:   getEnvAsInt("INDEXER_PAGE_SIZE", 50),
			MaxRecords: getEnvAsInt("INDEXER_MAX_RECORDS", 200),
		},
		Cache: CacheConfig{
			SnapshotTTL: getEnvAsDuration("CACHE_SNAPSHOT_TTL", 60*time.Second),
		},
		Pricing: PricingConfig{
			APIKey:   getEnv("COIN_GECKO_API", ""),
			CacheTTL: getEnvAsDuration("PRICE_CACHE_TTL", 10*time.Minute),
		},
		RateLimit: RateLimitConfig{
			RequestsPerSecond: getEnvAsInt("RATE_LIMIT_RPS", 20),
			Burst:             getEnvAsInt("RATE_LIMIT_BURST", 10),
		},
		Logging: LoggingConfig{
			Level:  getEnv("LOG_LEVEL", "info"),
			Format: getEnv("LOG_FORMAT", "json"),
		},
	}

	if len(config.RPC.Endpoints) == 0 {
		config.RPC.Endpoints = append([]string{}, DefaultEndpoints...)
	}

	if err := config.Validate(); err != nil {
		return nil, err
	}

	return config, nil
}

// Validate checks configuration invariants that are fatal at startup
func (c *Config) Validate() error {
	if len(c.RPC.Endpoints) == 0 {
		return fmt.Errorf("at least one RPC endpoint is required")
	}
	if c.RPC.MaxConcurrent <= 0 {
		return fmt.Errorf("RPC_MAX_CONCURRENT must be positive, got %d", c.RPC.MaxConcurrent)
	}
	if c.Indexer.PageSize <= 0 {
		return fmt.Errorf("INDEXER_PAGE_SIZE must be positive, got %d", c.Indexer.PageSize)
	}
	if c.Indexer.MaxRecords <= 0 {
		return fmt.Errorf("INDEXER_MAX_RECORDS must be positive, got %d", c.Indexer.MaxRecords)
	}
	return nil
}

// parseEndpoints splits a comma-separated URL list, trimming whitespace,
// dropping blanks and removing duplicates while preserving order
func parseEndpoints(urls string) []string {
	if urls == "" {
		return nil
	}

	seen := make(map[string]bool)
	var endpoints []string
	for _, ep := range strings.Split(urls, ",") {
		ep = strings.TrimSpace(ep)
		if ep == "" || seen[ep] {
			continue
		}
		seen[ep] = true
		endpoints = append(endpoints, ep)
	}
	return endpoints
}

// getEnv gets an environment variable with a default value
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvAsInt gets an environment variable as an integer with a default value
func getEnvAsInt(key string, defaultValue int) int {
	valueStr := getEnv(key, "")
	if valueStr == "" {
		return defaultValue
	}

	value, err := strconv.Atoi(valueStr)
	if err != nil {
		return defaultValue
	}
	return value
}

// getEnvAsDuration gets an environment variable as a duration with a default value
func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	valueStr := getEnv(key, "")
	if valueStr == "" {
		return defaultValue
	}

	value, err := time.ParseDuration(valueStr)
	if err != nil {
		return defaultValue
	}
	return value
}
