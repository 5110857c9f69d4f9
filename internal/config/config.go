package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds all configuration for the affiliate engine.
type Config struct {
	Server     ServerConfig
	Database   DatabaseConfig
	Redis      RedisConfig
	ClickHouse ClickHouseConfig
	Auth       AuthConfig
	RateLimit  RateLimitConfig
	Log        LogConfig
	Metrics    MetricsConfig
	Geo        GeoConfig
	Affiliate  AffiliateConfig
}

type ServerConfig struct {
	Addr            string
	Env             string
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	IdleTimeout     time.Duration
	ShutdownTimeout time.Duration
}

type DatabaseConfig struct {
	// Enabled false runs the engine on in-memory storage, which is how
	// tests and local development exercise it.
	Enabled  bool
	Host     string
	Port     int
	User     string
	Password string
	DBName   string
	SSLMode  string
	MaxConns int
	MinConns int
}

// DSN returns the PostgreSQL connection string.
func (d DatabaseConfig) DSN() string {
	return fmt.Sprintf(
		"postgres://%s:%s@%s:%d/%s?sslmode=%s",
		d.User, d.Password, d.Host, d.Port, d.DBName, d.SSLMode,
	)
}

type RedisConfig struct {
	Enabled  bool
	Addr     string
	Password string
	DB       int
	// CacheTTL bounds how long status and rollup responses are served
	// from cache.
	CacheTTL time.Duration
}

// ClickHouseConfig configures the append-only click event log. The
// log is optional; when disabled clicks are still counted in Postgres.
type ClickHouseConfig struct {
	Enabled  bool
	Addr     string
	Database string
	User     string
	Password string
}

type AuthConfig struct {
	Enabled   bool
	MasterKey string
	SkipPaths []string
}

type RateLimitConfig struct {
	Enabled bool
	RPS     float64
	Burst   int
}

type LogConfig struct {
	Level  string
	Format string
}

// MetricsConfig configures Prometheus metrics.
type MetricsConfig struct {
	Enabled bool
	Path    string
}

// GeoConfig configures GeoIP enrichment of click events.
type GeoConfig struct {
	Enabled      bool
	DatabasePath string
}

// AffiliateConfig holds engine-level settings for the tagging core.
type AffiliateConfig struct {
	// ProductTables is the allow-list of product-bearing tables the
	// bulk processor and products endpoint may touch.
	ProductTables []string
	// DefaultBulkLimit caps one bulk invocation when the caller does
	// not supply a limit.
	DefaultBulkLimit int
}

// Load reads configuration from environment variables with sensible defaults.
func Load() (*Config, error) {
	cfg := &Config{
		Server: ServerConfig{
			Addr:            getEnv("AFF_ENGINE_HTTP_ADDR", ":8080"),
			Env:             getEnv("AFF_ENGINE_ENV", "development"),
			ReadTimeout:     getDurationEnv("AFF_ENGINE_READ_TIMEOUT", 15*time.Second),
			WriteTimeout:    getDurationEnv("AFF_ENGINE_WRITE_TIMEOUT", 15*time.Second),
			IdleTimeout:     getDurationEnv("AFF_ENGINE_IDLE_TIMEOUT", 60*time.Second),
			ShutdownTimeout: getDurationEnv("AFF_ENGINE_SHUTDOWN_TIMEOUT", 30*time.Second),
		},
		Database: DatabaseConfig{
			Enabled:  getBoolEnv("AFF_ENGINE_DB_ENABLED", true),
			Host:     getEnv("AFF_ENGINE_DB_HOST", "localhost"),
			Port:     getIntEnv("AFF_ENGINE_DB_PORT", 5432),
			User:     getEnv("AFF_ENGINE_DB_USER", "affengine"),
			Password: getEnv("AFF_ENGINE_DB_PASSWORD", "affengine_secret"),
			DBName:   getEnv("AFF_ENGINE_DB_NAME", "affengine"),
			SSLMode:  getEnv("AFF_ENGINE_DB_SSLMODE", "disable"),
			MaxConns: getIntEnv("AFF_ENGINE_DB_MAX_CONNS", 25),
			MinConns: getIntEnv("AFF_ENGINE_DB_MIN_CONNS", 5),
		},
		Redis: RedisConfig{
			Enabled:  getBoolEnv("AFF_ENGINE_REDIS_ENABLED", true),
			Addr:     getEnv("AFF_ENGINE_REDIS_ADDR", "localhost:6379"),
			Password: getEnv("AFF_ENGINE_REDIS_PASSWORD", ""),
			DB:       getIntEnv("AFF_ENGINE_REDIS_DB", 0),
			CacheTTL: getDurationEnv("AFF_ENGINE_REDIS_CACHE_TTL", 60*time.Second),
		},
		ClickHouse: ClickHouseConfig{
			Enabled:  getBoolEnv("AFF_ENGINE_CLICKHOUSE_ENABLED", false),
			Addr:     getEnv("AFF_ENGINE_CLICKHOUSE_ADDR", "localhost:9000"),
			Database: getEnv("AFF_ENGINE_CLICKHOUSE_DB", "affengine"),
			User:     getEnv("AFF_ENGINE_CLICKHOUSE_USER", "default"),
			Password: getEnv("AFF_ENGINE_CLICKHOUSE_PASSWORD", ""),
		},
		Auth: AuthConfig{
			Enabled:   getBoolEnv("AFF_ENGINE_AUTH_ENABLED", true),
			MasterKey: getEnv("AFF_ENGINE_API_KEY_MASTER", ""),
			SkipPaths: getSliceEnv("AFF_ENGINE_AUTH_SKIP_PATHS", []string{"/health", "/metrics", "/affiliate/track-click", "/affiliate/track-conversion"}),
		},
		RateLimit: RateLimitConfig{
			Enabled: getBoolEnv("AFF_ENGINE_RATE_LIMIT_ENABLED", true),
			RPS:     getFloatEnv("AFF_ENGINE_RATE_LIMIT_RPS", 200),
			Burst:   getIntEnv("AFF_ENGINE_RATE_LIMIT_BURST", 50),
		},
		Log: LogConfig{
			Level:  getEnv("AFF_ENGINE_LOG_LEVEL", "info"),
			Format: getEnv("AFF_ENGINE_LOG_FORMAT", "json"),
		},
		Metrics: MetricsConfig{
			Enabled: getBoolEnv("AFF_ENGINE_METRICS_ENABLED", true),
			Path:    getEnv("AFF_ENGINE_METRICS_PATH", "/metrics"),
		},
		Geo: GeoConfig{
			Enabled:      getBoolEnv("AFF_ENGINE_GEO_ENABLED", false),
			DatabasePath: getEnv("AFF_ENGINE_GEO_DB_PATH", "/app/data/GeoLite2-City.mmdb"),
		},
		Affiliate: AffiliateConfig{
			ProductTables: getSliceEnv("AFF_ENGINE_PRODUCT_TABLES", []string{
				"amazon_products", "cuelinks_products", "value_picks_products", "click_picks_products",
			}),
			DefaultBulkLimit: getIntEnv("AFF_ENGINE_BULK_LIMIT", 100),
		},
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Validate checks that required configuration is present.
func (c *Config) Validate() error {
	if c.Auth.Enabled && c.Auth.MasterKey == "" {
		return fmt.Errorf("AFF_ENGINE_API_KEY_MASTER is required when auth is enabled")
	}
	if len(c.Affiliate.ProductTables) == 0 {
		return fmt.Errorf("AFF_ENGINE_PRODUCT_TABLES must name at least one table")
	}
	return nil
}

// IsDevelopment returns true if running in development mode.
func (c *Config) IsDevelopment() bool {
	return c.Server.Env == "development"
}

// IsProduction returns true if running in production mode.
func (c *Config) IsProduction() bool {
	return c.Server.Env == "production"
}

// Helper functions for reading environment variables

func getEnv(key, def string) string {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		return v
	}
	return def
}

func getIntEnv(key string, def int) int {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
	}
	return def
}

func getFloatEnv(key string, def float64) float64 {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
	}
	return def
}

func getBoolEnv(key string, def bool) bool {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			return b
		}
	}
	return def
}

func getDurationEnv(key string, def time.Duration) time.Duration {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return def
}

func getSliceEnv(key string, def []string) []string {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		parts := strings.Split(v, ",")
		result := make([]string, 0, len(parts))
		for _, p := range parts {
			p = strings.TrimSpace(p)
			if p != "" {
				result = append(result, p)
			}
		}
		return result
	}
	return def
}
