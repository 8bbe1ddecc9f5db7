package config

import (
	"fmt"
	"net/url"
	"time"

	"github.com/utafrali/rocketshoes/pkg/database"
	"github.com/utafrali/rocketshoes/pkg/httpclient"
	"github.com/utafrali/rocketshoes/pkg/kafka"
	"github.com/utafrali/rocketshoes/pkg/tracing"
	pkgconfig "github.com/utafrali/rocketshoes/pkg/config"
)

// Storage drivers accepted by STORAGE_DRIVER.
const (
	DriverMemory   = "memory"
	DriverRedis    = "redis"
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
)

// ServiceName identifies this service in logs, metrics and traces.
const ServiceName = "rocketshoes-cart"

// Config holds all configuration for the cart service.
type Config struct {
	Environment string `env:"ENVIRONMENT" envDefault:"development"`
	LogLevel    string `env:"LOG_LEVEL" envDefault:"info"`
	Version     string `env:"SERVICE_VERSION" envDefault:"dev"`

	// HTTP server
	HTTPPort            int `env:"CART_HTTP_PORT" envDefault:"8003"`
	RequestTimeoutSecs  int `env:"HTTP_REQUEST_TIMEOUT_SECONDS" envDefault:"30"`
	ShutdownTimeoutSecs int `env:"SHUTDOWN_TIMEOUT_SECONDS" envDefault:"15"`

	// Storage
	StorageDriver string `env:"STORAGE_DRIVER" envDefault:"memory"`

	// Redis
	RedisAddr string `env:"REDIS_ADDR" envDefault:"localhost:6379"`
	RedisPass string `env:"REDIS_PASSWORD" envDefault:""`
	RedisDB   int    `env:"REDIS_DB" envDefault:"0"`

	// Cart TTL in hours for the redis driver (0 keeps carts forever)
	CartTTL int `env:"CART_TTL_HOURS" envDefault:"168"`

	// SQLite
	SQLitePath string `env:"SQLITE_PATH" envDefault:"data/rocketshoes.db"`

	// PostgreSQL
	PostgresURL  string `env:"POSTGRES_URL" envDefault:""`
	PostgresHost string `env:"POSTGRES_HOST" envDefault:"localhost"`
	PostgresPort int    `env:"POSTGRES_PORT" envDefault:"5432"`
	PostgresUser string `env:"POSTGRES_USER" envDefault:"rocketshoes"`
	PostgresPass string `env:"POSTGRES_PASSWORD" envDefault:"rocketshoes_secret"`
	PostgresDB   string `env:"CART_DB_NAME" envDefault:"cart_db"`
	PostgresSSL  string `env:"POSTGRES_SSL_MODE" envDefault:"disable"`

	// Database pool
	DBMaxConns            int32 `env:"DB_MAX_CONNS" envDefault:"10"`
	DBMinConns            int32 `env:"DB_MIN_CONNS" envDefault:"1"`
	DBMaxConnLifetimeMins int   `env:"DB_MAX_CONN_LIFETIME_MINUTES" envDefault:"60"`
	DBMaxConnIdleTimeMins int   `env:"DB_MAX_CONN_IDLE_TIME_MINUTES" envDefault:"30"`

	// Product catalog
	CatalogURL        string `env:"CATALOG_URL" envDefault:"http://localhost:3333"`
	CatalogTimeoutMs  int    `env:"CATALOG_TIMEOUT_MS" envDefault:"3000"`
	CatalogMaxRetries int    `env:"CATALOG_MAX_RETRIES" envDefault:"2"`

	// Circuit breaker settings for catalog calls
	CBMaxRequests  uint32  `env:"CB_MAX_REQUESTS" envDefault:"1"`
	CBInterval     int     `env:"CB_INTERVAL_SECONDS" envDefault:"60"`
	CBTimeout      int     `env:"CB_TIMEOUT_SECONDS" envDefault:"30"`
	CBFailureRatio float64 `env:"CB_FAILURE_RATIO" envDefault:"0.5"`
	CBMinRequests  uint32  `env:"CB_MIN_REQUESTS" envDefault:"5"`

	// Kafka; an empty broker list disables event publishing
	KafkaBrokers []string `env:"KAFKA_BROKERS" envDefault:"" envSeparator:","`

	// OpenTelemetry
	OTELEnabled    bool    `env:"OTEL_ENABLED" envDefault:"false"`
	OTELEndpoint   string  `env:"OTEL_EXPORTER_OTLP_ENDPOINT" envDefault:"localhost:4318"`
	OTELSampleRate float64 `env:"OTEL_SAMPLE_RATE" envDefault:"1.0"`

	// Per-session rate limit on the cart API (0 disables)
	RateLimitRPS   float64 `env:"RATE_LIMIT_RPS" envDefault:"20"`
	RateLimitBurst int     `env:"RATE_LIMIT_BURST" envDefault:"40"`

	// Cached cart sessions; idle ones are dropped and reloaded from storage
	SessionIdleTTLMins int `env:"SESSION_IDLE_TTL_MINUTES" envDefault:"30"`
	SessionMax         int `env:"SESSION_MAX" envDefault:"10000"`

	// CORS for the storefront
	CORSAllowedOrigins []string `env:"CORS_ALLOWED_ORIGINS" envDefault:"*" envSeparator:","`

	// Pprof debug endpoints (IP allowlist in CIDR notation)
	PprofAllowedCIDRs []string `env:"PPROF_ALLOWED_CIDRS" envDefault:"10.0.0.0/8,172.16.0.0/12,192.168.0.0/16,127.0.0.0/8,::1/128" envSeparator:","`

	// Slow query logging
	SlowQueryThresholdMs int `env:"LOG_SLOW_QUERY_MS" envDefault:"500"`
}

// Load reads configuration from environment variables.
func Load() (*Config, error) {
	cfg := &Config{}
	if err := pkgconfig.Load(cfg); err != nil {
		return nil, fmt.Errorf("load cart config: %w", err)
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// validate checks configuration invariants.
func (c *Config) validate() error {
	if c.HTTPPort < 1 || c.HTTPPort > 65535 {
		return fmt.Errorf("invalid HTTP port: %d", c.HTTPPort)
	}
	switch c.StorageDriver {
	case DriverMemory:
	case DriverRedis:
		if c.RedisAddr == "" {
			return fmt.Errorf("REDIS_ADDR is required for the redis driver")
		}
		if c.CartTTL < 0 {
			return fmt.Errorf("CART_TTL_HOURS must not be negative, got %d", c.CartTTL)
		}
	case DriverSQLite:
		if c.SQLitePath == "" {
			return fmt.Errorf("SQLITE_PATH is required for the sqlite driver")
		}
	case DriverPostgres:
		if c.PostgresURL == "" && (c.PostgresHost == "" || c.PostgresUser == "") {
			return fmt.Errorf("POSTGRES_URL or POSTGRES_HOST and POSTGRES_USER are required for the postgres driver")
		}
	default:
		return fmt.Errorf("unknown STORAGE_DRIVER %q", c.StorageDriver)
	}
	if c.CatalogURL == "" {
		return fmt.Errorf("CATALOG_URL is required")
	}
	if u, err := url.ParseRequestURI(c.CatalogURL); err != nil || u.Host == "" {
		return fmt.Errorf("invalid CATALOG_URL %q", c.CatalogURL)
	}
	if c.CatalogTimeoutMs <= 0 {
		return fmt.Errorf("CATALOG_TIMEOUT_MS must be positive, got %d", c.CatalogTimeoutMs)
	}
	if c.CBFailureRatio <= 0 || c.CBFailureRatio > 1.0 {
		return fmt.Errorf("CB_FAILURE_RATIO must be in (0.0, 1.0], got %f", c.CBFailureRatio)
	}
	if c.RateLimitRPS < 0 {
		return fmt.Errorf("RATE_LIMIT_RPS must not be negative, got %f", c.RateLimitRPS)
	}
	if c.SessionMax <= 0 {
		return fmt.Errorf("SESSION_MAX must be positive, got %d", c.SessionMax)
	}
	if c.SessionIdleTTL() <= c.RequestTimeout() {
		return fmt.Errorf("SESSION_IDLE_TTL_MINUTES must exceed the request timeout, got %d", c.SessionIdleTTLMins)
	}
	if c.OTELSampleRate < 0 || c.OTELSampleRate > 1.0 {
		return fmt.Errorf("OTEL_SAMPLE_RATE must be between 0.0 and 1.0, got %f", c.OTELSampleRate)
	}
	return nil
}

// RequestTimeout is the per-request deadline of the HTTP server.
func (c *Config) RequestTimeout() time.Duration {
	return time.Duration(c.RequestTimeoutSecs) * time.Second
}

// SessionIdleTTL is how long an unused cart session stays cached.
func (c *Config) SessionIdleTTL() time.Duration {
	return time.Duration(c.SessionIdleTTLMins) * time.Minute
}

// ShutdownTimeout bounds graceful shutdown.
func (c *Config) ShutdownTimeout() time.Duration {
	return time.Duration(c.ShutdownTimeoutSecs) * time.Second
}

// Redis returns the redis driver connection settings.
func (c *Config) Redis() database.RedisConfig {
	return database.RedisConfig{
		Addr:         c.RedisAddr,
		Password:     c.RedisPass,
		DB:           c.RedisDB,
		PoolSize:     20,
		DialTimeout:  5 * time.Second,
		ReadTimeout:  3 * time.Second,
		WriteTimeout: 3 * time.Second,
	}
}

// Postgres returns the postgres driver connection settings.
func (c *Config) Postgres() *database.PostgresConfig {
	return &database.PostgresConfig{
		URL:             c.PostgresURL,
		Host:            c.PostgresHost,
		Port:            c.PostgresPort,
		User:            c.PostgresUser,
		Password:        c.PostgresPass,
		DBName:          c.PostgresDB,
		SSLMode:         c.PostgresSSL,
		MaxConns:        c.DBMaxConns,
		MinConns:        c.DBMinConns,
		MaxConnLifetime: time.Duration(c.DBMaxConnLifetimeMins) * time.Minute,
		MaxConnIdleTime: time.Duration(c.DBMaxConnIdleTimeMins) * time.Minute,
	}
}

// HTTPClient returns the retry settings for catalog calls.
func (c *Config) HTTPClient() httpclient.Config {
	hc := httpclient.DefaultConfig()
	hc.Timeout = time.Duration(c.CatalogTimeoutMs) * time.Millisecond
	hc.MaxRetries = c.CatalogMaxRetries
	return hc
}

// CircuitBreaker returns the catalog circuit breaker settings. Zero values
// keep the package defaults.
func (c *Config) CircuitBreaker() httpclient.CircuitBreakerConfig {
	cb := httpclient.DefaultCircuitBreakerConfig("catalog")
	if c.CBMaxRequests > 0 {
		cb.MaxRequests = c.CBMaxRequests
	}
	if c.CBInterval > 0 {
		cb.Interval = time.Duration(c.CBInterval) * time.Second
	}
	if c.CBTimeout > 0 {
		cb.Timeout = time.Duration(c.CBTimeout) * time.Second
	}
	cb.FailureRatio = c.CBFailureRatio
	if c.CBMinRequests > 0 {
		cb.MinRequests = c.CBMinRequests
	}
	return cb
}

// Kafka returns the producer settings, or false when publishing is disabled.
func (c *Config) Kafka() (kafka.ProducerConfig, bool) {
	if len(c.KafkaBrokers) == 0 {
		return kafka.ProducerConfig{}, false
	}
	return kafka.DefaultProducerConfig(c.KafkaBrokers), true
}

// Tracing returns the OpenTelemetry settings.
func (c *Config) Tracing() tracing.Config {
	return tracing.Config{
		ServiceName:    ServiceName,
		ServiceVersion: c.Version,
		Environment:    c.Environment,
		OTLPEndpoint:   c.OTELEndpoint,
		SampleRate:     c.OTELSampleRate,
		Enabled:        c.OTELEnabled,
	}
}

// SlowQueryThreshold is the duration above which queries are logged.
func (c *Config) SlowQueryThreshold() time.Duration {
	return time.Duration(c.SlowQueryThresholdMs) * time.Millisecond
}
