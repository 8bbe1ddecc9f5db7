package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load()

	require.NoError(t, err)
	assert.Equal(t, 8003, cfg.HTTPPort)
	assert.Equal(t, DriverMemory, cfg.StorageDriver)
	assert.Equal(t, "http://localhost:3333", cfg.CatalogURL)
	assert.Equal(t, 168, cfg.CartTTL)
	assert.Equal(t, []string{"*"}, cfg.CORSAllowedOrigins)
	assert.Equal(t, 20.0, cfg.RateLimitRPS)

	_, enabled := cfg.Kafka()
	assert.False(t, enabled, "kafka is off without brokers")
}

func TestLoad_InvalidHTTPPort(t *testing.T) {
	t.Setenv("CART_HTTP_PORT", "0")

	cfg, err := Load()

	assert.Nil(t, cfg)
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "invalid HTTP port")
}

func TestLoad_InvalidOTELSampleRate(t *testing.T) {
	t.Setenv("OTEL_SAMPLE_RATE", "2.0")

	cfg, err := Load()

	assert.Nil(t, cfg)
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "OTEL_SAMPLE_RATE must be between 0.0 and 1.0")
}

func TestLoad_UnknownStorageDriver(t *testing.T) {
	t.Setenv("STORAGE_DRIVER", "mongo")

	_, err := Load()

	require.Error(t, err)
	assert.Contains(t, err.Error(), `unknown STORAGE_DRIVER "mongo"`)
}

func TestLoad_StorageDrivers(t *testing.T) {
	for _, driver := range []string{DriverMemory, DriverRedis, DriverSQLite, DriverPostgres} {
		t.Run(driver, func(t *testing.T) {
			t.Setenv("STORAGE_DRIVER", driver)
			cfg, err := Load()
			require.NoError(t, err)
			assert.Equal(t, driver, cfg.StorageDriver)
		})
	}
}

func TestLoad_NegativeCartTTL(t *testing.T) {
	t.Setenv("STORAGE_DRIVER", DriverRedis)
	t.Setenv("CART_TTL_HOURS", "-1")

	_, err := Load()

	require.Error(t, err)
	assert.Contains(t, err.Error(), "CART_TTL_HOURS")
}

func TestLoad_InvalidCatalogURL(t *testing.T) {
	t.Setenv("CATALOG_URL", "localhost-no-scheme")

	_, err := Load()

	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid CATALOG_URL")
}

func TestLoad_CustomValues(t *testing.T) {
	t.Setenv("KAFKA_BROKERS", "kafka-1:9092,kafka-2:9092")
	t.Setenv("CATALOG_TIMEOUT_MS", "1500")
	t.Setenv("CB_MIN_REQUESTS", "3")
	t.Setenv("POSTGRES_URL", "postgres://cart@db/cart")

	cfg, err := Load()
	require.NoError(t, err)

	kc, enabled := cfg.Kafka()
	assert.True(t, enabled)
	assert.Equal(t, []string{"kafka-1:9092", "kafka-2:9092"}, kc.Brokers)

	assert.Equal(t, 1500*time.Millisecond, cfg.HTTPClient().Timeout)
	assert.Equal(t, uint32(3), cfg.CircuitBreaker().MinRequests)
	assert.Equal(t, "catalog", cfg.CircuitBreaker().Name)
	assert.Equal(t, "postgres://cart@db/cart", cfg.Postgres().DSN())
}

func TestConfig_Durations(t *testing.T) {
	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 30*time.Second, cfg.RequestTimeout())
	assert.Equal(t, 15*time.Second, cfg.ShutdownTimeout())
	assert.Equal(t, 500*time.Millisecond, cfg.SlowQueryThreshold())
	assert.Equal(t, ServiceName, cfg.Tracing().ServiceName)
	assert.Equal(t, 30*time.Minute, cfg.SessionIdleTTL())
	assert.Equal(t, 10000, cfg.SessionMax)
}

func TestLoad_SessionLimits(t *testing.T) {
	tests := []struct {
		name string
		env  map[string]string
	}{
		{name: "zero max", env: map[string]string{"SESSION_MAX": "0"}},
		{name: "zero idle ttl", env: map[string]string{"SESSION_IDLE_TTL_MINUTES": "0"}},
		{name: "idle ttl within request timeout", env: map[string]string{
			"SESSION_IDLE_TTL_MINUTES":     "1",
			"HTTP_REQUEST_TIMEOUT_SECONDS": "90",
		}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			for k, v := range tt.env {
				t.Setenv(k, v)
			}
			cfg, err := Load()
			assert.Error(t, err)
			assert.Nil(t, cfg)
		})
	}
}

func TestCircuitBreaker_ZeroKeepsDefaults(t *testing.T) {
	t.Setenv("CB_INTERVAL_SECONDS", "0")
	t.Setenv("CB_TIMEOUT_SECONDS", "0")

	cfg, err := Load()
	require.NoError(t, err)

	cb := cfg.CircuitBreaker()
	assert.Equal(t, 60*time.Second, cb.Interval)
	assert.Equal(t, 30*time.Second, cb.Timeout)
}
