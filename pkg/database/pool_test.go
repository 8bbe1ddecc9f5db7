package database

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRetryBackoff_ExponentialWithJitter(t *testing.T) {
	for attempt := 0; attempt < 3; attempt++ {
		base := defaultRetryBaseWait << attempt
		minExpected := time.Duration(float64(base) * (1 - retryJitterFraction))
		maxExpected := time.Duration(float64(base) * (1 + retryJitterFraction))

		for i := 0; i < 20; i++ {
			d := retryBackoff(attempt)
			assert.GreaterOrEqual(t, d, minExpected)
			assert.LessOrEqual(t, d, maxExpected)
		}
	}
}

func TestIsConnectionError(t *testing.T) {
	assert.False(t, isConnectionError(nil))
	assert.True(t, isConnectionError(errors.New("dial tcp 127.0.0.1:5432: connect: connection refused")))
	assert.True(t, isConnectionError(errors.New("read: connection reset by peer")))
	assert.True(t, isConnectionError(errors.New("unexpected EOF")))
	assert.False(t, isConnectionError(errors.New(`syntax error at or near "TABLEE"`)))
	assert.False(t, isConnectionError(errors.New("duplicate key value violates unique constraint")))
}

func TestWithStartupRetry_NonRetryableStopsImmediately(t *testing.T) {
	calls := 0
	sqlErr := errors.New("syntax error")
	err := withStartupRetry(context.Background(), "op", nil, isConnectionError, func() error {
		calls++
		return sqlErr
	})

	assert.Same(t, sqlErr, err)
	assert.Equal(t, 1, calls)
}

func TestWithStartupRetry_SucceedsFirstTry(t *testing.T) {
	calls := 0
	err := withStartupRetry(context.Background(), "op", nil, always, func() error {
		calls++
		return nil
	})

	require.NoError(t, err)
	assert.Equal(t, 1, calls)
}

func TestWithStartupRetry_ContextCancelledDuringBackoff(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	calls := 0
	err := withStartupRetry(ctx, "redis ping", quietLogger(), always, func() error {
		calls++
		cancel()
		return errors.New("dial tcp: connection refused")
	})

	require.Error(t, err)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Contains(t, err.Error(), "redis ping")
	assert.Equal(t, 1, calls)
}

func TestPostgresConfig_DSN(t *testing.T) {
	cfg := PostgresConfig{
		Host: "db", Port: 5432, User: "cart", Password: "secret", DBName: "rocketshoes", SSLMode: "disable",
	}
	assert.Equal(t, "postgres://cart:secret@db:5432/rocketshoes?sslmode=disable", cfg.DSN())

	cfg.URL = "postgres://other@host/db"
	assert.Equal(t, "postgres://other@host/db", cfg.DSN())
}

func TestNewPostgresPool_InvalidDSN(t *testing.T) {
	_, err := NewPostgresPool(context.Background(), &PostgresConfig{URL: "::not a dsn::"}, nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "parse postgres config")
}
