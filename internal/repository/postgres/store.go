package postgres

import (
	"context"
	"embed"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"

	"github.com/jackc/pgx/v5"

	"github.com/utafrali/rocketshoes/pkg/database"
)

//go:embed migrations/*.sql
var migrationFiles embed.FS

const (
	getSQL    = "SELECT value FROM kv_entries WHERE key = $1"
	setSQL    = "INSERT INTO kv_entries (key, value, updated_at) VALUES ($1, $2, NOW()) ON CONFLICT (key) DO UPDATE SET value = EXCLUDED.value, updated_at = EXCLUDED.updated_at"
	deleteSQL = "DELETE FROM kv_entries WHERE key = $1"
	pingSQL   = "SELECT 1"
)

// Store implements repository.KV on the kv_entries table.
type Store struct {
	db database.DBTX
}

// New wraps db. Call Migrate before first use against a fresh database.
func New(db database.DBTX) *Store {
	return &Store{db: db}
}

// Migrate applies the embedded schema migrations.
func (s *Store) Migrate(ctx context.Context, logger *slog.Logger) error {
	migrations, err := fs.Sub(migrationFiles, "migrations")
	if err != nil {
		return fmt.Errorf("load postgres migrations: %w", err)
	}
	return database.RunMigrations(ctx, s.db, migrations, logger)
}

// Get returns the value stored under key.
func (s *Store) Get(ctx context.Context, key string) (value string, found bool, err error) {
	ctx, end := database.TraceQuery(ctx, "postgresql", "kv.get", getSQL)
	defer func() { end(err) }()

	err = s.db.QueryRow(ctx, getSQL, key).Scan(&value)
	if errors.Is(err, pgx.ErrNoRows) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("get kv entry %s: %w", key, err)
	}
	return value, true, nil
}

// Set upserts value under key.
func (s *Store) Set(ctx context.Context, key, value string) (err error) {
	ctx, end := database.TraceQuery(ctx, "postgresql", "kv.set", setSQL)
	defer func() { end(err) }()

	if _, err = s.db.Exec(ctx, setSQL, key, value); err != nil {
		return fmt.Errorf("set kv entry %s: %w", key, err)
	}
	return nil
}

// Delete removes key.
func (s *Store) Delete(ctx context.Context, key string) (err error) {
	ctx, end := database.TraceQuery(ctx, "postgresql", "kv.delete", deleteSQL)
	defer func() { end(err) }()

	if _, err = s.db.Exec(ctx, deleteSQL, key); err != nil {
		return fmt.Errorf("delete kv entry %s: %w", key, err)
	}
	return nil
}

// Ping runs a trivial query.
func (s *Store) Ping(ctx context.Context) error {
	_, err := s.db.Exec(ctx, pingSQL)
	return err
}
