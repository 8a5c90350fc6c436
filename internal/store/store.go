// Package store implements the relational-store collaborator (spec
// §4.10/§6.8): meetings, screen states, episodes, text snapshots and
// patches, timeline events, transcripts, and entities, all against
// PostgreSQL via pgx/v5, with full-text search over transcript and
// snapshot text through Postgres tsvector columns.
package store

import (
	"context"
	"embed"
	"fmt"
	"net/url"
	"time"

	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/postgres"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"
)

//go:embed migrations/*.sql
var migrationFiles embed.FS

// maxConns bounds the pool at spec §5's "single connection pool
// (max 5)" — this process owns one active meeting at a time, so a
// larger pool buys nothing.
const maxConns = 5

// Store wraps a pgx connection pool and exposes the persistence
// operations pipeline.Engine needs.
type Store struct {
	pool   *pgxpool.Pool
	logger *zap.Logger
}

// Connect opens the pool, pings it, and returns the wrapped Store.
// Connect never changes the schema; callers run Migrate separately.
func Connect(ctx context.Context, databaseURL string, logger *zap.Logger) (*Store, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	cfg, err := pgxpool.ParseConfig(databaseURL)
	if err != nil {
		return nil, fmt.Errorf("store: parse database url: %w", err)
	}
	cfg.MaxConns = maxConns

	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("store: open pool: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("store: ping: %w", err)
	}

	logger.Info("database connected", zap.String("url", maskDSN(databaseURL)), zap.Int32("max_conns", cfg.MaxConns))
	return &Store{pool: pool, logger: logger}, nil
}

// Migrate applies any pending schema migrations embedded in this
// package. Safe to call on every process start; golang-migrate no-ops
// when the schema is already current.
func (s *Store) Migrate(databaseURL string) error {
	source, err := iofs.New(migrationFiles, "migrations")
	if err != nil {
		return fmt.Errorf("store: load migrations: %w", err)
	}

	m, err := migrate.NewWithSourceInstance("iofs", source, databaseURL)
	if err != nil {
		return fmt.Errorf("store: init migrator: %w", err)
	}

	if err := m.Up(); err != nil && err != migrate.ErrNoChange {
		return fmt.Errorf("store: apply migrations: %w", err)
	}

	s.logger.Info("schema migrations applied")
	return nil
}

// HealthCheck pings the pool with a short timeout, for readiness probes.
func (s *Store) HealthCheck(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()
	return s.pool.Ping(ctx)
}

// Close releases the pool.
func (s *Store) Close() {
	s.logger.Info("closing database pool")
	s.pool.Close()
}

func maskDSN(dsn string) string {
	u, err := url.Parse(dsn)
	if err != nil {
		return "***"
	}
	if u.User != nil {
		if _, hasPass := u.User.Password(); hasPass {
			u.User = url.UserPassword(u.User.Username(), "***")
		}
	}
	return u.String()
}
