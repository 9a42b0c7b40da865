// Package pgstore is the PostgreSQL registry backend, for deployments where
// several operators share one registry.
package pgstore

import (
	"context"
	_ "embed"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"permanentes/internal/registry"
)

//go:embed schema.sql
var schemaSQL string

const (
	defaultMaxConns        = 16
	defaultMaxConnIdleTime = 30 * time.Second
	defaultMaxConnLifetime = 30 * time.Minute
	defaultPingTimeout     = 5 * time.Second

	uniqueViolation = "23505"
)

// Store implements registry.Backend on a pgx pool.
type Store struct {
	pool *pgxpool.Pool
}

var _ registry.Backend = (*Store)(nil)

// Open connects to dsn, verifies the connection, and creates missing tables.
func Open(ctx context.Context, dsn string) (*Store, error) {
	if strings.TrimSpace(dsn) == "" {
		return nil, errors.New("pgstore: dsn is required")
	}
	cfg, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("pgstore: parse dsn: %w", err)
	}
	cfg.MaxConns = defaultMaxConns
	cfg.MaxConnIdleTime = defaultMaxConnIdleTime
	cfg.MaxConnLifetime = defaultMaxConnLifetime

	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("pgstore: new pool: %w", err)
	}
	store := &Store{pool: pool}
	if err := store.Ping(ctx); err != nil {
		pool.Close()
		return nil, err
	}
	if err := store.migrate(ctx); err != nil {
		pool.Close()
		return nil, err
	}
	return store, nil
}

// NewFromPool wraps an existing pool without running migrations.
func NewFromPool(pool *pgxpool.Pool) *Store {
	return &Store{pool: pool}
}

func (s *Store) migrate(ctx context.Context) error {
	conn, err := s.pool.Acquire(ctx)
	if err != nil {
		return fmt.Errorf("pgstore: acquire conn: %w", err)
	}
	defer conn.Release()

	res := conn.Conn().PgConn().Exec(ctx, schemaSQL)
	if _, err := res.ReadAll(); err != nil {
		return fmt.Errorf("pgstore: apply schema: %w", err)
	}
	return nil
}

// Ping verifies the pool can reach the server.
func (s *Store) Ping(ctx context.Context) error {
	pingCtx, cancel := context.WithTimeout(ctx, defaultPingTimeout)
	defer cancel()
	if err := s.pool.Ping(pingCtx); err != nil {
		return fmt.Errorf("pgstore: ping: %w", err)
	}
	return nil
}

// Close shuts down the connection pool.
func (s *Store) Close() error {
	if s == nil || s.pool == nil {
		return nil
	}
	s.pool.Close()
	return nil
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == uniqueViolation
}

// likePrefix escapes LIKE metacharacters and appends the trailing wildcard.
func likePrefix(prefix string) string {
	replacer := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)
	return replacer.Replace(prefix) + "%"
}

func nullable(value string) *string {
	if value == "" {
		return nil
	}
	return &value
}
