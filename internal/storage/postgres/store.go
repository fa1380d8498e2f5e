// Package postgres provides the shared connection pool the forecast
// service's job, dataset and scenario repositories run their own SQL
// against directly (none of them share a common ORM layer).
package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
)

// Store wraps a pgx connection pool and its lifecycle.
type Store struct {
	pool *pgxpool.Pool
}

// NewStore creates a store using the provided connection string.
func NewStore(ctx context.Context, connString string) (*Store, error) {
	pool, err := pgxpool.New(ctx, connString)
	if err != nil {
		return nil, fmt.Errorf("create pgx pool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}
	return &Store{pool: pool}, nil
}

// Close closes the underlying pool.
func (s *Store) Close() {
	if s.pool != nil {
		s.pool.Close()
	}
}

// Pool exposes the underlying pgx pool for the jobs/datasets/scenarios
// repositories to build their own queries against.
func (s *Store) Pool() *pgxpool.Pool {
	return s.pool
}
