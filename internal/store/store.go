// Package store is the framework's persistence layer: a pgxpool-backed
// connection pool, the bootstrap schema (schema.go), the migration runner
// (migrations.go), cross-process locking (lock.go), and the read/write
// query surface (query.go) that the root package re-exports.
package store

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/acuminous/rdf/internal/config"
)

// Store owns the connection pool and the migrations directory used to
// bring the schema up to date.
type Store struct {
	pool       *pgxpool.Pool
	migrations string
}

// Open establishes the connection pool. It does not run migrations or the
// bootstrap schema — callers call Migrate for that (rdf.Init does both),
// mirroring the teacher's separate Open/Initialize steps.
func Open(ctx context.Context, cfg *config.Config) (*Store, error) {
	poolCfg, err := pgxpool.ParseConfig(cfg.Database.DSN())
	if err != nil {
		return nil, fmt.Errorf("parse pool config: %w", err)
	}
	if cfg.Database.PoolMax > 0 {
		poolCfg.MaxConns = cfg.Database.PoolMax
	}

	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, fmt.Errorf("connect: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping: %w", err)
	}

	return &Store{pool: pool, migrations: cfg.Migrations}, nil
}

// Close releases the connection pool. Safe to call on a nil Store.
func (s *Store) Close() {
	if s == nil || s.pool == nil {
		return
	}
	s.pool.Close()
}

// Pool exposes the underlying pgxpool.Pool for packages (dispatch) that
// need direct query access beyond the Store's own surface.
func (s *Store) Pool() *pgxpool.Pool {
	return s.pool
}
