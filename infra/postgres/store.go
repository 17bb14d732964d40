// Package postgres is the Postgres-backed implementation of the
// repository ports engine/run, engine/worker and engine/environment
// declare.
package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/nneven/runtrigger/pkg/config"
	"github.com/nneven/runtrigger/pkg/logger"
)

const (
	defaultMaxConns          = 10
	defaultHealthCheckPeriod = 30 * time.Second
	defaultConnectTimeout    = 5 * time.Second
)

// Store is the concrete PostgreSQL driver backed by pgxpool.Pool.
type Store struct {
	pool *pgxpool.Pool
}

// NewStore initializes the pgx pool from cfg and verifies connectivity.
func NewStore(ctx context.Context, cfg *config.DatabaseConfig) (*Store, error) {
	if cfg == nil {
		return nil, fmt.Errorf("postgres: database config is required")
	}
	poolCfg, err := pgxpool.ParseConfig(DSN(cfg))
	if err != nil {
		return nil, fmt.Errorf("postgres: parse config: %w", err)
	}
	if cfg.MaxOpenConns > 0 {
		poolCfg.MaxConns = int32(cfg.MaxOpenConns)
	} else {
		poolCfg.MaxConns = defaultMaxConns
	}
	if cfg.ConnMaxLifetime > 0 {
		poolCfg.MaxConnLifetime = cfg.ConnMaxLifetime
	}
	poolCfg.HealthCheckPeriod = defaultHealthCheckPeriod
	poolCfg.ConnConfig.ConnectTimeout = defaultConnectTimeout
	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, fmt.Errorf("postgres: new pool: %w", err)
	}
	pingCtx, cancel := context.WithTimeout(ctx, defaultConnectTimeout)
	defer cancel()
	if err := pool.Ping(pingCtx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("postgres: ping: %w", err)
	}
	logger.FromContext(ctx).Info(
		"postgres store initialized",
		"host", cfg.Host, "db_name", cfg.DBName, "max_conns", poolCfg.MaxConns,
	)
	return &Store{pool: pool}, nil
}

// Close shuts down the connection pool.
func (s *Store) Close() {
	s.pool.Close()
}

// Pool exposes the underlying pgxpool.Pool for repo construction.
func (s *Store) Pool() *pgxpool.Pool {
	return s.pool
}

// DSN builds the database/sql-compatible connection string for cfg, used
// both by pgxpool and by the stdlib-driver goose migration runner.
func DSN(cfg *config.DatabaseConfig) string {
	if cfg.ConnString != "" {
		return cfg.ConnString
	}
	sslMode := cfg.SSLMode
	if sslMode == "" {
		sslMode = "disable"
	}
	return fmt.Sprintf(
		"host=%s port=%s user=%s password=%s dbname=%s sslmode=%s",
		cfg.Host, cfg.Port, cfg.User, cfg.Password.Value(), cfg.DBName, sslMode,
	)
}
