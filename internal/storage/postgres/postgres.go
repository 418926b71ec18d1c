// Package postgres persists simulation reports in PostgreSQL using pgx v5.
package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/cory-johannsen/dpr/internal/config"
)

// SchemaVersion is the newest migration in migrations/ that the repository
// depends on.
const SchemaVersion = 2

// applicationName tags report store sessions in pg_stat_activity.
const applicationName = "dprsim"

// ErrSchemaOutdated is returned when the database has not been migrated to
// SchemaVersion.
var ErrSchemaOutdated = errors.New("report schema is not migrated")

// Pool is the report store's connection pool.
type Pool struct {
	pool *pgxpool.Pool
}

// NewPool connects to the report database and verifies its schema.
//
// Precondition: cfg must contain valid database connection parameters.
// Postcondition: returns a pool whose schema is at SchemaVersion or newer, or
// a non-nil error with nothing left open.
func NewPool(ctx context.Context, cfg config.DatabaseConfig) (*Pool, error) {
	poolCfg, err := pgxpool.ParseConfig(cfg.DSN())
	if err != nil {
		return nil, fmt.Errorf("parsing database config: %w", err)
	}
	poolCfg.MaxConns = cfg.MaxConns
	poolCfg.MinConns = cfg.MinConns
	poolCfg.MaxConnLifetime = cfg.MaxConnLifetime
	poolCfg.ConnConfig.RuntimeParams["application_name"] = applicationName

	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, fmt.Errorf("creating connection pool: %w", err)
	}
	if err := CheckSchema(ctx, pool); err != nil {
		pool.Close()
		return nil, err
	}
	return &Pool{pool: pool}, nil
}

// CheckSchema reads golang-migrate's bookkeeping table and reports whether
// db is migrated to SchemaVersion and clean. Connection failures are
// returned as they are.
func CheckSchema(ctx context.Context, db *pgxpool.Pool) error {
	var (
		version int64
		dirty   bool
	)
	err := db.QueryRow(ctx, `SELECT version, dirty FROM schema_migrations LIMIT 1`).Scan(&version, &dirty)
	var pgErr *pgconn.PgError
	switch {
	case errors.As(err, &pgErr) && pgErr.Code == "42P01", errors.Is(err, pgx.ErrNoRows):
		return fmt.Errorf("%w: no migrations applied; run migrate up", ErrSchemaOutdated)
	case err != nil:
		return fmt.Errorf("reading schema version: %w", err)
	case dirty:
		return fmt.Errorf("%w: version %d is dirty", ErrSchemaOutdated, version)
	case version < SchemaVersion:
		return fmt.Errorf("%w: version %d, want %d; run migrate up", ErrSchemaOutdated, version, SchemaVersion)
	}
	return nil
}

// Close releases all pool resources.
func (p *Pool) Close() {
	p.pool.Close()
}

// DB returns the underlying pgxpool.Pool for use by repositories.
func (p *Pool) DB() *pgxpool.Pool {
	return p.pool
}
