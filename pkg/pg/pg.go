// Package pg provides PostgreSQL connection pooling and schema migration
// helpers built on pgx/v5 and goose/v3.
package pg

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jackc/pgx/v5/stdlib"
	"github.com/pressly/goose/v3"
)

var (
	// ErrInvalidConnectionString indicates the connection string could not be parsed
	ErrInvalidConnectionString = errors.New("pg.invalid_connection_string")

	// ErrNotReady indicates all connection attempts failed
	ErrNotReady = errors.New("pg.not_ready")

	// ErrMigrationFailed indicates goose migrations did not complete
	ErrMigrationFailed = errors.New("pg.migration_failed")
)

type Config struct {
	ConnectionURL   string        `env:"DATABASE_URL" envDefault:""`
	MaxOpenConns    int32         `env:"PG_MAX_OPEN_CONNS" envDefault:"10"`
	MinIdleConns    int32         `env:"PG_MIN_IDLE_CONNS" envDefault:"2"`
	MaxConnIdleTime time.Duration `env:"PG_MAX_CONN_IDLE_TIME" envDefault:"10m"`
	MaxConnLifetime time.Duration `env:"PG_MAX_CONN_LIFETIME" envDefault:"30m"`
	RetryAttempts   int           `env:"PG_RETRY_ATTEMPTS" envDefault:"3"`
	RetryInterval   time.Duration `env:"PG_RETRY_INTERVAL" envDefault:"5s"`
	MigrationsDir   string        `env:"PG_MIGRATIONS_DIR" envDefault:"migrations"`
}

// Enabled reports whether a database connection is configured at all.
func (c Config) Enabled() bool { return c.ConnectionURL != "" }

// Connect opens a pgx connection pool, retrying with a growing backoff so
// transient startup ordering issues do not kill the process.
func Connect(ctx context.Context, cfg Config) (*pgxpool.Pool, error) {
	poolCfg, err := pgxpool.ParseConfig(cfg.ConnectionURL)
	if err != nil {
		return nil, errors.Join(ErrInvalidConnectionString, err)
	}
	poolCfg.MaxConns = cfg.MaxOpenConns
	poolCfg.MinConns = cfg.MinIdleConns
	poolCfg.MaxConnIdleTime = cfg.MaxConnIdleTime
	poolCfg.MaxConnLifetime = cfg.MaxConnLifetime

	for i := range cfg.RetryAttempts {
		pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
		if err == nil {
			if err = pool.Ping(ctx); err == nil {
				return pool, nil
			}
			pool.Close()
		}
		time.Sleep(time.Duration(i+1) * cfg.RetryInterval)
	}

	return nil, ErrNotReady
}

// Migrate applies pending goose migrations from the configured directory.
func Migrate(ctx context.Context, pool *pgxpool.Pool, cfg Config, log *slog.Logger) error {
	db := stdlib.OpenDBFromPool(pool)
	defer func() { _ = db.Close() }()

	goose.SetLogger(goose.NopLogger())
	if err := goose.SetDialect("postgres"); err != nil {
		return errors.Join(ErrMigrationFailed, err)
	}
	if err := goose.UpContext(ctx, db, cfg.MigrationsDir); err != nil {
		return errors.Join(ErrMigrationFailed, err)
	}

	log.InfoContext(ctx, "database migrations applied", slog.String("dir", cfg.MigrationsDir))
	return nil
}
