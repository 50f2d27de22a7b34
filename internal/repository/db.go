package repository

import (
	"context"
	"database/sql"
	"log/slog"
	"strings"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jackc/pgx/v5/stdlib"
	_ "modernc.org/sqlite"

	"github.com/avelis/receiptlens/internal/common"
)

type Dialect string

const (
	DialectPostgres Dialect = "postgres"
	DialectSQLite   Dialect = "sqlite"
)

// Open connects to the database named by the DSN and bootstraps the
// schema. postgres:// DSNs dial through a pgx pool; anything else is
// handed to the SQLite driver as a path or file: URI.
func Open(ctx context.Context, cfg common.DatabaseConfig, logger *slog.Logger) (*SQLStore, error) {
	logger.Info("connecting to database", "dsn", cfg.DSN)

	var (
		db      *sql.DB
		pool    *pgxpool.Pool
		dialect Dialect
	)
	if strings.HasPrefix(cfg.DSN, "postgres://") || strings.HasPrefix(cfg.DSN, "postgresql://") {
		pc, err := pgxpool.ParseConfig(cfg.DSN)
		if err != nil {
			logger.Error("failed to connect to database", "error", err)
			return nil, err
		}
		pc.MaxConns = cfg.MaxConns
		pc.MinConns = cfg.MinConns
		pc.MaxConnLifetime = cfg.MaxConnLifetime
		pc.MaxConnIdleTime = cfg.MaxConnIdleTime
		pc.ConnConfig.RuntimeParams["application_name"] = "receiptlens"

		dialCtx := ctx
		if cfg.DialTimeout > 0 {
			var cancel context.CancelFunc
			dialCtx, cancel = context.WithTimeout(ctx, cfg.DialTimeout)
			defer cancel()
		}
		pool, err = pgxpool.NewWithConfig(dialCtx, pc)
		if err != nil {
			logger.Error("failed to connect to database", "error", err)
			return nil, err
		}
		// Wrap the pool as *sql.DB so both dialects share one store.
		db = stdlib.OpenDBFromPool(pool)
		dialect = DialectPostgres
	} else {
		var err error
		db, err = sql.Open("sqlite", cfg.DSN)
		if err != nil {
			logger.Error("failed to open database", "error", err)
			return nil, err
		}
		dialect = DialectSQLite
	}

	store := &SQLStore{db: db, pool: pool, dialect: dialect, logger: logger}
	if err := store.init(ctx); err != nil {
		logger.Error("failed to bootstrap schema", "error", err)
		_ = store.Close()
		return nil, err
	}

	logger.Info("successfully connected to database", "dialect", string(dialect))
	return store, nil
}

// HealthCheck pings the store, bounding the wait when a timeout is given.
func HealthCheck(ctx context.Context, store RecordStore, timeout time.Duration, logger *slog.Logger) error {
	logger.Debug("pinging database")
	if timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}
	if err := store.Ping(ctx); err != nil {
		return err
	}
	logger.Debug("database ping successful")
	return nil
}
