package postgres

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/pgx/v5"
	_ "github.com/golang-migrate/migrate/v4/source/file"
	"github.com/jackc/pgx/v5/pgxpool"
)

type PostgreDB struct {
	Pool     *pgxpool.Pool
	DBConfig *pgxpool.Config
}

type Config interface {
	GetDSN() string
}

// PoolConfig is optionally implemented by configs that tune the pool.
type PoolConfig interface {
	PoolLimits() (maxConns, minConns int32, maxLifetime, maxIdle time.Duration)
}

func New(ctx context.Context, config Config) (*PostgreDB, error) {
	dbConfig, err := pgxpool.ParseConfig(config.GetDSN())
	if err != nil {
		return nil, err
	}

	if pc, ok := config.(PoolConfig); ok {
		maxConns, minConns, lifetime, idle := pc.PoolLimits()
		if maxConns > 0 {
			dbConfig.MaxConns = maxConns
		}
		if minConns > 0 {
			dbConfig.MinConns = minConns
		}
		if lifetime > 0 {
			dbConfig.MaxConnLifetime = lifetime
		}
		if idle > 0 {
			dbConfig.MaxConnIdleTime = idle
		}
	}

	pool, err := pgxpool.NewWithConfig(ctx, dbConfig)
	if err != nil {
		return nil, err
	}

	if err = pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, err
	}

	return &PostgreDB{
		Pool:     pool,
		DBConfig: dbConfig,
	}, nil
}

// Migrate applies every pending migration from dir (e.g. "file://migrations").
// The DSN scheme is rewritten to pgx5 for the golang-migrate pgx/v5 driver.
func Migrate(dir string, config Config) error {
	dsn := config.GetDSN()
	if rest, ok := strings.CutPrefix(dsn, "postgres://"); ok {
		dsn = "pgx5://" + rest
	}

	m, err := migrate.New(dir, dsn)
	if err != nil {
		return fmt.Errorf("failed to init migrations: %w", err)
	}
	defer m.Close()

	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("failed to apply migrations: %w", err)
	}

	return nil
}
