package persistence

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/sirupsen/logrus"

	domcart "example.com/cartstore/app/internal/domain/cart"
	"example.com/cartstore/app/internal/infra/persistence/bunt"
	"example.com/cartstore/app/internal/infra/persistence/memory"
	"example.com/cartstore/app/internal/infra/persistence/mysql"
	"example.com/cartstore/app/internal/infra/persistence/postgres"
	"example.com/cartstore/app/internal/infra/persistence/redis"
	"example.com/cartstore/app/internal/infra/persistence/sqlite"
)

const (
	DriverMemory   = "memory"
	DriverBunt     = "bunt"
	DriverRedis    = "redis"
	DriverMySQL    = "mysql"
	DriverPostgres = "postgres"
	DriverSQLite   = "sqlite"
)

var ErrUnknownDriver = errors.New("unknown storage driver")

// Options selects and configures a slot backend.
type Options struct {
	Driver string
	// DSN is the connection string for mysql and postgres.
	DSN string
	// RedisAddr is a redis:// URL or host[:port].
	RedisAddr string
	// File is the database file for bunt and sqlite.
	File string
	// RedisAttempts bounds the readiness wait; zero skips it.
	RedisAttempts int
	Logger        logrus.FieldLogger
}

// Open builds the configured backend. The returned close function releases
// whatever the backend holds and is never nil.
func Open(ctx context.Context, opts Options) (domcart.SlotRepository, func() error, error) {
	noop := func() error { return nil }
	log := opts.Logger
	if log == nil {
		log = logrus.StandardLogger()
	}

	switch strings.ToLower(opts.Driver) {
	case "", DriverMemory:
		return memory.NewSlotRepository(), noop, nil

	case DriverBunt:
		repo, err := bunt.Open(opts.File)
		if err != nil {
			return nil, noop, fmt.Errorf("open bunt %q: %w", opts.File, err)
		}
		return repo, repo.Close, nil

	case DriverRedis:
		addr := opts.RedisAddr
		if addr != "" && !strings.Contains(addr, "://") && !strings.Contains(addr, ":") {
			addr += ":6379"
		}
		repo, err := redis.NewSlotRepository(addr, log)
		if err != nil {
			return nil, noop, err
		}
		if opts.RedisAttempts > 0 {
			if err := repo.WaitReady(ctx, opts.RedisAttempts); err != nil {
				_ = repo.Close()
				return nil, noop, err
			}
		}
		return repo, repo.Close, nil

	case DriverMySQL:
		db, err := mysql.Open(opts.DSN)
		if err != nil {
			return nil, noop, fmt.Errorf("open mysql: %w", err)
		}
		repo := mysql.NewSlotRepository(db)
		if err := repo.EnsureSchema(ctx); err != nil {
			_ = db.Close()
			return nil, noop, fmt.Errorf("mysql schema: %w", err)
		}
		return repo, db.Close, nil

	case DriverPostgres:
		pool, err := postgres.Open(ctx, opts.DSN)
		if err != nil {
			return nil, noop, fmt.Errorf("open postgres: %w", err)
		}
		repo := postgres.NewSlotRepository(pool)
		if err := repo.EnsureSchema(ctx); err != nil {
			pool.Close()
			return nil, noop, fmt.Errorf("postgres schema: %w", err)
		}
		return repo, repo.Close, nil

	case DriverSQLite:
		db, err := sqlite.Open(opts.File)
		if err != nil {
			return nil, noop, fmt.Errorf("open sqlite %q: %w", opts.File, err)
		}
		repo := sqlite.NewSlotRepository(db)
		if err := repo.EnsureSchema(ctx); err != nil {
			_ = db.Close()
			return nil, noop, fmt.Errorf("sqlite schema: %w", err)
		}
		return repo, db.Close, nil
	}

	return nil, noop, fmt.Errorf("%w: %q", ErrUnknownDriver, opts.Driver)
}
