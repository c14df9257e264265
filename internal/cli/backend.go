package cli

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/daylog/time-tracker/internal/api/metrics"
	"github.com/daylog/time-tracker/internal/core/ports"
	"github.com/daylog/time-tracker/internal/infrastructure/config"
	"github.com/daylog/time-tracker/internal/infrastructure/db/memory"
	mongostore "github.com/daylog/time-tracker/internal/infrastructure/db/mongo"
	"github.com/daylog/time-tracker/internal/infrastructure/db/postgres"
	redisstore "github.com/daylog/time-tracker/internal/infrastructure/db/redis"
	"github.com/daylog/time-tracker/internal/infrastructure/db/sqlite"
	"github.com/daylog/time-tracker/internal/infrastructure/http/handlers"
	"github.com/daylog/time-tracker/internal/infrastructure/lock"
)

// backend is the set of adapters selected by configuration.
type backend struct {
	entries ports.EntryRepository
	users   ports.AuthRepository
	locker  ports.UserLocker
	idem    ports.IdempotencyStore
	checks  map[string]handlers.Check
	closers []func() error
}

// openBackend connects the entry store selected by STORE_BACKEND and, when
// REDIS_ENABLED is set, the shared lock and idempotency store. On error every
// connection opened so far is already closed.
func openBackend(ctx context.Context, cfg *config.Config, log zerolog.Logger, migrate bool) (*backend, error) {
	b := &backend{checks: make(map[string]handlers.Check)}

	if err := b.openStore(ctx, cfg, migrate); err != nil {
		b.close(log)
		return nil, err
	}

	if cfg.Redis.Enabled {
		client, err := redisstore.Connect(ctx, redisstore.Config{Addr: cfg.Redis.Addr, DB: cfg.Redis.DB})
		if err != nil {
			b.close(log)
			return nil, err
		}
		b.closers = append(b.closers, client.Close)
		b.checks["redis"] = redisstore.Ping(client)
		b.locker = redisstore.NewUserLock(client, 0, cfg.Tracker.LockTimeout, log.With().Str("component", "user_lock").Logger())
		b.idem = redisstore.NewIdempotencyStore(client)
	} else {
		b.locker = lock.WithTimeout(lock.NewKeyed(0), cfg.Tracker.LockTimeout)
		b.idem = memory.NewIdempotencyStore()
	}
	b.locker = metrics.InstrumentLocker(b.locker)

	return b, nil
}

func (b *backend) openStore(ctx context.Context, cfg *config.Config, migrate bool) error {
	switch cfg.Store.Backend {
	case config.BackendMongo:
		client, db, err := mongostore.Connect(ctx, mongostore.Config{URI: cfg.Mongo.URI, Database: cfg.Mongo.Database})
		if err != nil {
			return err
		}
		b.closers = append(b.closers, func() error { return client.Disconnect(context.Background()) })
		if migrate {
			if err := mongostore.Migrate(ctx, db); err != nil {
				return err
			}
		}
		b.entries = mongostore.NewEntryRepository(db)
		b.users = mongostore.NewAuthRepository(db)
		b.checks["mongodb"] = mongostore.Ping(db)

	case config.BackendPostgres:
		pool, err := postgres.Connect(ctx, cfg.Postgres.DSN)
		if err != nil {
			return err
		}
		b.closers = append(b.closers, func() error { pool.Close(); return nil })
		if migrate {
			if err := postgres.Migrate(ctx, pool); err != nil {
				return err
			}
		}
		b.entries = postgres.NewEntryRepository(pool)
		b.users = postgres.NewAuthRepository(pool)
		b.checks["postgres"] = pool.Ping

	case config.BackendSQLite:
		db, err := sqlite.Open(ctx, cfg.SQLite.Path)
		if err != nil {
			return err
		}
		b.closers = append(b.closers, db.Close)
		if migrate {
			if err := sqlite.Migrate(ctx, db); err != nil {
				return err
			}
		}
		b.entries = sqlite.NewEntryRepository(db)
		b.users = sqlite.NewAuthRepository(db)
		b.checks["sqlite"] = db.PingContext

	case config.BackendMemory:
		b.entries = memory.NewEntryRepository()
		b.users = memory.NewAuthRepository()

	default:
		return fmt.Errorf("unknown store backend %q", cfg.Store.Backend)
	}
	return nil
}

// close releases connections in reverse order of opening.
func (b *backend) close(log zerolog.Logger) {
	for i := len(b.closers) - 1; i >= 0; i-- {
		if err := b.closers[i](); err != nil {
			log.Warn().Err(err).Msg("failed to close backend connection")
		}
	}
	b.closers = nil
}
