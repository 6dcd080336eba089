package bootstrap

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"go.mongodb.org/mongo-driver/v2/mongo/readpref"
	"go.uber.org/zap"

	"github.com/duet-robotics/drc-backend/config"
	httpapi "github.com/duet-robotics/drc-backend/internal/api/http"
	"github.com/duet-robotics/drc-backend/internal/cache"
	"github.com/duet-robotics/drc-backend/internal/collection/domain"
	"github.com/duet-robotics/drc-backend/internal/collection/repository"
	"github.com/duet-robotics/drc-backend/internal/collection/service"
	"github.com/duet-robotics/drc-backend/internal/content"
	"github.com/duet-robotics/drc-backend/internal/lock"
	"github.com/duet-robotics/drc-backend/internal/media"
	"github.com/duet-robotics/drc-backend/internal/orphans"
	"github.com/duet-robotics/drc-backend/internal/site"
)

const (
	cachePrefix = "drc:"
	lockTTL     = 30 * time.Second
)

// App holds the process-wide dependencies shared by the api and the worker.
type App struct {
	Config   *config.Config
	Log      *zap.Logger
	Registry *domain.Registry
	Repo     repository.Repository
	Binder   *media.Binder
	Redis    *redis.Client
	Locker   lock.Locker
	Ledger   orphans.Ledger
	Cache    cache.Cache
	Stores   *service.Stores
	Checks   map[string]httpapi.Check

	closers []func()
}

// Open connects every configured backend and runs the idempotent schema
// migrations for the selected store.
func Open(ctx context.Context, cfg *config.Config, log *zap.Logger) (*App, error) {
	a := &App{
		Config:   cfg,
		Log:      log,
		Registry: content.NewRegistry(),
		Checks:   map[string]httpapi.Check{},
	}

	if err := a.openStore(ctx); err != nil {
		a.Close()
		return nil, err
	}

	rdb, err := OpenRedis(ctx, cfg.Redis)
	if err != nil {
		a.Close()
		return nil, err
	}
	if rdb != nil {
		a.Redis = rdb
		a.closers = append(a.closers, func() { _ = rdb.Close() })
		a.Checks["redis"] = func(ctx context.Context) error { return rdb.Ping(ctx).Err() }
		a.Locker = lock.NewRedis(rdb, lockTTL, log)
		a.Ledger = orphans.NewRedisLedger(rdb)
		a.Cache = cache.NewRedis(rdb, cachePrefix)
	} else {
		log.Warn("REDIS_ADDR not set; using in-process locks, orphan ledger and no public cache")
		a.Locker = lock.NewLocal()
		a.Ledger = orphans.NewMemoryLedger()
		a.Cache = cache.Noop{}
	}

	binder, err := OpenMedia(ctx, cfg.Media, log)
	if err != nil {
		a.Close()
		return nil, err
	}
	a.Binder = binder

	a.Stores = service.NewStores(a.Registry, service.Deps{
		Repo:        a.Repo,
		Images:      binder,
		Locker:      a.Locker,
		Ledger:      a.Ledger,
		Invalidator: site.NewCacheInvalidator(a.Cache, log),
		Log:         log,
	})

	return a, nil
}

func (a *App) openStore(ctx context.Context) error {
	schemas := a.Registry.All()

	switch a.Config.Store.Driver {
	case "postgres":
		db := a.Config.Database
		pool, err := OpenDB(ctx, DBOptions{
			DSN:       db.DSN,
			MaxConns:  db.MaxConns,
			MinConns:  db.MinConns,
			ConnectTO: db.ConnectTO,
			PingTO:    db.PingTO,
		})
		if err != nil {
			return err
		}
		a.closers = append(a.closers, pool.Close)
		a.Checks["postgres"] = pool.Ping

		repo := repository.NewPostgres(pool)
		if err := repo.Migrate(ctx, schemas); err != nil {
			return fmt.Errorf("migrate: %w", err)
		}
		a.Repo = repo

	case "mongo":
		client, mdb, err := OpenMongo(ctx, a.Config.Mongo.URI, a.Config.Mongo.Database)
		if err != nil {
			return err
		}
		a.closers = append(a.closers, func() { _ = client.Disconnect(context.Background()) })
		a.Checks["mongo"] = func(ctx context.Context) error { return client.Ping(ctx, readpref.Primary()) }

		repo := repository.NewMongo(mdb)
		if err := repo.EnsureIndexes(ctx, schemas); err != nil {
			return fmt.Errorf("ensure indexes: %w", err)
		}
		a.Repo = repo

	case "memory":
		a.Log.Warn("store driver is in-memory; content is lost on restart")
		repo, err := repository.NewMemory()
		if err != nil {
			return err
		}
		a.Repo = repo

	default:
		return fmt.Errorf("unsupported store driver %q", a.Config.Store.Driver)
	}
	return nil
}

// Sweeper returns the orphan sweeper over the app's ledger and media host.
func (a *App) Sweeper() *orphans.Sweeper {
	return orphans.NewSweeper(a.Ledger, a.Binder, a.Log, a.Config.Orphans.BatchSize, a.Config.Orphans.MaxAttempts)
}

// Close releases connections in reverse opening order.
func (a *App) Close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		a.closers[i]()
	}
	a.closers = nil
}
