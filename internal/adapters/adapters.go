// Package adapters opens the storage backends selected in the config and
// builds the profile service and state cache on top of them.
package adapters

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/redis/go-redis/v9"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.uber.org/zap"

	"github.com/at-ishikawa/mentalmath/internal/config"
	"github.com/at-ishikawa/mentalmath/internal/database"
	"github.com/at-ishikawa/mentalmath/internal/history"
	"github.com/at-ishikawa/mentalmath/internal/profile"
	"github.com/at-ishikawa/mentalmath/internal/statecache"
)

const (
	connectTimeout = 10 * time.Second
	pingTimeout    = 5 * time.Second
)

// Adapters holds the opened backends. Close releases all of them.
type Adapters struct {
	Profiles *profile.Service
	Cache    *statecache.Cache
	DB       *sqlx.DB

	closers []func(ctx context.Context) error
}

// Open connects to every backend the config selects.
func Open(ctx context.Context, cfg *config.Config, logger *zap.Logger) (*Adapters, error) {
	a := &Adapters{}

	serviceOpts := []profile.ServiceOption{
		profile.WithStatsSource(profile.StatsSource(cfg.Profile.StatsSource)),
		profile.WithRetention(profile.Retention{
			Days:      cfg.Profile.WrongAnswers.RetentionDays,
			MaxPerDay: cfg.Profile.WrongAnswers.MaxPerDay,
		}),
	}

	switch cfg.Storage.Backend {
	case config.StorageSQL:
		db, err := a.openSQL(ctx, cfg.Database)
		if err != nil {
			return nil, a.closeOnError(err)
		}
		serviceOpts = append(serviceOpts,
			profile.WithStore(profile.NewDBRepository(db)),
			profile.WithAttempts(history.NewDBRepository(db)),
		)
	case config.StorageMongo:
		db, err := a.openMongo(ctx, cfg.Mongo)
		if err != nil {
			return nil, a.closeOnError(err)
		}
		serviceOpts = append(serviceOpts,
			profile.WithStore(profile.NewMongoRepository(db)),
			profile.WithAttempts(history.NewYAMLRepository(filepath.Join(cfg.Cache.Directory, "history"))),
		)
	case config.StorageLocal, "":
		serviceOpts = append(serviceOpts,
			profile.WithAttempts(history.NewYAMLRepository(filepath.Join(cfg.Cache.Directory, "history"))),
		)
	default:
		return nil, fmt.Errorf("unsupported storage backend: %s", cfg.Storage.Backend)
	}
	a.Profiles = profile.NewService(profile.NewFileCache(cfg.Cache.Directory), logger, serviceOpts...)

	backend, err := a.openCacheBackend(ctx, cfg.Cache)
	if err != nil {
		return nil, a.closeOnError(err)
	}
	a.Cache = statecache.New(backend, statecache.WithTTL(cfg.Cache.TTL))

	logger.Debug("adapters opened",
		zap.String("storage", cfg.Storage.Backend),
		zap.String("cache", cfg.Cache.Backend),
	)
	return a, nil
}

func (a *Adapters) openSQL(ctx context.Context, cfg config.DatabaseConfig) (*sqlx.DB, error) {
	db, err := database.Open(cfg)
	if err != nil {
		return nil, fmt.Errorf("database.Open() > %w", err)
	}
	a.closers = append(a.closers, func(context.Context) error { return db.Close() })

	pingCtx, cancel := context.WithTimeout(ctx, pingTimeout)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		return nil, fmt.Errorf("db.PingContext() > %w", err)
	}
	a.DB = db
	return db, nil
}

func (a *Adapters) openMongo(ctx context.Context, cfg config.MongoConfig) (*mongo.Database, error) {
	connectCtx, cancel := context.WithTimeout(ctx, connectTimeout)
	defer cancel()

	client, err := mongo.Connect(connectCtx, options.Client().ApplyURI(cfg.URI))
	if err != nil {
		return nil, fmt.Errorf("mongo.Connect() > %w", err)
	}
	a.closers = append(a.closers, client.Disconnect)

	pingCtx, cancelPing := context.WithTimeout(ctx, pingTimeout)
	defer cancelPing()
	if err := client.Ping(pingCtx, nil); err != nil {
		return nil, fmt.Errorf("client.Ping() > %w", err)
	}
	return client.Database(cfg.Database), nil
}

func (a *Adapters) openCacheBackend(ctx context.Context, cfg config.CacheConfig) (statecache.Backend, error) {
	if cfg.Backend != "redis" {
		return statecache.NewFileBackend(filepath.Join(cfg.Directory, "state")), nil
	}

	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	a.closers = append(a.closers, func(context.Context) error { return client.Close() })

	pingCtx, cancel := context.WithTimeout(ctx, pingTimeout)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		return nil, fmt.Errorf("client.Ping(%s) > %w", cfg.Redis.Addr, err)
	}
	return statecache.NewRedisBackend(client, cfg.Redis.Prefix, cfg.TTL), nil
}

func (a *Adapters) closeOnError(err error) error {
	if closeErr := a.Close(context.Background()); closeErr != nil {
		return errors.Join(err, closeErr)
	}
	return err
}

// Close releases the backends in reverse order of opening.
func (a *Adapters) Close(ctx context.Context) error {
	var errs []error
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](ctx); err != nil {
			errs = append(errs, err)
		}
	}
	a.closers = nil
	return errors.Join(errs...)
}
