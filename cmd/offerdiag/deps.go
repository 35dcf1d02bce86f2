package main

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"time"

	_ "github.com/lib/pq" // PostgreSQL driver
	"github.com/redis/go-redis/v9"

	"github.com/ignite/offer-diagnostics/internal/api"
	"github.com/ignite/offer-diagnostics/internal/config"
	"github.com/ignite/offer-diagnostics/internal/everflow"
	"github.com/ignite/offer-diagnostics/internal/metrics"
	"github.com/ignite/offer-diagnostics/internal/notify"
	"github.com/ignite/offer-diagnostics/internal/pkg/distlock"
	"github.com/ignite/offer-diagnostics/internal/pkg/logger"
	"github.com/ignite/offer-diagnostics/internal/repository"
	"github.com/ignite/offer-diagnostics/internal/service/diagnostics"
	"github.com/ignite/offer-diagnostics/internal/snowflake"
	"github.com/ignite/offer-diagnostics/internal/storage"
)

// runtime is everything built from configuration; close releases it.
type runtime struct {
	svc     *diagnostics.Service
	health  *api.HealthChecker
	metrics *metrics.Registry
	closers []func() error
}

func (rt *runtime) close() {
	for i := len(rt.closers) - 1; i >= 0; i-- {
		if err := rt.closers[i](); err != nil {
			logger.Warn("offerdiag: close failed", "error", err)
		}
	}
}

// buildRuntime connects the optional backends named in cfg. Only the
// configured metric source is fatal when unreachable at startup.
func buildRuntime(ctx context.Context, cfg *config.Config, store storage.Store) (*runtime, error) {
	rt := &runtime{health: api.NewHealthChecker(), metrics: metrics.New()}
	deps := diagnostics.Deps{Store: store, Recorder: rt.metrics, SourceName: cfg.Report.Source}

	var db *sql.DB
	if cfg.Database.URL != "" {
		var err error
		db, err = sql.Open("postgres", cfg.Database.URL)
		if err != nil {
			return nil, fmt.Errorf("opening database: %w", err)
		}
		db.SetMaxOpenConns(cfg.Database.MaxOpenConns)
		db.SetMaxIdleConns(cfg.Database.MaxIdleConns)
		rt.closers = append(rt.closers, db.Close)
		rt.health.AddDatabase(db)

		hist := repository.NewStore(db)
		if err := hist.Migrate(ctx); err != nil {
			logger.Warn("offerdiag: run history disabled", "error", err)
		} else {
			deps.History = hist
		}
	}

	var rdb *redis.Client
	if cfg.Redis.URL != "" {
		opts, err := redis.ParseURL(cfg.Redis.URL)
		if err != nil {
			rt.close()
			return nil, fmt.Errorf("parsing redis url: %w", err)
		}
		rdb = redis.NewClient(opts)
		rt.closers = append(rt.closers, rdb.Close)
		rt.health.AddRedis(rdb)
		deps.Store = storage.NewCachedStore(store, storage.NewRedisCache(rdb, cfg.Report.CacheTTL()))
	}
	deps.Locks = func(key string) distlock.DistLock {
		return distlock.NewLock(rdb, db, key, cfg.Report.LockTTL())
	}

	src, err := buildSource(cfg, db, rt)
	if err != nil {
		rt.close()
		return nil, err
	}
	deps.Source = src

	if cfg.Notify.Enabled {
		mailer, err := notify.NewMailer(ctx, cfg.Notify)
		if err != nil {
			logger.Warn("offerdiag: notifications disabled", "error", err)
		} else {
			deps.Notifier = mailer
		}
	}

	rt.svc, err = diagnostics.NewService(cfg, deps)
	if err != nil {
		rt.close()
		return nil, err
	}
	return rt, nil
}

func buildSource(cfg *config.Config, db *sql.DB, rt *runtime) (diagnostics.MetricSource, error) {
	switch cfg.Report.Source {
	case "everflow":
		client := everflow.NewClient(everflow.Config{
			APIKey:       cfg.Everflow.APIKey,
			BaseURL:      cfg.Everflow.BaseURL,
			TimezoneID:   cfg.Everflow.TimezoneID,
			CurrencyID:   cfg.Everflow.CurrencyID,
			AffiliateIDs: cfg.Everflow.AffiliateIDs,
			MaxRetries:   cfg.Everflow.MaxRetries,
			Timeout:      cfg.Everflow.Timeout(),
		})
		rt.health.Add("everflow", true, cfg.Everflow.Timeout(), client.HealthCheck)
		return diagnostics.SourceFunc(client.FetchMetrics), nil

	case "snowflake":
		sfc := snowflake.Config{
			Account:   cfg.Snowflake.Account,
			User:      cfg.Snowflake.User,
			Password:  cfg.Snowflake.Password,
			Database:  cfg.Snowflake.Database,
			Schema:    cfg.Snowflake.Schema,
			Warehouse: cfg.Snowflake.Warehouse,
			Table:     cfg.Snowflake.Table,
		}
		if cs := os.Getenv("SNOWFLAKE_CONNECTION_STRING"); cs != "" {
			sfc = snowflake.ParseConnectionString(cs)
		}
		client, err := snowflake.NewClient(sfc)
		if err != nil {
			return nil, fmt.Errorf("connecting to snowflake: %w", err)
		}
		rt.closers = append(rt.closers, client.Close)
		rt.health.Add("snowflake", true, 5*time.Second, client.Ping)
		return client, nil

	case "postgres":
		if db == nil {
			return nil, fmt.Errorf("report source postgres needs database.url")
		}
		return repository.NewMetricLoader(db, ""), nil

	default:
		return nil, nil
	}
}
