package cli

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/felixgeelhaar/sqlanalyst/application"
	"github.com/felixgeelhaar/sqlanalyst/domain/catalog"
	domainconfig "github.com/felixgeelhaar/sqlanalyst/domain/config"
	"github.com/felixgeelhaar/sqlanalyst/domain/datasource"
	"github.com/felixgeelhaar/sqlanalyst/domain/fault"
	"github.com/felixgeelhaar/sqlanalyst/domain/middleware"
	"github.com/felixgeelhaar/sqlanalyst/domain/pack"
	"github.com/felixgeelhaar/sqlanalyst/domain/query"
	"github.com/felixgeelhaar/sqlanalyst/domain/querylog"
	infracatalog "github.com/felixgeelhaar/sqlanalyst/infrastructure/catalog"
	infraconfig "github.com/felixgeelhaar/sqlanalyst/infrastructure/config"
	"github.com/felixgeelhaar/sqlanalyst/infrastructure/datasource/postgres"
	"github.com/felixgeelhaar/sqlanalyst/infrastructure/datasource/sqldb"
	"github.com/felixgeelhaar/sqlanalyst/infrastructure/logging"
	infrastructuremw "github.com/felixgeelhaar/sqlanalyst/infrastructure/middleware"
	"github.com/felixgeelhaar/sqlanalyst/infrastructure/observability"
	infraquerylog "github.com/felixgeelhaar/sqlanalyst/infrastructure/querylog"
	"github.com/felixgeelhaar/sqlanalyst/infrastructure/resilience"
	"github.com/felixgeelhaar/sqlanalyst/infrastructure/storage/memory"
	"github.com/felixgeelhaar/sqlanalyst/infrastructure/telemetry"
	"github.com/felixgeelhaar/sqlanalyst/pack/analytics"
	"github.com/felixgeelhaar/sqlanalyst/pack/database"
)

// metricsRecorder is satisfied by telemetry.MetricsProvider and
// telemetry.NoopMetricsProvider.
type metricsRecorder interface {
	querylog.Sink
	RecordRetry(ctx context.Context, attempt int, code string)
	RecordBreakerTransition(ctx context.Context, name, from, to string)
	RecordRateLimitHit(ctx context.Context, toolName string)
}

// Runtime is the wired server: database, resilience, query log, telemetry
// and the tool invoker.
type Runtime struct {
	Config   *domainconfig.AnalystConfig
	Executor *resilience.Executor
	Service  *application.Service
	Invoker  *application.Invoker
	// Store is the readable query log, nil when only the log sink is set.
	Store    querylog.Store
	Provider *observability.Provider

	closers []func(context.Context) error
}

// Build opens the configured database and wires every component.
func Build(ctx context.Context, cfg *domainconfig.AnalystConfig, version string) (_ *Runtime, err error) {
	b := infraconfig.NewBuilder(cfg)
	rt := &Runtime{Config: cfg}
	defer func() {
		if err != nil {
			_ = rt.Close(context.Background())
		}
	}()

	logging.Init(b.Logging())

	dialect, err := b.Dialect()
	if err != nil {
		return nil, err
	}

	provider, err := observability.New(b.Observability(version)...)
	if err != nil {
		return nil, fmt.Errorf("telemetry: %w", err)
	}
	rt.Provider = provider
	rt.closers = append(rt.closers, provider.Shutdown)

	metrics := newMetrics(provider, version)

	raw, err := rt.openExecutor(ctx, b, dialect)
	if err != nil {
		return nil, err
	}

	ec := b.Executor()
	ec.OnRetry = func(attempt int, err error, _ time.Duration) {
		metrics.RecordRetry(context.Background(), attempt, string(fault.CodeOf(err)))
	}
	ec.OnStateChange = func(from, to resilience.State) {
		metrics.RecordBreakerTransition(context.Background(), ec.Breaker.Name, from.String(), to.String())
	}
	guarded, err := resilience.NewExecutor(raw, ec)
	if err != nil {
		return nil, err
	}
	rt.Executor = guarded

	sinks, err := rt.openQueryLog(ctx, cfg.QueryLog)
	if err != nil {
		return nil, err
	}
	sinks = append(sinks, metrics)

	svc, err := application.NewService(application.ServiceConfig{
		Executor: guarded,
		Catalog:  infracatalog.NewCached(newCatalog(guarded, dialect, cfg.Database.Schema), infracatalog.WithTTL(b.CatalogTTL())),
		Dialect:  dialect,
		Sink:     querylog.Multi(sinks...),
		Tracer:   provider.Tracer("sqlanalyst/application"),
	})
	if err != nil {
		return nil, err
	}
	rt.Service = svc

	reg := memory.NewToolRegistry()
	dbPack, err := database.New(svc)
	if err != nil {
		return nil, err
	}
	analyticsPack, err := analytics.New(svc)
	if err != nil {
		return nil, err
	}
	if err := pack.Install(reg, dbPack, analyticsPack); err != nil {
		return nil, err
	}

	rt.Invoker = application.NewInvoker(reg,
		infrastructuremw.Recover(),
		infrastructuremw.Logging(infrastructuremw.LoggingConfig{}),
		infrastructuremw.Tracing(infrastructuremw.TracingConfig{Tracer: provider.Tracer("sqlanalyst/tools")}),
		infrastructuremw.RateLimit(infrastructuremw.RateLimitConfig{
			Limiter: b.RateLimiter(),
			OnLimitExceeded: func(ctx context.Context, execCtx *middleware.ExecutionContext) {
				metrics.RecordRateLimitHit(ctx, execCtx.Tool.Name())
			},
		}),
		infrastructuremw.Validation(),
	)

	logging.Info().
		Add(logging.Component("runtime")).
		Add(logging.Str("driver", cfg.Database.Driver)).
		Add(logging.Str("tools", fmt.Sprint(len(reg.Names())))).
		Msg("analyst runtime ready")
	return rt, nil
}

func newMetrics(provider *observability.Provider, version string) metricsRecorder {
	mp := telemetry.NewMetricsProvider(telemetry.MetricsConfig{
		MeterName:     "github.com/felixgeelhaar/sqlanalyst",
		MeterVersion:  version,
		MeterProvider: provider.MeterProvider(),
	})
	if err := mp.Error(); err != nil {
		logging.Warn().Add(logging.Component("telemetry")).Add(logging.ErrorField(err)).Msg("metrics disabled")
		return telemetry.NoopMetricsProvider{}
	}
	return mp
}

func newCatalog(exec datasource.Executor, d query.Dialect, schema string) catalog.Catalog {
	if d == query.SQLite {
		return infracatalog.NewSQLite(exec)
	}
	return infracatalog.NewInformationSchema(exec, d, schema)
}

func (rt *Runtime) openExecutor(ctx context.Context, b *infraconfig.Builder, d query.Dialect) (datasource.Executor, error) {
	maxRows := rt.Config.Database.MaxRows
	if d == query.Postgres {
		pool, err := postgres.Open(ctx, b.Postgres())
		if err != nil {
			return nil, err
		}
		rt.closers = append(rt.closers, func(context.Context) error {
			pool.Close()
			return nil
		})
		return postgres.NewExecutor(pool, maxRows), nil
	}

	db, err := sqldb.Open(b.SQL())
	if err != nil {
		return nil, err
	}
	rt.closers = append(rt.closers, func(context.Context) error { return db.Close() })
	return sqldb.NewExecutor(db, sqldb.WithMaxRows(maxRows)), nil
}

// openQueryLog builds the configured sinks. The last readable one becomes
// rt.Store.
func (rt *Runtime) openQueryLog(ctx context.Context, cfg domainconfig.QueryLogConfig) ([]querylog.Sink, error) {
	var sinks []querylog.Sink
	for _, name := range cfg.Sinks {
		switch name {
		case domainconfig.SinkLog:
			sinks = append(sinks, infraquerylog.NewLogSink())

		case domainconfig.SinkMemory:
			store := infraquerylog.NewMemoryStore(cfg.Capacity)
			sinks = append(sinks, store)
			rt.Store = store

		case domainconfig.SinkSQLite:
			db, err := sqldb.Open(sqldb.Config{Driver: domainconfig.DriverSQLite, DSN: cfg.DSN, MaxOpenConns: 1})
			if err != nil {
				return nil, fmt.Errorf("query log: %w", err)
			}
			store, err := infraquerylog.NewSQLiteStore(ctx, db, cfg.Table)
			if err != nil {
				return nil, errors.Join(err, db.Close())
			}
			rt.closers = append(rt.closers, func(context.Context) error {
				return errors.Join(store.Close(), db.Close())
			})
			sinks = append(sinks, store)
			rt.Store = store

		case domainconfig.SinkPostgres:
			pcfg := postgres.DefaultConfig()
			pcfg.DSN = cfg.DSN
			pcfg.MinConns = 1
			pool, err := postgres.Open(ctx, pcfg)
			if err != nil {
				return nil, fmt.Errorf("query log: %w", err)
			}
			rt.closers = append(rt.closers, func(context.Context) error {
				pool.Close()
				return nil
			})
			store := infraquerylog.NewPostgresStore(pool, "", cfg.Table)
			if err := store.Migrate(ctx); err != nil {
				return nil, err
			}
			sinks = append(sinks, store)
			rt.Store = store

		default:
			return nil, fmt.Errorf("query log: unknown sink %q", name)
		}
	}
	return sinks, nil
}

// Close releases resources in reverse order of acquisition.
func (rt *Runtime) Close(ctx context.Context) error {
	var errs []error
	for i := len(rt.closers) - 1; i >= 0; i-- {
		errs = append(errs, rt.closers[i](ctx))
	}
	rt.closers = nil
	return errors.Join(errs...)
}
