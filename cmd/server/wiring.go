package main

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"net/http"

	"solmeet/internal/audit"
	claimhandler "solmeet/internal/claim/handler"
	claimmetrics "solmeet/internal/claim/metrics"
	claimservice "solmeet/internal/claim/service"
	"solmeet/internal/claim/tracer"
	"solmeet/internal/credential"
	eventhandler "solmeet/internal/event/handler"
	eventmetrics "solmeet/internal/event/metrics"
	eventservice "solmeet/internal/event/service"
	eventstore "solmeet/internal/event/store"
	"solmeet/internal/event/workers/expiry"
	jwttoken "solmeet/internal/jwt_token"
	"solmeet/internal/ledger/issuance"
	ledgerstore "solmeet/internal/ledger/store"
	"solmeet/internal/platform/config"
	"solmeet/internal/platform/database"
	"solmeet/internal/platform/health"
	"solmeet/internal/platform/metrics"
	"solmeet/internal/platform/redis"
	"solmeet/internal/platform/sqlite"
	httptransport "solmeet/internal/transport/http"
	"solmeet/migrations"
	"solmeet/pkg/platform/circuit"
	"solmeet/pkg/platform/middleware/metadata"
	"solmeet/pkg/platform/middleware/ratelimit"
	"solmeet/pkg/platform/middleware/request"
)

// auditBuffer bounds queued audit events before Emit starts dropping.
const auditBuffer = 1024

// ledgerBackend is what both the claim pipeline and the issuance gateway
// need from a proof ledger store.
type ledgerBackend interface {
	claimservice.Ledger
	issuance.Ledger
}

type app struct {
	router  http.Handler
	expiry  *expiry.Service
	limiter *ratelimit.Limiter
	redis   *redis.Client
	closers []func()
}

// Close releases resources in reverse order of acquisition.
func (a *app) Close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		a.closers[i]()
	}
}

// backends holds lazily opened connections shared by the stores.
type backends struct {
	cfg    config.Server
	log    *slog.Logger
	reg    *metrics.Registry
	health *health.Handler
	app    *app

	pg       *database.Pool
	sqliteDB *sql.DB
	writer   *sqlite.Worker
}

func (b *backends) postgres(ctx context.Context) (*sql.DB, error) {
	if b.pg != nil {
		return b.pg.DB(), nil
	}
	dbCfg := database.DefaultConfig()
	dbCfg.URL = b.cfg.DatabaseURL
	pool, err := database.New(ctx, dbCfg)
	if err != nil {
		return nil, err
	}
	b.app.closers = append(b.app.closers, func() { _ = pool.Close() })
	if err := database.Migrate(ctx, pool.DB(), migrations.FS, database.Postgres); err != nil {
		return nil, fmt.Errorf("migrate postgres: %w", err)
	}
	if err := pool.RegisterMetrics(b.reg.Registerer()); err != nil {
		return nil, fmt.Errorf("postgres metrics: %w", err)
	}
	b.health.RegisterCheck("postgres", pool.Health)
	b.pg = pool
	b.log.Info("connected to postgres")
	return pool.DB(), nil
}

func (b *backends) sqlite(ctx context.Context) (*sql.DB, *sqlite.Worker, error) {
	if b.sqliteDB != nil {
		return b.sqliteDB, b.writer, nil
	}
	db, err := sqlite.Open(ctx, sqlite.Config{Path: b.cfg.SQLitePath})
	if err != nil {
		return nil, nil, err
	}
	writer := sqlite.NewWorker(db)
	b.app.closers = append(b.app.closers, func() {
		writer.Close()
		_ = db.Close()
	})
	b.health.RegisterCheck("sqlite", db.PingContext)
	b.sqliteDB, b.writer = db, writer
	b.log.Info("opened sqlite store", "path", b.cfg.SQLitePath)
	return db, writer, nil
}

func (b *backends) redis(ctx context.Context) (*redis.Client, error) {
	if b.app.redis != nil {
		return b.app.redis, nil
	}
	client, err := redis.New(ctx, b.cfg.Redis, b.reg.Registerer())
	if err != nil {
		return nil, err
	}
	b.app.closers = append(b.app.closers, func() { _ = client.Close() })
	b.health.RegisterCheck("redis", client.Health)
	b.app.redis = client
	b.log.Info("connected to redis")
	return client, nil
}

func (b *backends) eventStore(ctx context.Context) (eventservice.Store, error) {
	switch b.cfg.EventStore {
	case config.BackendMemory:
		return eventstore.NewInMemory(), nil
	case config.BackendSQLite:
		db, writer, err := b.sqlite(ctx)
		if err != nil {
			return nil, err
		}
		return eventstore.NewSQLite(db, writer), nil
	case config.BackendPostgres:
		db, err := b.postgres(ctx)
		if err != nil {
			return nil, err
		}
		return eventstore.NewPostgres(db), nil
	default:
		return nil, fmt.Errorf("unsupported event store %q", b.cfg.EventStore)
	}
}

func (b *backends) ledger(ctx context.Context) (ledgerBackend, error) {
	switch b.cfg.LedgerBackend {
	case config.BackendMemory:
		return ledgerstore.NewInMemory(), nil
	case config.BackendSQLite:
		db, writer, err := b.sqlite(ctx)
		if err != nil {
			return nil, err
		}
		return ledgerstore.NewSQLite(db, writer), nil
	case config.BackendPostgres:
		db, err := b.postgres(ctx)
		if err != nil {
			return nil, err
		}
		return ledgerstore.NewPostgres(db), nil
	case config.BackendRedis:
		client, err := b.redis(ctx)
		if err != nil {
			return nil, err
		}
		return ledgerstore.NewRedis(client.Client, b.cfg.Redis.Prefix), nil
	default:
		return nil, fmt.Errorf("unsupported ledger backend %q", b.cfg.LedgerBackend)
	}
}

// auditStore persists next to whichever database the other stores opened,
// preferring postgres, and keeps a bounded trail in memory otherwise.
func (b *backends) auditStore() audit.Store {
	switch {
	case b.pg != nil:
		return audit.NewPostgresStore(b.pg.DB())
	case b.sqliteDB != nil:
		return audit.NewSQLiteStore(b.sqliteDB, b.writer)
	default:
		return audit.NewInMemoryStore()
	}
}

func buildApp(ctx context.Context, cfg config.Server, log *slog.Logger) (a *app, err error) {
	a = &app{}
	defer func() {
		if err != nil {
			a.Close()
		}
	}()

	reg := metrics.New()
	healthHandler := health.New(cfg.Environment)
	b := &backends{cfg: cfg, log: log, reg: reg, health: healthHandler, app: a}

	events, err := b.eventStore(ctx)
	if err != nil {
		return nil, fmt.Errorf("event store: %w", err)
	}
	ledger, err := b.ledger(ctx)
	if err != nil {
		return nil, fmt.Errorf("ledger: %w", err)
	}

	seed, err := cfg.MasterSeed()
	if err != nil {
		return nil, err
	}
	keyring, err := credential.NewKeyring(seed)
	if err != nil {
		return nil, err
	}
	salt, err := cfg.ProofSalt()
	if err != nil {
		return nil, err
	}
	gateway, err := issuance.New(ledger, salt)
	if err != nil {
		return nil, err
	}

	publisher := audit.NewPublisher(b.auditStore(),
		audit.WithAsyncBuffer(auditBuffer),
		audit.WithPublisherLogger(log),
		audit.WithPublisherMetrics(reg.Registerer()),
	)
	a.closers = append(a.closers, publisher.Close)

	evMetrics := eventmetrics.New(reg.Registerer())
	eventSvc := eventservice.New(events, keyring,
		eventservice.WithLogger(log),
		eventservice.WithAuditPublisher(publisher),
		eventservice.WithAuditReader(publisher),
		eventservice.WithMetrics(evMetrics),
		eventservice.WithCredentialTTL(cfg.Credentials.DefaultTTL),
		eventservice.WithMaxBatch(cfg.Credentials.MaxBatch),
		eventservice.WithClaimCounter(ledger),
	)

	breaker := circuit.New("ledger",
		circuit.WithFailureThreshold(cfg.Claims.BreakerFailures),
		circuit.WithSuccessThreshold(cfg.Claims.BreakerSuccesses),
		circuit.WithCooldown(cfg.Claims.BreakerCooldown),
	)
	healthHandler.RegisterOptional("ledger_breaker", func(context.Context) error {
		if st := breaker.State(); st != circuit.StateClosed {
			return fmt.Errorf("circuit %s, retry in %s", st, breaker.RetryIn())
		}
		return nil
	})
	claimSvc := claimservice.New(events, keyring, ledger, gateway,
		claimservice.WithLogger(log),
		claimservice.WithAuditPublisher(publisher),
		claimservice.WithMetrics(claimmetrics.New(reg.Registerer())),
		claimservice.WithTracer(tracer.NewOTel()),
		claimservice.WithBreaker(breaker),
		claimservice.WithLedgerTimeout(cfg.Claims.LedgerTimeout),
	)

	a.expiry, err = expiry.New(eventSvc,
		expiry.WithInterval(cfg.Expiry.Interval),
		expiry.WithBatchSize(cfg.Expiry.BatchSize),
		expiry.WithLogger(log),
		expiry.WithMetrics(evMetrics),
	)
	if err != nil {
		return nil, err
	}

	proxies, err := metadata.ParseTrustedProxies(cfg.TrustedProxies)
	if err != nil {
		return nil, err
	}

	a.limiter = ratelimit.New(cfg.Claims.RatePerSecond, cfg.Claims.Burst)
	tokens := jwttoken.NewJWTService(cfg.Auth.JWTSigningKey, cfg.Auth.Issuer, cfg.Auth.Audience, cfg.Auth.TokenTTL)

	a.router = httptransport.NewRouter(httptransport.Deps{
		Logger:         log,
		Auth:           tokens,
		Metrics:        request.NewMetrics(reg.Registerer()),
		MetricsHandler: reg.Handler(),
		Health:         healthHandler,
		Events:         eventhandler.New(eventSvc, log),
		Claims:         claimhandler.New(claimSvc, log),
		ClaimLimiter:   a.limiter.Middleware,
		RequestTimeout: cfg.Claims.HandlerTimeout,
		Metadata:       &metadata.Config{TrustedProxies: proxies},
	})
	return a, nil
}
