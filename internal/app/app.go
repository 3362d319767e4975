// Package app wires configuration into a running sniper engine.
package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"solana-sniper/internal/approval"
	"solana-sniper/internal/archive"
	rediscache "solana-sniper/internal/cache/redis"
	"solana-sniper/internal/config"
	"solana-sniper/internal/domain"
	"solana-sniper/internal/enrich"
	"solana-sniper/internal/execution"
	"solana-sniper/internal/ingestion"
	"solana-sniper/internal/logging"
	"solana-sniper/internal/observability"
	"solana-sniper/internal/pumpportal"
	"solana-sniper/internal/safety"
	"solana-sniper/internal/server"
	"solana-sniper/internal/service"
	"solana-sniper/internal/solana"
	"solana-sniper/internal/storage"
	chstore "solana-sniper/internal/storage/clickhouse"
	"solana-sniper/internal/storage/memory"
	"solana-sniper/internal/storage/migrations"
	"solana-sniper/internal/storage/postgres"
	"solana-sniper/internal/storage/sqlite"
	"solana-sniper/internal/vault"
)

// Storage backends.
const (
	BackendMemory   = "memory"
	BackendPostgres = "postgres"
	BackendSQLite   = "sqlite"
)

// Stores groups the persistence ports the engine runs on.
type Stores struct {
	Rules        storage.RuleStore
	Transactions storage.TransactionStore
	States       storage.SafetyStateStore
	Accounts     storage.AccountStore

	// Analytics is the ClickHouse mirror, nil when not configured.
	Analytics *chstore.TransactionStore
}

// App owns every engine component and the order they are released in.
type App struct {
	config    *config.Config
	log       *logrus.Logger
	logCloser io.Closer
	now       func() time.Time

	stores Stores
	redis  *rediscache.Client
	vault  *vault.Vault

	tracker     *safety.Tracker
	trader      execution.Trader
	coordinator *execution.Coordinator
	gate        *approval.Gate
	bus         *rediscache.ApprovalBus
	feed        *pumpportal.FeedClient
	runner      *ingestion.Runner
	server      *server.Server

	closers []func() error
}

// New initializes logging and storage. Components that dial the network
// are created by Run so that maintenance commands work offline.
func New(ctx context.Context, cfg *config.Config) (*App, error) {
	a := &App{config: cfg, now: time.Now}

	if err := a.initializeLogger(); err != nil {
		return nil, fmt.Errorf("initialize logger: %w", err)
	}
	if err := a.initializeStorage(ctx); err != nil {
		a.Close()
		return nil, fmt.Errorf("initialize storage: %w", err)
	}
	return a, nil
}

// Logger returns the application logger.
func (a *App) Logger() *logrus.Logger {
	return a.log
}

// Stores returns the opened persistence ports.
func (a *App) Stores() Stores {
	return a.stores
}

// Rules returns the rule service over the configured store.
func (a *App) Rules() *service.RuleService {
	return service.NewRuleService(a.stores.Rules)
}

// Accounts returns the account service. Adding accounts requires the
// vault passphrase; listing and toggling do not.
func (a *App) Accounts() (*service.AccountService, error) {
	if a.config.Vault.Passphrase == "" {
		return service.NewAccountService(a.stores.Accounts, nil), nil
	}
	if err := a.initializeVault(); err != nil {
		return nil, err
	}
	return service.NewAccountService(a.stores.Accounts, a.vault), nil
}

// SafetyState returns the persisted Safety State with today's reset applied.
func (a *App) SafetyState(ctx context.Context) (domain.SafetyState, error) {
	tracker, err := a.loadTracker(ctx)
	if err != nil {
		return domain.SafetyState{}, err
	}
	return tracker.Snapshot(a.now()), nil
}

// Archive exports transaction records within [from, to] to S3.
func (a *App) Archive(ctx context.Context, from, to time.Time) (archive.Result, error) {
	if err := a.config.ValidateArchive(); err != nil {
		return archive.Result{}, err
	}
	ac := a.config.Archive
	writer, err := archive.NewS3Writer(ctx, archive.S3Config{
		Endpoint:        ac.Endpoint,
		Region:          ac.Region,
		Bucket:          ac.Bucket,
		AccessKeyID:     ac.AccessKeyID,
		SecretAccessKey: ac.SecretAccessKey,
		UsePathStyle:    ac.UsePathStyle,
	})
	if err != nil {
		return archive.Result{}, err
	}
	return archive.NewArchiver(writer, a.stores.Transactions, ac.Prefix, a.log).Export(ctx, from, to)
}

// initializeLogger initializes the application logger
func (a *App) initializeLogger() error {
	lc := a.config.Logging
	log, closer, err := logging.New(logging.Config{
		Level:  lc.Level,
		Format: lc.Format,
		Output: lc.Output,
		File:   lc.File,
	})
	if err != nil {
		return err
	}
	a.log = log
	a.logCloser = closer
	a.log.WithFields(logrus.Fields{
		"level":  lc.Level,
		"format": lc.Format,
		"output": lc.Output,
	}).Debug("logger initialized")
	return nil
}

// initializeStorage opens the primary backend, applies migrations and
// attaches the ClickHouse mirror when configured.
func (a *App) initializeStorage(ctx context.Context) error {
	sc := a.config.Storage
	log := a.log.WithField("backend", sc.Backend)
	log.Info("initializing storage")

	switch sc.Backend {
	case BackendMemory:
		a.stores = Stores{
			Rules:        memory.NewRuleStore(),
			Transactions: memory.NewTransactionStore(),
			States:       memory.NewSafetyStateStore(),
			Accounts:     memory.NewAccountStore(),
		}
	case BackendPostgres:
		pool, err := postgres.NewPool(ctx, postgres.PoolConfig{
			DSN:             sc.PostgresDSN,
			MaxConns:        sc.MaxConns,
			MinConns:        sc.MinConns,
			MaxConnLifetime: sc.MaxConnLifetime,
			MaxConnIdleTime: sc.MaxConnIdleTime,
			ConnectTimeout:  sc.ConnectTimeout,
		}, log)
		if err != nil {
			return err
		}
		a.addCloser(func() error { pool.Close(); return nil })
		if err := migrations.RunPostgresMigrations(ctx, pool.Pool, log); err != nil {
			return err
		}
		a.stores = Stores{
			Rules:        postgres.NewRuleStore(pool),
			Transactions: postgres.NewTransactionStore(pool),
			States:       postgres.NewSafetyStateStore(pool),
			Accounts:     postgres.NewAccountStore(pool),
		}
	case BackendSQLite:
		db, err := sqlite.Open(ctx, sc.SQLitePath)
		if err != nil {
			return err
		}
		a.addCloser(db.Close)
		if err := migrations.RunSQLiteMigrations(ctx, db.DB, log); err != nil {
			return err
		}
		a.stores = Stores{
			Rules:        sqlite.NewRuleStore(db),
			Transactions: sqlite.NewTransactionStore(db),
			States:       sqlite.NewSafetyStateStore(db),
			Accounts:     sqlite.NewAccountStore(db),
		}
	default:
		return fmt.Errorf("unknown storage backend %q", sc.Backend)
	}

	if sc.ClickHouseDSN != "" {
		if err := chstore.EnsureDatabase(ctx, sc.ClickHouseDSN); err != nil {
			return err
		}
		conn, err := chstore.NewConn(ctx, sc.ClickHouseDSN)
		if err != nil {
			return err
		}
		a.addCloser(conn.Close)
		if err := migrations.RunClickhouseMigrations(ctx, conn.Conn, log); err != nil {
			return err
		}
		a.stores.Analytics = chstore.NewTransactionStore(conn)
		a.stores.Transactions = storage.NewMirroredTransactionStore(a.stores.Transactions, a.stores.Analytics, a.log)
		log.Info("clickhouse mirror attached")
	}

	log.Info("storage initialized")
	return nil
}

// initializeRedis connects the shared cache when enabled.
func (a *App) initializeRedis(ctx context.Context) error {
	rc := a.config.Redis
	if !rc.Enabled {
		return nil
	}
	client, err := rediscache.New(ctx, rediscache.ClientConfig{
		Addr:       rc.Addr,
		Password:   rc.Password,
		DB:         rc.DB,
		PoolSize:   rc.PoolSize,
		MaxRetries: 3,
		TLSEnabled: rc.TLS,
	})
	if err != nil {
		return err
	}
	a.redis = client
	a.addCloser(client.Close)
	a.log.WithField("addr", rc.Addr).Info("redis connected")
	return nil
}

func (a *App) initializeVault() error {
	if a.vault != nil {
		return nil
	}
	v, err := vault.New(a.config.Vault.Passphrase)
	if err != nil {
		return fmt.Errorf("open vault: %w", err)
	}
	a.vault = v
	return nil
}

// loadTracker builds a tracker seeded with the persisted Safety State.
func (a *App) loadTracker(ctx context.Context) (*safety.Tracker, error) {
	loc, err := a.config.Engine.Location()
	if err != nil {
		return nil, fmt.Errorf("engine timezone: %w", err)
	}
	tracker := safety.NewTracker(loc)

	state, err := a.stores.States.Load(ctx)
	switch {
	case errors.Is(err, storage.ErrNotFound):
	case err != nil:
		return nil, fmt.Errorf("load safety state: %w", err)
	default:
		tracker.Restore(*state)
	}
	return tracker, nil
}

// initializeSafety restores counters and spend from the last run.
func (a *App) initializeSafety(ctx context.Context) error {
	tracker, err := a.loadTracker(ctx)
	if err != nil {
		return err
	}
	a.tracker = tracker

	snap := tracker.Snapshot(a.now())
	observability.SetDailySpent(snap.DailySpent)
	a.log.WithFields(logrus.Fields{
		"daily_spent":    snap.DailySpent,
		"total_attempts": snap.TotalAttempts,
		"reset_date":     snap.LastResetDate,
	}).Info("safety state restored")
	return nil
}

// initializeTrading selects the trader: paper trading in dry run,
// otherwise the PumpPortal trade API with sealed account keys.
func (a *App) initializeTrading() error {
	tc := a.config.Trading
	if a.config.App.DryRun {
		a.trader = execution.NewDryRunTrader(a.log)
		a.log.Warn("dry run: acquisitions are simulated")
		return nil
	}

	if err := a.initializeVault(); err != nil {
		return err
	}

	opts := []pumpportal.TradeOption{
		pumpportal.WithTradeTimeout(tc.Timeout),
		pumpportal.WithDefaultPriorityFee(tc.PriorityFee),
		pumpportal.WithTradeLogger(a.log),
	}
	if tc.FillLookup && tc.RPCURL != "" {
		rpc := solana.NewHTTPClient(tc.RPCURL, solana.WithTimeout(tc.Timeout))
		opts = append(opts, pumpportal.WithFillLookup(solana.NewFillResolver(rpc, 0, tc.FillTimeout)))
	}
	a.trader = pumpportal.NewTradeClient(tc.APIURL, a.vault, opts...)
	return nil
}

// initializeExecution creates the coordinator that fans out over accounts.
func (a *App) initializeExecution() {
	a.coordinator = execution.NewCoordinator(execution.CoordinatorOptions{
		Tracker:      a.tracker,
		Accounts:     a.stores.Accounts,
		Transactions: a.stores.Transactions,
		States:       a.stores.States,
		Trader:       a.trader,
		Now:          a.now,
		Logger:       a.log,
	})
}

// initializeApproval creates the confirmation gate. With Redis the pending
// matches are published and decisions are consumed from the bus.
func (a *App) initializeApproval() {
	var notifier approval.Notifier = approval.LogNotifier{Log: a.log}
	if a.redis != nil {
		rc := a.config.Redis
		a.bus = rediscache.NewApprovalBus(a.redis, rc.PendingChannel, rc.DecisionChannel, a.log)
		notifier = a.bus
	}
	a.gate = approval.NewGate(approval.GateOptions{
		Capacity:      a.config.Engine.ApprovalCapacity,
		Executor:      a.coordinator,
		Notifier:      notifier,
		ShutdownGrace: a.config.Engine.ShutdownGrace,
		Now:           a.now,
		Logger:        a.log,
	})
}

// initializeIngestion connects the creation feed and builds the runner.
func (a *App) initializeIngestion(ctx context.Context) error {
	fc := a.config.Feed
	feed, err := pumpportal.NewFeedClient(ctx, fc.WSURL, &pumpportal.FeedConfig{
		ReconnectDelay:    fc.ReconnectDelay,
		MaxReconnectDelay: fc.MaxReconnectDelay,
		PingInterval:      fc.PingInterval,
		ReadTimeout:       fc.ReadTimeout,
		WriteTimeout:      pumpportal.DefaultFeedConfig().WriteTimeout,
		BufferSize:        fc.BufferSize,
	}, a.log)
	if err != nil {
		return fmt.Errorf("connect feed: %w", err)
	}
	a.feed = feed
	a.addCloser(feed.Close)

	ec := a.config.Enrich
	var resolver enrich.Resolver
	if ec.Enabled {
		var cache enrich.Cache = enrich.NewMemoryCache(0)
		if a.redis != nil {
			cache = rediscache.NewMetadataCache(a.redis)
		}
		resolver = enrich.NewEnricher(enrich.Config{
			Gateways: ec.Gateways,
			Timeout:  ec.Timeout,
			CacheTTL: ec.CacheTTL,
		}, cache, enrich.WithLogger(a.log))
	}

	source := ingestion.NewPumpPortalSource(ingestion.PumpPortalSourceOptions{
		Feed:          feed,
		Resolver:      resolver,
		EnrichWorkers: ec.Workers,
		EnrichTimeout: ec.Timeout,
		BufferSize:    fc.BufferSize,
		Now:           a.now,
		Logger:        a.log,
	})

	var locker ingestion.Locker
	if a.config.Engine.ReserveRules {
		locker = ingestion.NewMemoryLocker()
		if a.redis != nil {
			locker = rediscache.NewLockManager(a.redis)
		}
	}

	ecfg := a.config.Engine
	a.runner = ingestion.NewRunner(ingestion.RunnerOptions{
		Source:        source,
		Rules:         a.stores.Rules,
		Tracker:       a.tracker,
		Executor:      a.coordinator,
		Approvals:     a.gate,
		Locker:        locker,
		LockTTL:       a.config.Redis.LockTTL,
		Workers:       ecfg.EvaluationWorkers,
		SeenCapacity:  ecfg.SeenCapacity,
		ShutdownGrace: ecfg.ShutdownGrace,
		Now:           a.now,
		Logger:        a.log,
	})
	return nil
}

// initializeServer creates the operator API when enabled.
func (a *App) initializeServer() error {
	sc := a.config.Server
	if !sc.Enabled {
		return nil
	}
	accounts, err := a.Accounts()
	if err != nil {
		return err
	}
	a.server = server.New(server.Config{
		Addr:         sc.Addr,
		APIKey:       sc.APIKey,
		ReadTimeout:  sc.ReadTimeout,
		WriteTimeout: sc.WriteTimeout,
	}, server.Deps{
		Rules:        a.Rules(),
		Accounts:     accounts,
		Transactions: a.stores.Transactions,
		Approvals:    a.gate,
		Safety:       a.tracker,
		Metrics:      observability.Handler(),
		Now:          a.now,
	}, a.log)
	return nil
}

// Run starts the engine and blocks until ctx is cancelled or a component fails.
func (a *App) Run(ctx context.Context) error {
	steps := []struct {
		name string
		fn   func() error
	}{
		{"redis", func() error { return a.initializeRedis(ctx) }},
		{"safety", func() error { return a.initializeSafety(ctx) }},
		{"trading", a.initializeTrading},
		{"execution", func() error { a.initializeExecution(); return nil }},
		{"approval", func() error { a.initializeApproval(); return nil }},
		{"ingestion", func() error { return a.initializeIngestion(ctx) }},
		{"server", a.initializeServer},
	}
	for _, step := range steps {
		if err := step.fn(); err != nil {
			return fmt.Errorf("initialize %s: %w", step.name, err)
		}
	}

	a.log.WithFields(logrus.Fields{
		"app":     a.config.App.Name,
		"env":     a.config.App.Environment,
		"dry_run": a.config.App.DryRun,
		"feed":    a.config.Feed.WSURL,
	}).Info("sniper started")

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		err := a.runner.Run(gctx)
		if errors.Is(err, context.Canceled) {
			return nil
		}
		return err
	})

	if a.bus != nil {
		decisions, err := a.bus.Decisions(gctx)
		if err != nil {
			return fmt.Errorf("subscribe decisions: %w", err)
		}
		g.Go(func() error {
			err := a.gate.Run(gctx, decisions)
			if errors.Is(err, context.Canceled) {
				return nil
			}
			return err
		})
	}

	if a.server != nil {
		g.Go(a.server.Start)
		g.Go(func() error {
			<-gctx.Done()
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()
			return a.server.Shutdown(shutdownCtx)
		})
	}

	err := g.Wait()
	a.gate.Shutdown()
	a.persistSafety()
	a.log.Info("sniper stopped")
	return err
}

// persistSafety saves the final counters so the next run resumes them.
func (a *App) persistSafety() {
	if a.tracker == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	snap := a.tracker.Snapshot(a.now())
	if err := a.stores.States.Save(ctx, &snap); err != nil {
		a.log.WithError(err).Error("failed to persist safety state")
	}
}

func (a *App) addCloser(fn func() error) {
	a.closers = append(a.closers, fn)
}

// Close releases resources in reverse order of acquisition.
func (a *App) Close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil && a.log != nil {
			a.log.WithError(err).Warn("close failed")
		}
	}
	a.closers = nil
	if a.logCloser != nil {
		_ = a.logCloser.Close()
		a.logCloser = nil
	}
}
