package app

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/MrSnakeDoc/newsdesk/internal/auth"
	"github.com/MrSnakeDoc/newsdesk/internal/config"
	"github.com/MrSnakeDoc/newsdesk/internal/extract"
	"github.com/MrSnakeDoc/newsdesk/internal/httpserver"
	"github.com/MrSnakeDoc/newsdesk/internal/httpserver/deps"
	"github.com/MrSnakeDoc/newsdesk/internal/logger"
	"github.com/MrSnakeDoc/newsdesk/internal/moderation"
	"github.com/MrSnakeDoc/newsdesk/internal/normalize"
	"github.com/MrSnakeDoc/newsdesk/internal/publish"
	"github.com/MrSnakeDoc/newsdesk/internal/scheduler"
	"github.com/MrSnakeDoc/newsdesk/internal/sources"
	"github.com/MrSnakeDoc/newsdesk/internal/store/memory"
	"github.com/MrSnakeDoc/newsdesk/internal/store/mongostore"
	redisstore "github.com/MrSnakeDoc/newsdesk/internal/store/redis"
	"github.com/MrSnakeDoc/newsdesk/internal/store/sqlstore"
	"github.com/MrSnakeDoc/newsdesk/internal/utils"
	"github.com/MrSnakeDoc/newsdesk/internal/version"
)

// Backend is everything the pipeline persists: collections, the seen-set,
// the public feed and the scheduler state.
type Backend interface {
	moderation.Store
	moderation.SeenSet
	publish.FeedStore
	scheduler.StateStore
	deps.Backend
	io.Closer
}

type App struct {
	cfg       *config.Config
	logger    logger.Logger
	server    *httpserver.Server
	store     Backend
	queue     *moderation.Queue
	collector *scheduler.Collector
}

func New() *App {
	cfg := config.Load()

	loggerClient := logger.New(cfg.LogLevel, cfg.PrettyLog)

	// Initialize the store early - fail fast if unavailable
	store, err := openStore(context.Background(), cfg, loggerClient)
	if err != nil {
		loggerClient.Errorf("Failed to open %s store: %v", cfg.Store, err)
		os.Exit(1)
	}
	loggerClient.Info("store initialized", logger.String("backend", store.Name()))

	registry := sources.NewRegistry(cfg.SourcesFile)
	if err := registry.Reload(); err != nil {
		// the collector retries at every cycle; /readyz reports the empty registry
		loggerClient.Warn("failed to load sources, starting with none",
			logger.String("file", cfg.SourcesFile), logger.Error(err))
	} else {
		loggerClient.Info("sources loaded",
			logger.Int("count", registry.Count()), logger.Int("active", len(registry.Active())))
	}

	extractor := extract.New(extract.Options{
		UserAgent:      cfg.UserAgent,
		AcceptLanguage: cfg.AcceptLanguage,
		Timeout:        cfg.FetchTimeout,
		MaxItems:       cfg.MaxItems,
		RespectRobots:  cfg.RespectRobots,
		RobotsTTL:      cfg.RobotsTTL,
	}, loggerClient.Named("extract"))

	loc := cfg.Location()
	normalizer := normalize.New(normalize.Options{
		SummaryLimit:    cfg.SummaryLimit,
		PlaceholderBase: cfg.PlaceholderBase,
		Location:        loc,
		Categories:      registry.Categories,
	})

	sink := publish.NewSink(store, cfg.FeedCapacity, loggerClient.Named("publish"))

	queue := moderation.NewQueue(store, store, sink, loggerClient.Named("moderation"), moderation.Options{})
	if err := queue.Restore(context.Background()); err != nil {
		loggerClient.Errorf("Failed to restore moderation queue: %v", err)
		os.Exit(1)
	}

	collector := scheduler.NewCollector(registry, extractor, normalizer, queue, store, loggerClient.Named("collector"), scheduler.Config{
		Interval:    cfg.ScrapeInterval,
		SourcePause: cfg.SourcePause,
		RunOnStart:  cfg.ScrapeOnStart,
	})
	if err := collector.RestoreState(context.Background()); err != nil {
		loggerClient.Warn("failed to restore last cycle, cache age unknown", logger.Error(err))
	}

	guard := auth.New(auth.Config{
		Username:    cfg.OperatorUser,
		Password:    cfg.OperatorPassword,
		StaticToken: cfg.OperatorToken,
		SessionTTL:  cfg.SessionTTL,
	})

	httpLog := loggerClient.Named("http")
	d := deps.Deps{
		Logger:       httpLog,
		StartTime:    time.Now(),
		Version:      version.Version,
		Commit:       version.Commit,
		BuildDate:    version.BuildDate,
		GoVersion:    version.GoVersion,
		TimeNow:      func() time.Time { return time.Now().In(loc) },
		AllowedHosts: cfg.AllowedHosts,
		AllowedCIDRS: cfg.AllowedCIDRS,
		TrustProxy:   cfg.TrustProxy,
		Queue:        queue,
		Sink:         sink,
		Sources:      registry,
		Collector:    collector,
		Guard:        guard,
		Backend:      store,
		LoginLimit:   deps.RateLimit{Burst: cfg.LoginBurst, PerMin: cfg.LoginPerMin},
		RefreshLimit: deps.RateLimit{Burst: cfg.RefreshBurst, PerMin: cfg.RefreshPerMin},
		CycleTimeout: cfg.CycleTimeout,
	}

	server := httpserver.New(httpserver.Options{
		Addr:           cfg.ListenPort,
		RequestTimeout: cfg.RequestTimeout,
	}, httpLog, d)

	return &App{
		cfg:       cfg,
		logger:    loggerClient,
		server:    server,
		store:     store,
		queue:     queue,
		collector: collector,
	}
}

// openStore selects the persistence backend from cfg.Store
func openStore(ctx context.Context, cfg *config.Config, log logger.Logger) (Backend, error) {
	switch cfg.Store {
	case config.StoreRedis:
		log.Infof("Connecting to Redis at %s", cfg.RedisAddr)
		return redisstore.Connect(ctx, redisstore.ConnectOptions{
			Addr:           cfg.RedisAddr,
			User:           cfg.RedisUser,
			Password:       cfg.RedisPassword,
			DB:             cfg.RedisDB,
			DialTimeout:    cfg.RedisDT,
			ReadTimeout:    cfg.RedisRT,
			WriteTimeout:   cfg.RedisWT,
			PoolSize:       cfg.RedisPoolSize,
			ConnectTimeout: cfg.RedisConnectTimeout,
			RetryInterval:  cfg.RedisRetryInterval,
			MaxWait:        cfg.RedisMaxWait,
			PingTimeout:    cfg.RedisPingTimeout,
			WarnThreshold:  cfg.RedisWarnThreshold,
		}, log)
	case config.StoreSQLite:
		log.Infof("Opening SQLite database at %s", cfg.SQLitePath)
		return sqlstore.Open(ctx, sqlstore.DriverSQLite, cfg.SQLitePath)
	case config.StorePostgres:
		log.Info("Connecting to PostgreSQL")
		return sqlstore.Open(ctx, sqlstore.DriverPostgres, cfg.PostgresDSN)
	case config.StoreMongo:
		log.Infof("Connecting to MongoDB database %s", cfg.MongoDB)
		connectCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
		defer cancel()
		return mongostore.Connect(connectCtx, cfg.MongoURI, cfg.MongoDB)
	case config.StoreMemory:
		log.Warn("using the in-memory store, nothing survives a restart")
		return memory.New(), nil
	default:
		return nil, fmt.Errorf("unknown store %q", cfg.Store)
	}
}

func (a *App) Run() error {
	a.logger.Infof("🚀 Starting Newsdesk v%s on %s", version.Version, a.cfg.ListenPort)
	a.logger.Infof("Newsdesk %s", version.String())

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Start the collector (optional startup cycle, then every interval)
	a.collector.Start(ctx)
	a.logger.Info("collector started",
		logger.Duration("interval", a.cfg.ScrapeInterval),
		logger.Bool("run_on_start", a.cfg.ScrapeOnStart))

	errCh := make(chan error, 1)
	go func() {
		if err := a.server.Start(); err != nil {
			errCh <- fmt.Errorf("http server error: %w", err)
		}
	}()

	select {
	case <-ctx.Done():
		a.logger.Info("⏳ Shutting down gracefully...")
	case err := <-errCh:
		a.collector.Stop()
		waitCtx, cancel := context.WithTimeout(context.Background(), a.cfg.ShutdownTimeout)
		defer cancel()
		a.closeStore(waitCtx)
		return err
	}

	// Stop collector; an in-flight cycle is cancelled and drained before the store closes
	a.collector.Stop()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), a.cfg.ShutdownTimeout)
	defer cancel()
	serverErr := a.server.Stop(shutdownCtx)
	a.closeStore(shutdownCtx)
	if serverErr != nil {
		return fmt.Errorf("failed to stop server: %w", serverErr)
	}

	a.logger.Info("✅ Newsdesk stopped cleanly")
	_ = a.logger.Sync()
	return nil
}

// closeStore waits for the collector to drain, then closes the backend.
func (a *App) closeStore(ctx context.Context) {
	if err := a.collector.Wait(ctx); err != nil {
		a.logger.Warn("collector did not drain before shutdown deadline", logger.Error(err))
	}
	utils.MustClose(a.logger, a.store.Name(), a.store)
}
