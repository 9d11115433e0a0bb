package app

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	goredis "github.com/redis/go-redis/v9"

	"github.com/MrSnakeDoc/taust/internal/config"
	"github.com/MrSnakeDoc/taust/internal/domain"
	"github.com/MrSnakeDoc/taust/internal/httpserver"
	"github.com/MrSnakeDoc/taust/internal/httpserver/deps"
	"github.com/MrSnakeDoc/taust/internal/index"
	"github.com/MrSnakeDoc/taust/internal/logger"
	"github.com/MrSnakeDoc/taust/internal/redis"
	"github.com/MrSnakeDoc/taust/internal/scheduler"
	"github.com/MrSnakeDoc/taust/internal/status"
	redisstore "github.com/MrSnakeDoc/taust/internal/store/redis"
	"github.com/MrSnakeDoc/taust/internal/store/sqlstore"
	"github.com/MrSnakeDoc/taust/internal/version"
)

type App struct {
	cfg         *config.Config
	logger      logger.Logger
	server      *httpserver.Server
	db          *sql.DB
	redisClient *goredis.Client
	reloader    *scheduler.CatalogReloader // nil without a catalog file
	retention   *scheduler.MetricRetention
}

// metricBackend is what the service and the retention worker need from a
// metric store.
type metricBackend interface {
	status.MetricStore
	scheduler.MetricPruner
	deps.Pinger
}

func New() *App {
	cfg := config.Load()

	loggerClient := logger.New(cfg.LogLevel, cfg.PrettyLog)
	ctx := context.Background()

	// Database first - pages, servers and announcements live there
	dialect, err := sqlstore.ParseDialect(cfg.DBDriver)
	if err != nil {
		loggerClient.Errorf("Invalid database driver: %v", err)
		os.Exit(1)
	}
	db, err := sqlstore.Open(ctx, sqlstore.Options{
		Dialect: dialect,
		DSN:     cfg.DBDSN,
		Retry:   cfg.Retry(),
	}, loggerClient)
	if err != nil {
		loggerClient.Errorf("Failed to open database: %v", err)
		os.Exit(1)
	}
	repo := sqlstore.NewRepository(db, dialect)
	loggerClient.Info("database initialized successfully", logger.String("driver", string(dialect)))

	// Metrics go to Redis when configured, else stay in memory
	var (
		metrics     metricBackend
		cache       status.SummaryCache
		redisClient *goredis.Client
		metricsMode = "memory"
	)
	if cfg.RedisAddr != "" {
		loggerClient.Infof("Connecting to Redis at %s", cfg.RedisAddr)
		redisClient, err = redis.New(ctx, redis.ConnectOptions{
			Addr:         cfg.RedisAddr,
			User:         cfg.RedisUser,
			Password:     cfg.RedisPassword,
			RedisDB:      cfg.RedisDB,
			DialTimeout:  cfg.RedisDT,
			ReadTimeout:  cfg.RedisRT,
			WriteTimeout: cfg.RedisWT,
			PoolSize:     cfg.RedisPoolSize,
			Retry:        cfg.Retry(),
		}, loggerClient)
		if err != nil {
			loggerClient.Errorf("Failed to connect to Redis: %v", err)
			_ = db.Close()
			os.Exit(1)
		}
		store := redisstore.NewStore(redisClient, cfg.MetricHistory)
		// Summaries computed under a previous policy must not be served
		if err := store.FlushSummaries(ctx); err != nil {
			loggerClient.Warn("failed to flush cached summaries", logger.Error(err))
		}
		metrics, cache, metricsMode = store, store, "redis"
	} else {
		loggerClient.Warn("TAUST_REDIS_ADDR not set, metrics are kept in memory and lost on restart")
		metrics = index.NewMemoryMetrics(cfg.MetricHistory)
	}

	svc := status.NewService(repo, metrics, cache, status.Options{
		Policy: domain.SchedulePolicy{
			Location:          cfg.Location,
			MaintenanceWindow: cfg.MaintenanceWindow,
		},
		HistoryDays:    cfg.HistoryDays,
		StaleThreshold: cfg.StaleThreshold,
		CacheTTL:       cfg.StatusCacheTTL,
		RecentLimit:    cfg.RecentMetrics,
	}, loggerClient)

	retention := scheduler.NewMetricRetention(
		metrics,
		loggerClient,
		cfg.RetentionInterval,
		cfg.MetricRetention,
	)

	// Initialize catalog reloader (if a catalog file is configured)
	var (
		reloader      *scheduler.CatalogReloader
		reloadTrigger chan struct{}
		reloadStatus  deps.ReloadStatus
	)
	if cfg.CatalogFile != "" {
		loggerClient.Info("catalog file configured, initializing catalog reloader",
			logger.String("file", cfg.CatalogFile))
		reloadTrigger = make(chan struct{}, 1)
		reloader = scheduler.NewCatalogReloader(
			cfg.CatalogFile,
			svc,
			loggerClient,
			cfg.ReloadInterval,
			reloadTrigger,
		)
		reloadStatus = reloader
	} else {
		loggerClient.Info("catalog file not configured, pages are managed through the API only")
	}

	d := deps.Deps{
		Logger:       loggerClient,
		StartTime:    time.Now(),
		Build:        version.Current(),
		TimeNow:      time.Now,
		AllowedHosts: cfg.AllowedHosts,
		AllowedCIDRS: cfg.AllowedCIDRS,
		TrustProxy:   cfg.TrustProxy,
		Status:       svc,
		Checks: []deps.Check{
			{Name: "database", Mode: string(dialect), Pinger: repo, Critical: true},
			{Name: "metrics", Mode: metricsMode, Pinger: metrics, Critical: true},
		},
		ReloadTrigger:      reloadTrigger,
		Reloader:           reloadStatus,
		IngestBurst:        cfg.IngestBurst,
		IngestRefillPerMin: cfg.IngestRefillPerMin,
	}

	server := httpserver.New(cfg, loggerClient, d)

	return &App{
		cfg:         cfg,
		logger:      loggerClient,
		server:      server,
		db:          db,
		redisClient: redisClient,
		reloader:    reloader,
		retention:   retention,
	}
}

func (a *App) Run() error {
	a.logger.Infof("🚀 Starting taust v%s on %s", version.Version, a.cfg.ListenPort)
	a.logger.Infof("taust %s (commit=%s, built=%s, go=%s)",
		version.Version, version.Commit, version.BuildDate, version.GoVersion)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Start catalog reloader (if enabled)
	if a.reloader != nil {
		if err := a.reloader.Start(ctx); err != nil {
			return fmt.Errorf("failed to start catalog reloader: %w", err)
		}
		a.logger.Info("catalog reloader started",
			logger.Duration("interval", a.cfg.ReloadInterval))
	}

	// Start metric retention
	if err := a.retention.Start(ctx); err != nil {
		return fmt.Errorf("failed to start metric retention: %w", err)
	}
	a.logger.Info("metric retention started",
		logger.Duration("interval", a.cfg.RetentionInterval),
		logger.Duration("retention", a.cfg.MetricRetention))

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
		return err
	}

	if a.reloader != nil {
		a.reloader.Stop()
	}
	a.retention.Stop()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), a.cfg.ShutdownTimeout)
	defer cancel()
	if err := a.server.Stop(shutdownCtx); err != nil {
		return fmt.Errorf("failed to stop server: %w", err)
	}

	if a.redisClient != nil {
		if err := a.redisClient.Close(); err != nil {
			a.logger.Warnf("failed to close redis: %v", err)
		} else {
			a.logger.Info("✅ Redis closed cleanly")
		}
	}

	if err := a.db.Close(); err != nil {
		a.logger.Warnf("failed to close database: %v", err)
	} else {
		a.logger.Info("✅ Database closed cleanly")
	}

	a.logger.Info("✅ taust stopped cleanly")
	return nil
}
