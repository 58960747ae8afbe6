package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/Gobusters/ectologger"
	"github.com/Gobusters/ectologger/zapadapter"
	migratepg "github.com/golang-migrate/migrate/v4/database/postgres"
	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"
	"github.com/pkg/errors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/contrib/instrumentation/github.com/labstack/echo/otelecho"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/adpulse/adsync/config"
	"github.com/adpulse/adsync/internal/handlers"
	"github.com/adpulse/adsync/pkg/cache"
	"github.com/adpulse/adsync/pkg/database"
	"github.com/adpulse/adsync/pkg/events"
	"github.com/adpulse/adsync/pkg/health"
	"github.com/adpulse/adsync/pkg/metaapi"
	"github.com/adpulse/adsync/pkg/middleware"
	"github.com/adpulse/adsync/pkg/ratelimit"
	"github.com/adpulse/adsync/pkg/repositories"
	"github.com/adpulse/adsync/pkg/scheduler"
	"github.com/adpulse/adsync/pkg/syncer"
	"github.com/adpulse/adsync/pkg/tracing"
	"github.com/adpulse/adsync/pkg/tracing/exporters"
	"github.com/adpulse/adsync/pkg/webhook"
)

// version is stamped at build time via -ldflags
var version = "dev"

func main() {
	if err := run(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}

	logger, err := newLogger(cfg)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if cfg.OTLPEnabled {
		exporter, err := exporters.NewOTLPExporter(ctx, exporters.OTLPConfig{
			Endpoint: cfg.OTLPEndpoint,
			Insecure: cfg.OTLPInsecure,
			Timeout:  10 * time.Second,
		})
		if err != nil {
			return errors.Wrap(err, "failed to create OTLP exporter")
		}
		tp := tracing.Init(cfg.AppName, exporter)
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			_ = tp.Shutdown(shutdownCtx)
		}()
	}

	db, err := connectDatabase(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer db.Close()

	if err := migrate(cfg, db, logger); err != nil {
		return err
	}

	var primary cache.Store
	if cfg.RedisHost != "" {
		store, err := cache.NewRedisStore(cache.RedisConfig{
			Host:     cfg.RedisHost,
			Port:     cfg.RedisPort,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
		}, logger)
		if err != nil {
			// The in-process fallback keeps the service up; redis can
			// rejoin later.
			logger.WithError(err).Warn("Redis unavailable at startup, continuing on in-process cache")
		} else {
			primary = store
		}
	}
	appCache := cache.New(primary, logger)
	defer appCache.Close()

	accountRepo := repositories.NewAccountRepository(db, logger)
	campaignRepo := repositories.NewCampaignRepository(db, logger)
	adsetRepo := repositories.NewAdSetRepository(db, logger)
	adRepo := repositories.NewAdRepository(db, logger)
	insightRepo := repositories.NewInsightRepository(db, logger)
	tokenRepo := repositories.NewTokenRepository(db, logger)
	apiLogRepo := repositories.NewAPILogRepository(db, logger)

	graphClient := metaapi.NewClient(metaapi.Config{
		BaseURL:        cfg.GraphBaseURL,
		Version:        cfg.GraphAPIVersion,
		Timeout:        cfg.GraphRequestTimeout,
		MaxRetries:     cfg.GraphMaxRetries,
		RetryBaseDelay: cfg.GraphRetryBaseDelay,
		RetryMaxDelay:  cfg.GraphRetryMaxDelay,
		FallbackToken:  cfg.GraphSystemToken,
	}, logger)
	graphClient.SetTokenSource(metaapi.NewStoredTokenSource(
		tokenRepo, graphClient, cfg.GraphAppID, cfg.GraphAppSecret, logger,
	))

	emitter := events.NewEmitter(nil, logger)
	if cfg.KafkaEventsEnabled {
		producer := events.NewProducer(events.ProducerConfig{
			Brokers: splitList(cfg.KafkaBrokers),
			Topic:   cfg.KafkaSyncEventsTopic,
		}, logger)
		defer producer.Close()
		emitter = events.NewEmitter(producer, logger)
	}

	syncService := syncer.NewService(
		graphClient,
		accountRepo, campaignRepo, adsetRepo, adRepo, insightRepo, apiLogRepo,
		appCache,
		emitter,
		syncer.Config{
			InsightsWindowDays: cfg.SyncInsightsWindowDays,
			AccountDelay:       cfg.SyncAccountDelay,
			LogRetention:       cfg.APILogRetention,
		},
		logger,
	)

	sched := scheduler.NewScheduler(logger)
	if cfg.SyncEnabled {
		sched.Every(syncer.JobInsights, cfg.SyncInsightsInterval, ignoreBusy(syncService.SyncInsights))
		sched.Every(syncer.JobAccounts, cfg.SyncAccountsInterval, ignoreBusy(syncService.SyncAllAccounts))
		sched.Every(syncer.JobCampaigns, cfg.SyncCampaignsInterval, ignoreBusy(syncService.SyncAllCampaigns))
		sched.Every(syncer.JobCacheCleanup, cfg.SyncCacheCleanupInterval, ignoreBusy(syncService.CleanupCache))
		if err := sched.Start(ctx); err != nil {
			return err
		}
	}

	checker := health.NewChecker(db, appCache, version)

	e := newServer(cfg, logger, db, appCache, checker, syncService, ratelimit.NewLimiter(appCache, logger),
		accountRepo, campaignRepo, adsetRepo, adRepo, insightRepo, apiLogRepo)

	server := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Port),
		ReadTimeout:       time.Duration(cfg.HttpServerReadTimeoutSeconds) * time.Second,
		WriteTimeout:      time.Duration(cfg.HttpServerWriteTimeoutSeconds) * time.Second,
		IdleTimeout:       time.Duration(cfg.HttpServerIdleTimeoutSeconds) * time.Second,
		ReadHeaderTimeout: time.Duration(cfg.ReadHeaderTimeoutSeconds) * time.Second,
		MaxHeaderBytes:    cfg.MaxHeaderBytes,
	}

	errCh := make(chan error, 1)
	go func() {
		if err := e.StartServer(server); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()
	checker.SetReady(true)
	logger.WithFields(map[string]any{
		"port":    cfg.Port,
		"version": version,
	}).Infof("%s listening", cfg.AppName)

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	logger.Info("Shutting down")
	checker.SetReady(false)

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if cfg.SyncEnabled {
		if err := sched.Stop(shutdownCtx); err != nil {
			logger.WithError(err).Warn("Scheduler did not stop cleanly")
		}
	}

	return e.Shutdown(shutdownCtx)
}

func newServer(
	cfg *config.Config,
	logger ectologger.Logger,
	db database.DB,
	appCache *cache.Cache,
	checker *health.Checker,
	syncService *syncer.Service,
	limiter *ratelimit.Limiter,
	accountRepo repositories.AccountRepo,
	campaignRepo repositories.CampaignRepo,
	adsetRepo repositories.AdSetRepo,
	adRepo repositories.AdRepo,
	insightRepo repositories.InsightRepo,
	apiLogRepo repositories.APILogRepo,
) *echo.Echo {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.HTTPErrorHandler = middleware.Error(logger)

	e.Use(middleware.Context())
	e.Use(otelecho.Middleware(cfg.AppName))
	e.Use(middleware.Logger(logger))
	e.Use(echomw.CORSWithConfig(echomw.CORSConfig{
		AllowOrigins: cfg.AllowOrigins,
		AllowMethods: cfg.AllowMethods,
	}))

	e.GET("/health/live", checker.LivenessHandler)
	e.GET("/health/ready", checker.ReadinessHandler)
	e.GET("/health", checker.HealthHandler)
	e.GET("/metrics", echo.WrapHandler(promhttp.Handler()))

	// Webhooks authenticate by payload signature, not by browser headers,
	// so they sit outside the request guard.
	verifier := webhook.NewVerifier(cfg.GraphAppSecret, cfg.GraphWebhookVerifyToken)
	handlers.NewWebhookHandler(verifier, appCache, logger).RegisterRoutes(e.Group(""))

	guard := middleware.NewGuard(limiter, apiLogRepo, middleware.GuardConfig{
		BlockedIPs:        cfg.RequestGuardBlockedIPs,
		BlockedUserAgents: cfg.RequestGuardBlockedUserAgents,
		AllowedOrigins:    cfg.AllowedWebOrigins,
		RateLimit:         cfg.RateLimitMax,
		RateWindow:        cfg.RateLimitWindow,
		MutatingRateLimit: cfg.RateLimitMutatingMax,
	}, logger)

	api := e.Group("/api/v1", guard.Middleware())
	handlers.NewAccountHandler(db, accountRepo, insightRepo, appCache).RegisterRoutes(api)
	handlers.NewCampaignHandler(campaignRepo, adsetRepo, adRepo, appCache).RegisterRoutes(api)
	handlers.NewInsightHandler(insightRepo, appCache).RegisterRoutes(api)
	handlers.NewSyncHandler(syncService).RegisterRoutes(api)

	return e
}

func newLogger(cfg *config.Config) (ectologger.Logger, error) {
	zapCfg := zap.NewProductionConfig()
	if cfg.PrettyLogs {
		zapCfg = zap.NewDevelopmentConfig()
	}
	if level, err := zapcore.ParseLevel(cfg.LogLevel); err == nil {
		zapCfg.Level = zap.NewAtomicLevelAt(level)
	}

	zapLogger, err := zapCfg.Build()
	if err != nil {
		return nil, errors.Wrap(err, "failed to build logger")
	}

	return zapadapter.NewZapEctoLogger(zapLogger, nil), nil
}

// connectDatabase retries with fibonacci backoff so the service survives a
// database that comes up a little after it does
func connectDatabase(ctx context.Context, cfg *config.Config, logger ectologger.Logger) (database.DB, error) {
	dbCfg := database.Config{
		Driver:          cfg.DatabaseDriver,
		Host:            cfg.DatabaseHost,
		Port:            cfg.DatabasePort,
		UserName:        cfg.DatabaseUserName,
		Password:        cfg.DatabasePassword,
		Name:            cfg.DatabaseName,
		SSLMode:         cfg.DatabaseSSLMode,
		MaxOpenConns:    cfg.DatabaseMaxOpenConns,
		MaxIdleConns:    cfg.DatabaseMaxIdleConns,
		ConnMaxLifetime: cfg.DatabaseConnMaxLifetime,
	}

	attempts := cfg.StartupMaxAttempts
	if attempts < 1 {
		attempts = 1
	}

	var lastErr error
	a, b := 1, 1
	for attempt := 1; attempt <= attempts; attempt++ {
		db, err := database.Connect(ctx, dbCfg, logger)
		if err == nil {
			return db, nil
		}
		lastErr = err

		if attempt == attempts {
			break
		}
		logger.WithError(err).Warnf("Database connect attempt %d failed, retrying in %ds", attempt, a)
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(time.Duration(a) * time.Second):
		}
		a, b = b, a+b
	}

	return nil, errors.Wrapf(lastErr, "database unreachable after %d attempts", attempts)
}

func migrate(cfg *config.Config, db database.DB, logger ectologger.Logger) error {
	instance, ok := db.(*database.DatabaseInstance)
	if !ok {
		return errors.New("database does not support migrations")
	}

	driver, err := migratepg.WithInstance(instance.Unwrap().DB, &migratepg.Config{})
	if err != nil {
		return errors.Wrap(err, "failed to create migration driver")
	}

	ms := database.NewMigrationService(logger, &database.MigrationConfig{
		MigrationFolderPath: cfg.DatabaseMigrationFolderPath,
		Version:             uint(cfg.DatabaseMigrationVersion),
		Force:               cfg.DatabaseMigrationForce,
		AutoRollback:        cfg.DatabaseMigrationAutoRollback,
	})
	return ms.Migrate(cfg.DatabaseName, driver)
}

// ignoreBusy adapts a sync method into a scheduler task. A tick that lands
// while the previous run is still going is a skip, not an error.
func ignoreBusy(fn func(ctx context.Context) (*syncer.Result, error)) scheduler.Task {
	return func(ctx context.Context) error {
		_, err := fn(ctx)
		if errors.Is(err, syncer.ErrSyncInProgress) {
			return nil
		}
		return err
	}
}

func splitList(raw string) []string {
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if trimmed := strings.TrimSpace(part); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}
