package main

import (
	"context"
	"crypto/tls"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jackc/pgx/v5/stdlib"
	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"

	"github.com/wolfman30/practice-crm/cmd/mainconfig"
	"github.com/wolfman30/practice-crm/internal/accounts"
	"github.com/wolfman30/practice-crm/internal/api/router"
	appconfig "github.com/wolfman30/practice-crm/internal/config"
	"github.com/wolfman30/practice-crm/internal/curagenesis"
	"github.com/wolfman30/practice-crm/internal/dashboard"
	"github.com/wolfman30/practice-crm/internal/documents"
	"github.com/wolfman30/practice-crm/internal/events"
	httpmiddleware "github.com/wolfman30/practice-crm/internal/http/middleware"
	"github.com/wolfman30/practice-crm/internal/locking"
	"github.com/wolfman30/practice-crm/internal/notify"
	"github.com/wolfman30/practice-crm/internal/observability/metrics"
	"github.com/wolfman30/practice-crm/internal/reps"
	"github.com/wolfman30/practice-crm/internal/submissions"
	"github.com/wolfman30/practice-crm/internal/webhooks"
	"github.com/wolfman30/practice-crm/pkg/logging"
)

func main() {
	_ = godotenv.Load()
	cfg := appconfig.Load()

	logger := logging.New(cfg.LogLevel)
	logger.Info("starting practice-crm API server",
		"env", cfg.Env,
		"port", cfg.Port,
		"curagenesis_dry_run", cfg.CuraGenesisDryRun,
	)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	pool := connectPostgresPool(ctx, cfg.DatabaseURL, logger)
	if pool != nil {
		defer pool.Close()
	} else if cfg.IsProduction() {
		logger.Error("DATABASE_URL is required in production")
		os.Exit(1)
	}

	locker, closeLocker := setupLocker(ctx, cfg, logger)
	defer closeLocker()

	metricsHandler, dispatchMetrics, webhookMetrics := setupMetrics()
	st := buildStores(pool)

	vendor, err := curagenesis.New(curagenesis.Config{
		BaseURL: cfg.CuraGenesisBaseURL,
		APIKey:  cfg.CuraGenesisAPIKey,
		Timeout: cfg.CuraGenesisAPITimeout,
		DryRun:  cfg.CuraGenesisDryRun,
		Logger:  logger,
	})
	if err != nil {
		logger.Error("failed to configure CuraGenesis client", "error", err)
		os.Exit(1)
	}

	cloud := setupAWS(ctx, cfg, logger)

	repSvc := reps.NewService(st.reps, reps.ServiceConfig{
		CorpEmailDomain: cfg.CorpEmailDomain,
		PublicBaseURL:   cfg.PublicBaseURL,
		Tokens:          reps.NewInviteTokens(cfg.InviteTokenSecret, cfg.InviteTTL),
		Logger:          logger,
	})

	dispatcher := submissions.NewDispatcher(submissions.DispatcherDeps{
		Accounts: st.accounts,
		Reps:     repDirectory(repSvc),
		Store:    st.submissions,
		Vendor:   vendor,
		Locker:   locker,
		Metrics:  dispatchMetrics,
		Logger:   logger,
	}, submissions.Config{
		ReuseWindow: cfg.IdempotencyReuseWindow,
		LockTTL:     cfg.DispatchLockTTL,
	})
	bulk := submissions.NewBulkDispatcher(dispatcher.Dispatch, cfg.BulkSendBatchSize, dispatchMetrics, logger)

	emailSender := notify.NewEmailSender(notify.ProviderConfig{
		Provider:  cfg.EmailProvider,
		FromEmail: cfg.EmailFromAddress,
		FromName:  cfg.EmailFromName,
		SendGrid:  cfg.SendGridAPIKey,
		SES:       cloud.ses,

		SESConfigurationSet: cfg.SESConfigurationSet,
	}, logger)
	notifier := notify.NewService(emailSender, st.reps, cfg.PublicBaseURL, logger)

	deliverer := events.NewDeliverer(st.outbox, notifier, logger).WithInterval(cfg.OutboxPollInterval)
	delivererDone := make(chan struct{})
	go func() {
		defer close(delivererDone)
		deliverer.Start(ctx)
	}()

	routerCfg := &router.Config{
		Logger:             logger,
		AuthSecret:         cfg.AdminJWTSecret,
		CORSAllowedOrigins: cfg.CORSAllowedOrigins,
		MetricsHandler:     metricsHandler,
		PublicRateLimiter:  httpmiddleware.NewRateLimiter(1, 5),
		Accounts:           accounts.NewHandler(st.accounts, logger),
		Submissions: submissions.NewHandler(submissions.HandlerConfig{
			Dispatch:   dispatcher.Dispatch,
			Bulk:       bulk,
			Store:      st.submissions,
			Accounts:   st.accounts,
			StaleAfter: cfg.StalePendingAfter,
			Logger:     logger,
		}),
		Documents: documents.NewHandler(st.documents, cloud.objects, logger),
		Reps:      reps.NewHandler(repSvc, logger),
		CuraGenesisWebhook: webhooks.NewCuraGenesisHandler(
			curagenesis.NewVerifier(cfg.CuraGenesisWebhookSecret, 0),
			st.accounts,
			st.processed,
			webhookMetrics,
			logger,
		),
	}
	if pool != nil {
		sqlDB := stdlib.OpenDBFromPool(pool)
		defer func() { _ = sqlDB.Close() }()
		routerCfg.Dashboard = dashboard.NewHandler(sqlDB, cfg.StalePendingAfter, logger)
		routerCfg.HealthCheck = pool.Ping
	}

	srv := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      router.New(routerCfg),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 2 * time.Minute,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		logger.Info("server listening", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("server error", "error", err)
			stop()
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("server forced to shutdown", "error", err)
	}
	<-delivererDone
	logger.Info("server stopped")
}

// storeSet groups the persistence backends. Without a database everything
// lives in memory, which is only suitable for local development.
type storeSet struct {
	accounts    accounts.Repository
	submissions submissions.Store
	reps        reps.Repository
	documents   documents.Store
	processed   events.ProcessedTracker
	outbox      events.Source
}

func buildStores(pool *pgxpool.Pool) storeSet {
	if pool != nil {
		return storeSet{
			accounts:    accounts.NewPostgresRepository(pool),
			submissions: submissions.NewPostgresStore(pool),
			reps:        reps.NewPostgresRepository(pool),
			documents:   documents.NewPostgresStore(pool),
			processed:   events.NewProcessedStore(pool),
			outbox:      events.NewOutboxStore(pool),
		}
	}

	outbox := events.NewMemoryOutbox()
	docs := documents.NewMemoryStore()
	acctRepo := accounts.NewInMemoryRepository()
	subs := submissions.NewMemoryStore(acctRepo, outbox)
	acctRepo.WithSubmissionChecker(subs.HasSubmissions)
	return storeSet{
		accounts:    acctRepo,
		submissions: subs,
		reps:        reps.NewMemoryRepository(docs, outbox),
		documents:   docs,
		processed:   events.NewMemoryProcessedStore(),
		outbox:      outbox,
	}
}

func connectPostgresPool(ctx context.Context, databaseURL string, logger *logging.Logger) *pgxpool.Pool {
	if databaseURL == "" {
		logger.Warn("DATABASE_URL not set, using in-memory stores")
		return nil
	}
	pool, err := pgxpool.New(ctx, databaseURL)
	if err != nil {
		logger.Error("failed to create postgres pool", "error", err)
		os.Exit(1)
	}
	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := pool.Ping(pingCtx); err != nil {
		logger.Error("failed to connect to postgres", "error", err)
		os.Exit(1)
	}
	return pool
}

// setupLocker prefers Redis so concurrent API replicas share dispatch locks.
func setupLocker(ctx context.Context, cfg *appconfig.Config, logger *logging.Logger) (locking.Locker, func()) {
	if cfg.RedisAddr == "" {
		logger.Warn("REDIS_ADDR not set, dispatch locks are process-local")
		return locking.NewLocalLocker(), func() {}
	}
	opts := &redis.Options{Addr: cfg.RedisAddr, Password: cfg.RedisPassword}
	if cfg.RedisTLS {
		opts.TLSConfig = &tls.Config{MinVersion: tls.VersionTLS12}
	}
	client := redis.NewClient(opts)
	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		logger.Error("failed to connect to redis", "addr", cfg.RedisAddr, "error", err)
		os.Exit(1)
	}
	return locking.NewRedisLocker(client, "crm:dispatch:"), func() { _ = client.Close() }
}

func setupMetrics() (http.Handler, *metrics.DispatchMetrics, *metrics.WebhookMetrics) {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	handler := promhttp.HandlerFor(reg, promhttp.HandlerOpts{})
	return handler, metrics.NewDispatchMetrics(reg), metrics.NewWebhookMetrics(reg)
}

type awsClients struct {
	ses     notify.SESAPI
	objects *documents.ObjectStore
}

// setupAWS loads AWS config only when a feature needs it. Documents without a
// bucket answer 503 instead of failing startup.
func setupAWS(ctx context.Context, cfg *appconfig.Config, logger *logging.Logger) awsClients {
	out := awsClients{objects: documents.NewObjectStore(nil, nil, "", logger)}
	needSES := cfg.EmailProvider == "ses"
	if cfg.DocumentsBucket == "" && !needSES {
		return out
	}
	awsCfg, err := mainconfig.LoadAWSConfig(ctx, cfg)
	if err != nil {
		logger.Error("failed to load AWS config", "error", err)
		os.Exit(1)
	}
	if cfg.DocumentsBucket != "" {
		out.objects = documents.NewS3ObjectStore(mainconfig.NewS3Client(awsCfg, cfg), cfg.DocumentsBucket, logger)
	}
	if needSES {
		out.ses = mainconfig.NewSESClient(awsCfg, cfg)
	}
	return out
}

// repDirectory exposes reps to the dispatcher, which only needs the
// name and corporate address.
func repDirectory(svc *reps.Service) submissions.RepDirectoryFunc {
	return func(ctx context.Context, repID string) (*submissions.RepInfo, error) {
		rep, err := svc.Get(ctx, repID)
		if err != nil {
			return nil, err
		}
		email := rep.CorpEmail
		return &submissions.RepInfo{ID: rep.ID, Name: rep.FullName(), Email: &email}, nil
	}
}
