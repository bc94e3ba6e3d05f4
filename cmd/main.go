package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/senyabanana/freelance-service/internal/auth"
	"github.com/senyabanana/freelance-service/internal/db"
	"github.com/senyabanana/freelance-service/internal/events"
	"github.com/senyabanana/freelance-service/internal/handlers"
	"github.com/senyabanana/freelance-service/internal/jobs"
	"github.com/senyabanana/freelance-service/internal/logging"
	"github.com/senyabanana/freelance-service/internal/metrics"
	"github.com/senyabanana/freelance-service/internal/presence"
	"github.com/senyabanana/freelance-service/internal/repository"
	"github.com/senyabanana/freelance-service/internal/repository/memstore"
	"github.com/senyabanana/freelance-service/internal/router"
	"github.com/senyabanana/freelance-service/internal/router/config"
	"github.com/senyabanana/freelance-service/internal/services"
	"github.com/senyabanana/freelance-service/internal/storage"

	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/source/file"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

func main() {
	cfg, err := config.LoadConfig(".")
	if err != nil {
		log.Fatal("cannot load config:", err)
	}

	logger, err := logging.New(cfg.LogLevel, cfg.LogFormat)
	if err != nil {
		log.Fatal("cannot build logger:", err)
	}
	defer logger.Sync()
	zap.ReplaceGlobals(logger)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	store, closeStore := openStore(ctx, cfg, logger)
	defer closeStore()

	m := metrics.New()
	notifier := services.NewNotifier(m)
	deadlines := services.NewDeadlineService(store, notifier, m, logger)

	if len(os.Args) > 1 {
		runCommand(ctx, os.Args[1], deadlines, cfg, logger)
		return
	}

	blobs := openBlobStore(cfg, logger)
	tokens := auth.NewTokenIssuer(cfg.JWTSecret, cfg.JWTTTL)
	tracker := presence.NewTracker(store.Users(), openPresenceGate(ctx, cfg, logger), cfg.LastSeenDebounce, logger)

	timeout := cfg.RequestTimeout
	routes := router.InitRoutes(router.Handlers{
		Accounts: handlers.NewAccountHandler(services.NewAccountService(store.Users(), tokens), logger, timeout),
		Competitions: handlers.NewCompetitionHandler(
			services.NewCompetitionService(store, notifier, m), logger, timeout),
		Proposals: handlers.NewProposalHandler(
			services.NewProposalService(store, notifier, blobs, cfg.AttachmentMaxBytes, logger), logger, timeout),
		Feedback:      handlers.NewFeedbackHandler(services.NewReviewService(store, notifier), logger, timeout),
		Notifications: handlers.NewNotificationHandler(services.NewNotificationService(store.Notifications()), logger, timeout),
		Payments:      handlers.NewPaymentHandler(services.NewPaymentService(store.Payments()), logger, timeout),
	}, router.Options{
		Tokens:         tokens,
		Presence:       tracker,
		Metrics:        m,
		Limiter:        router.NewRateLimiter(cfg.RateLimitRPS, cfg.RateLimitBurst, logger),
		AllowedOrigins: cfg.AllowedOrigins(),
		Logger:         logger,
	})

	dispatcher := events.NewDispatcher(store.Outbox(), openPublisher(cfg, logger), cfg.EventsExchange, cfg.OutboxPollInterval, logger, m)
	go dispatcher.Run(ctx)

	scheduler := jobs.NewScheduler(ctx, deadlines, jobs.Schedule{
		Sweep:          cfg.SweepSchedule,
		Reminder:       cfg.ReminderSchedule,
		ReminderWindow: cfg.ReminderWindow,
	}, logger)
	if err := scheduler.Start(); err != nil {
		logger.Fatal("cannot start scheduler", zap.Error(err))
	}

	srv := &http.Server{
		Addr:              cfg.ServerAddress,
		Handler:           routes,
		ReadHeaderTimeout: 10 * time.Second,
	}
	go func() {
		logger.Info("server is listening", zap.String("addr", cfg.ServerAddress))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("server failed", zap.Error(err))
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("server shutdown failed", zap.Error(err))
	}
	select {
	case <-scheduler.Stop().Done():
	case <-shutdownCtx.Done():
		logger.Warn("scheduled jobs did not finish before shutdown")
	}
}

// runCommand выполняет пакетную задачу однократно, например из внешнего cron.
func runCommand(ctx context.Context, name string, deadlines *services.DeadlineService, cfg config.Config, logger *zap.Logger) {
	switch name {
	case "sweep":
		moved, err := deadlines.Sweep(ctx)
		if err != nil {
			logger.Fatal("deadline sweep failed", zap.Int("moved", moved), zap.Error(err))
		}
		logger.Info("deadline sweep finished", zap.Int("moved", moved))
	case "remind":
		sent, err := deadlines.Remind(ctx, cfg.ReminderWindow)
		if err != nil {
			logger.Fatal("deadline reminder failed", zap.Int("sent", sent), zap.Error(err))
		}
		logger.Info("deadline reminder finished", zap.Int("sent", sent))
	default:
		logger.Fatal("unknown command", zap.String("command", name))
	}
}

func openStore(ctx context.Context, cfg config.Config, logger *zap.Logger) (repository.Store, func()) {
	if cfg.StoreDriver == config.MemoryDriver {
		logger.Warn("using in-memory store, data will not survive a restart")
		return memstore.New(), func() {}
	}

	runDBMigration(cfg.MigrationURL, cfg.DSN(), logger)

	dbPool, err := db.InitDb(ctx, cfg)
	if err != nil {
		logger.Fatal("error initializing database", zap.Error(err))
	}
	return repository.NewPostgresStore(dbPool), dbPool.Close
}

func openBlobStore(cfg config.Config, logger *zap.Logger) *storage.BlobStore {
	if cfg.StoreDriver == config.MemoryDriver {
		return storage.NewMemBlobStore()
	}
	blobs, err := storage.NewBlobStore(cfg.AttachmentDir)
	if err != nil {
		logger.Fatal("cannot open attachment storage", zap.String("dir", cfg.AttachmentDir), zap.Error(err))
	}
	return blobs
}

func openPresenceGate(ctx context.Context, cfg config.Config, logger *zap.Logger) presence.Gate {
	if cfg.RedisURL == "" {
		return presence.NewLocalGate()
	}
	opts, err := redis.ParseURL(cfg.RedisURL)
	if err != nil {
		logger.Fatal("invalid REDIS_URL", zap.Error(err))
	}
	client := redis.NewClient(opts)
	if err := client.Ping(ctx).Err(); err != nil {
		logger.Warn("redis unavailable, falling back to local presence gate", zap.Error(err))
		client.Close()
		return presence.NewLocalGate()
	}
	return presence.NewRedisGate(client, "")
}

func openPublisher(cfg config.Config, logger *zap.Logger) events.Publisher {
	if cfg.RabbitMQURL == "" {
		return &events.FallbackPublisher{Logger: logger}
	}
	producer, err := events.NewEventProducer(cfg.RabbitMQURL)
	if err != nil {
		logger.Error("cannot connect to broker, events will be dropped", zap.Error(err))
		return &events.FallbackPublisher{Logger: logger}
	}
	return producer
}

func runDBMigration(migrationURL string, dbSource string, logger *zap.Logger) {
	migration, err := migrate.New(migrationURL, dbSource)
	if err != nil {
		logger.Fatal("cannot create a new migrate instance", zap.Error(err))
	}

	if err = migration.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		logger.Fatal("failed to run migrate up", zap.Error(err))
	}
	logger.Info("db migrated successfully")
}
