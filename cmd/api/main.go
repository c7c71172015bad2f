package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"contactpulse_backend/internal/activity"
	activityrepo "contactpulse_backend/internal/activity/repository"
	"contactpulse_backend/internal/contactcard"
	"contactpulse_backend/internal/contacts"
	"contactpulse_backend/internal/events"
	apphttp "contactpulse_backend/internal/http"
	"contactpulse_backend/internal/http/router"
	"contactpulse_backend/internal/notification"
	"contactpulse_backend/internal/signals"
	"contactpulse_backend/internal/status"
	"contactpulse_backend/internal/webhook"
	"contactpulse_backend/migrations"
	"contactpulse_backend/platform/config"
	"contactpulse_backend/platform/db"
	"contactpulse_backend/platform/logger"
	"contactpulse_backend/platform/validator"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic("failed to load config: " + err.Error())
	}

	// Initialize structured logger
	log := logger.New(cfg.Env)
	log.Info("starting server", "env", cfg.Env, "addr", cfg.HTTPAddr)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// ========================================================================
	// Infrastructure Layer
	// ========================================================================

	if err := withRetry(ctx, log, "database migrations", 5, 2*time.Second, func() error {
		return db.RunMigrations(ctx, cfg, migrations.FS, ".")
	}); err != nil {
		log.Error("failed to run database migrations", "error", err)
		panic("failed to run database migrations: " + err.Error())
	}
	log.Info("database migrations complete")

	var pool *pgxpool.Pool
	if err := withRetry(ctx, log, "database connection", 5, 2*time.Second, func() error {
		p, err := db.NewPool(ctx, cfg)
		if err != nil {
			return err
		}
		pool = p
		return nil
	}); err != nil {
		log.Error("failed to connect to database", "error", err)
		panic("failed to connect to database: " + err.Error())
	}
	defer pool.Close()
	log.Info("database connection established")

	// Event bus for decoupled communication between modules
	eventBus := events.NewInMemoryBus(log)

	// Shared validator instance for dependency injection
	val := validator.New()

	// Shared activity log reader for the modules that derive state from it
	activityReader := activityrepo.New(pool)

	// ========================================================================
	// Domain Modules (Composition Root)
	// ========================================================================

	contactsModule := contacts.NewModule(pool, val, cfg, log)
	statusModule := status.NewModule(pool, eventBus, val, cfg, log, activityReader)
	activityModule := activity.NewModule(pool, eventBus, val, cfg, log, contactsModule.Service(), statusModule.Service())

	// Close the ingestion loops: manual override and task completion are
	// themselves activities, appended through the activity service.
	statusModule.Service().BindAppender(activityModule.Service())
	contactsModule.Service().BindRecorder(activityModule.Service())

	signalsModule := signals.NewModule(pool, eventBus, log, activityReader)

	cardModule, err := contactcard.NewModule(
		contactsModule.Service(),
		activityReader,
		statusModule.Repository(),
		signalsModule.Service(),
		contactsModule.Tasks(),
		cfg,
		log,
	)
	if err != nil {
		log.Error("failed to initialize contact card module", "error", err)
		panic("failed to initialize contact card module: " + err.Error())
	}

	webhookModule := webhook.NewModule(pool, eventBus, val, log, activityModule.Service(), contactsModule.Service())

	modules := []apphttp.Module{
		contactsModule,
		activityModule,
		statusModule,
		signalsModule,
		cardModule,
		webhookModule,
	}

	notificationModule, closeNotifier := initNotifier(cfg, eventBus, activityReader, log)
	if closeNotifier != nil {
		defer closeNotifier()
	}
	if notificationModule != nil {
		modules = append(modules, notificationModule)
	}

	// ========================================================================
	// HTTP Layer
	// ========================================================================

	app := &apphttp.App{
		Config:   cfg,
		Logger:   log,
		Health:   db.NewPoolAdapter(pool),
		EventBus: eventBus,
		Modules:  modules,
	}

	engine := router.New(app)

	srvErr := make(chan error, 1)
	go func() {
		log.Info("server listening", "addr", cfg.HTTPAddr)
		srvErr <- engine.Run(cfg.HTTPAddr)
	}()

	select {
	case <-ctx.Done():
		log.Info("shutdown signal received, gracefully shutting down")
	case err := <-srvErr:
		if err != nil {
			log.Error("server error", "error", err)
			panic("server error: " + err.Error())
		}
	}
}

// initNotifier wires the contact card change notifier when Redis is
// configured. Without Redis the API still serves requests; clients just get
// no push updates.
func initNotifier(cfg *config.Config, eventBus events.Bus, versions *activityrepo.Repository, log *logger.Logger) (*notification.Module, func()) {
	if cfg.GetRedisURL() == "" {
		log.Warn("REDIS_URL not configured; change notifications disabled")
		return nil, nil
	}

	opt, err := redis.ParseURL(cfg.GetRedisURL())
	if err != nil {
		log.Error("failed to parse redis url", "error", err)
		return nil, nil
	}

	redisClient := redis.NewClient(opt)
	module := notification.NewModule(redisClient, eventBus, cfg, log, versions)

	return module, func() {
		module.Close()
		_ = redisClient.Close()
	}
}

func withRetry(ctx context.Context, log *logger.Logger, name string, attempts int, baseDelay time.Duration, fn func() error) error {
	if attempts < 1 {
		return fmt.Errorf("%s: invalid retry attempts", name)
	}

	var lastErr error
	for attempt := 1; attempt <= attempts; attempt++ {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if err := fn(); err == nil {
			return nil
		} else {
			lastErr = err
			log.Warn("retryable operation failed", "operation", name, "attempt", attempt, "error", err)
		}

		if attempt < attempts {
			delay := time.Duration(attempt*attempt) * baseDelay
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(delay):
			}
		}
	}

	return errors.New(name + ": " + lastErr.Error())
}
