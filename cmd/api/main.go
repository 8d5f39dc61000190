package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	httptransport "github.com/spec-kit/collections-sequencer/internal/api/http"
	"github.com/spec-kit/collections-sequencer/internal/api/http/handlers"
	"github.com/spec-kit/collections-sequencer/internal/auth"
	"github.com/spec-kit/collections-sequencer/internal/config"
	"github.com/spec-kit/collections-sequencer/internal/events"
	"github.com/spec-kit/collections-sequencer/internal/locks"
	"github.com/spec-kit/collections-sequencer/internal/observability"
	"github.com/spec-kit/collections-sequencer/internal/persistence"
	"github.com/spec-kit/collections-sequencer/internal/repository"
	"github.com/spec-kit/collections-sequencer/internal/service"
	"github.com/spec-kit/collections-sequencer/internal/worker"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	logger, err := observability.NewLogger(cfg.Logger)
	if err != nil {
		log.Fatalf("failed to init logger: %v", err)
	}
	defer logger.Sync() //nolint:errcheck

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	pg, err := persistence.NewPostgres(ctx, cfg.Postgres, logger)
	if err != nil {
		logger.Fatal("failed to connect postgres", zap.Error(err))
	}
	defer pg.Close()

	if cfg.Postgres.RunMigrations {
		if err := persistence.RunMigrations(ctx, pg.PoolHandle(), logger); err != nil {
			logger.Fatal("failed to run migrations", zap.Error(err))
		}
	}

	redis := persistence.NewRedis(cfg.Redis, logger)
	defer redis.Close()

	metrics := observability.NewMetrics()
	dispatcher := events.NewInMemoryDispatcher(logger)

	pool := pg.PoolHandle()
	sequenceRepo := repository.NewSequenceRepository(pool)
	paymentRepo := repository.NewPaymentRepository(pool)
	historyRepo := repository.NewHistoryRepository(pool)

	sequenceService := service.NewSequenceService(service.SequenceDependencies{
		SequenceRepo: sequenceRepo,
		PaymentRepo:  paymentRepo,
		HistoryRepo:  historyRepo,
		Dispatcher:   dispatcher,
		Locks:        locks.NewAccountLocks(),
		Collections:  cfg.Collections,
	})
	authService := service.NewAuthService(cfg.Auth)
	notificationService := service.NewNotificationService(dispatcher, logger, cfg.Messaging)
	notificationService.RegisterHandlers()

	ticker := worker.NewTickWorker(sequenceService, logger, metrics, cfg.Collections.TickParallelism)

	authMiddleware := auth.NewAuthMiddleware(authService.TokenManager())

	app := fiber.New()
	httptransport.RegisterMiddlewares(app, logger, metrics, cfg.App.RequestTimeout())

	httptransport.RegisterRoutes(app, httptransport.RouteConfig{
		Health:         handlers.NewHealthHandler(cfg.App.Name, cfg.App.Version, pg, redis, metrics),
		Auth:           handlers.NewAuthHandler(authService),
		Sequences:      handlers.NewSequencesHandler(sequenceService),
		Admin:          handlers.NewAdminHandler(sequenceService, ticker),
		AuthMiddleware: authMiddleware,
	})

	go func() {
		if err := app.Listen(cfg.App.Addr()); err != nil {
			logger.Fatal("fiber listen", zap.Error(err))
		}
	}()

	waitForShutdown(logger)

	_ = app.Shutdown()
}

func waitForShutdown(logger *zap.Logger) {
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	sig := <-sigCh
	logger.Info("shutting down", zap.String("signal", sig.String()))
}
