package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/robfig/cron/v3"
	"go.uber.org/zap"

	"github.com/spec-kit/collections-sequencer/internal/config"
	"github.com/spec-kit/collections-sequencer/internal/events"
	"github.com/spec-kit/collections-sequencer/internal/locks"
	"github.com/spec-kit/collections-sequencer/internal/observability"
	"github.com/spec-kit/collections-sequencer/internal/persistence"
	"github.com/spec-kit/collections-sequencer/internal/repository"
	"github.com/spec-kit/collections-sequencer/internal/service"
	"github.com/spec-kit/collections-sequencer/internal/worker"
)

const tickLeaseKey = "collections:tick-lease"

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

	redis := persistence.NewRedis(cfg.Redis, logger)
	defer redis.Close()

	pool := pg.PoolHandle()
	sequenceService := service.NewSequenceService(service.SequenceDependencies{
		SequenceRepo: repository.NewSequenceRepository(pool),
		PaymentRepo:  repository.NewPaymentRepository(pool),
		HistoryRepo:  repository.NewHistoryRepository(pool),
		Dispatcher:   events.NewInMemoryDispatcher(logger),
		Locks:        locks.NewAccountLocks(),
		Collections:  cfg.Collections,
	})

	ticker := worker.NewTickWorker(sequenceService, logger, observability.NewMetrics(), cfg.Collections.TickParallelism)
	instanceID := uuid.NewString()

	scheduler := cron.New()
	_, err = scheduler.AddFunc(cfg.Collections.TickCron, func() {
		runBatch(ctx, logger, redis, ticker, sequenceService, instanceID)
	})
	if err != nil {
		logger.Fatal("invalid tick cron expression",
			zap.String("cron", cfg.Collections.TickCron), zap.Error(err))
	}

	scheduler.Start()
	logger.Info("scheduler started",
		zap.String("cron", cfg.Collections.TickCron),
		zap.String("instance_id", instanceID))

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	sig := <-sigCh
	logger.Info("shutting down", zap.String("signal", sig.String()))

	<-scheduler.Stop().Done()
}

// runBatch acquires a short Redis lease so only one scheduler instance runs
// the daily batch, then ticks every active sequence.
func runBatch(ctx context.Context, logger *zap.Logger, redis *persistence.Redis, ticker *worker.TickWorker, sequences *service.SequenceService, instanceID string) {
	acquired, err := redis.Client.SetNX(ctx, tickLeaseKey, instanceID, 10*time.Minute).Result()
	if err != nil {
		logger.Error("tick lease check failed", zap.Error(err))
		return
	}
	if !acquired {
		logger.Info("tick lease held by another instance; skipping batch")
		return
	}
	defer func() {
		// Only the holder releases the lease.
		val, err := redis.Client.Get(ctx, tickLeaseKey).Result()
		if err == nil && val == instanceID {
			redis.Client.Del(ctx, tickLeaseKey)
		}
	}()

	start := time.Now()
	result, err := ticker.Run(ctx, start, sequences.EngineConfig())
	if err != nil {
		logger.Error("tick batch failed", zap.Error(err))
		return
	}

	logger.Info("tick batch finished",
		zap.Int("evaluated", result.Evaluated),
		zap.Int("advanced", result.Advanced),
		zap.Int("skipped", len(result.Skipped)),
		zap.Duration("elapsed", time.Since(start)))
}
