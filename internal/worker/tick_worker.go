package worker

import (
	"context"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/spec-kit/collections-sequencer/internal/engine"
	"github.com/spec-kit/collections-sequencer/internal/observability"
	"github.com/spec-kit/collections-sequencer/internal/service"
	apperrors "github.com/spec-kit/collections-sequencer/pkg/util"
)

// BatchResult summarizes one scheduled run over all active sequences.
type BatchResult struct {
	Evaluated int
	Advanced  int
	Skipped   []SkippedSequence
}

// SkippedSequence reports a sequence the batch could not tick.
type SkippedSequence struct {
	SequenceID string
	Reason     string
}

// TickWorker drives the scheduled escalation run. Sequences tick in parallel
// up to the configured bound; each sequence's mutation is serialized by the
// service's per-account lock, and a corrupt record is reported and skipped
// without halting the batch.
type TickWorker struct {
	sequences   *service.SequenceService
	logger      *zap.Logger
	metrics     *observability.Metrics
	parallelism int
}

// NewTickWorker constructs the worker.
func NewTickWorker(sequences *service.SequenceService, logger *zap.Logger, metrics *observability.Metrics, parallelism int) *TickWorker {
	if parallelism <= 0 {
		parallelism = 1
	}
	return &TickWorker{
		sequences:   sequences,
		logger:      logger,
		metrics:     metrics,
		parallelism: parallelism,
	}
}

// Run ticks every active sequence once. Cancelling ctx stops the run between
// sequences; a sequence already being ticked finishes its atomic transition.
func (w *TickWorker) Run(ctx context.Context, now time.Time, cfg engine.Config) (BatchResult, error) {
	ids, err := w.sequences.ActiveSequenceIDs(ctx)
	if err != nil {
		return BatchResult{}, err
	}

	var (
		group, groupCtx = errgroup.WithContext(ctx)
		results         = make([]engine.TickResult, len(ids))
		skipped         = make([]*SkippedSequence, len(ids))
	)
	group.SetLimit(w.parallelism)

	for i, id := range ids {
		if err := groupCtx.Err(); err != nil {
			break
		}
		i, id := i, id
		group.Go(func() error {
			result, err := w.sequences.TickSequence(groupCtx, id, now, cfg)
			if err != nil {
				if apperrors.IsCorruptRecord(err) || apperrors.IsNotFound(err) {
					w.logger.Warn("skipping sequence during batch tick",
						zap.String("sequence_id", id),
						zap.Error(err))
					w.metrics.RecordCorruptSkip()
					skipped[i] = &SkippedSequence{SequenceID: id, Reason: err.Error()}
					return nil
				}
				return err
			}
			results[i] = result
			w.metrics.RecordTick(result.Advanced)
			if result.Advanced {
				w.logger.Info("sequence advanced",
					zap.String("sequence_id", id),
					zap.Int("from_offset", result.FromOffset),
					zap.Int("to_offset", result.ToOffset))
			}
			return nil
		})
	}

	err = group.Wait()

	batch := BatchResult{}
	for i := range ids {
		if skipped[i] != nil {
			batch.Skipped = append(batch.Skipped, *skipped[i])
			continue
		}
		batch.Evaluated++
		if results[i].Advanced {
			batch.Advanced++
		}
	}

	w.logger.Info("batch tick finished",
		zap.Int("evaluated", batch.Evaluated),
		zap.Int("advanced", batch.Advanced),
		zap.Int("skipped", len(batch.Skipped)))
	return batch, err
}
