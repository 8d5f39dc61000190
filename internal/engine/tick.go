package engine

import (
	"time"

	"github.com/spec-kit/collections-sequencer/internal/catalog"
	"github.com/spec-kit/collections-sequencer/internal/domain"
	apperrors "github.com/spec-kit/collections-sequencer/pkg/util"
)

// TickResult reports what a single tick decided.
type TickResult struct {
	Advanced   bool
	FromOffset int
	ToOffset   int
}

// Tick evaluates one sequence against the escalation schedule and advances it
// at most one step. Paused and terminal sequences are frozen; with
// AutoEscalation off the tick never advances. A long-overdue sequence catches
// up one step per tick, and re-ticking with the same now after an advance is a
// no-op because the freshly sent step carries that timestamp.
func Tick(seq *domain.Sequence, now time.Time, cfg Config) (TickResult, error) {
	if err := seq.Validate(); err != nil {
		return TickResult{}, err
	}

	result := TickResult{FromOffset: seq.CurrentStepOffset, ToOffset: seq.CurrentStepOffset}
	if seq.Status != domain.SequenceStatusActive {
		return result, nil
	}
	if !cfg.AutoEscalation {
		return result, nil
	}

	next, ok := catalog.NextOffset(seq.CurrentStepOffset)
	if !ok {
		return result, nil
	}

	proj, err := Project(seq, now)
	if err != nil {
		return TickResult{}, err
	}
	if proj.ElapsedDays < cfg.DelayFor(next) {
		return result, nil
	}
	if rec := seq.Step(seq.CurrentStepOffset); rec != nil && rec.SentAt != nil && now.Sub(*rec.SentAt) < 24*time.Hour {
		// The current step went out less than a day ago; one step per tick.
		return result, nil
	}

	advance(seq, next, now, false)
	result.Advanced = true
	result.ToOffset = next
	return result, nil
}

// Escalate is the operator override: it bypasses the elapsed-day gate but
// still moves exactly one step. Allowed from active or paused; escalating a
// paused sequence resumes it.
func Escalate(seq *domain.Sequence, now time.Time) (TickResult, error) {
	if err := seq.Validate(); err != nil {
		return TickResult{}, err
	}
	if seq.Status.Terminal() {
		return TickResult{}, apperrors.NewInvalidState("sequence is terminal", map[string]any{
			"sequence_id": seq.ID,
			"status":      string(seq.Status),
		})
	}

	result := TickResult{FromOffset: seq.CurrentStepOffset, ToOffset: seq.CurrentStepOffset}
	next, ok := catalog.NextOffset(seq.CurrentStepOffset)
	if !ok {
		return TickResult{}, apperrors.NewInvalidState("sequence already at final step", map[string]any{
			"sequence_id": seq.ID,
			"offset":      seq.CurrentStepOffset,
		})
	}

	if seq.Status == domain.SequenceStatusPaused {
		seq.Status = domain.SequenceStatusActive
		seq.PausedAt = nil
	}
	advance(seq, next, now, true)
	result.Advanced = true
	result.ToOffset = next
	return result, nil
}

// advance moves the sequence to the next offset: the old step closes out, the
// new step is stamped sent with the catalog action, and landing on the agency
// offset terminates the sequence.
func advance(seq *domain.Sequence, next int, now time.Time, manual bool) {
	if old := seq.Step(seq.CurrentStepOffset); old != nil {
		if old.Status == domain.StepStatusPending || old.Status == domain.StepStatusSent {
			old.Status = domain.StepStatusCompleted
		}
	}

	step, _ := catalog.StepAt(next)
	sentAt := now
	rec := seq.Step(next)
	if rec == nil {
		seq.Steps = append(seq.Steps, domain.StepRecord{
			SequenceID: seq.ID,
			DayOffset:  next,
			Status:     domain.StepStatusSent,
			SentAt:     &sentAt,
			Action:     step.Action,
			Manual:     manual,
		})
		sortSteps(seq)
	} else {
		rec.Status = domain.StepStatusSent
		rec.SentAt = &sentAt
		rec.Action = step.Action
		rec.Manual = manual
	}

	seq.CurrentStepOffset = next
	if next == catalog.FinalOffset() {
		seq.Status = domain.SequenceStatusSentToAgency
	}
}

func sortSteps(seq *domain.Sequence) {
	for i := 1; i < len(seq.Steps); i++ {
		for j := i; j > 0 && seq.Steps[j].DayOffset < seq.Steps[j-1].DayOffset; j-- {
			seq.Steps[j], seq.Steps[j-1] = seq.Steps[j-1], seq.Steps[j]
		}
	}
}
