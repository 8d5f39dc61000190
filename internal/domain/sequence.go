package domain

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/spec-kit/collections-sequencer/internal/catalog"
	apperrors "github.com/spec-kit/collections-sequencer/pkg/util"
)

// SequenceStatus enumerates lifecycle states for collection sequences.
type SequenceStatus string

const (
	SequenceStatusActive       SequenceStatus = "active"
	SequenceStatusPaused       SequenceStatus = "paused"
	SequenceStatusCompleted    SequenceStatus = "completed"
	SequenceStatusSentToAgency SequenceStatus = "sent_to_agency"
)

// Terminal reports whether no further automated action occurs for the status.
func (s SequenceStatus) Terminal() bool {
	return s == SequenceStatusCompleted || s == SequenceStatusSentToAgency
}

// Valid reports whether s is one of the closed enum values. Producers must
// emit only these; anything else is a corrupt record, never coerced.
func (s SequenceStatus) Valid() bool {
	switch s {
	case SequenceStatusActive, SequenceStatusPaused, SequenceStatusCompleted, SequenceStatusSentToAgency:
		return true
	}
	return false
}

// StepStatus enumerates the state of a single escalation step.
type StepStatus string

const (
	StepStatusPending   StepStatus = "pending"
	StepStatusSent      StepStatus = "sent"
	StepStatusCompleted StepStatus = "completed"
	StepStatusSkipped   StepStatus = "skipped"
)

// Valid reports whether s is a known step status.
func (s StepStatus) Valid() bool {
	switch s {
	case StepStatusPending, StepStatusSent, StepStatusCompleted, StepStatusSkipped:
		return true
	}
	return false
}

// StepRecord tracks one catalog step for a sequence.
type StepRecord struct {
	ID         string
	SequenceID string
	DayOffset  int
	Status     StepStatus
	SentAt     *time.Time
	Action     string
	Response   *string
	Manual     bool
}

// Sequence is the per-account collections escalation record.
type Sequence struct {
	ID                string
	AccountID         string
	TotalBalance      decimal.Decimal
	StartedAt         time.Time
	CurrentStepOffset int
	Status            SequenceStatus
	Steps             []StepRecord
	PausedAt          *time.Time
	CreatedAt         time.Time
	UpdatedAt         time.Time
}

// NewSequence seeds a sequence at day 0 with the full step ladder pending and
// the initial statement step marked sent.
func NewSequence(accountID string, balance decimal.Decimal, startedAt time.Time) *Sequence {
	seq := &Sequence{
		AccountID:    accountID,
		TotalBalance: balance,
		StartedAt:    startedAt,
		Status:       SequenceStatusActive,
	}
	for _, step := range catalog.Steps() {
		rec := StepRecord{
			DayOffset: step.Offset,
			Status:    StepStatusPending,
			Action:    step.Action,
		}
		if step.Offset == 0 {
			sentAt := startedAt
			rec.Status = StepStatusSent
			rec.SentAt = &sentAt
		}
		seq.Steps = append(seq.Steps, rec)
	}
	return seq
}

// Step returns the record at the given offset, or nil.
func (s *Sequence) Step(offset int) *StepRecord {
	for i := range s.Steps {
		if s.Steps[i].DayOffset == offset {
			return &s.Steps[i]
		}
	}
	return nil
}

// Validate classifies a sequence as corrupt when required fields are missing
// or invariants are broken. Used by the engine before any mutation and by the
// batch tick for partial-failure isolation.
func (s *Sequence) Validate() error {
	if s == nil {
		return apperrors.NewCorruptRecord("sequence is nil", nil)
	}
	if s.AccountID == "" {
		return apperrors.NewCorruptRecord("sequence missing account id", map[string]any{"sequence_id": s.ID})
	}
	if s.StartedAt.IsZero() {
		return apperrors.NewCorruptRecord("sequence missing started_at", map[string]any{"sequence_id": s.ID})
	}
	if !s.Status.Valid() {
		return apperrors.NewCorruptRecord("sequence has unknown status", map[string]any{
			"sequence_id": s.ID,
			"status":      string(s.Status),
		})
	}
	if !catalog.Contains(s.CurrentStepOffset) {
		return apperrors.NewCorruptRecord("sequence offset outside catalog", map[string]any{
			"sequence_id": s.ID,
			"offset":      s.CurrentStepOffset,
		})
	}
	if s.TotalBalance.Sign() < 0 {
		return apperrors.NewCorruptRecord("sequence balance negative", map[string]any{"sequence_id": s.ID})
	}
	prev := -1
	for _, rec := range s.Steps {
		if !catalog.Contains(rec.DayOffset) {
			return apperrors.NewCorruptRecord("step offset outside catalog", map[string]any{
				"sequence_id": s.ID,
				"offset":      rec.DayOffset,
			})
		}
		if rec.DayOffset <= prev {
			return apperrors.NewCorruptRecord("steps not strictly ascending", map[string]any{"sequence_id": s.ID})
		}
		if !rec.Status.Valid() {
			return apperrors.NewCorruptRecord("step has unknown status", map[string]any{
				"sequence_id": s.ID,
				"offset":      rec.DayOffset,
				"status":      string(rec.Status),
			})
		}
		prev = rec.DayOffset
	}
	return nil
}
