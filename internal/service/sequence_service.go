package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"

	"github.com/spec-kit/collections-sequencer/internal/catalog"
	"github.com/spec-kit/collections-sequencer/internal/config"
	"github.com/spec-kit/collections-sequencer/internal/domain"
	"github.com/spec-kit/collections-sequencer/internal/engine"
	"github.com/spec-kit/collections-sequencer/internal/events"
	"github.com/spec-kit/collections-sequencer/internal/locks"
	"github.com/spec-kit/collections-sequencer/internal/repository"
	apperrors "github.com/spec-kit/collections-sequencer/pkg/util"
)

// SequenceService orchestrates the collections escalation pipeline: create,
// tick, payment and operator commands. Every mutation for an account runs
// under that account's lock so tick and payment application never interleave.
type SequenceService struct {
	sequences   repository.SequenceRepository
	payments    repository.PaymentRepository
	history     repository.HistoryRepository
	dispatcher  events.Dispatcher
	locks       *locks.AccountLocks
	collections config.CollectionsConfig
	now         func() time.Time
}

// SequenceDependencies bundles collaborators for the sequence service.
type SequenceDependencies struct {
	SequenceRepo repository.SequenceRepository
	PaymentRepo  repository.PaymentRepository
	HistoryRepo  repository.HistoryRepository
	Dispatcher   events.Dispatcher
	Locks        *locks.AccountLocks
	Collections  config.CollectionsConfig
	Now          func() time.Time
}

// SequenceDetail is the full read view for one sequence.
type SequenceDetail struct {
	Sequence   *domain.Sequence
	Projection engine.Projection
	Payments   []domain.Payment
	History    []domain.SequenceHistory
}

// PaymentOutcome combines the engine result with the audit record.
type PaymentOutcome struct {
	Result  engine.PaymentResult
	Payment *domain.Payment
}

// NewSequenceService constructs the service.
func NewSequenceService(deps SequenceDependencies) *SequenceService {
	svc := &SequenceService{
		sequences:   deps.SequenceRepo,
		payments:    deps.PaymentRepo,
		history:     deps.HistoryRepo,
		dispatcher:  deps.Dispatcher,
		locks:       deps.Locks,
		collections: deps.Collections,
		now:         deps.Now,
	}
	if svc.locks == nil {
		svc.locks = locks.NewAccountLocks()
	}
	if svc.now == nil {
		svc.now = time.Now
	}
	return svc
}

// EngineConfig builds the tick configuration from the practice settings.
func (s *SequenceService) EngineConfig() engine.Config {
	return engine.Config{
		AutoEscalation: s.collections.AutoEscalation,
		Delays:         s.collections.Delays(),
	}
}

// CreateSequence opens a collection sequence for an account crossing the
// minimum-balance threshold. Idempotent: an account with an open sequence gets
// that sequence back instead of a duplicate.
func (s *SequenceService) CreateSequence(ctx context.Context, accountID string, balance decimal.Decimal) (*domain.Sequence, error) {
	accountID = strings.TrimSpace(accountID)
	if accountID == "" {
		return nil, apperrors.NewInvalidArgument("account_id required", nil)
	}
	if balance.LessThan(s.collections.MinBalance) {
		return nil, apperrors.NewInvalidArgument("balance below collections minimum", map[string]any{
			"balance":     balance.String(),
			"min_balance": s.collections.MinBalance.String(),
		})
	}

	unlock := s.locks.Lock(accountID)
	defer unlock()

	existing, err := s.sequences.GetOpenByAccount(ctx, accountID)
	if err == nil {
		return existing, nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return nil, err
	}

	now := s.now()
	seq := domain.NewSequence(accountID, balance, now)
	if err := s.sequences.Create(ctx, seq); err != nil {
		if errors.Is(err, repository.ErrDuplicateOpenSequence) {
			return s.sequences.GetOpenByAccount(ctx, accountID)
		}
		return nil, err
	}

	s.recordHistory(ctx, domain.SubjectTypeLedger, nil, seq.ID, domain.ChangeTypeStatus,
		map[string]any{}, map[string]any{"status": seq.Status, "balance": seq.TotalBalance.String()})
	s.publishEvent(ctx, events.Event{
		Type:       events.EventSequenceCreated,
		SequenceID: seq.ID,
		AccountID:  seq.AccountID,
		Actor:      ledgerActor(),
		Payload: events.SequenceCreatedPayload{
			Balance:   seq.TotalBalance.String(),
			StartedAt: seq.StartedAt,
		},
	})
	return seq, nil
}

// Get returns the sequence with its time projection, payment log and history.
func (s *SequenceService) Get(ctx context.Context, id string) (*SequenceDetail, error) {
	seq, err := s.sequences.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.NewNotFound("sequence", map[string]any{"sequence_id": id})
		}
		return nil, err
	}
	proj, err := engine.Project(seq, s.now())
	if err != nil {
		return nil, err
	}
	payments, err := s.payments.ListBySequence(ctx, seq.ID)
	if err != nil {
		return nil, err
	}
	history, err := s.history.ListBySequence(ctx, seq.ID)
	if err != nil {
		return nil, err
	}
	return &SequenceDetail{Sequence: seq, Projection: proj, Payments: payments, History: history}, nil
}

// List returns sequences matching the filter.
func (s *SequenceService) List(ctx context.Context, filter repository.SequenceFilter) ([]domain.Sequence, error) {
	return s.sequences.ListWithFilter(ctx, filter)
}

// Pause freezes all tick-driven advancement for an active sequence.
func (s *SequenceService) Pause(ctx context.Context, id string, operatorID string) (*domain.Sequence, error) {
	seq, unlock, err := s.lockAndLoad(ctx, id)
	if err != nil {
		return nil, err
	}
	defer unlock()

	if seq.Status != domain.SequenceStatusActive {
		return nil, apperrors.NewInvalidState("only active sequences can be paused", map[string]any{
			"sequence_id": seq.ID,
			"status":      string(seq.Status),
		})
	}
	now := s.now()
	seq.Status = domain.SequenceStatusPaused
	seq.PausedAt = &now
	if err := s.sequences.Update(ctx, seq); err != nil {
		return nil, err
	}

	s.recordStatusChange(ctx, operatorID, seq, domain.SequenceStatusActive, domain.SequenceStatusPaused, "operator_paused")
	s.publishEvent(ctx, events.Event{
		Type:       events.EventSequencePaused,
		SequenceID: seq.ID,
		AccountID:  seq.AccountID,
		Actor:      operatorActor(operatorID),
		Payload: events.StatusChangedPayload{
			OldStatus: domain.SequenceStatusActive,
			NewStatus: domain.SequenceStatusPaused,
			Reason:    "operator_paused",
		},
	})
	return seq, nil
}

// Resume reactivates a paused sequence. The elapsed-day clock is wall-clock
// based, so a long pause catches up one step per subsequent tick.
func (s *SequenceService) Resume(ctx context.Context, id string, operatorID string) (*domain.Sequence, error) {
	seq, unlock, err := s.lockAndLoad(ctx, id)
	if err != nil {
		return nil, err
	}
	defer unlock()

	if seq.Status != domain.SequenceStatusPaused {
		return nil, apperrors.NewInvalidState("only paused sequences can be resumed", map[string]any{
			"sequence_id": seq.ID,
			"status":      string(seq.Status),
		})
	}
	seq.Status = domain.SequenceStatusActive
	seq.PausedAt = nil
	if err := s.sequences.Update(ctx, seq); err != nil {
		return nil, err
	}

	s.recordStatusChange(ctx, operatorID, seq, domain.SequenceStatusPaused, domain.SequenceStatusActive, "operator_resumed")
	s.publishEvent(ctx, events.Event{
		Type:       events.EventSequenceResumed,
		SequenceID: seq.ID,
		AccountID:  seq.AccountID,
		Actor:      operatorActor(operatorID),
		Payload: events.StatusChangedPayload{
			OldStatus: domain.SequenceStatusPaused,
			NewStatus: domain.SequenceStatusActive,
			Reason:    "operator_resumed",
		},
	})
	return seq, nil
}

// Escalate advances one step on operator command, bypassing the elapsed-day
// gate. A paused sequence resumes; a sequence at the final offset is rejected.
func (s *SequenceService) Escalate(ctx context.Context, id string, operatorID string) (*domain.Sequence, engine.TickResult, error) {
	seq, unlock, err := s.lockAndLoad(ctx, id)
	if err != nil {
		return nil, engine.TickResult{}, err
	}
	defer unlock()

	oldStatus := seq.Status
	result, err := engine.Escalate(seq, s.now())
	if err != nil {
		return nil, engine.TickResult{}, err
	}
	if err := s.sequences.Update(ctx, seq); err != nil {
		return nil, engine.TickResult{}, err
	}

	s.afterAdvance(ctx, seq, result, oldStatus, operatorActor(operatorID), true)
	return seq, result, nil
}

// RecordPayment applies a payment against the outstanding balance.
func (s *SequenceService) RecordPayment(ctx context.Context, id string, amount decimal.Decimal, operatorID string) (*domain.Sequence, *PaymentOutcome, error) {
	seq, unlock, err := s.lockAndLoad(ctx, id)
	if err != nil {
		return nil, nil, err
	}
	defer unlock()

	now := s.now()
	oldStatus := seq.Status
	result, err := engine.ApplyPayment(seq, amount, now)
	if err != nil {
		return nil, nil, err
	}
	if err := s.sequences.Update(ctx, seq); err != nil {
		return nil, nil, err
	}

	payment := &domain.Payment{
		SequenceID:   seq.ID,
		AccountID:    seq.AccountID,
		Amount:       amount,
		OverpaidBy:   result.OverpaidBy,
		BalanceAfter: result.NewBalance,
		ReceivedAt:   now,
	}
	if err := s.payments.Create(ctx, payment); err != nil {
		return nil, nil, err
	}

	actor := ledgerActor()
	if operatorID != "" {
		actor = operatorActor(operatorID)
	}
	s.recordHistory(ctx, actor.Type, actor.OperatorID, seq.ID, domain.ChangeTypePayment,
		map[string]any{"balance": amount.Add(result.NewBalance).Sub(result.OverpaidBy).String()},
		map[string]any{"balance": result.NewBalance.String(), "amount": amount.String(), "overpaid_by": result.OverpaidBy.String()})
	s.publishEvent(ctx, events.Event{
		Type:       events.EventPaymentApplied,
		SequenceID: seq.ID,
		AccountID:  seq.AccountID,
		Actor:      actor,
		Payload: events.PaymentAppliedPayload{
			Amount:     amount.String(),
			NewBalance: result.NewBalance.String(),
			OverpaidBy: result.OverpaidBy.String(),
			Terminated: result.Terminated,
		},
	})
	if result.Terminated {
		s.recordStatusChange(ctx, operatorID, seq, oldStatus, domain.SequenceStatusCompleted, "paid_in_full")
		s.publishEvent(ctx, events.Event{
			Type:       events.EventSequenceCompleted,
			SequenceID: seq.ID,
			AccountID:  seq.AccountID,
			Actor:      actor,
			Payload: events.StatusChangedPayload{
				OldStatus: oldStatus,
				NewStatus: domain.SequenceStatusCompleted,
				Reason:    "paid_in_full",
			},
		})
	}
	return seq, &PaymentOutcome{Result: result, Payment: payment}, nil
}

// RecordStepResponse writes the messaging collaborator's delivery outcome onto
// a step. Allowed on terminal sequences: the agency step's result arrives
// after the sequence has already terminated.
func (s *SequenceService) RecordStepResponse(ctx context.Context, id string, offset int, response string) (*domain.Sequence, error) {
	if !catalog.Contains(offset) {
		return nil, apperrors.NewInvalidArgument("offset is not a catalog step", map[string]any{"offset": offset})
	}
	seq, unlock, err := s.lockAndLoad(ctx, id)
	if err != nil {
		return nil, err
	}
	defer unlock()

	rec := seq.Step(offset)
	if rec == nil {
		return nil, apperrors.NewNotFound("step", map[string]any{"sequence_id": id, "offset": offset})
	}
	if rec.Status == domain.StepStatusPending {
		return nil, apperrors.NewInvalidState("step has not been sent", map[string]any{
			"sequence_id": id,
			"offset":      offset,
		})
	}
	rec.Response = &response
	if err := s.sequences.Update(ctx, seq); err != nil {
		return nil, err
	}
	return seq, nil
}

// TickSequence evaluates one sequence against the schedule under its account
// lock and persists any advance atomically.
func (s *SequenceService) TickSequence(ctx context.Context, id string, now time.Time, cfg engine.Config) (engine.TickResult, error) {
	seq, unlock, err := s.lockAndLoad(ctx, id)
	if err != nil {
		return engine.TickResult{}, err
	}
	defer unlock()

	oldStatus := seq.Status
	result, err := engine.Tick(seq, now, cfg)
	if err != nil {
		return engine.TickResult{}, err
	}
	if !result.Advanced {
		return result, nil
	}
	if err := s.sequences.Update(ctx, seq); err != nil {
		return engine.TickResult{}, err
	}

	s.afterAdvance(ctx, seq, result, oldStatus, systemActor(), false)
	return result, nil
}

// ActiveSequenceIDs lists the sequences the batch driver should tick.
func (s *SequenceService) ActiveSequenceIDs(ctx context.Context) ([]string, error) {
	return s.sequences.ListActiveIDs(ctx)
}

func (s *SequenceService) lockAndLoad(ctx context.Context, id string) (*domain.Sequence, func(), error) {
	seq, err := s.sequences.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil, apperrors.NewNotFound("sequence", map[string]any{"sequence_id": id})
		}
		return nil, nil, err
	}

	unlock := s.locks.Lock(seq.AccountID)

	// Reload under the lock so a mutation that won the race is visible.
	seq, err = s.sequences.GetByID(ctx, id)
	if err != nil {
		unlock()
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil, apperrors.NewNotFound("sequence", map[string]any{"sequence_id": id})
		}
		return nil, nil, err
	}
	return seq, unlock, nil
}

func (s *SequenceService) afterAdvance(ctx context.Context, seq *domain.Sequence, result engine.TickResult, oldStatus domain.SequenceStatus, actor events.Actor, manual bool) {
	step, _ := catalog.StepAt(result.ToOffset)
	s.recordHistory(ctx, actor.Type, actor.OperatorID, seq.ID, domain.ChangeTypeStep,
		map[string]any{"offset": result.FromOffset},
		map[string]any{"offset": result.ToOffset, "manual": manual})
	s.publishEvent(ctx, events.Event{
		Type:       events.EventStepAdvanced,
		SequenceID: seq.ID,
		AccountID:  seq.AccountID,
		Actor:      actor,
		Payload: events.StepAdvancedPayload{
			FromOffset: result.FromOffset,
			ToOffset:   result.ToOffset,
			Channel:    step.Channel,
			Action:     step.Action,
			Manual:     manual,
		},
	})
	if seq.Status == domain.SequenceStatusSentToAgency && oldStatus != domain.SequenceStatusSentToAgency {
		s.recordStatusChange(ctx, actorID(actor), seq, oldStatus, domain.SequenceStatusSentToAgency, "final_step_reached")
		s.publishEvent(ctx, events.Event{
			Type:       events.EventSequenceSentToAgency,
			SequenceID: seq.ID,
			AccountID:  seq.AccountID,
			Actor:      actor,
			Payload: events.StatusChangedPayload{
				OldStatus: oldStatus,
				NewStatus: domain.SequenceStatusSentToAgency,
				Reason:    "final_step_reached",
			},
		})
	}
}

func (s *SequenceService) recordStatusChange(ctx context.Context, operatorID string, seq *domain.Sequence, oldStatus, newStatus domain.SequenceStatus, reason string) {
	actorType := domain.SubjectTypeSystem
	var actorRef *string
	if operatorID != "" {
		actorType = domain.SubjectTypeOperator
		actorRef = &operatorID
	}
	s.recordHistory(ctx, actorType, actorRef, seq.ID, domain.ChangeTypeStatus,
		map[string]any{"status": oldStatus},
		map[string]any{"status": newStatus, "reason": reason})
}

func (s *SequenceService) recordHistory(ctx context.Context, actorType domain.SubjectType, actorID *string, sequenceID string, changeType domain.ChangeType, oldValue, newValue map[string]any) {
	if s.history == nil {
		return
	}
	entry := &domain.SequenceHistory{
		SequenceID:    sequenceID,
		ChangedByType: actorType,
		ChangedByID:   actorID,
		ChangeType:    changeType,
		OldValue:      oldValue,
		NewValue:      newValue,
	}
	_ = s.history.Create(ctx, entry)
}

func (s *SequenceService) publishEvent(ctx context.Context, event events.Event) {
	if s.dispatcher == nil {
		return
	}
	if event.ID == "" {
		event.ID = uuid.NewString()
	}
	if event.Timestamp.IsZero() {
		event.Timestamp = s.now()
	}
	_ = s.dispatcher.Publish(ctx, event)
}

func operatorActor(operatorID string) events.Actor {
	return events.Actor{
		Type:       domain.SubjectTypeOperator,
		OperatorID: &operatorID,
	}
}

func ledgerActor() events.Actor {
	return events.Actor{Type: domain.SubjectTypeLedger}
}

func systemActor() events.Actor {
	return events.Actor{Type: domain.SubjectTypeSystem}
}

func actorID(actor events.Actor) string {
	if actor.OperatorID != nil {
		return *actor.OperatorID
	}
	return ""
}
