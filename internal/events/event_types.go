package events

import (
	"time"

	"github.com/spec-kit/collections-sequencer/internal/catalog"
	"github.com/spec-kit/collections-sequencer/internal/domain"
)

// EventType enumerates supported event identifiers.
type EventType string

const (
	EventSequenceCreated      EventType = "sequence_created"
	EventStepAdvanced         EventType = "step_advanced"
	EventSequencePaused       EventType = "sequence_paused"
	EventSequenceResumed      EventType = "sequence_resumed"
	EventPaymentApplied       EventType = "payment_applied"
	EventSequenceCompleted    EventType = "sequence_completed"
	EventSequenceSentToAgency EventType = "sequence_sent_to_agency"
)

// Actor encapsulates actor metadata for an event.
type Actor struct {
	Type       domain.SubjectType `json:"type"`
	OperatorID *string            `json:"operator_id,omitempty"`
}

// Event represents a domain event emitted by the sequencer.
type Event struct {
	ID         string      `json:"id"`
	Type       EventType   `json:"type"`
	SequenceID string      `json:"sequence_id"`
	AccountID  string      `json:"account_id"`
	Actor      Actor       `json:"actor"`
	Timestamp  time.Time   `json:"timestamp"`
	Payload    interface{} `json:"payload"`
}

// SequenceCreatedPayload payload.
type SequenceCreatedPayload struct {
	Balance   string    `json:"balance"`
	StartedAt time.Time `json:"started_at"`
}

// StepAdvancedPayload payload.
type StepAdvancedPayload struct {
	FromOffset int             `json:"from_offset"`
	ToOffset   int             `json:"to_offset"`
	Channel    catalog.Channel `json:"channel"`
	Action     string          `json:"action"`
	Manual     bool            `json:"manual"`
}

// StatusChangedPayload payload for pause/resume/terminal transitions.
type StatusChangedPayload struct {
	OldStatus domain.SequenceStatus `json:"old_status"`
	NewStatus domain.SequenceStatus `json:"new_status"`
	Reason    string                `json:"reason,omitempty"`
}

// PaymentAppliedPayload payload.
type PaymentAppliedPayload struct {
	Amount     string `json:"amount"`
	NewBalance string `json:"new_balance"`
	OverpaidBy string `json:"overpaid_by"`
	Terminated bool   `json:"terminated"`
}
