package dto

import (
	"time"

	"github.com/spec-kit/collections-sequencer/internal/domain"
)

// CreateSequenceRequest payload from the billing ledger.
type CreateSequenceRequest struct {
	AccountID string `json:"account_id"`
	Balance   string `json:"balance"`
}

// RecordPaymentRequest payload.
type RecordPaymentRequest struct {
	Amount string `json:"amount"`
}

// StepResponseRequest payload from the messaging collaborator.
type StepResponseRequest struct {
	Response string `json:"response"`
}

// SequenceSummary response.
type SequenceSummary struct {
	ID                string                `json:"id"`
	AccountID         string                `json:"account_id"`
	TotalBalance      string                `json:"total_balance"`
	StartedAt         time.Time             `json:"started_at"`
	CurrentStepOffset int                   `json:"current_step_offset"`
	Status            domain.SequenceStatus `json:"status"`
	CreatedAt         time.Time             `json:"created_at"`
	UpdatedAt         time.Time             `json:"updated_at"`
}

// ProjectionResponse is the derived time view.
type ProjectionResponse struct {
	ElapsedDays    int        `json:"elapsed_days"`
	StepIndex      int        `json:"step_index"`
	DayInStep      int        `json:"day_in_step"`
	NextActionDate *time.Time `json:"next_action_date"`
}

// StepRecordResponse represents one step of the history ladder.
type StepRecordResponse struct {
	DayOffset int               `json:"day_offset"`
	Status    domain.StepStatus `json:"status"`
	SentAt    *time.Time        `json:"sent_at"`
	Action    string            `json:"action"`
	Response  *string           `json:"response"`
	Manual    bool              `json:"manual"`
}

// PaymentResponse is one payment audit entry.
type PaymentResponse struct {
	ID           string    `json:"id"`
	Amount       string    `json:"amount"`
	OverpaidBy   string    `json:"overpaid_by"`
	BalanceAfter string    `json:"balance_after"`
	ReceivedAt   time.Time `json:"received_at"`
}

// HistoryResponse is one audit entry.
type HistoryResponse struct {
	ID            string             `json:"id"`
	ChangeType    domain.ChangeType  `json:"change_type"`
	ChangedByType domain.SubjectType `json:"changed_by_type"`
	ChangedByID   *string            `json:"changed_by_id"`
	OldValue      map[string]any     `json:"old_value"`
	NewValue      map[string]any     `json:"new_value"`
	CreatedAt     time.Time          `json:"created_at"`
}

// SequenceDetailResponse provides full sequence info.
type SequenceDetailResponse struct {
	SequenceSummary
	PausedAt   *time.Time           `json:"paused_at"`
	Projection ProjectionResponse   `json:"projection"`
	Steps      []StepRecordResponse `json:"steps"`
	Payments   []PaymentResponse    `json:"payments"`
	History    []HistoryResponse    `json:"history"`
}

// PaymentOutcomeResponse reports an applied payment.
type PaymentOutcomeResponse struct {
	NewBalance string                `json:"new_balance"`
	OverpaidBy string                `json:"overpaid_by"`
	Terminated bool                  `json:"terminated"`
	Status     domain.SequenceStatus `json:"status"`
}

// EscalateResponse reports a manual escalation.
type EscalateResponse struct {
	FromOffset int                   `json:"from_offset"`
	ToOffset   int                   `json:"to_offset"`
	Status     domain.SequenceStatus `json:"status"`
}
