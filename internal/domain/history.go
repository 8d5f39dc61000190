package domain

import "time"

// ChangeType categorizes audit entries.
type ChangeType string

const (
	ChangeTypeStatus  ChangeType = "status"
	ChangeTypeStep    ChangeType = "step"
	ChangeTypePayment ChangeType = "payment"
)

// SequenceHistory is an append-only audit entry for a sequence transition.
type SequenceHistory struct {
	ID            string
	SequenceID    string
	ChangedByType SubjectType
	ChangedByID   *string
	ChangeType    ChangeType
	OldValue      map[string]any
	NewValue      map[string]any
	CreatedAt     time.Time
}
