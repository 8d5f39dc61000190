package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// Payment is the audit record of a payment applied against a sequence.
// Overpayment is recorded here for external reconciliation; the sequencer
// never credits account balances itself.
type Payment struct {
	ID           string
	SequenceID   string
	AccountID    string
	Amount       decimal.Decimal
	OverpaidBy   decimal.Decimal
	BalanceAfter decimal.Decimal
	ReceivedAt   time.Time
	CreatedAt    time.Time
}
