package engine

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/spec-kit/collections-sequencer/internal/domain"
	apperrors "github.com/spec-kit/collections-sequencer/pkg/util"
)

// PaymentResult reports the outcome of applying a payment to a sequence.
type PaymentResult struct {
	NewBalance decimal.Decimal
	OverpaidBy decimal.Decimal
	Terminated bool
}

// ApplyPayment reduces the outstanding balance by amount. Overpayment floors
// the balance at zero and surfaces the excess for external reconciliation. A
// zero balance completes the sequence and skips every step still pending; a
// partial payment leaves the escalation timeline untouched.
func ApplyPayment(seq *domain.Sequence, amount decimal.Decimal, now time.Time) (PaymentResult, error) {
	if err := seq.Validate(); err != nil {
		return PaymentResult{}, err
	}
	if seq.Status.Terminal() {
		return PaymentResult{}, apperrors.NewInvalidState("sequence is terminal", map[string]any{
			"sequence_id": seq.ID,
			"status":      string(seq.Status),
		})
	}
	if amount.Sign() <= 0 {
		return PaymentResult{}, apperrors.NewInvalidArgument("payment amount must be positive", map[string]any{
			"amount": amount.String(),
		})
	}

	result := PaymentResult{OverpaidBy: decimal.Zero}
	newBalance := seq.TotalBalance.Sub(amount)
	if newBalance.Sign() < 0 {
		result.OverpaidBy = newBalance.Neg()
		newBalance = decimal.Zero
	}
	seq.TotalBalance = newBalance
	result.NewBalance = newBalance

	if newBalance.IsZero() {
		seq.Status = domain.SequenceStatusCompleted
		seq.PausedAt = nil
		for i := range seq.Steps {
			if seq.Steps[i].Status == domain.StepStatusPending {
				seq.Steps[i].Status = domain.StepStatusSkipped
			}
		}
		result.Terminated = true
	}
	return result, nil
}
