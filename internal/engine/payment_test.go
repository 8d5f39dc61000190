package engine

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spec-kit/collections-sequencer/internal/domain"
	apperrors "github.com/spec-kit/collections-sequencer/pkg/util"
)

func Test_ApplyPayment_PartialLeavesTimelineUntouched(t *testing.T) {
	seq := newTestSequence("500.00")
	seq.CurrentStepOffset = 14
	seq.Step(14).Status = domain.StepStatusSent

	result, err := ApplyPayment(seq, decimal.NewFromInt(200), projectionStart.AddDate(0, 0, 15))

	require.NoError(t, err)
	assert.Equal(t, "300", result.NewBalance.String())
	assert.True(t, result.OverpaidBy.IsZero())
	assert.False(t, result.Terminated)

	assert.Equal(t, domain.SequenceStatusActive, seq.Status)
	assert.Equal(t, 14, seq.CurrentStepOffset)
	assert.Equal(t, domain.StepStatusPending, seq.Step(30).Status)
}

func Test_ApplyPayment_FullPaymentCompletesAndSkipsPending(t *testing.T) {
	seq := newTestSequence("500.00")
	seq.CurrentStepOffset = 7
	seq.Step(0).Status = domain.StepStatusCompleted
	seq.Step(7).Status = domain.StepStatusSent

	result, err := ApplyPayment(seq, decimal.NewFromInt(500), projectionStart.AddDate(0, 0, 9))

	require.NoError(t, err)
	assert.True(t, result.NewBalance.IsZero())
	assert.True(t, result.Terminated)
	assert.Equal(t, domain.SequenceStatusCompleted, seq.Status)

	// Delivered steps keep their status; everything still pending is skipped.
	assert.Equal(t, domain.StepStatusCompleted, seq.Step(0).Status)
	assert.Equal(t, domain.StepStatusSent, seq.Step(7).Status)
	for _, offset := range []int{14, 30, 60, 90} {
		assert.Equal(t, domain.StepStatusSkipped, seq.Step(offset).Status)
	}
}

func Test_ApplyPayment_CompletedSequenceIgnoresTicks(t *testing.T) {
	seq := newTestSequence("500.00")
	_, err := ApplyPayment(seq, decimal.NewFromInt(500), projectionStart.AddDate(0, 0, 2))
	require.NoError(t, err)

	result, err := Tick(seq, projectionStart.AddDate(0, 0, 30), autoConfig())

	require.NoError(t, err)
	assert.False(t, result.Advanced)
	assert.Equal(t, domain.SequenceStatusCompleted, seq.Status)
}

func Test_ApplyPayment_OverpaymentFloorsAtZero(t *testing.T) {
	seq := newTestSequence("500.00")

	result, err := ApplyPayment(seq, decimal.NewFromInt(600), projectionStart.AddDate(0, 0, 1))

	require.NoError(t, err)
	assert.True(t, result.NewBalance.IsZero())
	assert.Equal(t, "100", result.OverpaidBy.String())
	assert.True(t, result.Terminated)
	assert.True(t, seq.TotalBalance.IsZero())
	assert.Equal(t, domain.SequenceStatusCompleted, seq.Status)
}

func Test_ApplyPayment_PaymentOnPausedSequenceCompletes(t *testing.T) {
	seq := newTestSequence("500.00")
	pausedAt := projectionStart.AddDate(0, 0, 3)
	seq.Status = domain.SequenceStatusPaused
	seq.PausedAt = &pausedAt

	result, err := ApplyPayment(seq, decimal.NewFromInt(500), projectionStart.AddDate(0, 0, 4))

	require.NoError(t, err)
	assert.True(t, result.Terminated)
	assert.Equal(t, domain.SequenceStatusCompleted, seq.Status)
	assert.Nil(t, seq.PausedAt)
}

func Test_ApplyPayment_RejectsNonPositiveAmounts(t *testing.T) {
	for _, amount := range []decimal.Decimal{decimal.Zero, decimal.NewFromInt(-50)} {
		seq := newTestSequence("500.00")

		_, err := ApplyPayment(seq, amount, projectionStart.AddDate(0, 0, 1))

		require.Error(t, err)
		assert.True(t, apperrors.IsInvalidArgument(err))
		assert.Equal(t, "500", seq.TotalBalance.String())
	}
}

func Test_ApplyPayment_RejectedOnTerminalSequence(t *testing.T) {
	for _, status := range []domain.SequenceStatus{domain.SequenceStatusCompleted, domain.SequenceStatusSentToAgency} {
		seq := newTestSequence("500.00")
		seq.Status = status

		_, err := ApplyPayment(seq, decimal.NewFromInt(100), projectionStart.AddDate(0, 0, 1))

		require.Error(t, err)
		assert.True(t, apperrors.IsInvalidState(err))
	}
}

func Test_ApplyPayment_RejectsCorruptRecord(t *testing.T) {
	seq := newTestSequence("500.00")
	seq.CurrentStepOffset = 13

	_, err := ApplyPayment(seq, decimal.NewFromInt(100), projectionStart)

	require.Error(t, err)
	assert.True(t, apperrors.IsCorruptRecord(err))
}
