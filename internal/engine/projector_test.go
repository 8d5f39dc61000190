package engine

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spec-kit/collections-sequencer/internal/domain"
	apperrors "github.com/spec-kit/collections-sequencer/pkg/util"
)

var projectionStart = time.Date(2026, time.March, 1, 9, 0, 0, 0, time.UTC)

func newTestSequence(balance string) *domain.Sequence {
	amount, _ := decimal.NewFromString(balance)
	seq := domain.NewSequence("acct-100", amount, projectionStart)
	seq.ID = "seq-100"
	return seq
}

func Test_Project_FreshSequence(t *testing.T) {
	seq := newTestSequence("500.00")

	proj, err := Project(seq, projectionStart)

	require.NoError(t, err)
	assert.Equal(t, 0, proj.ElapsedDays)
	assert.Equal(t, 0, proj.StepIndex)
	assert.Equal(t, 0, proj.DayInStep)
	require.NotNil(t, proj.NextActionDate)
	assert.Equal(t, projectionStart.AddDate(0, 0, 7), *proj.NextActionDate)
}

func Test_Project_MidStepElapsedDays(t *testing.T) {
	seq := newTestSequence("500.00")
	seq.CurrentStepOffset = 7
	seq.Step(7).Status = domain.StepStatusSent

	proj, err := Project(seq, projectionStart.AddDate(0, 0, 10))

	require.NoError(t, err)
	assert.Equal(t, 10, proj.ElapsedDays)
	assert.Equal(t, 1, proj.StepIndex)
	assert.Equal(t, 3, proj.DayInStep)
	require.NotNil(t, proj.NextActionDate)
	assert.Equal(t, projectionStart.AddDate(0, 0, 14), *proj.NextActionDate)
}

func Test_Project_ClampsNegativeElapsedToZero(t *testing.T) {
	seq := newTestSequence("500.00")

	// Clock behind the recorded start: backdated record or skewed host clock.
	proj, err := Project(seq, projectionStart.Add(-48*time.Hour))

	require.NoError(t, err)
	assert.Equal(t, 0, proj.ElapsedDays)
	assert.Equal(t, 0, proj.DayInStep)
}

func Test_Project_ClampsDayInStepWhenBehindOffset(t *testing.T) {
	seq := newTestSequence("500.00")
	seq.CurrentStepOffset = 30
	seq.Step(30).Status = domain.StepStatusSent

	// Manually escalated ahead of the calendar: elapsed sits behind the offset.
	proj, err := Project(seq, projectionStart.AddDate(0, 0, 12))

	require.NoError(t, err)
	assert.Equal(t, 12, proj.ElapsedDays)
	assert.Equal(t, 0, proj.DayInStep)
}

func Test_Project_NoNextActionAtFinalStep(t *testing.T) {
	seq := newTestSequence("500.00")
	seq.CurrentStepOffset = 90
	seq.Status = domain.SequenceStatusSentToAgency

	proj, err := Project(seq, projectionStart.AddDate(0, 0, 95))

	require.NoError(t, err)
	assert.Equal(t, 5, proj.StepIndex)
	assert.Nil(t, proj.NextActionDate)
}

func Test_Project_RejectsCorruptRecords(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*domain.Sequence)
	}{
		{"zero started_at", func(s *domain.Sequence) { s.StartedAt = time.Time{} }},
		{"unknown status", func(s *domain.Sequence) { s.Status = "archived" }},
		{"offset outside catalog", func(s *domain.Sequence) { s.CurrentStepOffset = 45 }},
		{"negative balance", func(s *domain.Sequence) { s.TotalBalance = decimal.NewFromInt(-10) }},
		{"unordered steps", func(s *domain.Sequence) {
			s.Steps[0], s.Steps[1] = s.Steps[1], s.Steps[0]
		}},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			seq := newTestSequence("500.00")
			tc.mutate(seq)

			_, err := Project(seq, projectionStart.AddDate(0, 0, 5))

			require.Error(t, err)
			assert.True(t, apperrors.IsCorruptRecord(err))
		})
	}
}
