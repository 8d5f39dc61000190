package engine

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spec-kit/collections-sequencer/internal/domain"
	apperrors "github.com/spec-kit/collections-sequencer/pkg/util"
)

func autoConfig() Config {
	return Config{AutoEscalation: true}
}

func Test_Tick_AdvancesWhenThresholdReached(t *testing.T) {
	seq := newTestSequence("500.00")

	result, err := Tick(seq, projectionStart.AddDate(0, 0, 8), autoConfig())

	require.NoError(t, err)
	assert.True(t, result.Advanced)
	assert.Equal(t, 0, result.FromOffset)
	assert.Equal(t, 7, result.ToOffset)
	assert.Equal(t, 7, seq.CurrentStepOffset)
	assert.Equal(t, domain.SequenceStatusActive, seq.Status)

	assert.Equal(t, domain.StepStatusCompleted, seq.Step(0).Status)
	sms := seq.Step(7)
	assert.Equal(t, domain.StepStatusSent, sms.Status)
	require.NotNil(t, sms.SentAt)
	assert.False(t, sms.Manual)
}

func Test_Tick_NoopBeforeThreshold(t *testing.T) {
	seq := newTestSequence("500.00")

	result, err := Tick(seq, projectionStart.AddDate(0, 0, 6), autoConfig())

	require.NoError(t, err)
	assert.False(t, result.Advanced)
	assert.Equal(t, 0, seq.CurrentStepOffset)
	assert.Equal(t, domain.StepStatusPending, seq.Step(7).Status)
}

func Test_Tick_SameInstantTwiceAdvancesOnce(t *testing.T) {
	seq := newTestSequence("500.00")
	now := projectionStart.AddDate(0, 0, 8)

	first, err := Tick(seq, now, autoConfig())
	require.NoError(t, err)
	require.True(t, first.Advanced)

	second, err := Tick(seq, now, autoConfig())
	require.NoError(t, err)
	assert.False(t, second.Advanced)
	assert.Equal(t, 7, seq.CurrentStepOffset)
}

func Test_Tick_CatchesUpOneStepPerDay(t *testing.T) {
	// Resumed after a long pause at offset 30 with 70 days elapsed: the
	// sequence walks 30 -> 60 -> 90 across daily ticks, never jumping.
	seq := newTestSequence("500.00")
	seq.CurrentStepOffset = 30
	seq.Step(0).Status = domain.StepStatusCompleted
	seq.Step(7).Status = domain.StepStatusCompleted
	seq.Step(14).Status = domain.StepStatusCompleted
	sentAt := projectionStart.AddDate(0, 0, 30)
	phone := seq.Step(30)
	phone.Status = domain.StepStatusSent
	phone.SentAt = &sentAt

	day70 := projectionStart.AddDate(0, 0, 70)
	result, err := Tick(seq, day70, autoConfig())
	require.NoError(t, err)
	require.True(t, result.Advanced)
	assert.Equal(t, 60, result.ToOffset)
	assert.Equal(t, domain.SequenceStatusActive, seq.Status)

	// Same day again: blocked until the next daily run.
	again, err := Tick(seq, day70.Add(time.Hour), autoConfig())
	require.NoError(t, err)
	assert.False(t, again.Advanced)

	day71 := projectionStart.AddDate(0, 0, 71)
	result, err = Tick(seq, day71, autoConfig())
	require.NoError(t, err)
	require.True(t, result.Advanced)
	assert.Equal(t, 90, result.ToOffset)
	assert.Equal(t, domain.SequenceStatusSentToAgency, seq.Status)
}

func Test_Tick_PausedSequenceIsFrozen(t *testing.T) {
	seq := newTestSequence("500.00")
	pausedAt := projectionStart.AddDate(0, 0, 3)
	seq.Status = domain.SequenceStatusPaused
	seq.PausedAt = &pausedAt

	result, err := Tick(seq, projectionStart.AddDate(0, 0, 45), autoConfig())

	require.NoError(t, err)
	assert.False(t, result.Advanced)
	assert.Equal(t, 0, seq.CurrentStepOffset)
	assert.Equal(t, domain.SequenceStatusPaused, seq.Status)
}

func Test_Tick_TerminalSequenceIsFrozen(t *testing.T) {
	for _, status := range []domain.SequenceStatus{domain.SequenceStatusCompleted, domain.SequenceStatusSentToAgency} {
		seq := newTestSequence("500.00")
		seq.Status = status

		result, err := Tick(seq, projectionStart.AddDate(0, 0, 100), autoConfig())

		require.NoError(t, err)
		assert.False(t, result.Advanced)
	}
}

func Test_Tick_AutoEscalationDisabled(t *testing.T) {
	seq := newTestSequence("500.00")

	result, err := Tick(seq, projectionStart.AddDate(0, 0, 30), Config{AutoEscalation: false})

	require.NoError(t, err)
	assert.False(t, result.Advanced)
	assert.Equal(t, 0, seq.CurrentStepOffset)
}

func Test_Tick_HonorsDelayOverrides(t *testing.T) {
	seq := newTestSequence("500.00")
	cfg := Config{AutoEscalation: true, Delays: map[int]int{7: 10}}

	result, err := Tick(seq, projectionStart.AddDate(0, 0, 8), cfg)
	require.NoError(t, err)
	assert.False(t, result.Advanced)

	result, err = Tick(seq, projectionStart.AddDate(0, 0, 10), cfg)
	require.NoError(t, err)
	assert.True(t, result.Advanced)
	assert.Equal(t, 7, result.ToOffset)
}

func Test_Tick_ReachingAgencyTerminates(t *testing.T) {
	seq := newTestSequence("500.00")
	seq.CurrentStepOffset = 60
	sentAt := projectionStart.AddDate(0, 0, 60)
	final := seq.Step(60)
	final.Status = domain.StepStatusSent
	final.SentAt = &sentAt

	result, err := Tick(seq, projectionStart.AddDate(0, 0, 90), autoConfig())

	require.NoError(t, err)
	require.True(t, result.Advanced)
	assert.Equal(t, 90, result.ToOffset)
	assert.Equal(t, domain.SequenceStatusSentToAgency, seq.Status)
	assert.Equal(t, domain.StepStatusSent, seq.Step(90).Status)
	assert.Equal(t, domain.StepStatusCompleted, seq.Step(60).Status)
}

func Test_Tick_RejectsCorruptRecord(t *testing.T) {
	seq := newTestSequence("500.00")
	seq.StartedAt = time.Time{}

	_, err := Tick(seq, projectionStart, autoConfig())

	require.Error(t, err)
	assert.True(t, apperrors.IsCorruptRecord(err))
}

func Test_Escalate_AdvancesImmediately(t *testing.T) {
	seq := newTestSequence("500.00")
	now := projectionStart.AddDate(0, 0, 2)

	result, err := Escalate(seq, now)

	require.NoError(t, err)
	assert.True(t, result.Advanced)
	assert.Equal(t, 7, result.ToOffset)
	sms := seq.Step(7)
	assert.Equal(t, domain.StepStatusSent, sms.Status)
	assert.True(t, sms.Manual)
}

func Test_Escalate_ResumesPausedSequence(t *testing.T) {
	seq := newTestSequence("500.00")
	pausedAt := projectionStart.AddDate(0, 0, 1)
	seq.Status = domain.SequenceStatusPaused
	seq.PausedAt = &pausedAt

	result, err := Escalate(seq, projectionStart.AddDate(0, 0, 2))

	require.NoError(t, err)
	assert.True(t, result.Advanced)
	assert.Equal(t, domain.SequenceStatusActive, seq.Status)
	assert.Nil(t, seq.PausedAt)
}

func Test_Escalate_IntoAgencyTerminates(t *testing.T) {
	seq := newTestSequence("500.00")
	seq.CurrentStepOffset = 60
	seq.Step(60).Status = domain.StepStatusSent

	result, err := Escalate(seq, projectionStart.AddDate(0, 0, 61))

	require.NoError(t, err)
	assert.Equal(t, 90, result.ToOffset)
	assert.Equal(t, domain.SequenceStatusSentToAgency, seq.Status)
}

func Test_Escalate_RejectedAtFinalStep(t *testing.T) {
	seq := newTestSequence("500.00")
	seq.CurrentStepOffset = 90
	seq.Status = domain.SequenceStatusSentToAgency

	_, err := Escalate(seq, projectionStart.AddDate(0, 0, 95))

	require.Error(t, err)
	assert.True(t, apperrors.IsInvalidState(err))
}

func Test_Escalate_RejectedOnCompletedSequence(t *testing.T) {
	seq := newTestSequence("500.00")
	seq.Status = domain.SequenceStatusCompleted

	_, err := Escalate(seq, projectionStart.AddDate(0, 0, 5))

	require.Error(t, err)
	assert.True(t, apperrors.IsInvalidState(err))
}
