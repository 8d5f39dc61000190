package catalog

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func Test_Steps_ReturnsSixOrderedEntries(t *testing.T) {
	all := Steps()

	require.Len(t, all, 6)
	assert.Equal(t, []int{0, 7, 14, 30, 60, 90}, Offsets())

	prev := -1
	for _, step := range all {
		assert.Greater(t, step.Offset, prev)
		assert.NotEmpty(t, step.Action)
		prev = step.Offset
	}
}

func Test_Steps_ChannelsMatchLadder(t *testing.T) {
	expected := map[int]Channel{
		0:  ChannelStatement,
		7:  ChannelSMS,
		14: ChannelEmail,
		30: ChannelPhone,
		60: ChannelFinalNotice,
		90: ChannelAgency,
	}
	for offset, channel := range expected {
		step, err := StepAt(offset)
		require.NoError(t, err)
		assert.Equal(t, channel, step.Channel)
	}
}

func Test_StepAt_RejectsUnknownOffset(t *testing.T) {
	for _, offset := range []int{-1, 1, 15, 89, 91} {
		_, err := StepAt(offset)
		assert.ErrorIs(t, err, ErrUnknownOffset)
	}
}

func Test_NextOffset_WalksTheLadder(t *testing.T) {
	hops := map[int]int{0: 7, 7: 14, 14: 30, 30: 60, 60: 90}
	for from, want := range hops {
		next, ok := NextOffset(from)
		require.True(t, ok)
		assert.Equal(t, want, next)
	}
}

func Test_NextOffset_StopsAtAgency(t *testing.T) {
	_, ok := NextOffset(90)
	assert.False(t, ok)

	_, ok = NextOffset(42)
	assert.False(t, ok)
}

func Test_Contains_And_FinalOffset(t *testing.T) {
	assert.True(t, Contains(0))
	assert.True(t, Contains(90))
	assert.False(t, Contains(45))
	assert.Equal(t, 90, FinalOffset())
}

func Test_Steps_ReturnsACopy(t *testing.T) {
	mutated := Steps()
	mutated[0].Offset = 999

	step, err := StepAt(0)
	require.NoError(t, err)
	assert.Equal(t, 0, step.Offset)
}
