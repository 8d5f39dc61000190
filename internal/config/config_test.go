package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func Test_Delays_EmptyWhenNoOverrides(t *testing.T) {
	cfg := CollectionsConfig{}
	assert.Empty(t, cfg.Delays())
}

func Test_Delays_MapsChannelOverridesToOffsets(t *testing.T) {
	cfg := CollectionsConfig{
		DelaySMS:   10,
		DelayPhone: 45,
	}

	delays := cfg.Delays()

	assert.Equal(t, map[int]int{7: 10, 30: 45}, delays)
}

func Test_Delays_IgnoresNonPositiveOverrides(t *testing.T) {
	cfg := CollectionsConfig{DelayEmail: -5}
	assert.Empty(t, cfg.Delays())
}
