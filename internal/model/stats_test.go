package model

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestApplySetsKnownStatistics(t *testing.T) {
	var s PlayerStats

	require.NoError(t, s.Apply("damageDealt", 123.5))
	require.NoError(t, s.Apply("kills", 4))
	require.NoError(t, s.Apply("deaths", float64(2))) // JSON numbers decode as float64
	require.NoError(t, s.Apply("equippedWeapon", "longbow"))

	assert.Equal(t, 123.5, s.DamageDealt)
	assert.Equal(t, 4, s.Kills)
	assert.Equal(t, 2, s.Deaths)
	assert.Equal(t, "longbow", s.EquippedWeapon)
}

func TestApplyRejectsBadInput(t *testing.T) {
	tests := []struct {
		name  string
		stat  string
		value any
		want  error
	}{
		{"unknown name", "goldHoarded", 1, ErrUnknownStatistic},
		{"string into int", "kills", "many", ErrInvalidStatisticValue},
		{"fractional into int", "level", 2.5, ErrInvalidStatisticValue},
		{"number into string", "playTime", 90, ErrInvalidStatisticValue},
		{"bare flag prefix", "flag:", true, ErrUnknownStatistic},
		{"non-bool flag", "flag:tutorialDone", "yes", ErrInvalidStatisticValue},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var s PlayerStats
			assert.ErrorIs(t, s.Apply(tt.stat, tt.value), tt.want)
		})
	}
}

func TestApplyFlags(t *testing.T) {
	var s PlayerStats

	require.NoError(t, s.Apply("flag:tutorialDone", true))
	require.NoError(t, s.Apply("flag:betaTester", false))

	assert.Equal(t, map[string]bool{"tutorialDone": true, "betaTester": false}, s.Flags)
}

func TestKnownStatisticsCoversSetters(t *testing.T) {
	names := KnownStatistics()
	assert.Len(t, names, len(statSetters))
	assert.Contains(t, names, "kills")
	assert.Contains(t, names, "damageDealt")
}
