package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestScore(t *testing.T) {
	assert.Equal(t, 1, Score(1, 1, 1))
	assert.Equal(t, 1000, Score(10, 10, 10))
	assert.Equal(t, 120, Score(4, 5, 6))
}

func TestLevelBoundaries(t *testing.T) {
	cases := []struct {
		score int
		level string
	}{
		{1, LevelLow},
		{49, LevelLow},
		{50, LevelMedium},
		{199, LevelMedium},
		{200, LevelHigh},
		{499, LevelHigh},
		{500, LevelCritical},
		{1000, LevelCritical},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.level, Level(tc.score), "score %d", tc.score)
	}
}

func TestLevelMatchesScoreForAllFactors(t *testing.T) {
	// The level derived from any factor combination must agree with the
	// boundary table above.
	for p := 1; p <= 10; p++ {
		for s := 1; s <= 10; s++ {
			for d := 1; d <= 10; d++ {
				score := Score(p, s, d)
				level := Level(score)
				switch {
				case score >= 500:
					assert.Equal(t, LevelCritical, level)
				case score >= 200:
					assert.Equal(t, LevelHigh, level)
				case score >= 50:
					assert.Equal(t, LevelMedium, level)
				default:
					assert.Equal(t, LevelLow, level)
				}
			}
		}
	}
}

func TestValidFactor(t *testing.T) {
	assert.False(t, ValidFactor(0))
	assert.True(t, ValidFactor(1))
	assert.True(t, ValidFactor(10))
	assert.False(t, ValidFactor(11))
}
