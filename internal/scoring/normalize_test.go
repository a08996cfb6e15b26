package scoring

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNormalizeFrequency(t *testing.T) {
	tests := []struct {
		name string
		pct  float64
		want float64
	}{
		{"in range passes through", 97.1, 97.1},
		{"zero", 0, 0},
		{"hundred", 100, 100},
		{"above is clipped", 140, 100},
		{"below is clipped", -5, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, NormalizeFrequency(tt.pct))
		})
	}
}

func TestNormalizeClosureStress(t *testing.T) {
	tests := []struct {
		stress int
		want   float64
	}{
		{-4, 100},
		{0, 100},
		{1, 90},
		{6, 90},
		{7, 60},
		{15, 60},
		{16, 20},
		{60, 20},
		{61, 0},
		{500, 0},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, NormalizeClosureStress(tt.stress),
			"stress=%d", tt.stress)
	}
}

// Crossing any breakpoint must strictly drop the normalized band.
func TestNormalizeClosureStressMonotonicAcrossBreakpoints(t *testing.T) {
	breakpoints := [][2]int{{0, 1}, {6, 7}, {15, 16}, {60, 61}}

	for _, bp := range breakpoints {
		before := NormalizeClosureStress(bp[0])
		after := NormalizeClosureStress(bp[1])
		assert.Greater(t, before, after, "breakpoint %d->%d", bp[0], bp[1])
	}
}

func TestComposeScore(t *testing.T) {
	// Perfect card: both components at 100.
	assert.Equal(t, 100.0, ComposeScore(100, 0))

	// Stress dominates the blend 60/40.
	assert.Equal(t, 40.0, ComposeScore(100, 61))
	assert.Equal(t, 60.0, ComposeScore(0, 0))

	// One-decimal rounding.
	assert.Equal(t, 98.9, ComposeScore(97.142857, 0))

	// Out-of-range frequency is clipped before blending.
	assert.Equal(t, 100.0, ComposeScore(130, 0))
}
