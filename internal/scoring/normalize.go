package scoring

import "math"

// Calibrated business constants. None of these are derived from a
// formula; they were tuned against the portfolio and must survive as
// named values so they can be revisited without re-deriving the
// algorithm.
const (
	// ToleranceRatio is the grace band for coverage and deficit
	// checks, as a fraction of one installment.
	ToleranceRatio = 0.10

	// Weights of the individual-score blend. Sustained payment habit
	// matters less than the outstanding delinquency at evaluation time.
	FrequencyWeight = 0.40
	StressWeight    = 0.60

	// CriticalScoreThreshold is the individual score below which a
	// live card forces the client's global score down.
	CriticalScoreThreshold = 30.0
)

// Closure-stress step curve. The breakpoints are a fixed business
// lookup, not a continuous function.
const (
	stressMildMax     = 6  // 1..6   -> 90
	stressSeriousMax  = 15 // 7..15  -> 60
	stressCriticalMax = 60 // 16..60 -> 20
)

// NormalizeFrequency clips an already-percentual frequency to [0,100].
func NormalizeFrequency(pct float64) float64 {
	return math.Min(100, math.Max(0, pct))
}

// NormalizeClosureStress maps the closure-stress figure (pending
// installments + days past the planned end) to a 0-100 band.
func NormalizeClosureStress(stress int) float64 {
	switch {
	case stress <= 0:
		return 100
	case stress <= stressMildMax:
		return 90
	case stress <= stressSeriousMax:
		return 60
	case stress <= stressCriticalMax:
		return 20
	default:
		return 0
	}
}

// ComposeScore blends the normalized indicators into the individual
// card score, rounded to one decimal.
func ComposeScore(frequencyPct float64, closureStress int) float64 {
	score := FrequencyWeight*NormalizeFrequency(frequencyPct) +
		StressWeight*NormalizeClosureStress(closureStress)
	return round1(score)
}

// round1 rounds to one decimal place.
func round1(x float64) float64 {
	return math.Round(x*10) / 10
}
