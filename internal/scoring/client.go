package scoring

import "math"

// Recency weights for the client-level aggregation. Missing groups do
// not count as zero: the remaining weights are renormalized over the
// groups actually present.
const (
	ActiveWeight = 0.5
	RecentWeight = 0.3
	OlderWeight  = 0.2

	// Redistribution when the client has no live debt.
	historyOnlyRecentWeight = 0.6
	historyOnlyOlderWeight  = 0.4

	// NewClientScore is the starting score for a client with no cards
	// and no history at all.
	NewClientScore = 100
)

// ComputeGlobalScore combines a client's per-card scores into one
// global score in [0,100].
//
// active holds the scores of live (active or pending) cards, recent the
// last up-to-three historical scores most-recent-first, older the rest
// of the history.
//
// The critical override runs before any weighting: a live card scoring
// below the critical threshold pins the client to that card's score.
// Historical cards never trigger it; an old, already-resolved default
// is noise, a delinquent live card is not.
func (e *Engine) ComputeGlobalScore(active, recent, older []float64) int {
	if score, ok := criticalOverride(active); ok {
		return clampScore(score)
	}

	avgActive, hasActive := average(active)
	avgRecent, hasRecent := average(recent)
	avgOlder, hasOlder := average(older)

	// New client: nothing at all.
	if !hasActive && !hasRecent && !hasOlder {
		return NewClientScore
	}

	// Only live cards.
	if hasActive && !hasRecent && !hasOlder {
		return clampScore(int(avgActive))
	}

	// No live debt: history only, with redistributed weights.
	if !hasActive {
		switch {
		case hasRecent && hasOlder:
			return clampScore(int(historyOnlyRecentWeight*avgRecent + historyOnlyOlderWeight*avgOlder))
		case hasRecent:
			return clampScore(int(avgRecent))
		default:
			return clampScore(int(avgOlder))
		}
	}

	// Mixed: weighted average renormalized over the present groups.
	accumulated := ActiveWeight * avgActive
	divisor := ActiveWeight

	if hasRecent {
		accumulated += RecentWeight * avgRecent
		divisor += RecentWeight
	}
	if hasOlder {
		accumulated += OlderWeight * avgOlder
		divisor += OlderWeight
	}

	return clampScore(int(accumulated / divisor))
}

// criticalOverride returns the forced global score if any live card
// scores below the critical threshold: the floor of the worst such
// score.
func criticalOverride(active []float64) (int, bool) {
	worst := math.Inf(1)
	for _, s := range active {
		if s < CriticalScoreThreshold && s < worst {
			worst = s
		}
	}
	if math.IsInf(worst, 1) {
		return 0, false
	}
	return int(math.Floor(worst)), true
}

func average(scores []float64) (float64, bool) {
	if len(scores) == 0 {
		return 0, false
	}
	var sum float64
	for _, s := range scores {
		sum += s
	}
	return sum / float64(len(scores)), true
}

func clampScore(score int) int {
	if score < 0 {
		return 0
	}
	if score > 100 {
		return 100
	}
	return score
}
