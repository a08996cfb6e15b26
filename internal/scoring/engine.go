package scoring

import (
	"time"

	"github.com/gestioncarteras/backend/internal/contracts"
)

// Engine is the credit-risk scoring engine: a pure calculator over
// (card terms, payment list, evaluation date). It holds no state, does
// no I/O and caches nothing, so calls with identical inputs always
// produce identical output and per-card calls can run concurrently
// without coordination. Data loading and persistence belong to the
// layers above (internal/report, internal/archiver).
type Engine struct{}

// NewEngine creates a new scoring engine
func NewEngine() *Engine {
	return &Engine{}
}

// ComputeCardIndicators simulates a card's debt coverage day by day and
// reduces it into its delinquency indicators and individual score.
//
// A zero evalDate means "today". The engine does not validate business
// ranges (negative principal, absurd interest); it only guards numeric
// safety and always returns a result.
func (e *Engine) ComputeCardIndicators(terms contracts.CardTerms, payments []contracts.Payment, evalDate time.Time) contracts.CardIndicators {
	if evalDate.IsZero() {
		evalDate = time.Now()
	}
	eval := dayOf(evalDate)
	start := dayOf(terms.StartDate)

	sched := DeriveSchedule(terms)
	closed := terms.State.Closed()

	// For closed cards the simulation stops at the actual close date,
	// falling back through latest payment date and evaluation date when
	// the cancellation date was never recorded.
	closeDate := eval
	if closed {
		closeDate = actualCloseDate(terms, payments, eval)
	}

	elapsed := daysBetween(start, closeDate)
	daysOverdue := daysBetween(sched.PlannedEndDate, closeDate) // signed: negative = ahead of schedule

	// A card opened today (or dated in the future) cannot be
	// delinquent yet.
	if elapsed <= 0 {
		return contracts.CardIndicators{
			DaysOverdueFinal:       maxInt(0, daysOverdue),
			PaymentFrequencyPct:    100,
			MaxOverdueInstallments: 0,
			ClosureStressScore:     0,
			IndividualScore:        100,
		}
	}

	sim := simulate(sched, start, paymentsByDay(payments), elapsed)
	freq := frequencyPct(sim, sched, closed)

	// Closure stress: unresolved installments today plus days past the
	// planned end. A cancelled card's debt is resolved by definition,
	// so only the overshoot in days remains.
	pendingToday := 0
	if !closed {
		pendingToday = sim.FinalOverdueInstallments
	}
	stress := pendingToday + maxInt(0, daysOverdue)

	return contracts.CardIndicators{
		DaysOverdueFinal:       daysOverdue,
		PaymentFrequencyPct:    round1(freq),
		MaxOverdueInstallments: sim.MaxOverdueInstallments,
		ClosureStressScore:     stress,
		IndividualScore:        ComposeScore(freq, stress),
	}
}

// actualCloseDate resolves when a closed card actually ended:
// cancellation date if recorded, else the latest payment date, else the
// evaluation date. The fallbacks are documented approximations for
// legacy rows, not guesses.
func actualCloseDate(terms contracts.CardTerms, payments []contracts.Payment, eval time.Time) time.Time {
	if terms.CancelledAt != nil {
		return dayOf(*terms.CancelledAt)
	}

	var latest time.Time
	for _, p := range payments {
		if d := dayOf(p.Date); d.After(latest) {
			latest = d
		}
	}
	if !latest.IsZero() {
		return latest
	}

	return eval
}

func maxInt(a, b int) int {
	if a > b {
		return a
	}
	return b
}
