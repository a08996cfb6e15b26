package scoring

import (
	"math"
	"time"

	"github.com/gestioncarteras/backend/internal/contracts"
)

// DayCoverage is one day of the coverage trace.
type DayCoverage struct {
	Covered             bool
	OverdueInstallments int
}

// simulation is the reduced outcome of the day-by-day walk over a
// card's elapsed life.
type simulation struct {
	ElapsedDays int
	CoveredDays int

	// Historical peak of the per-day overdue-installment count.
	MaxOverdueInstallments int

	// Overdue-installment count on the last simulated day, i.e. the
	// deficit photograph at close/evaluation time.
	FinalOverdueInstallments int

	Trace []DayCoverage
}

// paymentsByDay collapses a payment list into per-calendar-day totals.
// Several payments on the same date are one day's worth of coverage.
func paymentsByDay(payments []contracts.Payment) map[time.Time]float64 {
	byDay := make(map[time.Time]float64, len(payments))
	for _, p := range payments {
		byDay[dayOf(p.Date)] += p.Amount
	}
	return byDay
}

// simulate walks days 1..elapsed tracking cumulative payments against
// the expected debt curve.
//
// A day counts as covered if a payment landed on that exact day, or if
// the cumulative total reaches the expected debt minus the tolerance
// band (10% of one installment, absorbing rounding and small partial
// payments). The per-day overdue count is the ceiling of the deficit in
// installments, zero while the deficit stays inside the band.
func simulate(sched Schedule, start time.Time, byDay map[time.Time]float64, elapsed int) simulation {
	sim := simulation{
		ElapsedDays: elapsed,
		Trace:       make([]DayCoverage, 0, elapsed),
	}

	tolerance := ToleranceRatio * sched.InstallmentValue
	var cumPaid float64

	for i := 1; i <= elapsed; i++ {
		day := start.AddDate(0, 0, i)

		accrued := i / sched.CadenceStepDays
		if accrued > sched.Installments {
			accrued = sched.Installments
		}
		expected := sched.InstallmentValue * float64(accrued)
		if expected > sched.TotalDebt {
			expected = sched.TotalDebt
		}

		paidToday := byDay[day]
		cumPaid += paidToday

		covered := paidToday > 0 || cumPaid >= expected-tolerance
		if covered {
			sim.CoveredDays++
		}

		overdue := 0
		if deficit := expected - cumPaid; deficit > tolerance {
			overdue = int(math.Ceil(deficit / sched.InstallmentValue))
		}
		if overdue > sim.MaxOverdueInstallments {
			sim.MaxOverdueInstallments = overdue
		}
		if i == elapsed {
			sim.FinalOverdueInstallments = overdue
		}

		sim.Trace = append(sim.Trace, DayCoverage{
			Covered:             covered,
			OverdueInstallments: overdue,
		})
	}

	return sim
}

// frequencyPct reduces the trace into the punctuality percentage.
//
// Cancelled cards report the raw observed coverage. Active cards blend
// the observation with remaining progress so a ten-day-old card with
// one missed day is not punished like a mature one: the unobserved
// remainder of the schedule is presumed punctual.
func frequencyPct(sim simulation, sched Schedule, closed bool) float64 {
	if sim.ElapsedDays <= 0 {
		return 100
	}

	observed := float64(sim.CoveredDays) / float64(sim.ElapsedDays) * 100

	if closed {
		return observed
	}

	progress := float64(sim.ElapsedDays) / float64(sched.PlannedDurationDays)
	if progress > 1 {
		progress = 1
	}
	return observed*progress + 100*(1-progress)
}
