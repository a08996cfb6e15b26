package scoring

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/gestioncarteras/backend/internal/contracts"
)

func TestComputeCardIndicatorsBrandNewCard(t *testing.T) {
	engine := NewEngine()
	eval := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)

	for _, start := range []time.Time{
		eval,                  // opened today
		eval.AddDate(0, 0, 5), // dated in the future
	} {
		card := dailyCard()
		card.StartDate = start

		got := engine.ComputeCardIndicators(card, nil, eval)

		assert.Equal(t, 0, got.DaysOverdueFinal)
		assert.Equal(t, 100.0, got.PaymentFrequencyPct)
		assert.Equal(t, 0, got.MaxOverdueInstallments)
		assert.Equal(t, 0, got.ClosureStressScore)
		assert.Equal(t, 100.0, got.IndividualScore)
	}
}

// Reference scenario: daily cadence, 1,000,000 at 20% over 40
// installments (30,000 each), 34 of 35 elapsed days covered after one
// missed day was caught up.
func TestComputeCardIndicatorsReferenceScenario(t *testing.T) {
	engine := NewEngine()

	payments := dailyPayments(30_000, 1, 35, 20, 21)
	payments = append(payments, contracts.Payment{
		Date:   simStart.AddDate(0, 0, 21),
		Amount: 60_000,
	})

	cancelledAt := simStart.AddDate(0, 0, 35)
	card := dailyCard()
	card.State = contracts.CardStateCancelled
	card.CancelledAt = &cancelledAt

	got := engine.ComputeCardIndicators(card, payments, cancelledAt)

	assert.InDelta(t, 97.14, got.PaymentFrequencyPct, 0.1)
	assert.Equal(t, 1, got.MaxOverdueInstallments)
	// Closed 5 days ahead of the 40-day plan.
	assert.Equal(t, -5, got.DaysOverdueFinal)
	// Cancelled: pending installments are zero by definition, and the
	// overdue-day overshoot is negative, so stress is zero.
	assert.Equal(t, 0, got.ClosureStressScore)
	assert.Equal(t, 98.9, got.IndividualScore)
}

func TestComputeCardIndicatorsActiveBlendsProgress(t *testing.T) {
	engine := NewEngine()

	payments := dailyPayments(30_000, 1, 35, 20, 21)
	payments = append(payments, contracts.Payment{
		Date:   simStart.AddDate(0, 0, 21),
		Amount: 60_000,
	})

	got := engine.ComputeCardIndicators(dailyCard(), payments, simStart.AddDate(0, 0, 35))

	// 34/35 observed, blended over 35/40 progress: 97.5.
	assert.InDelta(t, 97.5, got.PaymentFrequencyPct, 0.05)
	assert.Equal(t, -5, got.DaysOverdueFinal)
	assert.Equal(t, 0, got.ClosureStressScore)
	assert.Equal(t, 99.0, got.IndividualScore)
}

func TestComputeCardIndicatorsDelinquentActiveCard(t *testing.T) {
	engine := NewEngine()

	// No payments at all, evaluated 10 days in.
	got := engine.ComputeCardIndicators(dailyCard(), nil, simStart.AddDate(0, 0, 10))

	assert.Equal(t, -30, got.DaysOverdueFinal)
	assert.Equal(t, 10, got.MaxOverdueInstallments)
	// 10 pending installments today, no overdue days yet.
	assert.Equal(t, 10, got.ClosureStressScore)
	// freq: 0 observed, progress 0.25 -> 75; stress 10 -> 60.
	// 0.4*75 + 0.6*60 = 66.
	assert.InDelta(t, 75.0, got.PaymentFrequencyPct, 0.01)
	assert.Equal(t, 66.0, got.IndividualScore)
}

func TestComputeCardIndicatorsOverdueDaysPastPlannedEnd(t *testing.T) {
	engine := NewEngine()

	// Fully paid on time but evaluated 50 days after start: the card
	// was never cancelled, so days past the planned end accumulate.
	payments := dailyPayments(30_000, 1, 40)
	got := engine.ComputeCardIndicators(dailyCard(), payments, simStart.AddDate(0, 0, 50))

	assert.Equal(t, 10, got.DaysOverdueFinal)
	// Debt fully covered: no pending installments, stress is the
	// 10-day overshoot alone.
	assert.Equal(t, 10, got.ClosureStressScore)
}

func TestComputeCardIndicatorsCancelledFallsBackToLastPayment(t *testing.T) {
	engine := NewEngine()

	card := dailyCard()
	card.State = contracts.CardStateCancelled
	card.CancelledAt = nil // legacy row without a cancellation date

	payments := dailyPayments(100_000, 1, 12)
	got := engine.ComputeCardIndicators(card, payments, simStart.AddDate(0, 0, 90))

	// Close date approximated by the latest payment (day 12), not the
	// evaluation date: 12 - 40 = -28.
	assert.Equal(t, -28, got.DaysOverdueFinal)
}

func TestComputeCardIndicatorsCancelledNoPaymentsFallsBackToEval(t *testing.T) {
	engine := NewEngine()

	card := dailyCard()
	card.State = contracts.CardStateCancelled
	card.CancelledAt = nil

	got := engine.ComputeCardIndicators(card, nil, simStart.AddDate(0, 0, 45))

	// No cancellation date, no payments: evaluation date closes it.
	assert.Equal(t, 5, got.DaysOverdueFinal)
}

func TestComputeCardIndicatorsNormalizesTimestamps(t *testing.T) {
	engine := NewEngine()

	dateOnly := dailyCard()
	withTime := dailyCard()
	withTime.StartDate = simStart.Add(18*time.Hour + 22*time.Minute)

	paymentsA := dailyPayments(30_000, 1, 20)
	var paymentsB []contracts.Payment
	for _, p := range paymentsA {
		p.Date = p.Date.Add(9*time.Hour + 31*time.Minute)
		paymentsB = append(paymentsB, p)
	}

	eval := simStart.AddDate(0, 0, 20).Add(23 * time.Hour)

	a := engine.ComputeCardIndicators(dateOnly, paymentsA, simStart.AddDate(0, 0, 20))
	b := engine.ComputeCardIndicators(withTime, paymentsB, eval)

	assert.Equal(t, a, b, "time-of-day must be discarded before simulation")
}

func TestComputeCardIndicatorsIdempotent(t *testing.T) {
	engine := NewEngine()

	payments := dailyPayments(30_000, 1, 30, 7, 13)
	eval := simStart.AddDate(0, 0, 33)

	first := engine.ComputeCardIndicators(dailyCard(), payments, eval)
	second := engine.ComputeCardIndicators(dailyCard(), payments, eval)

	assert.Equal(t, first, second)
}

func TestComputeCardIndicatorsBounds(t *testing.T) {
	engine := NewEngine()

	scenarios := []struct {
		name     string
		payments []contracts.Payment
		eval     time.Time
		state    contracts.CardState
	}{
		{"no payments early", nil, simStart.AddDate(0, 0, 3), contracts.CardStateActive},
		{"no payments very late", nil, simStart.AddDate(0, 0, 400), contracts.CardStateActive},
		{"perfect", dailyPayments(30_000, 1, 40), simStart.AddDate(0, 0, 40), contracts.CardStateActive},
		{"overpaid", dailyPayments(90_000, 1, 40), simStart.AddDate(0, 0, 45), contracts.CardStateActive},
		{"sparse", dailyPayments(30_000, 1, 60, 2, 3, 5, 8, 13, 21, 34, 55), simStart.AddDate(0, 0, 60), contracts.CardStateActive},
		{"pending state", dailyPayments(10_000, 1, 10), simStart.AddDate(0, 0, 15), contracts.CardStatePending},
	}

	for _, sc := range scenarios {
		t.Run(sc.name, func(t *testing.T) {
			card := dailyCard()
			card.State = sc.state

			got := engine.ComputeCardIndicators(card, sc.payments, sc.eval)

			assert.GreaterOrEqual(t, got.PaymentFrequencyPct, 0.0)
			assert.LessOrEqual(t, got.PaymentFrequencyPct, 100.0)
			assert.GreaterOrEqual(t, got.IndividualScore, 0.0)
			assert.LessOrEqual(t, got.IndividualScore, 100.0)
			assert.GreaterOrEqual(t, got.MaxOverdueInstallments, 0)
			assert.GreaterOrEqual(t, got.ClosureStressScore, 0)
		})
	}
}

func TestComputeCardIndicatorsZeroInstallments(t *testing.T) {
	engine := NewEngine()

	card := dailyCard()
	card.Installment = 0

	// Must not panic; the count is clamped to one installment.
	got := engine.ComputeCardIndicators(card, nil, simStart.AddDate(0, 0, 5))
	assert.GreaterOrEqual(t, got.IndividualScore, 0.0)
}
