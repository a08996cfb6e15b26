package scoring

import (
	"strings"
	"time"

	"github.com/gestioncarteras/backend/internal/contracts"
)

// Cadence steps in days. The modality column is free-form text typed by
// account admins ("Pago Semanal", "QUINCENAL", ...), so matching is a
// case-insensitive substring check and anything unrecognized falls back
// to daily, same as "diario".
const (
	stepDaily    = 1
	stepWeekly   = 7
	stepBiweekly = 15
	stepMonthly  = 30
)

// Schedule is a card's debt curve derived from its terms. It is
// recomputed on every call and never stored.
type Schedule struct {
	TotalDebt           float64
	InstallmentValue    float64
	Installments        int // clamped to >= 1
	CadenceStepDays     int
	PlannedDurationDays int
	PlannedEndDate      time.Time
}

// DeriveSchedule computes the expected debt curve for a card.
//
// Negative principal or interest is passed through untouched: range
// validation belongs to the write path upstream, the engine only
// guarantees it will not divide by zero.
func DeriveSchedule(terms contracts.CardTerms) Schedule {
	installments := terms.Installment
	if installments <= 0 {
		// Defensive clamp, not a business rule: a count of zero would
		// make the installment value undefined.
		installments = 1
	}

	totalDebt := terms.Principal * (1 + terms.InterestPct/100)
	step := CadenceStepDays(terms.Modality)
	duration := installments * step

	return Schedule{
		TotalDebt:           totalDebt,
		InstallmentValue:    totalDebt / float64(installments),
		Installments:        installments,
		CadenceStepDays:     step,
		PlannedDurationDays: duration,
		PlannedEndDate:      dayOf(terms.StartDate).AddDate(0, 0, duration),
	}
}

// CadenceStepDays maps a modality string to its step in days.
func CadenceStepDays(modality string) int {
	m := strings.ToLower(modality)
	switch {
	case strings.Contains(m, "semanal"):
		return stepWeekly
	case strings.Contains(m, "quincenal"):
		return stepBiweekly
	case strings.Contains(m, "mensual"):
		return stepMonthly
	default:
		return stepDaily
	}
}
