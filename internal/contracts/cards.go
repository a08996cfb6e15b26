package contracts

import (
	"strings"
	"time"
)

// CardState is the lifecycle state of a card (a single credit)
type CardState string

const (
	CardStateActive    CardState = "activa"
	CardStatePending   CardState = "pendiente"
	CardStateCancelled CardState = "cancelada"
	CardStateArchived  CardState = "archivada"
)

// ParseCardState normalizes the state strings stored in the database.
// Legacy rows carry plural forms ("activas", "pendientes").
func ParseCardState(s string) CardState {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "activa", "activas":
		return CardStateActive
	case "pendiente", "pendientes":
		return CardStatePending
	case "cancelada", "canceladas":
		return CardStateCancelled
	case "archivada", "archivadas":
		return CardStateArchived
	default:
		return CardStateActive
	}
}

// Live reports whether the card still carries live debt.
// Only live cards feed the "active" component of the global score
// and only they can trigger the critical override.
func (s CardState) Live() bool {
	return s == CardStateActive || s == CardStatePending
}

// Closed reports whether the card's debt is resolved.
func (s CardState) Closed() bool {
	return s == CardStateCancelled || s == CardStateArchived
}

// CardTerms holds the immutable terms of a card as stored in `tarjetas`.
// The scoring engine never mutates these; all derived figures
// (total debt, installment value, planned end) are recomputed per call.
type CardTerms struct {
	Code        string     `json:"codigo"`
	ClientID    string     `json:"cliente_identificacion"`
	StartDate   time.Time  `json:"fecha_creacion"`
	Principal   float64    `json:"monto"`
	InterestPct float64    `json:"interes"`
	Installment int        `json:"cuotas"`
	Modality    string     `json:"modalidad"` // diario, semanal, quincenal, mensual (free-form)
	State       CardState  `json:"estado"`
	CancelledAt *time.Time `json:"fecha_cancelacion,omitempty"`
	CollectorID string     `json:"empleado_identificacion,omitempty"`
	AccountID   *int64     `json:"cuenta_id,omitempty"`
}

// Payment is a single payment (abono) against a card.
// Amounts are non-negative; several payments may land on the same
// calendar date and are summed before simulation.
type Payment struct {
	CardCode string    `json:"tarjeta_codigo"`
	Date     time.Time `json:"fecha"`
	Amount   float64   `json:"monto"`
}

// CardIndicators is the engine output for one card. Wire names follow
// the report schema consumed by the back-office frontend.
//
// DaysOverdueFinal is kept signed: negative means the card closed (or
// is projected to close) ahead of its planned end date. Consumers that
// need a count clamp to zero themselves.
type CardIndicators struct {
	DaysOverdueFinal       int     `json:"dias_retraso_final"`
	PaymentFrequencyPct    float64 `json:"frecuencia_pagos"`
	MaxOverdueInstallments int     `json:"max_cuotas_atrasadas"`
	ClosureStressScore     int     `json:"puntaje_atraso_cierre"`
	IndividualScore        float64 `json:"score_individual"`
}
