package contracts

import "time"

// Company labels shown on the client report. Cards collected by an
// employee of the requesting account are "Esta Empresa"; everything
// else is anonymized as an external entity.
const (
	CompanyLabelOwn      = "Esta Empresa"
	CompanyLabelExternal = "Entidad Externa"
)

// CreditHistoryItem is the compacted summary of an archived card,
// persisted as one element of the client's `historial_crediticio` jsonb
// array. It carries the final indicators so old cards never need to be
// re-simulated.
type CreditHistoryItem struct {
	ReferenceID            string  `json:"id_referencia"`
	StartDate              string  `json:"fecha_inicio"` // YYYY-MM-DD
	Amount                 float64 `json:"monto"`
	DaysOverdueFinal       int     `json:"dias_retraso_final"`
	PaymentFrequencyPct    float64 `json:"frecuencia_pagos"`
	MaxOverdueInstallments int     `json:"max_cuotas_atrasadas"`
	ClosureStressScore     int     `json:"puntaje_atraso_cierre"`
	IndividualScore        float64 `json:"score_individual"`
	FinalState             string  `json:"estado_final"`
	AccountID              *int64  `json:"cuenta_id,omitempty"`
	CompanyLabel           string  `json:"empresa_anonym"`
}

// CardReport is one live card scored for the client report.
type CardReport struct {
	ReferenceID  string         `json:"id_referencia"`
	StartDate    string         `json:"fecha_inicio"` // YYYY-MM-DD
	Amount       float64        `json:"monto"`
	State        CardState      `json:"estado_final"`
	CompanyLabel string         `json:"empresa_anonym"`
	AccountID    *int64         `json:"cuenta_id,omitempty"`
	CollectorID  string         `json:"empleado_identificacion,omitempty"`
	Indicators   CardIndicators `json:"indicadores"`
}

// ClientReport is the internal credit report for one client: compacted
// history plus live analysis of every non-archived card.
type ClientReport struct {
	ClientID         string              `json:"cliente_identificacion"`
	FirstName        string              `json:"cliente_nombre"`
	LastName         string              `json:"cliente_apellido"`
	GlobalScore      int                 `json:"score_global"`
	TotalClosed      int                 `json:"total_creditos_cerrados"`
	TotalActive      int                 `json:"total_creditos_activos"`
	AvgOverdueDays   float64             `json:"promedio_retraso_historico"`
	AvgFrequencyPct  float64             `json:"frecuencia_pago_promedio"`
	RegistryFlagged  bool                `json:"registro_morosidad,omitempty"`
	ActiveCards      []CardReport        `json:"tarjetas_activas"`
	CompactHistory   []CreditHistoryItem `json:"historial_compactado"`
	GeneratedAt      time.Time           `json:"generado_en"`
}

// Client is the row from `clientes` the report and archiver care about.
type Client struct {
	Identification string
	FirstName      string
	LastName       string
	GlobalScore    int
	CreditHistory  []CreditHistoryItem
}
