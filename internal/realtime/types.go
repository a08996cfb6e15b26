package realtime

import "time"

// EventType discriminates the events pushed to back-office dashboards.
type EventType string

const (
	EventPaymentRegistered EventType = "payment_registered"
	EventScoreChanged      EventType = "score_changed"
	EventCardsArchived     EventType = "cards_archived"
)

// Event is one message broadcast to every connected dashboard.
type Event struct {
	Type      EventType   `json:"type"`
	ClientID  string      `json:"cliente_identificacion,omitempty"`
	Payload   interface{} `json:"payload,omitempty"`
	Timestamp time.Time   `json:"timestamp"`
}

// ScoreChangedPayload carries the score movement of one client.
type ScoreChangedPayload struct {
	Previous int `json:"previous"`
	Current  int `json:"current"`
}

// PaymentPayload carries a freshly registered payment.
type PaymentPayload struct {
	CardCode string  `json:"tarjeta_codigo"`
	Amount   float64 `json:"monto"`
}
