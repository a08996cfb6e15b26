package contracts

import (
	"context"
	"time"
)

// CardReader supplies card terms and payments to the scoring layers.
// Implementations materialize everything before handing it over; the
// engine never lazy-loads.
type CardReader interface {
	// CardsByClient returns every non-archived card of a client,
	// across all accounts.
	CardsByClient(ctx context.Context, clientID string) ([]CardTerms, error)

	// PaymentsByCard returns the payments of one card ordered by date.
	PaymentsByCard(ctx context.Context, cardCode string) ([]Payment, error)

	// CancelledBefore returns cancelled cards whose cancellation (or,
	// lacking one, creation) predates the cutoff. Used by the archiver.
	CancelledBefore(ctx context.Context, cutoff time.Time) ([]CardTerms, error)
}

// ClientStore reads and updates client rows.
type ClientStore interface {
	// ClientByID returns the client with its compacted credit history.
	ClientByID(ctx context.Context, clientID string) (*Client, error)

	// UpdateScore refreshes the cached global score. The cache lives on
	// the client row, never inside the scoring engine.
	UpdateScore(ctx context.Context, clientID string, score int) error
}

// CollectorDirectory resolves which collectors belong to an account,
// so the report can label cards as own-account or external.
type CollectorDirectory interface {
	CollectorIDs(ctx context.Context, accountID int64) (map[string]bool, error)
}
