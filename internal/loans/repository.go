package loans

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/gestioncarteras/backend/internal/contracts"
)

// Repository reads cards (tarjetas) and payments (abonos). The scoring
// layers receive fully materialized slices; nothing here is lazy.
type Repository struct {
	db *pgxpool.Pool
}

// NewRepository creates a new Repository instance
func NewRepository(db *pgxpool.Pool) *Repository {
	return &Repository{db: db}
}

// CardsByClient returns every non-archived card of a client across all
// accounts. The credit report is deliberately global: it sees
// inter-account history, anonymized at the report layer.
func (r *Repository) CardsByClient(ctx context.Context, clientID string) ([]contracts.CardTerms, error) {
	query := `
		SELECT
			t.codigo,
			t.cliente_identificacion,
			t.fecha_creacion,
			t.monto,
			t.interes,
			t.cuotas,
			COALESCE(t.modalidad, 'diario'),
			t.estado,
			t.fecha_cancelacion,
			t.empleado_identificacion,
			t.cuenta_id
		FROM tarjetas t
		WHERE t.cliente_identificacion = $1
		ORDER BY t.fecha_creacion DESC
	`

	rows, err := r.db.Query(ctx, query, clientID)
	if err != nil {
		return nil, fmt.Errorf("query client cards: %w", err)
	}
	defer rows.Close()

	return scanCards(rows)
}

// CardByCode returns one card, or nil when it does not exist.
func (r *Repository) CardByCode(ctx context.Context, cardCode string) (*contracts.CardTerms, error) {
	query := `
		SELECT
			t.codigo,
			t.cliente_identificacion,
			t.fecha_creacion,
			t.monto,
			t.interes,
			t.cuotas,
			COALESCE(t.modalidad, 'diario'),
			t.estado,
			t.fecha_cancelacion,
			t.empleado_identificacion,
			t.cuenta_id
		FROM tarjetas t
		WHERE t.codigo = $1
	`

	rows, err := r.db.Query(ctx, query, cardCode)
	if err != nil {
		return nil, fmt.Errorf("query card: %w", err)
	}
	defer rows.Close()

	cards, err := scanCards(rows)
	if err != nil {
		return nil, err
	}
	if len(cards) == 0 {
		return nil, nil
	}
	return &cards[0], nil
}

// PaymentsByCard returns the payments of one card ordered by date.
func (r *Repository) PaymentsByCard(ctx context.Context, cardCode string) ([]contracts.Payment, error) {
	query := `
		SELECT tarjeta_codigo, fecha, monto
		FROM abonos
		WHERE tarjeta_codigo = $1
		ORDER BY fecha ASC, indice_orden ASC
	`

	rows, err := r.db.Query(ctx, query, cardCode)
	if err != nil {
		return nil, fmt.Errorf("query card payments: %w", err)
	}
	defer rows.Close()

	var payments []contracts.Payment
	for rows.Next() {
		var p contracts.Payment
		if err := rows.Scan(&p.CardCode, &p.Date, &p.Amount); err != nil {
			return nil, fmt.Errorf("scan payment: %w", err)
		}
		payments = append(payments, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate payments: %w", err)
	}

	return payments, nil
}

// CancelledBefore returns cancelled cards whose cancellation date (or,
// for legacy rows without one, creation date) predates the cutoff.
// These are the archiver's candidates.
func (r *Repository) CancelledBefore(ctx context.Context, cutoff time.Time) ([]contracts.CardTerms, error) {
	query := `
		SELECT
			t.codigo,
			t.cliente_identificacion,
			t.fecha_creacion,
			t.monto,
			t.interes,
			t.cuotas,
			COALESCE(t.modalidad, 'diario'),
			t.estado,
			t.fecha_cancelacion,
			t.empleado_identificacion,
			t.cuenta_id
		FROM tarjetas t
		WHERE t.estado = 'cancelada'
		  AND COALESCE(t.fecha_cancelacion, t.fecha_creacion) < $1
		ORDER BY t.cliente_identificacion, t.fecha_creacion
	`

	rows, err := r.db.Query(ctx, query, cutoff)
	if err != nil {
		return nil, fmt.Errorf("query cancelled cards: %w", err)
	}
	defer rows.Close()

	return scanCards(rows)
}

// ClientIDsWithCards returns the distinct clients holding at least one
// non-archived card. The nightly score refresh walks this list.
func (r *Repository) ClientIDsWithCards(ctx context.Context) ([]string, error) {
	rows, err := r.db.Query(ctx,
		`SELECT DISTINCT cliente_identificacion FROM tarjetas WHERE estado <> 'archivada'`,
	)
	if err != nil {
		return nil, fmt.Errorf("query clients with cards: %w", err)
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scan client id: %w", err)
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate client ids: %w", err)
	}

	return ids, nil
}

// DeleteCards removes cards and their payments inside the caller's
// transaction. Payments go first to keep the FK happy.
func (r *Repository) DeleteCards(ctx context.Context, tx pgx.Tx, cardCodes []string) error {
	if len(cardCodes) == 0 {
		return nil
	}

	if _, err := tx.Exec(ctx, `DELETE FROM abonos WHERE tarjeta_codigo = ANY($1)`, cardCodes); err != nil {
		return fmt.Errorf("delete payments: %w", err)
	}
	if _, err := tx.Exec(ctx, `DELETE FROM tarjetas WHERE codigo = ANY($1)`, cardCodes); err != nil {
		return fmt.Errorf("delete cards: %w", err)
	}

	return nil
}

func scanCards(rows pgx.Rows) ([]contracts.CardTerms, error) {
	var cards []contracts.CardTerms
	for rows.Next() {
		var (
			card        contracts.CardTerms
			state       string
			cancelledAt *time.Time
			accountID   *int64
		)
		if err := rows.Scan(
			&card.Code,
			&card.ClientID,
			&card.StartDate,
			&card.Principal,
			&card.InterestPct,
			&card.Installment,
			&card.Modality,
			&state,
			&cancelledAt,
			&card.CollectorID,
			&accountID,
		); err != nil {
			return nil, fmt.Errorf("scan card: %w", err)
		}

		card.State = contracts.ParseCardState(state)
		card.CancelledAt = cancelledAt
		card.AccountID = accountID
		cards = append(cards, card)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate cards: %w", err)
	}

	return cards, nil
}
