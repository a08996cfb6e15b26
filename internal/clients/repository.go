package clients

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/gestioncarteras/backend/internal/contracts"
)

// Repository reads and updates client rows, including the compacted
// credit history stored as a jsonb array on `clientes`.
type Repository struct {
	db *pgxpool.Pool
}

// NewRepository creates a new Repository instance
func NewRepository(db *pgxpool.Pool) *Repository {
	return &Repository{db: db}
}

// ClientByID returns the client with its compacted credit history.
// Returns (nil, nil) when the client does not exist.
func (r *Repository) ClientByID(ctx context.Context, clientID string) (*contracts.Client, error) {
	query := `
		SELECT
			identificacion,
			nombre,
			apellido,
			COALESCE(score_global, 100),
			COALESCE(historial_crediticio, '[]'::jsonb)
		FROM clientes
		WHERE identificacion = $1
	`

	client := &contracts.Client{}
	var historyJSON []byte

	err := r.db.QueryRow(ctx, query, clientID).Scan(
		&client.Identification,
		&client.FirstName,
		&client.LastName,
		&client.GlobalScore,
		&historyJSON,
	)
	if err == pgx.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("query client: %w", err)
	}

	if len(historyJSON) > 0 {
		if err := json.Unmarshal(historyJSON, &client.CreditHistory); err != nil {
			return nil, fmt.Errorf("unmarshal credit history: %w", err)
		}
	}

	return client, nil
}

// UpdateScore refreshes the cached global score on the client row.
// This is a display cache owned by the persistence layer; the scoring
// engine recomputes from scratch on every call regardless.
func (r *Repository) UpdateScore(ctx context.Context, clientID string, score int) error {
	_, err := r.db.Exec(ctx,
		`UPDATE clientes SET score_global = $1 WHERE identificacion = $2`,
		score, clientID,
	)
	if err != nil {
		return fmt.Errorf("update client score: %w", err)
	}
	return nil
}

// HistoryForUpdate locks the client row and returns its current
// compacted history. Must run inside the caller's transaction; the
// archiver uses it to make the jsonb append atomic per client.
func (r *Repository) HistoryForUpdate(ctx context.Context, tx pgx.Tx, clientID string) ([]contracts.CreditHistoryItem, bool, error) {
	query := `
		SELECT COALESCE(historial_crediticio, '[]'::jsonb)
		FROM clientes
		WHERE identificacion = $1
		FOR UPDATE
	`

	var historyJSON []byte
	err := tx.QueryRow(ctx, query, clientID).Scan(&historyJSON)
	if err == pgx.ErrNoRows {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("lock client history: %w", err)
	}

	var history []contracts.CreditHistoryItem
	if len(historyJSON) > 0 {
		if err := json.Unmarshal(historyJSON, &history); err != nil {
			return nil, false, fmt.Errorf("unmarshal credit history: %w", err)
		}
	}

	return history, true, nil
}

// ReplaceHistory writes the full compacted history back inside the
// caller's transaction.
func (r *Repository) ReplaceHistory(ctx context.Context, tx pgx.Tx, clientID string, history []contracts.CreditHistoryItem) error {
	historyJSON, err := json.Marshal(history)
	if err != nil {
		return fmt.Errorf("marshal credit history: %w", err)
	}

	_, err = tx.Exec(ctx,
		`UPDATE clientes SET historial_crediticio = $1::jsonb WHERE identificacion = $2`,
		historyJSON, clientID,
	)
	if err != nil {
		return fmt.Errorf("replace credit history: %w", err)
	}

	return nil
}

// CollectorIDs returns the identifications of every collector
// (empleado) of an account, so reports can label cards as own-account.
func (r *Repository) CollectorIDs(ctx context.Context, accountID int64) (map[string]bool, error) {
	rows, err := r.db.Query(ctx,
		`SELECT identificacion FROM empleados WHERE cuenta_id = $1`,
		accountID,
	)
	if err != nil {
		return nil, fmt.Errorf("query account collectors: %w", err)
	}
	defer rows.Close()

	ids := make(map[string]bool)
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scan collector id: %w", err)
		}
		ids[id] = true
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate collectors: %w", err)
	}

	return ids, nil
}
