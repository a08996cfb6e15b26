package loans

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gestioncarteras/backend/internal/contracts"
)

func testPool(t *testing.T) *pgxpool.Pool {
	t.Helper()

	if testing.Short() {
		t.Skip("skipping integration test")
	}
	connString := os.Getenv("TEST_DATABASE_URL")
	if connString == "" {
		t.Skip("TEST_DATABASE_URL not set")
	}

	db, err := pgxpool.New(context.Background(), connString)
	require.NoError(t, err, "database connection failed")
	t.Cleanup(db.Close)
	return db
}

func TestRepositoryIntegration(t *testing.T) {
	db := testPool(t)
	repo := NewRepository(db)
	ctx := context.Background()

	ids, err := repo.ClientIDsWithCards(ctx)
	require.NoError(t, err)

	if len(ids) == 0 {
		t.Skip("no cards in test database")
	}

	cards, err := repo.CardsByClient(ctx, ids[0])
	require.NoError(t, err)
	require.NotEmpty(t, cards)

	for _, card := range cards {
		assert.Equal(t, ids[0], card.ClientID)
		assert.NotEmpty(t, card.Code)
		assert.NotEqual(t, contracts.CardState(""), card.State)

		payments, err := repo.PaymentsByCard(ctx, card.Code)
		require.NoError(t, err)

		// Payments come back date-ascending.
		for i := 1; i < len(payments); i++ {
			assert.False(t, payments[i].Date.Before(payments[i-1].Date),
				"payments out of order for %s", card.Code)
		}
	}

	// Every archival candidate must be cancelled and older than the cutoff.
	cutoff := time.Now().AddDate(0, -12, 0)
	candidates, err := repo.CancelledBefore(ctx, cutoff)
	require.NoError(t, err)
	for _, card := range candidates {
		assert.Equal(t, contracts.CardStateCancelled, card.State)
	}
}
