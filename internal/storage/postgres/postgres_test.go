package postgres

import (
	"context"
	"os"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mmynk/splitsettle/internal/models"
	"github.com/mmynk/splitsettle/internal/storage"
)

// newTestStore connects to POSTGRES_TEST_URL, skipping when it is unset.
func newTestStore(t *testing.T) *PostgresStore {
	t.Helper()
	url := os.Getenv("POSTGRES_TEST_URL")
	if url == "" {
		t.Skip("POSTGRES_TEST_URL not set")
	}
	store, err := New(url)
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })
	return store
}

func TestPostgresStore_SplitLedger(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	group := &models.Group{Name: "Trip", Members: []models.Member{{Name: "Alice"}, {Name: "Bob"}}}
	require.NoError(t, store.CreateGroup(ctx, group))

	split := &models.Split{
		GroupID:     group.ID,
		Title:       "Cabin",
		TotalAmount: decimal.RequireFromString("100.00"),
		SplitType:   models.SplitTypeEqual,
		Status:      models.SplitStatusCalculated,
		Breakdown: []models.BreakdownEntry{
			{ID: "e1", ParticipantID: group.Members[0].ID, Name: "Alice", Amount: decimal.RequireFromString("50")},
			{ID: "e2", ParticipantID: group.Members[1].ID, Name: "Bob", Amount: decimal.RequireFromString("50")},
		},
	}
	require.NoError(t, store.CreateSplit(ctx, split))

	payment := &models.PaymentEvent{
		Amount:      decimal.RequireFromString("50"),
		PaidBy:      models.PayerRef{Name: "Alice"},
		Allocations: []models.Allocation{{PaidFor: group.Members[0].ID, Amount: decimal.RequireFromString("50")}},
	}
	require.NoError(t, store.AppendPayment(ctx, split.ID, 1, payment))
	assert.ErrorIs(t, store.AppendPayment(ctx, split.ID, 1, &models.PaymentEvent{
		Amount: decimal.RequireFromString("1"), PaidBy: models.PayerRef{Name: "Bob"},
	}), storage.ErrVersionConflict)

	got, err := store.GetSplit(ctx, split.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(2), got.Version)
	require.Len(t, got.Payments, 1)
	assert.True(t, got.Payments[0].Amount.Equal(decimal.RequireFromString("50")))
	assert.True(t, got.TotalAmount.Equal(decimal.RequireFromString("100")))

	stale := got.Clone()
	require.NoError(t, store.UpdateBreakdown(ctx, got))
	assert.ErrorIs(t, store.UpdateBreakdown(ctx, stale), storage.ErrVersionConflict)

	splits, err := store.ListSplitsByGroup(ctx, group.ID)
	require.NoError(t, err)
	require.Len(t, splits, 1)
	assert.Len(t, splits[0].Payments, 1)
}
