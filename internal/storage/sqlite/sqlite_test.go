package sqlite

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mmynk/splitsettle/internal/models"
	"github.com/mmynk/splitsettle/internal/storage"
)

func newTestStore(t *testing.T) *SQLiteStore {
	t.Helper()
	store, err := New(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })
	return store
}

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func testSplit(groupID string) *models.Split {
	return &models.Split{
		GroupID:     groupID,
		Title:       "Dinner",
		TotalAmount: dec("90"),
		SplitType:   models.SplitTypeEqual,
		Status:      models.SplitStatusCalculated,
		Breakdown: []models.BreakdownEntry{
			{ID: "e1", UserID: "alice", Name: "Alice", Amount: dec("30"), PaymentStatus: models.PaymentStatusUnpaid},
			{ID: "e2", UserID: "bob", Name: "Bob", Amount: dec("30"), PaymentStatus: models.PaymentStatusUnpaid},
			{ID: "e3", Name: "Carol", Email: "carol@example.com", Amount: dec("30"), PaymentStatus: models.PaymentStatusUnpaid},
		},
		CreatedBy: "alice",
	}
}

func TestSQLiteStore(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	t.Run("CreateSplit generates ID and version", func(t *testing.T) {
		split := testSplit("")
		require.NoError(t, store.CreateSplit(ctx, split))

		assert.NotEmpty(t, split.ID)
		assert.NotZero(t, split.CreatedAt)
		assert.Equal(t, int64(1), split.Version)
	})

	t.Run("GetSplit retrieves breakdown and items", func(t *testing.T) {
		split := testSplit("")
		split.SplitType = models.SplitTypeItemBased
		split.Subtotal = dec("80")
		split.Items = []models.Item{
			{ID: "i1", Description: "Pizza", Amount: dec("80"), Participants: []string{"alice", "bob"}},
		}
		pct := dec("50")
		split.Breakdown[0].Percentage = &pct
		require.NoError(t, store.CreateSplit(ctx, split))

		got, err := store.GetSplit(ctx, split.ID)
		require.NoError(t, err)

		assert.Equal(t, "Dinner", got.Title)
		assert.True(t, got.TotalAmount.Equal(dec("90")))
		assert.True(t, got.Subtotal.Equal(dec("80")))
		assert.Equal(t, models.SplitTypeItemBased, got.SplitType)
		require.Len(t, got.Breakdown, 3)
		assert.Equal(t, "carol@example.com", got.Breakdown[2].Email)
		require.NotNil(t, got.Breakdown[0].Percentage)
		assert.True(t, got.Breakdown[0].Percentage.Equal(pct))
		require.Len(t, got.Items, 1)
		assert.Equal(t, []string{"alice", "bob"}, got.Items[0].Participants)
		assert.Empty(t, got.Payments)
	})

	t.Run("GetSplit returns ErrNotFound", func(t *testing.T) {
		_, err := store.GetSplit(ctx, "missing")
		assert.ErrorIs(t, err, storage.ErrNotFound)
	})

	t.Run("UpdateBreakdown advances version", func(t *testing.T) {
		split := testSplit("")
		require.NoError(t, store.CreateSplit(ctx, split))

		split.Breakdown[0].AmountPaid = dec("30")
		split.Breakdown[0].PaymentStatus = models.PaymentStatusPaid
		require.NoError(t, store.UpdateBreakdown(ctx, split))
		assert.Equal(t, int64(2), split.Version)

		got, err := store.GetSplit(ctx, split.ID)
		require.NoError(t, err)
		assert.Equal(t, int64(2), got.Version)
		assert.Equal(t, models.PaymentStatusPaid, got.Breakdown[0].PaymentStatus)
	})

	t.Run("UpdateBreakdown rejects stale version", func(t *testing.T) {
		split := testSplit("")
		require.NoError(t, store.CreateSplit(ctx, split))

		stale := split.Clone()
		require.NoError(t, store.UpdateBreakdown(ctx, split))

		err := store.UpdateBreakdown(ctx, stale)
		assert.ErrorIs(t, err, storage.ErrVersionConflict)

		missing := testSplit("")
		missing.ID = "missing"
		missing.Version = 1
		assert.ErrorIs(t, store.UpdateBreakdown(ctx, missing), storage.ErrNotFound)
	})

	t.Run("AppendPayment keeps ledger order", func(t *testing.T) {
		split := testSplit("")
		require.NoError(t, store.CreateSplit(ctx, split))

		first := &models.PaymentEvent{
			Amount: dec("30"),
			PaidBy: models.PayerRef{ID: "alice", Name: "Alice"},
			Allocations: []models.Allocation{
				{PaidFor: "alice", Amount: dec("30")},
			},
			Note: "my share",
		}
		require.NoError(t, store.AppendPayment(ctx, split.ID, 1, first))
		assert.NotEmpty(t, first.ID)

		second := &models.PaymentEvent{
			Amount: dec("45.5"),
			PaidBy: models.PayerRef{Name: "Bob"},
			Allocations: []models.Allocation{
				{PaidFor: "bob", Amount: dec("30")},
				{PaidFor: "e3", PaidForName: "Carol", Amount: dec("15.5")},
			},
		}
		require.NoError(t, store.AppendPayment(ctx, split.ID, 2, second))

		got, err := store.GetSplit(ctx, split.ID)
		require.NoError(t, err)
		assert.Equal(t, int64(3), got.Version)
		require.Len(t, got.Payments, 2)
		assert.Equal(t, first.ID, got.Payments[0].ID)
		assert.Equal(t, "my share", got.Payments[0].Note)
		assert.Equal(t, "Bob", got.Payments[1].PaidBy.Name)
		assert.Empty(t, got.Payments[1].Note, "no note is stored as NULL")
		assert.True(t, got.Payments[1].Amount.Equal(dec("45.5")))
		require.Len(t, got.Payments[1].Allocations, 2)
		assert.Equal(t, "Carol", got.Payments[1].Allocations[1].PaidForName)
		assert.True(t, got.Payments[1].Allocations[1].Amount.Equal(dec("15.5")))
	})

	t.Run("AppendPayment rejects stale version", func(t *testing.T) {
		split := testSplit("")
		require.NoError(t, store.CreateSplit(ctx, split))
		require.NoError(t, store.UpdateBreakdown(ctx, split))

		payment := &models.PaymentEvent{
			Amount:      dec("10"),
			PaidBy:      models.PayerRef{Name: "Alice"},
			Allocations: []models.Allocation{{PaidFor: "alice", Amount: dec("10")}},
		}
		err := store.AppendPayment(ctx, split.ID, 1, payment)
		assert.ErrorIs(t, err, storage.ErrVersionConflict)

		got, err := store.GetSplit(ctx, split.ID)
		require.NoError(t, err)
		assert.Empty(t, got.Payments, "a rejected payment must not reach the ledger")

		err = store.AppendPayment(ctx, "missing", 1, payment)
		assert.ErrorIs(t, err, storage.ErrNotFound)
	})
}

func TestSQLiteStore_Groups(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	group := &models.Group{
		Name: "Roommates",
		Members: []models.Member{
			{UserID: "alice", Name: "Alice", Email: "alice@example.com", JoinedAt: 100},
			{Name: "Bob", JoinedAt: 200},
		},
	}
	require.NoError(t, store.CreateGroup(ctx, group))
	assert.NotEmpty(t, group.ID)
	assert.NotEmpty(t, group.Members[1].ID)

	require.NoError(t, store.AddMember(ctx, group.ID, &models.Member{Name: "Carol", JoinedAt: 300}))

	got, err := store.GetGroup(ctx, group.ID)
	require.NoError(t, err)
	assert.Equal(t, "Roommates", got.Name)
	require.Len(t, got.Members, 3)
	assert.Equal(t, "alice", got.Members[0].UserID)
	assert.Equal(t, "Carol", got.Members[2].Name)

	_, err = store.GetGroup(ctx, "missing")
	assert.ErrorIs(t, err, storage.ErrNotFound)
	assert.ErrorIs(t, store.AddMember(ctx, "missing", &models.Member{Name: "X"}), storage.ErrNotFound)

	split := testSplit(group.ID)
	require.NoError(t, store.CreateSplit(ctx, split))
	other := testSplit(group.ID)
	other.Status = models.SplitStatusFinalized
	require.NoError(t, store.CreateSplit(ctx, other))

	splits, err := store.ListSplitsByGroup(ctx, group.ID)
	require.NoError(t, err)
	assert.Len(t, splits, 2)

	open, err := store.ListOpenSplits(ctx)
	require.NoError(t, err)
	require.Len(t, open, 1)
	assert.Equal(t, split.ID, open[0].ID)
}

func TestSQLiteStore_Notifications(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	split := testSplit("")
	require.NoError(t, store.CreateSplit(ctx, split))

	require.NoError(t, store.EnqueueNotifications(ctx, []models.Notification{
		{SplitID: split.ID, Recipient: "bob@example.com", Subject: "s1", Body: "b1", AmountDue: dec("30"), CreatedAt: 10},
		{SplitID: split.ID, Recipient: "carol@example.com", Subject: "s2", Body: "b2", AmountDue: dec("12.5"), CreatedAt: 20},
	}))

	pending, err := store.PendingNotifications(ctx, 10)
	require.NoError(t, err)
	require.Len(t, pending, 2)
	assert.Equal(t, "bob@example.com", pending[0].Recipient)
	assert.True(t, pending[1].AmountDue.Equal(dec("12.5")))

	require.NoError(t, store.MarkDelivered(ctx, pending[0].ID, 30))

	pending, err = store.PendingNotifications(ctx, 10)
	require.NoError(t, err)
	require.Len(t, pending, 1)
	assert.Equal(t, "carol@example.com", pending[0].Recipient)

	assert.ErrorIs(t, store.MarkDelivered(ctx, "missing", 40), storage.ErrNotFound)
}
