package reconcile

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mmynk/splitsettle/internal/calculator"
	"github.com/mmynk/splitsettle/internal/metrics"
	"github.com/mmynk/splitsettle/internal/models"
	"github.com/mmynk/splitsettle/internal/storage"
)

type fixture struct {
	store    *memStore
	roster   staticRoster
	relay    *recordingRelay
	notifier *countingDispatcher
	svc      *Service
}

func newFixture(t *testing.T, retries int) *fixture {
	t.Helper()
	f := &fixture{
		store:    newMemStore(),
		roster:   staticRoster{},
		relay:    &recordingRelay{},
		notifier: &countingDispatcher{},
	}
	f.svc = NewService(f.store, f.roster, f.notifier, f.relay, metrics.New(), Config{
		MaxRetries: retries,
		Now:        func() time.Time { return time.Unix(1700000000, 0) },
	})
	return f
}

func (f *fixture) create(t *testing.T, names ...string) *models.Split {
	t.Helper()
	entries := make([]models.BreakdownEntry, len(names))
	for i, n := range names {
		entries[i] = models.BreakdownEntry{UserID: "u-" + n, Name: n}
	}
	res, err := f.svc.Create(context.Background(), CreateInput{
		Title:   "Dinner",
		Total:   d("90"),
		Entries: entries,
	})
	require.NoError(t, err)
	return res.Split
}

func pay(payer string, allocs map[string]string) models.PaymentEvent {
	p := models.PaymentEvent{PaidBy: models.PayerRef{ID: "u-" + payer, Name: payer}}
	total := d("0")
	for who, amount := range allocs {
		p.Allocations = append(p.Allocations, models.Allocation{PaidFor: "u-" + who, Amount: d(amount)})
		total = total.Add(d(amount))
	}
	p.Amount = total
	return p
}

func TestServiceCreate(t *testing.T) {
	f := newFixture(t, 5)
	split := f.create(t, "ann", "ben", "cat")

	assert.Equal(t, models.SplitStatusCalculated, split.Status)
	assert.Equal(t, int64(1), split.Version)
	for _, e := range split.Breakdown {
		assert.NotEmpty(t, e.ID)
		assert.Equal(t, "30.00", e.Amount.StringFixed(2))
		assert.Equal(t, models.PaymentStatusUnpaid, e.PaymentStatus)
	}
	assert.Equal(t, []string{ReasonCreated}, f.relay.reasons())
}

func TestServiceCreateValidation(t *testing.T) {
	f := newFixture(t, 5)
	ctx := context.Background()

	_, err := f.svc.Create(ctx, CreateInput{Total: d("-1")})
	assert.ErrorIs(t, err, calculator.ErrInvalidInput)

	_, err = f.svc.Create(ctx, CreateInput{Total: d("10"), SplitType: "shares"})
	assert.ErrorIs(t, err, calculator.ErrInvalidInput)

	_, err = f.svc.Create(ctx, CreateInput{Total: d("10"), Entries: []models.BreakdownEntry{{}}})
	assert.ErrorIs(t, err, calculator.ErrInvalidInput)

	_, err = f.svc.Create(ctx, CreateInput{Total: d("10"), Entries: []models.BreakdownEntry{{Name: "Ann"}, {Name: "ann"}}})
	assert.ErrorIs(t, err, calculator.ErrInvalidInput)
}

func TestServiceCreateFromRoster(t *testing.T) {
	f := newFixture(t, 5)
	f.roster["g1"] = []models.Member{{ID: "m1", Name: "Ann"}, {ID: "m2", Name: "Ben"}}

	res, err := f.svc.Create(context.Background(), CreateInput{GroupID: "g1", Total: d("50")})
	require.NoError(t, err)
	require.Len(t, res.Split.Breakdown, 2)
	assert.Equal(t, "25.00", res.Split.Breakdown[1].Amount.StringFixed(2))
	assert.Equal(t, "Split with Ann, Ben", res.Split.Title)
}

func TestServiceRecordPayment(t *testing.T) {
	f := newFixture(t, 5)
	split := f.create(t, "ann", "ben", "cat")

	res, err := f.svc.RecordPayment(context.Background(), split.ID, pay("ann", map[string]string{"ann": "30", "ben": "10"}))
	require.NoError(t, err)

	byUser := map[string]models.BreakdownEntry{}
	for _, e := range res.Split.Breakdown {
		byUser[e.UserID] = e
	}
	assert.Equal(t, models.PaymentStatusPaid, byUser["u-ann"].PaymentStatus)
	assert.Equal(t, models.PaymentStatusPartial, byUser["u-ben"].PaymentStatus)
	assert.Equal(t, "ann", byUser["u-ben"].PaidTo)
	assert.Equal(t, models.PaymentStatusUnpaid, byUser["u-cat"].PaymentStatus)

	stored, err := f.store.GetSplit(context.Background(), split.ID)
	require.NoError(t, err)
	assert.Len(t, stored.Payments, 1)
	assert.Equal(t, int64(3), stored.Version)
	assert.NotEmpty(t, stored.Payments[0].ID)
}

func TestServiceRecordPaymentRejectsInvalid(t *testing.T) {
	f := newFixture(t, 5)
	split := f.create(t, "ann")

	_, err := f.svc.RecordPayment(context.Background(), split.ID, models.PaymentEvent{Amount: d("10"), PaidBy: models.PayerRef{Name: "ann"}})
	assert.ErrorIs(t, err, calculator.ErrInvalidInput)

	_, err = f.svc.RecordPayment(context.Background(), "missing", pay("ann", map[string]string{"ann": "1"}))
	assert.ErrorIs(t, err, storage.ErrNotFound)
}

func TestServiceRetriesOnConflict(t *testing.T) {
	f := newFixture(t, 3)
	split := f.create(t, "ann", "ben")

	f.store.conflicts = 2
	_, err := f.svc.SetPaidFor(context.Background(), split.ID, "u-ann", "u-ben")
	require.NoError(t, err)

	f.store.conflicts = 3
	_, err = f.svc.SetPaidFor(context.Background(), split.ID, "u-ann", "")
	assert.ErrorIs(t, err, ErrConcurrentModification)
}

func TestServiceConcurrentPayments(t *testing.T) {
	f := newFixture(t, 1000)
	split := f.create(t, "ann", "ben", "cat")

	var wg sync.WaitGroup
	errs := make(chan error, 9)
	for i := 0; i < 9; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			who := []string{"ann", "ben", "cat"}[i%3]
			_, err := f.svc.RecordPayment(context.Background(), split.ID, pay(who, map[string]string{who: "10"}))
			errs <- err
		}(i)
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		require.NoError(t, err)
	}

	res, err := f.svc.Get(context.Background(), split.ID)
	require.NoError(t, err)
	assert.Len(t, res.Split.Payments, 9)
	for _, e := range res.Split.Breakdown {
		assert.Equal(t, "30.00", e.AmountPaid.StringFixed(2), e.Name)
		assert.Equal(t, models.PaymentStatusPaid, e.PaymentStatus, e.Name)
	}
}

func TestServiceSyncMembership(t *testing.T) {
	f := newFixture(t, 5)
	f.roster["g1"] = []models.Member{{ID: "m1", UserID: "u-ann", Name: "ann"}, {ID: "m2", UserID: "u-ben", Name: "ben"}}

	created, err := f.svc.Create(context.Background(), CreateInput{GroupID: "g1", Total: d("1000")})
	require.NoError(t, err)
	_, err = f.svc.RecordPayment(context.Background(), created.Split.ID, pay("ann", map[string]string{"ann": "500"}))
	require.NoError(t, err)

	f.roster["g1"] = append(f.roster["g1"], models.Member{ID: "m3", Name: "cat"})
	results, err := f.svc.SyncGroup(context.Background(), "g1")
	require.NoError(t, err)
	require.Len(t, results, 1)

	out := results[0].Split
	require.Len(t, out.Breakdown, 3)
	assert.Equal(t, "333.33", out.Breakdown[0].Amount.StringFixed(2))
	assert.Equal(t, "500.00", out.Breakdown[0].AmountPaid.StringFixed(2))
	assert.Equal(t, models.PaymentStatusUnpaid, out.Breakdown[2].PaymentStatus)

	// A second sync changes nothing and writes nothing.
	before := f.store.updates
	res, err := f.svc.SyncMembership(context.Background(), created.Split.ID)
	require.NoError(t, err)
	assert.False(t, res.Recomputed)
	assert.Equal(t, before, f.store.updates)
	assert.Contains(t, f.relay.reasons(), ReasonMembership)
}

func TestServiceSyncGroupContinuesPastFailures(t *testing.T) {
	f := newFixture(t, 2)
	ctx := context.Background()
	f.roster["g1"] = []models.Member{{ID: "m1", UserID: "u-ann", Name: "ann"}}

	stuck, err := f.svc.Create(ctx, CreateInput{GroupID: "g1", Title: "Rent", Total: d("100")})
	require.NoError(t, err)
	healthy, err := f.svc.Create(ctx, CreateInput{GroupID: "g1", Title: "Power", Total: d("100")})
	require.NoError(t, err)
	f.store.stuck[stuck.Split.ID] = true

	f.roster["g1"] = append(f.roster["g1"], models.Member{ID: "m2", UserID: "u-ben", Name: "ben"})
	results, err := f.svc.SyncGroup(ctx, "g1")
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrConcurrentModification)
	assert.Contains(t, err.Error(), stuck.Split.ID)

	require.Len(t, results, 1)
	assert.Equal(t, healthy.Split.ID, results[0].Split.ID)

	got, err := f.store.GetSplit(ctx, healthy.Split.ID)
	require.NoError(t, err)
	require.Len(t, got.Breakdown, 2)
	assert.Equal(t, "50.00", got.Breakdown[1].Amount.StringFixed(2))

	got, err = f.store.GetSplit(ctx, stuck.Split.ID)
	require.NoError(t, err)
	assert.Len(t, got.Breakdown, 1)
}

func TestServiceLifecycle(t *testing.T) {
	f := newFixture(t, 5)
	ctx := context.Background()
	split := f.create(t, "ann", "ben")

	_, err := f.svc.SetPaidFor(ctx, split.ID, "u-ann", "u-ann")
	assert.ErrorIs(t, err, calculator.ErrInvalidInput)
	_, err = f.svc.SetPaidFor(ctx, split.ID, "u-ann", "u-nobody")
	assert.ErrorIs(t, err, calculator.ErrInvalidInput)
	_, err = f.svc.SetPaidFor(ctx, split.ID, "u-nobody", "u-ann")
	assert.ErrorIs(t, err, storage.ErrNotFound)

	res, err := f.svc.UpdateTotal(ctx, split.ID, d("100"), d("0"))
	require.NoError(t, err)
	assert.Equal(t, "50.00", res.Split.Breakdown[0].Amount.StringFixed(2))

	res, err = f.svc.Finalize(ctx, split.ID)
	require.NoError(t, err)
	assert.Equal(t, models.SplitStatusFinalized, res.Split.Status)

	_, err = f.svc.RecordPayment(ctx, split.ID, pay("ann", map[string]string{"ann": "1"}))
	assert.ErrorIs(t, err, ErrSplitClosed)
	_, err = f.svc.UpdateTotal(ctx, split.ID, d("10"), d("0"))
	assert.ErrorIs(t, err, ErrSplitClosed)
	_, err = f.svc.Cancel(ctx, split.ID)
	assert.ErrorIs(t, err, ErrSplitClosed)
	_, err = f.svc.Nudge(ctx, split.ID)
	assert.ErrorIs(t, err, ErrSplitClosed)
}

func TestServiceCancel(t *testing.T) {
	f := newFixture(t, 5)
	split := f.create(t, "ann")
	res, err := f.svc.Cancel(context.Background(), split.ID)
	require.NoError(t, err)
	assert.Equal(t, models.SplitStatusCancelled, res.Split.Status)

	_, err = f.svc.Finalize(context.Background(), split.ID)
	assert.ErrorIs(t, err, ErrSplitClosed)
}

func TestServiceNudge(t *testing.T) {
	f := newFixture(t, 5)
	split := f.create(t, "ann", "ben", "cat")
	_, err := f.svc.RecordPayment(context.Background(), split.ID, pay("ann", map[string]string{"ann": "30"}))
	require.NoError(t, err)

	n, err := f.svc.Nudge(context.Background(), split.ID)
	require.NoError(t, err)
	assert.Equal(t, 2, n)
	require.Len(t, f.notifier.splits, 1)

	total, err := f.svc.NudgeOpen(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, total)
}

func TestDefaultTitle(t *testing.T) {
	var entries []models.BreakdownEntry
	for i := 0; i < 5; i++ {
		entries = append(entries, models.BreakdownEntry{Name: fmt.Sprintf("p%d", i)})
	}
	assert.Equal(t, "Split with p0, p1 and 3 others", defaultTitle(entries))
	assert.Equal(t, "Split", defaultTitle(nil))
}
