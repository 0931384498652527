package calculator

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mmynk/splitsettle/internal/models"
)

func aggBreakdown() []models.BreakdownEntry {
	return []models.BreakdownEntry{
		{ID: "e1", UserID: "u1", Name: "Alice", Email: "alice@example.com", Amount: d("100")},
		{ID: "e2", ParticipantID: "p2", Name: "Bob", Amount: d("100")},
		{ID: "e3", Name: "Carol", Email: "carol@example.com", Amount: d("100")},
	}
}

func payment(id, payer string, allocs ...models.Allocation) models.PaymentEvent {
	total := d("0")
	for _, a := range allocs {
		total = total.Add(a.Amount)
	}
	return models.PaymentEvent{ID: id, Amount: total, PaidBy: models.PayerRef{Name: payer}, Allocations: allocs}
}

func alloc(paidFor, amount string) models.Allocation {
	return models.Allocation{PaidFor: paidFor, Amount: d(amount)}
}

func TestAggregateResolution(t *testing.T) {
	tests := []struct {
		name      string
		alloc     models.Allocation
		want      EntryKey
		wantFound bool
	}{
		{"entry id remaps to user id", models.Allocation{PaidFor: "e1"}, ByID("u1"), true},
		{"canonical user id", models.Allocation{PaidFor: "u1"}, ByID("u1"), true},
		{"canonical participant id", models.Allocation{PaidFor: "p2"}, ByID("p2"), true},
		{"legacy entry id of participant", models.Allocation{PaidFor: "e2"}, ByID("p2"), true},
		{"guest by name, case-insensitive", models.Allocation{PaidForName: "CAROL"}, ByEmail("carol@example.com"), true},
		{"guest by email, case-insensitive", models.Allocation{PaidForEmail: "Carol@Example.COM"}, ByEmail("carol@example.com"), true},
		{"unknown id falls back to name", models.Allocation{PaidFor: "stale", PaidForName: "bob"}, ByID("p2"), true},
		{"unresolved keeps raw id", models.Allocation{PaidFor: "ghost", PaidForName: "Zed"}, ByID("ghost"), false},
		{"unresolved email", models.Allocation{PaidForEmail: "zed@example.com"}, ByEmail("zed@example.com"), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			a := tt.alloc
			a.Amount = d("10")
			agg := Aggregate(aggBreakdown(), []models.PaymentEvent{payment("pay-1", "Alice", a)})

			assertAmount(t, "10", agg.Paid(tt.want))
			if tt.wantFound {
				assert.Empty(t, agg.Unresolved)
			} else {
				require.Len(t, agg.Unresolved, 1)
				assert.Equal(t, tt.want, agg.Unresolved[0].Key)
				assert.Equal(t, "pay-1", agg.Unresolved[0].PaymentID)
			}
		})
	}
}

func TestAggregateEntryIDBeatsCanonicalID(t *testing.T) {
	breakdown := []models.BreakdownEntry{
		{ID: "x", UserID: "u-a", Name: "A"},
		{ID: "y", UserID: "x", Name: "B"},
	}
	agg := Aggregate(breakdown, []models.PaymentEvent{payment("p", "A", alloc("x", "5"))})
	assertAmount(t, "5", agg.Paid(ByID("u-a")))
	assertAmount(t, "0", agg.Paid(ByID("x")))
}

func TestAggregateFirstPayerLabel(t *testing.T) {
	payments := []models.PaymentEvent{
		{ID: "1", Amount: d("10"), PaidBy: models.PayerRef{ID: "u9"}, Allocations: []models.Allocation{alloc("u1", "10")}},
		{ID: "2", Amount: d("10"), PaidBy: models.PayerRef{Name: "Dave"}, Allocations: []models.Allocation{alloc("u1", "10")}},
		{ID: "3", Amount: d("10"), PaidBy: models.PayerRef{Email: "eve@example.com"}, Allocations: []models.Allocation{alloc("p2", "10")}},
	}
	agg := Aggregate(aggBreakdown(), payments)
	assert.Equal(t, "u9", agg.Totals[ByID("u1")].FirstPayer)
	assert.Equal(t, "eve@example.com", agg.Totals[ByID("p2")].FirstPayer)
	assertAmount(t, "20", agg.Paid(ByID("u1")))
}

func TestAggregateSumsOverAllocated(t *testing.T) {
	// Allocations exceeding the payment amount are summed as recorded.
	p := models.PaymentEvent{ID: "1", Amount: d("10"), PaidBy: models.PayerRef{Name: "A"},
		Allocations: []models.Allocation{alloc("u1", "10"), alloc("p2", "10")}}
	agg := Aggregate(aggBreakdown(), []models.PaymentEvent{p})
	assertAmount(t, "10", agg.Paid(ByID("u1")))
	assertAmount(t, "10", agg.Paid(ByID("p2")))
}

func TestAggregatePermutationInvariant(t *testing.T) {
	payments := []models.PaymentEvent{
		payment("a", "Alice", alloc("u1", "12.34"), alloc("p2", "5.66")),
		payment("b", "Bob", alloc("e2", "40")),
		payment("c", "Carol", models.Allocation{PaidForName: "carol", Amount: d("33.33")}),
		payment("d", "Dave", alloc("ghost", "7"), alloc("e1", "0.01")),
	}
	want := Aggregate(aggBreakdown(), payments)

	permute(len(payments), func(order []int) {
		shuffled := make([]models.PaymentEvent, len(order))
		for i, j := range order {
			shuffled[i] = payments[j]
		}
		got := Aggregate(aggBreakdown(), shuffled)
		require.Len(t, got.Totals, len(want.Totals))
		for key, total := range want.Totals {
			assert.True(t, total.Amount.Equal(got.Totals[key].Amount), "order %v key %s", order, key)
		}
	})
}

// permute calls fn with every permutation of 0..n-1.
func permute(n int, fn func([]int)) {
	order := make([]int, n)
	for i := range order {
		order[i] = i
	}
	var rec func(k int)
	rec = func(k int) {
		if k == n {
			fn(append([]int(nil), order...))
			return
		}
		for i := k; i < n; i++ {
			order[k], order[i] = order[i], order[k]
			rec(k + 1)
			order[k], order[i] = order[i], order[k]
		}
	}
	rec(0)
}

func TestValidatePayment(t *testing.T) {
	valid := payment("p", "Alice", alloc("u1", "10"))
	require.NoError(t, ValidatePayment(valid))

	tests := []struct {
		name   string
		mutate func(p *models.PaymentEvent)
	}{
		{"zero amount", func(p *models.PaymentEvent) { p.Amount = d("0") }},
		{"negative amount", func(p *models.PaymentEvent) { p.Amount = d("-5") }},
		{"no allocations", func(p *models.PaymentEvent) { p.Allocations = nil }},
		{"no payer", func(p *models.PaymentEvent) { p.PaidBy = models.PayerRef{} }},
		{"negative allocation", func(p *models.PaymentEvent) { p.Allocations[0].Amount = d("-1") }},
		{"allocation without payee", func(p *models.PaymentEvent) { p.Allocations[0].PaidFor = "" }},
		{"over-allocated", func(p *models.PaymentEvent) { p.Allocations[0].Amount = d("11") }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := valid.Clone()
			tt.mutate(&p)
			assert.ErrorIs(t, ValidatePayment(p), ErrInvalidInput)
		})
	}
}
