package calculator

import (
	"github.com/shopspring/decimal"

	"github.com/mmynk/splitsettle/internal/models"
)

// PaidTotal is the aggregated amount paid towards one entry key.
type PaidTotal struct {
	Amount decimal.Decimal

	// FirstPayer is the label of the first payer, in ledger order, who paid
	// for this key. Display only.
	FirstPayer string
}

// Aggregation is the result of folding the payment ledger onto a breakdown.
type Aggregation struct {
	Totals map[EntryKey]PaidTotal

	// Unresolved lists allocations that matched no breakdown entry.
	Unresolved []UnresolvedAllocation
}

// Paid returns the aggregated total for key, or zero.
func (a Aggregation) Paid(key EntryKey) decimal.Decimal {
	return a.Totals[key].Amount
}

// Aggregate sums every allocation of every payment per resolved entry key.
//
// Payee references are resolved in order: a breakdown entry's own id, a
// canonical user or participant id, then a case-insensitive name or email
// match. Anything else is kept under its raw key and reported as unresolved.
// Sums do not depend on payment order; only FirstPayer does.
func Aggregate(breakdown []models.BreakdownEntry, payments []models.PaymentEvent) Aggregation {
	r := newResolver(breakdown)
	agg := Aggregation{Totals: make(map[EntryKey]PaidTotal)}

	for _, p := range payments {
		label := p.PaidBy.Label()
		for _, a := range p.Allocations {
			key, ok := r.resolve(a.PaidFor, a.PaidForName, a.PaidForEmail)
			if key.IsZero() {
				agg.Unresolved = append(agg.Unresolved, UnresolvedAllocation{PaymentID: p.ID, Amount: a.Amount})
				continue
			}
			if !ok {
				agg.Unresolved = append(agg.Unresolved, UnresolvedAllocation{PaymentID: p.ID, Key: key, Amount: a.Amount})
			}

			t := agg.Totals[key]
			t.Amount = t.Amount.Add(a.Amount)
			if t.FirstPayer == "" {
				t.FirstPayer = label
			}
			agg.Totals[key] = t
		}
	}
	return agg
}

// ResolvePayer maps a payer reference onto the breakdown the same way
// allocations are resolved.
func ResolvePayer(breakdown []models.BreakdownEntry, p models.PayerRef) (EntryKey, bool) {
	return newResolver(breakdown).resolve(p.ID, p.Name, p.Email)
}

// ValidatePayment checks a new payment event before it is appended to the
// ledger.
func ValidatePayment(p models.PaymentEvent) error {
	if !p.Amount.IsPositive() {
		return invalid("payment amount must be positive")
	}
	if len(p.Allocations) == 0 {
		return invalid("payment must have at least one allocation")
	}
	if p.PaidBy.Label() == "" {
		return invalid("payer must have an id, name or email")
	}
	allocated := decimal.Zero
	for i, a := range p.Allocations {
		if a.Amount.IsNegative() {
			return invalid("allocation %d has a negative amount", i)
		}
		if a.PaidFor == "" && a.PaidForName == "" && a.PaidForEmail == "" {
			return invalid("allocation %d has no payee", i)
		}
		allocated = allocated.Add(a.Amount)
	}
	if allocated.GreaterThan(p.Amount) {
		return invalid("allocations (%s) exceed payment amount (%s)", allocated.StringFixed(2), p.Amount.StringFixed(2))
	}
	return nil
}
