package calculator

import (
	"sort"

	"github.com/shopspring/decimal"

	"github.com/mmynk/splitsettle/internal/models"
)

// MemberBalance represents the balance information for one group member.
type MemberBalance struct {
	Key        EntryKey
	MemberName string
	NetBalance decimal.Decimal // Positive = owed money, Negative = owes money
	TotalPaid  decimal.Decimal // Total amount paid across all splits
	TotalOwed  decimal.Decimal // Total of this person's shares
}

// DebtEdge represents a debt from one person to another.
type DebtEdge struct {
	From   EntryKey // Person who owes
	To     EntryKey // Person who is owed
	Amount decimal.Decimal
}

// CalculateGroupBalances computes balances across the splits of a group.
//
// Algorithm:
// - Each payment credits its payer with the payment amount
// - Each entry owes its share
// - Whatever the ledger has not covered was fronted by the split's creator
// - Aggregate: net_balance = total_paid - total_owed
// - Debt matrix: simplified using greedy matching
//
// Cancelled splits are skipped.
func CalculateGroupBalances(splits []*models.Split) ([]MemberBalance, []DebtEdge) {
	balances := make(map[EntryKey]*MemberBalance)
	get := func(key EntryKey, label string) *MemberBalance {
		b, ok := balances[key]
		if !ok {
			b = &MemberBalance{Key: key, MemberName: label}
			balances[key] = b
		}
		if b.MemberName == "" {
			b.MemberName = label
		}
		return b
	}

	for _, s := range splits {
		if s.Status == models.SplitStatusCancelled {
			continue
		}
		r := newResolver(s.Breakdown)
		covered := decimal.Zero

		for i := range s.Breakdown {
			e := &s.Breakdown[i]
			b := get(KeyOf(e), EntryLabel(e))
			b.TotalOwed = b.TotalOwed.Add(e.Amount)
		}
		for _, p := range s.Payments {
			key, _ := r.resolve(p.PaidBy.ID, p.PaidBy.Name, p.PaidBy.Email)
			if key.IsZero() {
				continue
			}
			b := get(key, p.PaidBy.Label())
			b.TotalPaid = b.TotalPaid.Add(p.Amount)
			covered = covered.Add(p.Amount)
		}

		if s.CreatedBy == "" {
			continue
		}
		if fronted := s.TotalAmount.Sub(covered); fronted.IsPositive() {
			key, _ := r.resolve(s.CreatedBy, "", "")
			b := get(key, "")
			b.TotalPaid = b.TotalPaid.Add(fronted)
		}
	}

	// Compute net balances
	memberBalances := make([]MemberBalance, 0, len(balances))
	for _, b := range balances {
		b.NetBalance = b.TotalPaid.Sub(b.TotalOwed)
		if b.MemberName == "" {
			b.MemberName = b.Key.Value
		}
		memberBalances = append(memberBalances, *b)
	}
	sort.Slice(memberBalances, func(i, j int) bool {
		return memberBalances[i].Key.String() < memberBalances[j].Key.String()
	})

	return memberBalances, simplifyDebts(memberBalances)
}

// simplifyDebts matches debtors with creditors to minimize transactions.
// Greedy algorithm: match largest debts with largest credits.
func simplifyDebts(members []MemberBalance) []DebtEdge {
	type side struct {
		key    EntryKey
		amount decimal.Decimal
	}
	var creditors, debtors []side
	for _, m := range members {
		switch {
		case m.NetBalance.GreaterThanOrEqual(Cent):
			creditors = append(creditors, side{m.Key, m.NetBalance})
		case m.NetBalance.LessThanOrEqual(Cent.Neg()):
			debtors = append(debtors, side{m.Key, m.NetBalance.Neg()})
		}
	}
	byAmount := func(s []side) func(i, j int) bool {
		return func(i, j int) bool {
			if !s[i].amount.Equal(s[j].amount) {
				return s[i].amount.GreaterThan(s[j].amount)
			}
			return s[i].key.String() < s[j].key.String()
		}
	}
	sort.Slice(creditors, byAmount(creditors))
	sort.Slice(debtors, byAmount(debtors))

	var edges []DebtEdge
	i, j := 0, 0
	for i < len(debtors) && j < len(creditors) {
		amount := decimal.Min(debtors[i].amount, creditors[j].amount)
		if amount.GreaterThanOrEqual(Cent) {
			edges = append(edges, DebtEdge{From: debtors[i].key, To: creditors[j].key, Amount: Round2(amount)})
		}

		debtors[i].amount = debtors[i].amount.Sub(amount)
		creditors[j].amount = creditors[j].amount.Sub(amount)

		// Move to next debtor/creditor if fully settled
		if debtors[i].amount.LessThan(Cent) {
			i++
		}
		if creditors[j].amount.LessThan(Cent) {
			j++
		}
	}
	return edges
}

// EntryLabel is the display label of an entry: name, else email, else id.
func EntryLabel(e *models.BreakdownEntry) string {
	switch {
	case e.Name != "":
		return e.Name
	case e.Email != "":
		return e.Email
	case e.CanonicalID() != "":
		return e.CanonicalID()
	}
	return e.ID
}
