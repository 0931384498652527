// Package reconcile turns a stored split into its authoritative view: shares
// recomputed for late joiners, the payment ledger folded onto the breakdown
// and surplus redirected along paid-for links.
//
// Reconcile is pure. Service wraps it with storage, optimistic concurrency
// and the notification and realtime collaborators.
package reconcile

import (
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/mmynk/splitsettle/internal/calculator"
	"github.com/mmynk/splitsettle/internal/models"
)

// Options tunes a reconciliation.
type Options struct {
	// Policy decides how equal splits treat leftover cents.
	Policy calculator.RemainderPolicy
}

// Result is a reconciled split plus what happened while reconciling it.
type Result struct {
	Split *models.Split

	// Joined lists the entry ids created for roster members that had no entry.
	Joined []string

	// Recomputed is true when shares changed and the split must be written back.
	Recomputed bool

	Unresolved []calculator.UnresolvedAllocation
	Violation  *InvariantViolation
	Passes     int
}

// Reconcile returns the authoritative view of split. The input is not
// modified.
//
// When roster is non-nil and names people missing from the breakdown, they
// are added with zero paid, equal shares are recomputed over everyone and the
// split becomes calculated. Existing entries keep their identity; the ledger
// decides what they have paid. Frozen splits are never recomputed.
func Reconcile(split *models.Split, roster []models.Member, opts Options) (*Result, error) {
	if split == nil {
		return nil, fmt.Errorf("%w: nil split", calculator.ErrInvalidInput)
	}
	out := split.Clone()
	res := &Result{Split: out}

	if roster != nil && !out.Status.Frozen() {
		joined := mergeRoster(out, roster)
		if len(joined) > 0 {
			if out.SplitType == models.SplitTypeEqual || out.SplitType == "" {
				if err := Recalculate(out, calculator.NewFactory(opts.Policy)); err != nil {
					return nil, err
				}
			}
			if out.Status == models.SplitStatusPending || out.Status == "" {
				out.Status = models.SplitStatusCalculated
			}
			res.Joined = joined
			res.Recomputed = true
		}
	}

	agg := calculator.Aggregate(out.Breakdown, out.Payments)
	resolution, err := calculator.ResolveSurplus(out.Breakdown, agg)
	if err != nil {
		return nil, fmt.Errorf("split %s: %w", out.ID, err)
	}
	out.Breakdown = resolution.Breakdown
	res.Unresolved = agg.Unresolved
	res.Passes = resolution.Passes
	res.Violation = checkShareSum(out)
	return res, nil
}

// Recalculate recomputes every entry's share with the split's strategy.
func Recalculate(split *models.Split, f *calculator.Factory) error {
	if len(split.Breakdown) == 0 {
		return fmt.Errorf("%w: split has no participants", calculator.ErrInvalidInput)
	}
	participants := make([]calculator.Participant, len(split.Breakdown))
	for i := range split.Breakdown {
		participants[i] = calculator.ParticipantFromEntry(&split.Breakdown[i])
	}
	splitType := split.SplitType
	if splitType == "" {
		splitType = models.SplitTypeEqual
	}
	shares, err := f.Shares(splitType, calculator.Input{
		Total:        split.TotalAmount,
		Subtotal:     split.Subtotal,
		Participants: participants,
		Items:        split.Items,
	})
	if err != nil {
		return err
	}
	for i := range split.Breakdown {
		split.Breakdown[i].Amount = shares[i]
	}
	return nil
}

// mergeRoster adds an entry for every member the breakdown does not know yet
// and returns the new entry ids. Members that match an entry fill in missing
// identity fields on it. Departed members keep their entries.
func mergeRoster(split *models.Split, roster []models.Member) []string {
	var joined []string
	for _, m := range roster {
		if i := matchMember(split.Breakdown, m); i >= 0 {
			e := &split.Breakdown[i]
			if e.UserID == "" {
				e.UserID = m.UserID
			}
			if e.ParticipantID == "" {
				e.ParticipantID = m.ID
			}
			if e.Email == "" {
				e.Email = m.Email
			}
			continue
		}
		if m.UserID == "" && m.ID == "" && strings.TrimSpace(m.Name) == "" && strings.TrimSpace(m.Email) == "" {
			continue
		}

		key := calculator.KeyOfMember(m)
		entry := models.BreakdownEntry{
			ID:            uuid.NewSHA1(uuid.NameSpaceURL, []byte(split.ID+"/"+key.String())).String(),
			UserID:        m.UserID,
			ParticipantID: m.ID,
			Name:          m.Name,
			Email:         m.Email,
			PaymentStatus: models.PaymentStatusUnpaid,
		}
		split.Breakdown = append(split.Breakdown, entry)
		joined = append(joined, entry.ID)
	}
	return joined
}

// matchMember returns the index of the entry that m refers to, or -1.
func matchMember(breakdown []models.BreakdownEntry, m models.Member) int {
	for i := range breakdown {
		e := &breakdown[i]
		switch {
		case m.UserID != "" && e.UserID == m.UserID:
			return i
		case m.ID != "" && e.ParticipantID == m.ID:
			return i
		case m.Email != "" && strings.EqualFold(strings.TrimSpace(e.Email), strings.TrimSpace(m.Email)):
			return i
		}
	}
	// Guests recorded by name only.
	name := strings.TrimSpace(m.Name)
	if name == "" {
		return -1
	}
	for i := range breakdown {
		e := &breakdown[i]
		if e.CanonicalID() == "" && e.Email == "" && strings.EqualFold(strings.TrimSpace(e.Name), name) {
			return i
		}
	}
	return -1
}

// checkShareSum reports when shares drift from the total by more than a
// cent per entry on a calculated or finalized split.
func checkShareSum(split *models.Split) *InvariantViolation {
	if split.Status != models.SplitStatusCalculated && split.Status != models.SplitStatusFinalized {
		return nil
	}
	if len(split.Breakdown) == 0 {
		return nil
	}
	amounts := entryAmounts(split.Breakdown)
	if calculator.WithinTolerance(amounts, split.TotalAmount) {
		return nil
	}
	return &InvariantViolation{
		SplitID: split.ID,
		Total:   split.TotalAmount,
		Sum:     calculator.Sum(amounts),
		Entries: len(amounts),
	}
}

func entryAmounts(breakdown []models.BreakdownEntry) []decimal.Decimal {
	amounts := make([]decimal.Decimal, len(breakdown))
	for i := range breakdown {
		amounts[i] = breakdown[i].Amount
	}
	return amounts
}
