package calculator

import (
	"sort"

	"github.com/shopspring/decimal"

	"github.com/mmynk/splitsettle/internal/models"
)

// Resolution is the breakdown after surplus redirection.
type Resolution struct {
	Breakdown []models.BreakdownEntry

	// Passes is the number of full passes until no flow changed.
	Passes int
}

// ResolveSurplus redistributes overpayments along PaidForID links and returns
// a copy of breakdown with AmountPaid, PaymentStatus, SurplusReceived,
// SurplusFrom, SurplusForwarded and PaidTo filled in.
//
// Each entry forwards round(paid + received - share, 2) when positive and its
// PaidForID names another entry. Flows are recomputed each pass, not
// accumulated, and iteration stops after a pass in which no flow changed.
//
// Redirection cycles are resolved after the entries feeding into them. A
// cycle with a net deficit settles on its own. A cycle with a net surplus
// would circulate credit forever, so one link is held back: the one that
// would return credit to the entry it started from, which then stays as
// overpayment on the entry just before it.
//
// Shares and paid totals are expected to be non-negative; this is not checked.
func ResolveSurplus(breakdown []models.BreakdownEntry, agg Aggregation) (Resolution, error) {
	n := len(breakdown)
	out := make([]models.BreakdownEntry, n)
	f := &flows{
		share:    make([]decimal.Decimal, n),
		paid:     make([]decimal.Decimal, n),
		received: make([]decimal.Decimal, n),
		flow:     make([]decimal.Decimal, n),
	}
	for i := range breakdown {
		out[i] = breakdown[i].Clone()
		key := KeyOf(&out[i])
		f.share[i] = out[i].Amount
		f.paid[i] = agg.Paid(key)
		out[i].PaidTo = agg.Totals[key].FirstPayer
	}
	f.target = redirectTargets(out)

	cycles := findCycles(f.target)
	onCycle := make([]bool, n)
	for _, c := range cycles {
		for _, i := range c {
			onCycle[i] = true
		}
	}

	// Settle everything outside cycles first.
	active := make([]bool, n)
	for i := range active {
		active[i] = f.target[i] >= 0 && !onCycle[i]
	}
	passes, err := f.settle(active, n+2)
	if err != nil {
		return Resolution{}, err
	}

	for _, c := range cycles {
		held := f.heldLink(c, out)
		for _, i := range c {
			active[i] = i != held
		}
	}
	more, err := f.settle(active, n+2)
	if err != nil {
		return Resolution{}, err
	}
	passes += more

	from := make([][]string, n)
	for i := 0; i < n; i++ {
		if f.target[i] >= 0 && f.flow[i].IsPositive() {
			from[f.target[i]] = append(from[f.target[i]], entryRef(&out[i]))
		}
	}

	for i := range out {
		out[i].AmountPaid = Round2(f.paid[i].Add(f.received[i]))
		out[i].SurplusReceived = Round2(f.received[i])
		out[i].SurplusForwarded = Round2(f.flow[i])
		sort.Strings(from[i])
		out[i].SurplusFrom = from[i]
		out[i].PaymentStatus = DeriveStatus(out[i].AmountPaid, out[i].Amount)
	}
	return Resolution{Breakdown: out, Passes: passes}, nil
}

type flows struct {
	share    []decimal.Decimal
	paid     []decimal.Decimal
	received []decimal.Decimal
	flow     []decimal.Decimal
	target   []int
}

func (f *flows) surplus(i int) decimal.Decimal {
	return Round2(f.paid[i].Add(f.received[i]).Sub(f.share[i]))
}

// settle runs passes over the active links until one changes nothing.
func (f *flows) settle(active []bool, maxPasses int) (int, error) {
	for pass := 1; ; pass++ {
		changed := false
		for i := range f.flow {
			if !active[i] {
				continue
			}
			s := f.surplus(i)
			if s.IsNegative() {
				s = decimal.Zero
			}
			if s.Equal(f.flow[i]) {
				continue
			}
			t := f.target[i]
			f.received[t] = f.received[t].Add(s.Sub(f.flow[i]))
			f.flow[i] = s
			changed = true
		}
		if !changed {
			return pass, nil
		}
		if pass >= maxPasses {
			return pass, ErrNoFixedPoint
		}
	}
}

// heldLink returns the cycle member whose link must stay inactive, or -1
// when the cycle has no net surplus. c lists the members in link order.
//
// The held link is the one into a start entry from which running surplus
// never drops below zero around the cycle; ties go to the lowest entry ref.
func (f *flows) heldLink(c []int, entries []models.BreakdownEntry) int {
	l := len(c)
	excess := make([]decimal.Decimal, l)
	total := decimal.Zero
	for k, i := range c {
		excess[k] = f.surplus(i)
		total = total.Add(excess[k])
	}
	if !total.IsPositive() {
		return -1
	}

	best, bestRef := -1, ""
	for k := 0; k < l; k++ {
		run, ok := decimal.Zero, true
		for j := 0; j < l; j++ {
			run = run.Add(excess[(k+j)%l])
			if run.IsNegative() {
				ok = false
				break
			}
		}
		if !ok {
			continue
		}
		ref := entryRef(&entries[c[k]])
		if best < 0 || ref < bestRef {
			best, bestRef = k, ref
		}
	}
	return c[(best-1+l)%l]
}

// redirectTargets returns, per entry, the index its PaidForID points at, or
// -1 for no link, a dangling link or a self link.
func redirectTargets(entries []models.BreakdownEntry) []int {
	index := make(map[string]int, 2*len(entries))
	for i := range entries {
		if id := entries[i].ID; id != "" {
			if _, ok := index[id]; !ok {
				index[id] = i
			}
		}
	}
	for i := range entries {
		for _, id := range []string{entries[i].UserID, entries[i].ParticipantID} {
			if id == "" {
				continue
			}
			if _, ok := index[id]; !ok {
				index[id] = i
			}
		}
	}

	target := make([]int, len(entries))
	for i := range entries {
		target[i] = -1
		if entries[i].PaidForID == "" {
			continue
		}
		if t, ok := index[entries[i].PaidForID]; ok && t != i {
			target[i] = t
		}
	}
	return target
}

// findCycles returns every cycle of the link graph, members in link order.
func findCycles(target []int) [][]int {
	const (
		unseen = iota
		onPath
		done
	)
	state := make([]int, len(target))
	var cycles [][]int
	for start := range target {
		if state[start] != unseen {
			continue
		}
		var path []int
		i := start
		for i >= 0 && state[i] == unseen {
			state[i] = onPath
			path = append(path, i)
			i = target[i]
		}
		if i >= 0 && state[i] == onPath {
			for k, p := range path {
				if p == i {
					cycles = append(cycles, append([]int(nil), path[k:]...))
					break
				}
			}
		}
		for _, p := range path {
			state[p] = done
		}
	}
	return cycles
}

// entryRef is the id recorded in SurplusFrom.
func entryRef(e *models.BreakdownEntry) string {
	if e.ID != "" {
		return e.ID
	}
	return KeyOf(e).Value
}
