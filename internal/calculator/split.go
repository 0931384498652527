package calculator

import (
	"github.com/shopspring/decimal"

	"github.com/mmynk/splitsettle/internal/models"
)

// PersonSplit represents the calculated split for one person
type PersonSplit struct {
	Subtotal decimal.Decimal
	Tax      decimal.Decimal
	Total    decimal.Decimal
}

// CalculateSplit computes how much each person owes including proportional tax.
// Based on the algorithm: person_total = person_subtotal × (1 + (total_tax / bill_subtotal))
//
// Results are unrounded and returned in participant order.
func CalculateSplit(items []models.Item, billTotal, billSubtotal decimal.Decimal, participants []Participant) ([]PersonSplit, error) {
	if billSubtotal.IsZero() {
		return nil, invalid("subtotal cannot be zero")
	}
	if len(participants) == 0 {
		return nil, invalid("must have at least one participant")
	}

	tax := billTotal.Sub(billSubtotal)
	splits := make([]PersonSplit, len(participants))

	// If no items, split total equally among all participants
	if len(items) == 0 {
		count := decimal.NewFromInt(int64(len(participants)))
		for i := range splits {
			splits[i] = PersonSplit{
				Subtotal: billSubtotal.Div(count),
				Tax:      tax.Div(count),
				Total:    billTotal.Div(count),
			}
		}
		return splits, nil
	}

	// Calculate each person's subtotal based on assigned items
	for _, item := range items {
		var assigned []int
		for _, ref := range item.Participants {
			for i, p := range participants {
				if p.Matches(ref) {
					assigned = append(assigned, i)
					break
				}
			}
		}
		if len(assigned) == 0 {
			continue
		}

		// Split item among assigned people
		perPerson := item.Amount.Div(decimal.NewFromInt(int64(len(assigned))))
		for _, i := range assigned {
			splits[i].Subtotal = splits[i].Subtotal.Add(perPerson)
		}
	}

	// Apply proportional tax and calculate total
	rate := tax.Div(billSubtotal)
	for i := range splits {
		splits[i].Tax = splits[i].Subtotal.Mul(rate)
		splits[i].Total = splits[i].Subtotal.Add(splits[i].Tax)
	}

	return splits, nil
}
