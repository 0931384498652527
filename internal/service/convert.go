package service

import (
	"github.com/mmynk/splitsettle/internal/models"
	"github.com/mmynk/splitsettle/internal/reconcile"
	"github.com/mmynk/splitsettle/pkg/api"
)

func toAPIView(res *reconcile.Result) *api.SplitView {
	view := &api.SplitView{
		Split:  toAPISplit(res.Split),
		Joined: res.Joined,
	}
	for _, u := range res.Unresolved {
		view.Unresolved = append(view.Unresolved, api.Unresolved{
			PaymentID: u.PaymentID,
			Key:       u.Key.String(),
			Amount:    u.Amount,
		})
	}
	return view
}

func toAPISplit(s *models.Split) api.Split {
	out := api.Split{
		ID:          s.ID,
		GroupID:     s.GroupID,
		Title:       s.Title,
		TotalAmount: s.TotalAmount,
		Subtotal:    s.Subtotal,
		SplitType:   string(s.SplitType),
		Status:      string(s.Status),
		Breakdown:   make([]api.Entry, len(s.Breakdown)),
		Payments:    make([]api.Payment, len(s.Payments)),
		Version:     s.Version,
		CreatedBy:   s.CreatedBy,
		CreatedAt:   s.CreatedAt,
		UpdatedAt:   s.UpdatedAt,
	}
	for i, e := range s.Breakdown {
		out.Breakdown[i] = api.Entry{
			ID:               e.ID,
			UserID:           e.UserID,
			ParticipantID:    e.ParticipantID,
			Name:             e.Name,
			Email:            e.Email,
			Amount:           e.Amount,
			Percentage:       e.Percentage,
			CustomAmount:     e.CustomAmount,
			AmountPaid:       e.AmountPaid,
			PaymentStatus:    string(e.PaymentStatus),
			PaidForID:        e.PaidForID,
			SurplusReceived:  e.SurplusReceived,
			SurplusFrom:      e.SurplusFrom,
			SurplusForwarded: e.SurplusForwarded,
			PaidTo:           e.PaidTo,
		}
	}
	for i, p := range s.Payments {
		out.Payments[i] = toAPIPayment(p)
	}
	for _, it := range s.Items {
		out.Items = append(out.Items, api.Item{
			ID:             it.ID,
			Description:    it.Description,
			Amount:         it.Amount,
			ParticipantIDs: it.Participants,
		})
	}
	return out
}

func toAPIPayment(p models.PaymentEvent) api.Payment {
	out := api.Payment{
		ID:          p.ID,
		Amount:      p.Amount,
		PaidBy:      api.Payer{ID: p.PaidBy.ID, Name: p.PaidBy.Name, Email: p.PaidBy.Email},
		Allocations: make([]api.Allocation, len(p.Allocations)),
		Note:        p.Note,
		CreatedAt:   p.CreatedAt,
	}
	for i, a := range p.Allocations {
		out.Allocations[i] = api.Allocation(a)
	}
	return out
}

func fromAPIPayment(p api.Payment) models.PaymentEvent {
	out := models.PaymentEvent{
		Amount:      p.Amount,
		PaidBy:      models.PayerRef{ID: p.PaidBy.ID, Name: p.PaidBy.Name, Email: p.PaidBy.Email},
		Allocations: make([]models.Allocation, len(p.Allocations)),
		Note:        p.Note,
	}
	for i, a := range p.Allocations {
		out.Allocations[i] = models.Allocation(a)
	}
	return out
}

// fromAPIEntry keeps only what a caller may set: identity and weights.
func fromAPIEntry(e api.Entry) models.BreakdownEntry {
	return models.BreakdownEntry{
		ID:            e.ID,
		UserID:        e.UserID,
		ParticipantID: e.ParticipantID,
		Name:          e.Name,
		Email:         e.Email,
		Percentage:    e.Percentage,
		CustomAmount:  e.CustomAmount,
		PaidForID:     e.PaidForID,
	}
}

func fromAPIItems(items []api.Item) []models.Item {
	var out []models.Item
	for _, it := range items {
		out = append(out, models.Item{
			ID:           it.ID,
			Description:  it.Description,
			Amount:       it.Amount,
			Participants: it.ParticipantIDs,
		})
	}
	return out
}

func toAPIGroup(g *models.Group) *api.Group {
	out := &api.Group{
		ID:        g.ID,
		Name:      g.Name,
		Temporary: g.Temporary,
		Members:   make([]api.Member, len(g.Members)),
		CreatedAt: g.CreatedAt,
	}
	for i, m := range g.Members {
		out.Members[i] = api.Member(m)
	}
	return out
}
