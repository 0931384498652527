package models

import (
	"strings"

	"github.com/shopspring/decimal"
)

// SplitType selects how a split's total is divided among participants.
type SplitType string

const (
	SplitTypeEqual      SplitType = "equal"
	SplitTypePercentage SplitType = "percentage"
	SplitTypeCustom     SplitType = "custom"
	SplitTypeItemBased  SplitType = "item_based"
)

// Valid reports whether t is a known split type.
func (t SplitType) Valid() bool {
	switch t {
	case SplitTypeEqual, SplitTypePercentage, SplitTypeCustom, SplitTypeItemBased:
		return true
	}
	return false
}

// SplitStatus is the lifecycle state of a split.
//
// The lifecycle only moves forward: pending -> calculated -> finalized.
// A split can be cancelled while pending or calculated.
type SplitStatus string

const (
	SplitStatusPending    SplitStatus = "pending"
	SplitStatusCalculated SplitStatus = "calculated"
	SplitStatusFinalized  SplitStatus = "finalized"
	SplitStatusCancelled  SplitStatus = "cancelled"
)

// CanTransition reports whether a split may move from s to next.
// Staying in the same state is allowed for pending and calculated, since
// recalculation of a calculated split keeps it calculated.
func (s SplitStatus) CanTransition(next SplitStatus) bool {
	switch s {
	case SplitStatusPending:
		return next == SplitStatusPending || next == SplitStatusCalculated || next == SplitStatusCancelled
	case SplitStatusCalculated:
		return next == SplitStatusCalculated || next == SplitStatusFinalized || next == SplitStatusCancelled
	}
	return false
}

// Frozen reports whether the split's shares and ledger may no longer change.
func (s SplitStatus) Frozen() bool {
	return s == SplitStatusFinalized || s == SplitStatusCancelled
}

// PaymentStatus is the derived payment state of one breakdown entry.
type PaymentStatus string

const (
	PaymentStatusUnpaid  PaymentStatus = "unpaid"
	PaymentStatusPartial PaymentStatus = "partial"
	PaymentStatusPaid    PaymentStatus = "paid"
)

// Split is the central aggregate: a bill, its per-participant breakdown and
// the append-only payment ledger.
type Split struct {
	// ID is the unique identifier for the split (UUID format).
	ID string `json:"id"`

	// GroupID links the split to a group whose roster drives membership
	// reconciliation. Empty for ad-hoc splits.
	GroupID string `json:"groupId,omitempty"`

	// Title is the human-readable name for the split.
	Title string `json:"title"`

	// TotalAmount is the final bill amount including tax, tips and fees.
	TotalAmount decimal.Decimal `json:"totalAmount"`

	// Subtotal is the pre-tax sum of all items. Only used by item_based splits.
	Subtotal decimal.Decimal `json:"subtotal"`

	SplitType SplitType   `json:"splitType"`
	Status    SplitStatus `json:"status"`

	// Breakdown holds one entry per participant, in display order.
	Breakdown []BreakdownEntry `json:"breakdown"`

	// Payments is the ledger. It is the source of truth for amounts paid.
	Payments []PaymentEvent `json:"payments"`

	// Items are the line items of an item_based split.
	Items []Item `json:"items,omitempty"`

	// Version increases on every write and guards conditional updates.
	Version int64 `json:"version"`

	// CreatedBy is the user id of whoever created the split.
	CreatedBy string `json:"createdBy,omitempty"`

	// CreatedAt and UpdatedAt are Unix timestamps.
	CreatedAt int64 `json:"createdAt"`
	UpdatedAt int64 `json:"updatedAt"`
}

// Clone returns a deep copy of the split.
func (s *Split) Clone() *Split {
	if s == nil {
		return nil
	}
	out := *s
	out.Breakdown = make([]BreakdownEntry, len(s.Breakdown))
	for i := range s.Breakdown {
		out.Breakdown[i] = s.Breakdown[i].Clone()
	}
	out.Payments = make([]PaymentEvent, len(s.Payments))
	for i := range s.Payments {
		out.Payments[i] = s.Payments[i].Clone()
	}
	if s.Items != nil {
		out.Items = make([]Item, len(s.Items))
		for i := range s.Items {
			out.Items[i] = s.Items[i]
			out.Items[i].Participants = append([]string(nil), s.Items[i].Participants...)
		}
	}
	return &out
}

// EntryByID returns the index of the first breakdown entry known by id.
func (s *Split) EntryByID(id string) (int, bool) {
	for i := range s.Breakdown {
		if s.Breakdown[i].HasID(id) {
			return i, true
		}
	}
	return -1, false
}

// BreakdownEntry is one participant's stake in a split.
type BreakdownEntry struct {
	// ID is the entry's own identifier. Older payments may reference it
	// instead of the participant's user id.
	ID string `json:"id"`

	// UserID references a registered user, if any.
	UserID string `json:"userId,omitempty"`

	// ParticipantID references a group member, if any.
	ParticipantID string `json:"participantId,omitempty"`

	// Name and Email identify guests and label every entry.
	Name  string `json:"name"`
	Email string `json:"email,omitempty"`

	// Amount is the participant's computed share.
	Amount decimal.Decimal `json:"amount"`

	// Percentage and CustomAmount are the weight inputs of percentage and
	// custom splits.
	Percentage   *decimal.Decimal `json:"percentage,omitempty"`
	CustomAmount *decimal.Decimal `json:"customAmount,omitempty"`

	// AmountPaid and PaymentStatus are derived from the ledger on every
	// read. Stored values are a cache and are never trusted over payments.
	AmountPaid    decimal.Decimal `json:"amountPaid"`
	PaymentStatus PaymentStatus   `json:"paymentStatus"`

	// PaidForID redirects this entry's surplus to the entry with this id.
	PaidForID string `json:"paidForId,omitempty"`

	// SurplusReceived is credit forwarded to this entry by others, and
	// SurplusFrom lists the entry ids it came from.
	SurplusReceived decimal.Decimal `json:"surplusReceived"`
	SurplusFrom     []string        `json:"surplusFrom,omitempty"`

	// SurplusForwarded is the part of this entry's payments credited onward.
	SurplusForwarded decimal.Decimal `json:"surplusForwarded"`

	// PaidTo is the label of the first payer who paid for this entry.
	PaidTo string `json:"paidTo,omitempty"`
}

// CanonicalID returns the user id, falling back to the participant id.
// Guests have no canonical id.
func (e *BreakdownEntry) CanonicalID() string {
	if e.UserID != "" {
		return e.UserID
	}
	return e.ParticipantID
}

// HasID reports whether id is the entry's own, user or participant id.
func (e *BreakdownEntry) HasID(id string) bool {
	return id != "" && (id == e.ID || id == e.UserID || id == e.ParticipantID)
}

// HasIdentity reports whether at least one identity signal is present.
func (e *BreakdownEntry) HasIdentity() bool {
	return e.UserID != "" || e.ParticipantID != "" ||
		strings.TrimSpace(e.Name) != "" || strings.TrimSpace(e.Email) != ""
}

// Due returns the outstanding amount, never negative.
func (e *BreakdownEntry) Due() decimal.Decimal {
	due := e.Amount.Sub(e.AmountPaid)
	if due.IsNegative() {
		return decimal.Zero
	}
	return due
}

// Clone returns a deep copy of the entry.
func (e BreakdownEntry) Clone() BreakdownEntry {
	if e.Percentage != nil {
		p := *e.Percentage
		e.Percentage = &p
	}
	if e.CustomAmount != nil {
		c := *e.CustomAmount
		e.CustomAmount = &c
	}
	e.SurplusFrom = append([]string(nil), e.SurplusFrom...)
	return e
}

// PayerRef identifies who made a payment.
type PayerRef struct {
	ID    string `json:"id,omitempty"`
	Name  string `json:"name,omitempty"`
	Email string `json:"email,omitempty"`
}

// Label returns a display label for the payer.
func (p PayerRef) Label() string {
	switch {
	case strings.TrimSpace(p.Name) != "":
		return strings.TrimSpace(p.Name)
	case strings.TrimSpace(p.Email) != "":
		return strings.TrimSpace(p.Email)
	}
	return p.ID
}

// Allocation assigns part of a payment to one payee.
type Allocation struct {
	// PaidFor is the payee's user id, participant id or breakdown entry id.
	PaidFor      string          `json:"paidFor"`
	PaidForName  string          `json:"paidForName,omitempty"`
	PaidForEmail string          `json:"paidForEmail,omitempty"`
	Amount       decimal.Decimal `json:"amount"`
}

// PaymentEvent is one incoming payment. Events are created once and never
// mutated or deleted.
type PaymentEvent struct {
	ID          string          `json:"id"`
	Amount      decimal.Decimal `json:"amount"`
	PaidBy      PayerRef        `json:"paidBy"`
	Allocations []Allocation    `json:"allocations"`
	Note        string          `json:"note,omitempty"`
	CreatedAt   int64           `json:"createdAt"`
}

// Clone returns a deep copy of the event.
func (p PaymentEvent) Clone() PaymentEvent {
	p.Allocations = append([]Allocation(nil), p.Allocations...)
	return p
}

// Item is a line item on an item_based split.
type Item struct {
	ID          string          `json:"id"`
	Description string          `json:"description"`
	Amount      decimal.Decimal `json:"amount"`

	// Participants lists the entry keys (user id, participant id or name)
	// sharing this item equally.
	Participants []string `json:"participants"`
}
