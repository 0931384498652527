package api

import "github.com/shopspring/decimal"

// Split is the reconciled view of a split.
type Split struct {
	ID          string          `json:"id"`
	GroupID     string          `json:"groupId,omitempty"`
	Title       string          `json:"title"`
	TotalAmount decimal.Decimal `json:"totalAmount"`
	Subtotal    decimal.Decimal `json:"subtotal"`
	SplitType   string          `json:"splitType"`
	Status      string          `json:"status"`
	Breakdown   []Entry         `json:"breakdown"`
	Payments    []Payment       `json:"payments"`
	Items       []Item          `json:"items,omitempty"`
	Version     int64           `json:"version"`
	CreatedBy   string          `json:"createdBy,omitempty"`
	CreatedAt   int64           `json:"createdAt"`
	UpdatedAt   int64           `json:"updatedAt"`
}

// Entry is one participant's stake in a split.
type Entry struct {
	ID               string           `json:"id,omitempty"`
	UserID           string           `json:"userId,omitempty"`
	ParticipantID    string           `json:"participantId,omitempty"`
	Name             string           `json:"name,omitempty"`
	Email            string           `json:"email,omitempty"`
	Amount           decimal.Decimal  `json:"amount"`
	Percentage       *decimal.Decimal `json:"percentage,omitempty"`
	CustomAmount     *decimal.Decimal `json:"customAmount,omitempty"`
	AmountPaid       decimal.Decimal  `json:"amountPaid"`
	PaymentStatus    string           `json:"paymentStatus,omitempty"`
	PaidForID        string           `json:"paidForId,omitempty"`
	SurplusReceived  decimal.Decimal  `json:"surplusReceived"`
	SurplusFrom      []string         `json:"surplusFrom,omitempty"`
	SurplusForwarded decimal.Decimal  `json:"surplusForwarded"`
	PaidTo           string           `json:"paidTo,omitempty"`
}

// Payer identifies who made a payment.
type Payer struct {
	ID    string `json:"id,omitempty"`
	Name  string `json:"name,omitempty"`
	Email string `json:"email,omitempty"`
}

// Allocation assigns part of a payment to a payee.
type Allocation struct {
	PaidFor      string          `json:"paidFor"`
	PaidForName  string          `json:"paidForName,omitempty"`
	PaidForEmail string          `json:"paidForEmail,omitempty"`
	Amount       decimal.Decimal `json:"amount"`
}

// Payment is one ledger event.
type Payment struct {
	ID          string          `json:"id,omitempty"`
	Amount      decimal.Decimal `json:"amount"`
	PaidBy      Payer           `json:"paidBy"`
	Allocations []Allocation    `json:"allocations"`
	Note        string          `json:"note,omitempty"`
	CreatedAt   int64           `json:"createdAt,omitempty"`
}

// Item is a line item of an item_based split.
type Item struct {
	ID             string          `json:"id,omitempty"`
	Description    string          `json:"description"`
	Amount         decimal.Decimal `json:"amount"`
	ParticipantIDs []string        `json:"participantIds"`
}

// Unresolved reports an allocation whose payee is not in the split.
type Unresolved struct {
	PaymentID string          `json:"paymentId"`
	Key       string          `json:"key"`
	Amount    decimal.Decimal `json:"amount"`
}

// SplitView is a split plus reconciliation warnings.
type SplitView struct {
	Split      Split        `json:"split"`
	Unresolved []Unresolved `json:"unresolved,omitempty"`
	Joined     []string     `json:"joined,omitempty"`
}

type CreateSplitRequest struct {
	GroupID      string          `json:"groupId,omitempty"`
	Title        string          `json:"title,omitempty"`
	TotalAmount  decimal.Decimal `json:"totalAmount"`
	Subtotal     decimal.Decimal `json:"subtotal"`
	SplitType    string          `json:"splitType,omitempty"`
	Participants []Entry         `json:"participants,omitempty"`
	Items        []Item          `json:"items,omitempty"`
}

type GetSplitRequest struct {
	SplitID string `json:"splitId"`
}

type ListSplitsByGroupRequest struct {
	GroupID string `json:"groupId"`
}

type ListSplitsByGroupResponse struct {
	Splits []SplitView `json:"splits"`
}

type RecordPaymentRequest struct {
	SplitID string  `json:"splitId"`
	Payment Payment `json:"payment"`
}

type SetPaidForRequest struct {
	SplitID string `json:"splitId"`
	EntryID string `json:"entryId"`
	// TargetID is the entry receiving the surplus. Empty clears the link.
	TargetID string `json:"targetId,omitempty"`
}

type UpdateTotalRequest struct {
	SplitID     string          `json:"splitId"`
	TotalAmount decimal.Decimal `json:"totalAmount"`
	Subtotal    decimal.Decimal `json:"subtotal"`
}

type SplitIDRequest struct {
	SplitID string `json:"splitId"`
}

type NudgeUnpaidResponse struct {
	Notified int `json:"notified"`
}

// SplitEvent is streamed by WatchSplit whenever the split changes.
type SplitEvent struct {
	SplitID string `json:"splitId"`
	Version int64  `json:"version"`
	Reason  string `json:"reason"`
	At      int64  `json:"at"`
}

// Group is a reusable roster.
type Group struct {
	ID        string   `json:"id"`
	Name      string   `json:"name"`
	Temporary bool     `json:"temporary"`
	Members   []Member `json:"members"`
	CreatedAt int64    `json:"createdAt"`
}

// Member is one identity on a group roster.
type Member struct {
	ID       string `json:"id,omitempty"`
	UserID   string `json:"userId,omitempty"`
	Name     string `json:"name"`
	Email    string `json:"email,omitempty"`
	JoinedAt int64  `json:"joinedAt,omitempty"`
}

type CreateGroupRequest struct {
	Name      string   `json:"name"`
	Temporary bool     `json:"temporary"`
	Members   []Member `json:"members"`
}

type GetGroupRequest struct {
	GroupID string `json:"groupId"`
}

type AddMemberRequest struct {
	GroupID string `json:"groupId"`
	Member  Member `json:"member"`
}

type AddMemberResponse struct {
	Group Group `json:"group"`
	// Reconciled lists the open splits the new member joined.
	Reconciled []string `json:"reconciled"`
}

type GetGroupBalancesRequest struct {
	GroupID string `json:"groupId"`
}

// MemberBalance is one member's net position across a group's splits.
// Positive balances are owed money.
type MemberBalance struct {
	Key        string          `json:"key"`
	Name       string          `json:"name"`
	NetBalance decimal.Decimal `json:"netBalance"`
	TotalPaid  decimal.Decimal `json:"totalPaid"`
	TotalOwed  decimal.Decimal `json:"totalOwed"`
}

// Transfer is a suggested payment settling part of the group's debts.
type Transfer struct {
	From     string          `json:"from"`
	FromName string          `json:"fromName"`
	To       string          `json:"to"`
	ToName   string          `json:"toName"`
	Amount   decimal.Decimal `json:"amount"`
}

type GetGroupBalancesResponse struct {
	Balances  []MemberBalance `json:"balances"`
	Transfers []Transfer      `json:"transfers"`
}
