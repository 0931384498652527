package models

import "github.com/shopspring/decimal"

// Notification is an outbox row for one nudge email.
type Notification struct {
	// ID is the unique identifier for the notification (UUID format).
	ID string `json:"id"`

	// SplitID is the split the nudge is about.
	SplitID string `json:"splitId"`

	// Recipient is the email address the nudge is sent to.
	Recipient string `json:"recipient"`

	// RecipientName is the sanitized display name used in the greeting.
	RecipientName string `json:"recipientName"`

	Subject string `json:"subject"`
	Body    string `json:"body"`

	// AmountDue is the outstanding amount at the time of rendering.
	AmountDue decimal.Decimal `json:"amountDue"`

	// CreatedAt is the Unix timestamp when the notification was queued.
	CreatedAt int64 `json:"createdAt"`

	// DeliveredAt is zero until a mailer accepted the message.
	DeliveredAt int64 `json:"deliveredAt,omitempty"`
}
