// Package models defines the core domain models for splitsettle.
//
// # Models
//
//   - Split: a bill divided among participants, with its payment ledger
//   - BreakdownEntry: one participant's stake in a split
//   - PaymentEvent: one append-only payment record with payee allocations
//   - Group: a roster of members that splits can be attached to
//   - Notification: an outbox row rendered for a nudge email
//   - User: the authenticated caller carried in a JWT
//
// # Money
//
// Every monetary amount is a decimal.Decimal rounded to two places
// (currency minor units). Amounts are encoded as JSON numbers.
//
// # Identity
//
// A breakdown entry is identified by a user id, a participant id, or a
// free-text name/email pair for guests. Payments refer to payees through
// any of those signals; resolving them is the job of the calculator package.
package models

import "github.com/shopspring/decimal"

func init() {
	decimal.MarshalJSONWithoutQuotes = true
}
