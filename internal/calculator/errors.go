package calculator

import (
	"errors"
	"fmt"

	"github.com/shopspring/decimal"
)

// ErrInvalidInput is returned for inputs the calculator cannot work with:
// non-positive participant counts, negative amounts or malformed payments.
// Callers match it with errors.Is; the wrapped message carries the detail.
var ErrInvalidInput = errors.New("invalid input")

// ErrNoFixedPoint is returned when surplus resolution fails to settle within
// its pass limit.
var ErrNoFixedPoint = errors.New("surplus resolution did not converge")

func invalid(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrInvalidInput, fmt.Sprintf(format, args...))
}

// UnresolvedAllocation describes an allocation whose payee matched no
// breakdown entry. It is a warning: the amount is aggregated under Key and
// never lands on any entry.
type UnresolvedAllocation struct {
	PaymentID string
	Key       EntryKey
	Amount    decimal.Decimal
}

func (u UnresolvedAllocation) String() string {
	return fmt.Sprintf("payment %s: %s (%s)", u.PaymentID, u.Key, u.Amount.StringFixed(2))
}
