package reconcile

import (
	"errors"
	"fmt"

	"github.com/shopspring/decimal"
)

var (
	// ErrConcurrentModification is returned when a split kept changing under
	// an update until the retry budget ran out.
	ErrConcurrentModification = errors.New("concurrent modification")

	// ErrSplitClosed is returned for writes to a finalized or cancelled split,
	// and for lifecycle transitions the split's status does not allow.
	ErrSplitClosed = errors.New("split is closed")
)

// InvariantViolation reports a share sum that diverged from the split total
// beyond rounding tolerance. It is logged and counted; the request proceeds.
type InvariantViolation struct {
	SplitID string
	Total   decimal.Decimal
	Sum     decimal.Decimal
	Entries int
}

func (v *InvariantViolation) Error() string {
	return fmt.Sprintf("split %s: shares sum to %s, total is %s (%d entries)",
		v.SplitID, v.Sum.StringFixed(2), v.Total.StringFixed(2), v.Entries)
}
