package calculator

import (
	"github.com/shopspring/decimal"
)

// RemainderPolicy decides what happens to the cents left over by an equal split.
type RemainderPolicy string

const (
	// RemainderRoundEach rounds every share to the cent independently. The
	// shares can drift from the total by up to a cent per participant.
	RemainderRoundEach RemainderPolicy = "round_each"

	// RemainderLastAbsorbs truncates every share to the cent and gives the
	// leftover to the last participant, so shares always sum to the total.
	RemainderLastAbsorbs RemainderPolicy = "last_absorbs"
)

// ParseRemainderPolicy maps a config value to a policy. Unknown values fall
// back to RemainderRoundEach.
func ParseRemainderPolicy(s string) RemainderPolicy {
	if RemainderPolicy(s) == RemainderLastAbsorbs {
		return RemainderLastAbsorbs
	}
	return RemainderRoundEach
}

// Cent is the smallest currency unit and the rounding tolerance.
var Cent = decimal.New(1, -2)

var hundred = decimal.NewFromInt(100)

// Round2 rounds an amount to currency-minor-unit precision.
func Round2(d decimal.Decimal) decimal.Decimal {
	return d.Round(2)
}

// ComputeShares splits total equally among n participants:
// perPerson = round(total / n, 2). The remainder is not redistributed.
func ComputeShares(total decimal.Decimal, n int) ([]decimal.Decimal, error) {
	return EqualShares(total, n, RemainderRoundEach)
}

// EqualShares splits total equally among n participants using policy.
func EqualShares(total decimal.Decimal, n int, policy RemainderPolicy) ([]decimal.Decimal, error) {
	if n <= 0 {
		return nil, invalid("participant count must be positive, got %d", n)
	}
	if total.IsNegative() {
		return nil, invalid("total amount cannot be negative")
	}

	count := decimal.NewFromInt(int64(n))
	shares := make([]decimal.Decimal, n)

	if policy == RemainderLastAbsorbs {
		per := total.Div(count).Truncate(2)
		for i := range shares {
			shares[i] = per
		}
		shares[n-1] = total.Sub(per.Mul(decimal.NewFromInt(int64(n - 1))))
		return shares, nil
	}

	per := Round2(total.Div(count))
	for i := range shares {
		shares[i] = per
	}
	return shares, nil
}

// Sum adds up amounts.
func Sum(amounts []decimal.Decimal) decimal.Decimal {
	total := decimal.Zero
	for _, a := range amounts {
		total = total.Add(a)
	}
	return total
}

// WithinTolerance reports whether shares sum to total within a cent per share.
func WithinTolerance(shares []decimal.Decimal, total decimal.Decimal) bool {
	limit := Cent.Mul(decimal.NewFromInt(int64(len(shares))))
	return Sum(shares).Sub(total).Abs().LessThanOrEqual(limit)
}

// absorbRemainder moves the rounding drift onto the last share.
func absorbRemainder(shares []decimal.Decimal, total decimal.Decimal) {
	if len(shares) == 0 {
		return
	}
	drift := total.Sub(Sum(shares))
	shares[len(shares)-1] = shares[len(shares)-1].Add(drift)
}
