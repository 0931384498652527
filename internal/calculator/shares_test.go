package calculator

import (
	"fmt"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestComputeShares(t *testing.T) {
	shares, err := ComputeShares(d("3000"), 3)
	require.NoError(t, err)
	for _, s := range shares {
		assertAmount(t, "1000", s)
	}

	shares, err = ComputeShares(d("1000"), 3)
	require.NoError(t, err)
	for _, s := range shares {
		assertAmount(t, "333.33", s)
	}
	assertAmount(t, "999.99", Sum(shares))
}

func TestComputeSharesInvalid(t *testing.T) {
	_, err := ComputeShares(d("10"), 0)
	assert.ErrorIs(t, err, ErrInvalidInput)

	_, err = ComputeShares(d("10"), -2)
	assert.ErrorIs(t, err, ErrInvalidInput)

	_, err = ComputeShares(d("-1"), 2)
	assert.ErrorIs(t, err, ErrInvalidInput)
}

func TestShareSumWithinTolerance(t *testing.T) {
	totals := []string{"0", "0.01", "0.05", "1", "10", "99.99", "100", "1000", "1234.56", "3000", "0.99"}
	for _, total := range totals {
		for n := 1; n <= 12; n++ {
			t.Run(fmt.Sprintf("%s/%d", total, n), func(t *testing.T) {
				for _, policy := range []RemainderPolicy{RemainderRoundEach, RemainderLastAbsorbs} {
					shares, err := EqualShares(d(total), n, policy)
					require.NoError(t, err)
					require.Len(t, shares, n)
					assert.True(t, WithinTolerance(shares, d(total)), "policy %s sum %s", policy, Sum(shares))
					for _, s := range shares {
						assert.False(t, s.IsNegative(), "policy %s share %s", policy, s)
						assert.True(t, s.Equal(Round2(s)), "share %s has sub-cent precision", s)
					}
				}
			})
		}
	}
}

func TestEqualSharesLastAbsorbs(t *testing.T) {
	shares, err := EqualShares(d("1000"), 3, RemainderLastAbsorbs)
	require.NoError(t, err)
	assertAmount(t, "333.33", shares[0])
	assertAmount(t, "333.33", shares[1])
	assertAmount(t, "333.34", shares[2])
	assert.True(t, Sum(shares).Equal(decimal.NewFromInt(1000)))
}

func TestParseRemainderPolicy(t *testing.T) {
	assert.Equal(t, RemainderLastAbsorbs, ParseRemainderPolicy("last_absorbs"))
	assert.Equal(t, RemainderRoundEach, ParseRemainderPolicy("round_each"))
	assert.Equal(t, RemainderRoundEach, ParseRemainderPolicy(""))
	assert.Equal(t, RemainderRoundEach, ParseRemainderPolicy("bogus"))
}
