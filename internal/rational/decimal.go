package rational

import (
	"fmt"
	"math"
	"math/big"
	"strconv"
	"strings"
)

// maxDecimalDenominator bounds the continued-fraction search in
// FromDecimalString (§4.1).
const maxDecimalDenominator = 10000

// decimalTolerance is the acceptance error for a candidate denominator.
const decimalTolerance = 1e-10

// FromDecimalString parses an integer or decimal literal ("5", "-3",
// "0.125", "0.333333", ...) into a normalized Rat via a bounded
// denominator search: candidate denominators 1..=10000 tried in order,
// accepting the first (smallest) denominator whose fit is within 1e-10 of
// the input, or the best-error fit found across the whole range otherwise.
func FromDecimalString(s string) (Rat, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return Rat{}, fmt.Errorf("rational: empty decimal literal")
	}

	// Exact integers skip the float round-trip entirely so large integer
	// literals (beyond float64 precision) stay exact.
	if n, ok := new(big.Int).SetString(s, 10); ok {
		return NewBigInt(n), nil
	}

	value, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return Rat{}, fmt.Errorf("rational: invalid decimal literal %q: %w", s, err)
	}
	return fromFloatBounded(value), nil
}

func fromFloatBounded(value float64) Rat {
	sign := int64(1)
	if value < 0 {
		sign = -1
		value = -value
	}

	bestNum, bestDen := int64(math.Round(value)), int64(1)
	bestErr := math.Abs(value - float64(bestNum))

	for den := int64(1); den <= maxDecimalDenominator; den++ {
		num := int64(math.Round(value * float64(den)))
		candidate := float64(num) / float64(den)
		e := math.Abs(value - candidate)
		if e < bestErr {
			bestNum, bestDen, bestErr = num, den, e
		}
		if e <= decimalTolerance {
			bestNum, bestDen = num, den
			break
		}
	}

	result, _ := NewI64(sign*bestNum, bestDen)
	return result
}
