// Package rational implements BigRational (§4.1): arbitrary-precision
// signed rational arithmetic with gcd-reduced, positive-denominator
// normalization, built on math/big. No example in the retrieval pack
// implements exact rational arithmetic — the nearby finite-field code
// (modular square roots, field elements) solves a different algebra with no
// reduce-by-gcd or sign story to borrow, so this wraps math/big.Rat/big.Int
// directly rather than reinventing bignum arithmetic by hand.
package rational

import (
	"fmt"
	"math/big"
)

// Rat is a normalized signed rational: Den > 0 and gcd(|Num|, Den) == 1.
// The zero value is not valid; use Zero(), NewInt, or New.
type Rat struct {
	r *big.Rat
}

// Zero returns the rational 0/1.
func Zero() Rat { return Rat{r: new(big.Rat)} }

// NewInt builds a Rat from an integer.
func NewInt(n int64) Rat {
	return Rat{r: new(big.Rat).SetInt64(n)}
}

// NewBigInt builds a Rat from a *big.Int numerator over denominator 1.
func NewBigInt(n *big.Int) Rat {
	return Rat{r: new(big.Rat).SetInt(n)}
}

// New builds a normalized Rat from num/den, reducing by gcd and forcing a
// positive denominator. Returns an error if den is zero.
func New(num, den *big.Int) (Rat, error) {
	if den.Sign() == 0 {
		return Rat{}, fmt.Errorf("rational: zero denominator")
	}
	r := new(big.Rat).SetFrac(num, den)
	return Rat{r: r}, nil
}

// NewI64 is the int64 convenience form of New.
func NewI64(num, den int64) (Rat, error) {
	if den == 0 {
		return Rat{}, fmt.Errorf("rational: zero denominator")
	}
	return Rat{r: big.NewRat(num, den)}, nil
}

func (a Rat) Num() *big.Int { return a.r.Num() }
func (a Rat) Den() *big.Int { return a.r.Denom() }

func (a Rat) Add(b Rat) Rat { return Rat{r: new(big.Rat).Add(a.r, b.r)} }
func (a Rat) Sub(b Rat) Rat { return Rat{r: new(big.Rat).Sub(a.r, b.r)} }
func (a Rat) Mul(b Rat) Rat { return Rat{r: new(big.Rat).Mul(a.r, b.r)} }

// Div returns a/b. The caller must check b.IsZero() first (§7 DivideByZero
// is a VM-level concern, not something this package raises on its own).
func (a Rat) Div(b Rat) Rat { return Rat{r: new(big.Rat).Quo(a.r, b.r)} }

func (a Rat) Neg() Rat { return Rat{r: new(big.Rat).Neg(a.r)} }

// PowInt raises a to an integer power, including negative exponents
// (a^-n = 1/a^n).
func (a Rat) PowInt(n int64) Rat {
	if n == 0 {
		return NewInt(1)
	}
	neg := n < 0
	if neg {
		n = -n
	}
	numPow := new(big.Int).Exp(a.Num(), big.NewInt(n), nil)
	denPow := new(big.Int).Exp(a.Den(), big.NewInt(n), nil)
	if neg {
		numPow, denPow = denPow, numPow
		if numPow.Sign() < 0 {
			numPow.Neg(numPow)
			denPow.Neg(denPow)
		}
	}
	result, _ := New(numPow, denPow)
	return result
}

func (a Rat) Compare(b Rat) int { return a.r.Cmp(b.r) }
func (a Rat) Equal(b Rat) bool  { return a.r.Cmp(b.r) == 0 }
func (a Rat) IsZero() bool      { return a.r.Sign() == 0 }
func (a Rat) IsOne() bool       { return a.r.Cmp(big.NewRat(1, 1)) == 0 }
func (a Rat) Sign() int         { return a.r.Sign() }

// IsInt reports whether the rational is an integer (denominator 1).
func (a Rat) IsInt() bool { return a.Den().Cmp(big.NewInt(1)) == 0 }

// Int64 returns the integer value; callers must check IsInt first.
func (a Rat) Int64() int64 { return a.Num().Int64() }

// Float64 is the lossy conversion used only for the numeric-approximation
// fallback paths in internal/value (§4.2).
func (a Rat) Float64() float64 {
	f, _ := a.r.Float64()
	return f
}

// FitsInt32 reports whether both numerator and denominator fit in a signed
// 32-bit integer — the §4.7 LOAD_CONST vs LOAD_CONST_BIG emission test.
func (a Rat) FitsInt32() bool {
	return a.Num().IsInt64() && fitsInt32(a.Num().Int64()) &&
		a.Den().IsInt64() && fitsInt32(a.Den().Int64())
}

func fitsInt32(n int64) bool {
	return n >= -(1<<31) && n <= (1<<31)-1
}

func (a Rat) String() string {
	if a.IsInt() {
		return a.Num().String()
	}
	return fmt.Sprintf("%s/%s", a.Num().String(), a.Den().String())
}

// FromFloat builds the best-effort exact rational for a float64, used by
// the numeric-approximation fallback in internal/value. It reuses the same
// bounded denominator search as FromDecimalString applied to the
// float's decimal rendering, so corrupted values still normalize cleanly.
func FromFloat(f float64) Rat {
	r, err := FromDecimalString(fmt.Sprintf("%.15g", f))
	if err != nil {
		return Zero()
	}
	return r
}
