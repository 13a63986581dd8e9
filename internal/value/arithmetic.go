package value

import (
	"fmt"
	"math"
	"math/big"

	"notecore/internal/rational"
)

func pow(base, exp float64) float64 { return math.Pow(base, exp) }

// approxPow numerically approximates base^exp as a bounded rational,
// used both for Symbolic construction edge cases (newSymbolic) and for the
// mixed/incompatible-base fallback paths below.
func approxPow(base, exp rational.Rat) rational.Rat {
	return rational.FromFloat(pow(base.Float64(), exp.Float64()))
}

// Add returns a+b. Any symbolic operand forces a numeric approximation
// (§4.2: "add/sub involving any symbolic operand: approximate numerically
// and mark the containing property corrupted").
func Add(a, b Value) (Value, bool) {
	if a.IsRational() && b.IsRational() {
		return FromRational(a.Rat.Add(b.Rat)), false
	}
	return FromRational(rational.FromFloat(a.Float64() + b.Float64())), true
}

// Sub returns a-b, same corruption rule as Add.
func Sub(a, b Value) (Value, bool) {
	if a.IsRational() && b.IsRational() {
		return FromRational(a.Rat.Sub(b.Rat)), false
	}
	return FromRational(rational.FromFloat(a.Float64() - b.Float64())), true
}

// Neg returns -a; negation never introduces corruption since it never
// changes exponents or bases.
func Neg(a Value) Value {
	if a.IsRational() {
		return FromRational(a.Rat.Neg())
	}
	return Value{Kind: KindSymbolic, Base: a.Base, Exp: a.Exp, Coef: a.Coef.Neg()}
}

// Mul returns a*b with the §4.2 simplification table:
//   - Rational * Rational: exact.
//   - Symbolic * Rational (either order): multiply into coef, exact.
//   - Symbolic * Symbolic, same base: combine exponents, degrading to
//     Rational if the sum is zero or an integer.
//   - Symbolic * Symbolic, different bases: collapse to a numeric
//     approximation and report corruption (no clean common representation).
func Mul(a, b Value) (Value, bool) {
	switch {
	case a.IsRational() && b.IsRational():
		return FromRational(a.Rat.Mul(b.Rat)), false
	case a.IsSymbolic() && b.IsRational():
		return Value{Kind: KindSymbolic, Base: a.Base, Exp: a.Exp, Coef: a.Coef.Mul(b.Rat)}, false
	case a.IsRational() && b.IsSymbolic():
		return Value{Kind: KindSymbolic, Base: b.Base, Exp: b.Exp, Coef: b.Coef.Mul(a.Rat)}, false
	default: // both symbolic
		if a.Base.Equal(b.Base) {
			return newSymbolic(a.Base, a.Exp.Add(b.Exp), a.Coef.Mul(b.Coef)), false
		}
		return FromRational(rational.FromFloat(a.Float64() * b.Float64())), true
	}
}

// Div returns a/b, expressed as a*invert(b) so it reuses Mul's table. A zero
// rational divisor makes Div return an error (the VM turns that into a §7
// DivideByZero error).
func Div(a, b Value) (Value, bool, error) {
	inv, err := invert(b)
	if err != nil {
		return Value{}, false, err
	}
	v, corrupted := Mul(a, inv)
	return v, corrupted, nil
}

func invert(v Value) (Value, error) {
	if v.IsRational() {
		if v.Rat.IsZero() {
			return Value{}, fmt.Errorf("value: division by zero")
		}
		one := rational.NewInt(1)
		return FromRational(one.Div(v.Rat)), nil
	}
	one := rational.NewInt(1)
	return Value{Kind: KindSymbolic, Base: v.Base, Exp: v.Exp.Neg(), Coef: one.Div(v.Coef)}, nil
}

// Pow returns a^b. §4.2 only defines exact rules when the exponent is
// Rational: pow(Rational,Rational) integer-collapses or stays Symbolic;
// pow(Symbolic,Rational) scales the exponent and coefficient. A Symbolic
// exponent has no exact rule in the spec and is treated as "degrades
// gracefully elsewhere": approximate numerically and mark corrupted.
func Pow(a, b Value) (Value, bool, error) {
	if b.IsSymbolic() {
		return FromRational(rational.FromFloat(pow(a.Float64(), b.Float64()))), true, nil
	}
	exp := b.Rat
	switch {
	case a.IsRational():
		if exp.IsInt() {
			if a.Rat.IsZero() && exp.Sign() < 0 {
				return Value{}, false, fmt.Errorf("value: division by zero")
			}
			return FromRational(a.Rat.PowInt(exp.Int64())), false, nil
		}
		return newSymbolic(a.Rat, exp, rational.NewInt(1)), false, nil
	default: // Symbolic base
		if exp.IsInt() {
			return newSymbolic(a.Base, a.Exp.Mul(exp), a.Coef.PowInt(exp.Int64())), false, nil
		}
		coef, corrupted := coefPow(a.Coef, exp)
		return newSymbolic(a.Base, a.Exp.Mul(exp), coef), corrupted, nil
	}
}

// coefPow raises a Rational coefficient to a non-integer rational power,
// reporting true when the result is an approximation (false when it is
// exact). An exact result exists exactly
// when coef's numerator and denominator are each a perfect exp.Den()'th
// power (e.g. coef=4, exp=1/2 -> 2, exact); otherwise it falls back to
// approxPow's float round-trip, which is never exact.
func coefPow(coef, exp rational.Rat) (rational.Rat, bool) {
	if exp.IsInt() {
		return coef.PowInt(exp.Int64()), false
	}
	if root, ok := exactRationalRoot(coef, exp.Den().Int64()); ok {
		return root.PowInt(exp.Num().Int64()), false
	}
	return approxPow(coef, exp), true
}

// exactRationalRoot returns coef^(1/q) when it is exact: coef must be
// non-negative (no real-valued odd/even root distinction is attempted) and
// its numerator and denominator each a perfect q'th power.
func exactRationalRoot(coef rational.Rat, q int64) (rational.Rat, bool) {
	if coef.Sign() < 0 || q <= 0 {
		return rational.Zero(), false
	}
	numRoot, ok := exactIntRoot(coef.Num(), q)
	if !ok {
		return rational.Zero(), false
	}
	denRoot, ok := exactIntRoot(coef.Den(), q)
	if !ok {
		return rational.Zero(), false
	}
	root, err := rational.New(numRoot, denRoot)
	if err != nil {
		return rational.Zero(), false
	}
	return root, true
}

// exactIntRoot finds r such that r^q == n exactly via binary search,
// reporting false when no such integer r exists.
func exactIntRoot(n *big.Int, q int64) (*big.Int, bool) {
	if n.Sign() == 0 {
		return big.NewInt(0), true
	}
	qBig := big.NewInt(q)
	lo := big.NewInt(1)
	hi := new(big.Int).Set(n)
	for lo.Cmp(hi) < 0 {
		mid := new(big.Int).Add(lo, hi)
		mid.Add(mid, big.NewInt(1))
		mid.Rsh(mid, 1)
		if new(big.Int).Exp(mid, qBig, nil).Cmp(n) <= 0 {
			lo = mid
		} else {
			hi.Sub(mid, big.NewInt(1))
		}
	}
	if new(big.Int).Exp(lo, qBig, nil).Cmp(n) == 0 {
		return lo, true
	}
	return nil, false
}
