// Package value implements the Value algebra (§4.2): a tagged union of an
// exact Rational and a Symbolic coef*base^exp term, with the simplification
// rules that keep stacked multiplicative transpositions (the dominant case
// in an equal-tempered tuning system) exact while degrading gracefully
// everywhere else. The tagged-Kind-plus-struct shape mirrors the teacher's
// enum-of-kind style (kanso/internal/types/builtins.go) rather than an
// interface-per-variant design, since there are exactly two variants and no
// open extension point.
package value

import "notecore/internal/rational"

// Kind discriminates the two Value variants.
type Kind int

const (
	KindRational Kind = iota
	KindSymbolic
)

// Value is either Rational(Rat) or Symbolic(coef * base^exp). Invariants
// (§3): for Rational, the embedded Rat is already gcd-reduced with a
// positive denominator (guaranteed by package rational); for Symbolic, Exp
// is never zero and never an integer, and Base is positive and not 1 — any
// operation that would produce a Symbolic violating those invariants
// degrades to Rational instead (see Mul/Pow below).
type Value struct {
	Kind Kind
	Rat  rational.Rat // valid when Kind == KindRational

	Base rational.Rat // valid when Kind == KindSymbolic
	Exp  rational.Rat
	Coef rational.Rat
}

// FromRational wraps a Rat as a Value.
func FromRational(r rational.Rat) Value {
	return Value{Kind: KindRational, Rat: r}
}

// FromInt is the int64 convenience constructor.
func FromInt(n int64) Value {
	return FromRational(rational.NewInt(n))
}

// newSymbolic builds a Symbolic value, degrading to Rational immediately if
// exp is zero or an integer, or if base is <= 0 or 1 — this is the one
// place the Symbolic invariant is enforced, so every other function can
// call it without re-checking.
func newSymbolic(base, exp, coef rational.Rat) Value {
	if exp.IsZero() {
		return FromRational(coef)
	}
	if exp.IsInt() {
		return FromRational(coef.Mul(base.PowInt(exp.Int64())))
	}
	if base.Sign() <= 0 || base.IsOne() {
		// Not representable as a clean power; approximate numerically.
		return FromRational(approxPow(base, exp).Mul(coef))
	}
	return Value{Kind: KindSymbolic, Base: base, Exp: exp, Coef: coef}
}

func (v Value) IsRational() bool { return v.Kind == KindRational }
func (v Value) IsSymbolic() bool { return v.Kind == KindSymbolic }

func (v Value) String() string {
	if v.IsRational() {
		return v.Rat.String()
	}
	return v.Coef.String() + "*" + v.Base.String() + "^" + v.Exp.String()
}

// Float64 approximates a Value as a float64, used only by the
// numeric-fallback paths that also set the corruption bit.
func (v Value) Float64() float64 {
	if v.IsRational() {
		return v.Rat.Float64()
	}
	base := v.Base.Float64()
	exp := v.Exp.Float64()
	return v.Coef.Float64() * pow(base, exp)
}
