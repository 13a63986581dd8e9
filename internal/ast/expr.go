package ast

import (
	"fmt"

	"notecore/internal/bytecode"
)

// Node is implemented by every AST node: position tracking plus a
// human-readable rendering, the same minimal contract the teacher's
// kanso/internal/ast.Node interface exposes (stripped of the
// metadata/compilation-tracking methods this language has no use for).
type Node interface {
	NodePos() Position
	NodeEndPos() Position
	String() string
}

// Expr is the marker interface every expression node implements.
type Expr interface {
	Node
	isExpr()
}

// NumberLit is a decimal or integer literal, e.g. "0.125" or "42"
// (§4.4 `number`).
type NumberLit struct {
	Pos, EndPos Position
	Text        string
}

func (*NumberLit) isExpr() {}
func (n *NumberLit) NodePos() Position    { return n.Pos }
func (n *NumberLit) NodeEndPos() Position { return n.EndPos }
func (n *NumberLit) String() string       { return n.Text }

// FractionLit is a parenthesized integer pair "(n/m)" — a literal, not a
// division (§4.4 `fraction`).
type FractionLit struct {
	Pos, EndPos Position
	Num, Den    int64
}

func (*FractionLit) isExpr() {}
func (f *FractionLit) NodePos() Position    { return f.Pos }
func (f *FractionLit) NodeEndPos() Position { return f.EndPos }
func (f *FractionLit) String() string       { return fmt.Sprintf("(%d/%d)", f.Num, f.Den) }

// NoteRef is a reference to another note's (or the base note's) property:
// "[3].f" or "base.frequency" (§4.4 `noteRef`).
type NoteRef struct {
	Pos, EndPos Position
	IsBase      bool
	NoteID      uint32 // valid when !IsBase
	Prop        bytecode.Var
}

func (*NoteRef) isExpr() {}
func (n *NoteRef) NodePos() Position    { return n.Pos }
func (n *NoteRef) NodeEndPos() Position { return n.EndPos }
func (n *NoteRef) String() string {
	if n.IsBase {
		return fmt.Sprintf("base.%s", n.Prop.ShortAlias())
	}
	return fmt.Sprintf("[%d].%s", n.NoteID, n.Prop.ShortAlias())
}

// HelperKind distinguishes the three §4.4 helper calls.
type HelperKind int

const (
	HelperTempo HelperKind = iota
	HelperMeasure
	HelperBeat
)

func (k HelperKind) String() string {
	switch k {
	case HelperTempo:
		return "tempo"
	case HelperMeasure:
		return "measure"
	case HelperBeat:
		return "beat"
	default:
		return "?"
	}
}

// HelperCall is "tempo(x)", "measure(x)", or "beat(x)" where x is a note
// reference target (§4.4 `helperCall`).
type HelperCall struct {
	Pos, EndPos Position
	Kind        HelperKind
	IsBase      bool
	NoteID      uint32 // valid when !IsBase
}

func (*HelperCall) isExpr() {}
func (h *HelperCall) NodePos() Position    { return h.Pos }
func (h *HelperCall) NodeEndPos() Position { return h.EndPos }
func (h *HelperCall) String() string {
	target := "base"
	if !h.IsBase {
		target = fmt.Sprintf("[%d]", h.NoteID)
	}
	return fmt.Sprintf("%s(%s)", h.Kind, target)
}

// BinaryOp is one of + - * / ^.
type BinaryOp byte

const (
	OpAdd BinaryOp = '+'
	OpSub BinaryOp = '-'
	OpMul BinaryOp = '*'
	OpDiv BinaryOp = '/'
	OpPow BinaryOp = '^'
)

// BinaryExpr is "left OP right".
type BinaryExpr struct {
	Pos, EndPos Position
	Op          BinaryOp
	Left, Right Expr
}

func (*BinaryExpr) isExpr() {}
func (b *BinaryExpr) NodePos() Position    { return b.Pos }
func (b *BinaryExpr) NodeEndPos() Position { return b.EndPos }

// String renders "left OP right", re-inserting parentheses around a child
// only when that child's own operator binds looser than (or, on the side
// associativity doesn't cover for free, as loose as) this node's — the
// §4.8 decompiler requirement. A bare literal/noteRef/helperCall child
// never needs wrapping; only a nested BinaryExpr can.
func (b *BinaryExpr) String() string {
	left := renderOperand(b.Left, b.Op, false)
	right := renderOperand(b.Right, b.Op, true)
	return fmt.Sprintf("%s %c %s", left, byte(b.Op), right)
}

func renderOperand(e Expr, parentOp BinaryOp, isRight bool) string {
	child, ok := e.(*BinaryExpr)
	if !ok {
		return e.String()
	}
	if needsParens(child.Op, parentOp, isRight) {
		return "(" + child.String() + ")"
	}
	return child.String()
}

func precedence(op BinaryOp) int {
	switch op {
	case OpPow:
		return 3
	case OpMul, OpDiv:
		return 2
	default: // OpAdd, OpSub
		return 1
	}
}

// needsParens compares a nested binary child against its parent's operator:
// looser precedence always needs parens; equal precedence needs parens on
// the side that would otherwise silently re-associate (the right side for
// the left-associative +-*/, the left side for the right-associative ^).
func needsParens(childOp, parentOp BinaryOp, isRight bool) bool {
	childPrec, parentPrec := precedence(childOp), precedence(parentOp)
	if childPrec != parentPrec {
		return childPrec < parentPrec
	}
	if parentOp == OpPow {
		return !isRight
	}
	return isRight
}

// UnaryExpr is "-value" (§4.4 `unary`).
type UnaryExpr struct {
	Pos, EndPos Position
	Value       Expr
}

func (*UnaryExpr) isExpr() {}
func (u *UnaryExpr) NodePos() Position    { return u.Pos }
func (u *UnaryExpr) NodeEndPos() Position { return u.EndPos }
func (u *UnaryExpr) String() string       { return fmt.Sprintf("(-%s)", u.Value.String()) }
