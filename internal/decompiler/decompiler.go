// Package decompiler reconstructs source text from a compiled
// bytecode.Program, in either surface dialect, by replaying the instruction
// stream against a tree-shaped stack (each LOAD_* pushes a leaf, each
// arithmetic op pops its operands and pushes a combined node) and then
// pretty-printing the resulting tree. The node-kind-driven printer is
// adapted from kanso/internal/ast/printer.go's recursive Stringer-style
// approach, re-pointed at this language's six node kinds and two surface
// grammars instead of one.
package decompiler

import (
	"fmt"

	"notecore/internal/ast"
	"notecore/internal/bytecode"
	"notecore/internal/errors"
	"notecore/internal/rational"
)

// Decompile reconstructs source text for prog in the requested dialect.
// Passing bytecode.DialectUnknown uses prog.Dialect (the dialect it was
// originally compiled under, per Open Question #3).
func Decompile(prog *bytecode.Program, d bytecode.Dialect) (string, error) {
	if d == bytecode.DialectUnknown {
		d = prog.Dialect
	}
	tree, err := rebuild(prog)
	if err != nil {
		return "", err
	}
	recognizeBeatCalls(&tree)

	switch d {
	case bytecode.DialectLegacy:
		return printLegacy(tree), nil
	default:
		return printDSL(tree), nil
	}
}

// rebuild replays prog's instructions over a stack of ast.Expr nodes,
// reconstructing the expression tree the compiler lowered from.
func rebuild(prog *bytecode.Program) (ast.Expr, error) {
	var stack []ast.Expr

	pop := func() (ast.Expr, error) {
		if len(stack) == 0 {
			return nil, errors.New(errors.KindMalformedBytecode, "stack underflow while decompiling")
		}
		top := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		return top, nil
	}

	for _, instr := range prog.Code {
		switch instr.Op {
		case bytecode.OpLoadConst, bytecode.OpLoadConstBig:
			r, err := rational.New(instr.Num, instr.Den)
			if err != nil {
				return nil, errors.New(errors.KindMalformedBytecode, "%s", err.Error())
			}
			if r.IsInt() {
				stack = append(stack, &ast.NumberLit{Text: r.String()})
			} else {
				stack = append(stack, &ast.FractionLit{Num: r.Num().Int64(), Den: r.Den().Int64()})
			}

		case bytecode.OpLoadRef:
			stack = append(stack, &ast.NoteRef{IsBase: false, NoteID: instr.NoteID, Prop: instr.Var})

		case bytecode.OpLoadBase:
			stack = append(stack, &ast.NoteRef{IsBase: true, Prop: instr.Var})

		case bytecode.OpAdd, bytecode.OpSub, bytecode.OpMul, bytecode.OpDiv, bytecode.OpPow:
			right, err := pop()
			if err != nil {
				return nil, err
			}
			left, err := pop()
			if err != nil {
				return nil, err
			}
			stack = append(stack, &ast.BinaryExpr{Op: opFor(instr.Op), Left: left, Right: right})

		case bytecode.OpNeg:
			v, err := pop()
			if err != nil {
				return nil, err
			}
			stack = append(stack, &ast.UnaryExpr{Value: v})

		default:
			return nil, errors.New(errors.KindMalformedBytecode, "unknown opcode %s", instr.Op)
		}
	}

	if len(stack) != 1 {
		return nil, errors.New(errors.KindMalformedBytecode, "program left %d values on the stack, want 1", len(stack))
	}
	return stack[0], nil
}

func opFor(op bytecode.Op) ast.BinaryOp {
	switch op {
	case bytecode.OpAdd:
		return ast.OpAdd
	case bytecode.OpSub:
		return ast.OpSub
	case bytecode.OpMul:
		return ast.OpMul
	case bytecode.OpDiv:
		return ast.OpDiv
	case bytecode.OpPow:
		return ast.OpPow
	default:
		return 0
	}
}

// recognizeBeatCalls folds the "60 / tempo(x)" pattern the compiler emits
// for beat(x) back into a single HelperCall node, so decompiled source shows
// the helper the author wrote instead of its desugaring.
func recognizeBeatCalls(e *ast.Expr) {
	switch n := (*e).(type) {
	case *ast.BinaryExpr:
		recognizeBeatCalls(&n.Left)
		recognizeBeatCalls(&n.Right)
		if n.Op == ast.OpDiv {
			if lit, ok := n.Left.(*ast.NumberLit); ok && lit.Text == "60" {
				if ref, ok := n.Right.(*ast.NoteRef); ok && ref.Prop == bytecode.VarTempo {
					*e = &ast.HelperCall{Kind: ast.HelperBeat, IsBase: ref.IsBase, NoteID: ref.NoteID}
				}
			}
		}
	case *ast.UnaryExpr:
		recognizeBeatCalls(&n.Value)
	}
}

// printDSL renders the reconstructed tree in the concise DSL surface syntax;
// ast.Expr.String() already implements exactly that grammar.
func printDSL(e ast.Expr) string {
	return e.String()
}

// printLegacy renders the reconstructed tree as a method-chain expression
// (§4.5), the inverse of internal/legacygrammar's parse.
func printLegacy(e ast.Expr) string {
	switch n := e.(type) {
	case *ast.NumberLit:
		return fmt.Sprintf("new Fraction(%s, 1)", n.Text)
	case *ast.FractionLit:
		return fmt.Sprintf("new Fraction(%d, %d)", n.Num, n.Den)
	case *ast.NoteRef:
		if n.IsBase {
			return fmt.Sprintf("module.baseNote.getVariable('%s')", n.Prop.ShortAlias())
		}
		return fmt.Sprintf("module.getNoteById(%d).getVariable('%s')", n.NoteID, n.Prop.ShortAlias())
	case *ast.HelperCall:
		target := "module.baseNote"
		if !n.IsBase {
			target = fmt.Sprintf("module.getNoteById(%d)", n.NoteID)
		}
		switch n.Kind {
		case ast.HelperTempo:
			return fmt.Sprintf("module.findTempo(%s)", target)
		case ast.HelperMeasure:
			return fmt.Sprintf("module.findMeasureLength(%s)", target)
		default: // beat(x) has no direct legacy call; render its desugaring
			return fmt.Sprintf("new Fraction(60, 1).div(module.findTempo(%s))", target)
		}
	case *ast.BinaryExpr:
		return fmt.Sprintf("%s.%s(%s)", printLegacy(n.Left), legacyMethod(n.Op), printLegacy(n.Right))
	case *ast.UnaryExpr:
		return fmt.Sprintf("%s.neg()", printLegacy(n.Value))
	default:
		return ""
	}
}

func legacyMethod(op ast.BinaryOp) string {
	switch op {
	case ast.OpAdd:
		return "add"
	case ast.OpSub:
		return "sub"
	case ast.OpMul:
		return "mul"
	case ast.OpDiv:
		return "div"
	case ast.OpPow:
		return "pow"
	default:
		return "?"
	}
}
