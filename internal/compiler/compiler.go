// Package compiler lowers a parsed expression (internal/ast) to bytecode
// (internal/bytecode), accumulating the dependency metadata the module graph
// needs along the way. The recursive build-by-node-kind shape is adapted
// from kanso/internal/ir/builder.go, re-pointed at this language's six node
// kinds and its flat Instr-slice program representation instead of an SSA
// intermediate form.
package compiler

import (
	"notecore/internal/ast"
	"notecore/internal/bytecode"
	"notecore/internal/dialect"
	"notecore/internal/dslparser"
	"notecore/internal/errors"
	"notecore/internal/legacygrammar"
	"notecore/internal/rational"
)

// Compile parses source (auto-detecting its dialect per §4.6) and lowers it
// to a Program.
func Compile(source string) (*bytecode.Program, error) {
	d := dialect.Classify(source)
	return CompileDialect(source, d)
}

// CompileDialect parses source under an explicitly chosen dialect, skipping
// auto-detection — used when the dialect is already known, e.g. when a
// spliced expression is recompiled under the dialect its Program recorded
// (Open Question #3).
func CompileDialect(source string, d bytecode.Dialect) (*bytecode.Program, error) {
	var expr ast.Expr
	var err error

	switch d {
	case bytecode.DialectLegacy:
		expr, err = legacygrammar.Parse(source)
	default:
		expr, err = dslparser.Parse(source)
	}
	if err != nil {
		return nil, withSource(err, source)
	}

	prog := bytecode.NewProgram(source, d)
	c := &compiler{prog: prog}
	if err := c.compileExpr(expr); err != nil {
		return nil, withSource(err, source)
	}
	return prog, nil
}

// withSource attaches source to err if it's a *errors.CompilerError, so a
// caller reporting the error later (the CLI's Reporter, say) can render the
// caret against the actual offending expression text instead of nothing.
func withSource(err error, source string) error {
	if ce, ok := err.(*errors.CompilerError); ok {
		return ce.WithSource(source)
	}
	return err
}

type compiler struct {
	prog *bytecode.Program
}

func (c *compiler) compileExpr(e ast.Expr) error {
	switch n := e.(type) {
	case *ast.NumberLit:
		return c.compileNumberLit(n)
	case *ast.FractionLit:
		return c.emitConst(rationalFromFraction(n))
	case *ast.NoteRef:
		return c.compileNoteRef(n)
	case *ast.HelperCall:
		return c.compileHelperCall(n)
	case *ast.BinaryExpr:
		return c.compileBinary(n)
	case *ast.UnaryExpr:
		return c.compileUnary(n)
	default:
		return errors.At(errors.KindCompile, e.NodePos(), "unsupported expression node")
	}
}

func rationalFromFraction(f *ast.FractionLit) rational.Rat {
	r, err := rational.NewI64(f.Num, f.Den)
	if err != nil {
		// den == 0 is already rejected by both parsers; defensive only.
		return rational.Zero()
	}
	return r
}

func (c *compiler) compileNumberLit(n *ast.NumberLit) error {
	r, err := rational.FromDecimalString(n.Text)
	if err != nil {
		return errors.At(errors.KindCompile, n.Pos, "invalid numeric literal %q", n.Text)
	}
	return c.emitConst(r)
}

func (c *compiler) emitConst(r rational.Rat) error {
	if r.FitsInt32() {
		c.prog.Emit(bytecode.Instr{Op: bytecode.OpLoadConst, Num: r.Num(), Den: r.Den()})
	} else {
		c.prog.Emit(bytecode.Instr{Op: bytecode.OpLoadConstBig, Num: r.Num(), Den: r.Den()})
	}
	return nil
}

func (c *compiler) compileNoteRef(n *ast.NoteRef) error {
	if n.IsBase {
		c.prog.ReferencesBase = true
		c.prog.Emit(bytecode.Instr{Op: bytecode.OpLoadBase, Var: n.Prop})
		return nil
	}
	c.prog.Dependencies[n.NoteID] = struct{}{}
	c.prog.Emit(bytecode.Instr{Op: bytecode.OpLoadRef, NoteID: n.NoteID, Var: n.Prop})
	return nil
}

// compileHelperCall lowers tempo(x)/measure(x) to a direct property load and
// desugars beat(x) to "60 / tempo(x)" (§4.4: a beat is 60/tempo seconds).
func (c *compiler) compileHelperCall(h *ast.HelperCall) error {
	switch h.Kind {
	case ast.HelperTempo:
		return c.loadHelperVar(h, bytecode.VarTempo)
	case ast.HelperMeasure:
		return c.loadHelperVar(h, bytecode.VarMeasureLength)
	case ast.HelperBeat:
		sixty, err := rational.NewI64(60, 1)
		if err != nil {
			return err
		}
		if err := c.emitConst(sixty); err != nil {
			return err
		}
		if err := c.loadHelperVar(h, bytecode.VarTempo); err != nil {
			return err
		}
		c.prog.Emit(bytecode.Instr{Op: bytecode.OpDiv})
		return nil
	default:
		return errors.At(errors.KindCompile, h.Pos, "unsupported helper call")
	}
}

func (c *compiler) loadHelperVar(h *ast.HelperCall, v bytecode.Var) error {
	if h.IsBase {
		c.prog.ReferencesBase = true
		c.prog.Emit(bytecode.Instr{Op: bytecode.OpLoadBase, Var: v})
		return nil
	}
	c.prog.Dependencies[h.NoteID] = struct{}{}
	c.prog.Emit(bytecode.Instr{Op: bytecode.OpLoadRef, NoteID: h.NoteID, Var: v})
	return nil
}

func (c *compiler) compileBinary(b *ast.BinaryExpr) error {
	if err := c.compileExpr(b.Left); err != nil {
		return err
	}
	if err := c.compileExpr(b.Right); err != nil {
		return err
	}
	switch b.Op {
	case ast.OpAdd:
		c.prog.Emit(bytecode.Instr{Op: bytecode.OpAdd})
	case ast.OpSub:
		c.prog.Emit(bytecode.Instr{Op: bytecode.OpSub})
	case ast.OpMul:
		c.prog.Emit(bytecode.Instr{Op: bytecode.OpMul})
	case ast.OpDiv:
		c.prog.Emit(bytecode.Instr{Op: bytecode.OpDiv})
	case ast.OpPow:
		c.prog.Emit(bytecode.Instr{Op: bytecode.OpPow})
	default:
		return errors.At(errors.KindCompile, b.Pos, "unsupported binary operator")
	}
	return nil
}

func (c *compiler) compileUnary(u *ast.UnaryExpr) error {
	if err := c.compileExpr(u.Value); err != nil {
		return err
	}
	c.prog.Emit(bytecode.Instr{Op: bytecode.OpNeg})
	return nil
}
