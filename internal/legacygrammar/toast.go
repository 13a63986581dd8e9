package legacygrammar

import (
	"github.com/alecthomas/participle/v2/lexer"

	"notecore/internal/ast"
	"notecore/internal/bytecode"
	"notecore/internal/errors"
)

func toPos(p lexer.Position) ast.Position {
	return ast.Position{Line: p.Line, Column: p.Column, Offset: p.Offset}
}

// toAST converts a parsed legacy Expr into the shared AST, resolving
// property names through bytecode.LookupProperty so unknown properties
// surface the same UnknownPropertyError as the DSL parser.
func (e *Expr) toAST() (ast.Expr, error) {
	left, err := e.Primary.toAST()
	if err != nil {
		return nil, err
	}
	for _, call := range e.Calls {
		next, err := call.apply(left)
		if err != nil {
			return nil, err
		}
		left = next
	}
	return left, nil
}

func (p *Primary) toAST() (ast.Expr, error) {
	switch {
	case p.Fraction != nil:
		return p.Fraction.toAST()
	case p.BaseVar != nil:
		return p.BaseVar.toAST()
	case p.NoteVar != nil:
		return p.NoteVar.toAST()
	case p.FindTempo != nil:
		return p.FindTempo.toAST(), nil
	case p.FindMeasure != nil:
		return p.FindMeasure.toAST(), nil
	default:
		return nil, errors.New(errors.KindParse, "empty primary expression")
	}
}

func (f *FractionLit) toAST() (ast.Expr, error) {
	den := int64(1)
	if f.Den != nil {
		den = *f.Den
	}
	if den == 0 {
		return nil, errors.New(errors.KindParse, "division by zero in fraction literal")
	}
	return &ast.FractionLit{Num: f.Num, Den: den}, nil
}

func stripQuotes(s string) string {
	if len(s) >= 2 && s[0] == '\'' && s[len(s)-1] == '\'' {
		return s[1 : len(s)-1]
	}
	return s
}

func resolveProp(raw string) (bytecode.Var, error) {
	prop, ok := bytecode.LookupProperty(stripQuotes(raw))
	if !ok {
		return 0, errors.New(errors.KindUnknownProperty, "unknown property %q", stripQuotes(raw))
	}
	return prop, nil
}

func (b *BaseVarRef) toAST() (ast.Expr, error) {
	prop, err := resolveProp(b.Prop)
	if err != nil {
		return nil, err
	}
	return &ast.NoteRef{IsBase: true, Prop: prop}, nil
}

func (n *NoteVarRef) toAST() (ast.Expr, error) {
	prop, err := resolveProp(n.Prop)
	if err != nil {
		return nil, err
	}
	id := uint32(n.NoteID)
	return &ast.NoteRef{IsBase: id == 0, NoteID: id, Prop: prop}, nil
}

func (t *FindTempoCall) toAST() ast.Expr {
	isBase, id := t.Target.resolve()
	return &ast.HelperCall{Kind: ast.HelperTempo, IsBase: isBase, NoteID: id}
}

func (m *FindMeasureCall) toAST() ast.Expr {
	isBase, id := m.Target.resolve()
	return &ast.HelperCall{Kind: ast.HelperMeasure, IsBase: isBase, NoteID: id}
}

func (t *Target) resolve() (isBase bool, noteID uint32) {
	if t.Base != nil {
		return true, 0
	}
	id := uint32(t.ByID.NoteID)
	return id == 0, id
}

// apply turns a chained `.method(arg)` call into a BinaryExpr/UnaryExpr
// wrapping the accumulated left-hand expression.
func (c *Call) apply(left ast.Expr) (ast.Expr, error) {
	if c.Method == "neg" {
		if c.Arg != nil {
			return nil, errors.New(errors.KindParse, "neg() takes no arguments")
		}
		return &ast.UnaryExpr{Pos: left.NodePos(), EndPos: left.NodeEndPos(), Value: left}, nil
	}

	if c.Arg == nil {
		return nil, errors.New(errors.KindParse, "%s() requires an argument", c.Method)
	}
	right, err := c.Arg.toAST()
	if err != nil {
		return nil, err
	}

	var op ast.BinaryOp
	switch c.Method {
	case "add":
		op = ast.OpAdd
	case "sub":
		op = ast.OpSub
	case "mul":
		op = ast.OpMul
	case "div":
		op = ast.OpDiv
	case "pow":
		op = ast.OpPow
	default:
		return nil, errors.New(errors.KindParse, "unknown method %q", c.Method)
	}
	return &ast.BinaryExpr{Pos: left.NodePos(), EndPos: right.NodeEndPos(), Op: op, Left: left, Right: right}, nil
}
