// Package dslparser implements the recursive-descent parser for the concise
// DSL surface syntax (§4.4), producing the shared internal/ast tree. The
// precedence-climbing shape (a binary-precedence loop plus a recursive
// parseUnary/parsePrimary pair) is adapted from
// kanso/internal/parser/parser_pratt.go, re-derived for this grammar's own
// precedence table (`+ - < * / < unary-minus < ^`, right-associative `^`)
// instead of the teacher's C-like one, and with postfix call/index/field
// handling replaced by note-ref, fraction-literal, and helper-call parsing.
package dslparser

import (
	"strconv"

	"notecore/internal/ast"
	"notecore/internal/bytecode"
	"notecore/internal/dsllexer"
	"notecore/internal/errors"
)

// Parser consumes a DSL token stream and builds an ast.Expr.
type Parser struct {
	tokens  []dsllexer.Token
	current int
}

// Parse parses a complete DSL expression string.
func Parse(source string) (ast.Expr, error) {
	scanner := dsllexer.NewScanner(source)
	tokens := scanner.ScanTokens()
	if errs := scanner.Errors(); len(errs) > 0 {
		e := errs[0]
		return nil, errors.At(errors.KindLex, e.Position, "%s", e.Message)
	}

	p := &Parser{tokens: tokens}
	expr, err := p.parseExpression()
	if err != nil {
		return nil, err
	}
	if !p.isAtEnd() {
		tok := p.peek()
		return nil, errors.At(errors.KindParse, tok.Position, "unexpected trailing token %q", tok.Lexeme)
	}
	return expr, nil
}

// precedence table: additive < multiplicative < unary-minus < power.
// '^' is handled separately as right-associative in parsePower.
var binaryPrecedence = map[dsllexer.TokenType]int{
	dsllexer.PLUS:  1,
	dsllexer.MINUS: 1,
	dsllexer.STAR:  2,
	dsllexer.SLASH: 2,
}

func (p *Parser) parseExpression() (ast.Expr, error) {
	return p.parseBinary(1)
}

func (p *Parser) parseBinary(minPrec int) (ast.Expr, error) {
	left, err := p.parseUnary()
	if err != nil {
		return nil, err
	}

	for {
		tok := p.peek()
		prec, ok := binaryPrecedence[tok.Type]
		if !ok || prec < minPrec {
			break
		}
		p.advance()
		right, err := p.parseBinary(prec + 1)
		if err != nil {
			return nil, err
		}
		left = &ast.BinaryExpr{
			Pos:    left.NodePos(),
			EndPos: right.NodeEndPos(),
			Op:     tokenToOp(tok.Type),
			Left:   left,
			Right:  right,
		}
	}
	return left, nil
}

func (p *Parser) parseUnary() (ast.Expr, error) {
	if p.check(dsllexer.MINUS) {
		minus := p.advance()
		value, err := p.parseUnary()
		if err != nil {
			return nil, err
		}
		return &ast.UnaryExpr{Pos: minus.Position, EndPos: value.NodeEndPos(), Value: value}, nil
	}
	return p.parsePower()
}

// parsePower implements right-associative '^': a primary may be followed
// by '^' and a recursive unary (so "2^-3" and "2^3^4" both work, the latter
// as 2^(3^4)).
func (p *Parser) parsePower() (ast.Expr, error) {
	base, err := p.parsePrimary()
	if err != nil {
		return nil, err
	}
	if p.check(dsllexer.CARET) {
		p.advance()
		exp, err := p.parseUnary()
		if err != nil {
			return nil, err
		}
		return &ast.BinaryExpr{Pos: base.NodePos(), EndPos: exp.NodeEndPos(), Op: ast.OpPow, Left: base, Right: exp}, nil
	}
	return base, nil
}

func (p *Parser) parsePrimary() (ast.Expr, error) {
	tok := p.peek()
	switch tok.Type {
	case dsllexer.NUMBER:
		p.advance()
		return &ast.NumberLit{Pos: tok.Position, EndPos: tok.Position, Text: tok.Lexeme}, nil

	case dsllexer.LPAREN:
		return p.parseParenOrFraction()

	case dsllexer.LBRACKET, dsllexer.BASE:
		return p.parseNoteRef()

	case dsllexer.IDENT:
		if kind, ok := helperKind(tok.Lexeme); ok {
			return p.parseHelperCall(kind)
		}
		return nil, errors.At(errors.KindParse, tok.Position, "unexpected identifier %q", tok.Lexeme)

	default:
		return nil, errors.At(errors.KindParse, tok.Position, "unexpected token %q", tok.Lexeme)
	}
}

// parseParenOrFraction disambiguates "(n/m)" fraction literals from
// ordinary grouped expressions (§4.4 special rule): both int literals and
// nothing else between them.
func (p *Parser) parseParenOrFraction() (ast.Expr, error) {
	open := p.advance() // '('

	if p.check(dsllexer.NUMBER) && isIntLexeme(p.peek().Lexeme) {
		save := p.current
		numTok := p.advance()
		if p.check(dsllexer.SLASH) {
			p.advance()
			if p.check(dsllexer.NUMBER) && isIntLexeme(p.peek().Lexeme) {
				denTok := p.advance()
				if p.check(dsllexer.RPAREN) {
					closeTok := p.advance()
					num, _ := strconv.ParseInt(numTok.Lexeme, 10, 64)
					den, _ := strconv.ParseInt(denTok.Lexeme, 10, 64)
					if den == 0 {
						return nil, errors.At(errors.KindParse, denTok.Position, "division by zero in fraction literal")
					}
					return &ast.FractionLit{Pos: open.Position, EndPos: closeTok.Position, Num: num, Den: den}, nil
				}
			}
		}
		p.current = save // not a fraction literal, re-parse as grouped expression
	}

	inner, err := p.parseExpression()
	if err != nil {
		return nil, err
	}
	if !p.check(dsllexer.RPAREN) {
		return nil, errors.At(errors.KindParse, p.peek().Position, "expected ')'")
	}
	p.advance()
	return inner, nil
}

func isIntLexeme(s string) bool {
	if s == "" {
		return false
	}
	for _, c := range s {
		if c < '0' || c > '9' {
			return false
		}
	}
	return true
}

// parseNoteRef parses "[n].prop" or "base.prop" (§4.4 noteRef). "[0].prop"
// and "base.prop" are equivalent; both compile to a LOAD_BASE (§4.4).
func (p *Parser) parseNoteRef() (ast.Expr, error) {
	start := p.peek()
	isBase := false
	var noteID uint32

	if p.check(dsllexer.BASE) {
		p.advance()
		isBase = true
	} else {
		p.advance() // '['
		if !p.check(dsllexer.NUMBER) || !isIntLexeme(p.peek().Lexeme) {
			return nil, errors.At(errors.KindParse, p.peek().Position, "expected note id inside '[...]'")
		}
		idTok := p.advance()
		id, err := strconv.ParseUint(idTok.Lexeme, 10, 32)
		if err != nil {
			return nil, errors.At(errors.KindParse, idTok.Position, "invalid note id %q", idTok.Lexeme)
		}
		noteID = uint32(id)
		if !p.check(dsllexer.RBRACKET) {
			return nil, errors.At(errors.KindParse, p.peek().Position, "expected ']'")
		}
		p.advance()
		if id == 0 {
			isBase = true
		}
	}

	if !p.check(dsllexer.DOT) {
		return nil, errors.At(errors.KindParse, p.peek().Position, "expected '.' after note reference")
	}
	p.advance()

	if !p.check(dsllexer.IDENT) {
		return nil, errors.At(errors.KindParse, p.peek().Position, "expected property name after '.'")
	}
	propTok := p.advance()
	prop, ok := bytecode.LookupProperty(propTok.Lexeme)
	if !ok {
		return nil, errors.Spanning(errors.KindUnknownProperty, propTok.Position, len(propTok.Lexeme),
			"unknown property %q", propTok.Lexeme)
	}

	return &ast.NoteRef{Pos: start.Position, EndPos: propTok.Position, IsBase: isBase, NoteID: noteID, Prop: prop}, nil
}

func helperKind(name string) (ast.HelperKind, bool) {
	switch name {
	case "tempo":
		return ast.HelperTempo, true
	case "measure":
		return ast.HelperMeasure, true
	case "beat":
		return ast.HelperBeat, true
	default:
		return 0, false
	}
}

// parseHelperCall parses "tempo(x)", "measure(x)", "beat(x)" (§4.4
// helperCall / noteArg).
func (p *Parser) parseHelperCall(kind ast.HelperKind) (ast.Expr, error) {
	start := p.advance() // the keyword identifier
	if !p.check(dsllexer.LPAREN) {
		return nil, errors.At(errors.KindParse, p.peek().Position, "expected '(' after %q", start.Lexeme)
	}
	p.advance()

	isBase := false
	var noteID uint32
	if p.check(dsllexer.BASE) {
		p.advance()
		isBase = true
	} else if p.check(dsllexer.LBRACKET) {
		p.advance()
		if !p.check(dsllexer.NUMBER) || !isIntLexeme(p.peek().Lexeme) {
			return nil, errors.At(errors.KindParse, p.peek().Position, "expected note id inside '[...]'")
		}
		idTok := p.advance()
		id, _ := strconv.ParseUint(idTok.Lexeme, 10, 32)
		noteID = uint32(id)
		if id == 0 {
			isBase = true
		}
		if !p.check(dsllexer.RBRACKET) {
			return nil, errors.At(errors.KindParse, p.peek().Position, "expected ']'")
		}
		p.advance()
	} else {
		return nil, errors.At(errors.KindParse, p.peek().Position, "expected note reference argument")
	}

	if !p.check(dsllexer.RPAREN) {
		return nil, errors.At(errors.KindParse, p.peek().Position, "expected ')'")
	}
	end := p.advance()

	return &ast.HelperCall{Pos: start.Position, EndPos: end.Position, Kind: kind, IsBase: isBase, NoteID: noteID}, nil
}

func tokenToOp(t dsllexer.TokenType) ast.BinaryOp {
	switch t {
	case dsllexer.PLUS:
		return ast.OpAdd
	case dsllexer.MINUS:
		return ast.OpSub
	case dsllexer.STAR:
		return ast.OpMul
	case dsllexer.SLASH:
		return ast.OpDiv
	default:
		return 0
	}
}

func (p *Parser) peek() dsllexer.Token { return p.tokens[p.current] }

func (p *Parser) advance() dsllexer.Token {
	tok := p.tokens[p.current]
	if !p.isAtEnd() {
		p.current++
	}
	return tok
}

func (p *Parser) check(t dsllexer.TokenType) bool { return p.peek().Type == t }

func (p *Parser) isAtEnd() bool { return p.peek().Type == dsllexer.EOF }
