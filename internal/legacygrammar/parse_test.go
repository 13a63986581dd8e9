package legacygrammar

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"notecore/internal/ast"
	"notecore/internal/errors"
)

func TestParseFractionLiteral(t *testing.T) {
	expr, err := Parse("new Fraction(3, 2)")
	require.NoError(t, err)
	frac, ok := expr.(*ast.FractionLit)
	require.True(t, ok)
	assert.Equal(t, int64(3), frac.Num)
	assert.Equal(t, int64(2), frac.Den)
}

func TestParseFractionLiteralDefaultsDenominatorToOne(t *testing.T) {
	expr, err := Parse("new Fraction(5)")
	require.NoError(t, err)
	frac := expr.(*ast.FractionLit)
	assert.Equal(t, int64(1), frac.Den)
}

func TestParseBaseVariableReference(t *testing.T) {
	expr, err := Parse("module.baseNote.getVariable('frequency')")
	require.NoError(t, err)
	ref, ok := expr.(*ast.NoteRef)
	require.True(t, ok)
	assert.True(t, ref.IsBase)
}

func TestParseNoteVariableReferenceById(t *testing.T) {
	expr, err := Parse("module.getNoteById(7).getVariable('d')")
	require.NoError(t, err)
	ref := expr.(*ast.NoteRef)
	assert.False(t, ref.IsBase)
	assert.EqualValues(t, 7, ref.NoteID)
}

func TestParseUnknownPropertyRaisesUnknownPropertyError(t *testing.T) {
	_, err := Parse("module.baseNote.getVariable('bogus')")
	require.Error(t, err)
	ce, ok := err.(*errors.CompilerError)
	require.True(t, ok)
	assert.Equal(t, errors.KindUnknownProperty, ce.Kind)
}

func TestParseChainedArithmetic(t *testing.T) {
	expr, err := Parse("new Fraction(1, 2).add(new Fraction(1, 4)).mul(new Fraction(2, 1))")
	require.NoError(t, err)
	bin, ok := expr.(*ast.BinaryExpr)
	require.True(t, ok)
	assert.Equal(t, ast.OpMul, bin.Op)

	inner, ok := bin.Left.(*ast.BinaryExpr)
	require.True(t, ok)
	assert.Equal(t, ast.OpAdd, inner.Op)
}

func TestParseNeg(t *testing.T) {
	expr, err := Parse("new Fraction(3, 1).neg()")
	require.NoError(t, err)
	_, ok := expr.(*ast.UnaryExpr)
	require.True(t, ok)
}

func TestParseFindTempoOnBase(t *testing.T) {
	expr, err := Parse("module.findTempo(module.baseNote)")
	require.NoError(t, err)
	helper, ok := expr.(*ast.HelperCall)
	require.True(t, ok)
	assert.Equal(t, ast.HelperTempo, helper.Kind)
	assert.True(t, helper.IsBase)
}

func TestParseFindMeasureLengthByID(t *testing.T) {
	expr, err := Parse("module.findMeasureLength(module.getNoteById(4))")
	require.NoError(t, err)
	helper := expr.(*ast.HelperCall)
	assert.Equal(t, ast.HelperMeasure, helper.Kind)
	assert.EqualValues(t, 4, helper.NoteID)
}
