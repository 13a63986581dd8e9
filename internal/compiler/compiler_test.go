package compiler

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"notecore/internal/bytecode"
	"notecore/internal/errors"
)

func TestCompileNumberLiteral(t *testing.T) {
	prog, err := Compile("0.125")
	require.NoError(t, err)
	require.Len(t, prog.Code, 1)
	assert.Equal(t, bytecode.OpLoadConst, prog.Code[0].Op)
	assert.Equal(t, "1", prog.Code[0].Num.String())
	assert.Equal(t, "8", prog.Code[0].Den.String())
}

func TestCompileFractionLiteral(t *testing.T) {
	prog, err := Compile("(3/2)")
	require.NoError(t, err)
	require.Len(t, prog.Code, 1)
	assert.Equal(t, bytecode.OpLoadConst, prog.Code[0].Op)
	assert.Equal(t, "3", prog.Code[0].Num.String())
	assert.Equal(t, "2", prog.Code[0].Den.String())
}

func TestCompileNoteRefRecordsDependency(t *testing.T) {
	prog, err := Compile("[3].f * 2")
	require.NoError(t, err)
	_, tracked := prog.Dependencies[3]
	assert.True(t, tracked)
	assert.False(t, prog.ReferencesBase)
}

func TestCompileBaseRefSetsReferencesBase(t *testing.T) {
	prog, err := Compile("base.f + 1")
	require.NoError(t, err)
	assert.True(t, prog.ReferencesBase)
	assert.Empty(t, prog.Dependencies)
}

func TestCompileBeatDesugarsToSixtyOverTempo(t *testing.T) {
	prog, err := Compile("beat(base)")
	require.NoError(t, err)

	var ops []bytecode.Op
	for _, instr := range prog.Code {
		ops = append(ops, instr.Op)
	}
	assert.Equal(t, []bytecode.Op{bytecode.OpLoadConst, bytecode.OpLoadBase, bytecode.OpDiv}, ops)
	assert.True(t, prog.ReferencesBase)
}

func TestCompileLargeConstantUsesLoadConstBig(t *testing.T) {
	prog, err := Compile("99999999999999999999")
	require.NoError(t, err)
	require.Len(t, prog.Code, 1)
	assert.Equal(t, bytecode.OpLoadConstBig, prog.Code[0].Op)
}

func TestCompileUnaryNegation(t *testing.T) {
	prog, err := Compile("-(1/2)")
	require.NoError(t, err)
	require.Len(t, prog.Code, 2)
	assert.Equal(t, bytecode.OpLoadConst, prog.Code[0].Op)
	assert.Equal(t, bytecode.OpNeg, prog.Code[1].Op)
}

func TestCompileErrorCarriesOffendingSource(t *testing.T) {
	src := "[1].f + [2].zz"
	_, err := Compile(src)
	require.Error(t, err)

	ce, ok := err.(*errors.CompilerError)
	require.True(t, ok)
	assert.Equal(t, src, ce.Source)
}

func TestCompileLegacyDialectExplicit(t *testing.T) {
	prog, err := CompileDialect("module.baseNote.getVariable('f')", bytecode.DialectLegacy)
	require.NoError(t, err)
	require.Len(t, prog.Code, 1)
	assert.Equal(t, bytecode.OpLoadBase, prog.Code[0].Op)
	assert.Equal(t, bytecode.DialectLegacy, prog.Dialect)
}
