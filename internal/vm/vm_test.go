package vm

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"notecore/internal/bytecode"
	"notecore/internal/compiler"
	"notecore/internal/errors"
	"notecore/internal/value"
)

func TestRunArithmeticNoResolver(t *testing.T) {
	prog, err := compiler.Compile("(1/2) + (1/4)")
	require.NoError(t, err)

	result, corrupted, err := Run(prog, nil)
	require.NoError(t, err)
	assert.False(t, corrupted)
	assert.True(t, result.IsRational())
	assert.Equal(t, "3/4", result.Rat.String())
}

func TestRunResolvesNoteReference(t *testing.T) {
	prog, err := compiler.Compile("[2].f * 2")
	require.NoError(t, err)

	resolve := func(noteID uint32, v bytecode.Var) (value.Value, error) {
		assert.EqualValues(t, 2, noteID)
		assert.Equal(t, bytecode.VarFrequency, v)
		return value.FromInt(220), nil
	}

	result, corrupted, err := Run(prog, resolve)
	require.NoError(t, err)
	assert.False(t, corrupted)
	assert.Equal(t, "440", result.Rat.String())
}

func TestRunResolvesBaseReference(t *testing.T) {
	prog, err := compiler.Compile("base.f")
	require.NoError(t, err)

	resolve := func(noteID uint32, v bytecode.Var) (value.Value, error) {
		assert.EqualValues(t, 0, noteID)
		return value.FromInt(440), nil
	}

	result, _, err := Run(prog, resolve)
	require.NoError(t, err)
	assert.Equal(t, "440", result.Rat.String())
}

func TestRunMissingResolverIsMalformedBytecode(t *testing.T) {
	prog, err := compiler.Compile("base.f")
	require.NoError(t, err)

	_, _, err = Run(prog, nil)
	require.Error(t, err)
	ce, ok := err.(*errors.CompilerError)
	require.True(t, ok)
	assert.Equal(t, errors.KindMalformedBytecode, ce.Kind)
}

func TestRunDivideByZero(t *testing.T) {
	prog, err := compiler.Compile("(1/1) / (0/1)")
	require.NoError(t, err)

	_, _, err = Run(prog, nil)
	require.Error(t, err)
}

func TestRunPropagatesCorruptionAcrossMixedBaseSymbolic(t *testing.T) {
	prog, err := compiler.Compile("2 ^ (1/2) * 3 ^ (1/2)")
	require.NoError(t, err)

	_, corrupted, err := Run(prog, nil)
	require.NoError(t, err)
	assert.True(t, corrupted)
}
