package decompiler

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"notecore/internal/bytecode"
	"notecore/internal/compiler"
)

func TestDecompileRoundTripsArithmeticInDSL(t *testing.T) {
	prog, err := compiler.Compile("[2].f * (3/2)")
	require.NoError(t, err)

	out, err := Decompile(prog, bytecode.DialectDSL)
	require.NoError(t, err)
	assert.Equal(t, "[2].f * (3/2)", out)
}

func TestDecompileRendersLegacyFromDSLSource(t *testing.T) {
	prog, err := compiler.Compile("base.f + (1/4)")
	require.NoError(t, err)

	out, err := Decompile(prog, bytecode.DialectLegacy)
	require.NoError(t, err)
	assert.Equal(t, "module.baseNote.getVariable('f').add(new Fraction(1, 4))", out)
}

func TestDecompileUsesOriginalDialectWhenUnknownRequested(t *testing.T) {
	prog, err := compiler.CompileDialect("module.baseNote.getVariable('f')", bytecode.DialectLegacy)
	require.NoError(t, err)

	out, err := Decompile(prog, bytecode.DialectUnknown)
	require.NoError(t, err)
	assert.Equal(t, "module.baseNote.getVariable('f')", out)
}

func TestDecompileRecognizesBeatDesugaring(t *testing.T) {
	prog, err := compiler.Compile("beat([2])")
	require.NoError(t, err)

	out, err := Decompile(prog, bytecode.DialectDSL)
	require.NoError(t, err)
	assert.Equal(t, "beat([2])", out)
}
