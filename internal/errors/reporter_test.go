package errors

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"notecore/internal/ast"
)

func TestReporterFormatsCaretUnderOffendingColumn(t *testing.T) {
	source := "[1].f + [2].zz"
	reporter := NewReporter("expr.txt", source)

	err := At(KindUnknownProperty, ast.Position{Line: 1, Column: 13}, "unknown property %q", "zz")
	formatted := reporter.Format(err)

	assert.Contains(t, formatted, string(KindUnknownProperty))
	assert.Contains(t, formatted, "expr.txt:1:13")
	assert.Contains(t, formatted, source)
}

func TestPositionlessErrorOmitsLocationGutter(t *testing.T) {
	reporter := NewReporter("expr.txt", "1 / 0")
	err := New(KindDivideByZero, "division by zero")
	formatted := reporter.Format(err)

	assert.Contains(t, formatted, string(KindDivideByZero))
	assert.NotContains(t, formatted, "-->")
}
