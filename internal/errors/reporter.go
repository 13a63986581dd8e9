package errors

import (
	"fmt"
	"strings"

	"github.com/fatih/color"
)

// Reporter formats CompilerErrors against a known source string with
// Rust-style gutters and carets, the same rendering technique
// kanso/internal/errors/reporter.go applies to its own CompilerError —
// trimmed down here since this error shape has no suggestions/notes/help
// text (a dependency-graph evaluator has nothing analogous to "did you
// mean" symbol suggestions to offer).
type Reporter struct {
	filename string
	lines    []string
}

// NewReporter creates a reporter for a named source string (the source text
// of one property expression, or a whole module document at load time).
func NewReporter(filename, source string) *Reporter {
	return &Reporter{filename: filename, lines: strings.Split(source, "\n")}
}

// Format renders one error as a colored, multi-line report.
func (r *Reporter) Format(err *CompilerError) string {
	var out strings.Builder

	levelColor := color.New(color.FgRed, color.Bold).SprintFunc()
	dim := color.New(color.Faint).SprintFunc()

	out.WriteString(fmt.Sprintf("%s[%s]: %s\n", levelColor("error"), err.Kind, err.Message))

	if err.Length == 0 {
		out.WriteString("\n")
		return out.String()
	}

	width := lineNumberWidth(err.Position.Line)
	indent := strings.Repeat(" ", width)

	out.WriteString(fmt.Sprintf("%s %s %s:%d:%d\n", indent, dim("-->"), r.filename, err.Position.Line, err.Position.Column))
	out.WriteString(fmt.Sprintf("%s %s\n", indent, dim("│")))

	if err.Position.Line >= 1 && err.Position.Line <= len(r.lines) {
		out.WriteString(fmt.Sprintf("%s %s %s\n",
			dim(fmt.Sprintf("%*d", width, err.Position.Line)), dim("│"), r.lines[err.Position.Line-1]))

		marker := strings.Repeat(" ", max0(err.Position.Column-1)) + levelColor(strings.Repeat("^", max1(err.Length)))
		out.WriteString(fmt.Sprintf("%s %s %s\n", indent, dim("│"), marker))
	}

	out.WriteString("\n")
	return out.String()
}

func lineNumberWidth(line int) int {
	w := len(fmt.Sprintf("%d", line))
	if w < 3 {
		return 3
	}
	return w
}

func max0(n int) int {
	if n < 0 {
		return 0
	}
	return n
}

func max1(n int) int {
	if n < 1 {
		return 1
	}
	return n
}
