// SPDX-License-Identifier: Apache-2.0
package main

import (
	"fmt"
	"os"

	"github.com/fatih/color"

	"notecore/internal/bytecode"
	notecoreerrors "notecore/internal/errors"
	"notecore/internal/notemodule"
)

func main() {
	if len(os.Args) < 2 {
		fmt.Println("Usage: notecore-cli <file.notecore.json>")
		os.Exit(1)
	}

	path := os.Args[1]
	data, err := os.ReadFile(path)
	if err != nil {
		color.Red("failed to read file: %s", err)
		os.Exit(1)
	}

	m, err := notemodule.FromJSON(data)
	if err != nil {
		reportError(path, data, err)
		os.Exit(1)
	}

	if err := m.Evaluate(); err != nil {
		reportError(path, data, err)
		os.Exit(1)
	}

	printNote(m, 0, "base")
	for _, id := range m.NoteIDs() {
		printNote(m, id, fmt.Sprintf("note %d", id))
	}

	color.Green("✅ Successfully evaluated %s", path)
}

// printNote dumps one note's six evaluated properties, flagging corrupted
// ones (a surviving symbolic term or a numeric approximation, §4.2): it is
// not an error, but the value is not an exact rational.
func printNote(m *notemodule.Module, id uint32, label string) {
	note, ok := m.GetNote(id)
	if !ok {
		return
	}
	bold := color.New(color.Bold).SprintFunc()
	fmt.Println(bold(label))
	for _, prop := range bytecode.AllVars() {
		val, err := m.Value(id, prop)
		if err != nil {
			color.Red("  %-16s <unevaluated>", prop.String())
			continue
		}
		if m.Corrupted(id, prop) {
			color.Yellow("  %-16s %s (corrupted)", prop.String(), val.String())
		} else {
			fmt.Printf("  %-16s %s\n", prop.String(), val.String())
		}
	}
	if note.Instrument != "" {
		fmt.Printf("  %-16s %s\n", "instrument", note.Instrument)
	}
}

// reportError renders err with the structured Reporter when it carries
// source position information, falling back to a plain colored line for
// positionless runtime errors (reference, cycle, divide-by-zero, malformed
// bytecode — §7). Parse/lex/compile errors carry the offending property
// expression's own source text (attached by the compiler, see
// notecoreerrors.CompilerError.WithSource); the Reporter renders its caret
// against that text rather than the file path, falling back to the
// document's raw bytes only when an error has no attached expression source.
func reportError(path string, doc []byte, err error) {
	ce, ok := err.(*notecoreerrors.CompilerError)
	if !ok {
		color.Red("error: %s", err)
		return
	}
	source := ce.Source
	label := path
	if source == "" {
		source = string(doc)
	}
	reporter := notecoreerrors.NewReporter(label, source)
	fmt.Print(reporter.Format(ce))
}
