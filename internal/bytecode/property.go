package bytecode

import "github.com/iancoleman/strcase"

// property aliases accepted after '.' in the DSL (§4.4) and after
// getVariable('...') in the legacy syntax (§4.5). Both the short form
// (f, t, d, tempo, bpm, ml) and the long camelCase form are accepted;
// long-form input is folded to snake_case before table lookup so a single
// table serves both spellings without hand-rolled case conversion.
var propertyAliases = map[string]Var{
	"f":               VarFrequency,
	"frequency":       VarFrequency,
	"t":               VarStartTime,
	"start_time":      VarStartTime,
	"d":               VarDuration,
	"duration":        VarDuration,
	"tempo":           VarTempo,
	"bpm":             VarBeatsPerMeasure,
	"beats_per_measure": VarBeatsPerMeasure,
	"ml":              VarMeasureLength,
	"measure_length":  VarMeasureLength,
}

// LookupProperty resolves a property identifier (either short alias or long
// camelCase/snake_case alias) to its canonical Var. The second return value
// is false when the identifier is not one of the accepted property names
// (§7 UnknownPropertyError territory — callers turn that into a structured
// error with position information).
func LookupProperty(name string) (Var, bool) {
	if v, ok := propertyAliases[name]; ok {
		return v, true
	}
	if v, ok := propertyAliases[strcase.ToSnake(name)]; ok {
		return v, true
	}
	return 0, false
}

// LongAlias renders the canonical long camelCase spelling of a property,
// e.g. for decompiling to the verbose DSL form or for JSON document keys.
func LongAlias(v Var) string {
	switch v {
	case VarFrequency:
		return "frequency"
	case VarStartTime:
		return strcase.ToLowerCamel("start_time")
	case VarDuration:
		return "duration"
	case VarTempo:
		return "tempo"
	case VarBeatsPerMeasure:
		return strcase.ToLowerCamel("beats_per_measure")
	case VarMeasureLength:
		return strcase.ToLowerCamel("measure_length")
	default:
		return v.String()
	}
}
