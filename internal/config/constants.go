package config

// LanguageVersion selects the keyword table used by the lexer.
// Versions never change the shape of the trees that are built.
type LanguageVersion int

const (
	// V1 is the historical notation: "partition" is an ordinary identifier
	// and prj1, prj2, id are unary operators applied to a relation.
	V1 LanguageVersion = 1
	// V2 is the current notation: partition is a predicate keyword and
	// prj1, prj2, id are generic atomic expressions.
	V2 LanguageVersion = 2
)

const DefaultVersion = V2

func (v LanguageVersion) String() string {
	switch v {
	case V1:
		return "V1"
	case V2:
		return "V2"
	}
	return "V?"
}

// IsTestMode indicates if the program is running in test mode.
// Inference variables are then printed with a stable placeholder name.
var IsTestMode = false

// Extension files recognised by the command-line front-end.
const (
	ExtensionFileName    = "formulas.yaml"
	ExtensionFileAltName = "formulas.yml"
)

// FirstExtensionTag is the first tag handed out to extensions by a factory.
const FirstExtensionTag = 2001

// Prefix used for fresh inference type variables.
const TypeVarPrefix = "t"

// Default base name for bound identifiers that have to be invented
// (for instance when generating WD witnesses).
const (
	DefaultBoundName = "x"
	WitnessBoundName = "b"
)
