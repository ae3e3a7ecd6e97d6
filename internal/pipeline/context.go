package pipeline

import (
	"github.com/funvibe/formulas/internal/ast"
	"github.com/funvibe/formulas/internal/config"
	"github.com/funvibe/formulas/internal/diagnostics"
	"github.com/funvibe/formulas/internal/token"
	ts "github.com/funvibe/formulas/internal/typesystem"
)

// Mode selects what the text of a context is parsed as.
type Mode int

const (
	ModeExpression Mode = iota
	ModePredicate
	ModeAssignment
	ModeType
	// ModePredicatePattern is ModePredicate with predicate variables ($P).
	ModePredicatePattern
)

func (m Mode) String() string {
	switch m {
	case ModeExpression:
		return "expression"
	case ModePredicate:
		return "predicate"
	case ModeAssignment:
		return "assignment"
	case ModeType:
		return "type"
	case ModePredicatePattern:
		return "pattern"
	}
	return "unknown"
}

// ParseMode reads the name printed by Mode.String.
func ParseMode(s string) (Mode, bool) {
	for m := ModeExpression; m <= ModePredicatePattern; m++ {
		if m.String() == s {
			return m, true
		}
	}
	return 0, false
}

// Context carries one formula through the stages.
type Context struct {
	Source  string
	Origin  any
	Version config.LanguageVersion
	Factory *ast.Factory
	Mode    Mode
	// Env types the free identifiers for the type checker; nil means empty.
	Env *ts.Environment

	Tokens []token.Token
	// Root is the parsed formula, replaced by its typed version once
	// checked. Type is set instead in ModeType.
	Root ast.Formula
	Type ts.Type
	// Inferred holds the identifiers the type checker had to type.
	Inferred *ts.Environment
	WD       ast.Predicate

	Problems []*diagnostics.Problem
}

// NewContext returns a context for source with the default version and
// factory.
func NewContext(source string, mode Mode) *Context {
	return &Context{
		Source:  source,
		Version: config.DefaultVersion,
		Factory: ast.Default(),
		Mode:    mode,
	}
}

// Failed reports whether some stage reported an error.
func (c *Context) Failed() bool { return diagnostics.HasErrors(c.Problems) }

func (c *Context) AddProblems(problems ...*diagnostics.Problem) {
	c.Problems = append(c.Problems, problems...)
}

// Processor is one stage of a pipeline.
type Processor interface {
	Process(ctx *Context) *Context
}

// ProcessorFunc adapts a function to Processor.
type ProcessorFunc func(ctx *Context) *Context

func (f ProcessorFunc) Process(ctx *Context) *Context { return f(ctx) }
