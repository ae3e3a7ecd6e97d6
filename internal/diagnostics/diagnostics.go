package diagnostics

import (
	"fmt"
	"strings"

	"github.com/funvibe/formulas/internal/token"
)

type Severity int

const (
	Warning Severity = iota
	Error
)

func (s Severity) String() string {
	if s == Warning {
		return "warning"
	}
	return "error"
}

// ProblemKind identifies the kind of a problem. The message template of a
// kind is formatted with the problem arguments.
type ProblemKind string

const (
	LexerError         ProblemKind = "LexerError"
	NotNormalizedInput ProblemKind = "NotNormalizedInput"

	SyntaxError                  ProblemKind = "SyntaxError"
	UnexpectedSymbol             ProblemKind = "UnexpectedSymbol"
	UnmatchedTokens              ProblemKind = "UnmatchedTokens"
	IncompatibleOperators        ProblemKind = "IncompatibleOperators"
	PredicateVariableNotAllowed  ProblemKind = "PredicateVariableNotAllowed"
	DuplicateIdentifierInPattern ProblemKind = "DuplicateIdentifierInPattern"
	InvalidTypeExpression        ProblemKind = "InvalidTypeExpression"
	InvalidGenericType           ProblemKind = "InvalidGenericType"
	InvalidAssignmentToImage     ProblemKind = "InvalidAssignmentToImage"
	UnknownOperator              ProblemKind = "UnknownOperator"

	FreeIdentifierHasBoundOccurrences ProblemKind = "FreeIdentifierHasBoundOccurrences"
	BoundIdentifierIndexOutOfBounds   ProblemKind = "BoundIdentifierIndexOutOfBounds"
	TypesDoNotMatch                   ProblemKind = "TypesDoNotMatch"
	Circularity                       ProblemKind = "Circularity"
	TypeUnknown                       ProblemKind = "TypeUnknown"
	TypeCheckFailure                  ProblemKind = "TypeCheckFailure"
	MinusAppliedToSet                 ProblemKind = "MinusAppliedToSet"
	MulAppliedToSet                   ProblemKind = "MulAppliedToSet"
)

var messages = map[ProblemKind]string{
	LexerError:         "unrecognised character %q",
	NotNormalizedInput: "input is not in Unicode normal form C",

	SyntaxError:                  "syntax error: %s",
	UnexpectedSymbol:             "unexpected symbol %q, expected %s",
	UnmatchedTokens:              "unmatched %q",
	IncompatibleOperators:        "operators %q and %q cannot be mixed without parentheses",
	PredicateVariableNotAllowed:  "predicate variable %s is only allowed in patterns",
	DuplicateIdentifierInPattern: "identifier %s occurs more than once in pattern",
	InvalidTypeExpression:        "%s is not a valid type expression",
	InvalidGenericType:           "invalid type %s for generic operator %s",
	InvalidAssignmentToImage:     "left-hand side of assignment must be identifiers",
	UnknownOperator:              "operator %s is not part of this language",

	FreeIdentifierHasBoundOccurrences: "identifier %s occurs both free and bound",
	BoundIdentifierIndexOutOfBounds:   "bound identifier index %d has no binder",
	TypesDoNotMatch:                   "types %s and %s do not match",
	Circularity:                       "circular type: %s occurs in %s",
	TypeUnknown:                       "type of %s cannot be inferred",
	TypeCheckFailure:                  "type check failed: %s",
	MinusAppliedToSet:                 "arithmetic subtraction applied to sets, use ∖",
	MulAppliedToSet:                   "arithmetic multiplication applied to sets, use ×",
}

// Problem is a diagnostic attached to a span of the parsed text.
type Problem struct {
	Loc      *token.SourceLocation
	Kind     ProblemKind
	Severity Severity
	Args     []any
}

func NewError(kind ProblemKind, loc *token.SourceLocation, args ...any) *Problem {
	return &Problem{Loc: loc, Kind: kind, Severity: Error, Args: args}
}

func NewWarning(kind ProblemKind, loc *token.SourceLocation, args ...any) *Problem {
	return &Problem{Loc: loc, Kind: kind, Severity: Warning, Args: args}
}

func (p *Problem) IsError() bool { return p.Severity == Error }

// Message returns the problem text without location.
func (p *Problem) Message() string {
	tpl, ok := messages[p.Kind]
	if !ok {
		return string(p.Kind)
	}
	if strings.Count(tpl, "%") != len(p.Args) {
		// Arguments do not fit the template: keep the information anyway.
		return fmt.Sprintf("%s %v", p.Kind, p.Args)
	}
	return fmt.Sprintf(tpl, p.Args...)
}

func (p *Problem) Error() string {
	return fmt.Sprintf("%s %s [%s]: %s", p.Loc, p.Severity, p.Kind, p.Message())
}

// HasErrors reports whether at least one problem has Error severity.
func HasErrors(problems []*Problem) bool {
	for _, p := range problems {
		if p.IsError() {
			return true
		}
	}
	return false
}

// Join renders problems one per line.
func Join(problems []*Problem) string {
	var sb strings.Builder
	for i, p := range problems {
		if i > 0 {
			sb.WriteByte('\n')
		}
		sb.WriteString(p.Error())
	}
	return sb.String()
}
