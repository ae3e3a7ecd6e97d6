// Package formula is the public entry point of the formula engine. An
// Engine parses text in one of the notations, type-checks it and computes
// its well-definedness condition.
package formula

import (
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/funvibe/formulas/internal/ast"
	"github.com/funvibe/formulas/internal/config"
	"github.com/funvibe/formulas/internal/diagnostics"
	"github.com/funvibe/formulas/internal/extconfig"
	"github.com/funvibe/formulas/internal/lexer"
	"github.com/funvibe/formulas/internal/parser"
	"github.com/funvibe/formulas/internal/pipeline"
	"github.com/funvibe/formulas/internal/typecheck"
	ts "github.com/funvibe/formulas/internal/typesystem"
	"github.com/funvibe/formulas/internal/wd"
)

type (
	Formula     = ast.Formula
	Expression  = ast.Expression
	Predicate   = ast.Predicate
	Assignment  = ast.Assignment
	Factory     = ast.Factory
	Type        = ts.Type
	Environment = ts.Environment
	Problem     = diagnostics.Problem
	Version     = config.LanguageVersion
	Mode        = pipeline.Mode
)

const (
	V1 = config.V1
	V2 = config.V2

	ModeExpression       = pipeline.ModeExpression
	ModePredicate        = pipeline.ModePredicate
	ModeAssignment       = pipeline.ModeAssignment
	ModeType             = pipeline.ModeType
	ModePredicatePattern = pipeline.ModePredicatePattern
)

// NewEnvironment returns an empty type environment.
func NewEnvironment() *Environment { return ts.NewEnvironment() }

// Result is what an engine produced for one text or formula.
type Result struct {
	Source string
	Mode   Mode
	// Formula is the parsed formula, typed when type-checking succeeded.
	Formula Formula
	// Type is set instead of Formula in ModeType.
	Type     Type
	Inferred *Environment
	WD       Predicate
	Problems []*Problem
}

func (r *Result) HasErrors() bool { return diagnostics.HasErrors(r.Problems) }

// Err returns the errors of the result as one error, or nil.
func (r *Result) Err() error {
	var errs []error
	for _, p := range r.Problems {
		if p.IsError() {
			errs = append(errs, p)
		}
	}
	return errors.Join(errs...)
}

// Engine parses and checks formulas with one factory and notation.
// An Engine is safe for concurrent use.
type Engine struct {
	factory *Factory
	version Version
	logger  *zap.Logger
}

type Option func(*Engine)

func WithFactory(ff *Factory) Option {
	return func(e *Engine) { e.factory = ff }
}

func WithVersion(v Version) Option {
	return func(e *Engine) { e.version = v }
}

func WithLogger(l *zap.Logger) Option {
	return func(e *Engine) { e.logger = l }
}

// NewEngine returns an engine using the default factory, the current
// notation and no logging unless options say otherwise.
func NewEngine(opts ...Option) *Engine {
	e := &Engine{
		factory: ast.Default(),
		version: config.DefaultVersion,
		logger:  zap.NewNop(),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// LoadEngine returns an engine whose factory holds the datatypes of the
// definition file at path. The notation of the file is used unless an
// option sets another one.
func LoadEngine(path string, opts ...Option) (*Engine, error) {
	cfg, err := extconfig.LoadConfig(path)
	if err != nil {
		return nil, err
	}
	ff, err := cfg.Factory()
	if err != nil {
		return nil, err
	}
	base := []Option{WithFactory(ff), WithVersion(cfg.LanguageVersion())}
	e := NewEngine(append(base, opts...)...)
	e.logger.Debug("Loaded datatype definitions",
		zap.String("path", path),
		zap.Int("datatypes", len(cfg.Datatypes)),
		zap.Int("extensions", len(ff.Extensions())))
	return e, nil
}

func (e *Engine) Factory() *Factory { return e.factory }
func (e *Engine) Version() Version  { return e.version }

func (e *Engine) ParseExpression(text string) *Result {
	return e.run(text, ModeExpression, nil, false)
}

func (e *Engine) ParsePredicate(text string) *Result {
	return e.run(text, ModePredicate, nil, false)
}

// ParsePredicatePattern parses a predicate that may contain predicate
// variables such as $P.
func (e *Engine) ParsePredicatePattern(text string) *Result {
	return e.run(text, ModePredicatePattern, nil, false)
}

func (e *Engine) ParseAssignment(text string) *Result {
	return e.run(text, ModeAssignment, nil, false)
}

// ParseType parses a type expression such as ℙ(S×ℤ) into a type.
func (e *Engine) ParseType(text string) *Result {
	return e.run(text, ModeType, nil, false)
}

// Check parses text in the given mode, type-checks it in env and, when it
// is well typed, computes its WD condition. env is not modified.
func (e *Engine) Check(text string, mode Mode, env *Environment) *Result {
	return e.run(text, mode, env, true)
}

// TypeCheck type-checks a formula built by the engine's factory.
func (e *Engine) TypeCheck(f Formula, env *Environment) *Result {
	res := typecheck.Check(f, env)
	out := &Result{Source: ast.Print(f), Formula: f, Inferred: res.Inferred, Problems: res.Problems}
	if res.Formula != nil {
		out.Formula = res.Formula
	}
	e.logOutcome("typecheck", out)
	return out
}

// WDPredicate returns the WD condition of a type-checked formula.
func (e *Engine) WDPredicate(f Formula) (Predicate, error) {
	if f == nil || !f.IsTypeChecked() {
		return nil, errors.New("WD condition of a formula that is not type-checked")
	}
	return wd.Predicate(f), nil
}

// ParseEnvironment reads declarations of the form name=type, such as
// x=ℤ or r=ℙ(S×BOOL).
func (e *Engine) ParseEnvironment(decls []string) (*Environment, error) {
	env := ts.NewEnvironment()
	for _, decl := range decls {
		name, text, ok := strings.Cut(decl, "=")
		name = strings.TrimSpace(name)
		if !ok || name == "" {
			return nil, fmt.Errorf("declaration %q: want name=type", decl)
		}
		if !e.factory.IsValidIdentifierName(name) {
			return nil, fmt.Errorf("declaration %q: %s is not an identifier", decl, name)
		}
		res := parser.ParseType(e.factory, strings.TrimSpace(text), e.version, decl)
		if res.HasErrors() {
			return nil, fmt.Errorf("declaration %q: %s", decl, diagnostics.Join(res.Problems))
		}
		env.Add(name, res.Type)
	}
	return env, nil
}

type stage struct {
	name string
	proc pipeline.Processor
}

func (e *Engine) run(text string, mode Mode, env *Environment, check bool) *Result {
	ctx := pipeline.NewContext(text, mode)
	ctx.Factory = e.factory
	ctx.Version = e.version
	ctx.Env = env

	stages := []stage{
		{"lexer", &lexer.LexerProcessor{}},
		{"parser", &parser.ParserProcessor{}},
	}
	if check && mode != ModeType && mode != ModePredicatePattern {
		stages = append(stages,
			stage{"typecheck", &typecheck.TypeCheckProcessor{}},
			stage{"wd", &wd.WDProcessor{}})
	}
	procs := make([]pipeline.Processor, len(stages))
	for i, s := range stages {
		procs[i] = e.logged(s)
	}
	ctx = pipeline.New(procs...).Run(ctx)

	res := &Result{
		Source:   text,
		Mode:     mode,
		Formula:  ctx.Root,
		Type:     ctx.Type,
		Inferred: ctx.Inferred,
		WD:       ctx.WD,
		Problems: ctx.Problems,
	}
	e.logOutcome(mode.String(), res)
	return res
}

// logged wraps a stage with a debug record of the problems it added.
func (e *Engine) logged(s stage) pipeline.Processor {
	return pipeline.ProcessorFunc(func(ctx *pipeline.Context) *pipeline.Context {
		before := len(ctx.Problems)
		ctx = s.proc.Process(ctx)
		e.logger.Debug("Stage done",
			zap.String("stage", s.name),
			zap.String("source", ctx.Source),
			zap.Int("problems", len(ctx.Problems)-before))
		return ctx
	})
}

func (e *Engine) logOutcome(what string, res *Result) {
	if !res.HasErrors() {
		return
	}
	e.logger.Error("Formula rejected",
		zap.String("mode", what),
		zap.String("source", res.Source),
		zap.Error(res.Err()))
}

var defaultEngine = NewEngine()

// ParseExpression parses text with the default engine.
func ParseExpression(text string) *Result { return defaultEngine.ParseExpression(text) }

// ParsePredicate parses text with the default engine.
func ParsePredicate(text string) *Result { return defaultEngine.ParsePredicate(text) }

// ParseAssignment parses text with the default engine.
func ParseAssignment(text string) *Result { return defaultEngine.ParseAssignment(text) }

// ParseType parses text with the default engine.
func ParseType(text string) *Result { return defaultEngine.ParseType(text) }

// TypeCheck type-checks f with the default engine.
func TypeCheck(f Formula, env *Environment) *Result { return defaultEngine.TypeCheck(f, env) }

// WDPredicate computes the WD condition of f with the default engine.
func WDPredicate(f Formula) (Predicate, error) { return defaultEngine.WDPredicate(f) }

// Print returns the text of f with the fewest parentheses that parse back
// to f.
func Print(f Formula) string { return ast.Print(f) }

// PrintParenthesized returns the text of f with every compound
// sub-formula parenthesized.
func PrintParenthesized(f Formula) string { return ast.FullyParenthesized(f) }

// PrintWithTypes returns the text of f with the types of generic atoms
// and bound identifier declarations.
func PrintWithTypes(f Formula) string { return ast.StringWithTypes(f) }
