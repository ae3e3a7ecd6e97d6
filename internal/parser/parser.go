package parser

import (
	"github.com/funvibe/formulas/internal/ast"
	"github.com/funvibe/formulas/internal/config"
	"github.com/funvibe/formulas/internal/diagnostics"
	"github.com/funvibe/formulas/internal/lexer"
	"github.com/funvibe/formulas/internal/pipeline"
	"github.com/funvibe/formulas/internal/token"
	ts "github.com/funvibe/formulas/internal/typesystem"
)

// MaxRecursionDepth bounds the nesting of parsed formulas.
const MaxRecursionDepth = 1000

// Result is the outcome of a parse. Formula (or Type in ModeType) is nil
// whenever Problems holds an error.
type Result struct {
	Formula  ast.Formula
	Type     ts.Type
	Problems []*diagnostics.Problem
}

// HasErrors reports whether the parse failed.
func (r *Result) HasErrors() bool { return diagnostics.HasErrors(r.Problems) }

func (r *Result) Expression() ast.Expression {
	e, _ := r.Formula.(ast.Expression)
	return e
}

func (r *Result) Predicate() ast.Predicate {
	p, _ := r.Formula.(ast.Predicate)
	return p
}

func (r *Result) Assignment() ast.Assignment {
	a, _ := r.Formula.(ast.Assignment)
	return a
}

// bailout unwinds the parser on the first error.
type bailout struct{}

type Parser struct {
	ff       *ast.Factory
	g        *ast.Grammar
	version  config.LanguageVersion
	tokens   []token.Token
	pos      int
	scope    []string // bound names, outermost first
	patterns bool
	depth    int

	// furthest is the error that got deepest into the input across
	// backtracked attempts, found at token furthestPos.
	furthest    *diagnostics.Problem
	furthestPos int
	// notPredicate records the '(' positions already known not to open a
	// parenthesised predicate.
	notPredicate map[int]bool
}

// New prepares a parser over an already scanned token slice ending with EOF.
func New(ff *ast.Factory, tokens []token.Token, version config.LanguageVersion) *Parser {
	if version == 0 {
		version = config.DefaultVersion
	}
	return &Parser{
		ff:           ff,
		g:            ff.Grammar(),
		version:      version,
		tokens:       tokens,
		notPredicate: map[int]bool{},
	}
}

// Scan runs the lexer configured with the images of ff.
func Scan(ff *ast.Factory, text string, version config.LanguageVersion, origin any) ([]token.Token, []*diagnostics.Problem) {
	g := ff.Grammar()
	return lexer.Scan(text, lexer.Options{Version: version, Words: g.Words(), Symbols: g.Symbols(), Origin: origin})
}

func ParseExpression(ff *ast.Factory, text string, version config.LanguageVersion, origin any) *Result {
	return parseText(ff, text, version, origin, pipeline.ModeExpression)
}

func ParsePredicate(ff *ast.Factory, text string, version config.LanguageVersion, origin any) *Result {
	return parseText(ff, text, version, origin, pipeline.ModePredicate)
}

// ParsePredicatePattern parses a predicate that may contain predicate
// variables ($P).
func ParsePredicatePattern(ff *ast.Factory, text string, version config.LanguageVersion, origin any) *Result {
	return parseText(ff, text, version, origin, pipeline.ModePredicatePattern)
}

func ParseAssignment(ff *ast.Factory, text string, version config.LanguageVersion, origin any) *Result {
	return parseText(ff, text, version, origin, pipeline.ModeAssignment)
}

// ParseType parses a type expression and returns the type it denotes.
func ParseType(ff *ast.Factory, text string, version config.LanguageVersion, origin any) *Result {
	return parseText(ff, text, version, origin, pipeline.ModeType)
}

func parseText(ff *ast.Factory, text string, version config.LanguageVersion, origin any, mode pipeline.Mode) *Result {
	tokens, warnings := Scan(ff, text, version, origin)
	res := New(ff, tokens, version).Parse(mode)
	res.Problems = append(warnings, res.Problems...)
	return res
}

// Parse parses the whole token slice in the given mode.
func (p *Parser) Parse(mode pipeline.Mode) *Result {
	p.patterns = mode == pipeline.ModePredicatePattern
	res := &Result{}
	ok := p.try(func() {
		switch mode {
		case pipeline.ModeExpression:
			res.Formula = p.parseExpression(nil)
		case pipeline.ModePredicate, pipeline.ModePredicatePattern:
			res.Formula = p.parsePredicate(nil)
		case pipeline.ModeAssignment:
			res.Formula = p.parseAssignment()
		case pipeline.ModeType:
			start := p.pos
			e := p.parseExpression(nil)
			t, err := ast.ToType(e)
			if err != nil {
				p.fail(diagnostics.InvalidTypeExpression, p.span(start), ast.Print(e))
			}
			res.Type = t
		}
		p.expect(token.EOF, "end of formula")
	})
	if !ok {
		res.Formula = nil
		res.Type = nil
		res.Problems = append(res.Problems, p.furthest)
	}
	return res
}

// try runs fn and reports whether it completed without a parse error.
// The parser position is left where the failure happened.
func (p *Parser) try(fn func()) (ok bool) {
	defer func() {
		if r := recover(); r != nil {
			if _, isBailout := r.(bailout); !isBailout {
				panic(r)
			}
			ok = false
		}
	}()
	fn()
	return true
}

// attempt runs fn and rewinds the parser when it fails.
func (p *Parser) attempt(fn func()) bool {
	pos, scope := p.pos, len(p.scope)
	if p.try(fn) {
		return true
	}
	p.pos = pos
	p.scope = p.scope[:scope]
	return false
}

func (p *Parser) fail(kind diagnostics.ProblemKind, loc *token.SourceLocation, args ...any) {
	problem := diagnostics.NewError(kind, loc, args...)
	if p.furthest == nil || p.pos >= p.furthestPos {
		p.furthest, p.furthestPos = problem, p.pos
	}
	panic(bailout{})
}

func (p *Parser) cur() token.Token { return p.tokens[p.pos] }

func (p *Parser) peek(n int) token.Token {
	if p.pos+n >= len(p.tokens) {
		return p.tokens[len(p.tokens)-1]
	}
	return p.tokens[p.pos+n]
}

func (p *Parser) next() token.Token {
	tok := p.tokens[p.pos]
	if tok.Type != token.EOF {
		p.pos++
	}
	return tok
}

func (p *Parser) curIs(t token.TokenType) bool { return p.cur().Type == t }

func (p *Parser) curIsSymbol(img string) bool {
	tok := p.cur()
	return tok.Type == token.SYMBOL && tok.Image() == img
}

func (p *Parser) expect(t token.TokenType, what string) token.Token {
	if !p.curIs(t) {
		p.unexpected(what)
	}
	return p.next()
}

// expectClosing consumes the token closing the one at open.
func (p *Parser) expectClosing(t token.TokenType, open token.Token) token.Token {
	if !p.curIs(t) {
		if p.curIs(token.EOF) {
			p.fail(diagnostics.UnmatchedTokens, locOf(open), open.Image())
		}
		p.unexpected(string(t))
	}
	return p.next()
}

func (p *Parser) unexpected(expected string) {
	tok := p.cur()
	found := tok.Image()
	if tok.Type == token.EOF {
		found = "end of formula"
	}
	p.fail(diagnostics.UnexpectedSymbol, locOf(tok), found, expected)
}

func (p *Parser) enter() {
	p.depth++
	if p.depth > MaxRecursionDepth {
		p.fail(diagnostics.SyntaxError, locOf(p.cur()), "formula too deeply nested")
	}
}

func (p *Parser) leave() { p.depth-- }

func locOf(tok token.Token) *token.SourceLocation {
	loc := tok.Loc
	return &loc
}

// span covers the tokens from start to the last consumed one.
func (p *Parser) span(start int) *token.SourceLocation {
	end := p.pos - 1
	if end < start {
		end = start
	}
	first, last := p.tokens[start].Loc, p.tokens[end].Loc
	return token.NewSourceLocation(first.Start, last.End, first.Origin)
}

// lookup returns the De Bruijn index of a bound name.
func (p *Parser) lookup(name string) (int, bool) {
	for i := len(p.scope) - 1; i >= 0; i-- {
		if p.scope[i] == name {
			return len(p.scope) - 1 - i, true
		}
	}
	return 0, false
}

func (p *Parser) push(names ...string) { p.scope = append(p.scope, names...) }

func (p *Parser) pop(n int) { p.scope = p.scope[:len(p.scope)-n] }

// operand builds one operand of an infix chain.
type operand func() ast.Formula

// infixAt returns the infix operator at the current token, or nil.
type infixAt func() *ast.Operator

// build makes the node of op over the collected operands.
type build func(op *ast.Operator, items []ast.Formula, loc *token.SourceLocation) ast.Formula

// chain parses operands joined by infix operators. parent is the operator
// whose right operand is being parsed, nil at the top of an expression or
// predicate. Grouping follows the operator table: the chain returns to the
// parent as soon as the parent binds tighter, and mixing incompatible
// operators is an error.
func (p *Parser) chain(parent *ast.Operator, next operand, infix infixAt, mk build) ast.Formula {
	defer p.leave()
	p.enter()
	start := p.pos
	left := next()
	for {
		op := infix()
		if op == nil {
			return left
		}
		if parent != nil {
			switch p.g.Relation(parent, op) {
			case ast.GroupLeft, ast.GroupFlatten:
				return left
			case ast.GroupIncompatible:
				p.fail(diagnostics.IncompatibleOperators, locOf(p.cur()), parent.Image, op.Image)
			}
		}
		items := []ast.Formula{left}
		for {
			p.next()
			items = append(items, p.chain(op, next, infix, mk))
			if op.Assoc != ast.AssocFlat || infix() != op {
				break
			}
		}
		left = mk(op, items, p.span(start))
	}
}
