package parser

import (
	"math/big"

	"github.com/funvibe/formulas/internal/ast"
	"github.com/funvibe/formulas/internal/diagnostics"
	"github.com/funvibe/formulas/internal/token"
	ts "github.com/funvibe/formulas/internal/typesystem"
)

// atomType is the parent used for the type of a typed atom: it binds
// tighter than every infix operator, so ∅⦂ℙ(ℤ) ∪ s keeps ∪ s outside the
// type.
var atomType = &ast.Operator{Notation: ast.Atom, Priority: ast.PrioAtom + 1}

// parseExpression parses an expression. parent is the infix or prefix
// operator whose operand is parsed.
func (p *Parser) parseExpression(parent *ast.Operator) ast.Expression {
	return p.chain(parent, p.expressionOperand, p.expressionInfix, p.makeExpression).(ast.Expression)
}

func (p *Parser) expressionInfix() *ast.Operator {
	tok := p.cur()
	if tok.Type != token.SYMBOL {
		return nil
	}
	return p.g.Find(tok.Image(), ast.Infix, false, p.version)
}

func (p *Parser) makeExpression(op *ast.Operator, items []ast.Formula, loc *token.SourceLocation) ast.Formula {
	exprs := make([]ast.Expression, len(items))
	for i, it := range items {
		exprs[i] = it.(ast.Expression)
	}
	switch {
	case op.Ext != nil:
		if n := op.Ext.Signature().Expressions; n > 0 && len(exprs) > n {
			left := p.ff.MakeExtendedExpression(op.Ext, exprs[:n], nil, loc, nil)
			return p.makeExpression(op, append([]ast.Formula{left}, items[n:]...), loc)
		}
		return p.ff.MakeExtendedExpression(op.Ext, exprs, nil, loc, nil)
	case op.Assoc == ast.AssocFlat:
		return p.ff.MakeAssociativeExpression(op.Tag, exprs, loc)
	}
	return p.ff.MakeBinaryExpression(op.Tag, exprs[0], exprs[1], loc)
}

// expressionOperand parses a prefix minus or a primary with its postfix
// operators. −n on an integer token is the negative literal.
func (p *Parser) expressionOperand() ast.Formula {
	defer p.leave()
	p.enter()
	start := p.pos
	if tok := p.cur(); tok.Type == token.SYMBOL {
		if op := p.g.Find(tok.Image(), ast.Prefix, false, p.version); op != nil {
			p.next()
			child := p.parseExpression(op)
			if lit, ok := child.(*ast.IntegerLiteral); ok && p.pos == start+2 && p.tokens[start+1].Type == token.INT {
				return p.ff.MakeIntegerLiteral(new(big.Int).Neg(lit.Value()), p.span(start))
			}
			return p.ff.MakeUnaryExpression(op.Tag, child, p.span(start))
		}
	}
	return p.postfix(start, p.primary())
}

// postfix applies ∼, function images f(x) and relational images r[S].
func (p *Parser) postfix(start int, e ast.Expression) ast.Expression {
	for {
		switch {
		case p.curIsSymbol("∼"):
			p.next()
			e = p.ff.MakeUnaryExpression(ast.CONVERSE, e, p.span(start))
		case p.curIs(token.LPAREN):
			open := p.next()
			arg := p.maplets()
			p.expectClosing(token.RPAREN, open)
			e = p.ff.MakeBinaryExpression(ast.FUNIMAGE, e, arg, p.span(start))
		case p.curIs(token.LBRACKET):
			open := p.next()
			arg := p.parseExpression(nil)
			p.expectClosing(token.RBRACKET, open)
			e = p.ff.MakeBinaryExpression(ast.RELIMAGE, e, arg, p.span(start))
		default:
			return e
		}
	}
}

// maplets parses a, b, c as (a ↦ b) ↦ c.
func (p *Parser) maplets() ast.Expression {
	start := p.pos
	e := p.parseExpression(nil)
	for p.curIs(token.COMMA) {
		p.next()
		right := p.parseExpression(nil)
		e = p.ff.MakeBinaryExpression(ast.MAPSTO, e, right, p.span(start))
	}
	return e
}

func (p *Parser) expressionList() []ast.Expression {
	list := []ast.Expression{p.parseExpression(nil)}
	for p.curIs(token.COMMA) {
		p.next()
		list = append(list, p.parseExpression(nil))
	}
	return list
}

func (p *Parser) primary() ast.Expression {
	tok := p.cur()
	switch tok.Type {
	case token.IDENT:
		p.next()
		name := tok.Image()
		if index, ok := p.lookup(name); ok {
			return p.ff.MakeBoundIdentifier(index, locOf(tok), nil)
		}
		return p.ff.MakeFreeIdentifier(name, locOf(tok), nil)
	case token.INT:
		p.next()
		return p.ff.MakeIntegerLiteral(tok.Literal.(*big.Int), locOf(tok))
	case token.LPAREN:
		open := p.next()
		e := p.parseExpression(nil)
		p.expectClosing(token.RPAREN, open)
		return e
	case token.LBRACE:
		return p.braces()
	case token.SYMBOL:
		img := tok.Image()
		if op := p.g.Find(img, ast.Binder, false, p.version); op != nil {
			if op.Tag == ast.CSET {
				return p.lambda()
			}
			return p.quantifiedUnion(op)
		}
		if op := p.g.Find(img, ast.Atom, false, p.version); op != nil {
			return p.atom(op)
		}
		if op := p.g.Find(img, ast.Functional, false, p.version); op != nil {
			return p.functional(op)
		}
		if len(p.g.Lookup(img, p.version)) == 0 && p.g.HasImage(img) {
			p.fail(diagnostics.UnknownOperator, locOf(tok), img)
		}
	}
	p.unexpected("an expression")
	return nil
}

// optionalType parses a ⦂T suffix when present.
func (p *Parser) optionalType(parent *ast.Operator) ts.Type {
	if !p.curIs(token.OFTYPE) {
		return nil
	}
	p.next()
	start := p.pos
	e := p.parseExpression(parent)
	t, err := ast.ToType(e)
	if err != nil {
		p.fail(diagnostics.InvalidTypeExpression, p.span(start), ast.Print(e))
	}
	return t
}

func (p *Parser) atom(op *ast.Operator) ast.Expression {
	start := p.pos
	p.next()
	typ := p.optionalType(atomType)
	if typ != nil && !p.acceptsType(op, typ) {
		p.fail(diagnostics.InvalidGenericType, p.span(start), typ.String(), op.Image)
	}
	if op.Ext != nil {
		return ast.Annotated(p.ff.MakeExtendedExpression(op.Ext, nil, nil, p.span(start), typ), typ)
	}
	return ast.Annotated(p.ff.MakeAtomicExpression(op.Tag, p.span(start), typ), typ)
}

// acceptsType reports whether an atom may be annotated with typ.
func (p *Parser) acceptsType(op *ast.Operator, typ ts.Type) bool {
	if op.Ext != nil {
		return p.ff.MakeExtendedExpression(op.Ext, nil, nil, nil, typ).Type() != nil
	}
	return ast.IsGenericAtom(op.Tag) && ast.ValidGenericType(op.Tag, typ)
}

func (p *Parser) functional(op *ast.Operator) ast.Expression {
	start := p.pos
	p.next()
	open := p.expect(token.LPAREN, "(")
	switch {
	case op.Ext != nil:
		exprs, preds := p.extensionArgs(op.Ext.Signature())
		p.expectClosing(token.RPAREN, open)
		typ := p.optionalType(atomType)
		return ast.Annotated(p.ff.MakeExtendedExpression(op.Ext, exprs, preds, p.span(start), typ), typ)
	case op.Tag == ast.KBOOL:
		pred := p.parsePredicate(nil)
		p.expectClosing(token.RPAREN, open)
		return p.ff.MakeBoolExpression(pred, p.span(start))
	}
	child := p.parseExpression(nil)
	p.expectClosing(token.RPAREN, open)
	return p.ff.MakeUnaryExpression(op.Tag, child, p.span(start))
}

// extensionArgs parses the comma separated children of an extension:
// expressions first, then predicates.
func (p *Parser) extensionArgs(sig ast.Signature) ([]ast.Expression, []ast.Predicate) {
	var exprs []ast.Expression
	var preds []ast.Predicate
	n := 0
	comma := func() {
		if n > 0 {
			p.expect(token.COMMA, ",")
		}
		n++
	}
	if sig.Expressions < 0 {
		exprs = p.expressionList()
		n = len(exprs)
	}
	for i := 0; i < sig.Expressions; i++ {
		comma()
		exprs = append(exprs, p.parseExpression(nil))
	}
	for i := 0; i < sig.Predicates; i++ {
		comma()
		preds = append(preds, p.parsePredicate(nil))
	}
	return exprs, preds
}

// braces parses {}, {a, b}, {x·P ∣ E} and {E ∣ P}.
func (p *Parser) braces() ast.Expression {
	start := p.pos
	open := p.next()
	if p.curIs(token.RBRACE) {
		p.next()
		typ := p.optionalType(atomType)
		if typ != nil && !ast.ValidGenericType(ast.EMPTYSET, typ) {
			p.fail(diagnostics.InvalidGenericType, p.span(start), typ.String(), "{}")
		}
		return ast.Annotated(p.ff.MakeSetExtension(nil, p.span(start), typ), typ)
	}
	if p.isDeclList() {
		decls := p.parseDecls()
		p.expect(token.DOT, "·")
		p.push(declNames(decls)...)
		pred := p.parsePredicate(nil)
		p.expect(token.MID, "∣")
		expr := p.parseExpression(nil)
		p.pop(len(decls))
		p.expectClosing(token.RBRACE, open)
		return p.ff.MakeQuantifiedExpression(ast.CSET, decls, pred, expr, p.span(start), ast.Explicit)
	}
	first := p.parseExpression(nil)
	if p.curIs(token.MID) {
		p.next()
		return p.implicit(ast.CSET, first, start, func() { p.expectClosing(token.RBRACE, open) })
	}
	members := []ast.Expression{first}
	for p.curIs(token.COMMA) {
		p.next()
		members = append(members, p.parseExpression(nil))
	}
	p.expectClosing(token.RBRACE, open)
	return p.ff.MakeSetExtension(members, p.span(start), nil)
}

// implicit finishes {E ∣ P} or ⋃E ∣ P once E and ∣ are consumed: the free
// identifiers of E become the declarations.
func (p *Parser) implicit(tag ast.Tag, expr ast.Expression, start int, closing func()) ast.Expression {
	// E was parsed in the enclosing scope; its names are declared by the
	// comprehension itself.
	if n := len(p.scope); n > 0 {
		outer := make([]ast.Expression, n)
		for i, name := range p.scope {
			outer[i] = p.ff.MakeFreeIdentifier(name, nil, nil)
		}
		expr = ast.Instantiate(expr, n, outer)
	}
	idents := ast.CollectFreeIdentifiers(expr)
	if len(idents) == 0 {
		p.fail(diagnostics.SyntaxError, p.span(start), "comprehension "+ast.Print(expr)+" binds no identifier")
	}
	decls := make([]*ast.BoundIdentDecl, len(idents))
	names := make([]string, len(idents))
	for i, id := range idents {
		decls[i] = id.AsDecl()
		names[i] = id.Name()
	}
	body := ast.BindTheseIdents(expr, idents)
	p.push(names...)
	pred := p.parsePredicate(nil)
	p.pop(len(names))
	closing()
	return p.ff.MakeQuantifiedExpression(tag, decls, pred, body, p.span(start), ast.Implicit)
}

// quantifiedUnion parses ⋃x·P ∣ E, ⋃E ∣ P and the ⋂ forms.
func (p *Parser) quantifiedUnion(op *ast.Operator) ast.Expression {
	start := p.pos
	p.next()
	if p.isDeclList() {
		decls := p.parseDecls()
		p.expect(token.DOT, "·")
		p.push(declNames(decls)...)
		pred := p.parsePredicate(nil)
		p.expect(token.MID, "∣")
		expr := p.parseExpression(nil)
		p.pop(len(decls))
		return p.ff.MakeQuantifiedExpression(op.Tag, decls, pred, expr, p.span(start), ast.Explicit)
	}
	expr := p.parseExpression(nil)
	p.expect(token.MID, "∣")
	return p.implicit(op.Tag, expr, start, func() {})
}

// lambda parses λpattern·P ∣ E into {pattern ↦ E ∣ P} over the pattern
// identifiers.
func (p *Parser) lambda() ast.Expression {
	start := p.pos
	p.next()
	patternStart := p.pos
	var idents []*ast.FreeIdentifier
	pattern := p.pattern(&idents)
	p.expect(token.DOT, "·")
	decls := make([]*ast.BoundIdentDecl, len(idents))
	names := make([]string, len(idents))
	for i, id := range idents {
		decls[i] = id.AsDecl()
		names[i] = id.Name()
	}
	bound := ast.BindTheseIdents(pattern, idents)
	p.push(names...)
	pred := p.parsePredicate(nil)
	p.expect(token.MID, "∣")
	expr := p.parseExpression(nil)
	p.pop(len(names))
	pair := p.ff.MakeBinaryExpression(ast.MAPSTO, bound, expr, p.span(patternStart))
	return p.ff.MakeQuantifiedExpression(ast.CSET, decls, pred, pair, p.span(start), ast.Lambda)
}

// pattern parses a maplet tree of distinct identifiers, optionally typed.
func (p *Parser) pattern(idents *[]*ast.FreeIdentifier) ast.Expression {
	start := p.pos
	left := p.patternAtom(idents)
	for p.curIsSymbol("↦") {
		p.next()
		right := p.patternAtom(idents)
		left = p.ff.MakeBinaryExpression(ast.MAPSTO, left, right, p.span(start))
	}
	return left
}

func (p *Parser) patternAtom(idents *[]*ast.FreeIdentifier) ast.Expression {
	defer p.leave()
	p.enter()
	if p.curIs(token.LPAREN) {
		open := p.next()
		e := p.pattern(idents)
		p.expectClosing(token.RPAREN, open)
		return e
	}
	tok := p.expect(token.IDENT, "an identifier")
	name := tok.Image()
	for _, id := range *idents {
		if id.Name() == name {
			p.fail(diagnostics.DuplicateIdentifierInPattern, locOf(tok), name)
		}
	}
	start := p.pos - 1
	typ := p.optionalType(p.g.Operator(ast.MAPSTO))
	id := p.ff.MakeFreeIdentifier(name, p.span(start), typ)
	*idents = append(*idents, id)
	return id
}
