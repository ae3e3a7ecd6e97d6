package parser

import (
	"github.com/funvibe/formulas/internal/ast"
	"github.com/funvibe/formulas/internal/diagnostics"
	"github.com/funvibe/formulas/internal/token"
)

// parsePredicate parses a predicate made of connectives. parent is the
// connective whose right operand is parsed.
func (p *Parser) parsePredicate(parent *ast.Operator) ast.Predicate {
	return p.chain(parent, p.predicateOperand, p.predicateInfix, p.makePredicate).(ast.Predicate)
}

func (p *Parser) predicateInfix() *ast.Operator {
	tok := p.cur()
	if tok.Type != token.SYMBOL {
		return nil
	}
	return p.g.Find(tok.Image(), ast.Infix, true, p.version)
}

func (p *Parser) makePredicate(op *ast.Operator, items []ast.Formula, loc *token.SourceLocation) ast.Formula {
	preds := make([]ast.Predicate, len(items))
	for i, it := range items {
		preds[i] = it.(ast.Predicate)
	}
	if op.Assoc == ast.AssocFlat {
		return p.ff.MakeAssociativePredicate(op.Tag, preds, loc)
	}
	return p.ff.MakeBinaryPredicate(op.Tag, preds[0], preds[1], loc)
}

func (p *Parser) predicateOperand() ast.Formula {
	defer p.leave()
	p.enter()
	tok := p.cur()
	start := p.pos
	switch tok.Type {
	case token.PREDVAR:
		p.next()
		if !p.patterns {
			p.fail(diagnostics.PredicateVariableNotAllowed, locOf(tok), tok.Image())
		}
		return p.ff.MakePredicateVariable(tok.Image(), locOf(tok))
	case token.LPAREN:
		if !p.notPredicate[start] {
			var pred ast.Predicate
			if p.attempt(func() {
				open := p.next()
				pred = p.parsePredicate(nil)
				p.expectClosing(token.RPAREN, open)
			}) {
				return pred
			}
			p.notPredicate[start] = true
		}
	case token.SYMBOL:
		if pred := p.predicateKeyword(); pred != nil {
			return pred
		}
	}
	return p.relational()
}

// predicateKeyword parses the predicates introduced by an operator image:
// ¬, quantifiers, ⊤, ⊥, finite, partition and extension predicates. It
// returns nil when the current symbol starts an expression.
func (p *Parser) predicateKeyword() ast.Predicate {
	start := p.pos
	img := p.cur().Image()
	if op := p.g.Find(img, ast.Prefix, true, p.version); op != nil {
		p.next()
		child := p.parsePredicate(op)
		return p.ff.MakeUnaryPredicate(op.Tag, child, p.span(start))
	}
	if op := p.g.Find(img, ast.Binder, true, p.version); op != nil {
		p.next()
		decls := p.parseDecls()
		p.expect(token.DOT, "·")
		p.push(declNames(decls)...)
		body := p.parsePredicate(nil)
		p.pop(len(decls))
		return p.ff.MakeQuantifiedPredicate(op.Tag, decls, body, p.span(start))
	}
	if op := p.g.Find(img, ast.Atom, true, p.version); op != nil {
		p.next()
		if op.Ext != nil {
			return p.ff.MakeExtendedPredicate(op.Ext, nil, nil, p.span(start))
		}
		return p.ff.MakeLiteralPredicate(op.Tag, p.span(start))
	}
	if op := p.g.Find(img, ast.Functional, true, p.version); op != nil {
		p.next()
		open := p.expect(token.LPAREN, "(")
		switch {
		case op.Ext != nil:
			exprs, preds := p.extensionArgs(op.Ext.Signature())
			p.expectClosing(token.RPAREN, open)
			return p.ff.MakeExtendedPredicate(op.Ext, exprs, preds, p.span(start))
		case op.Tag == ast.KPARTITION:
			args := p.expressionList()
			p.expectClosing(token.RPAREN, open)
			return p.ff.MakeMultiplePredicate(op.Tag, args, p.span(start))
		default:
			arg := p.parseExpression(nil)
			p.expectClosing(token.RPAREN, open)
			return p.ff.MakeSimplePredicate(op.Tag, arg, p.span(start))
		}
	}
	return nil
}

func (p *Parser) relationalAt() *ast.Operator {
	tok := p.cur()
	if tok.Type != token.SYMBOL {
		return nil
	}
	return p.g.Find(tok.Image(), ast.Relational, true, p.version)
}

// relational parses E op F. Relational operators do not chain, except
// variadic extension ones.
func (p *Parser) relational() ast.Predicate {
	start := p.pos
	left := p.parseExpression(nil)
	op := p.relationalAt()
	if op == nil {
		p.unexpected("a relational operator")
	}
	items := []ast.Expression{left}
	for {
		p.next()
		items = append(items, p.parseExpression(nil))
		next := p.relationalAt()
		if next == nil {
			break
		}
		if next != op || op.Ext == nil || op.Ext.Signature().Expressions >= 0 {
			p.fail(diagnostics.IncompatibleOperators, locOf(p.cur()), op.Image, next.Image)
		}
	}
	loc := p.span(start)
	if op.Ext != nil {
		return p.ff.MakeExtendedPredicate(op.Ext, items, nil, loc)
	}
	return p.ff.MakeRelationalPredicate(op.Tag, items[0], items[1], loc)
}

// parseDecls parses x, y⦂T, … in front of a quantifier body.
func (p *Parser) parseDecls() []*ast.BoundIdentDecl {
	var decls []*ast.BoundIdentDecl
	seen := map[string]bool{}
	for {
		tok := p.expect(token.IDENT, "an identifier")
		name := tok.Image()
		if seen[name] {
			p.fail(diagnostics.DuplicateIdentifierInPattern, locOf(tok), name)
		}
		seen[name] = true
		start := p.pos - 1
		typ := p.optionalType(nil)
		decls = append(decls, p.ff.MakeBoundIdentDecl(name, p.span(start), typ))
		if !p.curIs(token.COMMA) {
			return decls
		}
		p.next()
	}
}

// isDeclList reports whether the tokens ahead are a declaration list
// followed by ·, which tells {x·P ∣ E} from {E ∣ P} and {a, b}.
func (p *Parser) isDeclList() bool {
	i := p.pos
	at := func(i int) token.TokenType {
		if i >= len(p.tokens) {
			return token.EOF
		}
		return p.tokens[i].Type
	}
	for {
		if at(i) != token.IDENT {
			return false
		}
		i++
		if at(i) == token.OFTYPE {
			i++
			depth := 0
		skipType:
			for {
				switch at(i) {
				case token.EOF:
					return false
				case token.LPAREN, token.LBRACKET, token.LBRACE:
					depth++
				case token.RPAREN, token.RBRACKET, token.RBRACE:
					if depth == 0 {
						return false
					}
					depth--
				case token.COMMA, token.DOT:
					if depth == 0 {
						break skipType
					}
				}
				i++
			}
		}
		switch at(i) {
		case token.DOT:
			return true
		case token.COMMA:
			i++
		default:
			return false
		}
	}
}

func declNames(decls []*ast.BoundIdentDecl) []string {
	names := make([]string, len(decls))
	for i, d := range decls {
		names[i] = d.Name()
	}
	return names
}
