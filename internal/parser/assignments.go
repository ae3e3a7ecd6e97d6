package parser

import (
	"fmt"

	"github.com/funvibe/formulas/internal/ast"
	"github.com/funvibe/formulas/internal/diagnostics"
	"github.com/funvibe/formulas/internal/token"
)

// parseAssignment parses x, y ≔ E, F, x :∈ S, x, y :∣ P and f(x) ≔ E.
func (p *Parser) parseAssignment() ast.Assignment {
	if p.curIs(token.IDENT) && p.peek(1).Type == token.LPAREN {
		return p.functionOverride()
	}
	start := p.pos
	var idents []*ast.FreeIdentifier
	seen := map[string]bool{}
	for {
		tok := p.expect(token.IDENT, "an identifier")
		name := tok.Image()
		if seen[name] {
			p.fail(diagnostics.DuplicateIdentifierInPattern, locOf(tok), name)
		}
		seen[name] = true
		idents = append(idents, p.ff.MakeFreeIdentifier(name, locOf(tok), nil))
		if !p.curIs(token.COMMA) {
			break
		}
		p.next()
	}
	switch {
	case p.curIs(token.BECEQ):
		opTok := p.next()
		values := p.expressionList()
		if len(values) != len(idents) {
			p.fail(diagnostics.SyntaxError, locOf(opTok),
				fmt.Sprintf("%d identifiers assigned %d values", len(idents), len(values)))
		}
		return p.ff.MakeBecomesEqualTo(idents, values, p.span(start))
	case p.curIs(token.BECMEM):
		opTok := p.next()
		if len(idents) != 1 {
			p.fail(diagnostics.SyntaxError, locOf(opTok), "only one identifier can become a member of a set")
		}
		set := p.parseExpression(nil)
		return p.ff.MakeBecomesMemberOf(idents[0], set, p.span(start))
	case p.curIs(token.BECST):
		p.next()
		primed := make([]*ast.BoundIdentDecl, len(idents))
		names := make([]string, len(idents))
		for i, id := range idents {
			primed[i] = p.ff.MakeBoundIdentDecl(id.Name()+"'", id.Location(), nil)
			names[i] = primed[i].Name()
		}
		p.push(names...)
		pred := p.parsePredicate(nil)
		p.pop(len(names))
		return p.ff.MakeBecomesSuchThat(idents, primed, pred, p.span(start))
	}
	p.unexpected("≔, :∈ or :∣")
	return nil
}

// functionOverride parses f(x) ≔ E as f ≔ f <+ {x ↦ E}.
func (p *Parser) functionOverride() ast.Assignment {
	start := p.pos
	tok := p.next()
	f := p.ff.MakeFreeIdentifier(tok.Image(), locOf(tok), nil)
	open := p.next()
	argStart := p.pos
	arg := p.maplets()
	p.expectClosing(token.RPAREN, open)
	if !p.curIs(token.BECEQ) {
		p.fail(diagnostics.InvalidAssignmentToImage, p.span(start))
	}
	p.next()
	value := p.parseExpression(nil)
	if p.curIs(token.COMMA) {
		p.fail(diagnostics.InvalidAssignmentToImage, p.span(start))
	}
	loc := p.span(start)
	pair := p.ff.MakeBinaryExpression(ast.MAPSTO, arg, value, p.span(argStart))
	update := p.ff.MakeSetExtension([]ast.Expression{pair}, pair.Location(), nil)
	override := p.ff.MakeAssociativeExpression(ast.OVR, []ast.Expression{f, update}, loc)
	return p.ff.MakeBecomesEqualTo([]*ast.FreeIdentifier{f}, []ast.Expression{override}, loc)
}
