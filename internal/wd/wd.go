// Package wd computes well-definedness conditions: for a type-checked
// formula, a predicate whose truth is necessary for every partial operator
// of the formula to be applied inside its domain.
//
// Connectives are handled sequentially. The condition of a later operand
// is only required under the hypothesis given by the earlier ones, so
// a÷1=b ∨ a÷2=b needs 1≠0 ∧ (a÷1=b ∨ 2≠0), not 1≠0 ∧ 2≠0.
package wd

import (
	"math/big"

	"github.com/funvibe/formulas/internal/ast"
	"github.com/funvibe/formulas/internal/config"
	ts "github.com/funvibe/formulas/internal/typesystem"
)

// Predicate returns the simplified WD condition of f. f must be
// type-checked; the result is type-checked and built by the factory of f.
func Predicate(f ast.Formula) ast.Predicate {
	if !f.IsTypeChecked() {
		panic(&ast.ContractError{Msg: "WD of a formula that is not type-checked: " + ast.Print(f)})
	}
	c := &computer{ff: f.Factory()}
	return c.wd(f)
}

type computer struct {
	ff *ast.Factory
}

// Factory and True make the computer the mediator handed to extensions.
func (c *computer) Factory() *ast.Factory { return c.ff }
func (c *computer) True() ast.Predicate   { return c.ff.MakeLiteralPredicate(ast.BTRUE, nil) }

func (c *computer) wd(f ast.Formula) ast.Predicate {
	switch x := f.(type) {
	case *ast.AssociativePredicate:
		if x.Tag() == ast.LAND {
			return c.sequential(x.Predicates(), ast.LAND)
		}
		return c.sequential(x.Predicates(), ast.LOR)
	case *ast.BinaryPredicate:
		if x.Tag() == ast.LIMP {
			return c.and(c.wd(x.Left()), c.implies(x.Left(), c.wd(x.Right())))
		}
		return c.and(c.wd(x.Left()), c.wd(x.Right()))
	case *ast.QuantifiedPredicate:
		return c.forall(x.BoundIdentDecls(), c.wd(x.Predicate()))
	case *ast.QuantifiedExpression:
		return c.quantifiedExpression(x)
	case *ast.BecomesSuchThat:
		return c.forall(x.PrimedIdentDecls(), c.wd(x.Condition()))
	case *ast.BinaryExpression:
		return c.and(c.children(x), c.binary(x))
	case *ast.UnaryExpression:
		return c.and(c.children(x), c.unary(x))
	case ast.Extended:
		return c.extended(x)
	}
	return c.children(f)
}

// children conjoins the conditions of the children of f.
func (c *computer) children(f ast.Formula) ast.Predicate {
	var parts []ast.Predicate
	for _, child := range f.Children() {
		if _, isDecl := child.(*ast.BoundIdentDecl); isDecl {
			continue
		}
		parts = append(parts, c.wd(child))
	}
	return c.and(parts...)
}

// sequential builds wd(a) ∧ (a ⇒ wd(b)) ∧ (a ∧ b ⇒ wd(c)) for ∧, and
// wd(a) ∧ (a ∨ wd(b)) ∧ (a ∨ b ∨ wd(c)) for ∨.
func (c *computer) sequential(preds []ast.Predicate, tag ast.Tag) ast.Predicate {
	parts := []ast.Predicate{c.wd(preds[0])}
	for i := 1; i < len(preds); i++ {
		cond := c.wd(preds[i])
		if isTrue(cond) {
			continue
		}
		guard := preds[0]
		if i > 1 {
			guard = c.ff.MakeAssociativePredicate(tag, preds[:i], nil)
		}
		if tag == ast.LAND {
			parts = append(parts, c.implies(guard, cond))
		} else {
			parts = append(parts, c.or(guard, cond))
		}
	}
	return c.and(parts...)
}

func (c *computer) quantifiedExpression(x *ast.QuantifiedExpression) ast.Predicate {
	decls := x.BoundIdentDecls()
	body := c.and(c.wd(x.Predicate()), c.implies(x.Predicate(), c.wd(x.Expression())))
	cond := c.forall(decls, body)
	if x.Tag() == ast.QINTER {
		witness := c.ff.MakeQuantifiedPredicate(ast.EXISTS, decls, x.Predicate(), nil)
		cond = c.and(cond, witness)
	}
	return cond
}

func (c *computer) binary(x *ast.BinaryExpression) ast.Predicate {
	switch x.Tag() {
	case ast.DIV:
		return c.ff.MakeRelationalPredicate(ast.NOTEQUAL, x.Right(), c.integer(0), nil)
	case ast.MOD:
		return c.and(
			c.ff.MakeRelationalPredicate(ast.LE, c.integer(0), x.Left(), nil),
			c.ff.MakeRelationalPredicate(ast.LT, c.integer(0), x.Right(), nil),
		)
	case ast.EXPN:
		return c.and(
			c.ff.MakeRelationalPredicate(ast.LE, c.integer(0), x.Left(), nil),
			c.ff.MakeRelationalPredicate(ast.LE, c.integer(0), x.Right(), nil),
		)
	case ast.FUNIMAGE:
		fn, arg := x.Left(), x.Right()
		ft := fn.Type()
		inDomain := c.ff.MakeRelationalPredicate(ast.IN, arg,
			c.ff.MakeUnaryExpression(ast.KDOM, fn, nil), nil)
		partial := c.ff.MakeBinaryExpression(ast.PFUN,
			c.ff.TypeExpression(ts.Source(ft)), c.ff.TypeExpression(ts.Target(ft)), nil)
		return c.and(inDomain, c.ff.MakeRelationalPredicate(ast.IN, fn, partial, nil))
	}
	return c.True()
}

func (c *computer) unary(x *ast.UnaryExpression) ast.Predicate {
	s := x.Child()
	switch x.Tag() {
	case ast.KCARD:
		return c.ff.MakeSimplePredicate(ast.KFINITE, s, nil)
	case ast.KINTER:
		return c.nonEmpty(s)
	case ast.KMIN:
		return c.and(c.nonEmpty(s), c.bounded(s, ast.LE))
	case ast.KMAX:
		return c.and(c.nonEmpty(s), c.bounded(s, ast.GE))
	}
	return c.True()
}

func (c *computer) nonEmpty(s ast.Expression) ast.Predicate {
	empty := c.ff.MakeAtomicExpression(ast.EMPTYSET, nil, s.Type())
	return c.ff.MakeRelationalPredicate(ast.NOTEQUAL, s, empty, nil)
}

// bounded builds ∃b·∀x·x∈s ⇒ b rel x.
func (c *computer) bounded(s ast.Expression, rel ast.Tag) ast.Predicate {
	intType := ts.IntegerType{}
	b := c.ff.MakeBoundIdentDecl(config.WitnessBoundName, nil, intType)
	x := c.ff.MakeBoundIdentDecl(config.DefaultBoundName, nil, intType)
	bx := c.ff.MakeBoundIdentifier(1, nil, intType)
	xx := c.ff.MakeBoundIdentifier(0, nil, intType)
	member := c.ff.MakeRelationalPredicate(ast.IN, xx, ast.ShiftBoundIdentifiers(s, 2), nil)
	bound := c.ff.MakeRelationalPredicate(rel, bx, xx, nil)
	all := c.ff.MakeQuantifiedPredicate(ast.FORALL, []*ast.BoundIdentDecl{x},
		c.ff.MakeBinaryPredicate(ast.LIMP, member, bound, nil), nil)
	return c.ff.MakeQuantifiedPredicate(ast.EXISTS, []*ast.BoundIdentDecl{b}, all, nil)
}

func (c *computer) extended(x ast.Extended) ast.Predicate {
	ext := x.Extension()
	own := ext.WD(c, x)
	if own == nil {
		own = c.True()
	}
	if !ext.ConjoinChildrenWD() {
		return own
	}
	return c.and(c.children(x), own)
}

func (c *computer) integer(v int64) ast.Expression {
	return c.ff.MakeIntegerLiteral(big.NewInt(v), nil)
}

func isTrue(p ast.Predicate) bool { return p.Tag() == ast.BTRUE }

// and conjoins parts, dropping ⊤ and flattening nested conjunctions.
func (c *computer) and(parts ...ast.Predicate) ast.Predicate {
	var flat []ast.Predicate
	for _, p := range parts {
		switch {
		case isTrue(p):
		case p.Tag() == ast.LAND:
			flat = append(flat, p.(*ast.AssociativePredicate).Predicates()...)
		default:
			flat = append(flat, p)
		}
	}
	switch len(flat) {
	case 0:
		return c.True()
	case 1:
		return flat[0]
	}
	return c.ff.MakeAssociativePredicate(ast.LAND, flat, nil)
}

func (c *computer) implies(hyp, goal ast.Predicate) ast.Predicate {
	if isTrue(goal) {
		return goal
	}
	return c.ff.MakeBinaryPredicate(ast.LIMP, hyp, goal, nil)
}

func (c *computer) or(guard, goal ast.Predicate) ast.Predicate {
	if isTrue(goal) {
		return goal
	}
	var items []ast.Predicate
	if guard.Tag() == ast.LOR {
		items = append(items, guard.(*ast.AssociativePredicate).Predicates()...)
	} else {
		items = append(items, guard)
	}
	return c.ff.MakeAssociativePredicate(ast.LOR, append(items, goal), nil)
}

// forall quantifies body over the declarations it uses.
func (c *computer) forall(decls []*ast.BoundIdentDecl, body ast.Predicate) ast.Predicate {
	if isTrue(body) {
		return body
	}
	n := len(decls)
	used := make([]bool, n)
	for _, b := range body.BoundIdentifiers() {
		if b.Index() < n {
			used[n-1-b.Index()] = true
		}
	}
	values := make([]ast.Expression, n)
	var kept []*ast.BoundIdentDecl
	for i, d := range decls {
		if used[i] {
			kept = append(kept, d)
			continue
		}
		// Never substituted: the declaration has no occurrence.
		values[i] = c.ff.TypeExpression(d.Type())
	}
	if len(kept) == n {
		return c.ff.MakeQuantifiedPredicate(ast.FORALL, decls, body, nil)
	}
	body = ast.Instantiate(body, n, values)
	if len(kept) == 0 {
		return body
	}
	return c.ff.MakeQuantifiedPredicate(ast.FORALL, kept, body, nil)
}
