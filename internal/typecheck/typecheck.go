// Package typecheck infers the types of a parsed formula and returns the
// typed tree.
//
// Checking walks the formula top-down with a stack of the types of the
// enclosing bound identifier declarations. Every node contributes the
// constraints of its typing rule to one unifier. Once the walk is done the
// bindings are applied to the leaves and the tree is rebuilt bottom-up, so
// the factory constructors compute the type of every inner node.
package typecheck

import (
	"errors"
	"sort"

	"github.com/hashicorp/go-set/v3"

	"github.com/funvibe/formulas/internal/ast"
	"github.com/funvibe/formulas/internal/diagnostics"
	"github.com/funvibe/formulas/internal/token"
	ts "github.com/funvibe/formulas/internal/typesystem"
)

// Result is the outcome of a check. Formula is the typed formula, nil
// when Problems holds an error. Inferred holds the types found for the
// free identifiers absent from the initial environment, and the given sets
// those types mention.
type Result struct {
	Formula  ast.Formula
	Problems []*diagnostics.Problem
	Inferred *ts.Environment
}

func (r *Result) HasErrors() bool { return diagnostics.HasErrors(r.Problems) }

// Success reports whether the formula was fully typed.
func (r *Result) Success() bool { return r.Formula != nil && !r.HasErrors() }

// typed mirrors a formula node with the type variable chosen for it.
type typed struct {
	f    ast.Formula
	typ  ts.Type
	kids []*typed
}

type checker struct {
	u        *ts.Unifier
	env      *ts.Environment
	idents   map[string]ts.Type
	order    []string
	firstUse map[string]*token.SourceLocation
	bound    *set.Set[string]
	given    *set.Set[string]
	problems []*diagnostics.Problem
}

// Check type-checks f in env. env is read, never modified; it may be nil.
// A formula that is already typed checks to the same types.
func Check(f ast.Formula, env *ts.Environment) *Result {
	c := &checker{
		u:        ts.NewUnifier(),
		env:      env,
		idents:   map[string]ts.Type{},
		firstUse: map[string]*token.SourceLocation{},
		bound:    set.New[string](0),
		given:    set.New[string](0),
	}
	root := c.infer(f, nil)
	c.checkGivenSets()
	c.reportCaptures()

	res := &Result{Inferred: ts.NewEnvironment()}
	if !diagnostics.HasErrors(c.problems) {
		out := c.build(root)
		if !diagnostics.HasErrors(c.problems) {
			if out.IsTypeChecked() {
				res.Formula = out
			} else {
				c.errorf(diagnostics.TypeCheckFailure, f.Location(), ast.Print(f))
			}
		}
	}
	res.Problems = c.problems
	if res.Formula != nil {
		c.fillInferred(res.Inferred)
	}
	return res
}

func (c *checker) errorf(kind diagnostics.ProblemKind, loc *token.SourceLocation, args ...any) {
	c.problems = append(c.problems, diagnostics.NewError(kind, loc, args...))
}

// identType returns the type variable shared by every occurrence of a free
// identifier.
func (c *checker) identType(id *ast.FreeIdentifier) ts.Type {
	name := id.Name()
	if t, ok := c.idents[name]; ok {
		return t
	}
	var t ts.Type
	if known, ok := c.env.Get(name); ok {
		t = known
		c.noteGiven(known)
	} else {
		t = c.u.Fresh()
	}
	c.idents[name] = t
	c.order = append(c.order, name)
	c.firstUse[name] = id.Location()
	return t
}

// noteGiven records the given sets named by an explicit type.
func (c *checker) noteGiven(t ts.Type) {
	for _, g := range ts.GivenTypes(t) {
		c.given.Insert(g.Name)
	}
}

// unifyAt unifies t with an explicit type, reporting a mismatch at f.
func (c *checker) unifyAt(f ast.Formula, t, explicit ts.Type) {
	if explicit == nil {
		return
	}
	c.noteGiven(explicit)
	if err := c.u.Unify(t, explicit); err != nil {
		c.reportUnify(f, err, nil)
	}
}

func (c *checker) infer(f ast.Formula, scope []ts.Type) *typed {
	n := &typed{f: f}
	switch x := f.(type) {
	case *ast.FreeIdentifier:
		n.typ = c.identType(x)
		c.unifyAt(x, n.typ, x.Type())
		return n
	case *ast.BoundIdentDecl:
		c.bound.Insert(x.Name())
		if x.Type() != nil {
			c.noteGiven(x.Type())
			n.typ = x.Type()
		} else {
			n.typ = c.u.Fresh()
		}
		return n
	case *ast.BoundIdentifier:
		if x.Index() >= len(scope) {
			c.errorf(diagnostics.BoundIdentifierIndexOutOfBounds, x.Location(), x.Index())
			n.typ = c.u.Fresh()
			return n
		}
		n.typ = scope[len(scope)-1-x.Index()]
		c.unifyAt(x, n.typ, x.Type())
		return n
	case *ast.PredicateVariable:
		c.errorf(diagnostics.TypeCheckFailure, x.Location(), "predicate variable "+x.Name())
		return n
	}

	children := f.Children()
	n.kids = make([]*typed, len(children))
	inner := scope
	first := -1
	switch x := f.(type) {
	case *ast.QuantifiedPredicate:
		first = len(x.BoundIdentDecls())
	case *ast.QuantifiedExpression:
		first = len(x.BoundIdentDecls())
	case *ast.BecomesSuchThat:
		first = 2 * len(x.AssignedIdentifiers())
	}
	for i, child := range children {
		if i == first {
			inner = c.extend(scope, n.kids[:i], f)
		}
		if first >= 0 && i >= first {
			n.kids[i] = c.infer(child, inner)
		} else {
			n.kids[i] = c.infer(child, scope)
		}
	}

	var given ts.Type
	if e, ok := f.(ast.Expression); ok {
		if given = ast.Annotation(e); given == nil && len(children) == 0 {
			given = e.Type()
		}
	}
	if given != nil {
		c.noteGiven(given)
	}
	var ext ast.Extension
	if e, ok := f.(ast.Extended); ok {
		ext = e.Extension()
	}
	t, err := ast.InferType(c.u, f.Tag(), ext, childTypes(f, n.kids), given)
	if err != nil {
		c.reportUnify(f, err, n.kids)
		if _, ok := f.(ast.Expression); ok {
			t = c.u.Fresh()
		}
	}
	n.typ = t
	return n
}

// extend pushes the declarations of binder f. done holds the children
// inferred so far, which end with the declarations.
func (c *checker) extend(scope []ts.Type, done []*typed, f ast.Formula) []ts.Type {
	decls := done
	if x, ok := f.(*ast.BecomesSuchThat); ok {
		decls = done[len(x.AssignedIdentifiers()):]
	}
	out := make([]ts.Type, len(scope), len(scope)+len(decls))
	copy(out, scope)
	for _, d := range decls {
		out = append(out, d.typ)
	}
	return out
}

// childTypes lists the operand types the typing rule of f expects: the
// types of the expression and declaration children, or only the body for a
// quantified expression.
func childTypes(f ast.Formula, kids []*typed) []ts.Type {
	if _, ok := f.(*ast.QuantifiedExpression); ok {
		return []ts.Type{kids[len(kids)-1].typ}
	}
	var types []ts.Type
	for _, k := range kids {
		switch k.f.(type) {
		case ast.Expression, *ast.BoundIdentDecl:
			types = append(types, k.typ)
		}
	}
	return types
}

func (c *checker) reportUnify(f ast.Formula, err error, kids []*typed) {
	var ue *ts.UnifyError
	if !errors.As(err, &ue) {
		c.errorf(diagnostics.TypeCheckFailure, f.Location(), err.Error())
		return
	}
	if ue.Kind == ts.Circular {
		c.errorf(diagnostics.Circularity, f.Location(), ue.Left.String(), ue.Right.String())
		return
	}
	switch f.Tag() {
	case ast.MINUS, ast.MUL:
		for _, k := range kids {
			if _, isSet := c.u.Resolve(k.typ).(ts.PowerSetType); isSet {
				kind := diagnostics.MinusAppliedToSet
				if f.Tag() == ast.MUL {
					kind = diagnostics.MulAppliedToSet
				}
				c.errorf(kind, f.Location())
				return
			}
		}
	}
	c.errorf(diagnostics.TypesDoNotMatch, f.Location(), c.u.Resolve(ue.Left).String(), c.u.Resolve(ue.Right).String())
}

// checkGivenSets types every free identifier named like a given set as
// that set. Names are visited in order so that problems are stable.
func (c *checker) checkGivenSets() {
	names := c.given.Slice()
	sort.Strings(names)
	for _, name := range names {
		t, ok := c.idents[name]
		if !ok {
			continue
		}
		want := ts.PowerSet(ts.GivenType{Name: name})
		if err := c.u.Unify(t, want); err != nil {
			c.errorf(diagnostics.TypesDoNotMatch, c.firstUse[name], c.u.Resolve(t).String(), want.String())
		}
	}
}

// reportCaptures warns about names used both free and bound.
func (c *checker) reportCaptures() {
	for _, name := range c.order {
		if c.bound.Contains(name) {
			c.problems = append(c.problems,
				diagnostics.NewWarning(diagnostics.FreeIdentifierHasBoundOccurrences, c.firstUse[name], name))
		}
	}
}

// build rebuilds the formula with the solved types on its leaves.
func (c *checker) build(n *typed) ast.Formula {
	if len(n.kids) == 0 {
		if n.typ == nil {
			return n.f
		}
		t := c.u.Resolve(n.typ)
		if !ts.IsSolved(t) {
			c.errorf(diagnostics.TypeUnknown, n.f.Location(), describe(n.f))
			return n.f
		}
		if _, isLit := n.f.(*ast.IntegerLiteral); isLit {
			return n.f
		}
		return ast.WithType(n.f, t)
	}
	kids := make([]ast.Formula, len(n.kids))
	for i, k := range n.kids {
		kids[i] = c.build(k)
	}
	if x, ok := n.f.(*ast.ExtendedExpression); ok {
		return c.buildExtended(x, n, kids)
	}
	return ast.WithChildren(n.f, kids)
}

// buildExtended passes the solved type to the extension node: its rule may
// not determine the result from the children alone.
func (c *checker) buildExtended(x *ast.ExtendedExpression, n *typed, kids []ast.Formula) ast.Formula {
	ne := len(x.ChildExpressions())
	exprs := make([]ast.Expression, ne)
	for i := range exprs {
		exprs[i] = kids[i].(ast.Expression)
	}
	preds := make([]ast.Predicate, len(kids)-ne)
	for i := range preds {
		preds[i] = kids[ne+i].(ast.Predicate)
	}
	t := c.u.Resolve(n.typ)
	if !ts.IsSolved(t) {
		c.errorf(diagnostics.TypeUnknown, x.Location(), ast.Print(x))
		return x
	}
	out := x.Factory().MakeExtendedExpression(x.Extension(), exprs, preds, x.Location(), t)
	if ast.Annotation(x) != nil {
		return ast.Annotated(out, t)
	}
	return out
}

func describe(f ast.Formula) string {
	switch x := f.(type) {
	case *ast.FreeIdentifier:
		return x.Name()
	case *ast.BoundIdentDecl:
		return x.Name()
	}
	return ast.Print(f)
}

func (c *checker) fillInferred(out *ts.Environment) {
	for _, name := range c.order {
		if c.env.Contains(name) {
			continue
		}
		out.Add(name, c.u.Resolve(c.idents[name]))
	}
	for _, name := range c.order {
		for _, g := range ts.GivenTypes(c.u.Resolve(c.idents[name])) {
			if !c.env.Contains(g.Name) && !out.Contains(g.Name) {
				out.AddGivenSet(g.Name)
			}
		}
	}
}
