package ast

import (
	ts "github.com/funvibe/formulas/internal/typesystem"
)

// Rewriter replaces nodes bottom-up. Rewrite receives a node whose
// children have already been rewritten and returns the node to use in its
// place, which must be of the same kind (predicate, expression...).
type Rewriter interface {
	Rewrite(f Formula) Formula
}

// RewriterFunc adapts a function to the Rewriter interface.
type RewriterFunc func(Formula) Formula

func (fn RewriterFunc) Rewrite(f Formula) Formula { return fn(f) }

// Rewrite applies r to every node of f, children first. Unchanged subtrees
// are shared with f.
func Rewrite[F Formula](f F, r Rewriter) F {
	return cast[F](rewrite(f, r))
}

func rewrite(f Formula, r Rewriter) Formula {
	children := f.Children()
	if len(children) > 0 {
		out := make([]Formula, len(children))
		changed := false
		for i, c := range children {
			out[i] = rewrite(c, r)
			changed = changed || out[i] != c
		}
		if changed {
			f = rebuild(f.Factory(), f, out, typeOf(f))
		}
	}
	return r.Rewrite(f)
}

// SubstituteFreeIdents replaces the free identifiers of f named in m. The
// replacements are expressions of the context of f; their bound
// identifiers are shifted under the binders they are moved into.
func SubstituteFreeIdents[F Formula](f F, m map[string]Expression) F {
	if len(m) == 0 {
		return f
	}
	return cast[F](transform(f.Factory(), f, 0, nil, func(n Formula, depth int) (Formula, bool) {
		if !mentions(n, m) {
			return n, true
		}
		id, ok := n.(*FreeIdentifier)
		if !ok {
			return nil, false
		}
		repl := m[id.name]
		if repl.Factory() != id.ff {
			contractViolation("replacement for %s was built by another factory", id.name)
		}
		if id.typ != nil && repl.Type() != nil && !ts.Equal(id.typ, repl.Type()) {
			contractViolation("replacement for %s has type %s instead of %s", id.name, repl.Type(), id.typ)
		}
		return ShiftBoundIdentifiers(repl, depth), true
	}))
}

func mentions(f Formula, m map[string]Expression) bool {
	for _, id := range f.FreeIdentifiers() {
		if _, ok := m[id.name]; ok {
			return true
		}
	}
	return false
}

// transform rebuilds f into ff. fn is called top-down with the number of
// binders crossed; it returns the replacement of a node and true, or false
// to descend into the node's children. retype maps the types of rebuilt
// nodes and may be nil.
func transform(ff *Factory, f Formula, depth int, retype func(ts.Type) ts.Type, fn func(Formula, int) (Formula, bool)) Formula {
	if r, ok := fn(f, depth); ok {
		return r
	}
	typ := typeOf(f)
	if retype != nil {
		typ = retype(typ)
	}
	children := f.Children()
	if len(children) == 0 {
		if f.Factory() == ff {
			return f
		}
		return copyLeaf(ff, f, typ)
	}
	first := bodyStart(f)
	inner := depth + binderArity(f)
	out := make([]Formula, len(children))
	changed := f.Factory() != ff
	for i, c := range children {
		d := depth
		if first >= 0 && i >= first {
			d = inner
		}
		out[i] = transform(ff, c, d, retype, fn)
		changed = changed || out[i] != c
	}
	if !changed {
		return f
	}
	return rebuild(ff, f, out, typ)
}

// binderArity is the number of declarations a node adds for its body.
func binderArity(f Formula) int {
	switch x := f.(type) {
	case *QuantifiedPredicate:
		return len(x.decls)
	case *QuantifiedExpression:
		return len(x.decls)
	case *BecomesSuchThat:
		return len(x.primed)
	}
	return 0
}

// bodyStart is the index of the first child under the binder, or -1.
func bodyStart(f Formula) int {
	switch x := f.(type) {
	case *QuantifiedPredicate:
		return len(x.decls)
	case *QuantifiedExpression:
		return len(x.decls)
	case *BecomesSuchThat:
		return len(x.idents) + len(x.primed)
	}
	return -1
}

func typeOf(f Formula) ts.Type {
	switch x := f.(type) {
	case Expression:
		return x.Type()
	case *BoundIdentDecl:
		return x.typ
	}
	return nil
}

func cast[F Formula](f Formula) F {
	out, ok := f.(F)
	if !ok {
		contractViolation("rewritten %s has the wrong kind", f)
	}
	return out
}

func asExpressions(fs []Formula) []Expression {
	out := make([]Expression, len(fs))
	for i, f := range fs {
		out[i] = cast[Expression](f)
	}
	return out
}

func asPredicates(fs []Formula) []Predicate {
	out := make([]Predicate, len(fs))
	for i, f := range fs {
		out[i] = cast[Predicate](f)
	}
	return out
}

func asDecls(fs []Formula) []*BoundIdentDecl {
	out := make([]*BoundIdentDecl, len(fs))
	for i, f := range fs {
		out[i] = cast[*BoundIdentDecl](f)
	}
	return out
}

func asIdents(fs []Formula) []*FreeIdentifier {
	out := make([]*FreeIdentifier, len(fs))
	for i, f := range fs {
		out[i] = cast[*FreeIdentifier](f)
	}
	return out
}

// WithChildren returns a node shaped like f over children, built by the
// factory of f. The type of an expression is synthesized from the children,
// constrained by the type of f.
func WithChildren(f Formula, children []Formula) Formula {
	if len(children) == 0 {
		return f
	}
	return rebuild(f.Factory(), f, children, typeOf(f))
}

// WithType returns a copy of the leaf f carrying typ. Leaves without a type
// (literals, predicate atoms) are copied unchanged.
func WithType(f Formula, typ ts.Type) Formula {
	return copyLeaf(f.Factory(), f, typ)
}

// rebuild builds a node of the same shape as f with the given children.
// Types are recomputed from the children. typ is the expected type of the
// result; extended expressions need it when their children do not fix it
// (a constructor of a datatype with a parameter unused by its arguments).
func rebuild(ff *Factory, f Formula, c []Formula, typ ts.Type) Formula {
	loc := f.Location()
	switch x := f.(type) {
	case *AssociativePredicate:
		return ff.MakeAssociativePredicate(x.tag, asPredicates(c), loc)
	case *BinaryPredicate:
		return ff.MakeBinaryPredicate(x.tag, cast[Predicate](c[0]), cast[Predicate](c[1]), loc)
	case *UnaryPredicate:
		return ff.MakeUnaryPredicate(x.tag, cast[Predicate](c[0]), loc)
	case *SimplePredicate:
		return ff.MakeSimplePredicate(x.tag, cast[Expression](c[0]), loc)
	case *RelationalPredicate:
		return ff.MakeRelationalPredicate(x.tag, cast[Expression](c[0]), cast[Expression](c[1]), loc)
	case *MultiplePredicate:
		return ff.MakeMultiplePredicate(x.tag, asExpressions(c), loc)
	case *QuantifiedPredicate:
		n := len(x.decls)
		return ff.MakeQuantifiedPredicate(x.tag, asDecls(c[:n]), cast[Predicate](c[n]), loc)
	case *ExtendedPredicate:
		n := len(x.exprs)
		return ff.MakeExtendedPredicate(x.ext, asExpressions(c[:n]), asPredicates(c[n:]), loc)
	case *BinaryExpression:
		return ff.MakeBinaryExpression(x.tag, cast[Expression](c[0]), cast[Expression](c[1]), loc)
	case *AssociativeExpression:
		return ff.MakeAssociativeExpression(x.tag, asExpressions(c), loc)
	case *UnaryExpression:
		return ff.MakeUnaryExpression(x.tag, cast[Expression](c[0]), loc)
	case *BoolExpression:
		return ff.MakeBoolExpression(cast[Predicate](c[0]), loc)
	case *SetExtension:
		return annotate(x, ff.MakeSetExtension(asExpressions(c), loc, nil), typ)
	case *QuantifiedExpression:
		n := len(x.decls)
		return ff.MakeQuantifiedExpression(x.tag, asDecls(c[:n]), cast[Predicate](c[n]), cast[Expression](c[n+1]), loc, x.form)
	case *ExtendedExpression:
		n := len(x.exprs)
		return annotate(x, ff.MakeExtendedExpression(x.ext, asExpressions(c[:n]), asPredicates(c[n:]), loc, typ), typ)
	case *BecomesEqualTo:
		n := len(x.idents)
		return ff.MakeBecomesEqualTo(asIdents(c[:n]), asExpressions(c[n:]), loc)
	case *BecomesMemberOf:
		return ff.MakeBecomesMemberOf(cast[*FreeIdentifier](c[0]), cast[Expression](c[1]), loc)
	case *BecomesSuchThat:
		n := len(x.idents)
		return ff.MakeBecomesSuchThat(asIdents(c[:n]), asDecls(c[n:2*n]), cast[Predicate](c[2*n]), loc)
	}
	return copyLeaf(ff, f, typ)
}

// copyLeaf builds a leaf like f in ff with type typ.
func copyLeaf(ff *Factory, f Formula, typ ts.Type) Formula {
	loc := f.Location()
	switch x := f.(type) {
	case *FreeIdentifier:
		return ff.MakeFreeIdentifier(x.name, loc, typ)
	case *BoundIdentDecl:
		return ff.MakeBoundIdentDecl(x.name, loc, typ)
	case *BoundIdentifier:
		return ff.MakeBoundIdentifier(x.index, loc, typ)
	case *AtomicExpression:
		return annotate(x, ff.MakeAtomicExpression(x.tag, loc, typ), typ)
	case *IntegerLiteral:
		return ff.MakeIntegerLiteral(x.value, loc)
	case *SetExtension:
		return annotate(x, ff.MakeSetExtension(nil, loc, typ), typ)
	case *ExtendedExpression:
		return annotate(x, ff.MakeExtendedExpression(x.ext, nil, nil, loc, typ), typ)
	case *ExtendedPredicate:
		return ff.MakeExtendedPredicate(x.ext, nil, nil, loc)
	case *LiteralPredicate:
		return ff.MakeLiteralPredicate(x.tag, loc)
	case *PredicateVariable:
		return ff.MakePredicateVariable(x.name, loc)
	}
	contractViolation("cannot copy %T", f)
	return nil
}

// annotate carries the written type of e over to its copy out. typ is the
// type of the copy, if known.
func annotate(e, out Expression, typ ts.Type) Expression {
	a := Annotation(e)
	if a == nil {
		return out
	}
	if typ == nil {
		typ = a
	}
	return Annotated(out, typ)
}
