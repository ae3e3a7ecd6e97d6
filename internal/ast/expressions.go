package ast

import (
	"math/big"

	"github.com/funvibe/formulas/internal/token"
	"github.com/funvibe/formulas/internal/typesystem"
)

type exprNode struct {
	node
	typ        typesystem.Type
	annotation typesystem.Type
}

func (e *exprNode) expressionNode()       {}
func (e *exprNode) Type() typesystem.Type { return e.typ }

func (e *exprNode) setType(t typesystem.Type, ok bool) {
	if ok && t != nil {
		e.typ = t
		e.typed = true
	}
}

// AtomicExpression is a constant such as ℤ, TRUE, ∅ or id.
type AtomicExpression struct {
	exprNode
}

func (e *AtomicExpression) Accept(v Visitor)    { v.VisitAtomicExpression(e) }
func (e *AtomicExpression) String() string      { return Print(e) }
func (e *AtomicExpression) Children() []Formula { return nil }

// MakeAtomicExpression builds an atom. typ may be nil; for generic atoms
// (∅, id, prj1, prj2) it fixes the instance. A type that does not fit the
// atom is ignored and leaves the node untyped.
func (ff *Factory) MakeAtomicExpression(tag Tag, loc *token.SourceLocation, typ typesystem.Type) *AtomicExpression {
	ff.checkTag(tag, KindAtomicExpression)
	ff.checkType(typ)
	e := &AtomicExpression{}
	e.init(tag, loc, ff, 0)
	e.setType(synthesize(tag, nil, nil, typ))
	return e
}

// IsGenericAtom reports whether the type of an atom must be given or
// inferred from its context.
func IsGenericAtom(tag Tag) bool {
	switch tag {
	case EMPTYSET, KPRJ1_GEN, KPRJ2_GEN, KID_GEN:
		return true
	}
	return false
}

// Annotated returns a copy of e written with the type typ, as in ∅⦂ℙ(ℤ).
// Only atoms, set extensions and extended expressions carry an annotation;
// other expressions are returned unchanged. The annotation does not take
// part in equality.
func Annotated(e Expression, typ typesystem.Type) Expression {
	if typ == nil {
		return e
	}
	switch x := e.(type) {
	case *AtomicExpression:
		c := *x
		c.annotation = typ
		return &c
	case *SetExtension:
		c := *x
		c.annotation = typ
		return &c
	case *ExtendedExpression:
		c := *x
		c.annotation = typ
		return &c
	}
	return e
}

// Annotation returns the type e was written with, or nil.
func Annotation(e Expression) typesystem.Type {
	switch x := e.(type) {
	case *AtomicExpression:
		return x.annotation
	case *SetExtension:
		return x.annotation
	case *ExtendedExpression:
		return x.annotation
	}
	return nil
}

// ValidGenericType reports whether t is a valid instance type for a
// generic atom.
func ValidGenericType(tag Tag, t typesystem.Type) bool {
	if !typesystem.IsSolved(t) {
		return false
	}
	_, ok := synthesize(tag, nil, nil, t)
	return ok
}

// BinaryExpression applies a binary operator (MAPSTO .. RELIMAGE).
type BinaryExpression struct {
	exprNode
	left, right Expression
}

func (e *BinaryExpression) Accept(v Visitor)    { v.VisitBinaryExpression(e) }
func (e *BinaryExpression) String() string      { return Print(e) }
func (e *BinaryExpression) Children() []Formula { return []Formula{e.left, e.right} }
func (e *BinaryExpression) Left() Expression    { return e.left }
func (e *BinaryExpression) Right() Expression   { return e.right }

func (ff *Factory) MakeBinaryExpression(tag Tag, left, right Expression, loc *token.SourceLocation) *BinaryExpression {
	ff.checkTag(tag, KindBinaryExpression)
	e := &BinaryExpression{left: left, right: right}
	ff.checkChildren(e.Children())
	if e.init(tag, loc, ff, 0, e.Children()...) {
		e.setType(synthesize(tag, nil, e.Children(), nil))
	}
	return e
}

// AssociativeExpression applies an associative operator to two or more
// children (BUNION .. MUL).
type AssociativeExpression struct {
	exprNode
	children []Expression
}

func (e *AssociativeExpression) Accept(v Visitor)          { v.VisitAssociativeExpression(e) }
func (e *AssociativeExpression) String() string            { return Print(e) }
func (e *AssociativeExpression) Children() []Formula       { return expressionsAsFormulas(e.children) }
func (e *AssociativeExpression) Expressions() []Expression { return e.children }

func (ff *Factory) MakeAssociativeExpression(tag Tag, children []Expression, loc *token.SourceLocation) *AssociativeExpression {
	ff.checkTag(tag, KindAssociativeExpression)
	if len(children) < 2 {
		contractViolation("associative expression %d needs at least two children", tag)
	}
	e := &AssociativeExpression{children: append([]Expression(nil), children...)}
	ff.checkChildren(e.Children())
	if e.init(tag, loc, ff, 0, e.Children()...) {
		e.setType(synthesize(tag, nil, e.Children(), nil))
	}
	return e
}

// UnaryExpression applies a unary operator (KCARD .. UNMINUS).
type UnaryExpression struct {
	exprNode
	child Expression
}

func (e *UnaryExpression) Accept(v Visitor)    { v.VisitUnaryExpression(e) }
func (e *UnaryExpression) String() string      { return Print(e) }
func (e *UnaryExpression) Children() []Formula { return []Formula{e.child} }
func (e *UnaryExpression) Child() Expression   { return e.child }

func (ff *Factory) MakeUnaryExpression(tag Tag, child Expression, loc *token.SourceLocation) *UnaryExpression {
	ff.checkTag(tag, KindUnaryExpression)
	e := &UnaryExpression{child: child}
	ff.checkChildren(e.Children())
	if e.init(tag, loc, ff, 0, child) {
		e.setType(synthesize(tag, nil, e.Children(), nil))
	}
	return e
}

// BoolExpression is bool(P) (KBOOL).
type BoolExpression struct {
	exprNode
	pred Predicate
}

func (e *BoolExpression) Accept(v Visitor)     { v.VisitBoolExpression(e) }
func (e *BoolExpression) String() string       { return Print(e) }
func (e *BoolExpression) Children() []Formula  { return []Formula{e.pred} }
func (e *BoolExpression) Predicate() Predicate { return e.pred }

func (ff *Factory) MakeBoolExpression(pred Predicate, loc *token.SourceLocation) *BoolExpression {
	e := &BoolExpression{pred: pred}
	ff.checkChildren(e.Children())
	if e.init(KBOOL, loc, ff, 0, pred) && pred.IsTypeChecked() {
		e.setType(boolType, true)
	}
	return e
}

// SetExtension is {a, b, ...} (SETEXT). An empty extension needs a given
// type to be typed.
type SetExtension struct {
	exprNode
	members []Expression
}

func (e *SetExtension) Accept(v Visitor)      { v.VisitSetExtension(e) }
func (e *SetExtension) String() string        { return Print(e) }
func (e *SetExtension) Children() []Formula   { return expressionsAsFormulas(e.members) }
func (e *SetExtension) Members() []Expression { return e.members }

func (ff *Factory) MakeSetExtension(members []Expression, loc *token.SourceLocation, typ typesystem.Type) *SetExtension {
	ff.checkType(typ)
	e := &SetExtension{members: append([]Expression(nil), members...)}
	ff.checkChildren(e.Children())
	if e.init(SETEXT, loc, ff, 0, e.Children()...) {
		e.setType(synthesize(SETEXT, nil, e.Children(), typ))
	}
	return e
}

// QuantifiedForm records how a quantified expression was written. It only
// affects printing.
type QuantifiedForm int

const (
	// Explicit is ⋃x·P ∣ E or {x·P ∣ E}.
	Explicit QuantifiedForm = iota
	// Implicit is ⋃E ∣ P or {E ∣ P}; the declarations are the free
	// identifiers of E.
	Implicit
	// Lambda is λpattern·P ∣ E, a CSET whose expression is pattern ↦ E.
	Lambda
)

// QuantifiedExpression is ⋃, ⋂ or a set comprehension (QUNION, QINTER,
// CSET).
type QuantifiedExpression struct {
	exprNode
	decls []*BoundIdentDecl
	pred  Predicate
	expr  Expression
	form  QuantifiedForm
}

func (e *QuantifiedExpression) Accept(v Visitor)                   { v.VisitQuantifiedExpression(e) }
func (e *QuantifiedExpression) String() string                     { return Print(e) }
func (e *QuantifiedExpression) BoundIdentDecls() []*BoundIdentDecl { return e.decls }
func (e *QuantifiedExpression) Predicate() Predicate               { return e.pred }
func (e *QuantifiedExpression) Expression() Expression             { return e.expr }
func (e *QuantifiedExpression) Form() QuantifiedForm               { return e.form }

func (e *QuantifiedExpression) Children() []Formula {
	return append(declsAsFormulas(e.decls), e.pred, e.expr)
}

func (ff *Factory) MakeQuantifiedExpression(tag Tag, decls []*BoundIdentDecl, pred Predicate, expr Expression, loc *token.SourceLocation, form QuantifiedForm) *QuantifiedExpression {
	ff.checkTag(tag, KindQuantifiedExpression)
	if len(decls) == 0 {
		contractViolation("quantified expression without declarations")
	}
	if form == Lambda && tag != CSET {
		contractViolation("lambda form is only valid for set comprehensions")
	}
	if form == Lambda && !isLambdaPattern(expr, len(decls)) {
		form = Explicit
	}
	e := &QuantifiedExpression{decls: append([]*BoundIdentDecl(nil), decls...), pred: pred, expr: expr, form: form}
	ff.checkChildren(e.Children())
	if e.initQuantified(tag, loc, ff, e.decls, pred, expr) && allTyped(e.Children()) {
		e.setType(synthesize(tag, nil, []Formula{expr}, nil))
	}
	return e
}

// isLambdaPattern reports whether expr is pattern ↦ E where pattern is a
// maplet tree of distinct bound identifiers using all n declarations in
// decreasing index order.
func isLambdaPattern(expr Expression, n int) bool {
	m, ok := expr.(*BinaryExpression)
	if !ok || m.tag != MAPSTO {
		return false
	}
	var indices []int
	var walk func(Expression) bool
	walk = func(e Expression) bool {
		switch x := e.(type) {
		case *BoundIdentifier:
			indices = append(indices, x.index)
			return true
		case *BinaryExpression:
			return x.tag == MAPSTO && walk(x.left) && walk(x.right)
		}
		return false
	}
	if !walk(m.left) || len(indices) != n {
		return false
	}
	for i, idx := range indices {
		if idx != n-1-i {
			return false
		}
	}
	return true
}

// IntegerLiteral is an integer constant, possibly negative.
type IntegerLiteral struct {
	exprNode
	value *big.Int
}

func (e *IntegerLiteral) Accept(v Visitor)    { v.VisitIntegerLiteral(e) }
func (e *IntegerLiteral) String() string      { return Print(e) }
func (e *IntegerLiteral) Children() []Formula { return nil }

// Value returns a copy of the literal value.
func (e *IntegerLiteral) Value() *big.Int { return new(big.Int).Set(e.value) }

func (ff *Factory) MakeIntegerLiteral(value *big.Int, loc *token.SourceLocation) *IntegerLiteral {
	if value == nil {
		contractViolation("nil integer literal")
	}
	e := &IntegerLiteral{value: new(big.Int).Set(value)}
	e.init(INTLIT, loc, ff, hashString(value.String()))
	e.setType(intType, true)
	return e
}

func expressionsAsFormulas(es []Expression) []Formula {
	out := make([]Formula, len(es))
	for i, e := range es {
		out[i] = e
	}
	return out
}
