package ast

import (
	"github.com/funvibe/formulas/internal/token"
	"github.com/funvibe/formulas/internal/typesystem"
)

// ExtensionForm is the concrete syntax of an extension.
type ExtensionForm int

const (
	// ExtAtomic is a bare image: nil.
	ExtAtomic ExtensionForm = iota
	// ExtParenthesized is image(a, b, ...).
	ExtParenthesized
	// ExtInfix is a ⊕ b, with two or more operands when associative.
	ExtInfix
)

// Syntax describes how an extension is written.
type Syntax struct {
	Image string
	Form  ExtensionForm
	// Priority and Assoc are used by ExtInfix only; Priority is one of the
	// expression priorities of the grammar.
	Priority int
	Assoc    Assoc
}

// Signature gives the kind and arity of an extension.
type Signature struct {
	// Expression is true for extensions that build expressions, false for
	// predicates.
	Expression bool
	// Expressions and Predicates are the numbers of children of each kind,
	// in that order. Expressions is -1 for a variadic (at least two)
	// infix operator.
	Expressions int
	Predicates  int
}

// WDMediator is handed to extensions computing their own WD condition.
type WDMediator interface {
	Factory() *Factory
	// True returns ⊤, the condition of total operators.
	True() Predicate
}

// Extension is a user-defined operator, predicate or datatype element.
type Extension interface {
	// ID is a stable, unique identifier. Factories order extensions by id.
	ID() string
	Syntax() Syntax
	Signature() Signature
	// TypeRule computes the type of a node from the types of its expression
	// children, recording constraints in u. Predicates return nil.
	TypeRule(u *typesystem.Unifier, types []typesystem.Type) (typesystem.Type, error)
	// WD returns the operator's own WD condition for node.
	WD(m WDMediator, node Extended) Predicate
	// ConjoinChildrenWD tells whether the WD of the children is added to the
	// operator's own condition.
	ConjoinChildrenWD() bool
}

// Extended is implemented by ExtendedExpression and ExtendedPredicate.
type Extended interface {
	Formula
	Extension() Extension
	ChildExpressions() []Expression
	ChildPredicates() []Predicate
}

type extendedNode struct {
	ext   Extension
	exprs []Expression
	preds []Predicate
}

func (n *extendedNode) Extension() Extension           { return n.ext }
func (n *extendedNode) ChildExpressions() []Expression { return n.exprs }
func (n *extendedNode) ChildPredicates() []Predicate   { return n.preds }

func (n *extendedNode) children() []Formula {
	return append(expressionsAsFormulas(n.exprs), predicatesAsFormulas(n.preds)...)
}

func (ff *Factory) checkExtension(ext Extension, exprs []Expression, preds []Predicate, wantExpr bool) Tag {
	tag, ok := ff.TagOf(ext)
	if !ok {
		contractViolation("extension %q is not part of this factory", ext.ID())
	}
	sig := ext.Signature()
	if sig.Expression != wantExpr {
		contractViolation("extension %q has the wrong kind", ext.ID())
	}
	if sig.Expressions >= 0 && len(exprs) != sig.Expressions || sig.Expressions < 0 && len(exprs) < 2 {
		contractViolation("extension %q applied to %d expressions", ext.ID(), len(exprs))
	}
	if len(preds) != sig.Predicates {
		contractViolation("extension %q applied to %d predicates", ext.ID(), len(preds))
	}
	return tag
}

// ExtendedExpression is an expression built by an extension.
type ExtendedExpression struct {
	exprNode
	extendedNode
}

func (e *ExtendedExpression) Accept(v Visitor)    { v.VisitExtendedExpression(e) }
func (e *ExtendedExpression) String() string      { return Print(e) }
func (e *ExtendedExpression) Children() []Formula { return e.children() }

// MakeExtendedExpression applies ext. typ fixes the type of generic
// operators without children (a nil of a list datatype for instance) and
// may be nil otherwise.
func (ff *Factory) MakeExtendedExpression(ext Extension, exprs []Expression, preds []Predicate, loc *token.SourceLocation, typ typesystem.Type) *ExtendedExpression {
	tag := ff.checkExtension(ext, exprs, preds, true)
	ff.checkType(typ)
	e := &ExtendedExpression{}
	e.ext = ext
	e.exprs = append([]Expression(nil), exprs...)
	e.preds = append([]Predicate(nil), preds...)
	ff.checkChildren(e.Children())
	if e.init(tag, loc, ff, hashString(ext.ID()), e.Children()...) {
		e.setType(synthesize(tag, ext, e.Children(), typ))
	}
	return e
}

// ExtendedPredicate is a predicate built by an extension.
type ExtendedPredicate struct {
	node
	extendedNode
}

func (p *ExtendedPredicate) predicateNode()      {}
func (p *ExtendedPredicate) Accept(v Visitor)    { v.VisitExtendedPredicate(p) }
func (p *ExtendedPredicate) String() string      { return Print(p) }
func (p *ExtendedPredicate) Children() []Formula { return p.children() }

func (ff *Factory) MakeExtendedPredicate(ext Extension, exprs []Expression, preds []Predicate, loc *token.SourceLocation) *ExtendedPredicate {
	tag := ff.checkExtension(ext, exprs, preds, false)
	p := &ExtendedPredicate{}
	p.ext = ext
	p.exprs = append([]Expression(nil), exprs...)
	p.preds = append([]Predicate(nil), preds...)
	ff.checkChildren(p.Children())
	ok := p.init(tag, loc, ff, hashString(ext.ID()), p.Children()...)
	_, synthOK := synthesize(tag, ext, p.Children(), nil)
	p.typed = ok && synthOK
	return p
}

// OperatorExtension is a ready-made Extension driven by functions.
type OperatorExtension struct {
	Id        string
	Syn       Syntax
	Sig       Signature
	Rule      func(u *typesystem.Unifier, types []typesystem.Type) (typesystem.Type, error)
	WDRule    func(m WDMediator, node Extended) Predicate
	ConjoinWD bool
}

func (o *OperatorExtension) ID() string              { return o.Id }
func (o *OperatorExtension) Syntax() Syntax          { return o.Syn }
func (o *OperatorExtension) Signature() Signature    { return o.Sig }
func (o *OperatorExtension) ConjoinChildrenWD() bool { return o.ConjoinWD }

func (o *OperatorExtension) TypeRule(u *typesystem.Unifier, types []typesystem.Type) (typesystem.Type, error) {
	if o.Rule == nil {
		return nil, nil
	}
	return o.Rule(u, types)
}

func (o *OperatorExtension) WD(m WDMediator, node Extended) Predicate {
	if o.WDRule == nil {
		return m.True()
	}
	return o.WDRule(m, node)
}
