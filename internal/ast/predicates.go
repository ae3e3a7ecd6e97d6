package ast

import (
	"github.com/funvibe/formulas/internal/token"
)

// AssociativePredicate is a conjunction or disjunction of two or more
// predicates (LAND, LOR).
type AssociativePredicate struct {
	node
	children []Predicate
}

func (p *AssociativePredicate) predicateNode()          {}
func (p *AssociativePredicate) Accept(v Visitor)        { v.VisitAssociativePredicate(p) }
func (p *AssociativePredicate) String() string          { return Print(p) }
func (p *AssociativePredicate) Children() []Formula     { return predicatesAsFormulas(p.children) }
func (p *AssociativePredicate) Predicates() []Predicate { return p.children }

func (ff *Factory) MakeAssociativePredicate(tag Tag, children []Predicate, loc *token.SourceLocation) *AssociativePredicate {
	ff.checkTag(tag, KindAssociativePredicate)
	if len(children) < 2 {
		contractViolation("associative predicate %d needs at least two children", tag)
	}
	ff.checkChildren(predicatesAsFormulas(children))
	p := &AssociativePredicate{children: append([]Predicate(nil), children...)}
	ok := p.init(tag, loc, ff, 0, p.Children()...)
	p.typed = ok && allTyped(p.Children())
	return p
}

// BinaryPredicate is an implication or an equivalence (LIMP, LEQV).
type BinaryPredicate struct {
	node
	left, right Predicate
}

func (p *BinaryPredicate) predicateNode()      {}
func (p *BinaryPredicate) Accept(v Visitor)    { v.VisitBinaryPredicate(p) }
func (p *BinaryPredicate) String() string      { return Print(p) }
func (p *BinaryPredicate) Children() []Formula { return []Formula{p.left, p.right} }
func (p *BinaryPredicate) Left() Predicate     { return p.left }
func (p *BinaryPredicate) Right() Predicate    { return p.right }

func (ff *Factory) MakeBinaryPredicate(tag Tag, left, right Predicate, loc *token.SourceLocation) *BinaryPredicate {
	ff.checkTag(tag, KindBinaryPredicate)
	p := &BinaryPredicate{left: left, right: right}
	ff.checkChildren(p.Children())
	ok := p.init(tag, loc, ff, 0, p.Children()...)
	p.typed = ok && allTyped(p.Children())
	return p
}

// UnaryPredicate is a negation (NOT).
type UnaryPredicate struct {
	node
	child Predicate
}

func (p *UnaryPredicate) predicateNode()      {}
func (p *UnaryPredicate) Accept(v Visitor)    { v.VisitUnaryPredicate(p) }
func (p *UnaryPredicate) String() string      { return Print(p) }
func (p *UnaryPredicate) Children() []Formula { return []Formula{p.child} }
func (p *UnaryPredicate) Child() Predicate    { return p.child }

func (ff *Factory) MakeUnaryPredicate(tag Tag, child Predicate, loc *token.SourceLocation) *UnaryPredicate {
	ff.checkTag(tag, KindUnaryPredicate)
	p := &UnaryPredicate{child: child}
	ff.checkChildren(p.Children())
	ok := p.init(tag, loc, ff, 0, child)
	p.typed = ok && child.IsTypeChecked()
	return p
}

// LiteralPredicate is ⊤ or ⊥ (BTRUE, BFALSE).
type LiteralPredicate struct {
	node
}

func (p *LiteralPredicate) predicateNode()      {}
func (p *LiteralPredicate) Accept(v Visitor)    { v.VisitLiteralPredicate(p) }
func (p *LiteralPredicate) String() string      { return Print(p) }
func (p *LiteralPredicate) Children() []Formula { return nil }

func (ff *Factory) MakeLiteralPredicate(tag Tag, loc *token.SourceLocation) *LiteralPredicate {
	ff.checkTag(tag, KindLiteralPredicate)
	p := &LiteralPredicate{}
	p.init(tag, loc, ff, 0)
	p.typed = true
	return p
}

// SimplePredicate is finite(S) (KFINITE).
type SimplePredicate struct {
	node
	child Expression
}

func (p *SimplePredicate) predicateNode()         {}
func (p *SimplePredicate) Accept(v Visitor)       { v.VisitSimplePredicate(p) }
func (p *SimplePredicate) String() string         { return Print(p) }
func (p *SimplePredicate) Children() []Formula    { return []Formula{p.child} }
func (p *SimplePredicate) Expression() Expression { return p.child }

func (ff *Factory) MakeSimplePredicate(tag Tag, child Expression, loc *token.SourceLocation) *SimplePredicate {
	ff.checkTag(tag, KindSimplePredicate)
	p := &SimplePredicate{child: child}
	ff.checkChildren(p.Children())
	ok := p.init(tag, loc, ff, 0, child)
	_, synthOK := synthesize(tag, nil, p.Children(), nil)
	p.typed = ok && synthOK
	return p
}

// RelationalPredicate relates two expressions (EQUAL .. NOTSUBSETEQ).
type RelationalPredicate struct {
	node
	left, right Expression
}

func (p *RelationalPredicate) predicateNode()      {}
func (p *RelationalPredicate) Accept(v Visitor)    { v.VisitRelationalPredicate(p) }
func (p *RelationalPredicate) String() string      { return Print(p) }
func (p *RelationalPredicate) Children() []Formula { return []Formula{p.left, p.right} }
func (p *RelationalPredicate) Left() Expression    { return p.left }
func (p *RelationalPredicate) Right() Expression   { return p.right }

func (ff *Factory) MakeRelationalPredicate(tag Tag, left, right Expression, loc *token.SourceLocation) *RelationalPredicate {
	ff.checkTag(tag, KindRelationalPredicate)
	p := &RelationalPredicate{left: left, right: right}
	ff.checkChildren(p.Children())
	ok := p.init(tag, loc, ff, 0, p.Children()...)
	_, synthOK := synthesize(tag, nil, p.Children(), nil)
	p.typed = ok && synthOK
	return p
}

// MultiplePredicate is partition(S, A1, ..., An) (KPARTITION).
type MultiplePredicate struct {
	node
	children []Expression
}

func (p *MultiplePredicate) predicateNode()            {}
func (p *MultiplePredicate) Accept(v Visitor)          { v.VisitMultiplePredicate(p) }
func (p *MultiplePredicate) String() string            { return Print(p) }
func (p *MultiplePredicate) Children() []Formula       { return expressionsAsFormulas(p.children) }
func (p *MultiplePredicate) Expressions() []Expression { return p.children }

func (ff *Factory) MakeMultiplePredicate(tag Tag, children []Expression, loc *token.SourceLocation) *MultiplePredicate {
	ff.checkTag(tag, KindMultiplePredicate)
	if len(children) < 1 {
		contractViolation("partition needs at least one child")
	}
	p := &MultiplePredicate{children: append([]Expression(nil), children...)}
	ff.checkChildren(p.Children())
	ok := p.init(tag, loc, ff, 0, p.Children()...)
	_, synthOK := synthesize(tag, nil, p.Children(), nil)
	p.typed = ok && synthOK
	return p
}

// QuantifiedPredicate is ∀ or ∃ over a list of declarations (FORALL,
// EXISTS). Inside the body, the last declaration has index 0.
type QuantifiedPredicate struct {
	node
	decls []*BoundIdentDecl
	pred  Predicate
}

func (p *QuantifiedPredicate) predicateNode()                       {}
func (p *QuantifiedPredicate) Accept(v Visitor)                   { v.VisitQuantifiedPredicate(p) }
func (p *QuantifiedPredicate) String() string                     { return Print(p) }
func (p *QuantifiedPredicate) BoundIdentDecls() []*BoundIdentDecl { return p.decls }
func (p *QuantifiedPredicate) Predicate() Predicate               { return p.pred }

func (p *QuantifiedPredicate) Children() []Formula {
	return append(declsAsFormulas(p.decls), p.pred)
}

func (ff *Factory) MakeQuantifiedPredicate(tag Tag, decls []*BoundIdentDecl, pred Predicate, loc *token.SourceLocation) *QuantifiedPredicate {
	ff.checkTag(tag, KindQuantifiedPredicate)
	if len(decls) == 0 {
		contractViolation("quantified predicate without declarations")
	}
	p := &QuantifiedPredicate{decls: append([]*BoundIdentDecl(nil), decls...), pred: pred}
	ff.checkChildren(p.Children())
	p.typed = p.initQuantified(tag, loc, ff, p.decls, pred) && allTyped(p.Children())
	return p
}

// PredicateVariable is a $P placeholder, only valid in patterns.
type PredicateVariable struct {
	node
	name string
}

func (p *PredicateVariable) predicateNode()      {}
func (p *PredicateVariable) Accept(v Visitor)    { v.VisitPredicateVariable(p) }
func (p *PredicateVariable) String() string      { return Print(p) }
func (p *PredicateVariable) Children() []Formula { return nil }
func (p *PredicateVariable) Name() string        { return p.name }

func (ff *Factory) MakePredicateVariable(name string, loc *token.SourceLocation) *PredicateVariable {
	if len(name) < 2 || name[0] != '$' {
		contractViolation("invalid predicate variable name %q", name)
	}
	p := &PredicateVariable{name: name}
	p.init(PREDICATE_VARIABLE, loc, ff, hashString(name))
	p.typed = true
	return p
}

func predicatesAsFormulas(ps []Predicate) []Formula {
	out := make([]Formula, len(ps))
	for i, p := range ps {
		out[i] = p
	}
	return out
}
