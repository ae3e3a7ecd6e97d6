package ast

import (
	"github.com/funvibe/formulas/internal/token"
)

type assignNode struct {
	node
	idents []*FreeIdentifier
}

func (a *assignNode) assignmentNode()                        {}
func (a *assignNode) AssignedIdentifiers() []*FreeIdentifier { return a.idents }

func (a *assignNode) identFormulas() []Formula {
	out := make([]Formula, len(a.idents))
	for i, id := range a.idents {
		out[i] = id
	}
	return out
}

func (ff *Factory) checkAssigned(idents []*FreeIdentifier) {
	if len(idents) == 0 {
		contractViolation("assignment without assigned identifiers")
	}
	seen := map[string]bool{}
	for _, id := range idents {
		if seen[id.name] {
			contractViolation("identifier %s assigned twice", id.name)
		}
		seen[id.name] = true
	}
}

// BecomesEqualTo is x, y ≔ E, F.
type BecomesEqualTo struct {
	assignNode
	values []Expression
}

func (a *BecomesEqualTo) Accept(v Visitor)     { v.VisitBecomesEqualTo(a) }
func (a *BecomesEqualTo) String() string       { return Print(a) }
func (a *BecomesEqualTo) Values() []Expression { return a.values }

func (a *BecomesEqualTo) Children() []Formula {
	return append(a.identFormulas(), expressionsAsFormulas(a.values)...)
}

func (ff *Factory) MakeBecomesEqualTo(idents []*FreeIdentifier, values []Expression, loc *token.SourceLocation) *BecomesEqualTo {
	ff.checkAssigned(idents)
	if len(idents) != len(values) {
		contractViolation("%d identifiers assigned %d values", len(idents), len(values))
	}
	a := &BecomesEqualTo{values: append([]Expression(nil), values...)}
	a.idents = append([]*FreeIdentifier(nil), idents...)
	ff.checkChildren(a.Children())
	ok := a.init(BECOMES_EQUAL_TO, loc, ff, 0, a.Children()...)
	_, synthOK := synthesize(BECOMES_EQUAL_TO, nil, a.Children(), nil)
	a.typed = ok && synthOK
	return a
}

// BecomesMemberOf is x :∈ S.
type BecomesMemberOf struct {
	assignNode
	set Expression
}

func (a *BecomesMemberOf) Accept(v Visitor)    { v.VisitBecomesMemberOf(a) }
func (a *BecomesMemberOf) String() string      { return Print(a) }
func (a *BecomesMemberOf) Set() Expression     { return a.set }
func (a *BecomesMemberOf) Children() []Formula { return []Formula{a.idents[0], a.set} }

func (ff *Factory) MakeBecomesMemberOf(ident *FreeIdentifier, set Expression, loc *token.SourceLocation) *BecomesMemberOf {
	a := &BecomesMemberOf{set: set}
	a.idents = []*FreeIdentifier{ident}
	ff.checkChildren(a.Children())
	ok := a.init(BECOMES_MEMBER_OF, loc, ff, 0, a.Children()...)
	_, synthOK := synthesize(BECOMES_MEMBER_OF, nil, a.Children(), nil)
	a.typed = ok && synthOK
	return a
}

// BecomesSuchThat is x :∣ P where P is over the before values x and the
// after values x', bound by the primed declarations.
type BecomesSuchThat struct {
	assignNode
	primed []*BoundIdentDecl
	pred   Predicate
}

func (a *BecomesSuchThat) Accept(v Visitor)                    { v.VisitBecomesSuchThat(a) }
func (a *BecomesSuchThat) String() string                      { return Print(a) }
func (a *BecomesSuchThat) PrimedIdentDecls() []*BoundIdentDecl { return a.primed }
func (a *BecomesSuchThat) Condition() Predicate                { return a.pred }

func (a *BecomesSuchThat) Children() []Formula {
	out := append(a.identFormulas(), declsAsFormulas(a.primed)...)
	return append(out, a.pred)
}

func (ff *Factory) MakeBecomesSuchThat(idents []*FreeIdentifier, primed []*BoundIdentDecl, pred Predicate, loc *token.SourceLocation) *BecomesSuchThat {
	ff.checkAssigned(idents)
	if len(idents) != len(primed) {
		contractViolation("%d identifiers with %d primed declarations", len(idents), len(primed))
	}
	a := &BecomesSuchThat{primed: append([]*BoundIdentDecl(nil), primed...), pred: pred}
	a.idents = append([]*FreeIdentifier(nil), idents...)
	ff.checkChildren(a.Children())
	ok := a.initQuantified(BECOMES_SUCH_THAT, loc, ff, a.primed, pred)
	h := a.hash
	for _, id := range a.idents {
		h = combineHash(h, id.Hash())
	}
	a.hash = h
	free, freeOK := mergeFreeIdentifiers([][]*FreeIdentifier{a.free, sortedIdents(a.idents)})
	a.free = free
	_, synthOK := synthesize(BECOMES_SUCH_THAT, nil, a.Children(), nil)
	a.typed = ok && freeOK && synthOK && allTyped(a.Children())
	return a
}

func sortedIdents(ids []*FreeIdentifier) []*FreeIdentifier {
	out := append([]*FreeIdentifier(nil), ids...)
	sortFreeIdentifiers(out)
	return out
}

// BeforeAfterPredicate returns the predicate relating before and after
// values of the assigned identifiers: x' = E, x' ∈ S or P with the primed
// declarations replaced by free primed identifiers.
func BeforeAfterPredicate(a Assignment) Predicate {
	ff := a.Factory()
	switch x := a.(type) {
	case *BecomesEqualTo:
		conj := make([]Predicate, len(x.idents))
		for i, id := range x.idents {
			conj[i] = ff.MakeRelationalPredicate(EQUAL, id.Primed(), x.values[i], nil)
		}
		return ff.MakeConjunction(conj...)
	case *BecomesMemberOf:
		return ff.MakeRelationalPredicate(IN, x.idents[0].Primed(), x.set, nil)
	case *BecomesSuchThat:
		primed := make([]Expression, len(x.idents))
		for i, id := range x.idents {
			primed[i] = id.Primed()
		}
		return Instantiate(x.pred, len(x.primed), primed)
	}
	contractViolation("unknown assignment %T", a)
	return nil
}

// MakeConjunction returns ⊤ for no predicate, the predicate itself for one
// and their conjunction otherwise.
func (ff *Factory) MakeConjunction(preds ...Predicate) Predicate {
	switch len(preds) {
	case 0:
		return ff.MakeLiteralPredicate(BTRUE, nil)
	case 1:
		return preds[0]
	}
	return ff.MakeAssociativePredicate(LAND, preds, nil)
}
