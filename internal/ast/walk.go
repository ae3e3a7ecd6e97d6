package ast

// Visitor receives one call per node from Accept. It does not navigate the
// tree; use Traverse or Inspect for that.
type Visitor interface {
	VisitAssociativePredicate(p *AssociativePredicate)
	VisitBinaryPredicate(p *BinaryPredicate)
	VisitUnaryPredicate(p *UnaryPredicate)
	VisitLiteralPredicate(p *LiteralPredicate)
	VisitSimplePredicate(p *SimplePredicate)
	VisitRelationalPredicate(p *RelationalPredicate)
	VisitMultiplePredicate(p *MultiplePredicate)
	VisitQuantifiedPredicate(p *QuantifiedPredicate)
	VisitPredicateVariable(p *PredicateVariable)
	VisitExtendedPredicate(p *ExtendedPredicate)

	VisitAtomicExpression(e *AtomicExpression)
	VisitBinaryExpression(e *BinaryExpression)
	VisitAssociativeExpression(e *AssociativeExpression)
	VisitUnaryExpression(e *UnaryExpression)
	VisitBoolExpression(e *BoolExpression)
	VisitSetExtension(e *SetExtension)
	VisitQuantifiedExpression(e *QuantifiedExpression)
	VisitIntegerLiteral(e *IntegerLiteral)
	VisitFreeIdentifier(e *FreeIdentifier)
	VisitBoundIdentDecl(d *BoundIdentDecl)
	VisitBoundIdentifier(e *BoundIdentifier)
	VisitExtendedExpression(e *ExtendedExpression)

	VisitBecomesEqualTo(a *BecomesEqualTo)
	VisitBecomesMemberOf(a *BecomesMemberOf)
	VisitBecomesSuchThat(a *BecomesSuchThat)
}

// BaseVisitor implements Visitor with empty methods. Embed it to handle a
// few shapes only.
type BaseVisitor struct{}

func (BaseVisitor) VisitAssociativePredicate(*AssociativePredicate)   {}
func (BaseVisitor) VisitBinaryPredicate(*BinaryPredicate)             {}
func (BaseVisitor) VisitUnaryPredicate(*UnaryPredicate)               {}
func (BaseVisitor) VisitLiteralPredicate(*LiteralPredicate)           {}
func (BaseVisitor) VisitSimplePredicate(*SimplePredicate)             {}
func (BaseVisitor) VisitRelationalPredicate(*RelationalPredicate)     {}
func (BaseVisitor) VisitMultiplePredicate(*MultiplePredicate)         {}
func (BaseVisitor) VisitQuantifiedPredicate(*QuantifiedPredicate)     {}
func (BaseVisitor) VisitPredicateVariable(*PredicateVariable)         {}
func (BaseVisitor) VisitExtendedPredicate(*ExtendedPredicate)         {}
func (BaseVisitor) VisitAtomicExpression(*AtomicExpression)           {}
func (BaseVisitor) VisitBinaryExpression(*BinaryExpression)           {}
func (BaseVisitor) VisitAssociativeExpression(*AssociativeExpression) {}
func (BaseVisitor) VisitUnaryExpression(*UnaryExpression)             {}
func (BaseVisitor) VisitBoolExpression(*BoolExpression)               {}
func (BaseVisitor) VisitSetExtension(*SetExtension)                   {}
func (BaseVisitor) VisitQuantifiedExpression(*QuantifiedExpression)   {}
func (BaseVisitor) VisitIntegerLiteral(*IntegerLiteral)               {}
func (BaseVisitor) VisitFreeIdentifier(*FreeIdentifier)               {}
func (BaseVisitor) VisitBoundIdentDecl(*BoundIdentDecl)               {}
func (BaseVisitor) VisitBoundIdentifier(*BoundIdentifier)             {}
func (BaseVisitor) VisitExtendedExpression(*ExtendedExpression)       {}
func (BaseVisitor) VisitBecomesEqualTo(*BecomesEqualTo)               {}
func (BaseVisitor) VisitBecomesMemberOf(*BecomesMemberOf)             {}
func (BaseVisitor) VisitBecomesSuchThat(*BecomesSuchThat)             {}

// Action tells Traverse how to proceed after entering a node.
type Action int

const (
	Continue Action = iota
	SkipChildren
	Stop
)

// Traverse walks f depth-first, children in order. enter is called before
// the children and may skip them or stop the walk; exit (may be nil) is
// called after them. Traverse reports whether the walk ran to completion.
func Traverse(f Formula, enter func(Formula) Action, exit func(Formula)) bool {
	switch enter(f) {
	case Stop:
		return false
	case SkipChildren:
	default:
		for _, c := range f.Children() {
			if !Traverse(c, enter, exit) {
				return false
			}
		}
	}
	if exit != nil {
		exit(f)
	}
	return true
}

// Inspect calls fn for every node of f in prefix order until fn returns
// false for a node, whose children are then skipped.
func Inspect(f Formula, fn func(Formula) bool) {
	Traverse(f, func(n Formula) Action {
		if fn(n) {
			return Continue
		}
		return SkipChildren
	}, nil)
}

// VisitAll calls Accept on every node of f in prefix order.
func VisitAll(f Formula, v Visitor) {
	Inspect(f, func(n Formula) bool {
		n.Accept(v)
		return true
	})
}

// Contains reports whether some node of f satisfies fn.
func Contains(f Formula, fn func(Formula) bool) bool {
	return !Traverse(f, func(n Formula) Action {
		if fn(n) {
			return Stop
		}
		return Continue
	}, nil)
}
