package ast

import (
	"strings"

	"github.com/hashicorp/go-set/v3"

	ts "github.com/funvibe/formulas/internal/typesystem"
)

// Print returns the text of f with the fewest parentheses that parse back
// to f.
func Print(f Formula) string {
	return newPrinter(f, false, false).print(f)
}

// FullyParenthesized returns the text of f with every compound sub-formula
// in parentheses.
func FullyParenthesized(f Formula) string {
	return newPrinter(f, true, false).print(f)
}

// StringWithTypes is Print with the types of bound identifier
// declarations and generic atoms written out.
func StringWithTypes(f Formula) string {
	return newPrinter(f, false, true).print(f)
}

type printer struct {
	sb    strings.Builder
	g     *Grammar
	full  bool
	types bool
	free  *set.Set[string]
	scope []string // bound names, outermost first
}

func newPrinter(f Formula, full, types bool) *printer {
	return &printer{g: f.Factory().Grammar(), full: full, types: types, free: UsedNames(f)}
}

func (p *printer) print(f Formula) string {
	p.formula(f, true)
	return p.sb.String()
}

func (p *printer) write(s string) { p.sb.WriteString(s) }

func (p *printer) image(op *Operator) {
	if op.Spaced || isWord(op.Image) {
		p.write(" " + op.Image + " ")
		return
	}
	p.write(op.Image)
}

// child prints c as an operand. rightmost tells whether nothing of the
// enclosing text follows c up to a delimiter.
func (p *printer) child(c Formula, parens, rightmost bool) {
	if p.full && needsDelimiting(c) {
		parens = true
	}
	if !parens && isRightOpen(c) && !rightmost {
		parens = true
	}
	if parens {
		p.write("(")
		p.formula(c, true)
		p.write(")")
		return
	}
	p.formula(c, rightmost)
}

// delimited prints c where the surrounding syntax delimits it, like a
// function argument.
func (p *printer) delimited(c Formula) {
	p.child(c, false, true)
}

func needsDelimiting(f Formula) bool {
	if lit, ok := f.(*IntegerLiteral); ok {
		return lit.value.Sign() < 0
	}
	return len(f.Children()) > 0
}

func isRightOpen(f Formula) bool {
	switch x := f.(type) {
	case *QuantifiedPredicate:
		return true
	case *QuantifiedExpression:
		return x.tag != CSET || x.form == Lambda
	}
	return false
}

// priority returns the binding strength of f as an operand and the
// operator deciding same-priority grouping, if any.
func (p *printer) priority(f Formula) (int, *Operator) {
	switch x := f.(type) {
	case *BinaryPredicate, *AssociativePredicate, *UnaryPredicate:
		op := p.g.Operator(f.Tag())
		return op.Priority, op
	case *AssociativeExpression:
		op := p.g.Operator(x.tag)
		return op.Priority, op
	case *BinaryExpression:
		op := p.g.Operator(x.tag)
		if op.Notation == Postfix {
			return PrioPostfix, nil
		}
		return op.Priority, op
	case *UnaryExpression:
		switch x.tag {
		case UNMINUS:
			return PrioUnaryMinus, nil
		case CONVERSE:
			return PrioPostfix, nil
		}
	case *IntegerLiteral:
		if x.value.Sign() < 0 {
			return PrioUnaryMinus, nil
		}
	case *ExtendedExpression:
		if op := p.g.Operator(x.tag); op != nil && op.Notation == Infix {
			return op.Priority, op
		}
	}
	if e, ok := f.(Expression); ok && p.writtenType(e) != nil {
		// A postfix operator would be read as part of the type.
		return PrioPower, nil
	}
	if _, ok := f.(Predicate); ok {
		return PrioPredicateAtom, nil
	}
	return PrioAtom, nil
}

// operands prints the children of an infix node with operator op.
func (p *printer) operands(op *Operator, children []Formula, rightmost bool) {
	n := len(children)
	for i, c := range children {
		if i > 0 {
			p.image(op)
		}
		prio, cop := p.priority(c)
		parens := prio < op.Priority
		if prio == op.Priority {
			if cop == nil {
				parens = true
			} else {
				if i > 0 && p.g.Relation(op, cop) != GroupRight {
					parens = true
				}
				if i < n-1 && p.g.Relation(cop, op) != GroupLeft {
					parens = true
				}
			}
		}
		p.child(c, parens, rightmost && i == n-1)
	}
}

// postfixOperand prints the operand of a postfix operator.
func (p *printer) postfixOperand(c Formula) {
	prio, _ := p.priority(c)
	p.child(c, prio < PrioPostfix, false)
}

func (p *printer) list(fs []Formula) {
	for i, c := range fs {
		if i > 0 {
			p.write(",")
		}
		p.delimited(c)
	}
}

func (p *printer) formula(f Formula, rightmost bool) {
	switch x := f.(type) {
	case *AssociativePredicate:
		p.operands(p.g.Operator(x.tag), x.Children(), rightmost)
	case *BinaryPredicate:
		p.operands(p.g.Operator(x.tag), x.Children(), rightmost)
	case *UnaryPredicate:
		p.write(p.g.Operator(x.tag).Image)
		prio, _ := p.priority(x.child)
		p.child(x.child, prio < PrioNegation, rightmost)
	case *LiteralPredicate:
		p.write(p.g.Operator(x.tag).Image)
	case *SimplePredicate:
		p.functional(p.g.Operator(x.tag).Image, x.Children())
	case *MultiplePredicate:
		p.functional(p.g.Operator(x.tag).Image, x.Children())
	case *RelationalPredicate:
		p.child(x.left, false, false)
		p.write(p.g.Operator(x.tag).Image)
		p.child(x.right, false, rightmost)
	case *QuantifiedPredicate:
		p.write(p.g.Operator(x.tag).Image)
		names := p.enter(x.decls)
		p.declList(x.decls, names)
		p.write("·")
		p.child(x.pred, false, rightmost)
		p.leave(len(names))
	case *PredicateVariable:
		p.write(x.name)
	case *ExtendedPredicate:
		p.extended(x.tag, x.Children(), rightmost)

	case *AtomicExpression:
		p.write(p.g.Operator(x.tag).Image)
		p.typeOf(x)
	case *IntegerLiteral:
		p.write(strings.Replace(x.value.String(), "-", "−", 1))
	case *FreeIdentifier:
		p.write(x.name)
	case *BoundIdentDecl:
		p.write(x.name)
	case *BoundIdentifier:
		if x.index < len(p.scope) {
			p.write(p.scope[len(p.scope)-1-x.index])
		} else {
			p.write(x.describe())
		}
	case *BinaryExpression:
		switch x.tag {
		case FUNIMAGE:
			p.postfixOperand(x.left)
			p.write("(")
			p.delimited(x.right)
			p.write(")")
		case RELIMAGE:
			p.postfixOperand(x.left)
			p.write("[")
			p.delimited(x.right)
			p.write("]")
		default:
			p.operands(p.g.Operator(x.tag), x.Children(), rightmost)
		}
	case *AssociativeExpression:
		p.operands(p.g.Operator(x.tag), x.Children(), rightmost)
	case *UnaryExpression:
		switch x.tag {
		case CONVERSE:
			p.postfixOperand(x.child)
			p.write("∼")
		case UNMINUS:
			p.write("−")
			prio, _ := p.priority(x.child)
			_, isLit := x.child.(*IntegerLiteral)
			p.child(x.child, prio <= PrioUnaryMinus || isLit, rightmost)
		default:
			p.functional(p.g.Operator(x.tag).Image, x.Children())
		}
	case *BoolExpression:
		p.functional("bool", x.Children())
	case *SetExtension:
		if len(x.members) == 0 {
			p.write("{}")
			p.typeOf(x)
			return
		}
		p.write("{")
		p.list(x.Children())
		p.write("}")
	case *QuantifiedExpression:
		p.quantifiedExpression(x, rightmost)
	case *ExtendedExpression:
		p.extended(x.tag, x.Children(), rightmost)
		p.typeOf(x)

	case *BecomesEqualTo:
		p.list(x.identFormulas())
		p.write(" ≔ ")
		p.list(expressionsAsFormulas(x.values))
	case *BecomesMemberOf:
		p.write(x.idents[0].name)
		p.write(" :∈ ")
		p.delimited(x.set)
	case *BecomesSuchThat:
		p.list(x.identFormulas())
		p.write(" :∣ ")
		names := make([]string, len(x.primed))
		for i, d := range x.primed {
			names[i] = d.name
		}
		p.scope = append(p.scope, names...)
		p.delimited(x.pred)
		p.leave(len(names))
	default:
		contractViolation("cannot print %T", f)
	}
}

func (p *printer) functional(img string, children []Formula) {
	p.write(img)
	p.write("(")
	p.list(children)
	p.write(")")
}

func (p *printer) extended(tag Tag, children []Formula, rightmost bool) {
	op := p.g.Operator(tag)
	switch op.Notation {
	case Infix:
		p.operands(op, children, rightmost)
	case Relational:
		p.child(children[0], false, false)
		p.image(op)
		p.child(children[1], false, rightmost)
	case Atom:
		p.write(op.Image)
	default:
		p.functional(op.Image, children)
	}
}

// writtenType returns the type printed after e: the type e was written
// with, or the type of a generic atom when types are asked for.
func (p *printer) writtenType(e Expression) ts.Type {
	if a := Annotation(e); a != nil {
		if t := e.Type(); t != nil {
			return t
		}
		return a
	}
	if !p.types || e.Type() == nil {
		return nil
	}
	switch x := e.(type) {
	case *AtomicExpression:
		if IsGenericAtom(x.tag) {
			return x.typ
		}
	case *SetExtension:
		if len(x.members) == 0 {
			return x.typ
		}
	case *ExtendedExpression:
		if len(x.exprs) == 0 && len(x.preds) == 0 {
			return x.typ
		}
	}
	return nil
}

func (p *printer) typeOf(e Expression) {
	if t := p.writtenType(e); t != nil {
		p.write("⦂" + t.String())
	}
}

// enter pushes names for decls that clash neither with free identifiers
// nor with the bound names in scope.
func (p *printer) enter(decls []*BoundIdentDecl) []string {
	used := set.New[string](p.free.Size() + len(p.scope))
	for _, n := range p.free.Slice() {
		used.Insert(n)
	}
	for _, n := range p.scope {
		used.Insert(n)
	}
	names := ResolveIdents(decls, used)
	p.scope = append(p.scope, names...)
	return names
}

func (p *printer) leave(n int) {
	p.scope = p.scope[:len(p.scope)-n]
}

func (p *printer) declList(decls []*BoundIdentDecl, names []string) {
	for i, d := range decls {
		if i > 0 {
			p.write(",")
		}
		p.write(names[i])
		if p.types && d.typ != nil {
			p.write("⦂" + d.typ.String())
		}
	}
}

func (p *printer) quantifiedExpression(x *QuantifiedExpression, rightmost bool) {
	braces := x.tag == CSET && x.form != Lambda
	if braces {
		p.write("{")
		rightmost = true
	} else if x.form == Lambda {
		p.write("λ")
	} else {
		p.write(p.g.Operator(x.tag).Image)
	}
	names := p.enter(x.decls)
	switch {
	case x.form == Lambda:
		m := x.expr.(*BinaryExpression)
		p.pattern(m.left, x.decls)
		p.write("·")
		p.delimited(x.pred)
		p.write(" ∣ ")
		p.child(m.right, false, rightmost)
	case x.form == Implicit && p.implicitFits(x):
		p.delimited(x.expr)
		p.write(" ∣ ")
		p.child(x.pred, false, rightmost)
	default:
		p.declList(x.decls, names)
		p.write("·")
		p.delimited(x.pred)
		p.write(" ∣ ")
		p.child(x.expr, false, rightmost)
	}
	p.leave(len(names))
	if braces {
		p.write("}")
	}
}

// pattern prints the maplet tree of a lambda; it only holds bound
// identifiers, which need parentheses on the right of a maplet.
func (p *printer) pattern(e Expression, decls []*BoundIdentDecl) {
	switch x := e.(type) {
	case *BinaryExpression:
		p.pattern(x.left, decls)
		p.write(" ↦ ")
		if r, ok := x.right.(*BinaryExpression); ok && r.tag == MAPSTO {
			p.write("(")
			p.pattern(r, decls)
			p.write(")")
			return
		}
		p.pattern(x.right, decls)
	case *BoundIdentifier:
		p.formula(x, true)
		if d := decls[len(decls)-1-x.index]; p.types && d.typ != nil {
			p.write("⦂" + d.typ.String())
		}
	}
}

// implicitFits reports whether {E ∣ P} denotes x: the declarations are
// exactly the identifiers of E in order of first occurrence and E has no
// other free identifier.
func (p *printer) implicitFits(x *QuantifiedExpression) bool {
	if len(x.expr.FreeIdentifiers()) > 0 {
		return false
	}
	n := len(x.decls)
	var order []int
	seen := map[int]bool{}
	boundOccurrences(x.expr, 0, func(b *BoundIdentifier, depth int) {
		k := b.index - depth
		if k >= 0 && k < n && !seen[k] {
			seen[k] = true
			order = append(order, k)
		}
	})
	if len(order) != n {
		return false
	}
	for i, idx := range order {
		if idx != n-1-i {
			return false
		}
	}
	return true
}
