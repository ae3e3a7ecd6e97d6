package ast

import (
	ts "github.com/funvibe/formulas/internal/typesystem"
)

var (
	intType  ts.Type = ts.IntegerType{}
	boolType ts.Type = ts.BooleanType{}
)

// InferType applies the typing rule of tag. types holds the types of the
// expression children in order (for assignments: the assigned identifiers
// first, then the values). given is the type attached to a leaf node such
// as ∅ or an empty set extension, if any. The result is the type of the
// node for expressions and nil for predicates and assignments. Constraints
// are recorded in u; on error u may hold bindings of the rule's own fresh
// variables only.
func InferType(u *ts.Unifier, tag Tag, ext Extension, types []ts.Type, given ts.Type) (ts.Type, error) {
	result, err := inferType(u, tag, ext, types)
	if err != nil {
		return nil, err
	}
	if given != nil && result != nil {
		if err := u.Unify(result, given); err != nil {
			return nil, err
		}
	}
	return result, nil
}

func inferType(u *ts.Unifier, tag Tag, ext Extension, types []ts.Type) (ts.Type, error) {
	pow := ts.PowerSet
	prod := ts.Product
	fresh := func() ts.Type { return u.Fresh() }

	unifyAll := func(t ts.Type, others []ts.Type) error {
		for _, o := range others {
			if err := u.Unify(o, t); err != nil {
				return err
			}
		}
		return nil
	}
	// rel unifies t with ℙ(α×β) and returns α, β.
	rel := func(t ts.Type) (ts.Type, ts.Type, error) {
		a, b := fresh(), fresh()
		if err := u.Unify(t, ts.Relation(a, b)); err != nil {
			return nil, nil, err
		}
		return a, b, nil
	}
	set := func(t ts.Type) (ts.Type, error) {
		a := fresh()
		if err := u.Unify(t, pow(a)); err != nil {
			return nil, err
		}
		return a, nil
	}

	if tag >= firstExtensionTag {
		if ext == nil {
			return nil, &ContractError{Msg: "no extension for tag"}
		}
		return ext.TypeRule(u, types)
	}

	switch tag {
	case EQUAL, NOTEQUAL:
		return nil, u.Unify(types[0], types[1])
	case LT, LE, GT, GE:
		return nil, unifyAll(intType, types)
	case IN, NOTIN:
		return nil, u.Unify(types[1], pow(types[0]))
	case SUBSET, NOTSUBSET, SUBSETEQ, NOTSUBSETEQ:
		if _, err := set(types[0]); err != nil {
			return nil, err
		}
		return nil, u.Unify(types[1], types[0])
	case KFINITE:
		_, err := set(types[0])
		return nil, err
	case KPARTITION:
		if _, err := set(types[0]); err != nil {
			return nil, err
		}
		return nil, unifyAll(types[0], types[1:])

	case INTEGER, NATURAL, NATURAL1:
		return pow(intType), nil
	case BOOL:
		return pow(boolType), nil
	case TRUE, FALSE:
		return boolType, nil
	case EMPTYSET:
		return pow(fresh()), nil
	case KPRED, KSUCC:
		return ts.Relation(intType, intType), nil
	case KPRJ1_GEN:
		a, b := fresh(), fresh()
		return ts.Relation(prod(a, b), a), nil
	case KPRJ2_GEN:
		a, b := fresh(), fresh()
		return ts.Relation(prod(a, b), b), nil
	case KID_GEN:
		a := fresh()
		return ts.Relation(a, a), nil

	case MAPSTO:
		return prod(types[0], types[1]), nil
	case REL, TREL, SREL, STREL, PFUN, TFUN, PINJ, TINJ, PSUR, TSUR, TBIJ, CPROD:
		a, err := set(types[0])
		if err != nil {
			return nil, err
		}
		b, err := set(types[1])
		if err != nil {
			return nil, err
		}
		if tag == CPROD {
			return ts.Relation(a, b), nil
		}
		return pow(ts.Relation(a, b)), nil
	case SETMINUS:
		if _, err := set(types[0]); err != nil {
			return nil, err
		}
		return types[0], u.Unify(types[1], types[0])
	case DPROD:
		a, b, err := rel(types[0])
		if err != nil {
			return nil, err
		}
		c := fresh()
		if err := u.Unify(types[1], ts.Relation(a, c)); err != nil {
			return nil, err
		}
		return ts.Relation(a, prod(b, c)), nil
	case PPROD:
		a, c, err := rel(types[0])
		if err != nil {
			return nil, err
		}
		b, d, err := rel(types[1])
		if err != nil {
			return nil, err
		}
		return ts.Relation(prod(a, b), prod(c, d)), nil
	case DOMRES, DOMSUB:
		a, _, err := rel(types[1])
		if err != nil {
			return nil, err
		}
		return types[1], u.Unify(types[0], pow(a))
	case RANRES, RANSUB:
		_, b, err := rel(types[0])
		if err != nil {
			return nil, err
		}
		return types[0], u.Unify(types[1], pow(b))
	case UPTO:
		return pow(intType), unifyAll(intType, types)
	case MINUS, DIV, MOD, EXPN, PLUS, MUL:
		return intType, unifyAll(intType, types)
	case FUNIMAGE:
		a, b, err := rel(types[0])
		if err != nil {
			return nil, err
		}
		return b, u.Unify(types[1], a)
	case RELIMAGE:
		a, b, err := rel(types[0])
		if err != nil {
			return nil, err
		}
		return pow(b), u.Unify(types[1], pow(a))

	case BUNION, BINTER:
		if _, err := set(types[0]); err != nil {
			return nil, err
		}
		return types[0], unifyAll(types[0], types[1:])
	case OVR:
		if _, _, err := rel(types[0]); err != nil {
			return nil, err
		}
		return types[0], unifyAll(types[0], types[1:])
	case FCOMP, BCOMP:
		ordered := types
		if tag == BCOMP {
			ordered = make([]ts.Type, len(types))
			for i, t := range types {
				ordered[len(types)-1-i] = t
			}
		}
		src, link, err := rel(ordered[0])
		if err != nil {
			return nil, err
		}
		for _, t := range ordered[1:] {
			next := fresh()
			if err := u.Unify(t, ts.Relation(link, next)); err != nil {
				return nil, err
			}
			link = next
		}
		return ts.Relation(src, link), nil

	case KCARD:
		_, err := set(types[0])
		return intType, err
	case POW, POW1:
		if _, err := set(types[0]); err != nil {
			return nil, err
		}
		return pow(types[0]), nil
	case KUNION, KINTER:
		a := fresh()
		return pow(a), u.Unify(types[0], pow(pow(a)))
	case KDOM:
		a, _, err := rel(types[0])
		return pow(a), err
	case KRAN:
		_, b, err := rel(types[0])
		return pow(b), err
	case KPRJ1:
		a, b, err := rel(types[0])
		return ts.Relation(prod(a, b), a), err
	case KPRJ2:
		a, b, err := rel(types[0])
		return ts.Relation(prod(a, b), b), err
	case KID:
		a, err := set(types[0])
		return ts.Relation(a, a), err
	case KMIN, KMAX:
		return intType, u.Unify(types[0], pow(intType))
	case CONVERSE:
		a, b, err := rel(types[0])
		return ts.Relation(b, a), err
	case UNMINUS, INTLIT:
		return intType, unifyAll(intType, types)

	case KBOOL:
		return boolType, nil
	case SETEXT:
		a := fresh()
		return pow(a), unifyAll(a, types)

	case CSET:
		return pow(types[0]), nil
	case QUNION, QINTER:
		if _, err := set(types[0]); err != nil {
			return nil, err
		}
		return types[0], nil

	case BECOMES_EQUAL_TO:
		n := len(types) / 2
		for i := 0; i < n; i++ {
			if err := u.Unify(types[n+i], types[i]); err != nil {
				return nil, err
			}
		}
		return nil, nil
	case BECOMES_MEMBER_OF:
		return nil, u.Unify(types[1], pow(types[0]))
	case BECOMES_SUCH_THAT:
		n := len(types) / 2
		for i := 0; i < n; i++ {
			if err := u.Unify(types[n+i], types[i]); err != nil {
				return nil, err
			}
		}
		return nil, nil
	}
	// Predicates without expression children.
	return nil, nil
}

// synthesize computes the type of a node whose expression children are all
// typed. The second result is false when the rule fails or leaves the
// result unresolved.
func synthesize(tag Tag, ext Extension, children []Formula, given ts.Type) (ts.Type, bool) {
	types := make([]ts.Type, 0, len(children))
	for _, c := range children {
		if !c.IsTypeChecked() {
			return nil, false
		}
		switch x := c.(type) {
		case Expression:
			types = append(types, x.Type())
		case *BoundIdentDecl:
			types = append(types, x.typ)
		}
	}
	u := ts.NewUnifier()
	t, err := InferType(u, tag, ext, types, given)
	if err != nil {
		return nil, false
	}
	if t == nil {
		return nil, true
	}
	t = u.Resolve(t)
	if !ts.IsSolved(t) {
		return nil, false
	}
	return t, true
}
