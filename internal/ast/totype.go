package ast

import (
	"fmt"

	ts "github.com/funvibe/formulas/internal/typesystem"
)

// TypeExpression returns the expression denoting the set of all values of
// t: ℤ, BOOL, S, ℙ(…), …×…, or a datatype application. The result is
// typed ℙ(t).
func (ff *Factory) TypeExpression(t ts.Type) Expression {
	switch x := t.(type) {
	case ts.IntegerType:
		return ff.MakeAtomicExpression(INTEGER, nil, nil)
	case ts.BooleanType:
		return ff.MakeAtomicExpression(BOOL, nil, nil)
	case ts.GivenType:
		return ff.MakeFreeIdentifier(x.Name, nil, ts.PowerSet(x))
	case ts.PowerSetType:
		return ff.MakeUnaryExpression(POW, ff.TypeExpression(x.Base), nil)
	case ts.ProductType:
		return ff.MakeBinaryExpression(CPROD, ff.TypeExpression(x.Left), ff.TypeExpression(x.Right), nil)
	case ts.ParametricType:
		for _, e := range ff.ordered {
			tc, ok := e.(*TypeConstructorExtension)
			if !ok || tc.datatype.TypeID() != x.Constructor.TypeID() {
				continue
			}
			args := make([]Expression, len(x.Args))
			for i, a := range x.Args {
				args[i] = ff.TypeExpression(a)
			}
			return ff.MakeExtendedExpression(tc, args, nil, nil, nil)
		}
		contractViolation("type %s is not supported by this factory", t)
	}
	contractViolation("type %v has no type expression", t)
	return nil
}

// ToType interprets e as a type expression: ℤ, BOOL, a given set name,
// ℙ(T), S×T, S↔T or a datatype type constructor application.
func ToType(e Expression) (ts.Type, error) {
	switch x := e.(type) {
	case *AtomicExpression:
		switch x.tag {
		case INTEGER:
			return ts.IntegerType{}, nil
		case BOOL:
			return ts.BooleanType{}, nil
		}
	case *FreeIdentifier:
		if !x.IsPrimed() {
			return ts.GivenType{Name: x.name}, nil
		}
	case *UnaryExpression:
		if x.tag == POW {
			base, err := ToType(x.child)
			if err != nil {
				return nil, err
			}
			return ts.PowerSet(base), nil
		}
	case *BinaryExpression:
		if x.tag == CPROD || x.tag == REL {
			l, err := ToType(x.left)
			if err != nil {
				return nil, err
			}
			r, err := ToType(x.right)
			if err != nil {
				return nil, err
			}
			if x.tag == REL {
				return ts.Relation(l, r), nil
			}
			return ts.Product(l, r), nil
		}
	case *ExtendedExpression:
		if tc, ok := x.ext.(*TypeConstructorExtension); ok && len(x.preds) == 0 {
			args := make([]ts.Type, len(x.exprs))
			for i, a := range x.exprs {
				t, err := ToType(a)
				if err != nil {
					return nil, err
				}
				args[i] = t
			}
			return ts.ParametricType{Constructor: tc.datatype, Args: args}, nil
		}
	}
	return nil, fmt.Errorf("%s is not a type expression", e)
}

// IsATypeExpression reports whether e denotes the set of all values of its
// element type.
func IsATypeExpression(e Expression) bool {
	_, err := ToType(e)
	return err == nil
}
