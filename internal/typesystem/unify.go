package typesystem

import (
	"fmt"

	"github.com/funvibe/formulas/internal/config"
)

// UnifyErrorKind distinguishes an occurs-check failure from a plain
// structural mismatch.
type UnifyErrorKind int

const (
	Mismatch UnifyErrorKind = iota
	Circular
)

// UnifyError is returned when two types cannot be unified.
type UnifyError struct {
	Kind  UnifyErrorKind
	Left  Type
	Right Type
}

func (e *UnifyError) Error() string {
	if e.Kind == Circular {
		return fmt.Sprintf("infinite type detected: %s in %s", e.Left, e.Right)
	}
	return fmt.Sprintf("cannot unify %s with %s", e.Left, e.Right)
}

// Unify attempts to find a substitution that makes t1 and t2 equal.
func Unify(t1, t2 Type) (Subst, error) {
	if Equal(t1, t2) {
		return Subst{}, nil
	}
	switch x := t1.(type) {
	case TVar:
		return Bind(x, t2)
	}
	if y, ok := t2.(TVar); ok {
		return Bind(y, t1)
	}
	switch x := t1.(type) {
	case PowerSetType:
		if y, ok := t2.(PowerSetType); ok {
			return Unify(x.Base, y.Base)
		}
	case ProductType:
		if y, ok := t2.(ProductType); ok {
			return unifyAll([]Type{x.Left, x.Right}, []Type{y.Left, y.Right})
		}
	case ParametricType:
		if y, ok := t2.(ParametricType); ok && x.Constructor.TypeID() == y.Constructor.TypeID() {
			if len(x.Args) != len(y.Args) {
				return nil, errMismatch(t1, t2)
			}
			return unifyAll(x.Args, y.Args)
		}
	}
	// Integer, Boolean and given types unify only with themselves, which
	// Equal has already ruled out.
	return nil, errMismatch(t1, t2)
}

func unifyAll(left, right []Type) (Subst, error) {
	s := Subst{}
	for i := range left {
		l := left[i].Apply(s)
		r := right[i].Apply(s)
		s2, err := Unify(l, r)
		if err != nil {
			return nil, err
		}
		s = s.Compose(s2)
	}
	return s, nil
}

// Bind binds a type variable to a type, performing the occurs check.
func Bind(tv TVar, t Type) (Subst, error) {
	if tVal, ok := t.(TVar); ok && tVal.Name == tv.Name {
		return Subst{}, nil
	}
	if OccursCheck(tv, t) {
		return nil, &UnifyError{Kind: Circular, Left: tv, Right: t}
	}
	return Subst{tv.Name: t}, nil
}

// OccursCheck returns true if tv appears free in t.
func OccursCheck(tv TVar, t Type) bool {
	for _, v := range t.FreeTypeVariables() {
		if v.Name == tv.Name {
			return true
		}
	}
	return false
}

func errMismatch(t1, t2 Type) error {
	return &UnifyError{Kind: Mismatch, Left: t1, Right: t2}
}

// Unifier accumulates the bindings of one type-check run. It is not safe
// for concurrent use.
type Unifier struct {
	subst Subst
	next  int
}

func NewUnifier() *Unifier {
	return &Unifier{subst: Subst{}}
}

// Fresh returns a new inference variable.
func (u *Unifier) Fresh() TVar {
	u.next++
	return TVar{Name: fmt.Sprintf("%s%d", config.TypeVarPrefix, u.next)}
}

// Unify unifies t1 with t2 under the bindings collected so far. On failure
// no binding is recorded and the returned error is a *UnifyError whose
// operands are the resolved types.
func (u *Unifier) Unify(t1, t2 Type) error {
	r1 := u.Resolve(t1)
	r2 := u.Resolve(t2)
	s, err := Unify(r1, r2)
	if err != nil {
		return err
	}
	if len(s) > 0 {
		u.subst = u.subst.Compose(s)
	}
	return nil
}

// Resolve applies the current bindings to t.
func (u *Unifier) Resolve(t Type) Type {
	if t == nil {
		return nil
	}
	return t.Apply(u.subst)
}

// Subst returns a copy of the bindings collected so far.
func (u *Unifier) Subst() Subst {
	out := make(Subst, len(u.subst))
	for k, v := range u.subst {
		out[k] = v
	}
	return out
}
