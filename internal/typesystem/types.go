package typesystem

import (
	"strconv"
	"strings"

	"github.com/funvibe/formulas/internal/config"
)

// Type is the interface for all types of the notation.
// Types are values: compare them with Equal, never with ==.
type Type interface {
	String() string
	Apply(Subst) Type
	FreeTypeVariables() []TVar
	typeNode()
}

// TVar is an inference variable. It never appears in a solved type.
type TVar struct {
	Name string
}

func (t TVar) typeNode() {}

func (t TVar) String() string {
	// Fresh variables are numbered in creation order; hide the number in
	// tests so that expected strings do not depend on traversal details.
	if config.IsTestMode && strings.HasPrefix(t.Name, config.TypeVarPrefix) {
		if _, err := strconv.Atoi(t.Name[len(config.TypeVarPrefix):]); err == nil {
			return config.TypeVarPrefix + "?"
		}
	}
	return t.Name
}

func (t TVar) Apply(s Subst) Type {
	return ApplyWithCycleCheck(t, s, make(map[string]bool))
}

func (t TVar) FreeTypeVariables() []TVar { return []TVar{t} }

// IntegerType is ℤ.
type IntegerType struct{}

func (IntegerType) typeNode()                 {}
func (IntegerType) String() string            { return "ℤ" }
func (t IntegerType) Apply(Subst) Type        { return t }
func (IntegerType) FreeTypeVariables() []TVar { return nil }

// BooleanType is BOOL.
type BooleanType struct{}

func (BooleanType) typeNode()                 {}
func (BooleanType) String() string            { return "BOOL" }
func (t BooleanType) Apply(Subst) Type        { return t }
func (BooleanType) FreeTypeVariables() []TVar { return nil }

// GivenType is a carrier set used as a basic type. Two given types are
// the same type exactly when they have the same name.
type GivenType struct {
	Name string
}

func (GivenType) typeNode()                 {}
func (t GivenType) String() string          { return t.Name }
func (t GivenType) Apply(Subst) Type        { return t }
func (GivenType) FreeTypeVariables() []TVar { return nil }

// PowerSetType is ℙ(Base).
type PowerSetType struct {
	Base Type
}

func (PowerSetType) typeNode() {}

func (t PowerSetType) String() string { return "ℙ(" + t.Base.String() + ")" }

func (t PowerSetType) Apply(s Subst) Type {
	return ApplyWithCycleCheck(t, s, make(map[string]bool))
}

func (t PowerSetType) FreeTypeVariables() []TVar { return t.Base.FreeTypeVariables() }

// ProductType is Left × Right.
type ProductType struct {
	Left  Type
	Right Type
}

func (ProductType) typeNode() {}

func (t ProductType) String() string {
	right := t.Right.String()
	if _, ok := t.Right.(ProductType); ok {
		right = "(" + right + ")"
	}
	return t.Left.String() + "×" + right
}

func (t ProductType) Apply(s Subst) Type {
	return ApplyWithCycleCheck(t, s, make(map[string]bool))
}

func (t ProductType) FreeTypeVariables() []TVar {
	return uniqueTVars(append(t.Left.FreeTypeVariables(), t.Right.FreeTypeVariables()...))
}

// TypeConstructor is implemented by the extensions that introduce
// parametric types (datatypes).
type TypeConstructor interface {
	TypeName() string
	// TypeID identifies the constructor across factories; two parametric
	// types are equal only if their constructors have the same id.
	TypeID() string
}

// ParametricType is a type built by an extension, e.g. List(ℤ).
type ParametricType struct {
	Constructor TypeConstructor
	Args        []Type
}

func (ParametricType) typeNode() {}

func (t ParametricType) String() string {
	if len(t.Args) == 0 {
		return t.Constructor.TypeName()
	}
	args := make([]string, len(t.Args))
	for i, a := range t.Args {
		args[i] = a.String()
	}
	return t.Constructor.TypeName() + "(" + strings.Join(args, ",") + ")"
}

func (t ParametricType) Apply(s Subst) Type {
	return ApplyWithCycleCheck(t, s, make(map[string]bool))
}

func (t ParametricType) FreeTypeVariables() []TVar {
	var vars []TVar
	for _, a := range t.Args {
		vars = append(vars, a.FreeTypeVariables()...)
	}
	return uniqueTVars(vars)
}

// ApplyWithCycleCheck applies substitution with cycle detection.
func ApplyWithCycleCheck(t Type, s Subst, visited map[string]bool) Type {
	if t == nil {
		return nil
	}
	switch typ := t.(type) {
	case TVar:
		if visited[typ.Name] {
			return typ
		}
		if replacement, ok := s[typ.Name]; ok {
			if tv, ok := replacement.(TVar); ok && tv.Name == typ.Name {
				return typ
			}
			newVisited := copyVisited(visited)
			newVisited[typ.Name] = true
			return ApplyWithCycleCheck(replacement, s, newVisited)
		}
		return typ
	case PowerSetType:
		return PowerSetType{Base: ApplyWithCycleCheck(typ.Base, s, visited)}
	case ProductType:
		return ProductType{
			Left:  ApplyWithCycleCheck(typ.Left, s, visited),
			Right: ApplyWithCycleCheck(typ.Right, s, visited),
		}
	case ParametricType:
		newArgs := make([]Type, len(typ.Args))
		for i, arg := range typ.Args {
			newArgs[i] = ApplyWithCycleCheck(arg, s, visited)
		}
		return ParametricType{Constructor: typ.Constructor, Args: newArgs}
	default:
		return t
	}
}

func copyVisited(m map[string]bool) map[string]bool {
	newMap := make(map[string]bool, len(m))
	for k, v := range m {
		newMap[k] = v
	}
	return newMap
}

func uniqueTVars(vars []TVar) []TVar {
	unique := []TVar{}
	seen := map[string]bool{}
	for _, v := range vars {
		if !seen[v.Name] {
			seen[v.Name] = true
			unique = append(unique, v)
		}
	}
	return unique
}

// Equal reports structural equality of two types. nil is only equal to nil.
func Equal(a, b Type) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	switch x := a.(type) {
	case IntegerType:
		_, ok := b.(IntegerType)
		return ok
	case BooleanType:
		_, ok := b.(BooleanType)
		return ok
	case GivenType:
		y, ok := b.(GivenType)
		return ok && x.Name == y.Name
	case TVar:
		y, ok := b.(TVar)
		return ok && x.Name == y.Name
	case PowerSetType:
		y, ok := b.(PowerSetType)
		return ok && Equal(x.Base, y.Base)
	case ProductType:
		y, ok := b.(ProductType)
		return ok && Equal(x.Left, y.Left) && Equal(x.Right, y.Right)
	case ParametricType:
		y, ok := b.(ParametricType)
		if !ok || x.Constructor.TypeID() != y.Constructor.TypeID() || len(x.Args) != len(y.Args) {
			return false
		}
		for i := range x.Args {
			if !Equal(x.Args[i], y.Args[i]) {
				return false
			}
		}
		return true
	}
	return false
}

// IsSolved reports whether t contains no inference variable.
func IsSolved(t Type) bool {
	return t != nil && len(t.FreeTypeVariables()) == 0
}

// BaseType returns the element type of a power set, or nil.
func BaseType(t Type) Type {
	if p, ok := t.(PowerSetType); ok {
		return p.Base
	}
	return nil
}

// Source returns S for a relational type ℙ(S×T), or nil.
func Source(t Type) Type {
	if p, ok := BaseType(t).(ProductType); ok {
		return p.Left
	}
	return nil
}

// Target returns T for a relational type ℙ(S×T), or nil.
func Target(t Type) Type {
	if p, ok := BaseType(t).(ProductType); ok {
		return p.Right
	}
	return nil
}

// IsRelational reports whether t is ℙ(S×T).
func IsRelational(t Type) bool {
	return Source(t) != nil
}

func PowerSet(base Type) Type { return PowerSetType{Base: base} }

func Product(left, right Type) Type { return ProductType{Left: left, Right: right} }

// Relation returns ℙ(src×trg).
func Relation(src, trg Type) Type { return PowerSet(Product(src, trg)) }

// GivenTypes returns the given types occurring in t, in first occurrence order.
func GivenTypes(t Type) []GivenType {
	var out []GivenType
	seen := map[string]bool{}
	var walk func(Type)
	walk = func(t Type) {
		switch x := t.(type) {
		case GivenType:
			if !seen[x.Name] {
				seen[x.Name] = true
				out = append(out, x)
			}
		case PowerSetType:
			walk(x.Base)
		case ProductType:
			walk(x.Left)
			walk(x.Right)
		case ParametricType:
			for _, a := range x.Args {
				walk(a)
			}
		}
	}
	walk(t)
	return out
}

// SubstituteGivenTypes replaces given types by name.
func SubstituteGivenTypes(t Type, repl map[string]Type) Type {
	switch x := t.(type) {
	case GivenType:
		if r, ok := repl[x.Name]; ok {
			return r
		}
		return x
	case PowerSetType:
		return PowerSetType{Base: SubstituteGivenTypes(x.Base, repl)}
	case ProductType:
		return ProductType{Left: SubstituteGivenTypes(x.Left, repl), Right: SubstituteGivenTypes(x.Right, repl)}
	case ParametricType:
		args := make([]Type, len(x.Args))
		for i, a := range x.Args {
			args[i] = SubstituteGivenTypes(a, repl)
		}
		return ParametricType{Constructor: x.Constructor, Args: args}
	}
	return t
}

// Subst is a mapping from type variable names to types.
type Subst map[string]Type

// Compose combines two substitutions.
func (s1 Subst) Compose(s2 Subst) Subst {
	subst := Subst{}
	for k, v := range s2 {
		subst[k] = v
	}
	for k, v := range s1 {
		subst[k] = v.Apply(s2)
	}
	return subst
}
