package ast

import (
	ts "github.com/funvibe/formulas/internal/typesystem"
)

// Specialization maps given types to types and free identifiers to
// expressions. Specializing a formula applies both at once, and may move
// it to another factory.
type Specialization struct {
	// Factory builds the result. Nil keeps the factory of the formula.
	Factory *Factory
	// Types replaces given types by name.
	Types map[string]ts.Type
	// Idents replaces free identifiers by name. Replacements are built by
	// the target factory and typed with already specialized types.
	Idents map[string]Expression
}

// SpecializeType applies the type substitution of s.
func (s *Specialization) SpecializeType(t ts.Type) ts.Type {
	if t == nil || len(s.Types) == 0 {
		return t
	}
	return ts.SubstituteGivenTypes(t, s.Types)
}

// Specialize applies s to f. The free identifier of a substituted given set
// S (typed ℙ(S)) becomes the type expression of its replacement unless s
// maps it explicitly.
func Specialize[F Formula](f F, s *Specialization) F {
	ff := s.Factory
	if ff == nil {
		ff = f.Factory()
	}
	for name, e := range s.Idents {
		if e.Factory() != ff {
			contractViolation("replacement for %s was built by another factory", name)
		}
	}
	return cast[F](transform(ff, f, 0, s.SpecializeType, func(n Formula, depth int) (Formula, bool) {
		if len(n.Children()) > 0 {
			return nil, false
		}
		typ := s.SpecializeType(typeOf(n))
		if id, ok := n.(*FreeIdentifier); ok {
			if repl, ok := s.Idents[id.name]; ok {
				if typ != nil && repl.Type() != nil && !ts.Equal(typ, repl.Type()) {
					contractViolation("replacement for %s has type %s instead of %s", id.name, repl.Type(), typ)
				}
				return ShiftBoundIdentifiers(repl, depth), true
			}
			if t, ok := s.Types[id.name]; ok && isGivenSetOf(id) {
				return ff.TypeExpression(t), true
			}
		}
		if n.Factory() == ff && ts.Equal(typ, typeOf(n)) {
			return n, true
		}
		return copyLeaf(ff, n, typ), true
	}))
}

// isGivenSetOf reports whether id is typed ℙ(id).
func isGivenSetOf(id *FreeIdentifier) bool {
	p, ok := id.typ.(ts.PowerSetType)
	if !ok {
		return false
	}
	g, ok := p.Base.(ts.GivenType)
	return ok && g.Name == id.name
}
