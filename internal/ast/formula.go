package ast

import (
	"sort"

	"github.com/funvibe/formulas/internal/token"
	"github.com/funvibe/formulas/internal/typesystem"
)

// Formula is the interface for all nodes of the notation. Nodes are
// immutable: every transformation builds new nodes through a Factory.
type Formula interface {
	Tag() Tag
	Location() *token.SourceLocation
	Factory() *Factory
	// Hash is consistent with Equal and EqualAlpha.
	Hash() uint64
	// FreeIdentifiers returns the free identifiers of the formula sorted by
	// name, then type. The slice must not be modified.
	FreeIdentifiers() []*FreeIdentifier
	// BoundIdentifiers returns the bound identifiers that escape the formula,
	// with indices relative to its root, sorted by index.
	BoundIdentifiers() []*BoundIdentifier
	IsTypeChecked() bool
	// IsWellFormed reports whether every bound identifier has a binder.
	IsWellFormed() bool
	Children() []Formula
	Accept(v Visitor)
	String() string
	base() *node
}

// Predicate is a Formula that denotes a truth value.
type Predicate interface {
	Formula
	predicateNode()
}

// Expression is a Formula that denotes a value of some type.
type Expression interface {
	Formula
	expressionNode()
	// Type returns the type of the expression, or nil if unknown.
	Type() typesystem.Type
}

// Assignment is a Formula that changes the value of some identifiers.
type Assignment interface {
	Formula
	assignmentNode()
	AssignedIdentifiers() []*FreeIdentifier
}

type node struct {
	tag   Tag
	loc   *token.SourceLocation
	ff    *Factory
	hash  uint64
	free  []*FreeIdentifier
	bound []*BoundIdentifier
	typed bool
}

func (n *node) Tag() Tag                             { return n.tag }
func (n *node) Location() *token.SourceLocation      { return n.loc }
func (n *node) Factory() *Factory                    { return n.ff }
func (n *node) Hash() uint64                         { return n.hash }
func (n *node) FreeIdentifiers() []*FreeIdentifier   { return n.free }
func (n *node) BoundIdentifiers() []*BoundIdentifier { return n.bound }
func (n *node) IsTypeChecked() bool                  { return n.typed }
func (n *node) IsWellFormed() bool                   { return len(n.bound) == 0 }
func (n *node) base() *node                          { return n }

// init fills the caches of n from its children. extra is mixed into the
// hash for leaf data. It reports whether the identifier caches are
// consistently typed.
func (n *node) init(tag Tag, loc *token.SourceLocation, ff *Factory, extra uint64, children ...Formula) bool {
	n.tag = tag
	n.loc = loc
	n.ff = ff
	h := combineHash(uint64(tag), extra)
	frees := make([][]*FreeIdentifier, 0, len(children))
	bounds := make([][]*BoundIdentifier, 0, len(children))
	for _, c := range children {
		h = combineHash(h, c.Hash())
		frees = append(frees, c.FreeIdentifiers())
		bounds = append(bounds, c.BoundIdentifiers())
	}
	n.hash = h
	var ok1, ok2 bool
	n.free, ok1 = mergeFreeIdentifiers(frees)
	n.bound, ok2 = mergeBoundIdentifiers(bounds)
	return ok1 && ok2
}

func combineHash(h uint64, values ...uint64) uint64 {
	for _, v := range values {
		h = h*1099511628211 ^ v
		h ^= h >> 29
	}
	return h
}

func hashString(s string) uint64 {
	var h uint64 = 14695981039346656037
	for i := 0; i < len(s); i++ {
		h ^= uint64(s[i])
		h *= 1099511628211
	}
	return h
}

func allTyped(children []Formula) bool {
	for _, c := range children {
		if !c.IsTypeChecked() {
			return false
		}
	}
	return true
}

// mergeFreeIdentifiers unions sorted identifier lists. The second result
// is false when one name occurs with two different types.
func mergeFreeIdentifiers(lists [][]*FreeIdentifier) ([]*FreeIdentifier, bool) {
	nonEmpty := 0
	var only []*FreeIdentifier
	for _, l := range lists {
		if len(l) > 0 {
			nonEmpty++
			only = l
		}
	}
	if nonEmpty <= 1 {
		return only, true
	}
	ok := true
	byKey := map[string]*FreeIdentifier{}
	types := map[string]typesystem.Type{}
	for _, l := range lists {
		for _, id := range l {
			key := id.name + "\x00" + typeKey(id.typ)
			if _, seen := byKey[key]; seen {
				continue
			}
			byKey[key] = id
			if prev, seen := types[id.name]; seen && !typesystem.Equal(prev, id.typ) {
				ok = false
			}
			types[id.name] = id.typ
		}
	}
	out := make([]*FreeIdentifier, 0, len(byKey))
	for _, id := range byKey {
		out = append(out, id)
	}
	sortFreeIdentifiers(out)
	return out, ok
}

func sortFreeIdentifiers(ids []*FreeIdentifier) {
	sort.Slice(ids, func(i, j int) bool {
		if ids[i].name != ids[j].name {
			return ids[i].name < ids[j].name
		}
		return typeKey(ids[i].typ) < typeKey(ids[j].typ)
	})
}

func mergeBoundIdentifiers(lists [][]*BoundIdentifier) ([]*BoundIdentifier, bool) {
	nonEmpty := 0
	var only []*BoundIdentifier
	for _, l := range lists {
		if len(l) > 0 {
			nonEmpty++
			only = l
		}
	}
	if nonEmpty <= 1 {
		return only, true
	}
	ok := true
	byIndex := map[int]*BoundIdentifier{}
	for _, l := range lists {
		for _, b := range l {
			if prev, seen := byIndex[b.index]; seen {
				if !typesystem.Equal(prev.typ, b.typ) {
					ok = false
				}
				continue
			}
			byIndex[b.index] = b
		}
	}
	out := make([]*BoundIdentifier, 0, len(byIndex))
	for _, b := range byIndex {
		out = append(out, b)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].index < out[j].index })
	return out, ok
}

func typeKey(t typesystem.Type) string {
	if t == nil {
		return ""
	}
	return t.String()
}

// Equal reports whether a and b have the same structure, the same leaf
// values, the same types and the same bound identifier names. Source
// locations are ignored.
func Equal(a, b Formula) bool {
	return equalFormulas(a, b, false)
}

// EqualAlpha is Equal modulo renaming of bound identifiers.
func EqualAlpha(a, b Formula) bool {
	return equalFormulas(a, b, true)
}

func equalFormulas(a, b Formula, alpha bool) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	if a == b {
		return true
	}
	if a.Tag() != b.Tag() || a.Hash() != b.Hash() {
		return false
	}
	if ea, ok := a.(Expression); ok {
		if !typesystem.Equal(ea.Type(), b.(Expression).Type()) {
			return false
		}
	}
	switch x := a.(type) {
	case *FreeIdentifier:
		return x.name == b.(*FreeIdentifier).name
	case *BoundIdentifier:
		return x.index == b.(*BoundIdentifier).index
	case *BoundIdentDecl:
		y := b.(*BoundIdentDecl)
		return (alpha || x.name == y.name) && typesystem.Equal(x.typ, y.typ)
	case *IntegerLiteral:
		return x.value.Cmp(b.(*IntegerLiteral).value) == 0
	case *PredicateVariable:
		return x.name == b.(*PredicateVariable).name
	}
	ca, cb := a.Children(), b.Children()
	if len(ca) != len(cb) {
		return false
	}
	for i := range ca {
		if !equalFormulas(ca[i], cb[i], alpha) {
			return false
		}
	}
	return true
}
