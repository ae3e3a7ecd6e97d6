package ast

import (
	"github.com/hashicorp/go-set/v3"
)

// ShiftBoundIdentifiers adds offset to the index of every bound identifier
// escaping f. It is used when f moves under (positive offset) or out of
// (negative offset) binders.
func ShiftBoundIdentifiers[F Formula](f F, offset int) F {
	if offset == 0 || len(f.BoundIdentifiers()) == 0 {
		return f
	}
	ff := f.Factory()
	return cast[F](transform(ff, f, 0, nil, func(n Formula, depth int) (Formula, bool) {
		if len(n.BoundIdentifiers()) == 0 {
			return n, true
		}
		b, ok := n.(*BoundIdentifier)
		if !ok {
			return nil, false
		}
		if b.index < depth {
			return b, true
		}
		index := b.index + offset
		if index < depth {
			contractViolation("shifting %s by %d captures it", b.describe(), offset)
		}
		return ff.MakeBoundIdentifier(index, b.loc, b.typ), true
	}))
}

// Instantiate replaces the n outermost declarations of the body f: values[i]
// stands for declaration i, that is index n-1-i at the root of f. A nil
// value keeps its declaration; kept declarations are renumbered as if
// they were the only ones. values are expressions of the context of the
// quantifier. An identifier value takes the location of each occurrence
// it replaces.
func Instantiate[F Formula](f F, n int, values []Expression) F {
	if len(values) != n {
		contractViolation("%d values for %d declarations", len(values), n)
	}
	kept := 0
	rank := make([]int, n)
	for i, v := range values {
		if v == nil {
			rank[i] = kept
			kept++
		} else if v.Factory() != f.Factory() {
			contractViolation("instantiation value %s was built by another factory", v)
		}
	}
	if len(f.BoundIdentifiers()) == 0 {
		return f
	}
	ff := f.Factory()
	return cast[F](transform(ff, f, 0, nil, func(node Formula, depth int) (Formula, bool) {
		if len(node.BoundIdentifiers()) == 0 {
			return node, true
		}
		b, ok := node.(*BoundIdentifier)
		if !ok {
			return nil, false
		}
		k := b.index - depth
		switch {
		case k < 0:
			return b, true
		case k < n:
			i := n - 1 - k
			if id, ok := values[i].(*FreeIdentifier); ok {
				return ff.MakeFreeIdentifier(id.name, b.loc, id.typ), true
			}
			if v := values[i]; v != nil {
				return ShiftBoundIdentifiers(v, depth+kept), true
			}
			return ff.MakeBoundIdentifier(depth+kept-1-rank[i], b.loc, b.typ), true
		default:
			return ff.MakeBoundIdentifier(depth+k-n+kept, b.loc, b.typ), true
		}
	}))
}

// Instantiate replaces the declarations of the quantifier by values; nil
// entries keep their declaration. The result is the instantiated body when
// every declaration is replaced.
func (p *QuantifiedPredicate) Instantiate(values []Expression) Predicate {
	body := Instantiate(p.pred, len(p.decls), values)
	var kept []*BoundIdentDecl
	for i, v := range values {
		if v == nil {
			kept = append(kept, p.decls[i])
		}
	}
	if len(kept) == 0 {
		return body
	}
	return p.ff.MakeQuantifiedPredicate(p.tag, kept, body, p.loc)
}

// CatenateBoundIdentLists concatenates declaration lists in textual order.
// Q x · Q y · P and Q x, y · P have the same body indices, so nested
// quantifiers of the same kind merge by concatenating their lists.
func CatenateBoundIdentLists(lists ...[]*BoundIdentDecl) []*BoundIdentDecl {
	var out []*BoundIdentDecl
	for _, l := range lists {
		out = append(out, l...)
	}
	return out
}

// CollectFreeIdentifiers returns the free identifiers of f in order of
// first occurrence, one per name.
func CollectFreeIdentifiers(f Formula) []*FreeIdentifier {
	seen := set.New[string](0)
	var out []*FreeIdentifier
	Inspect(f, func(n Formula) bool {
		if len(n.FreeIdentifiers()) == 0 {
			return false
		}
		if id, ok := n.(*FreeIdentifier); ok && seen.Insert(id.name) {
			out = append(out, id)
		}
		return true
	})
	return out
}

// BindTheseIdents makes f the body of a new binder declaring idents:
// occurrences of idents[i] become the bound identifier of declaration i
// and the bound identifiers escaping f are shifted past the new
// declarations. Identifiers are matched by name; names absent from f are
// ignored.
func BindTheseIdents[F Formula](f F, idents []*FreeIdentifier) F {
	n := len(idents)
	if n == 0 {
		return f
	}
	index := map[string]int{}
	for i, id := range idents {
		if _, dup := index[id.name]; dup {
			contractViolation("identifier %s bound twice", id.name)
		}
		index[id.name] = n - 1 - i
	}
	ff := f.Factory()
	return cast[F](transform(ff, f, 0, nil, func(node Formula, depth int) (Formula, bool) {
		if len(node.BoundIdentifiers()) == 0 && !mentionsNames(node, index) {
			return node, true
		}
		switch x := node.(type) {
		case *FreeIdentifier:
			return ff.MakeBoundIdentifier(depth+index[x.name], x.loc, x.typ), true
		case *BoundIdentifier:
			if x.index < depth {
				return x, true
			}
			return ff.MakeBoundIdentifier(x.index+n, x.loc, x.typ), true
		}
		return nil, false
	}))
}

func mentionsNames(f Formula, names map[string]int) bool {
	for _, id := range f.FreeIdentifiers() {
		if _, ok := names[id.name]; ok {
			return true
		}
	}
	return false
}

// BindAllFreeIdents binds every free identifier of f in order of first
// occurrence and returns the declarations with the new body.
func BindAllFreeIdents[F Formula](f F) ([]*BoundIdentDecl, F) {
	idents := CollectFreeIdentifiers(f)
	decls := make([]*BoundIdentDecl, len(idents))
	for i, id := range idents {
		decls[i] = id.AsDecl()
	}
	return decls, BindTheseIdents(f, idents)
}

// boundOccurrences calls fn for every bound identifier of f that escapes
// f, with the number of binders crossed to reach it.
func boundOccurrences(f Formula, depth int, fn func(b *BoundIdentifier, depth int)) {
	if len(f.BoundIdentifiers()) == 0 {
		return
	}
	if b, ok := f.(*BoundIdentifier); ok {
		fn(b, depth)
		return
	}
	first := bodyStart(f)
	inner := depth + binderArity(f)
	for i, c := range f.Children() {
		d := depth
		if first >= 0 && i >= first {
			d = inner
		}
		boundOccurrences(c, d, fn)
	}
}
