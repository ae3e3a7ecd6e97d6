package ast

import (
	"strconv"

	"github.com/funvibe/formulas/internal/token"
	"github.com/funvibe/formulas/internal/typesystem"
)

// FreeIdentifier is an identifier that is not bound in the formula.
type FreeIdentifier struct {
	exprNode
	name string
}

func (e *FreeIdentifier) Accept(v Visitor)    { v.VisitFreeIdentifier(e) }
func (e *FreeIdentifier) String() string      { return Print(e) }
func (e *FreeIdentifier) Children() []Formula { return nil }
func (e *FreeIdentifier) Name() string        { return e.name }

// IsPrimed reports whether the name ends with a prime (after-state value).
func (e *FreeIdentifier) IsPrimed() bool {
	return len(e.name) > 0 && e.name[len(e.name)-1] == '\''
}

// MakeFreeIdentifier builds an identifier occurrence. typ may be nil.
// Invalid names are a contract violation.
func (ff *Factory) MakeFreeIdentifier(name string, loc *token.SourceLocation, typ typesystem.Type) *FreeIdentifier {
	if !ff.IsValidIdentifierName(name) {
		contractViolation("invalid identifier name %q", name)
	}
	ff.checkType(typ)
	e := &FreeIdentifier{name: name}
	e.init(FREE_IDENT, loc, ff, hashString(name))
	e.free = []*FreeIdentifier{e}
	e.setType(typ, typesystem.IsSolved(typ))
	return e
}

// WithType returns an identifier with the same name and location and the
// given type.
func (e *FreeIdentifier) WithType(typ typesystem.Type) *FreeIdentifier {
	return e.ff.MakeFreeIdentifier(e.name, e.loc, typ)
}

// Primed returns the after-state identifier x' of x.
func (e *FreeIdentifier) Primed() *FreeIdentifier {
	if e.IsPrimed() {
		contractViolation("identifier %s is already primed", e.name)
	}
	return e.ff.MakeFreeIdentifier(e.name+"'", e.loc, e.typ)
}

// Unprimed returns x for x'.
func (e *FreeIdentifier) Unprimed() *FreeIdentifier {
	if !e.IsPrimed() {
		return e
	}
	return e.ff.MakeFreeIdentifier(e.name[:len(e.name)-1], e.loc, e.typ)
}

// AsDecl returns a declaration with the same name and type.
func (e *FreeIdentifier) AsDecl() *BoundIdentDecl {
	return e.ff.MakeBoundIdentDecl(e.name, e.loc, e.typ)
}

// BoundIdentDecl declares a bound identifier in a quantifier.
type BoundIdentDecl struct {
	node
	name string
	typ  typesystem.Type
}

func (d *BoundIdentDecl) Accept(v Visitor)      { v.VisitBoundIdentDecl(d) }
func (d *BoundIdentDecl) String() string        { return Print(d) }
func (d *BoundIdentDecl) Children() []Formula   { return nil }
func (d *BoundIdentDecl) Name() string          { return d.name }
func (d *BoundIdentDecl) Type() typesystem.Type { return d.typ }

func (ff *Factory) MakeBoundIdentDecl(name string, loc *token.SourceLocation, typ typesystem.Type) *BoundIdentDecl {
	if !ff.IsValidIdentifierName(name) {
		contractViolation("invalid identifier name %q", name)
	}
	ff.checkType(typ)
	d := &BoundIdentDecl{name: name}
	// The name does not take part in the hash so that alpha-equivalent
	// formulas hash the same.
	d.init(BOUND_IDENT_DECL, loc, ff, 0)
	if typesystem.IsSolved(typ) {
		d.typ = typ
		d.typed = true
	}
	return d
}

// BoundIdentifier is a De Bruijn occurrence of a declaration: index 0
// denotes the innermost declaration.
type BoundIdentifier struct {
	exprNode
	index int
}

func (e *BoundIdentifier) Accept(v Visitor)    { v.VisitBoundIdentifier(e) }
func (e *BoundIdentifier) String() string      { return Print(e) }
func (e *BoundIdentifier) Children() []Formula { return nil }
func (e *BoundIdentifier) Index() int          { return e.index }

func (ff *Factory) MakeBoundIdentifier(index int, loc *token.SourceLocation, typ typesystem.Type) *BoundIdentifier {
	if index < 0 {
		contractViolation("negative bound identifier index %d", index)
	}
	ff.checkType(typ)
	e := &BoundIdentifier{index: index}
	e.init(BOUND_IDENT, loc, ff, uint64(index)+1)
	e.bound = []*BoundIdentifier{e}
	e.setType(typ, typesystem.IsSolved(typ))
	return e
}

func declsAsFormulas(decls []*BoundIdentDecl) []Formula {
	out := make([]Formula, len(decls), len(decls)+2)
	for i, d := range decls {
		out[i] = d
	}
	return out
}

// initQuantified fills the caches of a quantified node. Bound identifiers
// of body with an index below len(decls) are captured and checked against
// their declaration type; the others escape with their index lowered.
func (n *node) initQuantified(tag Tag, loc *token.SourceLocation, ff *Factory, decls []*BoundIdentDecl, body ...Formula) bool {
	n.tag = tag
	n.loc = loc
	n.ff = ff
	h := combineHash(uint64(tag), uint64(len(decls)))
	frees := make([][]*FreeIdentifier, 0, len(body))
	bounds := make([][]*BoundIdentifier, 0, len(body))
	for _, c := range body {
		h = combineHash(h, c.Hash())
		frees = append(frees, c.FreeIdentifiers())
		bounds = append(bounds, c.BoundIdentifiers())
	}
	n.hash = h
	free, ok := mergeFreeIdentifiers(frees)
	n.free = free
	bound, boundOK := mergeBoundIdentifiers(bounds)
	ok = ok && boundOK
	nd := len(decls)
	var escaping []*BoundIdentifier
	for _, b := range bound {
		if b.index < nd {
			d := decls[nd-1-b.index]
			if b.typ != nil && d.typ != nil && !typesystem.Equal(b.typ, d.typ) {
				ok = false
			}
			continue
		}
		shifted := &BoundIdentifier{index: b.index - nd}
		shifted.tag = BOUND_IDENT
		shifted.ff = ff
		shifted.loc = b.loc
		shifted.typ = b.typ
		shifted.typed = b.typed
		shifted.hash = combineHash(uint64(BOUND_IDENT), uint64(shifted.index)+1)
		shifted.bound = []*BoundIdentifier{shifted}
		escaping = append(escaping, shifted)
	}
	n.bound = escaping
	return ok
}

func (e *BoundIdentifier) describe() string {
	return "[[" + strconv.Itoa(e.index) + "]]"
}
