package ast

import (
	"fmt"
	"strings"
	"sync"

	"github.com/funvibe/formulas/internal/config"
	"github.com/funvibe/formulas/internal/token"
	ts "github.com/funvibe/formulas/internal/typesystem"
)

// Datatype is a finalised inductive datatype. It is the type constructor
// of its values: List(ℤ) is ParametricType{Constructor: list, Args: ℤ}.
// Datatypes with the same definition are the same object.
type Datatype struct {
	name         string
	params       []string
	id           string
	typeCons     *TypeConstructorExtension
	constructors []*ConstructorExtension
}

func (d *Datatype) TypeName() string { return d.name }
func (d *Datatype) TypeID() string   { return d.id }
func (d *Datatype) Name() string     { return d.name }
func (d *Datatype) Params() []string { return append([]string(nil), d.params...) }

func (d *Datatype) TypeConstructor() *TypeConstructorExtension { return d.typeCons }
func (d *Datatype) Constructors() []*ConstructorExtension {
	return append([]*ConstructorExtension(nil), d.constructors...)
}

// Constructor returns the value constructor with the given name.
func (d *Datatype) Constructor(name string) *ConstructorExtension {
	for _, c := range d.constructors {
		if c.name == name {
			return c
		}
	}
	return nil
}

// Destructor returns the destructor with the given name.
func (d *Datatype) Destructor(name string) *DestructorExtension {
	for _, c := range d.constructors {
		for _, dd := range c.destructors {
			if dd != nil && dd.name == name {
				return dd
			}
		}
	}
	return nil
}

// Extensions returns the type constructor, the value constructors and the
// destructors of the datatype.
func (d *Datatype) Extensions() []Extension {
	out := []Extension{d.typeCons}
	for _, c := range d.constructors {
		out = append(out, c)
		for _, dd := range c.destructors {
			if dd != nil {
				out = append(out, dd)
			}
		}
	}
	return out
}

// Type returns the instance of the datatype for the given arguments.
func (d *Datatype) Type(args ...ts.Type) ts.Type {
	if len(args) != len(d.params) {
		contractViolation("datatype %s takes %d type arguments, got %d", d.name, len(d.params), len(args))
	}
	return ts.ParametricType{Constructor: d, Args: append([]ts.Type(nil), args...)}
}

// instantiate replaces the type parameters of a definition type by args
// and self references by the datatype.
func (d *Datatype) instantiate(t ts.Type, args []ts.Type) ts.Type {
	repl := map[string]ts.Type{}
	for i, p := range d.params {
		repl[p] = args[i]
	}
	return ts.SubstituteGivenTypes(t, repl)
}

func (d *Datatype) freshArgs(u *ts.Unifier) []ts.Type {
	args := make([]ts.Type, len(d.params))
	for i := range args {
		args[i] = u.Fresh()
	}
	return args
}

func (d *Datatype) extID(elem string) string {
	return fmt.Sprintf("%s#%016x/%s", d.name, hashString(d.id), elem)
}

// TypeConstructorExtension is the set of all values of a datatype:
// List(S) ∈ ℙ(List(T)) for S ∈ ℙ(T).
type TypeConstructorExtension struct {
	datatype *Datatype
}

func (e *TypeConstructorExtension) Datatype() *Datatype { return e.datatype }
func (e *TypeConstructorExtension) ID() string          { return e.datatype.extID("type") }

func (e *TypeConstructorExtension) Syntax() Syntax {
	if len(e.datatype.params) == 0 {
		return Syntax{Image: e.datatype.name, Form: ExtAtomic}
	}
	return Syntax{Image: e.datatype.name, Form: ExtParenthesized}
}

func (e *TypeConstructorExtension) Signature() Signature {
	return Signature{Expression: true, Expressions: len(e.datatype.params)}
}

func (e *TypeConstructorExtension) TypeRule(u *ts.Unifier, types []ts.Type) (ts.Type, error) {
	args := e.datatype.freshArgs(u)
	for i, t := range types {
		if err := u.Unify(t, ts.PowerSet(args[i])); err != nil {
			return nil, err
		}
	}
	return ts.PowerSet(ts.ParametricType{Constructor: e.datatype, Args: args}), nil
}

func (e *TypeConstructorExtension) WD(m WDMediator, _ Extended) Predicate { return m.True() }
func (e *TypeConstructorExtension) ConjoinChildrenWD() bool               { return true }

// ConstructorExtension builds a value of a datatype.
type ConstructorExtension struct {
	datatype    *Datatype
	name        string
	argTypes    []ts.Type
	destructors []*DestructorExtension // nil entries for unnamed arguments
}

func (e *ConstructorExtension) Datatype() *Datatype { return e.datatype }
func (e *ConstructorExtension) Name() string        { return e.name }
func (e *ConstructorExtension) ID() string          { return e.datatype.extID(e.name) }
func (e *ConstructorExtension) Arity() int          { return len(e.argTypes) }

// Destructors returns the destructors of the arguments; unnamed arguments
// have a nil entry.
func (e *ConstructorExtension) Destructors() []*DestructorExtension {
	return append([]*DestructorExtension(nil), e.destructors...)
}

// IsBasic reports whether no argument refers to the datatype itself.
func (e *ConstructorExtension) IsBasic() bool {
	for _, t := range e.argTypes {
		if mentionsSelf(t, e.datatype) {
			return false
		}
	}
	return true
}

func (e *ConstructorExtension) Syntax() Syntax {
	if len(e.argTypes) == 0 {
		return Syntax{Image: e.name, Form: ExtAtomic}
	}
	return Syntax{Image: e.name, Form: ExtParenthesized}
}

func (e *ConstructorExtension) Signature() Signature {
	return Signature{Expression: true, Expressions: len(e.argTypes)}
}

func (e *ConstructorExtension) TypeRule(u *ts.Unifier, types []ts.Type) (ts.Type, error) {
	args := e.datatype.freshArgs(u)
	for i, t := range types {
		if err := u.Unify(t, e.datatype.instantiate(e.argTypes[i], args)); err != nil {
			return nil, err
		}
	}
	return ts.ParametricType{Constructor: e.datatype, Args: args}, nil
}

func (e *ConstructorExtension) WD(m WDMediator, _ Extended) Predicate { return m.True() }
func (e *ConstructorExtension) ConjoinChildrenWD() bool               { return true }

// DestructorExtension extracts one argument of a constructor. It is only
// defined on values built by that constructor.
type DestructorExtension struct {
	constructor *ConstructorExtension
	name        string
	position    int
}

func (e *DestructorExtension) Constructor() *ConstructorExtension { return e.constructor }
func (e *DestructorExtension) Name() string                       { return e.name }
func (e *DestructorExtension) ID() string                         { return e.constructor.datatype.extID(e.name) }
func (e *DestructorExtension) Syntax() Syntax                     { return Syntax{Image: e.name, Form: ExtParenthesized} }
func (e *DestructorExtension) Signature() Signature               { return Signature{Expression: true, Expressions: 1} }
func (e *DestructorExtension) ConjoinChildrenWD() bool            { return true }

func (e *DestructorExtension) TypeRule(u *ts.Unifier, types []ts.Type) (ts.Type, error) {
	dt := e.constructor.datatype
	args := dt.freshArgs(u)
	if err := u.Unify(types[0], ts.ParametricType{Constructor: dt, Args: args}); err != nil {
		return nil, err
	}
	return dt.instantiate(e.constructor.argTypes[e.position], args), nil
}

// WD of d(v) is ∃x1,...,xn · v = c(x1,...,xn) where c is the constructor
// of d.
func (e *DestructorExtension) WD(m WDMediator, node Extended) Predicate {
	ff := m.Factory()
	value := node.ChildExpressions()[0]
	pt, ok := value.Type().(ts.ParametricType)
	if !ok {
		return m.True()
	}
	c := e.constructor
	used := UsedNames(value)
	base := make([]string, len(c.argTypes))
	for i := range base {
		base[i] = config.DefaultBoundName
	}
	names := FreshNames(base, used)
	n := len(c.argTypes)
	decls := make([]*BoundIdentDecl, n)
	bound := make([]Expression, n)
	for i := range decls {
		t := c.datatype.instantiate(c.argTypes[i], pt.Args)
		decls[i] = ff.MakeBoundIdentDecl(names[i], nil, t)
		bound[i] = ff.MakeBoundIdentifier(n-1-i, nil, t)
	}
	built := ff.MakeExtendedExpression(c, bound, nil, nil, pt)
	eq := ff.MakeRelationalPredicate(EQUAL, ShiftBoundIdentifiers(value, n), built, nil)
	return ff.MakeQuantifiedPredicate(EXISTS, decls, eq, nil)
}

func mentionsSelf(t ts.Type, d *Datatype) bool {
	switch x := t.(type) {
	case ts.PowerSetType:
		return mentionsSelf(x.Base, d)
	case ts.ProductType:
		return mentionsSelf(x.Left, d) || mentionsSelf(x.Right, d)
	case ts.ParametricType:
		if x.Constructor == ts.TypeConstructor(d) {
			return true
		}
		for _, a := range x.Args {
			if mentionsSelf(a, d) {
				return true
			}
		}
	}
	return false
}

// DatatypeBuilder collects the definition of a datatype. Finalize turns
// it into an immutable, interned Datatype.
type DatatypeBuilder struct {
	name         string
	params       []string
	self         *selfReference
	constructors []*ConstructorBuilder
	finalized    bool
}

// ConstructorBuilder collects the arguments of one constructor.
type ConstructorBuilder struct {
	builder *DatatypeBuilder
	name    string
	args    []argument
}

type argument struct {
	destructor string
	typ        ts.Type
}

// selfReference stands for the datatype being defined until Finalize.
type selfReference struct {
	name string
}

func (s *selfReference) TypeName() string { return s.name }
func (s *selfReference) TypeID() string   { return "\x00self:" + s.name }

// NewDatatypeBuilder starts the definition of a datatype with the given
// type parameters.
func NewDatatypeBuilder(name string, params ...string) *DatatypeBuilder {
	return &DatatypeBuilder{
		name:   name,
		params: append([]string(nil), params...),
		self:   &selfReference{name: name},
	}
}

// Param returns the type standing for a type parameter in argument types.
func (b *DatatypeBuilder) Param(name string) ts.Type {
	for _, p := range b.params {
		if p == name {
			return ts.GivenType{Name: name}
		}
	}
	contractViolation("datatype %s has no type parameter %s", b.name, name)
	return nil
}

// Self returns the type of the datatype being defined, applied to its own
// parameters, for recursive arguments.
func (b *DatatypeBuilder) Self() ts.Type {
	args := make([]ts.Type, len(b.params))
	for i, p := range b.params {
		args[i] = ts.GivenType{Name: p}
	}
	return ts.ParametricType{Constructor: b.self, Args: args}
}

// AddConstructor adds a value constructor. Constructor names must be
// unique within the datatype.
func (b *DatatypeBuilder) AddConstructor(name string) *ConstructorBuilder {
	b.checkOpen()
	c := &ConstructorBuilder{builder: b, name: name}
	b.constructors = append(b.constructors, c)
	return c
}

// AddArgument adds an argument to the constructor. destructor names the
// accessor of the argument and may be empty.
func (c *ConstructorBuilder) AddArgument(destructor string, t ts.Type) *ConstructorBuilder {
	c.builder.checkOpen()
	if t == nil {
		contractViolation("argument of %s without type", c.name)
	}
	c.args = append(c.args, argument{destructor: destructor, typ: t})
	return c
}

func (b *DatatypeBuilder) checkOpen() {
	if b.finalized {
		contractViolation("datatype %s is already finalized", b.name)
	}
}

var (
	datatypesMu sync.Mutex
	datatypes   = map[string]*Datatype{}
)

// Finalize validates the definition and returns the datatype. Two
// builders with the same definition yield the same *Datatype. Invalid
// definitions (duplicate or invalid names, no constructor, no basic
// constructor, recursive use with other arguments) are contract violations.
func (b *DatatypeBuilder) Finalize() *Datatype {
	b.checkOpen()
	b.validate()
	b.finalized = true

	id := b.contentID()
	datatypesMu.Lock()
	defer datatypesMu.Unlock()
	if d, ok := datatypes[id]; ok {
		return d
	}
	d := &Datatype{name: b.name, params: append([]string(nil), b.params...), id: id}
	d.typeCons = &TypeConstructorExtension{datatype: d}
	for _, cb := range b.constructors {
		c := &ConstructorExtension{datatype: d, name: cb.name}
		for i, a := range cb.args {
			c.argTypes = append(c.argTypes, b.replaceSelf(a.typ, d))
			var dd *DestructorExtension
			if a.destructor != "" {
				dd = &DestructorExtension{constructor: c, name: a.destructor, position: i}
			}
			c.destructors = append(c.destructors, dd)
		}
		d.constructors = append(d.constructors, c)
	}
	datatypes[id] = d
	return d
}

func (b *DatatypeBuilder) validate() {
	names := map[string]bool{}
	claim := func(name, what string) {
		if !token.IsValidIdentifierName(name, config.DefaultVersion) {
			contractViolation("invalid %s name %q in datatype %s", what, name, b.name)
		}
		if names[name] {
			contractViolation("duplicate name %q in datatype %s", name, b.name)
		}
		names[name] = true
	}
	claim(b.name, "datatype")
	params := map[string]bool{}
	for _, p := range b.params {
		if !token.IsValidIdentifierName(p, config.DefaultVersion) || params[p] || p == b.name {
			contractViolation("invalid type parameter %q in datatype %s", p, b.name)
		}
		params[p] = true
	}
	if len(b.constructors) == 0 {
		contractViolation("datatype %s has no constructor", b.name)
	}
	basic := false
	for _, c := range b.constructors {
		claim(c.name, "constructor")
		isBasic := true
		for _, a := range c.args {
			if a.destructor != "" {
				claim(a.destructor, "destructor")
			}
			if !b.checkArgType(a.typ) {
				isBasic = false
			}
		}
		basic = basic || isBasic
	}
	if !basic {
		contractViolation("datatype %s has no basic constructor", b.name)
	}
}

// checkArgType validates recursive uses and reports whether t is free of
// them.
func (b *DatatypeBuilder) checkArgType(t ts.Type) bool {
	switch x := t.(type) {
	case ts.PowerSetType:
		return b.checkArgType(x.Base)
	case ts.ProductType:
		l := b.checkArgType(x.Left)
		r := b.checkArgType(x.Right)
		return l && r
	case ts.ParametricType:
		if x.Constructor.TypeID() == b.self.TypeID() {
			if !ts.Equal(t, b.Self()) {
				contractViolation("datatype %s is used with other arguments in its own definition", b.name)
			}
			return false
		}
		ok := true
		for _, a := range x.Args {
			ok = b.checkArgType(a) && ok
		}
		return ok
	case ts.TVar:
		contractViolation("type variable in the definition of %s", b.name)
	}
	return true
}

func (b *DatatypeBuilder) replaceSelf(t ts.Type, d *Datatype) ts.Type {
	switch x := t.(type) {
	case ts.PowerSetType:
		return ts.PowerSetType{Base: b.replaceSelf(x.Base, d)}
	case ts.ProductType:
		return ts.ProductType{Left: b.replaceSelf(x.Left, d), Right: b.replaceSelf(x.Right, d)}
	case ts.ParametricType:
		args := make([]ts.Type, len(x.Args))
		for i, a := range x.Args {
			args[i] = b.replaceSelf(a, d)
		}
		if x.Constructor.TypeID() == b.self.TypeID() {
			return ts.ParametricType{Constructor: d, Args: args}
		}
		return ts.ParametricType{Constructor: x.Constructor, Args: args}
	}
	return t
}

// contentID is a canonical rendering of the definition.
func (b *DatatypeBuilder) contentID() string {
	var sb strings.Builder
	sb.WriteString(b.name)
	sb.WriteString("[" + strings.Join(b.params, ",") + "]")
	for _, c := range b.constructors {
		sb.WriteString(";" + c.name + "(")
		for i, a := range c.args {
			if i > 0 {
				sb.WriteString(",")
			}
			sb.WriteString(a.destructor + ":" + typeIdentity(a.typ))
		}
		sb.WriteString(")")
	}
	return sb.String()
}

// typeIdentity renders t with the identity of parametric constructors so
// that two datatypes with the same name do not collide.
func typeIdentity(t ts.Type) string {
	switch x := t.(type) {
	case ts.PowerSetType:
		return "ℙ(" + typeIdentity(x.Base) + ")"
	case ts.ProductType:
		return "(" + typeIdentity(x.Left) + "×" + typeIdentity(x.Right) + ")"
	case ts.ParametricType:
		args := make([]string, len(x.Args))
		for i, a := range x.Args {
			args[i] = typeIdentity(a)
		}
		return "<" + x.Constructor.TypeID() + ">(" + strings.Join(args, ",") + ")"
	}
	return t.String()
}
