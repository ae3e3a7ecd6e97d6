package ast

import (
	"fmt"
	"slices"
	"sort"
	"strings"
	"sync"

	"github.com/google/uuid"

	"github.com/funvibe/formulas/internal/config"
	"github.com/funvibe/formulas/internal/token"
	"github.com/funvibe/formulas/internal/typesystem"
)

const firstExtensionTag = Tag(config.FirstExtensionTag)

// ContractError is the panic value raised when a caller breaks the
// contract of the construction API (wrong tag, foreign child, invalid
// datatype definition...). It denotes a programming error, never bad input.
type ContractError struct {
	Msg string
}

func (e *ContractError) Error() string { return "formula contract violation: " + e.Msg }

func contractViolation(format string, args ...any) {
	panic(&ContractError{Msg: fmt.Sprintf(format, args...)})
}

// Factory builds formulas. Each factory owns the set of extensions its
// formulas may use; nodes of different factories never mix.
type Factory struct {
	id      uuid.UUID
	exts    map[Tag]Extension
	tags    map[string]Tag
	ordered []Extension
	grammar *Grammar
}

var (
	defaultOnce    sync.Once
	defaultFactory *Factory

	instancesMu sync.Mutex
	instances   = map[string]*Factory{}
)

// Default returns the factory without extensions.
func Default() *Factory {
	defaultOnce.Do(func() {
		defaultFactory = newFactory(nil)
	})
	return defaultFactory
}

// GetInstance returns the factory holding exactly the given extensions.
// Tags are assigned in increasing extension id order starting at 2001, so
// the same set always yields the same tags. Asking twice for the same set
// returns the same factory.
func GetInstance(exts ...Extension) (*Factory, error) {
	byID := map[string]Extension{}
	for _, e := range exts {
		if e == nil {
			return nil, fmt.Errorf("nil extension")
		}
		if prev, ok := byID[e.ID()]; ok && prev != e {
			return nil, fmt.Errorf("two different extensions with id %q", e.ID())
		}
		byID[e.ID()] = e
	}
	if len(byID) == 0 {
		return Default(), nil
	}
	unique := make([]Extension, 0, len(byID))
	for _, e := range byID {
		unique = append(unique, e)
	}
	sort.Slice(unique, func(i, j int) bool { return unique[i].ID() < unique[j].ID() })

	if err := checkImages(unique); err != nil {
		return nil, err
	}

	ids := make([]string, len(unique))
	for i, e := range unique {
		ids[i] = e.ID()
	}
	key := strings.Join(ids, "\x00")

	instancesMu.Lock()
	defer instancesMu.Unlock()
	if ff, ok := instances[key]; ok && sameExtensions(ff, unique) {
		return ff, nil
	}
	ff := newFactory(unique)
	instances[key] = ff
	return ff, nil
}

func sameExtensions(ff *Factory, exts []Extension) bool {
	for i, e := range exts {
		if ff.ordered[i] != e {
			return false
		}
	}
	return true
}

func checkImages(exts []Extension) error {
	seen := map[string]string{}
	builtin := DefaultGrammar()
	for _, e := range exts {
		img := e.Syntax().Image
		if img == "" {
			return fmt.Errorf("extension %q has no image", e.ID())
		}
		if builtin.HasImage(img) || isReservedWord(img) {
			return fmt.Errorf("extension %q: image %q is already used by the notation", e.ID(), img)
		}
		if other, ok := seen[img]; ok {
			return fmt.Errorf("extensions %q and %q share the image %q", other, e.ID(), img)
		}
		seen[img] = e.ID()
	}
	return nil
}

func isReservedWord(img string) bool {
	for _, v := range []config.LanguageVersion{config.V1, config.V2} {
		if _, ok := token.DefaultTable(v).Keyword(img); ok {
			return true
		}
	}
	return false
}

func newFactory(exts []Extension) *Factory {
	ff := &Factory{
		id:      uuid.New(),
		exts:    map[Tag]Extension{},
		tags:    map[string]Tag{},
		ordered: exts,
	}
	for i, e := range exts {
		tag := firstExtensionTag + Tag(i)
		ff.exts[tag] = e
		ff.tags[e.ID()] = tag
	}
	ff.grammar = newGrammar(ff)
	return ff
}

// ID identifies the factory for diagnostics and logs.
func (ff *Factory) ID() uuid.UUID { return ff.id }

// Extensions returns the extensions of the factory in tag order.
func (ff *Factory) Extensions() []Extension {
	return append([]Extension(nil), ff.ordered...)
}

// Extension returns the extension registered under tag.
func (ff *Factory) Extension(tag Tag) (Extension, bool) {
	e, ok := ff.exts[tag]
	return e, ok
}

// TagOf returns the tag assigned to ext by this factory.
func (ff *Factory) TagOf(ext Extension) (Tag, bool) {
	tag, ok := ff.tags[ext.ID()]
	if !ok || ff.exts[tag] != ext {
		return 0, false
	}
	return tag, true
}

// Grammar returns the operator table of the factory, including the images
// of its extensions.
func (ff *Factory) Grammar() *Grammar { return ff.grammar }

// IsValidIdentifierName reports whether name can be used as an identifier
// in some language version and does not clash with an extension image.
func (ff *Factory) IsValidIdentifierName(name string) bool {
	if !token.IsValidIdentifierName(name, config.V1) && !token.IsValidIdentifierName(name, config.V2) {
		return false
	}
	return !slices.Contains(ff.grammar.Words(), strings.TrimSuffix(name, "'"))
}

func (ff *Factory) String() string {
	return fmt.Sprintf("Factory(%s, %d extensions)", ff.id, len(ff.ordered))
}

func (ff *Factory) checkTag(tag Tag, kind Kind) {
	if KindOf(tag) != kind {
		contractViolation("tag %d is not valid for this node kind", tag)
	}
}

func (ff *Factory) checkChildren(children []Formula) {
	for _, c := range children {
		if c == nil {
			contractViolation("nil child")
		}
		if c.Factory() != ff {
			contractViolation("child %s was built by another factory", c)
		}
	}
}

// checkType rejects parametric types whose constructor is not an
// extension of this factory.
func (ff *Factory) checkType(t typesystem.Type) {
	if t == nil {
		return
	}
	var walk func(typesystem.Type)
	walk = func(t typesystem.Type) {
		switch x := t.(type) {
		case typesystem.PowerSetType:
			walk(x.Base)
		case typesystem.ProductType:
			walk(x.Left)
			walk(x.Right)
		case typesystem.ParametricType:
			if !ff.hasTypeConstructor(x.Constructor) {
				contractViolation("type %s is not supported by this factory", t)
			}
			for _, a := range x.Args {
				walk(a)
			}
		}
	}
	walk(t)
}

func (ff *Factory) hasTypeConstructor(c typesystem.TypeConstructor) bool {
	for _, e := range ff.ordered {
		if tc, ok := e.(*TypeConstructorExtension); ok && tc.datatype.TypeID() == c.TypeID() {
			return true
		}
	}
	return false
}
