package typesystem

import (
	"sort"
	"strings"
)

// Environment maps free identifier names to their types. It is owned by
// whoever created it and must not be shared between concurrent checks.
type Environment struct {
	types map[string]Type
}

func NewEnvironment() *Environment {
	return &Environment{types: make(map[string]Type)}
}

// Add records the type of name, replacing any previous entry.
func (e *Environment) Add(name string, t Type) {
	e.types[name] = t
}

// AddGivenSet records S ⦂ ℙ(S).
func (e *Environment) AddGivenSet(name string) {
	e.types[name] = PowerSet(GivenType{Name: name})
}

func (e *Environment) Get(name string) (Type, bool) {
	if e == nil {
		return nil, false
	}
	t, ok := e.types[name]
	return t, ok
}

func (e *Environment) Contains(name string) bool {
	_, ok := e.Get(name)
	return ok
}

func (e *Environment) Len() int {
	if e == nil {
		return 0
	}
	return len(e.types)
}

// Names returns the names of the environment in lexicographic order.
func (e *Environment) Names() []string {
	if e == nil {
		return nil
	}
	names := make([]string, 0, len(e.types))
	for n := range e.types {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

func (e *Environment) Clone() *Environment {
	c := NewEnvironment()
	if e != nil {
		for k, v := range e.types {
			c.types[k] = v
		}
	}
	return c
}

func (e *Environment) String() string {
	parts := []string{}
	for _, n := range e.Names() {
		parts = append(parts, n+"⦂"+e.types[n].String())
	}
	return "{" + strings.Join(parts, ", ") + "}"
}
