package ast

import (
	"strconv"
	"strings"
	"unicode"

	"github.com/hashicorp/go-set/v3"
)

// StructuredName splits an identifier name into a prefix, an optional
// numeric suffix and trailing primes: x12' is {x, 12, 1}.
type StructuredName struct {
	Prefix string
	Suffix int // -1 when absent
	Primes int
}

func ParseStructuredName(name string) StructuredName {
	n := StructuredName{Suffix: -1}
	for strings.HasSuffix(name, "'") {
		name = name[:len(name)-1]
		n.Primes++
	}
	i := len(name)
	for i > 0 && name[i-1] >= '0' && name[i-1] <= '9' {
		i--
	}
	// A name made only of digits cannot lose its first rune, and a suffix
	// with a leading zero other than "0" would not print back the same.
	if i == 0 || i == len(name) || (name[i] == '0' && i < len(name)-1) {
		n.Prefix = name
		return n
	}
	if r := []rune(name[:i]); !unicode.IsLetter(r[len(r)-1]) && r[len(r)-1] != '_' {
		n.Prefix = name
		return n
	}
	v, err := strconv.Atoi(name[i:])
	if err != nil {
		n.Prefix = name
		return n
	}
	n.Prefix = name[:i]
	n.Suffix = v
	return n
}

func (n StructuredName) String() string {
	var sb strings.Builder
	sb.WriteString(n.Prefix)
	if n.Suffix >= 0 {
		sb.WriteString(strconv.Itoa(n.Suffix))
	}
	sb.WriteString(strings.Repeat("'", n.Primes))
	return sb.String()
}

// freshNamer hands out names that are not in used. Suffixes of a prefix
// only grow: once x3 was handed out or skipped, x2 is never proposed again.
type freshNamer struct {
	used *set.Set[string]
	next map[string]int
}

func newFreshNamer(used *set.Set[string]) *freshNamer {
	if used == nil {
		used = set.New[string](0)
	}
	return &freshNamer{used: used, next: map[string]int{}}
}

func (f *freshNamer) fresh(base string) string {
	if !f.used.Contains(base) {
		f.used.Insert(base)
		return base
	}
	n := ParseStructuredName(base)
	key := n.Prefix + strings.Repeat("'", n.Primes)
	suffix := f.next[key]
	if n.Suffix+1 > suffix {
		suffix = n.Suffix + 1
	}
	for {
		n.Suffix = suffix
		name := n.String()
		suffix++
		if !f.used.Contains(name) {
			f.next[key] = suffix
			f.used.Insert(name)
			return name
		}
	}
}

// FreshNames returns one name per base that is not in used, keeping bases
// that do not collide. Colliding bases get increasing numeric suffixes:
// x, x, y against {x} gives x0, x1, y. The returned names are added to
// used.
func FreshNames(bases []string, used *set.Set[string]) []string {
	namer := newFreshNamer(used)
	out := make([]string, len(bases))
	for i, b := range bases {
		out[i] = namer.fresh(b)
	}
	return out
}

// FreshName returns a single fresh name for base.
func FreshName(base string, used *set.Set[string]) string {
	return FreshNames([]string{base}, used)[0]
}

// ResolveIdents returns names for decls that do not collide with used nor
// with each other.
func ResolveIdents(decls []*BoundIdentDecl, used *set.Set[string]) []string {
	bases := make([]string, len(decls))
	for i, d := range decls {
		bases[i] = d.name
	}
	return FreshNames(bases, used)
}

// UsedNames returns the names of the free identifiers of the formulas.
func UsedNames(fs ...Formula) *set.Set[string] {
	used := set.New[string](0)
	for _, f := range fs {
		for _, id := range f.FreeIdentifiers() {
			used.Insert(id.name)
		}
	}
	return used
}
