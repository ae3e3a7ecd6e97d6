package ast

import (
	"strconv"
	"strings"

	"github.com/funvibe/formulas/internal/token"
)

// Position addresses a sub-formula by child indices from the root. The
// root is the empty position.
type Position []int

func (p Position) String() string {
	parts := make([]string, len(p))
	for i, c := range p {
		parts[i] = strconv.Itoa(c)
	}
	return strings.Join(parts, ".")
}

// ParsePosition reads a position written as dot-separated child indices.
func ParsePosition(s string) (Position, bool) {
	if s == "" {
		return Position{}, true
	}
	parts := strings.Split(s, ".")
	p := make(Position, len(parts))
	for i, part := range parts {
		n, err := strconv.Atoi(part)
		if err != nil || n < 0 {
			return nil, false
		}
		p[i] = n
	}
	return p, true
}

// Child returns the position of the i-th child of p.
func (p Position) Child(i int) Position {
	out := make(Position, len(p)+1)
	copy(out, p)
	out[len(p)] = i
	return out
}

// Parent returns the position of the parent of p; the root has none.
func (p Position) Parent() (Position, bool) {
	if len(p) == 0 {
		return nil, false
	}
	return p[:len(p)-1], true
}

// SubFormula returns the node of f at pos, or nil if pos is not valid.
func SubFormula(f Formula, pos Position) Formula {
	for _, i := range pos {
		children := f.Children()
		if i < 0 || i >= len(children) {
			return nil
		}
		f = children[i]
	}
	return f
}

// PositionOf returns the position of the innermost node of f whose source
// location contains loc, or false when no node does.
func PositionOf(f Formula, loc *token.SourceLocation) (Position, bool) {
	if loc == nil || !f.Location().Contains(loc) {
		return nil, false
	}
	pos := Position{}
	for {
		next := -1
		for i, c := range f.Children() {
			if c.Location().Contains(loc) {
				next = i
				break
			}
		}
		if next < 0 {
			return pos, true
		}
		pos = pos.Child(next)
		f = f.Children()[next]
	}
}
