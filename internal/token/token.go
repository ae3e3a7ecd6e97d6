package token

import "fmt"

type TokenType string

const (
	EOF     TokenType = "EOF"
	IDENT   TokenType = "IDENT"   // x, x', card_1
	PREDVAR TokenType = "PREDVAR" // $P
	INT     TokenType = "INT"     // 42
	SYMBOL  TokenType = "SYMBOL"  // operator or keyword image: ∧, card, ℤ, ...

	LPAREN   TokenType = "("
	RPAREN   TokenType = ")"
	LBRACKET TokenType = "["
	RBRACKET TokenType = "]"
	LBRACE   TokenType = "{"
	RBRACE   TokenType = "}"
	COMMA    TokenType = ","
	DOT      TokenType = "·"
	MID      TokenType = "∣"
	OFTYPE   TokenType = "⦂"
	BECEQ    TokenType = "≔"
	BECMEM   TokenType = ":∈"
	BECST    TokenType = ":∣"
)

// SourceLocation is a span of runes in the parsed text. End is inclusive.
// Origin is an opaque value supplied by the caller of the parser
// (typically the element the text was read from).
type SourceLocation struct {
	Start  int
	End    int
	Origin any
}

func NewSourceLocation(start, end int, origin any) *SourceLocation {
	return &SourceLocation{Start: start, End: end, Origin: origin}
}

// Contains reports whether other lies within l.
func (l *SourceLocation) Contains(other *SourceLocation) bool {
	if l == nil || other == nil {
		return false
	}
	return l.Start <= other.Start && other.End <= l.End
}

// Span returns a location covering both l and other.
func (l *SourceLocation) Span(other *SourceLocation) *SourceLocation {
	if l == nil {
		return other
	}
	if other == nil {
		return l
	}
	start, end := l.Start, l.End
	if other.Start < start {
		start = other.Start
	}
	if other.End > end {
		end = other.End
	}
	return &SourceLocation{Start: start, End: end, Origin: l.Origin}
}

func (l *SourceLocation) String() string {
	if l == nil {
		return "<nowhere>"
	}
	return fmt.Sprintf("%d:%d", l.Start, l.End)
}

type Token struct {
	Type    TokenType
	Lexeme  string // text as written (ASCII alternatives included)
	Literal any    // normalised value: symbol image, identifier name, *big.Int
	Loc     SourceLocation
}

// Image returns the normalised text of the token.
func (t Token) Image() string {
	if s, ok := t.Literal.(string); ok {
		return s
	}
	return t.Lexeme
}

func (t Token) String() string {
	return fmt.Sprintf("%s(%q)@%d", t.Type, t.Image(), t.Loc.Start)
}
