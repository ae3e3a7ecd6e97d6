package token

import (
	"sort"
	"unicode"

	"github.com/funvibe/formulas/internal/config"
)

// Punctuation images that get their own token type.
var punctuation = map[string]TokenType{
	"(":  LPAREN,
	")":  RPAREN,
	"[":  LBRACKET,
	"]":  RBRACKET,
	"{":  LBRACE,
	"}":  RBRACE,
	",":  COMMA,
	"·":  DOT,
	"∣":  MID,
	"⦂":  OFTYPE,
	"≔":  BECEQ,
	":∈": BECMEM,
	":∣": BECST,
}

// Unicode operator images that are not words.
var unicodeSymbols = []string{
	"⇔", "⇒", "∧", "∨", "¬", "⊤", "⊥", "∀", "∃",
	"=", "≠", "<", "≤", ">", "≥", "∈", "∉", "⊂", "⊄", "⊆", "⊈",
	"↦", "↔", "\ue100", "\ue101", "\ue102", "⇸", "→", "⤔", "↣", "⤀", "↠", "⤖",
	"∪", "∩", "∖", "×", "⊗", "∥", "◁", "⩤", "▷", "⩥", "∘", ";", "\ue103",
	"‥", "+", "−", "∗", "÷", "^", "∼",
	"ℙ", "ℙ1", "ℤ", "ℕ", "ℕ1", "∅", "λ", "⋃", "⋂",
}

// ASCII spellings accepted on input, mapped to their Unicode image.
var asciiSymbols = map[string]string{
	"<=>":   "⇔",
	"=>":    "⇒",
	"&":     "∧",
	"!":     "∀",
	"#":     "∃",
	"/=":    "≠",
	"<=":    "≤",
	">=":    "≥",
	":":     "∈",
	"/:":    "∉",
	"<<:":   "⊂",
	"/<<:":  "⊄",
	"<:":    "⊆",
	"/<:":   "⊈",
	"|->":   "↦",
	"<->":   "↔",
	"<<->":  "\ue100",
	"<->>":  "\ue101",
	"<<->>": "\ue102",
	"+->":   "⇸",
	"-->":   "→",
	">+>":   "⤔",
	">->":   "↣",
	"+>>":   "⤀",
	"->>":   "↠",
	">->>":  "⤖",
	"\\/":   "∪",
	"/\\":   "∩",
	"\\":    "∖",
	"**":    "×",
	"><":    "⊗",
	"||":    "∥",
	"<|":    "◁",
	"<<|":   "⩤",
	"|>":    "▷",
	"|>>":   "⩥",
	"<+":    "\ue103",
	"..":    "‥",
	"-":     "−",
	"*":     "∗",
	"/":     "÷",
	"~":     "∼",
	"%":     "λ",
	":=":    "≔",
	"::":    ":∈",
	":|":    ":∣",
	".":     "·",
	"|":     "∣",
}

// Word keywords common to every language version.
var commonKeywords = map[string]string{
	"mod":    "mod",
	"card":   "card",
	"union":  "union",
	"inter":  "inter",
	"dom":    "dom",
	"ran":    "ran",
	"min":    "min",
	"max":    "max",
	"bool":   "bool",
	"finite": "finite",
	"pred":   "pred",
	"succ":   "succ",
	"prj1":   "prj1",
	"prj2":   "prj2",
	"id":     "id",
	"BOOL":   "BOOL",
	"TRUE":   "TRUE",
	"FALSE":  "FALSE",
	"INT":    "ℤ",
	"NAT":    "ℕ",
	"NAT1":   "ℕ1",
	"POW":    "ℙ",
	"POW1":   "ℙ1",
	"UNION":  "⋃",
	"INTER":  "⋂",
	"true":   "⊤",
	"false":  "⊥",
}

// Keywords added by a language version.
var versionKeywords = map[config.LanguageVersion]map[string]string{
	config.V1: {},
	config.V2: {"partition": "partition"},
}

// SymbolTable is the longest-match table used by the lexer. It is built
// per language version and extended with extension images.
type SymbolTable struct {
	symbols  map[string]string // spelling → image
	lengths  []int             // distinct spelling lengths in runes, descending
	keywords map[string]string // word → image
	starts   map[rune]bool
}

// NewSymbolTable builds the table for a version. extraWords and
// extraSymbols are extension images (words like "cons", symbols like "⊕").
func NewSymbolTable(version config.LanguageVersion, extraWords, extraSymbols []string) *SymbolTable {
	st := &SymbolTable{
		symbols:  map[string]string{},
		keywords: map[string]string{},
		starts:   map[rune]bool{},
	}
	for p := range punctuation {
		st.addSymbol(p, p)
	}
	for _, s := range unicodeSymbols {
		st.addSymbol(s, s)
	}
	for s, img := range asciiSymbols {
		st.addSymbol(s, img)
	}
	for _, s := range extraSymbols {
		st.addSymbol(s, s)
	}
	for w, img := range commonKeywords {
		st.keywords[w] = img
	}
	for w, img := range versionKeywords[version] {
		st.keywords[w] = img
	}
	for _, w := range extraWords {
		st.keywords[w] = w
	}
	seen := map[int]bool{}
	for s := range st.symbols {
		n := len([]rune(s))
		if !seen[n] {
			seen[n] = true
			st.lengths = append(st.lengths, n)
		}
	}
	sort.Sort(sort.Reverse(sort.IntSlice(st.lengths)))
	return st
}

func (st *SymbolTable) addSymbol(spelling, image string) {
	st.symbols[spelling] = image
	st.starts[[]rune(spelling)[0]] = true
}

// IsSymbolStart reports whether r can start a non-word symbol.
func (st *SymbolTable) IsSymbolStart(r rune) bool {
	return st.starts[r]
}

// Match returns the longest symbol at the start of input.
func (st *SymbolTable) Match(input []rune) (spelling, image string, ok bool) {
	for _, n := range st.lengths {
		if n > len(input) {
			continue
		}
		s := string(input[:n])
		if img, found := st.symbols[s]; found {
			return s, img, true
		}
	}
	return "", "", false
}

// Keyword returns the image of a word keyword.
func (st *SymbolTable) Keyword(word string) (string, bool) {
	img, ok := st.keywords[word]
	return img, ok
}

// TypeOf returns the token type for a symbol image.
func TypeOf(image string) TokenType {
	if t, ok := punctuation[image]; ok {
		return t
	}
	return SYMBOL
}

// IsIdentStart reports whether r may start an identifier.
func IsIdentStart(r rune) bool {
	return r == '_' || unicode.IsLetter(r)
}

// IsIdentPart reports whether r may continue an identifier.
func IsIdentPart(r rune) bool {
	return r == '_' || unicode.IsLetter(r) || unicode.IsDigit(r) || unicode.IsMark(r)
}

var defaultTables = map[config.LanguageVersion]*SymbolTable{
	config.V1: NewSymbolTable(config.V1, nil, nil),
	config.V2: NewSymbolTable(config.V2, nil, nil),
}

// DefaultTable returns the table of a version without extensions.
func DefaultTable(version config.LanguageVersion) *SymbolTable {
	if st, ok := defaultTables[version]; ok {
		return st
	}
	return defaultTables[config.DefaultVersion]
}

// IsValidIdentifierName reports whether name would be lexed as a single
// identifier in the given version: letters, digits and underscores, an
// optional trailing prime, and no keyword clash.
func IsValidIdentifierName(name string, version config.LanguageVersion) bool {
	runes := []rune(name)
	if len(runes) == 0 {
		return false
	}
	if runes[len(runes)-1] == '\'' {
		runes = runes[:len(runes)-1]
		if len(runes) == 0 {
			return false
		}
	}
	st := DefaultTable(version)
	if !IsIdentStart(runes[0]) || st.IsSymbolStart(runes[0]) {
		return false
	}
	for _, r := range runes[1:] {
		if !IsIdentPart(r) || st.IsSymbolStart(r) {
			return false
		}
	}
	if _, isKeyword := st.Keyword(string(runes)); isKeyword {
		return false
	}
	return true
}
