package lexer

import (
	"math/big"
	"unicode"

	"golang.org/x/text/unicode/norm"

	"github.com/funvibe/formulas/internal/config"
	"github.com/funvibe/formulas/internal/diagnostics"
	"github.com/funvibe/formulas/internal/token"
)

// Options configures a lexer run.
type Options struct {
	Version config.LanguageVersion
	// Words and Symbols are images contributed by extensions.
	Words   []string
	Symbols []string
	// Origin is copied into every source location.
	Origin any
}

type Lexer struct {
	input    []rune
	position int  // current position in input (points to current char)
	ch       rune // current char under examination
	table    *token.SymbolTable
	origin   any
	problems []*diagnostics.Problem
}

func New(input string, opts Options) *Lexer {
	version := opts.Version
	if version == 0 {
		version = config.DefaultVersion
	}
	table := token.DefaultTable(version)
	if len(opts.Words) > 0 || len(opts.Symbols) > 0 {
		table = token.NewSymbolTable(version, opts.Words, opts.Symbols)
	}
	l := &Lexer{input: []rune(input), position: -1, table: table, origin: opts.Origin}
	if !norm.NFC.IsNormalString(input) {
		l.problems = append(l.problems, diagnostics.NewWarning(diagnostics.NotNormalizedInput, nil))
	}
	l.readChar()
	return l
}

func (l *Lexer) readChar() {
	l.position++
	if l.position >= len(l.input) {
		l.ch = 0
		l.position = len(l.input)
		return
	}
	l.ch = l.input[l.position]
}

func (l *Lexer) peekChar() rune {
	if l.position+1 >= len(l.input) {
		return 0
	}
	return l.input[l.position+1]
}

// Problems returns the warnings collected so far.
func (l *Lexer) Problems() []*diagnostics.Problem {
	return l.problems
}

func (l *Lexer) loc(start, end int) token.SourceLocation {
	return token.SourceLocation{Start: start, End: end, Origin: l.origin}
}

// NextToken returns the next token. Unknown characters are reported as
// warnings and skipped.
func (l *Lexer) NextToken() token.Token {
	for {
		l.skipWhitespace()
		if l.position >= len(l.input) {
			return token.Token{Type: token.EOF, Loc: l.loc(l.position, l.position)}
		}
		start := l.position
		switch {
		case l.ch == '$' && token.IsIdentStart(l.peekChar()):
			l.readChar()
			name := "$" + l.readIdentifier()
			return token.Token{Type: token.PREDVAR, Lexeme: name, Literal: name, Loc: l.loc(start, l.position-1)}
		case isDigit(l.ch):
			return l.readNumber()
		case token.IsIdentStart(l.ch) && !l.table.IsSymbolStart(l.ch):
			return l.readWord()
		case l.table.IsSymbolStart(l.ch):
			if spelling, image, ok := l.table.Match(l.input[l.position:]); ok {
				n := len([]rune(spelling))
				for i := 0; i < n; i++ {
					l.readChar()
				}
				return token.Token{Type: token.TypeOf(image), Lexeme: spelling, Literal: image, Loc: l.loc(start, start+n-1)}
			}
		}
		loc := l.loc(start, start)
		l.problems = append(l.problems, diagnostics.NewWarning(diagnostics.LexerError, &loc, string(l.ch)))
		l.readChar()
	}
}

// readWord reads an identifier or a word keyword.
func (l *Lexer) readWord() token.Token {
	start := l.position
	word := l.readIdentifier()
	if image, ok := l.table.Keyword(word); ok {
		return token.Token{Type: token.TypeOf(image), Lexeme: word, Literal: image, Loc: l.loc(start, l.position-1)}
	}
	if l.ch == '\'' {
		word += "'"
		l.readChar()
		for l.ch == '\'' {
			loc := l.loc(l.position, l.position)
			l.problems = append(l.problems, diagnostics.NewWarning(diagnostics.LexerError, &loc, "'"))
			l.readChar()
		}
	}
	return token.Token{Type: token.IDENT, Lexeme: word, Literal: norm.NFC.String(word), Loc: l.loc(start, l.position-1)}
}

func (l *Lexer) readIdentifier() string {
	start := l.position
	for l.position < len(l.input) && token.IsIdentPart(l.ch) && !l.table.IsSymbolStart(l.ch) {
		l.readChar()
	}
	return string(l.input[start:l.position])
}

func (l *Lexer) readNumber() token.Token {
	start := l.position
	for isDigit(l.ch) {
		l.readChar()
	}
	text := string(l.input[start:l.position])
	value, _ := new(big.Int).SetString(text, 10)
	return token.Token{Type: token.INT, Lexeme: text, Literal: value, Loc: l.loc(start, l.position-1)}
}

func (l *Lexer) skipWhitespace() {
	for l.position < len(l.input) && unicode.IsSpace(l.ch) {
		l.readChar()
	}
}

func isDigit(ch rune) bool {
	return '0' <= ch && ch <= '9'
}

// Scan scans the whole input. The returned slice always ends with EOF.
func Scan(input string, opts Options) ([]token.Token, []*diagnostics.Problem) {
	l := New(input, opts)
	var tokens []token.Token
	for {
		tok := l.NextToken()
		tokens = append(tokens, tok)
		if tok.Type == token.EOF {
			break
		}
	}
	return tokens, l.Problems()
}
