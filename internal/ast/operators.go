package ast

import (
	"sort"

	"github.com/funvibe/formulas/internal/config"
	"github.com/funvibe/formulas/internal/token"
)

// Assoc is the associativity of an infix operator.
type Assoc int

const (
	AssocNone Assoc = iota
	AssocLeft
	AssocRight
	// AssocFlat operators build one associative node for a whole chain.
	AssocFlat
)

// Notation is the syntactic shape of an operator.
type Notation int

const (
	Infix Notation = iota
	Prefix
	Postfix
	// Functional operators are written image(args).
	Functional
	Atom
	// Binder operators introduce bound identifiers.
	Binder
	// Relational operators build a predicate from two expressions.
	Relational
)

// Expression priorities, loosest first.
const (
	PrioMaplet = 1 + iota
	PrioArrow
	PrioBinop
	PrioInterval
	PrioAdditive
	PrioUnaryMinus
	PrioMultiplicative
	PrioPower
	PrioPostfix
	PrioAtom
)

// Predicate priorities, loosest first.
const (
	PrioQuantified = iota
	PrioImplication
	PrioConnective
	PrioNegation
	PrioPredicateAtom
)

// Operator is one entry of the operator table.
type Operator struct {
	Tag       Tag
	Image     string
	Notation  Notation
	Predicate bool
	Priority  int
	Assoc     Assoc
	// Spaced operators are printed with a space on each side.
	Spaced bool
	// Ext is set for the operators of extensions.
	Ext Extension

	only config.LanguageVersion // 0 for every version
}

// In reports whether the operator exists in version v.
func (op *Operator) In(v config.LanguageVersion) bool {
	return op.only == 0 || op.only == v
}

// Grouping says how a b c groups for a followed by c at the same level.
type Grouping int

const (
	// GroupLeft is (a ⊕ b) ⊗ c.
	GroupLeft Grouping = iota
	// GroupRight is a ⊕ (b ⊗ c).
	GroupRight
	// GroupFlatten extends an associative chain a ⊕ b ⊕ c.
	GroupFlatten
	// GroupIncompatible requires explicit parentheses.
	GroupIncompatible
)

// Grammar is the operator table of a factory.
type Grammar struct {
	ops     []*Operator
	byTag   map[Tag]*Operator
	byImage map[string][]*Operator
	words   []string
	symbols []string
}

// Pairs of distinct same-priority operators where a ⊕ b ⊗ c is (a ⊕ b) ⊗ c.
var leftCompatible = map[[2]Tag]bool{
	{BINTER, SETMINUS}: true,
	{BINTER, RANRES}:   true,
	{BINTER, RANSUB}:   true,
	{FCOMP, RANRES}:    true,
	{FCOMP, RANSUB}:    true,
	{DOMRES, FCOMP}:    true,
	{DOMSUB, FCOMP}:    true,
	{PLUS, MINUS}:      true,
	{MINUS, PLUS}:      true,
	{MUL, DIV}:         true,
	{MUL, MOD}:         true,
	{DIV, MUL}:         true,
	{DIV, MOD}:         true,
	{MOD, MUL}:         true,
	{MOD, DIV}:         true,
}

func builtinOperators() []*Operator {
	infix := func(tag Tag, img string, prio int, assoc Assoc) *Operator {
		return &Operator{Tag: tag, Image: img, Notation: Infix, Priority: prio, Assoc: assoc}
	}
	atom := func(tag Tag, img string) *Operator {
		return &Operator{Tag: tag, Image: img, Notation: Atom, Priority: PrioAtom}
	}
	fn := func(tag Tag, img string) *Operator {
		return &Operator{Tag: tag, Image: img, Notation: Functional, Priority: PrioAtom}
	}
	rel := func(tag Tag, img string) *Operator {
		return &Operator{Tag: tag, Image: img, Notation: Relational, Predicate: true, Priority: PrioPredicateAtom}
	}
	ops := []*Operator{
		{Tag: LIMP, Image: "⇒", Notation: Infix, Predicate: true, Priority: PrioImplication, Spaced: true},
		{Tag: LEQV, Image: "⇔", Notation: Infix, Predicate: true, Priority: PrioImplication, Spaced: true},
		{Tag: LAND, Image: "∧", Notation: Infix, Predicate: true, Priority: PrioConnective, Assoc: AssocFlat, Spaced: true},
		{Tag: LOR, Image: "∨", Notation: Infix, Predicate: true, Priority: PrioConnective, Assoc: AssocFlat, Spaced: true},
		{Tag: NOT, Image: "¬", Notation: Prefix, Predicate: true, Priority: PrioNegation},
		{Tag: FORALL, Image: "∀", Notation: Binder, Predicate: true, Priority: PrioQuantified},
		{Tag: EXISTS, Image: "∃", Notation: Binder, Predicate: true, Priority: PrioQuantified},
		{Tag: BTRUE, Image: "⊤", Notation: Atom, Predicate: true, Priority: PrioPredicateAtom},
		{Tag: BFALSE, Image: "⊥", Notation: Atom, Predicate: true, Priority: PrioPredicateAtom},
		{Tag: KFINITE, Image: "finite", Notation: Functional, Predicate: true, Priority: PrioPredicateAtom},
		{Tag: KPARTITION, Image: "partition", Notation: Functional, Predicate: true, Priority: PrioPredicateAtom, only: config.V2},

		rel(EQUAL, "="), rel(NOTEQUAL, "≠"), rel(LT, "<"), rel(LE, "≤"), rel(GT, ">"), rel(GE, "≥"),
		rel(IN, "∈"), rel(NOTIN, "∉"), rel(SUBSET, "⊂"), rel(NOTSUBSET, "⊄"), rel(SUBSETEQ, "⊆"), rel(NOTSUBSETEQ, "⊈"),

		{Tag: MAPSTO, Image: "↦", Notation: Infix, Priority: PrioMaplet, Assoc: AssocLeft, Spaced: true},
		infix(REL, "↔", PrioArrow, AssocRight),
		infix(TREL, "\ue100", PrioArrow, AssocRight),
		infix(SREL, "\ue101", PrioArrow, AssocRight),
		infix(STREL, "\ue102", PrioArrow, AssocRight),
		infix(PFUN, "⇸", PrioArrow, AssocRight),
		infix(TFUN, "→", PrioArrow, AssocRight),
		infix(PINJ, "⤔", PrioArrow, AssocRight),
		infix(TINJ, "↣", PrioArrow, AssocRight),
		infix(PSUR, "⤀", PrioArrow, AssocRight),
		infix(TSUR, "↠", PrioArrow, AssocRight),
		infix(TBIJ, "⤖", PrioArrow, AssocRight),
		infix(BUNION, "∪", PrioBinop, AssocFlat),
		infix(BINTER, "∩", PrioBinop, AssocFlat),
		infix(SETMINUS, "∖", PrioBinop, AssocNone),
		infix(CPROD, "×", PrioBinop, AssocLeft),
		infix(DPROD, "⊗", PrioBinop, AssocNone),
		infix(PPROD, "∥", PrioBinop, AssocNone),
		infix(DOMRES, "◁", PrioBinop, AssocNone),
		infix(DOMSUB, "⩤", PrioBinop, AssocNone),
		infix(RANRES, "▷", PrioBinop, AssocNone),
		infix(RANSUB, "⩥", PrioBinop, AssocNone),
		infix(BCOMP, "∘", PrioBinop, AssocFlat),
		infix(FCOMP, ";", PrioBinop, AssocFlat),
		infix(OVR, "\ue103", PrioBinop, AssocFlat),
		infix(UPTO, "‥", PrioInterval, AssocNone),
		infix(PLUS, "+", PrioAdditive, AssocFlat),
		infix(MINUS, "−", PrioAdditive, AssocLeft),
		{Tag: UNMINUS, Image: "−", Notation: Prefix, Priority: PrioUnaryMinus},
		infix(MUL, "∗", PrioMultiplicative, AssocFlat),
		infix(DIV, "÷", PrioMultiplicative, AssocLeft),
		infix(MOD, "mod", PrioMultiplicative, AssocLeft),
		infix(EXPN, "^", PrioPower, AssocLeft),
		{Tag: CONVERSE, Image: "∼", Notation: Postfix, Priority: PrioPostfix},
		{Tag: FUNIMAGE, Image: "(", Notation: Postfix, Priority: PrioPostfix},
		{Tag: RELIMAGE, Image: "[", Notation: Postfix, Priority: PrioPostfix},

		atom(INTEGER, "ℤ"), atom(NATURAL, "ℕ"), atom(NATURAL1, "ℕ1"), atom(BOOL, "BOOL"),
		atom(TRUE, "TRUE"), atom(FALSE, "FALSE"), atom(EMPTYSET, "∅"),
		atom(KPRED, "pred"), atom(KSUCC, "succ"),
		fn(KCARD, "card"), fn(POW, "ℙ"), fn(POW1, "ℙ1"), fn(KUNION, "union"), fn(KINTER, "inter"),
		fn(KDOM, "dom"), fn(KRAN, "ran"), fn(KMIN, "min"), fn(KMAX, "max"), fn(KBOOL, "bool"),
		{Tag: SETEXT, Image: "{", Notation: Atom, Priority: PrioAtom},
		{Tag: QUNION, Image: "⋃", Notation: Binder, Priority: PrioAtom},
		{Tag: QINTER, Image: "⋂", Notation: Binder, Priority: PrioAtom},
		{Tag: CSET, Image: "λ", Notation: Binder, Priority: PrioAtom},
	}
	v1 := []*Operator{fn(KPRJ1, "prj1"), fn(KPRJ2, "prj2"), fn(KID, "id")}
	v2 := []*Operator{atom(KPRJ1_GEN, "prj1"), atom(KPRJ2_GEN, "prj2"), atom(KID_GEN, "id")}
	for _, op := range v1 {
		op.only = config.V1
	}
	for _, op := range v2 {
		op.only = config.V2
	}
	return append(append(ops, v1...), v2...)
}

var builtinGrammar = buildGrammar(builtinOperators())

// DefaultGrammar returns the table of the notation without extensions.
func DefaultGrammar() *Grammar { return builtinGrammar }

func buildGrammar(ops []*Operator) *Grammar {
	g := &Grammar{
		ops:     ops,
		byTag:   map[Tag]*Operator{},
		byImage: map[string][]*Operator{},
	}
	for _, op := range ops {
		// The first entry of a tag is the one used for printing.
		if _, ok := g.byTag[op.Tag]; !ok {
			g.byTag[op.Tag] = op
		}
		g.byImage[op.Image] = append(g.byImage[op.Image], op)
	}
	return g
}

// newGrammar extends the builtin table with the extensions of ff.
func newGrammar(ff *Factory) *Grammar {
	ops := append([]*Operator(nil), builtinGrammar.ops...)
	var words, symbols []string
	for _, ext := range ff.ordered {
		tag := ff.tags[ext.ID()]
		syn := ext.Syntax()
		sig := ext.Signature()
		op := &Operator{Tag: tag, Image: syn.Image, Predicate: !sig.Expression, Ext: ext}
		switch syn.Form {
		case ExtAtomic:
			op.Notation = Atom
			op.Priority = PrioAtom
		case ExtParenthesized:
			op.Notation = Functional
			op.Priority = PrioAtom
		case ExtInfix:
			if sig.Expression {
				op.Notation = Infix
				op.Priority = syn.Priority
				op.Assoc = syn.Assoc
				if sig.Expressions < 0 {
					op.Assoc = AssocFlat
				}
			} else {
				op.Notation = Relational
				op.Priority = PrioPredicateAtom
			}
		}
		if op.Predicate && op.Notation != Relational {
			op.Priority = PrioPredicateAtom
		}
		if op.Notation == Infix && op.Priority == 0 {
			op.Priority = PrioBinop
		}
		ops = append(ops, op)
		if isWord(syn.Image) {
			words = append(words, syn.Image)
		} else {
			symbols = append(symbols, syn.Image)
		}
	}
	g := buildGrammar(ops)
	sort.Strings(words)
	sort.Strings(symbols)
	g.words = words
	g.symbols = symbols
	return g
}

func isWord(s string) bool {
	for i, r := range []rune(s) {
		if i == 0 && !token.IsIdentStart(r) || !token.IsIdentPart(r) {
			return false
		}
	}
	return s != ""
}

// HasImage reports whether some operator of any version uses img.
func (g *Grammar) HasImage(img string) bool {
	_, ok := g.byImage[img]
	return ok
}

// Words and Symbols return the extension images the lexer must recognise.
func (g *Grammar) Words() []string   { return g.words }
func (g *Grammar) Symbols() []string { return g.symbols }

// Operator returns the printing entry of tag, or nil for tags without
// operator (identifiers, literals).
func (g *Grammar) Operator(tag Tag) *Operator {
	return g.byTag[tag]
}

// Lookup returns the operators written img in version v.
func (g *Grammar) Lookup(img string, v config.LanguageVersion) []*Operator {
	var out []*Operator
	for _, op := range g.byImage[img] {
		if op.In(v) {
			out = append(out, op)
		}
	}
	return out
}

// Find returns the operator written img with the given notation and level
// in version v.
func (g *Grammar) Find(img string, n Notation, predicate bool, v config.LanguageVersion) *Operator {
	for _, op := range g.byImage[img] {
		if op.Notation == n && op.Predicate == predicate && op.In(v) {
			return op
		}
	}
	return nil
}

// Relation gives the grouping of a left ⊕ followed by a right ⊗.
func (g *Grammar) Relation(left, right *Operator) Grouping {
	switch {
	case left.Priority > right.Priority:
		return GroupLeft
	case left.Priority < right.Priority:
		return GroupRight
	}
	if left.Tag == right.Tag {
		switch left.Assoc {
		case AssocFlat:
			return GroupFlatten
		case AssocLeft:
			return GroupLeft
		case AssocRight:
			return GroupRight
		}
		return GroupIncompatible
	}
	if leftCompatible[[2]Tag{left.Tag, right.Tag}] {
		return GroupLeft
	}
	if left.Ext == nil && right.Ext == nil && left.Assoc == AssocRight && right.Assoc == AssocRight {
		return GroupRight
	}
	return GroupIncompatible
}
