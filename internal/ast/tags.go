package ast

// Tag identifies the shape and operator of a formula node. Every node kind
// owns a disjoint range so the kind can be recovered from the tag alone.
type Tag int

// Relational predicates.
const (
	EQUAL Tag = 101 + iota
	NOTEQUAL
	LT
	LE
	GT
	GE
	IN
	NOTIN
	SUBSET
	NOTSUBSET
	SUBSETEQ
	NOTSUBSETEQ
)

// Binary predicates.
const (
	LIMP Tag = 251 + iota
	LEQV
)

// Associative predicates.
const (
	LAND Tag = 351 + iota
	LOR
)

// Literal predicates.
const (
	BTRUE Tag = 401 + iota
	BFALSE
)

// Simple predicates.
const KFINITE Tag = 451

// Unary predicates.
const NOT Tag = 501

// Quantified predicates.
const (
	FORALL Tag = 601 + iota
	EXISTS
)

// Multiple predicates.
const KPARTITION Tag = 651

const PREDICATE_VARIABLE Tag = 701

// Atomic expressions.
const (
	INTEGER Tag = 801 + iota
	NATURAL
	NATURAL1
	BOOL
	TRUE
	FALSE
	EMPTYSET
	KPRED
	KSUCC
	KPRJ1_GEN
	KPRJ2_GEN
	KID_GEN
)

// Binary expressions.
const (
	MAPSTO Tag = 901 + iota
	REL
	TREL
	SREL
	STREL
	PFUN
	TFUN
	PINJ
	TINJ
	PSUR
	TSUR
	TBIJ
	SETMINUS
	CPROD
	DPROD
	PPROD
	DOMRES
	DOMSUB
	RANRES
	RANSUB
	UPTO
	MINUS
	DIV
	MOD
	EXPN
	FUNIMAGE
	RELIMAGE
)

// Associative expressions.
const (
	BUNION Tag = 1001 + iota
	BINTER
	BCOMP
	FCOMP
	OVR
	PLUS
	MUL
)

// Unary expressions.
const (
	KCARD Tag = 1101 + iota
	POW
	POW1
	KUNION
	KINTER
	KDOM
	KRAN
	KPRJ1
	KPRJ2
	KID
	KMIN
	KMAX
	CONVERSE
	UNMINUS
)

const KBOOL Tag = 1201

const SETEXT Tag = 1251

// Quantified expressions.
const (
	QUNION Tag = 1301 + iota
	QINTER
	CSET
)

const INTLIT Tag = 1351

const FREE_IDENT Tag = 1401

const BOUND_IDENT_DECL Tag = 1451

const BOUND_IDENT Tag = 1501

// Assignments.
const (
	BECOMES_EQUAL_TO Tag = 1551 + iota
	BECOMES_MEMBER_OF
	BECOMES_SUCH_THAT
)

// Kind is the node shape a tag belongs to.
type Kind int

const (
	KindUnknown Kind = iota
	KindRelationalPredicate
	KindBinaryPredicate
	KindAssociativePredicate
	KindLiteralPredicate
	KindSimplePredicate
	KindUnaryPredicate
	KindQuantifiedPredicate
	KindMultiplePredicate
	KindPredicateVariable
	KindAtomicExpression
	KindBinaryExpression
	KindAssociativeExpression
	KindUnaryExpression
	KindBoolExpression
	KindSetExtension
	KindQuantifiedExpression
	KindIntegerLiteral
	KindFreeIdentifier
	KindBoundIdentDecl
	KindBoundIdentifier
	KindAssignment
	KindExtension
)

var tagRanges = []struct {
	first, last Tag
	kind        Kind
}{
	{EQUAL, NOTSUBSETEQ, KindRelationalPredicate},
	{LIMP, LEQV, KindBinaryPredicate},
	{LAND, LOR, KindAssociativePredicate},
	{BTRUE, BFALSE, KindLiteralPredicate},
	{KFINITE, KFINITE, KindSimplePredicate},
	{NOT, NOT, KindUnaryPredicate},
	{FORALL, EXISTS, KindQuantifiedPredicate},
	{KPARTITION, KPARTITION, KindMultiplePredicate},
	{PREDICATE_VARIABLE, PREDICATE_VARIABLE, KindPredicateVariable},
	{INTEGER, KID_GEN, KindAtomicExpression},
	{MAPSTO, RELIMAGE, KindBinaryExpression},
	{BUNION, MUL, KindAssociativeExpression},
	{KCARD, UNMINUS, KindUnaryExpression},
	{KBOOL, KBOOL, KindBoolExpression},
	{SETEXT, SETEXT, KindSetExtension},
	{QUNION, CSET, KindQuantifiedExpression},
	{INTLIT, INTLIT, KindIntegerLiteral},
	{FREE_IDENT, FREE_IDENT, KindFreeIdentifier},
	{BOUND_IDENT_DECL, BOUND_IDENT_DECL, KindBoundIdentDecl},
	{BOUND_IDENT, BOUND_IDENT, KindBoundIdentifier},
	{BECOMES_EQUAL_TO, BECOMES_SUCH_THAT, KindAssignment},
}

// KindOf returns the node shape of a built-in tag. Tags at or above the
// first extension tag are reported as KindExtension.
func KindOf(t Tag) Kind {
	if t >= firstExtensionTag {
		return KindExtension
	}
	for _, r := range tagRanges {
		if r.first <= t && t <= r.last {
			return r.kind
		}
	}
	return KindUnknown
}
