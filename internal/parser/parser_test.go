package parser_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/funvibe/formulas/internal/ast"
	"github.com/funvibe/formulas/internal/config"
	"github.com/funvibe/formulas/internal/diagnostics"
	"github.com/funvibe/formulas/internal/parser"
	ts "github.com/funvibe/formulas/internal/typesystem"
)

func mustPredicate(t *testing.T, text string) ast.Predicate {
	t.Helper()
	res := parser.ParsePredicate(ast.Default(), text, config.V2, nil)
	require.False(t, res.HasErrors(), "%s: %s", text, diagnostics.Join(res.Problems))
	return res.Predicate()
}

func mustExpression(t *testing.T, text string) ast.Expression {
	t.Helper()
	res := parser.ParseExpression(ast.Default(), text, config.V2, nil)
	require.False(t, res.HasErrors(), "%s: %s", text, diagnostics.Join(res.Problems))
	return res.Expression()
}

func firstError(problems []*diagnostics.Problem) *diagnostics.Problem {
	for _, p := range problems {
		if p.IsError() {
			return p
		}
	}
	return nil
}

var canonicalPredicates = []string{
	"x∈ℕ ∧ y≥1",
	"a+b∗c=d",
	"(a+b)∗c=d",
	"a−b−c=0",
	"a−(b−c)=0",
	"a+b−c=0",
	"a−b+c=0",
	"(a+b)+c=d",
	"a mod b=c",
	"f(x)=f(y)",
	"r∼[s]⊆t",
	"∀x·x∈ℕ ⇒ x≥0",
	"(∀x·x>0) ∧ y>0",
	"∃x,y·x ↦ y∈r",
	"¬a=b",
	"¬(a=b ∧ c=d)",
	"a=b ⇒ (c=d ⇒ e=f)",
	"a=b ∨ c=d ∨ e=f",
	"s=⋃x·x∈t ∣ {x}",
	"{x·x>0 ∣ x+1}=s",
	"{x ∣ x>0}=s",
	"{x ↦ y ∣ x<y}⊆r",
	"(λx·x>0 ∣ x+1)(3)=4",
	"f∈ℤ⇸ℤ",
	"a∈ℤ↔ℤ↔ℤ",
	"a∈(ℤ↔ℤ)↔ℤ",
	"s∩t∖u=v",
	"card(s)>1",
	"finite(s)",
	"partition(s,t,u)",
	"bool(a=b)=TRUE",
	"x=−1",
	"x=−y",
	"x=−(a+b)",
	"x=−a∗b",
	"x=a∗(−1)",
	"x ↦ y ↦ z∈r",
	"x ↦ (y ↦ z)∈r",
	"∅=s",
	"{}=s",
	"{a,b,c}=s",
	"dom(f)◁g=h",
	"f\ue103{x ↦ y}=g",
	"prj1=r",
	"r;s;t=u",
	"⊤ ⇔ ⊥",
	"∀x·∃y·x<y",
	"x∈ℙ(ℤ×BOOL)",
	"s=union({a,b})",
	"x=prj1⦂ℙ(ℤ×ℤ×ℤ)",
	"x=∅⦂ℙ(ℤ)",
	"{}⦂ℙ(ℤ)⊆s",
	"(∅⦂ℙ(ℤ×ℤ))∼=r",
	"(id⦂ℙ(ℤ×ℤ))(1)=1",
	"∅⦂ℙ(ℤ)∪s=t",
}

func TestPrintIsCanonical(t *testing.T) {
	for _, text := range canonicalPredicates {
		t.Run(text, func(t *testing.T) {
			p := mustPredicate(t, text)
			assert.Equal(t, text, ast.Print(p))
		})
	}
}

func TestRoundTrip(t *testing.T) {
	ff := ast.Default()
	for _, text := range canonicalPredicates {
		t.Run(text, func(t *testing.T) {
			p := mustPredicate(t, text)

			again := parser.ParsePredicate(ff, ast.Print(p), config.V2, nil)
			require.False(t, again.HasErrors(), diagnostics.Join(again.Problems))
			assert.True(t, ast.Equal(p, again.Formula))

			full := ast.FullyParenthesized(p)
			fromFull := parser.ParsePredicate(ff, full, config.V2, nil)
			require.False(t, fromFull.HasErrors(), "%s: %s", full, diagnostics.Join(fromFull.Problems))
			assert.True(t, ast.Equal(p, fromFull.Formula), full)
		})
	}
}

func TestRedundantParenthesesAreDropped(t *testing.T) {
	tests := []struct{ input, expected string }{
		{"((a))=(b)", "a=b"},
		{"(a∗b)+c=d", "a∗b+c=d"},
		{"((x=y))", "x=y"},
		{"((∀x·x>0))", "∀x·x>0"},
		{"(a=b) ∧ (c=d)", "a=b ∧ c=d"},
		{"a=b ⇒ (c=d ∧ e=f)", "a=b ⇒ c=d ∧ e=f"},
		{"x∈(ℤ↔(ℤ↔ℤ))", "x∈ℤ↔ℤ↔ℤ"},
		{"(f)(x)=(y)", "f(x)=y"},
		{"s=(⋃x·x∈t ∣ {x})", "s=⋃x·x∈t ∣ {x}"},
	}
	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			assert.Equal(t, tt.expected, ast.Print(mustPredicate(t, tt.input)))
		})
	}
}

func TestIncompatibleOperators(t *testing.T) {
	inputs := []string{
		"s∪t∩u=v",
		"a=b ⇒ c=d ⇒ e=f",
		"a=b ∧ c=d ∨ e=f",
		"a<b<c",
		"s∖t∖u=v",
		"(f;g∘h)=k",
		"(s∪t∩u)=v",
	}
	for _, input := range inputs {
		t.Run(input, func(t *testing.T) {
			res := parser.ParsePredicate(ast.Default(), input, config.V2, nil)
			require.True(t, res.HasErrors())
			assert.Nil(t, res.Formula)
			assert.Equal(t, diagnostics.IncompatibleOperators, firstError(res.Problems).Kind)
		})
	}
}

func TestAssociativityAndPriorities(t *testing.T) {
	e := mustExpression(t, "a+b∗c+d")
	sum, ok := e.(*ast.AssociativeExpression)
	require.True(t, ok)
	assert.Equal(t, ast.PLUS, sum.Tag())
	require.Len(t, sum.Expressions(), 3)
	assert.Equal(t, ast.MUL, sum.Expressions()[1].Tag())

	e = mustExpression(t, "a−b−c")
	minus := e.(*ast.BinaryExpression)
	assert.Equal(t, ast.MINUS, minus.Left().Tag())

	e = mustExpression(t, "s↔t↔u")
	arrow := e.(*ast.BinaryExpression)
	assert.Equal(t, ast.REL, arrow.Right().Tag())

	e = mustExpression(t, "x ↦ y ↦ z")
	maplet := e.(*ast.BinaryExpression)
	assert.Equal(t, ast.MAPSTO, maplet.Left().Tag())
}

func TestFunctionApplicationArguments(t *testing.T) {
	e := mustExpression(t, "f(a,b,c)")
	img := e.(*ast.BinaryExpression)
	require.Equal(t, ast.FUNIMAGE, img.Tag())
	assert.Equal(t, "f(a ↦ b ↦ c)", ast.Print(e))
	assert.True(t, ast.Equal(e, mustExpression(t, "f(a ↦ b ↦ c)")))
}

func TestNegativeLiterals(t *testing.T) {
	lit, ok := mustExpression(t, "−1").(*ast.IntegerLiteral)
	require.True(t, ok)
	assert.Equal(t, "-1", lit.Value().String())

	minus, ok := mustExpression(t, "−(1)").(*ast.UnaryExpression)
	require.True(t, ok)
	assert.Equal(t, ast.UNMINUS, minus.Tag())
	assert.Equal(t, "−(1)", ast.Print(minus))

	sub := mustExpression(t, "2−1").(*ast.BinaryExpression)
	assert.Equal(t, ast.MINUS, sub.Tag())
	assert.Equal(t, ast.INTLIT, sub.Right().Tag())

	neg := mustExpression(t, "−x∗y").(*ast.UnaryExpression)
	assert.Equal(t, ast.MUL, neg.Child().Tag())
}

func TestComprehensionForms(t *testing.T) {
	explicit := mustExpression(t, "{x·x>0 ∣ x}").(*ast.QuantifiedExpression)
	assert.Equal(t, ast.Explicit, explicit.Form())
	require.Len(t, explicit.BoundIdentDecls(), 1)
	assert.Equal(t, "x", explicit.BoundIdentDecls()[0].Name())
	b, ok := explicit.Expression().(*ast.BoundIdentifier)
	require.True(t, ok)
	assert.Equal(t, 0, b.Index())

	implicit := mustExpression(t, "{x ↦ y ∣ x<y}").(*ast.QuantifiedExpression)
	assert.Equal(t, ast.Implicit, implicit.Form())
	require.Len(t, implicit.BoundIdentDecls(), 2)
	assert.Equal(t, "x", implicit.BoundIdentDecls()[0].Name())
	assert.Equal(t, "y", implicit.BoundIdentDecls()[1].Name())
	assert.Empty(t, implicit.FreeIdentifiers())

	lambda := mustExpression(t, "λx ↦ y·x<y ∣ x+y").(*ast.QuantifiedExpression)
	assert.Equal(t, ast.Lambda, lambda.Form())
	assert.Equal(t, ast.CSET, lambda.Tag())
	assert.Equal(t, "λx ↦ y·x<y ∣ x+y", ast.Print(lambda))

	union := mustExpression(t, "⋃s ∣ s⊆t").(*ast.QuantifiedExpression)
	assert.Equal(t, ast.QUNION, union.Tag())
	assert.Equal(t, ast.Implicit, union.Form())
	assert.Equal(t, []string{"t"}, freeNames(union))

	inter := mustExpression(t, "⋂x·x∈s ∣ f(x)").(*ast.QuantifiedExpression)
	assert.Equal(t, ast.QINTER, inter.Tag())
	assert.Equal(t, ast.Explicit, inter.Form())
}

func TestImplicitComprehensionDeclaresOuterNames(t *testing.T) {
	all := mustPredicate(t, "∀x·x∈{x ∣ x>0}").(*ast.QuantifiedPredicate)
	member := all.Predicate().(*ast.RelationalPredicate)
	outer, ok := member.Left().(*ast.BoundIdentifier)
	require.True(t, ok)
	assert.Equal(t, 0, outer.Index())

	set := member.Right().(*ast.QuantifiedExpression)
	assert.Equal(t, ast.Implicit, set.Form())
	require.Len(t, set.BoundIdentDecls(), 1)
	assert.Equal(t, "x", set.BoundIdentDecls()[0].Name())
	inner, ok := set.Expression().(*ast.BoundIdentifier)
	require.True(t, ok)
	assert.Equal(t, 0, inner.Index())

	pairs := mustPredicate(t, "∀y·{x ↦ y ∣ x<y}=r").(*ast.QuantifiedPredicate)
	rel := pairs.Predicate().(*ast.RelationalPredicate)
	cset := rel.Left().(*ast.QuantifiedExpression)
	require.Len(t, cset.BoundIdentDecls(), 2)
	assert.Equal(t, "y", cset.BoundIdentDecls()[1].Name())
	assert.Empty(t, cset.BoundIdentifiers())

	union := mustPredicate(t, "∃s·(⋃s ∣ s⊆t)=s").(*ast.QuantifiedPredicate)
	assert.Equal(t, []string{"t"}, freeNames(union))

	res := parser.ParsePredicate(ast.Default(), "∀x·x∈{1 ∣ x>0}", config.V2, nil)
	require.True(t, res.HasErrors())
	assert.NotContains(t, firstError(res.Problems).Error(), "[[")
}

func freeNames(f ast.Formula) []string {
	var names []string
	for _, id := range f.FreeIdentifiers() {
		names = append(names, id.Name())
	}
	return names
}

func TestComprehensionErrors(t *testing.T) {
	tests := []struct {
		input string
		kind  diagnostics.ProblemKind
	}{
		{"λx ↦ x·x>0 ∣ x", diagnostics.DuplicateIdentifierInPattern},
		{"∀x,x·x>0", diagnostics.DuplicateIdentifierInPattern},
		{"{1 ∣ ⊤}=s", diagnostics.SyntaxError},
	}
	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			res := parser.ParsePredicate(ast.Default(), tt.input, config.V2, nil)
			require.True(t, res.HasErrors())
			assert.Equal(t, tt.kind, firstError(res.Problems).Kind)
		})
	}
}

func TestBoundIdentifierIndices(t *testing.T) {
	p := mustPredicate(t, "∀x·∃y·x<y")
	inner := p.(*ast.QuantifiedPredicate).Predicate().(*ast.QuantifiedPredicate).Predicate().(*ast.RelationalPredicate)
	assert.Equal(t, 1, inner.Left().(*ast.BoundIdentifier).Index())
	assert.Equal(t, 0, inner.Right().(*ast.BoundIdentifier).Index())
	assert.True(t, p.IsWellFormed())
}

func TestLanguageVersions(t *testing.T) {
	ff := ast.Default()

	v1 := parser.ParseExpression(ff, "prj1(r)", config.V1, nil)
	require.False(t, v1.HasErrors(), diagnostics.Join(v1.Problems))
	assert.Equal(t, ast.KPRJ1, v1.Formula.Tag())

	v2 := parser.ParseExpression(ff, "prj1", config.V2, nil)
	require.False(t, v2.HasErrors(), diagnostics.Join(v2.Problems))
	assert.Equal(t, ast.KPRJ1_GEN, v2.Formula.Tag())

	part := parser.ParsePredicate(ff, "partition(s,t)", config.V2, nil)
	require.False(t, part.HasErrors())
	assert.Equal(t, ast.KPARTITION, part.Formula.Tag())

	ident := parser.ParsePredicate(ff, "partition=s", config.V1, nil)
	require.False(t, ident.HasErrors(), diagnostics.Join(ident.Problems))
	left := ident.Predicate().(*ast.RelationalPredicate).Left()
	assert.Equal(t, ast.FREE_IDENT, left.Tag())

	assert.True(t, parser.ParsePredicate(ff, "partition=s", config.V2, nil).HasErrors())
}

func TestPredicateVariables(t *testing.T) {
	ff := ast.Default()
	res := parser.ParsePredicatePattern(ff, "$P ∧ x=1", config.V2, nil)
	require.False(t, res.HasErrors(), diagnostics.Join(res.Problems))
	and := res.Predicate().(*ast.AssociativePredicate)
	assert.Equal(t, ast.PREDICATE_VARIABLE, and.Predicates()[0].Tag())
	assert.Equal(t, "$P ∧ x=1", ast.Print(res.Formula))

	res = parser.ParsePredicate(ff, "$P ∧ x=1", config.V2, nil)
	require.True(t, res.HasErrors())
	assert.Equal(t, diagnostics.PredicateVariableNotAllowed, firstError(res.Problems).Kind)
}

func TestAssignments(t *testing.T) {
	ff := ast.Default()
	tests := []struct {
		input, printed string
		tag            ast.Tag
	}{
		{"x,y ≔ y,x", "x,y ≔ y,x", ast.BECOMES_EQUAL_TO},
		{"x :∈ S", "x :∈ S", ast.BECOMES_MEMBER_OF},
		{"x :∣ x'>x", "x :∣ x'>x", ast.BECOMES_SUCH_THAT},
		{"x := x+1", "x ≔ x+1", ast.BECOMES_EQUAL_TO},
		{"f(x) ≔ 1", "f ≔ f\ue103{x ↦ 1}", ast.BECOMES_EQUAL_TO},
	}
	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			res := parser.ParseAssignment(ff, tt.input, config.V2, nil)
			require.False(t, res.HasErrors(), diagnostics.Join(res.Problems))
			assert.Equal(t, tt.tag, res.Formula.Tag())
			assert.Equal(t, tt.printed, ast.Print(res.Formula))
		})
	}

	bad := []struct {
		input string
		kind  diagnostics.ProblemKind
	}{
		{"f(x) :∈ S", diagnostics.InvalidAssignmentToImage},
		{"f(x)(y) ≔ 1", diagnostics.InvalidAssignmentToImage},
		{"x,y ≔ 1", diagnostics.SyntaxError},
		{"x,y :∈ S", diagnostics.SyntaxError},
		{"x,x ≔ 1,2", diagnostics.DuplicateIdentifierInPattern},
	}
	for _, tt := range bad {
		t.Run(tt.input, func(t *testing.T) {
			res := parser.ParseAssignment(ff, tt.input, config.V2, nil)
			require.True(t, res.HasErrors())
			assert.Equal(t, tt.kind, firstError(res.Problems).Kind)
		})
	}
}

func TestParseType(t *testing.T) {
	ff := ast.Default()
	res := parser.ParseType(ff, "ℙ(ℤ×BOOL)", config.V2, nil)
	require.False(t, res.HasErrors())
	assert.True(t, ts.Equal(ts.PowerSet(ts.Product(ts.IntegerType{}, ts.BooleanType{})), res.Type))

	res = parser.ParseType(ff, "S↔T", config.V2, nil)
	require.False(t, res.HasErrors())
	assert.True(t, ts.Equal(ts.Relation(ts.GivenType{Name: "S"}, ts.GivenType{Name: "T"}), res.Type))

	res = parser.ParseType(ff, "x+1", config.V2, nil)
	require.True(t, res.HasErrors())
	assert.Nil(t, res.Type)
	assert.Equal(t, diagnostics.InvalidTypeExpression, firstError(res.Problems).Kind)
}

func TestTypedAtoms(t *testing.T) {
	e := mustExpression(t, "∅⦂ℙ(ℤ)")
	assert.Equal(t, ast.EMPTYSET, e.Tag())
	assert.True(t, ts.Equal(ts.PowerSet(ts.IntegerType{}), e.Type()))
	assert.Equal(t, "∅⦂ℙ(ℤ)", ast.Print(e))
	assert.Equal(t, "∅⦂ℙ(ℤ)", ast.StringWithTypes(e))
	assert.True(t, ast.Equal(e, mustExpression(t, ast.StringWithTypes(e))))

	least := mustExpression(t, "min({}⦂ℙ(ℤ))")
	assert.Equal(t, "min({}⦂ℙ(ℤ))", ast.StringWithTypes(least))

	union := mustExpression(t, "∅⦂ℙ(ℤ) ∪ s")
	assert.Equal(t, ast.BUNION, union.Tag())

	decl := mustPredicate(t, "∀x⦂ℤ×ℤ·x∈r")
	assert.True(t, ts.Equal(ts.Product(ts.IntegerType{}, ts.IntegerType{}),
		decl.(*ast.QuantifiedPredicate).BoundIdentDecls()[0].Type()))

	res := parser.ParseExpression(ast.Default(), "∅⦂ℤ", config.V2, nil)
	require.True(t, res.HasErrors())
	assert.Equal(t, diagnostics.InvalidGenericType, firstError(res.Problems).Kind)
}

func TestLocations(t *testing.T) {
	p := mustPredicate(t, "x=y+1")
	rel := p.(*ast.RelationalPredicate)
	assert.Equal(t, 0, rel.Location().Start)
	assert.Equal(t, 4, rel.Location().End)
	assert.Equal(t, 2, rel.Right().Location().Start)
	assert.Equal(t, 4, rel.Right().Location().End)

	res := parser.ParsePredicate(ast.Default(), "x=y", config.V2, "inv1")
	require.False(t, res.HasErrors())
	assert.Equal(t, "inv1", res.Formula.Location().Origin)
}

func TestSyntaxErrors(t *testing.T) {
	tests := []struct {
		input string
		kind  diagnostics.ProblemKind
	}{
		{"(a=b", diagnostics.UnmatchedTokens},
		{"a=", diagnostics.UnexpectedSymbol},
		{"a=b)", diagnostics.UnexpectedSymbol},
		{"x", diagnostics.UnexpectedSymbol},
		{"x=⊤", diagnostics.UnexpectedSymbol},
	}
	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			res := parser.ParsePredicate(ast.Default(), tt.input, config.V2, nil)
			require.True(t, res.HasErrors())
			assert.Nil(t, res.Formula)
			assert.Equal(t, tt.kind, firstError(res.Problems).Kind)
		})
	}
}

func TestLexerWarningsAreKept(t *testing.T) {
	res := parser.ParsePredicate(ast.Default(), "x=y @", config.V2, nil)
	require.False(t, res.HasErrors())
	require.Len(t, res.Problems, 1)
	assert.Equal(t, diagnostics.LexerError, res.Problems[0].Kind)
	assert.NotNil(t, res.Formula)
}

func TestDeepNesting(t *testing.T) {
	text := ""
	for i := 0; i < 2*parser.MaxRecursionDepth; i++ {
		text += "("
	}
	res := parser.ParseExpression(ast.Default(), text+"x", config.V2, nil)
	require.True(t, res.HasErrors())
	assert.Equal(t, diagnostics.SyntaxError, firstError(res.Problems).Kind)
}

func listFactory(t *testing.T) *ast.Factory {
	t.Helper()
	b := ast.NewDatatypeBuilder("List", "T")
	b.AddConstructor("nil")
	b.AddConstructor("cons").AddArgument("head", b.Param("T")).AddArgument("tail", b.Self())
	ff, err := ast.GetInstance(b.Finalize().Extensions()...)
	require.NoError(t, err)
	return ff
}

func TestExtensionSyntax(t *testing.T) {
	ff := listFactory(t)
	res := parser.ParsePredicate(ff, "head(cons(1, nil))=1", config.V2, nil)
	require.False(t, res.HasErrors(), diagnostics.Join(res.Problems))
	assert.Equal(t, "head(cons(1,nil))=1", ast.Print(res.Formula))

	typ := parser.ParseType(ff, "ℙ(List(ℤ))", config.V2, nil)
	require.False(t, typ.HasErrors(), diagnostics.Join(typ.Problems))
	pt, ok := typ.Type.(ts.PowerSetType).Base.(ts.ParametricType)
	require.True(t, ok)
	assert.Equal(t, "List", pt.Constructor.TypeName())

	// Without the extensions the words are plain identifiers.
	plain := parser.ParsePredicate(ast.Default(), "head(cons(1, nil))=1", config.V2, nil)
	require.False(t, plain.HasErrors())
	assert.Equal(t, ast.FUNIMAGE, plain.Predicate().(*ast.RelationalPredicate).Left().Tag())
}

func FuzzRoundTrip(f *testing.F) {
	for _, text := range canonicalPredicates {
		f.Add(text)
	}
	ff := ast.Default()
	f.Fuzz(func(t *testing.T, text string) {
		res := parser.ParsePredicate(ff, text, config.V2, nil)
		if res.HasErrors() {
			return
		}
		printed := ast.Print(res.Formula)
		again := parser.ParsePredicate(ff, printed, config.V2, nil)
		if again.HasErrors() {
			t.Fatalf("%q printed as %q which does not parse: %s", text, printed, diagnostics.Join(again.Problems))
		}
		if !ast.Equal(res.Formula, again.Formula) {
			t.Fatalf("%q printed as %q which parses differently", text, printed)
		}
	})
}
