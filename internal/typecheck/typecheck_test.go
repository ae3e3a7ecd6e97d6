package typecheck_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/funvibe/formulas/internal/ast"
	"github.com/funvibe/formulas/internal/config"
	"github.com/funvibe/formulas/internal/diagnostics"
	"github.com/funvibe/formulas/internal/lexer"
	"github.com/funvibe/formulas/internal/parser"
	"github.com/funvibe/formulas/internal/pipeline"
	"github.com/funvibe/formulas/internal/typecheck"
	ts "github.com/funvibe/formulas/internal/typesystem"
)

var (
	intT  = ts.IntegerType{}
	boolT = ts.BooleanType{}
)

func parse(t *testing.T, ff *ast.Factory, text string) ast.Formula {
	t.Helper()
	res := parser.ParsePredicate(ff, text, config.V2, nil)
	require.False(t, res.HasErrors(), diagnostics.Join(res.Problems))
	return res.Formula
}

func check(t *testing.T, text string, env *ts.Environment) *typecheck.Result {
	t.Helper()
	return typecheck.Check(parse(t, ast.Default(), text), env)
}

func firstError(problems []*diagnostics.Problem) *diagnostics.Problem {
	for _, p := range problems {
		if p.IsError() {
			return p
		}
	}
	return nil
}

func inferred(t *testing.T, res *typecheck.Result, name string) ts.Type {
	t.Helper()
	typ, ok := res.Inferred.Get(name)
	require.True(t, ok, "%s not inferred in %s", name, res.Inferred)
	return typ
}

func TestInfersIdentifierTypes(t *testing.T) {
	tests := []struct {
		input string
		types map[string]ts.Type
	}{
		{"x∈ℕ ∧ y≥1", map[string]ts.Type{"x": intT, "y": intT}},
		{"b=TRUE", map[string]ts.Type{"b": boolT}},
		{"∅⦂ℙ(ℤ)=s", map[string]ts.Type{"s": ts.PowerSet(intT)}},
		{"∀x·x∈s ∧ s⊆ℤ", map[string]ts.Type{"s": ts.PowerSet(intT)}},
		{"f∈ℤ⇸BOOL ∧ f(1)=b", map[string]ts.Type{"f": ts.Relation(intT, boolT), "b": boolT}},
		{"f=(λx·x∈ℕ ∣ x+1)", map[string]ts.Type{"f": ts.Relation(intT, intT)}},
		{"r=prj1 ∧ r(1 ↦ TRUE)=x", map[string]ts.Type{"x": intT, "r": ts.Relation(ts.Product(intT, boolT), intT)}},
		{"partition(s,{1},{2})", map[string]ts.Type{"s": ts.PowerSet(intT)}},
		{"a=card({x ∣ x∈s}) ∧ s⊆ℕ", map[string]ts.Type{"a": intT, "s": ts.PowerSet(intT)}},
	}
	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			res := check(t, tt.input, nil)
			require.True(t, res.Success(), diagnostics.Join(res.Problems))
			assert.True(t, res.Formula.IsTypeChecked())
			for name, want := range tt.types {
				assert.True(t, ts.Equal(want, inferred(t, res, name)), "%s: got %s", name, inferred(t, res, name))
			}
		})
	}
}

func TestEnvironmentIsUsed(t *testing.T) {
	env := ts.NewEnvironment()
	env.Add("x", intT)
	res := check(t, "x=y", env)
	require.True(t, res.Success(), diagnostics.Join(res.Problems))
	assert.True(t, ts.Equal(intT, inferred(t, res, "y")))
	assert.False(t, res.Inferred.Contains("x"))
	assert.Equal(t, 1, env.Len())
}

func TestGivenSets(t *testing.T) {
	env := ts.NewEnvironment()
	env.Add("x", ts.GivenType{Name: "S"})
	res := check(t, "x∈A", env)
	require.True(t, res.Success(), diagnostics.Join(res.Problems))
	assert.True(t, ts.Equal(ts.PowerSet(ts.GivenType{Name: "S"}), inferred(t, res, "A")))
	assert.True(t, ts.Equal(ts.PowerSet(ts.GivenType{Name: "S"}), inferred(t, res, "S")))

	res = check(t, "∀x⦂S·x∈T", nil)
	require.True(t, res.Success(), diagnostics.Join(res.Problems))
	assert.True(t, ts.Equal(ts.PowerSet(ts.GivenType{Name: "S"}), inferred(t, res, "T")))

	// An identifier named like a given set denotes that set.
	res = check(t, "(∀y⦂S·y=y) ∧ S∈T", nil)
	assert.True(t, res.Success(), diagnostics.Join(res.Problems))
	assert.True(t, ts.Equal(ts.PowerSet(ts.PowerSet(ts.GivenType{Name: "S"})), inferred(t, res, "T")))

	bad := check(t, "(∀y⦂S·y=y) ∧ S=1", nil)
	require.True(t, bad.HasErrors())
	assert.Equal(t, diagnostics.TypesDoNotMatch, firstError(bad.Problems).Kind)
}

func TestGivenSetProblemsAreOrdered(t *testing.T) {
	text := "(∀y⦂T·y=y) ∧ (∀z⦂S·z=z) ∧ T=1 ∧ S=1"
	for range 10 {
		res := check(t, text, nil)
		var messages []string
		for _, p := range res.Problems {
			if p.IsError() {
				messages = append(messages, p.Message())
			}
		}
		assert.Equal(t, []string{
			"types ℤ and ℙ(S) do not match",
			"types ℤ and ℙ(T) do not match",
		}, messages)
	}
}

func TestTypeErrors(t *testing.T) {
	tests := []struct {
		input string
		kind  diagnostics.ProblemKind
	}{
		{"x=1 ∧ x=TRUE", diagnostics.TypesDoNotMatch},
		{"ℤ−1=x", diagnostics.MinusAppliedToSet},
		{"ℤ∗ℤ=x", diagnostics.MulAppliedToSet},
		{"x∈x", diagnostics.Circularity},
		{"∅=∅", diagnostics.TypeUnknown},
		{"x∈S", diagnostics.TypeUnknown},
		{"1∈TRUE", diagnostics.TypesDoNotMatch},
		{"card(1)=2", diagnostics.TypesDoNotMatch},
	}
	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			res := check(t, tt.input, nil)
			require.True(t, res.HasErrors())
			assert.Nil(t, res.Formula)
			assert.Equal(t, tt.kind, firstError(res.Problems).Kind)
		})
	}
}

func TestMismatchReportsTypes(t *testing.T) {
	res := check(t, "x=1 ∧ x=TRUE", nil)
	p := firstError(res.Problems)
	require.NotNil(t, p)
	assert.Equal(t, []any{"ℤ", "BOOL"}, p.Args)
	assert.Equal(t, 6, p.Loc.Start)
	assert.Equal(t, 11, p.Loc.End)
}

func TestBoundIdentifierTypes(t *testing.T) {
	res := check(t, "∀x,y·x ↦ y∈r ∧ y=TRUE ∧ r⊆ℤ×BOOL", nil)
	require.True(t, res.Success(), diagnostics.Join(res.Problems))
	q := res.Formula.(*ast.QuantifiedPredicate)
	assert.True(t, ts.Equal(intT, q.BoundIdentDecls()[0].Type()))
	assert.True(t, ts.Equal(boolT, q.BoundIdentDecls()[1].Type()))
}

func TestTypedAtoms(t *testing.T) {
	res := check(t, "s=∅ ∧ s⊆ℕ", nil)
	require.True(t, res.Success(), diagnostics.Join(res.Problems))
	right := res.Formula.(*ast.AssociativePredicate).Predicates()[0].(*ast.RelationalPredicate).Right()
	assert.True(t, ts.Equal(ts.PowerSet(intT), right.Type()))
	assert.Equal(t, "s=∅⦂ℙ(ℤ) ∧ s⊆ℕ", ast.StringWithTypes(res.Formula))
	assert.Equal(t, "s=∅ ∧ s⊆ℕ", ast.Print(res.Formula))

	res = check(t, "a=min({}) ∧ a∈ℕ", nil)
	require.True(t, res.Success(), diagnostics.Join(res.Problems))
	assert.Equal(t, "a=min({}⦂ℙ(ℤ)) ∧ a∈ℕ", ast.StringWithTypes(res.Formula))

	res = check(t, "x=prj1⦂ℙ(ℤ×BOOL×ℤ)", nil)
	require.True(t, res.Success(), diagnostics.Join(res.Problems))
	assert.Equal(t, "x=prj1⦂ℙ(ℤ×BOOL×ℤ)", ast.Print(res.Formula))
}

func TestRecheckIsStable(t *testing.T) {
	first := check(t, "∀x·x∈s ⇒ f(x)=x+1", nil)
	require.True(t, first.Success(), diagnostics.Join(first.Problems))
	second := typecheck.Check(first.Formula, nil)
	require.True(t, second.Success(), diagnostics.Join(second.Problems))
	assert.True(t, ast.Equal(first.Formula, second.Formula))
	assert.Equal(t, first.Inferred.String(), second.Inferred.String())
}

func TestCaptureWarning(t *testing.T) {
	res := check(t, "x=1 ∧ (∀x·x∈ℕ)", nil)
	require.True(t, res.Success(), diagnostics.Join(res.Problems))
	require.Len(t, res.Problems, 1)
	assert.Equal(t, diagnostics.FreeIdentifierHasBoundOccurrences, res.Problems[0].Kind)
	assert.False(t, res.Problems[0].IsError())
}

func TestAssignments(t *testing.T) {
	ff := ast.Default()
	tests := []struct {
		input string
		x     ts.Type
	}{
		{"x ≔ x+1", intT},
		{"x :∈ BOOL", boolT},
		{"x :∣ x'∈ℕ ∧ x'>x", intT},
		{"x,y ≔ y,TRUE", boolT},
	}
	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			parsed := parser.ParseAssignment(ff, tt.input, config.V2, nil)
			require.False(t, parsed.HasErrors(), diagnostics.Join(parsed.Problems))
			res := typecheck.Check(parsed.Formula, nil)
			require.True(t, res.Success(), diagnostics.Join(res.Problems))
			assert.True(t, ts.Equal(tt.x, inferred(t, res, "x")))
		})
	}
}

func TestMalformedFormulas(t *testing.T) {
	ff := ast.Default()
	dangling := ff.MakeRelationalPredicate(ast.EQUAL,
		ff.MakeBoundIdentifier(0, nil, nil), ff.MakeFreeIdentifier("x", nil, nil), nil)
	res := typecheck.Check(dangling, nil)
	require.True(t, res.HasErrors())
	assert.Equal(t, diagnostics.BoundIdentifierIndexOutOfBounds, firstError(res.Problems).Kind)

	pattern := parser.ParsePredicatePattern(ff, "$P ∧ x=1", config.V2, nil)
	require.False(t, pattern.HasErrors())
	res = typecheck.Check(pattern.Formula, nil)
	require.True(t, res.HasErrors())
	assert.Equal(t, diagnostics.TypeCheckFailure, firstError(res.Problems).Kind)
}

func TestDatatypes(t *testing.T) {
	b := ast.NewDatatypeBuilder("List", "T")
	b.AddConstructor("nil")
	b.AddConstructor("cons").AddArgument("head", b.Param("T")).AddArgument("tail", b.Self())
	dt := b.Finalize()
	ff, err := ast.GetInstance(dt.Extensions()...)
	require.NoError(t, err)

	res := typecheck.Check(parse(t, ff, "l=cons(1, nil) ∧ h=head(l)"), nil)
	require.True(t, res.Success(), diagnostics.Join(res.Problems))
	assert.True(t, ts.Equal(dt.Type(intT), inferred(t, res, "l")))
	assert.True(t, ts.Equal(intT, inferred(t, res, "h")))

	res = typecheck.Check(parse(t, ff, "l=cons(1, cons(TRUE, nil))"), nil)
	require.True(t, res.HasErrors())
	assert.Equal(t, diagnostics.TypesDoNotMatch, firstError(res.Problems).Kind)
}

func TestProcessor(t *testing.T) {
	env := ts.NewEnvironment()
	env.Add("n", intT)
	ctx := pipeline.NewContext("n>m", pipeline.ModePredicate)
	ctx.Env = env
	out := pipeline.New(&lexer.LexerProcessor{}, &parser.ParserProcessor{}, &typecheck.TypeCheckProcessor{}).Run(ctx)
	require.False(t, out.Failed(), diagnostics.Join(out.Problems))
	assert.True(t, out.Root.IsTypeChecked())
	assert.True(t, ts.Equal(intT, func() ts.Type { typ, _ := out.Inferred.Get("m"); return typ }()))

	ctx = pipeline.NewContext("n=TRUE", pipeline.ModePredicate)
	ctx.Env = env
	out = pipeline.New(&lexer.LexerProcessor{}, &parser.ParserProcessor{}, &typecheck.TypeCheckProcessor{}).Run(ctx)
	assert.True(t, out.Failed())
	assert.False(t, out.Root.IsTypeChecked())
}
