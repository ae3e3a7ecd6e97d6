package wd_test

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
	"github.com/funvibe/formulas/internal/wd"
)

var intT = ts.IntegerType{}

func testEnv() *ts.Environment {
	env := ts.NewEnvironment()
	env.Add("A", ts.PowerSet(intT))
	env.Add("s", ts.PowerSet(intT))
	env.Add("t", ts.PowerSet(ts.PowerSet(intT)))
	env.Add("f", ts.Relation(intT, intT))
	return env
}

func typed(t *testing.T, ff *ast.Factory, res *parser.Result) ast.Formula {
	t.Helper()
	require.False(t, res.HasErrors(), diagnostics.Join(res.Problems))
	checked := typecheck.Check(res.Formula, testEnv())
	require.True(t, checked.Success(), diagnostics.Join(checked.Problems))
	return checked.Formula
}

// expected prints the predicate text the way the printer renders it.
func expected(t *testing.T, ff *ast.Factory, text string) string {
	t.Helper()
	res := parser.ParsePredicate(ff, text, config.V2, nil)
	require.False(t, res.HasErrors(), diagnostics.Join(res.Problems))
	return ast.Print(res.Formula)
}

func TestPredicateConditions(t *testing.T) {
	ff := ast.Default()
	tests := []struct {
		input string
		want  string
	}{
		{"x+y+x+1=0 ⇒ y<x", "⊤"},
		{"card(A)>x", "finite(A)"},
		{"a÷1=b ∨ a÷2=b", "1≠0 ∧ (a÷1=b ∨ 2≠0)"},
		{"f(x)=f(y)", "x∈dom(f) ∧ f∈ℤ⇸ℤ ∧ y∈dom(f) ∧ f∈ℤ⇸ℤ"},
		{"a mod b=c", "0≤a ∧ 0<b"},
		{"(a mod 2) mod b=c", "0≤a ∧ 0<2 ∧ 0≤a mod 2 ∧ 0<b"},
		{"a^b=c", "0≤a ∧ 0≤b"},
		{"a=min(s)", "s≠∅ ∧ (∃b·∀x·x∈s ⇒ b≤x)"},
		{"a=max(s)", "s≠∅ ∧ (∃b·∀x·x∈s ⇒ b≥x)"},
		{"s=inter(t)", "t≠∅"},
		{"x÷y=1 ∧ y÷x=1", "y≠0 ∧ (x÷y=1 ⇒ x≠0)"},
		{"x∈ℕ ∧ y∈ℕ ∧ x÷y=1", "x∈ℕ ∧ y∈ℕ ⇒ y≠0"},
		{"a=1 ∨ b=2 ∨ a÷b=1", "a=1 ∨ b=2 ∨ b≠0"},
		{"a≠0 ⇒ b÷a=1", "a≠0 ⇒ a≠0"},
		{"a÷b=1 ⇔ c÷d=1", "b≠0 ∧ d≠0"},
		{"¬(a÷b=1)", "b≠0"},
		{"b=bool(a÷c=1)", "c≠0"},
		{"∀x·x∈ℕ ⇒ 1÷x=1", "∀x·x∈ℕ ⇒ x≠0"},
		{"∀x,y·card({x+1})=y", "∀x·finite({x+1})"},
		{"∀x,y·x÷2=y", "2≠0"},
		{"s={x·x∈ℕ ∣ 10÷x}", "∀x·x∈ℕ ⇒ x≠0"},
		{"s=(⋂x·x∈ℕ ∣ {x})", "∃x·x∈ℕ"},
	}
	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			f := typed(t, ff, parser.ParsePredicate(ff, tt.input, config.V2, nil))
			got := wd.Predicate(f)
			assert.True(t, got.IsTypeChecked())
			assert.Equal(t, expected(t, ff, tt.want), ast.Print(got))
		})
	}
}

func TestAssignmentConditions(t *testing.T) {
	ff := ast.Default()
	tests := []struct {
		input string
		want  string
	}{
		{"x ≔ a÷b", "b≠0"},
		{"x ≔ a mod b", "0≤a ∧ 0<b"},
		{"x :∈ {a÷b}", "b≠0"},
		{"x :∣ x'÷a=1", "a≠0"},
		{"x :∣ x'∈ℕ ∧ a÷x'=1", "∀x'·x'∈ℕ ⇒ x'≠0"},
	}
	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			f := typed(t, ff, parser.ParseAssignment(ff, tt.input, config.V2, nil))
			assert.Equal(t, expected(t, ff, tt.want), ast.Print(wd.Predicate(f)))
		})
	}
}

func TestDestructorCondition(t *testing.T) {
	b := ast.NewDatatypeBuilder("List", "T")
	b.AddConstructor("nil")
	b.AddConstructor("cons").AddArgument("head", b.Param("T")).AddArgument("tail", b.Self())
	dt := b.Finalize()
	ff, err := ast.GetInstance(dt.Extensions()...)
	require.NoError(t, err)

	f := typed(t, ff, parser.ParsePredicate(ff, "h=head(l) ∧ l=cons(1,nil)", config.V2, nil))
	got := wd.Predicate(f)
	assert.True(t, got.IsTypeChecked())
	assert.Equal(t, expected(t, ff, "∃x,x0·l=cons(x,x0)"), ast.Print(got))
}

func TestDestructorConditionKeepsUnusedParameters(t *testing.T) {
	b := ast.NewDatatypeBuilder("Either", "L", "R")
	b.AddConstructor("left").AddArgument("getLeft", b.Param("L"))
	b.AddConstructor("right").AddArgument("getRight", b.Param("R"))
	dt := b.Finalize()
	ff, err := ast.GetInstance(dt.Extensions()...)
	require.NoError(t, err)

	env := ts.NewEnvironment()
	env.Add("e", dt.Type(intT, ts.BooleanType{}))
	res := parser.ParsePredicate(ff, "x=getLeft(e)", config.V2, nil)
	require.False(t, res.HasErrors(), diagnostics.Join(res.Problems))
	checked := typecheck.Check(res.Formula, env)
	require.True(t, checked.Success(), diagnostics.Join(checked.Problems))

	got := wd.Predicate(checked.Formula)
	assert.True(t, got.IsTypeChecked())
	assert.Equal(t, expected(t, ff, "∃x·e=left(x)"), ast.Print(got))
}

func TestUntypedFormulaPanics(t *testing.T) {
	ff := ast.Default()
	res := parser.ParsePredicate(ff, "a÷b=1", config.V2, nil)
	require.False(t, res.HasErrors())
	assert.Panics(t, func() { wd.Predicate(res.Formula) })
}

func TestProcessor(t *testing.T) {
	run := func(text string) *pipeline.Context {
		ctx := pipeline.NewContext(text, pipeline.ModePredicate)
		ctx.Env = testEnv()
		return pipeline.New(
			&lexer.LexerProcessor{},
			&parser.ParserProcessor{},
			&typecheck.TypeCheckProcessor{},
			&wd.WDProcessor{},
		).Run(ctx)
	}

	out := run("card(A)>x")
	require.False(t, out.Failed(), diagnostics.Join(out.Problems))
	require.NotNil(t, out.WD)
	assert.Equal(t, "finite(A)", ast.Print(out.WD))

	out = run("A=1")
	assert.True(t, out.Failed())
	assert.Nil(t, out.WD)
}
