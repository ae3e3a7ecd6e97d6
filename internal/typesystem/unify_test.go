package typesystem

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	intT  = IntegerType{}
	boolT = BooleanType{}
	sT    = GivenType{Name: "S"}
)

func TestUnifyComponentwise(t *testing.T) {
	a := TVar{Name: "a"}
	b := TVar{Name: "b"}

	s, err := Unify(Relation(a, boolT), Relation(intT, b))
	require.NoError(t, err)
	assert.True(t, Equal(intT, a.Apply(s)))
	assert.True(t, Equal(boolT, b.Apply(s)))
}

func TestUnifyMismatch(t *testing.T) {
	tests := []struct {
		name        string
		left, right Type
	}{
		{"int_bool", intT, boolT},
		{"given_names", sT, GivenType{Name: "T"}},
		{"power_vs_product", PowerSet(intT), Product(intT, intT)},
		{"nested", Relation(intT, sT), Relation(intT, intT)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Unify(tt.left, tt.right)
			var ue *UnifyError
			require.ErrorAs(t, err, &ue)
			assert.Equal(t, Mismatch, ue.Kind)
		})
	}
}

func TestUnifyOccursCheck(t *testing.T) {
	a := TVar{Name: "a"}
	_, err := Unify(a, PowerSet(a))
	var ue *UnifyError
	require.ErrorAs(t, err, &ue)
	assert.Equal(t, Circular, ue.Kind)
}

func TestUnifierIsAtomic(t *testing.T) {
	u := NewUnifier()
	a := u.Fresh()
	b := u.Fresh()
	assert.NotEqual(t, a.Name, b.Name)

	// a := ℤ would succeed but b cannot be both ℤ and BOOL.
	err := u.Unify(Product(a, b), Product(intT, PowerSet(boolT)))
	require.NoError(t, err)

	err = u.Unify(Product(TVar{Name: "c"}, b), Product(intT, intT))
	require.Error(t, err)
	_, bound := u.Subst()["c"]
	assert.False(t, bound, "failed unification must not record bindings")

	assert.Equal(t, "ℤ", u.Resolve(a).String())
	assert.Equal(t, "ℙ(BOOL)", u.Resolve(b).String())
}

func TestUnifierChains(t *testing.T) {
	u := NewUnifier()
	a, b, c := u.Fresh(), u.Fresh(), u.Fresh()
	require.NoError(t, u.Unify(a, b))
	require.NoError(t, u.Unify(b, PowerSet(c)))
	require.NoError(t, u.Unify(c, sT))
	assert.True(t, Equal(PowerSet(sT), u.Resolve(a)))
	assert.True(t, IsSolved(u.Resolve(a)))
}

func TestTypeStrings(t *testing.T) {
	assert.Equal(t, "ℙ(ℤ×BOOL)", Relation(intT, boolT).String())
	assert.Equal(t, "S×(ℤ×ℤ)", Product(sT, Product(intT, intT)).String())
	assert.Equal(t, "ℤ×ℤ×ℤ", Product(Product(intT, intT), intT).String())
}

func TestRelationalAccessors(t *testing.T) {
	r := Relation(sT, intT)
	assert.True(t, IsRelational(r))
	assert.True(t, Equal(sT, Source(r)))
	assert.True(t, Equal(intT, Target(r)))
	assert.False(t, IsRelational(PowerSet(intT)))
	assert.Nil(t, BaseType(intT))
}

func TestGivenTypes(t *testing.T) {
	typ := Relation(sT, Product(GivenType{Name: "T"}, sT))
	names := []string{}
	for _, g := range GivenTypes(typ) {
		names = append(names, g.Name)
	}
	assert.Equal(t, []string{"S", "T"}, names)

	replaced := SubstituteGivenTypes(typ, map[string]Type{"S": intT})
	assert.Equal(t, "ℙ(ℤ×(T×ℤ))", replaced.String())
}

func TestEnvironment(t *testing.T) {
	env := NewEnvironment()
	env.AddGivenSet("S")
	env.Add("x", intT)
	assert.Equal(t, []string{"S", "x"}, env.Names())
	assert.Equal(t, "{S⦂ℙ(S), x⦂ℤ}", env.String())

	clone := env.Clone()
	clone.Add("y", boolT)
	assert.False(t, env.Contains("y"))
	assert.Equal(t, 3, clone.Len())

	var nilEnv *Environment
	assert.False(t, nilEnv.Contains("x"))
}
