package main

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func run(t *testing.T, stdin string, args ...string) (string, error) {
	t.Helper()
	cmd := newRootCmd()
	var out, errOut bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&errOut)
	cmd.SetIn(strings.NewReader(stdin))
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

func TestParseCommand(t *testing.T) {
	tests := []struct {
		name     string
		args     []string
		expected string
	}{
		{"predicate", []string{"parse", "x∈ℕ∧y>x"}, "x∈ℕ ∧ y>x\n"},
		{"expression", []string{"parse", "--kind", "expression", "a ∗ (b+c)"}, "a∗(b+c)\n"},
		{"assignment", []string{"parse", "-k", "assignment", "x:=x+1"}, "x ≔ x+1\n"},
		{"type", []string{"parse", "--kind", "type", "ℙ(S)"}, "ℙ(S)\n"},
		{"several", []string{"parse", "a=b", "c=d"}, "a=b\nc=d\n"},
		{"v1", []string{"parse", "--v1", "partition=a"}, "partition=a\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out, err := run(t, "", tt.args...)
			require.NoError(t, err, out)
			assert.Equal(t, tt.expected, out)
		})
	}
}

func TestReadsStandardInput(t *testing.T) {
	out, err := run(t, "a=b\n\n  c=d  \n", "parse")
	require.NoError(t, err)
	assert.Equal(t, "a=b\nc=d\n", out)
}

func TestRejectedFormulas(t *testing.T) {
	out, err := run(t, "", "parse", "a=b", "x∈")
	assert.ErrorIs(t, err, errRejected)
	assert.True(t, strings.HasPrefix(out, "a=b\n"), out)
	assert.Contains(t, out, "error [")
	assert.Contains(t, out, "  x∈\n")
	assert.NotContains(t, out, "\033[", "no colour when the output is not a terminal")
}

func TestCheckCommand(t *testing.T) {
	out, err := run(t, "", "check", "--env", "x=ℤ", "x=y")
	require.NoError(t, err, out)
	assert.Equal(t, "x=y\n  inferred: {y⦂ℤ}\n", out)

	out, err = run(t, "", "check", "x=1 ∧ x=TRUE")
	assert.ErrorIs(t, err, errRejected)
	assert.Contains(t, out, "[TypesDoNotMatch]")

	_, err = run(t, "", "check", "--kind", "type", "ℤ")
	assert.Error(t, err)
	assert.NotErrorIs(t, err, errRejected)

	_, err = run(t, "", "check", "--env", "x", "x=1")
	assert.Error(t, err)
}

func TestWDCommand(t *testing.T) {
	out, err := run(t, "", "wd", "a÷b=c", "card(s)=1 ∧ s⊆ℕ", "x=1")
	require.NoError(t, err, out)
	assert.Equal(t, "b≠0\nfinite(s)\n⊤\n", out)

	out, err = run(t, "", "wd", "-k", "assignment", "x ≔ a mod b")
	require.NoError(t, err, out)
	assert.Equal(t, "0≤a ∧ 0<b\n", out)
}

func TestPrintCommand(t *testing.T) {
	out, err := run(t, "", "print", "--kind", "expression", "a+b∗c")
	require.NoError(t, err)
	assert.Contains(t, out, "(b∗c)")

	out, err = run(t, "", "print", "--full=false", "--kind", "expression", "a+(b∗c)")
	require.NoError(t, err)
	assert.Equal(t, "a+b∗c\n", out)
}

func TestUnknownKind(t *testing.T) {
	_, err := run(t, "", "parse", "--kind", "sentence", "a=b")
	assert.ErrorContains(t, err, "unknown kind")
}

func TestExtensionFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "list.yaml")
	yaml := `
datatypes:
  - name: List
    params: [T]
    constructors:
      - name: nil
      - name: cons
        args:
          - {destructor: head, type: T}
          - {destructor: tail, type: List(T)}
`
	require.NoError(t, os.WriteFile(path, []byte(yaml), 0o644))

	out, err := run(t, "", "wd", "--ext", path, "l∈List(ℤ) ∧ h=head(l)")
	require.NoError(t, err, out)
	assert.Equal(t, "l∈List(ℤ) ⇒ ∃x,x0·l=cons(x,x0)\n", out)

	_, err = run(t, "", "parse", "--ext", filepath.Join(t.TempDir(), "missing.yaml"), "a=b")
	assert.Error(t, err)
}

func TestUnderline(t *testing.T) {
	assert.Equal(t, "  ^^^", underline("x∈ℕ∧y", 2, 4))
	assert.Equal(t, "^", underline("", 0, 0))
	assert.Equal(t, " ^", underline("ab", 1, 7))
}
