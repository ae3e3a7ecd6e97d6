package pipeline

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/funvibe/formulas/internal/config"
	"github.com/funvibe/formulas/internal/diagnostics"
)

func TestRunKeepsOrderAndContinuesAfterErrors(t *testing.T) {
	var seen []string
	stage := func(name string, fail bool) Processor {
		return ProcessorFunc(func(ctx *Context) *Context {
			seen = append(seen, name)
			if fail {
				ctx.AddProblems(diagnostics.NewError(diagnostics.SyntaxError, nil, name))
			}
			return ctx
		})
	}

	ctx := New(stage("a", false), stage("b", true), stage("c", false)).Run(NewContext("x", ModePredicate))
	assert.Equal(t, []string{"a", "b", "c"}, seen)
	assert.True(t, ctx.Failed())
	assert.Len(t, ctx.Problems, 1)
}

func TestNewContext(t *testing.T) {
	ctx := NewContext("x=1", ModeExpression)
	assert.Equal(t, config.DefaultVersion, ctx.Version)
	assert.NotNil(t, ctx.Factory)
	assert.False(t, ctx.Failed())
}

func TestModeNames(t *testing.T) {
	for m := ModeExpression; m <= ModePredicatePattern; m++ {
		back, ok := ParseMode(m.String())
		assert.True(t, ok)
		assert.Equal(t, m, back)
	}
	_, ok := ParseMode("sentence")
	assert.False(t, ok)
	assert.Equal(t, "unknown", Mode(42).String())
}
