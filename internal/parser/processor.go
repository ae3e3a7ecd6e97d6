package parser

import (
	"github.com/funvibe/formulas/internal/diagnostics"
	"github.com/funvibe/formulas/internal/pipeline"
	"github.com/funvibe/formulas/internal/token"
)

type ParserProcessor struct{}

func (pp *ParserProcessor) Process(ctx *pipeline.Context) *pipeline.Context {
	if ctx.Failed() {
		return ctx
	}
	if ctx.Tokens == nil {
		// The lexer stage normally runs first.
		ctx.AddProblems(diagnostics.NewError(diagnostics.SyntaxError, token.NewSourceLocation(0, 0, ctx.Origin), "token stream is nil"))
		return ctx
	}

	res := New(ctx.Factory, ctx.Tokens, ctx.Version).Parse(ctx.Mode)
	ctx.Root = res.Formula
	ctx.Type = res.Type
	ctx.AddProblems(res.Problems...)
	return ctx
}
