package lexer

import (
	"github.com/funvibe/formulas/internal/pipeline"
)

type LexerProcessor struct{}

func (lp *LexerProcessor) Process(ctx *pipeline.Context) *pipeline.Context {
	opts := Options{Version: ctx.Version, Origin: ctx.Origin}
	if ctx.Factory != nil {
		g := ctx.Factory.Grammar()
		opts.Words, opts.Symbols = g.Words(), g.Symbols()
	}
	tokens, problems := Scan(ctx.Source, opts)
	ctx.Tokens = tokens
	ctx.AddProblems(problems...)
	return ctx
}
