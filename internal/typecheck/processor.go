package typecheck

import (
	"github.com/funvibe/formulas/internal/pipeline"
)

type TypeCheckProcessor struct{}

func (tp *TypeCheckProcessor) Process(ctx *pipeline.Context) *pipeline.Context {
	if ctx.Failed() || ctx.Root == nil {
		return ctx
	}
	res := Check(ctx.Root, ctx.Env)
	ctx.AddProblems(res.Problems...)
	if res.Formula != nil {
		ctx.Root = res.Formula
		ctx.Inferred = res.Inferred
	}
	return ctx
}
