package wd

import (
	"github.com/funvibe/formulas/internal/pipeline"
)

type WDProcessor struct{}

func (wp *WDProcessor) Process(ctx *pipeline.Context) *pipeline.Context {
	if ctx.Failed() || ctx.Root == nil || !ctx.Root.IsTypeChecked() {
		return ctx
	}
	ctx.WD = Predicate(ctx.Root)
	return ctx
}
