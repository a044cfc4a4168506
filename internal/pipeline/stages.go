package pipeline

import (
	"errors"
	"log/slog"

	"github.com/funvibe/talescript/internal/diagnostics"
	"github.com/funvibe/talescript/internal/parser"
	"github.com/funvibe/talescript/internal/transpiler"
	"github.com/funvibe/talescript/internal/vm"
)

// ParserProcessor parses every source of the context. A file with errors is
// reported and left out; the others continue to the next stage.
type ParserProcessor struct{}

func (pp *ParserProcessor) Process(ctx *PipelineContext) *PipelineContext {
	ctx.Files = ctx.Files[:0]
	for _, src := range ctx.Sources {
		sf, err := parser.Parse(src.Text, src.Path)
		if err != nil {
			var list diagnostics.List
			if !errors.As(err, &list) {
				ctx.addError(err)
				continue
			}
			ctx.Errors = append(ctx.Errors, list...)
			ctx.Logger().Warn("skipping file with parse errors",
				slog.String("file", src.Path),
				slog.Int("errors", len(list)),
				slog.String("first", list[0].Error()))
			continue
		}
		ctx.Files = append(ctx.Files, sf)
	}
	ctx.Logger().Debug("parsed sources", slog.Int("files", len(ctx.Files)), slog.Int("sources", len(ctx.Sources)))
	return ctx
}

// Pass1Processor builds and seals the label registry. A transpile error
// drops the registry so no later stage runs on inconsistent IDs.
type Pass1Processor struct{}

func (p *Pass1Processor) Process(ctx *PipelineContext) *PipelineContext {
	reg, err := transpiler.Pass1(ctx.Files...)
	if err != nil {
		ctx.addError(err)
		ctx.Logger().Error("label registry failed", slog.Any("err", err))
		return ctx
	}
	ctx.Registry = reg
	ctx.Logger().Debug("label registry sealed", slog.Int("labels", reg.Len()))
	return ctx
}

// Pass2Processor generates the Lua chunks.
type Pass2Processor struct{}

func (p *Pass2Processor) Process(ctx *PipelineContext) *PipelineContext {
	if ctx.Registry == nil {
		return ctx
	}
	out, err := transpiler.Pass2(ctx.Registry)
	if err != nil {
		ctx.addError(err)
		ctx.Logger().Error("code generation failed", slog.Any("err", err))
		return ctx
	}
	ctx.Output = out
	ctx.Logger().Debug("code generated", slog.Int("chunks", len(out.Chunks)))
	return ctx
}

// BuildProcessor loads the generated chunks into the host VM to check them.
type BuildProcessor struct{}

func (p *BuildProcessor) Process(ctx *PipelineContext) *PipelineContext {
	if ctx.Output == nil {
		return ctx
	}
	unit, err := vm.Build(ctx.Output)
	if err != nil {
		ctx.addError(err)
		ctx.Logger().Error("generated code failed to load", slog.Any("err", err))
		return ctx
	}
	ctx.Unit = unit
	return ctx
}

// Default returns the full build: parse, both transpiler passes, VM check.
func Default() *Pipeline {
	return New(&ParserProcessor{}, &Pass1Processor{}, &Pass2Processor{}, &BuildProcessor{})
}

var (
	_ Processor = (*ParserProcessor)(nil)
	_ Processor = (*Pass1Processor)(nil)
	_ Processor = (*Pass2Processor)(nil)
	_ Processor = (*BuildProcessor)(nil)
)
