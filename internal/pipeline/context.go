package pipeline

import (
	"log/slog"

	"github.com/funvibe/talescript/internal/ast"
	"github.com/funvibe/talescript/internal/diagnostics"
	"github.com/funvibe/talescript/internal/log"
	"github.com/funvibe/talescript/internal/modules"
	"github.com/funvibe/talescript/internal/symbols"
	"github.com/funvibe/talescript/internal/token"
	"github.com/funvibe/talescript/internal/transpiler"
	"github.com/funvibe/talescript/internal/vm"
)

// Processor is one stage of the build.
type Processor interface {
	Process(ctx *PipelineContext) *PipelineContext
}

// PipelineContext carries the state of one build from sources to a Unit.
type PipelineContext struct {
	Sources  []modules.Source
	Files    []*ast.ScriptFile
	Registry *symbols.Registry
	Output   *transpiler.Output
	Unit     *vm.Unit
	Errors   diagnostics.List

	logger *slog.Logger
}

func NewPipelineContext(sources ...modules.Source) *PipelineContext {
	return &PipelineContext{Sources: sources}
}

// WithLogger sets the logger used by all stages.
func (c *PipelineContext) WithLogger(l *slog.Logger) *PipelineContext {
	c.logger = l
	return c
}

func (c *PipelineContext) Logger() *slog.Logger {
	if c.logger == nil {
		c.logger = log.WithComponent("pipeline")
	}
	return c.logger
}

// Fatal reports whether the build produced no runnable unit. Parse errors
// alone are not fatal: the files without errors still build.
func (c *PipelineContext) Fatal() bool {
	return c.Unit == nil
}

// ErrorsOf returns the collected diagnostics of one kind:
// diagnostics.ErrParse, ErrTranspile or ErrRuntime.
func (c *PipelineContext) ErrorsOf(kind error) diagnostics.List {
	var out diagnostics.List
	for _, e := range c.Errors {
		if e.Kind() == kind {
			out = append(out, e)
		}
	}
	return out
}

func (c *PipelineContext) addError(err error) {
	switch e := err.(type) {
	case diagnostics.List:
		c.Errors = append(c.Errors, e...)
	case *diagnostics.DiagnosticError:
		c.Errors = append(c.Errors, e)
	default:
		c.Errors = append(c.Errors, diagnostics.NewError(diagnostics.ErrR003, token.Token{}, "build failed").Wrap(err))
	}
}
