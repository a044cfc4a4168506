// Package engine is the embedding API: it compiles a script root once and
// hands out generators that play labels event by event.
package engine

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/funvibe/talescript/internal/artifact"
	"github.com/funvibe/talescript/internal/config"
	"github.com/funvibe/talescript/internal/diagnostics"
	"github.com/funvibe/talescript/internal/event"
	"github.com/funvibe/talescript/internal/generator"
	"github.com/funvibe/talescript/internal/log"
	"github.com/funvibe/talescript/internal/modules"
	"github.com/funvibe/talescript/internal/pipeline"
	"github.com/funvibe/talescript/internal/vm"
)

// Source is an in-memory script file.
type Source = modules.Source

// ScriptEvent is one step of a running script.
type ScriptEvent = event.ScriptEvent

// Generator plays one label.
type Generator = generator.ScriptGenerator

var (
	ErrLabelNotFound = errors.New("label not found")
	ErrClosed        = errors.New("engine closed")

	// Error kinds reported by Diagnostics and build failures.
	ErrParse     = diagnostics.ErrParse
	ErrTranspile = diagnostics.ErrTranspile
	ErrRuntime   = diagnostics.ErrRuntime
)

// Engine holds a compiled unit. Generators it creates are independent and
// may run on different goroutines.
type Engine struct {
	root    string
	outDir  string
	project *config.Project
	unit    *vm.Unit
	errs    diagnostics.List
	buildID string
	vmOpts  vm.Options
	logger  *slog.Logger
	closed  bool
}

// New loads every script under root, compiles it, writes the generated Lua
// and a build record to outDir and returns the engine. An empty outDir
// uses the project's out_dir. Files with parse errors are skipped and
// reported by Diagnostics; any other error fails the build.
func New(root, outDir string, opts ...Option) (*Engine, error) {
	s := newSettings(opts)
	project, err := s.loadProject(root)
	if err != nil {
		return nil, err
	}
	if outDir == "" {
		outDir = project.OutputDir()
	}

	loader := modules.NewLoader(project.Root)
	sources, err := loader.LoadAll(project.SourceDirs()...)
	if err != nil {
		return nil, err
	}

	e := newEngine(project, s)
	e.root, e.outDir = root, outDir
	ctx := e.build(sources)
	if err := e.persist(ctx, len(sources)); err != nil {
		return nil, err
	}
	if ctx.Fatal() {
		return nil, fmt.Errorf("build %s: %w", root, ctx.Errors.Err())
	}
	return e, nil
}

// Compile builds an engine from in-memory sources. Nothing is written to disk.
func Compile(sources []Source, opts ...Option) (*Engine, error) {
	s := newSettings(opts)
	project := s.project
	if project == nil {
		project = config.DefaultProject("")
	}
	e := newEngine(project, s)
	ctx := e.build(sources)
	if ctx.Fatal() {
		return nil, fmt.Errorf("compile: %w", ctx.Errors.Err())
	}
	return e, nil
}

func newEngine(project *config.Project, s *settings) *Engine {
	opts := vm.Options{
		Policy:     project.Select,
		Seed:       project.Seed,
		ActorNames: project.Actors,
		Logger:     s.logger.With(slog.String("component", "vm")),
	}
	if s.policy != "" {
		opts.Policy = s.policy
	}
	if s.seed != 0 {
		opts.Seed = s.seed
	}
	if s.actorNames != nil {
		opts.ActorNames = s.actorNames
	}
	return &Engine{
		project: project,
		buildID: artifact.NewBuildID(),
		vmOpts:  opts,
		logger:  s.logger,
	}
}

func (e *Engine) build(sources []Source) *pipeline.PipelineContext {
	start := time.Now()
	ctx := pipeline.NewPipelineContext(sources...).WithLogger(e.logger.With(slog.String("component", "pipeline")))
	ctx = pipeline.Default().Run(ctx)
	e.unit = ctx.Unit
	e.errs = ctx.Errors

	attrs := []any{
		slog.String("build", e.buildID),
		slog.Int("sources", len(sources)),
		slog.Int("diagnostics", len(ctx.Errors)),
		slog.Duration("took", time.Since(start)),
	}
	if ctx.Registry != nil {
		attrs = append(attrs, slog.Int("labels", ctx.Registry.Len()))
	}
	if ctx.Fatal() {
		e.logger.Error("build failed", attrs...)
	} else {
		e.logger.Info("build finished", attrs...)
	}
	return ctx
}

// persist writes the generated chunks and records the build, failed or not.
func (e *Engine) persist(ctx *pipeline.PipelineContext, sources int) error {
	if ctx.Output != nil {
		if _, err := artifact.WriteChunks(e.outDir, ctx.Output); err != nil {
			return err
		}
	}
	m, err := artifact.OpenManifest(e.outDir)
	if err != nil {
		return err
	}
	defer m.Close()
	b := artifact.Build{ID: e.buildID, Sources: sources, OK: !ctx.Fatal()}
	return m.RecordBuild(context.Background(), b, ctx.Registry, ctx.Errors)
}

// HasLabel reports whether name is a global label name or a label path.
func (e *Engine) HasLabel(name string) bool {
	reg := e.unit.Registry
	if reg.HasGlobal(name) {
		return true
	}
	_, ok := reg.Lookup(name)
	return ok
}

// Labels returns the global label names in document order.
func (e *Engine) Labels() []string {
	return e.unit.Registry.GlobalNames()
}

// Paths returns every label path in ID order.
func (e *Engine) Paths() []string {
	entries := e.unit.Registry.Entries()
	paths := make([]string, len(entries))
	for i, entry := range entries {
		paths[i] = entry.FnPath
	}
	return paths
}

// Diagnostics returns the errors collected while building. They are
// *diagnostics.DiagnosticError values matching ErrParse, ErrTranspile or
// ErrRuntime with errors.Is.
func (e *Engine) Diagnostics() []error {
	out := make([]error, len(e.errs))
	for i, d := range e.errs {
		out[i] = d
	}
	return out
}

func (e *Engine) BuildID() string { return e.buildID }

// OutDir is where the build artifacts were written; empty for Compile.
func (e *Engine) OutDir() string { return e.outDir }

// Entry returns the project's default label.
func (e *Engine) Entry() string { return e.project.Entry }

// Generator starts the label name on a fresh runtime. Among same-named
// labels the filters and the select policy decide. Closing the generator
// releases the runtime.
func (e *Engine) Generator(name string, filters map[string]string) (*Generator, error) {
	if e.closed {
		return nil, ErrClosed
	}
	rt, err := vm.NewRuntime(e.unit, e.vmOpts)
	if err != nil {
		return nil, err
	}
	id, ok := rt.Select("", name, filters)
	if !ok {
		rt.Close()
		return nil, fmt.Errorf("%w: %s", ErrLabelNotFound, name)
	}
	co := &ownedCoroutine{Coroutine: rt.Start(id, nil), rt: rt}
	e.logger.Debug("generator started", slog.String("label", name), slog.String("path", co.Label()))
	return generator.New(co).WithLogger(e.logger.With(slog.String("component", "generator"))), nil
}

// ExecuteLabel runs name to completion and returns its events.
func (e *Engine) ExecuteLabel(name string) ([]ScriptEvent, error) {
	g, err := e.Generator(name, nil)
	if err != nil {
		return nil, err
	}
	defer g.Close()
	return g.ResumeAll()
}

// ResetSelection rewinds round-robin label selection, so the next
// generators pick same-named labels from the first one again.
func (e *Engine) ResetSelection() {
	e.unit.ResetTurns()
}

// Close stops the engine from creating generators. Running generators are
// unaffected and must be closed by their owners.
func (e *Engine) Close() error {
	e.closed = true
	return nil
}

// ownedCoroutine closes its runtime together with the coroutine.
type ownedCoroutine struct {
	*vm.Coroutine
	rt *vm.Runtime
}

func (c *ownedCoroutine) Close() {
	c.Coroutine.Close()
	c.rt.Close()
}

func defaultLogger() *slog.Logger { return log.WithComponent("engine") }
