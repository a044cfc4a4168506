// Package generator wraps a running label in a pull-based state machine that
// hands out one ScriptEvent per Resume.
package generator

import (
	"errors"
	"log/slog"

	"github.com/funvibe/talescript/internal/diagnostics"
	"github.com/funvibe/talescript/internal/event"
	"github.com/funvibe/talescript/internal/log"
	"github.com/funvibe/talescript/internal/token"
)

type State int

const (
	Running State = iota
	Suspended
	Completed
)

func (s State) String() string {
	switch s {
	case Running:
		return "Running"
	case Suspended:
		return "Suspended"
	case Completed:
		return "Completed"
	}
	return "Unknown"
}

// Coroutine is the host VM side of a generator. Resume returns the next
// yielded value and true, false once the entry call returned, or an error
// raised by the VM.
type Coroutine interface {
	Resume() (any, bool, error)
	Close()
	// Label is the path of the label currently executing.
	Label() string
}

// ScriptGenerator is not safe for concurrent use.
type ScriptGenerator struct {
	co     Coroutine
	state  State
	logger *slog.Logger
}

func New(co Coroutine) *ScriptGenerator {
	return &ScriptGenerator{co: co, state: Running, logger: log.WithComponent("generator")}
}

// WithLogger replaces the generator's logger.
func (g *ScriptGenerator) WithLogger(l *slog.Logger) *ScriptGenerator {
	if l != nil {
		g.logger = l
	}
	return g
}

func (g *ScriptGenerator) State() State { return g.state }

func (g *ScriptGenerator) IsCompleted() bool { return g.state == Completed }

// Resume advances the script by one step. It returns false without error
// once the script has completed. An ErrorEvent is returned normally and
// completes the generator.
func (g *ScriptGenerator) Resume() (event.ScriptEvent, bool, error) {
	if g.state == Completed {
		return nil, false, nil
	}

	v, ok, err := g.co.Resume()
	if err != nil {
		label := g.co.Label()
		g.complete()
		derr := diagnostics.NewError(diagnostics.ErrR001, token.Token{}, "script raised an error").Wrap(err)
		derr.Label = label
		g.logger.Error("vm error", slog.String("label", label), slog.Any("err", err))
		return nil, false, derr
	}
	if !ok {
		g.complete()
		return nil, false, nil
	}

	ev, err := event.FromDynamic(v)
	if err != nil {
		label := g.co.Label()
		g.complete()
		derr := diagnostics.NewError(diagnostics.ErrR002, token.Token{}, "yielded value is not a script event").Wrap(err)
		derr.Label = label
		return nil, false, derr
	}

	if ev.Kind() == event.KindError {
		g.logger.Warn("script error event", slog.String("label", g.co.Label()), slog.String("event", ev.String()))
		g.complete()
		return ev, true, nil
	}
	g.state = Suspended
	return ev, true, nil
}

// ResumeAll drains the generator. Events collected before a failure are
// discarded.
func (g *ScriptGenerator) ResumeAll() ([]event.ScriptEvent, error) {
	var events []event.ScriptEvent
	for {
		ev, ok, err := g.Resume()
		if err != nil {
			return nil, err
		}
		if !ok {
			return events, nil
		}
		events = append(events, ev)
	}
}

// Skip marks the generator completed without running the rest of the script.
func (g *ScriptGenerator) Skip() {
	g.state = Completed
}

// Close completes the generator and releases the coroutine.
func (g *ScriptGenerator) Close() {
	g.complete()
}

func (g *ScriptGenerator) complete() {
	g.state = Completed
	if g.co != nil {
		g.co.Close()
	}
}

// IsRuntimeError reports whether err came from a running script.
func IsRuntimeError(err error) bool {
	return errors.Is(err, diagnostics.ErrRuntime)
}
