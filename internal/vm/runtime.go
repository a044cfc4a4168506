package vm

import (
	"errors"
	"log/slog"
	"math/rand/v2"
	"strings"

	lua "github.com/Shopify/go-lua"

	"github.com/funvibe/talescript/internal/config"
	"github.com/funvibe/talescript/internal/diagnostics"
	"github.com/funvibe/talescript/internal/log"
	"github.com/funvibe/talescript/internal/token"
	"github.com/funvibe/talescript/internal/transpiler"
)

// Options configures a Runtime.
type Options struct {
	// Policy is config.SelectRoundRobin (default) or config.SelectRandom.
	Policy string
	// Seed feeds word picks and random selection. Zero draws a fresh seed.
	Seed uint64
	// ActorNames maps script actor names to display names.
	ActorNames map[string]string
	Logger     *slog.Logger
}

// ErrClosed is returned by coroutines started on a closed runtime.
var ErrClosed = errors.New("runtime closed")

// Runtime is one Lua state loaded with a Unit. It is not safe for
// concurrent use.
type Runtime struct {
	unit *Unit
	l    *lua.State
	opts Options
	rand *rand.Rand
	log  *slog.Logger

	// label is the path of the label currently executing.
	label string
	// halted is set once the running coroutine must unwind without yielding.
	halted bool
	yield  func(step) bool
	active *Coroutine
	closed bool
}

// NewRuntime creates a state with the host API, the prelude and every
// chunk of unit loaded. Load failures are R003 errors.
func NewRuntime(unit *Unit, opts Options) (*Runtime, error) {
	if opts.Policy == "" {
		opts.Policy = config.SelectRoundRobin
	}
	seed := opts.Seed
	if seed == 0 {
		seed = rand.Uint64()
	}
	logger := opts.Logger
	if logger == nil {
		logger = log.WithComponent("vm")
	}

	rt := &Runtime{
		unit: unit,
		l:    lua.NewState(),
		opts: opts,
		rand: rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15)),
		log:  logger,
	}
	lua.OpenLibraries(rt.l)
	rt.registerHost()
	rt.l.NewTable()
	rt.l.SetGlobal("__modules")

	if err := rt.load(preludeChunkName, prelude, ""); err != nil {
		return nil, err
	}
	for _, c := range unit.Chunks {
		label := ""
		if c.Kind == transpiler.ChunkLabel {
			label = c.Path
		}
		if err := rt.load(c.Name, c.Source, label); err != nil {
			return nil, err
		}
	}
	rt.log.Debug("runtime ready", slog.Int("chunks", len(unit.Chunks)), slog.String("policy", opts.Policy))
	return rt, nil
}

func (rt *Runtime) load(name, source, label string) error {
	top := rt.l.Top()
	err := lua.LoadBuffer(rt.l, source, name, "")
	if err == nil {
		err = rt.l.ProtectedCall(0, 0, 0)
	}
	if err == nil {
		return nil
	}
	msg := errorText(rt.l, top, err)
	rt.l.SetTop(top)
	derr := diagnostics.Errorf(diagnostics.ErrR003, token.Token{}, "loading %s: %s", strings.TrimPrefix(name, "="), msg)
	derr.Label = label
	return derr
}

// errorText takes the error message left above top, falling back to err.
func errorText(l *lua.State, top int, err error) string {
	if l.Top() > top && l.TypeOf(-1) == lua.TypeString {
		s, _ := l.ToString(-1)
		return s
	}
	return err.Error()
}

// Unit returns the program the runtime was loaded from.
func (rt *Runtime) Unit() *Unit { return rt.unit }

// Global reads a script global variable.
func (rt *Runtime) Global(name string) any {
	rt.l.Global("__globals")
	defer rt.l.Pop(1)
	if rt.l.TypeOf(-1) != lua.TypeTable {
		return nil
	}
	rt.l.Field(-1, name)
	defer rt.l.Pop(1)
	return toGo(rt.l, -1)
}

// SetGlobal assigns a script global variable before or between runs.
func (rt *Runtime) SetGlobal(name string, value any) {
	rt.l.Global("__globals")
	pushGo(rt.l, value)
	rt.l.SetField(-2, name)
	rt.l.Pop(1)
}

// Close stops the active coroutine. The runtime cannot be used afterwards.
func (rt *Runtime) Close() {
	if rt.closed {
		return
	}
	if rt.active != nil {
		rt.active.Close()
	}
	rt.closed = true
}
