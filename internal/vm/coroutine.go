package vm

import "iter"

type step struct {
	value any
	err   error
}

// ScriptError is an error raised by Lua code while a label runs.
type ScriptError struct {
	Label   string
	Message string
}

func (e *ScriptError) Error() string {
	if e.Label == "" {
		return e.Message
	}
	return e.Label + ": " + e.Message
}

// Coroutine is one entry call suspended at host.yield. Each Resume runs the
// Lua code up to the next yield.
type Coroutine struct {
	rt   *Runtime
	next func() (step, bool)
	stop func()
	done bool
}

// Start begins running the label with the given id. A coroutine still
// active on the runtime is closed first.
func (rt *Runtime) Start(id uint32, args []any) *Coroutine {
	if rt.active != nil {
		rt.active.Close()
	}
	rt.halted = false
	rt.label = ""
	if e, ok := rt.unit.Registry.Entry(id); ok {
		rt.label = e.FnPath
	}

	closed := rt.closed
	seq := func(yield func(step) bool) {
		if closed {
			yield(step{err: ErrClosed})
			return
		}
		rt.yield = yield
		defer func() { rt.yield = nil }()

		l := rt.l
		top := l.Top()
		l.Global("__start")
		l.PushInteger(int(id))
		pushGo(l, args)
		if err := l.ProtectedCall(2, 0, 0); err != nil {
			msg := errorText(l, top, err)
			l.SetTop(top)
			if rt.halted {
				return
			}
			yield(step{err: &ScriptError{Label: rt.label, Message: msg}})
		}
	}

	next, stop := iter.Pull(iter.Seq[step](seq))
	co := &Coroutine{rt: rt, next: next, stop: stop}
	if !closed {
		rt.active = co
	}
	return co
}

// Resume runs to the next suspension point. It returns the yielded value
// and true, or false once the call has returned. A Lua error ends the
// coroutine and is returned as a *ScriptError.
func (c *Coroutine) Resume() (any, bool, error) {
	if c.done {
		return nil, false, nil
	}
	s, ok := c.next()
	if !ok {
		c.finish()
		return nil, false, nil
	}
	if s.err != nil {
		c.finish()
		return nil, false, s.err
	}
	return s.value, true, nil
}

// Label returns the path of the label the coroutine is executing.
func (c *Coroutine) Label() string { return c.rt.label }

// Close unwinds the Lua stack of a suspended call. It is safe to call more
// than once.
func (c *Coroutine) Close() {
	c.finish()
}

func (c *Coroutine) finish() {
	if !c.done {
		c.done = true
		c.stop()
	}
	if c.rt.active == c {
		c.rt.active = nil
	}
}
