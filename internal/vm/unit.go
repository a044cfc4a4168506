// Package vm runs generated label modules on an embedded Lua interpreter.
// A Unit holds the immutable output of a build; every Runtime owns a private
// lua.State loaded from it and drives one coroutine at a time.
package vm

import (
	_ "embed"
	"maps"
	"slices"
	"strings"
	"sync"

	"github.com/funvibe/talescript/internal/diagnostics"
	"github.com/funvibe/talescript/internal/symbols"
	"github.com/funvibe/talescript/internal/token"
	"github.com/funvibe/talescript/internal/transpiler"
)

//go:embed prelude.lua
var prelude string

const preludeChunkName = "=prelude"

// Unit is a built program: the sealed registry and the generated chunks in
// load order. It is shared read-only by all runtimes except for the
// round-robin counters, which are guarded by mu.
type Unit struct {
	Registry *symbols.Registry
	Chunks   []transpiler.Chunk

	mu    sync.Mutex
	turns map[string]int
}

// Build checks that every chunk of out loads and binds in a scratch state.
func Build(out *transpiler.Output) (*Unit, error) {
	if out == nil || out.Registry == nil {
		return nil, diagnostics.NewError(diagnostics.ErrR003, token.Token{}, "empty build output")
	}
	u := &Unit{
		Registry: out.Registry,
		Chunks:   slices.Clone(out.Chunks),
		turns:    make(map[string]int),
	}
	rt, err := NewRuntime(u, Options{})
	if err != nil {
		return nil, err
	}
	rt.Close()
	return u, nil
}

// nextTurn returns the round-robin position for key and advances it.
func (u *Unit) nextTurn(key string, n int) int {
	u.mu.Lock()
	defer u.mu.Unlock()
	i := u.turns[key] % n
	u.turns[key]++
	return i
}

// ResetTurns rewinds every round-robin counter.
func (u *Unit) ResetTurns() {
	u.mu.Lock()
	clear(u.turns)
	u.mu.Unlock()
}

func turnKey(scope, name string, filters map[string]string) string {
	var b strings.Builder
	b.WriteString(scope)
	b.WriteByte(0)
	b.WriteString(name)
	for _, k := range slices.Sorted(maps.Keys(filters)) {
		b.WriteByte(0)
		b.WriteString(k)
		b.WriteByte('=')
		b.WriteString(filters[k])
	}
	return b.String()
}
