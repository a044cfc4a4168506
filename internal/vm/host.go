package vm

import (
	"strings"

	lua "github.com/Shopify/go-lua"
)

const haltMessage = "script halted"

// registerHost installs the __host table used by the prelude and by
// generated modules.
func (rt *Runtime) registerHost() {
	rt.l.NewTable()
	lua.SetFunctions(rt.l, []lua.RegistryFunction{
		{Name: "yield", Function: rt.hostYield},
		{Name: "halt", Function: rt.hostHalt},
		{Name: "random", Function: rt.hostRandom},
		{Name: "select", Function: rt.hostSelect},
		{Name: "import", Function: rt.hostImport},
		{Name: "enter", Function: rt.hostEnter},
		{Name: "add", Function: hostAdd},
		{Name: "str", Function: hostStr},
	}, 0)
	rt.l.SetGlobal("__host")
}

// hostYield suspends the coroutine with an event table. Once the consumer
// stops pulling, every further yield raises instead of suspending.
func (rt *Runtime) hostYield(l *lua.State) int {
	v := toGo(l, 1)
	if rt.halted || rt.yield == nil {
		rt.halted = true
		lua.Errorf(l, haltMessage)
	}
	if !rt.yield(step{value: v}) {
		rt.halted = true
		lua.Errorf(l, haltMessage)
	}
	return 0
}

func (rt *Runtime) hostHalt(l *lua.State) int {
	rt.halted = true
	lua.Errorf(l, haltMessage)
	return 0
}

// hostRandom returns an index in [1, n].
func (rt *Runtime) hostRandom(l *lua.State) int {
	n := lua.CheckInteger(l, 1)
	if n < 1 {
		l.PushInteger(1)
		return 1
	}
	l.PushInteger(rt.rand.IntN(n) + 1)
	return 1
}

func (rt *Runtime) hostSelect(l *lua.State) int {
	scope := lua.CheckString(l, 1)
	name := lua.CheckString(l, 2)
	id, ok := rt.Select(scope, name, stringMap(l, 3))
	if !ok {
		l.PushNil()
		return 1
	}
	l.PushInteger(int(id))
	return 1
}

// hostImport maps a list of actor names to their display names.
func (rt *Runtime) hostImport(l *lua.State) int {
	lua.CheckType(l, 1, lua.TypeTable)
	n := l.RawLength(1)
	l.CreateTable(0, n)
	for i := 1; i <= n; i++ {
		l.RawGetInt(1, i)
		name, _ := l.ToString(-1)
		l.Pop(1)
		display := name
		if d, ok := rt.opts.ActorNames[name]; ok {
			display = d
		}
		l.PushString(display)
		l.SetField(-2, name)
	}
	return 1
}

func (rt *Runtime) hostEnter(l *lua.State) int {
	id := lua.CheckInteger(l, 1)
	if e, ok := rt.unit.Registry.Entry(uint32(id)); ok {
		rt.label = e.FnPath
	}
	return 0
}

// hostAdd adds two numbers and concatenates anything else.
func hostAdd(l *lua.State) int {
	if l.TypeOf(1) == lua.TypeNumber && l.TypeOf(2) == lua.TypeNumber {
		a, _ := l.ToNumber(1)
		b, _ := l.ToNumber(2)
		l.PushNumber(a + b)
		return 1
	}
	l.PushString(formatValue(l, 1) + formatValue(l, 2))
	return 1
}

func hostStr(l *lua.State) int {
	var b strings.Builder
	for i := 1; i <= l.Top(); i++ {
		b.WriteString(formatValue(l, i))
	}
	l.PushString(b.String())
	return 1
}
