package vm

import (
	"math"
	"slices"
	"strconv"

	lua "github.com/Shopify/go-lua"
)

// toGo converts the Lua value at index into the dynamic form used by
// events: string, float64, bool, []any, map[string]any or nil. Functions,
// userdata and threads have no dynamic form and become nil.
func toGo(l *lua.State, index int) any {
	switch l.TypeOf(index) {
	case lua.TypeString:
		s, _ := l.ToString(index)
		return s
	case lua.TypeNumber:
		f, _ := l.ToNumber(index)
		return f
	case lua.TypeBoolean:
		return l.ToBoolean(index)
	case lua.TypeTable:
		return tableToGo(l, index)
	default:
		return nil
	}
}

// tableToGo returns a slice for tables whose keys are exactly 1..n and a
// map otherwise. Empty tables become empty maps.
func tableToGo(l *lua.State, index int) any {
	index = l.AbsIndex(index)

	isArray := true
	maxIndex, count := 0, 0
	l.PushNil()
	for l.Next(index) {
		count++
		if isArray {
			f, ok := l.ToNumber(-2)
			if l.TypeOf(-2) != lua.TypeNumber || !ok || f < 1 || f != math.Trunc(f) {
				isArray = false
			} else if int(f) > maxIndex {
				maxIndex = int(f)
			}
		}
		l.Pop(1)
	}

	if isArray && count > 0 && maxIndex == count {
		out := make([]any, 0, count)
		for i := 1; i <= count; i++ {
			l.RawGetInt(index, i)
			out = append(out, toGo(l, -1))
			l.Pop(1)
		}
		return out
	}

	out := make(map[string]any, count)
	l.PushNil()
	for l.Next(index) {
		var key string
		switch l.TypeOf(-2) {
		case lua.TypeString:
			key, _ = l.ToString(-2)
		case lua.TypeNumber:
			f, _ := l.ToNumber(-2)
			key = strconv.FormatFloat(f, 'f', -1, 64)
		default:
			l.Pop(1)
			continue
		}
		if v := toGo(l, -1); v != nil {
			out[key] = v
		}
		l.Pop(1)
	}
	return out
}

// pushGo pushes a dynamic Go value onto the Lua stack.
func pushGo(l *lua.State, v any) {
	switch x := v.(type) {
	case nil:
		l.PushNil()
	case string:
		l.PushString(x)
	case float64:
		l.PushNumber(x)
	case int:
		l.PushNumber(float64(x))
	case bool:
		l.PushBoolean(x)
	case []any:
		l.CreateTable(len(x), 0)
		for i, item := range x {
			pushGo(l, item)
			l.RawSetInt(-2, i+1)
		}
	case map[string]any:
		l.CreateTable(0, len(x))
		keys := make([]string, 0, len(x))
		for k := range x {
			keys = append(keys, k)
		}
		slices.Sort(keys)
		for _, k := range keys {
			pushGo(l, x[k])
			l.SetField(-2, k)
		}
	case map[string]string:
		l.CreateTable(0, len(x))
		for k, s := range x {
			l.PushString(s)
			l.SetField(-2, k)
		}
	default:
		l.PushNil()
	}
}

// stringMap reads a table of string keys into a map; non-string values are
// formatted the way host.str formats them.
func stringMap(l *lua.State, index int) map[string]string {
	out := make(map[string]string)
	if l.TypeOf(index) != lua.TypeTable {
		return out
	}
	index = l.AbsIndex(index)
	l.PushNil()
	for l.Next(index) {
		if l.TypeOf(-2) == lua.TypeString {
			k, _ := l.ToString(-2)
			out[k] = formatValue(l, -1)
		}
		l.Pop(1)
	}
	return out
}

// formatValue renders a value for dialogue text. Whole numbers print
// without a fraction and nil prints as nothing.
func formatValue(l *lua.State, index int) string {
	switch l.TypeOf(index) {
	case lua.TypeNil, lua.TypeNone:
		return ""
	case lua.TypeString:
		s, _ := l.ToString(index)
		return s
	case lua.TypeNumber:
		f, _ := l.ToNumber(index)
		return strconv.FormatFloat(f, 'f', -1, 64)
	case lua.TypeBoolean:
		return strconv.FormatBool(l.ToBoolean(index))
	default:
		return "<" + lua.TypeNameOf(l, index) + ">"
	}
}
