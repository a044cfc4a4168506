package transpiler

import (
	"fmt"
	"sort"
	"strconv"
	"strings"
)

// luaQuote renders s as a Lua 5.2 string literal. UTF-8 passes through;
// control bytes use decimal escapes since 5.2 has no \u{} form.
func luaQuote(s string) string {
	var b strings.Builder
	b.Grow(len(s) + 2)
	b.WriteByte('"')
	for i := 0; i < len(s); i++ {
		c := s[i]
		switch c {
		case '\\':
			b.WriteString(`\\`)
		case '"':
			b.WriteString(`\"`)
		case '\n':
			b.WriteString(`\n`)
		case '\r':
			b.WriteString(`\r`)
		default:
			if c < 0x20 || c == 0x7f {
				fmt.Fprintf(&b, "\\%03d", c)
			} else {
				b.WriteByte(c)
			}
		}
	}
	b.WriteByte('"')
	return b.String()
}

func luaNumber(f float64) string {
	return strconv.FormatFloat(f, 'g', -1, 64)
}

// luaStringList renders {"a", "b"}.
func luaStringList(values []string) string {
	parts := make([]string, len(values))
	for i, v := range values {
		parts[i] = luaQuote(v)
	}
	return "{" + strings.Join(parts, ", ") + "}"
}

// luaStringMap renders {["k"] = "v"} with keys sorted.
func luaStringMap(m map[string]string) string {
	if len(m) == 0 {
		return "{}"
	}
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	parts := make([]string, len(keys))
	for i, k := range keys {
		parts[i] = "[" + luaQuote(k) + "] = " + luaQuote(m[k])
	}
	return "{" + strings.Join(parts, ", ") + "}"
}
