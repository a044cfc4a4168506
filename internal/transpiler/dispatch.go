package transpiler

import (
	"fmt"
	"strings"

	"github.com/funvibe/talescript/internal/symbols"
)

const DispatchChunkName = "__dispatch__"

// compileDispatch generates the shared transfer functions used by every
// label module. The chunk is loaded last and binds the id-keyed entry table
// once, so a missing module fails the load instead of a later jump.
func compileDispatch(reg *symbols.Registry) string {
	var b strings.Builder
	w := func(format string, args ...any) {
		fmt.Fprintf(&b, format, args...)
		b.WriteByte('\n')
	}

	w("-- dispatch")
	w("local host, modules = __host, __modules")
	w("local D = {count = %d, paths = {}}", reg.Len())
	for _, e := range reg.Entries() {
		w("D.paths[%d] = %s", e.ID, luaQuote(e.FnPath))
	}
	w("")
	w("function D.label_selector(ctx, name, filters, scope)")
	w("\treturn host.select(scope, name, filters or {})")
	w("end")
	w("")
	w("function D.jump(ctx, name, filters, args, scope)")
	w("\tlocal id = D.label_selector(ctx, name, filters, scope)")
	w("\tif id == nil or D.entries[id] == nil then")
	w("\t\treturn ctx:fail(\"label not found: \" .. name)")
	w("\tend")
	w("\tctx:yield({type = \"jump\", label = D.paths[id], id = id})")
	w("\treturn D.entries[id](ctx, args or {})")
	w("end")
	w("")
	w("function D.call(ctx, name, filters, args, scope)")
	w("\tlocal id = D.label_selector(ctx, name, filters, scope)")
	w("\tif id == nil or D.entries[id] == nil then")
	w("\t\treturn ctx:fail(\"label not found: \" .. name)")
	w("\tend")
	w("\tctx:yield({type = \"call\", label = D.paths[id], id = id})")
	w("\tlocal caller = ctx.module")
	w("\tD.entries[id](ctx, args or {})")
	w("\tctx:enter(caller)")
	w("end")
	w("")
	w("function D.start(ctx, id, args)")
	w("\tlocal entry = D.entries[id]")
	w("\tif entry == nil then")
	w("\t\treturn ctx:fail(\"label not found: #\" .. tostring(id))")
	w("\tend")
	w("\treturn entry(ctx, args or {})")
	w("end")
	w("")
	w("function D.bind()")
	w("\tlocal entries = {}")
	w("\tfor id = 0, D.count - 1 do")
	w("\t\tlocal m = modules[id]")
	w("\t\tif m == nil then")
	w("\t\t\terror(\"label module \" .. D.paths[id] .. \" was not loaded\")")
	w("\t\tend")
	w("\t\tentries[id] = m.entry")
	w("\tend")
	w("\tD.entries = entries")
	w("end")
	w("")
	w("__dispatch = D")
	w("D.bind()")
	return b.String()
}
