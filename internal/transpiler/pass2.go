package transpiler

import (
	"bytes"
	"fmt"
	"strconv"
	"strings"

	"github.com/funvibe/talescript/internal/ast"
	"github.com/funvibe/talescript/internal/diagnostics"
	"github.com/funvibe/talescript/internal/symbols"
	"github.com/funvibe/talescript/internal/token"
)

// Pass2 generates Lua for a sealed registry. All errors of the unit are
// reported together; the output is only returned when there are none.
func Pass2(reg *symbols.Registry) (*Output, error) {
	if !reg.Sealed() {
		return nil, diagnostics.NewError(diagnostics.ErrT004, token.Token{}, "registry must be sealed before code generation")
	}

	out := &Output{Registry: reg}
	var errs diagnostics.List

	for _, f := range reg.Files() {
		chunk, ferrs := compileFileBlocks(f)
		errs = append(errs, ferrs...)
		if chunk != nil {
			out.Chunks = append(out.Chunks, *chunk)
		}
	}

	for _, e := range reg.Entries() {
		c := newCompiler(reg, e)
		src := c.compileLabel()
		errs = append(errs, c.errors...)
		out.Chunks = append(out.Chunks, Chunk{
			Kind:   ChunkLabel,
			Name:   "=" + e.FnPath,
			Path:   e.FnPath,
			Source: src,
		})
	}

	out.Chunks = append(out.Chunks, Chunk{
		Kind:   ChunkDispatch,
		Name:   "=" + DispatchChunkName,
		Path:   DispatchChunkName,
		Source: compileDispatch(reg),
	})

	if err := errs.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

func compileFileBlocks(f *symbols.FileEntry) (*Chunk, diagnostics.List) {
	if len(f.Blocks) == 0 {
		return nil, nil
	}
	var errs diagnostics.List
	var b strings.Builder
	for _, hb := range f.Blocks {
		if err := checkHostLang(hb); err != nil {
			err.File = f.Path
			errs = append(errs, err)
			continue
		}
		b.WriteString(hb.Code)
	}
	return &Chunk{Kind: ChunkFile, Name: "=" + f.Path, Path: f.Path, Source: b.String()}, errs
}

func checkHostLang(hb *ast.HostBlock) *diagnostics.DiagnosticError {
	switch strings.ToLower(hb.Lang) {
	case "", "lua":
		return nil
	}
	return diagnostics.Errorf(diagnostics.ErrT005, hb.Token, "host block language %q is not supported, only lua", hb.Lang)
}

// compiler generates the module of one label.
type compiler struct {
	reg    *symbols.Registry
	entry  *symbols.LabelEntry
	buf    bytes.Buffer
	indent int
	errors diagnostics.List
}

func newCompiler(reg *symbols.Registry, entry *symbols.LabelEntry) *compiler {
	return &compiler{reg: reg, entry: entry}
}

func (c *compiler) line(format string, args ...any) {
	c.buf.WriteString(strings.Repeat("\t", c.indent))
	fmt.Fprintf(&c.buf, format, args...)
	c.buf.WriteByte('\n')
}

func (c *compiler) fail(err *diagnostics.DiagnosticError) {
	err.File = c.entry.File
	err.Label = c.entry.FnPath
	c.errors = append(c.errors, err)
}

func (c *compiler) compileLabel() string {
	e := c.entry
	c.line("-- %s (%s:%d)", e.FnPath, e.File, e.Label.Token.Line)
	c.line("local host, modules = __host, __modules")
	c.line("local actors = host.import(%s)", luaStringList(e.Actors.Sorted()))
	c.line("local M = {id = %d, name = %s, path = %s, scope = %s, depth = %d}",
		e.ID, luaQuote(e.Name), luaQuote(e.FnPath), luaQuote(e.Scope), e.Depth)
	c.line("")
	c.line("function M.entry(ctx, args)")
	c.indent++
	c.line("local dispatch = __dispatch")
	c.line("local vars = {}")
	for _, stmt := range e.Body {
		c.compileStatement(stmt)
	}
	c.indent--
	c.line("end")
	c.line("")
	c.line("modules[%d] = M", e.ID)
	return c.buf.String()
}

func (c *compiler) compileStatement(stmt ast.Statement) {
	switch s := stmt.(type) {
	case *ast.MarkerStatement:
		if s.Kind == ast.MarkerEnter {
			c.line("ctx:enter(M)")
		}
	case *ast.DialogueStatement:
		c.compileDialogue(s)
	case *ast.AssignStatement:
		c.compileAssign(s)
	case *ast.JumpStatement:
		c.line("do return dispatch.jump(ctx, %s) end", c.transferArgs(s.Label, s.Filters, s.Args))
	case *ast.CallStatement:
		c.line("dispatch.call(ctx, %s)", c.transferArgs(s.Label, s.Filters, s.Args))
	case *ast.HostBlock:
		if err := checkHostLang(s); err != nil {
			c.fail(err)
			return
		}
		c.buf.WriteString(s.Code)
		if s.Code != "" && !strings.HasSuffix(s.Code, "\n") {
			c.buf.WriteByte('\n')
		}
	default:
		c.fail(diagnostics.Errorf(diagnostics.ErrT005, stmt.GetToken(), "unsupported statement %T", stmt))
	}
}

func (c *compiler) compileDialogue(ds *ast.DialogueStatement) {
	actor, err := ResolveActor(c.reg, c.entry, ds)
	if err != nil {
		// already reported by the first pass
		actor = ds.Actor
	}
	c.line("ctx:actor(actors[%s])", luaQuote(actor))
	c.line("ctx:talk(%s)", c.compileText(ds))
}

// compileText renders dialogue text as a Lua expression. Undelimited word
// references are cut to the longest defined word; the rest stays text.
func (c *compiler) compileText(ds *ast.DialogueStatement) string {
	if ds.Text.IsLiteral() {
		return luaQuote(ds.Text.String())
	}

	var parts []string
	var lit strings.Builder
	flush := func() {
		if lit.Len() > 0 {
			parts = append(parts, luaQuote(lit.String()))
			lit.Reset()
		}
	}
	for _, seg := range ds.Text.Segments {
		switch seg.Kind {
		case ast.SegmentLiteral:
			lit.WriteString(seg.Value)
		case ast.SegmentWord:
			name, ok := c.reg.LongestWord(c.entry, seg.Value)
			if !ok {
				c.fail(diagnostics.Errorf(diagnostics.ErrT002, ds.Token, "unresolved word reference %q", seg.Value))
				continue
			}
			vals, _ := c.reg.Word(c.entry, name)
			flush()
			parts = append(parts, "ctx:pick("+luaStringList(vals)+")")
			lit.WriteString(seg.Value[len(name):])
		case ast.SegmentVariable:
			flush()
			parts = append(parts, c.variable(&ast.Variable{Name: seg.Value}))
		case ast.SegmentGlobalVariable:
			flush()
			parts = append(parts, c.variable(&ast.Variable{Name: seg.Value, Global: true}))
		}
	}
	flush()
	return "host.str(" + strings.Join(parts, ", ") + ")"
}

func (c *compiler) compileAssign(as *ast.AssignStatement) {
	c.line("%s = %s", c.variable(as.Target), c.compileExpression(as.Value))
}

func (c *compiler) transferArgs(name string, filters []*ast.Attribute, args []ast.Expression) string {
	fm := make(map[string]string, len(filters))
	for _, f := range filters {
		fm[f.Key] = f.Value
	}
	exprs := make([]string, len(args))
	for i, a := range args {
		exprs[i] = c.compileExpression(a)
	}
	return fmt.Sprintf("%s, %s, {%s}, M.scope", luaQuote(name), luaStringMap(fm), strings.Join(exprs, ", "))
}

func (c *compiler) variable(v *ast.Variable) string {
	if n, ok := v.ArgIndex(); ok {
		return "args[" + strconv.Itoa(n) + "]"
	}
	if v.Global {
		return "ctx.globals[" + luaQuote(v.Name) + "]"
	}
	return "vars[" + luaQuote(v.Name) + "]"
}

func (c *compiler) compileExpression(exp ast.Expression) string {
	switch e := exp.(type) {
	case *ast.NumberLiteral:
		return luaNumber(e.Value)
	case *ast.StringLiteral:
		return luaQuote(e.Value)
	case *ast.BooleanLiteral:
		return strconv.FormatBool(e.Value)
	case *ast.Variable:
		return c.variable(e)
	case *ast.WordRef:
		vals, ok := c.reg.Word(c.entry, e.Name)
		if !ok {
			c.fail(diagnostics.Errorf(diagnostics.ErrT002, e.Token, "unresolved word reference %q", e.Name))
			return "nil"
		}
		return "ctx:pick(" + luaStringList(vals) + ")"
	case *ast.PrefixExpression:
		right := c.compileExpression(e.Right)
		if e.Operator == "!" {
			return "(not " + right + ")"
		}
		return "(" + e.Operator + " " + right + ")"
	case *ast.InfixExpression:
		left, right := c.compileExpression(e.Left), c.compileExpression(e.Right)
		switch e.Operator {
		case "+":
			return "host.add(" + left + ", " + right + ")"
		case "!=":
			return "(" + left + " ~= " + right + ")"
		}
		return "(" + left + " " + e.Operator + " " + right + ")"
	}
	c.fail(diagnostics.Errorf(diagnostics.ErrT005, exp.GetToken(), "unsupported expression %T", exp))
	return "nil"
}
