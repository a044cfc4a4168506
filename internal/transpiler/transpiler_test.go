package transpiler

import (
	"errors"
	"strings"
	"testing"

	"github.com/funvibe/talescript/internal/ast"
	"github.com/funvibe/talescript/internal/diagnostics"
	"github.com/funvibe/talescript/internal/parser"
	"github.com/funvibe/talescript/internal/symbols"
)

func parseAll(t *testing.T, sources ...string) []*ast.ScriptFile {
	t.Helper()
	var files []*ast.ScriptFile
	for i, src := range sources {
		sf, err := parser.Parse(src, "file"+string(rune('a'+i))+".tale")
		if err != nil {
			t.Fatalf("parse: %v", err)
		}
		files = append(files, sf)
	}
	return files
}

func compile(t *testing.T, sources ...string) (*symbols.Registry, *Output) {
	t.Helper()
	reg, err := Pass1(parseAll(t, sources...)...)
	if err != nil {
		t.Fatalf("Pass1: %v", err)
	}
	out, err := Pass2(reg)
	if err != nil {
		t.Fatalf("Pass2: %v", err)
	}
	return reg, out
}

func expectCode(t *testing.T, err error, code diagnostics.ErrorCode) {
	t.Helper()
	var list diagnostics.List
	if !errors.As(err, &list) {
		t.Fatalf("expected diagnostics.List with %s, got %v", code, err)
	}
	for _, d := range list {
		if d.Code == code {
			if !errors.Is(d, diagnostics.ErrTranspile) {
				t.Fatalf("%s is not a transpile error", code)
			}
			return
		}
	}
	t.Fatalf("expected %s, got:\n%v", code, err)
}

const sample = `＠色：赤 青
＊挨拶 ＆time：morning
　花子：おはよう
　：＠色の花
＊＊返事
　太郎：やあ＄1
　？挨拶
＊挨拶 ＆time：night
　花子：こんばんは
　＞挨拶 ＆time：morning
`

func TestPass1Registry(t *testing.T) {
	reg, err := Pass1(parseAll(t, sample)...)
	if err != nil {
		t.Fatalf("Pass1: %v", err)
	}
	if !reg.Sealed() {
		t.Fatalf("registry not sealed")
	}

	want := []string{"挨拶_1", "挨拶_1_返事", "挨拶_2"}
	if reg.Len() != len(want) {
		t.Fatalf("Len() = %d", reg.Len())
	}
	for i, path := range want {
		e, ok := reg.Entry(uint32(i))
		if !ok || e.FnPath != path {
			t.Fatalf("entry %d = %v, want %s", i, e, path)
		}
	}

	first, _ := reg.Entry(0)
	if got := first.Actors.Sorted(); len(got) != 1 || got[0] != "花子" {
		t.Fatalf("actors of 挨拶_1 = %v", got)
	}
	if _, ok := first.Body[0].(*ast.MarkerStatement); !ok {
		t.Fatalf("body does not start with the enter marker")
	}
	if first.Attributes["time"] != "morning" {
		t.Fatalf("attributes = %v", first.Attributes)
	}
}

func TestIDsAreContiguousAcrossFiles(t *testing.T) {
	reg, _ := compile(t, "＊a\n＊＊b\n＊c\n", "＊a\n＊d\n＊＊e\n＊＊＊f\n")
	for i, e := range reg.Entries() {
		if e.ID != uint32(i) {
			t.Fatalf("entry %s has id %d at index %d", e.FnPath, e.ID, i)
		}
	}
	if e, _ := reg.Entry(3); e.FnPath != "a_2" {
		t.Fatalf("second a = %s", e.FnPath)
	}
}

func TestActorAliases(t *testing.T) {
	reg, _ := compile(t, "＠h：花子\n＊a\n　h：やあ\n")
	e, _ := reg.Entry(0)
	if !e.Actors.Has("花子") || e.Actors.Has("h") {
		t.Fatalf("alias not resolved: %v", e.Actors.Sorted())
	}

	// local words shadow global ones
	reg, _ = compile(t, "＠h：花子\n＊a\n　＠h：太郎\n　h：やあ\n")
	e, _ = reg.Entry(0)
	if !e.Actors.Has("太郎") {
		t.Fatalf("local alias not used: %v", e.Actors.Sorted())
	}

	_, err := Pass1(parseAll(t, "＠h：花子 太郎\n＊a\n　h：やあ\n")...)
	expectCode(t, err, diagnostics.ErrT003)
}

func TestGlobalWordsMergeAcrossFiles(t *testing.T) {
	reg, _ := compile(t, "＠色：赤\n＊a\n", "＠色：青\n＊b\n")
	vals, ok := reg.Word(nil, "色")
	if !ok || strings.Join(vals, ",") != "赤,青" {
		t.Fatalf("色 = %v", vals)
	}
}

func TestDuplicateLocalLabel(t *testing.T) {
	_, err := Pass1(parseAll(t, "＊a\n＊＊x\n＊＊x\n")...)
	expectCode(t, err, diagnostics.ErrT001)
	if !strings.Contains(err.Error(), "a_1_x") {
		t.Fatalf("error does not name the path: %v", err)
	}
}

func TestUnresolvedWord(t *testing.T) {
	reg, err := Pass1(parseAll(t, "＊a\n　花子：＠無い言葉\n")...)
	if err != nil {
		t.Fatalf("Pass1: %v", err)
	}
	_, err = Pass2(reg)
	expectCode(t, err, diagnostics.ErrT002)
}

func TestPass2RequiresSealedRegistry(t *testing.T) {
	_, err := Pass2(symbols.NewRegistry())
	if !errors.Is(err, diagnostics.ErrTranspile) {
		t.Fatalf("expected transpile error, got %v", err)
	}
}

func TestPass2IsDeterministic(t *testing.T) {
	_, a := compile(t, sample)
	_, b := compile(t, sample)
	if a.String() != b.String() {
		t.Fatalf("output differs between runs")
	}
}

func TestGeneratedLabelModule(t *testing.T) {
	_, out := compile(t, sample)

	chunk, ok := out.LabelChunk(0)
	if !ok {
		t.Fatalf("no chunk for label 0")
	}
	for _, want := range []string{
		`local actors = host.import({"花子"})`,
		`ctx:enter(M)`,
		`ctx:actor(actors["花子"])`,
		`ctx:talk("おはよう")`,
		`ctx:talk(host.str(ctx:pick({"赤", "青"}), "の花"))`,
		`modules[0] = M`,
	} {
		if !strings.Contains(chunk.Source, want) {
			t.Errorf("label chunk missing %q:\n%s", want, chunk.Source)
		}
	}

	local, _ := out.LabelChunk(1)
	for _, want := range []string{
		`ctx:talk(host.str("やあ", args[1]))`,
		`do return dispatch.jump(ctx, "挨拶", {}, {}, M.scope) end`,
		`scope = "挨拶_1"`,
	} {
		if !strings.Contains(local.Source, want) {
			t.Errorf("local chunk missing %q:\n%s", want, local.Source)
		}
	}

	night, _ := out.LabelChunk(2)
	if want := `dispatch.call(ctx, "挨拶", {["time"] = "morning"}, {}, M.scope)`; !strings.Contains(night.Source, want) {
		t.Errorf("call not generated:\n%s", night.Source)
	}
}

func TestChunkOrder(t *testing.T) {
	_, out := compile(t, "```\nlocal x = 1\n```\n＊a\n")
	var kinds []ChunkKind
	for _, c := range out.Chunks {
		kinds = append(kinds, c.Kind)
	}
	want := []ChunkKind{ChunkFile, ChunkLabel, ChunkDispatch}
	if len(kinds) != len(want) {
		t.Fatalf("chunks = %v", kinds)
	}
	for i := range want {
		if kinds[i] != want[i] {
			t.Fatalf("chunks = %v, want %v", kinds, want)
		}
	}
	dispatch := out.Chunks[2].Source
	for _, want := range []string{"function D.jump(", "function D.call(", "function D.label_selector(", "function D.bind()", `D.paths[0] = "a_1"`} {
		if !strings.Contains(dispatch, want) {
			t.Errorf("dispatch missing %q", want)
		}
	}
}

func TestHostBlocksAreCopiedVerbatim(t *testing.T) {
	fileBlock := "local greeting = \"やあ\\n\"  -- trailing spaces   \n\tlocal t = {1,2}\n"
	labelBlock := "  ctx.globals.seen = true\n"
	src := "```lua\n" + fileBlock + "```\n＊a\n　```\n" + labelBlock + "　```\n"
	_, out := compile(t, src)

	if out.Chunks[0].Kind != ChunkFile || out.Chunks[0].Source != fileBlock {
		t.Fatalf("file block = %q", out.Chunks[0].Source)
	}
	label, _ := out.LabelChunk(0)
	if !strings.Contains(label.Source, labelBlock) {
		t.Fatalf("label block not copied:\n%s", label.Source)
	}
}

func TestUnsupportedHostLanguage(t *testing.T) {
	reg, err := Pass1(parseAll(t, "＊a\n　```python\nprint(1)\n　```\n")...)
	if err != nil {
		t.Fatalf("Pass1: %v", err)
	}
	_, err = Pass2(reg)
	expectCode(t, err, diagnostics.ErrT005)
}

func TestExpressions(t *testing.T) {
	_, out := compile(t, "＊a\n　＄x＝1＋2＊3\n　＄＊ok＝！（＄x！＝7）\n　＄n＝－＄1\n")
	chunk, _ := out.LabelChunk(0)
	for _, want := range []string{
		`vars["x"] = host.add(1, (2 * 3))`,
		`ctx.globals["ok"] = (not (vars["x"] ~= 7))`,
		`vars["n"] = (- args[1])`,
	} {
		if !strings.Contains(chunk.Source, want) {
			t.Errorf("missing %q:\n%s", want, chunk.Source)
		}
	}
}

func TestLuaQuote(t *testing.T) {
	tests := []struct{ in, want string }{
		{"plain", `"plain"`},
		{`a"b\c`, `"a\"b\\c"`},
		{"line\nbreak\r", `"line\nbreak\r"`},
		{"tab\there\x00", `"tab\009here\000"`},
		{"日本語", `"日本語"`},
	}
	for _, tt := range tests {
		if got := luaQuote(tt.in); got != tt.want {
			t.Errorf("luaQuote(%q) = %s, want %s", tt.in, got, tt.want)
		}
	}
}

func TestWriteToMatchesString(t *testing.T) {
	_, out := compile(t, sample)
	var b strings.Builder
	n, err := out.WriteTo(&b)
	if err != nil {
		t.Fatal(err)
	}
	if int(n) != b.Len() || b.String() != out.String() {
		t.Fatalf("WriteTo and String disagree")
	}
}
