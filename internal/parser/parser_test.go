package parser

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/funvibe/talescript/internal/ast"
	"github.com/funvibe/talescript/internal/diagnostics"
)

func expectNoErrors(t *testing.T, input string) *ast.ScriptFile {
	t.Helper()
	sf, err := Parse(input, "test.tale")
	if err != nil {
		t.Fatalf("unexpected parse error for %q:\n%v", input, err)
	}
	return sf
}

func expectError(t *testing.T, input string, code diagnostics.ErrorCode, substr string) {
	t.Helper()
	_, err := Parse(input, "test.tale")
	if err == nil {
		t.Fatalf("expected error %s for %q, got none", code, input)
	}
	var list diagnostics.List
	if !errors.As(err, &list) {
		t.Fatalf("expected diagnostics.List, got %T", err)
	}
	for _, d := range list {
		if d.Code == code && strings.Contains(d.Error(), substr) {
			return
		}
	}
	t.Fatalf("expected error %s containing %q, got:\n%v", code, substr, err)
}

func TestParseSingleDialogue(t *testing.T) {
	sf := expectNoErrors(t, "＊test\n　actor：hello")

	labels := sf.Labels()
	if len(labels) != 1 {
		t.Fatalf("expected 1 label, got %d", len(labels))
	}
	l := labels[0]
	if l.Name != "test" || l.Depth != 0 {
		t.Fatalf("label = %q depth %d", l.Name, l.Depth)
	}
	if len(l.Statements) != 1 {
		t.Fatalf("expected exactly one statement, got %d", len(l.Statements))
	}
	ds, ok := l.Statements[0].(*ast.DialogueStatement)
	if !ok {
		t.Fatalf("expected DialogueStatement, got %T", l.Statements[0])
	}
	if ds.Actor != "actor" || ds.Text.String() != "hello" || ds.Continued {
		t.Fatalf("dialogue = %+v %q", ds, ds.Text.String())
	}
}

func TestParseASCIISigils(t *testing.T) {
	full := expectNoErrors(t, "＊a ＆mood：sad\n　花子：やあ\n　？b ＆x：1\n")
	ascii := expectNoErrors(t, "*a &mood:sad\n　花子:やあ\n　?b &x:1\n")

	fl, al := full.Labels()[0], ascii.Labels()[0]
	if fl.Attributes[0].Key != al.Attributes[0].Key || fl.Attributes[0].Value != al.Attributes[0].Value {
		t.Fatalf("attributes differ: %+v vs %+v", fl.Attributes[0], al.Attributes[0])
	}
	fj := fl.Statements[1].(*ast.JumpStatement)
	aj := al.Statements[1].(*ast.JumpStatement)
	if fj.Label != aj.Label || fj.Filters[0].Value != aj.Filters[0].Value {
		t.Fatalf("jumps differ: %+v vs %+v", fj, aj)
	}
}

func TestReservedLabelNames(t *testing.T) {
	tests := []struct {
		name     string
		reserved bool
	}{
		{"__init__", true},
		{"__a__", true},
		{"____", false},
		{"___", false},
		{"__x", false},
		{"x__", false},
		{"_x_", false},
		{"a__b__", false},
		{"__init__x", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			input := "＊" + tt.name + "\n　a：b\n"
			if tt.reserved {
				expectError(t, input, diagnostics.ErrP002, tt.name)
				return
			}
			expectNoErrors(t, input)
		})
	}
}

func TestReservedLocalLabel(t *testing.T) {
	expectError(t, "＊top\n＊＊__local__\n　a：b\n", diagnostics.ErrP002, "__local__")
}

func TestLocalLabelsNest(t *testing.T) {
	sf := expectNoErrors(t, `＊a
　x：1
＊＊b
　x：2
＊＊＊c
　x：3
＊＊d
　x：4
＊e
`)
	labels := sf.Labels()
	if len(labels) != 2 {
		t.Fatalf("expected 2 global labels, got %d", len(labels))
	}
	a := labels[0]
	if len(a.LocalLabels) != 2 || a.LocalLabels[0].Name != "b" || a.LocalLabels[1].Name != "d" {
		t.Fatalf("unexpected locals of a: %+v", a.LocalLabels)
	}
	b := a.LocalLabels[0]
	if len(b.LocalLabels) != 1 || b.LocalLabels[0].Name != "c" || b.LocalLabels[0].Depth != 2 {
		t.Fatalf("unexpected locals of b: %+v", b.LocalLabels)
	}
	if len(a.Statements) != 1 || len(b.Statements) != 1 {
		t.Fatalf("statements attached to the wrong label")
	}
}

func TestLocalLabelWithoutParent(t *testing.T) {
	expectError(t, "＊＊orphan\n", diagnostics.ErrP004, "orphan")
	expectError(t, "＊a\n＊＊＊deep\n", diagnostics.ErrP004, "deep")
}

func TestStatementOutsideLabel(t *testing.T) {
	expectError(t, "花子：こんにちは\n", diagnostics.ErrP003, "outside")
}

func TestWordDefinitions(t *testing.T) {
	sf := expectNoErrors(t, "＠色：赤 青 緑\n＊a\n　＠気分：楽しい\n　x：y\n")

	words := sf.Words()
	if len(words) != 1 || words[0].Name != "色" {
		t.Fatalf("unexpected global words: %+v", words)
	}
	if got := strings.Join(words[0].Values, ","); got != "赤,青,緑" {
		t.Fatalf("values = %q", got)
	}
	l := sf.Labels()[0]
	if len(l.LocalWords) != 1 || l.LocalWords[0].Name != "気分" {
		t.Fatalf("unexpected local words: %+v", l.LocalWords)
	}
}

func TestWordDefinitionAfterLabelAtColumnOne(t *testing.T) {
	sf := expectNoErrors(t, "＊a\n　x：y\n＠色：赤\n")
	if len(sf.Words()) != 1 {
		t.Fatalf("column 1 word definition must be global")
	}
	if len(sf.Labels()[0].LocalWords) != 0 {
		t.Fatalf("column 1 word definition attached to label")
	}
}

func TestContinuation(t *testing.T) {
	sf := expectNoErrors(t, "＊a\n　花子：一行目\n　：二行目\n")
	stmts := sf.Labels()[0].Statements
	if len(stmts) != 2 {
		t.Fatalf("expected 2 statements, got %d", len(stmts))
	}
	cont := stmts[1].(*ast.DialogueStatement)
	if cont.Actor != "花子" || !cont.Continued {
		t.Fatalf("continuation = %+v", cont)
	}
}

func TestContinuationNeedsActor(t *testing.T) {
	expectError(t, "＊a\n　：だれ\n", diagnostics.ErrP005, "continuation")
	// a new label resets the previous actor
	expectError(t, "＊a\n　花子：x\n＊b\n　：y\n", diagnostics.ErrP005, "continuation")
}

func TestMalformedDialogue(t *testing.T) {
	expectError(t, "＊a\n　コロンがない\n", diagnostics.ErrP005, "コロンがない")
}

func TestAssignments(t *testing.T) {
	tests := []struct {
		input  string
		global bool
		name   string
		want   string
	}{
		{"＄count＝1", false, "count", "1"},
		{"＄＊flag＝true", true, "flag", "true"},
		{"＄x＝1＋2＊3", false, "x", "(1 + (2 * 3))"},
		{"$x = (1 + 2) * 3", false, "x", "((1 + 2) * 3)"},
		{"＄ok＝＄a＝＝＄＊b", false, "ok", "($a == $*b)"},
		{"＄n＝－＄1", false, "n", "(-$1)"},
		{"＄s＝「こんにちは」", false, "s", "\"こんにちは\""},
		{"＄w＝＠色", false, "w", "@色"},
		{"＄b＝！false", false, "b", "(!false)"},
	}
	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			sf := expectNoErrors(t, "＊a\n　"+tt.input+"\n")
			as, ok := sf.Labels()[0].Statements[0].(*ast.AssignStatement)
			if !ok {
				t.Fatalf("expected AssignStatement, got %T", sf.Labels()[0].Statements[0])
			}
			if as.Target.Name != tt.name || as.Target.Global != tt.global {
				t.Fatalf("target = %+v", as.Target)
			}
			if got := as.Value.String(); got != tt.want {
				t.Fatalf("value = %s, want %s", got, tt.want)
			}
		})
	}
}

func TestAssignmentErrors(t *testing.T) {
	expectError(t, "＊a\n　＄1＝2\n", diagnostics.ErrP006, "argument")
	expectError(t, "＊a\n　＄x＝\n", diagnostics.ErrP006, "missing expression")
	expectError(t, "＊a\n　＄x＝1＋\n", diagnostics.ErrP006, "missing operand")
	expectError(t, "＊a\n　＄x＝（1＋2\n", diagnostics.ErrP006, "expected ')'")
	expectError(t, "＊a\n　＄x＝「閉じない\n", diagnostics.ErrP007, "unterminated string")
}

func TestJumpAndCall(t *testing.T) {
	sf := expectNoErrors(t, "＊a\n　＞挨拶（花子、3） ＆time：morning\n　？終わり\n")
	stmts := sf.Labels()[0].Statements

	call, ok := stmts[0].(*ast.CallStatement)
	if !ok {
		t.Fatalf("expected CallStatement, got %T", stmts[0])
	}
	if call.Label != "挨拶" || len(call.Args) != 2 || len(call.Filters) != 1 {
		t.Fatalf("call = %+v", call)
	}
	if call.Args[0].String() != "\"花子\"" || call.Args[1].String() != "3" {
		t.Fatalf("args = %s, %s", call.Args[0], call.Args[1])
	}
	if call.Filters[0].Key != "time" || call.Filters[0].Value != "morning" {
		t.Fatalf("filter = %+v", call.Filters[0])
	}

	jump, ok := stmts[1].(*ast.JumpStatement)
	if !ok || jump.Label != "終わり" || len(jump.Args) != 0 {
		t.Fatalf("jump = %+v", stmts[1])
	}
}

func TestHostBlocks(t *testing.T) {
	input := "```lua\nlocal x = 1 -- ＊not a label\n\n  print(x)\n```\n＊a\n　```\n  ctx.flag = true\n　```\n　x：y\n"
	sf := expectNoErrors(t, input)

	blocks := sf.Blocks()
	if len(blocks) != 1 {
		t.Fatalf("expected 1 file block, got %d", len(blocks))
	}
	if blocks[0].Lang != "lua" || blocks[0].Code != "local x = 1 -- ＊not a label\n\n  print(x)\n" {
		t.Fatalf("file block = %q (%q)", blocks[0].Code, blocks[0].Lang)
	}
	stmts := sf.Labels()[0].Statements
	hb, ok := stmts[0].(*ast.HostBlock)
	if !ok || hb.Code != "  ctx.flag = true\n" {
		t.Fatalf("label block = %#v", stmts[0])
	}
}

func TestUnterminatedHostBlock(t *testing.T) {
	expectError(t, "＊a\n　```\nprint(1)\n", diagnostics.ErrP007, "unterminated host block")
}

func TestTextSegments(t *testing.T) {
	tests := []struct {
		raw  string
		want []ast.Segment
	}{
		{"hello", []ast.Segment{{Kind: ast.SegmentLiteral, Value: "hello"}}},
		{"＠色です", []ast.Segment{{Kind: ast.SegmentWord, Value: "色です"}}},
		{"＠｛色｝です", []ast.Segment{{Kind: ast.SegmentWord, Value: "色"}, {Kind: ast.SegmentLiteral, Value: "です"}}},
		{"値は＄count、", []ast.Segment{{Kind: ast.SegmentLiteral, Value: "値は"}, {Kind: ast.SegmentVariable, Value: "count"}, {Kind: ast.SegmentLiteral, Value: "、"}}},
		{"＄＊flag！", []ast.Segment{{Kind: ast.SegmentGlobalVariable, Value: "flag"}, {Kind: ast.SegmentLiteral, Value: "！"}}},
		{"＠＠と＄＄", []ast.Segment{{Kind: ast.SegmentLiteral, Value: "＠と＄"}}},
		{"mail@example.com $5", []ast.Segment{{Kind: ast.SegmentLiteral, Value: "mail@example.com $5"}}},
		{"待って\\w5＄1", []ast.Segment{{Kind: ast.SegmentLiteral, Value: "待って\\w5"}, {Kind: ast.SegmentVariable, Value: "1"}}},
		{"＠ 空白", []ast.Segment{{Kind: ast.SegmentLiteral, Value: "＠ 空白"}}},
	}
	for _, tt := range tests {
		t.Run(tt.raw, func(t *testing.T) {
			got := parseText(tt.raw)
			if len(got.Segments) != len(tt.want) {
				t.Fatalf("segments = %+v, want %+v", got.Segments, tt.want)
			}
			for i := range tt.want {
				if got.Segments[i] != tt.want[i] {
					t.Fatalf("segment %d = %+v, want %+v", i, got.Segments[i], tt.want[i])
				}
			}
		})
	}
}

func TestCollectsAllErrors(t *testing.T) {
	_, err := Parse("＊__a__\n＊b\n　壊れた行\n　＄1＝0\n", "multi.tale")
	var list diagnostics.List
	if !errors.As(err, &list) {
		t.Fatalf("expected diagnostics.List, got %v", err)
	}
	if len(list) != 3 {
		t.Fatalf("expected 3 errors, got %d:\n%v", len(list), err)
	}
	for _, d := range list {
		if d.File != "multi.tale" {
			t.Errorf("error without file: %v", d)
		}
		if !errors.Is(d, diagnostics.ErrParse) {
			t.Errorf("not a parse error: %v", d)
		}
	}
}

func TestErrorPosition(t *testing.T) {
	_, err := Parse("＊ok\n　a：b\n＊__bad__\n", "pos.tale")
	if err == nil || !strings.Contains(err.Error(), "pos.tale:3:2") {
		t.Fatalf("expected position pos.tale:3:2 in %v", err)
	}
}

func TestParseFileMatchesParse(t *testing.T) {
	input := "\uFEFF＊a\n　花子：こんにちは＠｛名前｝\n　？b\n"
	path := filepath.Join(t.TempDir(), "scene.tale")
	if err := os.WriteFile(path, []byte(input), 0o644); err != nil {
		t.Fatal(err)
	}

	fromFile, err := ParseFile(path)
	if err != nil {
		t.Fatalf("ParseFile: %v", err)
	}
	fromText, err := Parse(input, path)
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	a, b := fromFile.Labels()[0], fromText.Labels()[0]
	if a.Name != b.Name || len(a.Statements) != len(b.Statements) {
		t.Fatalf("results differ")
	}
	da := a.Statements[0].(*ast.DialogueStatement)
	db := b.Statements[0].(*ast.DialogueStatement)
	if da.Text.Raw != db.Text.Raw || da.Token != db.Token {
		t.Fatalf("dialogue differs: %+v vs %+v", da, db)
	}
}

func TestParseFileMissing(t *testing.T) {
	_, err := ParseFile(filepath.Join(t.TempDir(), "missing.tale"))
	if !errors.Is(err, diagnostics.ErrParse) || !errors.Is(err, os.ErrNotExist) {
		t.Fatalf("unexpected error %v", err)
	}
}
