package symbols

import (
	"errors"
	"slices"
	"testing"

	"github.com/funvibe/talescript/internal/ast"
	"github.com/funvibe/talescript/internal/diagnostics"
)

func label(name string, depth int, attrs ...string) *ast.Label {
	l := &ast.Label{Name: name, Depth: depth}
	for i := 0; i+1 < len(attrs); i += 2 {
		l.Attributes = append(l.Attributes, &ast.Attribute{Key: attrs[i], Value: attrs[i+1]})
	}
	return l
}

func mustDefine(t *testing.T, r *Registry, l *ast.Label, parent *LabelEntry) *LabelEntry {
	t.Helper()
	e, err := r.Define(l, parent, "test.tale")
	if err != nil {
		t.Fatalf("Define(%s): %v", l.Name, err)
	}
	return e
}

func TestPathsAndIDs(t *testing.T) {
	r := NewRegistry()
	a1 := mustDefine(t, r, label("a", 0), nil)
	b := mustDefine(t, r, label("b", 1), a1)
	c := mustDefine(t, r, label("c", 2), b)
	a2 := mustDefine(t, r, label("a", 0), nil)
	b2 := mustDefine(t, r, label("b", 1), a2)

	tests := []struct {
		entry *LabelEntry
		id    uint32
		path  string
		scope string
	}{
		{a1, 0, "a_1", "a_1"},
		{b, 1, "a_1_b", "a_1"},
		{c, 2, "a_1_b_c", "a_1"},
		{a2, 3, "a_2", "a_2"},
		{b2, 4, "a_2_b", "a_2"},
	}
	for _, tt := range tests {
		if tt.entry.ID != tt.id || tt.entry.FnPath != tt.path || tt.entry.Scope != tt.scope {
			t.Errorf("entry = {%d %s %s}, want {%d %s %s}",
				tt.entry.ID, tt.entry.FnPath, tt.entry.Scope, tt.id, tt.path, tt.scope)
		}
		got, ok := r.Entry(tt.id)
		if !ok || got != tt.entry {
			t.Errorf("Entry(%d) mismatch", tt.id)
		}
	}
	if r.Len() != 5 {
		t.Fatalf("Len() = %d", r.Len())
	}
}

func TestDuplicatePath(t *testing.T) {
	r := NewRegistry()
	a := mustDefine(t, r, label("a", 0), nil)
	mustDefine(t, r, label("x", 1), a)
	_, err := r.Define(label("x", 1), a, "test.tale")
	if !errors.Is(err, diagnostics.ErrTranspile) {
		t.Fatalf("expected transpile error, got %v", err)
	}
	var de *diagnostics.DiagnosticError
	if !errors.As(err, &de) || de.Code != diagnostics.ErrT001 {
		t.Fatalf("expected T001, got %v", err)
	}
}

func TestPathsDoNotCollideAcrossScopes(t *testing.T) {
	tests := []struct {
		name   string
		define func(r *Registry) (*LabelEntry, *LabelEntry)
		first  string
		second string
	}{
		{"local then global", func(r *Registry) (*LabelEntry, *LabelEntry) {
			a := mustDefine(t, r, label("a", 0), nil)
			b := mustDefine(t, r, label("b_1", 1), a)
			return b, mustDefine(t, r, label("a_1_b", 0), nil)
		}, "a_1_b_1", "a_1_b_1~2"},
		{"global then local", func(r *Registry) (*LabelEntry, *LabelEntry) {
			g := mustDefine(t, r, label("a_1", 0), nil)
			a := mustDefine(t, r, label("a", 0), nil)
			return g, mustDefine(t, r, label("1", 1), a)
		}, "a_1_1", "a_1_1~2"},
		{"suffix already taken", func(r *Registry) (*LabelEntry, *LabelEntry) {
			a := mustDefine(t, r, label("a", 0), nil)
			mustDefine(t, r, label("b_1", 1), a)
			taken := mustDefine(t, r, label("b_1~3", 1), a)
			return taken, mustDefine(t, r, label("a_1_b", 0), nil)
		}, "a_1_b_1~3", "a_1_b_1~3~"},
	}
	for _, tt := range tests {
		r := NewRegistry()
		first, second := tt.define(r)
		if first.FnPath != tt.first || second.FnPath != tt.second {
			t.Fatalf("%s: paths = %q, %q, want %q, %q", tt.name, first.FnPath, second.FnPath, tt.first, tt.second)
		}
		if second.IsGlobal() && second.Scope != second.FnPath {
			t.Fatalf("%s: scope = %q", tt.name, second.Scope)
		}
		seen := make(map[string]bool)
		for _, e := range r.Entries() {
			if seen[e.FnPath] {
				t.Fatalf("%s: path %q used twice", tt.name, e.FnPath)
			}
			seen[e.FnPath] = true
			if got, ok := r.Lookup(e.FnPath); !ok || got != e {
				t.Fatalf("%s: Lookup(%q) mismatch", tt.name, e.FnPath)
			}
		}
	}
}

func TestBodyStartsWithEnterMarker(t *testing.T) {
	l := label("a", 0)
	l.Statements = []ast.Statement{&ast.DialogueStatement{Actor: "x"}}
	r := NewRegistry()
	e := mustDefine(t, r, l, nil)

	if len(e.Body) != 2 {
		t.Fatalf("body length = %d", len(e.Body))
	}
	m, ok := e.Body[0].(*ast.MarkerStatement)
	if !ok || m.Kind != ast.MarkerEnter {
		t.Fatalf("first body statement = %T", e.Body[0])
	}
	if len(l.Statements) != 1 {
		t.Fatalf("label statements were modified")
	}
}

func TestSealedRegistryRejectsDefinitions(t *testing.T) {
	r := NewRegistry()
	mustDefine(t, r, label("a", 0), nil)
	r.Seal()
	if _, err := r.Define(label("b", 0), nil, "x"); err == nil {
		t.Fatalf("expected error after Seal")
	}
	if err := r.DefineWord("w", []string{"v"}); err == nil {
		t.Fatalf("expected error after Seal")
	}
	if r.Len() != 1 {
		t.Fatalf("sealed registry changed")
	}
}

func TestCandidates(t *testing.T) {
	r := NewRegistry()
	home := mustDefine(t, r, label("home", 0), nil)
	mustDefine(t, r, label("end", 1), home)
	mustDefine(t, r, label("end", 0, "mood", "happy"), nil)
	mustDefine(t, r, label("end", 0, "mood", "sad"), nil)
	other := mustDefine(t, r, label("other", 0), nil)

	paths := func(es []*LabelEntry) []string {
		var out []string
		for _, e := range es {
			out = append(out, e.FnPath)
		}
		return out
	}

	tests := []struct {
		name    string
		scope   string
		filters map[string]string
		want    []string
	}{
		{"local wins", home.Scope, nil, []string{"home_1_end"}},
		{"globals from elsewhere", other.Scope, nil, []string{"end_1", "end_2"}},
		{"filter by value", other.Scope, map[string]string{"mood": "sad"}, []string{"end_2"}},
		{"filter by key", other.Scope, map[string]string{"mood": ""}, []string{"end_1", "end_2"}},
		{"filter falls back to globals", home.Scope, map[string]string{"mood": "happy"}, []string{"end_1"}},
		{"no match", other.Scope, map[string]string{"mood": "angry"}, nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := paths(r.Candidates(tt.scope, "end", tt.filters))
			if !slices.Equal(got, tt.want) {
				t.Fatalf("Candidates = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestWordResolution(t *testing.T) {
	r := NewRegistry()
	if err := r.DefineWord("色", []string{"赤"}); err != nil {
		t.Fatal(err)
	}
	if err := r.DefineWord("色", []string{"青"}); err != nil {
		t.Fatal(err)
	}
	parentLabel := label("p", 0)
	parentLabel.LocalWords = []*ast.WordDef{{Name: "気分", Values: []string{"楽しい"}}}
	p := mustDefine(t, r, parentLabel, nil)
	childLabel := label("c", 1)
	childLabel.LocalWords = []*ast.WordDef{{Name: "色", Values: []string{"白"}}}
	c := mustDefine(t, r, childLabel, p)

	if vals, _ := r.Word(nil, "色"); !slices.Equal(vals, []string{"赤", "青"}) {
		t.Fatalf("global 色 = %v", vals)
	}
	if vals, _ := r.Word(c, "色"); !slices.Equal(vals, []string{"白"}) {
		t.Fatalf("local 色 = %v", vals)
	}
	if vals, ok := r.Word(c, "気分"); !ok || vals[0] != "楽しい" {
		t.Fatalf("inherited 気分 = %v", vals)
	}
	if _, ok := r.Word(p, "無い"); ok {
		t.Fatalf("unexpected word")
	}
}

func TestLongestWord(t *testing.T) {
	r := NewRegistry()
	_ = r.DefineWord("花", []string{"x"})
	_ = r.DefineWord("花子", []string{"y"})

	tests := []struct {
		in, want string
		ok       bool
	}{
		{"花子さん", "花子", true},
		{"花びら", "花", true},
		{"雪", "", false},
	}
	for _, tt := range tests {
		got, ok := r.LongestWord(nil, tt.in)
		if got != tt.want || ok != tt.ok {
			t.Errorf("LongestWord(%q) = %q, %v", tt.in, got, ok)
		}
	}
}

func TestActorSetSorted(t *testing.T) {
	s := ActorSet{}
	for _, n := range []string{"太郎", "Bob", "alice", "Bob"} {
		s.Add(n)
	}
	want := []string{"Bob", "alice", "太郎"}
	if got := s.Sorted(); !slices.Equal(got, want) {
		t.Fatalf("Sorted() = %v, want %v", got, want)
	}
}
