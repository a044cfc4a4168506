package symbols

import (
	"github.com/funvibe/talescript/internal/ast"
)

// LabelEntry describes one label of the compilation unit.
type LabelEntry struct {
	ID     uint32 // dense, assigned in depth-first document order
	Name   string
	FnPath string // unique generated path, e.g. 会話_2_朝
	Scope  string // FnPath of the enclosing global label; its own path for globals
	Depth  int
	Parent *LabelEntry

	Attributes map[string]string
	File       string
	Label      *ast.Label

	// Body is the label's statement list with the generated enter marker first.
	Body []ast.Statement
	// Words holds the label-local dictionary.
	Words map[string][]string
	// Actors is filled once the aliases of the body are resolved.
	Actors ActorSet
}

// IsGlobal reports whether the entry is a top-level label.
func (e *LabelEntry) IsGlobal() bool {
	return e.Depth == 0
}

// Matches reports whether every filter is satisfied by the entry attributes.
// A filter with an empty value only requires the key to be present.
func (e *LabelEntry) Matches(filters map[string]string) bool {
	for k, v := range filters {
		got, ok := e.Attributes[k]
		if !ok {
			return false
		}
		if v != "" && got != v {
			return false
		}
	}
	return true
}

// FileEntry keeps the file-scope host blocks of one source file.
type FileEntry struct {
	Path   string
	Blocks []*ast.HostBlock
}

// Registry is the label table of a compilation unit. It is filled by the
// first transpiler pass and sealed before code generation; a sealed
// registry is read-only and safe for concurrent use.
type Registry struct {
	entries []*LabelEntry
	byPath  map[string]*LabelEntry
	byName  map[string][]*LabelEntry

	// globalCount counts global labels per name to build `<name>_<n>` paths.
	globalCount map[string]int

	words map[string][]string

	files []*FileEntry

	sealed bool
}

func NewRegistry() *Registry {
	return &Registry{
		byPath:      make(map[string]*LabelEntry),
		byName:      make(map[string][]*LabelEntry),
		globalCount: make(map[string]int),
		words:       make(map[string][]string),
	}
}
