package symbols

import (
	"strconv"

	"github.com/funvibe/talescript/internal/ast"
	"github.com/funvibe/talescript/internal/diagnostics"
	"github.com/funvibe/talescript/internal/token"
)

// Define registers a label. parent is nil for global labels. The body gets
// the enter marker prepended; the AST itself is left untouched.
func (r *Registry) Define(label *ast.Label, parent *LabelEntry, file string) (*LabelEntry, error) {
	if r.sealed {
		return nil, r.sealedError(label.Name)
	}

	var path, scope string
	if parent == nil {
		n := r.globalCount[label.Name] + 1
		path = label.Name + "_" + strconv.Itoa(n)
		scope = path
	} else {
		path = parent.FnPath + "_" + label.Name
		scope = parent.Scope
	}

	if prev, ok := r.byPath[path]; ok {
		if prev.Parent == parent && prev.Name == label.Name {
			err := diagnostics.Errorf(diagnostics.ErrT001, label.Token,
				"duplicate label path %q (first defined at %s:%d)", path, prev.File, prev.Label.Token.Line)
			err.File = file
			return nil, err
		}
		// A different label spells the same path, e.g. global a_1_b and
		// local b_1 under a. The later one gets the ID as suffix.
		path = r.freePath(path + pathCollisionSep + strconv.Itoa(len(r.entries)))
		if parent == nil {
			scope = path
		}
	}
	if parent == nil {
		r.globalCount[label.Name]++
	}

	entry := &LabelEntry{
		ID:         uint32(len(r.entries)),
		Name:       label.Name,
		FnPath:     path,
		Scope:      scope,
		Depth:      label.Depth,
		Parent:     parent,
		Attributes: make(map[string]string, len(label.Attributes)),
		File:       file,
		Label:      label,
		Words:      make(map[string][]string),
		Actors:     ActorSet{},
	}
	for _, a := range label.Attributes {
		entry.Attributes[a.Key] = a.Value
	}
	for _, w := range label.LocalWords {
		entry.Words[w.Name] = append(entry.Words[w.Name], w.Values...)
	}

	entry.Body = make([]ast.Statement, 0, len(label.Statements)+1)
	entry.Body = append(entry.Body, &ast.MarkerStatement{Token: label.Token, Kind: ast.MarkerEnter})
	entry.Body = append(entry.Body, label.Statements...)

	r.entries = append(r.entries, entry)
	r.byPath[path] = entry
	r.byName[label.Name] = append(r.byName[label.Name], entry)
	return entry, nil
}

// pathCollisionSep separates a colliding path from its ID suffix.
const pathCollisionSep = "~"

func (r *Registry) freePath(path string) string {
	for {
		if _, ok := r.byPath[path]; !ok {
			return path
		}
		path += pathCollisionSep
	}
}

// DefineWord adds global dictionary values. Definitions with the same name
// from several files are merged in the order they are defined.
func (r *Registry) DefineWord(name string, values []string) error {
	if r.sealed {
		return r.sealedError(name)
	}
	r.words[name] = append(r.words[name], values...)
	return nil
}

// DefineFile records a source file in unit order with its file-scope blocks.
func (r *Registry) DefineFile(path string, blocks []*ast.HostBlock) error {
	if r.sealed {
		return r.sealedError(path)
	}
	r.files = append(r.files, &FileEntry{Path: path, Blocks: blocks})
	return nil
}

// Seal freezes the registry. Calling it twice is harmless.
func (r *Registry) Seal() {
	r.sealed = true
}

func (r *Registry) Sealed() bool {
	return r.sealed
}

func (r *Registry) sealedError(name string) error {
	return diagnostics.Errorf(diagnostics.ErrT004, token.Token{}, "registry is sealed, cannot define %q", name)
}
