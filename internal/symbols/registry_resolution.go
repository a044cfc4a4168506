package symbols

import (
	"unicode/utf8"
)

func (r *Registry) Len() int {
	return len(r.entries)
}

// Entries returns all labels ordered by ID.
func (r *Registry) Entries() []*LabelEntry {
	return r.entries
}

// Entry returns the label with the given ID.
func (r *Registry) Entry(id uint32) (*LabelEntry, bool) {
	if int(id) >= len(r.entries) {
		return nil, false
	}
	return r.entries[id], true
}

// Lookup finds a label by its generated path.
func (r *Registry) Lookup(path string) (*LabelEntry, bool) {
	e, ok := r.byPath[path]
	return e, ok
}

// HasGlobal reports whether a global label with this name exists.
func (r *Registry) HasGlobal(name string) bool {
	for _, e := range r.byName[name] {
		if e.IsGlobal() {
			return true
		}
	}
	return false
}

// GlobalNames returns the distinct global label names in first-seen order.
func (r *Registry) GlobalNames() []string {
	var names []string
	seen := make(map[string]bool)
	for _, e := range r.entries {
		if e.IsGlobal() && !seen[e.Name] {
			seen[e.Name] = true
			names = append(names, e.Name)
		}
	}
	return names
}

// Candidates lists the labels a jump or call to name can reach from scope.
// Local labels of the scope win over globals; filters are applied within the
// winning group, falling back to globals when no local one matches.
func (r *Registry) Candidates(scope, name string, filters map[string]string) []*LabelEntry {
	var locals, globals []*LabelEntry
	for _, e := range r.byName[name] {
		if !e.Matches(filters) {
			continue
		}
		switch {
		case e.IsGlobal():
			globals = append(globals, e)
		case e.Scope == scope:
			locals = append(locals, e)
		}
	}
	if len(locals) > 0 {
		return locals
	}
	return globals
}

// Word resolves a dictionary entry as seen from entry: the label's own
// words, then those of its ancestors, then the global dictionary.
// entry may be nil to consult only the global dictionary.
func (r *Registry) Word(entry *LabelEntry, name string) ([]string, bool) {
	for e := entry; e != nil; e = e.Parent {
		if vals, ok := e.Words[name]; ok {
			return vals, true
		}
	}
	vals, ok := r.words[name]
	return vals, ok
}

// LongestWord returns the longest prefix of s that names a word visible
// from entry.
func (r *Registry) LongestWord(entry *LabelEntry, s string) (string, bool) {
	for end := len(s); end > 0; {
		if _, ok := r.Word(entry, s[:end]); ok {
			return s[:end], true
		}
		_, w := utf8.DecodeLastRuneInString(s[:end])
		end -= w
	}
	return "", false
}

// Files returns the source files of the unit in the order they were defined.
func (r *Registry) Files() []*FileEntry {
	return r.files
}
