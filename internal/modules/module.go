package modules

import (
	"path/filepath"
	"sort"
)

// Source is the text of one script file. Path names the file in
// diagnostics and generated chunk names.
type Source struct {
	Path string
	Text string
}

// Module represents a script directory consisting of multiple source files.
type Module struct {
	Dir     string
	Sources []Source
}

// Paths returns the source paths in load order.
func (m *Module) Paths() []string {
	paths := make([]string, len(m.Sources))
	for i, s := range m.Sources {
		paths[i] = s.Path
	}
	return paths
}

// Merge combines sources from several modules, dropping repeated paths and
// keeping the first occurrence of each.
func Merge(mods ...*Module) []Source {
	seen := make(map[string]bool)
	var out []Source
	for _, m := range mods {
		for _, s := range m.Sources {
			key := filepath.Clean(s.Path)
			if seen[key] {
				continue
			}
			seen[key] = true
			out = append(out, s)
		}
	}
	return out
}

// SortSources orders sources by path so label IDs do not depend on
// directory listing order.
func SortSources(sources []Source) {
	sort.SliceStable(sources, func(i, j int) bool { return sources[i].Path < sources[j].Path })
}
