package modules

import (
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/funvibe/talescript/internal/config"
)

// HasSources reports whether dirPath holds any script file, at any depth.
func HasSources(dirPath string) bool {
	found := false
	_ = filepath.WalkDir(dirPath, func(path string, d fs.DirEntry, err error) error {
		if err != nil || found {
			return fs.SkipAll
		}
		if !d.IsDir() && config.IsSourceFile(path) {
			found = true
			return fs.SkipAll
		}
		return nil
	})
	return found
}

// Loader reads script sources from disk.
type Loader struct {
	// Root makes source paths relative, so generated code does not depend
	// on where the project is checked out. Empty keeps paths as given.
	Root string

	LoadedModules map[string]*Module // Cache of loaded modules by absolute path
}

func NewLoader(root string) *Loader {
	return &Loader{
		Root:          root,
		LoadedModules: make(map[string]*Module),
	}
}

// Load reads a single script file or every script under a directory,
// recursively. Hidden directories are skipped. Files are sorted by path.
func (l *Loader) Load(path string) (*Module, error) {
	absPath, err := filepath.Abs(path)
	if err != nil {
		return nil, err
	}
	if mod, ok := l.LoadedModules[absPath]; ok {
		return mod, nil
	}

	info, err := os.Stat(absPath)
	if err != nil {
		return nil, err
	}

	var files []string
	if info.IsDir() {
		files, err = sourceFiles(absPath)
		if err != nil {
			return nil, err
		}
		if len(files) == 0 {
			return nil, fmt.Errorf("no %s files found in %s", strings.Join(config.SourceFileExtensions, "/"), absPath)
		}
	} else {
		files = []string{absPath}
	}

	mod := &Module{Dir: absPath}
	if !info.IsDir() {
		mod.Dir = filepath.Dir(absPath)
	}
	for _, file := range files {
		content, err := os.ReadFile(file)
		if err != nil {
			return nil, err
		}
		mod.Sources = append(mod.Sources, Source{Path: l.displayPath(file), Text: string(content)})
	}
	SortSources(mod.Sources)

	l.LoadedModules[absPath] = mod
	return mod, nil
}

// LoadAll loads every path and merges the results in argument order.
func (l *Loader) LoadAll(paths ...string) ([]Source, error) {
	mods := make([]*Module, 0, len(paths))
	for _, p := range paths {
		mod, err := l.Load(p)
		if err != nil {
			return nil, fmt.Errorf("loading %s: %w", p, err)
		}
		mods = append(mods, mod)
	}
	return Merge(mods...), nil
}

func sourceFiles(dir string) ([]string, error) {
	var files []string
	err := filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			if path != dir && strings.HasPrefix(d.Name(), ".") {
				return fs.SkipDir
			}
			return nil
		}
		if config.IsSourceFile(path) {
			files = append(files, path)
		}
		return nil
	})
	return files, err
}

func (l *Loader) displayPath(abs string) string {
	if l.Root == "" {
		return abs
	}
	root, err := filepath.Abs(l.Root)
	if err != nil {
		return abs
	}
	rel, err := filepath.Rel(root, abs)
	if err != nil || strings.HasPrefix(rel, "..") {
		return abs
	}
	return filepath.ToSlash(rel)
}
