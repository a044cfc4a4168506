package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// Project represents a talescript.yaml file.
type Project struct {
	// Sources lists script directories relative to the project root.
	// Defaults to the root itself.
	Sources []string `yaml:"sources,omitempty"`

	// OutDir receives generated Lua chunks and the build manifest.
	OutDir string `yaml:"out_dir,omitempty"`

	// Entry is the label `talescript run` starts from when none is given.
	Entry string `yaml:"entry,omitempty"`

	// Select chooses among same-named labels: round_robin or random.
	Select string `yaml:"select,omitempty"`

	// Seed makes random choices reproducible. Zero means a fresh seed per run.
	Seed uint64 `yaml:"seed,omitempty"`

	// Actors maps actor names used in scripts to display names.
	Actors map[string]string `yaml:"actors,omitempty"`

	// Root is the directory holding the project file; not read from yaml.
	Root string `yaml:"-"`
}

// DefaultProject is used when a script root has no project file.
func DefaultProject(root string) *Project {
	p := &Project{Root: root}
	p.setDefaults()
	return p
}

// LoadProject reads and parses a talescript.yaml file.
func LoadProject(path string) (*Project, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config %s: %w", path, err)
	}
	p, err := ParseProject(data, path)
	if err != nil {
		return nil, err
	}
	p.Root = filepath.Dir(path)
	return p, nil
}

// ParseProject parses talescript.yaml content from bytes.
// The path argument is used only for error messages.
func ParseProject(data []byte, path string) (*Project, error) {
	var p Project
	if err := yaml.Unmarshal(data, &p); err != nil {
		return nil, fmt.Errorf("parsing %s: %w", path, err)
	}
	p.setDefaults()
	if err := p.Validate(path); err != nil {
		return nil, err
	}
	return &p, nil
}

// FindProject looks for a project file in dir. It returns an empty path
// and no error when there is none.
func FindProject(dir string) (string, error) {
	dir, err := filepath.Abs(dir)
	if err != nil {
		return "", fmt.Errorf("resolving directory: %w", err)
	}
	for _, name := range []string{ProjectFileName, ProjectFileAltName} {
		candidate := filepath.Join(dir, name)
		if _, err := os.Stat(candidate); err == nil {
			return candidate, nil
		}
	}
	return "", nil
}

// Validate checks the configuration for semantic errors.
func (p *Project) Validate(path string) error {
	switch p.Select {
	case SelectRoundRobin, SelectRandom:
	default:
		return fmt.Errorf("%s: select: unknown policy %q (want %s or %s)", path, p.Select, SelectRoundRobin, SelectRandom)
	}
	for i, src := range p.Sources {
		if strings.TrimSpace(src) == "" {
			return fmt.Errorf("%s: sources[%d]: empty path", path, i)
		}
		if filepath.IsAbs(src) {
			return fmt.Errorf("%s: sources[%d]: %q must be relative to the project root", path, i, src)
		}
	}
	for name, display := range p.Actors {
		if strings.TrimSpace(name) == "" || strings.TrimSpace(display) == "" {
			return fmt.Errorf("%s: actors: empty name in %q: %q", path, name, display)
		}
	}
	return nil
}

func (p *Project) setDefaults() {
	if len(p.Sources) == 0 {
		p.Sources = []string{"."}
	}
	if p.OutDir == "" {
		p.OutDir = DefaultOutDir
	}
	if p.Select == "" {
		p.Select = SelectRoundRobin
	}
}

// SourceDirs returns the absolute script directories.
func (p *Project) SourceDirs() []string {
	dirs := make([]string, len(p.Sources))
	for i, s := range p.Sources {
		dirs[i] = filepath.Join(p.Root, s)
	}
	return dirs
}

// OutputDir returns OutDir resolved against the root.
func (p *Project) OutputDir() string {
	if filepath.IsAbs(p.OutDir) {
		return p.OutDir
	}
	return filepath.Join(p.Root, p.OutDir)
}
