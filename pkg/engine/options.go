package engine

import (
	"log/slog"

	"github.com/funvibe/talescript/internal/config"
)

type settings struct {
	project    *config.Project
	logger     *slog.Logger
	policy     string
	seed       uint64
	actorNames map[string]string
}

// Option configures New and Compile.
type Option func(*settings)

// WithProject uses p instead of reading talescript.yaml from the root.
func WithProject(p *config.Project) Option {
	return func(s *settings) { s.project = p }
}

func WithLogger(l *slog.Logger) Option {
	return func(s *settings) { s.logger = l }
}

// WithSelectPolicy overrides how same-named labels are chosen:
// "round_robin" or "random". A non-zero seed makes random choices and word
// picks reproducible.
func WithSelectPolicy(policy string, seed uint64) Option {
	return func(s *settings) {
		s.policy = policy
		s.seed = seed
	}
}

// WithActorNames maps actor names in scripts to display names.
func WithActorNames(names map[string]string) Option {
	return func(s *settings) { s.actorNames = names }
}

func newSettings(opts []Option) *settings {
	s := &settings{}
	for _, opt := range opts {
		opt(s)
	}
	if s.logger == nil {
		s.logger = defaultLogger()
	}
	return s
}

// loadProject reads the project file of root, or defaults when it has
// none, then applies TALESCRIPT_* overrides.
func (s *settings) loadProject(root string) (*config.Project, error) {
	if s.project != nil {
		if s.project.Root == "" {
			s.project.Root = root
		}
		return s.project, nil
	}
	path, err := config.FindProject(root)
	if err != nil {
		return nil, err
	}
	var p *config.Project
	if path == "" {
		p = config.DefaultProject(root)
	} else if p, err = config.LoadProject(path); err != nil {
		return nil, err
	}
	if err := p.ApplyEnv(); err != nil {
		return nil, err
	}
	s.logger.Debug("project loaded", slog.String("root", p.Root), slog.String("config", path))
	return p, nil
}
