package config

import (
	"fmt"

	"github.com/caarlos0/env/v11"
)

// Overrides are environment settings that take precedence over the project file.
type Overrides struct {
	OutDir string  `env:"TALESCRIPT_OUT_DIR"`
	Entry  string  `env:"TALESCRIPT_ENTRY"`
	Select string  `env:"TALESCRIPT_SELECT"`
	Seed   *uint64 `env:"TALESCRIPT_SEED"`
}

// ParseEnv loads configuration from environment variables.
func ParseEnv(target any) error {
	if err := env.Parse(target); err != nil {
		return fmt.Errorf("parse env: %w", err)
	}
	return nil
}

// ApplyEnv reads Overrides from the environment and applies them to p.
func (p *Project) ApplyEnv() error {
	var o Overrides
	if err := ParseEnv(&o); err != nil {
		return err
	}
	p.Apply(o)
	return p.Validate("environment")
}

// Apply copies every set override into p.
func (p *Project) Apply(o Overrides) {
	if o.OutDir != "" {
		p.OutDir = o.OutDir
	}
	if o.Entry != "" {
		p.Entry = o.Entry
	}
	if o.Select != "" {
		p.Select = o.Select
	}
	if o.Seed != nil {
		p.Seed = *o.Seed
	}
}
