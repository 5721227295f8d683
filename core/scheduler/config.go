package scheduler

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// Config holds the genetic search parameters.
type Config struct {
	PopulationSize int `json:"population_size" yaml:"population_size"`
	Generations    int `json:"generations" yaml:"generations"`
	// Offspring is the number of children each survivor sires per generation.
	Offspring    int     `json:"offspring" yaml:"offspring"`
	MutationRate float64 `json:"mutation_rate" yaml:"mutation_rate"`
	// DisableMutation forces a zero mutation rate, which SetDefaults would
	// otherwise replace.
	DisableMutation bool      `json:"disable_mutation" yaml:"disable_mutation"`
	Mutations       []string  `json:"mutations" yaml:"mutations"`
	Objective       Objective `json:"objective" yaml:"objective"`
	Workers         int       `json:"workers" yaml:"workers"`
	Seed            uint64    `json:"seed" yaml:"seed"`
}

// SetDefaults fills zero values.
func (c *Config) SetDefaults() {
	if c.PopulationSize == 0 {
		c.PopulationSize = 20
	}
	if c.Generations == 0 {
		c.Generations = 30
	}
	if c.Offspring == 0 {
		c.Offspring = 3
	}
	switch {
	case c.DisableMutation:
		c.MutationRate = 0
	case c.MutationRate == 0:
		c.MutationRate = 0.1
	}
	if len(c.Mutations) == 0 {
		for _, m := range Mutations() {
			c.Mutations = append(c.Mutations, string(m))
		}
	}
	if c.Objective == "" {
		c.Objective = Maximize
	}
	if c.Workers == 0 {
		c.Workers = 4
	}
}

// Validate checks ranges and mutation names.
func (c Config) Validate() error {
	if c.PopulationSize < 1 {
		return fmt.Errorf("population_size must be positive")
	}
	if c.Generations < 0 {
		return fmt.Errorf("generations must not be negative")
	}
	if c.Offspring < 1 {
		return fmt.Errorf("offspring must be positive")
	}
	if c.MutationRate < 0 || c.MutationRate > 1 {
		return fmt.Errorf("mutation_rate must be within [0,1]")
	}
	if c.MutationRate > 0 && len(c.Mutations) == 0 {
		return fmt.Errorf("mutation_rate set without mutations")
	}
	for _, m := range c.Mutations {
		if _, err := ParseMutation(m); err != nil {
			return err
		}
	}
	if c.Objective != Maximize && c.Objective != Minimize {
		return fmt.Errorf("objective must be %q or %q", Maximize, Minimize)
	}
	if c.Workers < 1 {
		return fmt.Errorf("workers must be positive")
	}
	return nil
}

// LoadConfig loads Config from a JSON or YAML file.
func LoadConfig(path string) (Config, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return Config{}, err
	}
	ext := strings.ToLower(filepath.Ext(path))
	var cfg Config
	switch ext {
	case ".yaml", ".yml":
		err = yaml.Unmarshal(b, &cfg)
	case ".json":
		err = json.Unmarshal(b, &cfg)
	default:
		return Config{}, fmt.Errorf("unsupported config format: %s", ext)
	}
	return cfg, err
}

// DecodeConfig reads from r to decode a Config.
func DecodeConfig(r io.Reader, format string) (Config, error) {
	var cfg Config
	switch strings.ToLower(format) {
	case "yaml", "yml":
		if err := yaml.NewDecoder(r).Decode(&cfg); err != nil {
			return cfg, err
		}
	case "json":
		if err := json.NewDecoder(r).Decode(&cfg); err != nil {
			return cfg, err
		}
	default:
		return cfg, fmt.Errorf("unsupported format: %s", format)
	}
	return cfg, nil
}
