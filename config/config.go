package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/knadh/koanf/parsers/json"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"

	"github.com/kilianp07/thermogrid/api/plans"
	"github.com/kilianp07/thermogrid/core/adequacy"
	"github.com/kilianp07/thermogrid/core/demand"
	"github.com/kilianp07/thermogrid/core/factory"
	"github.com/kilianp07/thermogrid/core/fitness"
	"github.com/kilianp07/thermogrid/core/grid"
	"github.com/kilianp07/thermogrid/core/metrics"
	"github.com/kilianp07/thermogrid/core/planlog"
	"github.com/kilianp07/thermogrid/core/plant"
	"github.com/kilianp07/thermogrid/core/scheduler"
	"github.com/kilianp07/thermogrid/core/world"
	"github.com/kilianp07/thermogrid/infra/logger"
	"github.com/kilianp07/thermogrid/infra/monitoring"
	"github.com/kilianp07/thermogrid/infra/mqtt"
)

// Config is the root configuration of a thermogrid deployment.
type Config struct {
	Seed        uint64            `json:"seed"`
	Grid        GridConfig        `json:"grid"`
	Reliability plant.Profiles    `json:"reliability"`
	Scheduler   scheduler.Config  `json:"scheduler"`
	Fitness     fitness.Weights   `json:"fitness"`
	World       WorldConfig       `json:"world"`
	Adequacy    adequacy.Config   `json:"adequacy"`
	Metrics     metrics.Config    `json:"metrics"`
	PlanLog     planlog.Config    `json:"planlog"`
	MQTT        mqtt.Config       `json:"mqtt"`
	Logging     logger.Options    `json:"logging"`
	API         plans.Config      `json:"api"`
	Monitoring  monitoring.Config `json:"monitoring"`
}

// GridConfig describes the plants and blocks. Distances may be given inline
// or as a plant_id,block_id,distance CSV file.
type GridConfig struct {
	Plants          []grid.PlantSpec `json:"plants"`
	Blocks          []grid.Block     `json:"blocks"`
	Distances       [][]float64      `json:"distances"`
	DistancesFile   string           `json:"distances_file"`
	DefaultDistance float64          `json:"default_distance"`
}

// SetDefaults gives blocks without a profile the default demand profile and
// unit importance.
func (c *GridConfig) SetDefaults() {
	for i := range c.Blocks {
		if c.Blocks[i].Profile == (demand.Profile{}) {
			c.Blocks[i].Profile = demand.DefaultProfile()
		}
		if c.Blocks[i].Importance == 0 {
			c.Blocks[i].Importance = 1
		}
	}
}

// Topology assembles and validates the grid topology.
func (c GridConfig) Topology() (grid.Topology, error) {
	t := grid.Topology{Plants: c.Plants, Blocks: c.Blocks, Distances: c.Distances}
	switch {
	case c.DistancesFile != "":
		f, err := os.Open(c.DistancesFile)
		if err != nil {
			return grid.Topology{}, err
		}
		defer func() { _ = f.Close() }()
		d, err := t.ReadDistances(f, c.DefaultDistance)
		if err != nil {
			return grid.Topology{}, err
		}
		t.Distances = d
	case c.Distances == nil:
		t.Distances = make([][]float64, len(c.Plants))
		for i := range t.Distances {
			t.Distances[i] = make([]float64, len(c.Blocks))
			for j := range t.Distances[i] {
				t.Distances[i][j] = c.DefaultDistance
			}
		}
	}
	if err := t.Validate(); err != nil {
		return grid.Topology{}, err
	}
	return t, nil
}

// WorldConfig holds the daily loop settings.
type WorldConfig struct {
	Days        int                  `json:"days"`
	Scope       scheduler.Scope      `json:"scope"`
	Maintenance factory.ModuleConfig `json:"maintenance"`
}

// SetDefaults applies the simulation defaults.
func (c *WorldConfig) SetDefaults() {
	if c.Days == 0 {
		c.Days = 30
	}
	if c.Scope == "" {
		c.Scope = scheduler.ScopeHourly
	}
}

// WorldConfig assembles the world driver configuration.
func (c Config) WorldConfig() world.Config {
	return world.Config{
		Seed:        c.Seed,
		Days:        c.World.Days,
		Scope:       c.World.Scope,
		Maintenance: c.World.Maintenance,
		Scheduler:   c.Scheduler,
		Weights:     c.Fitness,
		Profiles:    c.Reliability,
	}
}

// SetDefaults fills every section.
func (c *Config) SetDefaults() {
	c.Grid.SetDefaults()
	if c.Reliability == (plant.Profiles{}) {
		c.Reliability = plant.DefaultProfiles()
	}
	c.Scheduler.SetDefaults()
	if c.Fitness == (fitness.Weights{}) {
		c.Fitness = fitness.DefaultWeights()
	}
	c.World.SetDefaults()
	if c.Adequacy.Seed == 0 {
		c.Adequacy.Seed = c.Seed
	}
	c.Adequacy.SetDefaults()
	c.PlanLog.SetDefaults()
	if c.MQTT.Broker != "" {
		c.MQTT.SetDefaults()
	}
	c.API.SetDefaults()
}

// Validate checks every section. The grid is validated by Topology.
func (c Config) Validate() error {
	if err := c.WorldConfig().Validate(); err != nil {
		return fmt.Errorf("world: %w", err)
	}
	if err := c.Adequacy.Validate(); err != nil {
		return fmt.Errorf("adequacy: %w", err)
	}
	for i, s := range c.Metrics.Sinks {
		if s.Type == "" {
			return fmt.Errorf("metrics: sink %d has no type", i)
		}
	}
	if err := c.PlanLog.Validate(); err != nil {
		return fmt.Errorf("planlog: %w", err)
	}
	if c.MQTT.Broker != "" {
		if err := c.MQTT.Validate(); err != nil {
			return fmt.Errorf("mqtt: %w", err)
		}
	}
	switch strings.ToLower(c.Logging.Level) {
	case "", "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("logging: unknown level %q", c.Logging.Level)
	}
	if _, err := c.Grid.Topology(); err != nil {
		return fmt.Errorf("grid: %w", err)
	}
	return nil
}

// Load reads path, applies K_ prefixed environment overrides (K_WORLD__DAYS
// sets world.days), then defaults and validates the result.
func Load(path string) (*Config, error) {
	k := koanf.New(".")
	ext := strings.ToLower(filepath.Ext(path))
	var parser koanf.Parser
	switch ext {
	case ".yaml", ".yml":
		parser = yaml.Parser()
	case ".json":
		parser = json.Parser()
	default:
		return nil, fmt.Errorf("unsupported config format: %s", ext)
	}
	if err := k.Load(file.Provider(path), parser); err != nil {
		return nil, err
	}
	// Optional environment overrides
	if err := k.Load(env.Provider("K_", ".", func(s string) string {
		s = strings.TrimPrefix(strings.ToLower(s), "k_")
		return strings.ReplaceAll(s, "__", ".")
	}), nil); err != nil {
		return nil, err
	}
	var cfg Config
	if err := k.UnmarshalWithConf("", &cfg, koanf.UnmarshalConf{Tag: "json"}); err != nil {
		return nil, err
	}
	if cfg.Grid.DistancesFile != "" && !filepath.IsAbs(cfg.Grid.DistancesFile) {
		cfg.Grid.DistancesFile = filepath.Join(filepath.Dir(path), cfg.Grid.DistancesFile)
	}
	cfg.SetDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}
