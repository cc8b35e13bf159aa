package config

import (
	"fmt"
	"os"

	"github.com/imkarma/streak/internal/board"
	"github.com/imkarma/streak/internal/game"
	"gopkg.in/yaml.v3"
)

// Config is the root configuration for a streak data directory.
type Config struct {
	Version int            `yaml:"version"`
	Storage Storage        `yaml:"storage"`
	Points  map[string]int `yaml:"points"` // priority -> points per completed task
	Tiers   []game.Tier    `yaml:"tiers"`
}

// Storage names the files inside the data directory.
type Storage struct {
	KVFile     string `yaml:"kv_file"`               // synchronous key-value document
	DBFile     string `yaml:"db_file"`               // object store database
	QuotaBytes int    `yaml:"quota_bytes,omitempty"` // 0 = unlimited
}

// Load reads and parses the config file at the given path.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}

	cfg := DefaultConfig()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Save writes the config to the given path.
func Save(path string, cfg *Config) error {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("marshal config: %w", err)
	}
	return os.WriteFile(path, data, 0644)
}

// DefaultConfig returns the built-in storage layout and scoring rules.
func DefaultConfig() *Config {
	rules := game.DefaultRules()
	points := make(map[string]int, len(rules.Points))
	for p, n := range rules.Points {
		points[string(p)] = n
	}
	return &Config{
		Version: 1,
		Storage: Storage{
			KVFile: "local.json",
			DBFile: "streak.db",
		},
		Points: points,
		Tiers:  rules.Tiers,
	}
}

// Rules converts the scoring section into game rules.
func (c *Config) Rules() game.Rules {
	points := make(map[board.Priority]int, len(c.Points))
	for p, n := range c.Points {
		points[board.Priority(p)] = n
	}
	tiers := make([]game.Tier, len(c.Tiers))
	copy(tiers, c.Tiers)
	return game.Rules{Points: points, Tiers: tiers}
}

func (c *Config) validate() error {
	if c.Storage.KVFile == "" {
		return fmt.Errorf("storage.kv_file is required")
	}
	if c.Storage.DBFile == "" {
		return fmt.Errorf("storage.db_file is required")
	}
	if c.Storage.QuotaBytes < 0 {
		return fmt.Errorf("storage.quota_bytes must not be negative")
	}

	for p, n := range c.Points {
		if !board.Priority(p).Valid() {
			return fmt.Errorf("points: unknown priority %q", p)
		}
		if n < 0 {
			return fmt.Errorf("points: %s must not be negative, got %d", p, n)
		}
	}

	if len(c.Tiers) == 0 {
		return fmt.Errorf("at least one tier is required")
	}
	if c.Tiers[0].MinPoints != 0 {
		return fmt.Errorf("tier %q: first tier must start at 0 points", c.Tiers[0].Name)
	}
	seen := make(map[string]bool, len(c.Tiers))
	for i, t := range c.Tiers {
		if t.Name == "" {
			return fmt.Errorf("tier %d: name is required", i)
		}
		if t.Theme == "" {
			return fmt.Errorf("tier %q: theme is required", t.Name)
		}
		if seen[t.Name] {
			return fmt.Errorf("tier %q: duplicate name", t.Name)
		}
		seen[t.Name] = true
		if i > 0 && t.MinPoints <= c.Tiers[i-1].MinPoints {
			return fmt.Errorf("tier %q: min_points must be greater than %q's", t.Name, c.Tiers[i-1].Name)
		}
	}
	return nil
}
