// Package workload drives a Map through a synthetic read-heavy load and
// verifies the pointer-stability contract while it runs. It backs the
// cachebench command.
package workload

import (
	_ "embed"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

//go:embed config.default.yaml
var defaultConfigYAML []byte

// Mode selects which front end the workload exercises.
type Mode string

const (
	// ModeMap drives Map.GetOrCreate directly.
	ModeMap Mode = "map"
	// ModeLazy drives a LazyMap wrapping the same key space.
	ModeLazy Mode = "lazy"
)

// Config describes one workload run.
type Config struct {
	// Name labels the run in logs and reports.
	Name string `yaml:"name"`
	// Mode is "map" or "lazy".
	Mode Mode `yaml:"mode"`
	// Keys is the size of the key space.
	Keys int `yaml:"keys"`
	// Ops is the total number of operations to perform.
	Ops int `yaml:"ops"`
	// ValueBytes is the payload size cached per key.
	ValueBytes int `yaml:"value_bytes"`
	// HitRatio is the share of operations aimed at already-cached keys,
	// in [0, 1]. The remainder populates new keys until the key space is
	// exhausted.
	HitRatio float64 `yaml:"hit_ratio"`
	// Seed seeds the operation mix. Runs with equal seeds are identical.
	Seed int64 `yaml:"seed"`
	// PinnedRefs is how many pointers the runner holds across the whole
	// run to verify they stay valid while the table grows.
	PinnedRefs int `yaml:"pinned_refs"`
	// ReportEvery is the number of operations between progress log
	// lines. Zero disables progress logging.
	ReportEvery int `yaml:"report_every"`
}

// DefaultConfig returns the built-in workload parameters.
func DefaultConfig() *Config {
	cfg := defaultConfig()
	return cfg
}

// LoadConfig reads a workload config from file, applying defaults for
// fields the file leaves unset.
func LoadConfig(file string) (*Config, error) {
	f, err := os.Open(file)
	if err != nil {
		return nil, fmt.Errorf("failed to open config file: %w", err)
	}
	defer f.Close()

	cfg := defaultConfig()
	if err = yaml.NewDecoder(f).Decode(cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}
	if err = cfg.validate(); err != nil {
		return nil, fmt.Errorf("invalid config %q: %w", file, err)
	}
	return cfg, nil
}

func (c *Config) validate() error {
	switch c.Mode {
	case ModeMap, ModeLazy:
	default:
		return fmt.Errorf("unknown mode %q", c.Mode)
	}
	if c.Keys <= 0 {
		return fmt.Errorf("keys must be positive, got %d", c.Keys)
	}
	if c.Ops <= 0 {
		return fmt.Errorf("ops must be positive, got %d", c.Ops)
	}
	if c.ValueBytes < 8 {
		return fmt.Errorf("value_bytes must be at least 8, got %d", c.ValueBytes)
	}
	if c.HitRatio < 0 || c.HitRatio > 1 {
		return fmt.Errorf("hit_ratio must be in [0, 1], got %g", c.HitRatio)
	}
	if c.PinnedRefs < 0 {
		return fmt.Errorf("pinned_refs must not be negative, got %d", c.PinnedRefs)
	}
	if c.ReportEvery < 0 {
		return fmt.Errorf("report_every must not be negative, got %d", c.ReportEvery)
	}
	return nil
}

func defaultConfig() *Config {
	var cfg Config
	if err := yaml.Unmarshal(defaultConfigYAML, &cfg); err != nil {
		panic(fmt.Errorf("failed to load default config: %w", err))
	}
	return &cfg
}
