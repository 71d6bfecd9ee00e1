// Package config loads the ambient process-level configuration (spec
// §1's second configuration surface, distinct from the per-scan `.par`
// grammar in internal/param): cache capacities, render worker-pool
// size, and log level, the knobs a deployment tunes rather than a
// single reconstruction job.
package config

import (
	"fmt"
	"io"

	"gopkg.in/yaml.v3"
)

// CacheCapacities sizes the shared render.Caches bundle (internal/cache,
// C11); a stitch project spanning many tiles wants these raised well
// past the single-scan defaults so every tile's renderer can stay
// resident without thrashing.
type CacheCapacities struct {
	ScrToImg int `yaml:"scr_to_img"`
	Mesh     int `yaml:"mesh"`
	MTF      int `yaml:"mtf"`
	Tile     int `yaml:"tile"`
}

// Config is the process-wide tuning surface, loaded once at startup.
type Config struct {
	Caches   CacheCapacities `yaml:"caches"`
	Workers  int             `yaml:"workers"`
	LogLevel string          `yaml:"log_level"`
}

// Default returns the single-scan-sized configuration used when no
// config file is given, matching internal/render's own base capacities.
func Default() Config {
	return Config{
		Caches: CacheCapacities{ScrToImg: 4, Mesh: 4, MTF: 8, Tile: 4},
		Workers: 4,
		LogLevel: "info",
	}
}

// Load reads a YAML process config (spec §1's "ambient process-level
// config... loaded from YAML"), starting from Default so a partial file
// only overrides the fields it sets.
func Load(r io.Reader) (Config, error) {
	cfg := Default()
	dec := yaml.NewDecoder(r)
	if err := dec.Decode(&cfg); err != nil && err != io.EOF {
		return Config{}, fmt.Errorf("config: parsing process config: %w", err)
	}
	return cfg, nil
}
