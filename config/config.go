// Package config loads the settlement engine's tunable constants (spec
// section 6, "Configuration constants") from a TOML file, in the
// teacher's Load/createDefault style, adapted to the engine's own knobs
// instead of chain networking settings.
package config

import (
	"fmt"
	"os"

	"github.com/BurntSushi/toml"
)

// Config bundles the constants read once at engine initialization.
type Config struct {
	// CycleIntervalSeconds is the minimum time between successful
	// settlements (default 300).
	CycleIntervalSeconds int64 `toml:"CycleIntervalSeconds"`
	// StakeRateBps is the stake quota expressed in basis points of gross
	// outgoing (default 2000 = 20%).
	StakeRateBps uint32 `toml:"StakeRateBps"`
	// MaxFailedCycles is the number of consecutive rollbacks an item
	// tolerates before being force-cancelled (default 2).
	MaxFailedCycles uint32 `toml:"MaxFailedCycles"`
	// AmountScale bounds the magnitude of any single submitted amount;
	// an amount above it is rejected with InvalidAmount. Amounts are not
	// checked in combination (default 1e18).
	AmountScale string `toml:"AmountScale"`
	// DataDir is where the demo CLI persists its snapshot, if any.
	DataDir string `toml:"DataDir"`
	// ListenAddress is the demo CLI's metrics listener.
	ListenAddress string `toml:"ListenAddress"`
}

// Default returns the constants described in spec section 6 exactly.
func Default() *Config {
	return &Config{
		CycleIntervalSeconds: 300,
		StakeRateBps:         2000,
		MaxFailedCycles:      2,
		AmountScale:          "1000000000000000000",
		DataDir:              "./clearing-data",
		ListenAddress:        ":9090",
	}
}

// Load reads the configuration from path, creating it (with defaults) if
// it does not yet exist, mirroring the teacher's config.Load fallback.
func Load(path string) (*Config, error) {
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return createDefault(path)
	}
	cfg := Default()
	if _, err := toml.DecodeFile(path, cfg); err != nil {
		return nil, fmt.Errorf("config: decode %s: %w", path, err)
	}
	if err := Validate(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

func createDefault(path string) (*Config, error) {
	cfg := Default()
	f, err := os.Create(path)
	if err != nil {
		return nil, fmt.Errorf("config: create %s: %w", path, err)
	}
	defer f.Close()
	if err := toml.NewEncoder(f).Encode(cfg); err != nil {
		return nil, fmt.Errorf("config: write default %s: %w", path, err)
	}
	return cfg, nil
}
