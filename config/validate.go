package config

import (
	"fmt"
	"math/big"
)

// Validate checks that the loaded configuration is internally consistent,
// in the teacher's ValidateConfig style (config/validate.go upstream).
func Validate(cfg *Config) error {
	if cfg == nil {
		return fmt.Errorf("config: nil configuration")
	}
	if cfg.CycleIntervalSeconds <= 0 {
		return fmt.Errorf("config: CycleIntervalSeconds must be positive")
	}
	if cfg.StakeRateBps == 0 || cfg.StakeRateBps > 10_000 {
		return fmt.Errorf("config: StakeRateBps must be in (0, 10000]")
	}
	if cfg.MaxFailedCycles == 0 {
		return fmt.Errorf("config: MaxFailedCycles must be positive")
	}
	scale, ok := new(big.Int).SetString(cfg.AmountScale, 10)
	if !ok || scale.Sign() <= 0 {
		return fmt.Errorf("config: AmountScale must be a positive base-10 integer")
	}
	return nil
}
