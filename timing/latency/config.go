package latency

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/pkg/errors"
)

// TimingConfig holds the cycle costs charged for resolved branches. It is
// shared by every core of a simulation.
type TimingConfig struct {
	// BranchLatency is the base execution latency of a branch.
	// Default: 1 cycle.
	BranchLatency uint64 `json:"branch_latency"`

	// BranchMispredictPenalty is the additional cycles lost on a branch
	// direction misprediction. Default: 12 cycles.
	BranchMispredictPenalty uint64 `json:"branch_mispredict_penalty"`

	// BTBMissPenalty is the additional cycles lost when a correctly
	// predicted taken branch misses in the branch target buffer.
	// Default: 2 cycles.
	BTBMissPenalty uint64 `json:"btb_miss_penalty"`

	// FrequencyGHz is the core clock frequency used to convert cycles to
	// time. Default: 3.5 GHz.
	FrequencyGHz float64 `json:"frequency_ghz"`
}

// DefaultTimingConfig returns a TimingConfig with default values.
func DefaultTimingConfig() *TimingConfig {
	return &TimingConfig{
		BranchLatency:           1,
		BranchMispredictPenalty: 12,
		BTBMissPenalty:          2,
		FrequencyGHz:            3.5,
	}
}

// LoadConfig loads a TimingConfig from a JSON file.
func LoadConfig(path string) (*TimingConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrap(err, "failed to read timing config file")
	}

	config := DefaultTimingConfig()
	if err := json.Unmarshal(data, config); err != nil {
		return nil, errors.Wrap(err, "failed to parse timing config")
	}

	return config, nil
}

// SaveConfig writes a TimingConfig to a JSON file.
func (c *TimingConfig) SaveConfig(path string) error {
	data, err := json.MarshalIndent(c, "", "  ")
	if err != nil {
		return errors.Wrap(err, "failed to serialize timing config")
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return errors.Wrap(err, "failed to write timing config file")
	}

	return nil
}

// Validate checks that the configuration is usable.
func (c *TimingConfig) Validate() error {
	if c.BranchLatency == 0 {
		return fmt.Errorf("branch_latency must be > 0")
	}
	if c.FrequencyGHz <= 0 {
		return fmt.Errorf("frequency_ghz must be > 0")
	}
	return nil
}

// Clone returns a copy of the TimingConfig.
func (c *TimingConfig) Clone() *TimingConfig {
	return &TimingConfig{
		BranchLatency:           c.BranchLatency,
		BranchMispredictPenalty: c.BranchMispredictPenalty,
		BTBMissPenalty:          c.BTBMissPenalty,
		FrequencyGHz:            c.FrequencyGHz,
	}
}
