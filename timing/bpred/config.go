package bpred

import (
	"encoding/json"
	"fmt"
	"math/bits"
	"os"

	"github.com/go-multierror/multierror"
	"github.com/pkg/errors"
)

// Type names a predictor variant.
type Type string

// Predictor variants understood by New.
const (
	TypeNone    Type = "none"
	TypeOneBit  Type = "one_bit"
	TypeBimodal Type = "bimodal"
	TypeTage    Type = "tage"
)

// Config selects and sizes a branch predictor. All values are fixed at
// construction.
type Config struct {
	// Type selects the predictor variant. Default: tage.
	Type Type `json:"type"`

	// Entries is the number of entries in each tagged table. Bimodal-style
	// tables hold four times as many counters. Must be a power of 2.
	// Default: 1024.
	Entries uint32 `json:"entries"`

	// Components is the total number of TAGE components, including the
	// untagged base predictor. Default: 8.
	Components uint8 `json:"components"`

	// Alpha is the ratio of the geometric history-length series.
	// Default: 2.
	Alpha uint32 `json:"alpha"`

	// InitialHistory is the history length of the shortest tagged
	// component. Default: 5.
	InitialHistory uint32 `json:"initial_history"`

	// TagWidth is the tag width of tagged entries in bits. Default: 9.
	TagWidth uint8 `json:"tag_width"`
}

// DefaultConfig returns the default TAGE configuration.
func DefaultConfig() *Config {
	return &Config{
		Type:           TypeTage,
		Entries:        1024,
		Components:     8,
		Alpha:          2,
		InitialHistory: 5,
		TagWidth:       9,
	}
}

// LoadConfig loads a Config from a JSON file. Fields missing from the file
// keep their default values.
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to read predictor config from %q", path)
	}

	config := DefaultConfig()
	if err := json.Unmarshal(data, config); err != nil {
		return nil, errors.Wrapf(err, "failed to parse predictor config %q", path)
	}

	return config, nil
}

// SaveConfig writes a Config to a JSON file.
func (c *Config) SaveConfig(path string) error {
	data, err := json.MarshalIndent(c, "", "  ")
	if err != nil {
		return errors.Wrap(err, "failed to serialize predictor config")
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return errors.Wrapf(err, "failed to write predictor config to %q", path)
	}

	return nil
}

// Validate checks the configuration and reports every problem found.
func (c *Config) Validate() error {
	var errs []error

	switch c.Type {
	case TypeNone:
		return nil
	case TypeOneBit, TypeBimodal, TypeTage:
	default:
		return errors.Wrapf(ErrUnknownPredictor, "%q", c.Type)
	}

	if c.Entries < 2 || bits.OnesCount32(c.Entries) != 1 {
		errs = append(errs, fmt.Errorf("entries must be a power of 2 >= 2, got %d", c.Entries))
	}
	if c.Entries > 1<<29 {
		errs = append(errs, fmt.Errorf("entries must be <= 2^29, got %d", c.Entries))
	}

	if c.Type == TypeTage {
		errs = append(errs, c.validateTage()...)
	}

	if len(errs) == 0 {
		return nil
	}

	return multierror.Of(errs...)
}

func (c *Config) validateTage() []error {
	var errs []error

	if c.Components < 2 {
		errs = append(errs, fmt.Errorf("components must be >= 2, got %d", c.Components))
	}
	if c.Alpha < 2 {
		errs = append(errs, fmt.Errorf("alpha must be >= 2, got %d", c.Alpha))
	}
	if c.InitialHistory == 0 {
		errs = append(errs, fmt.Errorf("initial_history must be > 0"))
	}
	if c.TagWidth < 2 || c.TagWidth > 32 {
		errs = append(errs, fmt.Errorf("tag_width must be in [2, 32], got %d", c.TagWidth))
	}

	if len(errs) == 0 {
		if longest := c.HistoryLengths(); longest[len(longest)-1] > maxHistoryLength {
			errs = append(errs, fmt.Errorf(
				"longest history %d exceeds %d bits", longest[len(longest)-1], maxHistoryLength))
		}
	}

	return errs
}

// maxHistoryLength bounds the global history register.
const maxHistoryLength = 1 << 16

// HistoryLengths returns the history length of each tagged component,
// shortest first: InitialHistory * Alpha^k.
func (c *Config) HistoryLengths() []int {
	n := int(c.Components) - 1
	if n <= 0 {
		return nil
	}

	lengths := make([]int, n)
	l := uint64(c.InitialHistory)
	for k := range lengths {
		lengths[k] = int(l)
		if l <= maxHistoryLength {
			l *= uint64(c.Alpha)
		}
	}

	return lengths
}

// Clone returns a copy of the Config.
func (c *Config) Clone() *Config {
	clone := *c
	return &clone
}
