// Package latency provides the branch cost model of the timing simulation.
//
// The cycle costs are configured via TimingConfig; the mispredict penalty it
// carries applies simulation-wide.
package latency

import (
	"github.com/sarchlab/akita/v4/sim"
)

// Table provides branch cost lookups.
type Table struct {
	config *TimingConfig
}

// NewTable creates a new latency table with default timing values.
func NewTable() *Table {
	return &Table{
		config: DefaultTimingConfig(),
	}
}

// NewTableWithConfig creates a new latency table with custom timing configuration.
func NewTableWithConfig(config *TimingConfig) *Table {
	return &Table{
		config: config,
	}
}

// BranchCycles returns the cycles charged for one resolved branch.
// mispredicted is a direction misprediction; targetMiss is a BTB miss on a
// correctly predicted taken branch. A direction misprediction already
// includes redirecting fetch, so the BTB miss penalty is not added on top.
func (t *Table) BranchCycles(mispredicted, targetMiss bool) uint64 {
	cycles := t.config.BranchLatency

	switch {
	case mispredicted:
		cycles += t.config.BranchMispredictPenalty
	case targetMiss:
		cycles += t.config.BTBMissPenalty
	}

	return cycles
}

// MispredictPenalty returns the simulation-wide mispredict penalty in cycles.
func (t *Table) MispredictPenalty() uint64 {
	return t.config.BranchMispredictPenalty
}

// Frequency returns the configured core frequency.
func (t *Table) Frequency() sim.Freq {
	return sim.Freq(t.config.FrequencyGHz) * sim.GHz
}

// CyclesToTime converts a cycle count into simulated seconds.
func (t *Table) CyclesToTime(cycles uint64) sim.VTimeInSec {
	return sim.VTimeInSec(float64(cycles) / float64(t.Frequency()))
}

// Config returns the current timing configuration.
func (t *Table) Config() *TimingConfig {
	return t.config
}
