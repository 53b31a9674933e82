// Package core provides the per-core branch timing model.
//
// A Core owns one branch predictor and one branch target buffer per hardware
// thread. Threads never share predictor state.
package core

import (
	"fmt"

	"github.com/montanaflynn/stats"
	"github.com/pkg/errors"
	"github.com/sarchlab/akita/v4/sim"
	"github.com/sirupsen/logrus"

	"github.com/sarchlab/bpsim/timing/bpred"
	"github.com/sarchlab/bpsim/timing/btb"
	"github.com/sarchlab/bpsim/timing/latency"
	"github.com/sarchlab/bpsim/trace"
)

// DefaultWindow is the default number of branches per misprediction-rate
// window.
const DefaultWindow = 1000

// Stats holds branch timing statistics for one hardware thread.
type Stats struct {
	// Branches is the number of branches timed by HandleBranch.
	Branches uint64
	// WarmupBranches is the number of branches passed to WarmBranch.
	WarmupBranches uint64
	// Mispredictions is the number of direction mispredictions.
	Mispredictions uint64
	// TargetMisses is the number of correctly predicted taken branches
	// whose target was not in the BTB.
	TargetMisses uint64
	// Cycles is the total number of cycles charged for branches.
	Cycles uint64
	// PenaltyCycles is the part of Cycles caused by mispredictions and
	// target misses.
	PenaltyCycles uint64
}

// MispredictionRate returns the misprediction rate as a percentage.
func (s Stats) MispredictionRate() float64 {
	if s.Branches == 0 {
		return 0
	}
	return float64(s.Mispredictions) / float64(s.Branches) * 100
}

// Summary describes the distribution of per-window misprediction rates.
type Summary struct {
	Windows int
	Mean    float64
	StdDev  float64
	P90     float64
}

type thread struct {
	predictor bpred.Predictor
	btb       *btb.BTB
	stats     Stats

	windowBranches uint64
	windowMisses   uint64
	windowRates    []float64
}

// Core represents the branch timing model of one CPU core.
type Core struct {
	ID int

	threads []*thread
	latency *latency.Table
	window  uint64
	logger  logrus.FieldLogger
}

// Option configures a Core.
type Option func(*Core)

// WithLatencyTable sets the branch cost model.
func WithLatencyTable(table *latency.Table) Option {
	return func(c *Core) {
		c.latency = table
	}
}

// WithWindow sets the number of branches per misprediction-rate window.
func WithWindow(branches uint64) Option {
	return func(c *Core) {
		if branches > 0 {
			c.window = branches
		}
	}
}

// WithLogger sets the logger. Mispredictions are logged at debug level.
func WithLogger(logger logrus.FieldLogger) Option {
	return func(c *Core) {
		c.logger = logger
	}
}

// NewCore creates a core with numThreads hardware threads, each with its own
// predictor built from bpConfig and its own BTB built from btbConfig.
func NewCore(
	id, numThreads int,
	bpConfig bpred.Config,
	btbConfig btb.Config,
	opts ...Option,
) (*Core, error) {
	if numThreads < 1 {
		return nil, fmt.Errorf("core %d: need at least one thread, got %d", id, numThreads)
	}

	c := &Core{
		ID:      id,
		latency: latency.NewTable(),
		window:  DefaultWindow,
		logger:  logrus.StandardLogger(),
	}
	for _, opt := range opts {
		opt(c)
	}

	for t := 0; t < numThreads; t++ {
		p, err := bpred.New(bpConfig)
		if err != nil {
			return nil, errors.Wrapf(err, "core %d thread %d", id, t)
		}

		logger := c.logger.WithFields(logrus.Fields{"core": id, "thread": t})
		if p != nil {
			p.AcceptHook(bpred.NewLogHook(logger))
		}
		logger.WithField("predictor", bpConfig.Type).Debug("created branch predictor")

		c.threads = append(c.threads, &thread{
			predictor: p,
			btb:       btb.New(btbConfig),
		})
	}

	return c, nil
}

// NumThreads returns the number of hardware threads.
func (c *Core) NumThreads() int {
	return len(c.threads)
}

// Predictor returns the predictor of a thread, or nil if the core was built
// without one. It panics if t is out of range.
func (c *Core) Predictor(t int) bpred.Predictor {
	return c.threads[t].predictor
}

// BTB returns the branch target buffer of a thread. It panics if t is out of
// range.
func (c *Core) BTB(t int) *btb.BTB {
	return c.threads[t].btb
}

func (c *Core) thread(t int) (*thread, error) {
	if t < 0 || t >= len(c.threads) {
		return nil, fmt.Errorf("core %d: thread %d out of range [0, %d)", c.ID, t, len(c.threads))
	}
	return c.threads[t], nil
}

// HandleBranch predicts, resolves and times one branch on its thread. It
// returns the cycles charged.
func (c *Core) HandleBranch(b trace.Branch) (uint64, error) {
	th, err := c.thread(b.Thread)
	if err != nil {
		return 0, err
	}

	mispredicted := false
	if th.predictor != nil {
		predicted := th.predictor.Predict(b.Indirect, b.Address, b.Target)
		th.predictor.Update(predicted, b.Taken, b.Indirect, b.Address, b.Target)
		mispredicted = predicted != b.Taken
	}

	targetMiss := false
	if b.Taken {
		if target, hit := th.btb.Lookup(b.Address); !hit || target != b.Target {
			targetMiss = !mispredicted
		}
		th.btb.Update(b.Address, b.Target)
	}

	cycles := c.latency.BranchCycles(mispredicted, targetMiss)

	th.stats.Branches++
	th.stats.Cycles += cycles
	th.stats.PenaltyCycles += cycles - c.latency.BranchCycles(false, false)
	if mispredicted {
		th.stats.Mispredictions++
	}
	if targetMiss {
		th.stats.TargetMisses++
	}

	c.recordWindow(th, mispredicted)

	return cycles, nil
}

// WarmBranch trains the predictor and BTB of a thread with one branch
// without charging any cycles or touching timing statistics.
func (c *Core) WarmBranch(b trace.Branch) error {
	th, err := c.thread(b.Thread)
	if err != nil {
		return err
	}

	if th.predictor != nil {
		predicted := th.predictor.Predict(b.Indirect, b.Address, b.Target)
		th.predictor.Update(predicted, b.Taken, b.Indirect, b.Address, b.Target)
	}
	if b.Taken {
		th.btb.Update(b.Address, b.Target)
	}

	th.stats.WarmupBranches++

	return nil
}

func (c *Core) recordWindow(th *thread, mispredicted bool) {
	th.windowBranches++
	if mispredicted {
		th.windowMisses++
	}

	if th.windowBranches < c.window {
		return
	}

	th.windowRates = append(th.windowRates,
		float64(th.windowMisses)/float64(th.windowBranches)*100)
	th.windowBranches = 0
	th.windowMisses = 0
}

// EndWarmup clears the prediction counters of every thread so that only
// timed branches are counted. Predictor and BTB contents are kept.
func (c *Core) EndWarmup() {
	for _, th := range c.threads {
		if th.predictor != nil {
			th.predictor.ResetCounters()
		}
		th.btb.ResetStats()
	}
}

// Stats returns the statistics of a thread. It panics if t is out of range.
func (c *Core) Stats(t int) Stats {
	return c.threads[t].stats
}

// TotalCycles returns the branch cycles summed over all threads.
func (c *Core) TotalCycles() uint64 {
	var total uint64
	for _, th := range c.threads {
		total += th.stats.Cycles
	}
	return total
}

// ElapsedTime returns the branch cycles of the busiest thread as simulated
// time.
func (c *Core) ElapsedTime() sim.VTimeInSec {
	var longest uint64
	for _, th := range c.threads {
		if th.stats.Cycles > longest {
			longest = th.stats.Cycles
		}
	}
	return c.latency.CyclesToTime(longest)
}

// MispredictSummary summarizes the misprediction rates of the completed
// windows of a thread.
func (c *Core) MispredictSummary(t int) (Summary, error) {
	th, err := c.thread(t)
	if err != nil {
		return Summary{}, err
	}

	rates := th.windowRates
	if len(rates) == 0 {
		return Summary{}, nil
	}

	mean, err := stats.Mean(rates)
	if err != nil {
		return Summary{}, errors.Wrap(err, "mean")
	}
	stdDev, err := stats.StandardDeviation(rates)
	if err != nil {
		return Summary{}, errors.Wrap(err, "standard deviation")
	}
	p90, err := stats.Percentile(rates, 90)
	if err != nil {
		return Summary{}, errors.Wrap(err, "percentile")
	}

	return Summary{
		Windows: len(rates),
		Mean:    mean,
		StdDev:  stdDev,
		P90:     p90,
	}, nil
}

// Reset clears statistics, predictor counters and BTB contents of every
// thread. Predictor tables keep their training.
func (c *Core) Reset() {
	for _, th := range c.threads {
		if th.predictor != nil {
			th.predictor.ResetCounters()
		}
		th.btb.Reset()
		th.stats = Stats{}
		th.windowBranches = 0
		th.windowMisses = 0
		th.windowRates = nil
	}
}
