// Package main provides the entry point for bpsim.
// bpsim replays a branch trace through the per-thread branch predictors of
// one core and reports prediction accuracy and branch cycles.
package main

import (
	"flag"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	"github.com/sarchlab/bpsim/timing/bpred"
	"github.com/sarchlab/bpsim/timing/btb"
	"github.com/sarchlab/bpsim/timing/core"
	"github.com/sarchlab/bpsim/timing/latency"
	"github.com/sarchlab/bpsim/trace"
)

var (
	predictorType    = flag.String("predictor", "", "Predictor type (none, one_bit, bimodal, tage); overrides -config")
	configPath       = flag.String("config", "", "Path to predictor configuration JSON file")
	timingConfigPath = flag.String("timing-config", "", "Path to timing configuration JSON file")
	threads          = flag.Int("threads", 1, "Number of hardware threads")
	warmup           = flag.Int("warmup", 0, "Number of leading branches used only for warmup")
	workload         = flag.String("workload", "", "Synthetic workload ("+strings.Join(trace.Workloads(), ", ")+")")
	numBranches      = flag.Int("n", 100000, "Branches per thread for synthetic workloads")
	seed             = flag.Uint64("seed", 1, "Seed for synthetic workloads")
	verbose          = flag.Bool("v", false, "Verbose output")
)

type options struct {
	PredictorType    string
	ConfigPath       string
	TimingConfigPath string
	TracePath        string
	Workload         string
	Threads          int
	Warmup           int
	NumBranches      int
	Seed             uint64
}

func main() {
	flag.Parse()

	logrus.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	if *verbose {
		logrus.SetLevel(logrus.DebugLevel)
	}

	opts := options{
		PredictorType:    *predictorType,
		ConfigPath:       *configPath,
		TimingConfigPath: *timingConfigPath,
		TracePath:        flag.Arg(0),
		Workload:         *workload,
		Threads:          *threads,
		Warmup:           *warmup,
		NumBranches:      *numBranches,
		Seed:             *seed,
	}

	if opts.TracePath == "" && opts.Workload == "" {
		fmt.Fprintf(os.Stderr, "Usage: bpsim [options] <trace>\n")
		fmt.Fprintf(os.Stderr, "       bpsim [options] -workload <name>\n")
		fmt.Fprintf(os.Stderr, "\nOptions:\n")
		flag.PrintDefaults()
		os.Exit(1)
	}

	if err := run(opts, os.Stdout); err != nil {
		logrus.WithError(err).Error("simulation failed")
		os.Exit(1)
	}
}

func loadPredictorConfig(opts options) (*bpred.Config, error) {
	config := bpred.DefaultConfig()
	if opts.ConfigPath != "" {
		var err error
		config, err = bpred.LoadConfig(opts.ConfigPath)
		if err != nil {
			return nil, err
		}
	}

	if opts.PredictorType != "" {
		config.Type = bpred.Type(opts.PredictorType)
	}

	return config, nil
}

func loadTimingConfig(opts options) (*latency.TimingConfig, error) {
	if opts.TimingConfigPath == "" {
		return latency.DefaultTimingConfig(), nil
	}

	config, err := latency.LoadConfig(opts.TimingConfigPath)
	if err != nil {
		return nil, err
	}
	if err := config.Validate(); err != nil {
		return nil, errors.Wrap(err, "invalid timing config")
	}

	return config, nil
}

// loadBranches reads the trace file or generates the synthetic workload.
// Returns the branches and the number of threads they use.
func loadBranches(opts options) ([]trace.Branch, int, error) {
	if opts.TracePath != "" {
		branches, err := trace.Load(opts.TracePath)
		if err != nil {
			return nil, 0, err
		}

		numThreads := opts.Threads
		for _, b := range branches {
			if b.Thread >= numThreads {
				numThreads = b.Thread + 1
			}
		}

		return branches, numThreads, nil
	}

	branches, err := trace.Workload(opts.Workload, opts.Seed, opts.NumBranches)
	if err != nil {
		return nil, 0, err
	}

	return trace.ForThreads(branches, opts.Threads), opts.Threads, nil
}

func run(opts options, out io.Writer) error {
	if opts.Threads < 1 {
		return errors.Errorf("threads must be >= 1, got %d", opts.Threads)
	}

	bpConfig, err := loadPredictorConfig(opts)
	if err != nil {
		return err
	}
	timingConfig, err := loadTimingConfig(opts)
	if err != nil {
		return err
	}

	branches, numThreads, err := loadBranches(opts)
	if err != nil {
		return err
	}

	c, err := core.NewCore(0, numThreads, *bpConfig, btb.DefaultConfig(),
		core.WithLatencyTable(latency.NewTableWithConfig(timingConfig)),
	)
	if err != nil {
		return err
	}

	logrus.WithFields(logrus.Fields{
		"predictor": bpConfig.Type,
		"threads":   numThreads,
		"branches":  len(branches),
		"warmup":    opts.Warmup,
	}).Info("starting simulation")

	if err := replay(c, branches, opts.Warmup); err != nil {
		return err
	}

	return report(c, bpConfig, out)
}

// replay warms the core with the first warmup branches and times the rest.
func replay(c *core.Core, branches []trace.Branch, warmup int) error {
	warmup = min(max(warmup, 0), len(branches))

	for i, b := range branches[:warmup] {
		if err := c.WarmBranch(b); err != nil {
			return errors.Wrapf(err, "warmup branch %d", i)
		}
	}
	if warmup > 0 {
		c.EndWarmup()
	}

	for i, b := range branches[warmup:] {
		if _, err := c.HandleBranch(b); err != nil {
			return errors.Wrapf(err, "branch %d", warmup+i)
		}
	}

	return nil
}

func report(c *core.Core, bpConfig *bpred.Config, out io.Writer) error {
	fmt.Fprintf(out, "Predictor: %s\n", bpConfig.Type)
	fmt.Fprintf(out, "Total Cycles: %d\n", c.TotalCycles())
	fmt.Fprintf(out, "Elapsed Time: %.3f us\n", float64(c.ElapsedTime())*1e6)

	for t := 0; t < c.NumThreads(); t++ {
		stats := c.Stats(t)
		summary, err := c.MispredictSummary(t)
		if err != nil {
			return errors.Wrapf(err, "thread %d", t)
		}

		fmt.Fprintf(out, "\nThread %d:\n", t)
		fmt.Fprintf(out, "  Branches:        %d (warmup %d)\n", stats.Branches, stats.WarmupBranches)
		fmt.Fprintf(out, "  Mispredictions:  %d (%.2f%%)\n", stats.Mispredictions, stats.MispredictionRate())
		if p := c.Predictor(t); p != nil {
			fmt.Fprintf(out, "  Predictions:     %d (accuracy %.2f%%)\n", p.Stats().Predictions, p.Stats().Accuracy())
		}
		fmt.Fprintf(out, "  Target misses:   %d\n", stats.TargetMisses)
		fmt.Fprintf(out, "  Cycles:          %d (penalty %d)\n", stats.Cycles, stats.PenaltyCycles)
		if summary.Windows > 0 {
			fmt.Fprintf(out, "  Window rates:    mean %.2f%% stddev %.2f p90 %.2f%% over %d windows\n",
				summary.Mean, summary.StdDev, summary.P90, summary.Windows)
		}
	}

	return nil
}
