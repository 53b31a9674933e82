package trace

import (
	"sort"

	"github.com/pkg/errors"
	"github.com/zeebo/pcg"
)

// BaseAddress is the address of the first static branch in synthetic
// workloads.
const BaseAddress = 0x400000

// AlwaysTaken returns n executions of one always-taken branch.
func AlwaysTaken(n int) []Branch {
	branches := make([]Branch, n)
	for i := range branches {
		branches[i] = Branch{Address: BaseAddress, Target: BaseAddress - 0x40, Taken: true}
	}
	return branches
}

// Alternating returns n executions of one branch alternating between taken
// and not-taken, starting with taken.
func Alternating(n int) []Branch {
	branches := make([]Branch, n)
	for i := range branches {
		branches[i] = Branch{Address: BaseAddress, Target: BaseAddress + 0x40, Taken: i%2 == 0}
	}
	return branches
}

// Loop returns n executions of a loop back-edge that is taken trip-1 times
// and then falls through once.
func Loop(trip, n int) []Branch {
	if trip < 1 {
		trip = 1
	}

	branches := make([]Branch, n)
	for i := range branches {
		branches[i] = Branch{
			Address: BaseAddress,
			Target:  BaseAddress - 0x80,
			Taken:   (i+1)%trip != 0,
		}
	}
	return branches
}

// RandomBiased returns n executions drawn uniformly from statics distinct
// branches. A fraction bias of the static branches is always taken; the rest
// are taken with a per-branch probability drawn uniformly from [0, 1). The
// same seed yields the same trace.
func RandomBiased(seed uint64, statics int, bias float64, n int) []Branch {
	if statics < 1 {
		statics = 1
	}

	rng := pcg.New(seed)

	fixed := int(bias * float64(statics))
	probs := make([]uint32, statics)
	for i := range probs {
		if i < fixed {
			probs[i] = 1 << 16
		} else {
			probs[i] = rng.Uint32n(1 << 16)
		}
	}

	branches := make([]Branch, n)
	for i := range branches {
		s := rng.Uint32n(uint32(statics))
		address := BaseAddress + uint64(s)*4
		branches[i] = Branch{
			Address: address,
			Target:  address + 0x100,
			Taken:   rng.Uint32n(1<<16) < probs[s],
		}
	}

	return branches
}

// ForThreads interleaves one copy of branches per thread, round-robin, with
// Thread set accordingly.
func ForThreads(branches []Branch, threads int) []Branch {
	if threads <= 1 {
		return branches
	}

	out := make([]Branch, 0, len(branches)*threads)
	for _, b := range branches {
		for t := 0; t < threads; t++ {
			b.Thread = t
			out = append(out, b)
		}
	}

	return out
}

// ErrUnknownWorkload is returned by Workload for an unknown name.
var ErrUnknownWorkload = errors.New("unknown workload")

var workloads = map[string]func(seed uint64, n int) []Branch{
	"always-taken": func(_ uint64, n int) []Branch { return AlwaysTaken(n) },
	"alternating":  func(_ uint64, n int) []Branch { return Alternating(n) },
	"loop":         func(_ uint64, n int) []Branch { return Loop(8, n) },
	"random":       func(seed uint64, n int) []Branch { return RandomBiased(seed, 256, 0.5, n) },
}

// Workload returns the named synthetic workload.
func Workload(name string, seed uint64, n int) ([]Branch, error) {
	gen, ok := workloads[name]
	if !ok {
		return nil, errors.Wrapf(ErrUnknownWorkload, "%q", name)
	}
	return gen(seed, n), nil
}

// Workloads lists the synthetic workload names.
func Workloads() []string {
	names := make([]string, 0, len(workloads))
	for name := range workloads {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
