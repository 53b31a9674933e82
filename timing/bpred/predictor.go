// Package bpred provides the branch direction predictors used by the timing
// model.
//
// Every predictor follows the same call discipline: Predict is called once
// when a conditional branch is encountered and Update is called once when it
// resolves, before the next Predict on the same instance. Predictors are not
// safe for concurrent use; each simulated hardware thread owns its own.
package bpred

import (
	"github.com/sarchlab/akita/v4/sim"
)

// HookPosBranchResolved marks the invocation of hooks after every Update.
var HookPosBranchResolved = &sim.HookPos{Name: "BranchResolved"}

// HookPosMispredict marks the invocation of hooks after an Update whose
// predicted direction differed from the actual direction.
var HookPosMispredict = &sim.HookPos{Name: "BranchMispredict"}

// Predictor is a conditional branch direction predictor.
type Predictor interface {
	sim.Hookable

	// Predict returns the predicted direction for the branch at address.
	Predict(indirect bool, address, target uint64) bool

	// Update trains the predictor with the resolved outcome of the branch
	// most recently passed to Predict.
	Update(predicted, actual, indirect bool, address, target uint64)

	NumCorrectPredictions() uint64
	NumIncorrectPredictions() uint64
	ResetCounters()
	Stats() Stats
}

// Outcome describes one resolved branch. It is the Item of every hook
// invoked by a predictor.
type Outcome struct {
	Address   uint64
	Target    uint64
	Indirect  bool
	Predicted bool
	Actual    bool
}

// Mispredicted reports whether the predicted direction was wrong.
func (o Outcome) Mispredicted() bool {
	return o.Predicted != o.Actual
}

// Stats holds prediction statistics.
type Stats struct {
	// Predictions is the number of resolved predictions.
	Predictions uint64
	// Correct is the number of correct predictions.
	Correct uint64
	// Mispredictions is the number of incorrect predictions.
	Mispredictions uint64
}

// Accuracy returns the prediction accuracy as a percentage.
func (s Stats) Accuracy() float64 {
	if s.Predictions == 0 {
		return 0
	}
	return float64(s.Correct) / float64(s.Predictions) * 100
}

// MispredictionRate returns the misprediction rate as a percentage.
func (s Stats) MispredictionRate() float64 {
	if s.Predictions == 0 {
		return 0
	}
	return float64(s.Mispredictions) / float64(s.Predictions) * 100
}

// predictorBase carries the correct/incorrect counters and hook support
// shared by all predictor variants.
type predictorBase struct {
	*sim.HookableBase

	correct   uint64
	incorrect uint64
}

func newPredictorBase() predictorBase {
	return predictorBase{HookableBase: sim.NewHookableBase()}
}

// NumCorrectPredictions returns the number of correct predictions since the
// last ResetCounters.
func (b *predictorBase) NumCorrectPredictions() uint64 {
	return b.correct
}

// NumIncorrectPredictions returns the number of incorrect predictions since
// the last ResetCounters.
func (b *predictorBase) NumIncorrectPredictions() uint64 {
	return b.incorrect
}

// ResetCounters clears the correct/incorrect counters. Predictor tables are
// left untouched.
func (b *predictorBase) ResetCounters() {
	b.correct = 0
	b.incorrect = 0
}

// Stats returns the counters as a Stats value.
func (b *predictorBase) Stats() Stats {
	return Stats{
		Predictions:    b.correct + b.incorrect,
		Correct:        b.correct,
		Mispredictions: b.incorrect,
	}
}

func (b *predictorBase) updateCounters(domain sim.Hookable, o Outcome) {
	if o.Mispredicted() {
		b.incorrect++
	} else {
		b.correct++
	}

	if b.NumHooks() == 0 {
		return
	}

	b.InvokeHook(sim.HookCtx{Domain: domain, Pos: HookPosBranchResolved, Item: o})
	if o.Mispredicted() {
		b.InvokeHook(sim.HookCtx{Domain: domain, Pos: HookPosMispredict, Item: o})
	}
}
