package bpred

import (
	"github.com/pkg/errors"
	"github.com/sarchlab/akita/v4/sim"
	"github.com/sirupsen/logrus"
)

// ErrUnknownPredictor is returned for a Config whose Type is not a known
// predictor variant.
var ErrUnknownPredictor = errors.New("unknown branch predictor type")

// New builds the predictor selected by config. For TypeNone it returns a nil
// Predictor and a nil error.
func New(config Config) (Predictor, error) {
	if err := config.Validate(); err != nil {
		return nil, errors.Wrap(err, "invalid branch predictor config")
	}

	switch config.Type {
	case TypeNone:
		return nil, nil
	case TypeOneBit:
		return NewBimodalPredictor(config.Entries<<2, 1), nil
	case TypeBimodal:
		return NewBimodalPredictor(config.Entries<<2, 2), nil
	case TypeTage:
		return newTagePredictor(config), nil
	}

	return nil, errors.Wrapf(ErrUnknownPredictor, "%q", config.Type)
}

// LogHook logs every misprediction at debug level.
type LogHook struct {
	Logger logrus.FieldLogger
}

// NewLogHook creates a LogHook writing to logger.
func NewLogHook(logger logrus.FieldLogger) *LogHook {
	return &LogHook{Logger: logger}
}

// Func implements sim.Hook.
func (h *LogHook) Func(ctx sim.HookCtx) {
	if ctx.Pos != HookPosMispredict {
		return
	}

	o, ok := ctx.Item.(Outcome)
	if !ok {
		return
	}

	h.Logger.WithFields(logrus.Fields{
		"address":  o.Address,
		"target":   o.Target,
		"indirect": o.Indirect,
		"actual":   o.Actual,
	}).Debug("branch mispredicted")
}
