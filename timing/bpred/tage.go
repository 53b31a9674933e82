package bpred

import (
	"math/bits"
)

const (
	// agingPeriod is the number of branches between clears of the
	// usefulness MSB of the provider table.
	agingPeriod = 512 * 1024
	// agingLSBOffset is the point within each period at which the
	// usefulness LSB is cleared instead.
	agingLSBOffset = 256 * 1024
)

const noProvider = -1

// TagePredictor is a TAGE predictor: an untagged bimodal base predictor plus
// a series of tagged components indexed with geometrically growing lengths
// of global history.
//
// The longest-history component whose tag matches provides the prediction.
// On a misprediction by a shorter-history provider, an entry is allocated in
// a longer-history component whose usefulness is zero.
type TagePredictor struct {
	predictorBase

	indexWidth uint8
	tagWidth   uint8
	tagMask    uint32

	historyLengths []int
	indexPrefix    []int
	tagAPrefix     []int
	tagBPrefix     []int

	base       *BimodalTable
	components []*TaggedTable
	history    *FoldingHistory

	branchCount uint64

	// Per-branch scratch state, overwritten by every Predict.
	indices         []uint32
	tags            []uint32
	predictions     []bool
	hits            []bool
	mainProvider    int
	altProvider     int
	mainIndex       uint32
	finalPrediction bool
	altPrediction   bool
}

// NewTagePredictor creates a TAGE predictor from config. config.Type is not
// consulted.
func NewTagePredictor(config Config) (*TagePredictor, error) {
	config.Type = TypeTage
	if err := config.Validate(); err != nil {
		return nil, err
	}

	return newTagePredictor(config), nil
}

// newTagePredictor builds a predictor from an already validated config.
func newTagePredictor(config Config) *TagePredictor {
	lengths := config.HistoryLengths()
	n := len(lengths)
	indexWidth := uint8(bits.TrailingZeros32(config.Entries))

	p := &TagePredictor{
		predictorBase:  newPredictorBase(),
		indexWidth:     indexWidth,
		tagWidth:       config.TagWidth,
		tagMask:        widthMask(config.TagWidth),
		historyLengths: lengths,
		indexPrefix:    make([]int, n),
		tagAPrefix:     make([]int, n),
		tagBPrefix:     make([]int, n),
		base:           NewBimodalTable(config.Entries<<2, 2),
		components:     make([]*TaggedTable, n),
		history:        NewFoldingHistory(lengths[n-1], indexWidth, config.TagWidth),
		indices:        make([]uint32, n),
		tags:           make([]uint32, n),
		predictions:    make([]bool, n),
		hits:           make([]bool, n),
		mainProvider:   noProvider,
		altProvider:    noProvider,
	}

	for k, l := range lengths {
		p.components[k] = NewTaggedTable(config.Entries, config.TagWidth)
		p.indexPrefix[k] = chunksFor(l, indexWidth)
		p.tagAPrefix[k] = chunksFor(l, config.TagWidth)
		p.tagBPrefix[k] = chunksFor(l, config.TagWidth-1)
	}

	return p
}

// NumComponents returns the number of tagged components.
func (p *TagePredictor) NumComponents() int {
	return len(p.components)
}

// HistoryLengths returns the history length of each tagged component.
func (p *TagePredictor) HistoryLengths() []int {
	out := make([]int, len(p.historyLengths))
	copy(out, p.historyLengths)
	return out
}

// Component returns the tagged table of component k, 0 being the shortest
// history.
func (p *TagePredictor) Component(k int) *TaggedTable {
	return p.components[k]
}

// Base returns the base bimodal table.
func (p *TagePredictor) Base() *BimodalTable {
	return p.base
}

// History returns the folding history.
func (p *TagePredictor) History() *FoldingHistory {
	return p.history
}

// Provider returns the main and alternate provider chosen by the last
// Predict. -1 means no provider.
func (p *TagePredictor) Provider() (main, alt int) {
	return p.mainProvider, p.altProvider
}

// AltPrediction returns the alternate prediction of the last Predict.
func (p *TagePredictor) AltPrediction() bool {
	return p.altPrediction
}

func (p *TagePredictor) computeTag(k int, address uint64) uint32 {
	a := p.history.FoldTagA(p.tagAPrefix[k])
	b := p.history.FoldTagB(p.tagBPrefix[k]) << 1

	return (uint32(address) ^ a ^ b) & p.tagMask
}

// Predict returns the predicted direction of the branch at address.
func (p *TagePredictor) Predict(indirect bool, address, target uint64) bool {
	p.branchCount++

	basePrediction := p.base.Predict(address)

	for k, table := range p.components {
		p.indices[k] = p.history.FoldIndex(p.indexPrefix[k], address)
		p.tags[k] = p.computeTag(k, address)
		p.predictions[k], p.hits[k] = table.Predict(p.indices[k], p.tags[k])
	}

	p.selectProviders()

	if p.mainProvider == noProvider {
		p.mainIndex = 0
		p.finalPrediction = basePrediction
		p.altPrediction = basePrediction
		return basePrediction
	}

	p.mainIndex = p.indices[p.mainProvider]
	p.finalPrediction = p.predictions[p.mainProvider]
	if p.altProvider != noProvider {
		p.altPrediction = p.predictions[p.altProvider]
	} else {
		p.altPrediction = basePrediction
	}

	return p.finalPrediction
}

// selectProviders scans from the longest history down. The first hit is the
// main provider and the next hit is the alternate provider.
func (p *TagePredictor) selectProviders() {
	p.mainProvider = noProvider
	p.altProvider = noProvider

	for k := len(p.hits) - 1; k >= 0; k-- {
		if !p.hits[k] {
			continue
		}

		if p.mainProvider == noProvider {
			p.mainProvider = k
			continue
		}

		p.altProvider = k
		return
	}
}

// Update trains the predictor with the resolved outcome of the branch passed
// to the preceding Predict.
func (p *TagePredictor) Update(predicted, actual, indirect bool, address, target uint64) {
	p.updateCounters(p, Outcome{
		Address:   address,
		Target:    target,
		Indirect:  indirect,
		Predicted: predicted,
		Actual:    actual,
	})

	p.history.ShiftIn(actual)
	p.base.Update(address, actual)

	if p.mainProvider == noProvider {
		return
	}

	provider := p.components[p.mainProvider]
	provider.Update(p.mainIndex, p.finalPrediction, p.altPrediction, actual)

	switch p.branchCount % agingPeriod {
	case 0:
		provider.ResetUsefulnessMSB()
	case agingLSBOffset:
		provider.ResetUsefulnessLSB()
	}

	if predicted != actual && p.mainProvider < len(p.components)-1 {
		p.allocate()
	}
}

// allocate claims the first longer-history entry with zero usefulness. If
// there is none, every longer-history entry loses one usefulness step.
func (p *TagePredictor) allocate() {
	for k := p.mainProvider + 1; k < len(p.components); k++ {
		if p.components[k].Allocate(p.mainIndex, p.tags[k]) {
			return
		}
	}

	for k := p.mainProvider + 1; k < len(p.components); k++ {
		p.components[k].DecrementUseful(p.mainIndex)
	}
}

// TageState is a deep copy of a TagePredictor's tables and history.
type TageState struct {
	Base    []int8
	Tables  [][]TaggedEntry
	History []uint64
}

// Snapshot returns a deep copy of the predictor's internal tables.
func (p *TagePredictor) Snapshot() TageState {
	s := TageState{
		Base:    p.base.values(),
		Tables:  make([][]TaggedEntry, len(p.components)),
		History: p.history.Words(),
	}

	for k, table := range p.components {
		s.Tables[k] = table.snapshot()
	}

	return s
}

// Reset returns all tables and the history to their initial state. The
// correct/incorrect counters are left untouched.
func (p *TagePredictor) Reset() {
	p.base.Reset()
	for _, table := range p.components {
		table.Reset()
	}
	p.history.Reset()
	p.branchCount = 0
	p.mainProvider = noProvider
	p.altProvider = noProvider
}
