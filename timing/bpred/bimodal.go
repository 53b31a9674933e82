package bpred

// BimodalTable is an address-indexed table of saturating counters with no
// history and no tags.
type BimodalTable struct {
	counters []SaturatingCounter
	mask     uint64
}

// NewBimodalTable creates a table of entries counters of the given width.
// entries must be a power of two. Counters start at zero (weakly taken).
func NewBimodalTable(entries uint32, width uint8) *BimodalTable {
	t := &BimodalTable{
		counters: make([]SaturatingCounter, entries),
		mask:     uint64(entries - 1),
	}

	for i := range t.counters {
		t.counters[i] = NewSaturatingCounter(width, 0)
	}

	return t
}

func (t *BimodalTable) index(address uint64) uint64 {
	return address & t.mask
}

// Predict returns the direction favoured by the counter for address.
func (t *BimodalTable) Predict(address uint64) bool {
	return t.counters[t.index(address)].Predict()
}

// Update trains the counter for address.
func (t *BimodalTable) Update(address uint64, actual bool) {
	t.counters[t.index(address)].Update(actual)
}

// Counter returns a copy of the counter that address maps to.
func (t *BimodalTable) Counter(address uint64) SaturatingCounter {
	return t.counters[t.index(address)]
}

// Len returns the number of counters.
func (t *BimodalTable) Len() int {
	return len(t.counters)
}

// Reset sets every counter back to zero.
func (t *BimodalTable) Reset() {
	for i := range t.counters {
		t.counters[i].Reset()
	}
}

func (t *BimodalTable) values() []int8 {
	out := make([]int8, len(t.counters))
	for i, c := range t.counters {
		out[i] = c.Value()
	}
	return out
}

// BimodalPredictor is a standalone predictor built on a single BimodalTable.
// With a counter width of one it models a last-outcome predictor.
type BimodalPredictor struct {
	predictorBase

	table *BimodalTable
}

// NewBimodalPredictor creates a bimodal predictor.
func NewBimodalPredictor(entries uint32, width uint8) *BimodalPredictor {
	return &BimodalPredictor{
		predictorBase: newPredictorBase(),
		table:         NewBimodalTable(entries, width),
	}
}

// Predict returns the indexed counter's direction.
func (p *BimodalPredictor) Predict(indirect bool, address, target uint64) bool {
	return p.table.Predict(address)
}

// Update records the outcome and trains the indexed counter.
func (p *BimodalPredictor) Update(predicted, actual, indirect bool, address, target uint64) {
	p.updateCounters(p, Outcome{
		Address:   address,
		Target:    target,
		Indirect:  indirect,
		Predicted: predicted,
		Actual:    actual,
	})
	p.table.Update(address, actual)
}

// Table exposes the underlying counter table.
func (p *BimodalPredictor) Table() *BimodalTable {
	return p.table
}
