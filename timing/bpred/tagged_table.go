package bpred

const (
	predictionCounterWidth = 3
	usefulCounterWidth     = 2
)

// TaggedEntry is one entry of a tagged component.
type TaggedEntry struct {
	Tag        uint32
	Prediction SaturatingCounter
	Useful     SaturatingCounter
}

// newTaggedEntry returns an entry with the given tag, a weakly-taken
// prediction counter and zero usefulness.
func newTaggedEntry(tag uint32) TaggedEntry {
	return TaggedEntry{
		Tag:        tag,
		Prediction: NewSaturatingCounter(predictionCounterWidth, 0),
		Useful:     NewSaturatingCounter(usefulCounterWidth, 0),
	}
}

// TaggedTable is a fixed-size table of tagged entries. Indices must be
// below the table size; the caller is responsible for hashing into range.
type TaggedTable struct {
	entries []TaggedEntry
	tagMask uint32
}

// NewTaggedTable creates a table of the given size whose tags are tagWidth
// bits wide.
func NewTaggedTable(entries uint32, tagWidth uint8) *TaggedTable {
	t := &TaggedTable{
		entries: make([]TaggedEntry, entries),
		tagMask: widthMask(tagWidth),
	}

	for i := range t.entries {
		t.entries[i] = newTaggedEntry(0)
	}

	return t
}

// Len returns the number of entries.
func (t *TaggedTable) Len() int {
	return len(t.entries)
}

// Entry returns a copy of the entry at index.
func (t *TaggedTable) Entry(index uint32) TaggedEntry {
	return t.entries[index]
}

// Predict returns the stored direction at index and whether the stored tag
// matches the computed one.
func (t *TaggedTable) Predict(index, tag uint32) (taken, hit bool) {
	e := &t.entries[index]
	return e.Prediction.Predict(), e.Tag == tag&t.tagMask
}

// Update adjusts the usefulness of the entry at index. Usefulness only
// changes when the final and alternate predictions disagree: it goes up when
// the final prediction was right and down otherwise.
func (t *TaggedTable) Update(index uint32, final, alt, actual bool) {
	if final == alt {
		return
	}

	t.entries[index].Useful.Update(final == actual)
}

// Allocate overwrites the entry at index with a fresh entry carrying tag.
// An entry with non-zero usefulness is never overwritten; Allocate reports
// whether the allocation happened.
func (t *TaggedTable) Allocate(index, tag uint32) bool {
	if !t.entries[index].Useful.IsZero() {
		return false
	}

	t.entries[index] = newTaggedEntry(tag & t.tagMask)

	return true
}

// DecrementUseful lowers the usefulness of the entry at index by one.
func (t *TaggedTable) DecrementUseful(index uint32) {
	t.entries[index].Useful.Decrement()
}

// ResetUsefulnessMSB clears the high usefulness bit of every entry.
func (t *TaggedTable) ResetUsefulnessMSB() {
	for i := range t.entries {
		t.entries[i].Useful.ClearHighBit()
	}
}

// ResetUsefulnessLSB clears the low usefulness bit of every entry.
func (t *TaggedTable) ResetUsefulnessLSB() {
	for i := range t.entries {
		t.entries[i].Useful.ClearLowBit()
	}
}

// Reset returns every entry to its initial state.
func (t *TaggedTable) Reset() {
	for i := range t.entries {
		t.entries[i] = newTaggedEntry(0)
	}
}

func (t *TaggedTable) snapshot() []TaggedEntry {
	out := make([]TaggedEntry, len(t.entries))
	copy(out, t.entries)
	return out
}
