package bpred

func widthMask(width uint8) uint32 {
	return uint32(uint64(1)<<width - 1)
}

// chunksFor returns the number of width-bit chunks needed to cover length
// bits.
func chunksFor(length int, width uint8) int {
	w := int(width)
	return (length + w - 1) / w
}

// chunkSequence models one long shift register split into fixed-width
// words. chunks[0] holds the most recent bits.
type chunkSequence struct {
	chunks []uint32
	width  uint8
	mask   uint32
}

func newChunkSequence(length int, width uint8) chunkSequence {
	return chunkSequence{
		chunks: make([]uint32, chunksFor(length, width)),
		width:  width,
		mask:   widthMask(width),
	}
}

// shiftIn shifts every chunk left by one. The bit leaving chunk i enters
// chunk i+1 and the newest chunk receives bit.
func (s *chunkSequence) shiftIn(bit uint32) {
	for i := range s.chunks {
		carry := s.chunks[i] >> (s.width - 1) & 1
		s.chunks[i] = (s.chunks[i]<<1 | bit) & s.mask
		bit = carry
	}
}

// fold XORs the prefix most recent chunks together.
func (s *chunkSequence) fold(prefix int) uint32 {
	var h uint32
	for _, c := range s.chunks[:prefix] {
		h ^= c
	}
	return h
}

func (s *chunkSequence) reset() {
	clear(s.chunks)
}

// FoldingHistory owns the global history register together with three
// chunked views of it: index chunks, tag chunks A and tag chunks B. All
// storage is allocated up front.
//
// Bit 0 of the register is the most recent outcome.
type FoldingHistory struct {
	words  []uint64
	length int

	index chunkSequence
	tagA  chunkSequence
	tagB  chunkSequence
}

// NewFoldingHistory creates a history of length bits. Index chunks are
// indexWidth bits wide, tag chunks A are tagWidth bits wide and tag chunks B
// are tagWidth-1 bits wide.
func NewFoldingHistory(length int, indexWidth, tagWidth uint8) *FoldingHistory {
	return &FoldingHistory{
		words:  make([]uint64, (length+63)/64),
		length: length,
		index:  newChunkSequence(length, indexWidth),
		tagA:   newChunkSequence(length, tagWidth),
		tagB:   newChunkSequence(length, tagWidth-1),
	}
}

// Len returns the register length in bits.
func (h *FoldingHistory) Len() int {
	return h.length
}

// ShiftIn pushes one outcome into the register and every chunk sequence.
func (h *FoldingHistory) ShiftIn(taken bool) {
	var bit uint32
	if taken {
		bit = 1
	}

	carry := uint64(bit)
	for i := range h.words {
		next := h.words[i] >> 63
		h.words[i] = h.words[i]<<1 | carry
		carry = next
	}
	if rem := h.length % 64; rem != 0 {
		h.words[len(h.words)-1] &= uint64(1)<<rem - 1
	}

	h.index.shiftIn(bit)
	h.tagA.shiftIn(bit)
	h.tagB.shiftIn(bit)
}

// Bit returns the i-th most recent outcome.
func (h *FoldingHistory) Bit(i int) bool {
	return h.words[i/64]>>(i%64)&1 == 1
}

// FoldIndex folds the prefix most recent index chunks with the low bits of
// address.
func (h *FoldingHistory) FoldIndex(prefix int, address uint64) uint32 {
	return (h.index.fold(prefix) ^ uint32(address)) & h.index.mask
}

// FoldTagA folds the prefix most recent tag-A chunks.
func (h *FoldingHistory) FoldTagA(prefix int) uint32 {
	return h.tagA.fold(prefix)
}

// FoldTagB folds the prefix most recent tag-B chunks. The result is one bit
// narrower than a tag.
func (h *FoldingHistory) FoldTagB(prefix int) uint32 {
	return h.tagB.fold(prefix)
}

// Words returns a copy of the register contents.
func (h *FoldingHistory) Words() []uint64 {
	out := make([]uint64, len(h.words))
	copy(out, h.words)
	return out
}

// Reset clears the register and all chunk sequences.
func (h *FoldingHistory) Reset() {
	clear(h.words)
	h.index.reset()
	h.tagA.reset()
	h.tagB.reset()
}
