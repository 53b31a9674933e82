// Package btb provides a set-associative branch target buffer built on the
// Akita cache directory.
package btb

import (
	akitacache "github.com/sarchlab/akita/v4/mem/cache"
)

// Config holds branch target buffer configuration parameters.
type Config struct {
	// Sets is the number of sets. Default: 256.
	Sets int `json:"sets"`
	// Associativity is the number of ways per set. Default: 4.
	Associativity int `json:"associativity"`
	// InstructionAlignment is the granularity, in bytes, used to spread
	// branch addresses over sets. Default: 4.
	InstructionAlignment int `json:"instruction_alignment"`
}

// DefaultConfig returns the default BTB configuration (1024 entries).
func DefaultConfig() Config {
	return Config{
		Sets:                 256,
		Associativity:        4,
		InstructionAlignment: 4,
	}
}

// Statistics holds BTB lookup statistics.
type Statistics struct {
	Lookups   uint64
	Hits      uint64
	Misses    uint64
	Inserts   uint64
	Evictions uint64
}

// HitRate returns the hit rate as a percentage.
func (s Statistics) HitRate() float64 {
	if s.Lookups == 0 {
		return 0
	}
	return float64(s.Hits) / float64(s.Lookups) * 100
}

// BTB maps branch addresses to their most recent taken target.
type BTB struct {
	config Config

	// Akita directory for tag and LRU management. Block tags hold the
	// full branch address.
	directory *akitacache.DirectoryImpl

	// Targets, indexed by (setID * associativity + wayID)
	targets []uint64

	stats Statistics
}

// New creates a BTB. Zero fields in config take their default values.
func New(config Config) *BTB {
	defaults := DefaultConfig()
	if config.Sets == 0 {
		config.Sets = defaults.Sets
	}
	if config.Associativity == 0 {
		config.Associativity = defaults.Associativity
	}
	if config.InstructionAlignment == 0 {
		config.InstructionAlignment = defaults.InstructionAlignment
	}

	return &BTB{
		config: config,
		directory: akitacache.NewDirectory(
			config.Sets,
			config.Associativity,
			config.InstructionAlignment,
			akitacache.NewLRUVictimFinder(),
		),
		targets: make([]uint64, config.Sets*config.Associativity),
	}
}

// Config returns the BTB configuration.
func (b *BTB) Config() Config {
	return b.config
}

// Stats returns BTB statistics.
func (b *BTB) Stats() Statistics {
	return b.stats
}

// ResetStats clears BTB statistics.
func (b *BTB) ResetStats() {
	b.stats = Statistics{}
}

func (b *BTB) blockIndex(block *akitacache.Block) int {
	return block.SetID*b.config.Associativity + block.WayID
}

// Lookup returns the cached target of the branch at pc.
func (b *BTB) Lookup(pc uint64) (target uint64, hit bool) {
	b.stats.Lookups++

	block := b.directory.Lookup(0, pc)
	if block == nil || !block.IsValid {
		b.stats.Misses++
		return 0, false
	}

	b.stats.Hits++
	b.directory.Visit(block)

	return b.targets[b.blockIndex(block)], true
}

// Update records target as the taken target of the branch at pc, evicting
// the least recently used entry of the set if needed.
func (b *BTB) Update(pc, target uint64) {
	block := b.directory.Lookup(0, pc)
	if block == nil || !block.IsValid {
		block = b.directory.FindVictim(pc)
		if block == nil {
			return
		}
		if block.IsValid {
			b.stats.Evictions++
		}

		block.Tag = pc
		block.IsValid = true
		b.stats.Inserts++
	}

	b.targets[b.blockIndex(block)] = target
	b.directory.Visit(block)
}

// Reset invalidates every entry and clears statistics.
func (b *BTB) Reset() {
	b.directory.Reset()
	b.stats = Statistics{}
}
