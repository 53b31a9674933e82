package btb_test

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/sarchlab/bpsim/timing/btb"
)

var _ = Describe("BTB", func() {
	var b *btb.BTB

	BeforeEach(func() {
		b = btb.New(btb.Config{
			Sets:                 4,
			Associativity:        2,
			InstructionAlignment: 4,
		})
	})

	It("should fill in defaults for zero fields", func() {
		Expect(btb.New(btb.Config{}).Config()).To(Equal(btb.DefaultConfig()))
	})

	It("should miss on a cold buffer", func() {
		_, hit := b.Lookup(0x1000)
		Expect(hit).To(BeFalse())
		Expect(b.Stats().Misses).To(Equal(uint64(1)))
	})

	It("should return the most recent target", func() {
		b.Update(0x1000, 0x2000)
		target, hit := b.Lookup(0x1000)
		Expect(hit).To(BeTrue())
		Expect(target).To(Equal(uint64(0x2000)))

		b.Update(0x1000, 0x3000)
		target, _ = b.Lookup(0x1000)
		Expect(target).To(Equal(uint64(0x3000)))
		Expect(b.Stats().Inserts).To(Equal(uint64(1)))
	})

	It("should distinguish branches in the same set", func() {
		// 4 sets of 4-byte granules: 0x1000 and 0x1010 share set 0.
		b.Update(0x1000, 0xA)
		b.Update(0x1010, 0xB)

		target, hit := b.Lookup(0x1000)
		Expect(hit).To(BeTrue())
		Expect(target).To(Equal(uint64(0xA)))
		target, hit = b.Lookup(0x1010)
		Expect(hit).To(BeTrue())
		Expect(target).To(Equal(uint64(0xB)))
	})

	It("should evict the least recently used way", func() {
		b.Update(0x1000, 0xA)
		b.Update(0x1010, 0xB)
		b.Lookup(0x1000)
		b.Update(0x1020, 0xC)

		_, hit := b.Lookup(0x1010)
		Expect(hit).To(BeFalse())
		_, hit = b.Lookup(0x1000)
		Expect(hit).To(BeTrue())
		Expect(b.Stats().Evictions).To(Equal(uint64(1)))
	})

	It("should compute the hit rate", func() {
		b.Update(0x1000, 0xA)
		b.Lookup(0x1000)
		b.Lookup(0x1004)
		Expect(b.Stats().HitRate()).To(BeNumerically("~", 50.0, 0.01))
		Expect(btb.Statistics{}.HitRate()).To(BeZero())
	})

	It("should forget everything on Reset", func() {
		b.Update(0x1000, 0xA)
		b.Reset()
		_, hit := b.Lookup(0x1000)
		Expect(hit).To(BeFalse())
		Expect(b.Stats().Lookups).To(Equal(uint64(1)))
	})
})
