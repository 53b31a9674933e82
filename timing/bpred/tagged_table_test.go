package bpred_test

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/sarchlab/bpsim/timing/bpred"
)

var _ = Describe("TaggedTable", func() {
	var table *bpred.TaggedTable

	BeforeEach(func() {
		table = bpred.NewTaggedTable(16, 9)
	})

	It("should start with zero tags, weak-taken counters and no usefulness", func() {
		Expect(table.Len()).To(Equal(16))
		e := table.Entry(3)
		Expect(e.Tag).To(BeZero())
		Expect(e.Prediction.Value()).To(Equal(int8(0)))
		Expect(e.Prediction.Width()).To(Equal(uint8(3)))
		Expect(e.Useful.Value()).To(Equal(int8(0)))
		Expect(e.Useful.Width()).To(Equal(uint8(2)))
	})

	It("should report a tag hit only on an exact match", func() {
		taken, hit := table.Predict(2, 0)
		Expect(taken).To(BeTrue())
		Expect(hit).To(BeTrue())

		_, hit = table.Predict(2, 0x1F)
		Expect(hit).To(BeFalse())
	})

	Describe("Update", func() {
		It("should leave usefulness untouched when final and alt agree", func() {
			before := table.Entry(4)
			table.Update(4, true, true, false)
			table.Update(4, false, false, false)
			Expect(table.Entry(4)).To(Equal(before))
		})

		It("should increment usefulness when the final prediction was right", func() {
			table.Update(4, true, false, true)
			Expect(table.Entry(4).Useful.Value()).To(Equal(int8(1)))
		})

		It("should decrement usefulness when the final prediction was wrong", func() {
			table.Update(4, true, false, false)
			Expect(table.Entry(4).Useful.Value()).To(Equal(int8(-1)))
		})
	})

	Describe("Allocate", func() {
		It("should overwrite an entry with zero usefulness", func() {
			Expect(table.Allocate(5, 0x1AB)).To(BeTrue())
			e := table.Entry(5)
			Expect(e.Tag).To(Equal(uint32(0x1AB)))
			Expect(e.Prediction.Value()).To(Equal(int8(0)))
			Expect(e.Useful.IsZero()).To(BeTrue())

			_, hit := table.Predict(5, 0x1AB)
			Expect(hit).To(BeTrue())
		})

		It("should never overwrite an entry with non-zero usefulness", func() {
			table.Update(5, true, false, true)
			before := table.Entry(5)

			Expect(table.Allocate(5, 0x1AB)).To(BeFalse())
			Expect(table.Entry(5)).To(Equal(before))

			table.DecrementUseful(5)
			table.DecrementUseful(5)
			Expect(table.Entry(5).Useful.Value()).To(Equal(int8(-1)))
			Expect(table.Allocate(5, 0x1AB)).To(BeFalse())
		})

		It("should truncate the tag to the table's tag width", func() {
			table.Allocate(1, 0xFFFF)
			Expect(table.Entry(1).Tag).To(Equal(uint32(0x1FF)))
		})
	})

	Describe("usefulness aging", func() {
		It("should clear the high bit table-wide", func() {
			table.DecrementUseful(0)
			table.DecrementUseful(0)
			table.DecrementUseful(1)
			table.ResetUsefulnessMSB()
			Expect(table.Entry(0).Useful.Value()).To(Equal(int8(0)))
			Expect(table.Entry(1).Useful.Value()).To(Equal(int8(1)))
		})

		It("should clear the low bit table-wide", func() {
			table.Update(0, true, false, true)
			table.DecrementUseful(1)
			table.ResetUsefulnessLSB()
			Expect(table.Entry(0).Useful.Value()).To(Equal(int8(0)))
			Expect(table.Entry(1).Useful.Value()).To(Equal(int8(-2)))
		})
	})
})
