package latency_test

import (
	"os"
	"path/filepath"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/sarchlab/bpsim/timing/latency"
)

var _ = Describe("Latency", func() {
	var table *latency.Table

	BeforeEach(func() {
		table = latency.NewTable()
	})

	Describe("Default Timing Values", func() {
		It("should have correct branch latency", func() {
			Expect(table.Config().BranchLatency).To(Equal(uint64(1)))
		})

		It("should have correct branch misprediction penalty", func() {
			Expect(table.Config().BranchMispredictPenalty).To(Equal(uint64(12)))
			Expect(table.MispredictPenalty()).To(Equal(uint64(12)))
		})
	})

	Describe("Branch Costs", func() {
		It("should charge the base latency for a correct prediction", func() {
			Expect(table.BranchCycles(false, false)).To(Equal(uint64(1)))
		})

		It("should add the mispredict penalty", func() {
			Expect(table.BranchCycles(true, false)).To(Equal(uint64(13)))
		})

		It("should add the BTB miss penalty", func() {
			Expect(table.BranchCycles(false, true)).To(Equal(uint64(3)))
		})

		It("should not stack the BTB miss penalty on a misprediction", func() {
			Expect(table.BranchCycles(true, true)).To(Equal(uint64(13)))
		})
	})

	Describe("Time Conversion", func() {
		It("should convert cycles using the configured frequency", func() {
			config := latency.DefaultTimingConfig()
			config.FrequencyGHz = 2
			table = latency.NewTableWithConfig(config)

			Expect(float64(table.Frequency())).To(BeNumerically("~", 2e9, 1))
			Expect(float64(table.CyclesToTime(4000))).To(BeNumerically("~", 2e-6, 1e-12))
		})
	})

	Describe("Custom Configuration", func() {
		It("should use custom config values", func() {
			config := &latency.TimingConfig{
				BranchLatency:           2,
				BranchMispredictPenalty: 20,
				BTBMissPenalty:          5,
				FrequencyGHz:            1,
			}
			table = latency.NewTableWithConfig(config)

			Expect(table.BranchCycles(false, false)).To(Equal(uint64(2)))
			Expect(table.BranchCycles(true, false)).To(Equal(uint64(22)))
			Expect(table.BranchCycles(false, true)).To(Equal(uint64(7)))
		})
	})
})

var _ = Describe("TimingConfig", func() {
	Describe("Default Config", func() {
		It("should create valid default config", func() {
			Expect(latency.DefaultTimingConfig().Validate()).To(Succeed())
		})
	})

	Describe("Validation", func() {
		It("should reject zero branch latency", func() {
			config := latency.DefaultTimingConfig()
			config.BranchLatency = 0
			Expect(config.Validate()).To(MatchError(ContainSubstring("branch_latency")))
		})

		It("should reject a non-positive frequency", func() {
			config := latency.DefaultTimingConfig()
			config.FrequencyGHz = 0
			Expect(config.Validate()).To(MatchError(ContainSubstring("frequency_ghz")))
		})

		It("should allow a zero mispredict penalty", func() {
			config := latency.DefaultTimingConfig()
			config.BranchMispredictPenalty = 0
			Expect(config.Validate()).To(Succeed())
		})
	})

	Describe("Clone", func() {
		It("should create independent copy", func() {
			original := latency.DefaultTimingConfig()
			clone := original.Clone()
			clone.BranchMispredictPenalty = 99

			Expect(original.BranchMispredictPenalty).To(Equal(uint64(12)))
			Expect(clone.BTBMissPenalty).To(Equal(original.BTBMissPenalty))
		})
	})

	Describe("File Operations", func() {
		var tempDir string

		BeforeEach(func() {
			var err error
			tempDir, err = os.MkdirTemp("", "latency-test")
			Expect(err).NotTo(HaveOccurred())
		})

		AfterEach(func() {
			_ = os.RemoveAll(tempDir)
		})

		It("should save and load config", func() {
			config := latency.DefaultTimingConfig()
			config.BranchMispredictPenalty = 15
			path := filepath.Join(tempDir, "timing.json")

			Expect(config.SaveConfig(path)).To(Succeed())

			loaded, err := latency.LoadConfig(path)
			Expect(err).NotTo(HaveOccurred())
			Expect(loaded).To(Equal(config))
		})

		It("should return error for non-existent file", func() {
			_, err := latency.LoadConfig(filepath.Join(tempDir, "nope.json"))
			Expect(err).To(HaveOccurred())
		})

		It("should return error for invalid JSON", func() {
			path := filepath.Join(tempDir, "bad.json")
			Expect(os.WriteFile(path, []byte("{not json"), 0644)).To(Succeed())

			_, err := latency.LoadConfig(path)
			Expect(err).To(HaveOccurred())
		})
	})
})
