package trace_test

import (
	"bytes"
	"io"
	"os"
	"path/filepath"
	"strings"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/sarchlab/bpsim/trace"
)

var _ = Describe("Reader", func() {
	It("should parse branches and skip comments", func() {
		r := trace.NewReader(strings.NewReader(`
# thread address target dir
0 0x400000 0x400040 T
1 4194308 0x10 N I
`))

		b, err := r.Next()
		Expect(err).NotTo(HaveOccurred())
		Expect(b).To(Equal(trace.Branch{Thread: 0, Address: 0x400000, Target: 0x400040, Taken: true}))

		b, err = r.Next()
		Expect(err).NotTo(HaveOccurred())
		Expect(b).To(Equal(trace.Branch{Thread: 1, Address: 0x400004, Target: 0x10, Indirect: true}))

		_, err = r.Next()
		Expect(err).To(Equal(io.EOF))
	})

	DescribeTable("should reject malformed lines",
		func(line, reason string) {
			_, err := trace.NewReader(strings.NewReader("0 0x1 0x2 T\n" + line)).ReadAll()
			Expect(err).To(HaveOccurred())
			Expect(err.Error()).To(ContainSubstring("line 2"))
			Expect(err.Error()).To(ContainSubstring(reason))
		},
		Entry("too few fields", "0 0x1 T", "fields"),
		Entry("bad thread", "x 0x1 0x2 T", "thread"),
		Entry("negative thread", "-1 0x1 0x2 T", "thread"),
		Entry("bad address", "0 zz 0x2 T", "address"),
		Entry("bad target", "0 0x1 0x2g T", "target"),
		Entry("bad direction", "0 0x1 0x2 X", "direction"),
		Entry("bad flag", "0 0x1 0x2 T Q", "flag"),
	)
})

var _ = Describe("Writer", func() {
	It("should write branches the reader accepts", func() {
		branches := []trace.Branch{
			{Thread: 0, Address: 0x1000, Target: 0x2000, Taken: true},
			{Thread: 3, Address: 0x1004, Target: 0x900, Indirect: true},
		}

		var buf bytes.Buffer
		w := trace.NewWriter(&buf)
		for _, b := range branches {
			Expect(w.Write(b)).To(Succeed())
		}
		Expect(w.Flush()).To(Succeed())

		Expect(buf.String()).To(Equal("0 0x1000 0x2000 T\n3 0x1004 0x900 N I\n"))

		read, err := trace.NewReader(&buf).ReadAll()
		Expect(err).NotTo(HaveOccurred())
		Expect(read).To(Equal(branches))
	})
})

var _ = Describe("Load", func() {
	var tempDir string

	BeforeEach(func() {
		var err error
		tempDir, err = os.MkdirTemp("", "trace-test")
		Expect(err).NotTo(HaveOccurred())
	})

	AfterEach(func() {
		_ = os.RemoveAll(tempDir)
	})

	It("should load a trace file", func() {
		path := filepath.Join(tempDir, "t.trace")
		Expect(os.WriteFile(path, []byte("0 0x10 0x20 T\n0 0x10 0x20 N\n"), 0644)).To(Succeed())

		branches, err := trace.Load(path)
		Expect(err).NotTo(HaveOccurred())
		Expect(branches).To(HaveLen(2))
		Expect(branches[1].Taken).To(BeFalse())
	})

	It("should fail on a missing file", func() {
		_, err := trace.Load(filepath.Join(tempDir, "missing"))
		Expect(err).To(HaveOccurred())
	})
})
