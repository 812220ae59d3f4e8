package main

import (
	"bytes"
	"encoding/binary"
	"os"
	"path/filepath"
	"testing"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

func TestSimulate(t *testing.T) {
	RegisterFailHandler(Fail)
	RunSpecs(t, "Simulate Suite")
}

// writeMinimalStaticFile writes just enough of the static trace file's
// header for PeekThreadCount to read back threadCount: the wire format's
// leading {file_type=0, thread_count, block_count, inst_count} fields.
func writeMinimalStaticFile(path string, threadCount uint16) error {
	var buf bytes.Buffer
	binary.Write(&buf, binary.LittleEndian, uint8(0))
	binary.Write(&buf, binary.LittleEndian, threadCount)
	binary.Write(&buf, binary.LittleEndian, uint64(0))
	binary.Write(&buf, binary.LittleEndian, uint64(0))
	return os.WriteFile(path, buf.Bytes(), 0o644)
}

var _ = Describe("openTraceReader", func() {
	It("builds one dynamic and memory path per thread declared by the static header", func() {
		dir := GinkgoT().TempDir()
		stem := filepath.Join(dir, "prefix_image")

		Expect(writeMinimalStaticFile(stem+".trace", 2)).NotTo(HaveOccurred())

		// The per-thread dynamic/memory files are intentionally left absent:
		// this test checks openTraceReader attempts the right paths (one
		// dynamic and one memory file per thread the static header declares),
		// not that a full reader can be opened, so the expected failure below
		// must name the first missing per-thread file, not the static one.
		_, err := openTraceReader(stem)
		Expect(err).To(HaveOccurred())
		Expect(err.Error()).To(ContainSubstring("tid0"))
	})

	It("reports a trace error when the static file is missing", func() {
		_, err := openTraceReader(filepath.Join(GinkgoT().TempDir(), "nonexistent"))
		Expect(err).To(HaveOccurred())
		Expect(err.Error()).To(ContainSubstring("trace:"))
	})
})

var _ = Describe("run", func() {
	It("fails when the configuration file does not exist", func() {
		code := run(filepath.Join(GinkgoT().TempDir(), "missing.yaml"), "irrelevant", "", "")
		Expect(code).To(Equal(1))
	})
})
