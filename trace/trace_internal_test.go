package trace

import (
	"bytes"
	"encoding/binary"
	"os"
	"path/filepath"
	"testing"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/sarchlab/sinuca-go/msg"
)

func TestTrace(t *testing.T) {
	RegisterFailHandler(Fail)
	RunSpecs(t, "Trace Suite")
}

// --- synthetic trace construction helpers (test-only) -----------------

type entrySpec struct {
	address      uint64
	length       uint8
	branch       uint8
	flags        msg.Flags
	numStdLoads  uint8
	numStdStores uint8
	mnemonic     string
}

func writeInstructionEntry(buf *bytes.Buffer, e entrySpec) {
	buf.WriteByte(byte(staticRecordInstruction))
	binary.Write(buf, byteOrder, e.address)

	var readRegs, writeRegs [wireMaxRegs]uint16
	binary.Write(buf, byteOrder, readRegs)
	binary.Write(buf, byteOrder, writeRegs)

	var baseReg, indexReg, id uint16
	binary.Write(buf, byteOrder, baseReg)
	binary.Write(buf, byteOrder, indexReg)
	binary.Write(buf, byteOrder, id)

	binary.Write(buf, byteOrder, uint8(0)) // numReadRegs
	binary.Write(buf, byteOrder, uint8(0)) // numWriteRegs
	binary.Write(buf, byteOrder, e.length)
	binary.Write(buf, byteOrder, e.branch)
	binary.Write(buf, byteOrder, encodeFlags(e.flags))
	binary.Write(buf, byteOrder, e.numStdLoads)
	binary.Write(buf, byteOrder, e.numStdStores)

	var mnemonicBuf [wireMnemonicSize]byte
	copy(mnemonicBuf[:], e.mnemonic)
	buf.Write(mnemonicBuf[:])
}

// buildStaticFile writes a static trace file whose blocks are given as
// slices of entrySpec — the same full entry is written at every
// occurrence, exactly as the wire format requires; the reader is
// responsible for interning by address.
func buildStaticFile(threadCount uint16, blocks [][]entrySpec) []byte {
	var buf bytes.Buffer

	var instCount uint64
	for _, blk := range blocks {
		instCount += uint64(len(blk))
	}

	writeStaticFileHeader(&buf, staticFileHeader{
		ThreadCount: threadCount,
		BlockCount:  uint64(len(blocks)),
		InstCount:   instCount,
	})

	for _, blk := range blocks {
		buf.WriteByte(byte(staticRecordBlockSize))
		binary.Write(&buf, byteOrder, uint16(len(blk)))
		for _, e := range blk {
			writeInstructionEntry(&buf, e)
		}
	}

	return buf.Bytes()
}

func buildDynamicFile(total uint64, blockIDs []uint32) []byte {
	var buf bytes.Buffer
	writeDynamicFileHeader(&buf, dynamicFileHeader{TotalExecutedInstructions: total})

	for _, id := range blockIDs {
		buf.WriteByte(byte(dynamicBasicBlock))
		binary.Write(&buf, byteOrder, id)
	}

	return buf.Bytes()
}

type memOpSpec struct {
	kind memoryOpKind
	addr uint64
	size uint16
}

func buildMemoryFile(ops []memOpSpec) []byte {
	var buf bytes.Buffer
	for _, op := range ops {
		buf.WriteByte(byte(memoryOperation))
		binary.Write(&buf, byteOrder, op.addr)
		binary.Write(&buf, byteOrder, op.size)
		buf.WriteByte(byte(op.kind))
	}

	return buf.Bytes()
}

func writeTempFile(dir, name string, data []byte) string {
	path := filepath.Join(dir, name)
	Expect(os.WriteFile(path, data, 0o600)).To(Succeed())

	return path
}

var _ = Describe("Reader", func() {
	It("fetches a two-instruction basic block and then reports end", func() {
		dir := GinkgoT().TempDir()

		blocks := [][]entrySpec{
			{
				{address: 0x1000, length: 4, mnemonic: "add"},
				{address: 0x1004, length: 4, mnemonic: "ret", branch: uint8(msg.BranchReturn)},
			},
		}

		staticPath := writeTempFile(dir, "static.bin", buildStaticFile(1, blocks))
		dynamicPath := writeTempFile(dir, "dyn0.bin", buildDynamicFile(2, []uint32{0}))
		memoryPath := writeTempFile(dir, "mem0.bin", buildMemoryFile(nil))

		r, err := NewReader("t", Paths{
			StaticDictionary: staticPath,
			Dynamic:          []string{dynamicPath},
			Memory:           []string{memoryPath},
		})
		Expect(err).NotTo(HaveOccurred())
		defer r.Close()

		Expect(r.TotalThreads()).To(Equal(1))
		Expect(r.TotalInstructions(0)).To(Equal(uint64(2)))

		pkt, result := r.Fetch(0)
		Expect(result).To(Equal(FetchOk))
		Expect(pkt.Static.Address).To(Equal(uint64(0x1000)))

		pkt, result = r.Fetch(0)
		Expect(result).To(Equal(FetchOk))
		Expect(pkt.Static.Address).To(Equal(uint64(0x1004)))
		Expect(pkt.Static.Branch).To(Equal(msg.BranchReturn))

		_, result = r.Fetch(0)
		Expect(result).To(Equal(FetchEnd))

		_, result = r.Fetch(0)
		Expect(result).To(Equal(FetchEnd), "Fetch must keep reporting End once a thread is done")
	})

	It("interns instructions sharing an address across two basic blocks", func() {
		dir := GinkgoT().TempDir()

		shared := entrySpec{address: 0x5000, length: 4, mnemonic: "call", branch: uint8(msg.BranchCall)}
		blocks := [][]entrySpec{
			{shared},
			{shared},
		}

		staticPath := writeTempFile(dir, "static.bin", buildStaticFile(1, blocks))
		dynamicPath := writeTempFile(dir, "dyn0.bin", buildDynamicFile(2, []uint32{0, 1}))
		memoryPath := writeTempFile(dir, "mem0.bin", buildMemoryFile(nil))

		r, err := NewReader("t", Paths{
			StaticDictionary: staticPath,
			Dynamic:          []string{dynamicPath},
			Memory:           []string{memoryPath},
		})
		Expect(err).NotTo(HaveOccurred())
		defer r.Close()

		first, result := r.Fetch(0)
		Expect(result).To(Equal(FetchOk))
		second, result := r.Fetch(0)
		Expect(result).To(Equal(FetchOk))

		Expect(first.Static).To(BeIdenticalTo(second.Static), "occurrences of the same address must share one interned record")
	})

	It("reads standard memory operands alongside a load/store instruction", func() {
		dir := GinkgoT().TempDir()

		blocks := [][]entrySpec{
			{
				{
					address: 0x2000, length: 4, mnemonic: "mov",
					flags:       msg.Flags{ReadsMemory: true},
					numStdLoads: 1,
				},
			},
		}

		staticPath := writeTempFile(dir, "static.bin", buildStaticFile(1, blocks))
		dynamicPath := writeTempFile(dir, "dyn0.bin", buildDynamicFile(1, []uint32{0}))
		memoryPath := writeTempFile(dir, "mem0.bin", buildMemoryFile([]memOpSpec{
			{kind: memoryLoad, addr: 0xABCD, size: 8},
		}))

		r, err := NewReader("t", Paths{
			StaticDictionary: staticPath,
			Dynamic:          []string{dynamicPath},
			Memory:           []string{memoryPath},
		})
		Expect(err).NotTo(HaveOccurred())
		defer r.Close()

		pkt, result := r.Fetch(0)
		Expect(result).To(Equal(FetchOk))
		Expect(pkt.Dynamic).NotTo(BeNil())
		Expect(pkt.Dynamic.NumReads).To(Equal(uint8(1)))
		Expect(pkt.Dynamic.Reads[0]).To(Equal(msg.MemOp{Addr: 0xABCD, Size: 8}))
	})

	It("reports a malformed basic-block reference as FetchError", func() {
		dir := GinkgoT().TempDir()

		blocks := [][]entrySpec{{{address: 0x3000, length: 4, mnemonic: "nop"}}}

		staticPath := writeTempFile(dir, "static.bin", buildStaticFile(1, blocks))
		dynamicPath := writeTempFile(dir, "dyn0.bin", buildDynamicFile(1, []uint32{7}))
		memoryPath := writeTempFile(dir, "mem0.bin", buildMemoryFile(nil))

		r, err := NewReader("t", Paths{
			StaticDictionary: staticPath,
			Dynamic:          []string{dynamicPath},
			Memory:           []string{memoryPath},
		})
		Expect(err).NotTo(HaveOccurred())
		defer r.Close()

		_, result := r.Fetch(0)
		Expect(result).To(Equal(FetchError))
	})
})
