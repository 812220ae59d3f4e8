package trace

import (
	"bufio"
	"encoding/binary"
	"fmt"
	"io"
	"os"

	"github.com/sarchlab/sinuca-go/msg"
)

// memoryStream is the per-thread lazy reader over a memory trace file. Most
// instructions carry a fixed, statically-known number of loads and stores
// (StaticInst.NumStdMemLoads/NumStdMemStores); those read exactly that many
// operation records and no header. An instruction flagged IsNonStandardMemOp instead spends one
// record reading its own (reads, writes) header before the operation
// records that follow it — the split the reference memory-trace reader
// keeps between ExtractNonStdHeader and ExtractMemoryOperation.
type memoryStream struct {
	name string
	r    *bufio.Reader
	f    *os.File
}

func openMemoryStream(path string) (*memoryStream, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("trace: open memory stream %s: %w", path, err)
	}

	return &memoryStream{name: path, r: bufio.NewReader(f), f: f}, nil
}

func (m *memoryStream) Close() error { return m.f.Close() }

// fetch reads the dynamic memory operands for one instruction occurrence,
// given the static instruction's standard load/store counts and whether it
// carries a non-standard header.
func (m *memoryStream) fetch(static *msg.StaticInst) (*msg.DynamicInst, error) {
	if !static.Flags.ReadsMemory && !static.Flags.WritesMemory && !static.Flags.IsNonStandardMemOp {
		return nil, nil
	}

	numReads, numWrites := int(static.NumStdMemLoads), int(static.NumStdMemStores)
	if static.Flags.IsNonStandardMemOp {
		var err error
		numReads, numWrites, err = m.readNonStdHeader()
		if err != nil {
			return nil, err
		}
	}

	if numReads > msg.MaxMemOperands || numWrites > msg.MaxMemOperands {
		return nil, fmt.Errorf("%w: memory operand count exceeds %d", ErrMalformed, msg.MaxMemOperands)
	}

	dyn := &msg.DynamicInst{NumReads: uint8(numReads), NumWrites: uint8(numWrites)}

	for i := 0; i < numReads; i++ {
		op, err := m.readOperation(memoryLoad)
		if err != nil {
			return nil, err
		}
		dyn.Reads[i] = op
	}
	for i := 0; i < numWrites; i++ {
		op, err := m.readOperation(memoryStore)
		if err != nil {
			return nil, err
		}
		dyn.Writes[i] = op
	}

	return dyn, nil
}

func (m *memoryStream) readNonStdHeader() (reads, writes int, err error) {
	var kind uint8
	if err = binary.Read(m.r, byteOrder, &kind); err != nil {
		return 0, 0, fmt.Errorf("trace: %s: non-std header record: %w", m.name, err)
	}
	if memoryRecordKind(kind) != memoryNonStdHeader {
		return 0, 0, fmt.Errorf("%w: %s: expected non-std header, got record type %d", ErrMalformed, m.name, kind)
	}

	var r, w uint16
	if err = binary.Read(m.r, byteOrder, &r); err != nil {
		return 0, 0, err
	}
	if err = binary.Read(m.r, byteOrder, &w); err != nil {
		return 0, 0, err
	}

	return int(r), int(w), nil
}

func (m *memoryStream) readOperation(want memoryOpKind) (msg.MemOp, error) {
	var kind uint8
	if err := binary.Read(m.r, byteOrder, &kind); err != nil {
		if err == io.EOF {
			return msg.MemOp{}, fmt.Errorf("%w: %s: memory stream exhausted mid-instruction", ErrMalformed, m.name)
		}
		return msg.MemOp{}, fmt.Errorf("trace: %s: operation record: %w", m.name, err)
	}
	if memoryRecordKind(kind) != memoryOperation {
		return msg.MemOp{}, fmt.Errorf("%w: %s: expected operation, got record type %d", ErrMalformed, m.name, kind)
	}

	var addr uint64
	var size uint16
	var opType uint8
	if err := binary.Read(m.r, byteOrder, &addr); err != nil {
		return msg.MemOp{}, err
	}
	if err := binary.Read(m.r, byteOrder, &size); err != nil {
		return msg.MemOp{}, err
	}
	if err := binary.Read(m.r, byteOrder, &opType); err != nil {
		return msg.MemOp{}, err
	}
	if memoryOpKind(opType) != want {
		return msg.MemOp{}, fmt.Errorf("%w: %s: memory operation direction mismatch", ErrMalformed, m.name)
	}

	return msg.MemOp{Addr: addr, Size: size}, nil
}
