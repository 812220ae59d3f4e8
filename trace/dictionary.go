package trace

import (
	"bufio"
	"bytes"
	"encoding/binary"
	"fmt"
	"io"
	"os"

	"github.com/sarchlab/sinuca-go/msg"
)

// block is a contiguous slice of the dictionary's shared index pool: the
// sequence of interned-instruction indices one basic block fetches in
// order.
type block struct {
	start, length int
}

// dictionary is the static instruction dictionary and basic-block table,
// loaded once, eagerly, from a static trace file.
//
// The wire format repeats a full instruction entry at every occurrence
// (once per basic block that reaches it), but the data model requires
// every packet referencing the same address to share one interned
// StaticInst by reference. So loading has two layers: interned is the
// single backing allocation of unique-by-address records every StaticInst
// pointer returned by Fetch points into; pool is a flat array of indices
// into interned, one per occurrence, sliced per block — this is the
// "dense array indexed by basic-block id, each entry pointing to a
// contiguous slice drawn from a single pool" the loading contract calls
// for.
type dictionary struct {
	interned []msg.StaticInst
	pool     []uint32
	blocks   []block

	threadCount int
	instCount   uint64
	blockCount  uint64
}

// PeekThreadCount reads just the static file's header to learn how many
// per-thread dynamic/memory streams a Reader over this trace will need,
// without loading the (potentially large) instruction dictionary.
func PeekThreadCount(staticPath string) (int, error) {
	f, err := os.Open(staticPath)
	if err != nil {
		return 0, fmt.Errorf("trace: open static dictionary %s: %w", staticPath, err)
	}
	defer f.Close()

	header, err := readStaticFileHeader(bufio.NewReader(f))
	if err != nil {
		return 0, fmt.Errorf("trace: %s: %w", staticPath, err)
	}

	return int(header.ThreadCount), nil
}

func loadDictionary(path string) (*dictionary, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("trace: open static dictionary %s: %w", path, err)
	}
	defer f.Close()

	r := bufio.NewReader(f)

	header, err := readStaticFileHeader(r)
	if err != nil {
		return nil, fmt.Errorf("trace: %s: %w", path, err)
	}

	d := &dictionary{
		interned:    make([]msg.StaticInst, 0, header.InstCount),
		pool:        make([]uint32, 0, header.InstCount),
		blocks:      make([]block, 0, header.BlockCount),
		threadCount: int(header.ThreadCount),
		instCount:   header.InstCount,
		blockCount:  header.BlockCount,
	}
	byAddress := make(map[uint64]uint32, header.InstCount)

	var occurrences uint64
	for b := uint64(0); b < header.BlockCount; b++ {
		size, err := readBlockSizeRecord(r)
		if err != nil {
			return nil, fmt.Errorf("trace: %s: block %d size: %w", path, b, err)
		}

		start := len(d.pool)
		for i := 0; i < size; i++ {
			entry, err := readInstructionRecord(r)
			if err != nil {
				return nil, fmt.Errorf("trace: %s: block %d instruction %d: %w", path, b, i, err)
			}

			idx, seen := byAddress[entry.Address]
			if !seen {
				idx = uint32(len(d.interned))
				d.interned = append(d.interned, entry)
				byAddress[entry.Address] = idx
			}
			d.pool = append(d.pool, idx)
		}
		d.blocks = append(d.blocks, block{start: start, length: size})
		occurrences += uint64(size)
	}

	if occurrences != header.InstCount {
		return nil, fmt.Errorf("%w: %s: header declared %d instructions, found %d", ErrMalformed, path, header.InstCount, occurrences)
	}

	return d, nil
}

func readBlockSizeRecord(r io.Reader) (int, error) {
	var kind uint8
	if err := binary.Read(r, byteOrder, &kind); err != nil {
		return 0, err
	}
	if staticRecordKind(kind) != staticRecordBlockSize {
		return 0, fmt.Errorf("%w: expected block-size record, got record type %d", ErrMalformed, kind)
	}

	var size uint16
	if err := binary.Read(r, byteOrder, &size); err != nil {
		return 0, err
	}

	return int(size), nil
}

// readInstructionRecord decodes one {record_type=instruction,
// instruction_entry} pair into a StaticInst. The wire entry reserves fixed
// 16-slot register arrays and a 32-byte mnemonic field regardless of how
// many of them a given instruction uses.
func readInstructionRecord(r io.Reader) (msg.StaticInst, error) {
	var kind uint8
	if err := binary.Read(r, byteOrder, &kind); err != nil {
		return msg.StaticInst{}, err
	}
	if staticRecordKind(kind) != staticRecordInstruction {
		return msg.StaticInst{}, fmt.Errorf("%w: expected instruction record, got record type %d", ErrMalformed, kind)
	}

	var address uint64
	if err := binary.Read(r, byteOrder, &address); err != nil {
		return msg.StaticInst{}, err
	}

	var readRegs, writeRegs [wireMaxRegs]uint16
	if err := binary.Read(r, byteOrder, &readRegs); err != nil {
		return msg.StaticInst{}, err
	}
	if err := binary.Read(r, byteOrder, &writeRegs); err != nil {
		return msg.StaticInst{}, err
	}

	var baseReg, indexReg, id uint16
	if err := binary.Read(r, byteOrder, &baseReg); err != nil {
		return msg.StaticInst{}, err
	}
	if err := binary.Read(r, byteOrder, &indexReg); err != nil {
		return msg.StaticInst{}, err
	}
	if err := binary.Read(r, byteOrder, &id); err != nil {
		return msg.StaticInst{}, err
	}

	var numReadRegs, numWriteRegs, instSize, branchKind uint8
	if err := binary.Read(r, byteOrder, &numReadRegs); err != nil {
		return msg.StaticInst{}, err
	}
	if err := binary.Read(r, byteOrder, &numWriteRegs); err != nil {
		return msg.StaticInst{}, err
	}
	if err := binary.Read(r, byteOrder, &instSize); err != nil {
		return msg.StaticInst{}, err
	}
	if err := binary.Read(r, byteOrder, &branchKind); err != nil {
		return msg.StaticInst{}, err
	}
	if int(numReadRegs) > wireMaxRegs || int(numWriteRegs) > wireMaxRegs {
		return msg.StaticInst{}, fmt.Errorf("%w: register count exceeds %d", ErrMalformed, wireMaxRegs)
	}

	var flagsBitfield, numStdLoads, numStdStores uint8
	if err := binary.Read(r, byteOrder, &flagsBitfield); err != nil {
		return msg.StaticInst{}, err
	}
	if err := binary.Read(r, byteOrder, &numStdLoads); err != nil {
		return msg.StaticInst{}, err
	}
	if err := binary.Read(r, byteOrder, &numStdStores); err != nil {
		return msg.StaticInst{}, err
	}

	var mnemonicBuf [wireMnemonicSize]byte
	if _, err := io.ReadFull(r, mnemonicBuf[:]); err != nil {
		return msg.StaticInst{}, err
	}
	mnemonic := string(bytes.TrimRight(mnemonicBuf[:], "\x00"))
	if len(mnemonic) >= msg.MaxMnemonicBytes {
		return msg.StaticInst{}, fmt.Errorf("%w: mnemonic %q exceeds %d bytes", ErrMalformed, mnemonic, msg.MaxMnemonicBytes-1)
	}

	return msg.StaticInst{
		Address:         address,
		Length:          instSize,
		Mnemonic:        mnemonic,
		Branch:          msg.BranchKind(branchKind),
		ReadRegs:        append([]uint16(nil), readRegs[:numReadRegs]...),
		WriteRegs:       append([]uint16(nil), writeRegs[:numWriteRegs]...),
		BaseReg:         baseReg,
		IndexReg:        indexReg,
		NumStdMemLoads:  numStdLoads,
		NumStdMemStores: numStdStores,
		Flags:           decodeFlags(flagsBitfield),
	}, nil
}

const (
	flagPrefetchHint = 1 << iota
	flagPredicated
	flagIndirectControlFlow
	flagCausesCacheFlush
	flagPerformsAtomic
	flagReadsMemory
	flagWritesMemory
	flagNonStandardMemOp
)

func decodeFlags(b uint8) msg.Flags {
	return msg.Flags{
		IsPrefetchHint:        b&flagPrefetchHint != 0,
		IsPredicated:          b&flagPredicated != 0,
		IsIndirectControlFlow: b&flagIndirectControlFlow != 0,
		CausesCacheFlush:      b&flagCausesCacheFlush != 0,
		PerformsAtomic:        b&flagPerformsAtomic != 0,
		ReadsMemory:           b&flagReadsMemory != 0,
		WritesMemory:          b&flagWritesMemory != 0,
		IsNonStandardMemOp:    b&flagNonStandardMemOp != 0,
	}
}

func encodeFlags(f msg.Flags) uint8 {
	var b uint8
	set := func(cond bool, bit uint8) {
		if cond {
			b |= bit
		}
	}
	set(f.IsPrefetchHint, flagPrefetchHint)
	set(f.IsPredicated, flagPredicated)
	set(f.IsIndirectControlFlow, flagIndirectControlFlow)
	set(f.CausesCacheFlush, flagCausesCacheFlush)
	set(f.PerformsAtomic, flagPerformsAtomic)
	set(f.ReadsMemory, flagReadsMemory)
	set(f.WritesMemory, flagWritesMemory)
	set(f.IsNonStandardMemOp, flagNonStandardMemOp)

	return b
}

// blockInstructions returns the slice of interned-instruction indices for
// basic block id.
func (d *dictionary) blockInstructions(id uint32) ([]uint32, error) {
	if int(id) >= len(d.blocks) {
		return nil, fmt.Errorf("%w: basic block id %d out of range", ErrMalformed, id)
	}
	b := d.blocks[id]

	return d.pool[b.start : b.start+b.length], nil
}
