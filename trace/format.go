// Package trace implements the binary trace ingestion pipeline: a static
// instruction dictionary (eagerly loaded into one pool allocation, stored
// as a dense array of basic blocks each pointing into a shared pool of
// instruction entries) plus a per-thread dynamic basic-block stream and a
// per-thread memory-access stream, both read lazily as the engine's fetch
// pump drains them.
//
// The on-disk layout follows the binary trace format exactly: little-
// endian, packed, with fixed 16-slot register arrays and a 32-byte
// mnemonic field.
package trace

import (
	"encoding/binary"
	"fmt"
	"io"
)

var byteOrder = binary.LittleEndian

// wireMaxRegs and wireMnemonicSize size the fixed-width fields the binary
// format reserves regardless of how many of them a given instruction
// actually uses.
const (
	wireMaxRegs      = 16
	wireMnemonicSize = 32
)

// staticFileType / dynamicFileType are the first byte of their respective
// trace files.
const (
	staticFileType  uint8 = 0
	dynamicFileType uint8 = 1
)

// staticRecordKind discriminates a record within the static trace file.
type staticRecordKind uint8

const (
	staticRecordBlockSize staticRecordKind = iota
	staticRecordInstruction
)

// dynamicRecordKind discriminates a per-thread dynamic trace record.
type dynamicRecordKind uint8

const (
	dynamicBasicBlock dynamicRecordKind = iota
	dynamicThreadEvent
)

// threadEvent enumerates the dynamic trace's thread-lifecycle markers.
// Fetch consumes and skips these transparently: thread lifecycle is not
// part of this package's contract with the engine.
type threadEvent uint8

const (
	threadEventCreate threadEvent = iota
	threadEventDestroy
	threadEventLockRequest
	threadEventBarrierSync
	threadEventCriticalStart
	threadEventCriticalEnd
	threadEventAbruptEnd
)

// memoryRecordKind discriminates a per-thread memory trace record.
type memoryRecordKind uint8

const (
	memoryNonStdHeader memoryRecordKind = iota
	memoryOperation
)

// memoryOpKind discriminates a memoryOperation record's access direction.
type memoryOpKind uint8

const (
	memoryLoad memoryOpKind = iota
	memoryStore
)

// staticFileHeader is the first record of a static trace file.
type staticFileHeader struct {
	ThreadCount uint16
	BlockCount  uint64
	InstCount   uint64
}

func readStaticFileHeader(r io.Reader) (staticFileHeader, error) {
	var fileType uint8
	if err := binary.Read(r, byteOrder, &fileType); err != nil {
		return staticFileHeader{}, fmt.Errorf("trace: read static file type: %w", err)
	}
	if fileType != staticFileType {
		return staticFileHeader{}, fmt.Errorf("%w: static file type %d, want %d", ErrMalformed, fileType, staticFileType)
	}

	var h staticFileHeader
	if err := binary.Read(r, byteOrder, &h.ThreadCount); err != nil {
		return h, fmt.Errorf("trace: read static header thread count: %w", err)
	}
	if err := binary.Read(r, byteOrder, &h.BlockCount); err != nil {
		return h, fmt.Errorf("trace: read static header block count: %w", err)
	}
	if err := binary.Read(r, byteOrder, &h.InstCount); err != nil {
		return h, fmt.Errorf("trace: read static header inst count: %w", err)
	}

	return h, nil
}

func writeStaticFileHeader(w io.Writer, h staticFileHeader) error {
	if err := binary.Write(w, byteOrder, staticFileType); err != nil {
		return err
	}
	if err := binary.Write(w, byteOrder, h.ThreadCount); err != nil {
		return err
	}
	if err := binary.Write(w, byteOrder, h.BlockCount); err != nil {
		return err
	}

	return binary.Write(w, byteOrder, h.InstCount)
}

// dynamicFileHeader is the first record of a per-thread dynamic trace file.
type dynamicFileHeader struct {
	TotalExecutedInstructions uint64
}

func readDynamicFileHeader(r io.Reader) (dynamicFileHeader, error) {
	var fileType uint8
	if err := binary.Read(r, byteOrder, &fileType); err != nil {
		return dynamicFileHeader{}, fmt.Errorf("trace: read dynamic file type: %w", err)
	}
	if fileType != dynamicFileType {
		return dynamicFileHeader{}, fmt.Errorf("%w: dynamic file type %d, want %d", ErrMalformed, fileType, dynamicFileType)
	}

	var h dynamicFileHeader
	err := binary.Read(r, byteOrder, &h.TotalExecutedInstructions)

	return h, err
}

func writeDynamicFileHeader(w io.Writer, h dynamicFileHeader) error {
	if err := binary.Write(w, byteOrder, dynamicFileType); err != nil {
		return err
	}

	return binary.Write(w, byteOrder, h.TotalExecutedInstructions)
}
