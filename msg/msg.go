// Package msg defines the data model shared by every component in the
// simulator: the static/dynamic instruction records produced by the trace
// layer, and the tagged-union packets exchanged over connections.
package msg

import "fmt"

const (
	// MaxMnemonicBytes bounds the static instruction's mnemonic string to
	// 25 bytes including its terminator. The on-disk trace format reserves
	// a wider 32-byte field for this string (room for future growth); a
	// decoded mnemonic that does not fit this bound is a malformed record.
	MaxMnemonicBytes = 25
	// MaxRegisterIDs bounds the read/write register id lists on a static
	// instruction.
	MaxRegisterIDs = 16
	// MaxMemOperands bounds the read/write memory operand lists on a
	// dynamic instruction.
	MaxMemOperands = 16
)

// BranchKind classifies the control-flow effect of an instruction.
type BranchKind uint8

const (
	BranchNone BranchKind = iota
	BranchSyscall
	BranchSysret
	BranchCall
	BranchReturn
	BranchUnconditional
	BranchConditional
)

func (k BranchKind) String() string {
	switch k {
	case BranchNone:
		return "none"
	case BranchSyscall:
		return "syscall"
	case BranchSysret:
		return "sysret"
	case BranchCall:
		return "call"
	case BranchReturn:
		return "return"
	case BranchUnconditional:
		return "unconditional"
	case BranchConditional:
		return "conditional"
	default:
		return fmt.Sprintf("BranchKind(%d)", uint8(k))
	}
}

// Flags bundles the eight single-bit properties carried by every static
// instruction.
type Flags struct {
	IsPrefetchHint        bool
	IsPredicated          bool
	IsIndirectControlFlow bool
	CausesCacheFlush      bool
	PerformsAtomic        bool
	ReadsMemory           bool
	WritesMemory          bool
	IsNonStandardMemOp    bool
}

// StaticInst is the static part of an instruction record: produced once per
// distinct address and interned. It must never be mutated after creation —
// every packet referencing the same address shares this value by pointer.
type StaticInst struct {
	Address  uint64
	Length   uint8
	Mnemonic string
	Branch   BranchKind

	ReadRegs  []uint16
	WriteRegs []uint16

	BaseReg, IndexReg uint16

	// NumStdMemLoads/NumStdMemStores are the read/write memory operand
	// counts to use when the memory file does not supply an explicit
	// non-standard header for this instruction (Flags.IsNonStandardMemOp
	// is false).
	NumStdMemLoads, NumStdMemStores uint8

	Flags Flags
}

// NewStaticInst validates and constructs a static instruction record.
func NewStaticInst(
	addr uint64,
	length uint8,
	mnemonic string,
	branch BranchKind,
	readRegs, writeRegs []uint16,
	flags Flags,
) (*StaticInst, error) {
	if len(mnemonic) >= MaxMnemonicBytes {
		return nil, fmt.Errorf("msg: mnemonic %q exceeds %d bytes", mnemonic, MaxMnemonicBytes-1)
	}
	if len(readRegs) > MaxRegisterIDs {
		return nil, fmt.Errorf("msg: %d read registers exceeds max %d", len(readRegs), MaxRegisterIDs)
	}
	if len(writeRegs) > MaxRegisterIDs {
		return nil, fmt.Errorf("msg: %d write registers exceeds max %d", len(writeRegs), MaxRegisterIDs)
	}

	return &StaticInst{
		Address:   addr,
		Length:    length,
		Mnemonic:  mnemonic,
		Branch:    branch,
		ReadRegs:  readRegs,
		WriteRegs: writeRegs,
		Flags:     flags,
	}, nil
}

// MemOp is a single (address, size) memory access.
type MemOp struct {
	Addr uint64
	Size uint16
}

// DynamicInst is the dynamic part of an instruction record: created fresh on
// every fetched occurrence and discarded once the owning packet is consumed.
type DynamicInst struct {
	Reads  [MaxMemOperands]MemOp
	Writes [MaxMemOperands]MemOp

	NumReads, NumWrites uint8
}

// Packet pairs a static instruction reference with its per-occurrence
// dynamic data and the address of the following instruction in program
// order.
type Packet struct {
	Static      *StaticInst
	Dynamic     *DynamicInst
	NextAddress uint64
}

// FetchKind discriminates the two FetchPacket variants.
type FetchKind uint8

const (
	FetchRequest FetchKind = iota
	FetchResponse
)

// FetchPacket is the tagged union exchanged between a fetcher and the
// engine's fetch pump: a request carries a byte budget (0 meaning "exactly
// one instruction regardless of size"); a response carries a fetched
// instruction packet.
type FetchPacket struct {
	Kind FetchKind

	// Valid when Kind == FetchRequest.
	ByteBudget int

	// Valid when Kind == FetchResponse.
	Inst Packet
}

// NewFetchRequest builds a fetch request for byteBudget bytes (0 meaning
// exactly one instruction).
func NewFetchRequest(byteBudget int) FetchPacket {
	return FetchPacket{Kind: FetchRequest, ByteBudget: byteBudget}
}

// NewFetchResponse builds a fetch response carrying inst.
func NewFetchResponse(inst Packet) FetchPacket {
	return FetchPacket{Kind: FetchResponse, Inst: inst}
}

// MemPacket is an opaque machine address exchanged between cores, TLBs,
// caches, and instruction-memory components.
type MemPacket struct {
	Address uint64
}

// PredictorKind discriminates the seven PredictorPacket variants.
type PredictorKind uint8

const (
	PredictorQuery PredictorKind = iota
	PredictorDirectionUpdate
	PredictorTargetUpdate
	PredictorUnknown
	PredictorTake
	PredictorTakeToAddress
	PredictorDontTake
)

// PredictorPacket is the tagged union exchanged with branch predictors,
// BTBs, and the return-address stack.
type PredictorPacket struct {
	Kind PredictorKind

	// Valid for PredictorQuery, PredictorDirectionUpdate, PredictorTargetUpdate.
	Inst *StaticInst

	// Valid for PredictorDirectionUpdate.
	Taken bool

	// Valid for PredictorTargetUpdate, PredictorTakeToAddress.
	Target uint64
}

// NewPredictorQuery builds a query-request carrying inst.
func NewPredictorQuery(inst *StaticInst) PredictorPacket {
	return PredictorPacket{Kind: PredictorQuery, Inst: inst}
}

// NewPredictorDirectionUpdate builds a direction-update.
func NewPredictorDirectionUpdate(inst *StaticInst, taken bool) PredictorPacket {
	return PredictorPacket{Kind: PredictorDirectionUpdate, Inst: inst, Taken: taken}
}

// NewPredictorTargetUpdate builds a target-update.
func NewPredictorTargetUpdate(inst *StaticInst, target uint64) PredictorPacket {
	return PredictorPacket{Kind: PredictorTargetUpdate, Inst: inst, Target: target}
}

// NewPredictorTakeToAddress builds a take-to-address response.
func NewPredictorTakeToAddress(target uint64) PredictorPacket {
	return PredictorPacket{Kind: PredictorTakeToAddress, Target: target}
}
