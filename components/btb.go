package components

import (
	"fmt"
	"math/bits"

	"github.com/sarchlab/sinuca-go/link"
	"github.com/sarchlab/sinuca-go/msg"
)

// maxInterleavingFactor bounds how many banks one BTB entry may hold; a
// requested factor above this clamps down to it.
const maxInterleavingFactor = 64

// btbCounter is one bank's 2-bit saturating taken/not-taken counter. A
// freshly registered branch starts weakly taken so it predicts its target
// immediately, before any direction update has trained it.
type btbCounter uint8

const btbCounterWeaklyTaken btbCounter = 2

func (c btbCounter) takenPredicted() bool { return c >= 2 }

func (c btbCounter) update(taken bool) btbCounter {
	if taken {
		if c < 3 {
			return c + 1
		}
		return c
	}
	if c > 0 {
		return c - 1
	}
	return c
}

type btbBank struct {
	target  uint64
	branch  msg.BranchKind
	counter btbCounter
}

type btbEntry struct {
	valid bool
	tag   uint64
	banks []btbBank
}

// BTB is a direct-mapped, interleaved branch-target buffer: each entry is
// keyed by an address's high bits and holds interleavingFactor banks, one
// per low-order address slot, each bank independently tracking a target and
// a saturating taken/not-taken counter. It exchanges msg.PredictorPacket
// requests with a fetcher over the generic connection substrate, the same
// protocol the return-address stack and the hardwired predictor use.
type BTB struct {
	*link.Base[msg.PredictorPacket]

	interleavingFactor int
	numEntries         int
	interleavingBits   int
	entryBits          int

	entries []btbEntry

	queries, hits, replacements uint64
}

// NewBTB constructs an interleaved BTB under name.
func NewBTB(name string) link.Linkable {
	return &BTB{Base: link.NewBase[msg.PredictorPacket](name)}
}

func (b *BTB) Configure(key string, value link.ConfigValue) error {
	switch key {
	case "interleavingFactor":
		if value.Kind != link.ConfigInteger || value.Integer <= 0 {
			return fmt.Errorf("interleavingFactor must be a positive integer")
		}
		factor := int(value.Integer)
		if factor > maxInterleavingFactor {
			factor = maxInterleavingFactor
		}
		b.interleavingFactor = factor
	case "numberOfEntries":
		if value.Kind != link.ConfigInteger || value.Integer <= 0 {
			return fmt.Errorf("numberOfEntries must be a positive integer")
		}
		b.numEntries = int(value.Integer)
	default:
		return fmt.Errorf("unknown parameter %q", key)
	}
	return nil
}

func (b *BTB) FinishSetup() error {
	if b.interleavingFactor <= 0 {
		return fmt.Errorf("BTB %q: required parameter \"interleavingFactor\" not provided", b.Name())
	}
	if b.numEntries <= 0 {
		return fmt.Errorf("BTB %q: required parameter \"numberOfEntries\" not provided", b.Name())
	}

	// Round both down to powers of two so index and bank selection stay
	// pure bit slicing.
	b.interleavingBits = bits.Len(uint(b.interleavingFactor)) - 1
	b.entryBits = bits.Len(uint(b.numEntries)) - 1
	b.interleavingFactor = 1 << b.interleavingBits
	b.numEntries = 1 << b.entryBits

	b.entries = make([]btbEntry, b.numEntries)
	for i := range b.entries {
		b.entries[i].banks = make([]btbBank, b.interleavingFactor)
	}

	return nil
}

func (b *BTB) bank(addr uint64) int { return int(addr & uint64(b.interleavingFactor-1)) }

func (b *BTB) index(addr uint64) int {
	return int((addr >> uint(b.interleavingBits)) & uint64(b.numEntries-1))
}

func (b *BTB) tag(addr uint64) uint64 { return addr >> uint(b.interleavingBits) }

func (b *BTB) entryAt(addr uint64) (*btbEntry, int) {
	index := b.index(addr)
	entry := &b.entries[index]
	if !entry.valid || entry.tag != b.tag(addr) {
		return nil, b.bank(addr)
	}
	return entry, b.bank(addr)
}

// registerBranch installs/updates the target for a branch observed at
// inst's address, overwriting any prior entry sharing the same index
// (counted as a replacement) and clearing its other banks to the state a
// fresh entry starts in (no target, strongly not-taken).
func (b *BTB) registerBranch(inst *msg.StaticInst, target uint64) {
	index := b.index(inst.Address)
	tag := b.tag(inst.Address)
	bank := b.bank(inst.Address)

	entry := &b.entries[index]
	if entry.valid && entry.tag != tag {
		b.replacements++
		for i := range entry.banks {
			entry.banks[i] = btbBank{}
		}
	}
	entry.valid = true
	entry.tag = tag
	entry.banks[bank].target = target
	entry.banks[bank].branch = inst.Branch
	entry.banks[bank].counter = btbCounterWeaklyTaken
}

func (b *BTB) updateDirection(inst *msg.StaticInst, taken bool) {
	entry, bank := b.entryAt(inst.Address)
	if entry == nil {
		return
	}
	entry.banks[bank].counter = entry.banks[bank].counter.update(taken)
}

// query answers a prediction request for inst: a miss (no valid entry with
// this address's tag) reports PredictorUnknown; on a hit, a bank holding an
// unconditional branch or a counter predicting taken reports
// PredictorTakeToAddress, and any other bank reports PredictorDontTake.
func (b *BTB) query(inst *msg.StaticInst) msg.PredictorPacket {
	b.queries++
	entry, bank := b.entryAt(inst.Address)
	if entry == nil {
		return msg.PredictorPacket{Kind: msg.PredictorUnknown}
	}

	b.hits++
	bk := entry.banks[bank]
	if bk.branch == msg.BranchUnconditional || bk.counter.takenPredicted() {
		return msg.NewPredictorTakeToAddress(bk.target)
	}
	return msg.PredictorPacket{Kind: msg.PredictorDontTake}
}

func (b *BTB) Clock() {
	for id := 0; id < b.NumConnections(); id++ {
		req, ok := b.DequeueRequest(id)
		if !ok {
			continue
		}

		switch req.Kind {
		case msg.PredictorQuery:
			b.SendResponse(id, b.query(req.Inst))
		case msg.PredictorDirectionUpdate:
			b.updateDirection(req.Inst, req.Taken)
		case msg.PredictorTargetUpdate:
			b.registerBranch(req.Inst, req.Target)
		}
	}
}

func (b *BTB) PrintStatistics() []link.Stat {
	return []link.Stat{
		{Name: b.Name() + ".queries", Value: fmt.Sprintf("%d", b.queries)},
		{Name: b.Name() + ".hits", Value: fmt.Sprintf("%d", b.hits)},
		{Name: b.Name() + ".replacements", Value: fmt.Sprintf("%d", b.replacements)},
	}
}
