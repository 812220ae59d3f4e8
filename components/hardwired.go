package components

import (
	"fmt"

	"github.com/sarchlab/sinuca-go/link"
	"github.com/sarchlab/sinuca-go/msg"
)

// HardwiredPredictor is a per-branch-kind configurable oracle: six boolean
// knobs (syscall, call, return, unconditional, conditional, and one for
// non-branches; sysret is governed by the return knob) gate whether a
// query answers with the last confirmed-correct target for that address or
// its bitwise complement (an intentionally wrong answer), letting a study
// isolate the cost of mispredicting one particular kind of control flow.
//
// The reference implementation's branch-kind dispatch inverted its own
// no-branch test (treating every branch as the no-branch case and vice
// versa); this predicts using the evidently intended mapping instead.
type HardwiredPredictor struct {
	*link.Base[msg.PredictorPacket]

	syscall, call, ret, uncond, cond, noBranch bool

	targets map[uint64]uint64

	queries, hits uint64
}

// NewHardwiredPredictor constructs a hardwired predictor with every knob
// defaulted to true (always correct).
func NewHardwiredPredictor(name string) link.Linkable {
	return &HardwiredPredictor{
		Base:      link.NewBase[msg.PredictorPacket](name),
		syscall:   true,
		call:      true,
		ret:       true,
		uncond:    true,
		cond:      true,
		noBranch:  true,
		targets:   make(map[uint64]uint64),
	}
}

func (h *HardwiredPredictor) Configure(key string, value link.ConfigValue) error {
	if value.Kind != link.ConfigBoolean {
		return fmt.Errorf("%s must be a boolean", key)
	}
	switch key {
	case "syscall":
		h.syscall = value.Boolean
	case "call":
		h.call = value.Boolean
	case "return":
		h.ret = value.Boolean
	case "unconditional":
		h.uncond = value.Boolean
	case "conditional":
		h.cond = value.Boolean
	case "noBranch":
		h.noBranch = value.Boolean
	default:
		return fmt.Errorf("unknown parameter %q", key)
	}
	return nil
}

func (h *HardwiredPredictor) FinishSetup() error { return nil }

func (h *HardwiredPredictor) enabledFor(kind msg.BranchKind) bool {
	switch kind {
	case msg.BranchNone:
		return h.noBranch
	case msg.BranchSyscall:
		return h.syscall
	case msg.BranchSysret:
		return h.ret
	case msg.BranchCall:
		return h.call
	case msg.BranchReturn:
		return h.ret
	case msg.BranchUnconditional:
		return h.uncond
	case msg.BranchConditional:
		return h.cond
	default:
		return true
	}
}

func (h *HardwiredPredictor) query(inst *msg.StaticInst) msg.PredictorPacket {
	h.queries++
	target, ok := h.targets[inst.Address]
	if !ok {
		return msg.PredictorPacket{Kind: msg.PredictorUnknown}
	}

	h.hits++
	if !h.enabledFor(inst.Branch) {
		target = ^target
	}
	return msg.NewPredictorTakeToAddress(target)
}

func (h *HardwiredPredictor) Clock() {
	for id := 0; id < h.NumConnections(); id++ {
		req, ok := h.DequeueRequest(id)
		if !ok {
			continue
		}

		switch req.Kind {
		case msg.PredictorQuery:
			h.SendResponse(id, h.query(req.Inst))
		case msg.PredictorTargetUpdate:
			h.targets[req.Inst.Address] = req.Target
		}
	}
}

func (h *HardwiredPredictor) PrintStatistics() []link.Stat {
	return []link.Stat{
		{Name: h.Name() + ".queries", Value: fmt.Sprintf("%d", h.queries)},
		{Name: h.Name() + ".hits", Value: fmt.Sprintf("%d", h.hits)},
	}
}
