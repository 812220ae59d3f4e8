package components

import (
	"fmt"

	"github.com/sarchlab/sinuca-go/link"
	"github.com/sarchlab/sinuca-go/msg"
)

// RAS is a fixed-size circular return-address stack: a target update (sent
// on a call) pushes its target, and a query (sent on a return) pops the
// most recently pushed target, giving exact LIFO behavior as long as calls
// and returns stay balanced within the stack's depth.
type RAS struct {
	*link.Base[msg.PredictorPacket]

	size int

	entries []uint64
	end     int
	count   int

	pushes, pops, underflows, overflows uint64
}

// NewRAS constructs a return-address stack with no depth; the "size"
// configuration parameter sets it and is required by FinishSetup.
func NewRAS(name string) link.Linkable {
	return &RAS{Base: link.NewBase[msg.PredictorPacket](name)}
}

func (r *RAS) Configure(key string, value link.ConfigValue) error {
	if key != "size" {
		return fmt.Errorf("unknown parameter %q", key)
	}
	if value.Kind != link.ConfigInteger || value.Integer <= 0 {
		return fmt.Errorf("size must be a positive integer")
	}
	r.size = int(value.Integer)
	return nil
}

func (r *RAS) FinishSetup() error {
	if r.size <= 0 {
		return fmt.Errorf("RAS %q: required parameter \"size\" not provided", r.Name())
	}
	r.entries = make([]uint64, r.size)
	return nil
}

// push installs target at the current top and advances it, overwriting the
// oldest entry once the stack is full (the original's own behavior: it
// never blocks a call, it just loses the deepest return address).
func (r *RAS) push(target uint64) {
	r.pushes++
	if r.count == r.size {
		r.overflows++
	} else {
		r.count++
	}
	r.entries[r.end] = target
	r.end = (r.end + 1) % r.size
}

// pop retreats the top pointer and reads the most recently pushed address.
func (r *RAS) pop() (uint64, bool) {
	r.pops++
	if r.count == 0 {
		r.underflows++
		return 0, false
	}
	r.end = (r.end - 1 + r.size) % r.size
	r.count--
	return r.entries[r.end], true
}

func (r *RAS) Clock() {
	for id := 0; id < r.NumConnections(); id++ {
		req, ok := r.DequeueRequest(id)
		if !ok {
			continue
		}

		switch req.Kind {
		case msg.PredictorQuery:
			if target, ok := r.pop(); ok {
				r.SendResponse(id, msg.NewPredictorTakeToAddress(target))
			} else {
				r.SendResponse(id, msg.PredictorPacket{Kind: msg.PredictorUnknown})
			}
		case msg.PredictorTargetUpdate:
			r.push(req.Target)
		}
	}
}

func (r *RAS) PrintStatistics() []link.Stat {
	return []link.Stat{
		{Name: r.Name() + ".pushes", Value: fmt.Sprintf("%d", r.pushes)},
		{Name: r.Name() + ".pops", Value: fmt.Sprintf("%d", r.pops)},
		{Name: r.Name() + ".underflows", Value: fmt.Sprintf("%d", r.underflows)},
		{Name: r.Name() + ".overflows", Value: fmt.Sprintf("%d", r.overflows)},
	}
}
