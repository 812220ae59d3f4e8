package components

import (
	"fmt"
	"math/bits"

	"github.com/sarchlab/sinuca-go/link"
	"github.com/sarchlab/sinuca-go/msg"
)

type tlbRequest struct {
	connID int
	addr   uint64
}

// ITLB is a fixed-capacity n-way cache of virtual-page validity: a hit
// answers immediately, a miss pays a configurable penalty before answering
// and installs the page via the same pluggable replacement policy the cache
// uses. Requests queue FIFO; only one is in flight (possibly paying its
// penalty) at a time, matching the reference iTLB's single pendingRequests
// queue plus currentPenalty counter.
type ITLB struct {
	*link.Base[msg.MemPacket]

	entries    int
	ways       int
	pageBits   int
	missPenalty int
	policyKind PolicyKind

	sets      int
	indexBits int
	lines     [][]cacheLine
	policy    Policy

	pending        []tlbRequest
	current        tlbRequest
	hasCurrent     bool
	remainingPenalty int

	numRequests, numHits, numMisses uint64
}

// NewITLB constructs an instruction-TLB memory responder under name.
func NewITLB(name string) link.Linkable {
	return &ITLB{Base: link.NewBase[msg.MemPacket](name), pageBits: 12, policyKind: PolicyLRU}
}

func (t *ITLB) Configure(key string, value link.ConfigValue) error {
	switch key {
	case "entries":
		if value.Kind != link.ConfigInteger || value.Integer <= 0 {
			return fmt.Errorf("entries must be a positive integer")
		}
		t.entries = int(value.Integer)
	case "associativity":
		if value.Kind != link.ConfigInteger || value.Integer <= 0 {
			return fmt.Errorf("associativity must be a positive integer")
		}
		t.ways = int(value.Integer)
	case "missPenalty":
		if value.Kind != link.ConfigInteger || value.Integer < 0 {
			return fmt.Errorf("missPenalty must be a non-negative integer")
		}
		t.missPenalty = int(value.Integer)
	case "pageSize":
		if value.Kind != link.ConfigInteger || value.Integer <= 0 {
			return fmt.Errorf("pageSize must be a positive integer")
		}
		bitsLen := bits.Len(uint(value.Integer - 1))
		t.pageBits = bitsLen
	case "policy":
		if value.Kind != link.ConfigInteger {
			return fmt.Errorf("policy must be an integer (%d=lru, %d=random, %d=round_robin)", PolicyLRUID, PolicyRandomID, PolicyRoundRobinID)
		}
		kind, ok := policyKindFromID(int(value.Integer))
		if !ok {
			return fmt.Errorf("policy %d is not one of %d=lru, %d=random, %d=round_robin", value.Integer, PolicyLRUID, PolicyRandomID, PolicyRoundRobinID)
		}
		t.policyKind = kind
	default:
		return fmt.Errorf("unknown parameter %q", key)
	}
	return nil
}

func (t *ITLB) FinishSetup() error {
	if t.entries <= 0 {
		return fmt.Errorf("iTLB %q: required parameter \"entries\" not provided", t.Name())
	}
	if t.ways <= 0 {
		return fmt.Errorf("iTLB %q: required parameter \"associativity\" not provided", t.Name())
	}

	t.sets = t.entries / t.ways
	if t.sets <= 0 {
		t.sets = 1
	}
	if t.sets&(t.sets-1) != 0 {
		return fmt.Errorf("iTLB %q: entries/associativity (%d) must be a power of two", t.Name(), t.sets)
	}
	t.indexBits = bits.Len(uint(t.sets - 1))

	t.lines = make([][]cacheLine, t.sets)
	for i := range t.lines {
		t.lines[i] = make([]cacheLine, t.ways)
	}

	policy, err := NewPolicy(t.policyKind, t.sets, t.ways)
	if err != nil {
		return err
	}
	t.policy = policy

	return nil
}

func (t *ITLB) page(addr uint64) uint64 { return addr >> uint(t.pageBits) }

func (t *ITLB) index(page uint64) int { return int(page & uint64(t.sets-1)) }

func (t *ITLB) tag(page uint64) uint64 { return page >> uint(t.indexBits) }

func (t *ITLB) lookup(addr uint64) bool {
	page := t.page(addr)
	set := t.index(page)
	tag := t.tag(page)
	for way, line := range t.lines[set] {
		if line.valid && line.tag == tag {
			t.policy.Access(set, way)
			return true
		}
	}
	return false
}

func (t *ITLB) install(addr uint64) {
	page := t.page(addr)
	set := t.index(page)
	tag := t.tag(page)

	for way := range t.lines[set] {
		if !t.lines[set][way].valid {
			t.lines[set][way] = cacheLine{valid: true, tag: tag}
			t.policy.Access(set, way)
			return
		}
	}

	victim := t.policy.SelectVictim(set)
	t.lines[set][victim] = cacheLine{valid: true, tag: tag}
	t.policy.Access(set, victim)
}

// Clock accepts one new request per connection into the FIFO every cycle,
// then advances whatever request is currently being serviced: paying down
// its remaining miss penalty if any, or — once idle — popping the next
// queued request and answering it immediately on a hit, or starting its
// penalty countdown on a miss.
func (t *ITLB) Clock() {
	for id := 0; id < t.NumConnections(); id++ {
		req, ok := t.DequeueRequest(id)
		if !ok {
			continue
		}
		t.numRequests++
		t.pending = append(t.pending, tlbRequest{connID: id, addr: req.Address})
	}

	if t.remainingPenalty > 0 {
		t.remainingPenalty--
		if t.remainingPenalty == 0 {
			t.SendResponse(t.current.connID, msg.MemPacket{Address: t.current.addr})
		}
		return
	}

	if !t.hasCurrent {
		if len(t.pending) == 0 {
			return
		}
		t.current = t.pending[0]
		t.pending = t.pending[1:]
		t.hasCurrent = true
	}

	req := t.current
	t.hasCurrent = false

	if t.lookup(req.addr) {
		t.numHits++
		t.SendResponse(req.connID, msg.MemPacket{Address: req.addr})
		return
	}

	t.numMisses++
	t.install(req.addr)
	if t.missPenalty == 0 {
		t.SendResponse(req.connID, msg.MemPacket{Address: req.addr})
		return
	}
	t.current = req
	t.remainingPenalty = t.missPenalty
}

func (t *ITLB) PrintStatistics() []link.Stat {
	return []link.Stat{
		{Name: t.Name() + ".requests", Value: fmt.Sprintf("%d", t.numRequests)},
		{Name: t.Name() + ".hits", Value: fmt.Sprintf("%d", t.numHits)},
		{Name: t.Name() + ".misses", Value: fmt.Sprintf("%d", t.numMisses)},
	}
}
