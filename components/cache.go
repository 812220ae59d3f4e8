package components

import (
	"fmt"
	"math/bits"

	"github.com/sarchlab/sinuca-go/link"
	"github.com/sarchlab/sinuca-go/msg"
)

type cacheLine struct {
	valid bool
	tag   uint64
}

// Cache is an n-way set-associative memory packet responder: on a lookup
// that hits, it simply replies; on a miss, it picks a victim through its
// configured replacement policy, installs the new line, and still replies —
// a perfect-memory model that never penalizes a miss with extra latency.
type Cache struct {
	*link.Base[msg.MemPacket]

	sets, ways int
	offsetBits int
	indexBits  int
	policyKind PolicyKind

	lines   [][]cacheLine
	policy  Policy

	numRequests, numHits, numMisses, numEvictions uint64
}

// NewCache constructs a cache accepting memory packets under name.
func NewCache(name string) link.Linkable {
	return &Cache{Base: link.NewBase[msg.MemPacket](name), offsetBits: 6, policyKind: PolicyLRU}
}

func (c *Cache) Configure(key string, value link.ConfigValue) error {
	switch key {
	case "sets":
		if value.Kind != link.ConfigInteger || value.Integer <= 0 {
			return fmt.Errorf("sets must be a positive integer")
		}
		c.sets = int(value.Integer)
	case "ways":
		if value.Kind != link.ConfigInteger || value.Integer <= 0 {
			return fmt.Errorf("ways must be a positive integer")
		}
		c.ways = int(value.Integer)
	case "offsetBits":
		if value.Kind != link.ConfigInteger || value.Integer < 0 {
			return fmt.Errorf("offsetBits must be a non-negative integer")
		}
		c.offsetBits = int(value.Integer)
	case "policy":
		// The config format has no string-valued parameter kind (matching
		// the reference builder's ConfigValueType enum, which stops at
		// integer/number/boolean/array/component-reference), so policy
		// selection is an enum encoded as an integer, exactly as the
		// reference cache's SetReplacementPolicy(ReplacementPoliciesID) does.
		if value.Kind != link.ConfigInteger {
			return fmt.Errorf("policy must be an integer (%d=lru, %d=random, %d=round_robin)", PolicyLRUID, PolicyRandomID, PolicyRoundRobinID)
		}
		kind, ok := policyKindFromID(int(value.Integer))
		if !ok {
			return fmt.Errorf("policy %d is not one of %d=lru, %d=random, %d=round_robin", value.Integer, PolicyLRUID, PolicyRandomID, PolicyRoundRobinID)
		}
		c.policyKind = kind
	default:
		return fmt.Errorf("unknown parameter %q", key)
	}
	return nil
}

func (c *Cache) FinishSetup() error {
	if c.sets <= 0 {
		return fmt.Errorf("cache %q: required parameter \"sets\" not provided", c.Name())
	}
	if c.ways <= 0 {
		return fmt.Errorf("cache %q: required parameter \"ways\" not provided", c.Name())
	}
	if c.sets&(c.sets-1) != 0 {
		return fmt.Errorf("cache %q: \"sets\" must be a power of two, got %d", c.Name(), c.sets)
	}

	c.indexBits = bits.Len(uint(c.sets - 1))
	c.lines = make([][]cacheLine, c.sets)
	for i := range c.lines {
		c.lines[i] = make([]cacheLine, c.ways)
	}

	policy, err := NewPolicy(c.policyKind, c.sets, c.ways)
	if err != nil {
		return err
	}
	c.policy = policy

	return nil
}

func (c *Cache) index(addr uint64) int {
	return int((addr >> uint(c.offsetBits)) & uint64(c.sets-1))
}

func (c *Cache) tag(addr uint64) uint64 {
	return addr >> uint(c.offsetBits+c.indexBits)
}

func (c *Cache) lookup(addr uint64) (way int, hit bool) {
	set := c.index(addr)
	tag := c.tag(addr)
	for way, line := range c.lines[set] {
		if line.valid && line.tag == tag {
			return way, true
		}
	}
	return 0, false
}

func (c *Cache) install(addr uint64) {
	set := c.index(addr)
	tag := c.tag(addr)

	for way := range c.lines[set] {
		if !c.lines[set][way].valid {
			c.lines[set][way] = cacheLine{valid: true, tag: tag}
			c.policy.Access(set, way)
			return
		}
	}

	victim := c.policy.SelectVictim(set)
	c.numEvictions++
	c.lines[set][victim] = cacheLine{valid: true, tag: tag}
	c.policy.Access(set, victim)
}

func (c *Cache) Clock() {
	for id := 0; id < c.NumConnections(); id++ {
		req, ok := c.DequeueRequest(id)
		if !ok {
			continue
		}
		c.numRequests++

		if way, hit := c.lookup(req.Address); hit {
			c.numHits++
			c.policy.Access(c.index(req.Address), way)
		} else {
			c.numMisses++
			c.install(req.Address)
		}

		c.SendResponse(id, req)
	}
}

func (c *Cache) PrintStatistics() []link.Stat {
	return []link.Stat{
		{Name: c.Name() + ".requests", Value: fmt.Sprintf("%d", c.numRequests)},
		{Name: c.Name() + ".hits", Value: fmt.Sprintf("%d", c.numHits)},
		{Name: c.Name() + ".misses", Value: fmt.Sprintf("%d", c.numMisses)},
		{Name: c.Name() + ".evictions", Value: fmt.Sprintf("%d", c.numEvictions)},
	}
}
