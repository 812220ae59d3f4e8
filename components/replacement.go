// Package components implements the standard library of simulated hardware
// blocks: memories, caches, a simple core, branch-prediction structures, and
// the generic queueing components that wire them together.
package components

// Policy picks a victim way within a set and is notified of every hit so it
// can update its own bookkeeping. One Policy instance is shared across every
// set of the cache or iTLB that owns it, sized by sets*ways at construction.
type Policy interface {
	// Access records a hit or fill at (set, way).
	Access(set, way int)
	// SelectVictim picks the way to evict within set.
	SelectVictim(set int) int
}

// PolicyKind names the three replacement strategies the cache and the iTLB
// both support.
type PolicyKind string

const (
	PolicyLRU        PolicyKind = "lru"
	PolicyRandom     PolicyKind = "random"
	PolicyRoundRobin PolicyKind = "round_robin"
)

// The `policy` configuration parameter has no string-valued config kind to
// carry a name, so it is encoded as an integer enum, matching the reference
// builder's ConfigValueType (integer/number/boolean/array/component-reference
// only) and the reference cache's ReplacementPoliciesID.
const (
	PolicyLRUID = iota
	PolicyRandomID
	PolicyRoundRobinID
)

func policyKindFromID(id int) (PolicyKind, bool) {
	switch id {
	case PolicyLRUID:
		return PolicyLRU, true
	case PolicyRandomID:
		return PolicyRandom, true
	case PolicyRoundRobinID:
		return PolicyRoundRobin, true
	default:
		return "", false
	}
}

// NewPolicy constructs the replacement policy named by kind for a structure
// with the given number of sets and ways per set.
func NewPolicy(kind PolicyKind, sets, ways int) (Policy, error) {
	switch kind {
	case PolicyLRU:
		return newLRUPolicy(sets, ways), nil
	case PolicyRandom:
		return newRandomPolicy(sets, ways), nil
	case PolicyRoundRobin:
		return newRoundRobinPolicy(sets, ways), nil
	default:
		return nil, &unknownPolicyError{kind}
	}
}

type unknownPolicyError struct{ kind PolicyKind }

func (e *unknownPolicyError) Error() string {
	return "components: unknown replacement policy " + string(e.kind)
}

// lruPolicy tracks a monotonic use-counter per way, per set; the victim is
// whichever way has the smallest counter (the one accessed longest ago).
type lruPolicy struct {
	ways    int
	counter uint64
	age     [][]uint64
}

func newLRUPolicy(sets, ways int) *lruPolicy {
	age := make([][]uint64, sets)
	for i := range age {
		age[i] = make([]uint64, ways)
	}
	return &lruPolicy{ways: ways, age: age}
}

func (p *lruPolicy) Access(set, way int) {
	p.counter++
	p.age[set][way] = p.counter
}

func (p *lruPolicy) SelectVictim(set int) int {
	victim := 0
	for way := 1; way < p.ways; way++ {
		if p.age[set][way] < p.age[set][victim] {
			victim = way
		}
	}
	return victim
}

// randomPolicy picks a victim uniformly at random among the set's ways. It
// uses its own deterministic generator rather than math/rand's global one so
// a simulation run is reproducible from its configuration alone.
type randomPolicy struct {
	ways  int
	state uint64
}

func newRandomPolicy(sets, ways int) *randomPolicy {
	_ = sets
	return &randomPolicy{ways: ways, state: 0x2545F4914F6CDD1D}
}

func (p *randomPolicy) Access(set, way int) {}

func (p *randomPolicy) SelectVictim(set int) int {
	// xorshift64*: cheap, deterministic, good enough for victim selection.
	p.state ^= p.state >> 12
	p.state ^= p.state << 25
	p.state ^= p.state >> 27
	r := p.state * 0x2545F4914F6CDD1D
	return int(r % uint64(p.ways))
}

// roundRobinPolicy cycles through a set's ways in order, one victim further
// every time that set is evicted from, regardless of which way was hit.
type roundRobinPolicy struct {
	ways int
	next []int
}

func newRoundRobinPolicy(sets, ways int) *roundRobinPolicy {
	return &roundRobinPolicy{ways: ways, next: make([]int, sets)}
}

func (p *roundRobinPolicy) Access(set, way int) {}

func (p *roundRobinPolicy) SelectVictim(set int) int {
	victim := p.next[set]
	p.next[set] = (victim + 1) % p.ways
	return victim
}
