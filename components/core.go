package components

import (
	"fmt"

	"github.com/sarchlab/sinuca-go/link"
	"github.com/sarchlab/sinuca-go/msg"
)

type fetchSink = link.RequestSink[msg.FetchPacket]

// SimpleCore is a minimal in-order driver: every cycle it asks its fetch
// source for exactly one instruction (a zero byte-budget request), and when
// that cycle's response arrives it issues one instruction-memory request
// plus one data-memory request per read and write address the fetched
// instruction's dynamic part carries. It never stalls and never models
// cache/TLB latency itself — those costs live in the memory components it
// talks to.
type SimpleCore struct {
	name string

	fetch     fetchSink
	fetchID   int
	instrMem  memSink
	instrID   int
	dataMem   memSink
	dataID    int

	numFetches, numInstrRequests, numDataRequests uint64
}

// NewSimpleCore constructs a simple core under name.
func NewSimpleCore(name string) link.Linkable {
	return &SimpleCore{name: name}
}

func (c *SimpleCore) Name() string { return c.name }

func (c *SimpleCore) Configure(key string, value link.ConfigValue) error {
	if value.Kind != link.ConfigComponentRef || value.Component == nil {
		return fmt.Errorf("%s must be a component reference", key)
	}
	switch key {
	case "fetch":
		sink, ok := value.Component.(fetchSink)
		if !ok {
			return fmt.Errorf("fetch does not accept fetch requests")
		}
		c.fetch = sink
	case "instructionMemory":
		sink, ok := value.Component.(memSink)
		if !ok {
			return fmt.Errorf("instructionMemory does not accept memory requests")
		}
		c.instrMem = sink
	case "dataMemory":
		sink, ok := value.Component.(memSink)
		if !ok {
			return fmt.Errorf("dataMemory does not accept memory requests")
		}
		c.dataMem = sink
	default:
		return fmt.Errorf("unknown parameter %q", key)
	}
	return nil
}

func (c *SimpleCore) FinishSetup() error {
	if c.fetch == nil {
		return fmt.Errorf("core %q: required parameter \"fetch\" not provided", c.name)
	}
	if c.instrMem == nil {
		return fmt.Errorf("core %q: required parameter \"instructionMemory\" not provided", c.name)
	}
	if c.dataMem == nil {
		return fmt.Errorf("core %q: required parameter \"dataMemory\" not provided", c.name)
	}
	c.fetchID = c.fetch.Connect(defaultConnectionCapacity)
	c.instrID = c.instrMem.Connect(defaultConnectionCapacity)
	c.dataID = c.dataMem.Connect(defaultConnectionCapacity)
	return nil
}

// Clock follows the same dequeue-then-send shape as every peer of a
// connection-owning component in this simulator: it first drains whatever
// response arrived from the request it sent two cycles ago, then issues
// this cycle's fetch request.
func (c *SimpleCore) Clock() {
	resp, ok := c.fetch.DequeueResponse(c.fetchID)
	c.fetch.SendRequest(c.fetchID, msg.NewFetchRequest(0))
	c.numFetches++

	if !ok || resp.Kind != msg.FetchResponse {
		return
	}

	inst := resp.Inst
	if inst.Static == nil {
		return
	}

	c.instrMem.SendRequest(c.instrID, msg.MemPacket{Address: inst.Static.Address})
	c.numInstrRequests++

	if inst.Dynamic == nil {
		return
	}
	for i := uint8(0); i < inst.Dynamic.NumReads; i++ {
		c.dataMem.SendRequest(c.dataID, msg.MemPacket{Address: inst.Dynamic.Reads[i].Addr})
		c.numDataRequests++
	}
	for i := uint8(0); i < inst.Dynamic.NumWrites; i++ {
		c.dataMem.SendRequest(c.dataID, msg.MemPacket{Address: inst.Dynamic.Writes[i].Addr})
		c.numDataRequests++
	}
}

// PosClock is a no-op: a SimpleCore owns no connections of its own (it only
// holds peer handles into other components' connections), so there is
// nothing for it to bank-swap.
func (c *SimpleCore) PosClock() {}

func (c *SimpleCore) PrintStatistics() []link.Stat {
	return []link.Stat{
		{Name: c.name + ".fetches", Value: fmt.Sprintf("%d", c.numFetches)},
		{Name: c.name + ".instructionRequests", Value: fmt.Sprintf("%d", c.numInstrRequests)},
		{Name: c.name + ".dataRequests", Value: fmt.Sprintf("%d", c.numDataRequests)},
	}
}
