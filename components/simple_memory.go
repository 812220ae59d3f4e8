package components

import (
	"fmt"

	"github.com/sarchlab/sinuca-go/link"
	"github.com/sarchlab/sinuca-go/msg"
)

// SimpleMemory answers every request with the same packet, one cycle later,
// and otherwise does nothing: the reference "perfect memory" model every
// other component's timing is measured against.
type SimpleMemory struct {
	*link.Base[msg.MemPacket]

	numRequests uint64
}

// NewSimpleMemory constructs a memory-packet responder under name.
func NewSimpleMemory(name string) link.Linkable {
	return &SimpleMemory{Base: link.NewBase[msg.MemPacket](name)}
}

func (m *SimpleMemory) Configure(key string, value link.ConfigValue) error {
	return fmt.Errorf("unknown parameter %q", key)
}

func (m *SimpleMemory) FinishSetup() error { return nil }

func (m *SimpleMemory) Clock() {
	for id := 0; id < m.NumConnections(); id++ {
		req, ok := m.DequeueRequest(id)
		if !ok {
			continue
		}
		m.numRequests++
		m.SendResponse(id, req)
	}
}

func (m *SimpleMemory) PrintStatistics() []link.Stat {
	return []link.Stat{{Name: m.Name() + ".requests", Value: fmt.Sprintf("%d", m.numRequests)}}
}

// SimpleInstructionMemory answers every request with the same packet, one
// cycle later, and optionally forwards a copy to a downstream component
// instead of ever responding directly, matching the reference instruction
// memory's pass-through mode.
type SimpleInstructionMemory struct {
	*link.Base[msg.MemPacket]

	forwardTo link.Linkable
	forwardID int

	numRequests uint64
}

// NewSimpleInstructionMemory constructs an instruction-memory responder
// under name.
func NewSimpleInstructionMemory(name string) link.Linkable {
	return &SimpleInstructionMemory{Base: link.NewBase[msg.MemPacket](name)}
}

func (m *SimpleInstructionMemory) Configure(key string, value link.ConfigValue) error {
	if key != "forwardTo" {
		return fmt.Errorf("unknown parameter %q", key)
	}
	if value.Kind != link.ConfigComponentRef || value.Component == nil {
		return fmt.Errorf("forwardTo must be a component reference")
	}
	if _, ok := value.Component.(memSink); !ok {
		return fmt.Errorf("forwardTo does not accept memory packets")
	}
	m.forwardTo = value.Component
	return nil
}

// memSink is the capability test for "accepts memory-packet requests",
// satisfied by every link.RequestSink[msg.MemPacket].
type memSink = link.RequestSink[msg.MemPacket]

func (m *SimpleInstructionMemory) FinishSetup() error {
	if m.forwardTo != nil {
		sink := m.forwardTo.(memSink)
		m.forwardID = sink.Connect(defaultConnectionCapacity)
	}
	return nil
}

func (m *SimpleInstructionMemory) Clock() {
	for id := 0; id < m.NumConnections(); id++ {
		req, ok := m.DequeueRequest(id)
		if !ok {
			continue
		}
		m.numRequests++

		if m.forwardTo != nil {
			m.forwardTo.(memSink).SendRequest(m.forwardID, req)
			continue
		}
		m.SendResponse(id, req)
	}
}

func (m *SimpleInstructionMemory) PrintStatistics() []link.Stat {
	return []link.Stat{{Name: m.Name() + ".requests", Value: fmt.Sprintf("%d", m.numRequests)}}
}
