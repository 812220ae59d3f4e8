package components

import (
	"fmt"

	"github.com/sarchlab/sinuca-go/link"
	"github.com/sarchlab/sinuca-go/msg"
)

type delayedEntry[T any] struct {
	value T
	due   uint64
}

// DelayQueue holds every message it receives for a fixed number of cycles
// before forwarding it to a single downstream sink, in arrival order,
// respecting the sink's connection capacity as backpressure. A zero delay
// degenerates to a direct pass-through.
type DelayQueue[T any] struct {
	*link.Base[T]

	sendTo     link.RequestSink[T]
	sendToID   int
	delay      int
	throughput int

	now   uint64
	ring  []delayedEntry[T]

	numForwarded, numDropped uint64
}

// NewDelayQueue constructs a delay queue under name.
func NewDelayQueue[T any](name string) *DelayQueue[T] {
	return &DelayQueue[T]{Base: link.NewBase[T](name)}
}

func (q *DelayQueue[T]) Configure(key string, value link.ConfigValue) error {
	switch key {
	case "delay":
		if value.Kind != link.ConfigInteger || value.Integer < 0 {
			return fmt.Errorf("delay must be a non-negative integer")
		}
		q.delay = int(value.Integer)
	case "throughput":
		if value.Kind != link.ConfigInteger || value.Integer <= 0 {
			return fmt.Errorf("throughput must be a positive integer")
		}
		q.throughput = int(value.Integer)
	case "sendTo":
		sink, ok := value.Component.(link.RequestSink[T])
		if value.Kind != link.ConfigComponentRef || !ok {
			return fmt.Errorf("sendTo must be a component accepting this queue's message type")
		}
		q.sendTo = sink
	default:
		return fmt.Errorf("unknown parameter %q", key)
	}
	return nil
}

func (q *DelayQueue[T]) FinishSetup() error {
	if q.sendTo == nil {
		return fmt.Errorf("delay queue %q: required parameter \"sendTo\" not provided", q.Name())
	}
	if q.throughput <= 0 {
		return fmt.Errorf("delay queue %q: required parameter \"throughput\" not provided", q.Name())
	}
	q.sendToID = q.sendTo.Connect(q.throughput)
	// delayBufferSize: enough slots for a full delay's worth of cycles at
	// full throughput, matching the reference implementation's sizing.
	q.ring = make([]delayedEntry[T], 0, q.delay*q.throughput)
	return nil
}

func (q *DelayQueue[T]) Clock() {
	defer func() { q.now++ }()

	if q.delay == 0 {
		for id := 0; id < q.NumConnections(); id++ {
			for {
				req, ok := q.DequeueRequest(id)
				if !ok {
					break
				}
				if !q.sendTo.SendRequest(q.sendToID, req) {
					q.numDropped++
					return
				}
				q.numForwarded++
			}
		}
		return
	}

	drained := 0
	for len(q.ring) > 0 && q.ring[0].due <= q.now {
		if !q.sendTo.SendRequest(q.sendToID, q.ring[0].value) {
			q.numDropped++
			return
		}
		q.numForwarded++
		q.ring = q.ring[1:]
		drained++
	}

	for id := 0; id < q.NumConnections(); id++ {
		for {
			req, ok := q.DequeueRequest(id)
			if !ok {
				break
			}
			q.ring = append(q.ring, delayedEntry[T]{value: req, due: q.now + uint64(q.delay)})
		}
	}
}

func (q *DelayQueue[T]) PrintStatistics() []link.Stat {
	return []link.Stat{
		{Name: q.Name() + ".forwarded", Value: fmt.Sprintf("%d", q.numForwarded)},
		{Name: q.Name() + ".dropped", Value: fmt.Sprintf("%d", q.numDropped)},
	}
}

// NewMemDelayQueue constructs a DelayQueue[msg.MemPacket] under name.
func NewMemDelayQueue(name string) link.Linkable { return NewDelayQueue[msg.MemPacket](name) }

// NewPredictorDelayQueue constructs a DelayQueue[msg.PredictorPacket] under name.
func NewPredictorDelayQueue(name string) link.Linkable {
	return NewDelayQueue[msg.PredictorPacket](name)
}
