package components

import (
	"fmt"

	"github.com/sarchlab/sinuca-go/link"
	"github.com/sarchlab/sinuca-go/msg"
)

// Queue forwards every message it receives, on any connection, to a single
// downstream sink, stopping for the rest of the cycle once the sink's
// connection is full (back-pressure). throughput, if nonzero, bounds how
// many messages may be forwarded in one cycle; zero means unbounded.
type Queue[T any] struct {
	*link.Base[T]

	sendTo     link.RequestSink[T]
	sendToID   int
	throughput int

	numForwarded, numDropped uint64
}

// NewQueue constructs a forwarding queue under name.
func NewQueue[T any](name string) *Queue[T] {
	return &Queue[T]{Base: link.NewBase[T](name)}
}

func (q *Queue[T]) Configure(key string, value link.ConfigValue) error {
	switch key {
	case "throughput":
		if value.Kind != link.ConfigInteger || value.Integer < 0 {
			return fmt.Errorf("throughput must be a non-negative integer")
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

func (q *Queue[T]) FinishSetup() error {
	if q.sendTo == nil {
		return fmt.Errorf("queue %q: required parameter \"sendTo\" not provided", q.Name())
	}
	capacity := q.throughput
	if capacity <= 0 {
		capacity = defaultConnectionCapacity
	}
	q.sendToID = q.sendTo.Connect(capacity)
	return nil
}

func (q *Queue[T]) Clock() {
	forwarded := 0
	for id := 0; id < q.NumConnections(); id++ {
		for {
			if q.throughput > 0 && forwarded >= q.throughput {
				return
			}
			req, ok := q.DequeueRequest(id)
			if !ok {
				break
			}
			if !q.sendTo.SendRequest(q.sendToID, req) {
				q.numDropped++
				return
			}
			q.numForwarded++
			forwarded++
		}
	}
}

func (q *Queue[T]) PrintStatistics() []link.Stat {
	return []link.Stat{
		{Name: q.Name() + ".forwarded", Value: fmt.Sprintf("%d", q.numForwarded)},
		{Name: q.Name() + ".dropped", Value: fmt.Sprintf("%d", q.numDropped)},
	}
}

// The registry only accepts untyped Factory funcs, so each message type the
// simulator moves around gets its own named queue class wrapping the
// generic implementation above.

// NewMemQueue constructs a Queue[msg.MemPacket] under name.
func NewMemQueue(name string) link.Linkable { return NewQueue[msg.MemPacket](name) }

// NewPredictorQueue constructs a Queue[msg.PredictorPacket] under name.
func NewPredictorQueue(name string) link.Linkable { return NewQueue[msg.PredictorPacket](name) }
