// Package link implements the message-passing substrate every hardware
// component plugs into: typed, double-buffered connections with
// deterministic one-cycle propagation latency, and the Linkable contract
// components satisfy to be driven by the engine.
package link

import (
	"fmt"
	"log/slog"

	"github.com/sarchlab/sinuca-go/ringbuffer"
)

// peerBank/ownerBank name the two banks of a connection's request and
// response buffers. A message written to peerBank by the peer becomes
// visible to the owner at ownerBank only after the next Swap — and
// symmetrically for responses. This is the one-cycle latency guarantee.
const (
	peerBank  = 0
	ownerBank = 1
)

// Connection owns four ring buffers — two banks each for requests and
// responses — for a single point-to-point link between an owner component
// (the one whose Connect method was invoked) and a peer (the caller).
type Connection[T any] struct {
	name     string
	capacity int

	req  [2]*ringbuffer.Buffer[T]
	resp [2]*ringbuffer.Buffer[T]

	overflows int
}

// NewConnection allocates a connection with the given per-bank capacity.
func NewConnection[T any](name string, capacity int) *Connection[T] {
	return &Connection[T]{
		name:     name,
		capacity: capacity,
		req:      [2]*ringbuffer.Buffer[T]{ringbuffer.New[T](capacity), ringbuffer.New[T](capacity)},
		resp:     [2]*ringbuffer.Buffer[T]{ringbuffer.New[T](capacity), ringbuffer.New[T](capacity)},
	}
}

// Name returns the connection's diagnostic name.
func (c *Connection[T]) Name() string { return c.name }

// Capacity returns the per-bank buffer capacity.
func (c *Connection[T]) Capacity() int { return c.capacity }

// Overflows returns the number of enqueue attempts this connection has
// dropped because a bank was full.
func (c *Connection[T]) Overflows() int { return c.overflows }

func (c *Connection[T]) enqueueRequest(msg T) bool {
	if ok := c.req[peerBank].Enqueue(msg); ok {
		return true
	}

	c.overflows++
	slog.Warn("link: request dropped, buffer full", "connection", c.name)

	return false
}

func (c *Connection[T]) dequeueRequest() (T, bool) {
	return c.req[ownerBank].Dequeue()
}

func (c *Connection[T]) enqueueResponse(msg T) bool {
	if ok := c.resp[ownerBank].Enqueue(msg); ok {
		return true
	}

	c.overflows++
	slog.Warn("link: response dropped, buffer full", "connection", c.name)

	return false
}

func (c *Connection[T]) dequeueResponse() (T, bool) {
	return c.resp[peerBank].Dequeue()
}

// swap exchanges the producer-visible and consumer-visible banks for both
// directions. Called once per cycle by the owning component's PosClock.
func (c *Connection[T]) swap() {
	c.req[0], c.req[1] = c.req[1], c.req[0]
	c.resp[0], c.resp[1] = c.resp[1], c.resp[0]
}

func (c *Connection[T]) String() string {
	return fmt.Sprintf("Connection(%s, cap=%d, overflows=%d)", c.name, c.capacity, c.overflows)
}
