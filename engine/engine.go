// Package engine implements the synchronous clock loop that drives every
// component through Clock and PosClock each cycle, and the fetch pump that
// turns a trace.Reader's per-thread instruction stream into FetchPacket
// responses for the components connected to it.
package engine

import (
	"context"
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/sarchlab/sinuca-go/link"
	"github.com/sarchlab/sinuca-go/msg"
	"github.com/sarchlab/sinuca-go/trace"
)

// heartbeatPeriod is how often, in cycles, the engine logs progress. The
// snapshot for the run monitor is published every cycle, not on this
// cadence. The reference engine prints its own timing line on the same
// cadence.
const heartbeatPeriod = 256

// Reader is the subset of trace.Reader the engine depends on, declared
// here so tests can substitute a fake without the trace package's file
// I/O.
type Reader interface {
	Name() string
	Fetch(tid int) (msg.Packet, trace.FetchResult)
	TotalThreads() int
	TotalInstructions(tid int) uint64
	PrintStatistics() []link.Stat
}

// State names the engine's position in its built -> simulating ->
// ended/errored lifecycle.
type State string

const (
	StateBuilt      State = "built"
	StateSimulating State = "simulating"
	StateEnded      State = "ended"
	StateErrored    State = "errored"
)

// Snapshot is the point-in-time progress a running simulation exposes to
// the optional HTTP monitor.
type Snapshot struct {
	State               State
	Cycle               uint64
	FetchedInstructions uint64
	TotalInstructions   uint64
}

// Engine is itself a Linkable: it occupies position zero in the component
// vector and drives the fetch side of every connected fetcher through its
// own Clock. Its fetchBuffers hold a one-instruction lookahead per
// connection, exactly mirroring the reference engine's SendBufferedAndFetch.
type Engine struct {
	*link.Base[msg.FetchPacket]

	components []link.Linkable
	reader     Reader

	fetchBuffers []msg.Packet

	totalCycles         uint64
	fetchedInstructions uint64
	traceSize           uint64

	end, errored bool

	snapshot atomic.Pointer[Snapshot]
}

// New constructs an engine. Connect must be called once per fetcher before
// FinishSetup; components, the flat vector the clock loop drives each
// cycle (with the engine itself at index 0), is supplied to Simulate.
func New(name string) *Engine {
	return &Engine{Base: link.NewBase[msg.FetchPacket](name)}
}

func (e *Engine) Configure(string, link.ConfigValue) error { return nil }

func (e *Engine) FinishSetup() error { return nil }

// Clock drains one pending fetch request per connection and answers it
// from that fetcher's lookahead buffer, exactly as the reference engine's
// Clock iterates its connections.
func (e *Engine) Clock() {
	for id := 0; id < e.NumConnections(); id++ {
		req, ok := e.DequeueRequest(id)
		if !ok {
			continue
		}
		e.fetch(id, req)
	}
}

// fetch answers one fetch request on connection id, advancing the
// lookahead buffer for every instruction it sends. A zero byte budget
// means "exactly one instruction regardless of size" and is handled as a
// direct send; otherwise it keeps a weight equal to the sizes already sent
// plus the size of the instruction now in the lookahead buffer, and sends
// that instruction while the weight is below the budget — so a budget no
// larger than the instruction currently in the lookahead buffer sends
// nothing at all this cycle, matching the reference engine exactly.
func (e *Engine) fetch(id int, req msg.FetchPacket) {
	if req.Kind != msg.FetchRequest {
		return
	}

	if req.ByteBudget == 0 {
		e.sendBufferedAndFetch(id)
		return
	}

	weight := int(e.fetchBuffers[id].Static.Length)
	for weight < req.ByteBudget {
		if e.sendBufferedAndFetch(id) {
			return
		}
		weight += int(e.fetchBuffers[id].Static.Length)
	}
}

// sendBufferedAndFetch sends the instruction currently sitting in
// connection id's lookahead buffer, then replaces it with the next
// instruction the trace reader produces for that thread. It returns true
// once the simulation has ended or errored, so callers can stop looping.
func (e *Engine) sendBufferedAndFetch(id int) bool {
	toSend := e.fetchBuffers[id]

	next, result := e.reader.Fetch(id)
	if result == trace.FetchOk {
		e.fetchBuffers[id] = next
		toSend.NextAddress = next.Static.Address
	}

	if !e.SendResponse(id, msg.NewFetchResponse(toSend)) {
		slog.Warn("engine: fetch response dropped, connection full", "fetcher", id)
	}

	switch result {
	case trace.FetchEnd:
		e.end = true
		return true
	case trace.FetchError:
		e.errored = true
		return true
	}

	e.fetchedInstructions++

	return false
}

func (e *Engine) PrintStatistics() []link.Stat {
	return []link.Stat{
		{Name: "engine.cycles", Value: fmt.Sprintf("%d", e.totalCycles)},
		{Name: "engine.fetchedInstructions", Value: fmt.Sprintf("%d", e.fetchedInstructions)},
		{Name: "engine.overflows", Value: fmt.Sprintf("%d", e.Overflows())},
	}
}

// Snapshot returns the most recently published progress snapshot. Safe to
// call concurrently with a running Simulate, which is the only place that
// publishes one.
func (e *Engine) Snapshot() Snapshot {
	if s := e.snapshot.Load(); s != nil {
		return *s
	}

	return Snapshot{State: StateBuilt}
}

func (e *Engine) publish(state State) {
	e.snapshot.Store(&Snapshot{
		State:               state,
		Cycle:               e.totalCycles,
		FetchedInstructions: e.fetchedInstructions,
		TotalInstructions:   e.traceSize,
	})
}

// setupSimulation primes every connection's lookahead buffer with that
// thread's first instruction, matching the reference engine's
// SetupSimulation.
func (e *Engine) setupSimulation(reader Reader) error {
	n := e.NumConnections()
	e.reader = reader
	e.fetchBuffers = make([]msg.Packet, n)

	for id := 0; id < n; id++ {
		pkt, result := reader.Fetch(id)
		if result != trace.FetchOk {
			return fmt.Errorf("engine: priming fetcher %d: %s", id, result)
		}
		e.fetchBuffers[id] = pkt
		e.fetchedInstructions++
	}

	var total uint64
	for tid := 0; tid < reader.TotalThreads(); tid++ {
		total += reader.TotalInstructions(tid)
	}
	e.traceSize = total

	return nil
}

// Simulate runs the synchronous clock loop until the trace reader reports
// the end of any fetcher's trace or a fetch error aborts the run: each
// cycle, Clock then PosClock is invoked on every component in order — the
// engine itself included, at index 0 — after which the cycle counter
// advances and a progress snapshot is published. A heartbeat is logged
// every heartbeatPeriod cycles.
func (e *Engine) Simulate(ctx context.Context, reader Reader, components []link.Linkable) ([]link.Stat, error) {
	e.components = components

	if err := e.setupSimulation(reader); err != nil {
		e.errored = true
		e.publish(StateErrored)
		return nil, err
	}

	e.publish(StateSimulating)
	slog.Info("engine: simulation started", "total_instructions", e.traceSize, "components", len(components))

	start := time.Now()

	for !e.end && !e.errored {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		default:
		}

		if (e.totalCycles+1)%heartbeatPeriod == 0 {
			e.heartbeat(start, e.totalCycles+1)
		}

		for _, c := range e.components {
			c.Clock()
		}
		for _, c := range e.components {
			c.PosClock()
		}

		e.totalCycles++
		e.publish(StateSimulating)
	}

	state := StateEnded
	if e.errored {
		state = StateErrored
	}
	e.publish(state)

	var stats []link.Stat
	for _, c := range e.components {
		stats = append(stats, c.PrintStatistics()...)
	}

	elapsed := time.Since(start)
	slog.Info("engine: simulation finished",
		"state", state,
		"cycles", e.totalCycles,
		"fetchedInstructions", e.fetchedInstructions,
		"elapsed", elapsed,
	)

	if e.errored {
		return stats, fmt.Errorf("engine: simulation aborted after %d cycles: trace reader reported an error", e.totalCycles)
	}

	return stats, nil
}

func (e *Engine) heartbeat(start time.Time, cycle uint64) {
	elapsed := time.Since(start)

	remaining := e.traceSize - e.fetchedInstructions
	var eta time.Duration
	if e.fetchedInstructions > 0 {
		perInst := elapsed / time.Duration(e.fetchedInstructions)
		eta = perInst * time.Duration(remaining)
	}

	attrs := []any{
		"cycle", cycle,
		"fetchedInstructions", e.fetchedInstructions,
		"totalInstructions", e.traceSize,
		"elapsed", elapsed,
		"eta", eta,
	}
	if rss, cpu, err := sampleProcess(); err == nil {
		attrs = append(attrs, "rssBytes", rss, "cpuPercent", cpu)
	}

	slog.Info("engine: heartbeat", attrs...)
}
