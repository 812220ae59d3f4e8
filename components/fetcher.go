package components

import (
	"fmt"

	"github.com/sarchlab/sinuca-go/link"
	"github.com/sarchlab/sinuca-go/msg"
)

type predictorSink = link.RequestSink[msg.PredictorPacket]

const (
	fetchFlagSentToMemory = 1 << iota
	fetchFlagSentToPredictor
	fetchFlagPredicted
)

type fetchBufferEntry struct {
	packet    msg.Packet
	predicted uint64
	flags     uint8
}

func (e *fetchBufferEntry) ready(needMemory, needPredictor bool) bool {
	if needMemory && e.flags&fetchFlagSentToMemory == 0 {
		return false
	}
	if needPredictor && e.flags&fetchFlagPredicted == 0 {
		return false
	}
	return true
}

// Fetcher sits between a core and the trace source, keeping a bounded
// lookahead buffer of not-yet-delivered instructions: each cycle it tops
// the buffer up from its fetch source, sends every not-yet-sent entry on to
// the instruction memory and the predictor, and hands the oldest
// fully-serviced entry back to whichever core asked for it this cycle. A
// predictor disagreement with the trace's recorded control flow flushes the
// buffer and idles the fetcher for a configurable misprediction penalty —
// this behavior has no working reference implementation to port (the
// original's Clock() for this component is an empty stub), so it follows
// the textual contract instead.
type Fetcher struct {
	*link.Base[msg.FetchPacket]

	fetch             fetchSink
	fetchID           int
	instructionMemory memSink
	instrID           int
	predictor         predictorSink
	predictorID       int

	fetchSize          int
	bufferCapacity     int
	mispredictPenalty  int

	buffer           []fetchBufferEntry
	penaltyRemaining int

	numFetched, numServed, numMispredicts uint64
}

// NewFetcher constructs a fetcher under name.
func NewFetcher(name string) link.Linkable {
	return &Fetcher{Base: link.NewBase[msg.FetchPacket](name), fetchSize: 1, bufferCapacity: 4}
}

func (f *Fetcher) Configure(key string, value link.ConfigValue) error {
	switch key {
	case "fetchSize":
		if value.Kind != link.ConfigInteger || value.Integer <= 0 {
			return fmt.Errorf("fetchSize must be a positive integer")
		}
		f.fetchSize = int(value.Integer)
	case "bufferCapacity":
		if value.Kind != link.ConfigInteger || value.Integer <= 0 {
			return fmt.Errorf("bufferCapacity must be a positive integer")
		}
		f.bufferCapacity = int(value.Integer)
	case "mispredictPenalty":
		if value.Kind != link.ConfigInteger || value.Integer < 0 {
			return fmt.Errorf("mispredictPenalty must be a non-negative integer")
		}
		f.mispredictPenalty = int(value.Integer)
	case "fetch":
		sink, ok := value.Component.(fetchSink)
		if value.Kind != link.ConfigComponentRef || !ok {
			return fmt.Errorf("fetch must be a component accepting fetch requests")
		}
		f.fetch = sink
	case "instructionMemory":
		sink, ok := value.Component.(memSink)
		if value.Kind != link.ConfigComponentRef || !ok {
			return fmt.Errorf("instructionMemory must be a component accepting memory requests")
		}
		f.instructionMemory = sink
	case "predictor":
		sink, ok := value.Component.(predictorSink)
		if value.Kind != link.ConfigComponentRef || !ok {
			return fmt.Errorf("predictor must be a component accepting predictor requests")
		}
		f.predictor = sink
	default:
		return fmt.Errorf("unknown parameter %q", key)
	}
	return nil
}

func (f *Fetcher) FinishSetup() error {
	if f.fetch == nil {
		return fmt.Errorf("fetcher %q: required parameter \"fetch\" not provided", f.Name())
	}
	f.fetchID = f.fetch.Connect(defaultConnectionCapacity)
	if f.instructionMemory != nil {
		f.instrID = f.instructionMemory.Connect(defaultConnectionCapacity)
	}
	if f.predictor != nil {
		f.predictorID = f.predictor.Connect(defaultConnectionCapacity)
	}
	return nil
}

// refill drains whatever fetch response has arrived since the last cycle
// (the dequeue-then-send shape every peer in this simulator uses) and, if
// the buffer still has room, issues another fetch request for next cycle.
func (f *Fetcher) refill() {
	if resp, ok := f.fetch.DequeueResponse(f.fetchID); ok && resp.Kind == msg.FetchResponse {
		f.buffer = append(f.buffer, fetchBufferEntry{packet: resp.Inst})
		f.numFetched++
	}
	if len(f.buffer) < f.bufferCapacity {
		f.fetch.SendRequest(f.fetchID, msg.NewFetchRequest(f.fetchSize))
	}
}

func (f *Fetcher) driveMemoryAndPredictor() {
	for i := range f.buffer {
		entry := &f.buffer[i]
		if f.instructionMemory != nil && entry.flags&fetchFlagSentToMemory == 0 {
			if f.instructionMemory.SendRequest(f.instrID, msg.MemPacket{Address: entry.packet.Static.Address}) {
				entry.flags |= fetchFlagSentToMemory
			}
		}
		if f.predictor != nil && entry.flags&fetchFlagSentToPredictor == 0 {
			if f.predictor.SendRequest(f.predictorID, msg.NewPredictorQuery(entry.packet.Static)) {
				entry.flags |= fetchFlagSentToPredictor
			}
		}
	}

	if f.predictor == nil {
		return
	}

	resp, ok := f.predictor.DequeueResponse(f.predictorID)
	if !ok {
		return
	}
	for i := range f.buffer {
		entry := &f.buffer[i]
		if entry.flags&fetchFlagSentToPredictor == 0 || entry.flags&fetchFlagPredicted != 0 {
			continue
		}
		switch resp.Kind {
		case msg.PredictorTakeToAddress, msg.PredictorTake:
			entry.predicted = resp.Target
		default:
			entry.predicted = entry.packet.NextAddress
		}
		entry.flags |= fetchFlagPredicted

		if entry.predicted != entry.packet.NextAddress {
			f.numMispredicts++
			f.penaltyRemaining = f.mispredictPenalty
			f.buffer = f.buffer[:i]
		}
		break
	}
}

func (f *Fetcher) Clock() {
	for id := 0; id < f.NumConnections(); id++ {
		req, ok := f.DequeueRequest(id)
		if !ok {
			continue
		}
		if req.Kind != msg.FetchRequest {
			continue
		}
		if len(f.buffer) == 0 || !f.buffer[0].ready(f.instructionMemory != nil, f.predictor != nil) {
			continue
		}
		f.SendResponse(id, msg.NewFetchResponse(f.buffer[0].packet))
		f.buffer = f.buffer[1:]
		f.numServed++
	}

	if f.penaltyRemaining > 0 {
		f.penaltyRemaining--
		return
	}

	f.refill()
	f.driveMemoryAndPredictor()
}

func (f *Fetcher) PrintStatistics() []link.Stat {
	return []link.Stat{
		{Name: f.Name() + ".fetched", Value: fmt.Sprintf("%d", f.numFetched)},
		{Name: f.Name() + ".served", Value: fmt.Sprintf("%d", f.numServed)},
		{Name: f.Name() + ".mispredicts", Value: fmt.Sprintf("%d", f.numMispredicts)},
	}
}
