package trace

import (
	"bufio"
	"encoding/binary"
	"fmt"
	"io"
	"os"

	"github.com/sarchlab/sinuca-go/link"
	"github.com/sarchlab/sinuca-go/msg"
)

// FetchResult classifies the outcome of a single Reader.Fetch call.
type FetchResult int

const (
	// FetchOk means Fetch produced a valid instruction packet.
	FetchOk FetchResult = iota
	// FetchEnd means the thread's dynamic stream is exhausted; every
	// instruction it was going to execute has been delivered.
	FetchEnd
	// FetchError means the stream could not be parsed; the simulation
	// must stop.
	FetchError
)

func (r FetchResult) String() string {
	switch r {
	case FetchOk:
		return "ok"
	case FetchEnd:
		return "end"
	case FetchError:
		return "error"
	default:
		return "unknown"
	}
}

type dynamicStream struct {
	name  string
	r     *bufio.Reader
	f     *os.File
	total uint64
}

func openDynamicStream(path string) (*dynamicStream, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("trace: open dynamic stream %s: %w", path, err)
	}

	r := bufio.NewReader(f)

	header, err := readDynamicFileHeader(r)
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("trace: %s: %w", path, err)
	}

	return &dynamicStream{name: path, r: r, f: f, total: header.TotalExecutedInstructions}, nil
}

func (d *dynamicStream) Close() error { return d.f.Close() }

// nextBasicBlock reads dynamic records until the next basic-block
// identifier, transparently skipping thread-lifecycle events. It returns
// io.EOF when the stream is exhausted.
func (d *dynamicStream) nextBasicBlock() (uint32, error) {
	for {
		var kind uint8
		if err := binary.Read(d.r, byteOrder, &kind); err != nil {
			return 0, err
		}

		switch dynamicRecordKind(kind) {
		case dynamicBasicBlock:
			var id uint32
			if err := binary.Read(d.r, byteOrder, &id); err != nil {
				return 0, err
			}
			return id, nil
		case dynamicThreadEvent:
			var event uint8
			if err := binary.Read(d.r, byteOrder, &event); err != nil {
				return 0, err
			}
			// Thread lifecycle is outside this package's contract with
			// the engine; skip and keep reading.
		default:
			return 0, fmt.Errorf("%w: %s: unknown dynamic record type %d", ErrMalformed, d.name, kind)
		}
	}
}

// threadState is one thread's cursor into its own dynamic and memory
// streams.
type threadState struct {
	dyn *dynamicStream
	mem *memoryStream

	block    []uint32
	blockPos int

	executed uint64
	done     bool
}

// Reader is the binary trace ingestion pipeline: one eagerly-loaded static
// dictionary shared by every thread, plus one dynamic stream and one
// memory stream per thread, both consumed lazily as Fetch is called.
type Reader struct {
	name string
	dict *dictionary

	threads []*threadState
}

// Paths names the three files (or per-thread file sets) a Reader is built
// from: one static dictionary, and one dynamic/memory stream pair per
// thread.
type Paths struct {
	StaticDictionary string
	Dynamic          []string
	Memory           []string
}

// NewReader opens and eagerly loads the static dictionary, then opens each
// thread's dynamic and memory streams, whose records Fetch reads lazily.
func NewReader(name string, paths Paths) (*Reader, error) {
	if len(paths.Dynamic) != len(paths.Memory) {
		return nil, fmt.Errorf("trace: %d dynamic streams but %d memory streams", len(paths.Dynamic), len(paths.Memory))
	}

	dict, err := loadDictionary(paths.StaticDictionary)
	if err != nil {
		return nil, err
	}
	if dict.threadCount != len(paths.Dynamic) {
		return nil, fmt.Errorf("trace: static dictionary declares %d threads but %d dynamic streams were given", dict.threadCount, len(paths.Dynamic))
	}

	threads := make([]*threadState, len(paths.Dynamic))
	for i := range paths.Dynamic {
		dyn, err := openDynamicStream(paths.Dynamic[i])
		if err != nil {
			return nil, err
		}
		mem, err := openMemoryStream(paths.Memory[i])
		if err != nil {
			return nil, err
		}
		threads[i] = &threadState{dyn: dyn, mem: mem}
	}

	return &Reader{name: name, dict: dict, threads: threads}, nil
}

// Name identifies the reader for diagnostics.
func (r *Reader) Name() string { return r.name }

// TotalThreads returns the number of threads declared by the static
// dictionary.
func (r *Reader) TotalThreads() int { return len(r.threads) }

// TotalInstructions returns the instruction count a thread's dynamic
// stream header declares it will execute.
func (r *Reader) TotalInstructions(tid int) uint64 {
	if tid < 0 || tid >= len(r.threads) {
		return 0
	}

	return r.threads[tid].dyn.total
}

// Fetch produces the next instruction packet for thread tid: the static
// instruction record (shared, interned, never copied) paired with freshly
// read dynamic memory operands.
func (r *Reader) Fetch(tid int) (msg.Packet, FetchResult) {
	if tid < 0 || tid >= len(r.threads) {
		return msg.Packet{}, FetchError
	}

	t := r.threads[tid]
	if t.done {
		return msg.Packet{}, FetchEnd
	}

	if t.executed >= t.dyn.total {
		t.done = true
		return msg.Packet{}, FetchEnd
	}

	if t.blockPos >= len(t.block) {
		id, err := t.dyn.nextBasicBlock()
		if err != nil {
			if err == io.EOF {
				t.done = true
				return msg.Packet{}, FetchEnd
			}
			t.done = true
			return msg.Packet{}, FetchError
		}

		block, err := r.dict.blockInstructions(id)
		if err != nil {
			t.done = true
			return msg.Packet{}, FetchError
		}

		t.block = block
		t.blockPos = 0
	}

	idx := t.block[t.blockPos]
	t.blockPos++

	if int(idx) >= len(r.dict.interned) {
		t.done = true
		return msg.Packet{}, FetchError
	}
	static := &r.dict.interned[idx]

	dyn, err := t.mem.fetch(static)
	if err != nil {
		t.done = true
		return msg.Packet{}, FetchError
	}

	t.executed++

	return msg.Packet{Static: static, Dynamic: dyn}, FetchOk
}

// PrintStatistics reports per-thread progress through the trace.
func (r *Reader) PrintStatistics() []link.Stat {
	stats := make([]link.Stat, 0, len(r.threads)+1)
	for i, t := range r.threads {
		stats = append(stats, link.Stat{
			Name:  fmt.Sprintf("trace.thread[%d].executed", i),
			Value: fmt.Sprintf("%d/%d", t.executed, t.dyn.total),
		})
	}

	return stats
}

// Close releases every open stream.
func (r *Reader) Close() error {
	var first error
	for _, t := range r.threads {
		if err := t.dyn.Close(); err != nil && first == nil {
			first = err
		}
		if err := t.mem.Close(); err != nil && first == nil {
			first = err
		}
	}

	return first
}
