package server

import (
	"bytes"
	"log/slog"
	"runtime"
	"slices"
	"strconv"
	"sync"
	"time"
)

// Worker describes a goroutine serving one connection.
type Worker struct {
	Goroutine uint64
	Remote    string
	Started   time.Time
}

// Diagnostics tracks active workers so their stacks can be dumped when the
// server runs out of connection slots. A nil *Diagnostics tracks nothing.
type Diagnostics struct {
	mu      sync.Mutex
	workers map[uint64]Worker
}

func NewDiagnostics() *Diagnostics {
	return &Diagnostics{workers: make(map[uint64]Worker)}
}

// goroutineID reads the id of the calling goroutine from the header line of
// its stack trace, "goroutine 42 [running]:".
func goroutineID() uint64 {
	var buf [64]byte
	n := runtime.Stack(buf[:], false)
	id, _ := stackGoroutine(buf[:n])
	return id
}

func stackGoroutine(stack []byte) (uint64, bool) {
	rest, ok := bytes.CutPrefix(stack, []byte("goroutine "))
	if !ok {
		return 0, false
	}
	digits, _, ok := bytes.Cut(rest, []byte(" "))
	if !ok {
		return 0, false
	}

	id, err := strconv.ParseUint(string(digits), 10, 64)
	return id, err == nil
}

// start registers the calling goroutine as a worker.
func (d *Diagnostics) start(remote string) uint64 {
	if d == nil {
		return 0
	}

	id := goroutineID()
	d.mu.Lock()
	d.workers[id] = Worker{Goroutine: id, Remote: remote, Started: time.Now()}
	d.mu.Unlock()

	return id
}

func (d *Diagnostics) finish(id uint64) {
	if d == nil {
		return
	}

	d.mu.Lock()
	delete(d.workers, id)
	d.mu.Unlock()
}

// Active lists the workers, oldest first.
func (d *Diagnostics) Active() []Worker {
	if d == nil {
		return nil
	}

	d.mu.Lock()
	workers := make([]Worker, 0, len(d.workers))
	for _, w := range d.workers {
		workers = append(workers, w)
	}
	d.mu.Unlock()

	slices.SortFunc(workers, func(a, b Worker) int {
		return a.Started.Compare(b.Started)
	})
	return workers
}

// stacks captures every goroutine stack and keeps the workers' ones.
func (d *Diagnostics) stacks() map[uint64]string {
	buf := make([]byte, 1<<16)
	for {
		n := runtime.Stack(buf, true)
		if n < len(buf) {
			buf = buf[:n]
			break
		}
		buf = make([]byte, 2*len(buf))
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	stacks := make(map[uint64]string)
	for trace := range bytes.SplitSeq(buf, []byte("\n\n")) {
		id, ok := stackGoroutine(trace)
		if !ok {
			continue
		}
		if _, active := d.workers[id]; active {
			stacks[id] = string(trace)
		}
	}

	return stacks
}

// Dump logs every active worker with its live stack.
func (d *Diagnostics) Dump(logger *slog.Logger) {
	if d == nil {
		return
	}

	stacks := d.stacks()
	for _, w := range d.Active() {
		logger.Warn("worker_dump",
			"goroutine", w.Goroutine,
			"remote", w.Remote,
			"started", w.Started.Format(time.RFC3339Nano),
			"running", time.Since(w.Started).String(),
			"stack", stacks[w.Goroutine],
		)
	}
}
