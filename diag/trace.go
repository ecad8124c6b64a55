// Package diag holds a bounded trace of recent wire traffic, so an
// unexpected connection drop can be reported with context instead of just
// a bare error. It is intentionally small: a ring buffer, not a log file.
package diag

import (
	"fmt"
	"sync"
	"time"

	"github.com/armon/circbuf"
)

const defaultCapacity = 64 * 1024

// Trace is a bounded, append-only ring of recent envelope summaries.
type Trace struct {
	mu  sync.Mutex
	buf *circbuf.Buffer
}

// NewTrace builds a Trace holding at most capacity bytes of formatted
// history; 0 selects a 64KiB default, enough for one connection's worth of
// in-memory log capture.
func NewTrace(capacity int64) *Trace {
	if capacity <= 0 {
		capacity = defaultCapacity
	}
	buf, _ := circbuf.NewBuffer(capacity)
	return &Trace{buf: buf}
}

// Record appends one formatted line, oldest bytes dropping off the front
// once the buffer is full.
func (t *Trace) Record(direction, summary string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	line := fmt.Sprintf("%s %s %s\n", time.Now().UTC().Format(time.RFC3339Nano), direction, summary)
	_, _ = t.buf.Write([]byte(line))
}

// Dump returns the trace contents accumulated so far, for inclusion in a
// connection-loss diagnostic.
func (t *Trace) Dump() string {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.buf.String()
}
