package trace

import (
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Trace accumulates timestamped debug lines for one scrape run. When
// disabled every call is a cheap no-op, so callers never guard their
// trace statements.
type Trace struct {
	runID   string
	enabled bool
	start   time.Time

	mu    sync.Mutex
	lines []string
}

func New(enabled bool) *Trace {
	return &Trace{
		runID:   uuid.NewString(),
		enabled: enabled,
		start:   time.Now(),
	}
}

// RunID identifies this run in logs and the debug payload.
func (t *Trace) RunID() string {
	if t == nil {
		return ""
	}
	return t.runID
}

// Addf appends a formatted line with the elapsed time since the run
// started.
func (t *Trace) Addf(format string, args ...any) {
	if t == nil || !t.enabled {
		return
	}
	line := fmt.Sprintf("[%6dms] %s", time.Since(t.start).Milliseconds(), fmt.Sprintf(format, args...))
	t.mu.Lock()
	t.lines = append(t.lines, line)
	t.mu.Unlock()
}

// Dump returns the collected lines, or nil when tracing is off.
func (t *Trace) Dump() []string {
	if t == nil || !t.enabled {
		return nil
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	out := make([]string, len(t.lines))
	copy(out, t.lines)
	return out
}
