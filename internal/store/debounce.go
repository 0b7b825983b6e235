package store

import (
	"sync"
	"time"

	"github.com/ovailles/tvharbor/internal/logger"
)

// DebouncedWriter coalesces rapid repeated write requests into a
// single write after a quiescence period. A new request cancels any
// not-yet-executed pending write and re-arms the timer, so a burst of
// mutations produces exactly one write carrying the latest state.
type DebouncedWriter struct {
	mu      sync.Mutex
	delay   time.Duration
	timer   *time.Timer
	pending func() error
	closed  bool
	logger  *logger.Logger
}

// NewDebouncedWriter creates a writer with the given quiescence delay
func NewDebouncedWriter(delay time.Duration) *DebouncedWriter {
	return &DebouncedWriter{
		delay:  delay,
		logger: logger.AppLogger(),
	}
}

// Schedule queues fn to run after the quiescence window. A previously
// scheduled, not-yet-fired fn is discarded in its favor.
func (w *DebouncedWriter) Schedule(fn func() error) {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.closed {
		return
	}

	w.pending = fn
	if w.timer != nil {
		w.timer.Stop()
	}
	w.timer = time.AfterFunc(w.delay, w.fire)
}

func (w *DebouncedWriter) fire() {
	w.mu.Lock()
	fn := w.pending
	w.pending = nil
	w.mu.Unlock()

	// A Schedule racing the timer may have claimed the write already
	if fn == nil {
		return
	}
	if err := fn(); err != nil {
		// A failed write is logged, not propagated: in-memory state
		// stays authoritative until the next successful write.
		w.logger.Error("debounced write failed", err)
	}
}

// Flush runs any pending write immediately
func (w *DebouncedWriter) Flush() {
	w.mu.Lock()
	if w.timer != nil {
		w.timer.Stop()
		w.timer = nil
	}
	fn := w.pending
	w.pending = nil
	w.mu.Unlock()

	if fn != nil {
		if err := fn(); err != nil {
			w.logger.Error("flush write failed", err)
		}
	}
}

// Close flushes any pending write and rejects further scheduling
func (w *DebouncedWriter) Close() {
	w.mu.Lock()
	if w.closed {
		w.mu.Unlock()
		return
	}
	w.closed = true
	w.mu.Unlock()

	w.Flush()
}
