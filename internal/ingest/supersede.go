package ingest

import (
	"context"
	"errors"
	"sync"
)

// supersede runs background work keyed by logical target. Starting a
// new run for a key cancels the in-flight one; the superseded run
// stops silently rather than surfacing a user-visible error.
type supersede struct {
	mu    sync.Mutex
	gen   uint64
	slots map[string]slot
}

type slot struct {
	cancel context.CancelFunc
	gen    uint64
}

func newSupersede() *supersede {
	return &supersede{slots: make(map[string]slot)}
}

// run executes fn under a context that is cancelled when a newer run
// claims the same key. A cancellation caused by supersession returns
// nil, not an error.
func (s *supersede) run(ctx context.Context, key string, fn func(context.Context) error) error {
	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	s.mu.Lock()
	s.gen++
	myGen := s.gen
	if prev, ok := s.slots[key]; ok {
		prev.cancel()
	}
	s.slots[key] = slot{cancel: cancel, gen: myGen}
	s.mu.Unlock()

	err := fn(runCtx)

	s.mu.Lock()
	if current, ok := s.slots[key]; ok && current.gen == myGen {
		delete(s.slots, key)
	}
	s.mu.Unlock()

	if err != nil && errors.Is(runCtx.Err(), context.Canceled) && ctx.Err() == nil {
		// Superseded by a newer request: stop silently
		return nil
	}
	return err
}
