package store

import (
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestDebounceCoalescesBurst(t *testing.T) {
	w := NewDebouncedWriter(50 * time.Millisecond)
	defer w.Close()

	var writes int32
	for i := 0; i < 5; i++ {
		w.Schedule(func() error {
			atomic.AddInt32(&writes, 1)
			return nil
		})
	}

	time.Sleep(200 * time.Millisecond)
	assert.Equal(t, int32(1), atomic.LoadInt32(&writes),
		"a burst of saves within the quiescence window must produce one write")
}

func TestDebounceLatestStateWins(t *testing.T) {
	w := NewDebouncedWriter(30 * time.Millisecond)
	defer w.Close()

	var got int32
	for i := 1; i <= 3; i++ {
		value := int32(i)
		w.Schedule(func() error {
			atomic.StoreInt32(&got, value)
			return nil
		})
	}

	time.Sleep(150 * time.Millisecond)
	assert.Equal(t, int32(3), atomic.LoadInt32(&got))
}

func TestDebounceFlushRunsImmediately(t *testing.T) {
	w := NewDebouncedWriter(time.Hour)
	defer w.Close()

	var writes int32
	w.Schedule(func() error {
		atomic.AddInt32(&writes, 1)
		return nil
	})

	w.Flush()
	assert.Equal(t, int32(1), atomic.LoadInt32(&writes))

	// Nothing pending, a second flush is a no-op
	w.Flush()
	assert.Equal(t, int32(1), atomic.LoadInt32(&writes))
}

func TestDebounceCloseFlushesOnce(t *testing.T) {
	w := NewDebouncedWriter(time.Hour)

	var writes int32
	w.Schedule(func() error {
		atomic.AddInt32(&writes, 1)
		return nil
	})

	w.Close()
	assert.Equal(t, int32(1), atomic.LoadInt32(&writes))

	// Scheduling after close is rejected
	w.Schedule(func() error {
		atomic.AddInt32(&writes, 1)
		return nil
	})
	w.Flush()
	assert.Equal(t, int32(1), atomic.LoadInt32(&writes))
}

func TestDebounceSeparateBurstsWriteSeparately(t *testing.T) {
	w := NewDebouncedWriter(20 * time.Millisecond)
	defer w.Close()

	var writes int32
	write := func() error {
		atomic.AddInt32(&writes, 1)
		return nil
	}

	w.Schedule(write)
	time.Sleep(100 * time.Millisecond)
	w.Schedule(write)
	time.Sleep(100 * time.Millisecond)

	assert.Equal(t, int32(2), atomic.LoadInt32(&writes))
}
