package debounce

import (
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

func TestDebouncerRunsOnlyLastCallPerKey(t *testing.T) {
	d := New(20 * time.Millisecond)
	defer d.Stop()

	var mu sync.Mutex
	var got []int
	done := make(chan struct{})
	for i := 1; i <= 5; i++ {
		value := i
		d.Trigger("max_upload_mb", func() {
			mu.Lock()
			got = append(got, value)
			mu.Unlock()
			close(done)
		})
	}

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("debounced call never ran")
	}
	time.Sleep(40 * time.Millisecond)

	mu.Lock()
	defer mu.Unlock()
	if len(got) != 1 || got[0] != 5 {
		t.Fatalf("expected only the last value to run, got %v", got)
	}
}

func TestDebouncerKeysAreIndependent(t *testing.T) {
	d := New(10 * time.Millisecond)
	defer d.Stop()

	var calls atomic.Int32
	var wg sync.WaitGroup
	wg.Add(2)
	d.Trigger("free_trial_days", func() { calls.Add(1); wg.Done() })
	d.Trigger("max_upload_mb", func() { calls.Add(1); wg.Done() })
	wg.Wait()

	if calls.Load() != 2 {
		t.Fatalf("expected both keys to fire, got %d", calls.Load())
	}
}

func TestDebouncerFlushAndCancel(t *testing.T) {
	d := New(time.Hour)
	defer d.Stop()

	ran := false
	d.Trigger("a", func() { ran = true })
	if !d.Pending("a") {
		t.Fatal("expected pending call")
	}
	if !d.Flush("a") || !ran {
		t.Fatal("expected flush to run the pending call")
	}
	if d.Flush("a") {
		t.Fatal("expected nothing left to flush")
	}

	d.Trigger("b", func() { t.Error("cancelled call must not run") })
	d.Cancel("b")
	if d.Pending("b") {
		t.Fatal("expected cancel to clear pending call")
	}
}

func TestDebouncerIgnoresTriggersAfterStop(t *testing.T) {
	d := New(5 * time.Millisecond)
	d.Stop()
	d.Trigger("a", func() { t.Error("stopped debouncer must not run calls") })
	time.Sleep(20 * time.Millisecond)
	if d.Pending("a") {
		t.Fatal("expected no pending call after stop")
	}
}

func TestNewUsesDefaultDelay(t *testing.T) {
	if New(0).Delay() != DefaultDelay {
		t.Fatalf("expected default delay %s", DefaultDelay)
	}
}
