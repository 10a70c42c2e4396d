package coord

import (
	"context"
	"sync/atomic"
	"testing"
	"time"
)

type countingRefresher struct {
	calls atomic.Int32
}

func (r *countingRefresher) Refresh(ctx context.Context) {
	r.calls.Add(1)
}

func TestCoordinatorRefreshesPeriodically(t *testing.T) {
	r := &countingRefresher{}
	c := NewCoordinator(r, 10*time.Millisecond)

	ctx, cancel := context.WithCancel(context.Background())
	c.Start(ctx)

	deadline := time.Now().Add(2 * time.Second)
	for r.calls.Load() < 3 && time.Now().Before(deadline) {
		time.Sleep(5 * time.Millisecond)
	}
	cancel()
	c.Wait()

	if n := r.calls.Load(); n < 3 {
		t.Errorf("refresh calls = %d, want at least 3", n)
	}
}

func TestCoordinatorNoImmediateRefresh(t *testing.T) {
	r := &countingRefresher{}
	c := NewCoordinator(r, time.Hour)

	ctx, cancel := context.WithCancel(context.Background())
	c.Start(ctx)
	cancel()
	c.Wait()

	if n := r.calls.Load(); n != 0 {
		t.Errorf("refresh calls = %d, want 0", n)
	}
}

func TestCoordinatorDisabled(t *testing.T) {
	r := &countingRefresher{}
	c := NewCoordinator(r, 0)

	c.Start(context.Background())
	c.Wait() // must not block

	if n := r.calls.Load(); n != 0 {
		t.Errorf("refresh calls = %d, want 0", n)
	}
}

func TestCoordinatorStopsOnCancel(t *testing.T) {
	r := &countingRefresher{}
	c := NewCoordinator(r, 5*time.Millisecond)

	ctx, cancel := context.WithCancel(context.Background())
	c.Start(ctx)
	time.Sleep(20 * time.Millisecond)
	cancel()
	c.Wait()

	after := r.calls.Load()
	time.Sleep(30 * time.Millisecond)
	if n := r.calls.Load(); n != after {
		t.Errorf("refresh continued after cancel: %d -> %d", after, n)
	}
}
