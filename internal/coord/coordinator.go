// Package coord runs background re-aggregation while the reader is open.
package coord

import (
	"context"
	"sync"
	"time"

	"github.com/abelbrown/nexus/internal/logging"
)

// Refresher re-fetches the corpus. *session.Session implements it.
type Refresher interface {
	Refresh(ctx context.Context)
}

// Coordinator refreshes on a fixed interval.
// Uses context cancellation as the ONLY stop mechanism.
type Coordinator struct {
	target   Refresher
	interval time.Duration
	wg       sync.WaitGroup
}

// NewCoordinator creates a Coordinator. A non-positive interval makes
// Start a no-op.
func NewCoordinator(target Refresher, interval time.Duration) *Coordinator {
	return &Coordinator{target: target, interval: interval}
}

// Start begins periodic refreshes. The first one happens after one
// interval; the initial load belongs to the caller.
func (c *Coordinator) Start(ctx context.Context) {
	if c.interval <= 0 {
		return
	}

	c.wg.Add(1)
	go func() {
		defer c.wg.Done()

		ticker := time.NewTicker(c.interval)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				logging.Debug("background refresh")
				c.target.Refresh(ctx)
			}
		}
	}()
}

// Wait blocks until the background goroutine exits.
// Call after canceling the context passed to Start.
func (c *Coordinator) Wait() {
	c.wg.Wait()
}
