package reminder

import (
	"context"
	"sync"
	"time"
)

// Scheduler runs a Sweeper on a fixed interval in the background.
type Scheduler struct {
	sweeper  *Sweeper
	interval time.Duration

	mu     sync.Mutex
	cancel context.CancelFunc
	done   chan struct{}
}

// NewScheduler creates a scheduler that sweeps every interval.
func NewScheduler(sweeper *Sweeper, interval time.Duration) *Scheduler {
	return &Scheduler{sweeper: sweeper, interval: interval}
}

// Start launches the background loop. The first sweep runs immediately.
// Calling Start on a running scheduler does nothing.
func (sc *Scheduler) Start(ctx context.Context) {
	sc.mu.Lock()
	defer sc.mu.Unlock()
	if sc.cancel != nil {
		return
	}

	ctx, sc.cancel = context.WithCancel(ctx)
	sc.done = make(chan struct{})
	go sc.loop(ctx, sc.done)
}

// Stop cancels the loop and waits for an in-flight sweep to return.
func (sc *Scheduler) Stop() {
	sc.mu.Lock()
	cancel, done := sc.cancel, sc.done
	sc.cancel, sc.done = nil, nil
	sc.mu.Unlock()

	if cancel == nil {
		return
	}
	cancel()
	<-done
}

func (sc *Scheduler) loop(ctx context.Context, done chan struct{}) {
	defer close(done)

	ticker := time.NewTicker(sc.interval)
	defer ticker.Stop()

	for {
		if _, err := sc.sweeper.Run(ctx, time.Now()); err != nil && ctx.Err() == nil {
			sc.sweeper.opts.Logger.Error("scheduled reminder sweep failed", "error", err)
		}

		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}
