// internal/game/timer.go
package game

import (
	"context"
	"sync"
	"time"
)

// RoundTimer drives the one-second countdown for an active round. Start spawns
// a goroutine that invokes tick once per second until Stop is called or tick
// reports the round is over. The tick callback runs outside the timer's lock;
// callers provide their own synchronization inside it.
type RoundTimer struct {
	mu     sync.Mutex
	cancel context.CancelFunc
}

func NewRoundTimer() *RoundTimer {
	return &RoundTimer{}
}

// Start arms the countdown, replacing any previous one. tick returns false
// to stop the timer (round ended or torn down).
func (t *RoundTimer) Start(tick func() bool) {
	t.mu.Lock()
	if t.cancel != nil {
		t.cancel()
	}
	ctx, cancel := context.WithCancel(context.Background())
	t.cancel = cancel
	t.mu.Unlock()

	go func() {
		ticker := time.NewTicker(time.Second)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				if !tick() {
					return
				}
			}
		}
	}()
}

// Stop cancels the running countdown, if any. Idempotent.
func (t *RoundTimer) Stop() {
	t.mu.Lock()
	if t.cancel != nil {
		t.cancel()
		t.cancel = nil
	}
	t.mu.Unlock()
}
