package ratelimit

import (
	"context"
	"sync"
	"time"
)

// Window is a process-local rolling-window counter: at most max attempts per
// key within any span of length window. State is not shared across instances.
type Window struct {
	mu       sync.Mutex
	max      int
	window   time.Duration
	attempts map[string][]time.Time
}

func NewWindow(max int, window time.Duration) *Window {
	return &Window{
		max:      max,
		window:   window,
		attempts: make(map[string][]time.Time),
	}
}

// Allow records an attempt for key at now and reports whether it is within the limit.
// Rejected attempts are not recorded.
func (w *Window) Allow(_ context.Context, key string, now time.Time) (bool, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	recent := w.prune(key, now)
	if len(recent) >= w.max {
		return false, nil
	}
	w.attempts[key] = append(recent, now)
	return true, nil
}

func (w *Window) prune(key string, now time.Time) []time.Time {
	prev := w.attempts[key]
	recent := prev[:0]
	for _, t := range prev {
		if now.Sub(t) < w.window {
			recent = append(recent, t)
		}
	}
	if len(recent) == 0 {
		delete(w.attempts, key)
		return nil
	}
	w.attempts[key] = recent
	return recent
}

// Sweep drops keys whose attempts have all aged out.
func (w *Window) Sweep(now time.Time) {
	w.mu.Lock()
	defer w.mu.Unlock()
	for key := range w.attempts {
		w.prune(key, now)
	}
}

// RunJanitor sweeps every interval until ctx is cancelled.
func (w *Window) RunJanitor(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case now := <-ticker.C:
			w.Sweep(now)
		}
	}
}

// Len returns the number of tracked keys.
func (w *Window) Len() int {
	w.mu.Lock()
	defer w.mu.Unlock()
	return len(w.attempts)
}
