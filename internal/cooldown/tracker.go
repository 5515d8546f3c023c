// Package cooldown tracks per-submitter cooldown windows in process memory.
package cooldown

import (
	"context"
	"log"
	"sync"
	"time"
)

// DefaultWindow is the minimum time between two successful submissions
const DefaultWindow = 300 * time.Second

// Clock returns the current time
type Clock func() time.Time

// Tracker maps submitter IDs to their last successful submission.
// State is not persisted; a restart clears every cooldown.
type Tracker struct {
	mu       sync.Mutex
	window   time.Duration
	lastSeen map[string]time.Time
	locks    map[string]*keyLock
	now      Clock
}

type keyLock struct {
	mu   sync.Mutex
	refs int
}

// New creates a tracker with the given window. A non-positive window falls
// back to DefaultWindow.
func New(window time.Duration) *Tracker {
	if window <= 0 {
		window = DefaultWindow
	}
	return &Tracker{
		window:   window,
		lastSeen: make(map[string]time.Time),
		locks:    make(map[string]*keyLock),
		now:      time.Now,
	}
}

// WithClock replaces the clock used by Run
func (t *Tracker) WithClock(clock Clock) *Tracker {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.now = clock
	return t
}

// Window returns the configured cooldown window
func (t *Tracker) Window() time.Duration {
	return t.window
}

// Check reports whether id is still inside its window at now, and how long
// remains if so.
func (t *Tracker) Check(id string, now time.Time) (blocked bool, remaining time.Duration) {
	t.mu.Lock()
	defer t.mu.Unlock()

	last, ok := t.lastSeen[id]
	if !ok {
		return false, 0
	}

	elapsed := now.Sub(last)
	if elapsed < t.window {
		return true, t.window - elapsed
	}
	return false, 0
}

// Record sets the last submission time for id to now
func (t *Tracker) Record(id string, now time.Time) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.lastSeen[id] = now
}

// Lock serializes work for a single submitter. Callers hold the returned
// unlock for the whole check-then-record sequence.
func (t *Tracker) Lock(id string) (unlock func()) {
	t.mu.Lock()
	kl, ok := t.locks[id]
	if !ok {
		kl = &keyLock{}
		t.locks[id] = kl
	}
	kl.refs++
	t.mu.Unlock()

	kl.mu.Lock()

	var once sync.Once
	return func() {
		once.Do(func() {
			kl.mu.Unlock()

			t.mu.Lock()
			kl.refs--
			if kl.refs == 0 {
				delete(t.locks, id)
			}
			t.mu.Unlock()
		})
	}
}

// Sweep drops entries whose window has fully elapsed at now and returns how
// many were removed. Entries still inside the window are kept.
func (t *Tracker) Sweep(now time.Time) int {
	t.mu.Lock()
	defer t.mu.Unlock()

	removed := 0
	for id, last := range t.lastSeen {
		if now.Sub(last) >= t.window {
			delete(t.lastSeen, id)
			removed++
		}
	}
	return removed
}

// Len returns the number of tracked submitters
func (t *Tracker) Len() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.lastSeen)
}

// Run sweeps expired entries every interval until ctx is cancelled
func (t *Tracker) Run(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		interval = t.window
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			t.mu.Lock()
			clock := t.now
			t.mu.Unlock()

			if removed := t.Sweep(clock()); removed > 0 {
				log.Printf("Cooldown: swept %d expired entries (%d remaining)", removed, t.Len())
			}
		}
	}
}
