// Package testutil provides deterministic time and run identity for tests
// that compare event traces across runs.
package testutil

import (
	"sync"
	"time"
)

// Epoch is the first instant a FakeTime returns by default.
var Epoch = time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

// FakeTime is a wall clock that advances by a fixed step on every read,
// so durations measured from events are reproducible.
//
// Thread-safety: all methods are safe for concurrent use.
type FakeTime struct {
	mu   sync.Mutex
	now  time.Time
	step time.Duration
}

// NewFakeTime creates a clock starting at Epoch and advancing by step.
func NewFakeTime(step time.Duration) *FakeTime {
	return &FakeTime{now: Epoch, step: step}
}

// Now returns the current instant and advances the clock.
// It has the signature of time.Now so it can be passed as engine.WithNow.
func (f *FakeTime) Now() time.Time {
	f.mu.Lock()
	defer f.mu.Unlock()
	t := f.now
	f.now = f.now.Add(f.step)
	return t
}

// Peek returns the next instant Now will return without advancing.
func (f *FakeTime) Peek() time.Time {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.now
}

// Reset moves the clock back to Epoch.
func (f *FakeTime) Reset() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.now = Epoch
}
