// Package testutil provides deterministic fixtures for history tests:
// a logical clock for commit timestamps, an in-memory implementation of
// the storage port, and change-stream builders.
package testutil

import "sync"

// Clock is a thread-safe deterministic timestamp source for tests.
//
// Each call to Next() advances by a fixed step, so the same test
// scenario always stamps commits with identical created_at values,
// a requirement for golden trace comparison and topological-order
// assertions.
type Clock struct {
	mu   sync.Mutex
	now  int64
	step int64
}

// NewClock creates a clock. The first call to Next() returns start+step.
func NewClock(start, step int64) *Clock {
	return &Clock{now: start, step: step}
}

// Next advances the clock and returns the new timestamp (unix millis).
func (c *Clock) Next() int64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now += c.step
	return c.now
}

// Current returns the clock's position without advancing it.
func (c *Clock) Current() int64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

// Reset rewinds the clock to a new start for test reuse.
func (c *Clock) Reset(start int64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = start
}
