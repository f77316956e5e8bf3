// Package timeutil provides a testable abstraction over time operations.
package timeutil

import (
	"sync"
	"time"
)

// Clock provides an abstraction over time operations for testability.
// Trackers read Now once per frame, so a Clock must return
// non-decreasing values for the lifetime of a session.
type Clock interface {
	// Now returns the current time.
	Now() time.Time

	// Since returns the duration since t.
	Since(t time.Time) time.Duration

	// Sleep pauses for the specified duration.
	Sleep(d time.Duration)
}

// RealClock implements Clock using the standard time package. time.Now
// carries a monotonic reading, so differences between two Now values are
// immune to wall-clock steps.
type RealClock struct{}

// Now returns the current time.
func (RealClock) Now() time.Time {
	return time.Now()
}

// Since returns the time elapsed since t.
func (RealClock) Since(t time.Time) time.Duration {
	return time.Since(t)
}

// Sleep pauses the current goroutine for at least the duration d.
func (RealClock) Sleep(d time.Duration) {
	time.Sleep(d)
}

// ClockFunc adapts a plain function to Clock. Sleep is a no-op.
type ClockFunc func() time.Time

// Now calls f.
func (f ClockFunc) Now() time.Time { return f() }

// Since returns f() - t.
func (f ClockFunc) Since(t time.Time) time.Duration { return f().Sub(t) }

// Sleep does nothing.
func (ClockFunc) Sleep(time.Duration) {}

// SequenceMs returns a ClockFunc that yields base plus offsetsMs[i]
// milliseconds on the i-th call, repeating the last offset once the slice
// is exhausted. It is meant for scripted tracker tests.
func SequenceMs(base time.Time, offsetsMs ...int) ClockFunc {
	var (
		mu sync.Mutex
		i  int
	)
	return func() time.Time {
		mu.Lock()
		defer mu.Unlock()
		if len(offsetsMs) == 0 {
			return base
		}
		idx := i
		if idx >= len(offsetsMs) {
			idx = len(offsetsMs) - 1
		}
		i++
		return base.Add(time.Duration(offsetsMs[idx]) * time.Millisecond)
	}
}

// MockClock is a manually controlled clock for testing and replay.
type MockClock struct {
	mu     sync.Mutex
	now    time.Time
	sleeps []time.Duration
}

// NewMockClock creates a new MockClock set to the given time.
func NewMockClock(t time.Time) *MockClock {
	return &MockClock{now: t}
}

// Now returns the mocked current time.
func (c *MockClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

// Set sets the mock clock to a specific time.
func (c *MockClock) Set(t time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = t
}

// Advance moves the mock clock forward by the given duration.
func (c *MockClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

// Since returns the duration since t.
func (c *MockClock) Since(t time.Time) time.Duration {
	return c.Now().Sub(t)
}

// Sleep records the sleep duration and advances the clock by it.
func (c *MockClock) Sleep(d time.Duration) {
	c.mu.Lock()
	c.sleeps = append(c.sleeps, d)
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

// Sleeps returns all recorded sleep durations.
func (c *MockClock) Sleeps() []time.Duration {
	c.mu.Lock()
	defer c.mu.Unlock()
	result := make([]time.Duration, len(c.sleeps))
	copy(result, c.sleeps)
	return result
}
