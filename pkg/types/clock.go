// Package types provides core clock abstractions for time mocking
package types

import (
	"time"

	"github.com/coder/quartz"
)

// Clock is the subset of time operations the pool needs.
// Both quartz.NewReal() and *quartz.Mock satisfy it.
type Clock interface {
	// Now returns the current time
	Now(tags ...string) time.Time
	// Since returns the time elapsed since t
	Since(t time.Time, tags ...string) time.Duration
}

// NewRealClock creates a clock backed by the system time
func NewRealClock() Clock {
	return quartz.NewReal()
}
