// Package lctime contains time-related utilities used by the scheduler and
// updater to compute recheck deadlines against an injectable clock.
package lctime

import (
	"time"
)

// Clock is an interface for time-related operations.
type Clock interface {
	Now() (now time.Time)
}

// SystemClock is a [Clock] that uses the functions from package time.
type SystemClock struct{}

// type check
var _ Clock = SystemClock{}

// Now implements the [Clock] interface for SystemClock.
func (SystemClock) Now() (now time.Time) { return time.Now() }
