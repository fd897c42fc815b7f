package profiling

import "time"

// TimeNanos is a timestamp in nanoseconds, measured from the genesis instant
// of the clock that produced it.
type TimeNanos int64

// TimeTeller can be used to get the current time.
type TimeTeller interface {
	CurrentTime() TimeNanos
}

// Clock is a monotonic TimeTeller. All timestamps it produces are relative to
// the instant the clock was created.
type Clock struct {
	genesis time.Time
}

// NewClock creates a Clock with genesis set to the current instant.
func NewClock() *Clock {
	return &Clock{genesis: time.Now()}
}

// CurrentTime returns the number of nanoseconds elapsed since genesis. It
// uses the monotonic reading of the system clock and is therefore not
// affected by wall-clock adjustments.
func (c *Clock) CurrentTime() TimeNanos {
	return TimeNanos(time.Since(c.genesis).Nanoseconds())
}

// Genesis returns the instant the clock was created.
func (c *Clock) Genesis() time.Time {
	return c.genesis
}
