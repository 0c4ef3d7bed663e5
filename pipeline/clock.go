package pipeline

import "time"

// Clock tells the memory cache the current time.
// It stamps the expiration time of a stored response and is compared against it on every lookup,
// so tests can move it forward to expire responses without waiting.
type Clock interface {
	Now() time.Time
}

// ClockFunc adapts a function to a Clock.
type ClockFunc func() time.Time

// Now calls f.
func (f ClockFunc) Now() time.Time {
	return f()
}

// SystemClock reads the wall clock. It is the clock of a Pipeline unless WithClock is given.
var SystemClock Clock = ClockFunc(time.Now)
