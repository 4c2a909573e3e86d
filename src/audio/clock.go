package audio

import "time"

// Clock is the time base shared by event producers and the audio transport.
type Clock struct {
	start time.Time
}

// NewClock ...
func NewClock() *Clock {
	return &Clock{start: time.Now()}
}

// Now returns monotonic nanoseconds since the clock was created.
func (c *Clock) Now() int64 {
	return int64(time.Since(c.start))
}
