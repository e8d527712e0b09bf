package sim

import "time"

// Clock tracks frame timestamps and the global play/pause state.
type Clock struct {
	last    time.Duration
	delta   time.Duration
	started bool
	playing bool
}

// NewClock returns a clock in the playing state.
func NewClock() *Clock {
	return &Clock{playing: true}
}

// Advance records now as the latest frame timestamp and returns the time
// elapsed since the previous one. The first call returns zero.
func (c *Clock) Advance(now time.Duration) time.Duration {
	if !c.started {
		c.started = true
		c.last = now
		c.delta = 0
		return 0
	}
	c.delta = now - c.last
	c.last = now
	return c.delta
}

func (c *Clock) Delta() time.Duration { return c.delta }

func (c *Clock) Last() time.Duration { return c.last }

func (c *Clock) Playing() bool { return c.playing }

// TogglePause flips between playing and paused and returns the new
// playing state.
func (c *Clock) TogglePause() bool {
	c.playing = !c.playing
	return c.playing
}
