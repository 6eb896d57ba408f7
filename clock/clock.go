package clock

import (
	"time"
)

// Clock measures frame deltas in seconds. A stopped clock restarts on the
// next GetDelta and reports a zero delta for that call, so time spent idle
// never shows up as one huge step.
type Clock struct {
	now     func() time.Time
	running bool
	last    time.Time
	elapsed float64
}

func NewClock(now func() time.Time) *Clock {
	if now == nil {
		now = time.Now
	}
	return &Clock{now: now}
}

func (c *Clock) Start() {
	c.last = c.now()
	c.elapsed = 0
	c.running = true
}

func (c *Clock) Stop() {
	if c.running {
		c.GetDelta()
	}
	c.running = false
}

func (c *Clock) Running() bool { return c.running }

// GetDelta returns the seconds since the previous call (or since Start).
func (c *Clock) GetDelta() float64 {
	if !c.running {
		c.Start()
		return 0
	}
	t := c.now()
	dt := t.Sub(c.last).Seconds()
	c.last = t
	c.elapsed += dt
	return dt
}

// Elapsed is the running time accumulated since the last Start.
func (c *Clock) Elapsed() float64 { return c.elapsed }

// FPSCounter averages frame deltas over one second windows.
type FPSCounter struct {
	frames int
	acc    float64
	FPS    float64
}

// Tick records one frame and reports whether FPS was refreshed.
func (f *FPSCounter) Tick(delta float64) bool {
	f.frames++
	f.acc += delta
	if f.acc < 1.0 {
		return false
	}
	f.FPS = float64(f.frames) / f.acc
	f.frames = 0
	f.acc = 0
	return true
}
