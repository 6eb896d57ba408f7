package clock

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeTime struct{ t time.Time }

func (f *fakeTime) now() time.Time            { return f.t }
func (f *fakeTime) advance(d time.Duration) { f.t = f.t.Add(d) }

func TestClock_DeltaAndElapsed(t *testing.T) {
	ft := &fakeTime{t: time.Unix(100, 0)}
	c := NewClock(ft.now)

	// auto-start reports zero
	assert.Equal(t, 0.0, c.GetDelta())
	assert.True(t, c.Running())

	ft.advance(16 * time.Millisecond)
	assert.InDelta(t, 0.016, c.GetDelta(), 1e-9)
	ft.advance(20 * time.Millisecond)
	assert.InDelta(t, 0.020, c.GetDelta(), 1e-9)
	assert.InDelta(t, 0.036, c.Elapsed(), 1e-9)
}

func TestClock_StopDiscardsIdleTime(t *testing.T) {
	ft := &fakeTime{t: time.Unix(0, 0)}
	c := NewClock(ft.now)
	c.Start()
	ft.advance(10 * time.Millisecond)
	c.Stop()
	assert.False(t, c.Running())

	ft.advance(time.Minute)
	c.Start()
	ft.advance(5 * time.Millisecond)
	assert.InDelta(t, 0.005, c.GetDelta(), 1e-9)
}

func TestFPSCounter(t *testing.T) {
	var f FPSCounter
	for i := 0; i < 59; i++ {
		require.False(t, f.Tick(1.0/60.0))
	}
	assert.True(t, f.Tick(1.0/60.0+1e-6))
	assert.InDelta(t, 60.0, f.FPS, 0.01)
}

func TestLoop_FramesRunOncePerPump(t *testing.T) {
	start := time.Unix(0, 0)
	l := NewLoop(start)
	calls := 0
	var tick func(now time.Time)
	tick = func(now time.Time) {
		calls++
		l.RequestFrame(tick)
	}
	l.RequestFrame(tick)

	assert.Equal(t, 1, l.Pump(start.Add(16*time.Millisecond)))
	assert.Equal(t, 1, calls)
	assert.True(t, l.HasFrames())

	l.Pump(start.Add(32 * time.Millisecond))
	assert.Equal(t, 2, calls)
	assert.Equal(t, start.Add(32*time.Millisecond), l.Now())
}

func TestLoop_CancelFrame(t *testing.T) {
	l := NewLoop(time.Unix(0, 0))
	fired := false
	h := l.RequestFrame(func(time.Time) { fired = true })
	l.CancelFrame(h)

	assert.Equal(t, 0, l.Pump(time.Unix(1, 0)))
	assert.False(t, fired)
}

func TestLoop_CancelInsideBatch(t *testing.T) {
	l := NewLoop(time.Unix(0, 0))
	var second Handle
	secondFired := false
	l.RequestFrame(func(time.Time) { l.CancelFrame(second) })
	second = l.RequestFrame(func(time.Time) { secondFired = true })

	assert.Equal(t, 1, l.Pump(time.Unix(1, 0)))
	assert.False(t, secondFired)
}

func TestLoop_TimersFireInDeadlineOrder(t *testing.T) {
	start := time.Unix(0, 0)
	l := NewLoop(start)
	var order []string
	l.AfterFunc(100*time.Millisecond, func() { order = append(order, "slow") })
	l.AfterFunc(10*time.Millisecond, func() { order = append(order, "fast") })
	cancelled := l.AfterFunc(50*time.Millisecond, func() { order = append(order, "cancelled") })
	l.CancelTimer(cancelled)

	assert.Equal(t, 10*time.Millisecond, l.Timeout(start))

	l.Pump(start.Add(50 * time.Millisecond))
	assert.Equal(t, []string{"fast"}, order)
	assert.Equal(t, 50*time.Millisecond, l.Timeout(start.Add(50*time.Millisecond)))

	l.Pump(start.Add(200 * time.Millisecond))
	assert.Equal(t, []string{"fast", "slow"}, order)
	assert.Equal(t, time.Duration(-1), l.Timeout(start.Add(200*time.Millisecond)))
}

func TestLoop_TimersBeforeFrames(t *testing.T) {
	start := time.Unix(0, 0)
	l := NewLoop(start)
	var order []string
	l.RequestFrame(func(time.Time) { order = append(order, "frame") })
	l.AfterFunc(0, func() { order = append(order, "timer") })

	l.Pump(start)
	assert.Equal(t, []string{"timer", "frame"}, order)
}
