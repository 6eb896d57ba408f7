package clock

import (
	"sort"
	"time"
)

type Handle uint64

// Scheduler is the host side of the frame clock: frame callbacks and timers
// only ever run from whoever pumps it, on that caller's thread.
type Scheduler interface {
	Now() time.Time
	RequestFrame(fn func(now time.Time)) Handle
	CancelFrame(h Handle)
	AfterFunc(d time.Duration, fn func()) Handle
	CancelTimer(h Handle)
}

type frameRequest struct {
	id Handle
	fn func(now time.Time)
}

type timer struct {
	id       Handle
	deadline time.Time
	fn       func()
}

// Loop is a single-threaded Scheduler. The platform main loop calls Pump once
// per display refresh after polling input, so input handlers always run
// before the frame callbacks of the same iteration.
type Loop struct {
	now    time.Time
	nextID Handle
	frames []frameRequest
	timers []timer

	// batches being dispatched by Pump; cancels must reach them too
	runningFrames []frameRequest
	firingTimers  []timer
}

func NewLoop(now time.Time) *Loop {
	return &Loop{now: now}
}

func (l *Loop) Now() time.Time { return l.now }

func (l *Loop) id() Handle {
	l.nextID++
	return l.nextID
}

func (l *Loop) RequestFrame(fn func(now time.Time)) Handle {
	id := l.id()
	l.frames = append(l.frames, frameRequest{id: id, fn: fn})
	return id
}

func (l *Loop) CancelFrame(h Handle) {
	for i, f := range l.frames {
		if f.id == h {
			l.frames = append(l.frames[:i], l.frames[i+1:]...)
			return
		}
	}
	for i := range l.runningFrames {
		if l.runningFrames[i].id == h {
			l.runningFrames[i].fn = nil
		}
	}
}

func (l *Loop) AfterFunc(d time.Duration, fn func()) Handle {
	id := l.id()
	l.timers = append(l.timers, timer{id: id, deadline: l.now.Add(d), fn: fn})
	return id
}

func (l *Loop) CancelTimer(h Handle) {
	for i, t := range l.timers {
		if t.id == h {
			l.timers = append(l.timers[:i], l.timers[i+1:]...)
			return
		}
	}
	for i := range l.firingTimers {
		if l.firingTimers[i].id == h {
			l.firingTimers[i].fn = nil
		}
	}
}

// HasFrames reports whether a frame callback is waiting for the next Pump.
func (l *Loop) HasFrames() bool { return len(l.frames) > 0 }

// Timeout returns how long the host may block waiting for input before the
// next timer is due, or -1 when no timer is pending.
func (l *Loop) Timeout(now time.Time) time.Duration {
	if len(l.timers) == 0 {
		return -1
	}
	earliest := l.timers[0].deadline
	for _, t := range l.timers[1:] {
		if t.deadline.Before(earliest) {
			earliest = t.deadline
		}
	}
	if d := earliest.Sub(now); d > 0 {
		return d
	}
	return 0
}

// Pump advances the loop to now: due timers fire first in deadline order,
// then every frame callback requested before this call. Callbacks requested
// while pumping wait for the next Pump.
func (l *Loop) Pump(now time.Time) int {
	l.now = now

	var due, kept []timer
	for _, t := range l.timers {
		if !t.deadline.After(now) {
			due = append(due, t)
		} else {
			kept = append(kept, t)
		}
	}
	l.timers = kept
	sort.SliceStable(due, func(i, j int) bool { return due[i].deadline.Before(due[j].deadline) })
	l.firingTimers = due
	for i := range l.firingTimers {
		if fn := l.firingTimers[i].fn; fn != nil {
			fn()
		}
	}
	l.firingTimers = nil

	l.runningFrames = l.frames
	l.frames = nil
	ran := 0
	for i := range l.runningFrames {
		if fn := l.runningFrames[i].fn; fn != nil {
			ran++
			fn(now)
		}
	}
	l.runningFrames = nil
	return ran
}
