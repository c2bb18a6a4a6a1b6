package world

import "time"

type Clock interface {
	Now() time.Time
}

type SystemClock struct{}

func (SystemClock) Now() time.Time { return time.Now() }

// Scheduler measures the wall-clock time between ticks. There is no fixed
// rate and no catch-up: each tick simulates exactly the time that passed.
type Scheduler struct {
	clock    Clock
	minDelay time.Duration
	maxDelta float64
	last     time.Time
}

// NewScheduler returns a scheduler whose first Elapsed is measured from now.
// maxDelta clamps a single step in seconds; zero disables the clamp.
func NewScheduler(c Clock, minDelay time.Duration, maxDelta float64) *Scheduler {
	if minDelay <= 0 {
		minDelay = time.Millisecond
	}
	return &Scheduler{clock: c, minDelay: minDelay, maxDelta: maxDelta, last: c.Now()}
}

// MinDelay is the wait between the end of one tick and the start of the next.
func (s *Scheduler) MinDelay() time.Duration { return s.minDelay }

// Elapsed returns the seconds since the previous call.
func (s *Scheduler) Elapsed() float64 {
	now := s.clock.Now()
	dt := now.Sub(s.last).Seconds()
	s.last = now
	if dt < 0 {
		dt = 0
	}
	if s.maxDelta > 0 && dt > s.maxDelta {
		dt = s.maxDelta
	}
	return dt
}
