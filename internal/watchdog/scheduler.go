package watchdog

import (
	"sync"
	"time"
)

// DefaultInterval is the pause between the end of one scan and the next.
const DefaultInterval = 1500 * time.Millisecond

// Scheduler fires tick on the loop, then re-arms itself for another interval
// once the scan has finished. At most one scan is ever in flight.
type Scheduler struct {
	interval func() time.Duration
	poster   Poster
	tick     func()

	mu      sync.Mutex
	timer   *time.Timer
	running bool
}

// NewScheduler builds a scheduler; interval is consulted at every re-arm.
func NewScheduler(poster Poster, interval func() time.Duration, tick func()) *Scheduler {
	if interval == nil {
		interval = func() time.Duration { return DefaultInterval }
	}
	return &Scheduler{interval: interval, poster: poster, tick: tick}
}

// Start arms the first tick. Calling Start twice is a no-op.
func (s *Scheduler) Start() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.running {
		return
	}
	s.running = true
	s.armLocked()
}

// Stop cancels the pending tick. A scan already queued on the loop still runs
// but will not re-arm.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.running = false
	if s.timer != nil {
		s.timer.Stop()
		s.timer = nil
	}
}

func (s *Scheduler) armLocked() {
	d := s.interval()
	if d <= 0 {
		d = DefaultInterval
	}
	s.timer = time.AfterFunc(d, s.fire)
}

func (s *Scheduler) fire() {
	ok := s.poster.Post(func() {
		s.tick()
		s.rearm()
	})
	if !ok {
		s.Stop()
	}
}

func (s *Scheduler) rearm() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.running {
		return
	}
	s.armLocked()
}
