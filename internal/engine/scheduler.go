package engine

import (
	"sync"
	"time"
)

// Scheduler fires onTick every interval until stopped. Reset restarts the
// current interval, cancelling a tick that has not fired yet.
type Scheduler interface {
	Start(interval time.Duration, onTick func())
	Reset()
	Stop()
}

type timerScheduler struct {
	mu       sync.Mutex
	interval time.Duration
	onTick   func()
	timer    *time.Timer
	gen      uint64
	stopped  bool
}

// NewTimerScheduler returns a Scheduler backed by time.AfterFunc.
func NewTimerScheduler() Scheduler {
	return &timerScheduler{}
}

func (s *timerScheduler) Start(interval time.Duration, onTick func()) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.stopped || interval <= 0 {
		return
	}
	s.interval = interval
	s.onTick = onTick
	s.armLocked()
}

func (s *timerScheduler) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.stopped || s.onTick == nil {
		return
	}
	s.armLocked()
}

func (s *timerScheduler) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.stopped = true
	if s.timer != nil {
		s.timer.Stop()
	}
}

func (s *timerScheduler) armLocked() {
	if s.timer != nil {
		s.timer.Stop()
	}
	s.gen++
	gen := s.gen
	s.timer = time.AfterFunc(s.interval, func() { s.fire(gen) })
}

func (s *timerScheduler) fire(gen uint64) {
	s.mu.Lock()
	// A Reset or Stop raced with this timer.
	if s.stopped || s.gen != gen {
		s.mu.Unlock()
		return
	}
	s.armLocked()
	onTick := s.onTick
	s.mu.Unlock()

	onTick()
}
