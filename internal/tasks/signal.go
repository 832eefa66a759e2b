package tasks

import "sync"

// signal is a reusable gate. Set opens it for every current and future
// waiter until Reset closes it again.
type signal struct {
	mu   sync.Mutex
	ch   chan struct{}
	open bool
}

func newSignal() *signal {
	return &signal{ch: make(chan struct{})}
}

func (s *signal) Set() {
	s.mu.Lock()
	if !s.open {
		close(s.ch)
		s.open = true
	}
	s.mu.Unlock()
}

func (s *signal) Reset() {
	s.mu.Lock()
	if s.open {
		s.ch = make(chan struct{})
		s.open = false
	}
	s.mu.Unlock()
}

func (s *signal) Wait() {
	s.mu.Lock()
	ch := s.ch
	s.mu.Unlock()
	<-ch
}
