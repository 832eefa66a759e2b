package physics

import "sync"

// Pool is a free list of reusable objects. Acquire and Release are safe for
// concurrent use.
type Pool[T any] struct {
	mu      sync.Mutex
	free    []*T
	reset   func(*T)
	created int
}

// NewPool returns a pool that calls reset on every released object.
func NewPool[T any](reset func(*T)) *Pool[T] {
	return &Pool[T]{reset: reset}
}

func (p *Pool[T]) Acquire() *T {
	p.mu.Lock()
	defer p.mu.Unlock()

	if n := len(p.free); n > 0 {
		v := p.free[n-1]
		p.free[n-1] = nil
		p.free = p.free[:n-1]
		return v
	}
	p.created++
	return new(T)
}

func (p *Pool[T]) Release(v *T) {
	if p.reset != nil {
		p.reset(v)
	}
	p.mu.Lock()
	p.free = append(p.free, v)
	p.mu.Unlock()
}

// Free returns the number of idle objects.
func (p *Pool[T]) Free() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.free)
}

// Created returns the number of objects allocated since the last Reset.
func (p *Pool[T]) Created() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.created
}

// Reset drops every idle object.
func (p *Pool[T]) Reset() {
	p.mu.Lock()
	clear(p.free)
	p.free = p.free[:0]
	p.created = 0
	p.mu.Unlock()
}
