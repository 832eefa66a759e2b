// Package tasks runs batches of independent closures on a fixed pool of
// worker goroutines, with the calling goroutine acting as the last worker.
package tasks

import (
	"runtime"
	"sync"
	"sync/atomic"
)

// Func is a unit of work. It receives the argument given to Submit.
// Tasks must not panic and must not call RunAll.
type Func func(arg any)

type task struct {
	fn  Func
	arg any
}

// Scheduler is a fork-join pool. Work is queued with Submit and executed by
// RunAll, which returns only after every queued task has run exactly once.
//
// Workers alternate between two gates. While a batch runs on one gate the
// other is closed, so a worker that finishes early parks there and cannot
// observe the task list while the caller refills it.
type Scheduler struct {
	workers int
	tasks   []task

	cursor atomic.Int32
	idle   atomic.Int32

	gates   [2]*signal
	current int

	closed atomic.Bool
	wg     sync.WaitGroup
}

// New creates a scheduler sized to runtime.NumCPU() * multiplier threads.
func New(multiplier int) *Scheduler {
	if multiplier < 1 {
		multiplier = 1
	}
	return NewWithThreads(runtime.NumCPU() * multiplier)
}

// NewWithThreads creates a scheduler with threads-1 background workers.
// A value below one is treated as one, which runs everything on the caller.
func NewWithThreads(threads int) *Scheduler {
	if threads < 1 {
		threads = 1
	}
	s := &Scheduler{
		workers: threads - 1,
		gates:   [2]*signal{newSignal(), newSignal()},
	}

	s.wg.Add(s.workers)
	for i := 0; i < s.workers; i++ {
		go s.worker()
	}

	// Don't hand out the scheduler until every worker is parked on the first gate
	for s.idle.Load() < int32(s.workers) {
		runtime.Gosched()
	}
	return s
}

// Threads returns the number of goroutines that execute a batch, including the caller.
func (s *Scheduler) Threads() int {
	return s.workers + 1
}

// Pending returns the number of queued tasks.
func (s *Scheduler) Pending() int {
	return len(s.tasks)
}

// Submit queues fn(arg) for the next RunAll.
func (s *Scheduler) Submit(fn Func, arg any) {
	if fn == nil {
		return
	}
	s.tasks = append(s.tasks, task{fn: fn, arg: arg})
}

// RunAll executes every queued task and blocks until all have completed,
// then clears the queue. Execution order within a batch is undefined.
func (s *Scheduler) RunAll() {
	if len(s.tasks) == 0 {
		return
	}

	gate := s.gates[s.current]
	s.cursor.Store(0)
	s.idle.Store(0)
	gate.Set()

	s.pump()

	for s.idle.Load() < int32(s.workers) {
		runtime.Gosched()
	}

	gate.Reset()
	s.current ^= 1

	clear(s.tasks)
	s.tasks = s.tasks[:0]
}

// Close stops the background workers. The scheduler must not be used afterward.
func (s *Scheduler) Close() {
	if s.closed.Swap(true) {
		return
	}
	s.gates[s.current].Set()
	s.wg.Wait()
}

func (s *Scheduler) worker() {
	defer s.wg.Done()

	gate := 0
	for {
		s.idle.Add(1)
		s.gates[gate].Wait()
		if s.closed.Load() {
			return
		}
		s.pump()
		gate ^= 1
	}
}

// pump claims tasks through the shared cursor until the batch is exhausted.
func (s *Scheduler) pump() {
	n := int32(len(s.tasks))
	for {
		i := s.cursor.Add(1) - 1
		if i >= n {
			return
		}
		t := s.tasks[i]
		t.fn(t.arg)
	}
}
