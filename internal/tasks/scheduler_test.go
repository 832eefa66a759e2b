package tasks

import (
	"sync/atomic"
	"testing"
)

func TestRunAllExecutesEveryTaskOnce(t *testing.T) {
	s := NewWithThreads(4)
	defer s.Close()

	const n = 1000
	var hits [n]atomic.Int32
	for i := 0; i < n; i++ {
		s.Submit(func(arg any) {
			hits[arg.(int)].Add(1)
		}, i)
	}
	s.RunAll()

	for i := range hits {
		if got := hits[i].Load(); got != 1 {
			t.Fatalf("Expected task %d to run once, got %d", i, got)
		}
	}
	if s.Pending() != 0 {
		t.Errorf("Expected empty queue after RunAll, got %d", s.Pending())
	}
}

func TestRunAllManyBatches(t *testing.T) {
	s := NewWithThreads(3)
	defer s.Close()

	var total atomic.Int64
	for batch := 0; batch < 200; batch++ {
		for i := 0; i < 17; i++ {
			s.Submit(func(arg any) {
				total.Add(int64(arg.(int)))
			}, 1)
		}
		s.RunAll()

		want := int64((batch + 1) * 17)
		if got := total.Load(); got != want {
			t.Fatalf("Batch %d: expected total %d, got %d", batch, want, got)
		}
	}
}

func TestRunAllWritesVisibleToCaller(t *testing.T) {
	s := NewWithThreads(4)
	defer s.Close()

	out := make([]int, 64)
	for i := range out {
		s.Submit(func(arg any) {
			idx := arg.(int)
			out[idx] = idx * idx
		}, i)
	}
	s.RunAll()

	for i, v := range out {
		if v != i*i {
			t.Errorf("Expected out[%d] = %d, got %d", i, i*i, v)
		}
	}
}

func TestSingleThreadRunsOnCaller(t *testing.T) {
	s := NewWithThreads(0)
	defer s.Close()

	if s.Threads() != 1 {
		t.Errorf("Expected 1 thread, got %d", s.Threads())
	}

	ran := 0
	s.Submit(func(any) { ran++ }, nil)
	s.Submit(func(any) { ran++ }, nil)
	s.RunAll()

	if ran != 2 {
		t.Errorf("Expected 2 tasks run, got %d", ran)
	}
}

func TestRunAllEmptyBatch(t *testing.T) {
	s := NewWithThreads(2)
	defer s.Close()

	s.RunAll()

	ran := false
	s.Submit(func(any) { ran = true }, nil)
	s.RunAll()
	if !ran {
		t.Error("Task after empty batch did not run")
	}
}

func TestSubmitNilIgnored(t *testing.T) {
	s := NewWithThreads(2)
	defer s.Close()

	s.Submit(nil, 1)
	if s.Pending() != 0 {
		t.Errorf("Expected nil task to be ignored, got %d pending", s.Pending())
	}
}

func TestCloseTwice(t *testing.T) {
	s := New(1)
	s.Close()
	s.Close()
}

func TestSignalSetReset(t *testing.T) {
	sig := newSignal()
	sig.Set()
	sig.Wait() // must not block while open
	sig.Set()  // idempotent

	sig.Reset()
	done := make(chan struct{})
	go func() {
		sig.Wait()
		close(done)
	}()

	select {
	case <-done:
		t.Fatal("Wait returned on a reset signal")
	default:
	}

	sig.Set()
	<-done
}
