package scheduler

import (
	"errors"
	"testing"

	"rustcore-go/kernelerrors"
)

type noopController struct{ enabled bool }

func (c *noopController) InterruptsEnabled() bool { return c.enabled }
func (c *noopController) DisableInterrupts()      { c.enabled = false }
func (c *noopController) EnableInterrupts()       { c.enabled = true }

func newTestScheduler() *Scheduler {
	return NewScheduler(&noopController{enabled: true})
}

// TestFIFORunOrder mirrors spec.md §8's scheduler FIFO property: tasks run
// in the order they were registered.
func TestFIFORunOrder(t *testing.T) {
	s := newTestScheduler()
	var order []int

	for i := 0; i < 5; i++ {
		i := i
		if _, err := s.Register(func() { order = append(order, i) }); err != nil {
			t.Fatalf("Register(%d): %v", i, err)
		}
	}

	s.Run()

	want := []int{0, 1, 2, 3, 4}
	if len(order) != len(want) {
		t.Fatalf("ran %d tasks, want %d", len(order), len(want))
	}
	for i := range want {
		if order[i] != want[i] {
			t.Errorf("order[%d] = %d, want %d", i, order[i], want[i])
		}
	}
}

func TestEveryRegisteredTaskRunsExactlyOnce(t *testing.T) {
	s := newTestScheduler()
	runs := 0
	if _, err := s.Register(func() { runs++ }); err != nil {
		t.Fatalf("Register: %v", err)
	}
	s.Run()
	if runs != 1 {
		t.Errorf("task ran %d times, want 1", runs)
	}
	s.Run() // queue already drained; must not rerun anything
	if runs != 1 {
		t.Errorf("after a second Run, task ran %d times, want 1", runs)
	}
}

func TestTaskCanReregisterItself(t *testing.T) {
	s := newTestScheduler()
	calls := 0
	var selfRegister Entry
	selfRegister = func() {
		calls++
		if calls < 3 {
			s.Register(selfRegister)
		}
	}
	s.Register(selfRegister)
	s.Run()

	if calls != 3 {
		t.Errorf("self-reregistering task ran %d times, want 3", calls)
	}
}

func TestQueueFullReturnsSchedulerFull(t *testing.T) {
	s := newTestScheduler()
	registered := 0
	for {
		if _, err := s.Register(func() {}); err != nil {
			if !errors.Is(err, kernelerrors.ErrSchedulerFull) {
				t.Fatalf("unexpected error: %v", err)
			}
			break
		}
		registered++
		if registered > MaxTasks {
			t.Fatal("queue accepted more than MaxTasks-1 entries without erroring")
		}
	}

	// One slot is always kept empty to disambiguate full from empty.
	if registered != MaxTasks-1 {
		t.Errorf("registered %d tasks before Full, want %d", registered, MaxTasks-1)
	}
}

func TestRunOnEmptyQueueReturnsImmediately(t *testing.T) {
	s := newTestScheduler()
	s.Run() // must not block or panic
}
