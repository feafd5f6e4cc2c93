// Package scheduler implements the cooperative, run-to-completion task
// scheduler described in spec.md §4.G: a FIFO ring of task control blocks,
// each a plain entry-point function.
package scheduler

import (
	"rustcore-go/kernelerrors"
	"rustcore-go/kernelsync"
)

// MaxTasks is the ring's slot capacity. One slot is always kept empty to
// distinguish a full ring from an empty one, matching the original
// scheduler's head/tail bookkeeping.
const MaxTasks = 16

// TaskID identifies a registered task. IDs wrap at 16 bits.
type TaskID uint16

// TaskState is a task's position in its lifecycle.
type TaskState uint8

const (
	// Ready tasks are enqueued and waiting to run.
	Ready TaskState = iota
	// Running is set on the TCB handed out of the queue to Run's caller.
	Running
	// Blocked is defined by spec.md §4.G but produced by no current
	// policy; it exists so a future suspending-receive design has
	// somewhere to put a task without changing this enum.
	Blocked
	// Completed tasks have returned from their entry point.
	Completed
)

// Entry is a task's entry point. It runs to completion: once called it is
// never resumed.
type Entry func()

// TaskControlBlock describes one scheduled task.
type TaskControlBlock struct {
	ID    TaskID
	Entry Entry
	State TaskState
}

type taskSlot struct {
	tcb      TaskControlBlock
	occupied bool
}

type readyQueue struct {
	slots  [MaxTasks]taskSlot
	head   int
	tail   int
	nextID uint16
}

func (q *readyQueue) push(entry Entry) (TaskID, bool) {
	nextTail := (q.tail + 1) % MaxTasks
	if nextTail == q.head {
		return 0, false
	}

	id := TaskID(q.nextID)
	q.nextID++ // wraps per Go's uint16 overflow semantics

	q.slots[q.tail] = taskSlot{
		tcb:      TaskControlBlock{ID: id, Entry: entry, State: Ready},
		occupied: true,
	}
	q.tail = nextTail
	return id, true
}

func (q *readyQueue) pop() (TaskControlBlock, bool) {
	if q.head == q.tail {
		return TaskControlBlock{}, false
	}

	s := q.slots[q.head]
	q.slots[q.head] = taskSlot{}
	q.head = (q.head + 1) % MaxTasks

	s.tcb.State = Running
	return s.tcb, true
}

func (q *readyQueue) reset() {
	q.slots = [MaxTasks]taskSlot{}
	q.head = 0
	q.tail = 0
}

// Scheduler owns the FIFO ready queue, guarded by the kernel's
// interrupt-masking lock the same way every other piece of kernel-global
// state is (spec.md §4.C).
type Scheduler struct {
	lock *kernelsync.Lock[readyQueue]
}

// NewScheduler returns a scheduler with an empty ready queue.
func NewScheduler(ctrl kernelsync.InterruptController) *Scheduler {
	return &Scheduler{lock: kernelsync.New(readyQueue{}, ctrl)}
}

// Register enqueues a new Ready task at the tail of the FIFO and returns
// its id, or kernelerrors.ErrSchedulerFull if the queue has no room.
func (s *Scheduler) Register(entry Entry) (TaskID, error) {
	type result struct {
		id TaskID
		ok bool
	}
	r := kernelsync.With(s.lock, func(q *readyQueue) result {
		id, ok := q.push(entry)
		return result{id: id, ok: ok}
	})
	if !r.ok {
		return 0, kernelerrors.ErrSchedulerFull
	}
	return r.id, nil
}

// Run pops tasks off the head of the queue under the lock and calls each
// entry point to completion outside the lock, so a task that registers
// further tasks (or sends/receives on a channel) does not deadlock against
// the scheduler's own lock. Run returns once the queue is empty; it is not
// reentrant.
func (s *Scheduler) Run() {
	type popResult struct {
		tcb TaskControlBlock
		ok  bool
	}
	for {
		r := kernelsync.With(s.lock, func(q *readyQueue) popResult {
			tcb, ok := q.pop()
			return popResult{tcb: tcb, ok: ok}
		})
		if !r.ok {
			return
		}
		r.tcb.Entry()
	}
}
