package sandbox

import (
	"container/heap"
	"log"
	"time"
)

// Task is a callback scheduled on a Timeline.
type Task struct {
	due      time.Duration
	every    time.Duration
	seq      uint64
	fn       func()
	canceled bool
	done     bool
	index    int
}

// Cancel stops the task from firing again. Safe to call more than once and
// from inside any task callback.
func (t *Task) Cancel() {
	t.canceled = true
}

// Active reports whether the task may still fire.
func (t *Task) Active() bool {
	return !t.canceled && !t.done
}

type taskQueue []*Task

func (q taskQueue) Len() int { return len(q) }
func (q taskQueue) Less(i, j int) bool {
	if q[i].due != q[j].due {
		return q[i].due < q[j].due
	}
	return q[i].seq < q[j].seq
}
func (q taskQueue) Swap(i, j int) {
	q[i], q[j] = q[j], q[i]
	q[i].index = i
	q[j].index = j
}
func (q *taskQueue) Push(x any) {
	t := x.(*Task)
	t.index = len(*q)
	*q = append(*q, t)
}
func (q *taskQueue) Pop() any {
	old := *q
	n := len(old)
	t := old[n-1]
	old[n-1] = nil
	*q = old[:n-1]
	return t
}

// Timeline is a virtual clock. Tasks fire in due order, ties in the order
// they were scheduled, only while Advance is running.
type Timeline struct {
	now   time.Duration
	seq   uint64
	queue taskQueue
}

func NewTimeline() *Timeline {
	return &Timeline{}
}

// Now is the virtual time elapsed since the timeline was created.
func (tl *Timeline) Now() time.Duration {
	return tl.now
}

func (tl *Timeline) schedule(t *Task) *Task {
	tl.seq++
	t.seq = tl.seq
	heap.Push(&tl.queue, t)
	return t
}

// After runs fn once, d from now. Negative delays fire on the next Advance.
func (tl *Timeline) After(d time.Duration, fn func()) *Task {
	if d < 0 {
		d = 0
	}
	return tl.schedule(&Task{due: tl.now + d, fn: fn})
}

// Every runs fn each period, first at now+period.
func (tl *Timeline) Every(period time.Duration, fn func()) *Task {
	if period <= 0 {
		period = time.Millisecond
	}
	return tl.schedule(&Task{due: tl.now + period, every: period, fn: fn})
}

// Advance moves the clock forward by d, firing every task that falls due on
// the way at its exact due time. It returns the number of callbacks run.
func (tl *Timeline) Advance(d time.Duration) int {
	target := tl.now + d
	fired := 0
	for tl.queue.Len() > 0 {
		next := tl.queue[0]
		if next.canceled {
			heap.Pop(&tl.queue)
			continue
		}
		if next.due > target {
			break
		}
		heap.Pop(&tl.queue)
		tl.now = next.due
		if next.every > 0 {
			next.due += next.every
			tl.schedule(next)
		} else {
			next.done = true
		}
		fired++
		runTask(next.fn)
	}
	if target > tl.now {
		tl.now = target
	}
	return fired
}

// Pending counts tasks that can still fire.
func (tl *Timeline) Pending() int {
	n := 0
	for _, t := range tl.queue {
		if !t.canceled {
			n++
		}
	}
	return n
}

func runTask(fn func()) {
	defer func() {
		if r := recover(); r != nil {
			log.Printf("[SCHED] Task panicked: %v", r)
		}
	}()
	fn()
}

// TaskGroup tracks related tasks so they can be canceled together.
type TaskGroup struct {
	tasks []*Task
}

// Add tracks t and returns it. Finished tasks are dropped on the way.
func (g *TaskGroup) Add(t *Task) *Task {
	live := g.tasks[:0]
	for _, old := range g.tasks {
		if old.Active() {
			live = append(live, old)
		}
	}
	g.tasks = append(live, t)
	return t
}

// CancelAll cancels every tracked task and returns how many were still active.
func (g *TaskGroup) CancelAll() int {
	n := 0
	for _, t := range g.tasks {
		if t.Active() {
			n++
		}
		t.Cancel()
	}
	g.tasks = nil
	return n
}

// Len counts tracked tasks that can still fire.
func (g *TaskGroup) Len() int {
	n := 0
	for _, t := range g.tasks {
		if t.Active() {
			n++
		}
	}
	return n
}
