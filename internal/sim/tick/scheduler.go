// Package tick runs one-shot callbacks a number of host ticks in the future.
package tick

import "container/heap"

type task struct {
	due uint64
	seq uint64
	fn  func()
}

type queue []task

func (q queue) Len() int { return len(q) }
func (q queue) Less(i, j int) bool {
	if q[i].due != q[j].due {
		return q[i].due < q[j].due
	}
	return q[i].seq < q[j].seq
}
func (q queue) Swap(i, j int) { q[i], q[j] = q[j], q[i] }
func (q *queue) Push(x any)   { *q = append(*q, x.(task)) }
func (q *queue) Pop() any {
	old := *q
	n := len(old)
	t := old[n-1]
	old[n-1] = task{}
	*q = old[:n-1]
	return t
}

// Scheduler is driven by the host loop; it is not safe for concurrent use.
// Callbacks due on the same tick run in the order they were scheduled.
type Scheduler struct {
	now uint64
	seq uint64
	q   queue
}

func NewScheduler() *Scheduler { return &Scheduler{} }

func (s *Scheduler) Now() uint64 { return s.now }

func (s *Scheduler) Pending() int { return len(s.q) }

// After runs fn once, ticks steps from now. ticks <= 0 runs on the next Step.
func (s *Scheduler) After(ticks int, fn func()) {
	if ticks < 1 {
		ticks = 1
	}
	s.seq++
	heap.Push(&s.q, task{due: s.now + uint64(ticks), seq: s.seq, fn: fn})
}

// Step advances one tick and runs everything now due, including callbacks
// scheduled for this same tick by earlier callbacks.
func (s *Scheduler) Step() int {
	s.now++
	ran := 0
	for len(s.q) > 0 && s.q[0].due <= s.now {
		t := heap.Pop(&s.q).(task)
		t.fn()
		ran++
	}
	return ran
}
