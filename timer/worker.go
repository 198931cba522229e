// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package timer

import (
	"container/heap"
	"time"

	"github.com/skylakelib/skylake"
	"github.com/skylakelib/skylake/task"
)

// Worker is one worker's delayed-task scheduler: a pending queue any thread
// may push onto, and a heap only the owning worker's goroutine touches.
//
// Worker reuses task.Queue — the same wait-free intrusive MPSC the AOD
// package dispatches through — as its pending queue. Schedule wraps the
// caller's deadline and body in a task.Task whose captured closure, when
// dispatched, inserts itself into the heap rather than running the body;
// Tick drains the pending queue by dispatching every task it pops, which
// performs exactly that insertion on the worker's own thread. The body
// itself only runs once the heap root's deadline has actually elapsed.
type Worker struct {
	pending *task.Queue
	heap    minHeap
	seq     uint64
	now     func() time.Time
}

// Option configures a Worker at construction.
type Option func(*Worker)

// WithClock overrides the time source Schedule and Tick use to compute and
// compare deadlines. The zero value uses time.Now.
func WithClock(now func() time.Time) Option {
	return func(w *Worker) { w.now = now }
}

// NewWorker returns an empty scheduler ready for use by one worker goroutine
// (Tick) and any number of producer goroutines (Schedule).
func NewWorker(opts ...Option) *Worker {
	w := &Worker{
		pending: task.NewQueue(),
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

// Schedule arranges for fn to run after delay has elapsed, satisfying
// aod.Scheduler. Safe for concurrent use by any number of callers; the
// actual heap insertion is deferred to this worker's next Tick.
func (w *Worker) Schedule(delay time.Duration, fn task.Func) skylake.Status {
	if fn == nil {
		return skylake.StatusFail
	}
	deadline := w.now().Add(delay)
	t := task.NewWith(entry{deadline: deadline, fn: fn}, func(e *entry) {
		w.insert(e.deadline, e.fn)
	})
	w.pending.Push(t)
	return skylake.StatusSuccess
}

// insert assigns the drain-order sequence number and pushes onto the heap.
// Called only from Tick's drain step, i.e. only on the owning worker thread.
func (w *Worker) insert(deadline time.Time, fn task.Func) {
	w.seq++
	heap.Push(&w.heap, &entry{deadline: deadline, seq: w.seq, fn: fn})
}

// drain moves every currently-pending scheduled task into the heap. It must
// run before the root-deadline check on every Tick so that tasks scheduled
// concurrently with this tick are not skipped past their deadline.
func (w *Worker) drain() {
	for {
		t := w.pending.Pop()
		if t == nil {
			if w.pending.IsEmpty() {
				return
			}
			continue
		}
		t.Dispatch()
		t.Clear()
	}
}

// Tick drains the pending queue into the heap, then pops and runs every
// entry whose deadline has passed, in deadline order. It must only be
// called by the worker that owns this scheduler.
func (w *Worker) Tick() {
	w.drain()
	now := w.now()
	for w.heap.Len() > 0 && !w.heap[0].deadline.After(now) {
		e := heap.Pop(&w.heap).(*entry)
		e.fn()
	}
}

// Len reports the number of tasks currently waiting in the heap. It does
// not include tasks still sitting in the pending queue awaiting the next
// Tick's drain step.
func (w *Worker) Len() int { return w.heap.Len() }
