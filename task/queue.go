// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package task

import (
	"unsafe"

	"code.hybscloud.com/atomix"
	"code.hybscloud.com/spin"
)

// Queue is a wait-free, intrusive, multi-producer single-consumer task
// queue. Unlike the teacher's bounded, value-copying MPSC/SPMC/MPMC ring
// family (which preallocate 2n physical slots for capacity n), Queue is
// unbounded: Tasks carry their own storage, so there is no ring to size and
// no capacity to exhaust. Push is wait-free (a single CAS retry loop with
// no blocking section); Pop is lock-free and must only ever be called by
// the single owning worker.
//
// Algorithm: a classic intrusive MPSC queue (Vyukov), using a permanently
// allocated stub node to avoid special-casing "first push" and "queue just
// drained". The contention point is tail, swung via a CAS retry loop in
// the same spin.Wait idiom the teacher uses for its FAA producer loops.
type Queue struct {
	stub Task
	head *Task
	tail atomix.Uintptr
}

// NewQueue returns an empty Queue ready for use.
func NewQueue() *Queue {
	q := &Queue{}
	q.head = &q.stub
	q.tail.StoreRelaxed(uintptr(unsafe.Pointer(&q.stub)))
	return q
}

// Push enqueues t. Safe for concurrent use by any number of producers.
//
// Push reports whether the queue observed to be empty immediately before
// this push (the "previous emptiness" signal aod.Object uses to decide
// whether the calling thread has just won dispatch rights for a
// zero-to-one transition). The report is necessarily racy with respect to
// the consumer — by the time the caller reads it, another push may have
// landed — which is why aod.Object also consults its own remaining-count
// so dispatch ownership is determined by a single atomic counter rather
// than by this signal alone.
func (q *Queue) Push(t *Task) (wasEmpty bool) {
	t.storeNext(nil)

	sw := spin.Wait{}
	var prev uintptr
	for {
		prev = q.tail.LoadAcquire()
		if q.tail.CompareAndSwapAcqRel(prev, uintptr(unsafe.Pointer(t))) {
			break
		}
		sw.Once()
	}

	prevTask := (*Task)(unsafe.Pointer(prev))
	wasEmpty = prevTask == &q.stub
	prevTask.storeNext(t)
	return wasEmpty
}

// Pop removes and returns the oldest task, or nil if the queue is empty.
//
// Pop must only be called by the single consumer that owns this Queue.
// A nil result does not always mean "permanently empty": if a producer has
// claimed the tail slot but not yet linked it in, Pop returns nil rather
// than spin-waiting for that producer, and the caller is expected to
// retry on its next loop iteration (the same "amortized O(1), empty means
// try again" contract as the teacher's ring-buffer Dequeue).
func (q *Queue) Pop() *Task {
	head := q.head
	next := head.loadNext()

	if head == &q.stub {
		if next == nil {
			return nil
		}
		q.head = next
		head = next
		next = head.loadNext()
	}

	if next != nil {
		q.head = next
		return head
	}

	tail := (*Task)(unsafe.Pointer(q.tail.LoadAcquire()))
	if head != tail {
		// A producer has claimed tail but not yet linked its node to
		// head; the chain is momentarily broken. Not empty, just racing.
		return nil
	}

	// Relink the stub at the tail so the next Push closes the gap, then
	// check once more: if a concurrent push landed between the two loads
	// above, it is now reachable from head.
	q.Push(&q.stub)
	next = head.loadNext()
	if next != nil {
		q.head = next
		return head
	}
	return nil
}

// IsEmpty reports whether the queue currently appears empty. Like Pop, this
// may return a false negative directly after a producer claims a tail slot
// it has not yet linked.
func (q *Queue) IsEmpty() bool {
	return q.head == (*Task)(unsafe.Pointer(q.tail.LoadAcquire())) && q.head.loadNext() == nil
}
