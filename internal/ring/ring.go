// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package ring

import (
	"code.hybscloud.com/atomix"
	"code.hybscloud.com/spin"
)

// cacheLinePad separates hot fields that different goroutines spin on so
// they don't false-share a cache line.
type cacheLinePad [64]byte

// slotPad rounds a slot up to one cache line, accounting for the data
// field's own size being folded in by the compiler.
type slotPad [64 - 8]byte

// Ring is a bounded multi-producer multi-consumer queue of T, sized to
// the next power of two at or above the requested capacity.
//
// Producers and consumers each claim a slot via fetch-and-add on their
// own index (tail for Enqueue, head for Dequeue) and then spin only on
// that slot's cycle number — the round it currently belongs to — rather
// than retrying a single queue-wide CAS. That requires double the usable
// capacity in physical slots (2n for capacity n) so a slot can
// distinguish "belongs to the round I'm claiming" from "still belongs to
// the previous one."
type Ring[T any] struct {
	_         cacheLinePad
	tail      atomix.Uint64
	_         cacheLinePad
	head      atomix.Uint64
	_         cacheLinePad
	threshold atomix.Int64 // livelock guard: negative means "don't bother dequeuing"
	_         cacheLinePad
	draining  atomix.Bool
	_         cacheLinePad
	buffer    []ringSlot[T]
	capacity  uint64 // n, the usable capacity
	size      uint64 // 2n, the physical slot count
	mask      uint64 // 2n - 1
}

type ringSlot[T any] struct {
	cycle atomix.Uint64
	data  T
	_     slotPad
}

// New returns a Ring with room for at least capacity in-flight elements.
// capacity is rounded up to the next power of two; it must be at least 2.
func New[T any](capacity int) *Ring[T] {
	if capacity < 2 {
		panic("ring: capacity must be >= 2")
	}

	n := uint64(roundUpPow2(capacity))
	size := n * 2

	r := &Ring[T]{
		buffer:   make([]ringSlot[T], size),
		capacity: n,
		size:     size,
		mask:     size - 1,
	}
	r.threshold.StoreRelaxed(3*int64(n) - 1)
	for i := uint64(0); i < size; i++ {
		r.buffer[i].cycle.StoreRelaxed(i / n)
	}
	return r
}

func roundUpPow2(n int) int {
	p := 1
	for p < n {
		p <<= 1
	}
	return p
}

// Enqueue adds elem to the ring, or reports ErrWouldBlock if it is full.
// Safe for any number of concurrent callers.
func (r *Ring[T]) Enqueue(elem *T) error {
	sw := spin.Wait{}
	for {
		tail := r.tail.LoadAcquire()
		head := r.head.LoadAcquire()
		if tail >= head+r.capacity {
			return ErrWouldBlock
		}

		myTail := r.tail.AddAcqRel(1) - 1
		slot := &r.buffer[myTail&r.mask]
		expectedCycle := myTail / r.capacity

		switch slotCycle := slot.cycle.LoadAcquire(); {
		case slotCycle == expectedCycle:
			slot.data = *elem
			slot.cycle.StoreRelease(expectedCycle + 1)
			r.threshold.StoreRelaxed(3*int64(r.capacity) - 1)
			return nil
		case int64(slotCycle) < int64(expectedCycle):
			return ErrWouldBlock
		}

		sw.Once()
	}
}

// Drain tells Dequeue to skip its livelock-prevention threshold check, so
// every consumer can empty the ring even after producers have stopped
// feeding it. Used when a collaborator is shutting down and wants to pop
// whatever is left without waiting on the normal pressure heuristic.
func (r *Ring[T]) Drain() {
	r.draining.StoreRelease(true)
}

// Dequeue removes and returns an element, or reports (zero value,
// ErrWouldBlock) if the ring is empty.
func (r *Ring[T]) Dequeue() (T, error) {
	if !r.draining.LoadAcquire() && r.threshold.LoadRelaxed() < 0 {
		var zero T
		return zero, ErrWouldBlock
	}

	sw := spin.Wait{}
	for {
		myHead := r.head.AddAcqRel(1) - 1
		slot := &r.buffer[myHead&r.mask]
		expectedCycle := myHead/r.capacity + 1

		switch slotCycle := slot.cycle.LoadAcquire(); {
		case slotCycle == expectedCycle:
			elem := slot.data
			var zero T
			slot.data = zero
			slot.cycle.StoreRelease((myHead + r.size) / r.capacity)
			return elem, nil
		case int64(slotCycle) < int64(expectedCycle):
			// Slot still belongs to a stale round: advance it for the next
			// producer and decide whether the ring is genuinely empty or
			// just temporarily behind a racing producer.
			slot.cycle.CompareAndSwapAcqRel(slotCycle, (myHead+r.size)/r.capacity)

			if tail := r.tail.LoadAcquire(); tail <= myHead+1 {
				r.catchUp(tail, myHead+1)
				r.threshold.AddAcqRel(-1)
				var zero T
				return zero, ErrWouldBlock
			}
			if r.threshold.AddAcqRel(-1) <= 0 && !r.draining.LoadAcquire() {
				var zero T
				return zero, ErrWouldBlock
			}
		}
		sw.Once()
	}
}

// catchUp advances tail up to head when a consumer has outrun every
// producer, so a later Enqueue doesn't see a tail that trails where
// Dequeue has already moved past.
func (r *Ring[T]) catchUp(tail, head uint64) {
	for tail < head {
		if r.tail.CompareAndSwapRelaxed(tail, head) {
			return
		}
		tail = r.tail.LoadRelaxed()
		head = r.head.LoadRelaxed()
	}
}

// Cap returns the ring's usable capacity (rounded up from the value
// passed to New).
func (r *Ring[T]) Cap() int {
	return int(r.capacity)
}
