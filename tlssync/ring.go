// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

// Package tlssync implements the TLS-sync broadcast ring: a fixed-capacity
// ring of tasks that every worker of a group dispatches exactly once, with
// a single final dispatch delivered to whichever worker observes the last
// live reference drop to zero.
package tlssync

import (
	"unsafe"

	"code.hybscloud.com/atomix"
	"code.hybscloud.com/spin"
	"github.com/skylakelib/skylake"
)

// Func is a TLS-sync task body. isFinal is false on every worker's first
// (and only guaranteed) dispatch, and true on the single additional
// dispatch delivered to whichever worker's decrement observes the
// reference count reach zero.
type Func func(isFinal bool)

// entry is one broadcast task in flight: its body and the count of workers
// that have not yet dispatched it.
type entry struct {
	fn        Func
	remaining atomix.Int64
}

// Ring is a power-of-two-sized broadcast ring. A single monotonic head
// index is bumped by producers (Push, safe for any number of callers); each
// worker owns exactly one Cursor and must only ever advance its own.
type Ring struct {
	slots   []atomix.Uintptr // *entry, stored as uintptr; 0 means "free"
	mask    uint64
	head    atomix.Uint64
	workers int
}

// NewRing returns a Ring with room for capacity in-flight tasks (rounded up
// to the next power of two), broadcasting to exactly workers consumers.
func NewRing(capacity, workers int) *Ring {
	if workers < 1 {
		panic("tlssync: workers must be >= 1")
	}
	n := roundUpPow2(capacity)
	return &Ring{
		slots:   make([]atomix.Uintptr, n),
		mask:    uint64(n) - 1,
		workers: workers,
	}
}

func roundUpPow2(n int) int {
	if n < 1 {
		n = 1
	}
	p := 1
	for p < n {
		p <<= 1
	}
	return p
}

// Push broadcasts fn to every worker of the group and returns
// StatusSuccess. If the target slot is still occupied — a producer has
// outrun some worker's cursor by a full lap — Push spin-waits until that
// slot's final dispatch frees it; it has no bound on that wait and no
// failure return.
func (r *Ring) Push(fn Func) skylake.Status {
	idx := r.head.AddAcqRel(1) - 1
	slot := &r.slots[idx&r.mask]

	e := &entry{fn: fn}
	e.remaining.StoreRelease(int64(r.workers))
	ptr := uintptr(unsafe.Pointer(e))

	sw := spin.Wait{}
	for {
		if slot.CompareAndSwapAcqRel(0, ptr) {
			return skylake.StatusSuccess
		}
		sw.Once()
	}
}

// Cursor is one worker's walk through the ring. A Cursor must only ever be
// advanced by the single worker goroutine that owns it.
type Cursor struct {
	ring *Ring
	pos  uint64
}

// NewCursor returns a Cursor starting at the ring's current head, so a
// worker that joins after some broadcasts have already landed does not
// replay them.
func (r *Ring) NewCursor() *Cursor {
	return &Cursor{ring: r, pos: r.head.LoadAcquire()}
}

// Advance dispatches the next pending broadcast task, if any, and reports
// whether one was found. It implements spec.md §4.7's per-worker protocol:
// a non-final dispatch always runs; the worker whose decrement brings the
// task's reference count to zero also runs the final dispatch and clears
// the slot for reuse.
func (c *Cursor) Advance() bool {
	head := c.ring.head.LoadAcquire()
	if c.pos >= head {
		return false
	}

	slot := &c.ring.slots[c.pos&c.ring.mask]
	sw := spin.Wait{}
	var e *entry
	for {
		p := slot.LoadAcquire()
		if p != 0 {
			e = (*entry)(unsafe.Pointer(p))
			break
		}
		// Push has claimed head but not yet stored its entry pointer; the
		// same momentary race the intrusive task queue tolerates on pop.
		sw.Once()
	}

	e.fn(false)
	if e.remaining.AddAcqRel(-1) == 0 {
		e.fn(true)
		slot.StoreRelease(0)
	}
	c.pos++
	return true
}

// DrainAll advances the cursor until no pending broadcast remains, and
// reports how many it dispatched. Worker groups with supports_TLS_sync call
// this once per tick (spec.md §4.5 step 3).
func (c *Cursor) DrainAll() int {
	n := 0
	for c.Advance() {
		n++
	}
	return n
}
