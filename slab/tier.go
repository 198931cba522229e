// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

// Package slab implements the tiered slab allocator: a fixed collection of
// fixed-size block pools, each with a shared free list and an optional
// per-worker cache, falling through to the OS allocator above the largest
// tier.
package slab

import (
	"unsafe"

	"code.hybscloud.com/atomix"

	"github.com/skylakelib/skylake/internal/ring"
)

// cacheLineAlign is the platform cache-line size every block is aligned to.
const cacheLineAlign = 64

// tier is one fixed-size block pool: a preallocated arena sliced into
// capacity blocks, with a shared free list indexed via FAA/CAS rather than
// a lock. A block pool is exactly a bounded MPMC queue of available block
// addresses, which is what ring.Ring provides.
type tier struct {
	blockSize int
	arena     []byte
	free      *ring.Ring[unsafe.Pointer]

	allocCount     atomix.Uint64
	deallocCount   atomix.Uint64
	osAllocCount   atomix.Uint64
	osDeallocCount atomix.Uint64
}

func newTier(blockSize, capacity int) *tier {
	arena := make([]byte, capacity*blockSize+cacheLineAlign)
	base := unsafe.Pointer(&arena[0])
	aligned := alignPointer(base, cacheLineAlign)

	t := &tier{
		blockSize: blockSize,
		arena:     arena,
		free:      ring.New[unsafe.Pointer](capacity),
	}
	for i := 0; i < capacity; i++ {
		block := unsafe.Add(aligned, i*blockSize)
		if err := t.free.Enqueue(&block); err != nil {
			// capacity was sized exactly for this loop; ring.New rounds its
			// physical size up to 2*capacity, so this can never fire.
			panic("slab: tier pool undersized")
		}
	}
	return t
}

// alignPointer rounds p up to the next align boundary. align must be a
// power of two. This is the canonical unsafe.Pointer arithmetic idiom:
// the offset is computed over uintptr, and the result is converted back to
// unsafe.Pointer in the same expression that derives it from p.
func alignPointer(p unsafe.Pointer, align uintptr) unsafe.Pointer {
	addr := uintptr(p)
	offset := (addr + align - 1) &^ (align - 1) - addr
	return unsafe.Pointer(uintptr(p) + offset)
}

// acquire pops one block from the shared free list, or reports ErrWouldBlock
// if the tier's pool is momentarily exhausted.
func (t *tier) acquire() (unsafe.Pointer, error) {
	ptr, err := t.free.Dequeue()
	if err != nil {
		return nil, err
	}
	t.allocCount.AddAcqRel(1)
	return ptr, nil
}

// release returns a block to the shared free list. Undefined behavior (per
// spec.md §4.1) if ptr was not obtained from this tier.
func (t *tier) release(ptr unsafe.Pointer) {
	base := uintptr(unsafe.Pointer(&t.arena[0]))
	if p := uintptr(ptr); p < base || p >= base+uintptr(len(t.arena)) {
		// An OS-backed block handed out on tier exhaustion: it never
		// belonged to this pool, so it is left for the garbage collector.
		t.osDeallocCount.AddAcqRel(1)
		return
	}
	if err := t.free.Enqueue(&ptr); err != nil {
		// The pool was sized for exactly its own blocks; a block can only
		// be released once per acquire, so the pool can never overflow
		// unless the caller double-frees. Surface it loudly rather than
		// silently dropping the block (which would leak it forever).
		panic("slab: release overflowed tier pool (double free?)")
	}
	t.deallocCount.AddAcqRel(1)
}

// Stats is a snapshot of one tier's relaxed diagnostic counters.
type Stats struct {
	BlockSize  int
	Allocs     uint64
	Deallocs   uint64
	OSAllocs   uint64
	OSDeallocs uint64
}

func (t *tier) stats() Stats {
	return Stats{
		BlockSize:  t.blockSize,
		Allocs:     t.allocCount.LoadRelaxed(),
		Deallocs:   t.deallocCount.LoadRelaxed(),
		OSAllocs:   t.osAllocCount.LoadRelaxed(),
		OSDeallocs: t.osDeallocCount.LoadRelaxed(),
	}
}
