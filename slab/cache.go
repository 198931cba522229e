// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package slab

import (
	"unsafe"

	"github.com/skylakelib/skylake"
)

// Cache is a per-worker front-end over an Allocator, selected when the
// owning worker group declares thread_local_memory_manager (spec.md §4.1).
// A Cache belongs to exactly one worker goroutine; none of its methods are
// safe for concurrent use, which is what lets it hold free blocks in plain
// slices rather than anything CAS-guarded.
type Cache struct {
	a      *Allocator
	stacks [][]unsafe.Pointer
	batch  int
}

// NewCache returns a Cache over a, refilling/draining batch blocks at a
// time from a's shared tier pools. A non-positive batch defaults to 32.
func (a *Allocator) NewCache(batch int) *Cache {
	if batch <= 0 {
		batch = 32
	}
	return &Cache{
		a:      a,
		stacks: make([][]unsafe.Pointer, len(a.tiers)),
		batch:  batch,
	}
}

// Allocate serves size from this worker's local stack when possible,
// refilling from the shared tier pool in batches of Cache's configured
// size when the local stack is empty. Sizes above the largest tier bypass
// the cache entirely and go straight to the allocator's OS path.
func (c *Cache) Allocate(size int) (ptr unsafe.Pointer, actual int, status skylake.Status) {
	idx := c.a.tierFor(size)
	if idx < 0 {
		return c.a.allocateOS(size)
	}

	stack := c.stacks[idx]
	if len(stack) == 0 {
		t := c.a.tiers[idx]
		for i := 0; i < c.batch; i++ {
			block, err := t.acquire()
			if err != nil {
				break
			}
			stack = append(stack, block)
		}
		if len(stack) == 0 {
			return c.a.allocateOS(t.blockSize)
		}
	}

	n := len(stack) - 1
	block := stack[n]
	c.stacks[idx] = stack[:n]
	return block, c.a.tiers[idx].blockSize, skylake.StatusSuccess
}

// Deallocate returns ptr to this worker's local stack for size's tier,
// spilling the whole local batch back to the shared pool once it grows to
// twice the configured batch size. Sizes above the largest tier are
// forwarded directly to the allocator.
func (c *Cache) Deallocate(ptr unsafe.Pointer, size int) {
	idx := c.a.tierFor(size)
	if idx < 0 {
		c.a.Deallocate(ptr, size)
		return
	}

	stack := append(c.stacks[idx], ptr)
	if len(stack) >= 2*c.batch {
		t := c.a.tiers[idx]
		spill := stack[c.batch:]
		for _, p := range spill {
			t.release(p)
		}
		stack = stack[:c.batch:c.batch]
	}
	c.stacks[idx] = stack
}
