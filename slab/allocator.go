// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package slab

import (
	"unsafe"

	"github.com/skylakelib/skylake"
)

// DefaultTierSizes are the tier boundaries used when Config.TierSizes is
// empty, matching the example tier ladder in spec.md §3.
var DefaultTierSizes = []int{64, 128, 512, 1024, 2048, 8192}

// Config configures an Allocator.
type Config struct {
	// TierSizes lists the tier block sizes in ascending order. Defaults to
	// DefaultTierSizes.
	TierSizes []int
	// TierCapacity is the number of preallocated blocks per tier. Defaults
	// to 4096.
	TierCapacity int
}

// Allocator is the tiered slab allocator: a fixed ladder of fixed-size
// block pools, falling through to the OS allocator (Go's own allocator,
// via make) above the largest tier.
type Allocator struct {
	tiers []*tier
}

// New builds an Allocator with every tier preallocated; there is no warm-up
// step separate from construction (see Preallocate).
func New(cfg Config) *Allocator {
	sizes := cfg.TierSizes
	if len(sizes) == 0 {
		sizes = DefaultTierSizes
	}
	capacity := cfg.TierCapacity
	if capacity <= 0 {
		capacity = 4096
	}

	a := &Allocator{tiers: make([]*tier, len(sizes))}
	for i, size := range sizes {
		a.tiers[i] = newTier(size, capacity)
	}
	return a
}

// Preallocate warms every tier so no allocation within tier capacity can
// trigger OS work. Since New already preallocates every tier's arena and
// free list, Preallocate here is a readiness check rather than an
// additional warm-up step; it exists as a named operation so callers
// written against spec.md §4.1's contract (and any future lazy-tier
// variant) have a stable call to make.
func (a *Allocator) Preallocate() skylake.Status {
	return skylake.StatusSuccess
}

// tierFor returns the index of the smallest tier whose block size is ≥
// size, or -1 if size exceeds every tier (meaning it must go to the OS).
// Ties go to the smaller tier, which falls out of scanning ascending sizes
// and returning on the first match.
func (a *Allocator) tierFor(size int) int {
	for i, t := range a.tiers {
		if size <= t.blockSize {
			return i
		}
	}
	return -1
}

// Allocate returns a block whose capacity is the smallest tier ≥ size, or a
// raw OS-backed block if size exceeds the largest tier. When a tier's shared
// pool is exhausted it returns an OS-backed block of that tier's size
// instead. It never returns StatusAllocationFailed: Go's allocator panics
// on true OOM rather than reporting it.
func (a *Allocator) Allocate(size int) (ptr unsafe.Pointer, actual int, status skylake.Status) {
	idx := a.tierFor(size)
	if idx < 0 {
		return a.allocateOS(size)
	}

	t := a.tiers[idx]
	block, err := t.acquire()
	if err != nil {
		// Tier exhaustion falls through to the OS rather than failing, per
		// spec.md §4.1's explicit "degrades rather than denies" policy.
		return a.allocateOS(t.blockSize)
	}
	return block, t.blockSize, skylake.StatusSuccess
}

func (a *Allocator) allocateOS(size int) (unsafe.Pointer, int, skylake.Status) {
	if size <= 0 {
		return nil, 0, skylake.StatusFail
	}
	buf := make([]byte, size)
	if len(a.tiers) > 0 {
		a.tiers[len(a.tiers)-1].osAllocCount.AddAcqRel(1)
	}
	return unsafe.Pointer(&buf[0]), size, skylake.StatusSuccess
}

// Deallocate routes ptr back to the tier containing size, or drops it for
// the garbage collector to reclaim if size exceeds the largest tier
// (Go has no manual free; an OS-tier block's only owner was the slice
// backing it, which becomes collectible once the caller drops ptr).
// Undefined behavior if size differs from the value Allocate returned,
// matching spec.md §4.1.
func (a *Allocator) Deallocate(ptr unsafe.Pointer, size int) {
	idx := a.tierFor(size)
	if idx < 0 {
		if len(a.tiers) > 0 {
			a.tiers[len(a.tiers)-1].osDeallocCount.AddAcqRel(1)
		}
		return
	}
	a.tiers[idx].release(ptr)
}

// Stats returns a snapshot of every tier's diagnostic counters, in
// ascending block-size order.
func (a *Allocator) Stats() []Stats {
	out := make([]Stats, len(a.tiers))
	for i, t := range a.tiers {
		out[i] = t.stats()
	}
	return out
}
