// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

// Package worker implements Worker and Group: the run-loop variants and
// counted-rendezvous lifecycle a named set of workers shares.
package worker

// Capability is one bit of a worker group's run-loop dispatch variant. The
// loop is a single function with one branch per flag (spec.md §9's chosen
// alternative to monomorphized run-loop specializations), rather than a
// family of generated loop variants.
type Capability uint16

const (
	// CapActive selects a timed tick cadence over reactive block-on-work.
	CapActive Capability = 1 << iota
	// CapHandlesTasks drains the group's task inbox every iteration.
	CapHandlesTasks
	// CapSupportsAOD marks workers of this group as used to drive
	// aod.Object.DoAsync calls. AOD dispatch itself is push-driven and
	// synchronous (see aod.Object.dispatch), so this flag adds no loop
	// step of its own; it exists so a group's declared capabilities fully
	// describe its role even though this one is a no-op at the loop level.
	CapSupportsAOD
	// CapHandlesTimerTasks advances the worker's delayed-task heap.
	CapHandlesTimerTasks
	// CapSupportsTLSSync walks the group's TLS-sync ring.
	CapSupportsTLSSync
	// CapThreadLocalAllocator gives each worker a slab.Cache instead of
	// going straight to the shared tier pools.
	CapThreadLocalAllocator
	// CapCallTickHandler invokes the group's user-supplied tick callback.
	CapCallTickHandler
	// CapTickWorkerServices invokes each registered worker service's
	// per-tick hook.
	CapTickWorkerServices
)

// Has reports whether c includes every bit set in flag.
func (c Capability) Has(flag Capability) bool { return c&flag == flag }
