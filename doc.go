// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

// Package skylake is the root of a high-throughput, single-process server
// runtime: worker groups, an async-object dispatcher (AOD), a delayed-task
// scheduler, a tiered slab allocator, and a TLS-sync broadcast ring.
//
// The runtime is organized as a handful of narrow packages, each owning one
// component of the substrate:
//
//	task     - the inline task value and its intrusive MPSC queue
//	slab     - tiered fixed-size block pools
//	aod      - the async-object dispatcher
//	timer    - the per-worker delayed-task scheduler
//	tlssync  - the TLS-sync broadcast ring
//	worker   - Worker and WorkerGroup run-loops
//	service  - lifecycle hooks for Simple/AOD/Active/Worker services
//	server   - ServerInstance orchestration and lifecycle
//	ecs      - a fixed-capacity entity/component store (collaborator glue)
//	dbstmt   - a reconnect-and-retry SQL statement wrapper (collaborator glue)
//	dclog    - structured logging glue shared by every package above
//
// This package itself holds only what every other package needs: the
// [Status] vocabulary returned across API boundaries, and the process-wide
// [InitializeLibrary] / [TerminateLibrary] warm-up hooks.
package skylake
