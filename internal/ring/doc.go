// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

// Package ring implements a bounded, lock-free, multi-producer
// multi-consumer queue of fixed element type. It backs exactly two
// collaborators in this module: a slab tier's shared free list of block
// addresses, and a worker group's task inbox.
//
// The queue uses fetch-and-add position counters rather than a single
// CAS loop, following the SCQ (Scalable Circular Queue) algorithm
// described by Nikolaev (DISC 2019): producers and consumers each claim a
// slot by incrementing their own index, then spin-wait only on that one
// slot's per-slot cycle number rather than retrying a queue-wide CAS.
// This scales better under contention than a CAS-based ring at the cost
// of doubling the physical slot count (2n slots for capacity n) so a
// slot's cycle number alone disambiguates "not yet written this round"
// from "already claimed by the next round."
package ring
