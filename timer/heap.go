// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

// Package timer implements the per-worker delayed-task scheduler: a pending
// MPSC queue fed by foreign threads, drained once per tick into a min-heap
// that the owning worker alone pops from.
package timer

import (
	"container/heap"
	"time"

	"github.com/skylakelib/skylake/task"
)

// entry is one delayed task waiting in the heap. seq is assigned at drain
// time (on the single worker thread that owns the heap), which is what
// gives equal-deadline entries FIFO-of-drain-order tie-breaking without any
// atomic counter.
type entry struct {
	deadline time.Time
	seq      uint64
	fn       task.Func
}

// minHeap orders by (deadline, seq) ascending, giving ties to whichever
// entry was drained from the pending queue first.
type minHeap []*entry

func (h minHeap) Len() int { return len(h) }

func (h minHeap) Less(i, j int) bool {
	if h[i].deadline.Equal(h[j].deadline) {
		return h[i].seq < h[j].seq
	}
	return h[i].deadline.Before(h[j].deadline)
}

func (h minHeap) Swap(i, j int) { h[i], h[j] = h[j], h[i] }

func (h *minHeap) Push(x any) { *h = append(*h, x.(*entry)) }

func (h *minHeap) Pop() any {
	old := *h
	n := len(old)
	e := old[n-1]
	old[n-1] = nil
	*h = old[:n-1]
	return e
}

var _ heap.Interface = (*minHeap)(nil)
