// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package worker

import (
	"time"

	"code.hybscloud.com/atomix"
	"github.com/skylakelib/skylake/slab"
	"github.com/skylakelib/skylake/timer"
	"github.com/skylakelib/skylake/tlssync"
)

// Worker is one OS thread's worth of run-loop state: its own delayed-task
// scheduler, TLS-sync cursor, and (if the group declared
// CapThreadLocalAllocator) slab cache, plus a role flag and timestamps.
// Exactly one worker per group may be the master (it runs on the thread
// that called Start instead of a spawned goroutine).
type Worker struct {
	group    *Group
	index    int
	isMaster bool

	isRunning atomix.Bool
	startedAt time.Time

	timer     *timer.Worker
	tlsCursor *tlssync.Cursor
	allocator *slab.Cache
}

// Index is this worker's position within its group, in [0, WorkerCount).
func (w *Worker) Index() int { return w.index }

// IsMaster reports whether this worker runs on the thread that called
// Group.Start rather than a spawned goroutine.
func (w *Worker) IsMaster() bool { return w.isMaster }

// IsRunning reports whether this worker has entered its run loop and has
// not yet exited it.
func (w *Worker) IsRunning() bool { return w.isRunning.LoadAcquire() }

// StartedAt returns the time this worker entered its run loop.
func (w *Worker) StartedAt() time.Time { return w.startedAt }

// Timer returns this worker's delayed-task scheduler, satisfying
// aod.Scheduler. Non-nil only when the group declared CapHandlesTimerTasks.
func (w *Worker) Timer() *timer.Worker { return w.timer }

// Allocator returns this worker's slab cache. Non-nil only when the group
// declared CapThreadLocalAllocator.
func (w *Worker) Allocator() *slab.Cache { return w.allocator }

func newWorker(g *Group, index int, isMaster bool) *Worker {
	w := &Worker{group: g, index: index, isMaster: isMaster}
	caps := g.cfg.Capabilities
	if caps.Has(CapHandlesTimerTasks) {
		w.timer = timer.NewWorker()
	}
	if caps.Has(CapSupportsTLSSync) && g.tlsRing != nil {
		w.tlsCursor = g.tlsRing.NewCursor()
	}
	if caps.Has(CapThreadLocalAllocator) && g.cfg.allocator != nil {
		w.allocator = g.cfg.allocator.NewCache(g.cfg.AllocatorCacheBatch)
	}
	return w
}

// run is the single branching run loop: the one run-loop implementation
// covering every capability-flag combination, rather than a monomorphized
// variant per combination (spec.md §9).
//
// Per iteration, in the fixed order spec.md §4.5 specifies: (1) drain
// inbox, (2) advance delayed tasks, (3) TLS-sync, (4) tick callback and
// worker-service ticks, (5) cadence sleep or reactive block.
func (w *Worker) run() {
	g := w.group
	caps := g.cfg.Capabilities

	w.startedAt = time.Now()
	w.isRunning.StoreRelease(true)
	if g.cfg.startHook != nil {
		g.cfg.startHook(w)
	}
	g.startWG.Done()

	interval := g.tickInterval()
	next := w.startedAt.Add(interval)

	for !g.stopFlag.LoadAcquire() {
		if caps.Has(CapHandlesTasks) {
			w.drainInbox()
		}
		if caps.Has(CapHandlesTimerTasks) && w.timer != nil {
			w.timer.Tick()
		}
		if caps.Has(CapSupportsTLSSync) && w.tlsCursor != nil {
			w.tlsCursor.DrainAll()
		}
		if caps.Has(CapCallTickHandler) && g.cfg.tickHandler != nil {
			g.cfg.tickHandler(w)
		}
		if caps.Has(CapTickWorkerServices) {
			for _, t := range g.tickers {
				t.TickWorker(w)
			}
		}

		if caps.Has(CapActive) && interval > 0 {
			// Sleep to the next absolute deadline rather than sleeping a
			// fixed interval every time, so iteration latency does not
			// accumulate as skew (spec.md §5's "skew is absorbed" policy).
			now := time.Now()
			if d := next.Sub(now); d > 0 {
				time.Sleep(d)
			}
			next = next.Add(interval)
			if next.Before(time.Now()) {
				// A long-running iteration blew through one or more
				// periods; resync rather than firing a burst of
				// immediately-due ticks to catch up.
				next = time.Now().Add(interval)
			}
		} else {
			w.blockOnWork()
		}
	}

	if g.cfg.stopHook != nil {
		g.cfg.stopHook(w)
	}
	w.isRunning.StoreRelease(false)
}

// drainInbox runs every task currently sitting in the group inbox. It does
// not block: Dequeue reports ErrWouldBlock once the inbox is momentarily
// empty, which ends this iteration's drain.
func (w *Worker) drainInbox() {
	for {
		fn, err := w.group.inbox.Dequeue()
		if err != nil {
			return
		}
		fn()
	}
}

// blockOnWork is the reactive suspension point: a worker with no active
// tick cadence sleeps until Defer wakes it or 50ms pass. SyncTLS and
// SignalStop do not wake it; the 50ms poll is what picks them up.
func (w *Worker) blockOnWork() {
	select {
	case <-w.group.wake:
	case <-time.After(50 * time.Millisecond):
		// Bounded fallback poll: catches a stop signal or a wake sent
		// just before this select started, without blocking forever.
	}
}
