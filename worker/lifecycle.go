// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package worker

import (
	"github.com/skylakelib/skylake"
	"golang.org/x/sync/errgroup"
)

// Start spawns every non-master worker as a goroutine (rendezvous via
// golang.org/x/sync/errgroup, which replaces a hand-rolled WaitGroup plus
// error channel for the group's counted start barrier), then — if the
// group was configured with WillCaptureCallingThread — runs the master
// worker's own loop on the calling goroutine, blocking until the group
// stops.
//
// Start returns once every worker has entered its loop (the group is
// Running per spec.md §4.6), or, for a group that captured the calling
// thread, once that thread's own worker loop has exited
// (StatusServerInstanceFinalized).
func (g *Group) Start() skylake.Status {
	if g.cfg.WorkerCount <= 0 {
		return skylake.StatusFail
	}
	first := false
	g.startOnce.Do(func() {
		first = true
		g.running.StoreRelease(true)
	})
	if !first {
		return skylake.StatusAlreadyPerformed
	}

	g.startWG.Add(g.cfg.WorkerCount)
	g.eg = &errgroup.Group{}

	masterIdx := -1
	if g.cfg.WillCaptureCallingThread {
		masterIdx = 0
	}

	for i := 0; i < g.cfg.WorkerCount; i++ {
		w := newWorker(g, i, i == masterIdx)
		g.workers[i] = w
		if i == masterIdx {
			continue
		}
		g.eg.Go(func() error {
			w.run()
			return nil
		})
	}

	// Closing started on rendezvous, rather than waiting on startWG
	// directly below, is what lets a capturing group's Started() channel
	// fire even though the master's own run() call (next) does not return
	// until shutdown.
	go func() {
		g.startWG.Wait()
		close(g.started)
	}()

	if masterIdx < 0 {
		<-g.started
		return skylake.StatusSuccess
	}

	g.workers[masterIdx].run()
	_ = g.eg.Wait()
	return skylake.StatusServerInstanceFinalized
}

// Started returns a channel closed once every worker of the group has
// reached its first loop entry (the group is Running per spec.md §4.6),
// regardless of whether this group captures the calling thread. A
// capturing group's own Start call does not return until shutdown, so a
// caller that needs the "all workers up" checkpoint for that group — to
// fire the remaining start-sequence hooks — watches this channel from a
// separate goroutine instead of Start's return value.
func (g *Group) Started() <-chan struct{} {
	return g.started
}

// SignalStop requests every worker of the group exit after its current
// iteration. force has no additional effect at this layer — the worker
// loop has no asynchronous veto to override, unlike a service's Pending
// shutdown (see server.Instance.SignalStop for that two-phase behavior) —
// it is accepted here only so callers can forward the same boolean they
// received without a branch.
//
// stopFlag is not paired with closing wake: a concurrent Defer racing
// this call sends on wake unconditionally on a cache miss, and a send on
// a closed channel panics regardless of select's default case. A worker
// blocked in blockOnWork instead observes the stop within its 50ms
// fallback poll.
func (g *Group) SignalStop(force bool) {
	g.stopOnce.Do(func() {
		g.stopFlag.StoreRelease(true)
	})
}

// JoinAll blocks until every spawned (non-master) worker of the group has
// exited its loop. For a group with WillCaptureCallingThread, the master
// worker's own loop already ran to completion synchronously inside Start
// before Start returned, so there is nothing further to join for it here.
func (g *Group) JoinAll() {
	if g.eg != nil {
		_ = g.eg.Wait()
	}
}
