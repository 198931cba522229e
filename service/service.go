// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

// Package service implements the four service variants a server.Instance
// hosts: Simple, AOD, Active, and Worker. Each variant adds one capability
// on top of the shared Lifecycle hook set; server drives them uniformly
// through Lifecycle and does not call the variant-specific methods itself.
package service

import (
	"time"

	"github.com/skylakelib/skylake"
	"github.com/skylakelib/skylake/aod"
	"github.com/skylakelib/skylake/task"
	"github.com/skylakelib/skylake/worker"
)

// Lifecycle is the hook set every service variant implements. A server
// instance calls OnStart during its start sequence and OnStop during its
// stop sequence; a service returning StatusPending from OnStop must later
// call done exactly once (the two-phase shutdown spec.md §4.6 describes
// for asynchronous stop).
type Lifecycle interface {
	// Name identifies this service for logging and diagnostics.
	Name() string
	// OnStart runs once, after on_add_services and before
	// on_before_start_server and any worker group is started. Returning a non-OK status aborts the
	// server's start sequence.
	OnStart() skylake.Status
	// OnStop runs once, after on_before_stop_server. Returning
	// StatusPending defers completion to an asynchronous call to done;
	// any other status completes the stop step immediately.
	OnStop(done func(skylake.Status)) skylake.Status
}

// Simple is the base variant: lifecycle hooks only, no additional
// capability.
type Simple struct {
	name    string
	onStart func() skylake.Status
	onStop  func(done func(skylake.Status)) skylake.Status
}

// NewSimple constructs a Simple service. Either callback may be nil, in
// which case the corresponding hook reports StatusSuccess immediately.
func NewSimple(name string, onStart func() skylake.Status, onStop func(done func(skylake.Status)) skylake.Status) *Simple {
	return &Simple{name: name, onStart: onStart, onStop: onStop}
}

func (s *Simple) Name() string { return s.name }

func (s *Simple) OnStart() skylake.Status {
	if s.onStart == nil {
		return skylake.StatusSuccess
	}
	return s.onStart()
}

func (s *Simple) OnStop(done func(skylake.Status)) skylake.Status {
	if s.onStop == nil {
		return skylake.StatusSuccess
	}
	return s.onStop(done)
}

// AOD is a service carrying an embedded AOD object; DoAsync/DoAsyncAfter
// proxy through it, per spec.md §4.6's "AOD service" variant.
type AOD struct {
	Simple
	object *aod.Object
}

// NewAOD constructs an AOD service backed by a Static AOD object (process
// lifetime, matching a service's own lifetime).
func NewAOD(name string, onStart func() skylake.Status, onStop func(done func(skylake.Status)) skylake.Status) *AOD {
	return &AOD{
		Simple: Simple{name: name, onStart: onStart, onStop: onStop},
		object: aod.NewStatic(),
	}
}

// DoAsync enqueues fn for serialized execution against this service's AOD
// object.
func (s *AOD) DoAsync(fn task.Func) skylake.Status {
	return s.object.DoAsync(fn)
}

// DoAsyncAfter schedules fn to be submitted to this service's AOD object
// once delay has elapsed, via sched (typically a worker.Worker's Timer()).
func (s *AOD) DoAsyncAfter(sched aod.Scheduler, delay time.Duration, fn task.Func) skylake.Status {
	return s.object.DoAsyncAfter(sched, delay, fn)
}

// Active is a service with a per-iteration tick, invoked by every worker
// of its owning group once per loop iteration (spec.md §4.6's "Active"
// variant), mirroring worker.TickFunc's signature.
type Active struct {
	Simple
	onTick worker.TickFunc
}

// NewActive constructs an Active service. onTick must not be nil.
func NewActive(name string, onStart func() skylake.Status, onStop func(done func(skylake.Status)) skylake.Status, onTick worker.TickFunc) *Active {
	return &Active{
		Simple: Simple{name: name, onStart: onStart, onStop: onStop},
		onTick: onTick,
	}
}

// OnTick runs this service's per-iteration callback. The worker calling it
// is the one driving the current loop iteration.
func (s *Active) OnTick(w *worker.Worker) {
	if s.onTick != nil {
		s.onTick(w)
	}
}

// Worker is a service ticked once per worker rather than once per group
// iteration: OnWorkerStarted/OnWorkerStopped run on each worker at its own
// loop entry/exit, and TickWorker runs on every iteration of every worker
// in the owning group (spec.md §4.6's "Worker service" variant). Worker
// satisfies worker.WorkerTicker so it can be registered directly via
// Group.RegisterWorkerTicker.
type Worker struct {
	Simple
	onWorkerStarted worker.Hook
	onWorkerStopped worker.Hook
	onTickWorker    worker.TickFunc
}

// NewWorker constructs a Worker service. Any of the three per-worker hooks
// may be nil.
func NewWorker(name string, onStart func() skylake.Status, onStop func(done func(skylake.Status)) skylake.Status, onWorkerStarted, onWorkerStopped worker.Hook, onTickWorker worker.TickFunc) *Worker {
	return &Worker{
		Simple:          Simple{name: name, onStart: onStart, onStop: onStop},
		onWorkerStarted: onWorkerStarted,
		onWorkerStopped: onWorkerStopped,
		onTickWorker:    onTickWorker,
	}
}

// OnWorkerStarted runs once per worker, at that worker's loop entry.
func (s *Worker) OnWorkerStarted(w *worker.Worker) {
	if s.onWorkerStarted != nil {
		s.onWorkerStarted(w)
	}
}

// OnWorkerStopped runs once per worker, at that worker's loop exit.
func (s *Worker) OnWorkerStopped(w *worker.Worker) {
	if s.onWorkerStopped != nil {
		s.onWorkerStopped(w)
	}
}

// TickWorker satisfies worker.WorkerTicker: it runs on every iteration of
// every worker in the group this service is registered with.
func (s *Worker) TickWorker(w *worker.Worker) {
	if s.onTickWorker != nil {
		s.onTickWorker(w)
	}
}
