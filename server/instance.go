// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package server

import (
	"sync"

	"github.com/skylakelib/skylake"
	"github.com/skylakelib/skylake/service"
	"github.com/skylakelib/skylake/worker"
)

// State is one of the six server instance lifecycle states from
// spec.md §4.6.
type State int

const (
	StateUnconfigured State = iota
	StateInitialized
	StateStarting
	StateRunning
	StateStopping
	StateStopped
)

// String returns the state's symbolic name.
func (s State) String() string {
	switch s {
	case StateUnconfigured:
		return "Unconfigured"
	case StateInitialized:
		return "Initialized"
	case StateStarting:
		return "Starting"
	case StateRunning:
		return "Running"
	case StateStopping:
		return "Stopping"
	case StateStopped:
		return "Stopped"
	default:
		return "Unknown"
	}
}

// Hooks are the server-instance-level lifecycle callbacks from
// spec.md §4.6's start/stop sequences. Every field is optional; a nil hook
// is skipped. Per-worker on_worker_started/on_worker_stopped are not
// here: they are expressed directly on each worker.GroupConfig via
// worker.WithStartHook/WithStopHook, since they fire per worker rather
// than once per instance.
type Hooks struct {
	// OnAddServices runs first; it is the conventional place to call
	// Instance.AddService.
	OnAddServices       func(*Instance)
	OnBeforeStartServer func()
	// OnAllWorkersStarted and OnWorkerGroupStarted fire once per group,
	// each time that group's workers have all reached their first loop
	// entry: in AddGroup registration order for non-capturing groups, and
	// after all of those for a group with WillCaptureCallingThread.
	OnAllWorkersStarted      func(groupIndex int)
	OnWorkerGroupStarted     func(groupIndex int)
	OnAllWorkerGroupsStarted func()
	OnServerStarted          func()

	OnBeforeStopServer       func()
	OnAllServicesStopped     func()
	OnAllWorkersStopped      func(groupIndex int)
	OnWorkerGroupStopped     func(groupIndex int)
	OnAllWorkerGroupsStopped func()
	OnServerStopped          func()
	OnAfterServerStopped     func()
}

// Instance is a server: a named set of worker groups and services, driven
// through the Unconfigured → Initialized → Starting → Running → Stopping
// → Stopped state machine of spec.md §4.6.
type Instance struct {
	cfg   *Config
	hooks Hooks

	mu    sync.Mutex
	state State

	services []service.Lifecycle

	groups     []*worker.Group
	captureIdx int

	stopWG   sync.WaitGroup
	stopOnce sync.Once
}

// New constructs an Instance in state Initialized.
func New(cfg *Config, hooks Hooks) *Instance {
	return &Instance{cfg: cfg, hooks: hooks, state: StateInitialized, captureIdx: -1}
}

// State returns the instance's current lifecycle state.
func (in *Instance) State() State {
	in.mu.Lock()
	defer in.mu.Unlock()
	return in.state
}

// AddService registers a service to be started/stopped with this
// instance. Must be called before Start, conventionally from within
// Hooks.OnAddServices.
func (in *Instance) AddService(s service.Lifecycle) {
	in.services = append(in.services, s)
}

func (in *Instance) setState(s State) {
	in.mu.Lock()
	in.state = s
	in.mu.Unlock()
}

// Start runs the spec.md §4.6 start sequence: on_add_services, service
// OnStart calls, on_before_start_server, each group's workers in
// registration order (firing on_all_workers_started/on_worker_group_started
// per group), on_all_worker_groups_started, on_server_started.
//
// If exactly one registered group set WillCaptureCallingThread, Start
// runs that group's master worker on this goroutine and does not return
// until SignalStop unwinds the whole instance (StatusServerInstanceFinalized).
// Configuring more than one capturing group is a configuration error
// (StatusFail): only one calling thread exists to capture.
func (in *Instance) Start() skylake.Status {
	in.mu.Lock()
	if in.state != StateInitialized {
		in.mu.Unlock()
		return skylake.StatusFail
	}
	in.state = StateStarting
	in.mu.Unlock()

	if in.hooks.OnAddServices != nil {
		in.hooks.OnAddServices(in)
	}
	for _, s := range in.services {
		if st := s.OnStart(); !st.OK() {
			return st
		}
	}
	if in.hooks.OnBeforeStartServer != nil {
		in.hooks.OnBeforeStartServer()
	}

	groupCfgs := in.cfg.Groups()
	in.groups = make([]*worker.Group, len(groupCfgs))
	in.captureIdx = -1
	for i, gc := range groupCfgs {
		if gc.WillCaptureCallingThread {
			if in.captureIdx >= 0 {
				return skylake.StatusFail
			}
			in.captureIdx = i
		}
		in.groups[i] = worker.NewGroup(gc)
	}

	in.stopWG.Add(len(in.groups))

	for i, g := range in.groups {
		if i == in.captureIdx {
			continue
		}
		if st := g.Start(); !st.OK() {
			return st
		}
		in.fireGroupStarted(i)
	}

	if in.captureIdx < 0 {
		in.fireAllGroupsStarted()
		return skylake.StatusSuccess
	}

	cg := in.groups[in.captureIdx]
	go func() {
		<-cg.Started()
		in.fireGroupStarted(in.captureIdx)
		in.fireAllGroupsStarted()
	}()

	status := cg.Start() // blocks until SignalStop closes this group down
	in.fireGroupStopped(in.captureIdx)
	in.stopWG.Done()
	in.finalizeStop()
	return status
}

func (in *Instance) fireGroupStarted(i int) {
	if in.hooks.OnAllWorkersStarted != nil {
		in.hooks.OnAllWorkersStarted(i)
	}
	if in.hooks.OnWorkerGroupStarted != nil {
		in.hooks.OnWorkerGroupStarted(i)
	}
}

func (in *Instance) fireAllGroupsStarted() {
	if in.hooks.OnAllWorkerGroupsStarted != nil {
		in.hooks.OnAllWorkerGroupsStarted()
	}
	if in.hooks.OnServerStarted != nil {
		in.hooks.OnServerStarted()
	}
	in.setState(StateRunning)
}

func (in *Instance) fireGroupStopped(i int) {
	if in.hooks.OnAllWorkersStopped != nil {
		in.hooks.OnAllWorkersStopped(i)
	}
	if in.hooks.OnWorkerGroupStopped != nil {
		in.hooks.OnWorkerGroupStopped(i)
	}
}

// SignalStop runs the spec.md §4.6 stop sequence: on_before_stop_server,
// each service's OnStop (waiting for any that return StatusPending to
// call their completion callback), on_all_services_stopped, then signals
// every worker group to stop and joins every non-capturing one (the
// capturing group's own join happens inside the blocked Start call).
// force is forwarded to every group's SignalStop unchanged; services do not
// receive it. When force is true, SignalStop does not wait for Pending
// services to call their completion callback.
func (in *Instance) SignalStop(force bool) skylake.Status {
	in.mu.Lock()
	if in.state != StateRunning {
		in.mu.Unlock()
		return skylake.StatusFail
	}
	in.state = StateStopping
	in.mu.Unlock()

	if in.hooks.OnBeforeStopServer != nil {
		in.hooks.OnBeforeStopServer()
	}

	var svcWG sync.WaitGroup
	for _, s := range in.services {
		svcWG.Add(1)
		st := s.OnStop(func(skylake.Status) { svcWG.Done() })
		if st != skylake.StatusPending {
			svcWG.Done()
		}
	}
	// force moves the sequence from stopping to aborting: rather than
	// waiting indefinitely for every Pending service's completion hook,
	// an aborting stop proceeds to tear down worker groups regardless,
	// per spec.md §9's decided two-phase signal_to_stop(force) semantics.
	// A service that later calls its done callback after an abort still
	// completes svcWG harmlessly; nothing reads it again.
	if !force {
		svcWG.Wait()
	}
	if in.hooks.OnAllServicesStopped != nil {
		in.hooks.OnAllServicesStopped()
	}

	for _, g := range in.groups {
		g.SignalStop(force)
	}
	for i, g := range in.groups {
		if i == in.captureIdx {
			continue
		}
		g.JoinAll()
		in.fireGroupStopped(i)
		in.stopWG.Done()
	}

	in.finalizeStop()
	return skylake.StatusSuccess
}

// finalizeStop fires the tail of the stop sequence exactly once, however
// many goroutines reach it: SignalStop's own caller for a non-capturing
// instance, or both SignalStop's caller and the goroutine blocked inside
// Start for a capturing one.
func (in *Instance) finalizeStop() {
	in.stopWG.Wait()
	in.stopOnce.Do(func() {
		if in.hooks.OnAllWorkerGroupsStopped != nil {
			in.hooks.OnAllWorkerGroupsStopped()
		}
		if in.hooks.OnServerStopped != nil {
			in.hooks.OnServerStopped()
		}
		in.setState(StateStopped)
		if in.hooks.OnAfterServerStopped != nil {
			in.hooks.OnAfterServerStopped()
		}
	})
}
