// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package worker

import (
	"sync"
	"time"

	"code.hybscloud.com/atomix"
	"github.com/skylakelib/skylake"
	"github.com/skylakelib/skylake/dclog"
	"github.com/skylakelib/skylake/internal/ring"
	"github.com/skylakelib/skylake/slab"
	"github.com/skylakelib/skylake/task"
	"github.com/skylakelib/skylake/tlssync"
	"golang.org/x/sync/errgroup"
)

// TickFunc is a group's user-supplied per-iteration callback.
type TickFunc func(w *Worker)

// Hook is a worker lifecycle callback (on_worker_started/on_worker_stopped
// in spec.md §4.6's vocabulary).
type Hook func(w *Worker)

// WorkerTicker is the worker-service per-tick hook (spec.md §4.6's "Worker
// service" variant); a service.Worker is registered via
// Group.RegisterWorkerTicker rather than worker importing service, to
// avoid a cycle between the two packages.
type WorkerTicker interface {
	TickWorker(w *Worker)
}

// GroupConfig configures a Group at construction. Zero value is invalid;
// use NewGroupConfig.
type GroupConfig struct {
	Name         string
	ID           int
	WorkerCount  int
	Capabilities Capability

	// TickRateHz is the target cadence for an active group. Zero means
	// purely reactive (spec.md §4.5): the worker blocks on a wake event
	// and ticks only when work arrives.
	TickRateHz float64

	// TLSSyncRingCapacity sizes the group's TLS-sync ring. Only consulted
	// when Capabilities.Has(CapSupportsTLSSync). Defaults to 1024.
	TLSSyncRingCapacity int

	// InboxCapacity bounds the group task inbox. Only consulted when
	// Capabilities.Has(CapHandlesTasks). Defaults to 65536.
	InboxCapacity int

	// WillCaptureCallingThread designates this group's first worker (index
	// 0) as the master worker: it runs on the thread that calls Start
	// instead of a spawned goroutine.
	WillCaptureCallingThread bool

	// AllocatorCacheBatch sizes each worker's slab.Cache refill/spill
	// batch. Only consulted when Capabilities.Has(CapThreadLocalAllocator).
	// Defaults to 32 (slab.Cache's own default) when zero.
	AllocatorCacheBatch int

	tickHandler TickFunc
	startHook   Hook
	stopHook    Hook
	logger      *dclog.Logger
	allocator   *slab.Allocator
}

// GroupOption configures optional GroupConfig fields.
type GroupOption func(*GroupConfig)

// WithTickHandler installs the group's per-iteration user callback, called
// when Capabilities.Has(CapCallTickHandler).
func WithTickHandler(fn TickFunc) GroupOption {
	return func(c *GroupConfig) { c.tickHandler = fn }
}

// WithStartHook installs the per-worker on_worker_started hook.
func WithStartHook(fn Hook) GroupOption {
	return func(c *GroupConfig) { c.startHook = fn }
}

// WithStopHook installs the per-worker on_worker_stopped hook.
func WithStopHook(fn Hook) GroupOption {
	return func(c *GroupConfig) { c.stopHook = fn }
}

// WithLogger attaches a structured logger for lifecycle and backpressure
// events. Defaults to dclog.Discard.
func WithLogger(l *dclog.Logger) GroupOption {
	return func(c *GroupConfig) { c.logger = l }
}

// WithTLSSyncRingCapacity overrides the default TLS-sync ring size.
func WithTLSSyncRingCapacity(n int) GroupOption {
	return func(c *GroupConfig) { c.TLSSyncRingCapacity = n }
}

// WithInboxCapacity overrides the default task inbox capacity.
func WithInboxCapacity(n int) GroupOption {
	return func(c *GroupConfig) { c.InboxCapacity = n }
}

// WithAllocator gives every worker of this group a slab.Cache over a,
// consulted only when Capabilities.Has(CapThreadLocalAllocator).
func WithAllocator(a *slab.Allocator, cacheBatch int) GroupOption {
	return func(c *GroupConfig) {
		c.allocator = a
		c.AllocatorCacheBatch = cacheBatch
	}
}

// NewGroupConfig builds a GroupConfig for a named group of workerCount
// workers sharing caps.
func NewGroupConfig(name string, id, workerCount int, caps Capability, opts ...GroupOption) GroupConfig {
	cfg := GroupConfig{
		Name:                name,
		ID:                  id,
		WorkerCount:         workerCount,
		Capabilities:        caps,
		TLSSyncRingCapacity: 1024,
		InboxCapacity:       65536,
		logger:              dclog.Discard,
	}
	for _, opt := range opts {
		opt(&cfg)
	}
	return cfg
}

// Group is a named set of workers sharing configuration: tick cadence,
// capability flags, the group task inbox, and (if supported) a TLS-sync
// ring. Group owns its workers' lifecycle from Start through JoinAll.
type Group struct {
	cfg GroupConfig

	inbox   *ring.Ring[task.Func]
	tlsRing *tlssync.Ring
	tickers []WorkerTicker

	wake     chan struct{}
	stopOnce sync.Once
	stopFlag atomix.Bool

	startOnce sync.Once
	startWG   sync.WaitGroup
	started   chan struct{}
	eg        *errgroup.Group

	running atomix.Bool
	workers []*Worker

	log *dclog.Logger
}

// NewGroup constructs a Group ready for Start. cfg should come from
// NewGroupConfig.
func NewGroup(cfg GroupConfig) *Group {
	g := &Group{
		cfg:     cfg,
		wake:    make(chan struct{}, 1),
		started: make(chan struct{}),
		workers: make([]*Worker, cfg.WorkerCount),
		log:     dclog.OrDiscard(cfg.logger),
	}
	if cfg.Capabilities.Has(CapHandlesTasks) {
		g.inbox = ring.New[task.Func](cfg.InboxCapacity)
	}
	if cfg.Capabilities.Has(CapSupportsTLSSync) {
		g.tlsRing = tlssync.NewRing(cfg.TLSSyncRingCapacity, cfg.WorkerCount)
	}
	return g
}

// RegisterWorkerTicker adds a worker service to be ticked by every worker
// of this group once per iteration, when Capabilities.Has(CapTickWorkerServices).
// Must be called before Start.
func (g *Group) RegisterWorkerTicker(wt WorkerTicker) {
	g.tickers = append(g.tickers, wt)
}

// Defer submits fn to the group's task inbox for any worker to pick up on
// its next drain step. Returns StatusFail if the group was not configured
// with CapHandlesTasks, or StatusAllocationFailed if the inbox is full.
func (g *Group) Defer(fn task.Func) skylake.Status {
	if g.inbox == nil {
		return skylake.StatusFail
	}
	if err := g.inbox.Enqueue(&fn); err != nil {
		g.log.Warning().Log("worker: group inbox full, dropping task")
		return skylake.StatusAllocationFailed
	}
	select {
	case g.wake <- struct{}{}:
	default:
	}
	return skylake.StatusSuccess
}

// SyncTLS broadcasts fn to every worker of the group via the TLS-sync ring.
// Returns StatusFail if the group was not configured with CapSupportsTLSSync.
func (g *Group) SyncTLS(fn tlssync.Func) skylake.Status {
	if g.tlsRing == nil {
		return skylake.StatusFail
	}
	return g.tlsRing.Push(fn)
}

// tickInterval returns the sleep duration between active-group iterations,
// or zero for a purely reactive group.
func (g *Group) tickInterval() time.Duration {
	if g.cfg.TickRateHz <= 0 {
		return 0
	}
	return time.Duration(float64(time.Second) / g.cfg.TickRateHz)
}
