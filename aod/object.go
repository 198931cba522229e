// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

// Package aod implements the asynchronous-object dispatcher: the primitive
// that guarantees at-most-one task of a given logical object runs at any
// instant, no matter how many workers exist.
package aod

import (
	"time"

	"code.hybscloud.com/atomix"
	"github.com/skylakelib/skylake"
	"github.com/skylakelib/skylake/task"
)

// Kind distinguishes the three AOD object variants described in the
// source. All three share the same dispatch mechanics; Kind only records
// provenance for diagnostics and the Owner() accessor's contract.
type Kind int

const (
	// KindShared is co-owned by reference-counted users via Owner.
	KindShared Kind = iota
	// KindStatic has process lifetime; Owner is nil.
	KindStatic
	// KindCustom is embedded in a heterogeneous aggregate; Owner carries
	// whatever virtual-destruction hook the aggregate needs.
	KindCustom
)

// Object is a logical unit of serialization: a remaining-task counter and
// a task queue, per the source's data model. Besides those it records only
// its Kind and its Owner back-pointer; ownership and lifetime live in Owner.
type Object struct {
	kind      Kind
	owner     any
	remaining atomix.Uint64
	queue     *task.Queue
}

// NewShared constructs a Shared AOD object with the given back-pointer to
// its owning aggregate. owner must be non-nil: per the source's own
// documented alternative (an AOD object defaulting its back-pointer to
// itself when constructed with nil), this port takes the other documented
// option and rejects nil explicitly rather than silently self-referencing.
func NewShared(owner any) (*Object, error) {
	if owner == nil {
		return nil, errNilOwner
	}
	return newObject(KindShared, owner), nil
}

// NewCustom constructs a Custom AOD object embedded in a heterogeneous
// aggregate. owner must be non-nil for the same reason as NewShared.
func NewCustom(owner any) (*Object, error) {
	if owner == nil {
		return nil, errNilOwner
	}
	return newObject(KindCustom, owner), nil
}

// NewStatic constructs a Static AOD object with process lifetime; it has
// no owning aggregate.
func NewStatic() *Object {
	return newObject(KindStatic, nil)
}

func newObject(kind Kind, owner any) *Object {
	return &Object{
		kind:  kind,
		owner: owner,
		queue: task.NewQueue(),
	}
}

// Kind reports which of the three AOD variants this object is.
func (o *Object) Kind() Kind { return o.kind }

// Owner returns the back-pointer passed to NewShared/NewCustom, or nil for
// a Static object.
func (o *Object) Owner() any { return o.owner }

// errNilOwner is returned by NewShared/NewCustom when owner is nil.
var errNilOwner = &ownerError{}

type ownerError struct{}

func (*ownerError) Error() string { return "aod: owner must not be nil" }

// DoAsync enqueues fn for serialized execution against this object.
//
// The AOD invariant: no more than one task for a given Object ever
// executes concurrently, regardless of the number of calling workers. This
// is established without locking: the calling thread pushes fn onto the
// object's queue, then atomically increments remaining. If the increment
// observed the counter transition from zero to one, this thread has won
// the exclusive right to drain the object — it dispatches fn synchronously
// (returning ExecutedSync) and then continues popping and running any
// further task deposited concurrently by other callers, decrementing
// remaining after each, until a decrement brings the counter back to zero.
// Every other caller's push is guaranteed to be observed by the draining
// thread, because the push happens-before the increment it raced with.
//
// Any caller that does not win the zero-to-one transition returns Success:
// fn has been queued, and the thread currently draining the object (or the
// thread about to start, per the race above) will run it.
func (o *Object) DoAsync(fn task.Func) skylake.Status {
	if fn == nil {
		return skylake.StatusFail
	}
	t := task.New(fn)
	return o.dispatch(t)
}

func (o *Object) dispatch(t *task.Task) skylake.Status {
	o.queue.Push(t)
	newCount := o.remaining.AddAcqRel(1)
	if newCount != 1 {
		// Another worker already owns the drain loop for this object; it
		// will observe our push via the queue's happens-before edge.
		return skylake.StatusSuccess
	}

	// We won the zero-to-one transition: drain the object until the
	// counter returns to zero. The first pop below always succeeds for a
	// well-formed queue, since our own push landed before the increment
	// that won us ownership.
	first := o.queue.Pop()
	if first == nil {
		// Pop observed a momentarily broken chain (a racing producer's
		// push that has claimed tail but not yet linked it); retry is
		// safe because our own push is guaranteed to land eventually and
		// remaining has already been incremented under our ownership.
		for first == nil {
			first = o.queue.Pop()
		}
	}
	first.Dispatch()
	first.Clear()
	o.drainRemaining()
	return skylake.StatusExecutedSync
}

// drainRemaining runs the dispatch loop after the first (synchronous) task,
// decrementing remaining after each task and exiting once it reaches zero.
func (o *Object) drainRemaining() {
	for {
		if o.remaining.AddAcqRel(^uint64(0)) == 0 {
			return
		}
		t := o.queue.Pop()
		for t == nil {
			t = o.queue.Pop()
		}
		t.Dispatch()
		t.Clear()
	}
}

// Scheduler is the delayed-task facility DoAsyncAfter needs. timer.Worker
// satisfies this interface; aod does not import timer directly so the two
// packages can be tested and reasoned about independently.
type Scheduler interface {
	// Schedule arranges for fn to run after delay has elapsed, on the
	// scheduler's own worker thread.
	Schedule(delay time.Duration, fn task.Func) skylake.Status
}

// DoAsyncAfter schedules fn to be submitted to this object via DoAsync once
// delay has elapsed. The returned status is StatusFail for a nil fn and
// otherwise whatever sched.Schedule returns; the eventual DoAsync's own status is
// discarded, matching the source's do_async_after signature, which does not
// surface the deferred call's outcome to the original caller.
func (o *Object) DoAsyncAfter(sched Scheduler, delay time.Duration, fn task.Func) skylake.Status {
	if fn == nil {
		return skylake.StatusFail
	}
	return sched.Schedule(delay, func() { o.DoAsync(fn) })
}
