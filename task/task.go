// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

// Package task provides the runtime's type-erased closure value and the
// intrusive, wait-free MPSC queue tasks are dispatched through.
//
// A Task owns its captured state; its single next pointer is what makes
// the queue in this package intrusive rather than node-allocating: pushing
// a Task links it directly into the queue's chain, with no second
// allocation for a queue node.
package task

import (
	"unsafe"

	"code.hybscloud.com/atomix"
)

// Func is a task body. It is the Go-native analogue of the source's
// fixed-capacity inline closure: a Go closure already performs type
// erasure and owns its captured state without a manual inline-buffer
// layout, so Task wraps Func directly rather than reimplementing
// small-object storage by hand.
type Func func()

// Task is one unit of deferred work, intrusively linked into at most one
// Queue at a time via next, an atomic pointer stored as a uintptr in the
// same style as the teacher's indirect (uintptr) queue variants.
type Task struct {
	next atomix.Uintptr
	fn   Func
}

func (t *Task) loadNext() *Task {
	return (*Task)(unsafe.Pointer(t.next.LoadAcquire()))
}

func (t *Task) storeNext(n *Task) {
	t.next.StoreRelease(uintptr(unsafe.Pointer(n)))
}

// New wraps fn in a Task. fn must be non-nil; a Task that has been cleared
// reports IsNull (Dispatch alone does not clear it).
func New(fn Func) *Task {
	t := &Task{}
	t.fn = fn
	return t
}

// NewWith allocates a Task together with an inline payload of type T in a
// single allocation — the Go equivalent of the source's bounded inline
// capture, trading manual buffer-size policing for the compiler placing
// payload directly alongside the Task header.
func NewWith[T any](payload T, run func(*T)) *Task {
	w := &taskWithPayload[T]{payload: payload}
	w.Task.fn = func() { run(&w.payload) }
	return &w.Task
}

type taskWithPayload[T any] struct {
	Task
	payload T
}

// Dispatch runs the task body exactly once. Calling Dispatch on a cleared
// or zero-value Task is a programmer error and panics, matching the
// source's "task panic is a fatal process error" policy — there is no
// recoverable outcome for dispatching a null task.
func (t *Task) Dispatch() {
	if t.fn == nil {
		panic("task: dispatch of a null task")
	}
	t.fn()
}

// IsNull reports whether the task has no body left to run.
func (t *Task) IsNull() bool {
	return t == nil || t.fn == nil
}

// Clear drops the task's reference to its captured state, matching the
// source's "destruction runs the captured state's destructor exactly once"
// invariant: Go has no destructors, so Clear's role is to let the garbage
// collector reclaim the closure's captured variables immediately instead
// of at Task's own eventual collection.
func (t *Task) Clear() {
	t.fn = nil
}
