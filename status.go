// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package skylake

// Status is the sentinel result returned across the core's API boundary.
//
// The core never throws across an API boundary: operations that can fail
// return a Status rather than an error, so that control-flow outcomes
// (ExecutedSync, AlreadyPerformed, Pending) are as cheap to check as a
// hard failure. This mirrors the iox.ErrWouldBlock convention used
// throughout the queue layer: a sentinel value, not a wrapped error, for
// signals the caller is expected to branch on.
type Status int

const (
	// StatusSuccess indicates the operation completed, or was accepted for
	// asynchronous completion.
	StatusSuccess Status = iota
	// StatusFail is a generic, non-retryable failure (e.g. invalid
	// configuration).
	StatusFail
	// StatusAllocationFailed indicates the OS denied a memory request.
	StatusAllocationFailed
	// StatusTimeout indicates a bounded wait elapsed before completion.
	StatusTimeout
	// StatusAlreadyPerformed indicates a one-shot operation was attempted
	// more than once (e.g. a completion hook called twice).
	StatusAlreadyPerformed
	// StatusPending indicates asynchronous completion is in flight; the
	// caller must wait for an explicit completion signal.
	StatusPending
	// StatusExecutedSync indicates a do_async-style call ran its task
	// synchronously on the calling thread instead of enqueuing it.
	StatusExecutedSync
	// StatusSystemTerminated indicates the runtime has shut down and the
	// operation was refused.
	StatusSystemTerminated
	// StatusSystemFailure is an unrecoverable runtime-internal failure.
	StatusSystemFailure
	// StatusServerInstanceFinalized is returned by Start when it captured
	// the calling thread as a master worker and has now returned control
	// after a full shutdown sequence.
	StatusServerInstanceFinalized
)

// String returns the status's symbolic name.
func (s Status) String() string {
	switch s {
	case StatusSuccess:
		return "Success"
	case StatusFail:
		return "Fail"
	case StatusAllocationFailed:
		return "AllocationFailed"
	case StatusTimeout:
		return "Timeout"
	case StatusAlreadyPerformed:
		return "AlreadyPerformed"
	case StatusPending:
		return "Pending"
	case StatusExecutedSync:
		return "ExecutedSync"
	case StatusSystemTerminated:
		return "SystemTerminated"
	case StatusSystemFailure:
		return "SystemFailure"
	case StatusServerInstanceFinalized:
		return "ServerInstanceFinalized"
	default:
		return "Unknown"
	}
}

// OK reports whether s represents a non-failure outcome: Success,
// AlreadyPerformed, Pending, ExecutedSync, or ServerInstanceFinalized all
// mean "the caller need not
// treat this as an error", the same way iox.IsNonFailure treats
// ErrWouldBlock as a control-flow signal rather than a failure.
func (s Status) OK() bool {
	switch s {
	case StatusSuccess, StatusAlreadyPerformed, StatusPending, StatusExecutedSync, StatusServerInstanceFinalized:
		return true
	default:
		return false
	}
}
