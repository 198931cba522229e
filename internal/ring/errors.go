// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package ring

import "code.hybscloud.com/iox"

// ErrWouldBlock is returned by Enqueue when the ring is full and by
// Dequeue when it is empty. It is a control-flow signal, not a failure:
// slab falls back to an OS-backed block when a tier's ring is empty,
// worker.Group.Defer reports a full inbox as StatusAllocationFailed, and a
// worker's inbox drain stops when the ring is empty.
//
// This is an alias for [iox.ErrWouldBlock] for ecosystem consistency with
// every other blocking-free API in this module.
var ErrWouldBlock = iox.ErrWouldBlock
