// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package timer

import "github.com/skylakelib/skylake/aod"

// Worker must keep satisfying aod.Scheduler so DoAsyncAfter can wire
// directly into a real per-worker timer without an adapter type.
var _ aod.Scheduler = (*Worker)(nil)
