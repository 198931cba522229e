// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package aod

import (
	"sync"
	"sync/atomic"
	"testing"

	"github.com/skylakelib/skylake"
	"github.com/stretchr/testify/require"
)

func TestNewSharedRejectsNilOwner(t *testing.T) {
	o, err := NewShared(nil)
	require.Nil(t, o)
	require.Error(t, err)
}

func TestNewCustomRejectsNilOwner(t *testing.T) {
	o, err := NewCustom(nil)
	require.Nil(t, o)
	require.Error(t, err)
}

func TestStaticHasNoOwner(t *testing.T) {
	o := NewStatic()
	require.Nil(t, o.Owner())
	require.Equal(t, KindStatic, o.Kind())
}

// TestSingleThreadFiftyTasks is scenario 1 of the spec's seed suite: one
// object, 50 tasks, one caller thread. The first DoAsync must win the
// zero-to-one race and report ExecutedSync; every subsequent call on an
// object whose drain loop has already finished must win it again (the
// object returns to "empty" between calls on a single thread).
func TestSingleThreadFiftyTasks(t *testing.T) {
	owner := new(int)
	o, err := NewShared(owner)
	require.NoError(t, err)

	var counter int
	for i := 0; i < 50; i++ {
		status := o.DoAsync(func() { counter++ })
		require.Equal(t, skylake.StatusExecutedSync, status)
	}
	require.Equal(t, 50, counter)
}

// TestCrossWorkerBurstNeverOverlaps is a scaled-down version of scenario 2:
// many goroutines hammer do_async on one object; a CAS-toggled guard flag
// panics if two task bodies ever run concurrently.
func TestCrossWorkerBurstNeverOverlaps(t *testing.T) {
	owner := new(int)
	o, err := NewShared(owner)
	require.NoError(t, err)

	const goroutines = 16
	const perGoroutine = 5000

	var guard int32 // 0 or 1, toggled around each task body
	var total atomic.Int64

	var wg sync.WaitGroup
	wg.Add(goroutines)
	for g := 0; g < goroutines; g++ {
		go func() {
			defer wg.Done()
			for i := 0; i < perGoroutine; i++ {
				o.DoAsync(func() {
					if !atomic.CompareAndSwapInt32(&guard, 0, 1) {
						panic("aod: concurrent execution detected")
					}
					total.Add(1)
					if !atomic.CompareAndSwapInt32(&guard, 1, 0) {
						panic("aod: concurrent execution detected")
					}
				})
			}
		}()
	}
	wg.Wait()

	require.Equal(t, int64(goroutines*perGoroutine), total.Load())
}

func TestDoAsyncNilFuncFails(t *testing.T) {
	o := NewStatic()
	require.Equal(t, skylake.StatusFail, o.DoAsync(nil))
}
