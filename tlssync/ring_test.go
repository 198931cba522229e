// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package tlssync

import (
	"sync"
	"sync/atomic"
	"testing"

	"github.com/skylakelib/skylake"
	"github.com/stretchr/testify/require"
)

func TestEveryWorkerDispatchesEveryTaskExactlyOnce(t *testing.T) {
	const workers = 4
	r := NewRing(8, workers)
	cursors := make([]*Cursor, workers)
	for i := range cursors {
		cursors[i] = r.NewCursor()
	}

	dispatchCount := 0
	require.Equal(t, skylake.StatusSuccess, r.Push(func(isFinal bool) {
		if !isFinal {
			dispatchCount++
		}
	}))

	// Every cursor must see the one pushed task exactly once, and nothing
	// left over afterward.
	for _, c := range cursors {
		require.True(t, c.Advance())
		require.False(t, c.Advance())
	}
	require.Equal(t, workers, dispatchCount)
}

func TestFinalDispatchRunsExactlyOnceAcrossWorkers(t *testing.T) {
	const workers = 8
	r := NewRing(4, workers)
	cursors := make([]*Cursor, workers)
	for i := range cursors {
		cursors[i] = r.NewCursor()
	}

	var finalCount int
	var nonFinalCount int
	require.Equal(t, skylake.StatusSuccess, r.Push(func(isFinal bool) {
		if isFinal {
			finalCount++
		} else {
			nonFinalCount++
		}
	}))

	for _, c := range cursors {
		require.True(t, c.Advance())
	}

	require.Equal(t, workers, nonFinalCount)
	require.Equal(t, 1, finalCount)
}

func TestSlotIsReusedAfterFinalDispatch(t *testing.T) {
	const workers = 2
	r := NewRing(2, workers)
	a, b := r.NewCursor(), r.NewCursor()

	var seen []int
	for i := 0; i < 5; i++ {
		i := i
		require.Equal(t, skylake.StatusSuccess, r.Push(func(isFinal bool) {
			if isFinal {
				seen = append(seen, i)
			}
		}))
		require.True(t, a.Advance())
		require.True(t, b.Advance())
	}
	require.Equal(t, []int{0, 1, 2, 3, 4}, seen)
}

func TestCursorJoiningLateSkipsPastBroadcasts(t *testing.T) {
	r := NewRing(4, 2)
	early := r.NewCursor()

	ran := false
	require.Equal(t, skylake.StatusSuccess, r.Push(func(bool) { ran = true }))
	require.True(t, early.Advance())
	require.True(t, ran)

	late := r.NewCursor()
	require.False(t, late.Advance())
}

func TestConcurrentProducersAndWorkersAllFinalizeOnce(t *testing.T) {
	const workers = 6
	const pushes = 2000
	r := NewRing(64, workers)

	var finals atomic.Int64
	var producerDone atomic.Bool

	var workersWG sync.WaitGroup
	workersWG.Add(workers)
	for w := 0; w < workers; w++ {
		c := r.NewCursor()
		go func() {
			defer workersWG.Done()
			for !producerDone.Load() {
				c.DrainAll()
			}
			// producer has finished pushing; one more drain picks up
			// anything still in flight when the flag was observed.
			c.DrainAll()
		}()
	}

	for i := 0; i < pushes; i++ {
		r.Push(func(isFinal bool) {
			if isFinal {
				finals.Add(1)
			}
		})
	}
	producerDone.Store(true)
	workersWG.Wait()

	require.Equal(t, int64(pushes), finals.Load())
}
