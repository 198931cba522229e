// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package ring

import (
	"errors"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestCapRoundsUpToPowerOfTwo(t *testing.T) {
	require.Equal(t, 4, New[int](3).Cap())
	require.Equal(t, 8, New[int](8).Cap())
	require.Equal(t, 2, New[int](2).Cap())
}

func TestEnqueueDequeueFIFOOrder(t *testing.T) {
	r := New[int](4)
	for i := 0; i < r.Cap(); i++ {
		v := i + 100
		require.NoError(t, r.Enqueue(&v))
	}
	for i := 0; i < r.Cap(); i++ {
		v, err := r.Dequeue()
		require.NoError(t, err)
		require.Equal(t, i+100, v)
	}
}

func TestEnqueueOnFullRingReturnsWouldBlock(t *testing.T) {
	r := New[int](2)
	v := 1
	require.NoError(t, r.Enqueue(&v))
	require.NoError(t, r.Enqueue(&v))
	require.True(t, errors.Is(r.Enqueue(&v), ErrWouldBlock))
}

func TestDequeueOnEmptyRingReturnsWouldBlock(t *testing.T) {
	r := New[int](2)
	_, err := r.Dequeue()
	require.True(t, errors.Is(err, ErrWouldBlock))
}

func TestRingReusesSlotsAcrossCycles(t *testing.T) {
	r := New[int](2)
	for round := 0; round < 5; round++ {
		v := round
		require.NoError(t, r.Enqueue(&v))
		got, err := r.Dequeue()
		require.NoError(t, err)
		require.Equal(t, round, got)
	}
}

func TestDrainSkipsThresholdAfterProducersStop(t *testing.T) {
	r := New[int](4)
	for i := 0; i < r.Cap(); i++ {
		v := i
		require.NoError(t, r.Enqueue(&v))
	}
	r.Drain()
	for i := 0; i < r.Cap(); i++ {
		v, err := r.Dequeue()
		require.NoError(t, err)
		require.Equal(t, i, v)
	}
}

func TestConcurrentProducersAndConsumersMoveEveryElementExactlyOnce(t *testing.T) {
	const (
		producers = 4
		consumers = 4
		perProducer = 2000
	)
	r := New[int](64)

	var produced sync.WaitGroup
	for p := 0; p < producers; p++ {
		produced.Add(1)
		go func(base int) {
			defer produced.Done()
			for i := 0; i < perProducer; i++ {
				v := base + i
				for r.Enqueue(&v) != nil {
					// ring momentarily full; retry
				}
			}
		}(p * perProducer)
	}

	total := producers * perProducer
	seen := make([]int32, total)
	var seenMu sync.Mutex
	var consumed sync.WaitGroup
	var drained atomic.Bool

	for c := 0; c < consumers; c++ {
		consumed.Add(1)
		go func() {
			defer consumed.Done()
			for {
				v, err := r.Dequeue()
				if err != nil {
					if drained.Load() {
						return
					}
					continue
				}
				seenMu.Lock()
				seen[v]++
				seenMu.Unlock()
			}
		}()
	}

	produced.Wait()
	r.Drain()
	drained.Store(true)
	consumed.Wait()

	for i, n := range seen {
		require.Equal(t, int32(1), n, "element %d seen %d times", i, n)
	}
}
