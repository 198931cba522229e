// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package worker

import (
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/skylakelib/skylake"
	"github.com/stretchr/testify/require"
)

func TestReactiveGroupDrainsDeferredTasksAndStops(t *testing.T) {
	cfg := NewGroupConfig("reactive", 1, 3, CapHandlesTasks)
	g := NewGroup(cfg)

	status := g.Start()
	require.Equal(t, skylake.StatusSuccess, status)

	var ran atomic.Int64
	const n = 500
	for i := 0; i < n; i++ {
		require.Equal(t, skylake.StatusSuccess, g.Defer(func() { ran.Add(1) }))
	}

	require.Eventually(t, func() bool { return ran.Load() == n }, time.Second, time.Millisecond)

	g.SignalStop(false)
	g.JoinAll()
}

func TestActiveGroupInvokesTickHandlerOnCadence(t *testing.T) {
	var ticks atomic.Int64
	cfg := NewGroupConfig("active", 2, 1, CapActive|CapCallTickHandler,
		WithTickHandler(func(w *Worker) { ticks.Add(1) }))
	cfg.TickRateHz = 200 // 5ms period

	g := NewGroup(cfg)
	require.Equal(t, skylake.StatusSuccess, g.Start())

	require.Eventually(t, func() bool { return ticks.Load() >= 3 }, time.Second, time.Millisecond)

	g.SignalStop(false)
	g.JoinAll()
}

func TestDeferFailsWithoutCapHandlesTasks(t *testing.T) {
	cfg := NewGroupConfig("noinbox", 3, 1, CapActive)
	g := NewGroup(cfg)
	require.Equal(t, skylake.StatusFail, g.Defer(func() {}))
}

func TestStartHookAndStopHookRunPerWorker(t *testing.T) {
	var started, stopped sync.Map
	cfg := NewGroupConfig("hooks", 4, 4, 0,
		WithStartHook(func(w *Worker) { started.Store(w.Index(), true) }),
		WithStopHook(func(w *Worker) { stopped.Store(w.Index(), true) }))

	g := NewGroup(cfg)
	require.Equal(t, skylake.StatusSuccess, g.Start())
	g.SignalStop(false)
	g.JoinAll()

	for i := 0; i < 4; i++ {
		_, ok := started.Load(i)
		require.True(t, ok, "worker %d did not start", i)
		_, ok = stopped.Load(i)
		require.True(t, ok, "worker %d did not stop", i)
	}
}

func TestCapturingGroupRunsMasterOnCallingGoroutine(t *testing.T) {
	cfg := NewGroupConfig("captured", 5, 1, 0)
	cfg.WillCaptureCallingThread = true

	g := NewGroup(cfg)

	done := make(chan skylake.Status, 1)
	go func() {
		done <- g.Start()
	}()

	// give the master worker a moment to enter its loop, then stop it.
	time.Sleep(10 * time.Millisecond)
	g.SignalStop(false)

	select {
	case status := <-done:
		require.Equal(t, skylake.StatusServerInstanceFinalized, status)
	case <-time.After(time.Second):
		t.Fatal("Start did not return after SignalStop")
	}
}

func TestStartTwiceReturnsAlreadyPerformed(t *testing.T) {
	cfg := NewGroupConfig("twice", 6, 1, 0)
	g := NewGroup(cfg)
	require.Equal(t, skylake.StatusSuccess, g.Start())
	require.Equal(t, skylake.StatusAlreadyPerformed, g.Start())
	g.SignalStop(false)
	g.JoinAll()
}

func TestSyncTLSFailsWithoutCapSupportsTLSSync(t *testing.T) {
	cfg := NewGroupConfig("notls", 7, 1, 0)
	g := NewGroup(cfg)
	require.Equal(t, skylake.StatusFail, g.SyncTLS(func(bool) {}))
}

func TestTLSSyncBroadcastsToEveryWorker(t *testing.T) {
	const workers = 4
	cfg := NewGroupConfig("tls", 8, workers, CapSupportsTLSSync)
	g := NewGroup(cfg)
	require.Equal(t, skylake.StatusSuccess, g.Start())

	var finals atomic.Int64
	require.Equal(t, skylake.StatusSuccess, g.SyncTLS(func(isFinal bool) {
		if isFinal {
			finals.Add(1)
		}
	}))

	require.Eventually(t, func() bool { return finals.Load() == 1 }, time.Second, time.Millisecond)

	g.SignalStop(false)
	g.JoinAll()
}
