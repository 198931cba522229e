// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package service

import (
	"testing"

	"github.com/skylakelib/skylake"
	"github.com/skylakelib/skylake/worker"
	"github.com/stretchr/testify/require"
)

func TestSimpleServiceDefaultsToSuccessWithNilCallbacks(t *testing.T) {
	s := NewSimple("noop", nil, nil)
	require.Equal(t, "noop", s.Name())
	require.Equal(t, skylake.StatusSuccess, s.OnStart())
	require.Equal(t, skylake.StatusSuccess, s.OnStop(nil))
}

func TestSimpleServiceInvokesCallbacks(t *testing.T) {
	started, stopped := false, false
	s := NewSimple("cb",
		func() skylake.Status { started = true; return skylake.StatusSuccess },
		func(done func(skylake.Status)) skylake.Status { stopped = true; return skylake.StatusSuccess })

	require.Equal(t, skylake.StatusSuccess, s.OnStart())
	require.True(t, started)
	require.Equal(t, skylake.StatusSuccess, s.OnStop(nil))
	require.True(t, stopped)
}

func TestAODServiceProxiesDoAsyncThroughEmbeddedObject(t *testing.T) {
	s := NewAOD("aodsvc", nil, nil)

	var ran bool
	status := s.DoAsync(func() { ran = true })
	require.Equal(t, skylake.StatusExecutedSync, status)
	require.True(t, ran)
}

func TestActiveServiceOnTickInvokesUserCallback(t *testing.T) {
	var called bool
	s := NewActive("active", nil, nil, func(w *worker.Worker) { called = true })
	s.OnTick(nil)
	require.True(t, called)
}

func TestWorkerServiceHooksRunIndependently(t *testing.T) {
	var startedCount, stoppedCount, tickCount int
	s := NewWorker("wsvc", nil, nil,
		func(w *worker.Worker) { startedCount++ },
		func(w *worker.Worker) { stoppedCount++ },
		func(w *worker.Worker) { tickCount++ })

	s.OnWorkerStarted(nil)
	s.OnWorkerStarted(nil)
	s.TickWorker(nil)
	s.OnWorkerStopped(nil)

	require.Equal(t, 2, startedCount)
	require.Equal(t, 1, tickCount)
	require.Equal(t, 1, stoppedCount)

	var _ worker.WorkerTicker = s
}

func TestServicePendingStopCompletesViaDoneCallback(t *testing.T) {
	var completion skylake.Status
	done := make(chan struct{})
	s := NewSimple("pending", nil, func(d func(skylake.Status)) skylake.Status {
		go func() {
			d(skylake.StatusSuccess)
		}()
		return skylake.StatusPending
	})

	status := s.OnStop(func(st skylake.Status) {
		completion = st
		close(done)
	})
	require.Equal(t, skylake.StatusPending, status)
	<-done
	require.Equal(t, skylake.StatusSuccess, completion)
}
