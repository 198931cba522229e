// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package skylake

import (
	"sync"
	"time"

	"go.uber.org/automaxprocs/maxprocs"
)

// InitOption configures InitializeLibrary.
type InitOption func(*initConfig)

type initConfig struct {
	setGOMAXPROCS  bool
	timerResolution time.Duration
	logf            func(format string, args ...any)
}

// WithGOMAXPROCS toggles whether InitializeLibrary sets GOMAXPROCS from the
// container cgroup quota (via automaxprocs) before any worker group is
// sized. Enabled by default.
func WithGOMAXPROCS(enabled bool) InitOption {
	return func(c *initConfig) { c.setGOMAXPROCS = enabled }
}

// WithTimerResolution records the requested scheduler tick resolution,
// reported afterwards by TimerResolution. The runtime does not itself call
// into the OS timer API (that is a platform collaborator concern), and the
// worker cadence sleep (worker.Group) does not consult this value.
func WithTimerResolution(d time.Duration) InitOption {
	return func(c *initConfig) { c.timerResolution = d }
}

// WithLogf installs a printf-style diagnostic sink used only for the
// library warm-up step itself (before any worker group, and therefore any
// dclog.Logger, exists). Defaults to a no-op.
func WithLogf(fn func(format string, args ...any)) InitOption {
	return func(c *initConfig) { c.logf = fn }
}

var (
	libMu          sync.Mutex
	libInitialized bool
	libResolution  = time.Millisecond
)

// InitializeLibrary performs process-wide warm-up: it sets GOMAXPROCS from
// the cgroup quota (mirroring the source's library-init hook) and records
// the scheduler's timer resolution. It must be called exactly once before
// any server.Instance is created; calling it twice returns
// StatusAlreadyPerformed.
func InitializeLibrary(opts ...InitOption) Status {
	libMu.Lock()
	defer libMu.Unlock()
	if libInitialized {
		return StatusAlreadyPerformed
	}

	cfg := initConfig{
		setGOMAXPROCS:   true,
		timerResolution: time.Millisecond,
		logf:            func(string, ...any) {},
	}
	for _, opt := range opts {
		opt(&cfg)
	}

	if cfg.setGOMAXPROCS {
		if _, err := maxprocs.Set(maxprocs.Logger(cfg.logf)); err != nil {
			cfg.logf("skylake: automaxprocs.Set failed: %v", err)
		}
	}

	if cfg.timerResolution <= 0 {
		cfg.timerResolution = time.Millisecond
	}
	libResolution = cfg.timerResolution
	libInitialized = true
	return StatusSuccess
}

// TimerResolution returns the resolution InitializeLibrary was configured
// with, or the 1ms default if InitializeLibrary has not run.
func TimerResolution() time.Duration {
	libMu.Lock()
	defer libMu.Unlock()
	return libResolution
}

// TerminateLibrary reverses InitializeLibrary bookkeeping so a process that
// embeds multiple short-lived server instances (e.g. in tests) can
// re-initialize. It does not undo the GOMAXPROCS change.
func TerminateLibrary() {
	libMu.Lock()
	defer libMu.Unlock()
	libInitialized = false
	libResolution = time.Millisecond
}
