// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

// Package dclog wires the runtime's lifecycle and error events to
// structured logging. It is a thin concrete instantiation of
// github.com/joeycumines/logiface over github.com/joeycumines/stumpy,
// standing in for the source's Log.h diagnostics collaborator.
package dclog

import (
	"os"

	"github.com/joeycumines/logiface"
	"github.com/joeycumines/stumpy"
)

// Logger is the concrete logger type shared by every runtime package. A nil
// *Logger is valid and discards everything, so collaborators never need a
// nil check before logging.
type Logger = logiface.Logger[*stumpy.Event]

// New builds a Logger writing newline-delimited JSON to w (stdout if w is
// nil), at the given minimum level.
func New(w *os.File, level logiface.Level) *Logger {
	if w == nil {
		w = os.Stdout
	}
	return stumpy.L.New(
		stumpy.L.WithStumpy(stumpy.WithWriter(w)),
		stumpy.L.WithLevel(level),
	)
}

// Discard is a logger that never writes, used as the zero-value default
// throughout the runtime so a caller that doesn't configure logging still
// gets a non-nil, safe-to-call Logger.
var Discard = stumpy.L.New(stumpy.L.WithLevel(logiface.LevelDisabled))

// OrDiscard returns l, or Discard if l is nil.
func OrDiscard(l *Logger) *Logger {
	if l == nil {
		return Discard
	}
	return l
}
