// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

// Package ecs implements the symmetric entity-component store: a
// fixed-capacity collaborator that hosts parallel component arrays and
// dispatches through an embedded AOD object, per spec.md §4.8. It is a
// collaborator boundary only — the runtime does not schedule or own ECS
// ticking, it hosts the store's allocations.
package ecs

import "fmt"

// ID identifies one live entity: a type tag (which Store it belongs to, at
// the caller's discretion), a small-integer slot in [0, capacity), and a
// generation counter that invalidates an ID once its slot is recycled.
type ID struct {
	TypeTag    uint16
	Slot       uint32
	Generation uint32
}

// String renders an ID for diagnostics.
func (id ID) String() string {
	return fmt.Sprintf("ecs.ID{type=%d slot=%d gen=%d}", id.TypeTag, id.Slot, id.Generation)
}

// Zero reports whether id is the zero value (never a valid allocation,
// since a Store issues generations starting at 1).
func (id ID) Zero() bool {
	return id == ID{}
}
