// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package ecs

// Component is a parallel array of T, indexed by an ID's Slot. It is
// deliberately independent of Store: spec.md §4.8 describes "each
// component type has a parallel array of length N", not a component
// registry owned by the store, so a Store's only job is allocating and
// recycling slots; callers size one Component[T] per type at the same
// capacity as the Store issuing the slots.
type Component[T any] struct {
	values []T
}

// NewComponent allocates a Component array of the given capacity, which
// should match the Store whose IDs will index it.
func NewComponent[T any](capacity int) *Component[T] {
	return &Component[T]{values: make([]T, capacity)}
}

// Get returns the value at id's slot. The caller is responsible for
// checking id validity (via Store.Valid) first if staleness matters;
// Get itself does not consult any Store.
func (c *Component[T]) Get(id ID) *T {
	return &c.values[id.Slot]
}

// Set stores v at id's slot.
func (c *Component[T]) Set(id ID, v T) {
	c.values[id.Slot] = v
}

// Reset restores id's slot to T's zero value. Callers typically do this
// on Store.Release to avoid holding stale references past a generation
// bump.
func (c *Component[T]) Reset(id ID) {
	var zero T
	c.values[id.Slot] = zero
}
