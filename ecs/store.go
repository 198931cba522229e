// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package ecs

import (
	"sync"

	"code.hybscloud.com/atomix"
	"code.hybscloud.com/spin"
	"github.com/skylakelib/skylake"
	"github.com/skylakelib/skylake/aod"
	"github.com/skylakelib/skylake/task"
)

// freeStack is a fixed-capacity, array-backed LIFO stack of slot indices
// (spec.md §4.8's LIFO stack). mu serializes push and pop: the slot write
// and the top-index update are two separate steps, so without it a racing
// pusher could overwrite an entry another push had already published.
type freeStack struct {
	mu    sync.Mutex
	slots []uint32
	top   atomix.Uint64
}

func newFreeStack(capacity int) *freeStack {
	s := &freeStack{slots: make([]uint32, capacity)}
	for i := 0; i < capacity; i++ {
		s.slots[i] = uint32(i)
	}
	s.top.StoreRelaxed(uint64(capacity))
	return s
}

func (s *freeStack) push(slot uint32) {
	s.mu.Lock()
	defer s.mu.Unlock()
	sw := spin.Wait{}
	for {
		t := s.top.LoadAcquire()
		s.slots[t] = slot
		if s.top.CompareAndSwapAcqRel(t, t+1) {
			return
		}
		sw.Once()
	}
}

func (s *freeStack) pop() (uint32, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	sw := spin.Wait{}
	for {
		t := s.top.LoadAcquire()
		if t == 0 {
			return 0, false
		}
		slot := s.slots[t-1]
		if s.top.CompareAndSwapAcqRel(t, t-1) {
			return slot, true
		}
		sw.Once()
	}
}

// Store is a fixed-capacity host of entity IDs. It owns no component data
// itself — components are separate parallel Component[T] arrays sized to
// the same capacity — Store's only responsibilities are slot allocation,
// generation bookkeeping, the deactivation handshake, and hosting an
// embedded AOD object so callers can serialize work against this store the
// same way any other AOD owner does.
type Store struct {
	typeTag      uint16
	capacity     uint32
	generations  []uint32
	free         *freeStack
	activeCount    atomix.Int64
	deactivating   atomix.Bool
	deactivateOnce sync.Once
	onDeactivated  func()

	AOD *aod.Object
}

// NewStore constructs a Store of the given capacity, tagged with typeTag
// (an application-chosen discriminant embedded in every ID this store
// issues). owner is this store's AOD back-pointer, per aod.NewShared's
// contract.
func NewStore(typeTag uint16, capacity int, owner any) (*Store, error) {
	object, err := aod.NewShared(owner)
	if err != nil {
		return nil, err
	}
	// Generations start at 1: generation 0 is reserved so the zero ID is
	// never a live allocation (see ID.Zero).
	generations := make([]uint32, capacity)
	for i := range generations {
		generations[i] = 1
	}
	return &Store{
		typeTag:     typeTag,
		capacity:    uint32(capacity),
		generations: generations,
		free:        newFreeStack(capacity),
		AOD:         object,
	}, nil
}

// Capacity returns the fixed number of slots this store was constructed
// with.
func (s *Store) Capacity() int { return int(s.capacity) }

// Allocate reserves a slot and returns its ID. It returns StatusFail once
// Deactivate has been called, and StatusAllocationFailed if the store is at
// capacity.
func (s *Store) Allocate() (ID, skylake.Status) {
	if s.deactivating.LoadAcquire() {
		return ID{}, skylake.StatusFail
	}
	slot, ok := s.free.pop()
	if !ok {
		return ID{}, skylake.StatusAllocationFailed
	}
	s.activeCount.AddAcqRel(1)
	return ID{TypeTag: s.typeTag, Slot: slot, Generation: s.generations[slot]}, skylake.StatusSuccess
}

// Release returns id's slot to the free stack, bumping its generation so
// any ID referencing the old generation becomes stale. Returns
// StatusFail if id's generation does not match the slot's current
// generation (a stale or double release).
func (s *Store) Release(id ID) skylake.Status {
	if id.Slot >= s.capacity || id.Generation != s.generations[id.Slot] {
		return skylake.StatusFail
	}
	s.generations[id.Slot]++
	s.free.push(id.Slot)

	if s.activeCount.AddAcqRel(-1) == 0 && s.deactivating.LoadAcquire() {
		s.fireDeactivated()
	}
	return skylake.StatusSuccess
}

// fireDeactivated runs onDeactivated exactly once, however many goroutines
// observe the zero-active-count condition concurrently from Release and
// Deactivate.
func (s *Store) fireDeactivated() {
	s.deactivateOnce.Do(func() {
		if s.onDeactivated != nil {
			s.onDeactivated()
		}
	})
}

// Valid reports whether id still refers to a live allocation (its slot's
// current generation matches).
func (s *Store) Valid(id ID) bool {
	return id.Slot < s.capacity && id.Generation == s.generations[id.Slot]
}

// Deactivate stops further Allocate calls and arranges for onAllReturned
// to run once every currently-live ID has been Released (immediately, if
// none are live when called). onAllReturned runs at most once.
func (s *Store) Deactivate(onAllReturned func()) {
	s.onDeactivated = onAllReturned
	s.deactivating.StoreRelease(true)
	if s.activeCount.LoadAcquire() == 0 {
		s.fireDeactivated()
	}
}

// DoAsync proxies to the store's embedded AOD object, serializing fn
// against every other task dispatched through this store.
func (s *Store) DoAsync(fn task.Func) skylake.Status {
	return s.AOD.DoAsync(fn)
}
