package containers

import (
	"fmt"

	"github.com/spaghettifunk/prisma/engine/core"
)

// Handle is an opaque reference to a record pooled in a Registry. Handles are
// freely copyable and value-comparable. The zero value is the nil handle and
// resolves in no registry. A handle is only meaningful in the registry that
// issued it.
type Handle[T any] struct {
	index      uint32
	generation uint32
}

// IsNil reports whether the handle is the zero "no resource" value.
func (h Handle[T]) IsNil() bool {
	return h.generation == 0
}

func (h Handle[T]) String() string {
	var zero T
	return fmt.Sprintf("%T(%d:%d)", zero, h.index, h.generation)
}

type slot[T any] struct {
	value      T
	generation uint32
	live       bool
}

// Registry owns a pool of records of type T addressed by generational handles.
// Removing a record bumps the slot generation, so stale handles held by the
// caller fail resolution instead of aliasing the slot's next occupant.
//
// All access is single-threaded. The renderer owns one registry per resource
// type and drives every mutation from its calling goroutine.
type Registry[T any] struct {
	slots    []slot[T]
	freeList []uint32
	live     int
}

func NewRegistry[T any]() *Registry[T] {
	return &Registry[T]{}
}

// Add allocates a fresh record and returns a pointer to it together with its
// handle. The pointer stays valid until the record is removed; it must not be
// retained across Add calls since the slot backing array may move.
func (r *Registry[T]) Add() (*T, Handle[T]) {
	var index uint32
	if n := len(r.freeList); n > 0 {
		index = r.freeList[n-1]
		r.freeList = r.freeList[:n-1]
	} else {
		r.slots = append(r.slots, slot[T]{})
		index = uint32(len(r.slots) - 1)
	}

	s := &r.slots[index]
	var zero T
	s.value = zero
	s.generation++
	s.live = true
	r.live++

	return &s.value, Handle[T]{index: index, generation: s.generation}
}

// Get resolves a handle to its record. A nil, stale or foreign handle yields
// core.ErrInvalidHandle; in correct usage this never happens.
func (r *Registry[T]) Get(h Handle[T]) (*T, error) {
	if h.IsNil() || h.index >= uint32(len(r.slots)) {
		return nil, core.ErrInvalidHandle
	}
	s := &r.slots[h.index]
	if !s.live || s.generation != h.generation {
		return nil, core.ErrInvalidHandle
	}
	return &s.value, nil
}

// MustGet is Get for call sites where an unresolvable handle is a caller bug.
func (r *Registry[T]) MustGet(h Handle[T]) *T {
	v, err := r.Get(h)
	if err != nil {
		panic(fmt.Sprintf("registry: %v: %s", err, h))
	}
	return v
}

// Remove releases the slot without running any cleanup.
func (r *Registry[T]) Remove(h Handle[T]) error {
	return r.RemoveWith(h, nil)
}

// RemoveWith runs cleanup on the live record and then releases the slot. The
// cleanup closure is where backend resources matching the record must be
// returned; every create has exactly one corresponding cleanup.
func (r *Registry[T]) RemoveWith(h Handle[T], cleanup func(*T)) error {
	v, err := r.Get(h)
	if err != nil {
		return err
	}
	if cleanup != nil {
		cleanup(v)
	}

	s := &r.slots[h.index]
	var zero T
	s.value = zero
	s.live = false
	r.live--
	r.freeList = append(r.freeList, h.index)
	return nil
}

// ClearWith cleans up and releases every live record. Used only at teardown.
func (r *Registry[T]) ClearWith(cleanup func(*T)) {
	for i := range r.slots {
		s := &r.slots[i]
		if !s.live {
			continue
		}
		if cleanup != nil {
			cleanup(&s.value)
		}
		var zero T
		s.value = zero
		s.live = false
		r.freeList = append(r.freeList, uint32(i))
	}
	r.live = 0
}

// Len returns the number of live records.
func (r *Registry[T]) Len() int {
	return r.live
}
