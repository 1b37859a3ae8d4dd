package containers

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spaghettifunk/prisma/engine/core"
)

type record struct {
	name string
}

func TestRegistryAddGet(t *testing.T) {
	r := NewRegistry[record]()

	v, h := r.Add()
	v.name = "first"

	got, err := r.Get(h)
	require.NoError(t, err)
	assert.Equal(t, "first", got.name)
	assert.Equal(t, 1, r.Len())
}

func TestRegistryNilHandle(t *testing.T) {
	r := NewRegistry[record]()

	var nilHandle Handle[record]
	assert.True(t, nilHandle.IsNil())

	_, err := r.Get(nilHandle)
	assert.ErrorIs(t, err, core.ErrInvalidHandle)
}

func TestRegistryStaleHandle(t *testing.T) {
	r := NewRegistry[record]()

	v, h := r.Add()
	v.name = "doomed"
	require.NoError(t, r.Remove(h))

	_, err := r.Get(h)
	assert.ErrorIs(t, err, core.ErrInvalidHandle)

	// the slot is reused but the generation moved on, so the old handle
	// must not resolve to the new occupant
	v2, h2 := r.Add()
	v2.name = "tenant"

	_, err = r.Get(h)
	assert.ErrorIs(t, err, core.ErrInvalidHandle)

	got, err := r.Get(h2)
	require.NoError(t, err)
	assert.Equal(t, "tenant", got.name)
	assert.NotEqual(t, h, h2)
}

func TestRegistryDoubleRemove(t *testing.T) {
	r := NewRegistry[record]()

	_, h := r.Add()
	require.NoError(t, r.Remove(h))
	assert.ErrorIs(t, r.Remove(h), core.ErrInvalidHandle)
	assert.Equal(t, 0, r.Len())
}

func TestRegistryRemoveWithCleanup(t *testing.T) {
	r := NewRegistry[record]()

	v, h := r.Add()
	v.name = "cleanup me"

	var cleaned string
	require.NoError(t, r.RemoveWith(h, func(rec *record) {
		cleaned = rec.name
	}))
	assert.Equal(t, "cleanup me", cleaned)
}

func TestRegistryMustGetPanics(t *testing.T) {
	r := NewRegistry[record]()

	_, h := r.Add()
	require.NoError(t, r.Remove(h))

	assert.Panics(t, func() {
		r.MustGet(h)
	})
}

func TestRegistryClearWith(t *testing.T) {
	r := NewRegistry[record]()

	for i := 0; i < 5; i++ {
		v, _ := r.Add()
		v.name = "x"
	}
	_, h := r.Add()
	require.NoError(t, r.Remove(h))

	count := 0
	r.ClearWith(func(rec *record) { count++ })

	assert.Equal(t, 5, count)
	assert.Equal(t, 0, r.Len())
}

func TestRegistrySlotReuse(t *testing.T) {
	r := NewRegistry[record]()

	_, h1 := r.Add()
	require.NoError(t, r.Remove(h1))

	_, h2 := r.Add()
	_, err := r.Get(h2)
	require.NoError(t, err)

	// only one slot was ever needed
	assert.Equal(t, 1, len(r.slots))
}
