package renderer

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestRing(t *testing.T, size uint32) (*ringBuffer, *[]uint32) {
	t.Helper()
	var recreated []uint32
	rb, err := newRingBuffer(size, func(newSize uint32) error {
		recreated = append(recreated, newSize)
		return nil
	})
	require.NoError(t, err)
	return rb, &recreated
}

func TestRingBufferRejectsNonPow2Size(t *testing.T) {
	_, err := newRingBuffer(1000, func(uint32) error { return nil })
	assert.Error(t, err)

	_, err = newRingBuffer(0, func(uint32) error { return nil })
	assert.Error(t, err)
}

func TestRingBufferSequentialAllocations(t *testing.T) {
	rb, _ := newTestRing(t, 1024)

	off1, err := rb.allocate(100, 4)
	require.NoError(t, err)
	assert.Equal(t, uint32(0), off1)

	off2, err := rb.allocate(100, 4)
	require.NoError(t, err)
	assert.Equal(t, uint32(100), off2)
}

func TestRingBufferAlignment(t *testing.T) {
	rb, _ := newTestRing(t, 1024)

	_, err := rb.allocate(10, 4)
	require.NoError(t, err)

	off, err := rb.allocate(16, 256)
	require.NoError(t, err)
	assert.Equal(t, uint32(256), off)
}

func TestRingBufferAlignmentMustBePow2(t *testing.T) {
	rb, _ := newTestRing(t, 1024)

	assert.Panics(t, func() {
		_, _ = rb.allocate(16, 3)
	})
	assert.Panics(t, func() {
		_, _ = rb.allocate(16, 0)
	})
}

func TestRingBufferNoStraddle(t *testing.T) {
	rb, _ := newTestRing(t, 1024)

	_, err := rb.allocate(1000, 4)
	require.NoError(t, err)
	rb.markSynced(rb.cursor())

	// 100 bytes do not fit in the 24 left on this lap, so the allocation
	// starts at the next lap's offset 0
	off, err := rb.allocate(100, 4)
	require.NoError(t, err)
	assert.Equal(t, uint32(0), off)
	assert.Equal(t, uint32(1124), rb.cursor())
}

func TestRingBufferWrapsAfterSync(t *testing.T) {
	rb, _ := newTestRing(t, 1024)

	for lap := 0; lap < 4; lap++ {
		off, err := rb.allocate(512, 4)
		require.NoError(t, err)
		assert.Equal(t, uint32(0), off)

		off, err = rb.allocate(512, 4)
		require.NoError(t, err)
		assert.Equal(t, uint32(512), off)

		// frame retired, the whole lap is reusable
		rb.markSynced(rb.cursor())
	}
	assert.Equal(t, uint32(1024), rb.size)
}

func TestRingBufferGrowsOnOversizedAllocation(t *testing.T) {
	rb, recreated := newTestRing(t, 1024)

	off, err := rb.allocate(3000, 4)
	require.NoError(t, err)
	assert.Equal(t, uint32(0), off)
	assert.Equal(t, uint32(4096), rb.size)
	assert.Equal(t, []uint32{1024, 4096}, *recreated)
}

func TestRingBufferGrowsWhenLappingUnsyncedData(t *testing.T) {
	rb, recreated := newTestRing(t, 1024)

	// nothing retires, so a second lap would overwrite in-flight data
	_, err := rb.allocate(1024, 4)
	require.NoError(t, err)

	_, err = rb.allocate(512, 4)
	require.NoError(t, err)

	assert.Equal(t, uint32(2048), rb.size)
	assert.Equal(t, []uint32{1024, 2048}, *recreated)
}

func TestRingBufferGrowFailurePropagates(t *testing.T) {
	calls := 0
	rb, err := newRingBuffer(64, func(uint32) error {
		calls++
		if calls > 1 {
			return assert.AnError
		}
		return nil
	})
	require.NoError(t, err)

	_, err = rb.allocate(128, 4)
	assert.Error(t, err)
}

func TestRingBufferMarkSyncedMonotonic(t *testing.T) {
	rb, _ := newTestRing(t, 1024)

	rb.markSynced(500)
	rb.markSynced(200)
	assert.Equal(t, uint32(500), rb.lastSynced)
}
