package renderer

import (
	"fmt"

	"github.com/spaghettifunk/prisma/engine/core"
	"github.com/spaghettifunk/prisma/engine/math"
)

// ringBuffer sub-allocates ephemeral per-frame data from one persistently
// mapped GPU buffer. The cursor grows monotonically; the actual offset is the
// cursor modulo the buffer size, so the GPU storage is reused once the frames
// that consumed it have retired. lastSynced marks the oldest cursor value the
// GPU may still be reading.
type ringBuffer struct {
	size       uint32
	ptr        uint32
	lastSynced uint32

	// recreate reallocates the GPU storage at a new size. The old contents
	// are gone afterwards, which is fine for ephemeral data.
	recreate func(newSize uint32) error
}

func newRingBuffer(size uint32, recreate func(newSize uint32) error) (*ringBuffer, error) {
	if size == 0 || !math.IsPow2(size) {
		return nil, fmt.Errorf("ring buffer size %d is not a power of two", size)
	}
	rb := &ringBuffer{size: size, recreate: recreate}
	if err := recreate(size); err != nil {
		return nil, err
	}
	return rb, nil
}

// allocate reserves size bytes at the requested alignment and returns the
// offset into the GPU buffer. An allocation never straddles the end of the
// buffer; when it would, the remainder of the current lap is skipped.
func (rb *ringBuffer) allocate(size, alignment uint32) (uint32, error) {
	if alignment == 0 || !math.IsPow2(alignment) {
		panic(fmt.Sprintf("ring buffer alignment %d is not a power of two", alignment))
	}

	if size > rb.size {
		newSize := math.NextPow2(size)
		core.LogInfo("ring buffer allocation of %d bytes exceeds buffer size %d, growing to %d", size, rb.size, newSize)
		if err := rb.grow(newSize); err != nil {
			return 0, err
		}
	}

	mask := alignment - 1
	alignedPtr := (rb.ptr + mask) &^ mask
	beginPtr := alignedPtr % rb.size

	if beginPtr+size > rb.size {
		// skip to the next lap so the allocation stays contiguous
		rb.ptr = (rb.ptr/rb.size + 1) * rb.size
		alignedPtr = (rb.ptr + mask) &^ mask
		beginPtr = alignedPtr % rb.size
	}
	rb.ptr = alignedPtr + size

	// lapping the unretired region means the GPU could still be reading what
	// we are about to overwrite
	if rb.ptr-rb.lastSynced > rb.size {
		newSize := rb.size * 2
		core.LogWarn("out of space in ring buffer, growing to %d bytes", newSize)
		if err := rb.grow(newSize); err != nil {
			return 0, err
		}
		alignedPtr = (rb.ptr + mask) &^ mask
		beginPtr = alignedPtr % rb.size
		rb.ptr = alignedPtr + size
	}

	return beginPtr, nil
}

func (rb *ringBuffer) grow(newSize uint32) error {
	if err := rb.recreate(newSize); err != nil {
		return fmt.Errorf("ring buffer recreate at %d bytes: %w", newSize, err)
	}
	rb.size = newSize
	rb.ptr = 0
	rb.lastSynced = 0
	return nil
}

// markSynced records that the GPU has finished with everything allocated
// before the given cursor value. Called when a frame's fence retires.
func (rb *ringBuffer) markSynced(ptr uint32) {
	if ptr > rb.lastSynced {
		rb.lastSynced = ptr
	}
}

// cursor is the current allocation pointer, captured at frame submission to
// be handed back to markSynced when that frame retires.
func (rb *ringBuffer) cursor() uint32 {
	return rb.ptr
}
