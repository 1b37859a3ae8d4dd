package core

import (
	"errors"
)

var (
	// ErrInvalidHandle is returned when a handle does not resolve in the
	// registry that is asked to look it up. Hitting it means the caller kept
	// a handle past its Delete or mixed up registries.
	ErrInvalidHandle = errors.New("invalid resource handle")
	// ErrSwapchainBooting signals that the swapchain was resized or recreated
	// and the current frame should be abandoned.
	ErrSwapchainBooting = errors.New("swapchain resized or recreated, booting")
	ErrUnknown          = errors.New("unknown")
)
