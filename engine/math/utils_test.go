package math

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestClamp(t *testing.T) {
	assert.Equal(t, 5, Clamp(3, 5, 10))
	assert.Equal(t, 10, Clamp(12, 5, 10))
	assert.Equal(t, 7, Clamp(7, 5, 10))
	assert.Equal(t, 0.5, Clamp(0.5, 0.0, 1.0))
}

func TestIsPow2(t *testing.T) {
	assert.False(t, IsPow2(uint32(0)))
	assert.True(t, IsPow2(uint32(1)))
	assert.True(t, IsPow2(uint32(1024)))
	assert.False(t, IsPow2(uint32(1000)))
}

func TestNextPow2(t *testing.T) {
	assert.Equal(t, uint32(1), NextPow2(uint32(0)))
	assert.Equal(t, uint32(1), NextPow2(uint32(1)))
	assert.Equal(t, uint32(1024), NextPow2(uint32(1000)))
	assert.Equal(t, uint32(1024), NextPow2(uint32(1024)))
	assert.Equal(t, uint32(2048), NextPow2(uint32(1025)))
}
