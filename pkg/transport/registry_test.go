package transport

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRegistry_GetExtendsLifetime(t *testing.T) {
	r := NewRegistry("test-registry-ttl", 4)
	defer r.Close()
	r.ttl = 100 * time.Millisecond

	first, err := r.Get(Config{})
	require.NoError(t, err)

	time.Sleep(60 * time.Millisecond)
	again, err := r.Get(Config{})
	require.NoError(t, err)
	assert.Same(t, first, again)

	// Past the lifetime counted from the first Get.
	time.Sleep(60 * time.Millisecond)
	busy, err := r.Get(Config{})
	require.NoError(t, err)
	assert.Same(t, first, busy)

	time.Sleep(150 * time.Millisecond)
	idle, err := r.Get(Config{})
	require.NoError(t, err)
	assert.NotSame(t, first, idle)
}
