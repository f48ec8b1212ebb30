package memory

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCache_SetGet(t *testing.T) {
	ctx := context.Background()
	c := New()

	_, ok, err := c.Get(ctx, "1:a:k")
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, c.Set(ctx, "1:a:k", []string{"a", "b"}, time.Minute))
	chain, ok, err := c.Get(ctx, "1:a:k")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, []string{"a", "b"}, chain)

	chain[0] = "mutated"
	again, _, _ := c.Get(ctx, "1:a:k")
	assert.Equal(t, "a", again[0])
}

func TestCache_Expiry(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	c := New()
	c.now = func() time.Time { return now }

	require.NoError(t, c.Set(ctx, "k", []string{"a"}, 10*time.Minute))
	now = now.Add(9 * time.Minute)
	_, ok, _ := c.Get(ctx, "k")
	assert.True(t, ok)

	now = now.Add(time.Minute)
	_, ok, _ = c.Get(ctx, "k")
	assert.False(t, ok)

	removed, err := c.Sweep(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, removed)
	assert.Zero(t, c.Len())
}
