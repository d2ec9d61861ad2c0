package cache

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

func TestLRU_SetGetDelete(t *testing.T) {
	ctx := context.Background()
	c := NewLRU(10, time.Hour)

	_, ok, err := c.Get(ctx, "simulation:a")
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, c.Set(ctx, "simulation:a", []byte(`{"x":1}`), time.Minute))
	got, ok, err := c.Get(ctx, "simulation:a")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, `{"x":1}`, string(got))

	require.NoError(t, c.Delete(ctx, "simulation:a"))
	_, ok, _ = c.Get(ctx, "simulation:a")
	assert.False(t, ok)

	assert.NoError(t, c.Delete(ctx, "never-set"))
}

func TestLRU_PerEntryTTL(t *testing.T) {
	ctx := context.Background()
	clock := &fakeClock{now: time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)}
	c := NewLRU(10, time.Hour, WithClock(clock.Now))

	require.NoError(t, c.Set(ctx, "short", []byte("s"), time.Minute))
	require.NoError(t, c.Set(ctx, "long", []byte("l"), 30*time.Minute))

	clock.Advance(2 * time.Minute)

	_, ok, _ := c.Get(ctx, "short")
	assert.False(t, ok, "expired entry must not be served")
	_, ok, _ = c.Get(ctx, "long")
	assert.True(t, ok)
	assert.Equal(t, 1, c.Len(), "expired entry is evicted on read")
}

func TestLRU_ValuesAreCopied(t *testing.T) {
	ctx := context.Background()
	c := NewLRU(10, time.Hour)

	in := []byte("abc")
	require.NoError(t, c.Set(ctx, "k", in, 0))
	in[0] = 'z'

	out, ok, _ := c.Get(ctx, "k")
	require.True(t, ok)
	assert.Equal(t, "abc", string(out))
	out[1] = 'z'

	again, _, _ := c.Get(ctx, "k")
	assert.Equal(t, "abc", string(again))
}

func TestLRU_EvictsLeastRecentlyUsed(t *testing.T) {
	ctx := context.Background()
	c := NewLRU(2, time.Hour)

	require.NoError(t, c.Set(ctx, "a", []byte("1"), 0))
	require.NoError(t, c.Set(ctx, "b", []byte("2"), 0))
	_, _, _ = c.Get(ctx, "a")
	require.NoError(t, c.Set(ctx, "c", []byte("3"), 0))

	_, ok, _ := c.Get(ctx, "b")
	assert.False(t, ok)
	_, ok, _ = c.Get(ctx, "a")
	assert.True(t, ok)
}

func TestLRU_ConcurrentAccess(t *testing.T) {
	ctx := context.Background()
	c := NewLRU(100, time.Hour)

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			key := fmt.Sprintf("k%d", i)
			for j := 0; j < 50; j++ {
				_ = c.Set(ctx, key, []byte{byte(j)}, time.Minute)
				_, _, _ = c.Get(ctx, key)
			}
		}(i)
	}
	wg.Wait()
	assert.Equal(t, 8, c.Len())
}
