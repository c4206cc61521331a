package cache

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"github.com/sells-group/fsbo/internal/config"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

func newTestCache(t *testing.T) *Cache {
	t.Helper()
	c := New(config.CacheConfig{LocalMaxSize: 100, TTLMinutes: 5})
	t.Cleanup(c.Stop)
	return c
}

type estimate struct {
	Value float64 `json:"value"`
}

func TestCache_SetGetDelete(t *testing.T) {
	c := newTestCache(t)

	_, ok := c.Get("missing")
	assert.False(t, ok)

	c.Set("k", []byte("v"))
	got, ok := c.Get("k")
	require.True(t, ok)
	assert.Equal(t, "v", string(got))

	c.Delete("k")
	_, ok = c.Get("k")
	assert.False(t, ok)
}

func TestCache_Defaults(t *testing.T) {
	c := New(config.CacheConfig{})
	defer c.Stop()
	assert.Equal(t, "24h0m0s", c.TTL().String())
}

func TestCache_JSON(t *testing.T) {
	c := newTestCache(t)

	SetJSON(c, "zillow", estimate{Value: 512000})
	got, ok := GetJSON[estimate](c, "zillow")
	require.True(t, ok)
	assert.InDelta(t, 512000, got.Value, 0.001)

	c.Set("corrupt", []byte("{not json"))
	_, ok = GetJSON[estimate](c, "corrupt")
	assert.False(t, ok)
	_, ok = c.Get("corrupt")
	assert.False(t, ok, "undecodable entries are evicted")
}

func TestFetch(t *testing.T) {
	c := newTestCache(t)
	calls := 0
	fn := func(_ context.Context) (estimate, error) {
		calls++
		return estimate{Value: 400000}, nil
	}

	v, err := Fetch(context.Background(), c, "attom:1", fn)
	require.NoError(t, err)
	assert.InDelta(t, 400000, v.Value, 0.001)

	v, err = Fetch(context.Background(), c, "attom:1", fn)
	require.NoError(t, err)
	assert.InDelta(t, 400000, v.Value, 0.001)
	assert.Equal(t, 1, calls, "second fetch is served from cache")
}

func TestFetch_ErrorNotCached(t *testing.T) {
	c := newTestCache(t)
	boom := errors.New("provider down")

	_, err := Fetch(context.Background(), c, "k", func(_ context.Context) (estimate, error) {
		return estimate{}, boom
	})
	assert.ErrorIs(t, err, boom)
	_, ok := c.Get("k")
	assert.False(t, ok)
}

func TestFetch_NilCache(t *testing.T) {
	calls := 0
	for i := 0; i < 2; i++ {
		_, err := Fetch(context.Background(), nil, "k", func(_ context.Context) (int, error) {
			calls++
			return 1, nil
		})
		require.NoError(t, err)
	}
	assert.Equal(t, 2, calls)
}

func TestCache_UnreachableMemcachedIsAMiss(t *testing.T) {
	c := New(config.CacheConfig{LocalMaxSize: 10, TTLMinutes: 1, MemcachedAddr: "127.0.0.1:1"})
	defer c.Stop()

	_, ok := c.Get("nothing")
	assert.False(t, ok)

	c.Set("k", []byte("v"))
	got, ok := c.Get("k")
	require.True(t, ok, "local tier still serves")
	assert.Equal(t, "v", string(got))
	c.Delete("k")
}

func TestKey(t *testing.T) {
	a := Key("valuation", "zillow", "12 Oak St, Austin, TX")
	b := Key("valuation", "ZILLOW", "  12 oak st, austin, tx ")
	assert.Equal(t, a, b, "keys are case and whitespace insensitive")
	assert.NotEqual(t, a, Key("valuation", "attom", "12 Oak St, Austin, TX"))
	assert.NotEqual(t, Key("x", "ab", "c"), Key("x", "a", "bc"))
	assert.Len(t, a, len("valuation:")+32)
}
