// Package cache is a two-level provider response cache: an in-process LRU
// in front of an optional shared memcached.
package cache

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"strings"
	"time"

	"github.com/bradfitz/gomemcache/memcache"
	"github.com/karlseguin/ccache/v3"
	"go.uber.org/zap"

	"github.com/sells-group/fsbo/internal/config"
)

// Cache stores raw bytes under string keys.
type Cache struct {
	local  *ccache.Cache[[]byte]
	remote *memcache.Client
	ttl    time.Duration
}

// New builds a Cache. Memcached is used only when cfg.MemcachedAddr is set.
func New(cfg config.CacheConfig) *Cache {
	size := cfg.LocalMaxSize
	if size <= 0 {
		size = 5000
	}
	ttl := time.Duration(cfg.TTLMinutes) * time.Minute
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}

	c := &Cache{
		local: ccache.New(ccache.Configure[[]byte]().MaxSize(size)),
		ttl:   ttl,
	}
	if cfg.MemcachedAddr != "" {
		c.remote = memcache.New(strings.Split(cfg.MemcachedAddr, ",")...)
		zap.L().Info("cache: memcached enabled", zap.String("addr", cfg.MemcachedAddr))
	}
	return c
}

// TTL returns the entry lifetime.
func (c *Cache) TTL() time.Duration { return c.ttl }

// Get returns the value for key, checking the local tier first. A remote
// hit is copied into the local tier.
func (c *Cache) Get(key string) ([]byte, bool) {
	if item := c.local.Get(key); item != nil && !item.Expired() {
		return item.Value(), true
	}
	if c.remote == nil {
		return nil, false
	}

	it, err := c.remote.Get(key)
	if err != nil {
		if !errors.Is(err, memcache.ErrCacheMiss) {
			zap.L().Debug("cache: memcached get failed", zap.String("key", key), zap.Error(err))
		}
		return nil, false
	}
	c.local.Set(key, it.Value, c.ttl)
	return it.Value, true
}

// Set stores value in both tiers. Remote failures are logged, not returned.
func (c *Cache) Set(key string, value []byte) {
	c.local.Set(key, value, c.ttl)
	if c.remote == nil {
		return
	}
	err := c.remote.Set(&memcache.Item{
		Key:        key,
		Value:      value,
		Expiration: int32(c.ttl / time.Second),
	})
	if err != nil {
		zap.L().Debug("cache: memcached set failed", zap.String("key", key), zap.Error(err))
	}
}

// Delete removes key from both tiers.
func (c *Cache) Delete(key string) {
	c.local.Delete(key)
	if c.remote == nil {
		return
	}
	if err := c.remote.Delete(key); err != nil && !errors.Is(err, memcache.ErrCacheMiss) {
		zap.L().Debug("cache: memcached delete failed", zap.String("key", key), zap.Error(err))
	}
}

// Stop releases the local tier's background worker.
func (c *Cache) Stop() {
	c.local.Stop()
}

// Key builds a memcached-safe key from a namespace and free-form parts such
// as a provider name and a normalized address.
func Key(namespace string, parts ...string) string {
	h := sha256.New()
	for _, p := range parts {
		h.Write([]byte(strings.ToLower(strings.TrimSpace(p))))
		h.Write([]byte{0})
	}
	return namespace + ":" + hex.EncodeToString(h.Sum(nil))[:32]
}

// GetJSON decodes a cached JSON value into T.
func GetJSON[T any](c *Cache, key string) (T, bool) {
	var v T
	data, ok := c.Get(key)
	if !ok {
		return v, false
	}
	if err := json.Unmarshal(data, &v); err != nil {
		c.Delete(key)
		return v, false
	}
	return v, true
}

// SetJSON stores v as JSON.
func SetJSON(c *Cache, key string, v any) {
	data, err := json.Marshal(v)
	if err != nil {
		zap.L().Warn("cache: marshal failed", zap.String("key", key), zap.Error(err))
		return
	}
	c.Set(key, data)
}

// Fetch returns the cached value for key or computes, stores and returns it.
// Errors from fn are returned and nothing is cached. A nil Cache always calls fn.
func Fetch[T any](ctx context.Context, c *Cache, key string, fn func(ctx context.Context) (T, error)) (T, error) {
	if c == nil {
		return fn(ctx)
	}
	if v, ok := GetJSON[T](c, key); ok {
		return v, nil
	}
	v, err := fn(ctx)
	if err != nil {
		return v, err
	}
	SetJSON(c, key, v)
	return v, nil
}
