// SPDX-FileCopyrightText: Winni Neessen <wn@neessen.dev>
//
// SPDX-License-Identifier: MIT

package geocode

import (
	"container/list"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"sync"
	"time"

	"github.com/TomiHiltunen/geohash-golang"
	"github.com/redis/go-redis/v9"

	"github.com/wneessen/geonear/internal/geo"
)

const (
	// DefaultCapacity is the number of entries a MemoryCache holds if no capacity is given.
	DefaultCapacity = 10000

	// keyAreaPrecision is the geohash length prefixed to cache keys so entries of an area share
	// a common key prefix.
	keyAreaPrecision = 6

	// DefaultRedisPrefix is prepended to all keys written to Redis.
	DefaultRedisPrefix = "geonear:"
)

// Cache stores geocoding results by key.
type Cache interface {
	Get(ctx context.Context, key string) (Result, bool, error)
	Set(ctx context.Context, key string, result Result, ttl time.Duration) error
}

// Stats receives cache lookup outcomes.
type Stats interface {
	CacheHit()
	CacheMiss()
}

// CachedGeocoder caches the places a Geocoder returns per exact query coordinate, so a cached
// answer is always the answer of the wrapped Geocoder.
type CachedGeocoder struct {
	coder Geocoder
	cache Cache
	ttl   time.Duration
	stats Stats
}

// NewCachedGeocoder wraps coder with the given cache.
func NewCachedGeocoder(coder Geocoder, cache Cache, ttl time.Duration) *CachedGeocoder {
	return &CachedGeocoder{
		coder: coder,
		cache: cache,
		ttl:   ttl,
	}
}

// WithStats sets the receiver of hit and miss events and returns the CachedGeocoder.
func (c *CachedGeocoder) WithStats(stats Stats) *CachedGeocoder {
	c.stats = stats
	return c
}

func (c *CachedGeocoder) Name() string {
	return "geocoder cache using " + c.coder.Name()
}

// Reverse returns the cached place for coords or asks the wrapped Geocoder. Errors are never
// cached. A failing cache is treated as a miss.
func (c *CachedGeocoder) Reverse(ctx context.Context, coords geo.Coordinate) (Result, error) {
	key := c.Key(coords)

	result, ok, err := c.cache.Get(ctx, key)
	if err == nil && ok {
		c.hit()
		// Redis entries do not keep the distance
		result.DistanceKm = coords.Distance(result.Place())
		result.CacheHit = true
		return result, nil
	}
	c.miss()

	result, err = c.coder.Reverse(ctx, coords)
	if err != nil {
		return result, err
	}
	// Write failures only cost a later lookup
	_ = c.cache.Set(ctx, key, result, c.ttl)

	return result, nil
}

// Key returns the cache key for coords: the provider name, the geohash of the surrounding area
// and the exact coordinate.
func (c *CachedGeocoder) Key(coords geo.Coordinate) string {
	return c.coder.Name() + ":" + geohash.EncodeWithPrecision(coords.Lat, coords.Lon, keyAreaPrecision) +
		":" + strconv.FormatFloat(coords.Lat, 'g', -1, 64) + "," + strconv.FormatFloat(coords.Lon, 'g', -1, 64)
}

func (c *CachedGeocoder) hit() {
	if c.stats != nil {
		c.stats.CacheHit()
	}
}

func (c *CachedGeocoder) miss() {
	if c.stats != nil {
		c.stats.CacheMiss()
	}
}

type cacheEntry struct {
	Key    string
	Result Result
	Expiry time.Time
}

// MemoryCache is an in-process Cache holding up to a fixed number of entries. When full, the
// least recently used entry is evicted. Expired entries are ignored on lookup and removed by Purge.
type MemoryCache struct {
	mu       sync.Mutex
	capacity int
	order    *list.List
	cache    map[string]*list.Element
}

// NewMemoryCache returns a MemoryCache for up to capacity entries. A capacity below 1 is
// replaced by DefaultCapacity.
func NewMemoryCache(capacity int) *MemoryCache {
	if capacity < 1 {
		capacity = DefaultCapacity
	}
	return &MemoryCache{
		capacity: capacity,
		order:    list.New(),
		cache:    make(map[string]*list.Element),
	}
}

func (c *MemoryCache) Get(_ context.Context, key string) (Result, bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	elem, ok := c.cache[key]
	if !ok {
		return Result{}, false, nil
	}
	entry := elem.Value.(*cacheEntry)
	if !time.Now().Before(entry.Expiry) {
		return Result{}, false, nil
	}
	c.order.MoveToFront(elem)
	return entry.Result, true, nil
}

func (c *MemoryCache) Set(_ context.Context, key string, result Result, ttl time.Duration) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	expiry := time.Now().Add(ttl)
	if elem, ok := c.cache[key]; ok {
		entry := elem.Value.(*cacheEntry)
		entry.Result, entry.Expiry = result, expiry
		c.order.MoveToFront(elem)
		return nil
	}
	c.cache[key] = c.order.PushFront(&cacheEntry{Key: key, Result: result, Expiry: expiry})
	for c.order.Len() > c.capacity {
		c.remove(c.order.Back())
	}
	return nil
}

// Purge removes all expired entries and returns how many were removed.
func (c *MemoryCache) Purge() int {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := time.Now()
	removed := 0
	for elem := c.order.Front(); elem != nil; {
		next := elem.Next()
		if !now.Before(elem.Value.(*cacheEntry).Expiry) {
			c.remove(elem)
			removed++
		}
		elem = next
	}
	return removed
}

// Len returns the number of stored entries, including expired ones not purged yet.
func (c *MemoryCache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.order.Len()
}

func (c *MemoryCache) remove(elem *list.Element) {
	c.order.Remove(elem)
	delete(c.cache, elem.Value.(*cacheEntry).Key)
}

// redisEntry is the JSON document stored in Redis. Unlike Result it keeps the place coordinates.
type redisEntry struct {
	State     string  `json:"state"`
	District  string  `json:"district"`
	Location  string  `json:"location"`
	Latitude  float64 `json:"lat"`
	Longitude float64 `json:"lon"`
}

// RedisCache stores results as JSON documents in Redis and leaves expiry to the server.
type RedisCache struct {
	client redis.UniversalClient
	prefix string
}

func NewRedisCache(client redis.UniversalClient, prefix string) *RedisCache {
	return &RedisCache{client: client, prefix: prefix}
}

func (c *RedisCache) Get(ctx context.Context, key string) (Result, bool, error) {
	data, err := c.client.Get(ctx, c.prefix+key).Bytes()
	if errors.Is(err, redis.Nil) {
		return Result{}, false, nil
	}
	if err != nil {
		return Result{}, false, fmt.Errorf("failed to read cache entry: %w", err)
	}

	var entry redisEntry
	if err = json.Unmarshal(data, &entry); err != nil {
		return Result{}, false, fmt.Errorf("failed to decode cache entry: %w", err)
	}
	return Result{
		State:     entry.State,
		District:  entry.District,
		Location:  entry.Location,
		Latitude:  entry.Latitude,
		Longitude: entry.Longitude,
	}, true, nil
}

func (c *RedisCache) Set(ctx context.Context, key string, result Result, ttl time.Duration) error {
	data, err := json.Marshal(redisEntry{
		State:     result.State,
		District:  result.District,
		Location:  result.Location,
		Latitude:  result.Latitude,
		Longitude: result.Longitude,
	})
	if err != nil {
		return fmt.Errorf("failed to encode cache entry: %w", err)
	}
	if err = c.client.Set(ctx, c.prefix+key, data, ttl).Err(); err != nil {
		return fmt.Errorf("failed to write cache entry: %w", err)
	}
	return nil
}
