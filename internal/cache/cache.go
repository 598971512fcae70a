/*
This file contains the market cache. Raw market records are cached rather than pools because
days to maturity, prices and tags depend on the time of the request.

Two backends are provided: Redis for a shared cache across replicas, and an in-process
ristretto cache for single instances and the offline CLI.
*/

package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/dgraph-io/ristretto"
	"github.com/go-redis/redis/v8"

	"github.com/yield-navigator/pyn/internal/logger"
	"github.com/yield-navigator/pyn/internal/types"
)

var cacheLogger = logger.GetForComponent("market_cache")

var ErrInvalidTTL = errors.New("cache TTL must be positive")

// MarketCache stores the raw market list of one chain.
type MarketCache interface {
	// GetMarkets returns the cached markets and whether the lookup was a hit.
	GetMarkets(ctx context.Context) ([]types.RawMarket, bool, error)
	SetMarkets(ctx context.Context, markets []types.RawMarket, ttl time.Duration) error
	Invalidate(ctx context.Context) error
}

// MarketsKey returns the cache key for a chain's market list.
func MarketsKey(chainID int) string {
	return fmt.Sprintf("navigator:markets:%d", chainID)
}

// RedisMarketCache keeps the market list as a JSON string under MarketsKey.
type RedisMarketCache struct {
	client *redis.Client
	key    string
}

// NewRedisClient connects to addr and pings it before returning.
func NewRedisClient(ctx context.Context, addr, password string) (*redis.Client, error) {
	rdb := redis.NewClient(&redis.Options{
		Addr:         addr,
		Password:     password,
		PoolSize:     10,
		DialTimeout:  5 * time.Second,
		ReadTimeout:  3 * time.Second,
		WriteTimeout: 3 * time.Second,
		IdleTimeout:  5 * time.Minute,
	})

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := rdb.Ping(pingCtx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("redis connection failed: %w", err)
	}
	return rdb, nil
}

// NewRedisMarketCache wraps an existing client.
func NewRedisMarketCache(client *redis.Client, chainID int) *RedisMarketCache {
	return &RedisMarketCache{client: client, key: MarketsKey(chainID)}
}

func (c *RedisMarketCache) GetMarkets(ctx context.Context) ([]types.RawMarket, bool, error) {
	val, err := c.client.Get(ctx, c.key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("redis get %s: %w", c.key, err)
	}

	var markets []types.RawMarket
	if err := json.Unmarshal(val, &markets); err != nil {
		// A corrupt entry is treated as a miss so the caller refetches and overwrites it
		cacheLogger.Warn().Err(err).Str("key", c.key).Msg("Discarding undecodable cache entry")
		return nil, false, nil
	}
	return markets, true, nil
}

func (c *RedisMarketCache) SetMarkets(ctx context.Context, markets []types.RawMarket, ttl time.Duration) error {
	if ttl <= 0 {
		return ErrInvalidTTL
	}
	payload, err := json.Marshal(markets)
	if err != nil {
		return fmt.Errorf("encode markets: %w", err)
	}
	if err := c.client.Set(ctx, c.key, payload, ttl).Err(); err != nil {
		return fmt.Errorf("redis set %s: %w", c.key, err)
	}
	return nil
}

func (c *RedisMarketCache) Invalidate(ctx context.Context) error {
	if err := c.client.Del(ctx, c.key).Err(); err != nil {
		return fmt.Errorf("redis delete %s: %w", c.key, err)
	}
	return nil
}

// MemoryMarketCache is an in-process cache backed by ristretto.
type MemoryMarketCache struct {
	store *ristretto.Cache
	key   string
}

// NewMemoryMarketCache creates a small process-local cache for one chain.
func NewMemoryMarketCache(chainID int) (*MemoryMarketCache, error) {
	store, err := ristretto.NewCache(&ristretto.Config{
		NumCounters: 1_000,
		MaxCost:     64,
		BufferItems: 64,
	})
	if err != nil {
		return nil, fmt.Errorf("create memory cache: %w", err)
	}
	return &MemoryMarketCache{store: store, key: MarketsKey(chainID)}, nil
}

func (c *MemoryMarketCache) GetMarkets(_ context.Context) ([]types.RawMarket, bool, error) {
	v, ok := c.store.Get(c.key)
	if !ok {
		return nil, false, nil
	}
	markets, ok := v.([]types.RawMarket)
	if !ok {
		return nil, false, nil
	}
	// Copy out so callers cannot mutate the cached slice
	out := make([]types.RawMarket, len(markets))
	copy(out, markets)
	return out, true, nil
}

func (c *MemoryMarketCache) SetMarkets(_ context.Context, markets []types.RawMarket, ttl time.Duration) error {
	if ttl <= 0 {
		return ErrInvalidTTL
	}
	stored := make([]types.RawMarket, len(markets))
	copy(stored, markets)
	if !c.store.SetWithTTL(c.key, stored, 1, ttl) {
		cacheLogger.Warn().Str("key", c.key).Msg("Memory cache dropped the market list")
	}
	// Sets are buffered; wait so the next Get observes this write
	c.store.Wait()
	return nil
}

func (c *MemoryMarketCache) Invalidate(_ context.Context) error {
	c.store.Del(c.key)
	c.store.Wait()
	return nil
}

// Close releases the ristretto goroutines.
func (c *MemoryMarketCache) Close() {
	c.store.Close()
}
