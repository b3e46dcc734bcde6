// Package rankingcache caches consensus reads in Redis.
package rankingcache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"time"

	rankingdomain "github.com/Black-And-White-Club/consensus-rank/app/modules/ranking/domain"
	"github.com/redis/go-redis/v9"
)

const defaultTTL = 10 * time.Minute

// RedisCache stores each (type, day) consensus in one hash keyed by limit so
// a single DEL invalidates every cached page of that day. A companion counter
// per (type, day) is bumped on every invalidation; writes carry the counter
// value seen before the database read and are dropped when it moved.
type RedisCache struct {
	client redis.UniversalClient
	prefix string
	ttl    time.Duration
}

// generationTTL outlives any read in flight and the day it belongs to.
const generationTTL = 48 * time.Hour

// NewRedisCache creates a cache. ttl <= 0 uses the default.
func NewRedisCache(client redis.UniversalClient, prefix string, ttl time.Duration) *RedisCache {
	if ttl <= 0 {
		ttl = defaultTTL
	}
	if prefix == "" {
		prefix = "consensus"
	}
	return &RedisCache{client: client, prefix: prefix, ttl: ttl}
}

func (c *RedisCache) key(rankingType rankingdomain.RankingType, date time.Time) string {
	return fmt.Sprintf("%s:%d:%s", c.prefix, rankingType, rankingdomain.Day(date).Format(time.DateOnly))
}

func (c *RedisCache) generationKey(rankingType rankingdomain.RankingType, date time.Time) string {
	return c.key(rankingType, date) + ":gen"
}

// Get returns the cached list, if any.
func (c *RedisCache) Get(ctx context.Context, rankingType rankingdomain.RankingType, date time.Time, limit int) ([]rankingdomain.ConsensusEntry, bool, error) {
	raw, err := c.client.HGet(ctx, c.key(rankingType, date), strconv.Itoa(limit)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("rankingcache.Get: %w", err)
	}
	var entries []rankingdomain.ConsensusEntry
	if err := json.Unmarshal(raw, &entries); err != nil {
		return nil, false, fmt.Errorf("rankingcache.Get: decode: %w", err)
	}
	if entries == nil {
		entries = []rankingdomain.ConsensusEntry{}
	}
	return entries, true, nil
}

// Generation returns the day's invalidation counter. A missing counter is 0.
func (c *RedisCache) Generation(ctx context.Context, rankingType rankingdomain.RankingType, date time.Time) (int64, error) {
	gen, err := readGeneration(ctx, c.client, c.generationKey(rankingType, date))
	if err != nil {
		return 0, fmt.Errorf("rankingcache.Generation: %w", err)
	}
	return gen, nil
}

type getter interface {
	Get(ctx context.Context, key string) *redis.StringCmd
}

func readGeneration(ctx context.Context, cmd getter, key string) (int64, error) {
	gen, err := cmd.Get(ctx, key).Int64()
	if errors.Is(err, redis.Nil) {
		return 0, nil
	}
	return gen, err
}

// Set stores a list and refreshes the day's expiry, unless the day was
// invalidated since generation was read. A skipped write is not an error.
func (c *RedisCache) Set(ctx context.Context, rankingType rankingdomain.RankingType, date time.Time, limit int, generation int64, entries []rankingdomain.ConsensusEntry) error {
	raw, err := json.Marshal(entries)
	if err != nil {
		return fmt.Errorf("rankingcache.Set: encode: %w", err)
	}
	key := c.key(rankingType, date)
	genKey := c.generationKey(rankingType, date)

	err = c.client.Watch(ctx, func(tx *redis.Tx) error {
		current, err := readGeneration(ctx, tx, genKey)
		if err != nil {
			return err
		}
		if current != generation {
			return errStale
		}
		_, err = tx.TxPipelined(ctx, func(p redis.Pipeliner) error {
			p.HSet(ctx, key, strconv.Itoa(limit), raw)
			p.Expire(ctx, key, c.ttl)
			return nil
		})
		return err
	}, genKey)
	if errors.Is(err, errStale) || errors.Is(err, redis.TxFailedErr) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("rankingcache.Set: %w", err)
	}
	return nil
}

var errStale = errors.New("generation moved")

// Invalidate bumps the day's generation and drops every cached list of it.
func (c *RedisCache) Invalidate(ctx context.Context, rankingType rankingdomain.RankingType, date time.Time) error {
	genKey := c.generationKey(rankingType, date)
	_, err := c.client.TxPipelined(ctx, func(p redis.Pipeliner) error {
		p.Incr(ctx, genKey)
		p.Expire(ctx, genKey, generationTTL)
		p.Del(ctx, c.key(rankingType, date))
		return nil
	})
	if err != nil {
		return fmt.Errorf("rankingcache.Invalidate: %w", err)
	}
	return nil
}

// HealthCheck pings Redis.
func (c *RedisCache) HealthCheck(ctx context.Context) error {
	return c.client.Ping(ctx).Err()
}
