package cache

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
)

const DefaultScoreTTL = 6 * time.Hour

// RedisScoreCache keeps one hash per customer, keyed by evaluation day and
// history version, so a single DEL drops every cached entry of a customer.
type RedisScoreCache struct {
	client *redis.Client
	ttl    time.Duration
}

func NewRedisScoreCache(client *redis.Client, ttl time.Duration) *RedisScoreCache {
	if ttl <= 0 {
		ttl = DefaultScoreTTL
	}
	return &RedisScoreCache{client: client, ttl: ttl}
}

func scoreKey(customerID int64) string {
	return fmt.Sprintf("credit_score:%d", customerID)
}

func scoreField(day time.Time, version string) string {
	return day.Format(time.DateOnly) + ":" + version
}

func (c *RedisScoreCache) GetScore(ctx context.Context, customerID int64, day time.Time, version string) (int, bool) {
	val, err := c.client.HGet(ctx, scoreKey(customerID), scoreField(day, version)).Result()
	if err != nil {
		return 0, false
	}
	score, err := strconv.Atoi(val)
	if err != nil {
		return 0, false
	}
	return score, true
}

func (c *RedisScoreCache) SetScore(ctx context.Context, customerID int64, day time.Time, version string, score int) error {
	key := scoreKey(customerID)
	pipe := c.client.TxPipeline()
	pipe.HSet(ctx, key, scoreField(day, version), score)
	pipe.Expire(ctx, key, c.ttl)
	_, err := pipe.Exec(ctx)
	return err
}

func (c *RedisScoreCache) Invalidate(ctx context.Context, customerIDs ...int64) error {
	if len(customerIDs) == 0 {
		return nil
	}
	keys := make([]string, 0, len(customerIDs))
	for _, id := range customerIDs {
		keys = append(keys, scoreKey(id))
	}
	return c.client.Del(ctx, keys...).Err()
}
