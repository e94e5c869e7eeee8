package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	radix "github.com/mediocregopher/radix/v3"

	"trivia/internal/models"
)

const balanceKeyFormat = "trivia:balance:%s"

type RedisCache struct {
	client radix.Client
	ttl    time.Duration
}

func NewRedisCache(client radix.Client, ttl time.Duration) *RedisCache {
	return &RedisCache{client: client, ttl: ttl}
}

func NewRedisPool(addr string) (radix.Client, error) {
	return radix.NewPool("tcp", addr, 10)
}

func (c *RedisCache) Get(ctx context.Context, userID string) (models.Balance, bool, error) {
	key := fmt.Sprintf(balanceKeyFormat, userID)
	var raw string
	if err := c.client.Do(radix.Cmd(&raw, "GET", key)); err != nil {
		return models.Balance{}, false, err
	}
	if raw == "" {
		return models.Balance{}, false, nil
	}
	var balance models.Balance
	if err := json.Unmarshal([]byte(raw), &balance); err != nil {
		// Treat an unreadable entry as a miss and drop it.
		_ = c.client.Do(radix.Cmd(nil, "DEL", key))
		return models.Balance{}, false, nil
	}
	return balance, true, nil
}

func (c *RedisCache) Set(ctx context.Context, userID string, balance models.Balance) error {
	payload, err := json.Marshal(balance)
	if err != nil {
		return err
	}
	key := fmt.Sprintf(balanceKeyFormat, userID)
	seconds := int(c.ttl / time.Second)
	if seconds < 1 {
		seconds = 1
	}
	return c.client.Do(radix.FlatCmd(nil, "SETEX", key, seconds, string(payload)))
}

func (c *RedisCache) Invalidate(ctx context.Context, userID string) error {
	key := fmt.Sprintf(balanceKeyFormat, userID)
	return c.client.Do(radix.Cmd(nil, "DEL", key))
}
