package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"SchoolLink/internal/modules/notification/domain/repository"
	"SchoolLink/pkg/redis"
)

const keyPrefix = "schoollink:notify"

type redisListCache struct {
	ttl time.Duration
}

// NewRedisListCache key 形如 schoollink:notify:<tenant>:<shape>，每个学校一个索引集合用于整体失效
func NewRedisListCache(ttl time.Duration) repository.ListCache {
	if ttl <= 0 {
		ttl = 15 * time.Second
	}
	return &redisListCache{ttl: ttl}
}

func dataKey(tenantID, shape string) string {
	return fmt.Sprintf("%s:%s:%s", keyPrefix, tenantID, shape)
}

func indexKey(tenantID string) string {
	return fmt.Sprintf("%s:%s:__keys", keyPrefix, tenantID)
}

func (c *redisListCache) Get(ctx context.Context, tenantID, shape string, dest interface{}) (bool, error) {
	if tenantID == "" || !redis.IsConnected() {
		return false, nil
	}
	raw, err := redis.Get(ctx, dataKey(tenantID, shape))
	if err != nil {
		if redis.IsNil(err) {
			return false, nil
		}
		return false, err
	}
	if err := json.Unmarshal([]byte(raw), dest); err != nil {
		// 坏数据当作未命中，顺手删掉
		_, _ = redis.Del(ctx, dataKey(tenantID, shape))
		return false, nil
	}
	return true, nil
}

func (c *redisListCache) Set(ctx context.Context, tenantID, shape string, value interface{}) error {
	if tenantID == "" || !redis.IsConnected() {
		return nil
	}
	b, err := json.Marshal(value)
	if err != nil {
		return err
	}
	return redis.SetIndexed(ctx, indexKey(tenantID), dataKey(tenantID, shape), string(b), c.ttl)
}

func (c *redisListCache) Clear(ctx context.Context, tenantID string) error {
	if tenantID == "" || !redis.IsConnected() {
		return nil
	}
	keys, err := redis.SMembers(ctx, indexKey(tenantID))
	if err != nil && !redis.IsNil(err) {
		return err
	}
	keys = append(keys, indexKey(tenantID))
	_, err = redis.Del(ctx, keys...)
	return err
}
