package redis

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

var client *redis.Client

// SetClient 设置 Redis 客户端（由 internal/initial 调用）
func SetClient(c *redis.Client) {
	client = c
}

// Close 关闭 Redis 连接
func Close() error {
	if client == nil {
		return nil
	}
	return client.Close()
}

// IsConnected 检查 Redis 是否已连接
func IsConnected() bool {
	return client != nil
}

// checkClient 检查客户端是否可用
func checkClient() error {
	if client == nil {
		return fmt.Errorf("Redis 未连接")
	}
	return nil
}

// IsNil 判断是否为 key 不存在
func IsNil(err error) bool {
	return err == redis.Nil
}

// Get 获取字符串值
func Get(ctx context.Context, key string) (string, error) {
	if err := checkClient(); err != nil {
		return "", err
	}
	return client.Get(ctx, key).Result()
}

// Del 删除 key
func Del(ctx context.Context, keys ...string) (int64, error) {
	if err := checkClient(); err != nil {
		return 0, err
	}
	if len(keys) == 0 {
		return 0, nil
	}
	return client.Del(ctx, keys...).Result()
}

// SMembers 获取集合所有元素
func SMembers(ctx context.Context, key string) ([]string, error) {
	if err := checkClient(); err != nil {
		return nil, err
	}
	return client.SMembers(ctx, key).Result()
}

// SetIndexed 写入值并把 key 记入索引集合，索引比值多保留一个周期
func SetIndexed(ctx context.Context, indexKey, key string, value interface{}, expiration time.Duration) error {
	if err := checkClient(); err != nil {
		return err
	}
	pipe := client.TxPipeline()
	pipe.Set(ctx, key, value, expiration)
	pipe.SAdd(ctx, indexKey, key)
	pipe.Expire(ctx, indexKey, 2*expiration)
	_, err := pipe.Exec(ctx)
	return err
}
