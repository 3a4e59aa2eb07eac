package initial

import (
	"context"
	"fmt"
	"time"

	"SchoolLink/internal/config"
	"SchoolLink/pkg/redis"
	"SchoolLink/pkg/zlog"

	goredis "github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

const redisPingTimeout = 5 * time.Second

// 通知列表缓存是可选的，连不上 Redis 时服务照常运行，只是每次都查库
func init() {
	client, err := dialRedis(config.GetConfig().RedisConfig)
	if err != nil {
		zlog.Warn("redis unavailable, list cache disabled", zap.Error(err))
		return
	}
	if client == nil {
		zlog.Info("redis not configured, list cache disabled")
		return
	}
	redis.SetClient(client)
}

// dialRedis 未配置主机时返回 (nil, nil)
func dialRedis(rc config.RedisConfig) (*goredis.Client, error) {
	if rc.Host == "" {
		return nil, nil
	}
	port := rc.Port
	if port == 0 {
		port = 6379
	}
	addr := fmt.Sprintf("%s:%d", rc.Host, port)

	client := goredis.NewClient(&goredis.Options{
		Addr:         addr,
		Password:     rc.Password,
		DB:           rc.DB,
		PoolSize:     rc.PoolSize,
		MinIdleConns: rc.MinIdleConns,
	})
	ctx, cancel := context.WithTimeout(context.Background(), redisPingTimeout)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("ping %s: %w", addr, err)
	}
	zlog.Info("redis connected", zap.String("addr", addr), zap.Int("db", rc.DB))
	return client, nil
}
