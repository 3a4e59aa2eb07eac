package service

import (
	"context"
	"time"

	"SchoolLink/internal/modules/notification/domain/entity"
	"SchoolLink/internal/modules/notification/domain/repository"
	"SchoolLink/pkg/zlog"

	"go.uber.org/zap"
)

const broadcastTimeout = 5 * time.Second

// broadcastAsync 实时通知不影响主流程，失败只记日志
func broadcastAsync(ctx context.Context, b repository.Broadcaster, ev entity.RealtimeEvent) {
	if b == nil || len(ev.AccountIds) == 0 {
		return
	}
	if ev.At.IsZero() {
		ev.At = time.Now()
	}
	bctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), broadcastTimeout)
	go func() {
		defer cancel()
		defer func() {
			if r := recover(); r != nil {
				zlog.Error("realtime: broadcast panic", zap.Any("panic", r), zap.String("kind", ev.Kind))
			}
		}()
		if err := b.Broadcast(bctx, ev); err != nil {
			zlog.Warn("realtime: broadcast failed",
				zap.String("kind", ev.Kind),
				zap.String("tenant_id", ev.TenantId),
				zap.String("notification_id", ev.NotificationId),
				zap.Error(err))
		}
	}()
}

// clearCache 写路径之后清掉该校的读缓存
func clearCache(ctx context.Context, c repository.ListCache, tenantID string) {
	if c == nil {
		return
	}
	if err := c.Clear(ctx, tenantID); err != nil {
		zlog.Warn("cache: clear tenant failed", zap.String("tenant_id", tenantID), zap.Error(err))
	}
}
