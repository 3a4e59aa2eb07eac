package service

import (
	"context"
	"time"

	"SchoolLink/internal/modules/notification/domain/entity"
	"SchoolLink/internal/modules/notification/domain/repository"
	"SchoolLink/pkg/zlog"

	"go.uber.org/zap"
)

type SweepStats struct {
	Scanned     int
	Promoted    int
	Redelivered int
}

// PendingSweeper 补偿提交后步骤没跑完的通知：站内信直接推进，渠道投递重新转发
type PendingSweeper interface {
	Sweep(ctx context.Context) (SweepStats, error)
}

type pendingSweeperImpl struct {
	notificationRepo repository.NotificationRepository
	tracker          StatusTracker
	channel          ChannelDelivery
	grace            time.Duration
	batch            int
	now              func() time.Time
}

func NewPendingSweeper(notificationRepo repository.NotificationRepository, tracker StatusTracker, channel ChannelDelivery, grace time.Duration, batch int) PendingSweeper {
	return &pendingSweeperImpl{
		notificationRepo: notificationRepo,
		tracker:          tracker,
		channel:          channel,
		grace:            grace,
		batch:            batch,
		now:              time.Now,
	}
}

func (s *pendingSweeperImpl) Sweep(ctx context.Context) (SweepStats, error) {
	var stats SweepStats
	rows, err := s.notificationRepo.ListPendingBefore(ctx, s.now().Add(-s.grace), s.batch)
	if err != nil {
		zlog.Error("sweeper: list pending failed", zap.Error(err))
		return stats, err
	}
	for i := range rows {
		if ctx.Err() != nil {
			return stats, ctx.Err()
		}
		n := &rows[i]
		stats.Scanned++
		if n.DeliveryMode == entity.ModeInApp {
			if _, err := s.tracker.MarkSent(ctx, n.TenantId, n.NotificationId, ""); err != nil {
				zlog.Warn("sweeper: promote in-app failed", zap.String("notification_id", n.NotificationId), zap.Error(err))
				continue
			}
			stats.Promoted++
			continue
		}
		if s.channel == nil {
			continue
		}
		if _, err := s.channel.Deliver(ctx, n); err != nil {
			zlog.Warn("sweeper: redeliver failed", zap.String("notification_id", n.NotificationId), zap.Error(err))
			continue
		}
		stats.Redelivered++
	}
	if stats.Scanned > 0 {
		zlog.Info("sweeper: pending notifications processed",
			zap.Int("scanned", stats.Scanned),
			zap.Int("promoted", stats.Promoted),
			zap.Int("redelivered", stats.Redelivered))
	}
	return stats, nil
}
