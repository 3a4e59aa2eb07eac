package service

import (
	"context"
	"errors"

	"SchoolLink/internal/modules/notification/domain/entity"
	"SchoolLink/internal/modules/notification/domain/repository"
	schoolService "SchoolLink/internal/modules/school/application/service"
	"SchoolLink/pkg/zlog"

	"go.uber.org/zap"
)

const (
	reasonNoPhone         = "no_phone"
	reasonChannelRejected = "channel_rejected"
)

// ChannelDeliveryStats 一轮渠道投递的结果
type ChannelDeliveryStats struct {
	Relayed int
	Failed  int
	Pending int
}

// ChannelDelivery 短信 / 即时通讯渠道投递，只处理仍为 pending 的接收人，可以重复调用
type ChannelDelivery interface {
	Deliver(ctx context.Context, n *entity.Notification) (ChannelDeliveryStats, error)
}

type channelDeliveryImpl struct {
	recipientRepo repository.RecipientRepository
	relationships schoolService.RelationshipService
	relay         repository.ChannelRelay
	tracker       StatusTracker
}

func NewChannelDelivery(recipientRepo repository.RecipientRepository, relationships schoolService.RelationshipService, relay repository.ChannelRelay, tracker StatusTracker) ChannelDelivery {
	return &channelDeliveryImpl{
		recipientRepo: recipientRepo,
		relationships: relationships,
		relay:         relay,
		tracker:       tracker,
	}
}

func (c *channelDeliveryImpl) Deliver(ctx context.Context, n *entity.Notification) (ChannelDeliveryStats, error) {
	var stats ChannelDeliveryStats
	if n.DeliveryMode == entity.ModeInApp {
		return stats, nil
	}

	rows, err := c.recipientRepo.ListByNotification(ctx, n.TenantId, n.NotificationId)
	if err != nil {
		zlog.Error("channel: list recipients failed", zap.String("notification_id", n.NotificationId), zap.Error(err))
		return stats, err
	}
	pending := make([]entity.NotificationRecipient, 0, len(rows))
	ids := make([]string, 0, len(rows))
	for _, r := range rows {
		if r.TenantId == n.TenantId && r.DeliveryStatus == entity.DeliveryPending {
			pending = append(pending, r)
			ids = append(ids, r.RecipientId)
		}
	}
	if len(pending) == 0 {
		// 没有 pending 行时 MarkSent 不改任何行，只触发通知本身的状态推进
		if _, err := c.tracker.MarkSent(ctx, n.TenantId, n.NotificationId, ""); err != nil {
			return stats, err
		}
		return stats, nil
	}
	if c.relay == nil {
		zlog.Warn("channel: relay not configured, recipients stay pending",
			zap.String("notification_id", n.NotificationId),
			zap.String("mode", string(n.DeliveryMode)))
		stats.Pending = len(pending)
		return stats, nil
	}

	phones, err := c.relationships.ContactPhones(ctx, n.TenantId, ids)
	if err != nil {
		return stats, err
	}

	for _, r := range pending {
		phone := phones[r.RecipientId]
		if phone == "" {
			c.fail(ctx, n, r.RecipientId, reasonNoPhone)
			stats.Failed++
			continue
		}
		err := c.relay.Relay(ctx, repository.ChannelMessage{
			NotificationId: n.NotificationId,
			TenantId:       n.TenantId,
			RecipientId:    r.RecipientId,
			Phone:          phone,
			Mode:           n.DeliveryMode,
			Text:           n.Message,
		})
		switch {
		case err == nil:
			if _, err := c.tracker.MarkSent(ctx, n.TenantId, n.NotificationId, r.RecipientId); err != nil {
				zlog.Warn("channel: mark sent failed", zap.String("recipient_id", r.RecipientId), zap.Error(err))
			}
			stats.Relayed++
		case errors.Is(err, repository.ErrPermanentRejection):
			c.fail(ctx, n, r.RecipientId, reasonChannelRejected)
			stats.Failed++
		default:
			// 暂时性错误保持 pending，等补偿任务重试
			zlog.Warn("channel: relay failed, will retry",
				zap.String("notification_id", n.NotificationId),
				zap.String("recipient_id", r.RecipientId),
				zap.Error(err))
			stats.Pending++
		}
	}
	return stats, nil
}

func (c *channelDeliveryImpl) fail(ctx context.Context, n *entity.Notification, recipientID, reason string) {
	if _, err := c.tracker.MarkFailed(ctx, n.TenantId, n.NotificationId, recipientID, reason); err != nil {
		zlog.Warn("channel: mark failed failed", zap.String("recipient_id", recipientID), zap.Error(err))
	}
}
