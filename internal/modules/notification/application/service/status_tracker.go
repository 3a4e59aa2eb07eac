package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"SchoolLink/internal/modules/notification/application/dto/respond"
	"SchoolLink/internal/modules/notification/domain/entity"
	"SchoolLink/internal/modules/notification/domain/repository"
	schoolService "SchoolLink/internal/modules/school/application/service"
	schoolEntity "SchoolLink/internal/modules/school/domain/entity"
	"SchoolLink/pkg/xerr"
	"SchoolLink/pkg/zlog"

	"go.uber.org/zap"
	"gorm.io/gorm"
)

// StatusTracker 投递状态与已读状态。状态只前进，不回退
type StatusTracker interface {
	MarkSent(ctx context.Context, tenantID, notificationID, recipientID string) (int64, error)
	MarkFailed(ctx context.Context, tenantID, notificationID, recipientID, reason string) (int64, error)
	MarkRead(ctx context.Context, callerID, notificationID, recipientID string) (bool, error)
	MarkAllRead(ctx context.Context, callerID string) (int64, error)
	GetUnreadCount(ctx context.Context, callerID string) (int64, error)
	GetDeliveryStatus(ctx context.Context, callerID, notificationID string) (*respond.DeliveryStatusRespond, error)
}

type statusTrackerImpl struct {
	notificationRepo repository.NotificationRepository
	recipientRepo    repository.RecipientRepository
	tenants          schoolService.TenantContextService
	broadcaster      repository.Broadcaster
	cache            repository.ListCache
	now              func() time.Time
}

func NewStatusTracker(
	notificationRepo repository.NotificationRepository,
	recipientRepo repository.RecipientRepository,
	tenants schoolService.TenantContextService,
	broadcaster repository.Broadcaster,
	cache repository.ListCache,
) StatusTracker {
	return &statusTrackerImpl{
		notificationRepo: notificationRepo,
		recipientRepo:    recipientRepo,
		tenants:          tenants,
		broadcaster:      broadcaster,
		cache:            cache,
		now:              time.Now,
	}
}

func (s *statusTrackerImpl) MarkSent(ctx context.Context, tenantID, notificationID, recipientID string) (int64, error) {
	if strings.TrimSpace(tenantID) == "" {
		return 0, xerr.ErrNoTenantContext
	}
	n, err := s.recipientRepo.MarkSent(ctx, tenantID, notificationID, recipientID, s.now())
	if err != nil {
		zlog.Error("status: mark sent failed", zap.String("notification_id", notificationID), zap.String("recipient_id", recipientID), zap.Error(err))
		return 0, xerr.ErrServerError
	}
	if err := s.promote(ctx, tenantID, notificationID); err != nil {
		return n, err
	}
	if n > 0 {
		clearCache(ctx, s.cache, tenantID)
	}
	return n, nil
}

func (s *statusTrackerImpl) MarkFailed(ctx context.Context, tenantID, notificationID, recipientID, reason string) (int64, error) {
	if strings.TrimSpace(tenantID) == "" {
		return 0, xerr.ErrNoTenantContext
	}
	n, err := s.recipientRepo.MarkFailed(ctx, tenantID, notificationID, recipientID, reason)
	if err != nil {
		zlog.Error("status: mark failed failed", zap.String("notification_id", notificationID), zap.String("recipient_id", recipientID), zap.Error(err))
		return 0, xerr.ErrServerError
	}
	if err := s.promote(ctx, tenantID, notificationID); err != nil {
		return n, err
	}
	if n > 0 {
		clearCache(ctx, s.cache, tenantID)
	}
	return n, nil
}

// promote 没有 pending 行之后推进通知本身：有一个送达即 sent，全部失败则 failed。
// 条件更新只会成功一次
func (s *statusTrackerImpl) promote(ctx context.Context, tenantID, notificationID string) error {
	rows, err := s.recipientRepo.ListByNotification(ctx, tenantID, notificationID)
	if err != nil {
		zlog.Error("status: list recipients failed", zap.String("notification_id", notificationID), zap.Error(err))
		return xerr.ErrServerError
	}
	if len(rows) == 0 {
		return nil
	}
	anySent := false
	for _, r := range rows {
		switch r.DeliveryStatus {
		case entity.DeliveryPending:
			return nil
		case entity.DeliverySent:
			anySent = true
		}
	}
	to := entity.DeliveryFailed
	if anySent {
		to = entity.DeliverySent
	}
	changed, err := s.notificationRepo.AdvanceStatus(ctx, tenantID, notificationID, to, s.now())
	if err != nil {
		zlog.Error("status: advance notification failed", zap.String("notification_id", notificationID), zap.Error(err))
		return xerr.ErrServerError
	}
	if changed {
		zlog.Info("notification delivery settled",
			zap.String("tenant_id", tenantID),
			zap.String("notification_id", notificationID),
			zap.String("status", string(to)))
	}
	return nil
}

func (s *statusTrackerImpl) MarkRead(ctx context.Context, callerID, notificationID, recipientID string) (bool, error) {
	notificationID = strings.TrimSpace(notificationID)
	if notificationID == "" {
		return false, xerr.ErrParam
	}
	if recipientID == "" {
		recipientID = callerID
	}
	if recipientID != callerID {
		return false, xerr.New(xerr.Forbidden, "只能标记自己的通知")
	}
	tc, err := s.tenants.GetCurrentTenant(ctx, callerID)
	if err != nil {
		return false, err
	}

	n, err := s.recipientRepo.MarkRead(ctx, tc.TenantId, notificationID, recipientID, s.now())
	if err != nil {
		zlog.Error("status: mark read failed", zap.String("notification_id", notificationID), zap.String("recipient_id", recipientID), zap.Error(err))
		return false, xerr.ErrServerError
	}
	if n == 0 {
		// 没更新到：要么已读，要么不属于该校
		if _, err := s.recipientRepo.Get(ctx, tc.TenantId, notificationID, recipientID); err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return false, xerr.New(xerr.NotFound, "通知不存在")
			}
			zlog.Error("status: load recipient failed", zap.String("notification_id", notificationID), zap.Error(err))
			return false, xerr.ErrServerError
		}
		return true, nil
	}

	clearCache(ctx, s.cache, tc.TenantId)
	broadcastAsync(ctx, s.broadcaster, entity.RealtimeEvent{
		Kind:           entity.RealtimeCountChanged,
		TenantId:       tc.TenantId,
		AccountIds:     []string{recipientID},
		NotificationId: notificationID,
	})
	return true, nil
}

func (s *statusTrackerImpl) MarkAllRead(ctx context.Context, callerID string) (int64, error) {
	tc, err := s.tenants.GetCurrentTenant(ctx, callerID)
	if err != nil {
		return 0, err
	}
	n, err := s.recipientRepo.MarkAllRead(ctx, tc.TenantId, callerID, s.now())
	if err != nil {
		zlog.Error("status: mark all read failed", zap.String("account_id", callerID), zap.Error(err))
		return 0, xerr.ErrServerError
	}
	if n > 0 {
		clearCache(ctx, s.cache, tc.TenantId)
		broadcastAsync(ctx, s.broadcaster, entity.RealtimeEvent{
			Kind:       entity.RealtimeCountChanged,
			TenantId:   tc.TenantId,
			AccountIds: []string{callerID},
		})
	}
	return n, nil
}

func (s *statusTrackerImpl) GetUnreadCount(ctx context.Context, callerID string) (int64, error) {
	tc, err := s.tenants.GetCurrentTenant(ctx, callerID)
	if err != nil {
		return 0, err
	}
	n, err := s.recipientRepo.CountUnread(ctx, tc.TenantId, callerID)
	if err != nil {
		zlog.Error("status: count unread failed", zap.String("account_id", callerID), zap.Error(err))
		return 0, xerr.ErrServerError
	}
	return n, nil
}

func (s *statusTrackerImpl) GetDeliveryStatus(ctx context.Context, callerID, notificationID string) (*respond.DeliveryStatusRespond, error) {
	notificationID = strings.TrimSpace(notificationID)
	if notificationID == "" {
		return nil, xerr.ErrParam
	}
	tc, err := s.tenants.GetCurrentTenant(ctx, callerID)
	if err != nil {
		return nil, err
	}

	n, err := s.notificationRepo.GetByNotificationID(ctx, tc.TenantId, notificationID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, xerr.New(xerr.NotFound, "通知不存在")
		}
		zlog.Error("status: load notification failed", zap.String("notification_id", notificationID), zap.Error(err))
		return nil, xerr.ErrServerError
	}
	if n.TenantId != tc.TenantId {
		zlog.Warn("status: cross-tenant notification dropped", zap.String("notification_id", notificationID), zap.String("tenant_id", tc.TenantId))
		return nil, xerr.New(xerr.NotFound, "通知不存在")
	}
	if n.SenderId != callerID && tc.AccountRole != schoolEntity.AccountRoleTeacher && tc.AccountRole != schoolEntity.AccountRoleAdmin {
		return nil, xerr.New(xerr.Forbidden, "无权查看该通知的投递状态")
	}

	shape := "status:" + notificationID
	if s.cache != nil {
		var cached respond.DeliveryStatusRespond
		hit, err := s.cache.Get(ctx, tc.TenantId, shape, &cached)
		if err != nil {
			zlog.Warn("status: cache read failed", zap.String("notification_id", notificationID), zap.Error(err))
		}
		if hit && cached.TenantId == tc.TenantId && cached.NotificationId == notificationID {
			return &cached, nil
		}
	}

	rows, err := s.recipientRepo.ListByNotification(ctx, tc.TenantId, notificationID)
	if err != nil {
		zlog.Error("status: list recipients failed", zap.String("notification_id", notificationID), zap.Error(err))
		return nil, xerr.ErrServerError
	}
	out := &respond.DeliveryStatusRespond{
		TenantId:       tc.TenantId,
		NotificationId: notificationID,
		Status:         string(n.DeliveryStatus),
	}
	for _, r := range rows {
		if r.TenantId != tc.TenantId {
			continue
		}
		out.Total++
		switch r.DeliveryStatus {
		case entity.DeliverySent:
			out.Sent++
		case entity.DeliveryFailed:
			out.Failed++
		default:
			out.Pending++
		}
		if r.IsRead {
			out.Read++
		} else {
			out.Unread++
		}
	}

	if s.cache != nil {
		if err := s.cache.Set(ctx, tc.TenantId, shape, out); err != nil {
			zlog.Warn("status: cache write failed", zap.String("notification_id", notificationID), zap.Error(err))
		}
	}
	return out, nil
}
