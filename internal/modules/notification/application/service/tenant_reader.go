package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"SchoolLink/internal/modules/notification/application/dto/request"
	"SchoolLink/internal/modules/notification/application/dto/respond"
	"SchoolLink/internal/modules/notification/domain/entity"
	"SchoolLink/internal/modules/notification/domain/repository"
	schoolService "SchoolLink/internal/modules/school/application/service"
	schoolEntity "SchoolLink/internal/modules/school/domain/entity"
	"SchoolLink/pkg/xerr"
	"SchoolLink/pkg/zlog"

	"go.uber.org/zap"
)

const (
	defaultListLimit = 50
	maxListLimit     = 200

	statsRecentWindow = 7 * 24 * time.Hour
	statsShape        = "stats:recent7d"
)

// TenantReader 所有读取都限定在调用者的学校，并逐行再校验一次
type TenantReader interface {
	ListForRecipient(ctx context.Context, callerID string, req request.ListNotificationRequest) ([]respond.NotificationItem, error)
	ListForTenant(ctx context.Context, callerID string, req request.TenantListRequest) ([]respond.TenantNotificationItem, error)
	GetNotificationStats(ctx context.Context, callerID string) (*respond.NotificationStatsRespond, error)
}

type tenantReaderImpl struct {
	notificationRepo repository.NotificationRepository
	recipientRepo    repository.RecipientRepository
	tenants          schoolService.TenantContextService
	cache            repository.ListCache
}

func NewTenantReader(notificationRepo repository.NotificationRepository, recipientRepo repository.RecipientRepository, tenants schoolService.TenantContextService, cache repository.ListCache) TenantReader {
	return &tenantReaderImpl{
		notificationRepo: notificationRepo,
		recipientRepo:    recipientRepo,
		tenants:          tenants,
		cache:            cache,
	}
}

func normalizePage(limit, offset int) (int, int) {
	if limit <= 0 {
		limit = defaultListLimit
	}
	if limit > maxListLimit {
		limit = maxListLimit
	}
	if offset < 0 {
		offset = 0
	}
	return limit, offset
}

func formatTime(t *time.Time) string {
	if t == nil || t.IsZero() {
		return ""
	}
	return t.Format(time.RFC3339)
}

func (r *tenantReaderImpl) ListForRecipient(ctx context.Context, callerID string, req request.ListNotificationRequest) ([]respond.NotificationItem, error) {
	tc, err := r.tenants.GetCurrentTenant(ctx, callerID)
	if err != nil {
		return nil, err
	}
	accountID := strings.TrimSpace(req.AccountId)
	if accountID == "" {
		accountID = callerID
	}
	// 只有本校管理员可以查看别人的通知
	if accountID != callerID && tc.AccountRole != schoolEntity.AccountRoleAdmin {
		return nil, xerr.New(xerr.Forbidden, "无权查看该账号的通知")
	}
	limit, offset := normalizePage(req.Limit, req.Offset)

	rows, err := r.recipientRepo.ListForRecipient(ctx, tc.TenantId, accountID, req.UnreadOnly, limit, offset)
	if err != nil {
		zlog.Error("reader: list for recipient failed", zap.String("account_id", accountID), zap.Error(err))
		return nil, xerr.ErrServerError
	}

	out := make([]respond.NotificationItem, 0, len(rows))
	for _, row := range rows {
		if row.NotificationTenantId != tc.TenantId || row.RecipientTenantId != tc.TenantId {
			zlog.Warn("reader: cross-tenant row dropped",
				zap.String("tenant_id", tc.TenantId),
				zap.String("notification_id", row.NotificationId),
				zap.String("notification_tenant_id", row.NotificationTenantId),
				zap.String("recipient_tenant_id", row.RecipientTenantId))
			continue
		}
		created := row.CreatedAt
		out = append(out, respond.NotificationItem{
			NotificationId: row.NotificationId,
			Type:           string(row.Type),
			Message:        row.Message,
			SenderId:       row.SenderId,
			DeliveryMode:   string(row.DeliveryMode),
			DeliveryStatus: string(row.DeliveryStatus),
			RecipientRole:  string(row.RecipientRole),
			IsRead:         row.IsRead,
			SentAt:         formatTime(row.SentAt),
			ReadAt:         formatTime(row.ReadAt),
			CreatedAt:      formatTime(&created),
		})
	}
	return out, nil
}

func (r *tenantReaderImpl) ListForTenant(ctx context.Context, callerID string, req request.TenantListRequest) ([]respond.TenantNotificationItem, error) {
	tc, err := r.tenants.GetCurrentTenant(ctx, callerID)
	if err != nil {
		return nil, err
	}
	if tc.AccountRole != schoolEntity.AccountRoleAdmin && tc.AccountRole != schoolEntity.AccountRoleTeacher {
		return nil, xerr.New(xerr.Forbidden, "无权查看学校通知列表")
	}
	typ := entity.NotificationType(strings.TrimSpace(req.Type))
	if typ != "" && !typ.Valid() {
		return nil, xerr.New(xerr.BadRequest, "未知的通知类型")
	}
	limit, offset := normalizePage(req.Limit, req.Offset)
	shape := fmt.Sprintf("list:%s:%d:%d", typ, limit, offset)

	if r.cache != nil {
		var cached []respond.TenantNotificationItem
		hit, err := r.cache.Get(ctx, tc.TenantId, shape, &cached)
		if err != nil {
			zlog.Warn("reader: cache read failed", zap.String("tenant_id", tc.TenantId), zap.Error(err))
		}
		if hit {
			return filterTenantItems(cached, tc.TenantId), nil
		}
	}

	rows, err := r.notificationRepo.ListSummaries(ctx, tc.TenantId, typ, limit, offset)
	if err != nil {
		zlog.Error("reader: list tenant notifications failed", zap.String("tenant_id", tc.TenantId), zap.Error(err))
		return nil, xerr.ErrServerError
	}
	items := make([]respond.TenantNotificationItem, 0, len(rows))
	for _, row := range rows {
		created := row.CreatedAt
		items = append(items, respond.TenantNotificationItem{
			TenantId:       row.TenantId,
			NotificationId: row.NotificationId,
			Type:           string(row.Type),
			Message:        row.Message,
			SenderId:       row.SenderId,
			DeliveryMode:   string(row.DeliveryMode),
			DeliveryStatus: string(row.DeliveryStatus),
			RecipientCount: row.RecipientCount,
			ReadCount:      row.ReadCount,
			CreatedAt:      formatTime(&created),
		})
	}
	items = filterTenantItems(items, tc.TenantId)

	if r.cache != nil {
		if err := r.cache.Set(ctx, tc.TenantId, shape, items); err != nil {
			zlog.Warn("reader: cache write failed", zap.String("tenant_id", tc.TenantId), zap.Error(err))
		}
	}
	return items, nil
}

func filterTenantItems(items []respond.TenantNotificationItem, tenantID string) []respond.TenantNotificationItem {
	out := make([]respond.TenantNotificationItem, 0, len(items))
	for _, it := range items {
		if it.TenantId != tenantID {
			zlog.Warn("reader: cross-tenant summary dropped", zap.String("tenant_id", tenantID), zap.String("notification_id", it.NotificationId))
			continue
		}
		out = append(out, it)
	}
	return out
}

// GetNotificationStats 管理端看板用，跟列表共用一个按学校清空的缓存
func (r *tenantReaderImpl) GetNotificationStats(ctx context.Context, callerID string) (*respond.NotificationStatsRespond, error) {
	tc, err := r.tenants.GetCurrentTenant(ctx, callerID)
	if err != nil {
		return nil, err
	}
	if tc.AccountRole != schoolEntity.AccountRoleAdmin && tc.AccountRole != schoolEntity.AccountRoleTeacher {
		return nil, xerr.New(xerr.Forbidden, "无权查看通知统计")
	}

	if r.cache != nil {
		var cached respond.NotificationStatsRespond
		hit, err := r.cache.Get(ctx, tc.TenantId, statsShape, &cached)
		if err != nil {
			zlog.Warn("reader: cache read failed", zap.String("tenant_id", tc.TenantId), zap.Error(err))
		}
		if hit {
			return &cached, nil
		}
	}

	stats, err := r.notificationRepo.Stats(ctx, tc.TenantId, time.Now().Add(-statsRecentWindow))
	if err != nil {
		zlog.Error("reader: notification stats failed", zap.String("tenant_id", tc.TenantId), zap.Error(err))
		return nil, xerr.ErrServerError
	}
	out := &respond.NotificationStatsRespond{
		Total:       stats.Total,
		ByType:      make(map[string]int64, len(stats.ByType)),
		ByStatus:    make(map[string]int64, len(stats.ByStatus)),
		RecentCount: stats.RecentCount,
	}
	for t, n := range stats.ByType {
		out.ByType[string(t)] = n
	}
	for st, n := range stats.ByStatus {
		out.ByStatus[string(st)] = n
	}

	if r.cache != nil {
		if err := r.cache.Set(ctx, tc.TenantId, statsShape, out); err != nil {
			zlog.Warn("reader: cache write failed", zap.String("tenant_id", tc.TenantId), zap.Error(err))
		}
	}
	return out, nil
}
