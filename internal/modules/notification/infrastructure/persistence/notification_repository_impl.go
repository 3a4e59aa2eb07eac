package persistence

import (
	"context"
	"time"

	"SchoolLink/internal/modules/notification/domain/entity"
	"SchoolLink/internal/modules/notification/domain/repository"

	"gorm.io/gorm"
)

type notificationRepositoryImpl struct {
	db *gorm.DB
}

func NewNotificationRepository(db *gorm.DB) repository.NotificationRepository {
	return &notificationRepositoryImpl{db: db}
}

func (r *notificationRepositoryImpl) Create(ctx context.Context, n *entity.Notification) error {
	return r.db.WithContext(ctx).Create(n).Error
}

func (r *notificationRepositoryImpl) GetByNotificationID(ctx context.Context, tenantID, notificationID string) (*entity.Notification, error) {
	var n entity.Notification
	err := r.db.WithContext(ctx).
		Where("notification_id = ? AND tenant_id = ?", notificationID, tenantID).
		First(&n).Error
	if err != nil {
		return nil, err
	}
	return &n, nil
}

func (r *notificationRepositoryImpl) AdvanceStatus(ctx context.Context, tenantID, notificationID string, to entity.DeliveryStatus, at time.Time) (bool, error) {
	updates := map[string]interface{}{"delivery_status": to}
	if to == entity.DeliverySent {
		updates["sent_at"] = at
	}
	res := r.db.WithContext(ctx).Model(&entity.Notification{}).
		Where("notification_id = ? AND tenant_id = ? AND delivery_status = ?", notificationID, tenantID, entity.DeliveryPending).
		Updates(updates)
	return res.RowsAffected > 0, res.Error
}

func (r *notificationRepositoryImpl) ListSummaries(ctx context.Context, tenantID string, typ entity.NotificationType, limit, offset int) ([]entity.NotificationSummary, error) {
	q := r.db.WithContext(ctx).Table("notifications AS n").
		Select("n.*, COUNT(r.id) AS recipient_count, COALESCE(SUM(CASE WHEN r.is_read = ? THEN 1 ELSE 0 END), 0) AS read_count", true).
		Joins("LEFT JOIN notification_recipients AS r ON r.notification_id = n.notification_id AND r.tenant_id = n.tenant_id").
		Where("n.tenant_id = ?", tenantID)
	if typ != "" {
		q = q.Where("n.type = ?", typ)
	}
	var out []entity.NotificationSummary
	err := q.Group("n.id").
		Order("n.created_at DESC").Order("n.id DESC").
		Limit(limit).Offset(offset).
		Scan(&out).Error
	return out, err
}

func (r *notificationRepositoryImpl) ListPendingBefore(ctx context.Context, before time.Time, limit int) ([]entity.Notification, error) {
	if limit <= 0 {
		limit = 100
	}
	var out []entity.Notification
	hasRecipients := r.db.Table("notification_recipients AS r").
		Select("1").
		Where("r.notification_id = notifications.notification_id AND r.tenant_id = notifications.tenant_id")
	err := r.db.WithContext(ctx).
		Where("delivery_status = ? AND created_at <= ?", entity.DeliveryPending, before).
		Where("EXISTS (?)", hasRecipients).
		Order("id ASC").
		Limit(limit).
		Find(&out).Error
	return out, err
}

func (r *notificationRepositoryImpl) DeleteByNotificationID(ctx context.Context, tenantID, notificationID string) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("notification_id = ? AND tenant_id = ?", notificationID, tenantID).
			Delete(&entity.NotificationRecipient{}).Error; err != nil {
			return err
		}
		return tx.Where("notification_id = ? AND tenant_id = ?", notificationID, tenantID).
			Delete(&entity.Notification{}).Error
	})
}

type statsRow struct {
	Type           entity.NotificationType `gorm:"column:type"`
	DeliveryStatus entity.DeliveryStatus   `gorm:"column:delivery_status"`
	Total          int64                   `gorm:"column:total"`
	Recent         int64                   `gorm:"column:recent"`
}

func (r *notificationRepositoryImpl) Stats(ctx context.Context, tenantID string, recentSince time.Time) (*entity.NotificationStats, error) {
	var rows []statsRow
	err := r.db.WithContext(ctx).Model(&entity.Notification{}).
		Select("type, delivery_status, COUNT(*) AS total, COALESCE(SUM(CASE WHEN created_at > ? THEN 1 ELSE 0 END), 0) AS recent", recentSince).
		Where("tenant_id = ?", tenantID).
		Group("type, delivery_status").
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}
	out := &entity.NotificationStats{
		ByType:   make(map[entity.NotificationType]int64),
		ByStatus: make(map[entity.DeliveryStatus]int64),
	}
	for _, row := range rows {
		out.Total += row.Total
		out.RecentCount += row.Recent
		out.ByType[row.Type] += row.Total
		out.ByStatus[row.DeliveryStatus] += row.Total
	}
	return out, nil
}
