package persistence

import (
	"context"
	"strings"
	"time"

	"SchoolLink/internal/modules/notification/domain/entity"
	"SchoolLink/internal/modules/notification/domain/repository"
	"SchoolLink/pkg/util"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

const (
	recipientBatchSize    = 500
	failureReasonMaxRunes = 252
)

type recipientRepositoryImpl struct {
	db *gorm.DB
}

func NewRecipientRepository(db *gorm.DB) repository.RecipientRepository {
	return &recipientRepositoryImpl{db: db}
}

func (r *recipientRepositoryImpl) CreateBatch(ctx context.Context, rows []entity.NotificationRecipient) error {
	if len(rows) == 0 {
		return nil
	}
	return r.db.WithContext(ctx).CreateInBatches(&rows, recipientBatchSize).Error
}

func (r *recipientRepositoryImpl) CreateBatchIgnoreDuplicates(ctx context.Context, rows []entity.NotificationRecipient) error {
	if len(rows) == 0 {
		return nil
	}
	return r.db.WithContext(ctx).
		Clauses(clause.OnConflict{DoNothing: true}).
		CreateInBatches(&rows, recipientBatchSize).Error
}

func (r *recipientRepositoryImpl) ListByNotification(ctx context.Context, tenantID, notificationID string) ([]entity.NotificationRecipient, error) {
	var out []entity.NotificationRecipient
	err := r.db.WithContext(ctx).
		Where("notification_id = ? AND tenant_id = ?", notificationID, tenantID).
		Order("id ASC").
		Find(&out).Error
	return out, err
}

func (r *recipientRepositoryImpl) Get(ctx context.Context, tenantID, notificationID, recipientID string) (*entity.NotificationRecipient, error) {
	var row entity.NotificationRecipient
	err := r.db.WithContext(ctx).
		Where("notification_id = ? AND recipient_id = ? AND tenant_id = ?", notificationID, recipientID, tenantID).
		First(&row).Error
	if err != nil {
		return nil, err
	}
	return &row, nil
}

func (r *recipientRepositoryImpl) MarkSent(ctx context.Context, tenantID, notificationID, recipientID string, at time.Time) (int64, error) {
	q := r.db.WithContext(ctx).Model(&entity.NotificationRecipient{}).
		Where("notification_id = ? AND tenant_id = ? AND delivery_status = ?", notificationID, tenantID, entity.DeliveryPending)
	if recipientID != "" {
		q = q.Where("recipient_id = ?", recipientID)
	}
	res := q.Updates(map[string]interface{}{
		"delivery_status": entity.DeliverySent,
		"sent_at":         at,
	})
	return res.RowsAffected, res.Error
}

func (r *recipientRepositoryImpl) MarkFailed(ctx context.Context, tenantID, notificationID, recipientID, reason string) (int64, error) {
	// 列宽按字符计，截断后连同省略号不超过 255
	reason = util.TruncateRunes(strings.TrimSpace(reason), failureReasonMaxRunes)
	res := r.db.WithContext(ctx).Model(&entity.NotificationRecipient{}).
		Where("notification_id = ? AND recipient_id = ? AND tenant_id = ? AND delivery_status = ?",
			notificationID, recipientID, tenantID, entity.DeliveryPending).
		Updates(map[string]interface{}{
			"delivery_status": entity.DeliveryFailed,
			"failure_reason":  reason,
		})
	return res.RowsAffected, res.Error
}

func (r *recipientRepositoryImpl) MarkRead(ctx context.Context, tenantID, notificationID, recipientID string, at time.Time) (int64, error) {
	// 只更新未读行，重复调用不会覆盖 read_at
	res := r.db.WithContext(ctx).Model(&entity.NotificationRecipient{}).
		Where("notification_id = ? AND recipient_id = ? AND tenant_id = ? AND is_read = ?",
			notificationID, recipientID, tenantID, false).
		Updates(map[string]interface{}{
			"is_read": true,
			"read_at": at,
		})
	return res.RowsAffected, res.Error
}

func (r *recipientRepositoryImpl) MarkAllRead(ctx context.Context, tenantID, recipientID string, at time.Time) (int64, error) {
	res := r.db.WithContext(ctx).Model(&entity.NotificationRecipient{}).
		Where("recipient_id = ? AND tenant_id = ? AND is_read = ?", recipientID, tenantID, false).
		Updates(map[string]interface{}{
			"is_read": true,
			"read_at": at,
		})
	return res.RowsAffected, res.Error
}

func (r *recipientRepositoryImpl) recipientView(ctx context.Context, tenantID, recipientID string) *gorm.DB {
	return r.db.WithContext(ctx).Table("notification_recipients AS r").
		Joins("JOIN notifications AS n ON n.notification_id = r.notification_id").
		Where("r.recipient_id = ? AND r.tenant_id = ? AND n.tenant_id = ?", recipientID, tenantID, tenantID)
}

func (r *recipientRepositoryImpl) CountUnread(ctx context.Context, tenantID, recipientID string) (int64, error) {
	var n int64
	err := r.recipientView(ctx, tenantID, recipientID).
		Where("r.is_read = ?", false).
		Count(&n).Error
	return n, err
}

func (r *recipientRepositoryImpl) ListForRecipient(ctx context.Context, tenantID, recipientID string, unreadOnly bool, limit, offset int) ([]entity.RecipientNotification, error) {
	q := r.recipientView(ctx, tenantID, recipientID).
		Select(strings.Join([]string{
			"n.id AS seq",
			"n.notification_id",
			"n.tenant_id AS notification_tenant_id",
			"r.tenant_id AS recipient_tenant_id",
			"n.type",
			"n.message",
			"n.sender_id",
			"n.delivery_mode",
			"r.recipient_id",
			"r.recipient_role",
			"r.delivery_status",
			"r.is_read",
			"r.sent_at",
			"r.read_at",
			"n.created_at",
		}, ", "))
	if unreadOnly {
		q = q.Where("r.is_read = ?", false)
	}
	var out []entity.RecipientNotification
	err := q.Order("n.created_at DESC").Order("n.id DESC").
		Limit(limit).Offset(offset).
		Scan(&out).Error
	return out, err
}
