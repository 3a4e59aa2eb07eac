package repository

import (
	"context"
	"time"

	"SchoolLink/internal/modules/notification/domain/entity"
)

// 所有查询都必须带 tenantID；ListPendingBefore 是唯一的跨校查询，只给后台补偿任务用
type NotificationRepository interface {
	Create(ctx context.Context, n *entity.Notification) error
	GetByNotificationID(ctx context.Context, tenantID, notificationID string) (*entity.Notification, error)
	// AdvanceStatus 只从 pending 前进，返回是否真正发生了变更
	AdvanceStatus(ctx context.Context, tenantID, notificationID string, to entity.DeliveryStatus, at time.Time) (bool, error)
	ListSummaries(ctx context.Context, tenantID string, typ entity.NotificationType, limit, offset int) ([]entity.NotificationSummary, error)
	// ListPendingBefore 只返回至少有一条接收行的通知
	ListPendingBefore(ctx context.Context, before time.Time, limit int) ([]entity.Notification, error)
	// DeleteByNotificationID 连同接收行一起删除，只用于撤销写了一半的创建
	DeleteByNotificationID(ctx context.Context, tenantID, notificationID string) error
	// Stats 按类型、状态计数，recentSince 之后创建的另计
	Stats(ctx context.Context, tenantID string, recentSince time.Time) (*entity.NotificationStats, error)
}

type RecipientRepository interface {
	CreateBatch(ctx context.Context, rows []entity.NotificationRecipient) error
	// CreateBatchIgnoreDuplicates 已存在的 (notification_id, recipient_id) 直接跳过
	CreateBatchIgnoreDuplicates(ctx context.Context, rows []entity.NotificationRecipient) error
	ListByNotification(ctx context.Context, tenantID, notificationID string) ([]entity.NotificationRecipient, error)
	Get(ctx context.Context, tenantID, notificationID, recipientID string) (*entity.NotificationRecipient, error)

	// MarkSent recipientID 为空时推进该通知下所有 pending 行
	MarkSent(ctx context.Context, tenantID, notificationID, recipientID string, at time.Time) (int64, error)
	MarkFailed(ctx context.Context, tenantID, notificationID, recipientID, reason string) (int64, error)
	MarkRead(ctx context.Context, tenantID, notificationID, recipientID string, at time.Time) (int64, error)
	MarkAllRead(ctx context.Context, tenantID, recipientID string, at time.Time) (int64, error)

	CountUnread(ctx context.Context, tenantID, recipientID string) (int64, error)
	ListForRecipient(ctx context.Context, tenantID, recipientID string, unreadOnly bool, limit, offset int) ([]entity.RecipientNotification, error)
}

type PushTokenRepository interface {
	ListActive(ctx context.Context, tenantID, accountID string) ([]entity.PushToken, error)
	Upsert(ctx context.Context, token *entity.PushToken) error
	Deactivate(ctx context.Context, tenantID, accountID, token string) (int64, error)
	// DeactivateToken 网关报告设备已注销时调用
	DeactivateToken(ctx context.Context, token string) error
}

// NotificationSettingRepository Get 在没有记录时返回 (nil, nil)
type NotificationSettingRepository interface {
	Get(ctx context.Context, tenantID, accountID string) (*entity.NotificationSetting, error)
	Upsert(ctx context.Context, setting *entity.NotificationSetting) error
}

type NotificationUnitOfWork interface {
	Transaction(ctx context.Context, fn func(notificationRepo NotificationRepository, recipientRepo RecipientRepository) error) error
}
