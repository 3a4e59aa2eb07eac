package entity

import (
	"strings"
	"time"
)

type NotificationType string

const (
	TypeGradeEntered      NotificationType = "grade_entered"
	TypeHomeworkUploaded  NotificationType = "homework_uploaded"
	TypeAttendanceAbsence NotificationType = "attendance_absence"
	TypeAnnouncement      NotificationType = "announcement"
	TypeEventCreated      NotificationType = "event_created"
	TypeBulkCustom        NotificationType = "bulk_custom"
)

func (t NotificationType) Valid() bool {
	switch t {
	case TypeGradeEntered, TypeHomeworkUploaded, TypeAttendanceAbsence, TypeAnnouncement, TypeEventCreated, TypeBulkCustom:
		return true
	}
	return false
}

type DeliveryMode string

const (
	ModeInApp            DeliveryMode = "in_app"
	ModeSMS              DeliveryMode = "sms"
	ModeMessagingChannel DeliveryMode = "messaging_channel"
)

func (m DeliveryMode) Valid() bool {
	return m == ModeInApp || m == ModeSMS || m == ModeMessagingChannel
}

type DeliveryStatus string

const (
	DeliveryPending DeliveryStatus = "pending"
	DeliverySent    DeliveryStatus = "sent"
	DeliveryFailed  DeliveryStatus = "failed"
)

// RecipientRole 接收人角色，封闭集合
type RecipientRole string

const (
	RoleParent  RecipientRole = "parent"
	RoleStudent RecipientRole = "student"
	RoleTeacher RecipientRole = "teacher"
	RoleAdmin   RecipientRole = "admin"
)

// ParseRecipientRole 兼容 "Parent" 这类首字母大写写法
func ParseRecipientRole(s string) (RecipientRole, bool) {
	r := RecipientRole(strings.ToLower(strings.TrimSpace(s)))
	switch r {
	case RoleParent, RoleStudent, RoleTeacher, RoleAdmin:
		return r, true
	}
	return "", false
}

// Notification 一次事件对应一条通知，除状态与时间戳外不可变
type Notification struct {
	Id             int64            `gorm:"column:id;primaryKey;autoIncrement"`
	NotificationId string           `gorm:"column:notification_id;type:char(36);uniqueIndex;not null"`
	TenantId       string           `gorm:"column:tenant_id;type:char(36);index:idx_notification_tenant_created,priority:1;not null"`
	Type           NotificationType `gorm:"column:type;type:varchar(30);not null"`
	Message        string           `gorm:"column:message;type:text;not null"`
	SenderId       string           `gorm:"column:sender_id;type:char(36);index;not null"`
	DeliveryMode   DeliveryMode     `gorm:"column:delivery_mode;type:varchar(20);not null"`
	DeliveryStatus DeliveryStatus   `gorm:"column:delivery_status;type:varchar(10);index;not null"`
	CreatedAt      time.Time        `gorm:"column:created_at;type:datetime;index:idx_notification_tenant_created,priority:2;not null"`
	SentAt         *time.Time       `gorm:"column:sent_at;type:datetime"`
}

func (Notification) TableName() string {
	return "notifications"
}

// NotificationRecipient 每个 (通知, 接收人) 一行，tenant_id 冗余一份用于双重过滤
type NotificationRecipient struct {
	Id             int64          `gorm:"column:id;primaryKey;autoIncrement"`
	NotificationId string         `gorm:"column:notification_id;type:char(36);uniqueIndex:uk_notification_recipient,priority:1;not null"`
	TenantId       string         `gorm:"column:tenant_id;type:char(36);index:idx_recipient_tenant_account,priority:1;not null"`
	RecipientId    string         `gorm:"column:recipient_id;type:char(36);uniqueIndex:uk_notification_recipient,priority:2;index:idx_recipient_tenant_account,priority:2;not null"`
	RecipientRole  RecipientRole  `gorm:"column:recipient_role;type:varchar(10);not null"`
	DeliveryStatus DeliveryStatus `gorm:"column:delivery_status;type:varchar(10);not null"`
	IsRead         bool           `gorm:"column:is_read;not null"`
	FailureReason  string         `gorm:"column:failure_reason;type:varchar(255)"`
	SentAt         *time.Time     `gorm:"column:sent_at;type:datetime"`
	ReadAt         *time.Time     `gorm:"column:read_at;type:datetime"`
	CreatedAt      time.Time      `gorm:"column:created_at;type:datetime;not null"`
}

func (NotificationRecipient) TableName() string {
	return "notification_recipients"
}

// Recipient 解析出的接收人
type Recipient struct {
	AccountId string
	Role      RecipientRole
}

// RecipientNotification 接收人视角的一条通知（联表结果，不建表）
type RecipientNotification struct {
	Seq                  int64            `gorm:"column:seq"`
	NotificationId       string           `gorm:"column:notification_id"`
	NotificationTenantId string           `gorm:"column:notification_tenant_id"`
	RecipientTenantId    string           `gorm:"column:recipient_tenant_id"`
	Type                 NotificationType `gorm:"column:type"`
	Message              string           `gorm:"column:message"`
	SenderId             string           `gorm:"column:sender_id"`
	DeliveryMode         DeliveryMode     `gorm:"column:delivery_mode"`
	RecipientId          string           `gorm:"column:recipient_id"`
	RecipientRole        RecipientRole    `gorm:"column:recipient_role"`
	DeliveryStatus       DeliveryStatus   `gorm:"column:delivery_status"`
	IsRead               bool             `gorm:"column:is_read"`
	SentAt               *time.Time       `gorm:"column:sent_at"`
	ReadAt               *time.Time       `gorm:"column:read_at"`
	CreatedAt            time.Time        `gorm:"column:created_at"`
}

// NotificationSummary 管理端列表行
type NotificationSummary struct {
	Notification
	RecipientCount int64 `gorm:"column:recipient_count"`
	ReadCount      int64 `gorm:"column:read_count"`
}

// RealtimeEvent 推给在线客户端的变更信号
type RealtimeEvent struct {
	Kind             string           `json:"type"`
	TenantId         string           `json:"tenant_id"`
	AccountIds       []string         `json:"account_ids,omitempty"`
	NotificationId   string           `json:"notification_id,omitempty"`
	NotificationType NotificationType `json:"notification_type,omitempty"`
	At               time.Time        `json:"at"`
}

const (
	RealtimeNotificationCreated = "notification_created"
	RealtimeCountChanged        = "count_changed"
)
