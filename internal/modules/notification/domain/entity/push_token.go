package entity

import "time"

// PushToken 推送目的地，可轮换、可吊销；每次派发时现查，不缓存
type PushToken struct {
	Id         int64     `gorm:"column:id;primaryKey;autoIncrement"`
	TenantId   string    `gorm:"column:tenant_id;type:char(36);index:idx_push_token_owner,priority:1;not null"`
	AccountId  string    `gorm:"column:account_id;type:char(36);index:idx_push_token_owner,priority:2;not null"`
	Token      string    `gorm:"column:token;type:varchar(255);uniqueIndex;not null"`
	DeviceType string    `gorm:"column:device_type;type:varchar(20)"`
	IsActive   bool      `gorm:"column:is_active;not null"`
	CreatedAt  time.Time `gorm:"column:created_at;type:datetime;not null"`
	UpdatedAt  time.Time `gorm:"column:updated_at;type:datetime;not null"`
}

func (PushToken) TableName() string {
	return "push_tokens"
}

// Models 需要自动迁移的通知表
func Models() []interface{} {
	return []interface{}{
		&Notification{},
		&NotificationRecipient{},
		&PushToken{},
		&NotificationSetting{},
	}
}
