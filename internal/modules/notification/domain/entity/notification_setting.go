package entity

import (
	"sort"
	"strings"
	"time"
)

// NotificationSetting 每个账号一行；没有记录等同于全部开启
type NotificationSetting struct {
	Id            int64     `gorm:"column:id;primaryKey;autoIncrement"`
	TenantId      string    `gorm:"column:tenant_id;type:char(36);uniqueIndex:uk_notification_setting_owner,priority:1;not null"`
	AccountId     string    `gorm:"column:account_id;type:char(36);uniqueIndex:uk_notification_setting_owner,priority:2;not null"`
	PushEnabled   bool      `gorm:"column:push_enabled;not null"`
	DisabledTypes string    `gorm:"column:disabled_types;type:varchar(255)"`
	UpdatedAt     time.Time `gorm:"column:updated_at;type:datetime;not null"`
}

func (NotificationSetting) TableName() string {
	return "notification_settings"
}

// AllowsPush 关闭推送总开关或该类型被单独关闭时返回 false
func (s *NotificationSetting) AllowsPush(t NotificationType) bool {
	if s == nil {
		return true
	}
	if !s.PushEnabled {
		return false
	}
	for _, d := range s.Disabled() {
		if d == t {
			return false
		}
	}
	return true
}

func (s *NotificationSetting) Disabled() []NotificationType {
	if s == nil || s.DisabledTypes == "" {
		return nil
	}
	parts := strings.Split(s.DisabledTypes, ",")
	out := make([]NotificationType, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, NotificationType(p))
		}
	}
	return out
}

// SetDisabled 去重排序后存成逗号分隔
func (s *NotificationSetting) SetDisabled(types []NotificationType) {
	seen := make(map[NotificationType]struct{}, len(types))
	keep := make([]string, 0, len(types))
	for _, t := range types {
		if _, ok := seen[t]; ok {
			continue
		}
		seen[t] = struct{}{}
		keep = append(keep, string(t))
	}
	sort.Strings(keep)
	s.DisabledTypes = strings.Join(keep, ",")
}

// NotificationStats 管理端统计，只统计本校
type NotificationStats struct {
	Total       int64
	ByType      map[NotificationType]int64
	ByStatus    map[DeliveryStatus]int64
	RecentCount int64
}
