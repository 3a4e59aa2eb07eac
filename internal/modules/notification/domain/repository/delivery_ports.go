package repository

import (
	"context"
	"errors"

	"SchoolLink/internal/modules/notification/domain/entity"
)

var (
	// ErrDestinationRevoked 推送网关确认该设备令牌已失效
	ErrDestinationRevoked = errors.New("push destination revoked")
	// ErrPermanentRejection 渠道明确拒绝，重试无意义
	ErrPermanentRejection = errors.New("delivery channel permanently rejected message")
)

// PushGateway 推送通道，每个目的地调用一次
type PushGateway interface {
	SendPush(ctx context.Context, token, title, body string, data map[string]interface{}) (bool, error)
}

type ChannelMessage struct {
	NotificationId string              `json:"notification_id"`
	TenantId       string              `json:"tenant_id"`
	RecipientId    string              `json:"recipient_id"`
	Phone          string              `json:"phone"`
	Mode           entity.DeliveryMode `json:"mode"`
	Text           string              `json:"text"`
}

// ChannelRelay 短信 / 即时通讯渠道的投递出口
type ChannelRelay interface {
	Relay(ctx context.Context, msg ChannelMessage) error
}

// Broadcaster 实时变更通知，失败只记日志
type Broadcaster interface {
	Broadcast(ctx context.Context, ev entity.RealtimeEvent) error
}

// ListCache 读路径的 TTL 缓存，key 一定包含 tenantID
type ListCache interface {
	Get(ctx context.Context, tenantID, shape string, dest interface{}) (bool, error)
	Set(ctx context.Context, tenantID, shape string, value interface{}) error
	Clear(ctx context.Context, tenantID string) error
}
