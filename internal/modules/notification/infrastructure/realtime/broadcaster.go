package realtime

import (
	"context"
	"encoding/json"
	"errors"

	"SchoolLink/internal/modules/notification/domain/entity"
	"SchoolLink/internal/modules/notification/domain/repository"
	"SchoolLink/internal/modules/notification/infrastructure/mq"
	"SchoolLink/pkg/ws"
	"SchoolLink/pkg/zlog"

	"go.uber.org/zap"
)

const headerOrigin = "origin"

// HubBroadcaster 推给本实例上的在线连接
type HubBroadcaster struct {
	hub *ws.Hub
}

func NewHubBroadcaster(hub *ws.Hub) *HubBroadcaster {
	return &HubBroadcaster{hub: hub}
}

func (b *HubBroadcaster) Broadcast(ctx context.Context, ev entity.RealtimeEvent) error {
	if b.hub == nil || len(ev.AccountIds) == 0 {
		return nil
	}
	_, err := b.hub.SendJSONToMany(ev.AccountIds, ev)
	return err
}

// KafkaBroadcaster 写入 realtime topic，由其他实例转发给各自的连接
type KafkaBroadcaster struct {
	pub    mq.Publisher
	topic  string
	origin string
}

func NewKafkaBroadcaster(pub mq.Publisher, topic, origin string) *KafkaBroadcaster {
	return &KafkaBroadcaster{pub: pub, topic: topic, origin: origin}
}

func (b *KafkaBroadcaster) Broadcast(ctx context.Context, ev entity.RealtimeEvent) error {
	if b.pub == nil {
		return nil
	}
	value, err := json.Marshal(ev)
	if err != nil {
		return err
	}
	_, err = b.pub.Publish(ctx, mq.Message{
		Topic:   b.topic,
		Key:     []byte(ev.TenantId),
		Value:   value,
		Headers: map[string]string{headerOrigin: b.origin, "kind": ev.Kind},
	})
	return err
}

type composite []repository.Broadcaster

// NewComposite 依次调用全部 broadcaster，一个失败不影响其他
func NewComposite(bs ...repository.Broadcaster) repository.Broadcaster {
	out := make(composite, 0, len(bs))
	for _, b := range bs {
		if b != nil {
			out = append(out, b)
		}
	}
	return out
}

func (c composite) Broadcast(ctx context.Context, ev entity.RealtimeEvent) error {
	var errs []error
	for _, b := range c {
		if err := b.Broadcast(ctx, ev); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// RelayHandler 消费 realtime topic，跳过本实例自己发出的记录
type RelayHandler struct {
	hub    *HubBroadcaster
	origin string
}

func NewRelayHandler(hub *HubBroadcaster, origin string) *RelayHandler {
	return &RelayHandler{hub: hub, origin: origin}
}

func (h *RelayHandler) Handle(ctx context.Context, msg mq.Message) error {
	if msg.Headers[headerOrigin] == h.origin {
		return nil
	}
	var ev entity.RealtimeEvent
	if err := json.Unmarshal(msg.Value, &ev); err != nil {
		// 坏消息直接丢弃，不阻塞分区
		zlog.Warn("realtime: drop undecodable record", zap.String("topic", msg.Topic), zap.Error(err))
		return nil
	}
	return h.hub.Broadcast(ctx, ev)
}
