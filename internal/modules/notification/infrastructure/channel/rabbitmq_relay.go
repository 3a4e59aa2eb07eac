package channel

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"SchoolLink/internal/modules/notification/domain/entity"
	"SchoolLink/internal/modules/notification/domain/repository"

	amqp "github.com/rabbitmq/amqp091-go"
)

const (
	DefaultSmsQueue       = "notification.sms"
	DefaultMessagingQueue = "notification.messaging"
)

// publisher *amqp.Channel 满足该接口
type publisher interface {
	PublishWithContext(ctx context.Context, exchange, key string, mandatory, immediate bool, msg amqp.Publishing) error
}

type RabbitRelay struct {
	mu     sync.Mutex
	conn   *amqp.Connection
	ch     publisher
	queues map[entity.DeliveryMode]string
}

// DialRabbitRelay 连接并声明两个持久化队列
func DialRabbitRelay(url, smsQueue, messagingQueue string) (*RabbitRelay, error) {
	if smsQueue == "" {
		smsQueue = DefaultSmsQueue
	}
	if messagingQueue == "" {
		messagingQueue = DefaultMessagingQueue
	}
	conn, err := amqp.Dial(url)
	if err != nil {
		return nil, fmt.Errorf("rabbitmq dial: %w", err)
	}
	ch, err := conn.Channel()
	if err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("rabbitmq channel: %w", err)
	}
	for _, q := range []string{smsQueue, messagingQueue} {
		if _, err := ch.QueueDeclare(q, true, false, false, false, nil); err != nil {
			_ = ch.Close()
			_ = conn.Close()
			return nil, fmt.Errorf("rabbitmq declare %s: %w", q, err)
		}
	}
	r := newRelay(ch, smsQueue, messagingQueue)
	r.conn = conn
	return r, nil
}

func newRelay(ch publisher, smsQueue, messagingQueue string) *RabbitRelay {
	return &RabbitRelay{
		ch: ch,
		queues: map[entity.DeliveryMode]string{
			entity.ModeSMS:              smsQueue,
			entity.ModeMessagingChannel: messagingQueue,
		},
	}
}

var _ repository.ChannelRelay = (*RabbitRelay)(nil)

func (r *RabbitRelay) Relay(ctx context.Context, msg repository.ChannelMessage) error {
	queue, ok := r.queues[msg.Mode]
	if !ok {
		return fmt.Errorf("%w: no queue for mode %q", repository.ErrPermanentRejection, msg.Mode)
	}
	if msg.Phone == "" {
		return fmt.Errorf("%w: empty phone", repository.ErrPermanentRejection)
	}
	body, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("%w: %v", repository.ErrPermanentRejection, err)
	}
	// amqp.Channel 不支持并发发布
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.ch.PublishWithContext(ctx, "", queue, false, false, amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
		MessageId:    msg.NotificationId + ":" + msg.RecipientId,
		Timestamp:    time.Now(),
		Body:         body,
	})
}

func (r *RabbitRelay) Close() error {
	if c, ok := r.ch.(*amqp.Channel); ok && c != nil {
		_ = c.Close()
	}
	if r.conn != nil {
		return r.conn.Close()
	}
	return nil
}
