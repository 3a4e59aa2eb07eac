package channel

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"SchoolLink/internal/modules/notification/domain/entity"
	"SchoolLink/internal/modules/notification/domain/repository"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type published struct {
	key string
	msg amqp.Publishing
}

type fakePublisher struct {
	out []published
	err error
}

func (f *fakePublisher) PublishWithContext(ctx context.Context, exchange, key string, mandatory, immediate bool, msg amqp.Publishing) error {
	if f.err != nil {
		return f.err
	}
	f.out = append(f.out, published{key: key, msg: msg})
	return nil
}

func TestRabbitRelay_RoutesByMode(t *testing.T) {
	pub := &fakePublisher{}
	r := newRelay(pub, DefaultSmsQueue, DefaultMessagingQueue)
	ctx := context.Background()

	require.NoError(t, r.Relay(ctx, repository.ChannelMessage{NotificationId: "n1", RecipientId: "p1", Phone: "+1", Mode: entity.ModeSMS, Text: "hi"}))
	require.NoError(t, r.Relay(ctx, repository.ChannelMessage{NotificationId: "n1", RecipientId: "p2", Phone: "+2", Mode: entity.ModeMessagingChannel, Text: "hi"}))
	require.Len(t, pub.out, 2)
	assert.Equal(t, DefaultSmsQueue, pub.out[0].key)
	assert.Equal(t, DefaultMessagingQueue, pub.out[1].key)
	assert.Equal(t, uint8(amqp.Persistent), pub.out[0].msg.DeliveryMode)
	assert.Equal(t, "n1:p1", pub.out[0].msg.MessageId)

	var body repository.ChannelMessage
	require.NoError(t, json.Unmarshal(pub.out[0].msg.Body, &body))
	assert.Equal(t, "+1", body.Phone)
	assert.Equal(t, "hi", body.Text)
}

func TestRabbitRelay_Rejections(t *testing.T) {
	pub := &fakePublisher{}
	r := newRelay(pub, DefaultSmsQueue, DefaultMessagingQueue)
	ctx := context.Background()

	err := r.Relay(ctx, repository.ChannelMessage{Phone: "+1", Mode: entity.ModeInApp})
	assert.ErrorIs(t, err, repository.ErrPermanentRejection)
	err = r.Relay(ctx, repository.ChannelMessage{Mode: entity.ModeSMS})
	assert.ErrorIs(t, err, repository.ErrPermanentRejection)

	// 连接断开属于暂时性错误
	pub.err = amqp.ErrClosed
	err = r.Relay(ctx, repository.ChannelMessage{Phone: "+1", Mode: entity.ModeSMS})
	require.Error(t, err)
	assert.False(t, errors.Is(err, repository.ErrPermanentRejection))
	assert.Empty(t, pub.out)
}
