package realtime

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"SchoolLink/internal/modules/notification/domain/entity"
	"SchoolLink/internal/modules/notification/infrastructure/mq"
	"SchoolLink/pkg/ws"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakePublisher struct {
	msgs []mq.Message
	err  error
}

func (p *fakePublisher) Publish(ctx context.Context, msg mq.Message) (mq.PublishResult, error) {
	if p.err != nil {
		return mq.PublishResult{}, p.err
	}
	p.msgs = append(p.msgs, msg)
	return mq.PublishResult{}, nil
}

func (p *fakePublisher) Close() error { return nil }

type countingBroadcaster struct{ n int }

func (c *countingBroadcaster) Broadcast(ctx context.Context, ev entity.RealtimeEvent) error {
	c.n++
	return nil
}

func TestKafkaBroadcaster_KeysByTenant(t *testing.T) {
	pub := &fakePublisher{}
	b := NewKafkaBroadcaster(pub, "notification.realtime", "node-a")
	ev := entity.RealtimeEvent{Kind: entity.RealtimeCountChanged, TenantId: "t1", AccountIds: []string{"p1"}}

	require.NoError(t, b.Broadcast(context.Background(), ev))
	require.Len(t, pub.msgs, 1)
	assert.Equal(t, "notification.realtime", pub.msgs[0].Topic)
	assert.Equal(t, []byte("t1"), pub.msgs[0].Key)
	assert.Equal(t, "node-a", pub.msgs[0].Headers[headerOrigin])

	var got entity.RealtimeEvent
	require.NoError(t, json.Unmarshal(pub.msgs[0].Value, &got))
	assert.Equal(t, []string{"p1"}, got.AccountIds)
}

func TestComposite_ContinuesAfterFailure(t *testing.T) {
	failing := NewKafkaBroadcaster(&fakePublisher{err: errors.New("broker down")}, "x", "node-a")
	counter := &countingBroadcaster{}
	b := NewComposite(failing, nil, counter)

	err := b.Broadcast(context.Background(), entity.RealtimeEvent{TenantId: "t1", AccountIds: []string{"p1"}})
	assert.ErrorContains(t, err, "broker down")
	assert.Equal(t, 1, counter.n)
}

func TestRelayHandler(t *testing.T) {
	h := NewRelayHandler(NewHubBroadcaster(ws.NewHub()), "node-a")
	ctx := context.Background()

	assert.NoError(t, h.Handle(ctx, mq.Message{Value: []byte("garbage")}))
	assert.NoError(t, h.Handle(ctx, mq.Message{Value: []byte("garbage"), Headers: map[string]string{headerOrigin: "node-a"}}))
	value, _ := json.Marshal(entity.RealtimeEvent{TenantId: "t1", AccountIds: []string{"offline"}})
	assert.NoError(t, h.Handle(ctx, mq.Message{Value: value, Headers: map[string]string{headerOrigin: "node-b"}}))
}
