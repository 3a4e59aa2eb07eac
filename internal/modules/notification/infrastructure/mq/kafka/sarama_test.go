package kafka

import (
	"context"
	"errors"
	"testing"
	"time"

	"SchoolLink/internal/modules/notification/infrastructure/mq"

	"github.com/IBM/sarama"
	"github.com/IBM/sarama/mocks"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPublisher_SendsKeyedRecord(t *testing.T) {
	producer := mocks.NewSyncProducer(t, producerConfig("test"))
	producer.ExpectSendMessageWithMessageCheckerFunctionAndSucceed(func(m *sarama.ProducerMessage) error {
		key, _ := m.Key.Encode()
		if string(key) != "t1" {
			return errors.New("unexpected key " + string(key))
		}
		if len(m.Headers) != 2 || string(m.Headers[0].Key) != "kind" {
			return errors.New("headers not sorted")
		}
		return nil
	})
	p := newPublisherWithProducer(producer)
	defer p.Close()

	_, err := p.Publish(context.Background(), mq.Message{
		Topic:   "notification.realtime",
		Key:     []byte("t1"),
		Value:   []byte(`{}`),
		Headers: map[string]string{"tenant": "t1", "kind": "count_changed"},
	})
	require.NoError(t, err)
}

func TestPublisher_Rejects(t *testing.T) {
	producer := mocks.NewSyncProducer(t, producerConfig("test"))
	p := newPublisherWithProducer(producer)
	defer p.Close()

	_, err := p.Publish(context.Background(), mq.Message{Value: []byte("x")})
	assert.Error(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = p.Publish(ctx, mq.Message{Topic: "t", Value: []byte("x")})
	assert.ErrorIs(t, err, context.Canceled)
}

func TestFromConsumerMessage(t *testing.T) {
	msg := fromConsumerMessage(&sarama.ConsumerMessage{
		Topic: "school.domain-events",
		Key:   []byte("t1"),
		Value: []byte("{}"),
		Headers: []*sarama.RecordHeader{
			{Key: []byte("source"), Value: []byte("gradebook")},
			nil,
			{Key: nil, Value: []byte("skip")},
		},
	})
	assert.Equal(t, "school.domain-events", msg.Topic)
	assert.Equal(t, map[string]string{"source": "gradebook"}, msg.Headers)
}

func TestTopicDetailDefaults(t *testing.T) {
	d := topicDetail(TopicSpec{Name: "x"})
	assert.Equal(t, int32(1), d.NumPartitions)
	assert.Equal(t, int16(1), d.ReplicationFactor)
	assert.Equal(t, "86400000", *d.ConfigEntries["retention.ms"])

	d = topicDetail(TopicSpec{Name: "x", Partitions: 6, Replication: 3, Retention: time.Hour})
	assert.Equal(t, int32(6), d.NumPartitions)
	assert.Equal(t, "3600000", *d.ConfigEntries["retention.ms"])
}
