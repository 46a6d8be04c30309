package pubsub

import (
	"context"
	"testing"
	"time"

	"github.com/confluentinc/confluent-kafka-go/v2/kafka"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestChannelToTopicAndKey(t *testing.T) {
	domain, key, err := channelToTopicAndKey(RoomChannel("01HROOM"))
	require.NoError(t, err)
	assert.Equal(t, "forum", domain)
	assert.Equal(t, "01HROOM", key)

	domain, key, err = channelToTopicAndKey(SessionChannel("01HSESS"))
	require.NoError(t, err)
	assert.Equal(t, "expert", domain)
	assert.Equal(t, "01HSESS", key)

	for _, bad := range []string{"nonsense", "forum:room::events", "forum:room:R1:other"} {
		_, _, err = channelToTopicAndKey(bad)
		assert.Error(t, err, bad)
	}
}

func TestBuildKafkaMessage(t *testing.T) {
	evt, err := NewEvent(EventSessionMessageCreated, "01HSESS", map[string]string{"content": "hi"})
	require.NoError(t, err)

	msg, err := buildKafkaMessage("prod.", SessionChannel("01HSESS"), evt)
	require.NoError(t, err)
	require.NotNil(t, msg.TopicPartition.Topic)
	assert.Equal(t, "prod.expert-events", *msg.TopicPartition.Topic)
	assert.Equal(t, kafka.PartitionAny, msg.TopicPartition.Partition)
	assert.Equal(t, "01HSESS", string(msg.Key))
	assert.Equal(t, evt.OccurredAt, msg.Timestamp)

	headers := map[string]string{}
	for _, h := range msg.Headers {
		headers[h.Key] = string(h.Value)
	}
	assert.Equal(t, EventSessionMessageCreated, headers[HeaderEventType])
	assert.Equal(t, evt.ID, headers[HeaderEventID])
	assert.Equal(t, evt.OccurredAt.Format(time.RFC3339Nano), headers[HeaderOccurredAt])

	_, err = buildKafkaMessage("", "bogus", evt)
	assert.Error(t, err)
}

func TestNewEvent_RoundTripsPayload(t *testing.T) {
	evt, err := NewEvent(EventRoomMessageCreated, "r1", map[string]string{"content": "hi"})
	require.NoError(t, err)

	var got map[string]string
	require.NoError(t, evt.UnmarshalPayload(&got))
	assert.Equal(t, "hi", got["content"])
	assert.False(t, evt.OccurredAt.IsZero())
	assert.NotEmpty(t, evt.ID)
}

func TestNewPublisher_Drivers(t *testing.T) {
	for _, driver := range []string{"", "none", " NONE "} {
		p, err := NewPublisher(Config{Driver: driver})
		require.NoError(t, err)
		assert.NoError(t, p.Publish(context.Background(), RoomChannel("r"), &Event{}))
	}

	_, err := NewPublisher(Config{Driver: "carrier-pigeon"})
	assert.Error(t, err)
}
