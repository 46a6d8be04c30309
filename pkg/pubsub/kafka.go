package pubsub

import (
	"context"
	"fmt"
	"time"

	"github.com/confluentinc/confluent-kafka-go/v2/kafka"

	"github.com/manobala/peer-chat/pkg/log"
)

// Event bus domains; each becomes one topic.
var kafkaDomains = []string{"forum", "expert"}

// Kafka message header names.
const (
	HeaderEventType  = "event_type"
	HeaderEventID    = "event_id"
	HeaderOccurredAt = "occurred_at"
)

const closeFlushTimeout = 5 * time.Second

// KafkaPublisher produces events keyed by channel id, so all events of one
// room or session land on the same partition in order.
type KafkaPublisher struct {
	producer *kafka.Producer
	prefix   string
	done     chan struct{}
}

// NewKafkaPublisher creates the producer and makes sure the domain topics
// exist.
func NewKafkaPublisher(cfg KafkaConfig) (*KafkaPublisher, error) {
	acks := cfg.Acks
	if acks == "" {
		acks = "1"
	}
	producer, err := kafka.NewProducer(&kafka.ConfigMap{
		"bootstrap.servers": cfg.Brokers,
		"acks":              acks,
		"linger.ms":         5,
		"compression.type":  "snappy",
	})
	if err != nil {
		return nil, fmt.Errorf("kafka producer for %s: %w", cfg.Brokers, err)
	}

	kp := &KafkaPublisher{producer: producer, prefix: cfg.TopicPrefix, done: make(chan struct{})}
	go kp.watchDeliveries()

	topics := make([]string, 0, len(kafkaDomains))
	for _, d := range kafkaDomains {
		topics = append(topics, topicName(cfg.TopicPrefix, d))
	}
	if err := kp.createTopics(topics, cfg.Partitions); err != nil {
		l := log.L()
		l.Warn().Err(err).Strs("topics", topics).Msg("could not create event topics")
	}
	return kp, nil
}

func topicName(prefix, domain string) string {
	return prefix + domain + "-events"
}

func (k *KafkaPublisher) createTopics(topics []string, partitions int) error {
	if partitions <= 0 {
		partitions = 4
	}
	admin, err := kafka.NewAdminClientFromProducer(k.producer)
	if err != nil {
		return err
	}
	defer admin.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	specs := make([]kafka.TopicSpecification, len(topics))
	for i, t := range topics {
		specs[i] = kafka.TopicSpecification{Topic: t, NumPartitions: partitions, ReplicationFactor: 1}
	}
	results, err := admin.CreateTopics(ctx, specs)
	if err != nil {
		return err
	}
	for _, r := range results {
		switch r.Error.Code() {
		case kafka.ErrNoError, kafka.ErrTopicAlreadyExists:
		default:
			return fmt.Errorf("topic %s: %v", r.Topic, r.Error)
		}
	}
	return nil
}

func (k *KafkaPublisher) watchDeliveries() {
	defer close(k.done)
	for e := range k.producer.Events() {
		m, ok := e.(*kafka.Message)
		if !ok || m.TopicPartition.Error == nil {
			continue
		}
		l := log.L()
		topic := ""
		if m.TopicPartition.Topic != nil {
			topic = *m.TopicPartition.Topic
		}
		l.Warn().Err(m.TopicPartition.Error).
			Str("topic", topic).
			Str(log.FieldChannel, string(m.Key)).
			Msg("event delivery failed")
	}
}

// Publish enqueues the event; delivery failures are logged asynchronously.
func (k *KafkaPublisher) Publish(_ context.Context, channel string, event *Event) error {
	msg, err := buildKafkaMessage(k.prefix, channel, event)
	if err != nil {
		return err
	}
	if err := k.producer.Produce(msg, nil); err != nil {
		return fmt.Errorf("produce %s: %w", event.Type, err)
	}
	return nil
}

func buildKafkaMessage(prefix, channel string, event *Event) (*kafka.Message, error) {
	domain, key, err := channelToTopicAndKey(channel)
	if err != nil {
		return nil, err
	}
	data, err := encodeEvent(event)
	if err != nil {
		return nil, err
	}
	topic := topicName(prefix, domain)
	return &kafka.Message{
		TopicPartition: kafka.TopicPartition{Topic: &topic, Partition: kafka.PartitionAny},
		Key:            []byte(key),
		Value:          data,
		Timestamp:      event.OccurredAt,
		Headers: []kafka.Header{
			{Key: HeaderEventType, Value: []byte(event.Type)},
			{Key: HeaderEventID, Value: []byte(event.ID)},
			{Key: HeaderOccurredAt, Value: []byte(event.OccurredAt.UTC().Format(time.RFC3339Nano))},
		},
	}, nil
}

// Close flushes what is still queued and shuts the producer down.
func (k *KafkaPublisher) Close() error {
	remaining := k.producer.Flush(int(closeFlushTimeout / time.Millisecond))
	k.producer.Close()
	<-k.done
	if remaining > 0 {
		return fmt.Errorf("%d events not delivered before close", remaining)
	}
	return nil
}
