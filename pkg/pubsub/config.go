package pubsub

import (
	"fmt"
	"strings"
	"time"
)

// Supported event bus drivers.
const (
	DriverNone  = "none"
	DriverRedis = "redis"
	DriverKafka = "kafka"
)

// Config selects and configures the event bus domain events are mirrored to.
type Config struct {
	Driver    string      `mapstructure:"driver"`
	QueueSize int         `mapstructure:"queue_size"`
	Redis     RedisConfig `mapstructure:"redis"`
	Kafka     KafkaConfig `mapstructure:"kafka"`
}

// RedisConfig configures the Redis PUBLISH driver. Prefix is prepended to
// every channel name so several deployments can share one server.
type RedisConfig struct {
	Address      string        `mapstructure:"address"`
	Password     string        `mapstructure:"password"`
	DB           int           `mapstructure:"db"`
	PoolSize     int           `mapstructure:"pool_size"`
	DialTimeout  time.Duration `mapstructure:"dial_timeout"`
	WriteTimeout time.Duration `mapstructure:"write_timeout"`
	Prefix       string        `mapstructure:"prefix"`
}

// KafkaConfig configures the Kafka driver.
type KafkaConfig struct {
	Brokers     string `mapstructure:"brokers"`
	Partitions  int    `mapstructure:"partitions"`
	TopicPrefix string `mapstructure:"topic_prefix"`
	Acks        string `mapstructure:"acks"`
}

// DefaultConfig returns a configuration with the bus disabled.
func DefaultConfig() Config {
	return Config{
		Driver:    DriverNone,
		QueueSize: 1024,
		Redis: RedisConfig{
			Address:      "localhost:6379",
			PoolSize:     10,
			DialTimeout:  5 * time.Second,
			WriteTimeout: 3 * time.Second,
		},
		Kafka: KafkaConfig{
			Brokers:    "localhost:9092",
			Partitions: 4,
			Acks:       "1",
		},
	}
}

// NewPublisher builds the Publisher named by cfg.Driver. Real drivers sit
// behind an OrderedPublisher, so callers never block on the bus.
func NewPublisher(cfg Config) (Publisher, error) {
	var (
		inner Publisher
		err   error
	)
	switch driver := strings.ToLower(strings.TrimSpace(cfg.Driver)); driver {
	case "", DriverNone:
		return NopPublisher{}, nil
	case DriverRedis:
		inner, err = NewRedisPublisher(cfg.Redis)
	case DriverKafka:
		inner, err = NewKafkaPublisher(cfg.Kafka)
	default:
		return nil, fmt.Errorf("unsupported event driver %q", driver)
	}
	if err != nil {
		return nil, err
	}
	return NewOrderedPublisher(inner, cfg.QueueSize), nil
}
