package pubsub

import (
	"context"
	"fmt"

	"github.com/redis/go-redis/v9"
)

// RedisPublisher mirrors events onto Redis pub/sub channels.
type RedisPublisher struct {
	client *redis.Client
	prefix string
}

// NewRedisPublisher dials Redis and verifies the connection.
func NewRedisPublisher(cfg RedisConfig) (*RedisPublisher, error) {
	client := redis.NewClient(&redis.Options{
		Addr:         cfg.Address,
		Password:     cfg.Password,
		DB:           cfg.DB,
		PoolSize:     cfg.PoolSize,
		DialTimeout:  cfg.DialTimeout,
		WriteTimeout: cfg.WriteTimeout,
	})

	ctx := context.Background()
	if cfg.DialTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, cfg.DialTimeout)
		defer cancel()
	}
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("redis event bus at %s: %w", cfg.Address, err)
	}
	return NewRedisPublisherFromClient(client, cfg.Prefix), nil
}

// NewRedisPublisherFromClient reuses an existing client.
func NewRedisPublisherFromClient(client *redis.Client, prefix string) *RedisPublisher {
	return &RedisPublisher{client: client, prefix: prefix}
}

// ChannelName returns the Redis channel an event for channel is published on.
func (r *RedisPublisher) ChannelName(channel string) string {
	return r.prefix + channel
}

func (r *RedisPublisher) Publish(ctx context.Context, channel string, event *Event) error {
	data, err := encodeEvent(event)
	if err != nil {
		return err
	}
	if err := r.client.Publish(ctx, r.ChannelName(channel), data).Err(); err != nil {
		return fmt.Errorf("publish %s to %s: %w", event.Type, channel, err)
	}
	return nil
}

func (r *RedisPublisher) Close() error {
	return r.client.Close()
}
