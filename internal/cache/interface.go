package cache

import (
	"context"
	"errors"
	"time"

	"github.com/manobala/peer-chat/internal/domain"
)

var ErrCacheMiss = errors.New("cache miss")

// Cache holds read-mostly data: the room listing and directory entries.
type Cache interface {
	GetRooms(ctx context.Context) ([]domain.Room, error)
	SetRooms(ctx context.Context, rooms []domain.Room, ttl time.Duration) error
	InvalidateRooms(ctx context.Context) error

	GetUser(ctx context.Context, userID string) (*domain.User, error)
	SetUser(ctx context.Context, user *domain.User, ttl time.Duration) error

	Close() error
}

// NopCache misses every lookup. Used when Redis is disabled.
type NopCache struct{}

func (NopCache) GetRooms(context.Context) ([]domain.Room, error) { return nil, ErrCacheMiss }

func (NopCache) SetRooms(context.Context, []domain.Room, time.Duration) error { return nil }

func (NopCache) InvalidateRooms(context.Context) error { return nil }

func (NopCache) GetUser(context.Context, string) (*domain.User, error) { return nil, ErrCacheMiss }

func (NopCache) SetUser(context.Context, *domain.User, time.Duration) error { return nil }

func (NopCache) Close() error { return nil }
