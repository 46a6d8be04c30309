package cache

import (
	"context"
	"errors"
	"os"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/manobala/peer-chat/internal/domain"
)

func TestNopCache_AlwaysMisses(t *testing.T) {
	ctx := context.Background()
	var c Cache = NopCache{}

	require.NoError(t, c.SetRooms(ctx, []domain.Room{{ID: "r"}}, time.Minute))
	_, err := c.GetRooms(ctx)
	assert.True(t, errors.Is(err, ErrCacheMiss))

	require.NoError(t, c.SetUser(ctx, &domain.User{ID: "u"}, time.Minute))
	_, err = c.GetUser(ctx, "u")
	assert.True(t, errors.Is(err, ErrCacheMiss))
}

func TestRedisCache_Keys(t *testing.T) {
	c := NewRedisCacheFromClient(nil, "peerchat")
	assert.Equal(t, "peerchat:rooms", c.roomsKey())
	assert.Equal(t, "peerchat:user:u1", c.userKey("u1"))
}

// Runs against a real server when REDIS_TEST_ADDRESS is set.
func TestRedisCache_RoundTrip(t *testing.T) {
	addr := os.Getenv("REDIS_TEST_ADDRESS")
	if addr == "" {
		t.Skip("REDIS_TEST_ADDRESS not set")
	}

	ctx := context.Background()
	c := NewRedisCacheFromClient(redis.NewClient(&redis.Options{Addr: addr}), "peerchat-test-"+domain.NewID())
	t.Cleanup(func() { _ = c.Close() })

	_, err := c.GetRooms(ctx)
	assert.True(t, errors.Is(err, ErrCacheMiss))

	rooms := []domain.Room{{ID: "r1", Name: "Anxiety Support Circle", Type: domain.RoomTypeAnxietySupport}}
	require.NoError(t, c.SetRooms(ctx, rooms, time.Minute))
	got, err := c.GetRooms(ctx)
	require.NoError(t, err)
	assert.Equal(t, rooms[0].Name, got[0].Name)

	require.NoError(t, c.InvalidateRooms(ctx))
	_, err = c.GetRooms(ctx)
	assert.True(t, errors.Is(err, ErrCacheMiss))

	require.NoError(t, c.SetUser(ctx, &domain.User{ID: "u1", Name: "Asha", IsExpert: true}, time.Minute))
	u, err := c.GetUser(ctx, "u1")
	require.NoError(t, err)
	assert.True(t, u.IsExpert)
}
