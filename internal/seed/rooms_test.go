package seed

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/manobala/peer-chat/internal/cache"
	"github.com/manobala/peer-chat/internal/domain"
	"github.com/manobala/peer-chat/internal/repository"
	"github.com/manobala/peer-chat/pkg/database"
)

type countingCache struct {
	cache.NopCache
	invalidations int
}

func (c *countingCache) InvalidateRooms(context.Context) error {
	c.invalidations++
	return nil
}

func TestRooms_Idempotent(t *testing.T) {
	ctx := context.Background()
	db, err := database.New(&database.Config{
		Driver:   "sqlite",
		FilePath: "file:" + uuid.NewString() + "?mode=memory&cache=shared",
		LogLevel: "silent",
	}, zerolog.Nop())
	require.NoError(t, err)
	t.Cleanup(func() { _ = database.Close(db) })
	require.NoError(t, database.AutoMigrate(db, domain.Models()...))

	repo := repository.NewGormForumRepository(db)
	listing := &countingCache{}

	created, err := Rooms(ctx, repo, listing)
	require.NoError(t, err)
	assert.Equal(t, len(DefaultRooms), created)
	assert.Equal(t, 1, listing.invalidations)

	created, err = Rooms(ctx, repo, listing)
	require.NoError(t, err)
	assert.Zero(t, created)
	assert.Equal(t, 1, listing.invalidations)

	rooms, err := repo.ListRooms(ctx)
	require.NoError(t, err)
	require.Len(t, rooms, len(DefaultRooms))
	for _, r := range rooms {
		assert.NotEmpty(t, r.Icon)
		assert.NotEmpty(t, r.Color)
	}

	dir := repository.NewGormUserDirectory(db)
	require.NoError(t, Users(ctx, dir, DevUsers))
	experts, err := dir.ListExperts(ctx)
	require.NoError(t, err)
	require.Len(t, experts, 1)
	assert.Equal(t, "dev-expert", experts[0].ID)
}
