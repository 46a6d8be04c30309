package repository

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/manobala/peer-chat/internal/domain"
	"github.com/manobala/peer-chat/pkg/database"
)

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := database.New(&database.Config{
		Driver:   "sqlite",
		FilePath: "file:" + uuid.NewString() + "?mode=memory&cache=shared&_foreign_keys=on",
		LogLevel: "silent",
	}, zerolog.Nop())
	require.NoError(t, err)
	require.NoError(t, database.AutoMigrate(db, domain.Models()...))

	t.Cleanup(func() { _ = database.Close(db) })
	return db
}

func seedRoom(t *testing.T, repo *GormForumRepository, roomType domain.RoomType) domain.Room {
	t.Helper()

	room := domain.Room{
		Name:        "Room " + string(roomType),
		Description: "test room",
		Type:        roomType,
		Category:    domain.CategoryMentalWellness,
	}
	_, err := repo.EnsureRoom(context.Background(), &room)
	require.NoError(t, err)
	return room
}
