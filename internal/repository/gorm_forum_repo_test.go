package repository

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/manobala/peer-chat/internal/domain"
)

func TestEnsureRoom_IsIdempotentByType(t *testing.T) {
	ctx := context.Background()
	repo := NewGormForumRepository(newTestDB(t))

	first := domain.Room{Name: "Anxiety", Type: domain.RoomTypeAnxietySupport, Category: domain.CategoryMentalWellness}
	created, err := repo.EnsureRoom(ctx, &first)
	require.NoError(t, err)
	assert.True(t, created)
	assert.Equal(t, domain.DefaultRoomIcon, first.Icon)
	assert.Equal(t, domain.DefaultRoomColor, first.Color)

	again := domain.Room{Name: "Renamed", Type: domain.RoomTypeAnxietySupport, Category: domain.CategoryMentalWellness}
	created, err = repo.EnsureRoom(ctx, &again)
	require.NoError(t, err)
	assert.False(t, created)
	assert.Equal(t, first.ID, again.ID)
	assert.Equal(t, "Anxiety", again.Name)
}

func TestListRooms_OrdersByCategoryThenCreation(t *testing.T) {
	ctx := context.Background()
	repo := NewGormForumRepository(newTestDB(t))

	rooms := []domain.Room{
		{Name: "b", Type: domain.RoomTypeDepressionHelp, Category: domain.CategorySupportGroups},
		{Name: "a", Type: domain.RoomTypeAnxietySupport, Category: domain.CategoryMentalWellness},
		{Name: "c", Type: domain.RoomTypeWellnessLifestyle, Category: domain.CategoryMentalWellness},
	}
	for i := range rooms {
		_, err := repo.EnsureRoom(ctx, &rooms[i])
		require.NoError(t, err)
	}

	got, err := repo.ListRooms(ctx)
	require.NoError(t, err)
	require.Len(t, got, 3)
	assert.Equal(t, []string{"a", "c", "b"}, []string{got[0].Name, got[1].Name, got[2].Name})
}

func TestAppendRoomMessage_ListedExactlyOnceInOrder(t *testing.T) {
	ctx := context.Background()
	repo := NewGormForumRepository(newTestDB(t))
	room := seedRoom(t, repo, domain.RoomTypeAnxietySupport)

	var ids []string
	for i := 0; i < 5; i++ {
		msg, err := repo.AppendRoomMessage(ctx, room.ID, "u1", fmt.Sprintf("message %d", i), false)
		require.NoError(t, err)
		ids = append(ids, msg.ID)
	}
	// Identical text sent twice is two messages.
	dup, err := repo.AppendRoomMessage(ctx, room.ID, "u1", "message 4", false)
	require.NoError(t, err)
	ids = append(ids, dup.ID)

	page, err := repo.ListRoomMessages(ctx, room.ID, 1, 50)
	require.NoError(t, err)
	require.Len(t, page.Messages, len(ids))
	for i, m := range page.Messages {
		assert.Equal(t, ids[i], m.ID)
	}
	assert.Equal(t, 6, page.Pagination.TotalMessages)
	assert.False(t, page.Pagination.HasMore)
	require.NotNil(t, page.Room)
	assert.Equal(t, room.ID, page.Room.ID)

	stored, err := repo.GetRoom(ctx, room.ID)
	require.NoError(t, err)
	assert.Equal(t, 6, stored.MessageCount)
	require.NotNil(t, stored.LastMessageAt)
}

func TestListRoomMessages_PagesFromNewest(t *testing.T) {
	ctx := context.Background()
	repo := NewGormForumRepository(newTestDB(t))
	room := seedRoom(t, repo, domain.RoomTypeAnxietySupport)

	for i := 0; i < 7; i++ {
		_, err := repo.AppendRoomMessage(ctx, room.ID, "u1", fmt.Sprintf("m%d", i), false)
		require.NoError(t, err)
	}

	first, err := repo.ListRoomMessages(ctx, room.ID, 1, 3)
	require.NoError(t, err)
	assert.Equal(t, []string{"m4", "m5", "m6"}, contents(first.Messages))
	assert.True(t, first.Pagination.HasMore)
	assert.Equal(t, 3, first.Pagination.TotalPages)

	last, err := repo.ListRoomMessages(ctx, room.ID, 3, 3)
	require.NoError(t, err)
	assert.Equal(t, []string{"m0"}, contents(last.Messages))
	assert.False(t, last.Pagination.HasMore)
}

func TestListRoomMessages_UnknownRoom(t *testing.T) {
	repo := NewGormForumRepository(newTestDB(t))

	_, err := repo.ListRoomMessages(context.Background(), domain.NewID(), 1, 50)
	assert.True(t, errors.Is(err, domain.ErrNotFound))

	_, err = repo.ListRoomMessages(context.Background(), "expert-chat-123", 1, 50)
	assert.True(t, errors.Is(err, domain.ErrValidation))
}

func TestAppendRoomMessage_RejectsInvalidBody(t *testing.T) {
	ctx := context.Background()
	repo := NewGormForumRepository(newTestDB(t))
	room := seedRoom(t, repo, domain.RoomTypeAnxietySupport)

	for _, body := range []string{"", "   ", strings.Repeat("x", domain.MaxRoomMessageLength+1)} {
		_, err := repo.AppendRoomMessage(ctx, room.ID, "u1", body, false)
		assert.True(t, errors.Is(err, domain.ErrValidation))
	}

	page, err := repo.ListRoomMessages(ctx, room.ID, 1, 50)
	require.NoError(t, err)
	assert.Empty(t, page.Messages)

	stored, err := repo.GetRoom(ctx, room.ID)
	require.NoError(t, err)
	assert.Zero(t, stored.MessageCount)
}

func TestAppendRoomMessage_UnknownRoomAppendsNothing(t *testing.T) {
	db := newTestDB(t)
	repo := NewGormForumRepository(db)

	_, err := repo.AppendRoomMessage(context.Background(), domain.NewID(), "u1", "hello", false)
	assert.True(t, errors.Is(err, domain.ErrNotFound))

	var count int64
	require.NoError(t, db.Model(&domain.RoomMessageModel{}).Count(&count).Error)
	assert.Zero(t, count)
}

func TestAddReaction_ReplacesKind(t *testing.T) {
	ctx := context.Background()
	repo := NewGormForumRepository(newTestDB(t))
	room := seedRoom(t, repo, domain.RoomTypeAnxietySupport)
	msg, err := repo.AppendRoomMessage(ctx, room.ID, "u1", "hello", false)
	require.NoError(t, err)

	_, err = repo.AddReaction(ctx, msg.ID, "u2", domain.ReactionHeart)
	require.NoError(t, err)
	updated, err := repo.AddReaction(ctx, msg.ID, "u2", domain.ReactionStrength)
	require.NoError(t, err)

	require.Len(t, updated.Reactions, 1)
	assert.Equal(t, domain.Reaction{UserID: "u2", Type: domain.ReactionStrength}, updated.Reactions[0])

	updated, err = repo.AddReaction(ctx, msg.ID, "u3", domain.ReactionThanks)
	require.NoError(t, err)
	assert.Len(t, updated.Reactions, 2)

	_, err = repo.AddReaction(ctx, msg.ID, "u3", domain.ReactionKind("like"))
	assert.True(t, errors.Is(err, domain.ErrValidation))
}

func TestAppendReply(t *testing.T) {
	ctx := context.Background()
	repo := NewGormForumRepository(newTestDB(t))
	room := seedRoom(t, repo, domain.RoomTypeAnxietySupport)
	msg, err := repo.AppendRoomMessage(ctx, room.ID, "u1", "hello", false)
	require.NoError(t, err)

	_, err = repo.AppendReply(ctx, msg.ID, "first", "u2", false)
	require.NoError(t, err)
	updated, err := repo.AppendReply(ctx, msg.ID, "second", "u3", true)
	require.NoError(t, err)

	require.Len(t, updated.Replies, 2)
	assert.Equal(t, "first", updated.Replies[0].Content)
	assert.Equal(t, "second", updated.Replies[1].Content)
	assert.True(t, updated.Replies[1].IsAnonymous)

	_, err = repo.AppendReply(ctx, msg.ID, " ", "u3", false)
	assert.True(t, errors.Is(err, domain.ErrValidation))

	_, err = repo.AppendReply(ctx, domain.NewID(), "orphan", "u3", false)
	assert.True(t, errors.Is(err, domain.ErrNotFound))
}

func TestSoftDeleteRoomMessage(t *testing.T) {
	ctx := context.Background()
	repo := NewGormForumRepository(newTestDB(t))
	room := seedRoom(t, repo, domain.RoomTypeAnxietySupport)
	msg, err := repo.AppendRoomMessage(ctx, room.ID, "u1", "regret", false)
	require.NoError(t, err)

	_, err = repo.SoftDeleteRoomMessage(ctx, msg.ID, "u2")
	assert.True(t, errors.Is(err, domain.ErrForbidden))

	deleted, err := repo.SoftDeleteRoomMessage(ctx, msg.ID, "u1")
	require.NoError(t, err)
	assert.True(t, deleted.IsDeleted)
	assert.Empty(t, deleted.Content)

	_, err = repo.SoftDeleteRoomMessage(ctx, msg.ID, "u1")
	require.NoError(t, err)

	page, err := repo.ListRoomMessages(ctx, room.ID, 1, 50)
	require.NoError(t, err)
	require.Len(t, page.Messages, 1)
	assert.True(t, page.Messages[0].IsDeleted)
	assert.Empty(t, page.Messages[0].Content)

	_, err = repo.AddReaction(ctx, msg.ID, "u2", domain.ReactionHeart)
	assert.True(t, errors.Is(err, domain.ErrNotFound))
}

func TestIncrementMemberCount(t *testing.T) {
	ctx := context.Background()
	repo := NewGormForumRepository(newTestDB(t))
	room := seedRoom(t, repo, domain.RoomTypeAnxietySupport)

	n, err := repo.IncrementMemberCount(ctx, room.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, n)
	n, err = repo.IncrementMemberCount(ctx, room.ID)
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	_, err = repo.IncrementMemberCount(ctx, domain.NewID())
	assert.True(t, errors.Is(err, domain.ErrNotFound))
}

func contents(msgs []domain.RoomMessage) []string {
	out := make([]string, len(msgs))
	for i, m := range msgs {
		out[i] = m.Content
	}
	return out
}
