package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/manobala/peer-chat/internal/domain"
	"github.com/manobala/peer-chat/pkg/log"
)

// ForumRepository persists forum rooms and their messages.
type ForumRepository interface {
	ListRooms(ctx context.Context) ([]domain.Room, error)
	GetRoom(ctx context.Context, roomID string) (*domain.Room, error)
	EnsureRoom(ctx context.Context, room *domain.Room) (bool, error)
	IncrementMemberCount(ctx context.Context, roomID string) (int, error)

	ListRoomMessages(ctx context.Context, roomID string, page, pageSize int) (*domain.MessagePage, error)
	GetRoomMessage(ctx context.Context, messageID string) (*domain.RoomMessage, error)
	AppendRoomMessage(ctx context.Context, roomID, authorID, body string, anonymous bool) (*domain.RoomMessage, error)
	AddReaction(ctx context.Context, messageID, userID string, kind domain.ReactionKind) (*domain.RoomMessage, error)
	AppendReply(ctx context.Context, messageID, body, authorID string, anonymous bool) (*domain.RoomMessage, error)
	SoftDeleteRoomMessage(ctx context.Context, messageID, callerID string) (*domain.RoomMessage, error)
}

// ExpertChatRepository persists expert chat sessions. Every call made on
// behalf of a caller fails with domain.ErrForbidden for non-participants.
type ExpertChatRepository interface {
	GetOrCreateSession(ctx context.Context, userID, expertID string) (*domain.ExpertChatSession, bool, error)
	GetSession(ctx context.Context, sessionID, callerID string) (*domain.ExpertChatSession, error)
	AppendSessionMessage(ctx context.Context, sessionID, senderID, body string) (*domain.ExpertChatMessage, error)
	ListSessionsFor(ctx context.Context, userID string, asExpert bool) ([]domain.ExpertChatSession, error)
	ListSessionMessages(ctx context.Context, sessionID, callerID string) ([]domain.ExpertChatMessage, error)
}

// UserDirectory reads users owned by the identity system.
type UserDirectory interface {
	GetUser(ctx context.Context, userID string) (*domain.User, error)
	GetUsers(ctx context.Context, userIDs []string) (map[string]domain.User, error)
	ListExperts(ctx context.Context) ([]domain.User, error)
	UpsertUser(ctx context.Context, user *domain.User) error
}

// storeError passes domain errors through and reports anything else as an
// unavailable store.
func storeError(ctx context.Context, err error, msg string) error {
	if errors.Is(err, domain.ErrNotFound) ||
		errors.Is(err, domain.ErrForbidden) ||
		errors.Is(err, domain.ErrValidation) {
		return err
	}
	l := log.Ctx(ctx)
	l.Error().Err(err).Msg(msg)
	return fmt.Errorf("%w: %v", domain.ErrStoreUnavailable, err)
}

func requireID(id, what string) error {
	if !domain.ValidID(id) {
		return fmt.Errorf("%w: malformed %s id", domain.ErrValidation, what)
	}
	return nil
}
