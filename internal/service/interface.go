package service

import (
	"context"

	"github.com/manobala/peer-chat/internal/domain"
	"github.com/manobala/peer-chat/internal/hub"
)

// Broadcaster fans an event out to the live members of a channel.
type Broadcaster interface {
	Broadcast(ch domain.ChannelID, message interface{}, exclude string) error
}

// ChannelJoiner admits live connections to channels. Joins are refused
// for connections that have already been torn down.
type ChannelJoiner interface {
	Broadcaster
	Join(c *hub.Client, ch domain.ChannelID) (bool, error)
}

// ForumService serves forum rooms. Writes are persisted before they are
// broadcast to the room.
type ForumService interface {
	ListRooms(ctx context.Context) ([]domain.Room, error)
	JoinRoom(ctx context.Context, roomID string) (int, error)
	ListRoomMessages(ctx context.Context, roomID string, page, pageSize int) (*domain.MessagePage, error)
	PostRoomMessage(ctx context.Context, roomID, authorID string, req *domain.PostRoomMessageRequest) (*domain.RoomMessage, error)
	AddReaction(ctx context.Context, messageID, userID, kind string) (*domain.RoomMessage, error)
	AddReply(ctx context.Context, messageID, userID string, req *domain.ReplyRequest) (*domain.RoomMessage, error)
	DeleteMessage(ctx context.Context, messageID, userID string) error
}

// ExpertChatService serves one-to-one expert chats.
type ExpertChatService interface {
	ListExperts(ctx context.Context) ([]domain.User, error)
	ListChats(ctx context.Context, userID string) ([]domain.ExpertChatSession, error)
	StartChat(ctx context.Context, userID, expertID string) (*domain.ExpertChatSession, error)
	ListMessages(ctx context.Context, sessionID, userID string) ([]domain.ExpertChatMessage, error)
	SendMessage(ctx context.Context, sessionID, senderID string, req *domain.PostSessionMessageRequest) (*domain.ExpertChatMessage, error)
}

// GatewayService handles intents arriving over a realtime connection.
type GatewayService interface {
	HandleConnect(ctx context.Context, c *hub.Client) error
	HandleDisconnect(ctx context.Context, c *hub.Client)
	HandleJoinRoom(ctx context.Context, c *hub.Client, roomID string) error
	HandleLeaveRoom(ctx context.Context, c *hub.Client, roomID string) error
	HandleJoinExpertChat(ctx context.Context, c *hub.Client, sessionID string) error
	HandleLeaveExpertChat(ctx context.Context, c *hub.Client, sessionID string) error
	HandleTyping(ctx context.Context, c *hub.Client, channelType, channelID string) error
}
