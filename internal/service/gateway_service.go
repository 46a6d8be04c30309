package service

import (
	"context"
	"errors"
	"time"

	"github.com/manobala/peer-chat/internal/audit"
	"github.com/manobala/peer-chat/internal/cache"
	"github.com/manobala/peer-chat/internal/config"
	"github.com/manobala/peer-chat/internal/domain"
	"github.com/manobala/peer-chat/internal/hub"
	"github.com/manobala/peer-chat/internal/membership"
	"github.com/manobala/peer-chat/internal/metrics"
	"github.com/manobala/peer-chat/internal/repository"
	"github.com/manobala/peer-chat/pkg/log"
)

type gatewayServiceImpl struct {
	forumRepo   repository.ForumRepository
	chatRepo    repository.ExpertChatRepository
	users       *userResolver
	cache       cache.Cache
	tracker     *membership.Tracker
	joiner      ChannelJoiner
	chatCfg     config.ChatConfig
}

func NewGatewayService(
	forumRepo repository.ForumRepository,
	chatRepo repository.ExpertChatRepository,
	dir repository.UserDirectory,
	c cache.Cache,
	tracker *membership.Tracker,
	joiner ChannelJoiner,
	cacheCfg config.CacheConfig,
	chatCfg config.ChatConfig,
) GatewayService {
	return &gatewayServiceImpl{
		forumRepo:   forumRepo,
		chatRepo:    chatRepo,
		users:       newUserResolver(dir, c, cacheCfg.UserTTL),
		cache:       c,
		tracker:     tracker,
		joiner:      joiner,
		chatCfg:     chatCfg,
	}
}

func (s *gatewayServiceImpl) HandleConnect(ctx context.Context, c *hub.Client) error {
	ttl := s.chatCfg.TypingTTL
	if ttl <= 0 {
		ttl = 3 * time.Second
	}
	audit.Log(ctx, audit.ActionConnect, c.UserID, c.ID, "realtime connection opened")
	return c.SendMessage(&domain.ConnectedEvent{
		Type:         domain.MsgTypeConnected,
		ConnectionID: c.ID,
		UserID:       c.UserID,
		Transport:    c.Transport(),
		TypingTTLMs:  ttl.Milliseconds(),
	})
}

func (s *gatewayServiceImpl) HandleDisconnect(ctx context.Context, c *hub.Client) {
	audit.Log(ctx, audit.ActionDisconnect, c.UserID, c.ID, "realtime connection closed")
}

// HandleJoinRoom adds the connection to a forum room. Ids outside the room
// namespace, such as legacy "expert-chat-" ids, are rejected as malformed.
func (s *gatewayServiceImpl) HandleJoinRoom(ctx context.Context, c *hub.Client, roomID string) error {
	ch, err := domain.ParseChannel(string(domain.ChannelRoom), roomID)
	if err != nil {
		return s.fail(c, err)
	}

	room, err := s.forumRepo.GetRoom(ctx, roomID)
	if err != nil {
		return s.fail(c, err)
	}

	joined, err := s.joiner.Join(c, ch)
	if err != nil {
		return err
	}
	if joined {
		metrics.ChannelJoins.WithLabelValues(string(domain.ChannelRoom)).Inc()
		audit.Log(ctx, audit.ActionJoinRoom, c.UserID, roomID, "joined forum room")

		storeCtx, cancel := storeContext(ctx, s.chatCfg.StoreTimeout)
		count, err := s.forumRepo.IncrementMemberCount(storeCtx, roomID)
		if err != nil {
			l := log.Ctx(ctx)
			l.Warn().Err(err).Str(log.FieldRoomID, roomID).Msg("failed to bump member count")
		} else {
			room.MemberCount = count
			invalidateRooms(storeCtx, s.cache)
		}
		cancel()
	}
	room.Online = s.tracker.Count(ch)

	return c.SendMessage(&domain.JoinedRoomEvent{
		Type:        domain.MsgTypeJoinedRoom,
		ChannelType: domain.ChannelRoom,
		ChannelID:   roomID,
		Room:        room,
		Online:      room.Online,
	})
}

func (s *gatewayServiceImpl) HandleLeaveRoom(ctx context.Context, c *hub.Client, roomID string) error {
	ch, err := domain.ParseChannel(string(domain.ChannelRoom), roomID)
	if err != nil {
		return s.fail(c, err)
	}
	if s.tracker.Leave(c.ID, ch) {
		audit.Log(ctx, audit.ActionLeaveRoom, c.UserID, roomID, "left forum room")
	}
	return c.SendMessage(&domain.LeftRoomEvent{
		Type:        domain.MsgTypeLeftRoom,
		ChannelType: domain.ChannelRoom,
		ChannelID:   roomID,
	})
}

// HandleJoinExpertChat adds the connection to a session channel after the
// store confirms the caller participates in the session.
func (s *gatewayServiceImpl) HandleJoinExpertChat(ctx context.Context, c *hub.Client, sessionID string) error {
	ch, err := domain.ParseChannel(string(domain.ChannelExpertSession), sessionID)
	if err != nil {
		return s.fail(c, err)
	}

	session, err := s.chatRepo.GetSession(ctx, sessionID, c.UserID)
	if err != nil {
		if errors.Is(err, domain.ErrForbidden) {
			audit.LogWithDetail(ctx, audit.ActionForbidden, c.UserID, sessionID, "join_expert_chat", "non-participant join rejected")
		}
		return s.fail(c, err)
	}

	joined, err := s.joiner.Join(c, ch)
	if err != nil {
		return err
	}
	if joined {
		metrics.ChannelJoins.WithLabelValues(string(domain.ChannelExpertSession)).Inc()
		audit.Log(ctx, audit.ActionJoinExpertChat, c.UserID, sessionID, "joined expert chat")
	}

	resolved := []domain.ExpertChatSession{*session}
	s.users.ResolveSessions(ctx, resolved)

	return c.SendMessage(&domain.JoinedRoomEvent{
		Type:        domain.MsgTypeJoinedRoom,
		ChannelType: domain.ChannelExpertSession,
		ChannelID:   sessionID,
		Session:     &resolved[0],
		Online:      s.tracker.Count(ch),
	})
}

func (s *gatewayServiceImpl) HandleLeaveExpertChat(ctx context.Context, c *hub.Client, sessionID string) error {
	ch, err := domain.ParseChannel(string(domain.ChannelExpertSession), sessionID)
	if err != nil {
		return s.fail(c, err)
	}
	s.tracker.Leave(c.ID, ch)
	return c.SendMessage(&domain.LeftRoomEvent{
		Type:        domain.MsgTypeLeftRoom,
		ChannelType: domain.ChannelExpertSession,
		ChannelID:   sessionID,
	})
}

// HandleTyping relays a typing signal to the other members of a channel
// the connection has joined. Signals for other channels are dropped.
func (s *gatewayServiceImpl) HandleTyping(ctx context.Context, c *hub.Client, channelType, channelID string) error {
	ch, err := domain.ParseChannel(channelType, channelID)
	if err != nil {
		return s.fail(c, err)
	}
	if !s.tracker.IsMember(c.ID, ch) {
		l := log.Ctx(ctx)
		l.Debug().Str(log.FieldConnectionID, c.ID).Str(log.FieldChannel, ch.String()).Msg("typing from non-member dropped")
		return nil
	}

	return s.joiner.Broadcast(ch, &domain.UserTypingEvent{
		Type:        domain.MsgTypeUserTyping,
		ChannelType: ch.Kind,
		ChannelID:   ch.ID,
		UserID:      c.UserID,
	}, c.ID)
}

// fail reports err to the connection and returns it for logging.
func (s *gatewayServiceImpl) fail(c *hub.Client, err error) error {
	if sendErr := c.SendMessage(domain.NewErrorEvent(domain.ErrorCode(err), domain.PublicMessage(err))); sendErr != nil {
		return errors.Join(err, sendErr)
	}
	return err
}
