package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/manobala/peer-chat/internal/audit"
	"github.com/manobala/peer-chat/internal/cache"
	"github.com/manobala/peer-chat/internal/config"
	"github.com/manobala/peer-chat/internal/domain"
	"github.com/manobala/peer-chat/internal/metrics"
	"github.com/manobala/peer-chat/internal/repository"
	"github.com/manobala/peer-chat/pkg/log"
	"github.com/manobala/peer-chat/pkg/pubsub"
)

var errExpertNotFound = fmt.Errorf("%w: expert not found", domain.ErrNotFound)

type expertChatServiceImpl struct {
	repo        repository.ExpertChatRepository
	dir         repository.UserDirectory
	users       *userResolver
	broadcaster Broadcaster
	publisher   pubsub.Publisher
	locks       *channelLocks
	chatCfg     config.ChatConfig
}

func NewExpertChatService(
	repo repository.ExpertChatRepository,
	dir repository.UserDirectory,
	c cache.Cache,
	broadcaster Broadcaster,
	publisher pubsub.Publisher,
	cacheCfg config.CacheConfig,
	chatCfg config.ChatConfig,
) ExpertChatService {
	return &expertChatServiceImpl{
		repo:        repo,
		dir:         dir,
		users:       newUserResolver(dir, c, cacheCfg.UserTTL),
		broadcaster: broadcaster,
		publisher:   publisher,
		locks:       newChannelLocks(),
		chatCfg:     chatCfg,
	}
}

func (s *expertChatServiceImpl) ListExperts(ctx context.Context) ([]domain.User, error) {
	return s.dir.ListExperts(ctx)
}

// ListChats lists the caller's sessions. The caller's role comes from the
// directory: experts see the chats addressed to them.
func (s *expertChatServiceImpl) ListChats(ctx context.Context, userID string) ([]domain.ExpertChatSession, error) {
	asExpert := false
	user, err := s.users.Lookup(ctx, userID)
	switch {
	case err == nil:
		asExpert = user.IsExpert
	case !errors.Is(err, domain.ErrNotFound):
		return nil, err
	}

	sessions, err := s.repo.ListSessionsFor(ctx, userID, asExpert)
	if err != nil {
		return nil, err
	}
	s.users.ResolveSessions(ctx, sessions)
	return sessions, nil
}

// StartChat returns the caller's session with expertID, creating it on
// first use. Repeated calls return the same session.
func (s *expertChatServiceImpl) StartChat(ctx context.Context, userID, expertID string) (*domain.ExpertChatSession, error) {
	if expertID == "" {
		return nil, fmt.Errorf("%w: expertId is required", domain.ErrValidation)
	}
	expert, err := s.users.Lookup(ctx, expertID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, errExpertNotFound
		}
		return nil, err
	}
	if !expert.IsExpert {
		return nil, errExpertNotFound
	}

	storeCtx, cancel := storeContext(ctx, s.chatCfg.StoreTimeout)
	defer cancel()

	session, created, err := s.repo.GetOrCreateSession(storeCtx, userID, expertID)
	if err != nil {
		return nil, err
	}
	if created {
		metrics.SessionsCreated.Inc()
		audit.Log(ctx, audit.ActionStartChat, userID, session.ID, "expert chat started")
		publishEvent(ctx, s.publisher, pubsub.SessionChannel(session.ID), pubsub.EventSessionCreated, session.ID, session)
	}

	resolved := []domain.ExpertChatSession{*session}
	s.users.ResolveSessions(ctx, resolved)
	return &resolved[0], nil
}

func (s *expertChatServiceImpl) ListMessages(ctx context.Context, sessionID, userID string) ([]domain.ExpertChatMessage, error) {
	messages, err := s.repo.ListSessionMessages(ctx, sessionID, userID)
	if err != nil {
		if errors.Is(err, domain.ErrForbidden) {
			audit.LogWithDetail(ctx, audit.ActionForbidden, userID, sessionID, "list_messages", "non-participant read rejected")
		}
		return nil, err
	}
	s.users.ResolveSessionMessages(ctx, messages)
	return messages, nil
}

// SendMessage persists a session message, then broadcasts and publishes it
// under the session lock.
func (s *expertChatServiceImpl) SendMessage(ctx context.Context, sessionID, senderID string, req *domain.PostSessionMessageRequest) (*domain.ExpertChatMessage, error) {
	ch := domain.SessionChannel(sessionID)
	storeCtx, cancel := storeContext(ctx, s.chatCfg.StoreTimeout)
	defer cancel()

	unlock := s.locks.Lock(ch)
	msg, err := s.repo.AppendSessionMessage(storeCtx, sessionID, senderID, req.Content)
	if err != nil {
		unlock()
		if errors.Is(err, domain.ErrForbidden) {
			audit.LogWithDetail(ctx, audit.ActionForbidden, senderID, sessionID, "send_message", "non-participant send rejected")
		}
		return nil, err
	}
	metrics.MessagesPersisted.WithLabelValues(string(domain.ChannelExpertSession)).Inc()

	resolved := []domain.ExpertChatMessage{*msg}
	s.users.ResolveSessionMessages(storeCtx, resolved)
	msg = &resolved[0]

	event := &domain.ExpertChatMessageEvent{
		Type:      domain.MsgTypeExpertChatMessage,
		SessionID: sessionID,
		Message:   *msg,
	}
	if err := s.broadcaster.Broadcast(ch, event, ""); err != nil {
		l := log.Ctx(ctx)
		l.Warn().Err(err).Str(log.FieldSessionID, sessionID).Msg("broadcast failed")
	}
	publishEvent(ctx, s.publisher, pubsub.SessionChannel(sessionID), pubsub.EventSessionMessageCreated, sessionID, msg)
	unlock()
	return msg, nil
}
