package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/manobala/peer-chat/internal/audit"
	"github.com/manobala/peer-chat/internal/cache"
	"github.com/manobala/peer-chat/internal/config"
	"github.com/manobala/peer-chat/internal/domain"
	"github.com/manobala/peer-chat/internal/membership"
	"github.com/manobala/peer-chat/internal/metrics"
	"github.com/manobala/peer-chat/internal/repository"
	"github.com/manobala/peer-chat/pkg/log"
	"github.com/manobala/peer-chat/pkg/pubsub"
)

type forumServiceImpl struct {
	repo        repository.ForumRepository
	users       *userResolver
	cache       cache.Cache
	tracker     *membership.Tracker
	broadcaster Broadcaster
	publisher   pubsub.Publisher
	locks       *channelLocks
	sf          singleflight.Group
	roomsTTL    time.Duration
	chatCfg     config.ChatConfig
}

func NewForumService(
	repo repository.ForumRepository,
	dir repository.UserDirectory,
	c cache.Cache,
	tracker *membership.Tracker,
	broadcaster Broadcaster,
	publisher pubsub.Publisher,
	cacheCfg config.CacheConfig,
	chatCfg config.ChatConfig,
) ForumService {
	return &forumServiceImpl{
		repo:        repo,
		users:       newUserResolver(dir, c, cacheCfg.UserTTL),
		cache:       c,
		tracker:     tracker,
		broadcaster: broadcaster,
		publisher:   publisher,
		locks:       newChannelLocks(),
		roomsTTL:    cacheCfg.RoomsTTL,
		chatCfg:     chatCfg,
	}
}

// ListRooms returns the room listing with live online counts.
func (s *forumServiceImpl) ListRooms(ctx context.Context) ([]domain.Room, error) {
	cached, err := s.cache.GetRooms(ctx)
	if err != nil {
		if !errors.Is(err, cache.ErrCacheMiss) {
			l := log.Ctx(ctx)
			l.Warn().Err(err).Msg("cache get error")
		}
		result, err, _ := s.sf.Do("rooms", func() (interface{}, error) {
			return s.loadRooms(ctx)
		})
		if err != nil {
			return nil, err
		}
		cached = result.([]domain.Room)
	}

	rooms := make([]domain.Room, len(cached))
	copy(rooms, cached)
	for i := range rooms {
		rooms[i].Online = s.tracker.Count(domain.RoomChannel(rooms[i].ID))
	}
	return rooms, nil
}

func (s *forumServiceImpl) loadRooms(ctx context.Context) ([]domain.Room, error) {
	rooms, err := s.repo.ListRooms(ctx)
	if err != nil {
		return nil, err
	}

	go func() {
		cacheCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		if err := s.cache.SetRooms(cacheCtx, rooms, s.roomsTTL); err != nil {
			l := log.L()
			l.Warn().Err(err).Msg("cache set error")
		}
	}()
	return rooms, nil
}

// JoinRoom bumps the cosmetic total-joins counter and drops the cached
// listing that still carries the old count.
func (s *forumServiceImpl) JoinRoom(ctx context.Context, roomID string) (int, error) {
	storeCtx, cancel := s.storeContext(ctx)
	defer cancel()
	count, err := s.repo.IncrementMemberCount(storeCtx, roomID)
	if err != nil {
		return 0, err
	}
	invalidateRooms(storeCtx, s.cache)
	return count, nil
}

func invalidateRooms(ctx context.Context, c cache.Cache) {
	if err := c.InvalidateRooms(ctx); err != nil {
		l := log.Ctx(ctx)
		l.Warn().Err(err).Msg("cache invalidate error")
	}
}

func (s *forumServiceImpl) ListRoomMessages(ctx context.Context, roomID string, page, pageSize int) (*domain.MessagePage, error) {
	if page < 1 {
		page = 1
	}
	if pageSize < 1 {
		pageSize = s.chatCfg.PageSize
	}
	if s.chatCfg.MaxPageSize > 0 && pageSize > s.chatCfg.MaxPageSize {
		pageSize = s.chatCfg.MaxPageSize
	}

	result, err := s.repo.ListRoomMessages(ctx, roomID, page, pageSize)
	if err != nil {
		return nil, err
	}
	if result.Room != nil {
		result.Room.Online = s.tracker.Count(domain.RoomChannel(roomID))
	}
	s.users.ResolveRoomMessages(ctx, result.Messages)
	return result, nil
}

// PostRoomMessage persists a message, then broadcasts and publishes it. The
// room lock is held across all steps so members and consumers see store
// order.
func (s *forumServiceImpl) PostRoomMessage(ctx context.Context, roomID, authorID string, req *domain.PostRoomMessageRequest) (*domain.RoomMessage, error) {
	ch := domain.RoomChannel(roomID)
	storeCtx, cancel := s.storeContext(ctx)
	defer cancel()

	unlock := s.locks.Lock(ch)
	msg, err := s.repo.AppendRoomMessage(storeCtx, roomID, authorID, req.Content, req.IsAnonymous)
	if err != nil {
		unlock()
		return nil, err
	}
	metrics.MessagesPersisted.WithLabelValues(string(domain.ChannelRoom)).Inc()

	msg = s.resolve(storeCtx, msg)

	s.broadcast(ctx, ch, &domain.NewMessageEvent{Type: domain.MsgTypeNewMessage, Message: *msg})
	s.publish(ctx, pubsub.EventRoomMessageCreated, roomID, msg)
	unlock()
	return msg, nil
}

func (s *forumServiceImpl) AddReaction(ctx context.Context, messageID, userID, kind string) (*domain.RoomMessage, error) {
	reaction, err := domain.ParseReactionKind(kind)
	if err != nil {
		return nil, err
	}
	return s.updateMessage(ctx, messageID, pubsub.EventRoomReactionUpdated, func(storeCtx context.Context) (*domain.RoomMessage, error) {
		return s.repo.AddReaction(storeCtx, messageID, userID, reaction)
	})
}

func (s *forumServiceImpl) AddReply(ctx context.Context, messageID, userID string, req *domain.ReplyRequest) (*domain.RoomMessage, error) {
	return s.updateMessage(ctx, messageID, pubsub.EventRoomReplyAdded, func(storeCtx context.Context) (*domain.RoomMessage, error) {
		return s.repo.AppendReply(storeCtx, messageID, req.Content, userID, req.IsAnonymous)
	})
}

// updateMessage applies write under the lock of the message's room and
// broadcasts the updated message.
func (s *forumServiceImpl) updateMessage(
	ctx context.Context,
	messageID string,
	eventType string,
	write func(context.Context) (*domain.RoomMessage, error),
) (*domain.RoomMessage, error) {
	storeCtx, cancel := s.storeContext(ctx)
	defer cancel()

	current, err := s.repo.GetRoomMessage(storeCtx, messageID)
	if err != nil {
		return nil, err
	}
	if current.IsDeleted {
		return nil, fmt.Errorf("%w: message not found", domain.ErrNotFound)
	}
	ch := domain.RoomChannel(current.RoomID)

	unlock := s.locks.Lock(ch)
	msg, err := write(storeCtx)
	if err != nil {
		unlock()
		return nil, err
	}
	msg = s.resolve(storeCtx, msg)

	s.broadcast(ctx, ch, &domain.MessageUpdatedEvent{Type: domain.MsgTypeMessageUpdated, Message: *msg})
	s.publish(ctx, eventType, current.RoomID, msg)
	unlock()
	return msg, nil
}

// DeleteMessage soft-deletes the caller's own message.
func (s *forumServiceImpl) DeleteMessage(ctx context.Context, messageID, userID string) error {
	storeCtx, cancel := s.storeContext(ctx)
	defer cancel()

	current, err := s.repo.GetRoomMessage(storeCtx, messageID)
	if err != nil {
		return err
	}
	ch := domain.RoomChannel(current.RoomID)

	unlock := s.locks.Lock(ch)
	msg, err := s.repo.SoftDeleteRoomMessage(storeCtx, messageID, userID)
	if err != nil {
		unlock()
		if errors.Is(err, domain.ErrForbidden) {
			audit.LogWithDetail(ctx, audit.ActionForbidden, userID, messageID, "delete", "delete of another user's message rejected")
		}
		return err
	}
	s.broadcast(ctx, ch, &domain.MessageDeletedEvent{
		Type:      domain.MsgTypeMessageDeleted,
		RoomID:    msg.RoomID,
		MessageID: msg.ID,
	})
	s.publish(ctx, pubsub.EventRoomMessageDeleted, msg.RoomID, map[string]string{"message_id": msg.ID})
	unlock()

	audit.Log(ctx, audit.ActionDeleteMessage, userID, messageID, "room message deleted")
	return nil
}

func (s *forumServiceImpl) resolve(ctx context.Context, msg *domain.RoomMessage) *domain.RoomMessage {
	resolved := []domain.RoomMessage{*msg}
	s.users.ResolveRoomMessages(ctx, resolved)
	return &resolved[0]
}

func (s *forumServiceImpl) broadcast(ctx context.Context, ch domain.ChannelID, event interface{}) {
	if err := s.broadcaster.Broadcast(ch, event, ""); err != nil {
		l := log.Ctx(ctx)
		l.Warn().Err(err).Str(log.FieldChannel, ch.String()).Msg("broadcast failed")
	}
}

func (s *forumServiceImpl) publish(ctx context.Context, eventType, roomID string, payload interface{}) {
	publishEvent(ctx, s.publisher, pubsub.RoomChannel(roomID), eventType, roomID, payload)
}

func (s *forumServiceImpl) storeContext(ctx context.Context) (context.Context, context.CancelFunc) {
	return storeContext(ctx, s.chatCfg.StoreTimeout)
}

// storeContext detaches a write from the caller so that a disconnect
// cannot abort it half way, bounding it by timeout instead.
func storeContext(ctx context.Context, timeout time.Duration) (context.Context, context.CancelFunc) {
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	return context.WithTimeout(log.Detach(ctx), timeout)
}

// publishEvent hands a domain event to the publisher. Callers hold the
// channel lock, so events of one channel are handed over in store order.
// Failures are logged.
func publishEvent(ctx context.Context, publisher pubsub.Publisher, channel, eventType, channelID string, payload interface{}) {
	l := log.Ctx(ctx)
	evt, err := pubsub.NewEvent(eventType, channelID, payload)
	if err != nil {
		l.Warn().Err(err).Str("event_type", eventType).Msg("failed to build event")
		return
	}
	if err := publisher.Publish(log.Detach(ctx), channel, evt); err != nil {
		l.Warn().Err(err).Str("event_type", eventType).Msg("failed to publish event")
	}
}
