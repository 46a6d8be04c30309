package service

import (
	"context"
	"errors"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/manobala/peer-chat/internal/cache"
	"github.com/manobala/peer-chat/internal/domain"
	"github.com/manobala/peer-chat/internal/repository"
	"github.com/manobala/peer-chat/pkg/log"
)

// userResolver looks up directory entries through the cache. Concurrent
// misses for the same user share one directory query.
type userResolver struct {
	dir   repository.UserDirectory
	cache cache.Cache
	ttl   time.Duration
	sf    singleflight.Group
}

func newUserResolver(dir repository.UserDirectory, c cache.Cache, ttl time.Duration) *userResolver {
	return &userResolver{dir: dir, cache: c, ttl: ttl}
}

func (r *userResolver) Lookup(ctx context.Context, userID string) (*domain.User, error) {
	cached, err := r.cache.GetUser(ctx, userID)
	if err == nil {
		return cached, nil
	}
	if !errors.Is(err, cache.ErrCacheMiss) {
		l := log.Ctx(ctx)
		l.Warn().Err(err).Msg("cache get error")
	}

	result, err, _ := r.sf.Do("user:"+userID, func() (interface{}, error) {
		user, err := r.dir.GetUser(ctx, userID)
		if err != nil {
			return nil, err
		}
		r.storeAsync(user)
		return user, nil
	})
	if err != nil {
		return nil, err
	}
	return result.(*domain.User), nil
}

// Names returns display names for ids. Lookup failures leave names out;
// presentation falls back to a placeholder rather than failing the call.
func (r *userResolver) Names(ctx context.Context, ids ...string) map[string]string {
	names := make(map[string]string, len(ids))
	var misses []string
	for _, id := range ids {
		if id == "" {
			continue
		}
		if _, seen := names[id]; seen {
			continue
		}
		if user, err := r.cache.GetUser(ctx, id); err == nil {
			names[id] = user.Name
			continue
		}
		names[id] = ""
		misses = append(misses, id)
	}
	if len(misses) == 0 {
		return names
	}

	users, err := r.dir.GetUsers(ctx, misses)
	if err != nil {
		l := log.Ctx(ctx)
		l.Warn().Err(err).Int("count", len(misses)).Msg("failed to resolve display names")
		return names
	}
	for id := range users {
		user := users[id]
		names[id] = user.Name
		r.storeAsync(&user)
	}
	return names
}

func (r *userResolver) storeAsync(user *domain.User) {
	go func() {
		cacheCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		if err := r.cache.SetUser(cacheCtx, user, r.ttl); err != nil {
			l := log.L()
			l.Warn().Err(err).Msg("cache set error")
		}
	}()
}

func (r *userResolver) resolveRoomMessage(msg *domain.RoomMessage, names map[string]string) {
	msg.Author = domain.ResolveAuthor(msg.AuthorID, msg.IsAnonymous, names)
	for i := range msg.Replies {
		reply := &msg.Replies[i]
		reply.Author = domain.ResolveAuthor(reply.AuthorID, reply.IsAnonymous, names)
	}
}

func (r *userResolver) ResolveRoomMessages(ctx context.Context, msgs []domain.RoomMessage) {
	var ids []string
	for _, m := range msgs {
		if !m.IsAnonymous {
			ids = append(ids, m.AuthorID)
		}
		for _, reply := range m.Replies {
			if !reply.IsAnonymous {
				ids = append(ids, reply.AuthorID)
			}
		}
	}
	names := r.Names(ctx, ids...)
	for i := range msgs {
		r.resolveRoomMessage(&msgs[i], names)
	}
}

func (r *userResolver) ResolveSessions(ctx context.Context, sessions []domain.ExpertChatSession) {
	ids := make([]string, 0, len(sessions)*2)
	for _, s := range sessions {
		ids = append(ids, s.UserID, s.ExpertID)
	}
	names := r.Names(ctx, ids...)
	for i := range sessions {
		s := &sessions[i]
		s.User = domain.ResolveAuthor(s.UserID, false, names)
		s.Expert = domain.ResolveAuthor(s.ExpertID, false, names)
	}
}

func (r *userResolver) ResolveSessionMessages(ctx context.Context, msgs []domain.ExpertChatMessage) {
	ids := make([]string, 0, len(msgs))
	for _, m := range msgs {
		ids = append(ids, m.SenderID)
	}
	names := r.Names(ctx, ids...)
	for i := range msgs {
		msgs[i].Sender = domain.ResolveAuthor(msgs[i].SenderID, false, names)
	}
}
