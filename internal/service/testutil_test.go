package service

import (
	"context"
	"encoding/json"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/manobala/peer-chat/internal/cache"
	"github.com/manobala/peer-chat/internal/config"
	"github.com/manobala/peer-chat/internal/domain"
	"github.com/manobala/peer-chat/internal/hub"
	"github.com/manobala/peer-chat/internal/membership"
	"github.com/manobala/peer-chat/internal/repository"
	"github.com/manobala/peer-chat/pkg/database"
	"github.com/manobala/peer-chat/pkg/pubsub"
)

var (
	testWSConfig = config.WebSocketConfig{
		SendBufferSize: 256,
		MaxMessageSize: 8192,
		WriteWait:      time.Second,
		PongWait:       time.Minute,
		PingInterval:   50 * time.Second,
	}
	testCacheConfig = config.CacheConfig{RoomsTTL: time.Minute, UserTTL: time.Minute}
	testChatConfig  = config.ChatConfig{
		PageSize:      50,
		MaxPageSize:   100,
		TypingTTL:     3 * time.Second,
		PreviewLength: 120,
		StoreTimeout:  5 * time.Second,
	}
)

type testEnv struct {
	db        *gorm.DB
	forumRepo *repository.GormForumRepository
	chatRepo  *repository.GormExpertChatRepository
	dir       *repository.GormUserDirectory
	tracker   *membership.Tracker
	hub       *hub.Hub
	forum     ForumService
	chat      ExpertChatService
	gateway   GatewayService
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	db, err := database.New(&database.Config{
		Driver:   "sqlite",
		FilePath: "file:" + uuid.NewString() + "?mode=memory&cache=shared&_foreign_keys=on",
		LogLevel: "silent",
	}, zerolog.Nop())
	require.NoError(t, err)
	require.NoError(t, database.AutoMigrate(db, domain.Models()...))
	t.Cleanup(func() { _ = database.Close(db) })

	tracker := membership.NewTracker()
	h := hub.NewHub(testWSConfig, config.PollConfig{IdleTimeout: time.Minute}, tracker)
	ctx, cancel := context.WithCancel(context.Background())
	go h.Run(ctx)
	t.Cleanup(cancel)

	env := &testEnv{
		db:        db,
		forumRepo: repository.NewGormForumRepository(db),
		chatRepo:  repository.NewGormExpertChatRepository(db, testChatConfig.PreviewLength),
		dir:       repository.NewGormUserDirectory(db),
		tracker:   tracker,
		hub:       h,
	}
	var c cache.Cache = cache.NopCache{}
	var pub pubsub.Publisher = pubsub.NopPublisher{}
	env.forum = NewForumService(env.forumRepo, env.dir, c, tracker, h, pub, testCacheConfig, testChatConfig)
	env.chat = NewExpertChatService(env.chatRepo, env.dir, c, h, pub, testCacheConfig, testChatConfig)
	env.gateway = NewGatewayService(env.forumRepo, env.chatRepo, env.dir, c, tracker, h, testCacheConfig, testChatConfig)
	return env
}

// recordingPublisher keeps the payload ids of published events in the
// order Publish was called.
type recordingPublisher struct {
	mu  sync.Mutex
	ids []string
}

func (p *recordingPublisher) Publish(_ context.Context, _ string, event *pubsub.Event) error {
	var payload struct {
		ID string `json:"id"`
	}
	if err := event.UnmarshalPayload(&payload); err != nil {
		return err
	}
	p.mu.Lock()
	p.ids = append(p.ids, payload.ID)
	p.mu.Unlock()
	return nil
}

func (p *recordingPublisher) Close() error { return nil }

func (p *recordingPublisher) published() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]string(nil), p.ids...)
}

// listingCache misses like NopCache and counts room listing invalidations.
type listingCache struct {
	cache.NopCache
	mu            sync.Mutex
	invalidations int
}

func (c *listingCache) InvalidateRooms(context.Context) error {
	c.mu.Lock()
	c.invalidations++
	c.mu.Unlock()
	return nil
}

func (c *listingCache) count() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.invalidations
}

func (e *testEnv) room(t *testing.T) domain.Room {
	t.Helper()
	room := domain.Room{
		Name:     "Anxiety Support Circle",
		Type:     domain.RoomTypeAnxietySupport,
		Category: domain.CategoryMentalWellness,
	}
	_, err := e.forumRepo.EnsureRoom(context.Background(), &room)
	require.NoError(t, err)
	return room
}

func (e *testEnv) user(t *testing.T, id, name string, expert bool) {
	t.Helper()
	require.NoError(t, e.dir.UpsertUser(context.Background(), &domain.User{ID: id, Name: name, IsExpert: expert}))
}

// connect registers a polling connection for userID.
func (e *testEnv) connect(t *testing.T, userID string) *hub.Client {
	t.Helper()
	c := hub.NewPollingClient(uuid.NewString(), userID, e.hub, testWSConfig)
	require.NoError(t, e.hub.Register(c))
	return c
}

type wireEvent struct {
	Type      string          `json:"type"`
	Code      string          `json:"code"`
	SessionID string          `json:"session_id"`
	ChannelID string          `json:"channel_id"`
	UserID    string          `json:"user_id"`
	Online    int             `json:"online"`
	Message   json.RawMessage `json:"message"`
}

type wireMessage struct {
	ID      string `json:"id"`
	Content string `json:"content"`
	Author  struct {
		ID   string `json:"id"`
		Name string `json:"name"`
	} `json:"author"`
	Sender struct {
		ID   string `json:"id"`
		Name string `json:"name"`
	} `json:"sender"`
}

// events drains everything the connection receives within wait.
func events(t *testing.T, c *hub.Client, wait time.Duration) []wireEvent {
	t.Helper()
	var out []wireEvent
	deadline := time.Now().Add(wait)
	for {
		remaining := time.Until(deadline)
		if remaining <= 0 {
			return out
		}
		batch, err := c.Drain(context.Background(), remaining, 256)
		require.NoError(t, err)
		for _, raw := range batch {
			var evt wireEvent
			require.NoError(t, json.Unmarshal(raw, &evt))
			out = append(out, evt)
		}
	}
}

func ofType(evts []wireEvent, typ string) []wireEvent {
	var out []wireEvent
	for _, e := range evts {
		if e.Type == typ {
			out = append(out, e)
		}
	}
	return out
}

func decodeMessage(t *testing.T, evt wireEvent) wireMessage {
	t.Helper()
	var m wireMessage
	require.NoError(t, json.Unmarshal(evt.Message, &m))
	return m
}
