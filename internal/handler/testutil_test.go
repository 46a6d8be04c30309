package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/manobala/peer-chat/internal/cache"
	"github.com/manobala/peer-chat/internal/config"
	"github.com/manobala/peer-chat/internal/domain"
	"github.com/manobala/peer-chat/internal/hub"
	"github.com/manobala/peer-chat/internal/membership"
	"github.com/manobala/peer-chat/internal/repository"
	"github.com/manobala/peer-chat/internal/service"
	"github.com/manobala/peer-chat/pkg/database"
	"github.com/manobala/peer-chat/pkg/jwt"
	"github.com/manobala/peer-chat/pkg/middleware"
	"github.com/manobala/peer-chat/pkg/pubsub"
)

type testServer struct {
	srv       *httptest.Server
	jwt       *jwt.Manager
	hub       *hub.Hub
	tracker   *membership.Tracker
	forumRepo *repository.GormForumRepository
	dir       *repository.GormUserDirectory
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	gin.SetMode(gin.TestMode)

	db, err := database.New(&database.Config{
		Driver:   "sqlite",
		FilePath: "file:" + uuid.NewString() + "?mode=memory&cache=shared&_foreign_keys=on",
		LogLevel: "silent",
	}, zerolog.Nop())
	require.NoError(t, err)
	require.NoError(t, database.AutoMigrate(db, domain.Models()...))

	wsCfg := config.WebSocketConfig{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		SendBufferSize:  256,
		MaxMessageSize:  8192,
		WriteWait:       time.Second,
		PongWait:        time.Minute,
		PingInterval:    50 * time.Second,
	}
	pollCfg := config.PollConfig{Wait: 300 * time.Millisecond, IdleTimeout: time.Minute, MaxBatch: 64}
	cacheCfg := config.CacheConfig{RoomsTTL: time.Minute, UserTTL: time.Minute}
	chatCfg := config.ChatConfig{PageSize: 50, MaxPageSize: 100, TypingTTL: 3 * time.Second, PreviewLength: 120, StoreTimeout: 5 * time.Second}

	tracker := membership.NewTracker()
	h := hub.NewHub(wsCfg, pollCfg, tracker)
	ctx, cancel := context.WithCancel(context.Background())
	go h.Run(ctx)

	forumRepo := repository.NewGormForumRepository(db)
	chatRepo := repository.NewGormExpertChatRepository(db, chatCfg.PreviewLength)
	dir := repository.NewGormUserDirectory(db)
	var c cache.Cache = cache.NopCache{}
	var pub pubsub.Publisher = pubsub.NopPublisher{}

	forum := service.NewForumService(forumRepo, dir, c, tracker, h, pub, cacheCfg, chatCfg)
	chat := service.NewExpertChatService(chatRepo, dir, c, h, pub, cacheCfg, chatCfg)
	gateway := service.NewGatewayService(forumRepo, chatRepo, dir, c, tracker, h, cacheCfg, chatCfg)

	manager, err := jwt.NewManager("test-secret", "peer-chat", time.Hour)
	require.NoError(t, err)
	auth := middleware.NewAuthMiddleware(manager)
	dispatcher := NewIntentDispatcher(gateway)

	r := gin.New()
	NewHandler(forum, chat, auth).RegisterRoutes(r)
	NewWSHandler(h, gateway, dispatcher, auth, wsCfg, nil).RegisterRoutes(r)
	NewPollHandler(h, gateway, dispatcher, auth, wsCfg, pollCfg).RegisterRoutes(r)

	srv := httptest.NewServer(r)
	t.Cleanup(func() {
		srv.Close()
		cancel()
		_ = database.Close(db)
	})

	return &testServer{
		srv:       srv,
		jwt:       manager,
		hub:       h,
		tracker:   tracker,
		forumRepo: forumRepo,
		dir:       dir,
	}
}

func (s *testServer) token(t *testing.T, userID string) string {
	t.Helper()
	token, err := s.jwt.Issue(userID)
	require.NoError(t, err)
	return token
}

func (s *testServer) room(t *testing.T) domain.Room {
	t.Helper()
	room := domain.Room{Name: "Anxiety Support Circle", Type: domain.RoomTypeAnxietySupport, Category: domain.CategoryMentalWellness}
	_, err := s.forumRepo.EnsureRoom(context.Background(), &room)
	require.NoError(t, err)
	return room
}

func (s *testServer) user(t *testing.T, id, name string, expert bool) {
	t.Helper()
	require.NoError(t, s.dir.UpsertUser(context.Background(), &domain.User{ID: id, Name: name, IsExpert: expert}))
}

// do sends an authenticated request as userID; an empty userID sends none.
func (s *testServer) do(t *testing.T, method, path, userID string, body interface{}) (int, map[string]json.RawMessage) {
	t.Helper()

	var reader io.Reader
	switch b := body.(type) {
	case nil:
	case string:
		reader = strings.NewReader(b)
	default:
		data, err := json.Marshal(b)
		require.NoError(t, err)
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequest(method, s.srv.URL+path, reader)
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")
	if userID != "" {
		req.Header.Set("Authorization", "Bearer "+s.token(t, userID))
	}

	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	out := map[string]json.RawMessage{}
	data, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	if len(data) > 0 {
		require.NoError(t, json.Unmarshal(data, &out), string(data))
	}
	return resp.StatusCode, out
}

// dial opens a websocket as userID with the token in the query string.
func (s *testServer) dial(t *testing.T, userID, connID string) (*websocket.Conn, *http.Response, error) {
	t.Helper()
	u := "ws" + strings.TrimPrefix(s.srv.URL, "http") + "/socket/ws?token=" + s.token(t, userID)
	if connID != "" {
		u += "&connection_id=" + connID
	}
	conn, resp, err := websocket.DefaultDialer.Dial(u, nil)
	if err == nil {
		t.Cleanup(func() { conn.Close() })
	}
	return conn, resp, err
}

type event struct {
	Type         string          `json:"type"`
	Code         string          `json:"code"`
	ConnectionID string          `json:"connection_id"`
	ChannelID    string          `json:"channel_id"`
	UserID       string          `json:"user_id"`
	Message      json.RawMessage `json:"message"`
}

// readUntil reads websocket events until one of type typ arrives.
func readUntil(t *testing.T, conn *websocket.Conn, typ string) event {
	t.Helper()
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	for {
		var evt event
		require.NoError(t, conn.ReadJSON(&evt))
		if evt.Type == typ {
			return evt
		}
	}
}

// pollEvents drains one poll of a polling connection.
func (s *testServer) pollEvents(t *testing.T, userID, connID string) (int, []event) {
	t.Helper()
	status, body := s.do(t, http.MethodGet, "/socket/poll/"+connID, userID, nil)
	var evts []event
	if raw, ok := body["events"]; ok {
		require.NoError(t, json.Unmarshal(raw, &evts))
	}
	return status, evts
}

func decode(t *testing.T, raw json.RawMessage, v interface{}) {
	t.Helper()
	require.NoError(t, json.Unmarshal(raw, v))
}

func eventTypes(evts []event) []string {
	out := make([]string, len(evts))
	for i, e := range evts {
		out[i] = e.Type
	}
	return out
}

func websocketDial(u string) (*websocket.Conn, *http.Response, error) {
	return websocket.DefaultDialer.Dial(u, nil)
}
