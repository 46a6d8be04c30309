package handler

import (
	"encoding/json"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/manobala/peer-chat/internal/domain"
)

func TestAPI_RequiresAuth(t *testing.T) {
	s := newTestServer(t)

	status, body := s.do(t, http.MethodGet, "/api/forum/rooms", "", nil)
	assert.Equal(t, http.StatusUnauthorized, status)
	assert.JSONEq(t, `"UNAUTHORIZED"`, string(body["code"]))
	assert.JSONEq(t, `false`, string(body["success"]))
}

func TestAPI_ForumFlow(t *testing.T) {
	s := newTestServer(t)
	room := s.room(t)
	s.user(t, "u1", "Asha", false)

	status, body := s.do(t, http.MethodGet, "/api/forum/rooms", "u1", nil)
	require.Equal(t, http.StatusOK, status)
	var rooms []domain.Room
	decode(t, body["rooms"], &rooms)
	require.Len(t, rooms, 1)
	assert.Equal(t, room.ID, rooms[0].ID)

	status, body = s.do(t, http.MethodPost, "/api/forum/rooms/"+room.ID+"/messages", "u1",
		domain.PostRoomMessageRequest{Content: "  first post  "})
	require.Equal(t, http.StatusCreated, status)
	var posted domain.RoomMessage
	decode(t, body["message"], &posted)
	assert.Equal(t, "first post", posted.Content)
	assert.Equal(t, "Asha", posted.Author.Name)

	status, body = s.do(t, http.MethodPost, "/api/forum/messages/"+posted.ID+"/reactions", "u1",
		domain.ReactionRequest{Type: "heart"})
	require.Equal(t, http.StatusOK, status)
	var reactions []domain.Reaction
	decode(t, body["reactions"], &reactions)
	require.Len(t, reactions, 1)
	assert.Equal(t, domain.ReactionHeart, reactions[0].Type)

	status, _ = s.do(t, http.MethodPost, "/api/forum/messages/"+posted.ID+"/replies", "u1",
		domain.ReplyRequest{Content: "and a reply"})
	require.Equal(t, http.StatusOK, status)

	status, body = s.do(t, http.MethodGet, "/api/forum/rooms/"+room.ID+"/messages?page=1&limit=10", "u1", nil)
	require.Equal(t, http.StatusOK, status)
	var messages []domain.RoomMessage
	decode(t, body["messages"], &messages)
	require.Len(t, messages, 1)
	var summary domain.Room
	decode(t, body["room"], &summary)
	assert.Equal(t, room.ID, summary.ID)
	assert.Equal(t, room.Name, summary.Name)
	assert.Equal(t, room.Category, summary.Category)
	require.Len(t, messages[0].Replies, 1)
	var pagination domain.Pagination
	decode(t, body["pagination"], &pagination)
	assert.Equal(t, 10, pagination.PageSize)
	assert.Equal(t, 1, pagination.TotalMessages)

	status, body = s.do(t, http.MethodPost, "/api/forum/rooms/"+room.ID+"/join", "u1", nil)
	require.Equal(t, http.StatusOK, status)
	assert.JSONEq(t, `1`, string(body["memberCount"]))
}

func TestAPI_ErrorMapping(t *testing.T) {
	s := newTestServer(t)
	room := s.room(t)

	status, body := s.do(t, http.MethodPost, "/api/forum/rooms/"+room.ID+"/messages", "u1",
		domain.PostRoomMessageRequest{Content: "   "})
	assert.Equal(t, http.StatusBadRequest, status)
	assert.JSONEq(t, `"VALIDATION_ERROR"`, string(body["code"]))

	status, _ = s.do(t, http.MethodPost, "/api/forum/rooms/"+room.ID+"/messages", "u1", "{not json")
	assert.Equal(t, http.StatusBadRequest, status)

	status, body = s.do(t, http.MethodGet, "/api/forum/rooms/"+domain.NewID()+"/messages", "u1", nil)
	assert.Equal(t, http.StatusNotFound, status)
	assert.JSONEq(t, `"NOT_FOUND"`, string(body["code"]))

	status, _ = s.do(t, http.MethodPost, "/api/forum/rooms/"+room.ID+"/messages", "u1",
		domain.PostRoomMessageRequest{Content: "mine"})
	require.Equal(t, http.StatusCreated, status)
	_, body = s.do(t, http.MethodGet, "/api/forum/rooms/"+room.ID+"/messages", "u1", nil)
	var messages []domain.RoomMessage
	decode(t, body["messages"], &messages)
	require.Len(t, messages, 1)

	status, body = s.do(t, http.MethodDelete, "/api/forum/messages/"+messages[0].ID, "u2", nil)
	assert.Equal(t, http.StatusForbidden, status)
	assert.JSONEq(t, `"FORBIDDEN"`, string(body["code"]))

	status, _ = s.do(t, http.MethodDelete, "/api/forum/messages/"+messages[0].ID, "u1", nil)
	assert.Equal(t, http.StatusOK, status)
}

func TestAPI_ExpertChatFlow(t *testing.T) {
	s := newTestServer(t)
	s.user(t, "U1", "Asha", false)
	s.user(t, "E1", "Dr. Rao", true)

	status, body := s.do(t, http.MethodGet, "/api/expert-chat/experts", "U1", nil)
	require.Equal(t, http.StatusOK, status)
	var experts []domain.User
	decode(t, body["experts"], &experts)
	require.Len(t, experts, 1)

	status, _ = s.do(t, http.MethodPost, "/api/expert-chat/chats", "U1", domain.StartChatRequest{ExpertID: "U1"})
	assert.Equal(t, http.StatusNotFound, status)

	status, body = s.do(t, http.MethodPost, "/api/expert-chat/chats", "U1", domain.StartChatRequest{ExpertID: "E1"})
	require.Equal(t, http.StatusOK, status)
	var session domain.ExpertChatSession
	decode(t, body["chat"], &session)
	require.NotEmpty(t, session.ID)

	status, _ = s.do(t, http.MethodPost, "/api/expert-chat/chats/"+session.ID+"/messages", "U1",
		domain.PostSessionMessageRequest{Content: "Hello"})
	require.Equal(t, http.StatusCreated, status)

	status, body = s.do(t, http.MethodGet, "/api/expert-chat/chats/"+session.ID+"/messages", "E1", nil)
	require.Equal(t, http.StatusOK, status)
	var messages []json.RawMessage
	decode(t, body["messages"], &messages)
	assert.Len(t, messages, 1)

	status, _ = s.do(t, http.MethodGet, "/api/expert-chat/chats/"+session.ID+"/messages", "U2", nil)
	assert.Equal(t, http.StatusForbidden, status)

	status, body = s.do(t, http.MethodGet, "/api/expert-chat/chats", "E1", nil)
	require.Equal(t, http.StatusOK, status)
	var chats []domain.ExpertChatSession
	decode(t, body["chats"], &chats)
	require.Len(t, chats, 1)
	assert.Equal(t, session.ID, chats[0].ID)
}
