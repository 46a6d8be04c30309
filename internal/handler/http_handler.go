package handler

import (
	"github.com/gin-gonic/gin"

	"github.com/manobala/peer-chat/internal/domain"
	"github.com/manobala/peer-chat/internal/service"
	"github.com/manobala/peer-chat/pkg/log"
	"github.com/manobala/peer-chat/pkg/middleware"
	"github.com/manobala/peer-chat/pkg/response"
)

// Handler serves the forum and expert chat HTTP API.
type Handler struct {
	forum          service.ForumService
	chat           service.ExpertChatService
	authMiddleware *middleware.AuthMiddleware
}

// NewHandler creates a new HTTP handler.
func NewHandler(forum service.ForumService, chat service.ExpertChatService, authMiddleware *middleware.AuthMiddleware) *Handler {
	return &Handler{
		forum:          forum,
		chat:           chat,
		authMiddleware: authMiddleware,
	}
}

// RegisterRoutes registers all routes. Every route requires a caller.
func (h *Handler) RegisterRoutes(r *gin.Engine) {
	api := r.Group("/api", h.authMiddleware.RequireAuth())
	{
		forum := api.Group("/forum")
		{
			forum.GET("/rooms", h.ListRooms)
			forum.GET("/rooms/:roomId/messages", h.ListRoomMessages)
			forum.POST("/rooms/:roomId/messages", h.PostRoomMessage)
			forum.POST("/rooms/:roomId/join", h.JoinRoom)
			forum.POST("/messages/:messageId/reactions", h.AddReaction)
			forum.POST("/messages/:messageId/replies", h.AddReply)
			forum.DELETE("/messages/:messageId", h.DeleteMessage)
		}

		chat := api.Group("/expert-chat")
		{
			chat.GET("/experts", h.ListExperts)
			chat.GET("/chats", h.ListChats)
			chat.POST("/chats", h.StartChat)
			chat.GET("/chats/:chatId/messages", h.ListChatMessages)
			chat.POST("/chats/:chatId/messages", h.SendChatMessage)
		}
	}
}

func (h *Handler) ListRooms(c *gin.Context) {
	rooms, err := h.forum.ListRooms(c.Request.Context())
	if err != nil {
		writeError(c, err, "failed to list rooms")
		return
	}
	response.Success(c, response.Fields{"rooms": rooms, "totalRooms": len(rooms)})
}

// ListRoomMessages returns one page of a room's history, oldest first,
// with the room summary.
func (h *Handler) ListRoomMessages(c *gin.Context) {
	var req domain.ListRoomMessagesRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		response.BadRequest(c, err.Error())
		return
	}
	if req.PageSize == 0 {
		req.PageSize = req.Limit
	}

	page, err := h.forum.ListRoomMessages(c.Request.Context(), c.Param("roomId"), req.Page, req.PageSize)
	if err != nil {
		writeError(c, err, "failed to list room messages")
		return
	}
	response.Success(c, response.Fields{"room": page.Room, "messages": page.Messages, "pagination": page.Pagination})
}

func (h *Handler) PostRoomMessage(c *gin.Context) {
	ctx := c.Request.Context()
	l := log.Ctx(ctx)

	var req domain.PostRoomMessageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		l.Warn().Err(err).Msg("failed to bind post message request")
		response.BadRequest(c, "Invalid request body")
		return
	}

	msg, err := h.forum.PostRoomMessage(ctx, c.Param("roomId"), middleware.GetUserID(c), &req)
	if err != nil {
		writeError(c, err, "failed to post room message")
		return
	}
	response.Created(c, response.Fields{"message": msg})
}

func (h *Handler) JoinRoom(c *gin.Context) {
	count, err := h.forum.JoinRoom(c.Request.Context(), c.Param("roomId"))
	if err != nil {
		writeError(c, err, "failed to join room")
		return
	}
	response.Success(c, response.Fields{"message": "Joined room successfully", "memberCount": count})
}

func (h *Handler) AddReaction(c *gin.Context) {
	var req domain.ReactionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "Invalid request body")
		return
	}

	msg, err := h.forum.AddReaction(c.Request.Context(), c.Param("messageId"), middleware.GetUserID(c), req.Type)
	if err != nil {
		writeError(c, err, "failed to add reaction")
		return
	}
	response.Success(c, response.Fields{"reactions": msg.Reactions})
}

func (h *Handler) AddReply(c *gin.Context) {
	var req domain.ReplyRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "Invalid request body")
		return
	}

	msg, err := h.forum.AddReply(c.Request.Context(), c.Param("messageId"), middleware.GetUserID(c), &req)
	if err != nil {
		writeError(c, err, "failed to add reply")
		return
	}
	response.Success(c, response.Fields{"message": msg})
}

// DeleteMessage soft-deletes one of the caller's messages.
func (h *Handler) DeleteMessage(c *gin.Context) {
	if err := h.forum.DeleteMessage(c.Request.Context(), c.Param("messageId"), middleware.GetUserID(c)); err != nil {
		writeError(c, err, "failed to delete message")
		return
	}
	response.Success(c, response.Fields{"message": "Message deleted"})
}

func (h *Handler) ListExperts(c *gin.Context) {
	experts, err := h.chat.ListExperts(c.Request.Context())
	if err != nil {
		writeError(c, err, "failed to list experts")
		return
	}
	response.Success(c, response.Fields{"experts": experts})
}

func (h *Handler) ListChats(c *gin.Context) {
	chats, err := h.chat.ListChats(c.Request.Context(), middleware.GetUserID(c))
	if err != nil {
		writeError(c, err, "failed to list chats")
		return
	}
	response.Success(c, response.Fields{"chats": chats})
}

// StartChat returns the caller's chat with an expert, creating it if needed.
func (h *Handler) StartChat(c *gin.Context) {
	var req domain.StartChatRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "Invalid request body")
		return
	}

	chat, err := h.chat.StartChat(c.Request.Context(), middleware.GetUserID(c), req.ExpertID)
	if err != nil {
		writeError(c, err, "failed to start chat")
		return
	}
	response.Success(c, response.Fields{"chat": chat})
}

func (h *Handler) ListChatMessages(c *gin.Context) {
	messages, err := h.chat.ListMessages(c.Request.Context(), c.Param("chatId"), middleware.GetUserID(c))
	if err != nil {
		writeError(c, err, "failed to list chat messages")
		return
	}
	response.Success(c, response.Fields{"messages": messages})
}

func (h *Handler) SendChatMessage(c *gin.Context) {
	var req domain.PostSessionMessageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "Invalid request body")
		return
	}

	msg, err := h.chat.SendMessage(c.Request.Context(), c.Param("chatId"), middleware.GetUserID(c), &req)
	if err != nil {
		writeError(c, err, "failed to send chat message")
		return
	}
	response.Created(c, response.Fields{"message": msg})
}
