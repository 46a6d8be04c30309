package handler

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/manobala/peer-chat/internal/config"
	"github.com/manobala/peer-chat/internal/hub"
	"github.com/manobala/peer-chat/internal/service"
	"github.com/manobala/peer-chat/pkg/log"
	"github.com/manobala/peer-chat/pkg/middleware"
	"github.com/manobala/peer-chat/pkg/response"
)

// PollHandler serves the long-polling transport for clients that cannot
// hold a websocket open.
type PollHandler struct {
	hub        *hub.Hub
	gateway    service.GatewayService
	dispatcher *IntentDispatcher
	auth       *middleware.AuthMiddleware
	wsCfg      config.WebSocketConfig
	pollCfg    config.PollConfig
}

func NewPollHandler(
	h *hub.Hub,
	gateway service.GatewayService,
	dispatcher *IntentDispatcher,
	auth *middleware.AuthMiddleware,
	wsCfg config.WebSocketConfig,
	pollCfg config.PollConfig,
) *PollHandler {
	return &PollHandler{
		hub:        h,
		gateway:    gateway,
		dispatcher: dispatcher,
		auth:       auth,
		wsCfg:      wsCfg,
		pollCfg:    pollCfg,
	}
}

func (h *PollHandler) RegisterRoutes(r *gin.Engine) {
	poll := r.Group("/socket/poll", h.auth.RequireAuth())
	{
		poll.POST("", h.Open)
		poll.GET("/:id", h.Poll)
		poll.POST("/:id", h.Send)
		poll.DELETE("/:id", h.Close)
	}
}

// Open registers a polling connection. The connected event is the first
// thing the following poll returns.
func (h *PollHandler) Open(c *gin.Context) {
	ctx := c.Request.Context()
	client := hub.NewPollingClient(uuid.New().String(), middleware.GetUserID(c), h.hub, h.wsCfg)
	if err := h.hub.Register(client); err != nil {
		response.Error(c, http.StatusServiceUnavailable, "SHUTTING_DOWN", "Server is shutting down")
		return
	}

	if err := h.gateway.HandleConnect(connectionContext(ctx, client), client); err != nil {
		l := log.Ctx(ctx)
		l.Warn().Err(err).Msg("failed to greet connection")
	}
	response.Created(c, response.Fields{
		"connection_id": client.ID,
		"transport":     hub.TransportPolling,
		"wait_ms":       h.pollCfg.Wait.Milliseconds(),
	})
}

// Poll waits for queued events and returns them in delivery order.
func (h *PollHandler) Poll(c *gin.Context) {
	client, ok := lookupOwned(c, h.hub, c.Param("id"), middleware.GetUserID(c))
	if !ok {
		return
	}

	batch, err := client.Drain(c.Request.Context(), h.pollCfg.Wait, h.pollCfg.MaxBatch)
	if err != nil {
		switch {
		case errors.Is(err, hub.ErrTransportUpgraded):
			response.Error(c, http.StatusGone, "TRANSPORT_UPGRADED", "Connection moved to websocket")
		case errors.Is(err, hub.ErrDrainInProgress):
			response.Error(c, http.StatusConflict, "POLL_IN_PROGRESS", "Another poll is in progress")
		default:
			response.NotFound(c, "connection not found")
		}
		return
	}

	events := make([]json.RawMessage, len(batch))
	for i, data := range batch {
		events[i] = data
	}
	response.Success(c, response.Fields{"events": events})
}

// Send dispatches one intent on behalf of a polling connection. Results
// arrive as events on the next poll; the response only carries the
// connection state after the intent.
func (h *PollHandler) Send(c *gin.Context) {
	client, ok := lookupOwned(c, h.hub, c.Param("id"), middleware.GetUserID(c))
	if !ok {
		return
	}

	limit := h.wsCfg.MaxMessageSize
	if limit <= 0 {
		limit = 1 << 20
	}
	raw, err := io.ReadAll(io.LimitReader(c.Request.Body, limit+1))
	if err != nil {
		response.BadRequest(c, "Invalid request body")
		return
	}
	if int64(len(raw)) > limit {
		response.Error(c, http.StatusRequestEntityTooLarge, "MESSAGE_TOO_LARGE", "Message too large")
		return
	}

	h.dispatcher.Dispatch(connectionContext(c.Request.Context(), client), client, raw)
	response.Success(c, response.Fields{"state": h.hub.StateOf(client.ID)})
}

func (h *PollHandler) Close(c *gin.Context) {
	client, ok := lookupOwned(c, h.hub, c.Param("id"), middleware.GetUserID(c))
	if !ok {
		return
	}

	h.hub.Unregister(client)
	h.gateway.HandleDisconnect(connectionContext(c.Request.Context(), client), client)
	response.Success(c, response.Fields{})
}
