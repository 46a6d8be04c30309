package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/manobala/peer-chat/internal/audit"
	"github.com/manobala/peer-chat/internal/config"
	"github.com/manobala/peer-chat/internal/hub"
	"github.com/manobala/peer-chat/internal/service"
	"github.com/manobala/peer-chat/pkg/jwt"
	"github.com/manobala/peer-chat/pkg/log"
	"github.com/manobala/peer-chat/pkg/middleware"
	"github.com/manobala/peer-chat/pkg/response"
)

// WSHandler serves the websocket transport. A request carrying the
// connection_id of a live polling connection upgrades that connection in
// place instead of opening a new one.
type WSHandler struct {
	hub        *hub.Hub
	gateway    service.GatewayService
	dispatcher *IntentDispatcher
	auth       *middleware.AuthMiddleware
	wsCfg      config.WebSocketConfig
	upgrader   websocket.Upgrader
}

func NewWSHandler(
	h *hub.Hub,
	gateway service.GatewayService,
	dispatcher *IntentDispatcher,
	auth *middleware.AuthMiddleware,
	wsCfg config.WebSocketConfig,
	allowedOrigins []string,
) *WSHandler {
	return &WSHandler{
		hub:        h,
		gateway:    gateway,
		dispatcher: dispatcher,
		auth:       auth,
		wsCfg:      wsCfg,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  wsCfg.ReadBufferSize,
			WriteBufferSize: wsCfg.WriteBufferSize,
			CheckOrigin:     originChecker(allowedOrigins),
		},
	}
}

func (h *WSHandler) HandleWebSocket(c *gin.Context) {
	ctx := c.Request.Context()
	l := log.Ctx(ctx)

	userID, err := h.auth.Resolve(c.Request)
	if err != nil {
		audit.LogWithDetail(ctx, audit.ActionAuthFailed, "", "", err.Error(), "websocket handshake rejected")
		msg := "Not Authorised. Login Again"
		if errors.Is(err, jwt.ErrExpiredToken) {
			msg = "Session expired. Login Again"
		}
		response.Unauthorized(c, msg)
		return
	}

	var existing *hub.Client
	if connID := c.Query("connection_id"); connID != "" {
		client, ok := lookupOwned(c, h.hub, connID, userID)
		if !ok {
			return
		}
		existing = client
	}

	conn, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		l.Warn().Err(err).Msg("websocket upgrade failed")
		return
	}

	client := existing
	if client != nil {
		if err := h.hub.Upgrade(client, conn); err != nil {
			l.Warn().Err(err).Str(log.FieldConnectionID, client.ID).Msg("transport upgrade failed")
			conn.Close()
			return
		}
		audit.Log(ctx, audit.ActionUpgrade, userID, client.ID, "polling connection upgraded to websocket")
	} else {
		client = hub.NewClient(uuid.New().String(), userID, h.hub, conn, h.wsCfg)
		if err := h.hub.Register(client); err != nil {
			l.Warn().Err(err).Msg("hub refused connection")
			conn.Close()
			return
		}
	}

	// The greeting is queued before any intent can be read, so it is always
	// the first event on a new connection.
	connCtx := connectionContext(ctx, client)
	if existing == nil {
		if err := h.gateway.HandleConnect(connCtx, client); err != nil {
			l.Warn().Err(err).Msg("failed to greet connection")
		}
	}

	go client.WritePump()
	go func() {
		client.ReadPump(func(cl *hub.Client, raw []byte) {
			h.dispatcher.Dispatch(connCtx, cl, raw)
		})
		h.gateway.HandleDisconnect(connCtx, client)
	}()
}

func (h *WSHandler) RegisterRoutes(r *gin.Engine) {
	r.GET("/socket/ws", h.HandleWebSocket)
}

// originChecker allows any origin when none are configured or "*" is listed.
func originChecker(allowed []string) func(r *http.Request) bool {
	set := make(map[string]struct{}, len(allowed))
	for _, o := range allowed {
		if o == "*" {
			return func(*http.Request) bool { return true }
		}
		set[o] = struct{}{}
	}
	return func(r *http.Request) bool {
		origin := r.Header.Get("Origin")
		if origin == "" || len(set) == 0 {
			return true
		}
		_, ok := set[origin]
		return ok
	}
}

// lookupOwned finds a live connection owned by userID, writing the error
// response itself when there is none.
func lookupOwned(c *gin.Context, h *hub.Hub, connID, userID string) (*hub.Client, bool) {
	client, ok := h.Lookup(connID)
	if !ok {
		response.NotFound(c, "connection not found")
		return nil, false
	}
	if client.UserID != userID {
		audit.LogWithDetail(c.Request.Context(), audit.ActionForbidden, userID, connID, "connection", "access to another user's connection rejected")
		response.Forbidden(c, "Access denied")
		return nil, false
	}
	return client, true
}
