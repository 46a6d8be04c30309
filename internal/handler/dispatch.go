package handler

import (
	"context"
	"encoding/json"

	"github.com/manobala/peer-chat/internal/domain"
	"github.com/manobala/peer-chat/internal/hub"
	"github.com/manobala/peer-chat/internal/service"
	"github.com/manobala/peer-chat/pkg/log"
)

// IntentDispatcher routes client intents to the gateway service. Both
// transports share it so that an intent means the same thing on either.
type IntentDispatcher struct {
	gateway service.GatewayService
}

func NewIntentDispatcher(gateway service.GatewayService) *IntentDispatcher {
	return &IntentDispatcher{gateway: gateway}
}

func (d *IntentDispatcher) Dispatch(ctx context.Context, client *hub.Client, raw []byte) {
	l := log.Ctx(ctx)

	var intent domain.Intent
	if err := json.Unmarshal(raw, &intent); err != nil {
		if sendErr := client.SendMessage(domain.NewErrorEvent(domain.ErrCodeBadRequest, "Invalid message format")); sendErr != nil {
			l.Debug().Err(sendErr).Str(log.FieldConnectionID, client.ID).Msg("failed to report malformed intent")
		}
		return
	}

	var err error
	switch intent.Type {
	case domain.MsgTypeJoinRoom:
		err = d.gateway.HandleJoinRoom(ctx, client, intent.RoomID)
	case domain.MsgTypeLeaveRoom:
		err = d.gateway.HandleLeaveRoom(ctx, client, intent.RoomID)
	case domain.MsgTypeJoinExpertChat:
		err = d.gateway.HandleJoinExpertChat(ctx, client, intent.SessionID)
	case domain.MsgTypeLeaveExpertChat:
		err = d.gateway.HandleLeaveExpertChat(ctx, client, intent.SessionID)
	case domain.MsgTypeTyping:
		err = d.gateway.HandleTyping(ctx, client, intent.ChannelType, intent.ChannelID)
	case domain.MsgTypePing:
		err = client.SendMessage(&domain.PongEvent{Type: domain.MsgTypePong})
	default:
		err = client.SendMessage(domain.NewErrorEvent(domain.ErrCodeBadRequest, "Unknown message type"))
	}

	if err != nil {
		l.Debug().Err(err).
			Str(log.FieldConnectionID, client.ID).
			Str("intent", intent.Type).
			Msg("intent failed")
	}
}

// connectionContext carries a logger scoped to one realtime connection.
// It is not cancelled by the request that opened the connection.
func connectionContext(ctx context.Context, client *hub.Client) context.Context {
	logger := log.Ctx(ctx).With().
		Str(log.FieldConnectionID, client.ID).
		Str(log.FieldUserID, client.UserID).
		Logger()
	return log.WithLogger(context.Background(), logger)
}
