package domain

// Intents sent by clients over the realtime channel.
const (
	MsgTypeJoinRoom        = "joinRoom"
	MsgTypeLeaveRoom       = "leaveRoom"
	MsgTypeJoinExpertChat  = "joinExpertChat"
	MsgTypeLeaveExpertChat = "leaveExpertChat"
	MsgTypeTyping          = "typing"
	MsgTypePing            = "ping"
)

// Events pushed to clients.
const (
	MsgTypeConnected         = "connected"
	MsgTypeJoinedRoom        = "joinedRoom"
	MsgTypeLeftRoom          = "leftRoom"
	MsgTypeNewMessage        = "newMessage"
	MsgTypeMessageUpdated    = "messageUpdated"
	MsgTypeMessageDeleted    = "messageDeleted"
	MsgTypeExpertChatMessage = "expertChatMessage"
	MsgTypeUserTyping        = "userTyping"
	MsgTypeError             = "error"
	MsgTypePong              = "pong"
)

// Intent is the envelope of every client message. Only the fields of the
// given type are meaningful.
type Intent struct {
	Type        string `json:"type"`
	RoomID      string `json:"room_id,omitempty"`
	SessionID   string `json:"session_id,omitempty"`
	ChannelType string `json:"channel_type,omitempty"`
	ChannelID   string `json:"channel_id,omitempty"`
}

type ConnectedEvent struct {
	Type         string `json:"type"`
	ConnectionID string `json:"connection_id"`
	UserID       string `json:"user_id"`
	Transport    string `json:"transport"`
	TypingTTLMs  int64  `json:"typing_ttl_ms"`
}

// JoinedRoomEvent acknowledges a join to the joining connection only.
// Room is set for forum rooms, Session for expert chats.
type JoinedRoomEvent struct {
	Type        string             `json:"type"`
	ChannelType ChannelKind        `json:"channel_type"`
	ChannelID   string             `json:"channel_id"`
	Room        *Room              `json:"room,omitempty"`
	Session     *ExpertChatSession `json:"session,omitempty"`
	Online      int                `json:"online"`
}

type LeftRoomEvent struct {
	Type        string      `json:"type"`
	ChannelType ChannelKind `json:"channel_type"`
	ChannelID   string      `json:"channel_id"`
}

type NewMessageEvent struct {
	Type    string      `json:"type"`
	Message RoomMessage `json:"message"`
}

type MessageUpdatedEvent struct {
	Type    string      `json:"type"`
	Message RoomMessage `json:"message"`
}

type MessageDeletedEvent struct {
	Type      string `json:"type"`
	RoomID    string `json:"room_id"`
	MessageID string `json:"message_id"`
}

type ExpertChatMessageEvent struct {
	Type      string            `json:"type"`
	SessionID string            `json:"session_id"`
	Message   ExpertChatMessage `json:"message"`
}

type UserTypingEvent struct {
	Type        string      `json:"type"`
	ChannelType ChannelKind `json:"channel_type"`
	ChannelID   string      `json:"channel_id"`
	UserID      string      `json:"user_id"`
}

type PongEvent struct {
	Type string `json:"type"`
}

type ErrorEvent struct {
	Type    string `json:"type"`
	Code    string `json:"code"`
	Message string `json:"message"`
}

func NewErrorEvent(code, message string) *ErrorEvent {
	return &ErrorEvent{
		Type:    MsgTypeError,
		Code:    code,
		Message: message,
	}
}
