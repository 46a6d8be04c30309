package pubsub

import (
	"fmt"
	"strings"
)

// Channel naming for domain events produced by the chat core.
const (
	ChannelRoomEvents    = "forum:room:%s:events"
	ChannelSessionEvents = "expert:session:%s:events"
)

// Event types.
const (
	EventRoomMessageCreated    = "room.message_created"
	EventRoomMessageDeleted    = "room.message_deleted"
	EventRoomReactionUpdated   = "room.reaction_updated"
	EventRoomReplyAdded        = "room.reply_added"
	EventSessionCreated        = "expert.session_created"
	EventSessionMessageCreated = "expert.message_created"
)

// RoomChannel returns the event channel of a forum room.
func RoomChannel(roomID string) string {
	return fmt.Sprintf(ChannelRoomEvents, roomID)
}

// SessionChannel returns the event channel of an expert chat session.
func SessionChannel(sessionID string) string {
	return fmt.Sprintf(ChannelSessionEvents, sessionID)
}

// channelToTopicAndKey splits a channel into its event domain and the
// partition key.
//
//	"forum:room:ROOM1:events"  → "forum", "ROOM1"
//	"expert:session:S1:events" → "expert", "S1"
func channelToTopicAndKey(channel string) (domain, key string, err error) {
	parts := strings.Split(channel, ":")
	if len(parts) != 4 || parts[0] == "" || parts[2] == "" || parts[3] != "events" {
		return "", "", fmt.Errorf("invalid event channel %q", channel)
	}
	return parts[0], parts[2], nil
}
