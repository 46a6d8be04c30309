package domain

import "fmt"

// ChannelKind distinguishes the two broadcast groupings.
type ChannelKind string

const (
	ChannelRoom          ChannelKind = "room"
	ChannelExpertSession ChannelKind = "expert_chat"
)

// ChannelID identifies a broadcast group. A forum room and an expert
// session never share a ChannelID even when their raw ids collide.
type ChannelID struct {
	Kind ChannelKind
	ID   string
}

func RoomChannel(roomID string) ChannelID {
	return ChannelID{Kind: ChannelRoom, ID: roomID}
}

func SessionChannel(sessionID string) ChannelID {
	return ChannelID{Kind: ChannelExpertSession, ID: sessionID}
}

func (c ChannelID) String() string {
	return fmt.Sprintf("%s:%s", c.Kind, c.ID)
}

// ParseChannel builds a ChannelID from its wire form.
func ParseChannel(kind, id string) (ChannelID, error) {
	switch ChannelKind(kind) {
	case ChannelRoom, ChannelExpertSession:
	default:
		return ChannelID{}, fmt.Errorf("%w: unknown channel type %q", ErrValidation, kind)
	}
	if !ValidID(id) {
		return ChannelID{}, fmt.Errorf("%w: malformed channel id", ErrValidation)
	}
	return ChannelID{Kind: ChannelKind(kind), ID: id}, nil
}
