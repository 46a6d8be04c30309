package domain

import (
	"fmt"
	"time"
)

// RoomType is the fixed topic of a forum room.
type RoomType string

const (
	RoomTypeAnxietySupport    RoomType = "ANXIETY_SUPPORT"
	RoomTypeDepressionHelp    RoomType = "DEPRESSION_HELP"
	RoomTypeWellnessLifestyle RoomType = "WELLNESS_LIFESTYLE"
	RoomTypeChildAbuse        RoomType = "CHILD_ABUSE"
	RoomTypeDomesticAbuse     RoomType = "DOMESTIC_ABUSE"
	RoomTypeWorkplaceAbuse    RoomType = "WORKPLACE_ABUSE"
)

func (t RoomType) Valid() bool {
	switch t {
	case RoomTypeAnxietySupport, RoomTypeDepressionHelp, RoomTypeWellnessLifestyle,
		RoomTypeChildAbuse, RoomTypeDomesticAbuse, RoomTypeWorkplaceAbuse:
		return true
	}
	return false
}

// RoomCategory groups rooms in listings.
type RoomCategory string

const (
	CategoryMentalWellness RoomCategory = "Mental Wellness"
	CategorySupportGroups  RoomCategory = "Support Groups"
	CategoryCrisisSupport  RoomCategory = "Crisis Support"
)

func (c RoomCategory) Valid() bool {
	switch c {
	case CategoryMentalWellness, CategorySupportGroups, CategoryCrisisSupport:
		return true
	}
	return false
}

const (
	DefaultRoomIcon  = "💬"
	DefaultRoomColor = "#6366F1"
)

// ReactionKind is one of the fixed reaction kinds.
type ReactionKind string

const (
	ReactionHeart    ReactionKind = "heart"
	ReactionSupport  ReactionKind = "support"
	ReactionThanks   ReactionKind = "thanks"
	ReactionStrength ReactionKind = "strength"
)

// ParseReactionKind validates a reaction kind from the wire.
func ParseReactionKind(s string) (ReactionKind, error) {
	switch k := ReactionKind(s); k {
	case ReactionHeart, ReactionSupport, ReactionThanks, ReactionStrength:
		return k, nil
	}
	return "", fmt.Errorf("%w: invalid reaction type %q", ErrValidation, s)
}

// Room is a forum room summary.
type Room struct {
	ID            string       `json:"id"`
	Name          string       `json:"name"`
	Description   string       `json:"description"`
	Type          RoomType     `json:"type"`
	Category      RoomCategory `json:"category"`
	Icon          string       `json:"icon"`
	Color         string       `json:"color"`
	MemberCount   int          `json:"member_count"`
	MessageCount  int          `json:"message_count"`
	Online        int          `json:"online"`
	LastMessageAt *time.Time   `json:"last_message_at,omitempty"`
	IsActive      bool         `json:"is_active"`
	CreatedAt     time.Time    `json:"created_at"`
}

// Reaction is one user's reaction to a message.
type Reaction struct {
	UserID string       `json:"user_id"`
	Type   ReactionKind `json:"type"`
}

// Reply is appended under a room message.
type Reply struct {
	ID          string    `json:"id"`
	AuthorID    string    `json:"-"`
	Author      Author    `json:"author"`
	Content     string    `json:"content"`
	IsAnonymous bool      `json:"is_anonymous"`
	CreatedAt   time.Time `json:"created_at"`
}

// RoomMessage is a forum post with its reactions and replies.
type RoomMessage struct {
	ID          string     `json:"id"`
	RoomID      string     `json:"room_id"`
	AuthorID    string     `json:"-"`
	Author      Author     `json:"author"`
	Content     string     `json:"content"`
	IsAnonymous bool       `json:"is_anonymous"`
	IsDeleted   bool       `json:"is_deleted"`
	Reactions   []Reaction `json:"reactions"`
	Replies     []Reply    `json:"replies"`
	CreatedAt   time.Time  `json:"created_at"`
}

// Identity is the store-assigned id.
func (m RoomMessage) Identity() string { return m.ID }

// Fingerprint identifies a message that has no id yet. It only uses fields
// that survive the wire, so a decoded broadcast matches its local echo.
func (m RoomMessage) Fingerprint() string {
	sender := senderKey(m.Author, m.AuthorID)
	if m.IsAnonymous {
		sender = anonymousSender
	}
	return fingerprint(m.CreatedAt, sender, m.Content)
}

// Redact blanks the content of a soft-deleted message.
func (m *RoomMessage) Redact() {
	if m.IsDeleted {
		m.Content = ""
	}
}

// MessagePage is one page of a room's history, oldest first.
type MessagePage struct {
	Room       *Room         `json:"room,omitempty"`
	Messages   []RoomMessage `json:"messages"`
	Pagination Pagination    `json:"pagination"`
}

// Pagination describes a page relative to the whole history.
type Pagination struct {
	CurrentPage   int  `json:"current_page"`
	PageSize      int  `json:"page_size"`
	TotalPages    int  `json:"total_pages"`
	TotalMessages int  `json:"total_messages"`
	HasMore       bool `json:"has_more"`
}

// NewPagination computes page bookkeeping for a page counted from the newest end.
func NewPagination(page, pageSize, returned int, total int64) Pagination {
	totalPages := 0
	if pageSize > 0 {
		totalPages = int((total + int64(pageSize) - 1) / int64(pageSize))
	}
	skip := (page - 1) * pageSize
	return Pagination{
		CurrentPage:   page,
		PageSize:      pageSize,
		TotalPages:    totalPages,
		TotalMessages: int(total),
		HasMore:       int64(skip+returned) < total,
	}
}

// PostRoomMessageRequest is the body of a room post.
type PostRoomMessageRequest struct {
	Content     string `json:"content"`
	IsAnonymous bool   `json:"isAnonymous"`
}

// ReactionRequest is the body of a reaction call.
type ReactionRequest struct {
	Type string `json:"type"`
}

// ReplyRequest is the body of a reply call.
type ReplyRequest struct {
	Content     string `json:"content"`
	IsAnonymous bool   `json:"isAnonymous"`
}

// ListRoomMessagesRequest holds paging query parameters.
type ListRoomMessagesRequest struct {
	Page     int `form:"page"`
	PageSize int `form:"pageSize"`
	Limit    int `form:"limit"`
}
