package domain

import (
	"time"
)

// RoomModel is the GORM model for rooms table.
type RoomModel struct {
	ID            string     `gorm:"type:varchar(26);primaryKey"`
	Name          string     `gorm:"type:varchar(100);not null"`
	Description   string     `gorm:"type:text;not null"`
	Type          string     `gorm:"type:varchar(32);uniqueIndex;not null"`
	Category      string     `gorm:"type:varchar(32);index;not null"`
	Icon          string     `gorm:"type:varchar(16);not null"`
	Color         string     `gorm:"type:varchar(16);not null"`
	MemberCount   int        `gorm:"not null;default:0"`
	MessageCount  int        `gorm:"not null;default:0"`
	LastMessageAt *time.Time `gorm:"index"`
	IsActive      bool       `gorm:"not null;default:true"`
	CreatedAt     time.Time  `gorm:"autoCreateTime"`
}

func (RoomModel) TableName() string {
	return "forum_rooms"
}

func (m *RoomModel) ToDomain() Room {
	return Room{
		ID:            m.ID,
		Name:          m.Name,
		Description:   m.Description,
		Type:          RoomType(m.Type),
		Category:      RoomCategory(m.Category),
		Icon:          m.Icon,
		Color:         m.Color,
		MemberCount:   m.MemberCount,
		MessageCount:  m.MessageCount,
		LastMessageAt: m.LastMessageAt,
		IsActive:      m.IsActive,
		CreatedAt:     m.CreatedAt,
	}
}

// RoomMessageModel is the GORM model for forum room messages.
type RoomMessageModel struct {
	ID          string          `gorm:"type:varchar(26);primaryKey;index:idx_room_messages_room_id_id,priority:2"`
	RoomID      string          `gorm:"type:varchar(26);index:idx_room_messages_room_id_id,priority:1;not null"`
	AuthorID    string          `gorm:"type:varchar(64);index;not null"`
	Content     string          `gorm:"type:text;not null"`
	IsAnonymous bool            `gorm:"not null;default:false"`
	IsDeleted   bool            `gorm:"not null;default:false"`
	CreatedAt   time.Time       `gorm:"autoCreateTime"`
	Reactions   []ReactionModel `gorm:"foreignKey:MessageID"`
	Replies     []ReplyModel    `gorm:"foreignKey:MessageID"`
}

func (RoomMessageModel) TableName() string {
	return "forum_messages"
}

// ToDomain converts the model. Author is left for the caller to resolve.
func (m *RoomMessageModel) ToDomain() RoomMessage {
	msg := RoomMessage{
		ID:          m.ID,
		RoomID:      m.RoomID,
		AuthorID:    m.AuthorID,
		Content:     m.Content,
		IsAnonymous: m.IsAnonymous,
		IsDeleted:   m.IsDeleted,
		Reactions:   make([]Reaction, 0, len(m.Reactions)),
		Replies:     make([]Reply, 0, len(m.Replies)),
		CreatedAt:   m.CreatedAt,
	}
	for _, r := range m.Reactions {
		msg.Reactions = append(msg.Reactions, Reaction{UserID: r.UserID, Type: ReactionKind(r.Kind)})
	}
	for _, r := range m.Replies {
		msg.Replies = append(msg.Replies, r.ToDomain())
	}
	msg.Redact()
	return msg
}

// ReactionModel is unique per (message, user).
type ReactionModel struct {
	ID        uint      `gorm:"primaryKey;autoIncrement"`
	MessageID string    `gorm:"type:varchar(26);uniqueIndex:idx_reaction_message_user,priority:1;not null"`
	UserID    string    `gorm:"type:varchar(64);uniqueIndex:idx_reaction_message_user,priority:2;not null"`
	Kind      string    `gorm:"type:varchar(16);not null"`
	UpdatedAt time.Time `gorm:"autoUpdateTime"`
}

func (ReactionModel) TableName() string {
	return "forum_message_reactions"
}

// ReplyModel is an append-only reply to a room message.
type ReplyModel struct {
	ID          string    `gorm:"type:varchar(26);primaryKey"`
	MessageID   string    `gorm:"type:varchar(26);index;not null"`
	AuthorID    string    `gorm:"type:varchar(64);not null"`
	Content     string    `gorm:"type:text;not null"`
	IsAnonymous bool      `gorm:"not null;default:false"`
	CreatedAt   time.Time `gorm:"autoCreateTime"`
}

func (ReplyModel) TableName() string {
	return "forum_message_replies"
}

func (m *ReplyModel) ToDomain() Reply {
	return Reply{
		ID:          m.ID,
		AuthorID:    m.AuthorID,
		Content:     m.Content,
		IsAnonymous: m.IsAnonymous,
		CreatedAt:   m.CreatedAt,
	}
}

// ExpertSessionModel stores a session. PairLow/PairHigh hold the two
// participant ids in sorted order so one unique index covers both orders.
type ExpertSessionModel struct {
	ID                 string    `gorm:"type:varchar(26);primaryKey"`
	UserID             string    `gorm:"type:varchar(64);index;not null"`
	ExpertID           string    `gorm:"type:varchar(64);index;not null"`
	PairLow            string    `gorm:"type:varchar(64);uniqueIndex:idx_expert_session_pair,priority:1;not null"`
	PairHigh           string    `gorm:"type:varchar(64);uniqueIndex:idx_expert_session_pair,priority:2;not null"`
	LastActivity       time.Time `gorm:"index;not null"`
	LastMessageID      string    `gorm:"type:varchar(26);not null;default:''"`
	LastMessagePreview string    `gorm:"type:varchar(255);not null;default:''"`
	LastSenderID       string    `gorm:"type:varchar(64);not null;default:''"`
	CreatedAt          time.Time `gorm:"autoCreateTime"`
}

func (ExpertSessionModel) TableName() string {
	return "expert_chat_sessions"
}

func (m *ExpertSessionModel) ToDomain() ExpertChatSession {
	return ExpertChatSession{
		ID:                 m.ID,
		UserID:             m.UserID,
		ExpertID:           m.ExpertID,
		LastActivity:       m.LastActivity,
		LastMessagePreview: m.LastMessagePreview,
		LastSenderID:       m.LastSenderID,
		CreatedAt:          m.CreatedAt,
	}
}

// SessionPair orders two participant ids.
func SessionPair(a, b string) (low, high string) {
	if a < b {
		return a, b
	}
	return b, a
}

// ExpertMessageModel is an immutable expert chat message.
type ExpertMessageModel struct {
	ID        string    `gorm:"type:varchar(26);primaryKey"`
	SessionID string    `gorm:"type:varchar(26);index;not null"`
	SenderID  string    `gorm:"type:varchar(64);not null"`
	Content   string    `gorm:"type:text;not null"`
	CreatedAt time.Time `gorm:"autoCreateTime"`
}

func (ExpertMessageModel) TableName() string {
	return "expert_chat_messages"
}

func (m *ExpertMessageModel) ToDomain() ExpertChatMessage {
	return ExpertChatMessage{
		ID:        m.ID,
		SessionID: m.SessionID,
		SenderID:  m.SenderID,
		Content:   m.Content,
		CreatedAt: m.CreatedAt,
	}
}

// UserModel maps the users table shared with the identity system.
type UserModel struct {
	ID        string    `gorm:"type:varchar(64);primaryKey"`
	Name      string    `gorm:"type:varchar(100);not null"`
	Email     string    `gorm:"type:varchar(255);index"`
	IsExpert  bool      `gorm:"not null;default:false;index"`
	CreatedAt time.Time `gorm:"autoCreateTime"`
}

func (UserModel) TableName() string {
	return "users"
}

func (m *UserModel) ToDomain() User {
	return User{ID: m.ID, Name: m.Name, Email: m.Email, IsExpert: m.IsExpert}
}

// Models lists every table owned or read by the service, for migration.
func Models() []interface{} {
	return []interface{}{
		&UserModel{},
		&RoomModel{},
		&RoomMessageModel{},
		&ReactionModel{},
		&ReplyModel{},
		&ExpertSessionModel{},
		&ExpertMessageModel{},
	}
}
