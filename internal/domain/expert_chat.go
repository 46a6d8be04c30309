package domain

import "time"

// ExpertChatSession is a one-to-one conversation between a user and an expert.
type ExpertChatSession struct {
	ID                 string    `json:"id"`
	UserID             string    `json:"-"`
	ExpertID           string    `json:"-"`
	User               Author    `json:"user"`
	Expert             Author    `json:"expert"`
	LastActivity       time.Time `json:"last_activity"`
	LastMessagePreview string    `json:"last_message_preview,omitempty"`
	LastSenderID       string    `json:"last_sender_id,omitempty"`
	CreatedAt          time.Time `json:"created_at"`
}

// HasParticipant reports whether userID is one of the two participants.
func (s ExpertChatSession) HasParticipant(userID string) bool {
	return userID != "" && (s.UserID == userID || s.ExpertID == userID)
}

// ExpertChatMessage is an immutable message of a session.
type ExpertChatMessage struct {
	ID        string    `json:"id"`
	SessionID string    `json:"session_id"`
	SenderID  string    `json:"-"`
	Sender    Author    `json:"sender"`
	Content   string    `json:"content"`
	CreatedAt time.Time `json:"created_at"`
}

func (m ExpertChatMessage) Identity() string { return m.ID }

func (m ExpertChatMessage) Fingerprint() string {
	return fingerprint(m.CreatedAt, senderKey(m.Sender, m.SenderID), m.Content)
}

// StartChatRequest is the body of a create-or-fetch session call.
type StartChatRequest struct {
	ExpertID string `json:"expertId"`
}

// PostSessionMessageRequest is the body of a session post.
type PostSessionMessageRequest struct {
	Content string `json:"content"`
}
