package models

import "time"

// Message types stored in chats/{id}/messages/{id}.type
const (
	MessageTypeText  = "text"
	MessageTypeVoice = "voice"
	MessageTypeImage = "image"
)

// Chat is a two-party conversation stored in chats/{id}.
type Chat struct {
	ID              string           `json:"id,omitempty" firestore:"-"`
	Participants    []string         `json:"participants" firestore:"participants"`
	LastMessage     string           `json:"lastMessage,omitempty" firestore:"lastMessage,omitempty"`
	LastMessageTime *time.Time       `json:"lastMessageTime,omitempty" firestore:"lastMessageTime,omitempty"`
	UnreadCount     map[string]int64 `json:"unreadCount,omitempty" firestore:"unreadCount,omitempty"`
	UpdatedAt       *time.Time       `json:"updatedAt,omitempty" firestore:"updatedAt,omitempty"`
}

// OtherParticipant returns the participant that is not senderID.
func (c *Chat) OtherParticipant(senderID string) (string, bool) {
	for _, id := range c.Participants {
		if id != "" && id != senderID {
			return id, true
		}
	}
	return "", false
}

// Unread returns the stored unread counter for userID.
func (c *Chat) Unread(userID string) int64 {
	if c == nil || c.UnreadCount == nil {
		return 0
	}
	return c.UnreadCount[userID]
}

// Message is an append-only chat message.
type Message struct {
	ID           string     `json:"id,omitempty" firestore:"-"`
	SenderID     string     `json:"senderId" firestore:"senderId"`
	Type         string     `json:"type,omitempty" firestore:"type,omitempty"`
	Text         string     `json:"text,omitempty" firestore:"text,omitempty"`
	ImageURL     string     `json:"imageUrl,omitempty" firestore:"imageUrl,omitempty"`
	ThumbnailURL string     `json:"thumbnailUrl,omitempty" firestore:"thumbnailUrl,omitempty"`
	Timestamp    *time.Time `json:"timestamp,omitempty" firestore:"timestamp,omitempty"`
}
