package models

import "time"

// Notification is an entry in the append-only notifications/{id} log.
type Notification struct {
	UserID    string    `json:"userId" firestore:"userId"`
	Type      string    `json:"type" firestore:"type"` // welcome, system
	Title     string    `json:"title" firestore:"title"`
	Body      string    `json:"body" firestore:"body"`
	Read      bool      `json:"read" firestore:"read"`
	CreatedAt time.Time `json:"createdAt" firestore:"createdAt"`
}

// DeliveryReceipt records the outcome of one push dispatch attempt (PostgreSQL)
type DeliveryReceipt struct {
	ID          uint      `json:"id" gorm:"primaryKey"`
	Kind        string    `json:"kind" gorm:"size:30;index"` // new_message, story_like, ...
	RecipientID string    `json:"recipient_id" gorm:"size:128;index"`
	ActorID     string    `json:"actor_id" gorm:"size:128"`
	TargetID    string    `json:"target_id"` // chat ID, story ID, post ID
	Delivered   bool      `json:"delivered" gorm:"index"`
	Reason      string    `json:"reason" gorm:"size:30"`
	MessageID   string    `json:"message_id"`
	CreatedAt   time.Time `json:"created_at" gorm:"index"`
}
