package repositories

import (
	"context"
	"fmt"
	"time"

	"cloud.google.com/go/firestore"
	"github.com/anonto42/nano-midea/functions/internal/models"
)

// ChatRepository defines the interface for chat and message documents
type ChatRepository interface {
	GetChatByID(ctx context.Context, id string) (*models.Chat, error)
	RecordMessage(ctx context.Context, chatID, recipientID, preview string, sentAt, at time.Time) error
	FindMessageByImage(ctx context.Context, chatID, imagePath string) (string, error)
	UpdateMessageMedia(ctx context.Context, chatID, messageID, imageURL, thumbnailURL string) error
}

type firestoreChatRepository struct {
	chats *firestore.CollectionRef
}

// NewFirestoreChatRepository creates a ChatRepository on the chats collection
func NewFirestoreChatRepository(db *firestore.Client) ChatRepository {
	return &firestoreChatRepository{chats: db.Collection("chats")}
}

func (r *firestoreChatRepository) GetChatByID(ctx context.Context, id string) (*models.Chat, error) {
	if id == "" {
		return nil, ErrNotFound
	}
	snap, err := r.chats.Doc(id).Get(ctx)
	if err != nil {
		if isNotFound(err) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("get chat %s: %w", id, err)
	}
	var chat models.Chat
	if err := snap.DataTo(&chat); err != nil {
		return nil, fmt.Errorf("decode chat %s: %w", id, err)
	}
	chat.ID = snap.Ref.ID
	return &chat, nil
}

// RecordMessage denormalizes the latest message onto the chat and bumps the
// recipient's unread counter with a server-side increment.
func (r *firestoreChatRepository) RecordMessage(ctx context.Context, chatID, recipientID, preview string, sentAt, at time.Time) error {
	_, err := r.chats.Doc(chatID).Update(ctx, []firestore.Update{
		{Path: "lastMessage", Value: preview},
		{Path: "lastMessageTime", Value: sentAt},
		{Path: "updatedAt", Value: at},
		{FieldPath: firestore.FieldPath{"unreadCount", recipientID}, Value: firestore.Increment(1)},
	})
	if err != nil {
		if isNotFound(err) {
			return ErrNotFound
		}
		return fmt.Errorf("update chat %s metadata: %w", chatID, err)
	}
	return nil
}

func (r *firestoreChatRepository) FindMessageByImage(ctx context.Context, chatID, imagePath string) (string, error) {
	snaps, err := r.chats.Doc(chatID).Collection("messages").
		Where("imageUrl", "==", imagePath).
		Limit(1).
		Documents(ctx).GetAll()
	if err != nil {
		return "", fmt.Errorf("query messages of chat %s: %w", chatID, err)
	}
	if len(snaps) == 0 {
		return "", ErrNotFound
	}
	return snaps[0].Ref.ID, nil
}

func (r *firestoreChatRepository) UpdateMessageMedia(ctx context.Context, chatID, messageID, imageURL, thumbnailURL string) error {
	_, err := r.chats.Doc(chatID).Collection("messages").Doc(messageID).Update(ctx, []firestore.Update{
		{Path: "imageUrl", Value: imageURL},
		{Path: "thumbnailUrl", Value: thumbnailURL},
	})
	if err != nil {
		if isNotFound(err) {
			return ErrNotFound
		}
		return fmt.Errorf("update message %s/%s media: %w", chatID, messageID, err)
	}
	return nil
}
