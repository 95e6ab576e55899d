package repositories

import (
	"context"
	"fmt"

	"cloud.google.com/go/firestore"
	"github.com/anonto42/nano-midea/functions/internal/models"
)

// NotificationRepository appends to the notifications log
type NotificationRepository interface {
	CreateNotification(ctx context.Context, notification *models.Notification) (string, error)
}

type firestoreNotificationRepository struct {
	notifications *firestore.CollectionRef
}

func NewFirestoreNotificationRepository(db *firestore.Client) NotificationRepository {
	return &firestoreNotificationRepository{notifications: db.Collection("notifications")}
}

func (r *firestoreNotificationRepository) CreateNotification(ctx context.Context, notification *models.Notification) (string, error) {
	ref, _, err := r.notifications.Add(ctx, notification)
	if err != nil {
		return "", fmt.Errorf("create %s notification for %s: %w", notification.Type, notification.UserID, err)
	}
	return ref.ID, nil
}
