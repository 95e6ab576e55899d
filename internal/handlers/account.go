package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/anonto42/nano-midea/functions/internal/models"
	"github.com/anonto42/nano-midea/functions/internal/repositories"
	"github.com/anonto42/nano-midea/functions/internal/triggers"
)

const (
	welcomeTitle = "Welcome to Social Connect!"
	welcomeBody  = "Start connecting with people who share your interests."
)

// AccountInitializer sets up a freshly created user document
type AccountInitializer struct {
	userRepository         repositories.UserRepository
	notificationRepository repositories.NotificationRepository
	now                    func() time.Time
	log                    *slog.Logger
}

// NewAccountInitializer creates a new AccountInitializer
func NewAccountInitializer(userRepo repositories.UserRepository, notifRepo repositories.NotificationRepository, log *slog.Logger) *AccountInitializer {
	return &AccountInitializer{
		userRepository:         userRepo,
		notificationRepository: notifRepo,
		now:                    time.Now,
		log:                    log,
	}
}

// Handle zeroes the counters of users/{userId}, keeps an existing createdAt
// and appends a welcome entry to the notifications log.
func (a *AccountInitializer) Handle(ctx context.Context, ev triggers.DocumentEvent) triggers.Outcome {
	userID := ev.Params["userId"]
	if userID == "" {
		return triggers.Ignored("no-user-id")
	}

	var user models.User
	if len(ev.After) > 0 {
		if err := json.Unmarshal(ev.After, &user); err != nil {
			return triggers.Failed(fmt.Errorf("decode user %s: %w", userID, err))
		}
	}

	now := a.now()
	createdAt := now
	if user.CreatedAt != nil {
		createdAt = *user.CreatedAt
	}

	if err := a.userRepository.InitializeDefaults(ctx, userID, createdAt, now); err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return triggers.Ignored("not-found")
		}
		return triggers.Failed(err)
	}

	id, err := a.notificationRepository.CreateNotification(ctx, &models.Notification{
		UserID:    userID,
		Type:      "welcome",
		Title:     welcomeTitle,
		Body:      welcomeBody,
		Read:      false,
		CreatedAt: now,
	})
	if err != nil {
		return triggers.Failed(err)
	}

	a.log.Info("account_initialized", "user_id", userID, "notification_id", id)
	return triggers.Done(map[string]string{"userId": userID, "notificationId": id})
}
