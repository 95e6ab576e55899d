package repositories

import (
	"context"
	"errors"
	"fmt"
	"time"

	"cloud.google.com/go/firestore"
	"github.com/anonto42/nano-midea/functions/internal/models"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

// ErrNotFound is returned when a referenced document does not exist.
var ErrNotFound = errors.New("document not found")

// MaxWritesPerCommit is the Firestore limit of writes in one atomic commit.
const MaxWritesPerCommit = 500

func isNotFound(err error) bool {
	return status.Code(err) == codes.NotFound
}

// UserRepository defines the interface for user document operations
type UserRepository interface {
	GetUserByID(ctx context.Context, id string) (*models.User, error)
	ClearToken(ctx context.Context, id string) error
	ClearTokensUpdatedBefore(ctx context.Context, cutoff time.Time, limit int) (int, error)
	IncrementMetric(ctx context.Context, id, field string, by int64, at time.Time) error
	InitializeDefaults(ctx context.Context, id string, createdAt time.Time, at time.Time) error
	UpdateProfileMedia(ctx context.Context, id, photoURL, thumbnailURL string, at time.Time) error
}

// FirestoreUserRepository implements UserRepository on the users collection
type FirestoreUserRepository struct {
	users *firestore.CollectionRef
	db    *firestore.Client
}

// NewFirestoreUserRepository creates a new FirestoreUserRepository
func NewFirestoreUserRepository(db *firestore.Client) *FirestoreUserRepository {
	return &FirestoreUserRepository{users: db.Collection("users"), db: db}
}

// GetUserByID loads users/{id}; ErrNotFound when missing.
func (r *FirestoreUserRepository) GetUserByID(ctx context.Context, id string) (*models.User, error) {
	if id == "" {
		return nil, ErrNotFound
	}
	snap, err := r.users.Doc(id).Get(ctx)
	if err != nil {
		if isNotFound(err) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("get user %s: %w", id, err)
	}
	var user models.User
	if err := snap.DataTo(&user); err != nil {
		return nil, fmt.Errorf("decode user %s: %w", id, err)
	}
	user.ID = snap.Ref.ID
	return &user, nil
}

// ClearToken removes the delivery token of a single user.
func (r *FirestoreUserRepository) ClearToken(ctx context.Context, id string) error {
	_, err := r.users.Doc(id).Update(ctx, tokenDeletes())
	if err != nil {
		if isNotFound(err) {
			return ErrNotFound
		}
		return fmt.Errorf("clear token of user %s: %w", id, err)
	}
	return nil
}

// ClearTokensUpdatedBefore clears fcmToken on every user whose token was last
// refreshed before cutoff. All updates are committed together.
func (r *FirestoreUserRepository) ClearTokensUpdatedBefore(ctx context.Context, cutoff time.Time, limit int) (int, error) {
	if limit <= 0 || limit > MaxWritesPerCommit {
		limit = MaxWritesPerCommit
	}
	snaps, err := r.users.Where("fcmTokenUpdatedAt", "<", cutoff).Limit(limit).Documents(ctx).GetAll()
	if err != nil {
		return 0, fmt.Errorf("query expired tokens: %w", err)
	}
	if len(snaps) == 0 {
		return 0, nil
	}

	err = r.db.RunTransaction(ctx, func(ctx context.Context, tx *firestore.Transaction) error {
		for _, snap := range snaps {
			if err := tx.Update(snap.Ref, tokenDeletes()); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return 0, fmt.Errorf("commit token cleanup: %w", err)
	}
	return len(snaps), nil
}

// IncrementMetric bumps a numeric counter and refreshes lastActiveAt.
func (r *FirestoreUserRepository) IncrementMetric(ctx context.Context, id, field string, by int64, at time.Time) error {
	_, err := r.users.Doc(id).Update(ctx, []firestore.Update{
		{Path: field, Value: firestore.Increment(by)},
		{Path: "lastActiveAt", Value: at},
	})
	if err != nil {
		if isNotFound(err) {
			return ErrNotFound
		}
		return fmt.Errorf("increment %s of user %s: %w", field, id, err)
	}
	return nil
}

// InitializeDefaults writes the zeroed counters of a freshly created account.
func (r *FirestoreUserRepository) InitializeDefaults(ctx context.Context, id string, createdAt time.Time, at time.Time) error {
	_, err := r.users.Doc(id).Update(ctx, []firestore.Update{
		{Path: "messageCount", Value: 0},
		{Path: "storyCount", Value: 0},
		{Path: "profileViewCount", Value: 0},
		{Path: "activeStoryCount", Value: 0},
		{Path: "friendCount", Value: 0},
		{Path: "createdAt", Value: createdAt},
		{Path: "lastActiveAt", Value: at},
	})
	if err != nil {
		if isNotFound(err) {
			return ErrNotFound
		}
		return fmt.Errorf("initialize user %s: %w", id, err)
	}
	return nil
}

// UpdateProfileMedia points the profile image fields at generated derivatives.
func (r *FirestoreUserRepository) UpdateProfileMedia(ctx context.Context, id, photoURL, thumbnailURL string, at time.Time) error {
	_, err := r.users.Doc(id).Update(ctx, []firestore.Update{
		{Path: "photoURL", Value: photoURL},
		{Path: "thumbnailURL", Value: thumbnailURL},
		{Path: "updatedAt", Value: at},
	})
	if err != nil {
		if isNotFound(err) {
			return ErrNotFound
		}
		return fmt.Errorf("update profile media of user %s: %w", id, err)
	}
	return nil
}

func tokenDeletes() []firestore.Update {
	return []firestore.Update{
		{Path: "fcmToken", Value: firestore.Delete},
		{Path: "fcmTokenUpdatedAt", Value: firestore.Delete},
	}
}
