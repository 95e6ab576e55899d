package repositories

import (
	"context"
	"fmt"

	"cloud.google.com/go/firestore"
	"github.com/anonto42/nano-midea/functions/internal/models"
	"google.golang.org/api/iterator"
)

// FollowRepository defines the interface for follower lookups
type FollowRepository interface {
	GetFollowerIDs(ctx context.Context, userID string) ([]string, error)
}

// FirestoreFollowRepository reads users/{id}/followers
type FirestoreFollowRepository struct {
	users *firestore.CollectionRef
}

// NewFirestoreFollowRepository creates a new FirestoreFollowRepository
func NewFirestoreFollowRepository(db *firestore.Client) *FirestoreFollowRepository {
	return &FirestoreFollowRepository{users: db.Collection("users")}
}

// GetFollowerIDs returns the full follower set of userID.
func (r *FirestoreFollowRepository) GetFollowerIDs(ctx context.Context, userID string) ([]string, error) {
	iter := r.users.Doc(userID).Collection("followers").Documents(ctx)
	defer iter.Stop()

	seen := make(map[string]struct{})
	var ids []string
	for {
		snap, err := iter.Next()
		if err == iterator.Done {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("list followers of %s: %w", userID, err)
		}
		var follow models.Follow
		if err := snap.DataTo(&follow); err != nil {
			return nil, fmt.Errorf("decode follower %s of %s: %w", snap.Ref.ID, userID, err)
		}
		id := follow.FollowerID
		if id == "" {
			id = snap.Ref.ID
		}
		if _, dup := seen[id]; dup {
			continue
		}
		seen[id] = struct{}{}
		ids = append(ids, id)
	}
	return ids, nil
}
