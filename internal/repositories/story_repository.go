package repositories

import (
	"context"
	"fmt"
	"maps"
	"slices"
	"time"

	"cloud.google.com/go/firestore"
	"github.com/anonto42/nano-midea/functions/internal/models"
)

// StoryRepository defines the interface for story operations
type StoryRepository interface {
	GetStoryByID(ctx context.Context, id string) (*models.Story, error)
	FindStoryByMedia(ctx context.Context, ownerID, mediaPath string) (string, error)
	UpdateStoryMedia(ctx context.Context, storyID, originalPath, mediaURL, thumbnailURL string, at time.Time) error
	ListCreatedBefore(ctx context.Context, cutoff time.Time, limit int) ([]models.Story, error)
	DeleteWithCounters(ctx context.Context, storyIDs []string, decrements map[string]int64) error
}

type storyRepository struct {
	db      *firestore.Client
	stories *firestore.CollectionRef
	users   *firestore.CollectionRef
}

func NewStoryRepository(db *firestore.Client) StoryRepository {
	return &storyRepository{
		db:      db,
		stories: db.Collection("stories"),
		users:   db.Collection("users"),
	}
}

func (r *storyRepository) GetStoryByID(ctx context.Context, id string) (*models.Story, error) {
	if id == "" {
		return nil, ErrNotFound
	}
	snap, err := r.stories.Doc(id).Get(ctx)
	if err != nil {
		if isNotFound(err) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("get story %s: %w", id, err)
	}
	return decodeStory(snap)
}

func (r *storyRepository) FindStoryByMedia(ctx context.Context, ownerID, mediaPath string) (string, error) {
	snaps, err := r.stories.
		Where("userId", "==", ownerID).
		Where("mediaUrl", "==", mediaPath).
		Limit(1).
		Documents(ctx).GetAll()
	if err != nil {
		return "", fmt.Errorf("query stories of %s: %w", ownerID, err)
	}
	if len(snaps) == 0 {
		return "", ErrNotFound
	}
	return snaps[0].Ref.ID, nil
}

// UpdateStoryMedia points the story at its derivatives and keeps the raw
// upload path so expiry can remove it too.
func (r *storyRepository) UpdateStoryMedia(ctx context.Context, storyID, originalPath, mediaURL, thumbnailURL string, at time.Time) error {
	_, err := r.stories.Doc(storyID).Update(ctx, []firestore.Update{
		{Path: "originalPath", Value: originalPath},
		{Path: "mediaUrl", Value: mediaURL},
		{Path: "thumbnailUrl", Value: thumbnailURL},
		{Path: "updatedAt", Value: at},
	})
	if err != nil {
		if isNotFound(err) {
			return ErrNotFound
		}
		return fmt.Errorf("update story %s media: %w", storyID, err)
	}
	return nil
}

func (r *storyRepository) ListCreatedBefore(ctx context.Context, cutoff time.Time, limit int) ([]models.Story, error) {
	q := r.stories.Where("createdAt", "<", cutoff).OrderBy("createdAt", firestore.Asc)
	if limit > 0 {
		q = q.Limit(limit)
	}
	snaps, err := q.Documents(ctx).GetAll()
	if err != nil {
		return nil, fmt.Errorf("query expired stories: %w", err)
	}
	stories := make([]models.Story, 0, len(snaps))
	for _, snap := range snaps {
		story, err := decodeStory(snap)
		if err != nil {
			return nil, err
		}
		stories = append(stories, *story)
	}
	return stories, nil
}

// DeleteWithCounters removes the stories and applies one activeStoryCount
// decrement per owner in a single transaction. Owners whose user document
// no longer exists are skipped so an orphaned story cannot block expiry.
func (r *storyRepository) DeleteWithCounters(ctx context.Context, storyIDs []string, decrements map[string]int64) error {
	if len(storyIDs)+len(decrements) > MaxWritesPerCommit {
		return fmt.Errorf("delete %d stories: %d writes exceed the commit limit", len(storyIDs), len(storyIDs)+len(decrements))
	}
	owners := slices.Sorted(maps.Keys(decrements))
	err := r.db.RunTransaction(ctx, func(ctx context.Context, tx *firestore.Transaction) error {
		refs := make([]*firestore.DocumentRef, 0, len(owners))
		for _, userID := range owners {
			refs = append(refs, r.users.Doc(userID))
		}
		existing := make(map[string]bool, len(owners))
		if len(refs) > 0 {
			snaps, err := tx.GetAll(refs)
			if err != nil {
				return err
			}
			for _, snap := range snaps {
				if snap.Exists() {
					existing[snap.Ref.ID] = true
				}
			}
		}

		for _, id := range storyIDs {
			if err := tx.Delete(r.stories.Doc(id)); err != nil {
				return err
			}
		}
		for userID, n := range liveDecrements(decrements, func(id string) bool { return existing[id] }) {
			if err := tx.Update(r.users.Doc(userID), []firestore.Update{
				{Path: "activeStoryCount", Value: firestore.Increment(-n)},
			}); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("commit story deletion: %w", err)
	}
	return nil
}

// liveDecrements drops the decrements of owners that no longer exist.
func liveDecrements(decrements map[string]int64, exists func(userID string) bool) map[string]int64 {
	live := make(map[string]int64, len(decrements))
	for userID, n := range decrements {
		if n > 0 && exists(userID) {
			live[userID] = n
		}
	}
	return live
}

func decodeStory(snap *firestore.DocumentSnapshot) (*models.Story, error) {
	var story models.Story
	if err := snap.DataTo(&story); err != nil {
		return nil, fmt.Errorf("decode story %s: %w", snap.Ref.ID, err)
	}
	story.ID = snap.Ref.ID
	return &story, nil
}
