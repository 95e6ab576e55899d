package repositories

import (
	"context"
	"fmt"

	"cloud.google.com/go/firestore"
	"github.com/anonto42/nano-midea/functions/internal/models"
)

// PostRepository defines the interface for post lookups
type PostRepository interface {
	GetPostByID(ctx context.Context, id string) (*models.Post, error)
}

type firestorePostRepository struct {
	posts *firestore.CollectionRef
}

// NewFirestorePostRepository creates a PostRepository on the posts collection
func NewFirestorePostRepository(db *firestore.Client) PostRepository {
	return &firestorePostRepository{posts: db.Collection("posts")}
}

func (r *firestorePostRepository) GetPostByID(ctx context.Context, id string) (*models.Post, error) {
	if id == "" {
		return nil, ErrNotFound
	}
	snap, err := r.posts.Doc(id).Get(ctx)
	if err != nil {
		if isNotFound(err) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("get post %s: %w", id, err)
	}
	var post models.Post
	if err := snap.DataTo(&post); err != nil {
		return nil, fmt.Errorf("decode post %s: %w", id, err)
	}
	post.ID = snap.Ref.ID
	return &post, nil
}
