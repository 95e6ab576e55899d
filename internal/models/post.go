package models

// Post is only read to find the owner of a liked post.
type Post struct {
	ID     string `json:"id,omitempty" firestore:"-"`
	UserID string `json:"userId" firestore:"userId"` // UID of the user who created the post
}
