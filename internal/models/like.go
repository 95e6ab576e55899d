package models

// Like represents a like on a post (likes/{id})
type Like struct {
	ID     string `json:"id,omitempty" firestore:"-"`
	PostID string `json:"postId" firestore:"postId"` // ID of the post that was liked
	UserID string `json:"userId" firestore:"userId"` // ID of the user who liked the post
}
