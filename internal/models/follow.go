package models

// Follow is stored under users/{userId}/followers/{followerId}
type Follow struct {
	FollowerID string `json:"followerId,omitempty" firestore:"followerId,omitempty"`
}

// ProfileView records one visit of a profile (profile_views/{id})
type ProfileView struct {
	ID            string `json:"id,omitempty" firestore:"-"`
	ViewerID      string `json:"viewerId" firestore:"viewerId"`
	ProfileUserID string `json:"profileUserId" firestore:"profileUserId"`
}
