package models

import (
	"slices"
	"time"
)

// StoryTTL is how long a story stays visible after creation.
const StoryTTL = 24 * time.Hour

// Story represents a user's story stored in Firestore (stories/{id})
type Story struct {
	ID           string    `json:"id,omitempty" firestore:"-"`
	UserID       string    `json:"userId" firestore:"userId"`
	MediaURL     string    `json:"mediaUrl,omitempty" firestore:"mediaUrl,omitempty"`
	ThumbnailURL string    `json:"thumbnailUrl,omitempty" firestore:"thumbnailUrl,omitempty"`
	// OriginalPath is the raw upload once mediaUrl points at a derivative.
	OriginalPath string    `json:"originalPath,omitempty" firestore:"originalPath,omitempty"`
	LikedBy      []string  `json:"likedBy,omitempty" firestore:"likedBy,omitempty"`
	CreatedAt    time.Time `json:"createdAt" firestore:"createdAt"`
}

// MediaRefs returns the distinct non-empty media references held by the
// story, the raw upload included.
func (s *Story) MediaRefs() []string {
	refs := make([]string, 0, 3)
	for _, ref := range []string{s.MediaURL, s.ThumbnailURL, s.OriginalPath} {
		if ref == "" || slices.Contains(refs, ref) {
			continue
		}
		refs = append(refs, ref)
	}
	return refs
}

// StoryReply is stored under stories/{storyId}/replies/{replyId}
type StoryReply struct {
	ID        string     `json:"id,omitempty" firestore:"-"`
	SenderID  string     `json:"senderId" firestore:"senderId"`
	Text      string     `json:"text,omitempty" firestore:"text,omitempty"`
	CreatedAt *time.Time `json:"createdAt,omitempty" firestore:"createdAt,omitempty"`
}

// FirstNewLiker returns the first id present in after but absent from before.
func FirstNewLiker(before, after []string) (string, bool) {
	seen := make(map[string]struct{}, len(before))
	for _, id := range before {
		seen[id] = struct{}{}
	}
	for _, id := range after {
		if _, ok := seen[id]; !ok && id != "" {
			return id, true
		}
	}
	return "", false
}
