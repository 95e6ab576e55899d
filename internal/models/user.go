package models

import "time"

// User is the users/{id} document written by the mobile client.
type User struct {
	ID                string       `json:"id,omitempty" firestore:"-"`
	Name              string       `json:"name,omitempty" firestore:"name,omitempty"`
	DisplayName       string       `json:"displayName,omitempty" firestore:"displayName,omitempty"`
	FCMToken          string       `json:"fcmToken,omitempty" firestore:"fcmToken,omitempty"`
	FCMTokenUpdatedAt *time.Time   `json:"fcmTokenUpdatedAt,omitempty" firestore:"fcmTokenUpdatedAt,omitempty"`
	Settings          UserSettings `json:"settings" firestore:"settings"`
	MessageCount      int64        `json:"messageCount" firestore:"messageCount"`
	StoryCount        int64        `json:"storyCount" firestore:"storyCount"`
	ProfileViewCount  int64        `json:"profileViewCount" firestore:"profileViewCount"`
	ActiveStoryCount  int64        `json:"activeStoryCount" firestore:"activeStoryCount"`
	FriendCount       int64        `json:"friendCount" firestore:"friendCount"`
	PhotoURL          string       `json:"photoURL,omitempty" firestore:"photoURL,omitempty"`
	ThumbnailURL      string       `json:"thumbnailURL,omitempty" firestore:"thumbnailURL,omitempty"`
	ProfileImageURL   string       `json:"profileImageUrl,omitempty" firestore:"profileImageUrl,omitempty"`
	CreatedAt         *time.Time   `json:"createdAt,omitempty" firestore:"createdAt,omitempty"`
	LastActiveAt      *time.Time   `json:"lastActiveAt,omitempty" firestore:"lastActiveAt,omitempty"`
}

// UserSettings holds per-user notification preferences.
type UserSettings struct {
	NotifyOnProfileView bool `json:"notifyOnProfileView" firestore:"notifyOnProfileView"`
}

// UserCompact is the actor summary carried into rendered notifications.
type UserCompact struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	ImageURL string `json:"image_url,omitempty"`
}

// DisplayNameOr returns the best known name for the user, or fallback.
func (u *User) DisplayNameOr(fallback string) string {
	if u == nil {
		return fallback
	}
	if u.Name != "" {
		return u.Name
	}
	if u.DisplayName != "" {
		return u.DisplayName
	}
	return fallback
}

// ToCompact converts a User to UserCompact. A nil user yields an empty summary.
func (u *User) ToCompact() UserCompact {
	if u == nil {
		return UserCompact{}
	}
	img := u.ProfileImageURL
	if img == "" {
		img = u.ThumbnailURL
	}
	return UserCompact{
		ID:       u.ID,
		Name:     u.DisplayNameOr(""),
		ImageURL: img,
	}
}

// MetricType names a user counter that can be bumped by updateUserMetrics.
type MetricType string

const (
	MetricMessage     MetricType = "message"
	MetricStory       MetricType = "story"
	MetricProfileView MetricType = "profileView"
)

// Field returns the users/{id} counter field for the metric.
func (m MetricType) Field() (string, bool) {
	switch m {
	case MetricMessage:
		return "messageCount", true
	case MetricStory:
		return "storyCount", true
	case MetricProfileView:
		return "profileViewCount", true
	}
	return "", false
}

// UpdateUserMetricsRequest defines the payload of the updateUserMetrics call
type UpdateUserMetricsRequest struct {
	UserID      string `json:"userId" validate:"required"`
	MetricType  string `json:"metricType" validate:"required,oneof=message story profileView"`
	IncrementBy *int64 `json:"incrementBy,omitempty"`
}
