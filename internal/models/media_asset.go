package models

import "time"

// Derivative types written into the provenance metadata of generated objects.
const (
	DerivativeThumbnail = "thumbnail"
	DerivativeOptimized = "optimized"
)

// Derivative is one generated variant of an uploaded image.
type Derivative struct {
	Type        string `json:"type" bson:"type"`
	Path        string `json:"path" bson:"path"`
	URL         string `json:"url" bson:"url"`
	ContentType string `json:"content_type" bson:"content_type"`
	Width       int    `json:"width" bson:"width"`
	Height      int    `json:"height" bson:"height"`
}

// MediaAsset is the provenance record of an original upload stored in MongoDB
type MediaAsset struct {
	OriginalPath string       `json:"original_path" bson:"_id"`
	Bucket       string       `json:"bucket" bson:"bucket"`
	ContentType  string       `json:"content_type" bson:"content_type"`
	Derivatives  []Derivative `json:"derivatives" bson:"derivatives"`
	Owner        string       `json:"owner,omitempty" bson:"owner,omitempty"` // users/{id}, stories/{id} or chats/{id}/messages/{id}
	ProcessedAt  time.Time    `json:"processed_at" bson:"processed_at"`
}
