package media

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDerivativePaths(t *testing.T) {
	assert.Equal(t, "stories/u1/thumbs/thumb_photo_jpg.webp", thumbnailPath("stories/u1/photo.jpg", "webp"))
	assert.Equal(t, "stories/u1/photo_jpg_optimized.webp", optimizedPath("stories/u1/photo.jpg", "webp"))
	assert.NotEqual(t, optimizedPath("a/photo.jpg", "webp"), optimizedPath("a/photo.png", "webp"))
}

func TestDerivativePathsAreSkipped(t *testing.T) {
	for _, p := range []string{
		thumbnailPath("profiles/u1/me.png", "webp"),
		optimizedPath("profiles/u1/me.png", "webp"),
	} {
		reason, skip := skipReason(p, "image/webp")
		assert.True(t, skip, p)
		assert.Equal(t, SkipDerivative, reason)
	}
}

func TestOwner(t *testing.T) {
	tests := []struct {
		path   string
		ns     Namespace
		id     string
		wantOK bool
	}{
		{"profiles/u1/avatar.jpg", NamespaceProfile, "u1", true},
		{"stories/u2/a/b.jpg", NamespaceStory, "u2", true},
		{"chats/c1/img.jpg", NamespaceChat, "c1", true},
		{"posts/p1/img.jpg", "", "", false},
		{"profiles/avatar.jpg", "", "", false},
	}
	for _, tt := range tests {
		ns, id, ok := owner(tt.path)
		assert.Equal(t, tt.wantOK, ok, tt.path)
		assert.Equal(t, tt.ns, ns, tt.path)
		assert.Equal(t, tt.id, id, tt.path)
	}
}

func TestConvertArgs(t *testing.T) {
	assert.Equal(t,
		[]string{"in", "-auto-orient", "-thumbnail", "200x200^", "-gravity", "center", "-extent", "200x200", "-quality", "85", "out.webp"},
		convertArgs("in", "out.webp", thumbnailGeometry))
	assert.Equal(t,
		[]string{"in", "-auto-orient", "-resize", "1920x1920>", "-quality", "85", "out.webp"},
		convertArgs("in", "out.webp", optimizedGeometry))
}
