package expiry

import (
	"bytes"
	"context"
	"image"
	"image/color"
	"image/png"
	"os"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/anonto42/nano-midea/functions/internal/media"
	"github.com/anonto42/nano-midea/functions/internal/models"
	"github.com/anonto42/nano-midea/functions/internal/repositories"
	"github.com/anonto42/nano-midea/functions/internal/repositories/mocks"
	"github.com/anonto42/nano-midea/functions/pkg/logger"
)

type bucket struct {
	mu      sync.Mutex
	objects map[string][]byte
}

func (b *bucket) Download(_ context.Context, objectPath, localPath string) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	data, ok := b.objects[objectPath]
	if !ok {
		return repositories.ErrNotFound
	}
	return os.WriteFile(localPath, data, 0o600)
}

func (b *bucket) Upload(_ context.Context, localPath, objectPath, _ string, _ map[string]string) error {
	data, err := os.ReadFile(localPath)
	if err != nil {
		return err
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	b.objects[objectPath] = data
	return nil
}

func (b *bucket) Delete(_ context.Context, objectPath string) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if _, ok := b.objects[objectPath]; !ok {
		return repositories.ErrNotFound
	}
	delete(b.objects, objectPath)
	return nil
}

func (b *bucket) SignedURL(objectPath string) (string, error) {
	return "https://storage.googleapis.com/app/" + objectPath + "?sig", nil
}

func (b *bucket) BucketName() string { return "app" }

// storyStore keeps stories in memory and applies media write-backs.
type storyStore struct {
	fakeStories
}

func (s *storyStore) FindStoryByMedia(_ context.Context, ownerID, mediaPath string) (string, error) {
	for _, st := range s.all {
		if st.UserID == ownerID && st.MediaURL == mediaPath {
			return st.ID, nil
		}
	}
	return "", repositories.ErrNotFound
}

func (s *storyStore) UpdateStoryMedia(_ context.Context, storyID, originalPath, mediaURL, thumbnailURL string, _ time.Time) error {
	for i := range s.all {
		if s.all[i].ID == storyID {
			s.all[i].OriginalPath = originalPath
			s.all[i].MediaURL = mediaURL
			s.all[i].ThumbnailURL = thumbnailURL
			return nil
		}
	}
	return repositories.ErrNotFound
}

func (s *storyStore) DeleteWithCounters(context.Context, []string, map[string]int64) error {
	return nil
}

func TestStoryExpiry_RemovesRawUploadAndDerivatives(t *testing.T) {
	img := image.NewRGBA(image.Rect(0, 0, 400, 300))
	img.Set(1, 1, color.RGBA{R: 200, A: 255})
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))

	store := &bucket{objects: map[string][]byte{"stories/u1/pic.png": buf.Bytes()}}
	created := time.Date(2025, 5, 10, 8, 0, 0, 0, time.UTC)
	stories := &storyStore{fakeStories{all: []models.Story{
		{ID: "s1", UserID: "u1", MediaURL: "stories/u1/pic.png", CreatedAt: created},
	}}}

	pipeline := media.NewPipeline(store, media.NewNativeCodec(), new(mocks.UserRepository), stories,
		new(mocks.ChatRepository), nil, logger.Discard())
	res, err := pipeline.Process(context.Background(), media.Upload{Name: "stories/u1/pic.png", ContentType: "image/png"})
	require.NoError(t, err)
	require.Equal(t, "stories/s1", res.Owner)
	require.Len(t, store.objects, 3)

	report, err := NewReaper(stories, store, 0, logger.Discard()).Sweep(context.Background(), created.Add(25*time.Hour))
	require.NoError(t, err)

	assert.Equal(t, Report{Deleted: 1, MediaDeleted: 3}, report)
	assert.Empty(t, store.objects)
}
