package media

import (
	"bytes"
	"context"
	"errors"
	"image"
	"image/color"
	"image/png"
	"os"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/anonto42/nano-midea/functions/internal/models"
	"github.com/anonto42/nano-midea/functions/internal/repositories"
	"github.com/anonto42/nano-midea/functions/internal/repositories/mocks"
	"github.com/anonto42/nano-midea/functions/pkg/logger"
)

type memStorage struct {
	mu        sync.Mutex
	objects   map[string][]byte
	metadata  map[string]map[string]string
	downloads int
}

func newMemStorage() *memStorage {
	return &memStorage{objects: map[string][]byte{}, metadata: map[string]map[string]string{}}
}

func (s *memStorage) Download(_ context.Context, objectPath, localPath string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.downloads++
	b, ok := s.objects[objectPath]
	if !ok {
		return repositories.ErrNotFound
	}
	return os.WriteFile(localPath, b, 0o600)
}

func (s *memStorage) Upload(_ context.Context, localPath, objectPath, _ string, metadata map[string]string) error {
	b, err := os.ReadFile(localPath)
	if err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.objects[objectPath] = b
	s.metadata[objectPath] = metadata
	return nil
}

func (s *memStorage) Delete(_ context.Context, objectPath string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.objects, objectPath)
	return nil
}

func (s *memStorage) SignedURL(objectPath string) (string, error) {
	return "https://storage.googleapis.com/test-bucket/" + objectPath + "?sig", nil
}

func (s *memStorage) BucketName() string { return "test-bucket" }

func pngBytes(t *testing.T, w, h int) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for x := 0; x < w; x++ {
		for y := 0; y < h; y++ {
			img.Set(x, y, color.RGBA{R: uint8(x), G: uint8(y), B: 90, A: 255})
		}
	}
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return buf.Bytes()
}

type pipelineDeps struct {
	storage *memStorage
	users   *mocks.UserRepository
	stories *mocks.StoryRepository
	chats   *mocks.ChatRepository
	assets  *mocks.MediaAssetRepository
}

func newTestPipeline(t *testing.T) (*Pipeline, pipelineDeps) {
	deps := pipelineDeps{
		storage: newMemStorage(),
		users:   new(mocks.UserRepository),
		stories: new(mocks.StoryRepository),
		chats:   new(mocks.ChatRepository),
		assets:  new(mocks.MediaAssetRepository),
	}
	p := NewPipeline(deps.storage, NewNativeCodec(), deps.users, deps.stories, deps.chats, deps.assets, logger.Discard())
	p.tmpRoot = t.TempDir()
	return p, deps
}

func TestProcess_ProfileImage(t *testing.T) {
	p, deps := newTestPipeline(t)
	deps.storage.objects["profiles/u1/avatar.png"] = pngBytes(t, 3000, 1200)
	deps.users.On("UpdateProfileMedia", mock.Anything, "u1",
		"https://storage.googleapis.com/test-bucket/profiles/u1/avatar_png_optimized.jpg?sig",
		"https://storage.googleapis.com/test-bucket/profiles/u1/thumbs/thumb_avatar_png.jpg?sig",
		mock.Anything).Return(nil)
	deps.assets.On("UpsertAsset", mock.Anything, mock.MatchedBy(func(a *models.MediaAsset) bool {
		return a.OriginalPath == "profiles/u1/avatar.png" && a.Owner == "users/u1" && len(a.Derivatives) == 2
	})).Return(nil)

	res, err := p.Process(context.Background(), Upload{Name: "profiles/u1/avatar.png", ContentType: "image/png"})
	require.NoError(t, err)
	assert.False(t, res.Skipped())
	assert.Equal(t, "users/u1", res.Owner)

	assert.Equal(t, "profiles/u1/thumbs/thumb_avatar_png.jpg", res.Thumbnail.Path)
	assert.Equal(t, ThumbnailSize, res.Thumbnail.Width)
	assert.Equal(t, ThumbnailSize, res.Thumbnail.Height)

	assert.Equal(t, "profiles/u1/avatar_png_optimized.jpg", res.Optimized.Path)
	assert.Equal(t, MaxEdge, res.Optimized.Width)
	assert.InDelta(t, 3000.0/1200.0, float64(res.Optimized.Width)/float64(res.Optimized.Height), 0.01)

	assert.Equal(t, map[string]string{"original": "profiles/u1/avatar.png", "type": "thumbnail"},
		deps.storage.metadata[res.Thumbnail.Path])
	assert.Equal(t, map[string]string{"original": "profiles/u1/avatar.png", "type": "optimized"},
		deps.storage.metadata[res.Optimized.Path])
	deps.users.AssertExpectations(t)
	deps.assets.AssertExpectations(t)
}

func TestProcess_ThumbnailAlwaysSquare(t *testing.T) {
	sizes := [][2]int{{50, 400}, {800, 90}, {200, 200}, {64, 64}}
	for _, sz := range sizes {
		p, deps := newTestPipeline(t)
		deps.storage.objects["misc/pic.png"] = pngBytes(t, sz[0], sz[1])
		deps.assets.On("UpsertAsset", mock.Anything, mock.Anything).Return(nil)

		res, err := p.Process(context.Background(), Upload{Name: "misc/pic.png", ContentType: "image/png"})
		require.NoError(t, err)
		assert.Equal(t, ThumbnailSize, res.Thumbnail.Width, "input %v", sz)
		assert.Equal(t, ThumbnailSize, res.Thumbnail.Height, "input %v", sz)
		assert.LessOrEqual(t, res.Optimized.Width, MaxEdge)
		assert.LessOrEqual(t, res.Optimized.Height, MaxEdge)
		assert.Equal(t, sz[0], res.Optimized.Width, "small images are not upscaled")
	}
}

func TestProcess_TallImageCapsHeight(t *testing.T) {
	p, deps := newTestPipeline(t)
	deps.storage.objects["misc/tall.png"] = pngBytes(t, 1000, 4000)
	deps.assets.On("UpsertAsset", mock.Anything, mock.Anything).Return(nil)

	res, err := p.Process(context.Background(), Upload{Name: "misc/tall.png", ContentType: "image/png"})
	require.NoError(t, err)
	assert.Equal(t, MaxEdge, res.Optimized.Height)
	assert.Equal(t, 480, res.Optimized.Width)
}

func TestProcess_SkipsWithoutTouchingStorage(t *testing.T) {
	tests := []struct {
		name        string
		path        string
		contentType string
		reason      string
	}{
		{"thumbs segment", "stories/u1/thumbs/thumb_a_jpg.jpg", "image/jpeg", SkipDerivative},
		{"optimized copy", "stories/u1/a_jpg_optimized.webp", "image/webp", SkipDerivative},
		{"temp upload", "temp/u1/a.jpg", "image/jpeg", SkipTemporary},
		{"not an image", "chats/c1/voice.m4a", "audio/mp4", SkipNotImage},
		{"missing content type", "chats/c1/x.jpg", "", SkipNotImage},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p, deps := newTestPipeline(t)
			res, err := p.Process(context.Background(), Upload{Name: tt.path, ContentType: tt.contentType})
			require.NoError(t, err)
			assert.Equal(t, tt.reason, res.SkipReason)
			assert.Empty(t, res.Thumbnail.Path)
			assert.Equal(t, 0, deps.storage.downloads)
		})
	}
}

func TestProcess_SniffedNonImage(t *testing.T) {
	p, deps := newTestPipeline(t)
	deps.storage.objects["chats/c1/fake.jpg"] = []byte("%PDF-1.4 not an image at all")

	res, err := p.Process(context.Background(), Upload{Name: "chats/c1/fake.jpg", ContentType: "image/jpeg"})
	require.NoError(t, err)
	assert.Equal(t, SkipNotImage, res.SkipReason)
	assert.Len(t, deps.storage.objects, 1)
}

func TestProcess_Idempotent(t *testing.T) {
	p, deps := newTestPipeline(t)
	deps.storage.objects["misc/pic.png"] = pngBytes(t, 2500, 1000)
	deps.assets.On("UpsertAsset", mock.Anything, mock.Anything).Return(nil)

	first, err := p.Process(context.Background(), Upload{Name: "misc/pic.png", ContentType: "image/png"})
	require.NoError(t, err)
	second, err := p.Process(context.Background(), Upload{Name: "misc/pic.png", ContentType: "image/png"})
	require.NoError(t, err)

	assert.Equal(t, first.Thumbnail, second.Thumbnail)
	assert.Equal(t, first.Optimized, second.Optimized)
}

func TestProcess_StoryWriteBack(t *testing.T) {
	p, deps := newTestPipeline(t)
	deps.storage.objects["stories/u1/s.png"] = pngBytes(t, 300, 300)
	deps.stories.On("FindStoryByMedia", mock.Anything, "u1", "stories/u1/s.png").Return("story-9", nil)
	deps.stories.On("UpdateStoryMedia", mock.Anything, "story-9", "stories/u1/s.png",
		"https://storage.googleapis.com/test-bucket/stories/u1/s_png_optimized.jpg?sig",
		"https://storage.googleapis.com/test-bucket/stories/u1/thumbs/thumb_s_png.jpg?sig",
		mock.Anything).Return(nil)
	deps.assets.On("UpsertAsset", mock.Anything, mock.Anything).Return(nil)

	res, err := p.Process(context.Background(), Upload{Name: "stories/u1/s.png", ContentType: "image/png"})
	require.NoError(t, err)
	assert.Equal(t, "stories/story-9", res.Owner)
	deps.stories.AssertExpectations(t)
}

func TestProcess_ChatWithoutMatchingMessage(t *testing.T) {
	p, deps := newTestPipeline(t)
	deps.storage.objects["chats/c1/img.png"] = pngBytes(t, 300, 300)
	deps.chats.On("FindMessageByImage", mock.Anything, "c1", "chats/c1/img.png").Return("", repositories.ErrNotFound)
	deps.assets.On("UpsertAsset", mock.Anything, mock.Anything).Return(nil)

	res, err := p.Process(context.Background(), Upload{Name: "chats/c1/img.png", ContentType: "image/png"})
	require.NoError(t, err)
	assert.Empty(t, res.Owner)
	assert.Contains(t, deps.storage.objects, res.Thumbnail.Path)
	deps.chats.AssertNotCalled(t, "UpdateMessageMedia", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestProcess_WriteBackFailureKeepsDerivatives(t *testing.T) {
	p, deps := newTestPipeline(t)
	deps.storage.objects["profiles/u1/a.png"] = pngBytes(t, 300, 300)
	deps.users.On("UpdateProfileMedia", mock.Anything, "u1", mock.Anything, mock.Anything, mock.Anything).
		Return(errors.New("unavailable"))
	deps.assets.On("UpsertAsset", mock.Anything, mock.Anything).Return(nil)

	res, err := p.Process(context.Background(), Upload{Name: "profiles/u1/a.png", ContentType: "image/png"})
	require.Error(t, err)
	assert.Contains(t, deps.storage.objects, res.Thumbnail.Path)
	assert.Contains(t, deps.storage.objects, res.Optimized.Path)
}

func TestProcess_RemovesWorkDir(t *testing.T) {
	p, deps := newTestPipeline(t)
	deps.storage.objects["misc/ok.png"] = pngBytes(t, 100, 100)
	deps.assets.On("UpsertAsset", mock.Anything, mock.Anything).Return(nil)

	_, err := p.Process(context.Background(), Upload{Name: "misc/ok.png", ContentType: "image/png"})
	require.NoError(t, err)
	_, err = p.Process(context.Background(), Upload{Name: "misc/missing.png", ContentType: "image/png"})
	require.Error(t, err)

	entries, err := os.ReadDir(p.tmpRoot)
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestProcess_SkipsUploadsFromOtherBuckets(t *testing.T) {
	p, deps := newTestPipeline(t)
	deps.storage.objects["profiles/u1/avatar.png"] = pngBytes(t, 300, 300)

	res, err := p.Process(context.Background(), Upload{Bucket: "other-bucket", Name: "profiles/u1/avatar.png", ContentType: "image/png"})
	require.NoError(t, err)
	assert.Equal(t, SkipForeign, res.SkipReason)
	assert.Zero(t, deps.storage.downloads)
	assert.Len(t, deps.storage.objects, 1)

	deps.users.On("UpdateProfileMedia", mock.Anything, "u1", mock.Anything, mock.Anything, mock.Anything).Return(nil)
	deps.assets.On("UpsertAsset", mock.Anything, mock.Anything).Return(nil)
	res, err = p.Process(context.Background(), Upload{Bucket: "test-bucket", Name: "profiles/u1/avatar.png", ContentType: "image/png"})
	require.NoError(t, err)
	assert.False(t, res.Skipped())
	assert.Equal(t, 1, deps.storage.downloads)
}
