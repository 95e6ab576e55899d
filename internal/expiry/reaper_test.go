package expiry

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/anonto42/nano-midea/functions/internal/models"
	"github.com/anonto42/nano-midea/functions/internal/repositories"
	"github.com/anonto42/nano-midea/functions/internal/repositories/mocks"
	"github.com/anonto42/nano-midea/functions/pkg/logger"
)

// fakeStories filters with the same strict comparison as the Firestore query.
type fakeStories struct {
	mocks.StoryRepository
	all []models.Story
}

func (f *fakeStories) ListCreatedBefore(_ context.Context, cutoff time.Time, limit int) ([]models.Story, error) {
	var out []models.Story
	for _, s := range f.all {
		if s.CreatedAt.Before(cutoff) && len(out) < limit {
			out = append(out, s)
		}
	}
	return out, nil
}

func TestSweep_DeletesOnlyExpiredAndGroupsDecrements(t *testing.T) {
	now := time.Date(2025, 5, 10, 12, 0, 0, 0, time.UTC)
	stories := &fakeStories{all: []models.Story{
		{ID: "s23", UserID: "u1", MediaURL: "stories/u1/a.jpg", CreatedAt: now.Add(-23 * time.Hour)},
		{ID: "s25", UserID: "u1", MediaURL: "stories/u1/b.jpg", CreatedAt: now.Add(-25 * time.Hour)},
		{ID: "s48", UserID: "u1", MediaURL: "stories/u1/c.jpg", CreatedAt: now.Add(-48 * time.Hour)},
	}}
	stories.On("DeleteWithCounters", mock.Anything, []string{"s25", "s48"}, map[string]int64{"u1": 2}).Return(nil).Once()

	storage := new(mocks.MediaStorage)
	storage.On("Delete", mock.Anything, "stories/u1/b.jpg").Return(nil)
	storage.On("Delete", mock.Anything, "stories/u1/c.jpg").Return(nil)

	report, err := NewReaper(stories, storage, 0, logger.Discard()).Sweep(context.Background(), now)

	require.NoError(t, err)
	assert.Equal(t, Report{Deleted: 2, MediaDeleted: 2}, report)
	stories.AssertExpectations(t)
	storage.AssertNotCalled(t, "Delete", mock.Anything, "stories/u1/a.jpg")
}

func TestSweep_ExactlyAtCutoffIsKept(t *testing.T) {
	now := time.Date(2025, 5, 10, 12, 0, 0, 0, time.UTC)
	stories := &fakeStories{all: []models.Story{{ID: "edge", UserID: "u1", CreatedAt: now.Add(-24 * time.Hour)}}}
	storage := new(mocks.MediaStorage)

	report, err := NewReaper(stories, storage, 0, logger.Discard()).Sweep(context.Background(), now)
	require.NoError(t, err)
	assert.Equal(t, Report{}, report)
	stories.AssertNotCalled(t, "DeleteWithCounters", mock.Anything, mock.Anything, mock.Anything)
}

func TestSweep_MediaFailuresDoNotUndoDeletion(t *testing.T) {
	now := time.Now()
	old := now.Add(-30 * time.Hour)
	stories := &fakeStories{all: []models.Story{
		{ID: "s1", UserID: "u1", CreatedAt: old,
			MediaURL:     "https://firebasestorage.googleapis.com/v0/b/app/o/stories%2Fu1%2Fx.jpg?alt=media",
			ThumbnailURL: "https://storage.googleapis.com/app/stories/u1/thumbs/thumb_x_jpg.webp?sig=1"},
		{ID: "s2", UserID: "u2", CreatedAt: old, MediaURL: "stories/u2/y.jpg"},
		{ID: "s3", UserID: "u2", CreatedAt: old, MediaURL: "stories/u2/z.jpg"},
	}}
	stories.On("DeleteWithCounters", mock.Anything, []string{"s1", "s2", "s3"}, map[string]int64{"u1": 1, "u2": 2}).Return(nil)

	storage := new(mocks.MediaStorage)
	storage.On("Delete", mock.Anything, "stories/u1/x.jpg").Return(nil)
	storage.On("Delete", mock.Anything, "stories/u1/thumbs/thumb_x_jpg.webp").Return(nil)
	storage.On("Delete", mock.Anything, "stories/u2/y.jpg").Return(errors.New("permission denied"))
	storage.On("Delete", mock.Anything, "stories/u2/z.jpg").Return(repositories.ErrNotFound)

	report, err := NewReaper(stories, storage, 0, logger.Discard()).Sweep(context.Background(), now)
	require.NoError(t, err)
	assert.Equal(t, 3, report.Deleted)
	assert.Equal(t, 2, report.MediaDeleted)
	storage.AssertExpectations(t)
}

func TestSweep_CommitFailureSkipsMedia(t *testing.T) {
	now := time.Now()
	stories := &fakeStories{all: []models.Story{{ID: "s1", UserID: "u1", MediaURL: "stories/u1/a.jpg", CreatedAt: now.Add(-72 * time.Hour)}}}
	stories.On("DeleteWithCounters", mock.Anything, mock.Anything, mock.Anything).Return(errors.New("aborted"))
	storage := new(mocks.MediaStorage)

	_, err := NewReaper(stories, storage, 0, logger.Discard()).Sweep(context.Background(), now)
	assert.Error(t, err)
	storage.AssertNotCalled(t, "Delete", mock.Anything, mock.Anything)
}
