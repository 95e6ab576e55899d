package expiry

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/anonto42/nano-midea/functions/internal/metrics"
	"github.com/anonto42/nano-midea/functions/internal/models"
	"github.com/anonto42/nano-midea/functions/internal/repositories"
)

// MaxStoriesPerSweep keeps the deletes and the per-owner decrements of one
// sweep inside a single commit.
const MaxStoriesPerSweep = repositories.MaxWritesPerCommit / 2

// Report summarizes one sweep.
type Report struct {
	Deleted      int `json:"deleted"`
	MediaDeleted int `json:"mediaDeleted"`
}

// Reaper deletes expired stories together with their counters and media.
type Reaper struct {
	stories repositories.StoryRepository
	storage repositories.MediaStorage
	ttl     time.Duration
	log     *slog.Logger
}

// NewReaper creates a Reaper. A non-positive ttl uses models.StoryTTL.
func NewReaper(stories repositories.StoryRepository, storage repositories.MediaStorage, ttl time.Duration, log *slog.Logger) *Reaper {
	if ttl <= 0 {
		ttl = models.StoryTTL
	}
	return &Reaper{stories: stories, storage: storage, ttl: ttl, log: log}
}

// Sweep removes stories created strictly before now-ttl. Documents and
// activeStoryCount decrements commit atomically; media objects are removed
// afterwards and a failed removal is only logged.
func (r *Reaper) Sweep(ctx context.Context, now time.Time) (Report, error) {
	cutoff := now.Add(-r.ttl)
	expired, err := r.stories.ListCreatedBefore(ctx, cutoff, MaxStoriesPerSweep)
	if err != nil {
		return Report{}, err
	}
	if len(expired) == 0 {
		r.log.Info("no_expired_stories", "cutoff", cutoff)
		return Report{}, nil
	}

	ids := make([]string, 0, len(expired))
	decrements := make(map[string]int64)
	for _, s := range expired {
		ids = append(ids, s.ID)
		if s.UserID != "" {
			decrements[s.UserID]++
		}
	}

	if err := r.stories.DeleteWithCounters(ctx, ids, decrements); err != nil {
		return Report{}, err
	}
	report := Report{Deleted: len(ids)}

	for _, s := range expired {
		for _, ref := range s.MediaRefs() {
			objectPath, ok := repositories.ObjectPath(ref)
			if !ok {
				r.log.Warn("story_media_unresolvable", "story_id", s.ID, "ref", ref)
				continue
			}
			err := r.storage.Delete(ctx, objectPath)
			switch {
			case err == nil:
				report.MediaDeleted++
			case errors.Is(err, repositories.ErrNotFound):
				r.log.Debug("story_media_already_gone", "story_id", s.ID, "path", objectPath)
			default:
				r.log.Warn("story_media_delete_failed", "story_id", s.ID, "path", objectPath, "error", err)
			}
		}
	}

	metrics.ObserveReap(report.Deleted, report.MediaDeleted)
	r.log.Info("expired_stories_deleted", "deleted", report.Deleted, "media_deleted", report.MediaDeleted, "owners", len(decrements))
	return report, nil
}
