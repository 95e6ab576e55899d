package media

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/gabriel-vasile/mimetype"
	"github.com/google/uuid"

	"github.com/anonto42/nano-midea/functions/internal/metrics"
	"github.com/anonto42/nano-midea/functions/internal/models"
	"github.com/anonto42/nano-midea/functions/internal/repositories"
)

// Upload describes a finalized object in the bucket.
type Upload struct {
	Bucket      string `json:"bucket"`
	Name        string `json:"name" validate:"required"`
	ContentType string `json:"contentType"`
}

// Result of processing one upload.
type Result struct {
	SkipReason string
	Thumbnail  models.Derivative
	Optimized  models.Derivative
	// Owner is the document the derivatives were written back to, if any.
	Owner string
}

// Skipped reports whether the upload was ignored.
func (r Result) Skipped() bool {
	return r.SkipReason != ""
}

// Pipeline generates derivatives for uploaded images.
type Pipeline struct {
	storage repositories.MediaStorage
	codec   Codec
	users   repositories.UserRepository
	stories repositories.StoryRepository
	chats   repositories.ChatRepository
	assets  repositories.MediaAssetRepository
	tmpRoot string
	now     func() time.Time
	log     *slog.Logger
}

// NewPipeline creates a Pipeline. assets may be nil.
func NewPipeline(
	storage repositories.MediaStorage,
	codec Codec,
	users repositories.UserRepository,
	stories repositories.StoryRepository,
	chats repositories.ChatRepository,
	assets repositories.MediaAssetRepository,
	log *slog.Logger,
) *Pipeline {
	return &Pipeline{
		storage: storage,
		codec:   codec,
		users:   users,
		stories: stories,
		chats:   chats,
		assets:  assets,
		tmpRoot: os.TempDir(),
		now:     time.Now,
		log:     log,
	}
}

// Process downloads the upload, writes a thumbnail and an optimized copy
// next to it and points the owning document at them. A write-back error is
// returned after the derivatives are stored; they are not removed.
func (p *Pipeline) Process(ctx context.Context, up Upload) (Result, error) {
	if reason, skip := skipReason(up.Name, up.ContentType); skip {
		p.log.Debug("upload_skipped", "path", up.Name, "reason", reason)
		metrics.ObserveDerivatives("skipped")
		return Result{SkipReason: reason}, nil
	}
	// Storage only reaches the configured bucket.
	if own := p.storage.BucketName(); up.Bucket != "" && own != "" && up.Bucket != own {
		p.log.Warn("upload_skipped", "path", up.Name, "bucket", up.Bucket, "reason", SkipForeign)
		metrics.ObserveDerivatives("skipped")
		return Result{SkipReason: SkipForeign}, nil
	}

	res, err := p.process(ctx, up)
	switch {
	case err != nil:
		metrics.ObserveDerivatives("failed")
	case res.Skipped():
		metrics.ObserveDerivatives("skipped")
	default:
		metrics.ObserveDerivatives("processed")
	}
	return res, err
}

func (p *Pipeline) process(ctx context.Context, up Upload) (Result, error) {
	workDir := filepath.Join(p.tmpRoot, "derivatives-"+uuid.NewString())
	if err := os.MkdirAll(workDir, 0o700); err != nil {
		return Result{}, fmt.Errorf("create work dir: %w", err)
	}
	defer func() {
		if err := os.RemoveAll(workDir); err != nil {
			p.log.Warn("work_dir_cleanup_failed", "dir", workDir, "error", err)
		}
	}()

	original := filepath.Join(workDir, "original")
	if err := p.storage.Download(ctx, up.Name, original); err != nil {
		return Result{}, fmt.Errorf("download %s: %w", up.Name, err)
	}

	mt, err := mimetype.DetectFile(original)
	if err != nil {
		return Result{}, fmt.Errorf("sniff %s: %w", up.Name, err)
	}
	if !strings.HasPrefix(mt.String(), "image/") {
		p.log.Info("upload_not_an_image", "path", up.Name, "declared", up.ContentType, "detected", mt.String())
		return Result{SkipReason: SkipNotImage}, nil
	}

	ext := p.codec.Extension()
	thumb, err := p.derive(ctx, up.Name, original, filepath.Join(workDir, "thumb."+ext),
		thumbnailPath(up.Name, ext), models.DerivativeThumbnail, thumbnailGeometry)
	if err != nil {
		return Result{}, err
	}
	optimized, err := p.derive(ctx, up.Name, original, filepath.Join(workDir, "optimized."+ext),
		optimizedPath(up.Name, ext), models.DerivativeOptimized, optimizedGeometry)
	if err != nil {
		return Result{}, err
	}

	res := Result{Thumbnail: thumb, Optimized: optimized}
	p.log.Info("derivatives_stored", "path", up.Name, "thumbnail", thumb.Path, "optimized", optimized.Path)

	res.Owner, err = p.writeBack(ctx, up.Name, thumb.URL, optimized.URL)
	p.catalog(ctx, up, res)
	if err != nil {
		return res, fmt.Errorf("write back %s: %w", up.Name, err)
	}
	return res, nil
}

func (p *Pipeline) derive(ctx context.Context, objectPath, src, local, dest, kind string, g Geometry) (models.Derivative, error) {
	if err := p.codec.Resize(ctx, src, local, g); err != nil {
		return models.Derivative{}, fmt.Errorf("%s of %s: %w", kind, objectPath, err)
	}
	w, h, err := dimensions(local)
	if err != nil {
		return models.Derivative{}, err
	}

	meta := map[string]string{"original": objectPath, "type": kind}
	if err := p.storage.Upload(ctx, local, dest, p.codec.ContentType(), meta); err != nil {
		return models.Derivative{}, fmt.Errorf("upload %s: %w", dest, err)
	}
	url, err := p.storage.SignedURL(dest)
	if err != nil {
		return models.Derivative{}, err
	}
	return models.Derivative{
		Type:        kind,
		Path:        dest,
		URL:         url,
		ContentType: p.codec.ContentType(),
		Width:       w,
		Height:      h,
	}, nil
}

// writeBack updates the document owning objectPath and returns its path.
// Unknown namespaces and unmatched documents are not errors.
func (p *Pipeline) writeBack(ctx context.Context, objectPath, thumbURL, optimizedURL string) (string, error) {
	ns, id, ok := owner(objectPath)
	if !ok {
		p.log.Info("write_back_skipped", "path", objectPath, "reason", "unknown namespace")
		return "", nil
	}
	now := p.now()

	switch ns {
	case NamespaceProfile:
		err := p.users.UpdateProfileMedia(ctx, id, optimizedURL, thumbURL, now)
		if errors.Is(err, repositories.ErrNotFound) {
			p.log.Info("write_back_skipped", "path", objectPath, "reason", "user not found")
			return "", nil
		}
		if err != nil {
			return "", err
		}
		return "users/" + id, nil

	case NamespaceStory:
		storyID, err := p.stories.FindStoryByMedia(ctx, id, objectPath)
		if errors.Is(err, repositories.ErrNotFound) {
			p.log.Info("write_back_skipped", "path", objectPath, "reason", "no matching story")
			return "", nil
		}
		if err != nil {
			return "", err
		}
		if err := p.stories.UpdateStoryMedia(ctx, storyID, objectPath, optimizedURL, thumbURL, now); err != nil {
			return "", err
		}
		return "stories/" + storyID, nil

	case NamespaceChat:
		messageID, err := p.chats.FindMessageByImage(ctx, id, objectPath)
		if errors.Is(err, repositories.ErrNotFound) {
			p.log.Info("write_back_skipped", "path", objectPath, "reason", "no matching message")
			return "", nil
		}
		if err != nil {
			return "", err
		}
		if err := p.chats.UpdateMessageMedia(ctx, id, messageID, optimizedURL, thumbURL); err != nil {
			return "", err
		}
		return "chats/" + id + "/messages/" + messageID, nil
	}
	return "", nil
}

func (p *Pipeline) catalog(ctx context.Context, up Upload, res Result) {
	if p.assets == nil {
		return
	}
	bucket := up.Bucket
	if bucket == "" {
		bucket = p.storage.BucketName()
	}
	asset := &models.MediaAsset{
		OriginalPath: up.Name,
		Bucket:       bucket,
		ContentType:  up.ContentType,
		Derivatives:  []models.Derivative{res.Thumbnail, res.Optimized},
		Owner:        res.Owner,
		ProcessedAt:  p.now(),
	}
	if err := p.assets.UpsertAsset(ctx, asset); err != nil {
		p.log.Warn("media_catalog_failed", "path", up.Name, "error", err)
	}
}
