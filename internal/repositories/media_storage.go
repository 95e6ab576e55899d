package repositories

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/url"
	"os"
	"strings"
	"time"

	"cloud.google.com/go/storage"
)

// SignedURLExpiry is the expiry used for long-lived derivative read URLs.
var SignedURLExpiry = time.Date(2500, time.March, 1, 0, 0, 0, 0, time.UTC)

// MediaStorage is the object store used for uploads and their derivatives
type MediaStorage interface {
	Download(ctx context.Context, objectPath, localPath string) error
	Upload(ctx context.Context, localPath, objectPath, contentType string, metadata map[string]string) error
	Delete(ctx context.Context, objectPath string) error
	SignedURL(objectPath string) (string, error)
	BucketName() string
}

// GCSMediaStorage implements MediaStorage on a Cloud Storage bucket
type GCSMediaStorage struct {
	bucket *storage.BucketHandle
	name   string
}

// NewGCSMediaStorage creates a new GCSMediaStorage
func NewGCSMediaStorage(bucket *storage.BucketHandle, name string) *GCSMediaStorage {
	return &GCSMediaStorage{bucket: bucket, name: name}
}

func (s *GCSMediaStorage) BucketName() string {
	return s.name
}

// Download copies an object into localPath.
func (s *GCSMediaStorage) Download(ctx context.Context, objectPath, localPath string) error {
	rc, err := s.bucket.Object(objectPath).NewReader(ctx)
	if err != nil {
		if errors.Is(err, storage.ErrObjectNotExist) {
			return ErrNotFound
		}
		return fmt.Errorf("open %s: %w", objectPath, err)
	}
	defer rc.Close()

	f, err := os.Create(localPath)
	if err != nil {
		return fmt.Errorf("create %s: %w", localPath, err)
	}
	if _, err := io.Copy(f, rc); err != nil {
		f.Close()
		return fmt.Errorf("download %s: %w", objectPath, err)
	}
	return f.Close()
}

// Upload stores localPath at objectPath with custom metadata attached.
func (s *GCSMediaStorage) Upload(ctx context.Context, localPath, objectPath, contentType string, metadata map[string]string) error {
	f, err := os.Open(localPath)
	if err != nil {
		return fmt.Errorf("open %s: %w", localPath, err)
	}
	defer f.Close()

	w := s.bucket.Object(objectPath).NewWriter(ctx)
	w.ContentType = contentType
	w.Metadata = metadata
	if _, err := io.Copy(w, f); err != nil {
		w.Close()
		return fmt.Errorf("upload %s: %w", objectPath, err)
	}
	if err := w.Close(); err != nil {
		return fmt.Errorf("finalize %s: %w", objectPath, err)
	}
	return nil
}

func (s *GCSMediaStorage) Delete(ctx context.Context, objectPath string) error {
	if err := s.bucket.Object(objectPath).Delete(ctx); err != nil {
		if errors.Is(err, storage.ErrObjectNotExist) {
			return ErrNotFound
		}
		return fmt.Errorf("delete %s: %w", objectPath, err)
	}
	return nil
}

// SignedURL returns a read URL valid until SignedURLExpiry. V4 signing caps
// expiry at seven days, so the V2 scheme is used.
func (s *GCSMediaStorage) SignedURL(objectPath string) (string, error) {
	u, err := s.bucket.SignedURL(objectPath, &storage.SignedURLOptions{
		Scheme:  storage.SigningSchemeV2,
		Method:  "GET",
		Expires: SignedURLExpiry,
	})
	if err != nil {
		return "", fmt.Errorf("sign %s: %w", objectPath, err)
	}
	return u, nil
}

// ObjectPath resolves a stored media reference to an object path. It accepts
// raw object paths, gs:// URIs, Firebase download URLs (/o/<escaped path>)
// and storage.googleapis.com URLs such as signed URLs.
func ObjectPath(ref string) (string, bool) {
	ref = strings.TrimSpace(ref)
	if ref == "" {
		return "", false
	}
	if !strings.Contains(ref, "://") {
		return strings.TrimPrefix(ref, "/"), true
	}

	u, err := url.Parse(ref)
	if err != nil {
		return "", false
	}
	switch {
	case u.Scheme == "gs":
		p := strings.TrimPrefix(u.Path, "/")
		return p, p != ""
	case u.Host == "storage.googleapis.com":
		// /<bucket>/<object>
		parts := strings.SplitN(strings.TrimPrefix(u.Path, "/"), "/", 2)
		if len(parts) != 2 || parts[1] == "" {
			return "", false
		}
		return parts[1], true
	case strings.Contains(u.EscapedPath(), "/o/"):
		escaped := u.EscapedPath()
		escaped = escaped[strings.Index(escaped, "/o/")+len("/o/"):]
		p, err := url.PathUnescape(escaped)
		if err != nil || p == "" {
			return "", false
		}
		return p, true
	case strings.HasSuffix(u.Host, ".storage.googleapis.com"):
		p := strings.TrimPrefix(u.Path, "/")
		return p, p != ""
	}
	return "", false
}
