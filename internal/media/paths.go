package media

import (
	"path"
	"strings"
)

// Skip reasons reported by Process.
const (
	SkipNotImage   = "not-image"
	SkipDerivative = "derivative"
	SkipTemporary  = "temporary"
	SkipForeign    = "foreign-bucket"
)

const (
	thumbsDir       = "thumbs"
	thumbPrefix     = "thumb_"
	optimizedSuffix = "_optimized"
	tempPrefix      = "temp/"
)

// skipReason reports why an upload must not be processed. Derivative and
// temporary paths are skipped so the pipeline's own output never re-enters it.
func skipReason(objectPath, contentType string) (string, bool) {
	if !strings.HasPrefix(strings.ToLower(contentType), "image/") {
		return SkipNotImage, true
	}
	if strings.HasPrefix(objectPath, tempPrefix) {
		return SkipTemporary, true
	}
	if strings.Contains(objectPath, optimizedSuffix) {
		return SkipDerivative, true
	}
	for _, seg := range strings.Split(objectPath, "/") {
		if seg == thumbsDir {
			return SkipDerivative, true
		}
	}
	return "", false
}

// derivativeStem folds the extension into the base name so photo.jpg and
// photo.png never map to the same derivative.
func derivativeStem(objectPath string) string {
	base := path.Base(objectPath)
	return strings.ReplaceAll(base, ".", "_")
}

// thumbnailPath returns {dir}/thumbs/thumb_{stem}.{ext}.
func thumbnailPath(objectPath, ext string) string {
	return path.Join(path.Dir(objectPath), thumbsDir, thumbPrefix+derivativeStem(objectPath)+"."+ext)
}

// optimizedPath returns {dir}/{stem}_optimized.{ext}.
func optimizedPath(objectPath, ext string) string {
	return path.Join(path.Dir(objectPath), derivativeStem(objectPath)+optimizedSuffix+"."+ext)
}

// Namespace of an original upload, derived from its first path segment.
type Namespace string

const (
	NamespaceProfile Namespace = "profiles"
	NamespaceStory   Namespace = "stories"
	NamespaceChat    Namespace = "chats"
)

// owner splits profiles/{id}/..., stories/{id}/... and chats/{id}/... into
// the namespace and its id.
func owner(objectPath string) (Namespace, string, bool) {
	parts := strings.SplitN(objectPath, "/", 3)
	if len(parts) < 3 || parts[1] == "" {
		return "", "", false
	}
	switch ns := Namespace(parts[0]); ns {
	case NamespaceProfile, NamespaceStory, NamespaceChat:
		return ns, parts[1], true
	}
	return "", "", false
}
