// Package storage is the object store behind profile photos and gallery
// media.  It keeps the bucket/path/public-URL contract of a hosted object
// store while writing to directories under a configured root; the HTTP
// layer serves that root statically, which is what makes the URLs public.
package storage

import (
	"fmt"
	"io"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
)

// Store writes objects under root and issues their public URLs.
type Store struct {
	root    string
	baseURL string // prefix for public URLs; may be empty for relative URLs
}

// New creates a store rooted at dir.  baseURL, when set, is prefixed to
// every public URL (e.g. "https://buskabout.app").
func New(dir, baseURL string) *Store {
	return &Store{root: dir, baseURL: strings.TrimRight(baseURL, "/")}
}

// Upload streams src into bucket at the given object path, creating parent
// directories as needed, and returns the object's public URL.  Existing
// objects at the same path are overwritten (upsert).
func (s *Store) Upload(bucket, objectPath string, src io.Reader) (string, error) {
	clean, err := s.cleanPath(bucket, objectPath)
	if err != nil {
		return "", err
	}
	if err := os.MkdirAll(filepath.Dir(clean), 0o755); err != nil {
		return "", fmt.Errorf("create bucket dir: %w", err)
	}
	f, err := os.Create(clean)
	if err != nil {
		return "", fmt.Errorf("create object: %w", err)
	}
	defer f.Close()
	if _, err := io.Copy(f, src); err != nil {
		return "", fmt.Errorf("write object: %w", err)
	}
	return s.PublicURL(bucket, objectPath), nil
}

// PublicURL returns the URL a client uses to fetch an object.  No existence
// check is performed, matching hosted stores where URL issuance is a pure
// string operation.
func (s *Store) PublicURL(bucket, objectPath string) string {
	return s.baseURL + "/storage/" + path.Join(bucket, objectPath)
}

// Remove deletes an object.  A missing object is not an error.
func (s *Store) Remove(bucket, objectPath string) error {
	clean, err := s.cleanPath(bucket, objectPath)
	if err != nil {
		return err
	}
	if err := os.Remove(clean); err != nil && !os.IsNotExist(err) {
		return err
	}
	return nil
}

// Root returns the directory served as /storage by the HTTP layer.
func (s *Store) Root() string { return s.root }

// ObjectName builds a collision-free object name preserving the upload's
// extension, namespaced by the owning user.
func ObjectName(userID uint64, filename string) string {
	ext := strings.ToLower(filepath.Ext(filename))
	return fmt.Sprintf("%d/%s%s", userID, uuid.NewString(), ext)
}

// cleanPath joins bucket and object path under the root, rejecting
// traversal outside it.
func (s *Store) cleanPath(bucket, objectPath string) (string, error) {
	joined := filepath.Join(s.root, filepath.FromSlash(path.Join(bucket, objectPath)))
	rootAbs, err := filepath.Abs(s.root)
	if err != nil {
		return "", err
	}
	abs, err := filepath.Abs(joined)
	if err != nil {
		return "", err
	}
	if abs != rootAbs && !strings.HasPrefix(abs, rootAbs+string(os.PathSeparator)) {
		return "", fmt.Errorf("object path %q escapes bucket root", objectPath)
	}
	return joined, nil
}
