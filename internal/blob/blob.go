// Package blob provides a content-addressed store for uploaded PDF bytes.
//
// Files are stored under a root directory, sharded by the first two hex
// characters of their SHA-256 digest:
//
//	<root>/ab/abcdef0123...pdf
//
// Storing the same bytes twice is a no-op that returns the same path, which
// is what makes document re-upload deduplication cheap.
package blob

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"os"
	"path/filepath"
)

// Store writes and reads content-addressed blobs under a root directory.
//
// Store is safe for concurrent use: writes go through a temp file followed
// by an atomic rename, so readers never observe a partially written blob.
type Store struct {
	root string
}

// New creates a Store rooted at dir, creating the directory if needed.
func New(dir string) (*Store, error) {
	if dir == "" {
		return nil, fmt.Errorf("blob: root directory is empty")
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("blob: create root: %w", err)
	}
	return &Store{root: dir}, nil
}

// Put streams r into the store and returns the hex SHA-256 digest of the
// content plus the path the blob was stored at. If a blob with the same
// digest already exists the existing path is returned and nothing is
// rewritten.
func (s *Store) Put(r io.Reader) (digest string, path string, err error) {
	tmp, err := os.CreateTemp(s.root, "upload-*.tmp")
	if err != nil {
		return "", "", fmt.Errorf("blob: create temp: %w", err)
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName)

	h := sha256.New()
	if _, err := io.Copy(io.MultiWriter(tmp, h), r); err != nil {
		tmp.Close()
		return "", "", fmt.Errorf("blob: write temp: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return "", "", fmt.Errorf("blob: close temp: %w", err)
	}

	digest = hex.EncodeToString(h.Sum(nil))
	path = s.pathFor(digest)

	if _, err := os.Stat(path); err == nil {
		return digest, path, nil
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return "", "", fmt.Errorf("blob: create shard dir: %w", err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		return "", "", fmt.Errorf("blob: store %s: %w", digest, err)
	}
	return digest, path, nil
}

// Open returns a reader for the blob with the given digest. The caller is
// responsible for closing the returned file.
func (s *Store) Open(digest string) (*os.File, error) {
	f, err := os.Open(s.pathFor(digest))
	if err != nil {
		return nil, fmt.Errorf("blob: open %s: %w", digest, err)
	}
	return f, nil
}

// Path returns the filesystem path a blob with the given digest would be
// stored at. The blob may not exist.
func (s *Store) Path(digest string) string {
	return s.pathFor(digest)
}

// Remove deletes the blob with the given digest. Removing a blob that does
// not exist is not an error.
func (s *Store) Remove(digest string) error {
	err := os.Remove(s.pathFor(digest))
	if err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("blob: remove %s: %w", digest, err)
	}
	return nil
}

func (s *Store) pathFor(digest string) string {
	shard := "00"
	if len(digest) >= 2 {
		shard = digest[:2]
	}
	return filepath.Join(s.root, shard, digest+".pdf")
}
