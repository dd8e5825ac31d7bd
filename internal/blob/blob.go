// Package blob persists large binary payloads on the filesystem, keyed by
// content hash, with derived thumbnails alongside.
package blob

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
)

// ErrNotFound is returned when a requested blob does not exist.
var ErrNotFound = errors.New("blob not found")

// ErrTooLarge is returned when a payload exceeds the store's size limit.
// Nothing is written to disk in that case.
var ErrTooLarge = errors.New("payload exceeds maximum blob size")

// ErrFormat is returned when a payload cannot be decoded as an image.
// Distinct from ErrTooLarge so callers can fall back to storing as text.
var ErrFormat = errors.New("unrecognized payload format")

const thumbnailDir = "thumbnails"

// validKey matches a lowercase hex-encoded SHA-256 hash.
var validKey = regexp.MustCompile(`^[0-9a-f]{64}$`)

// Store is a filesystem blob store rooted at a single directory, with a
// thumbnails subdirectory. Files are named by content hash.
type Store struct {
	root    string
	maxSize int64
}

// NewStore creates a blob store rooted at root. maxSize bounds individual
// payloads; 0 means no limit.
func NewStore(root string, maxSize int64) (*Store, error) {
	if err := os.MkdirAll(filepath.Join(root, thumbnailDir), 0755); err != nil {
		return nil, fmt.Errorf("failed to create blob directory: %w", err)
	}
	return &Store{root: root, maxSize: maxSize}, nil
}

// Put stores data under key. Oversized payloads are rejected before any
// file is written. Storing the same key twice is a no-op.
func (s *Store) Put(key string, data []byte) error {
	if !validKey.MatchString(key) {
		return fmt.Errorf("invalid blob key: %q", key)
	}
	if s.maxSize > 0 && int64(len(data)) > s.maxSize {
		return ErrTooLarge
	}

	path := s.blobPath(key)
	if _, err := os.Stat(path); err == nil {
		return nil // idempotent
	}

	return writeAtomic(path, data)
}

// Get returns the payload stored under key, or ErrNotFound.
func (s *Store) Get(key string) ([]byte, error) {
	if !validKey.MatchString(key) {
		return nil, ErrNotFound
	}
	data, err := os.ReadFile(s.blobPath(key))
	if os.IsNotExist(err) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read blob %s: %w", key, err)
	}
	return data, nil
}

// Delete removes the blob and its thumbnail. Missing files are not errors.
func (s *Store) Delete(key string) error {
	if !validKey.MatchString(key) {
		return nil
	}
	if err := os.Remove(s.blobPath(key)); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to delete blob %s: %w", key, err)
	}
	if err := os.Remove(s.thumbnailPath(key)); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to delete thumbnail %s: %w", key, err)
	}
	return nil
}

// TotalSize returns the combined size in bytes of all stored blobs and
// thumbnails.
func (s *Store) TotalSize() (int64, error) {
	var total int64
	err := filepath.Walk(s.root, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if !info.IsDir() {
			total += info.Size()
		}
		return nil
	})
	return total, err
}

// PutThumbnail derives a thumbnail from an image payload and stores it
// under the same key with the thumbnail suffix.
func (s *Store) PutThumbnail(key string, imageData []byte, maxDim int) error {
	if !validKey.MatchString(key) {
		return fmt.Errorf("invalid blob key: %q", key)
	}
	thumb, err := Thumbnail(imageData, maxDim)
	if err != nil {
		return err
	}
	return writeAtomic(s.thumbnailPath(key), thumb)
}

// GetThumbnail returns the stored thumbnail for key, or ErrNotFound.
func (s *Store) GetThumbnail(key string) ([]byte, error) {
	if !validKey.MatchString(key) {
		return nil, ErrNotFound
	}
	data, err := os.ReadFile(s.thumbnailPath(key))
	if os.IsNotExist(err) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read thumbnail %s: %w", key, err)
	}
	return data, nil
}

func (s *Store) blobPath(key string) string {
	return filepath.Join(s.root, key)
}

func (s *Store) thumbnailPath(key string) string {
	return filepath.Join(s.root, thumbnailDir, key+".png")
}

// writeAtomic writes data via a temp file and rename so readers never see
// a partial blob and a failed write leaves nothing behind.
func writeAtomic(path string, data []byte) error {
	dir := filepath.Dir(path)
	tmp, err := os.CreateTemp(dir, ".blob-*")
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}
	tmpPath := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpPath)
		return fmt.Errorf("failed to write blob: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("failed to close temp file: %w", err)
	}
	if err := os.Rename(tmpPath, path); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("failed to rename blob: %w", err)
	}
	return nil
}
