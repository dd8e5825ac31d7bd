package storage

import "errors"

const (
	// DefaultPreviewLength bounds the stored preview string.
	DefaultPreviewLength = 500

	// DefaultMaxInlineSize is the largest payload stored in-row; anything
	// bigger stays in the blob store.
	DefaultMaxInlineSize = 1 * 1024 * 1024
)

// Storage errors
var (
	ErrNotFound      = errors.New("item not found")
	ErrDuplicateHash = errors.New("content hash already stored")
)
