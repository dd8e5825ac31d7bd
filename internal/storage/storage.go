package storage

import (
	"clipvault/pkg/types"
	"context"
	"time"
)

// Store defines the interface for clipboard history persistence. All
// operations are serialized by the implementation: callers never observe a
// partial write.
type Store interface {
	// Insert stores a new item and assigns its ID. The content hash must be
	// unique across non-deleted rows; a constraint violation is an error.
	Insert(ctx context.Context, item *types.ClipboardItem) error

	// Get retrieves an item by ID. Returns ErrNotFound on a miss.
	Get(ctx context.Context, id uint64) (*types.ClipboardItem, error)

	// List returns items newest first.
	List(ctx context.Context, limit, offset int) ([]*types.ClipboardItem, error)

	// ExistsByHash reports whether an item with the given content hash is stored.
	ExistsByHash(ctx context.Context, hash string) (bool, error)

	// Touch refreshes the timestamp of the item with the given hash,
	// moving it to the top of the history without creating a new row.
	Touch(ctx context.Context, hash string) error

	// ToggleFavorite flips the favorite flag of an item.
	ToggleFavorite(ctx context.Context, id uint64) error

	// Delete removes a single item.
	Delete(ctx context.Context, id uint64) error

	// Clear removes all non-favorite items.
	Clear(ctx context.Context) error

	// Count returns the number of stored items.
	Count(ctx context.Context) (int64, error)

	// DeleteOlderThan removes non-favorite items older than the cutoff and
	// returns how many were deleted.
	DeleteOlderThan(ctx context.Context, cutoff time.Time) (int64, error)

	// TrimToCount evicts the oldest non-favorite items until at most max
	// remain overall, returning how many were evicted.
	TrimToCount(ctx context.Context, max int) (int64, error)

	Close() error
}

// Config holds storage configuration.
type Config struct {
	DBPath        string // path to the SQLite database file
	BlobPath      string // base path for blob overflow storage
	PreviewLength int    // bound for the preview string, 0 means default
	MaxInlineSize int64  // payloads at most this large live in-row, 0 means default
}
