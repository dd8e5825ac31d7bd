// Package dedup decides whether captured content is already in history.
package dedup

import (
	"context"
	"log"

	"clipvault/internal/hash"
	"clipvault/internal/storage"
)

// Verdict is the outcome of a dedup check.
type Verdict struct {
	Hash      string
	Duplicate bool
}

type Deduplicator struct {
	store storage.Store
}

func New(store storage.Store) *Deduplicator {
	return &Deduplicator{store: store}
}

// Check hashes the payload and asks the store whether that hash exists.
// A failed existence check reports new, not an error; a duplicate row
// costs less than a lost capture.
func (d *Deduplicator) Check(ctx context.Context, content string, aux []byte) Verdict {
	h := hash.Content(content, aux)

	exists, err := d.store.ExistsByHash(ctx, h)
	if err != nil {
		log.Printf("dedup check failed, treating content as new: %v", err)
		return Verdict{Hash: h, Duplicate: false}
	}

	return Verdict{Hash: h, Duplicate: exists}
}
