// Package service wires the monitor, store, blob store and search engine
// into one lifecycle and exposes the operations the API surfaces call.
package service

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sync"
	"time"

	"clipvault/internal/blob"
	"clipvault/internal/clipboard"
	"clipvault/internal/config"
	"clipvault/internal/search"
	"clipvault/internal/storage"
	"clipvault/pkg/types"
)

const retentionSweepInterval = time.Hour

// ClipboardError tags a failure with the operation that produced it.
type ClipboardError struct {
	Op      string
	ID      uint64
	Message string
	Err     error
}

func (e *ClipboardError) Error() string {
	if e.ID > 0 {
		return fmt.Sprintf("%s failed for item %d: %s", e.Op, e.ID, e.Message)
	}
	return fmt.Sprintf("%s failed: %s", e.Op, e.Message)
}

func (e *ClipboardError) Unwrap() error {
	return e.Err
}

// ClipboardService owns the capture pipeline and history operations.
type ClipboardService struct {
	monitor *clipboard.Monitor
	cb      clipboard.Clipboard
	store   storage.Store
	blobs   *blob.Store
	engine  *search.Engine
	cfg     *config.Config

	ctx      context.Context
	cancel   context.CancelFunc
	wg       sync.WaitGroup
	handlers []ClipboardChangeHandler
	mu       sync.RWMutex
}

func New(monitor *clipboard.Monitor, cb clipboard.Clipboard, store storage.Store,
	blobs *blob.Store, cfg *config.Config) *ClipboardService {
	ctx, cancel := context.WithCancel(context.Background())
	return &ClipboardService{
		monitor: monitor,
		cb:      cb,
		store:   store,
		blobs:   blobs,
		engine: search.NewEngine(search.Options{
			BroadMatch: cfg.BroadMatch,
			Fuzzy:      cfg.FuzzySearch,
		}),
		cfg:    cfg,
		ctx:    ctx,
		cancel: cancel,
	}
}

// RegisterHandler adds a clipboard change handler.
func (s *ClipboardService) RegisterHandler(handler ClipboardChangeHandler) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.handlers = append(s.handlers, handler)
}

// Start begins monitoring and the background retention sweep.
func (s *ClipboardService) Start() error {
	s.monitor.OnItem(func(item *types.ClipboardItem) {
		s.mu.RLock()
		handlers := s.handlers
		s.mu.RUnlock()
		for _, handler := range handlers {
			handler.HandleClipboardChange(item)
		}
	})

	if err := s.monitor.Start(); err != nil {
		return &ClipboardError{Op: "Start", Message: "failed to start clipboard monitor", Err: err}
	}

	// enforce retention once up front so a long-stopped instance prunes
	// immediately, then keep sweeping in the background
	s.sweep()
	s.wg.Add(1)
	go s.retentionLoop()

	return nil
}

// Stop gracefully shuts down the service.
func (s *ClipboardService) Stop() error {
	s.cancel()

	if err := s.monitor.Stop(); err != nil {
		return &ClipboardError{Op: "Stop", Message: "failed to stop clipboard monitor", Err: err}
	}

	s.wg.Wait()
	return nil
}

// GetItems returns a page of history, newest first.
func (s *ClipboardService) GetItems(ctx context.Context, limit, offset int) ([]*types.ClipboardItem, error) {
	items, err := s.store.List(ctx, limit, offset)
	if err != nil {
		return nil, &ClipboardError{Op: "GetItems", Message: "failed to list items", Err: err}
	}
	return items, nil
}

// GetItem returns a single item by ID.
func (s *ClipboardService) GetItem(ctx context.Context, id uint64) (*types.ClipboardItem, error) {
	item, err := s.store.Get(ctx, id)
	if err != nil {
		return nil, &ClipboardError{Op: "GetItem", ID: id, Message: "failed to retrieve item", Err: err}
	}
	return item, nil
}

// GetItemData returns an item's full-fidelity payload, reading overflow
// blobs from disk when needed. Falls back to the preview text when the
// item never had a separate payload.
func (s *ClipboardService) GetItemData(ctx context.Context, id uint64) ([]byte, error) {
	item, err := s.GetItem(ctx, id)
	if err != nil {
		return nil, err
	}
	if item.HasBlob {
		data, err := s.blobs.Get(item.ContentHash)
		if err != nil {
			return nil, &ClipboardError{Op: "GetItemData", ID: id, Message: "failed to read blob", Err: err}
		}
		return data, nil
	}
	if len(item.Data) > 0 {
		return item.Data, nil
	}
	return []byte(item.Content), nil
}

// GetThumbnail returns the PNG thumbnail of an image item.
func (s *ClipboardService) GetThumbnail(ctx context.Context, id uint64) ([]byte, error) {
	item, err := s.GetItem(ctx, id)
	if err != nil {
		return nil, err
	}
	data, err := s.blobs.GetThumbnail(item.ContentHash)
	if err != nil {
		return nil, &ClipboardError{Op: "GetThumbnail", ID: id, Message: "no thumbnail for item", Err: err}
	}
	return data, nil
}

// Search loads the most recent window of history and ranks it against the
// query. An empty query returns the window in recency order.
func (s *ClipboardService) Search(ctx context.Context, query string) ([]search.Result, error) {
	items, err := s.store.List(ctx, s.cfg.SearchWindow, 0)
	if err != nil {
		return nil, &ClipboardError{Op: "Search", Message: "failed to load search window", Err: err}
	}
	return s.engine.Search(query, items), nil
}

// Paste places a stored item back on the system clipboard and refreshes
// its position in history. The resulting clipboard change is suppressed
// so the paste never re-enters history as a new capture.
func (s *ClipboardService) Paste(ctx context.Context, id uint64) error {
	item, err := s.GetItem(ctx, id)
	if err != nil {
		return &ClipboardError{Op: "Paste", ID: id, Message: "failed to retrieve item", Err: err}
	}

	if item.HasBlob {
		data, err := s.blobs.Get(item.ContentHash)
		if err != nil {
			return &ClipboardError{Op: "Paste", ID: id, Message: "failed to read blob", Err: err}
		}
		item.Data = data
	}

	s.monitor.SuppressNext()
	if err := s.cb.Write(item); err != nil {
		return &ClipboardError{Op: "Paste", ID: id, Message: "failed to write clipboard", Err: err}
	}

	if err := s.store.Touch(ctx, item.ContentHash); err != nil {
		log.Printf("failed to refresh pasted item %d: %v", id, err)
	}
	return nil
}

// ToggleFavorite flips an item's favorite flag.
func (s *ClipboardService) ToggleFavorite(ctx context.Context, id uint64) error {
	if err := s.store.ToggleFavorite(ctx, id); err != nil {
		return &ClipboardError{Op: "ToggleFavorite", ID: id, Message: "failed to toggle favorite", Err: err}
	}
	return nil
}

// DeleteItem removes an item and its on-disk payloads.
func (s *ClipboardService) DeleteItem(ctx context.Context, id uint64) error {
	item, err := s.store.Get(ctx, id)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return &ClipboardError{Op: "DeleteItem", ID: id, Message: "item not found", Err: err}
		}
		return &ClipboardError{Op: "DeleteItem", ID: id, Message: "failed to retrieve item", Err: err}
	}

	if err := s.store.Delete(ctx, id); err != nil {
		return &ClipboardError{Op: "DeleteItem", ID: id, Message: "failed to delete item", Err: err}
	}
	s.removeBlobs(item)
	return nil
}

// ClearItems removes all non-favorite items and their payloads.
func (s *ClipboardService) ClearItems(ctx context.Context) error {
	items, err := s.store.List(ctx, 0, 0)
	if err != nil {
		return &ClipboardError{Op: "ClearItems", Message: "failed to list items", Err: err}
	}

	if err := s.store.Clear(ctx); err != nil {
		return &ClipboardError{Op: "ClearItems", Message: "failed to clear history", Err: err}
	}

	for _, item := range items {
		if !item.IsFavorite {
			s.removeBlobs(item)
		}
	}
	return nil
}

// removeBlobs deletes an item's overflow payload and thumbnail. Best
// effort: a leaked file is not worth failing the delete over.
func (s *ClipboardService) removeBlobs(item *types.ClipboardItem) {
	if !item.HasBlob && item.Type != types.TypeImage {
		return
	}
	if err := s.blobs.Delete(item.ContentHash); err != nil {
		log.Printf("failed to delete blob %s: %v", item.ContentHash, err)
	}
}

// retentionLoop enforces the age and count limits hourly.
func (s *ClipboardService) retentionLoop() {
	defer s.wg.Done()

	ticker := time.NewTicker(retentionSweepInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			s.sweep()
		case <-s.ctx.Done():
			return
		}
	}
}

func (s *ClipboardService) sweep() {
	cutoff := time.Now().AddDate(0, 0, -s.cfg.MaxHistoryDays)
	if aged, err := s.store.DeleteOlderThan(s.ctx, cutoff); err != nil {
		log.Printf("retention sweep (age) failed: %v", err)
	} else if aged > 0 {
		log.Printf("retention sweep removed %d expired items", aged)
	}

	if evicted, err := s.store.TrimToCount(s.ctx, s.cfg.MaxHistoryItems); err != nil {
		log.Printf("retention sweep (count) failed: %v", err)
	} else if evicted > 0 {
		log.Printf("retention sweep evicted %d items over the history limit", evicted)
	}
}
