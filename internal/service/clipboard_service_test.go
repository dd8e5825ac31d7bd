package service

import (
	"context"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"clipvault/internal/blob"
	"clipvault/internal/classify"
	"clipvault/internal/clipboard"
	"clipvault/internal/config"
	"clipvault/internal/dedup"
	"clipvault/internal/hash"
	"clipvault/internal/storage"
	"clipvault/internal/storage/sqlite"
	"clipvault/pkg/types"
)

type stubClipboard struct {
	mu      sync.Mutex
	count   int
	written []*types.ClipboardItem
}

func (c *stubClipboard) ChangeCount() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.count
}

func (c *stubClipboard) Read() (*types.Snapshot, error) {
	return &types.Snapshot{}, nil
}

func (c *stubClipboard) Write(item *types.ClipboardItem) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.written = append(c.written, item)
	c.count++
	return nil
}

func (c *stubClipboard) lastWritten() *types.ClipboardItem {
	c.mu.Lock()
	defer c.mu.Unlock()
	if len(c.written) == 0 {
		return nil
	}
	return c.written[len(c.written)-1]
}

func newTestService(t *testing.T) (*ClipboardService, storage.Store, *blob.Store, *stubClipboard) {
	t.Helper()

	dir := t.TempDir()
	store, err := sqlite.New(storage.Config{
		DBPath:        filepath.Join(dir, "test.db"),
		PreviewLength: 100,
		MaxInlineSize: 64,
	})
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })

	blobs, err := blob.NewStore(filepath.Join(dir, "blobs"), 1<<20)
	require.NoError(t, err)

	cfg := config.Default()
	cfg.MaxHistoryItems = 10
	cfg.SearchWindow = 100

	cb := &stubClipboard{}
	monitor := clipboard.NewMonitor(cb, classify.New(100), dedup.New(store), store, blobs,
		clipboard.MonitorConfig{Interval: time.Hour})

	return New(monitor, cb, store, blobs, cfg), store, blobs, cb
}

func insertText(t *testing.T, store storage.Store, content string, ts time.Time) *types.ClipboardItem {
	t.Helper()
	item := &types.ClipboardItem{
		Content:     content,
		Type:        types.TypeText,
		ContentHash: hash.Content(content, nil),
		Timestamp:   ts,
	}
	require.NoError(t, store.Insert(context.Background(), item))
	return item
}

func TestService_GetItemsPagination(t *testing.T) {
	svc, store, _, _ := newTestService(t)
	ctx := context.Background()
	now := time.Now()

	for i := 0; i < 5; i++ {
		insertText(t, store, string(rune('a'+i)), now.Add(time.Duration(i)*time.Second))
	}

	page, err := svc.GetItems(ctx, 2, 1)
	require.NoError(t, err)
	require.Len(t, page, 2)
	assert.Equal(t, "d", page[0].Content)
	assert.Equal(t, "c", page[1].Content)
}

func TestService_PasteWritesClipboardAndRefreshesItem(t *testing.T) {
	svc, store, _, cb := newTestService(t)
	ctx := context.Background()

	old := insertText(t, store, "paste me", time.Now().Add(-time.Hour))
	insertText(t, store, "newer item", time.Now())

	require.NoError(t, svc.Paste(ctx, old.ID))

	written := cb.lastWritten()
	require.NotNil(t, written)
	assert.Equal(t, "paste me", written.Content)

	// the pasted item moved back to the top of history
	items, err := svc.GetItems(ctx, 1, 0)
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, old.ID, items[0].ID)
}

func TestService_PasteLoadsBlobPayload(t *testing.T) {
	svc, store, blobs, cb := newTestService(t)
	ctx := context.Background()

	payload := make([]byte, 256) // over the 64-byte inline limit
	for i := range payload {
		payload[i] = byte(i)
	}
	h := hash.Content("big payload", payload)
	require.NoError(t, blobs.Put(h, payload))

	item := &types.ClipboardItem{
		Content:     "big payload",
		Type:        types.TypeText,
		ContentHash: h,
		Timestamp:   time.Now(),
		HasBlob:     true,
	}
	require.NoError(t, store.Insert(ctx, item))

	require.NoError(t, svc.Paste(ctx, item.ID))
	written := cb.lastWritten()
	require.NotNil(t, written)
	assert.Equal(t, payload, written.Data)
}

func TestService_PasteMissingItem(t *testing.T) {
	svc, _, _, _ := newTestService(t)
	err := svc.Paste(context.Background(), 9999)
	require.Error(t, err)

	var cerr *ClipboardError
	require.ErrorAs(t, err, &cerr)
	assert.Equal(t, "Paste", cerr.Op)
}

func TestService_DeleteItemRemovesBlobFiles(t *testing.T) {
	svc, store, blobs, _ := newTestService(t)
	ctx := context.Background()

	payload := []byte("payload that overflows the tiny inline limit for this test")
	h := hash.Content("overflow", payload)
	require.NoError(t, blobs.Put(h, payload))

	item := &types.ClipboardItem{
		Content:     "overflow",
		Type:        types.TypeText,
		ContentHash: h,
		Timestamp:   time.Now(),
		HasBlob:     true,
	}
	require.NoError(t, store.Insert(ctx, item))

	require.NoError(t, svc.DeleteItem(ctx, item.ID))

	_, err := store.Get(ctx, item.ID)
	assert.ErrorIs(t, err, storage.ErrNotFound)
	_, err = blobs.Get(h)
	assert.ErrorIs(t, err, blob.ErrNotFound)
}

func TestService_ClearKeepsFavoritesAndTheirBlobs(t *testing.T) {
	svc, store, blobs, _ := newTestService(t)
	ctx := context.Background()

	favPayload := []byte("favorite payload kept on disk after a clear operation")
	favHash := hash.Content("favorite", favPayload)
	require.NoError(t, blobs.Put(favHash, favPayload))

	fav := &types.ClipboardItem{
		Content:     "favorite",
		Type:        types.TypeText,
		ContentHash: favHash,
		Timestamp:   time.Now(),
		HasBlob:     true,
	}
	require.NoError(t, store.Insert(ctx, fav))
	require.NoError(t, store.ToggleFavorite(ctx, fav.ID))

	insertText(t, store, "ephemeral", time.Now())

	require.NoError(t, svc.ClearItems(ctx))

	count, err := store.Count(ctx)
	require.NoError(t, err)
	assert.EqualValues(t, 1, count)

	kept, err := blobs.Get(favHash)
	require.NoError(t, err)
	assert.Equal(t, favPayload, kept)
}

func TestService_SearchRanksWithinWindow(t *testing.T) {
	svc, store, _, _ := newTestService(t)
	ctx := context.Background()
	now := time.Now()

	insertText(t, store, "shopping list", now.Add(-2*time.Minute))
	insertText(t, store, "meeting notes", now.Add(-time.Minute))
	insertText(t, store, "notes from standup", now)

	results, err := svc.Search(ctx, "notes")
	require.NoError(t, err)
	require.Len(t, results, 2)
	assert.Equal(t, "notes from standup", results[0].Item.Content)
	assert.Equal(t, "meeting notes", results[1].Item.Content)
}

func TestService_GetItemDataFallsBackToContent(t *testing.T) {
	svc, store, _, _ := newTestService(t)
	ctx := context.Background()

	item := insertText(t, store, "short text", time.Now())
	data, err := svc.GetItemData(ctx, item.ID)
	require.NoError(t, err)
	assert.Equal(t, []byte("short text"), data)
}

func TestService_StartupSweepKeepsRecentItems(t *testing.T) {
	svc, store, _, _ := newTestService(t)
	ctx := context.Background()

	insertText(t, store, "recent item", time.Now())

	require.NoError(t, svc.Start())
	require.NoError(t, svc.Stop())
	assert.NoError(t, svc.Stop(), "stopping twice is harmless")

	count, err := store.Count(ctx)
	require.NoError(t, err)
	assert.EqualValues(t, 1, count)
}

func TestService_StartupSweepEnforcesLimits(t *testing.T) {
	svc, store, _, _ := newTestService(t)
	ctx := context.Background()
	now := time.Now()

	// one expired item plus twelve fresh ones against a 10-item limit
	insertText(t, store, "ancient", now.AddDate(0, 0, -60))
	for i := 0; i < 12; i++ {
		insertText(t, store, string(rune('a'+i))+"-fresh", now.Add(time.Duration(i)*time.Second))
	}

	require.NoError(t, svc.Start())
	require.NoError(t, svc.Stop())

	count, err := store.Count(ctx)
	require.NoError(t, err)
	assert.EqualValues(t, 10, count)

	items, err := store.List(ctx, 0, 0)
	require.NoError(t, err)
	for _, item := range items {
		assert.NotEqual(t, "ancient", item.Content)
	}
}
