package server

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"path/filepath"
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
	"clipvault/internal/service"
	"clipvault/internal/storage"
	"clipvault/internal/storage/sqlite"
	"clipvault/pkg/types"
)

func newTestServer(t *testing.T) (*httptest.Server, storage.Store) {
	t.Helper()

	dir := t.TempDir()
	store, err := sqlite.New(storage.Config{DBPath: filepath.Join(dir, "test.db")})
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })

	blobs, err := blob.NewStore(filepath.Join(dir, "blobs"), 1<<20)
	require.NoError(t, err)

	cfg := config.Default()
	monitor := clipboard.NewMonitor(&nullClipboard{}, classify.New(cfg.PreviewLength),
		dedup.New(store), store, blobs, clipboard.MonitorConfig{Interval: time.Hour})
	svc := service.New(monitor, &nullClipboard{}, store, blobs, cfg)

	srv := New(svc, Config{})
	go srv.hub.run()
	t.Cleanup(srv.hub.stop)

	ts := httptest.NewServer(srv.router())
	t.Cleanup(ts.Close)
	return ts, store
}

type nullClipboard struct{}

func (nullClipboard) ChangeCount() int                      { return 0 }
func (nullClipboard) Read() (*types.Snapshot, error)        { return &types.Snapshot{}, nil }
func (nullClipboard) Write(item *types.ClipboardItem) error { return nil }

func seedItem(t *testing.T, store storage.Store, content string) *types.ClipboardItem {
	t.Helper()
	item := &types.ClipboardItem{
		Content:     content,
		Type:        types.TypeText,
		ContentHash: hash.Content(content, nil),
		Timestamp:   time.Now(),
	}
	require.NoError(t, store.Insert(context.Background(), item))
	return item
}

func TestServer_Status(t *testing.T) {
	ts, _ := newTestServer(t)

	resp, err := http.Get(ts.URL + "/status")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	var body map[string]string
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	assert.Equal(t, "ok", body["status"])
}

func TestServer_ListAndGetItem(t *testing.T) {
	ts, store := newTestServer(t)
	item := seedItem(t, store, "hello api")

	resp, err := http.Get(ts.URL + "/api/items")
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var items []*types.ClipboardItem
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&items))
	require.Len(t, items, 1)
	assert.Equal(t, "hello api", items[0].Content)

	resp2, err := http.Get(fmt.Sprintf("%s/api/items/%d", ts.URL, item.ID))
	require.NoError(t, err)
	defer resp2.Body.Close()
	assert.Equal(t, http.StatusOK, resp2.StatusCode)

	var got types.ClipboardItem
	require.NoError(t, json.NewDecoder(resp2.Body).Decode(&got))
	assert.Equal(t, item.ID, got.ID)
}

func TestServer_GetItemNotFound(t *testing.T) {
	ts, _ := newTestServer(t)

	resp, err := http.Get(ts.URL + "/api/items/9999")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)

	resp2, err := http.Get(ts.URL + "/api/items/not-a-number")
	require.NoError(t, err)
	defer resp2.Body.Close()
	assert.Equal(t, http.StatusBadRequest, resp2.StatusCode)
}

func TestServer_Search(t *testing.T) {
	ts, store := newTestServer(t)
	seedItem(t, store, "grocery list")
	seedItem(t, store, "meeting notes")

	resp, err := http.Get(ts.URL + "/api/items/search?q=grocery")
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var results []struct {
		Item *types.ClipboardItem `json:"item"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&results))
	require.Len(t, results, 1)
	assert.Equal(t, "grocery list", results[0].Item.Content)
}

func TestServer_FavoriteAndDelete(t *testing.T) {
	ts, store := newTestServer(t)
	item := seedItem(t, store, "toggle me")
	ctx := context.Background()

	resp, err := http.Post(fmt.Sprintf("%s/api/items/%d/favorite", ts.URL, item.ID), "", nil)
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	got, err := store.Get(ctx, item.ID)
	require.NoError(t, err)
	assert.True(t, got.IsFavorite)

	req, err := http.NewRequest(http.MethodDelete, fmt.Sprintf("%s/api/items/%d", ts.URL, item.ID), nil)
	require.NoError(t, err)
	resp2, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	resp2.Body.Close()
	assert.Equal(t, http.StatusOK, resp2.StatusCode)

	_, err = store.Get(ctx, item.ID)
	assert.ErrorIs(t, err, storage.ErrNotFound)
}

func TestServer_ClearKeepsFavorites(t *testing.T) {
	ts, store := newTestServer(t)
	ctx := context.Background()

	fav := seedItem(t, store, "keep me")
	require.NoError(t, store.ToggleFavorite(ctx, fav.ID))
	seedItem(t, store, "drop me")

	req, err := http.NewRequest(http.MethodDelete, ts.URL+"/api/items", nil)
	require.NoError(t, err)
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	count, err := store.Count(ctx)
	require.NoError(t, err)
	assert.EqualValues(t, 1, count)
}

func TestServer_PasteTouchesItem(t *testing.T) {
	ts, store := newTestServer(t)
	old := seedItem(t, store, "paste target")
	before := old.Timestamp

	time.Sleep(10 * time.Millisecond)
	resp, err := http.Post(fmt.Sprintf("%s/api/items/%d/paste", ts.URL, old.ID), "", nil)
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	got, err := store.Get(context.Background(), old.ID)
	require.NoError(t, err)
	assert.True(t, got.Timestamp.After(before))
}
