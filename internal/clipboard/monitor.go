package clipboard

import (
	"context"
	"errors"
	"log"
	"sync"
	"sync/atomic"
	"time"

	"clipvault/internal/blob"
	"clipvault/internal/classify"
	"clipvault/internal/dedup"
	"clipvault/internal/storage"
	"clipvault/pkg/types"
)

// MonitorConfig tunes the polling loop and payload handling.
type MonitorConfig struct {
	Interval       time.Duration
	MaxPayloadSize int64 // oversized captures are dropped before any storage
	MaxInlineSize  int64 // payloads at most this large live in-row
	ThumbnailDim   int
}

// Monitor polls the clipboard change counter and runs each detected change
// through classify → dedup → blob → persist. Detection cycles are handed
// to a single worker goroutine, so a slow write never delays the next poll
// tick and cycles never overlap.
type Monitor struct {
	cb         Clipboard
	classifier *classify.Classifier
	dedup      *dedup.Deduplicator
	store      storage.Store
	blobs      *blob.Store
	cfg        MonitorConfig

	handler      func(*types.ClipboardItem)
	mu           sync.RWMutex
	suppressNext atomic.Bool
	running      atomic.Bool

	jobs chan *types.Snapshot
	stop chan struct{}
	wg   sync.WaitGroup
}

func NewMonitor(cb Clipboard, classifier *classify.Classifier, d *dedup.Deduplicator,
	store storage.Store, blobs *blob.Store, cfg MonitorConfig) *Monitor {
	if cfg.Interval <= 0 {
		cfg.Interval = 500 * time.Millisecond
	}
	return &Monitor{
		cb:         cb,
		classifier: classifier,
		dedup:      d,
		store:      store,
		blobs:      blobs,
		cfg:        cfg,
		jobs:       make(chan *types.Snapshot, 16),
		stop:       make(chan struct{}),
	}
}

// OnItem registers the handler called after each successfully persisted
// capture.
func (m *Monitor) OnItem(handler func(*types.ClipboardItem)) {
	m.mu.Lock()
	m.handler = handler
	m.mu.Unlock()
}

// SuppressNext marks the next detected change as self-inflicted so a
// paste-back never re-enters history as a new capture. One-shot.
func (m *Monitor) SuppressNext() {
	m.suppressNext.Store(true)
}

// Start begins polling. The monitor stays armed until Stop.
func (m *Monitor) Start() error {
	if !m.running.CompareAndSwap(false, true) {
		return errors.New("monitor already running")
	}

	last := m.cb.ChangeCount()

	m.wg.Add(2)
	go func() {
		defer m.wg.Done()
		ticker := time.NewTicker(m.cfg.Interval)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				last = m.poll(last)
			case <-m.stop:
				close(m.jobs)
				return
			}
		}
	}()
	go func() {
		defer m.wg.Done()
		for snap := range m.jobs {
			m.process(snap)
		}
	}()

	return nil
}

// Stop halts polling and waits for the in-flight cycle to finish.
func (m *Monitor) Stop() error {
	if !m.running.CompareAndSwap(true, false) {
		return nil
	}
	close(m.stop)
	m.wg.Wait()
	return nil
}

// poll compares the change counter and enqueues a snapshot on mismatch.
func (m *Monitor) poll(last int) int {
	count := m.cb.ChangeCount()
	if count == last {
		return last
	}

	if m.suppressNext.CompareAndSwap(true, false) {
		return count
	}

	snap, err := m.cb.Read()
	if err != nil {
		log.Printf("failed to read clipboard: %v", err)
		return count
	}

	select {
	case m.jobs <- snap:
	default:
		log.Printf("capture queue full, dropping clipboard change")
	}
	return count
}

// process runs one detection cycle to completion. Unclassifiable payloads
// and duplicates end the cycle with no write and no notification; a
// persistence failure skips only the notification.
func (m *Monitor) process(snap *types.Snapshot) {
	res := m.classifier.Classify(snap)
	if res == nil {
		return
	}

	ctx := context.Background()
	verdict := m.dedup.Check(ctx, res.Content, res.Aux)
	if verdict.Duplicate {
		return
	}

	item := &types.ClipboardItem{
		Content:     res.Content,
		Type:        res.Type,
		ContentHash: verdict.Hash,
		Timestamp:   time.Now(),
		SourceApp:   snap.SourceApp,
	}

	if len(res.Aux) > 0 {
		if m.cfg.MaxPayloadSize > 0 && int64(len(res.Aux)) > m.cfg.MaxPayloadSize {
			log.Printf("payload too large to store (%d bytes), dropping capture", len(res.Aux))
			return
		}
		if int64(len(res.Aux)) <= m.cfg.MaxInlineSize {
			item.Data = res.Aux
		} else {
			if err := m.blobs.Put(verdict.Hash, res.Aux); err != nil {
				log.Printf("failed to store blob: %v", err)
				return
			}
			item.HasBlob = true
		}
		if res.Type == types.TypeImage {
			if err := m.blobs.PutThumbnail(verdict.Hash, res.Aux, m.cfg.ThumbnailDim); err != nil {
				log.Printf("failed to store thumbnail: %v", err)
			}
		}
	}

	if err := m.store.Insert(ctx, item); err != nil {
		if errors.Is(err, storage.ErrDuplicateHash) {
			// lost a race with an identical capture; nothing to do
			return
		}
		log.Printf("failed to persist clipboard item: %v", err)
		return
	}

	m.mu.RLock()
	handler := m.handler
	m.mu.RUnlock()
	if handler != nil {
		handler(item)
	}
}
