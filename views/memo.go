package views

import (
	"sync"
	"time"

	"github.com/meatvault/stock-service/models"
)

type memoKey struct {
	version uint64
	bucket  Bucket
	query   string
}

// Memo caches the projection for the last seen (snapshot version, bucket,
// query) tuple. A stream pushing the same snapshot to a reconnecting client
// reuses the computed result instead of re-filtering. The snapshot version
// comes from the owning CollectionSync, which bumps it on every wholesale
// replacement, so stale reuse across snapshots is impossible.
type Memo struct {
	mu    sync.Mutex
	key   memoKey
	valid bool

	visible []models.InventoryItemWithStatus
	summary Summary
}

// Project returns the visible, searched item list plus the summary over the
// full set. The summary is always computed from all items, never from the
// filtered subset.
func (m *Memo) Project(items []models.InventoryItemWithStatus, version uint64, bucket Bucket, query string, now time.Time) ([]models.InventoryItemWithStatus, Summary) {
	key := memoKey{version: version, bucket: bucket, query: query}

	m.mu.Lock()
	defer m.mu.Unlock()

	if m.valid && m.key == key {
		return m.visible, m.summary
	}

	m.visible = Search(Visible(items, bucket, now), query)
	m.summary = Summarize(items)
	m.key = key
	m.valid = true
	return m.visible, m.summary
}

// Invalidate drops the cached projection; the next Project recomputes.
// Needed when the caller re-classifies an unchanged snapshot because wall
// time has moved statuses.
func (m *Memo) Invalidate() {
	m.mu.Lock()
	m.valid = false
	m.mu.Unlock()
}
