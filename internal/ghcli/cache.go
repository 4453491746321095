package ghcli

import (
	"encoding/json"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/codefionn/wtguard/internal/logger"
)

// MergedCache is a keyed, TTL-bearing record of merged-PR lookups, shared
// across guard invocations through a session-keyed file on disk. A single
// narrow mutex protects the in-memory map; there are no ambient globals.
//
// Merged state is monotone — a merged PR never un-merges — so "merged"
// entries are kept indefinitely while "not merged" entries expire after the
// TTL. The cache is advisory: losing it only costs an extra gh call.
type MergedCache struct {
	mu      sync.Mutex
	path    string
	ttl     time.Duration
	entries map[string]mergedEntry
	loaded  bool
}

type mergedEntry struct {
	Merged    bool      `json:"merged"`
	CheckedAt time.Time `json:"checked_at"`
}

// NewMergedCache creates a cache persisted under dir, keyed by session so
// concurrent sessions never contend on one file.
func NewMergedCache(dir, sessionID string, ttl time.Duration) *MergedCache {
	if sessionID == "" {
		sessionID = "default"
	}
	return &MergedCache{
		path:    filepath.Join(dir, "merged-prs-"+sessionID+".json"),
		ttl:     ttl,
		entries: make(map[string]mergedEntry),
	}
}

// Lookup returns the cached merged state for a branch. ok is false for
// unknown branches and for expired "not merged" entries.
func (c *MergedCache) Lookup(branch string) (merged, ok bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.load()
	entry, found := c.entries[branch]
	if !found {
		return false, false
	}
	if entry.Merged {
		return true, true
	}
	if time.Since(entry.CheckedAt) > c.ttl {
		return false, false
	}
	return false, true
}

// Record stores a lookup result and persists the cache. Persistence failure
// is logged and otherwise ignored.
func (c *MergedCache) Record(branch string, merged bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.load()
	c.entries[branch] = mergedEntry{Merged: merged, CheckedAt: time.Now()}

	data, err := json.Marshal(c.entries)
	if err != nil {
		return
	}
	if err := os.MkdirAll(filepath.Dir(c.path), 0755); err != nil {
		logger.Debug("merged cache dir: %v", err)
		return
	}
	if err := os.WriteFile(c.path, data, 0644); err != nil {
		logger.Debug("merged cache write: %v", err)
	}
}

// load reads the backing file once per process. A missing or corrupt file
// starts the cache empty.
func (c *MergedCache) load() {
	if c.loaded {
		return
	}
	c.loaded = true

	data, err := os.ReadFile(c.path)
	if err != nil {
		return
	}
	var entries map[string]mergedEntry
	if err := json.Unmarshal(data, &entries); err != nil {
		logger.Debug("merged cache corrupt, starting empty: %v", err)
		return
	}
	c.entries = entries
}
