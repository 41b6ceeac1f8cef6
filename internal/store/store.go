// Package store provides crash-safe persistence for fuzzy-match decisions
// using a JSON file.
//
// Confirmed pairs and explicit rejections survive restarts so subsequent
// scans skip re-scoring them. Writes use atomic file replacement (write to
// .tmp, then rename) to prevent corruption from partial writes or crashes
// mid-save.
package store

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"
)

// ConfirmedMatch records a fuzzy pairing accepted at or above the confirm
// threshold.
type ConfirmedMatch struct {
	PolySlug     string    `json:"poly_slug"`
	KalshiTicker string    `json:"kalshi_ticker"`
	Name         string    `json:"name"`
	Category     string    `json:"category"`
	Score        float64   `json:"score"`
	ConfirmedAt  time.Time `json:"confirmed_at"`
}

type cacheFile struct {
	Confirmed map[string]ConfirmedMatch `json:"confirmed"`
	Rejected  map[string]bool           `json:"rejected"`
}

// MatchCache persists fuzzy-match decisions keyed by "polyID|kalshiID".
// All operations are mutex-protected to prevent concurrent file corruption.
type MatchCache struct {
	path string
	mu   sync.Mutex

	confirmed map[string]ConfirmedMatch
	rejected  map[string]bool
}

// OpenMatchCache loads (or initializes) the cache file under dir.
func OpenMatchCache(dir string) (*MatchCache, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create store dir: %w", err)
	}

	c := &MatchCache{
		path:      filepath.Join(dir, "matches.json"),
		confirmed: make(map[string]ConfirmedMatch),
		rejected:  make(map[string]bool),
	}

	data, err := os.ReadFile(c.path)
	if err != nil {
		if os.IsNotExist(err) {
			return c, nil
		}
		return nil, fmt.Errorf("read match cache: %w", err)
	}

	var file cacheFile
	if err := json.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("unmarshal match cache: %w", err)
	}
	if file.Confirmed != nil {
		c.confirmed = file.Confirmed
	}
	if file.Rejected != nil {
		c.rejected = file.Rejected
	}
	return c, nil
}

// Key builds the cache key for an event pair.
func Key(polyID, kalshiID string) string {
	return polyID + "|" + kalshiID
}

// Confirmed returns the cached confirmation for a pair, if any.
func (c *MatchCache) Confirmed(key string) (ConfirmedMatch, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	m, ok := c.confirmed[key]
	return m, ok
}

// Rejected reports whether the pair was explicitly rejected before.
func (c *MatchCache) Rejected(key string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.rejected[key]
}

// AllConfirmed returns every cached confirmation.
func (c *MatchCache) AllConfirmed() []ConfirmedMatch {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]ConfirmedMatch, 0, len(c.confirmed))
	for _, m := range c.confirmed {
		out = append(out, m)
	}
	return out
}

// Confirm records an accepted pair and persists the cache.
func (c *MatchCache) Confirm(key string, m ConfirmedMatch) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.confirmed[key] = m
	delete(c.rejected, key)
	return c.saveLocked()
}

// Reject records an explicit rejection and persists the cache.
func (c *MatchCache) Reject(key string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, ok := c.confirmed[key]; ok {
		delete(c.confirmed, key)
	}
	c.rejected[key] = true
	return c.saveLocked()
}

// saveLocked atomically persists the cache. It writes to a .tmp file first,
// then renames over the target so the file is never left partial.
func (c *MatchCache) saveLocked() error {
	data, err := json.Marshal(cacheFile{Confirmed: c.confirmed, Rejected: c.rejected})
	if err != nil {
		return fmt.Errorf("marshal match cache: %w", err)
	}

	tmp := c.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o600); err != nil {
		return fmt.Errorf("write match cache: %w", err)
	}
	return os.Rename(tmp, c.path)
}
