package cache

import (
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"time"
)

// Snapshot is the document written to a Store.
type Snapshot[T any] struct {
	Cache     map[string]Entry[T] `json:"cache"`
	Stats     Stats               `json:"stats"`
	UpdatedAt time.Time           `json:"updatedAt"`
}

// storedSnapshot is the decode side of Snapshot; pointer fields tell a
// missing section apart from an empty one.
type storedSnapshot[T any] struct {
	Cache     map[string]Entry[T] `json:"cache"`
	Stats     *Stats              `json:"stats"`
	UpdatedAt time.Time           `json:"updatedAt"`
}

// Save writes the current state to the store. It is safe to call from any
// goroutine; the cache lock is held only while the state is copied.
func (c *Cache[T]) Save() error {
	if c.store == nil {
		return nil
	}
	c.saveMu.Lock()
	defer c.saveMu.Unlock()
	return c.saveLocked()
}

// saveLocked writes the snapshot. Caller holds c.saveMu.
func (c *Cache[T]) saveLocked() error {
	snap := c.snapshot()
	b, err := json.Marshal(snap)
	if err != nil {
		return fmt.Errorf("cache: encode snapshot: %w", err)
	}
	if err := c.store.Save(b); err != nil {
		return fmt.Errorf("cache: write snapshot: %w", err)
	}
	c.log.Debug().Int("size", len(snap.Cache)).Msg("snapshot saved")
	return nil
}

func (c *Cache[T]) snapshot() Snapshot[T] {
	c.mu.Lock()
	defer c.mu.Unlock()
	entries := make(map[string]Entry[T], len(c.entries))
	for key, r := range c.entries {
		entries[key] = r.Entry
	}
	stats := c.stats
	stats.Size = len(entries)
	return Snapshot[T]{
		Cache:     entries,
		Stats:     stats,
		UpdatedAt: c.clock.Now().UTC(),
	}
}

// persist is the best-effort save behind every automatic trigger. Failures
// are logged; the in-memory state stays authoritative.
//
// Once Close has started only its final save reaches the store. closed is
// checked under saveMu so a triggered save cannot land after it.
func (c *Cache[T]) persist(trigger string) {
	if c.store == nil {
		return
	}
	c.saveMu.Lock()
	defer c.saveMu.Unlock()
	if c.closed.Load() {
		return
	}
	if err := c.saveLocked(); err != nil {
		c.log.Warn().Err(err).Str("trigger", trigger).Msg("snapshot write failed")
	}
}

// load adopts the snapshot in the store, if any. Unreadable or malformed
// snapshots are logged and ignored.
func (c *Cache[T]) load() {
	if c.store == nil {
		return
	}
	b, err := c.store.Load()
	if errors.Is(err, ErrNotFound) {
		c.log.Info().Msg("no snapshot found, starting empty")
		return
	}
	if err != nil {
		c.log.Warn().Err(err).Msg("snapshot read failed, starting empty")
		return
	}
	var snap storedSnapshot[T]
	if err := json.Unmarshal(b, &snap); err != nil {
		c.log.Warn().Err(err).Msg("snapshot malformed, starting empty")
		return
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	// Restore write order from the timestamps so pruning keeps working
	// across restarts.
	keys := make([]string, 0, len(snap.Cache))
	for key := range snap.Cache {
		keys = append(keys, key)
	}
	sort.Slice(keys, func(i, j int) bool {
		ti, tj := snap.Cache[keys[i]].Timestamp, snap.Cache[keys[j]].Timestamp
		if ti != tj {
			return ti < tj
		}
		return keys[i] < keys[j]
	})
	for _, key := range keys {
		c.seq++
		c.entries[key] = &record[T]{Entry: snap.Cache[key], key: key, seq: c.seq}
	}
	if snap.Stats != nil {
		c.stats = *snap.Stats
		if c.stats.CreatedAt.IsZero() {
			c.stats.CreatedAt = c.clock.Now().UTC()
		}
	}
	c.stats.Size = len(c.entries)
	c.log.Info().Int("size", len(c.entries)).Time("updated_at", snap.UpdatedAt).Msg("snapshot loaded")
}
