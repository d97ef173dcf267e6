// Package followcache persists the set of users the session user follows.
//
// The backend does not embed the caller's follow relation in post or feed
// payloads, so this side-table is what makes IsFollowingAuthor computable
// after a plain refresh. It is device-local by design: the same account on
// another device starts from the profile snapshot instead. Known limitation,
// not a bug to paper over.
package followcache

import (
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"sync"

	"space/internal/localstore"
)

const storeKey = "following"

// Cache is the persisted followee-ID set. Reads are in-memory; every write
// goes through to the local store before returning.
type Cache struct {
	mu    sync.RWMutex
	store localstore.Store
	ids   map[string]struct{}
}

// Load opens the cache on top of st, reading any persisted set.
func Load(st localstore.Store) (*Cache, error) {
	c := &Cache{store: st, ids: make(map[string]struct{})}

	raw, err := st.Get(storeKey)
	if errors.Is(err, localstore.ErrNotFound) {
		return c, nil
	}
	if err != nil {
		return nil, fmt.Errorf("load follow cache: %w", err)
	}

	var ids []string
	if err := json.Unmarshal(raw, &ids); err != nil {
		// A corrupt cache is dropped rather than trusted.
		return c, nil
	}
	for _, id := range ids {
		c.ids[id] = struct{}{}
	}
	return c, nil
}

// Contains reports whether the session user follows userID.
func (c *Cache) Contains(userID string) bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	_, ok := c.ids[userID]
	return ok
}

// All returns the followee IDs in stable order.
func (c *Cache) All() []string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make([]string, 0, len(c.ids))
	for id := range c.ids {
		out = append(out, id)
	}
	sort.Strings(out)
	return out
}

// Add records a followee and persists the set.
func (c *Cache) Add(userID string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, ok := c.ids[userID]; ok {
		return nil
	}
	c.ids[userID] = struct{}{}
	return c.persistLocked()
}

// Remove drops a followee and persists the set.
func (c *Cache) Remove(userID string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, ok := c.ids[userID]; !ok {
		return nil
	}
	delete(c.ids, userID)
	return c.persistLocked()
}

// ReplaceAll resets the cache from an authoritative following list, e.g.
// the profile snapshot fetched at session load.
func (c *Cache) ReplaceAll(ids []string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.ids = make(map[string]struct{}, len(ids))
	for _, id := range ids {
		c.ids[id] = struct{}{}
	}
	return c.persistLocked()
}

func (c *Cache) persistLocked() error {
	ids := make([]string, 0, len(c.ids))
	for id := range c.ids {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	raw, err := json.Marshal(ids)
	if err != nil {
		return fmt.Errorf("encode follow cache: %w", err)
	}
	if err := c.store.Set(storeKey, raw); err != nil {
		return fmt.Errorf("persist follow cache: %w", err)
	}
	return nil
}
