package application

import (
	"strings"
	"sync"
	"time"
)

// availabilityCache stores recently resolved day results to avoid repeated
// window/exception loads for identical lookups while availability data
// remains unchanged. Any mutation for a user invalidates that user's
// entries.
type availabilityCache struct {
	mu         sync.RWMutex
	now        func() time.Time
	ttl        time.Duration
	maxEntries int
	entries    map[string]availabilityCacheEntry
}

type availabilityCacheEntry struct {
	open      []SuggestedSlot
	expiresAt time.Time
}

func newAvailabilityCache(ttl time.Duration, maxEntries int, now func() time.Time) *availabilityCache {
	if ttl <= 0 {
		ttl = 30 * time.Second
	}
	if maxEntries <= 0 {
		maxEntries = 256
	}
	if now == nil {
		now = time.Now
	}
	return &availabilityCache{
		now:        now,
		ttl:        ttl,
		maxEntries: maxEntries,
		entries:    make(map[string]availabilityCacheEntry),
	}
}

func availabilityCacheKey(firmID, userID, date string) string {
	return firmID + "|" + userID + "|" + date
}

func (c *availabilityCache) Get(key string) ([]SuggestedSlot, bool) {
	if c == nil {
		return nil, false
	}
	c.mu.RLock()
	entry, ok := c.entries[key]
	c.mu.RUnlock()
	if !ok {
		return nil, false
	}
	if c.now().After(entry.expiresAt) {
		c.mu.Lock()
		delete(c.entries, key)
		c.mu.Unlock()
		return nil, false
	}
	return cloneSlots(entry.open), true
}

func (c *availabilityCache) Store(key string, open []SuggestedSlot) {
	if c == nil {
		return
	}
	cloned := cloneSlots(open)
	expiry := c.now().Add(c.ttl)

	c.mu.Lock()
	defer c.mu.Unlock()

	c.cleanupLocked()
	if len(c.entries) >= c.maxEntries {
		c.evictOneLocked()
	}
	c.entries[key] = availabilityCacheEntry{open: cloned, expiresAt: expiry}
}

// InvalidateUser drops every cached day for one user.
func (c *availabilityCache) InvalidateUser(firmID, userID string) {
	if c == nil {
		return
	}
	prefix := firmID + "|" + userID + "|"
	c.mu.Lock()
	for key := range c.entries {
		if strings.HasPrefix(key, prefix) {
			delete(c.entries, key)
		}
	}
	c.mu.Unlock()
}

func (c *availabilityCache) cleanupLocked() {
	now := c.now()
	for key, entry := range c.entries {
		if now.After(entry.expiresAt) {
			delete(c.entries, key)
		}
	}
}

func (c *availabilityCache) evictOneLocked() {
	for key := range c.entries {
		delete(c.entries, key)
		return
	}
}

func cloneSlots(slots []SuggestedSlot) []SuggestedSlot {
	if len(slots) == 0 {
		return nil
	}
	out := make([]SuggestedSlot, len(slots))
	copy(out, slots)
	return out
}
