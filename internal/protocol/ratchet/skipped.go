package ratchet

import (
	"container/list"
	"time"

	"cipherline/internal/crypto"
	"cipherline/internal/domain"
)

type skippedID struct {
	remote domain.X25519Public
	index  uint32
}

type skippedEntry struct {
	id      skippedID
	key     MessageKey
	created time.Time
}

// SkippedKeys caches message keys for messages that have not arrived yet,
// keyed by (remote ratchet key, index). Entries are kept in insertion order;
// the oldest is evicted when the cache is full.
type SkippedKeys struct {
	maxEntries int
	maxAge     time.Duration

	order   *list.List
	entries map[skippedID]*list.Element
}

// NewSkippedKeys returns an empty cache. maxAge of zero disables expiry.
func NewSkippedKeys(maxEntries int, maxAge time.Duration) *SkippedKeys {
	return &SkippedKeys{
		maxEntries: maxEntries,
		maxAge:     maxAge,
		order:      list.New(),
		entries:    make(map[skippedID]*list.Element),
	}
}

// Len returns the number of cached keys.
func (c *SkippedKeys) Len() int { return len(c.entries) }

// Put stores mk, evicting the oldest entries if the cache is full.
func (c *SkippedKeys) Put(remote domain.X25519Public, index uint32, mk MessageKey, now time.Time) {
	id := skippedID{remote: remote, index: index}
	if el, ok := c.entries[id]; ok {
		c.remove(el)
	}
	for c.maxEntries > 0 && len(c.entries) >= c.maxEntries {
		c.remove(c.order.Front())
	}
	c.entries[id] = c.order.PushBack(&skippedEntry{id: id, key: mk, created: now})
}

// Take removes and returns the key for (remote, index). Expired keys are
// treated as absent.
func (c *SkippedKeys) Take(remote domain.X25519Public, index uint32, now time.Time) (MessageKey, bool) {
	el, ok := c.entries[skippedID{remote: remote, index: index}]
	if !ok {
		return MessageKey{}, false
	}
	e := el.Value.(*skippedEntry)
	mk := e.key
	expired := c.expired(e, now)
	c.remove(el)
	if expired {
		crypto.Wipe(mk[:])
		return MessageKey{}, false
	}
	return mk, true
}

// Prune drops every expired entry.
func (c *SkippedKeys) Prune(now time.Time) {
	for el := c.order.Front(); el != nil; {
		next := el.Next()
		if c.expired(el.Value.(*skippedEntry), now) {
			c.remove(el)
		}
		el = next
	}
}

// Wipe zeroes and drops every cached key.
func (c *SkippedKeys) Wipe() {
	for c.order.Len() > 0 {
		c.remove(c.order.Front())
	}
}

func (c *SkippedKeys) expired(e *skippedEntry, now time.Time) bool {
	return c.maxAge > 0 && now.Sub(e.created) > c.maxAge
}

func (c *SkippedKeys) remove(el *list.Element) {
	e := c.order.Remove(el).(*skippedEntry)
	crypto.Wipe(e.key[:])
	delete(c.entries, e.id)
}

func (c *SkippedKeys) clone() *SkippedKeys {
	out := NewSkippedKeys(c.maxEntries, c.maxAge)
	for el := c.order.Front(); el != nil; el = el.Next() {
		e := *el.Value.(*skippedEntry)
		out.entries[e.id] = out.order.PushBack(&e)
	}
	return out
}

func (c *SkippedKeys) each(fn func(e *skippedEntry)) {
	for el := c.order.Front(); el != nil; el = el.Next() {
		fn(el.Value.(*skippedEntry))
	}
}
