package providers

import (
	lru "github.com/hashicorp/golang-lru/simplelru"
)

// PeerMap is the in-memory snapshot of provider records for a single
// CID: peer text to its most-recent timestamp (ms since epoch). Order
// is irrelevant.
type PeerMap map[string]uint64

// Clone returns a shallow copy. Callers that hand a PeerMap to the
// cache and keep mutating their own copy must clone first; the
// registry itself mutates the live map in place and relies on
// CacheTier.Put to refresh LRU recency, keeping the cache's view of a
// CID consistent with what the registry just wrote.
func (m PeerMap) Clone() PeerMap {
	out := make(PeerMap, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}

// CacheTier is a fixed-capacity LRU mapping cid-text to PeerMap. It is
// advisory only: losing an entry never loses data, it just forces a
// prefix scan on next access. Every method here is called exclusively
// from within the Serializer's single slot, so no locking is needed.
type CacheTier struct {
	lru lru.LRUCache
}

// NewCacheTier builds a CacheTier with the given capacity, measured in
// number of distinct CIDs held.
func NewCacheTier(capacity int) (*CacheTier, error) {
	l, err := lru.NewLRU(capacity, nil)
	if err != nil {
		return nil, err
	}
	return &CacheTier{lru: l}, nil
}

// Get returns the cached PeerMap for cidText, or (nil, false) on a
// miss. A miss means "not cached", never "no providers" — that is
// represented by a present, empty PeerMap.
func (c *CacheTier) Get(cidText string) (PeerMap, bool) {
	v, ok := c.lru.Get(cidText)
	if !ok {
		return nil, false
	}
	return v.(PeerMap), true
}

// Put inserts or replaces the entry for cidText, evicting the
// least-recently-used entry on overflow and refreshing cidText's own
// recency.
func (c *CacheTier) Put(cidText string, m PeerMap) {
	c.lru.Add(cidText, m)
}

// Remove evicts the entry for cidText, if any.
func (c *CacheTier) Remove(cidText string) {
	c.lru.Remove(cidText)
}

// Len returns the number of CIDs currently resident.
func (c *CacheTier) Len() int {
	return c.lru.Len()
}

// Purge drops every cached entry.
func (c *CacheTier) Purge() {
	c.lru.Purge()
}
