// Package pdfcache caches the base64 text form of stored PDFs so repeated
// chat turns against the same document do not re-read and re-encode it.
package pdfcache

import (
	"context"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"

	"github.com/paperchat/backend/internal/storage"
)

const (
	DefaultCapacity = 100
	DefaultTTL      = time.Hour
)

// Cache is a bounded, expiring view over the blob store. It holds no
// authoritative state: a miss means recompute, and it may be purged at any
// time with only a performance impact.
type Cache struct {
	entries *expirable.LRU[string, string]
	store   storage.Storage
}

func New(store storage.Storage, capacity int, ttl time.Duration) *Cache {
	return &Cache{
		entries: expirable.NewLRU[string, string](capacity, nil, ttl),
		store:   store,
	}
}

// GetOrCompute returns the base64 form of the document's PDF, computing and
// caching it on a miss. Concurrent misses for the same id may each recompute;
// encoding is idempotent so whichever write lands last wins.
func (c *Cache) GetOrCompute(ctx context.Context, documentID string) (string, error) {
	if encoded, ok := c.entries.Get(documentID); ok {
		return encoded, nil
	}

	encoded, err := c.store.FetchBase64(ctx, documentID)
	if err != nil {
		return "", err
	}

	c.entries.Add(documentID, encoded)
	return encoded, nil
}

// Purge drops every entry.
func (c *Cache) Purge() {
	c.entries.Purge()
}

// Len returns the current entry count.
func (c *Cache) Len() int {
	return c.entries.Len()
}
