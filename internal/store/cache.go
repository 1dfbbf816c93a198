package store

import (
	"context"
	"sync"
)

// CachedStore layers a read-through cache of the allow-list document over
// another Store. Every write path invalidates the cache before delegating,
// so a failed write can never leave a stale grant cached. Installer
// settings are not cached — they change once, at install time.
type CachedStore struct {
	Store

	mu     sync.RWMutex
	cached *AllowList
}

var _ Store = (*CachedStore)(nil)

// NewCachedStore wraps inner with allow-list caching.
func NewCachedStore(inner Store) *CachedStore {
	return &CachedStore{Store: inner}
}

func (c *CachedStore) ReadAllowList(ctx context.Context) (*AllowList, error) {
	c.mu.RLock()
	cached := c.cached
	c.mu.RUnlock()
	if cached != nil {
		return cached.Clone(), nil
	}

	list, err := c.Store.ReadAllowList(ctx)
	if err != nil {
		return nil, err
	}
	c.mu.Lock()
	c.cached = list.Clone()
	c.mu.Unlock()
	return list, nil
}

func (c *CachedStore) WriteAllowList(ctx context.Context, doc *AllowList) error {
	c.invalidate()
	return c.Store.WriteAllowList(ctx, doc)
}

func (c *CachedStore) MutateAllowList(ctx context.Context, fn func(*AllowList) error) (*AllowList, error) {
	c.invalidate()
	list, err := c.Store.MutateAllowList(ctx, fn)
	if err != nil {
		return nil, err
	}
	c.mu.Lock()
	c.cached = list.Clone()
	c.mu.Unlock()
	return list, nil
}

func (c *CachedStore) invalidate() {
	c.mu.Lock()
	c.cached = nil
	c.mu.Unlock()
}
