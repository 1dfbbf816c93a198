package portal

import (
	"context"
	"strconv"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"
	"golang.org/x/sync/singleflight"
)

// CachingDirectory wraps a Directory with a TTL-bounded LRU for department
// lookups. Department names change rarely but are fetched on every admin
// screen render; identity and admin checks are security-relevant and are
// never cached. Concurrent lookups for the same department are coalesced
// via singleflight.
type CachingDirectory struct {
	Directory

	departments *expirable.LRU[string, *Department]
	sf          singleflight.Group
}

// NewCachingDirectory creates the caching wrapper. size bounds the LRU,
// ttl bounds staleness of department names.
func NewCachingDirectory(inner Directory, size int, ttl time.Duration) *CachingDirectory {
	return &CachingDirectory{
		Directory:   inner,
		departments: expirable.NewLRU[string, *Department](size, nil, ttl),
	}
}

// GetDepartment returns the cached department, or fetches and caches it.
// Negative results (department absent) are cached as nil to avoid hammering
// the portal for stale allow-list entries.
func (c *CachingDirectory) GetDepartment(ctx context.Context, id int64, cred Credential) (*Department, error) {
	key := cred.Domain + "/" + strconv.FormatInt(id, 10)
	if dep, ok := c.departments.Get(key); ok {
		return dep, nil
	}

	result, err, _ := c.sf.Do(key, func() (any, error) {
		// Double-check inside singleflight: another goroutine may have
		// populated the entry while we waited.
		if dep, ok := c.departments.Get(key); ok {
			return dep, nil
		}
		dep, err := c.Directory.GetDepartment(ctx, id, cred)
		if err != nil {
			return nil, err
		}
		c.departments.Add(key, dep)
		return dep, nil
	})
	if err != nil {
		return nil, err
	}
	return result.(*Department), nil
}
