package runtime

import (
	"time"

	"github.com/furrow-ag/furrow/pkg/domain"
	"github.com/patrickmn/go-cache"
)

const (
	DefaultRoleTTL     = 10 * time.Minute
	DefaultRoleCleanup = 20 * time.Minute
)

// RoleCache remembers roles of registered identities. A role never changes
// once registered, so a hit can be trusted inside any transaction. Misses
// are never cached.
type RoleCache struct {
	c *cache.Cache
}

// NewRoleCache creates a cache whose entries expire after ttl.
func NewRoleCache(ttl, cleanup time.Duration) *RoleCache {
	return &RoleCache{c: cache.New(ttl, cleanup)}
}

func (r *RoleCache) get(id domain.Identity) (domain.Role, bool) {
	if r == nil {
		return 0, false
	}
	v, ok := r.c.Get(string(id))
	if !ok {
		return 0, false
	}
	return v.(domain.Role), true
}

func (r *RoleCache) put(id domain.Identity, role domain.Role) {
	if r == nil {
		return
	}
	r.c.SetDefault(string(id), role)
}

// Len reports the number of cached roles.
func (r *RoleCache) Len() int {
	if r == nil {
		return 0
	}
	return r.c.ItemCount()
}
