package naming

import (
	"context"

	"github.com/sybvouch/identity/internal/cache"
	"github.com/sybvouch/identity/internal/models"
)

// RecordResolver produces a naming record for an address
type RecordResolver interface {
	Resolve(ctx context.Context, address string) *models.NamingRecord
	Policy() models.FailurePolicy
}

// Cached is a read-through cache in front of a resolver
type Cached struct {
	resolver RecordResolver
	store    *cache.Store
}

// NewCached wraps resolver with the naming cache kind
func NewCached(resolver RecordResolver, store *cache.Store) *Cached {
	return &Cached{resolver: resolver, store: store}
}

// Policy reports the wrapped resolver's failure policy
func (c *Cached) Policy() models.FailurePolicy {
	return c.resolver.Policy()
}

// Lookup returns the record for a normalized address and whether it was served from cache.
// Empty records are cached like any other result.
func (c *Cached) Lookup(ctx context.Context, address string) (*models.NamingRecord, bool) {
	var record models.NamingRecord
	if c.store.GetJSON(ctx, cache.KindNaming, address, &record) {
		return &record, true
	}

	resolved := c.resolver.Resolve(ctx, address)
	_ = c.store.SetJSON(ctx, cache.KindNaming, address, resolved)
	return resolved, false
}

// Peek reads cached records for many addresses without resolving misses
func (c *Cached) Peek(ctx context.Context, addresses []string) map[string]*models.NamingRecord {
	return cache.GetMany[models.NamingRecord](ctx, c.store, cache.KindNaming, addresses)
}
