package assets

import (
	"context"

	"github.com/sybvouch/identity/internal/cache"
	"github.com/sybvouch/identity/internal/models"
)

// InventoryFetcher loads a fresh inventory
type InventoryFetcher interface {
	Fetch(ctx context.Context, address string) (*models.AssetInventory, error)
	Policy() models.FailurePolicy
}

// Cached is a read-through cache in front of a fetcher
type Cached struct {
	fetcher InventoryFetcher
	store   *cache.Store
}

// NewCached wraps fetcher with the assets cache kind
func NewCached(fetcher InventoryFetcher, store *cache.Store) *Cached {
	return &Cached{fetcher: fetcher, store: store}
}

// Policy reports the wrapped fetcher's failure policy
func (c *Cached) Policy() models.FailurePolicy {
	return c.fetcher.Policy()
}

// Lookup returns the inventory for a normalized address and whether it was served from
// cache. refresh skips the cache read; the fresh result still replaces the entry.
// Fetch errors are returned and nothing is cached.
func (c *Cached) Lookup(ctx context.Context, address string, refresh bool) (*models.AssetInventory, bool, error) {
	if !refresh {
		var inventory models.AssetInventory
		if c.store.GetJSON(ctx, cache.KindAssets, address, &inventory) {
			return &inventory, true, nil
		}
	}

	inventory, err := c.fetcher.Fetch(ctx, address)
	if err != nil {
		return nil, false, err
	}
	_ = c.store.SetJSON(ctx, cache.KindAssets, address, inventory)
	return inventory, false, nil
}
