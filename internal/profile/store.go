// Package profile persists user-chosen display preferences per address.
package profile

import (
	"context"
	"time"

	"github.com/sybvouch/identity/internal/cache"
	"github.com/sybvouch/identity/internal/models"
)

// Store is the permanent profile record store. Entries never expire and write
// failures are returned to the caller.
type Store struct {
	cache *cache.Store
	now   func() time.Time
}

// NewStore creates a profile store on top of the cache's durable profile kind
func NewStore(c *cache.Store) *Store {
	return &Store{cache: c, now: time.Now}
}

// SetClock overrides the time source used for UpdatedAt
func (s *Store) SetClock(now func() time.Time) {
	s.now = now
}

// Get returns the profile for address, or nil if none is set or it cannot be read
func (s *Store) Get(ctx context.Context, address string) *models.UserProfile {
	var profile models.UserProfile
	if !s.cache.GetJSON(ctx, cache.KindProfile, address, &profile) {
		return nil
	}
	return &profile
}

// Set replaces the whole profile with update and stamps UpdatedAt
func (s *Store) Set(ctx context.Context, address string, update models.ProfileUpdate) (*models.UserProfile, error) {
	profile := update.ToProfile(s.now())
	if err := s.cache.SetJSON(ctx, cache.KindProfile, address, profile); err != nil {
		return nil, err
	}
	return profile, nil
}

// Delete removes the profile. Deleting an absent profile is not an error.
func (s *Store) Delete(ctx context.Context, address string) error {
	return s.cache.Delete(ctx, cache.KindProfile, address)
}
