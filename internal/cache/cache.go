package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"
	"github.com/sybvouch/identity/internal/data"
	"github.com/sybvouch/identity/internal/logging"
	"github.com/sybvouch/identity/internal/models"
	"github.com/sybvouch/identity/internal/observability"
)

// Kind namespaces keys by the type of data stored
type Kind string

const (
	KindNaming  Kind = "ens"
	KindAssets  Kind = "nfts"
	KindProfile Kind = "profile"
)

// Policy controls expiry and failure visibility for a kind
type Policy struct {
	// TTL of zero means the entry never expires
	TTL time.Duration

	// Durable kinds are the source of truth: write and delete failures are returned.
	// Derived kinds can be recomputed, so their write failures are only logged.
	Durable bool
}

// Standard TTL durations for different types of data
var (
	// Names and text records change rarely but can change
	NamingTTLDuration = time.Hour

	// Holdings move often enough that a short window is worth the provider cost
	AssetsTTLDuration = 10 * time.Minute
)

// DefaultPolicies returns the per-kind policies with the given derived-data TTLs
func DefaultPolicies(namingTTL, assetsTTL time.Duration) map[Kind]Policy {
	return map[Kind]Policy{
		KindNaming:  {TTL: namingTTL},
		KindAssets:  {TTL: assetsTTL},
		KindProfile: {Durable: true},
	}
}

// Store is a typed, namespaced view over a data.Connector.
// Reads never fail: backend errors degrade to a miss.
type Store struct {
	connector data.Connector
	policies  map[Kind]Policy
	metrics   *observability.Metrics
	logger    zerolog.Logger
}

// NewStore creates a cache store. metrics may be nil.
func NewStore(connector data.Connector, policies map[Kind]Policy, metrics *observability.Metrics) *Store {
	if policies == nil {
		policies = DefaultPolicies(NamingTTLDuration, AssetsTTLDuration)
	}
	return &Store{
		connector: connector,
		policies:  policies,
		metrics:   metrics,
		logger:    logging.Component("cache"),
	}
}

// Key formats the namespaced key for kind and address: {kind}:{lowercased-address}
func Key(kind Kind, address string) string {
	return fmt.Sprintf("%s:%s", kind, models.NormalizeAddress(address))
}

// Policy returns the policy for kind. Unknown kinds are treated as non-expiring and derived.
func (s *Store) Policy(kind Kind) Policy {
	return s.policies[kind]
}

// GetJSON reads and unmarshals the entry into dest. It reports whether dest was filled.
func (s *Store) GetJSON(ctx context.Context, kind Kind, address string, dest interface{}) bool {
	key := Key(kind, address)

	raw, err := s.connector.Get(ctx, key)
	if errors.Is(err, data.ErrNotFound) {
		s.metrics.CacheMiss(string(kind))
		return false
	}
	if err != nil {
		s.logger.Warn().Err(err).Str("key", key).Msg("cache read failed, treating as miss")
		s.metrics.CacheError(string(kind), "get")
		s.metrics.CacheMiss(string(kind))
		return false
	}

	if err := json.Unmarshal(raw, dest); err != nil {
		s.logger.Warn().Err(err).Str("key", key).Msg("cache entry is not valid JSON, treating as miss")
		s.metrics.CacheMiss(string(kind))
		return false
	}

	s.metrics.CacheHit(string(kind))
	return true
}

// SetJSON marshals and stores value under the kind's policy.
// Only durable kinds return backend errors.
func (s *Store) SetJSON(ctx context.Context, kind Kind, address string, value interface{}) error {
	key := Key(kind, address)
	policy := s.Policy(kind)

	raw, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("failed to marshal %s entry: %w", kind, err)
	}

	if err := s.connector.Set(ctx, key, raw, policy.TTL); err != nil {
		s.metrics.CacheError(string(kind), "set")
		if policy.Durable {
			s.logger.Error().Err(err).Str("key", key).Msg("durable write failed")
			return fmt.Errorf("failed to save %s: %w", kind, err)
		}
		s.logger.Warn().Err(err).Str("key", key).Msg("cache write failed")
	}
	return nil
}

// Delete removes the entry. Only durable kinds return backend errors.
func (s *Store) Delete(ctx context.Context, kind Kind, address string) error {
	key := Key(kind, address)

	if err := s.connector.Delete(ctx, key); err != nil {
		s.metrics.CacheError(string(kind), "delete")
		if s.Policy(kind).Durable {
			s.logger.Error().Err(err).Str("key", key).Msg("durable delete failed")
			return fmt.Errorf("failed to delete %s: %w", kind, err)
		}
		s.logger.Warn().Err(err).Str("key", key).Msg("cache delete failed")
	}
	return nil
}

// Ping checks the backend
func (s *Store) Ping(ctx context.Context) error {
	return s.connector.Ping(ctx)
}

// GetMany reads many addresses of one kind in a single round-trip.
// The result has an entry for every normalized address; misses and failures map to nil.
func GetMany[T any](ctx context.Context, s *Store, kind Kind, addresses []string) map[string]*T {
	result := make(map[string]*T, len(addresses))
	keys := make([]string, len(addresses))
	for i, address := range addresses {
		keys[i] = Key(kind, address)
		result[models.NormalizeAddress(address)] = nil
	}
	if len(keys) == 0 {
		return result
	}

	values, err := s.connector.MGet(ctx, keys)
	if err != nil {
		s.logger.Warn().Err(err).Str("kind", string(kind)).Int("count", len(keys)).Msg("batch cache read failed")
		s.metrics.CacheError(string(kind), "mget")
		return result
	}

	for i, raw := range values {
		if raw == nil {
			s.metrics.CacheMiss(string(kind))
			continue
		}
		var entry T
		if err := json.Unmarshal(raw, &entry); err != nil {
			s.logger.Warn().Err(err).Str("key", keys[i]).Msg("cache entry is not valid JSON")
			continue
		}
		s.metrics.CacheHit(string(kind))
		result[models.NormalizeAddress(addresses[i])] = &entry
	}
	return result
}
