// Package naming resolves an address to its primary ENS name and text records.
package naming

import (
	"context"
	"fmt"
	"math/big"
	"net/http"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/errgroup"

	"github.com/sybvouch/identity/internal/logging"
	"github.com/sybvouch/identity/internal/media"
	"github.com/sybvouch/identity/internal/models"
	"github.com/sybvouch/identity/internal/rpc"
)

// ChainReader is the subset of the RPC client the resolver needs
type ChainReader interface {
	ReverseName(ctx context.Context, address string) (string, error)
	Resolver(ctx context.Context, node [32]byte) (common.Address, error)
	TextAt(ctx context.Context, resolver common.Address, node [32]byte, key string) (string, error)
	TokenURI(ctx context.Context, contract string, tokenID *big.Int) (string, error)
	ERC1155URI(ctx context.Context, contract string, tokenID *big.Int) (string, error)
}

// Text record keys fetched for every named address
const (
	KeyAvatar      = "avatar"
	KeyDescription = "description"
	KeyTwitter     = "com.twitter"
	KeyGitHub      = "com.github"
	KeyURL         = "url"
	KeyEmail       = "email"
	KeyDiscord     = "com.discord"
)

// TextRecordKeys is the fixed set of text records read after a name is found
var TextRecordKeys = []string{
	KeyAvatar,
	KeyDescription,
	KeyTwitter,
	KeyGitHub,
	KeyURL,
	KeyEmail,
	KeyDiscord,
}

// Resolver maps addresses to naming records. It never returns an error:
// upstream failures produce an empty record.
type Resolver struct {
	chain      ChainReader
	gateways   media.Gateways
	httpClient *http.Client
	now        func() time.Time
	tracer     trace.Tracer
	logger     zerolog.Logger
}

// NewResolver creates a resolver. timeout bounds avatar metadata fetches.
func NewResolver(chain ChainReader, gateways media.Gateways, timeout time.Duration) *Resolver {
	return &Resolver{
		chain:      chain,
		gateways:   gateways,
		httpClient: &http.Client{Timeout: timeout},
		now:        time.Now,
		tracer:     otel.Tracer("github.com/sybvouch/identity/internal/naming"),
		logger:     logging.Component("naming"),
	}
}

// SetClock overrides the time source used for FetchedAt
func (r *Resolver) SetClock(now func() time.Time) {
	r.now = now
}

// Policy reports how this resolver surfaces failures
func (r *Resolver) Policy() models.FailurePolicy {
	return models.FailureSuppress
}

// Resolve returns the naming record for address. An address without a primary
// name, or one whose lookup failed, yields a record with only FetchedAt set.
func (r *Resolver) Resolve(ctx context.Context, address string) (record *models.NamingRecord) {
	ctx, span := r.tracer.Start(ctx, "naming.Resolve", trace.WithAttributes(attribute.String("address", address)))
	defer span.End()

	empty := models.NewNamingRecord(r.now())
	defer func() {
		if p := recover(); p != nil {
			r.logger.Error().Interface("panic", p).Str("address", address).Msg("naming resolution panicked")
			span.RecordError(fmt.Errorf("panic: %v", p))
			record = empty
		}
	}()

	name, err := r.chain.ReverseName(ctx, address)
	if err != nil {
		r.logger.Warn().Err(err).Str("address", address).Msg("reverse resolution failed")
		span.RecordError(err)
		return empty
	}
	if name == "" {
		return empty
	}

	record = models.NewNamingRecord(r.now())
	record.Name = &name
	span.SetAttributes(attribute.String("name", name))

	texts := r.textRecords(ctx, name)
	record.Description = texts[KeyDescription]
	record.Twitter = texts[KeyTwitter]
	record.GitHub = texts[KeyGitHub]
	record.Website = texts[KeyURL]
	record.Email = texts[KeyEmail]
	record.Discord = texts[KeyDiscord]

	if avatar := texts[KeyAvatar]; avatar != nil {
		resolved := r.ResolveAvatar(ctx, *avatar)
		record.Avatar = &resolved
	}

	return record
}

// textRecords looks up the name's resolver once and reads every text record from it
// concurrently. A failed or empty record is nil and never affects the others.
func (r *Resolver) textRecords(ctx context.Context, name string) map[string]*string {
	result := make(map[string]*string, len(TextRecordKeys))
	for _, key := range TextRecordKeys {
		result[key] = nil
	}

	node := rpc.Namehash(rpc.NormalizeName(name))
	resolver, err := r.chain.Resolver(ctx, node)
	if err != nil {
		r.logger.Debug().Err(err).Str("name", name).Msg("resolver lookup failed")
		return result
	}
	if resolver == (common.Address{}) {
		return result
	}

	values := make([]*string, len(TextRecordKeys))

	var g errgroup.Group
	for i, key := range TextRecordKeys {
		g.Go(func() error {
			value, err := r.chain.TextAt(ctx, resolver, node, key)
			if err != nil {
				r.logger.Debug().Err(err).Str("name", name).Str("key", key).Msg("text record lookup failed")
				return nil
			}
			values[i] = models.NullIfEmpty(&value)
			return nil
		})
	}
	_ = g.Wait()

	for i, key := range TextRecordKeys {
		result[key] = values[i]
	}
	return result
}
