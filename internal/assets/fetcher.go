// Package assets builds an address's NFT inventory from the data provider.
package assets

import (
	"context"
	"time"

	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/sybvouch/identity/internal/logging"
	"github.com/sybvouch/identity/internal/media"
	"github.com/sybvouch/identity/internal/models"
	"github.com/sybvouch/identity/internal/provider"
)

// Source is the provider API the fetcher reads from
type Source interface {
	GetNFTsForOwner(ctx context.Context, owner string, pageSize int, pageKey string) (*provider.OwnedNFTsPage, error)
	GetNFTMetadata(ctx context.Context, contract, tokenID string) (*provider.NFT, error)
}

// Fetcher loads and normalizes NFT holdings. Errors are returned to the caller.
type Fetcher struct {
	source   Source
	gateways media.Gateways
	pageSize int
	now      func() time.Time
	tracer   trace.Tracer
	logger   zerolog.Logger
}

// NewFetcher creates a fetcher over source
func NewFetcher(source Source, gateways media.Gateways) *Fetcher {
	return &Fetcher{
		source:   source,
		gateways: gateways,
		pageSize: provider.DefaultPageSize,
		now:      time.Now,
		tracer:   otel.Tracer("github.com/sybvouch/identity/internal/assets"),
		logger:   logging.Component("assets"),
	}
}

// SetClock overrides the time source used for FetchedAt
func (f *Fetcher) SetClock(now func() time.Time) {
	f.now = now
}

// SetPageSize sets how many tokens are requested from the provider
func (f *Fetcher) SetPageSize(size int) {
	f.pageSize = size
}

// Policy reports how this fetcher surfaces failures
func (f *Fetcher) Policy() models.FailurePolicy {
	return models.FailurePropagate
}

// Fetch returns the first page of assets owned by address, dropping entries with no image.
// TotalCount is the provider's count of all holdings, including filtered and unpaged ones.
func (f *Fetcher) Fetch(ctx context.Context, address string) (*models.AssetInventory, error) {
	ctx, span := f.tracer.Start(ctx, "assets.Fetch", trace.WithAttributes(attribute.String("address", address)))
	defer span.End()

	page, err := f.source.GetNFTsForOwner(ctx, address, f.pageSize, "")
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "provider request failed")
		return nil, err
	}

	inventory := &models.AssetInventory{
		Assets:     make([]models.Asset, 0, len(page.OwnedNFTs)),
		TotalCount: page.TotalCount,
		FetchedAt:  f.now().UnixMilli(),
	}
	for _, nft := range page.OwnedNFTs {
		asset, ok := f.Normalize(nft)
		if !ok {
			continue
		}
		inventory.Assets = append(inventory.Assets, asset)
	}

	f.logger.Debug().
		Str("address", address).
		Int("returned", len(page.OwnedNFTs)).
		Int("kept", len(inventory.Assets)).
		Int("total", page.TotalCount).
		Msg("fetched assets")

	return inventory, nil
}

// FetchOne returns a single token. Tokens without a usable image are still returned.
func (f *Fetcher) FetchOne(ctx context.Context, contract, tokenID string) (*models.Asset, error) {
	ctx, span := f.tracer.Start(ctx, "assets.FetchOne", trace.WithAttributes(
		attribute.String("contract", contract),
		attribute.String("tokenId", tokenID),
	))
	defer span.End()

	nft, err := f.source.GetNFTMetadata(ctx, contract, tokenID)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "provider request failed")
		return nil, err
	}

	asset := f.toAsset(*nft)
	return &asset, nil
}

// Normalize converts a provider NFT to an Asset. It reports false when the token has
// no image reference at all.
func (f *Fetcher) Normalize(nft provider.NFT) (models.Asset, bool) {
	if nft.Image.CachedURL == "" &&
		nft.Image.ThumbnailURL == "" &&
		nft.Image.OriginalURL == "" &&
		nft.Raw.MetadataString("image") == "" {
		return models.Asset{}, false
	}
	return f.toAsset(nft), true
}

func (f *Fetcher) toAsset(nft provider.NFT) models.Asset {
	image := f.gateways.ResolvePtr(nullable(firstNonEmpty(
		nft.Image.CachedURL,
		nft.Image.OriginalURL,
		nft.Raw.MetadataString("image"),
	)))

	thumbnail := f.gateways.ResolvePtr(nullable(nft.Image.ThumbnailURL))
	if thumbnail == nil {
		thumbnail = image
	}

	name := firstNonEmpty(nft.Name, nft.Raw.MetadataString("name"))
	if name == "" {
		name = "#" + nft.TokenID
	}

	tokenType := models.TokenTypeERC721
	if nft.TokenType == models.TokenTypeERC1155 {
		tokenType = models.TokenTypeERC1155
	}

	return models.Asset{
		TokenID:         nft.TokenID,
		ContractAddress: nft.Contract.Address,
		Name:            &name,
		Description:     nullable(firstNonEmpty(nft.Description, nft.Raw.MetadataString("description"))),
		Image:           image,
		ThumbnailURL:    thumbnail,
		CollectionName:  nullable(firstNonEmpty(nft.Contract.Name, nft.Contract.OpenSeaMetadata.CollectionName)),
		TokenType:       tokenType,
	}
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}

func nullable(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
