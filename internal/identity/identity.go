// Package identity composes naming and profile data into a display identity.
package identity

import (
	"context"
	"strings"

	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/errgroup"

	"github.com/sybvouch/identity/internal/logging"
	"github.com/sybvouch/identity/internal/models"
)

// NamingLookup returns the naming record for an address and whether it was cached
type NamingLookup interface {
	Lookup(ctx context.Context, address string) (*models.NamingRecord, bool)
}

// ProfileReader returns the stored profile for an address, or nil
type ProfileReader interface {
	Get(ctx context.Context, address string) *models.UserProfile
}

// Composer builds WalletIdentity values
type Composer struct {
	naming   NamingLookup
	profiles ProfileReader
	tracer   trace.Tracer
	logger   zerolog.Logger
}

// NewComposer creates a composer over the naming cache and the profile store
func NewComposer(naming NamingLookup, profiles ProfileReader) *Composer {
	return &Composer{
		naming:   naming,
		profiles: profiles,
		tracer:   otel.Tracer("github.com/sybvouch/identity/internal/identity"),
		logger:   logging.Component("identity"),
	}
}

// Compose reads naming and profile data concurrently for a normalized address.
// A branch that fails or panics contributes nothing; the other branch is unaffected.
func (c *Composer) Compose(ctx context.Context, address string) *models.WalletIdentity {
	ctx, span := c.tracer.Start(ctx, "identity.Compose", trace.WithAttributes(attribute.String("address", address)))
	defer span.End()

	var (
		record  *models.NamingRecord
		profile *models.UserProfile
		g       errgroup.Group
	)
	g.Go(func() error {
		defer c.recoverBranch("naming", address)
		record, _ = c.naming.Lookup(ctx, address)
		return nil
	})
	g.Go(func() error {
		defer c.recoverBranch("profile", address)
		profile = c.profiles.Get(ctx, address)
		return nil
	})
	_ = g.Wait()

	return Build(address, record, profile)
}

func (c *Composer) recoverBranch(branch, address string) {
	if p := recover(); p != nil {
		c.logger.Error().Interface("panic", p).Str("branch", branch).Str("address", address).Msg("identity branch failed")
	}
}

// Build applies display precedence: a naming avatar wins over the selected asset's
// image, and with neither the UI renders a placeholder from PlaceholderSeed.
func Build(address string, record *models.NamingRecord, profile *models.UserProfile) *models.WalletIdentity {
	address = models.NormalizeAddress(address)
	identity := &models.WalletIdentity{
		Address:         address,
		ChecksumAddress: models.ChecksumAddress(address),
		DisplayName:     models.ShortenAddress(models.ChecksumAddress(address)),
		AvatarSource:    models.AvatarSourcePlaceholder,
		PlaceholderSeed: PlaceholderSeed(address),
	}

	if record != nil {
		if record.HasName() {
			identity.Name = record.Name
			identity.DisplayName = *record.Name
		}
		identity.Socials = models.Socials{
			Twitter: record.Twitter,
			GitHub:  record.GitHub,
			Website: record.Website,
			Email:   record.Email,
			Discord: record.Discord,
		}
	}

	if profile != nil && (profile.SelectedAssetImage != nil || profile.SelectedAssetName != nil) {
		identity.SelectedAsset = &models.SelectedAsset{
			Image:      profile.SelectedAssetImage,
			Name:       profile.SelectedAssetName,
			Collection: profile.SelectedAssetCollection,
		}
	}

	switch {
	case record != nil && models.NullIfEmpty(record.Avatar) != nil:
		identity.Avatar = record.Avatar
		identity.AvatarSource = models.AvatarSourceNaming
	case profile != nil && models.NullIfEmpty(profile.SelectedAssetImage) != nil:
		identity.Avatar = profile.SelectedAssetImage
		identity.AvatarSource = models.AvatarSourceAsset
	}

	return identity
}

// PlaceholderSeed hashes the address's hex digits (h = h*31 + c, wrapping at 32 bits)
// and returns the absolute value. The identicon renderer seeds its generator with it.
func PlaceholderSeed(address string) uint32 {
	digits := strings.Replace(strings.ToLower(address), "0x", "", 1)

	var h int32
	for _, c := range digits {
		h = (h << 5) - h + int32(c)
	}
	if h < 0 {
		return uint32(-int64(h))
	}
	return uint32(h)
}
