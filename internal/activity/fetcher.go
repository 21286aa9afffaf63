// Package activity reports live wallet activity: transaction count and native balance.
package activity

import (
	"context"
	"math/big"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/errgroup"

	"github.com/sybvouch/identity/internal/logging"
	"github.com/sybvouch/identity/internal/models"
	"github.com/sybvouch/identity/internal/provider"
)

// ethDecimals is the number of decimals of the native token
const ethDecimals = 18

// balancePlaces is the number of fractional digits reported
const balancePlaces = 4

// ChainReader is the subset of the RPC client used for activity
type ChainReader interface {
	GetBalance(ctx context.Context, address string) (*big.Int, error)
	GetTransactionCount(ctx context.Context, address string) (uint64, error)
}

// Stats is the activity summary without balance
type Stats struct {
	TransactionCount       uint64
	FirstActivityTimestamp *int64
}

// Fetcher reads activity from the provider's RPC endpoint. It is never cached.
type Fetcher struct {
	chain  ChainReader
	tracer trace.Tracer
	logger zerolog.Logger
}

// NewFetcher creates a fetcher. A nil chain means the provider is not configured.
func NewFetcher(chain ChainReader) *Fetcher {
	return &Fetcher{
		chain:  chain,
		tracer: otel.Tracer("github.com/sybvouch/identity/internal/activity"),
		logger: logging.Component("activity"),
	}
}

// Policy reports how this fetcher surfaces failures
func (f *Fetcher) Policy() models.FailurePolicy {
	return models.FailurePropagate
}

// GetStats returns the transaction count. FirstActivityTimestamp is always nil.
func (f *Fetcher) GetStats(ctx context.Context, address string) (*Stats, error) {
	if f.chain == nil {
		return nil, provider.ErrProviderNotConfigured
	}

	count, err := f.chain.GetTransactionCount(ctx, address)
	if err != nil {
		return nil, err
	}
	return &Stats{TransactionCount: count}, nil
}

// GetBalance returns the native balance in ETH with four decimal places
func (f *Fetcher) GetBalance(ctx context.Context, address string) (string, error) {
	if f.chain == nil {
		return "", provider.ErrProviderNotConfigured
	}

	wei, err := f.chain.GetBalance(ctx, address)
	if err != nil {
		return "", err
	}
	return FormatWei(wei), nil
}

// Fetch runs GetStats and GetBalance concurrently and joins them.
// Both calls always run to completion; the first error is returned.
func (f *Fetcher) Fetch(ctx context.Context, address string) (*models.ActivityStats, error) {
	ctx, span := f.tracer.Start(ctx, "activity.Fetch", trace.WithAttributes(attribute.String("address", address)))
	defer span.End()

	var (
		stats   *Stats
		balance string
		g       errgroup.Group
	)
	g.Go(func() error {
		var err error
		stats, err = f.GetStats(ctx, address)
		return err
	})
	g.Go(func() error {
		var err error
		balance, err = f.GetBalance(ctx, address)
		return err
	})
	if err := g.Wait(); err != nil {
		span.RecordError(err)
		f.logger.Warn().Err(err).Str("address", address).Msg("activity lookup failed")
		return nil, err
	}

	return &models.ActivityStats{
		TransactionCount:       stats.TransactionCount,
		Balance:                balance,
		FirstActivityTimestamp: stats.FirstActivityTimestamp,
	}, nil
}

// FormatWei converts wei to ETH rounded to four decimal places
func FormatWei(wei *big.Int) string {
	if wei == nil {
		return decimal.Zero.StringFixed(balancePlaces)
	}
	return decimal.NewFromBigInt(wei, -ethDecimals).StringFixed(balancePlaces)
}
