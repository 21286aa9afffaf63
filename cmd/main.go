package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/rs/zerolog/log"
	flag "github.com/spf13/pflag"

	"github.com/sybvouch/identity/internal/activity"
	"github.com/sybvouch/identity/internal/api"
	"github.com/sybvouch/identity/internal/assets"
	"github.com/sybvouch/identity/internal/cache"
	"github.com/sybvouch/identity/internal/config"
	"github.com/sybvouch/identity/internal/data"
	"github.com/sybvouch/identity/internal/identity"
	"github.com/sybvouch/identity/internal/logging"
	"github.com/sybvouch/identity/internal/media"
	"github.com/sybvouch/identity/internal/models"
	"github.com/sybvouch/identity/internal/naming"
	"github.com/sybvouch/identity/internal/observability"
	"github.com/sybvouch/identity/internal/profile"
	"github.com/sybvouch/identity/internal/provider"
	"github.com/sybvouch/identity/internal/rpc"
	"github.com/sybvouch/identity/internal/subgraph"
)

var version = "dev"

// memoryStoreBytes bounds the in-memory store used when no Redis URL is configured
const memoryStoreBytes = 64 << 20

func main() {
	var (
		httpAddr    = flag.String("http-addr", "", "HTTP server address (overrides HTTP_ADDR)")
		lookup      = flag.String("address", "", "Print the identity, assets and activity of an address and exit")
		refresh     = flag.Bool("refresh", false, "With --address, bypass the asset cache")
		logLevel    = flag.String("log-level", "", "Log level (overrides LOG_LEVEL)")
		showVersion = flag.Bool("version", false, "Show version and exit")
	)
	flag.Parse()

	if *showVersion {
		fmt.Printf("identity %s\n", version)
		os.Exit(0)
	}

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "invalid configuration: %v\n", err)
		os.Exit(1)
	}
	if *httpAddr != "" {
		cfg.HTTPAddr = *httpAddr
	}
	if *logLevel != "" {
		cfg.LogLevel = *logLevel
	}
	logging.Setup(cfg.LogLevel, cfg.LogFormat)
	api.Version = version

	connector, err := newConnector(cfg)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to create store")
	}
	defer connector.Close()

	metrics := observability.NewMetrics("identity")
	services := buildServices(cfg, connector, metrics)

	if *lookup != "" {
		if err := lookupAddress(services, *lookup, *refresh); err != nil {
			fmt.Fprintln(os.Stderr, err)
			os.Exit(1)
		}
		return
	}

	runServer(cfg.HTTPAddr, services)
}

func newConnector(cfg *config.Config) (data.Connector, error) {
	if cfg.RedisURL == "" {
		log.Warn().Msg("REDIS_URL not set, using in-memory store; profiles will not survive a restart")
		return data.NewMemoryConnector(memoryStoreBytes)
	}
	return data.NewRedisConnector(cfg.RedisURL)
}

// buildServices wires resolvers, caches and stores behind the API interfaces
func buildServices(cfg *config.Config, connector data.Connector, metrics *observability.Metrics) api.Services {
	store := cache.NewStore(connector, cache.DefaultPolicies(cfg.NamingTTL, cfg.AssetsTTL), metrics)
	gateways := media.Gateways{IPFS: cfg.IPFSGateway, Arweave: cfg.ArweaveGateway}

	namingChain := rpc.NewClient(cfg.RPCURL(), cfg.UpstreamTimeout)
	namingChain.SetMetrics(metrics, "ethereum")
	namingCache := naming.NewCached(naming.NewResolver(namingChain, gateways, cfg.UpstreamTimeout), store)

	nftClient := provider.NewAlchemyClient(cfg.AlchemyNFTURL(), cfg.UpstreamTimeout, cfg.ProviderRateLimit)
	nftClient.SetMetrics(metrics)
	fetcher := assets.NewFetcher(nftClient, gateways)
	fetcher.SetPageSize(cfg.AssetsPageSize)

	// Activity stats need the keyed provider; the public fallback is not used for them
	var statsChain activity.ChainReader
	if url := cfg.AlchemyRPCURL(); url != "" {
		client := rpc.NewClient(url, cfg.UpstreamTimeout)
		client.SetMetrics(metrics, "alchemy")
		statsChain = client
	}

	graph := subgraph.NewClient(cfg.SubgraphURL, cfg.UpstreamTimeout)
	graph.SetMetrics(metrics)

	profiles := profile.NewStore(store)

	return api.Services{
		Naming:   namingCache,
		Assets:   assets.NewCached(fetcher, store),
		Tokens:   fetcher,
		Activity: activity.NewFetcher(statsChain),
		Profiles: profiles,
		Identity: identity.NewComposer(namingCache, profiles),
		Graph:    graph,
		Store:    store,
		Metrics:  metrics,
	}
}

func runServer(addr string, services api.Services) {
	signalChan := make(chan os.Signal, 1)
	signal.Notify(signalChan, syscall.SIGINT, syscall.SIGTERM)

	server := api.NewServer(addr, services)
	errChan := make(chan error, 1)

	go func() {
		if err := server.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errChan <- err
		}
	}()

	select {
	case sig := <-signalChan:
		log.Info().Str("signal", sig.String()).Msg("received signal")
	case err := <-errChan:
		log.Error().Err(err).Msg("server error")
	}

	log.Info().Msg("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := server.Stop(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("error shutting down HTTP server")
	}
	log.Info().Msg("shutdown completed")
}

// lookupAddress prints the composed identity of address with its assets and activity
func lookupAddress(services api.Services, address string, refresh bool) error {
	if !models.IsValidAddress(address) {
		return errors.New(models.ErrInvalidAddress)
	}
	address = models.NormalizeAddress(address)

	ctx, cancel := context.WithTimeout(context.Background(), 60*time.Second)
	defer cancel()

	id := services.Identity.Compose(ctx, address)
	fmt.Printf("%s\n", id.DisplayName)
	fmt.Printf("  address:  %s\n", id.ChecksumAddress)
	fmt.Printf("  avatar:   %s (%s)\n", valueOr(id.Avatar, "-"), id.AvatarSource)
	socials := []struct {
		label string
		value *string
	}{
		{"twitter", id.Socials.Twitter},
		{"github", id.Socials.GitHub},
		{"website", id.Socials.Website},
	}
	for _, social := range socials {
		if social.value != nil {
			fmt.Printf("  %-9s %s\n", social.label+":", *social.value)
		}
	}

	inventory, cached, err := services.Assets.Lookup(ctx, address, refresh)
	switch {
	case errors.Is(err, provider.ErrProviderNotConfigured):
		fmt.Println("  assets:   not configured (set ALCHEMY_API_KEY)")
	case err != nil:
		fmt.Printf("  assets:   error: %v\n", err)
	default:
		source := "fetched"
		if cached {
			source = "cached"
		}
		fmt.Printf("  assets:   %s with images of %s owned (%s %s)\n",
			humanize.Comma(int64(len(inventory.Assets))),
			humanize.Comma(int64(inventory.TotalCount)),
			source,
			humanize.Time(time.UnixMilli(inventory.FetchedAt)))

		if selected := services.Profiles.Get(ctx, address); selected != nil && selected.SelectedAssetID != nil {
			if asset := findAsset(inventory, *selected.SelectedAssetID); asset != nil {
				fmt.Printf("  selected: %s (%s)\n", valueOr(asset.Name, asset.ID()), asset.ID())
			} else {
				fmt.Printf("  selected: %s (not in fetched assets)\n", *selected.SelectedAssetID)
			}
		}
	}

	stats, err := services.Activity.Fetch(ctx, address)
	switch {
	case errors.Is(err, provider.ErrProviderNotConfigured):
		fmt.Println("  activity: not configured (set ALCHEMY_API_KEY)")
	case err != nil:
		fmt.Printf("  activity: error: %v\n", err)
	default:
		fmt.Printf("  activity: %s transactions, balance %s ETH\n",
			humanize.Comma(int64(stats.TransactionCount)), stats.Balance)
	}
	return nil
}

// findAsset returns the asset with the given contract:tokenId id, or nil
func findAsset(inventory *models.AssetInventory, id string) *models.Asset {
	for i := range inventory.Assets {
		if strings.EqualFold(inventory.Assets[i].ID(), id) {
			return &inventory.Assets[i]
		}
	}
	return nil
}

func valueOr(s *string, fallback string) string {
	if s == nil {
		return fallback
	}
	return *s
}
