// Package provider talks to the third-party blockchain data provider (Alchemy).
package provider

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"golang.org/x/time/rate"

	"github.com/sybvouch/identity/internal/observability"
)

// ErrProviderNotConfigured is returned when ALCHEMY_API_KEY is missing
var ErrProviderNotConfigured = errors.New("ALCHEMY_API_KEY environment variable is required")

// DefaultPageSize matches the page size the UI grid is built around
const DefaultPageSize = 50

// AlchemyClient is a client for the Alchemy NFT API (v3)
type AlchemyClient struct {
	baseURL    string
	httpClient *http.Client
	limiter    *rate.Limiter
	metrics    *observability.Metrics
}

// NFTContract describes the collection an NFT belongs to
type NFTContract struct {
	Address         string `json:"address"`
	Name            string `json:"name"`
	Symbol          string `json:"symbol"`
	TokenType       string `json:"tokenType"`
	OpenSeaMetadata struct {
		CollectionName string `json:"collectionName"`
	} `json:"openSeaMetadata"`
}

// NFTImage holds the provider's media URLs
type NFTImage struct {
	CachedURL    string `json:"cachedUrl"`
	ThumbnailURL string `json:"thumbnailUrl"`
	OriginalURL  string `json:"originalUrl"`
}

// NFTRaw is the unprocessed token metadata
type NFTRaw struct {
	TokenURI string                 `json:"tokenUri"`
	Metadata map[string]interface{} `json:"metadata"`
	Error    string                 `json:"error"`
}

// MetadataString returns a string field of the raw metadata, or ""
func (r NFTRaw) MetadataString(key string) string {
	value, _ := r.Metadata[key].(string)
	return value
}

// NFT is one token as returned by the provider
type NFT struct {
	Contract    NFTContract `json:"contract"`
	TokenID     string      `json:"tokenId"`
	TokenType   string      `json:"tokenType"`
	Name        string      `json:"name"`
	Description string      `json:"description"`
	Image       NFTImage    `json:"image"`
	Raw         NFTRaw      `json:"raw"`
}

// OwnedNFTsPage is one page of getNFTsForOwner
type OwnedNFTsPage struct {
	OwnedNFTs  []NFT  `json:"ownedNfts"`
	TotalCount int    `json:"totalCount"`
	PageKey    string `json:"pageKey"`
}

// NewAlchemyClient creates a client for the NFT API at baseURL
// (https://{network}.g.alchemy.com/nft/v3/{key}). An empty baseURL leaves the client
// unconfigured and every call returns ErrProviderNotConfigured.
// requestsPerSecond <= 0 disables throttling.
func NewAlchemyClient(baseURL string, timeout time.Duration, requestsPerSecond float64) *AlchemyClient {
	limiter := rate.NewLimiter(rate.Inf, 1)
	if requestsPerSecond > 0 {
		burst := int(requestsPerSecond)
		if burst < 1 {
			burst = 1
		}
		limiter = rate.NewLimiter(rate.Limit(requestsPerSecond), burst)
	}

	return &AlchemyClient{
		baseURL: baseURL,
		httpClient: &http.Client{
			Timeout: timeout,
		},
		limiter: limiter,
	}
}

// SetMetrics enables upstream latency metrics
func (c *AlchemyClient) SetMetrics(metrics *observability.Metrics) {
	c.metrics = metrics
}

// IsAvailable returns whether the API key is configured
func (c *AlchemyClient) IsAvailable() bool {
	return c.baseURL != ""
}

// GetNFTsForOwner returns one page of NFTs held by owner. pageKey is empty for the first page.
func (c *AlchemyClient) GetNFTsForOwner(ctx context.Context, owner string, pageSize int, pageKey string) (*OwnedNFTsPage, error) {
	if pageSize <= 0 {
		pageSize = DefaultPageSize
	}

	query := url.Values{}
	query.Set("owner", owner)
	query.Set("withMetadata", "true")
	query.Set("pageSize", strconv.Itoa(pageSize))
	if pageKey != "" {
		query.Set("pageKey", pageKey)
	}

	var page OwnedNFTsPage
	if err := c.get(ctx, "getNFTsForOwner", query, &page); err != nil {
		return nil, err
	}
	return &page, nil
}

// GetNFTMetadata returns a single token
func (c *AlchemyClient) GetNFTMetadata(ctx context.Context, contract, tokenID string) (*NFT, error) {
	query := url.Values{}
	query.Set("contractAddress", contract)
	query.Set("tokenId", tokenID)

	var nft NFT
	if err := c.get(ctx, "getNFTMetadata", query, &nft); err != nil {
		return nil, err
	}
	return &nft, nil
}

// get performs a throttled GET of endpoint and decodes the JSON body into dest
func (c *AlchemyClient) get(ctx context.Context, endpoint string, query url.Values, dest interface{}) (err error) {
	if !c.IsAvailable() {
		return ErrProviderNotConfigured
	}

	start := time.Now()
	defer func() { c.metrics.ObserveUpstream("alchemy", endpoint, start, err) }()

	if err := c.limiter.Wait(ctx); err != nil {
		return fmt.Errorf("rate limiter: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/"+endpoint+"?"+query.Encode(), nil)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("failed to make request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("%s failed with status %d: %s", endpoint, resp.StatusCode, string(body))
	}

	if err := json.NewDecoder(resp.Body).Decode(dest); err != nil {
		return fmt.Errorf("failed to parse %s response: %w", endpoint, err)
	}
	return nil
}
