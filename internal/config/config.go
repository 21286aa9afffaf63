package config

import (
	"errors"
	"fmt"
	"io/fs"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config holds all runtime settings for the identity service
type Config struct {
	HTTPAddr string `mapstructure:"http_addr"`

	RedisURL string `mapstructure:"redis_url"` // empty selects the in-memory store

	AlchemyAPIKey  string `mapstructure:"alchemy_api_key"`
	AlchemyNetwork string `mapstructure:"alchemy_network"`
	EthereumRPCURL string `mapstructure:"ethereum_rpc_url"`

	IPFSGateway    string `mapstructure:"ipfs_gateway"`
	ArweaveGateway string `mapstructure:"arweave_gateway"`

	SubgraphURL string `mapstructure:"subgraph_url"`

	UpstreamTimeout   time.Duration `mapstructure:"upstream_timeout"`
	ProviderRateLimit float64       `mapstructure:"provider_rate_limit"` // requests per second
	AssetsPageSize    int           `mapstructure:"assets_page_size"`    // tokens per inventory fetch

	NamingTTL time.Duration `mapstructure:"naming_ttl"`
	AssetsTTL time.Duration `mapstructure:"assets_ttl"`

	LogLevel  string `mapstructure:"log_level"`
	LogFormat string `mapstructure:"log_format"`
}

const publicRPCFallback = "https://eth.llamarpc.com"

// maxAssetsPageSize is the provider's per-request ceiling
const maxAssetsPageSize = 100

var defaults = map[string]interface{}{
	"http_addr":           ":8080",
	"redis_url":           "",
	"alchemy_api_key":     "",
	"alchemy_network":     "eth-mainnet",
	"ethereum_rpc_url":    "",
	"ipfs_gateway":        "https://ipfs.io/ipfs/",
	"arweave_gateway":     "https://arweave.net/",
	"subgraph_url":        "http://localhost:8000/subgraphs/name/sybvouch-network",
	"upstream_timeout":    "5s",
	"provider_rate_limit": 25.0,
	"assets_page_size":    50,
	"naming_ttl":          "1h",
	"assets_ttl":          "10m",
	"log_level":           "info",
	"log_format":          "json",
}

// Load reads .env (if present) and the process environment into a Config.
// A missing .env is fine; one that exists but cannot be parsed is an error.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("failed to load .env: %w", err)
	}

	return FromViper(viper.New())
}

// FromViper binds environment variables on v and unmarshals the result
func FromViper(v *viper.Viper) (*Config, error) {
	for key, value := range defaults {
		v.SetDefault(key, value)
		if err := v.BindEnv(key, strings.ToUpper(key)); err != nil {
			return nil, fmt.Errorf("failed to bind %s: %w", key, err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate rejects settings that would make every request fail
func (c *Config) Validate() error {
	if c.UpstreamTimeout <= 0 {
		return fmt.Errorf("upstream_timeout must be positive, got %s", c.UpstreamTimeout)
	}
	if c.NamingTTL <= 0 || c.AssetsTTL <= 0 {
		return fmt.Errorf("cache TTLs must be positive")
	}
	if c.ProviderRateLimit <= 0 {
		return fmt.Errorf("provider_rate_limit must be positive, got %v", c.ProviderRateLimit)
	}
	if c.AssetsPageSize < 1 || c.AssetsPageSize > maxAssetsPageSize {
		return fmt.Errorf("assets_page_size must be between 1 and %d, got %d", maxAssetsPageSize, c.AssetsPageSize)
	}
	if !strings.HasSuffix(c.IPFSGateway, "/") {
		c.IPFSGateway += "/"
	}
	if !strings.HasSuffix(c.ArweaveGateway, "/") {
		c.ArweaveGateway += "/"
	}
	return nil
}

// RPCURL picks the Ethereum JSON-RPC endpoint used for name resolution.
// An explicit URL wins, then the Alchemy endpoint, then a public fallback.
func (c *Config) RPCURL() string {
	if c.EthereumRPCURL != "" {
		return c.EthereumRPCURL
	}
	if c.AlchemyAPIKey != "" {
		return c.AlchemyRPCURL()
	}
	return publicRPCFallback
}

// AlchemyRPCURL is the Alchemy JSON-RPC endpoint, or "" when no key is configured
func (c *Config) AlchemyRPCURL() string {
	if c.AlchemyAPIKey == "" {
		return ""
	}
	return fmt.Sprintf("https://%s.g.alchemy.com/v2/%s", c.AlchemyNetwork, c.AlchemyAPIKey)
}

// AlchemyNFTURL is the base of the Alchemy NFT REST API, or "" when no key is configured
func (c *Config) AlchemyNFTURL() string {
	if c.AlchemyAPIKey == "" {
		return ""
	}
	return fmt.Sprintf("https://%s.g.alchemy.com/nft/v3/%s", c.AlchemyNetwork, c.AlchemyAPIKey)
}
