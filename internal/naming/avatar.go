package naming

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"math/big"
	"net/http"
	"net/url"
	"strings"

	"github.com/ethereum/go-ethereum/common"

	"github.com/sybvouch/identity/internal/media"
)

// maxMetadataBytes caps token metadata documents
const maxMetadataBytes = 1 << 20

// mainnetChainID is the only chain the RPC client can read
const mainnetChainID = "1"

// NFTReference is a parsed eip155:{chain}/{standard}:{contract}/{tokenId} avatar value
type NFTReference struct {
	ChainID  string
	Standard string // erc721 or erc1155
	Contract string
	TokenID  *big.Int
}

// ParseNFTReference parses an NFT avatar reference
func ParseNFTReference(value string) (*NFTReference, error) {
	rest, ok := strings.CutPrefix(strings.ToLower(value), "eip155:")
	if !ok {
		return nil, fmt.Errorf("not an eip155 reference: %q", value)
	}

	parts := strings.Split(rest, "/")
	if len(parts) != 3 {
		return nil, fmt.Errorf("malformed NFT reference: %q", value)
	}

	standard, contract, ok := strings.Cut(parts[1], ":")
	if !ok || (standard != "erc721" && standard != "erc1155") {
		return nil, fmt.Errorf("unsupported token standard in %q", value)
	}
	if !common.IsHexAddress(contract) {
		return nil, fmt.Errorf("invalid contract in %q", value)
	}

	tokenID, ok := new(big.Int).SetString(parts[2], 10)
	if !ok || tokenID.Sign() < 0 {
		return nil, fmt.Errorf("invalid token id in %q", value)
	}

	return &NFTReference{
		ChainID:  parts[0],
		Standard: standard,
		Contract: contract,
		TokenID:  tokenID,
	}, nil
}

// ResolveAvatar turns a raw avatar text record into a displayable URL.
// HTTP URLs pass through, IPFS and Arweave references go to their gateways, and NFT
// references are resolved through the token's metadata. Anything that cannot be resolved is
// returned unchanged.
func (r *Resolver) ResolveAvatar(ctx context.Context, raw string) string {
	if media.IsHTTP(raw) {
		return raw
	}
	if gateway, ok := r.gateways.IPFSToGateway(raw); ok {
		return gateway
	}
	if media.IsArweave(raw) {
		return r.gateways.Resolve(raw)
	}

	image, err := r.resolveNFTAvatar(ctx, raw)
	if err != nil {
		r.logger.Debug().Err(err).Str("avatar", raw).Msg("avatar resolution failed, keeping raw value")
		return raw
	}
	return image
}

func (r *Resolver) resolveNFTAvatar(ctx context.Context, raw string) (string, error) {
	ref, err := ParseNFTReference(raw)
	if err != nil {
		return "", err
	}
	if ref.ChainID != mainnetChainID {
		return "", fmt.Errorf("chain %s is not supported", ref.ChainID)
	}

	var uri string
	switch ref.Standard {
	case "erc1155":
		uri, err = r.chain.ERC1155URI(ctx, ref.Contract, ref.TokenID)
		uri = strings.ReplaceAll(uri, "{id}", fmt.Sprintf("%064x", ref.TokenID))
	default:
		uri, err = r.chain.TokenURI(ctx, ref.Contract, ref.TokenID)
	}
	if err != nil {
		return "", fmt.Errorf("failed to read token uri: %w", err)
	}
	if uri == "" {
		return "", fmt.Errorf("token %s/%s has no metadata uri", ref.Contract, ref.TokenID)
	}

	metadata, err := r.fetchMetadata(ctx, uri)
	if err != nil {
		return "", err
	}

	image := metadata.Image
	if image == "" {
		image = metadata.ImageURL
	}
	if image == "" {
		return "", fmt.Errorf("metadata at %s has no image", uri)
	}
	return r.gateways.Resolve(image), nil
}

// tokenMetadata is the part of ERC721/ERC1155 metadata used for avatars
type tokenMetadata struct {
	Name     string `json:"name"`
	Image    string `json:"image"`
	ImageURL string `json:"image_url"`
}

// fetchMetadata loads metadata from an HTTP, IPFS, Arweave or inline JSON data URI
func (r *Resolver) fetchMetadata(ctx context.Context, uri string) (*tokenMetadata, error) {
	var body []byte
	var err error

	if media.IsDataURI(uri) {
		body, err = decodeDataURI(uri)
	} else {
		body, err = r.fetch(ctx, r.gateways.Resolve(uri))
	}
	if err != nil {
		return nil, err
	}

	var metadata tokenMetadata
	if err := json.Unmarshal(body, &metadata); err != nil {
		return nil, fmt.Errorf("failed to parse token metadata: %w", err)
	}
	return &metadata, nil
}

func (r *Resolver) fetch(ctx context.Context, target string) ([]byte, error) {
	if !media.IsHTTP(target) {
		return nil, fmt.Errorf("unsupported metadata uri %q", target)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := r.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch metadata: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("metadata fetch returned status %d", resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxMetadataBytes))
	if err != nil {
		return nil, fmt.Errorf("failed to read metadata: %w", err)
	}
	return body, nil
}

// decodeDataURI decodes data:application/json[;base64],... payloads
func decodeDataURI(uri string) ([]byte, error) {
	header, payload, ok := strings.Cut(strings.TrimPrefix(uri, "data:"), ",")
	if !ok {
		return nil, fmt.Errorf("malformed data uri")
	}

	params := strings.Split(header, ";")
	if params[0] != "application/json" {
		return nil, fmt.Errorf("unsupported data uri type %q", params[0])
	}

	for _, param := range params[1:] {
		if param == "base64" {
			return base64.StdEncoding.DecodeString(payload)
		}
	}

	decoded, err := url.PathUnescape(payload)
	if err != nil {
		return nil, fmt.Errorf("failed to unescape data uri: %w", err)
	}
	return []byte(decoded), nil
}
