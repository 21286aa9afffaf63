package provider

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const ownerAddr = "0x5c0a3834648c766dfa1c06b62520f222a4cd89a0"

const ownedNFTsResponse = `{
	"ownedNfts": [
		{
			"contract": {"address": "0xbc4ca0eda7647a8ab7c2061c2e118a18a936f13d", "name": "BoredApeYachtClub", "openSeaMetadata": {"collectionName": "Bored Ape Yacht Club"}},
			"tokenId": "8112",
			"tokenType": "ERC721",
			"name": "",
			"image": {"cachedUrl": "https://nft-cdn.alchemy.com/eth-mainnet/abc", "thumbnailUrl": "https://nft-cdn.alchemy.com/eth-mainnet/abc/thumb"},
			"raw": {"tokenUri": "ipfs://QmMeta/8112", "metadata": {"image": "ipfs://QmImg", "name": "Ape 8112", "attributes": [{"trait_type": "Fur"}]}}
		}
	],
	"totalCount": 17,
	"pageKey": "next-page"
}`

func TestGetNFTsForOwner(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/nft/v3/key/getNFTsForOwner", r.URL.Path)
		assert.Equal(t, ownerAddr, r.URL.Query().Get("owner"))
		assert.Equal(t, "50", r.URL.Query().Get("pageSize"))
		assert.Equal(t, "true", r.URL.Query().Get("withMetadata"))
		assert.Empty(t, r.URL.Query().Get("pageKey"))
		_, _ = w.Write([]byte(ownedNFTsResponse))
	}))
	defer server.Close()

	client := NewAlchemyClient(server.URL+"/nft/v3/key", 5*time.Second, 0)
	page, err := client.GetNFTsForOwner(context.Background(), ownerAddr, 0, "")
	require.NoError(t, err)

	require.Len(t, page.OwnedNFTs, 1)
	assert.Equal(t, 17, page.TotalCount)
	assert.Equal(t, "next-page", page.PageKey)

	nft := page.OwnedNFTs[0]
	assert.Equal(t, "8112", nft.TokenID)
	assert.Equal(t, "Bored Ape Yacht Club", nft.Contract.OpenSeaMetadata.CollectionName)
	assert.Equal(t, "ipfs://QmImg", nft.Raw.MetadataString("image"))
	assert.Equal(t, "Ape 8112", nft.Raw.MetadataString("name"))
	assert.Empty(t, nft.Raw.MetadataString("attributes"))
}

func TestGetNFTMetadata(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/getNFTMetadata", r.URL.Path)
		assert.Equal(t, "42", r.URL.Query().Get("tokenId"))
		_, _ = w.Write([]byte(`{"contract":{"address":"0xabc"},"tokenId":"42","tokenType":"ERC1155","name":"Item"}`))
	}))
	defer server.Close()

	client := NewAlchemyClient(server.URL, 5*time.Second, 10)
	nft, err := client.GetNFTMetadata(context.Background(), "0xabc", "42")
	require.NoError(t, err)
	assert.Equal(t, "ERC1155", nft.TokenType)
	assert.Equal(t, "Item", nft.Name)
}

func TestNotConfigured(t *testing.T) {
	client := NewAlchemyClient("", time.Second, 0)

	assert.False(t, client.IsAvailable())
	_, err := client.GetNFTsForOwner(context.Background(), ownerAddr, 10, "")
	assert.ErrorIs(t, err, ErrProviderNotConfigured)
	_, err = client.GetNFTMetadata(context.Background(), "0xabc", "1")
	assert.ErrorIs(t, err, ErrProviderNotConfigured)
}

func TestUpstreamError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"error":"invalid owner"}`, http.StatusBadRequest)
	}))
	defer server.Close()

	client := NewAlchemyClient(server.URL, time.Second, 0)
	_, err := client.GetNFTsForOwner(context.Background(), ownerAddr, 10, "")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "status 400")
	assert.NotErrorIs(t, err, ErrProviderNotConfigured)
}

func TestRateLimiterHonorsContext(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"ownedNfts":[],"totalCount":0}`))
	}))
	defer server.Close()

	client := NewAlchemyClient(server.URL, time.Second, 0.01)
	_, err := client.GetNFTsForOwner(context.Background(), ownerAddr, 10, "")
	require.NoError(t, err)

	// The single token is spent; the next call would wait ~100s.
	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	_, err = client.GetNFTsForOwner(ctx, ownerAddr, 10, "")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "rate limiter")
}
