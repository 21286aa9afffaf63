package assets

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sybvouch/identity/internal/media"
	"github.com/sybvouch/identity/internal/models"
	"github.com/sybvouch/identity/internal/provider"
)

const owner = "0x5c0a3834648c766dfa1c06b62520f222a4cd89a0"

type fakeSource struct {
	page     *provider.OwnedNFTsPage
	nft      *provider.NFT
	err      error
	pageSize int
}

func (f *fakeSource) GetNFTsForOwner(ctx context.Context, owner string, pageSize int, pageKey string) (*provider.OwnedNFTsPage, error) {
	f.pageSize = pageSize
	return f.page, f.err
}

func (f *fakeSource) GetNFTMetadata(ctx context.Context, contract, tokenID string) (*provider.NFT, error) {
	return f.nft, f.err
}

func nftWith(tokenID string, edit func(*provider.NFT)) provider.NFT {
	nft := provider.NFT{
		Contract:  provider.NFTContract{Address: "0xbc4ca0eda7647a8ab7c2061c2e118a18a936f13d"},
		TokenID:   tokenID,
		TokenType: "ERC721",
	}
	edit(&nft)
	return nft
}

func newFetcher(source Source) *Fetcher {
	f := NewFetcher(source, media.DefaultGateways)
	f.SetClock(func() time.Time { return time.UnixMilli(1700000000000) })
	return f
}

func TestFetch_FiltersAndNormalizes(t *testing.T) {
	source := &fakeSource{page: &provider.OwnedNFTsPage{
		TotalCount: 9,
		OwnedNFTs: []provider.NFT{
			nftWith("1", func(n *provider.NFT) {
				n.Name = "Ape #1"
				n.Image.CachedURL = "https://cdn.example/1.png"
				n.Image.ThumbnailURL = "ipfs://QmThumb1"
				n.Contract.Name = "Apes"
			}),
			nftWith("2", func(n *provider.NFT) {
				// no image at all
				n.Name = "Invisible"
			}),
			nftWith("3", func(n *provider.NFT) {
				n.Raw.Metadata = map[string]interface{}{
					"image":       "ar://arTx3",
					"name":        "From metadata",
					"description": "raw description",
				}
				n.Contract.OpenSeaMetadata.CollectionName = "OpenSea Apes"
				n.TokenType = "ERC1155"
			}),
			nftWith("4", func(n *provider.NFT) {
				n.Image.OriginalURL = "ipfs://ipfs/QmOrig4"
				n.TokenType = "NO_SUPPORTED_NFT_STANDARD"
			}),
		},
	}}

	inventory, err := newFetcher(source).Fetch(context.Background(), owner)
	require.NoError(t, err)

	assert.Equal(t, provider.DefaultPageSize, source.pageSize)
	assert.Equal(t, 9, inventory.TotalCount)
	assert.Equal(t, int64(1700000000000), inventory.FetchedAt)
	require.Len(t, inventory.Assets, 3)

	first := inventory.Assets[0]
	assert.Equal(t, "0xbc4ca0eda7647a8ab7c2061c2e118a18a936f13d:1", first.ID())
	assert.Equal(t, "Ape #1", models.Deref(first.Name))
	assert.Equal(t, "https://cdn.example/1.png", models.Deref(first.Image))
	assert.Equal(t, "https://ipfs.io/ipfs/QmThumb1", models.Deref(first.ThumbnailURL))
	assert.Equal(t, "Apes", models.Deref(first.CollectionName))
	assert.Nil(t, first.Description)
	assert.Equal(t, models.TokenTypeERC721, first.TokenType)

	third := inventory.Assets[1]
	assert.Equal(t, "From metadata", models.Deref(third.Name))
	assert.Equal(t, "raw description", models.Deref(third.Description))
	assert.Equal(t, "https://arweave.net/arTx3", models.Deref(third.Image))
	assert.Equal(t, models.Deref(third.Image), models.Deref(third.ThumbnailURL))
	assert.Equal(t, "OpenSea Apes", models.Deref(third.CollectionName))
	assert.Equal(t, models.TokenTypeERC1155, third.TokenType)

	fourth := inventory.Assets[2]
	assert.Equal(t, "#4", models.Deref(fourth.Name))
	assert.Equal(t, "https://ipfs.io/ipfs/QmOrig4", models.Deref(fourth.Image))
	assert.Nil(t, fourth.CollectionName)
	assert.Equal(t, models.TokenTypeERC721, fourth.TokenType)
}

func TestFetch_EmptyInventory(t *testing.T) {
	source := &fakeSource{page: &provider.OwnedNFTsPage{}}

	inventory, err := newFetcher(source).Fetch(context.Background(), owner)
	require.NoError(t, err)

	assert.NotNil(t, inventory.Assets)
	assert.Empty(t, inventory.Assets)
	raw, err := json.Marshal(inventory)
	require.NoError(t, err)
	assert.Equal(t, `{"assets":[],"totalCount":0,"fetchedAt":1700000000000}`, string(raw))
}

func TestFetch_PropagatesErrors(t *testing.T) {
	for _, upstream := range []error{provider.ErrProviderNotConfigured, errors.New("status 500")} {
		source := &fakeSource{err: upstream}

		inventory, err := newFetcher(source).Fetch(context.Background(), owner)
		assert.Nil(t, inventory)
		assert.ErrorIs(t, err, upstream)
	}
}

func TestFetchOne(t *testing.T) {
	source := &fakeSource{nft: &provider.NFT{
		Contract: provider.NFTContract{Address: "0xabc", Name: "Items"},
		TokenID:  "7",
	}}

	asset, err := newFetcher(source).FetchOne(context.Background(), "0xabc", "7")
	require.NoError(t, err)
	assert.Equal(t, "#7", models.Deref(asset.Name))
	assert.Nil(t, asset.Image)
	assert.Equal(t, "Items", models.Deref(asset.CollectionName))
}

func TestPolicy(t *testing.T) {
	assert.Equal(t, models.FailurePropagate, newFetcher(&fakeSource{}).Policy())
}

func TestFetch_PageSize(t *testing.T) {
	source := &fakeSource{page: &provider.OwnedNFTsPage{}}
	fetcher := newFetcher(source)

	_, err := fetcher.Fetch(context.Background(), owner)
	require.NoError(t, err)
	assert.Equal(t, provider.DefaultPageSize, source.pageSize)

	fetcher.SetPageSize(20)
	_, err = fetcher.Fetch(context.Background(), owner)
	require.NoError(t, err)
	assert.Equal(t, 20, source.pageSize)
}
