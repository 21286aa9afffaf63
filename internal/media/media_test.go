package media

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestGateways_Resolve(t *testing.T) {
	g := DefaultGateways

	cases := []struct {
		name string
		in   string
		want string
	}{
		{"https passthrough", "https://example.com/a.png", "https://example.com/a.png"},
		{"http passthrough", "http://example.com/a.png", "http://example.com/a.png"},
		{"ipfs", "ipfs://QmHash/1.png", "https://ipfs.io/ipfs/QmHash/1.png"},
		{"ipfs with ipfs path", "ipfs://ipfs/QmHash", "https://ipfs.io/ipfs/QmHash"},
		{"arweave", "ar://TxId", "https://arweave.net/TxId"},
		{"data uri", "data:image/svg+xml;base64,PHN2Zz4=", "data:image/svg+xml;base64,PHN2Zz4="},
		{"unknown scheme", "eip155:1/erc721:0xabc/1", "eip155:1/erc721:0xabc/1"},
		{"empty", "", ""},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, g.Resolve(tc.in))
		})
	}
}

func TestGateways_CustomGateway(t *testing.T) {
	g := Gateways{IPFS: "https://cloudflare-ipfs.com/ipfs/", Arweave: "https://ar.example/"}

	assert.Equal(t, "https://cloudflare-ipfs.com/ipfs/X", g.Resolve("ipfs://X"))
	assert.Equal(t, "https://ar.example/Y", g.Resolve("ar://Y"))
}

func TestGateways_ResolvePtr(t *testing.T) {
	g := DefaultGateways
	assert.Nil(t, g.ResolvePtr(nil))

	empty := ""
	assert.Nil(t, g.ResolvePtr(&empty))

	ref := "ipfs://X"
	got := g.ResolvePtr(&ref)
	if assert.NotNil(t, got) {
		assert.Contains(t, *got, "X")
	}
}

func TestIPFSToGateway_NotIPFS(t *testing.T) {
	_, ok := DefaultGateways.IPFSToGateway("https://x")
	assert.False(t, ok)
}

func TestIsArweave(t *testing.T) {
	assert.True(t, IsArweave("ar://abc123"))
	assert.False(t, IsArweave("ipfs://abc123"))
	assert.False(t, IsArweave("https://arweave.net/abc123"))
	assert.Equal(t, "https://arweave.net/abc123", DefaultGateways.Resolve("ar://abc123"))
}
