// Package media rewrites avatar and token image references into fetchable URLs.
package media

import (
	"strings"
)

// Scheme prefixes recognized in metadata
const (
	schemeHTTP    = "http://"
	schemeHTTPS   = "https://"
	schemeIPFS    = "ipfs://"
	schemeArweave = "ar://"
	schemeData    = "data:"
)

// Gateways maps content-addressed references to HTTP gateways
type Gateways struct {
	IPFS    string // e.g. https://ipfs.io/ipfs/
	Arweave string // e.g. https://arweave.net/
}

// DefaultGateways are the public gateways used when none are configured
var DefaultGateways = Gateways{
	IPFS:    "https://ipfs.io/ipfs/",
	Arweave: "https://arweave.net/",
}

// IsHTTP reports whether ref is already an HTTP(S) URL
func IsHTTP(ref string) bool {
	return strings.HasPrefix(ref, schemeHTTP) || strings.HasPrefix(ref, schemeHTTPS)
}

// IsDataURI reports whether ref is an inline data: URI
func IsDataURI(ref string) bool {
	return strings.HasPrefix(ref, schemeData)
}

// IsArweave reports whether ref is an ar:// reference
func IsArweave(ref string) bool {
	return strings.HasPrefix(ref, schemeArweave)
}

// IPFSToGateway rewrites ipfs://X (and the ipfs://ipfs/X variant) to a gateway URL.
// The second return is false when ref is not an IPFS reference.
func (g Gateways) IPFSToGateway(ref string) (string, bool) {
	if !strings.HasPrefix(ref, schemeIPFS) {
		return "", false
	}
	path := strings.TrimPrefix(ref, schemeIPFS)
	path = strings.TrimPrefix(path, "ipfs/")
	return g.IPFS + path, true
}

// Resolve normalizes an image reference:
// HTTP passes through, ipfs:// and ar:// are rewritten to gateways, data: URIs pass
// through, and anything else is returned unchanged.
func (g Gateways) Resolve(ref string) string {
	switch {
	case ref == "":
		return ""
	case IsHTTP(ref):
		return ref
	case strings.HasPrefix(ref, schemeIPFS):
		url, _ := g.IPFSToGateway(ref)
		return url
	case IsDataURI(ref):
		return ref
	case IsArweave(ref):
		return g.Arweave + strings.TrimPrefix(ref, schemeArweave)
	default:
		return ref
	}
}

// ResolvePtr is Resolve for nullable references
func (g Gateways) ResolvePtr(ref *string) *string {
	if ref == nil || *ref == "" {
		return nil
	}
	resolved := g.Resolve(*ref)
	return &resolved
}
