package rpc

import (
	"context"
	"fmt"
	"strings"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"golang.org/x/crypto/sha3"
)

// RegistryAddress is the ENS registry on Ethereum mainnet
const RegistryAddress = "0x00000000000C2E074eC69A0dFb2997BA6C7d2e1e"

const ensABIJSON = `[
	{"type":"function","name":"resolver","stateMutability":"view","inputs":[{"name":"node","type":"bytes32"}],"outputs":[{"name":"","type":"address"}]},
	{"type":"function","name":"name","stateMutability":"view","inputs":[{"name":"node","type":"bytes32"}],"outputs":[{"name":"","type":"string"}]},
	{"type":"function","name":"addr","stateMutability":"view","inputs":[{"name":"node","type":"bytes32"}],"outputs":[{"name":"","type":"address"}]},
	{"type":"function","name":"text","stateMutability":"view","inputs":[{"name":"node","type":"bytes32"},{"name":"key","type":"string"}],"outputs":[{"name":"","type":"string"}]}
]`

// ENSContractABI covers the registry and public resolver methods used here
var ENSContractABI = mustParseABI(ensABIJSON)

func mustParseABI(definition string) abi.ABI {
	parsed, err := abi.JSON(strings.NewReader(definition))
	if err != nil {
		panic(fmt.Sprintf("invalid ABI: %v", err))
	}
	return parsed
}

// Namehash implements the ENS namehash algorithm
func Namehash(name string) [32]byte {
	var node [32]byte
	if name == "" {
		return node
	}

	// Split the name into labels (e.g., "vitalik.eth" -> ["vitalik", "eth"])
	labels := strings.Split(name, ".")

	// Process labels in reverse order (from right to left)
	for i := len(labels) - 1; i >= 0; i-- {
		labelHash := sha3.NewLegacyKeccak256()
		labelHash.Write([]byte(labels[i]))
		labelHashBytes := labelHash.Sum(nil)

		nodeHash := sha3.NewLegacyKeccak256()
		nodeHash.Write(node[:])
		nodeHash.Write(labelHashBytes)
		copy(node[:], nodeHash.Sum(nil))
	}

	return node
}

// ReverseNode returns the namehash of <addr>.addr.reverse
func ReverseNode(address string) [32]byte {
	addr := strings.ToLower(strings.TrimPrefix(address, "0x"))
	return Namehash(addr + ".addr.reverse")
}

// NormalizeName lowercases and trims a name before hashing. Full ENSIP-15
// normalization (Unicode mapping, emoji and confusable checks) is not applied, so
// names outside lowercase ASCII may hash differently than in ENS-aware clients.
func NormalizeName(name string) string {
	return strings.ToLower(strings.TrimSpace(name))
}

// callENS packs method(args), calls to, and unpacks the single return value.
// It returns nil when the contract returned no data.
func (c *Client) callENS(ctx context.Context, to common.Address, method string, args ...interface{}) (interface{}, error) {
	data, err := ENSContractABI.Pack(method, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to pack %s: %w", method, err)
	}

	out, err := c.ethCall(ctx, to.Hex(), data)
	if err != nil {
		return nil, err
	}
	if len(out) == 0 {
		return nil, nil
	}

	values, err := ENSContractABI.Unpack(method, out)
	if err != nil {
		return nil, fmt.Errorf("failed to unpack %s: %w", method, err)
	}
	if len(values) == 0 {
		return nil, nil
	}
	return values[0], nil
}

// Resolver returns the resolver contract for node, or the zero address when unset
func (c *Client) Resolver(ctx context.Context, node [32]byte) (common.Address, error) {
	value, err := c.callENS(ctx, common.HexToAddress(RegistryAddress), "resolver", node)
	if err != nil {
		return common.Address{}, err
	}
	addr, _ := value.(common.Address)
	return addr, nil
}

// ResolveAddress performs a forward lookup: name -> address. Zero address means unset.
func (c *Client) ResolveAddress(ctx context.Context, name string) (common.Address, error) {
	node := Namehash(NormalizeName(name))

	resolver, err := c.Resolver(ctx, node)
	if err != nil || resolver == (common.Address{}) {
		return common.Address{}, err
	}

	value, err := c.callENS(ctx, resolver, "addr", node)
	if err != nil {
		return common.Address{}, err
	}
	addr, _ := value.(common.Address)
	return addr, nil
}

// ReverseName resolves the primary ENS name of an address (reverse lookup).
// The name is only returned when its forward record points back at address.
func (c *Client) ReverseName(ctx context.Context, address string) (string, error) {
	if len(address) != 42 || address[:2] != "0x" {
		return "", fmt.Errorf("invalid address format")
	}

	node := ReverseNode(address)

	resolver, err := c.Resolver(ctx, node)
	if err != nil {
		return "", err
	}

	// If resolver is zero address, no ENS name
	if resolver == (common.Address{}) {
		return "", nil
	}

	value, err := c.callENS(ctx, resolver, "name", node)
	if err != nil {
		return "", err
	}
	name, _ := value.(string)
	if name == "" {
		return "", nil
	}

	forward, err := c.ResolveAddress(ctx, name)
	if err != nil {
		return "", fmt.Errorf("failed to verify %s: %w", name, err)
	}
	if !strings.EqualFold(forward.Hex(), address) {
		return "", nil
	}

	return name, nil
}

// TextAt reads a text record (avatar, description, com.twitter, ...) from resolver.
// An unset record yields "".
func (c *Client) TextAt(ctx context.Context, resolver common.Address, node [32]byte, key string) (string, error) {
	value, err := c.callENS(ctx, resolver, "text", node, key)
	if err != nil {
		return "", err
	}
	text, _ := value.(string)
	return text, nil
}
