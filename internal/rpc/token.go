package rpc

import (
	"context"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
)

const tokenABIJSON = `[
	{"type":"function","name":"tokenURI","stateMutability":"view","inputs":[{"name":"tokenId","type":"uint256"}],"outputs":[{"name":"","type":"string"}]},
	{"type":"function","name":"uri","stateMutability":"view","inputs":[{"name":"id","type":"uint256"}],"outputs":[{"name":"","type":"string"}]}
]`

// TokenContractABI covers the ERC721 and ERC1155 metadata methods
var TokenContractABI = mustParseABI(tokenABIJSON)

// callToken packs method(tokenID), calls contract, and unpacks the single return value
func (c *Client) callToken(ctx context.Context, contract, method string, tokenID *big.Int) (interface{}, error) {
	if !common.IsHexAddress(contract) {
		return nil, fmt.Errorf("invalid contract address %q", contract)
	}

	data, err := TokenContractABI.Pack(method, tokenID)
	if err != nil {
		return nil, fmt.Errorf("failed to pack %s: %w", method, err)
	}

	out, err := c.ethCall(ctx, common.HexToAddress(contract).Hex(), data)
	if err != nil {
		return nil, err
	}
	if len(out) == 0 {
		return nil, fmt.Errorf("%s returned no data for %s", method, contract)
	}

	values, err := TokenContractABI.Unpack(method, out)
	if err != nil {
		return nil, fmt.Errorf("failed to unpack %s: %w", method, err)
	}
	if len(values) == 0 {
		return nil, fmt.Errorf("%s returned no values for %s", method, contract)
	}
	return values[0], nil
}

// TokenURI reads an ERC721 tokenURI(tokenId)
func (c *Client) TokenURI(ctx context.Context, contract string, tokenID *big.Int) (string, error) {
	value, err := c.callToken(ctx, contract, "tokenURI", tokenID)
	if err != nil {
		return "", err
	}
	uri, _ := value.(string)
	return uri, nil
}

// ERC1155URI reads an ERC1155 uri(id). The result may contain an {id} placeholder.
func (c *Client) ERC1155URI(ctx context.Context, contract string, tokenID *big.Int) (string, error) {
	value, err := c.callToken(ctx, contract, "uri", tokenID)
	if err != nil {
		return "", err
	}
	uri, _ := value.(string)
	return uri, nil
}
