// Package rpctest provides an in-process Ethereum JSON-RPC node for tests.
package rpctest

import (
	"encoding/json"
	"fmt"
	"math/big"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"

	"github.com/sybvouch/identity/internal/rpc"
)

// ResolverAddress is the single resolver contract every registered name points at
var ResolverAddress = common.HexToAddress("0x4976fb03C32e5B8cfe2b6cCB31c09Ba78EBaBa41")

type tokenKey struct {
	contract common.Address
	id       string
}

// Node answers eth_call for the ENS registry, one resolver and token contracts,
// plus eth_getBalance and eth_getTransactionCount.
type Node struct {
	*httptest.Server

	mu        sync.Mutex
	resolvers map[[32]byte]bool
	names     map[[32]byte]string
	addrs     map[[32]byte]common.Address
	texts     map[[32]byte]map[string]string
	tokenURIs map[tokenKey]string
	balances  map[common.Address]*big.Int
	nonces    map[common.Address]uint64
	failing   map[string]bool
	calls     map[string]int
}

// NewNode starts a node; it is closed when the test finishes via Close
func NewNode() *Node {
	n := &Node{
		resolvers: make(map[[32]byte]bool),
		names:     make(map[[32]byte]string),
		addrs:     make(map[[32]byte]common.Address),
		texts:     make(map[[32]byte]map[string]string),
		tokenURIs: make(map[tokenKey]string),
		balances:  make(map[common.Address]*big.Int),
		nonces:    make(map[common.Address]uint64),
		failing:   make(map[string]bool),
		calls:     make(map[string]int),
	}
	n.Server = httptest.NewServer(http.HandlerFunc(n.serve))
	return n
}

// SetPrimaryName registers name as the primary name of address with a matching forward record
func (n *Node) SetPrimaryName(address, name string) {
	n.SetReverseName(address, name)
	n.SetForwardAddress(name, address)
}

// SetReverseName registers only the reverse record
func (n *Node) SetReverseName(address, name string) {
	n.mu.Lock()
	defer n.mu.Unlock()
	node := rpc.ReverseNode(address)
	n.resolvers[node] = true
	n.names[node] = name
}

// SetForwardAddress registers only the forward addr record
func (n *Node) SetForwardAddress(name, address string) {
	n.mu.Lock()
	defer n.mu.Unlock()
	node := rpc.Namehash(rpc.NormalizeName(name))
	n.resolvers[node] = true
	n.addrs[node] = common.HexToAddress(address)
}

// SetText sets a text record on name
func (n *Node) SetText(name, key, value string) {
	n.mu.Lock()
	defer n.mu.Unlock()
	node := rpc.Namehash(rpc.NormalizeName(name))
	n.resolvers[node] = true
	if n.texts[node] == nil {
		n.texts[node] = make(map[string]string)
	}
	n.texts[node][key] = value
}

// SetTokenURI sets the metadata URI returned by tokenURI and uri for a token
func (n *Node) SetTokenURI(contract string, tokenID int64, uri string) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.tokenURIs[tokenKey{common.HexToAddress(contract), big.NewInt(tokenID).String()}] = uri
}

// SetBalance sets the wei balance of address
func (n *Node) SetBalance(address string, wei *big.Int) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.balances[common.HexToAddress(address)] = wei
}

// SetTransactionCount sets the nonce of address
func (n *Node) SetTransactionCount(address string, count uint64) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.nonces[common.HexToAddress(address)] = count
}

// Fail makes every call of the given RPC method (or ABI method name for eth_call) return an error
func (n *Node) Fail(method string) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.failing[method] = true
}

// Calls returns how many times method (RPC or ABI method name) was invoked
func (n *Node) Calls(method string) int {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.calls[method]
}

type request struct {
	ID     int               `json:"id"`
	Method string            `json:"method"`
	Params []json.RawMessage `json:"params"`
}

func (n *Node) serve(w http.ResponseWriter, r *http.Request) {
	var req request
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	result, err := n.dispatch(req)

	resp := map[string]interface{}{"jsonrpc": "2.0", "id": req.ID}
	if err != nil {
		resp["error"] = map[string]interface{}{"code": -32000, "message": err.Error()}
	} else {
		resp["result"] = result
	}
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(resp)
}

func (n *Node) dispatch(req request) (interface{}, error) {
	n.mu.Lock()
	defer n.mu.Unlock()

	n.calls[req.Method]++
	if n.failing[req.Method] {
		return nil, fmt.Errorf("%s unavailable", req.Method)
	}

	switch req.Method {
	case "eth_getBalance":
		balance, ok := n.balances[paramAddress(req)]
		if !ok {
			balance = big.NewInt(0)
		}
		return hexutil.EncodeBig(balance), nil
	case "eth_getTransactionCount":
		return hexutil.EncodeUint64(n.nonces[paramAddress(req)]), nil
	case "eth_call":
		return n.ethCall(req)
	default:
		return nil, fmt.Errorf("method %s not supported", req.Method)
	}
}

func paramAddress(req request) common.Address {
	if len(req.Params) == 0 {
		return common.Address{}
	}
	var addr string
	_ = json.Unmarshal(req.Params[0], &addr)
	return common.HexToAddress(addr)
}

func (n *Node) ethCall(req request) (interface{}, error) {
	if len(req.Params) == 0 {
		return nil, fmt.Errorf("missing call object")
	}
	var call struct {
		To   string `json:"to"`
		Data string `json:"data"`
	}
	if err := json.Unmarshal(req.Params[0], &call); err != nil {
		return nil, err
	}

	data, err := hexutil.Decode(call.Data)
	if err != nil || len(data) < 4 {
		return nil, fmt.Errorf("bad calldata")
	}

	to := common.HexToAddress(call.To)
	switch {
	case strings.EqualFold(call.To, rpc.RegistryAddress), to == ResolverAddress:
		return n.ensCall(data)
	default:
		return n.tokenCall(to, data)
	}
}

func (n *Node) ensCall(data []byte) (interface{}, error) {
	method, err := rpc.ENSContractABI.MethodById(data[:4])
	if err != nil {
		return "0x", nil
	}
	n.calls[method.Name]++
	if n.failing[method.Name] {
		return nil, fmt.Errorf("%s reverted", method.Name)
	}

	args, err := method.Inputs.Unpack(data[4:])
	if err != nil {
		return nil, err
	}
	node := args[0].([32]byte)

	var out interface{}
	switch method.Name {
	case "resolver":
		if n.resolvers[node] {
			out = ResolverAddress
		} else {
			out = common.Address{}
		}
	case "name":
		out = n.names[node]
	case "addr":
		out = n.addrs[node]
	case "text":
		out = n.texts[node][args[1].(string)]
	}
	return pack(method, out)
}

func (n *Node) tokenCall(to common.Address, data []byte) (interface{}, error) {
	method, err := rpc.TokenContractABI.MethodById(data[:4])
	if err != nil {
		return "0x", nil
	}
	n.calls[method.Name]++
	if n.failing[method.Name] {
		return nil, fmt.Errorf("%s reverted", method.Name)
	}

	args, err := method.Inputs.Unpack(data[4:])
	if err != nil {
		return nil, err
	}
	id := args[0].(*big.Int)

	uri, ok := n.tokenURIs[tokenKey{to, id.String()}]
	if !ok {
		return nil, fmt.Errorf("execution reverted: nonexistent token")
	}
	return pack(method, uri)
}

func pack(method *abi.Method, value interface{}) (string, error) {
	out, err := method.Outputs.Pack(value)
	if err != nil {
		return "", err
	}
	return hexutil.Encode(out), nil
}
