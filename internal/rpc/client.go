package rpc

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"math/big"
	"net/http"
	"time"

	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/sybvouch/identity/internal/observability"
)

// Client is a minimal Ethereum JSON-RPC client
type Client struct {
	httpClient *http.Client
	url        string
	provider   string
	metrics    *observability.Metrics
}

type JSONRPCRequest struct {
	JSONRPC string      `json:"jsonrpc"`
	Method  string      `json:"method"`
	Params  interface{} `json:"params"`
	ID      int         `json:"id"`
}

type JSONRPCResponse struct {
	JSONRPC string          `json:"jsonrpc"`
	Result  json.RawMessage `json:"result"`
	Error   *JSONRPCError   `json:"error"`
	ID      int             `json:"id"`
}

type JSONRPCError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
	Data    string `json:"data,omitempty"`
}

// NewClient creates a new RPC client for the given endpoint. timeout bounds each call.
func NewClient(url string, timeout time.Duration) *Client {
	return &Client{
		httpClient: &http.Client{
			Timeout: timeout,
		},
		url:      url,
		provider: "rpc",
	}
}

// SetMetrics enables upstream latency metrics under the given provider label
func (c *Client) SetMetrics(metrics *observability.Metrics, provider string) {
	c.metrics = metrics
	c.provider = provider
}

// call makes a JSON-RPC call to the blockchain node
func (c *Client) call(ctx context.Context, method string, params interface{}) (result json.RawMessage, err error) {
	start := time.Now()
	defer func() { c.metrics.ObserveUpstream(c.provider, method, start, err) }()

	req := JSONRPCRequest{
		JSONRPC: "2.0",
		Method:  method,
		Params:  params,
		ID:      1,
	}

	reqBody, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, "POST", c.url, bytes.NewBuffer(reqBody))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("failed to make request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("RPC HTTP status %d for %s", resp.StatusCode, method)
	}

	var rpcResp JSONRPCResponse
	if err := json.Unmarshal(body, &rpcResp); err != nil {
		bodyPreview := string(body)
		if len(bodyPreview) > 200 {
			bodyPreview = bodyPreview[:200]
		}
		return nil, fmt.Errorf("failed to unmarshal response: %w (body: %s)", err, bodyPreview)
	}

	if rpcResp.Error != nil {
		return nil, fmt.Errorf("RPC error %d: %s", rpcResp.Error.Code, rpcResp.Error.Message)
	}

	return rpcResp.Result, nil
}

// callHex performs a call whose result is a single hex string
func (c *Client) callHex(ctx context.Context, method string, params interface{}) (string, error) {
	result, err := c.call(ctx, method, params)
	if err != nil {
		return "", err
	}

	var hex string
	if err := json.Unmarshal(result, &hex); err != nil {
		return "", fmt.Errorf("failed to unmarshal %s result: %w", method, err)
	}
	return hex, nil
}

// GetBalance returns the native balance of address in wei at the latest block
func (c *Client) GetBalance(ctx context.Context, address string) (*big.Int, error) {
	hex, err := c.callHex(ctx, "eth_getBalance", []string{address, "latest"})
	if err != nil {
		return nil, err
	}

	balance, err := hexutil.DecodeBig(hex)
	if err != nil {
		return nil, fmt.Errorf("failed to decode balance %q: %w", hex, err)
	}
	return balance, nil
}

// GetTransactionCount returns the number of transactions sent from address
func (c *Client) GetTransactionCount(ctx context.Context, address string) (uint64, error) {
	hex, err := c.callHex(ctx, "eth_getTransactionCount", []string{address, "latest"})
	if err != nil {
		return 0, err
	}

	count, err := hexutil.DecodeUint64(hex)
	if err != nil {
		return 0, fmt.Errorf("failed to decode transaction count %q: %w", hex, err)
	}
	return count, nil
}

// ethCall executes a read-only contract call and returns the raw return data
func (c *Client) ethCall(ctx context.Context, to string, data []byte) ([]byte, error) {
	params := []interface{}{
		map[string]interface{}{
			"to":   to,
			"data": hexutil.Encode(data),
		},
		"latest",
	}

	hex, err := c.callHex(ctx, "eth_call", params)
	if err != nil {
		return nil, err
	}
	if hex == "" || hex == "0x" {
		return nil, nil
	}

	out, err := hexutil.Decode(hex)
	if err != nil {
		return nil, fmt.Errorf("failed to decode eth_call result: %w", err)
	}
	return out, nil
}
