// Package subgraph reads the trust graph from the GraphQL indexer.
package subgraph

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/sybvouch/identity/internal/observability"
)

// Client is a read-only GraphQL client for the indexer. Results are never cached.
type Client struct {
	url        string
	httpClient *http.Client
	metrics    *observability.Metrics
}

type graphQLRequest struct {
	Query     string                 `json:"query"`
	Variables map[string]interface{} `json:"variables,omitempty"`
}

type graphQLError struct {
	Message string `json:"message"`
}

type graphQLResponse struct {
	Data   json.RawMessage `json:"data"`
	Errors []graphQLError  `json:"errors"`
}

// NewClient creates a client for the subgraph endpoint
func NewClient(url string, timeout time.Duration) *Client {
	return &Client{
		url: url,
		httpClient: &http.Client{
			Timeout: timeout,
		},
	}
}

// SetMetrics enables upstream latency metrics
func (c *Client) SetMetrics(metrics *observability.Metrics) {
	c.metrics = metrics
}

// NetworkStats returns the network singleton and the ten highest scored users
func (c *Client) NetworkStats(ctx context.Context) (*NetworkStats, error) {
	var stats NetworkStats
	if err := c.query(ctx, "NetworkStats", networkStatsQuery, nil, &stats); err != nil {
		return nil, err
	}
	if stats.TopUsers == nil {
		stats.TopUsers = []User{}
	}
	return &stats, nil
}

// NetworkGraph returns up to first users by score, the oldest first vouches and the
// network singleton
func (c *Client) NetworkGraph(ctx context.Context, first int) (*NetworkGraph, error) {
	var graph NetworkGraph
	variables := map[string]interface{}{"first": first}
	if err := c.query(ctx, "NetworkGraph", networkGraphQuery, variables, &graph); err != nil {
		return nil, err
	}
	if graph.Users == nil {
		graph.Users = []User{}
	}
	if graph.Vouches == nil {
		graph.Vouches = []Vouch{}
	}
	return &graph, nil
}

// SearchUsers returns users whose id contains term, highest score first
func (c *Client) SearchUsers(ctx context.Context, term string, first int) ([]User, error) {
	var result struct {
		Users []User `json:"users"`
	}
	variables := map[string]interface{}{"searchTerm": strings.ToLower(term), "first": first}
	if err := c.query(ctx, "SearchUsers", searchUsersQuery, variables, &result); err != nil {
		return nil, err
	}
	if result.Users == nil {
		result.Users = []User{}
	}
	return result.Users, nil
}

// UserDetails returns a user with its vouches, or nil if the indexer has no such user
func (c *Client) UserDetails(ctx context.Context, address string) (*UserDetails, error) {
	var result struct {
		User *UserDetails `json:"user"`
	}
	variables := map[string]interface{}{"id": strings.ToLower(address)}
	if err := c.query(ctx, "UserDetails", userDetailsQuery, variables, &result); err != nil {
		return nil, err
	}
	return result.User, nil
}

// Vouches returns vouches newest first, paged by first/skip
func (c *Client) Vouches(ctx context.Context, first, skip int) ([]Vouch, error) {
	var result struct {
		Vouches []Vouch `json:"vouches"`
	}
	variables := map[string]interface{}{"first": first, "skip": skip}
	if err := c.query(ctx, "Vouches", vouchesQuery, variables, &result); err != nil {
		return nil, err
	}
	if result.Vouches == nil {
		result.Vouches = []Vouch{}
	}
	return result.Vouches, nil
}

// query posts a GraphQL document and decodes its data into dest
func (c *Client) query(ctx context.Context, operation, document string, variables map[string]interface{}, dest interface{}) (err error) {
	start := time.Now()
	defer func() { c.metrics.ObserveUpstream("subgraph", operation, start, err) }()

	reqBody, err := json.Marshal(graphQLRequest{Query: document, Variables: variables})
	if err != nil {
		return fmt.Errorf("failed to marshal request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url, bytes.NewReader(reqBody))
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return fmt.Errorf("failed to make request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("subgraph returned status %d", resp.StatusCode)
	}

	var gqlResp graphQLResponse
	if err := json.Unmarshal(body, &gqlResp); err != nil {
		return fmt.Errorf("failed to parse response: %w", err)
	}
	if len(gqlResp.Errors) > 0 {
		messages := make([]string, len(gqlResp.Errors))
		for i, e := range gqlResp.Errors {
			messages[i] = e.Message
		}
		return fmt.Errorf("subgraph %s: %s", operation, strings.Join(messages, "; "))
	}
	if len(gqlResp.Data) == 0 || string(gqlResp.Data) == "null" {
		return fmt.Errorf("subgraph %s returned no data", operation)
	}

	if err := json.Unmarshal(gqlResp.Data, dest); err != nil {
		return fmt.Errorf("failed to decode %s data: %w", operation, err)
	}
	return nil
}
