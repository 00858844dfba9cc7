package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/candig/fedsearch/pkg/federation"
	"github.com/candig/fedsearch/pkg/types"
)

// Client talks to a federation node's HTTP API. All data operations go
// through the node's federated surface, so results and status blocks
// cover the whole mesh as seen from that node.
type Client struct {
	baseURL string
	token   string
	http    *http.Client
}

// NewClient creates a client for the node at baseURL.
func NewClient(baseURL string) *Client {
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    &http.Client{Timeout: 30 * time.Second},
	}
}

// WithToken sets the bearer token forwarded with every request.
func (c *Client) WithToken(token string) *Client {
	c.token = token
	return c
}

// SearchOptions narrows a search request.
type SearchOptions struct {
	DatasetID string            `json:"datasetId,omitempty"`
	Filters   map[string]string `json:"filters,omitempty"`
	PageSize  int               `json:"pageSize,omitempty"`
	PageToken string            `json:"pageToken,omitempty"`
}

// CountOptions selects the entity and fields to build histograms over.
type CountOptions struct {
	Entity    string   `json:"entity"`
	DatasetID string   `json:"datasetId,omitempty"`
	Fields    []string `json:"fields"`
}

// Get fetches one record by id from the named collection.
func (c *Client) Get(ctx context.Context, collection, id string) (*federation.Envelope, error) {
	return c.do(ctx, http.MethodGet, fmt.Sprintf("/v1/%s/%s", collection, id), nil)
}

// Search runs a federated search over the named collection.
func (c *Client) Search(ctx context.Context, collection string, opts SearchOptions) (*federation.Envelope, error) {
	body, err := json.Marshal(opts)
	if err != nil {
		return nil, fmt.Errorf("encoding search request: %w", err)
	}
	return c.do(ctx, http.MethodPost, fmt.Sprintf("/v1/%s/search", collection), body)
}

// Count runs a federated count query.
func (c *Client) Count(ctx context.Context, opts CountOptions) (*federation.Envelope, error) {
	body, err := json.Marshal(opts)
	if err != nil {
		return nil, fmt.Errorf("encoding count request: %w", err)
	}
	return c.do(ctx, http.MethodPost, "/v1/count", body)
}

// ListPeers returns the peers registered on the node.
func (c *Client) ListPeers(ctx context.Context) ([]*types.Peer, error) {
	var out struct {
		Peers []*types.Peer `json:"peers"`
	}
	if err := c.doJSON(ctx, http.MethodGet, "/v1/peers", nil, &out); err != nil {
		return nil, err
	}
	return out.Peers, nil
}

// Announce registers a peer URL on the node.
func (c *Client) Announce(ctx context.Context, peerURL string, attributes map[string]string) (*types.Peer, error) {
	body, err := json.Marshal(map[string]any{
		"url":        peerURL,
		"attributes": attributes,
	})
	if err != nil {
		return nil, fmt.Errorf("encoding announce request: %w", err)
	}
	var peer types.Peer
	if err := c.doJSON(ctx, http.MethodPost, "/v1/announce", body, &peer); err != nil {
		return nil, err
	}
	return &peer, nil
}

// ListDatasets returns the node's local dataset catalog.
func (c *Client) ListDatasets(ctx context.Context) ([]*types.Dataset, error) {
	var out struct {
		Datasets []*types.Dataset `json:"datasets"`
	}
	if err := c.doJSON(ctx, http.MethodGet, "/v1/datasets", nil, &out); err != nil {
		return nil, err
	}
	return out.Datasets, nil
}

func (c *Client) do(ctx context.Context, method, path string, body []byte) (*federation.Envelope, error) {
	var env federation.Envelope
	if err := c.doJSON(ctx, method, path, body, &env); err != nil {
		return nil, err
	}
	return &env, nil
}

func (c *Client) doJSON(ctx context.Context, method, path string, body []byte, out any) error {
	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return fmt.Errorf("building request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.token != "" {
		req.Header.Set("Authorization", c.token)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("calling %s: %w", path, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("reading response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		var apiErr struct {
			Error string `json:"error"`
		}
		if json.Unmarshal(data, &apiErr) == nil && apiErr.Error != "" {
			return fmt.Errorf("%s: %s (status %d)", path, apiErr.Error, resp.StatusCode)
		}
		return fmt.Errorf("%s: unexpected status %d", path, resp.StatusCode)
	}
	if out == nil {
		return nil
	}
	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("decoding response: %w", err)
	}
	return nil
}
