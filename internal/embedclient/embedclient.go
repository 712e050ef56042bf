// Package embedclient is the external Embedding Backend collaborator
// (spec.md §1: modeled as a black-box external system, never a concrete
// provider SDK import).
//
// Grounded on internal/embedding/client.go's HTTP request/response shape,
// timeout handling, and error wrapping.
package embedclient

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

// Config describes how to reach the configured embedding backend.
type Config struct {
	Model          string
	BaseURL        string
	Path           string
	APIKey         string
	APIHeader      string
	TimeoutSeconds int
}

type embedRequest struct {
	Model string   `json:"model"`
	Input []string `json:"input"`
}

type embedResponse struct {
	Data []struct {
		Embedding []float32 `json:"embedding"`
	} `json:"data"`
}

// Client calls the configured embedding endpoint.
type Client struct {
	cfg        Config
	httpClient *http.Client
}

// New constructs a Client. httpClient defaults to http.DefaultClient.
func New(cfg Config, httpClient *http.Client) *Client {
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	return &Client{cfg: cfg, httpClient: httpClient}
}

// Embed returns one embedding vector per input string, in order.
func (c *Client) Embed(ctx context.Context, inputs []string) ([][]float32, error) {
	if len(inputs) == 0 {
		return nil, fmt.Errorf("embedclient: no inputs")
	}

	body, err := json.Marshal(embedRequest{Model: c.cfg.Model, Input: inputs})
	if err != nil {
		return nil, err
	}

	timeout := time.Duration(c.cfg.TimeoutSeconds) * time.Second
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	cctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(cctx, http.MethodPost, c.cfg.BaseURL+c.cfg.Path, bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	if c.cfg.APIHeader == "Authorization" {
		req.Header.Set("Authorization", "Bearer "+c.cfg.APIKey)
	} else if c.cfg.APIHeader != "" {
		req.Header.Set(c.cfg.APIHeader, c.cfg.APIKey)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		if cctx.Err() != nil {
			return nil, fmt.Errorf("embedclient: request timeout: %w", cctx.Err())
		}
		return nil, err
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("embedclient: read response body: %w", err)
	}
	if resp.StatusCode/100 != 2 {
		return nil, fmt.Errorf("embedclient: embeddings error: %s: %s", resp.Status, truncate(respBody, 200))
	}

	var er embedResponse
	if err := json.Unmarshal(respBody, &er); err != nil {
		return nil, fmt.Errorf("embedclient: parse response (input count %d, body %s): %w", len(inputs), truncate(respBody, 200), err)
	}
	if len(er.Data) != len(inputs) {
		return nil, fmt.Errorf("embedclient: unexpected embedding count: got %d, want %d", len(er.Data), len(inputs))
	}

	out := make([][]float32, len(er.Data))
	for i := range er.Data {
		out[i] = er.Data[i].Embedding
	}
	return out, nil
}

// CheckReachability sends a minimal request to verify the endpoint responds.
func (c *Client) CheckReachability(ctx context.Context) error {
	_, err := c.Embed(ctx, []string{"ping"})
	if err != nil {
		return fmt.Errorf("embedclient: reachability check failed: %w", err)
	}
	return nil
}

func truncate(b []byte, n int) string {
	if len(b) <= n {
		return string(b)
	}
	return string(b[:n])
}
