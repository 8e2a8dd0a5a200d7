// Package assistant is the HTTP client for the external AI-assistant
// service. The service is opaque: requests go out as-is and the response
// body comes back verbatim.
package assistant

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
)

type Client struct {
	baseURL string
	http    *http.Client
}

// NewClient builds a client for the configured assistant base URL. No retry
// or timeout policy beyond the transport's defaults.
func NewClient(baseURL string, httpClient *http.Client) *Client {
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	return &Client{baseURL: strings.TrimSuffix(baseURL, "/"), http: httpClient}
}

type askRequest struct {
	Content string `json:"content"`
}

// Ask POSTs the question to /assistant/{projectID}/{nodeName} and returns
// the raw response body.
func (c *Client) Ask(ctx context.Context, projectID, nodeName, content string) ([]byte, error) {

	body, err := json.Marshal(askRequest{Content: content})
	if err != nil {
		return nil, err
	}

	url := fmt.Sprintf("%s/assistant/%s/%s", c.baseURL, projectID, nodeName)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("assistant request error: %w", err)
	}
	defer resp.Body.Close()

	payload, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("assistant response error: %w", err)
	}

	if resp.StatusCode >= http.StatusBadRequest {
		return nil, fmt.Errorf("assistant returned status %d", resp.StatusCode)
	}

	return payload, nil
}
