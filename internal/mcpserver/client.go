package mcpserver

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"
)

// Config holds the configuration for connecting to the TON Shield API.
type Config struct {
	APIURL string // Base URL, e.g. "http://localhost:8080"
	UserID string // History owner for checks run through the MCP server
}

// ShieldClient is a pure HTTP client for the TON Shield API.
type ShieldClient struct {
	cfg        Config
	httpClient *http.Client
}

// NewShieldClient creates a new client for the TON Shield API.
func NewShieldClient(cfg Config) *ShieldClient {
	return &ShieldClient{
		cfg: cfg,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
}

// apiError represents an error response from the service.
type apiError struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}

// doRequest makes an HTTP request to the service and returns the response body.
func (c *ShieldClient) doRequest(ctx context.Context, method, path string, query url.Values, body any) (json.RawMessage, error) {
	u, err := url.Parse(c.cfg.APIURL + path)
	if err != nil {
		return nil, fmt.Errorf("invalid URL: %w", err)
	}
	if query != nil {
		u.RawQuery = query.Encode()
	}

	var reqBody io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("marshal request body: %w", err)
		}
		reqBody = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, u.String(), reqBody)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}

	if c.cfg.UserID != "" {
		req.Header.Set("X-User-ID", c.cfg.UserID)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}

	if resp.StatusCode >= 400 {
		var apiErr apiError
		if json.Unmarshal(respBody, &apiErr) == nil && apiErr.Message != "" {
			return nil, fmt.Errorf("API error (%d): %s", resp.StatusCode, apiErr.Message)
		}
		return nil, fmt.Errorf("API error (%d): %s", resp.StatusCode, string(respBody))
	}

	return json.RawMessage(respBody), nil
}

// AnalyzeAddress runs an address risk check.
func (c *ShieldClient) AnalyzeAddress(ctx context.Context, address string) (json.RawMessage, error) {
	return c.doRequest(ctx, http.MethodGet, "/v1/analyze/address/"+url.PathEscape(address), nil, nil)
}

// AnalyzeJetton runs a jetton risk check.
func (c *ShieldClient) AnalyzeJetton(ctx context.Context, address string) (json.RawMessage, error) {
	return c.doRequest(ctx, http.MethodGet, "/v1/analyze/jetton/"+url.PathEscape(address), nil, nil)
}

// AnalyzeLink runs a URL risk check.
func (c *ShieldClient) AnalyzeLink(ctx context.Context, rawURL string) (json.RawMessage, error) {
	return c.doRequest(ctx, http.MethodPost, "/v1/analyze/link", nil, map[string]string{"url": rawURL})
}

// AnalyzeTransaction runs a pending-transaction risk check.
func (c *ShieldClient) AnalyzeTransaction(ctx context.Context, userWallet, targetAddress, amountNanoton, payloadBOC string) (json.RawMessage, error) {
	body := map[string]string{
		"user_wallet":    userWallet,
		"target_address": targetAddress,
	}
	if amountNanoton != "" {
		body["amount_nanoton"] = amountNanoton
	}
	if payloadBOC != "" {
		body["payload_boc"] = payloadBOC
	}
	return c.doRequest(ctx, http.MethodPost, "/v1/analyze/transaction", nil, body)
}

// GetHistory returns the user's check history, optionally filtered.
func (c *ShieldClient) GetHistory(ctx context.Context, kind, level string, limit int) (json.RawMessage, error) {
	q := url.Values{}
	if kind != "" {
		q.Set("type", kind)
	}
	if level != "" {
		q.Set("risk_level", level)
	}
	if limit > 0 {
		q.Set("limit", strconv.Itoa(limit))
	}
	return c.doRequest(ctx, http.MethodGet, "/v1/history/"+url.PathEscape(c.cfg.UserID), q, nil)
}

// GetDashboard returns the user's dashboard overview.
func (c *ShieldClient) GetDashboard(ctx context.Context) (json.RawMessage, error) {
	return c.doRequest(ctx, http.MethodGet, "/v1/dashboard/"+url.PathEscape(c.cfg.UserID), nil, nil)
}
