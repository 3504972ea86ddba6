// Package riskapi is the client for the risk scoring backend. The backend is
// optional: when no URL is configured the client reports itself disabled and
// callers fall back to the local heuristic scorer.
package riskapi

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/tonshield/tonshield/internal/circuitbreaker"
	"github.com/tonshield/tonshield/internal/metrics"
	"github.com/tonshield/tonshield/internal/normalize"
	"github.com/tonshield/tonshield/internal/retry"
	"github.com/tonshield/tonshield/internal/risk"
	"github.com/tonshield/tonshield/internal/traces"
)

const upstreamName = "riskapi"

// ErrDisabled is returned when no backend URL is configured.
var ErrDisabled = errors.New("risk backend disabled")

// Client talks to the risk scoring backend.
type Client struct {
	baseURL    string
	httpClient *http.Client
	breaker    *circuitbreaker.Breaker
}

// New creates a backend client. An empty baseURL produces a disabled client.
func New(baseURL string) *Client {
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{
			Timeout: 15 * time.Second,
		},
		breaker: circuitbreaker.New(5, 30*time.Second),
	}
}

// Enabled reports whether a backend URL is configured.
func (c *Client) Enabled() bool {
	return c.baseURL != ""
}

// analyzeRequest is the scoring request body.
type analyzeRequest struct {
	Kind    string         `json:"kind"`
	Subject map[string]any `json:"subject"`
}

// Analyze submits a subject for scoring. The returned payload may have any
// subset of its fields missing; the normalizer fills in defaults.
func (c *Client) Analyze(ctx context.Context, kind risk.Kind, subject map[string]any) (normalize.Raw, error) {
	var raw normalize.Raw

	if !c.Enabled() {
		return raw, ErrDisabled
	}

	key := "analyze_" + string(kind)
	if !c.breaker.Allow(key) {
		metrics.UpstreamErrorsTotal.WithLabelValues(upstreamName, "circuit_open").Inc()
		return raw, normalize.Unavailable(upstreamName, fmt.Errorf("circuit open for %s", key))
	}

	ctx, span := traces.StartSpan(ctx, "riskapi.analyze", traces.Upstream(upstreamName), traces.CheckKind(string(kind)))
	defer span.End()

	timer := prometheus.NewTimer(metrics.UpstreamRequestDuration.WithLabelValues(upstreamName, "analyze"))
	defer timer.ObserveDuration()

	reqBody, err := json.Marshal(analyzeRequest{Kind: string(kind), Subject: subject})
	if err != nil {
		return raw, fmt.Errorf("marshal request: %w", err)
	}

	var body []byte
	err = retry.Do(ctx, 2, 250*time.Millisecond, func() error {
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/v1/analyze", bytes.NewReader(reqBody))
		if err != nil {
			return retry.Permanent(err)
		}
		req.Header.Set("Content-Type", "application/json")

		resp, err := c.httpClient.Do(req)
		if err != nil {
			return fmt.Errorf("request failed: %w", err)
		}
		defer resp.Body.Close()

		data, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
		if err != nil {
			return fmt.Errorf("read response: %w", err)
		}

		if resp.StatusCode >= 500 {
			return fmt.Errorf("backend returned status %d", resp.StatusCode)
		}
		if resp.StatusCode >= 400 {
			return retry.Permanent(fmt.Errorf("backend returned status %d", resp.StatusCode))
		}

		body = data
		return nil
	})
	if err != nil {
		c.breaker.RecordFailure(key)
		metrics.UpstreamErrorsTotal.WithLabelValues(upstreamName, "unavailable").Inc()
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return raw, err
		}
		return raw, normalize.Unavailable(upstreamName, err)
	}

	if err := json.Unmarshal(body, &raw); err != nil {
		c.breaker.RecordFailure(key)
		metrics.UpstreamErrorsTotal.WithLabelValues(upstreamName, "malformed").Inc()
		return normalize.Raw{}, normalize.Malformed(upstreamName, err)
	}

	c.breaker.RecordSuccess(key)
	return raw, nil
}
