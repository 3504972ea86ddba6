// Package tonapi is the client for the TON chain indexer. It proxies account
// state, jetton metadata, account events, and wallet connections, with a
// circuit breaker and bounded retries around every call.
package tonapi

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/tonshield/tonshield/internal/circuitbreaker"
	"github.com/tonshield/tonshield/internal/logging"
	"github.com/tonshield/tonshield/internal/metrics"
	"github.com/tonshield/tonshield/internal/normalize"
	"github.com/tonshield/tonshield/internal/retry"
	"github.com/tonshield/tonshield/internal/traces"
)

const upstreamName = "tonapi"

// Account is the indexer's view of an account.
type Account struct {
	Address        string   `json:"address"`
	BalanceNanoton int64    `json:"balance"`
	LastActivity   int64    `json:"last_activity"` // unix seconds
	Status         string   `json:"status"`
	IsScam         bool     `json:"is_scam"`
	IsWallet       bool     `json:"is_wallet"`
	Interfaces     []string `json:"interfaces"`
}

// Jetton is the indexer's view of a jetton master contract.
type Jetton struct {
	Mintable     bool   `json:"mintable"`
	TotalSupply  string `json:"total_supply"`
	HolderCount  int64  `json:"holders_count"`
	Verification string `json:"verification"` // "whitelist", "none", "blacklist"
	Admin        struct {
		Address string `json:"address"`
	} `json:"admin"`
	Metadata struct {
		Name        string `json:"name"`
		Symbol      string `json:"symbol"`
		Decimals    string `json:"decimals"` // indexer sends this as a string
		Image       string `json:"image"`
		Description string `json:"description"`
	} `json:"metadata"`
}

// EventsPage is one page of account events plus the cursor for the next page.
type EventsPage struct {
	Events   []json.RawMessage `json:"events"`
	NextFrom int64             `json:"next_from"`
}

// Connections aggregates an account's DNS domains, jetton balances, and NFTs.
type Connections struct {
	Domains      []json.RawMessage `json:"domains"`
	Jettons      []json.RawMessage `json:"jettons"`
	NFTs         []json.RawMessage `json:"nfts"`
	TotalJettons int               `json:"total_jettons"`
	TotalNFTs    int               `json:"total_nfts"`
}

// Client talks to the TON indexer HTTP API.
type Client struct {
	baseURL    string
	httpClient *http.Client
	breaker    *circuitbreaker.Breaker
}

// New creates an indexer client for the given base URL.
func New(baseURL string) *Client {
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{
			Timeout: 10 * time.Second,
		},
		breaker: circuitbreaker.New(5, 30*time.Second),
	}
}

// Account fetches account state for an address.
func (c *Client) Account(ctx context.Context, addr string) (*Account, error) {
	var out Account
	if err := c.get(ctx, "account", "/v2/accounts/"+url.PathEscape(addr), nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// JettonInfo fetches jetton master metadata for an address.
func (c *Client) JettonInfo(ctx context.Context, addr string) (*Jetton, error) {
	var out Jetton
	if err := c.get(ctx, "jetton", "/v2/jettons/"+url.PathEscape(addr), nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// DecimalsOrDefault parses the string-typed decimals field, returning nil when
// absent or unparseable so the normalizer applies its default.
func (j *Jetton) DecimalsOrDefault() *int {
	if j.Metadata.Decimals == "" {
		return nil
	}
	d, err := strconv.Atoi(j.Metadata.Decimals)
	if err != nil {
		return nil
	}
	return &d
}

// AccountEvents fetches one page of account events. beforeLT of 0 means the
// latest page.
func (c *Client) AccountEvents(ctx context.Context, addr string, limit int, beforeLT int64) (*EventsPage, error) {
	q := url.Values{}
	if limit <= 0 {
		limit = 20
	}
	q.Set("limit", strconv.Itoa(limit))
	if beforeLT > 0 {
		q.Set("before_lt", strconv.FormatInt(beforeLT, 10))
	}

	var out EventsPage
	if err := c.get(ctx, "events", "/v2/accounts/"+url.PathEscape(addr)+"/events", q, &out); err != nil {
		return nil, err
	}
	if out.Events == nil {
		out.Events = []json.RawMessage{}
	}
	return &out, nil
}

// AccountConnections fetches an account's domains, jetton balances, and NFTs.
// The three sub-requests run concurrently and each falls back to an empty set
// on failure, so a partial indexer outage degrades the page instead of
// breaking it.
func (c *Client) AccountConnections(ctx context.Context, addr string) *Connections {
	ctx, span := traces.StartSpan(ctx, "tonapi.connections", traces.Upstream(upstreamName), traces.Target(addr))
	defer span.End()

	escaped := url.PathEscape(addr)
	conn := &Connections{
		Domains: []json.RawMessage{},
		Jettons: []json.RawMessage{},
		NFTs:    []json.RawMessage{},
	}

	var wg sync.WaitGroup
	wg.Add(3)

	go func() {
		defer wg.Done()
		var out struct {
			Domains []json.RawMessage `json:"domains"`
		}
		if err := c.get(ctx, "dns_backresolve", "/v2/accounts/"+escaped+"/dns/backresolve", nil, &out); err != nil {
			logging.L(ctx).Warn("domains fetch failed, using empty set", "address", addr, "error", err)
			return
		}
		if out.Domains != nil {
			conn.Domains = out.Domains
		}
	}()

	go func() {
		defer wg.Done()
		q := url.Values{"limit": []string{"100"}}
		var out struct {
			Balances []json.RawMessage `json:"balances"`
		}
		if err := c.get(ctx, "jetton_balances", "/v2/accounts/"+escaped+"/jettons", q, &out); err != nil {
			logging.L(ctx).Warn("jetton balances fetch failed, using empty set", "address", addr, "error", err)
			return
		}
		if out.Balances != nil {
			conn.Jettons = out.Balances
		}
	}()

	go func() {
		defer wg.Done()
		q := url.Values{"limit": []string{"100"}}
		var out struct {
			NFTItems []json.RawMessage `json:"nft_items"`
		}
		if err := c.get(ctx, "nfts", "/v2/accounts/"+escaped+"/nfts", q, &out); err != nil {
			logging.L(ctx).Warn("nfts fetch failed, using empty set", "address", addr, "error", err)
			return
		}
		if out.NFTItems != nil {
			conn.NFTs = out.NFTItems
		}
	}()

	wg.Wait()
	conn.TotalJettons = len(conn.Jettons)
	conn.TotalNFTs = len(conn.NFTs)
	return conn
}

// get performs a GET with retry, circuit breaking, and metrics, decoding the
// 2xx body into out.
func (c *Client) get(ctx context.Context, operation, path string, query url.Values, out any) error {
	if !c.breaker.Allow(operation) {
		metrics.UpstreamErrorsTotal.WithLabelValues(upstreamName, "circuit_open").Inc()
		return normalize.Unavailable(upstreamName, fmt.Errorf("circuit open for %s", operation))
	}

	ctx, span := traces.StartSpan(ctx, "tonapi."+operation, traces.Upstream(upstreamName))
	defer span.End()

	timer := prometheus.NewTimer(metrics.UpstreamRequestDuration.WithLabelValues(upstreamName, operation))
	defer timer.ObserveDuration()

	u := c.baseURL + path
	if len(query) > 0 {
		u += "?" + query.Encode()
	}

	var body []byte
	err := retry.Do(ctx, 3, 200*time.Millisecond, func() error {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
		if err != nil {
			return retry.Permanent(err)
		}
		req.Header.Set("Accept", "application/json")

		resp, err := c.httpClient.Do(req)
		if err != nil {
			return fmt.Errorf("request failed: %w", err)
		}
		defer resp.Body.Close()

		data, err := io.ReadAll(io.LimitReader(resp.Body, 4<<20))
		if err != nil {
			return fmt.Errorf("read response: %w", err)
		}

		if resp.StatusCode >= 500 {
			return fmt.Errorf("indexer returned status %d", resp.StatusCode)
		}
		if resp.StatusCode >= 400 {
			// Client errors will not improve on retry.
			return retry.Permanent(fmt.Errorf("indexer returned status %d", resp.StatusCode))
		}

		body = data
		return nil
	})
	if err != nil {
		c.breaker.RecordFailure(operation)
		metrics.UpstreamErrorsTotal.WithLabelValues(upstreamName, "unavailable").Inc()
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return err
		}
		return normalize.Unavailable(upstreamName, err)
	}

	if err := json.Unmarshal(body, out); err != nil {
		c.breaker.RecordFailure(operation)
		metrics.UpstreamErrorsTotal.WithLabelValues(upstreamName, "malformed").Inc()
		return normalize.Malformed(upstreamName, err)
	}

	c.breaker.RecordSuccess(operation)
	return nil
}
