package mcpserver

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// --- Test helpers ---

func newTestSetup(handler http.Handler) (*Handlers, func()) {
	ts := httptest.NewServer(handler)
	cfg := Config{
		APIURL: ts.URL,
		UserID: "user-42",
	}
	client := NewShieldClient(cfg)
	h := NewHandlers(client)
	return h, ts.Close
}

func makeRequest(args map[string]any) mcp.CallToolRequest {
	var req mcp.CallToolRequest
	if args == nil {
		args = map[string]any{}
	}
	req.Params.Arguments = args
	return req
}

func resultText(t *testing.T, result *mcp.CallToolResult) string {
	t.Helper()
	require.NotEmpty(t, result.Content, "expected at least one content block")
	tc, ok := result.Content[0].(mcp.TextContent)
	require.True(t, ok, "expected TextContent, got %T", result.Content[0])
	return tc.Text
}

const sampleAssessment = `{
	"kind": "address",
	"target": "EQtest",
	"risk_level": "CRITICAL",
	"risk_score": 80,
	"signals": [
		{"category": "Scam Detection", "severity": "high", "message": "This address is flagged as a known scam", "points": 80}
	],
	"ai_summary": {
		"verdict": "WARNING: This address is flagged as a known scam!",
		"key_risks": ["Address is on the scam list"],
		"recommendation": "Do not interact with this address"
	},
	"history_saved": true
}`

// ============================================================
// Client tests
// ============================================================

func TestClient_SendsUserIDHeader(t *testing.T) {
	var gotUser string
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotUser = r.Header.Get("X-User-ID")
		_, _ = w.Write([]byte(`{}`))
	}))
	defer ts.Close()

	c := NewShieldClient(Config{APIURL: ts.URL, UserID: "user-42"})
	_, err := c.AnalyzeAddress(context.Background(), "EQtest")
	require.NoError(t, err)
	assert.Equal(t, "user-42", gotUser)
}

func TestClient_SurfacesAPIErrorMessage(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
		_, _ = w.Write([]byte(`{"error":"upstream_unavailable","message":"Upstream data source is unavailable, try again later"}`))
	}))
	defer ts.Close()

	c := NewShieldClient(Config{APIURL: ts.URL, UserID: "u"})
	_, err := c.AnalyzeAddress(context.Background(), "EQtest")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "Upstream data source is unavailable")
	assert.Contains(t, err.Error(), "502")
}

func TestClient_HistoryQueryParams(t *testing.T) {
	var gotPath, gotQuery string
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotQuery = r.URL.RawQuery
		_, _ = w.Write([]byte(`{"items":[],"total":0}`))
	}))
	defer ts.Close()

	c := NewShieldClient(Config{APIURL: ts.URL, UserID: "user-42"})
	_, err := c.GetHistory(context.Background(), "link", "CRITICAL", 5)
	require.NoError(t, err)
	assert.Equal(t, "/v1/history/user-42", gotPath)
	assert.Contains(t, gotQuery, "type=link")
	assert.Contains(t, gotQuery, "risk_level=CRITICAL")
	assert.Contains(t, gotQuery, "limit=5")
}

// ============================================================
// Handler tests
// ============================================================

func TestHandleAnalyzeAddress(t *testing.T) {
	h, done := newTestSetup(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/analyze/address/EQtest", r.URL.Path)
		_, _ = w.Write([]byte(sampleAssessment))
	}))
	defer done()

	result, err := h.HandleAnalyzeAddress(context.Background(), makeRequest(map[string]any{"address": "EQtest"}))
	require.NoError(t, err)
	require.False(t, result.IsError)

	text := resultText(t, result)
	assert.Contains(t, text, "Address check: EQtest")
	assert.Contains(t, text, "CRITICAL")
	assert.Contains(t, text, "score 80/100")
	assert.Contains(t, text, "Scam Detection")
	assert.Contains(t, text, "Do not interact with this address")
}

func TestHandleAnalyzeAddress_MissingArg(t *testing.T) {
	h, done := newTestSetup(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Error("no request should be made")
	}))
	defer done()

	result, err := h.HandleAnalyzeAddress(context.Background(), makeRequest(nil))
	require.NoError(t, err)
	assert.True(t, result.IsError)
	assert.Contains(t, resultText(t, result), "address is required")
}

func TestHandleAnalyzeJetton(t *testing.T) {
	h, done := newTestSetup(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/analyze/jetton/EQjet", r.URL.Path)
		_, _ = w.Write([]byte(`{
			"kind": "jetton", "target": "EQjet", "risk_level": "WARNING", "risk_score": 45,
			"signals": [], "ai_summary": {"verdict": "Unverified token", "key_risks": [], "recommendation": "Proceed with caution"},
			"jetton_info": {"name": "Shady", "symbol": "SHD", "holder_count": 12, "verification": "none"}
		}`))
	}))
	defer done()

	result, err := h.HandleAnalyzeJetton(context.Background(), makeRequest(map[string]any{"address": "EQjet"}))
	require.NoError(t, err)
	require.False(t, result.IsError)

	text := resultText(t, result)
	assert.Contains(t, text, "Shady (SHD)")
	assert.Contains(t, text, "Holders: 12")
	assert.Contains(t, text, "WARNING")
}

func TestHandleAnalyzeLink(t *testing.T) {
	h, done := newTestSetup(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/analyze/link", r.URL.Path)
		assert.Equal(t, http.MethodPost, r.Method)
		_, _ = w.Write([]byte(`{
			"kind": "link", "target": "http://bad.example", "risk_level": "CRITICAL", "risk_score": 90,
			"signals": [], "ai_summary": {"verdict": "Phishing indicators", "key_risks": [], "recommendation": "Do not visit this link - likely phishing"},
			"link_info": {"domain": "bad.example", "is_phishing": true, "is_telegram_link": false}
		}`))
	}))
	defer done()

	result, err := h.HandleAnalyzeLink(context.Background(), makeRequest(map[string]any{"url": "http://bad.example"}))
	require.NoError(t, err)
	require.False(t, result.IsError)

	text := resultText(t, result)
	assert.Contains(t, text, "bad.example")
	assert.Contains(t, text, "flagged as phishing")
}

func TestHandleAnalyzeTransaction_RequiredArgs(t *testing.T) {
	h, done := newTestSetup(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Error("no request should be made")
	}))
	defer done()

	result, err := h.HandleAnalyzeTransaction(context.Background(), makeRequest(map[string]any{"user_wallet": "EQme"}))
	require.NoError(t, err)
	assert.True(t, result.IsError)
	assert.Contains(t, resultText(t, result), "target_address is required")
}

func TestHandleGetHistory(t *testing.T) {
	h, done := newTestSetup(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{
			"items": [
				{"id": "chk_1", "type": "link", "target": "https://x", "risk_level": "CRITICAL", "risk_score": 90, "timestamp": "2026-08-30T10:00:00Z"},
				{"id": "chk_2", "type": "address", "target": "EQy", "risk_level": "SAFE", "risk_score": 0, "timestamp": "2026-08-29T10:00:00Z"}
			],
			"total": 7, "limit": 2, "offset": 0
		}`))
	}))
	defer done()

	result, err := h.HandleGetHistory(context.Background(), makeRequest(map[string]any{"limit": float64(2)}))
	require.NoError(t, err)
	require.False(t, result.IsError)

	text := resultText(t, result)
	assert.Contains(t, text, "Showing 2 of 7")
	assert.Contains(t, text, "link https://x")
	assert.Contains(t, text, "CRITICAL (score 90)")
}

func TestHandleGetHistory_Empty(t *testing.T) {
	h, done := newTestSetup(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"items":[],"total":0,"limit":20,"offset":0}`))
	}))
	defer done()

	result, err := h.HandleGetHistory(context.Background(), makeRequest(nil))
	require.NoError(t, err)
	assert.Contains(t, resultText(t, result), "No checks in history yet")
}

func TestHandleGetDashboard(t *testing.T) {
	h, done := newTestSetup(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/dashboard/user-42", r.URL.Path)
		_, _ = w.Write([]byte(`{
			"stats": {"total": 10, "safe": 6, "warning": 2, "critical": 2, "safe_percent": 60, "critical_percent": 20, "checked_today": 3, "most_checked_kind": "address"},
			"timeline": [
				{"date": "2026-08-30", "total": 2}, {"date": "2026-08-31", "total": 1},
				{"date": "2026-08-29", "total": 0}
			],
			"recent_critical": [{"type": "link", "target": "https://x", "risk_score": 90}]
		}`))
	}))
	defer done()

	result, err := h.HandleGetDashboard(context.Background(), makeRequest(nil))
	require.NoError(t, err)
	require.False(t, result.IsError)

	text := resultText(t, result)
	assert.Contains(t, text, "Total checks: 10 (today: 3)")
	assert.Contains(t, text, "Safe: 6 (60%)")
	assert.Contains(t, text, "Active days this week: 2 of 3")
	assert.Contains(t, text, "link https://x (score 90)")
}

func TestHandler_APIDown(t *testing.T) {
	h, done := newTestSetup(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer done()

	result, err := h.HandleAnalyzeAddress(context.Background(), makeRequest(map[string]any{"address": "EQtest"}))
	require.NoError(t, err)
	assert.True(t, result.IsError)
	assert.Contains(t, resultText(t, result), "Address check failed")
}
