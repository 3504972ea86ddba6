package analyze

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tonshield/tonshield/internal/history"
	"github.com/tonshield/tonshield/internal/riskapi"
	"github.com/tonshield/tonshield/internal/tonapi"
)

func newTestRouter(t *testing.T, tonHandler http.HandlerFunc) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)

	ton := httptest.NewServer(tonHandler)
	t.Cleanup(ton.Close)

	hist := history.NewStore(history.NewMemoryKV(), 100)
	svc := NewService(tonapi.New(ton.URL), riskapi.New(""), hist, nil)

	r := gin.New()
	v1 := r.Group("/v1")
	NewHandler(svc).RegisterRoutes(v1)
	return r
}

func doRequest(r *gin.Engine, method, path, body, userKey string) *httptest.ResponseRecorder {
	var reader *strings.Reader
	if body != "" {
		reader = strings.NewReader(body)
	} else {
		reader = strings.NewReader("")
	}
	req := httptest.NewRequest(method, path, reader)
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	if userKey != "" {
		req.Header.Set(UserKeyHeader, userKey)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestAnalyzeAddress_OK(t *testing.T) {
	r := newTestRouter(t, serveAccount(
		`{"address":"`+testAddr+`","balance":0,"is_scam":false,"is_wallet":true}`,
	))

	w := doRequest(r, http.MethodGet, "/v1/analyze/address/"+testAddr, "", "user-42")
	require.Equal(t, http.StatusOK, w.Code)

	var resp map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "address", resp["kind"])
	assert.Equal(t, "SAFE", resp["risk_level"])
	assert.Equal(t, float64(10), resp["risk_score"])
	assert.Equal(t, true, resp["history_saved"])
	assert.NotNil(t, resp["account_info"])
}

func TestAnalyzeAddress_InvalidAddress(t *testing.T) {
	r := newTestRouter(t, serveAccount(`{}`))

	w := doRequest(r, http.MethodGet, "/v1/analyze/address/not-an-address", "", "")
	require.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), "invalid_address")
}

func TestAnalyzeJetton_UpstreamDown(t *testing.T) {
	r := newTestRouter(t, func(w http.ResponseWriter, req *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	})

	w := doRequest(r, http.MethodGet, "/v1/analyze/jetton/"+testAddr, "", "")
	require.Equal(t, http.StatusBadGateway, w.Code)
	assert.Contains(t, w.Body.String(), "upstream_unavailable")
}

func TestAnalyzeJetton_MalformedUpstream(t *testing.T) {
	r := newTestRouter(t, func(w http.ResponseWriter, req *http.Request) {
		w.Write([]byte("<html>not json</html>"))
	})

	w := doRequest(r, http.MethodGet, "/v1/analyze/jetton/"+testAddr, "", "")
	require.Equal(t, http.StatusBadGateway, w.Code)
	assert.Contains(t, w.Body.String(), "malformed_upstream_response")
}

func TestAnalyzeLink_OK(t *testing.T) {
	r := newTestRouter(t, serveAccount(`{}`))

	w := doRequest(r, http.MethodPost, "/v1/analyze/link", `{"url":"http://203.0.113.9/claim"}`, "user-42")
	require.Equal(t, http.StatusOK, w.Code)

	var resp map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "link", resp["kind"])
	assert.Equal(t, "CRITICAL", resp["risk_level"])
	link, ok := resp["link_info"].(map[string]any)
	require.True(t, ok, "link_info missing")
	assert.Equal(t, true, link["is_phishing"])
}

func TestAnalyzeLink_BadRequests(t *testing.T) {
	r := newTestRouter(t, serveAccount(`{}`))

	cases := []struct {
		name string
		body string
		code string
	}{
		{"missing url", `{}`, "invalid_request"},
		{"not json", `url=x`, "invalid_request"},
		{"relative url", `{"url":"/phish"}`, "invalid_url"},
		{"ftp scheme", `{"url":"ftp://example.com/x"}`, "invalid_url"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			w := doRequest(r, http.MethodPost, "/v1/analyze/link", tc.body, "")
			assert.Equal(t, http.StatusBadRequest, w.Code)
			assert.Contains(t, w.Body.String(), tc.code)
		})
	}
}

func TestAnalyzeTransaction_OK(t *testing.T) {
	r := newTestRouter(t, serveAccount(
		`{"address":"`+testAddr+`","balance":2000000000,"is_scam":false,"is_wallet":true}`,
	))

	body := `{"user_wallet":"` + testAddr + `","target_address":"` + testAddr + `","amount_nanoton":"1000000000"}`
	w := doRequest(r, http.MethodPost, "/v1/analyze/transaction", body, "user-42")
	require.Equal(t, http.StatusOK, w.Code)

	var resp map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "transaction", resp["kind"])
	// Transactions are never persisted, so no history verdict is reported.
	_, present := resp["history_saved"]
	assert.False(t, present)
}

func TestAnalyzeTransaction_BadRequests(t *testing.T) {
	r := newTestRouter(t, serveAccount(`{}`))

	cases := []struct {
		name string
		body string
		code string
	}{
		{"missing wallet", `{"target_address":"` + testAddr + `"}`, "invalid_request"},
		{"bad target", `{"user_wallet":"` + testAddr + `","target_address":"nope"}`, "invalid_transaction"},
		{"bad amount", `{"user_wallet":"` + testAddr + `","target_address":"` + testAddr + `","amount_nanoton":"-5"}`, "invalid_transaction"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			w := doRequest(r, http.MethodPost, "/v1/analyze/transaction", tc.body, "")
			assert.Equal(t, http.StatusBadRequest, w.Code)
			assert.Contains(t, w.Body.String(), tc.code)
		})
	}
}
