package telegram

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeTelegram records Bot API calls and answers {ok:true}.
type fakeTelegram struct {
	mu    sync.Mutex
	calls []string
	body  map[string]json.RawMessage
}

func (f *fakeTelegram) handler(t *testing.T) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		// Path shape: /bot<token>/<method>
		parts := strings.Split(strings.TrimPrefix(r.URL.Path, "/"), "/")
		require.Len(t, parts, 2)
		method := parts[1]

		f.mu.Lock()
		f.calls = append(f.calls, method)
		if data, err := io.ReadAll(r.Body); err == nil && len(data) > 0 {
			f.body[method] = data
		}
		f.mu.Unlock()

		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"ok":true,"result":{"username":"tonshield_bot"}}`))
	}
}

func (f *fakeTelegram) called(method string) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, m := range f.calls {
		if m == method {
			return true
		}
	}
	return false
}

func newTestHandler(t *testing.T, token, appURL string) (*gin.Engine, *fakeTelegram) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	fake := &fakeTelegram{body: make(map[string]json.RawMessage)}
	srv := httptest.NewServer(fake.handler(t))
	t.Cleanup(srv.Close)

	bot := NewBot(token)
	bot.baseURL = srv.URL

	r := gin.New()
	NewHandler(bot, appURL).RegisterRoutes(r.Group(""))
	return r, fake
}

func postWebhook(r *gin.Engine, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, "/telegram/webhook", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestWebhook_StartSendsWelcomeWithWebAppButton(t *testing.T) {
	r, fake := newTestHandler(t, "test-token", "https://shield.example.com")

	w := postWebhook(r, `{"update_id":1,"message":{"chat":{"id":42},"text":"/start"}}`)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"ok":true`)

	require.True(t, fake.called("sendMessage"))
	sent := string(fake.body["sendMessage"])
	assert.Contains(t, sent, `"chat_id":42`)
	assert.Contains(t, sent, "Welcome to TON Shield")
	assert.Contains(t, sent, `"web_app":{"url":"https://shield.example.com"}`)
}

func TestWebhook_HelpSendsPlainText(t *testing.T) {
	r, fake := newTestHandler(t, "test-token", "https://shield.example.com")

	w := postWebhook(r, `{"update_id":2,"message":{"chat":{"id":7},"text":"/help"}}`)
	require.Equal(t, http.StatusOK, w.Code)

	require.True(t, fake.called("sendMessage"))
	sent := string(fake.body["sendMessage"])
	assert.Contains(t, sent, "TON Shield Help")
	assert.NotContains(t, sent, "reply_markup")
}

func TestWebhook_AlwaysAcknowledges(t *testing.T) {
	r, fake := newTestHandler(t, "test-token", "https://shield.example.com")

	cases := []string{
		`not json at all`,
		`{"update_id":3}`,
		`{"update_id":4,"message":{"chat":{"id":9},"text":"hello"}}`,
	}
	for _, body := range cases {
		w := postWebhook(r, body)
		assert.Equal(t, http.StatusOK, w.Code)
		assert.Contains(t, w.Body.String(), `"ok":true`)
	}
	assert.False(t, fake.called("sendMessage"), "non-commands must not trigger messages")
}

func TestWebhookAdmin_Actions(t *testing.T) {
	r, fake := newTestHandler(t, "test-token", "https://shield.example.com")

	cases := []struct {
		action string
		method string
	}{
		{"set", "setWebhook"},
		{"info", "getWebhookInfo"},
		{"delete", "deleteWebhook"},
		{"commands", "setMyCommands"},
	}
	for _, tc := range cases {
		t.Run(tc.action, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/telegram/webhook?action="+tc.action, nil)
			w := httptest.NewRecorder()
			r.ServeHTTP(w, req)
			require.Equal(t, http.StatusOK, w.Code)
			assert.True(t, fake.called(tc.method))
		})
	}

	// setWebhook must point at the webhook path, not the app root.
	assert.Contains(t, string(fake.body["setWebhook"]), `https://shield.example.com/telegram/webhook`)
}

func TestWebhookAdmin_UnknownActionListsOptions(t *testing.T) {
	r, _ := newTestHandler(t, "test-token", "https://shield.example.com")

	req := httptest.NewRequest(http.MethodGet, "/telegram/webhook", nil)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "available_actions")
}

func TestWebhookAdmin_DisabledBot(t *testing.T) {
	r, _ := newTestHandler(t, "", "https://shield.example.com")

	req := httptest.NewRequest(http.MethodGet, "/telegram/webhook?action=set", nil)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	require.Equal(t, http.StatusServiceUnavailable, w.Code)
	assert.Contains(t, w.Body.String(), "telegram_disabled")
}

func TestSetup_RunsAllSteps(t *testing.T) {
	r, fake := newTestHandler(t, "test-token", "https://shield.example.com")

	req := httptest.NewRequest(http.MethodGet, "/telegram/setup", nil)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	for _, method := range []string{"setMyCommands", "setWebhook", "setChatMenuButton", "getMe", "getWebhookInfo"} {
		assert.True(t, fake.called(method), "expected %s to be called", method)
	}

	var resp map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, true, resp["success"])
	assert.NotNil(t, resp["bot_info"])
}

func TestSetup_RejectsUnsafeAppURL(t *testing.T) {
	cases := []struct {
		name   string
		appURL string
		code   string
	}{
		{"missing", "", "app_url_missing"},
		{"loopback", "http://127.0.0.1:3000", "app_url_invalid"},
		{"localhost", "http://localhost:3000", "app_url_invalid"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			r, _ := newTestHandler(t, "test-token", tc.appURL)
			req := httptest.NewRequest(http.MethodGet, "/telegram/setup", nil)
			w := httptest.NewRecorder()
			r.ServeHTTP(w, req)
			require.Equal(t, http.StatusBadRequest, w.Code)
			assert.Contains(t, w.Body.String(), tc.code)
		})
	}
}
