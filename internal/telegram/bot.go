// Package telegram integrates the service with the Telegram Bot API: the
// webhook receiving bot commands and the one-shot setup flow that registers
// the webhook, commands, and Mini App menu button.
package telegram

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"
)

const defaultAPIBase = "https://api.telegram.org"

// ErrDisabled is returned when no bot token is configured.
var ErrDisabled = errors.New("telegram bot disabled")

// APIResponse is the Bot API envelope. Result is kept raw so callers can
// proxy it through untouched.
type APIResponse struct {
	OK          bool            `json:"ok"`
	Result      json.RawMessage `json:"result,omitempty"`
	Description string          `json:"description,omitempty"`
	ErrorCode   int             `json:"error_code,omitempty"`
}

// BotCommand is one entry of the command menu.
type BotCommand struct {
	Command     string `json:"command"`
	Description string `json:"description"`
}

// Bot is a minimal Telegram Bot API client covering what the service needs.
type Bot struct {
	token      string
	baseURL    string
	httpClient *http.Client
}

// NewBot creates a bot client. An empty token leaves the bot disabled and
// every call returns ErrDisabled.
func NewBot(token string) *Bot {
	return &Bot{
		token:   token,
		baseURL: defaultAPIBase,
		httpClient: &http.Client{
			Timeout: 10 * time.Second,
		},
	}
}

// Enabled reports whether a token is configured.
func (b *Bot) Enabled() bool {
	return b.token != ""
}

// SendMessage sends a text message. replyMarkup may be nil.
func (b *Bot) SendMessage(ctx context.Context, chatID int64, text string, replyMarkup any) (*APIResponse, error) {
	payload := map[string]any{
		"chat_id": chatID,
		"text":    text,
	}
	if replyMarkup != nil {
		payload["reply_markup"] = replyMarkup
	}
	return b.call(ctx, "sendMessage", payload)
}

// SetWebhook points Telegram at the given webhook URL.
func (b *Bot) SetWebhook(ctx context.Context, webhookURL string) (*APIResponse, error) {
	return b.call(ctx, "setWebhook", map[string]any{
		"url":             webhookURL,
		"allowed_updates": []string{"message", "callback_query"},
	})
}

// DeleteWebhook removes the webhook registration.
func (b *Bot) DeleteWebhook(ctx context.Context) (*APIResponse, error) {
	return b.call(ctx, "deleteWebhook", nil)
}

// GetWebhookInfo returns the current webhook registration.
func (b *Bot) GetWebhookInfo(ctx context.Context) (*APIResponse, error) {
	return b.call(ctx, "getWebhookInfo", nil)
}

// SetMyCommands replaces the bot's command menu.
func (b *Bot) SetMyCommands(ctx context.Context, commands []BotCommand) (*APIResponse, error) {
	return b.call(ctx, "setMyCommands", map[string]any{"commands": commands})
}

// SetChatMenuButton sets the Mini App menu button.
func (b *Bot) SetChatMenuButton(ctx context.Context, text, webAppURL string) (*APIResponse, error) {
	return b.call(ctx, "setChatMenuButton", map[string]any{
		"menu_button": map[string]any{
			"type":    "web_app",
			"text":    text,
			"web_app": map[string]string{"url": webAppURL},
		},
	})
}

// GetMe returns the bot's own account info.
func (b *Bot) GetMe(ctx context.Context) (*APIResponse, error) {
	return b.call(ctx, "getMe", nil)
}

func (b *Bot) call(ctx context.Context, method string, payload any) (*APIResponse, error) {
	if !b.Enabled() {
		return nil, ErrDisabled
	}

	var body io.Reader
	if payload != nil {
		data, err := json.Marshal(payload)
		if err != nil {
			return nil, fmt.Errorf("marshal %s payload: %w", method, err)
		}
		body = bytes.NewReader(data)
	}

	u := b.baseURL + "/bot" + b.token + "/" + method
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, u, body)
	if err != nil {
		return nil, err
	}
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := b.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("telegram %s: %w", method, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return nil, fmt.Errorf("telegram %s: read response: %w", method, err)
	}

	var out APIResponse
	if err := json.Unmarshal(data, &out); err != nil {
		return nil, fmt.Errorf("telegram %s: decode response: %w", method, err)
	}
	return &out, nil
}
