package telegram

import (
	"context"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/tonshield/tonshield/internal/logging"
	"github.com/tonshield/tonshield/internal/metrics"
	"github.com/tonshield/tonshield/internal/security"
)

const (
	welcomeText = "🛡️ Welcome to TON Shield!\n\n" +
		"Your AI-powered security scanner for TON blockchain.\n\n" +
		"🔹 Analyze addresses\n🔹 Check transactions\n🔹 Verify tokens\n🔹 Scan links\n\n" +
		"Tap the button below to open the app! 👇"

	helpText = "🛡️ TON Shield Help\n\n" +
		"📱 Use /start to open the app\n" +
		"🔍 Analyze TON addresses, transactions, tokens, and links\n" +
		"🤖 AI-powered scam detection\n" +
		"⚡ Real-time blockchain data\n\n" +
		"Stay safe in the TON ecosystem!"
)

func botCommands() []BotCommand {
	return []BotCommand{
		{Command: "start", Description: "🚀 Launch TON Shield"},
		{Command: "help", Description: "❓ Get help and info"},
	}
}

// Update is the subset of a Telegram update the webhook handles.
type Update struct {
	UpdateID int64 `json:"update_id"`
	Message  *struct {
		Chat struct {
			ID int64 `json:"id"`
		} `json:"chat"`
		Text string `json:"text"`
	} `json:"message"`
}

// Handler provides the webhook and setup endpoints.
type Handler struct {
	bot    *Bot
	appURL string
}

// NewHandler creates a new telegram handler. appURL is the public Mini App
// URL used for the web_app button and webhook registration.
func NewHandler(bot *Bot, appURL string) *Handler {
	return &Handler{bot: bot, appURL: strings.TrimRight(appURL, "/")}
}

// RegisterRoutes sets up the telegram routes.
func (h *Handler) RegisterRoutes(r *gin.RouterGroup) {
	r.POST("/telegram/webhook", h.Webhook)
	r.GET("/telegram/webhook", h.WebhookAdmin)
	r.GET("/telegram/setup", h.Setup)
}

// Webhook handles POST /telegram/webhook. It always answers {ok:true} so
// Telegram never retries an update we have already seen; send failures are
// logged, not surfaced.
func (h *Handler) Webhook(c *gin.Context) {
	ctx := c.Request.Context()

	var update Update
	if err := c.ShouldBindJSON(&update); err != nil {
		logging.L(ctx).Warn("unparseable telegram update", "error", err)
		c.JSON(http.StatusOK, gin.H{"ok": true})
		return
	}

	if update.Message != nil {
		h.handleCommand(ctx, update.Message.Chat.ID, update.Message.Text)
	}
	c.JSON(http.StatusOK, gin.H{"ok": true})
}

func (h *Handler) handleCommand(ctx context.Context, chatID int64, text string) {
	switch text {
	case "/start":
		metrics.TelegramUpdatesTotal.WithLabelValues("start").Inc()
		markup := map[string]any{
			"inline_keyboard": [][]map[string]any{{
				{
					"text":    "🚀 Open TON Shield",
					"web_app": map[string]string{"url": h.appURL},
				},
			}},
		}
		if _, err := h.bot.SendMessage(ctx, chatID, welcomeText, markup); err != nil {
			logging.L(ctx).Warn("welcome message failed", "chat_id", chatID, "error", err)
		}
	case "/help":
		metrics.TelegramUpdatesTotal.WithLabelValues("help").Inc()
		if _, err := h.bot.SendMessage(ctx, chatID, helpText, nil); err != nil {
			logging.L(ctx).Warn("help message failed", "chat_id", chatID, "error", err)
		}
	default:
		metrics.TelegramUpdatesTotal.WithLabelValues("other").Inc()
	}
}

// WebhookAdmin handles GET /telegram/webhook?action=set|info|delete|commands
func (h *Handler) WebhookAdmin(c *gin.Context) {
	if !h.bot.Enabled() {
		c.JSON(http.StatusServiceUnavailable, gin.H{
			"error":   "telegram_disabled",
			"message": "TELEGRAM_BOT_TOKEN is not configured",
		})
		return
	}

	ctx := c.Request.Context()
	var (
		resp *APIResponse
		err  error
	)
	switch c.Query("action") {
	case "set":
		resp, err = h.bot.SetWebhook(ctx, h.appURL+"/telegram/webhook")
	case "info":
		resp, err = h.bot.GetWebhookInfo(ctx)
	case "delete":
		resp, err = h.bot.DeleteWebhook(ctx)
	case "commands":
		resp, err = h.bot.SetMyCommands(ctx, botCommands())
	default:
		c.JSON(http.StatusOK, gin.H{
			"message":           "TON Shield Telegram Bot API",
			"available_actions": []string{"set", "info", "delete", "commands"},
		})
		return
	}

	if err != nil {
		logging.L(ctx).Error("telegram admin action failed", "action", c.Query("action"), "error", err)
		c.JSON(http.StatusBadGateway, gin.H{
			"error":   "telegram_unavailable",
			"message": "Telegram API request failed",
		})
		return
	}
	c.JSON(http.StatusOK, resp)
}

// setupStep records one step of the one-shot configuration flow.
type setupStep struct {
	Step    int          `json:"step"`
	Name    string       `json:"name"`
	Success bool         `json:"success"`
	Data    *APIResponse `json:"data,omitempty"`
	Error   string       `json:"error,omitempty"`
}

// Setup handles GET /telegram/setup: registers commands, the webhook, and
// the Mini App menu button in one pass, then reports bot and webhook state.
func (h *Handler) Setup(c *gin.Context) {
	ctx := c.Request.Context()

	if !h.bot.Enabled() {
		c.JSON(http.StatusServiceUnavailable, gin.H{
			"error":   "telegram_disabled",
			"message": "TELEGRAM_BOT_TOKEN is not configured",
		})
		return
	}
	if h.appURL == "" {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "app_url_missing",
			"message": "APP_URL is not set; point it at your tunnel or deployed URL",
		})
		return
	}
	if err := security.ValidateEndpointURL(h.appURL); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "app_url_invalid",
			"message": "APP_URL is not reachable by Telegram: " + err.Error(),
		})
		return
	}

	steps := []setupStep{
		h.runStep(ctx, 1, "Set Bot Commands", func() (*APIResponse, error) {
			return h.bot.SetMyCommands(ctx, botCommands())
		}),
		h.runStep(ctx, 2, "Set Webhook", func() (*APIResponse, error) {
			return h.bot.SetWebhook(ctx, h.appURL+"/telegram/webhook")
		}),
		h.runStep(ctx, 3, "Set Menu Button (Mini App)", func() (*APIResponse, error) {
			return h.bot.SetChatMenuButton(ctx, "🛡️ TON Shield", h.appURL)
		}),
	}

	success := true
	for _, s := range steps {
		if !s.Success {
			success = false
		}
	}

	result := gin.H{
		"app_url": h.appURL,
		"steps":   steps,
		"success": success,
	}
	if info, err := h.bot.GetMe(ctx); err == nil && info.OK {
		result["bot_info"] = info.Result
	}
	if info, err := h.bot.GetWebhookInfo(ctx); err == nil && info.OK {
		result["webhook_info"] = info.Result
	}
	if success {
		result["message"] = "✅ Bot successfully configured! Open your bot and tap /start"
		c.JSON(http.StatusOK, result)
		return
	}
	result["message"] = "⚠️ Some steps failed. Check the details above."
	c.JSON(http.StatusInternalServerError, result)
}

func (h *Handler) runStep(ctx context.Context, n int, name string, fn func() (*APIResponse, error)) setupStep {
	step := setupStep{Step: n, Name: name}
	resp, err := fn()
	if err != nil {
		logging.L(ctx).Error("telegram setup step failed", "step", name, "error", err)
		step.Error = err.Error()
		return step
	}
	step.Success = resp.OK
	step.Data = resp
	return step
}
