package mcpserver

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"
)

// Handlers holds the handler functions for each MCP tool.
type Handlers struct {
	client *ShieldClient
}

// NewHandlers creates a new Handlers instance.
func NewHandlers(client *ShieldClient) *Handlers {
	return &Handlers{client: client}
}

// HandleAnalyzeAddress checks a TON address.
func (h *Handlers) HandleAnalyzeAddress(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	address := req.GetString("address", "")
	if address == "" {
		return mcp.NewToolResultError("address is required"), nil
	}

	raw, err := h.client.AnalyzeAddress(ctx, address)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("Address check failed: %v", err)), nil
	}

	text, err := formatAssessment(raw)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("Failed to parse result: %v", err)), nil
	}
	return mcp.NewToolResultText(text), nil
}

// HandleAnalyzeJetton checks a jetton master contract.
func (h *Handlers) HandleAnalyzeJetton(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	address := req.GetString("address", "")
	if address == "" {
		return mcp.NewToolResultError("address is required"), nil
	}

	raw, err := h.client.AnalyzeJetton(ctx, address)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("Jetton check failed: %v", err)), nil
	}

	text, err := formatAssessment(raw)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("Failed to parse result: %v", err)), nil
	}
	return mcp.NewToolResultText(text), nil
}

// HandleAnalyzeLink checks a URL for phishing indicators.
func (h *Handlers) HandleAnalyzeLink(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	rawURL := req.GetString("url", "")
	if rawURL == "" {
		return mcp.NewToolResultError("url is required"), nil
	}

	raw, err := h.client.AnalyzeLink(ctx, rawURL)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("Link check failed: %v", err)), nil
	}

	text, err := formatAssessment(raw)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("Failed to parse result: %v", err)), nil
	}
	return mcp.NewToolResultText(text), nil
}

// HandleAnalyzeTransaction assesses a pending transaction.
func (h *Handlers) HandleAnalyzeTransaction(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	userWallet := req.GetString("user_wallet", "")
	if userWallet == "" {
		return mcp.NewToolResultError("user_wallet is required"), nil
	}
	targetAddress := req.GetString("target_address", "")
	if targetAddress == "" {
		return mcp.NewToolResultError("target_address is required"), nil
	}
	amount := req.GetString("amount_nanoton", "")
	payload := req.GetString("payload_boc", "")

	raw, err := h.client.AnalyzeTransaction(ctx, userWallet, targetAddress, amount, payload)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("Transaction check failed: %v", err)), nil
	}

	text, err := formatAssessment(raw)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("Failed to parse result: %v", err)), nil
	}
	return mcp.NewToolResultText(text), nil
}

// HandleGetHistory lists past checks.
func (h *Handlers) HandleGetHistory(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	kind := req.GetString("kind", "")
	level := req.GetString("risk_level", "")
	limit := req.GetInt("limit", 20)

	raw, err := h.client.GetHistory(ctx, kind, level, limit)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("Failed to load history: %v", err)), nil
	}

	text, err := formatHistory(raw)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("Failed to parse history: %v", err)), nil
	}
	return mcp.NewToolResultText(text), nil
}

// HandleGetDashboard returns the security overview.
func (h *Handlers) HandleGetDashboard(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	raw, err := h.client.GetDashboard(ctx)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("Failed to load dashboard: %v", err)), nil
	}

	text, err := formatDashboard(raw)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("Failed to parse dashboard: %v", err)), nil
	}
	return mcp.NewToolResultText(text), nil
}

// --- Formatting helpers ---

type assessmentView struct {
	Kind    string `json:"kind"`
	Target  string `json:"target"`
	Level   string `json:"risk_level"`
	Score   int    `json:"risk_score"`
	Signals []struct {
		Category string `json:"category"`
		Severity string `json:"severity"`
		Message  string `json:"message"`
		Points   int    `json:"points"`
	} `json:"signals"`
	Summary struct {
		Verdict        string   `json:"verdict"`
		KeyRisks       []string `json:"key_risks"`
		Recommendation string   `json:"recommendation"`
	} `json:"ai_summary"`
	Jetton *struct {
		Name         string `json:"name"`
		Symbol       string `json:"symbol"`
		HolderCount  int64  `json:"holder_count"`
		Verification string `json:"verification"`
	} `json:"jetton_info"`
	Link *struct {
		Domain         string `json:"domain"`
		IsPhishing     bool   `json:"is_phishing"`
		IsTelegramLink bool   `json:"is_telegram_link"`
	} `json:"link_info"`
	HistorySaved *bool `json:"history_saved"`
}

func levelBadge(level string) string {
	switch level {
	case "CRITICAL":
		return "🔴 CRITICAL"
	case "WARNING":
		return "🟡 WARNING"
	default:
		return "🟢 SAFE"
	}
}

func formatAssessment(raw json.RawMessage) (string, error) {
	var a assessmentView
	if err := json.Unmarshal(raw, &a); err != nil {
		return "", err
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "%s check: %s\n", capitalize(a.Kind), a.Target)
	fmt.Fprintf(&sb, "Risk: %s (score %d/100)\n", levelBadge(a.Level), a.Score)

	if a.Jetton != nil {
		fmt.Fprintf(&sb, "Token: %s (%s) | Holders: %d | Verification: %s\n",
			a.Jetton.Name, a.Jetton.Symbol, a.Jetton.HolderCount, a.Jetton.Verification)
	}
	if a.Link != nil {
		fmt.Fprintf(&sb, "Domain: %s", a.Link.Domain)
		if a.Link.IsPhishing {
			sb.WriteString(" | ⚠️ flagged as phishing")
		}
		if a.Link.IsTelegramLink {
			sb.WriteString(" | Telegram link")
		}
		sb.WriteString("\n")
	}

	if len(a.Signals) > 0 {
		sb.WriteString("\nSignals:\n")
		for _, s := range a.Signals {
			fmt.Fprintf(&sb, "  - [%s] %s: %s (+%d)\n", s.Severity, s.Category, s.Message, s.Points)
		}
	}

	if a.Summary.Verdict != "" {
		fmt.Fprintf(&sb, "\nVerdict: %s\n", a.Summary.Verdict)
	}
	for _, r := range a.Summary.KeyRisks {
		fmt.Fprintf(&sb, "  • %s\n", r)
	}
	if a.Summary.Recommendation != "" {
		fmt.Fprintf(&sb, "Recommendation: %s\n", a.Summary.Recommendation)
	}
	if a.HistorySaved != nil && !*a.HistorySaved {
		sb.WriteString("\nNote: this check could not be saved to history.\n")
	}
	return sb.String(), nil
}

func formatHistory(raw json.RawMessage) (string, error) {
	var resp struct {
		Items []struct {
			Kind      string `json:"type"`
			Target    string `json:"target"`
			Level     string `json:"risk_level"`
			Score     int    `json:"risk_score"`
			Timestamp string `json:"timestamp"`
		} `json:"items"`
		Total int `json:"total"`
	}
	if err := json.Unmarshal(raw, &resp); err != nil {
		return "", err
	}

	if resp.Total == 0 {
		return "No checks in history yet.", nil
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "Showing %d of %d check(s), newest first:\n\n", len(resp.Items), resp.Total)
	for i, e := range resp.Items {
		fmt.Fprintf(&sb, "%d. %s %s — %s (score %d) at %s\n",
			i+1, e.Kind, e.Target, e.Level, e.Score, e.Timestamp)
	}
	return sb.String(), nil
}

func formatDashboard(raw json.RawMessage) (string, error) {
	var resp struct {
		Stats struct {
			Total           int     `json:"total"`
			Safe            int     `json:"safe"`
			Warning         int     `json:"warning"`
			Critical        int     `json:"critical"`
			SafePercent     float64 `json:"safe_percent"`
			CriticalPercent float64 `json:"critical_percent"`
			CheckedToday    int     `json:"checked_today"`
			MostCheckedKind string  `json:"most_checked_kind"`
		} `json:"stats"`
		Timeline []struct {
			Date  string `json:"date"`
			Total int    `json:"total"`
		} `json:"timeline"`
		RecentCritical []struct {
			Kind   string `json:"type"`
			Target string `json:"target"`
			Score  int    `json:"risk_score"`
		} `json:"recent_critical"`
	}
	if err := json.Unmarshal(raw, &resp); err != nil {
		return "", err
	}

	var sb strings.Builder
	sb.WriteString("Security overview:\n")
	fmt.Fprintf(&sb, "  Total checks: %d (today: %d)\n", resp.Stats.Total, resp.Stats.CheckedToday)
	fmt.Fprintf(&sb, "  Safe: %d (%.0f%%) | Warning: %d | Critical: %d (%.0f%%)\n",
		resp.Stats.Safe, resp.Stats.SafePercent,
		resp.Stats.Warning,
		resp.Stats.Critical, resp.Stats.CriticalPercent)
	if resp.Stats.MostCheckedKind != "" {
		fmt.Fprintf(&sb, "  Most checked: %s\n", resp.Stats.MostCheckedKind)
	}

	active := 0
	for _, d := range resp.Timeline {
		if d.Total > 0 {
			active++
		}
	}
	fmt.Fprintf(&sb, "  Active days this week: %d of %d\n", active, len(resp.Timeline))

	if len(resp.RecentCritical) > 0 {
		sb.WriteString("\nRecent critical findings:\n")
		for _, e := range resp.RecentCritical {
			fmt.Fprintf(&sb, "  - %s %s (score %d)\n", e.Kind, e.Target, e.Score)
		}
	}
	return sb.String(), nil
}

func capitalize(s string) string {
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}
