package mcpserver

import "github.com/mark3labs/mcp-go/mcp"

// Tool definitions for the TON Shield MCP server.
// Descriptions are what the LLM reads to decide which tool to use.

var ToolAnalyzeAddress = mcp.NewTool("analyze_address",
	mcp.WithDescription(
		"Run a security check on a TON wallet or contract address. "+
			"Returns a 0-100 risk score, a SAFE/WARNING/CRITICAL level, the individual "+
			"risk signals (scam flags, balance anomalies), and a recommendation."),
	mcp.WithString("address",
		mcp.Required(),
		mcp.Description("TON address in friendly (EQ.../UQ...) or raw (0:hex) form")),
)

var ToolAnalyzeJetton = mcp.NewTool("analyze_jetton",
	mcp.WithDescription(
		"Run a security check on a TON jetton (token) by its master contract address. "+
			"Checks verification status, admin rights, and holder distribution, and returns "+
			"the token metadata alongside the risk assessment."),
	mcp.WithString("address",
		mcp.Required(),
		mcp.Description("Jetton master contract address")),
)

var ToolAnalyzeLink = mcp.NewTool("analyze_link",
	mcp.WithDescription(
		"Run a phishing check on a URL before opening it. "+
			"Detects plain-http transport, raw IP hosts, punycode lookalike domains, and "+
			"common TON bait keywords, and flags Telegram bot links."),
	mcp.WithString("url",
		mcp.Required(),
		mcp.Description("Absolute http(s) URL to check")),
)

var ToolAnalyzeTransaction = mcp.NewTool("analyze_transaction",
	mcp.WithDescription(
		"Assess a pending TON transaction before signing it. "+
			"Checks the target address against scam lists and flags unusually large transfers. "+
			"Transaction checks are never stored in history."),
	mcp.WithString("user_wallet",
		mcp.Required(),
		mcp.Description("The sender's TON address")),
	mcp.WithString("target_address",
		mcp.Required(),
		mcp.Description("The recipient's TON address")),
	mcp.WithString("amount_nanoton",
		mcp.Description("Transfer amount in nanoton (1 TON = 1000000000 nanoton)")),
	mcp.WithString("payload_boc",
		mcp.Description("Optional base64 BOC payload attached to the transaction")),
)

var ToolGetHistory = mcp.NewTool("get_history",
	mcp.WithDescription(
		"List the user's past security checks, newest first. "+
			"Optionally filter by check kind or risk level."),
	mcp.WithString("kind",
		mcp.Description("Filter by check kind"),
		mcp.Enum("address", "jetton", "link", "transaction")),
	mcp.WithString("risk_level",
		mcp.Description("Filter by risk level"),
		mcp.Enum("SAFE", "WARNING", "CRITICAL")),
	mcp.WithNumber("limit",
		mcp.Description("Maximum number of entries to return (default 20)")),
)

var ToolGetDashboard = mcp.NewTool("get_dashboard",
	mcp.WithDescription(
		"Get the user's security overview: lifetime check statistics, a 7-day "+
			"activity timeline, and the most recent critical findings."),
)
