// Package risk defines the canonical risk model shared by every check kind.
//
// Each check (address, jetton, link, transaction) produces the same
// Assessment shape: an integer score in [0, 100], a coarse
// SAFE/WARNING/CRITICAL level, an ordered signal list, and a templated
// summary. LevelForScore is the only place the level thresholds live —
// every component that needs to classify a score must call it, so display
// and classification can never drift apart.
package risk

import "time"

// Kind identifies what was checked.
type Kind string

const (
	KindAddress     Kind = "address"
	KindJetton      Kind = "jetton"
	KindLink        Kind = "link"
	KindTransaction Kind = "transaction"
)

// Valid reports whether k is a known check kind.
func (k Kind) Valid() bool {
	switch k {
	case KindAddress, KindJetton, KindLink, KindTransaction:
		return true
	}
	return false
}

// Level is the coarse risk classification.
type Level string

const (
	LevelSafe     Level = "SAFE"
	LevelWarning  Level = "WARNING"
	LevelCritical Level = "CRITICAL"
)

// Valid reports whether l is a known level.
func (l Level) Valid() bool {
	switch l {
	case LevelSafe, LevelWarning, LevelCritical:
		return true
	}
	return false
}

// Rank orders levels by severity: SAFE < WARNING < CRITICAL.
func (l Level) Rank() int {
	switch l {
	case LevelWarning:
		return 1
	case LevelCritical:
		return 2
	default:
		return 0
	}
}

// Level thresholds. Score >= CriticalThreshold is CRITICAL,
// score >= WarningThreshold is WARNING, anything below is SAFE.
const (
	CriticalThreshold = 70
	WarningThreshold  = 30
)

// LevelForScore classifies a score. This is the single shared threshold
// function; no caller may derive a level any other way.
func LevelForScore(score int) Level {
	switch {
	case score >= CriticalThreshold:
		return LevelCritical
	case score >= WarningThreshold:
		return LevelWarning
	default:
		return LevelSafe
	}
}

// ClampScore bounds a raw upstream score to [0, 100].
func ClampScore(score int) int {
	if score < 0 {
		return 0
	}
	if score > 100 {
		return 100
	}
	return score
}

// Severity grades an individual signal.
type Severity string

const (
	SeverityLow    Severity = "low"
	SeverityMedium Severity = "medium"
	SeverityHigh   Severity = "high"
)

// SeverityForScore infers a signal severity from the overall check score,
// used when the upstream provides bare signal strings with no severity of
// their own. Applied once per check, never per signal.
//
// TODO: the >= 50 cutoff mirrors observed backend behavior but is not a
// documented contract; confirm with the risk-backend team before relying
// on it for anything beyond display.
func SeverityForScore(score int) Severity {
	if score >= 50 {
		return SeverityHigh
	}
	return SeverityMedium
}

// Signal is one discrete risk indicator. Signals keep their upstream
// evaluation order and are never deduplicated.
type Signal struct {
	Category string   `json:"category"`
	Severity Severity `json:"severity"`
	Message  string   `json:"message"`
	Points   int      `json:"points"`
}

// PlaceholderVerdict is rendered when the upstream provides no explanation,
// so the UI never shows a blank verdict.
const PlaceholderVerdict = "No analysis available"

// Summary is the templated verdict block attached to every assessment.
type Summary struct {
	Verdict        string   `json:"verdict"`
	KeyRisks       []string `json:"key_risks"`
	Recommendation string   `json:"recommendation"`
}

// AccountInfo describes the checked account for address and transaction
// checks. Unknown fields default to neutral values (zero balance, not scam).
type AccountInfo struct {
	Address      string    `json:"address"`
	IsWallet     bool      `json:"is_wallet"`
	IsScam       bool      `json:"is_scam"`
	Balance      string    `json:"balance"` // nanoton, decimal string
	LastActivity time.Time `json:"last_activity"`
}

// JettonInfo describes the checked token for jetton checks.
type JettonInfo struct {
	Name         string `json:"name"`
	Symbol       string `json:"symbol"`
	Decimals     int    `json:"decimals"`
	Image        string `json:"image,omitempty"`
	Description  string `json:"description,omitempty"`
	TotalSupply  string `json:"total_supply,omitempty"`
	HolderCount  int64  `json:"holder_count,omitempty"`
	AdminAddress string `json:"admin_address,omitempty"`
	Verification string `json:"verification,omitempty"`
}

// LinkInfo describes the checked URL for link checks.
type LinkInfo struct {
	URL            string `json:"url"`
	Domain         string `json:"domain"`
	IsPhishing     bool   `json:"is_phishing"`
	IsTelegramLink bool   `json:"is_telegram_link"`
	BotUsername    string `json:"bot_username,omitempty"`
}

// Assessment is the canonical, fully populated result of one check.
// Exactly one of Account/Jetton/Link is set, matching Kind (transaction
// checks carry the target account in Account).
type Assessment struct {
	Kind      Kind         `json:"kind"`
	Target    string       `json:"target"`
	Level     Level        `json:"risk_level"`
	Score     int          `json:"risk_score"`
	Signals   []Signal     `json:"signals"`
	Summary   Summary      `json:"ai_summary"`
	Account   *AccountInfo `json:"account_info,omitempty"`
	Jetton    *JettonInfo  `json:"jetton_info,omitempty"`
	Link      *LinkInfo    `json:"link_info,omitempty"`
	CreatedAt time.Time    `json:"created_at"`
}
