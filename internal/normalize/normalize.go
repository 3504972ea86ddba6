// Package normalize converts raw risk-backend payloads into fully populated
// assessments. Every field of the raw payload is optional; each kind has a
// table of fallback values so the API never returns partial objects. The
// mappers are pure: upstream failures are never normalized away, they surface
// as a *FetchFailure from the caller instead.
package normalize

import (
	"errors"
	"fmt"
	"time"

	"github.com/tonshield/tonshield/internal/risk"
)

// Error classes for upstream fetch failures. A failed fetch is reported to
// the caller, never silently turned into a SAFE assessment.
var (
	// ErrUpstreamUnavailable means the upstream could not be reached or
	// returned a non-2xx status.
	ErrUpstreamUnavailable = errors.New("upstream unavailable")
	// ErrMalformedResponse means the upstream replied but the body could not
	// be decoded.
	ErrMalformedResponse = errors.New("malformed upstream response")
)

// FetchFailure wraps an upstream failure with its error class so handlers can
// log and map unavailability and malformed payloads distinctly.
type FetchFailure struct {
	Upstream string // "tonapi" or "riskapi"
	Class    error  // ErrUpstreamUnavailable or ErrMalformedResponse
	Cause    error
}

func (f *FetchFailure) Error() string {
	return fmt.Sprintf("%s: %v: %v", f.Upstream, f.Class, f.Cause)
}

func (f *FetchFailure) Unwrap() []error {
	if f.Cause == nil {
		return []error{f.Class}
	}
	return []error{f.Class, f.Cause}
}

// Unavailable builds a FetchFailure classed as upstream unavailability.
func Unavailable(upstream string, cause error) *FetchFailure {
	return &FetchFailure{Upstream: upstream, Class: ErrUpstreamUnavailable, Cause: cause}
}

// Malformed builds a FetchFailure classed as a malformed response.
func Malformed(upstream string, cause error) *FetchFailure {
	return &FetchFailure{Upstream: upstream, Class: ErrMalformedResponse, Cause: cause}
}

// Raw is the risk backend's scoring payload. Any subset of fields may be
// absent; the mappers fill in kind-specific defaults.
type Raw struct {
	Score   *int     `json:"risk_score,omitempty"`
	Signals []string `json:"signals,omitempty"`
	Verdict string   `json:"ai_explanation,omitempty"`
}

// AccountData is the subject payload for address and transaction checks.
type AccountData struct {
	Address      string
	Balance      string // nanoton, decimal string; empty means unknown
	IsScam       bool
	IsWallet     bool
	LastActivity time.Time
}

// JettonData is the subject payload for jetton checks.
type JettonData struct {
	Name         string
	Symbol       string
	Decimals     *int
	Image        string
	Description  string
	TotalSupply  string
	HolderCount  int64
	AdminAddress string
	Verification string
}

// LinkData is the subject payload for link checks.
type LinkData struct {
	URL            string
	Domain         string
	IsTelegramLink bool
	BotUsername    string
}

// SignalCategory labels signals wrapped from bare upstream strings.
const SignalCategory = "Risk Signal"

// SignalPoints is the fixed weight assigned to each wrapped signal.
const SignalPoints = 10

// Fallback values applied when the upstream omits a field.
const (
	DefaultBalance  = "0"
	DefaultName     = "Unknown"
	DefaultSymbol   = "???"
	DefaultDecimals = 9
)

// recommendations maps kind and level to the templated recommendation text.
// Levels without an entry fall back to the kind's defaultRec.
var recommendations = map[risk.Kind]struct {
	critical   string
	warning    string
	defaultRec string
}{
	risk.KindAddress: {
		critical:   "Do not interact with this address",
		warning:    "Proceed with caution",
		defaultRec: "Safe to interact",
	},
	risk.KindJetton: {
		critical:   "Potential scam token - avoid interaction",
		warning:    "Proceed with caution",
		defaultRec: "Safe to interact",
	},
	risk.KindLink: {
		critical:   "Do not visit this link - likely phishing",
		warning:    "Proceed with caution",
		defaultRec: "Proceed with caution",
	},
	risk.KindTransaction: {
		critical:   "Do not proceed with this transaction",
		warning:    "Proceed with caution",
		defaultRec: "Proceed with caution",
	},
}

// Recommendation returns the templated recommendation for a kind and level.
func Recommendation(kind risk.Kind, level risk.Level) string {
	rec, ok := recommendations[kind]
	if !ok {
		return "Proceed with caution"
	}
	switch level {
	case risk.LevelCritical:
		return rec.critical
	case risk.LevelWarning:
		return rec.warning
	default:
		return rec.defaultRec
	}
}

// Address maps a raw scoring payload plus account data into an assessment.
func Address(target string, acct AccountData, raw Raw) risk.Assessment {
	a := base(risk.KindAddress, target, raw)
	a.Account = accountInfo(target, acct)
	return a
}

// Jetton maps a raw scoring payload plus jetton metadata into an assessment.
func Jetton(target string, meta JettonData, raw Raw) risk.Assessment {
	a := base(risk.KindJetton, target, raw)

	decimals := DefaultDecimals
	if meta.Decimals != nil {
		decimals = *meta.Decimals
	}
	a.Jetton = &risk.JettonInfo{
		Name:         defaultStr(meta.Name, DefaultName),
		Symbol:       defaultStr(meta.Symbol, DefaultSymbol),
		Decimals:     decimals,
		Image:        meta.Image,
		Description:  meta.Description,
		TotalSupply:  meta.TotalSupply,
		HolderCount:  meta.HolderCount,
		AdminAddress: meta.AdminAddress,
		Verification: meta.Verification,
	}
	return a
}

// Link maps a raw scoring payload plus link data into an assessment.
// A link is flagged as phishing exactly when its level is CRITICAL.
func Link(data LinkData, raw Raw) risk.Assessment {
	a := base(risk.KindLink, data.URL, raw)
	a.Link = &risk.LinkInfo{
		URL:            data.URL,
		Domain:         data.Domain,
		IsPhishing:     a.Level == risk.LevelCritical,
		IsTelegramLink: data.IsTelegramLink,
		BotUsername:    data.BotUsername,
	}
	return a
}

// Transaction maps a raw scoring payload plus the target account data into an
// assessment. The target account rides in the Account field.
func Transaction(target string, acct AccountData, raw Raw) risk.Assessment {
	a := base(risk.KindTransaction, target, raw)
	a.Account = accountInfo(target, acct)
	return a
}

// base builds the kind-independent part of an assessment: clamped score,
// derived level, wrapped signals, and templated summary.
func base(kind risk.Kind, target string, raw Raw) risk.Assessment {
	score := 0
	if raw.Score != nil {
		score = risk.ClampScore(*raw.Score)
	}
	level := risk.LevelForScore(score)

	return risk.Assessment{
		Kind:    kind,
		Target:  target,
		Level:   level,
		Score:   score,
		Signals: wrapSignals(raw.Signals, score),
		Summary: risk.Summary{
			Verdict:        defaultStr(raw.Verdict, risk.PlaceholderVerdict),
			KeyRisks:       keyRisks(raw.Signals),
			Recommendation: Recommendation(kind, level),
		},
		CreatedAt: time.Now().UTC(),
	}
}

// wrapSignals converts bare upstream signal strings into Signal values,
// one to one and order-preserving. Severity is inferred once from the overall
// score, not per signal.
func wrapSignals(signals []string, score int) []risk.Signal {
	severity := risk.SeverityForScore(score)
	out := make([]risk.Signal, 0, len(signals))
	for _, s := range signals {
		out = append(out, risk.Signal{
			Category: SignalCategory,
			Severity: severity,
			Message:  s,
			Points:   SignalPoints,
		})
	}
	return out
}

// keyRisks copies the signal strings into the summary's key risk list.
func keyRisks(signals []string) []string {
	out := make([]string, len(signals))
	copy(out, signals)
	return out
}

func accountInfo(target string, acct AccountData) *risk.AccountInfo {
	addr := defaultStr(acct.Address, target)
	return &risk.AccountInfo{
		Address:      addr,
		IsWallet:     acct.IsWallet,
		IsScam:       acct.IsScam,
		Balance:      defaultStr(acct.Balance, DefaultBalance),
		LastActivity: acct.LastActivity,
	}
}

func defaultStr(v, fallback string) string {
	if v == "" {
		return fallback
	}
	return v
}
