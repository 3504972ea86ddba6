package analyze

import (
	"net"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/tonshield/tonshield/internal/normalize"
	"github.com/tonshield/tonshield/internal/risk"
)

// localResult is the output of the heuristic scorer used when the risk
// backend is disabled or unreachable.
type localResult struct {
	Score    int
	Signals  []risk.Signal
	Verdict  string
	KeyRisks []string
}

const nanotonPerTON = 1_000_000_000

// scoreAddress applies the account heuristics: a scam flag dominates,
// zero or dust balances add smaller penalties.
func scoreAddress(acct normalize.AccountData, unavailable bool) localResult {
	var r localResult

	balance, _ := strconv.ParseInt(acct.Balance, 10, 64)

	if unavailable {
		r.addSignal("Data Availability", risk.SeverityMedium, "Account data unavailable, assessment is partial", 0)
		r.KeyRisks = append(r.KeyRisks, "Account data could not be verified")
	}

	if acct.IsScam {
		r.addSignal("Scam Detection", risk.SeverityHigh, "This address is flagged as a known scam", 80)
		r.Verdict = "WARNING: This address is flagged as a known scam!"
		r.KeyRisks = append(r.KeyRisks, "Address is on the scam list")
	}

	switch {
	case balance == 0:
		r.addSignal("Balance Check", risk.SeverityLow, "Wallet has zero balance", 10)
		r.KeyRisks = append(r.KeyRisks, "Zero balance - newly created or inactive wallet")
	case balance < nanotonPerTON:
		r.addSignal("Balance Check", risk.SeverityLow, "Wallet has very low balance (< 1 TON)", 5)
	}

	if r.Verdict == "" {
		r.Verdict = "This wallet appears to be safe. It shows normal activity patterns and has no red flags."
	}
	return r
}

// scoreJetton applies the token heuristics: retained admin rights, a thin
// holder base, and missing verification each add risk; a blacklisted token
// dominates.
func scoreJetton(meta normalize.JettonData) localResult {
	var r localResult

	if meta.Verification == "blacklist" {
		r.addSignal("Verification", risk.SeverityHigh, "Token is blacklisted by the indexer", 80)
		r.KeyRisks = append(r.KeyRisks, "Token is on the blacklist")
		r.Verdict = "WARNING: This token is blacklisted!"
	} else if meta.Verification != "whitelist" {
		r.addSignal("Verification", risk.SeverityMedium, "Token is not verified", 20)
		r.KeyRisks = append(r.KeyRisks, "Unverified token")
	}

	if meta.AdminAddress != "" {
		r.addSignal("Admin Rights", risk.SeverityMedium, "Admin rights are not revoked, supply can be changed", 30)
		r.KeyRisks = append(r.KeyRisks, "Admin can mint or freeze the token")
	}

	if meta.HolderCount > 0 && meta.HolderCount < 100 {
		r.addSignal("Holders", risk.SeverityMedium, "Very few holders detected", 25)
		r.KeyRisks = append(r.KeyRisks, "Thin holder base")
	}

	if r.Verdict == "" {
		if r.Score == 0 {
			r.Verdict = "This token looks established: verified, widely held, with revoked admin rights."
		} else {
			r.Verdict = "This token has some risk factors. Review the signals before interacting."
		}
	}
	return r
}

// suspiciousKeywords are common bait words in TON phishing URLs.
var suspiciousKeywords = []string{"airdrop", "claim", "giveaway", "free-ton", "bonus", "double"}

// scoreLink applies the URL heuristics: plain http, raw IP hosts, punycode
// tricks, and bait keywords.
func scoreLink(u *url.URL) localResult {
	var r localResult

	if u.Scheme == "http" {
		r.addSignal("Transport", risk.SeverityMedium, "Link uses plain http, traffic can be intercepted", 30)
		r.KeyRisks = append(r.KeyRisks, "No TLS")
	}

	host := u.Hostname()
	if net.ParseIP(host) != nil {
		r.addSignal("Domain", risk.SeverityHigh, "Link points to a raw IP address instead of a domain", 40)
		r.KeyRisks = append(r.KeyRisks, "Raw IP host")
	}

	if strings.Contains(host, "xn--") {
		r.addSignal("Domain", risk.SeverityHigh, "Punycode domain can imitate a well-known site", 40)
		r.KeyRisks = append(r.KeyRisks, "Punycode domain")
	}

	lowered := strings.ToLower(u.String())
	for _, kw := range suspiciousKeywords {
		if strings.Contains(lowered, kw) {
			r.addSignal("Content", risk.SeverityMedium, "Link contains a suspicious keyword: "+kw, 20)
			r.KeyRisks = append(r.KeyRisks, "Bait keyword in URL")
			break
		}
	}

	if r.Score == 0 {
		r.Verdict = "This URL appears to be safe. No phishing or malicious indicators detected."
	} else {
		r.Verdict = "This URL has risk indicators. Verify the destination before opening it."
	}
	return r
}

// scoreTransaction reuses the account heuristics on the target and adds an
// amount check.
func scoreTransaction(target normalize.AccountData, amountNanoton string, unavailable bool) localResult {
	r := scoreAddress(target, unavailable)
	r.Verdict = ""

	if amountNanoton != "" {
		amount, err := strconv.ParseInt(amountNanoton, 10, 64)
		if err == nil && amount > 100*nanotonPerTON {
			r.addSignal("Amount Check", risk.SeverityLow, "Large transaction amount (> 100 TON)", 10)
			r.KeyRisks = append(r.KeyRisks, "Large amount")
		}
	}

	if target.IsScam {
		r.Verdict = "WARNING: The target address is flagged as a known scam!"
	} else if r.Score == 0 {
		r.Verdict = "No risk factors detected for this transaction."
	} else {
		r.Verdict = "This transaction has some risk factors. Please review the signals before proceeding."
	}
	return r
}

func (r *localResult) addSignal(category string, severity risk.Severity, message string, points int) {
	r.Signals = append(r.Signals, risk.Signal{
		Category: category,
		Severity: severity,
		Message:  message,
		Points:   points,
	})
	r.Score = risk.ClampScore(r.Score + points)
}

// assemble turns a local scoring result into a full assessment, deriving the
// level from the shared thresholds and the recommendation from the shared
// templates.
func (r localResult) assemble(kind risk.Kind, target string) risk.Assessment {
	level := risk.LevelForScore(r.Score)
	signals := r.Signals
	if signals == nil {
		signals = []risk.Signal{}
	}
	keyRisks := r.KeyRisks
	if keyRisks == nil {
		keyRisks = []string{}
	}
	return risk.Assessment{
		Kind:    kind,
		Target:  target,
		Level:   level,
		Score:   r.Score,
		Signals: signals,
		Summary: risk.Summary{
			Verdict:        r.Verdict,
			KeyRisks:       keyRisks,
			Recommendation: normalize.Recommendation(kind, level),
		},
		CreatedAt: time.Now().UTC(),
	}
}
