// Package analyze orchestrates risk checks: it gathers subject data from the
// chain indexer, scores it via the risk backend (falling back to the local
// heuristics), normalizes the result, and records it in the user's history.
package analyze

import (
	"context"
	"errors"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/tonshield/tonshield/internal/history"
	"github.com/tonshield/tonshield/internal/logging"
	"github.com/tonshield/tonshield/internal/metrics"
	"github.com/tonshield/tonshield/internal/normalize"
	"github.com/tonshield/tonshield/internal/risk"
	"github.com/tonshield/tonshield/internal/riskapi"
	"github.com/tonshield/tonshield/internal/tonapi"
	"github.com/tonshield/tonshield/internal/traces"
)

// Notifier receives completed checks for realtime distribution. Stale
// results are never delivered.
type Notifier interface {
	CheckCompleted(a risk.Assessment)
}

// Outcome is an assessment plus the persistence verdict. HistorySaved is nil
// when persistence was not attempted (anonymous caller, non-persisted kind,
// or a stale result), false when the append failed.
type Outcome struct {
	risk.Assessment
	HistorySaved *bool `json:"history_saved,omitempty"`
}

// TransactionRequest describes a pending outgoing transaction to assess.
type TransactionRequest struct {
	UserWallet    string `json:"user_wallet" binding:"required"`
	TargetAddress string `json:"target_address" binding:"required"`
	AmountNanoton string `json:"amount_nanoton"`
	PayloadBOC    string `json:"payload_boc"`
	OriginDomain  string `json:"origin_domain"`
}

// Service runs the per-kind analyses.
type Service struct {
	ton     *tonapi.Client
	backend *riskapi.Client
	hist    *history.Store
	notify  Notifier
	gens    *Generations
}

// NewService creates the analyze service. notify may be nil.
func NewService(ton *tonapi.Client, backend *riskapi.Client, hist *history.Store, notify Notifier) *Service {
	return &Service{
		ton:     ton,
		backend: backend,
		hist:    hist,
		notify:  notify,
		gens:    NewGenerations(),
	}
}

// Address analyzes a TON account address. Indexer failure degrades to a
// neutral account view with an explicit unavailability signal so the failure
// never presents as a clean SAFE.
func (s *Service) Address(ctx context.Context, userKey, addr string) (Outcome, error) {
	ctx, span := traces.StartSpan(ctx, "analyze.address", traces.CheckKind("address"), traces.Target(addr))
	defer span.End()
	timer := prometheus.NewTimer(metrics.CheckDuration.WithLabelValues("address"))
	defer timer.ObserveDuration()

	gen := s.nextGen(userKey, risk.KindAddress)

	acct, unavailable := s.fetchAccount(ctx, addr)

	var a risk.Assessment
	raw, err := s.scoreRemote(ctx, risk.KindAddress, map[string]any{
		"address":         addr,
		"balance_nanoton": acct.Balance,
		"is_scam":         acct.IsScam,
	})
	if err == nil {
		a = normalize.Address(addr, acct, raw)
		if unavailable {
			a.Signals = append(a.Signals, unavailableSignal())
		}
	} else {
		local := scoreAddress(acct, unavailable)
		a = local.assemble(risk.KindAddress, addr)
		a.Account = accountInfo(addr, acct)
	}

	return s.finish(ctx, userKey, gen, a, true), nil
}

// Jetton analyzes a jetton master address. Unlike account lookups, indexer
// failure here is surfaced to the caller: there is no meaningful neutral
// jetton.
func (s *Service) Jetton(ctx context.Context, userKey, addr string) (Outcome, error) {
	ctx, span := traces.StartSpan(ctx, "analyze.jetton", traces.CheckKind("jetton"), traces.Target(addr))
	defer span.End()
	timer := prometheus.NewTimer(metrics.CheckDuration.WithLabelValues("jetton"))
	defer timer.ObserveDuration()

	gen := s.nextGen(userKey, risk.KindJetton)

	j, err := s.ton.JettonInfo(ctx, addr)
	if err != nil {
		return Outcome{}, err
	}

	meta := normalize.JettonData{
		Name:         j.Metadata.Name,
		Symbol:       j.Metadata.Symbol,
		Decimals:     j.DecimalsOrDefault(),
		Image:        j.Metadata.Image,
		Description:  j.Metadata.Description,
		TotalSupply:  j.TotalSupply,
		HolderCount:  j.HolderCount,
		AdminAddress: j.Admin.Address,
		Verification: j.Verification,
	}

	var a risk.Assessment
	raw, err := s.scoreRemote(ctx, risk.KindJetton, map[string]any{
		"address":      addr,
		"verification": j.Verification,
		"holder_count": j.HolderCount,
		"has_admin":    j.Admin.Address != "",
	})
	if err == nil {
		a = normalize.Jetton(addr, meta, raw)
	} else {
		local := scoreJetton(meta)
		a = local.assemble(risk.KindJetton, addr)
		decimals := normalize.DefaultDecimals
		if meta.Decimals != nil {
			decimals = *meta.Decimals
		}
		a.Jetton = &risk.JettonInfo{
			Name:         nonEmpty(meta.Name, normalize.DefaultName),
			Symbol:       nonEmpty(meta.Symbol, normalize.DefaultSymbol),
			Decimals:     decimals,
			Image:        meta.Image,
			Description:  meta.Description,
			TotalSupply:  meta.TotalSupply,
			HolderCount:  meta.HolderCount,
			AdminAddress: meta.AdminAddress,
			Verification: meta.Verification,
		}
	}

	return s.finish(ctx, userKey, gen, a, true), nil
}

// Link analyzes a URL. The URL is already validated by the handler.
func (s *Service) Link(ctx context.Context, userKey, rawURL string) (Outcome, error) {
	ctx, span := traces.StartSpan(ctx, "analyze.link", traces.CheckKind("link"))
	defer span.End()
	timer := prometheus.NewTimer(metrics.CheckDuration.WithLabelValues("link"))
	defer timer.ObserveDuration()

	gen := s.nextGen(userKey, risk.KindLink)

	u, err := url.Parse(rawURL)
	if err != nil {
		return Outcome{}, err
	}
	isTG, bot := telegramLink(u)
	data := normalize.LinkData{
		URL:            rawURL,
		Domain:         u.Hostname(),
		IsTelegramLink: isTG,
		BotUsername:    bot,
	}

	var a risk.Assessment
	raw, err := s.scoreRemote(ctx, risk.KindLink, map[string]any{
		"url":    rawURL,
		"domain": data.Domain,
	})
	if err == nil {
		a = normalize.Link(data, raw)
	} else {
		local := scoreLink(u)
		a = local.assemble(risk.KindLink, rawURL)
		a.Link = &risk.LinkInfo{
			URL:            rawURL,
			Domain:         data.Domain,
			IsPhishing:     a.Level == risk.LevelCritical,
			IsTelegramLink: isTG,
			BotUsername:    bot,
		}
	}

	return s.finish(ctx, userKey, gen, a, true), nil
}

// Transaction analyzes a pending transaction against its target account.
// Results are returned but never persisted to history.
func (s *Service) Transaction(ctx context.Context, userKey string, req TransactionRequest) (Outcome, error) {
	ctx, span := traces.StartSpan(ctx, "analyze.transaction", traces.CheckKind("transaction"), traces.Target(req.TargetAddress))
	defer span.End()
	timer := prometheus.NewTimer(metrics.CheckDuration.WithLabelValues("transaction"))
	defer timer.ObserveDuration()

	gen := s.nextGen(userKey, risk.KindTransaction)

	acct, unavailable := s.fetchAccount(ctx, req.TargetAddress)

	var a risk.Assessment
	raw, err := s.scoreRemote(ctx, risk.KindTransaction, map[string]any{
		"user_wallet":    req.UserWallet,
		"target_address": req.TargetAddress,
		"amount_nanoton": req.AmountNanoton,
		"payload_boc":    req.PayloadBOC,
		"origin_domain":  req.OriginDomain,
		"target_is_scam": acct.IsScam,
	})
	if err == nil {
		a = normalize.Transaction(req.TargetAddress, acct, raw)
		if unavailable {
			a.Signals = append(a.Signals, unavailableSignal())
		}
	} else {
		local := scoreTransaction(acct, req.AmountNanoton, unavailable)
		a = local.assemble(risk.KindTransaction, req.TargetAddress)
		a.Account = accountInfo(req.TargetAddress, acct)
	}

	return s.finish(ctx, userKey, gen, a, false), nil
}

// fetchAccount loads the target account, degrading to the neutral view
// (zero balance, not scam) when the indexer fails.
func (s *Service) fetchAccount(ctx context.Context, addr string) (normalize.AccountData, bool) {
	acct, err := s.ton.Account(ctx, addr)
	if err != nil {
		logging.L(ctx).Warn("account lookup failed, using neutral fallback", "address", addr, "error", err)
		return normalize.AccountData{Address: addr, Balance: "0"}, true
	}

	data := normalize.AccountData{
		Address:  nonEmpty(acct.Address, addr),
		Balance:  strconv.FormatInt(acct.BalanceNanoton, 10),
		IsScam:   acct.IsScam,
		IsWallet: acct.IsWallet || len(acct.Interfaces) == 0,
	}
	if acct.LastActivity > 0 {
		data.LastActivity = time.Unix(acct.LastActivity, 0).UTC()
	}
	return data, false
}

// scoreRemote asks the risk backend for a score. Any error, including the
// backend being disabled, routes the caller to the local scorer.
func (s *Service) scoreRemote(ctx context.Context, kind risk.Kind, subject map[string]any) (normalize.Raw, error) {
	raw, err := s.backend.Analyze(ctx, kind, subject)
	if err != nil {
		metrics.LocalScoringFallbacksTotal.WithLabelValues(string(kind)).Inc()
		if !errors.Is(err, riskapi.ErrDisabled) {
			logging.L(ctx).Warn("risk backend unavailable, using local scorer", "kind", kind, "error", err)
		}
		return normalize.Raw{}, err
	}
	return raw, nil
}

// finish records metrics and, for current results only, persists and
// broadcasts. Stale results are returned to their caller untouched.
func (s *Service) finish(ctx context.Context, userKey string, gen uint64, a risk.Assessment, persist bool) Outcome {
	metrics.ChecksTotal.WithLabelValues(string(a.Kind), string(a.Level)).Inc()

	if gen > 0 && !s.gens.IsCurrent(userKey, a.Kind, gen) {
		metrics.StaleResultsTotal.WithLabelValues(string(a.Kind)).Inc()
		logging.L(ctx).Debug("stale result, skipping persist and broadcast",
			"user_key", userKey, "kind", a.Kind, "generation", gen)
		return Outcome{Assessment: a}
	}

	if s.notify != nil {
		s.notify.CheckCompleted(a)
	}

	out := Outcome{Assessment: a}
	if !persist || userKey == "" {
		return out
	}

	_, err := s.hist.Append(ctx, userKey, history.Entry{
		Kind:    a.Kind,
		Target:  a.Target,
		Level:   a.Level,
		Score:   a.Score,
		Summary: a.Summary.Verdict,
	})
	saved := err == nil
	if err != nil {
		logging.L(ctx).Error("history append failed", "user_key", userKey, "kind", a.Kind, "error", err)
	}
	out.HistorySaved = &saved
	return out
}

func (s *Service) nextGen(userKey string, kind risk.Kind) uint64 {
	if userKey == "" {
		return 0
	}
	return s.gens.Next(userKey, kind)
}

// telegramLink reports whether the URL points into Telegram and extracts the
// bot username when the first path segment looks like one.
func telegramLink(u *url.URL) (bool, string) {
	host := strings.ToLower(u.Hostname())
	if host != "t.me" && host != "telegram.me" && host != "telegram.dog" {
		return false, ""
	}
	seg := strings.TrimPrefix(u.Path, "/")
	if i := strings.IndexByte(seg, '/'); i >= 0 {
		seg = seg[:i]
	}
	if strings.HasSuffix(strings.ToLower(seg), "bot") {
		return true, seg
	}
	return true, ""
}

func unavailableSignal() risk.Signal {
	return risk.Signal{
		Category: "Data Availability",
		Severity: risk.SeverityMedium,
		Message:  "Account data unavailable, assessment is partial",
		Points:   0,
	}
}

func accountInfo(target string, acct normalize.AccountData) *risk.AccountInfo {
	return &risk.AccountInfo{
		Address:      nonEmpty(acct.Address, target),
		IsWallet:     acct.IsWallet,
		IsScam:       acct.IsScam,
		Balance:      nonEmpty(acct.Balance, normalize.DefaultBalance),
		LastActivity: acct.LastActivity,
	}
}

func nonEmpty(v, fallback string) string {
	if v == "" {
		return fallback
	}
	return v
}
