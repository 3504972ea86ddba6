package riskapi

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/tonshield/tonshield/internal/normalize"
	"github.com/tonshield/tonshield/internal/risk"
)

func TestAnalyze_Disabled(t *testing.T) {
	c := New("")
	if c.Enabled() {
		t.Error("empty baseURL should disable the client")
	}
	_, err := c.Analyze(context.Background(), risk.KindAddress, nil)
	if !errors.Is(err, ErrDisabled) {
		t.Fatalf("expected ErrDisabled, got %v", err)
	}
}

func TestAnalyze_Success(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v1/analyze" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		var req struct {
			Kind    string         `json:"kind"`
			Subject map[string]any `json:"subject"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Fatalf("bad request body: %v", err)
		}
		if req.Kind != "address" {
			t.Errorf("kind = %s, want address", req.Kind)
		}
		w.Write([]byte(`{"risk_score":75,"signals":["flagged as scam"],"ai_explanation":"Known scam address"}`))
	}))
	defer srv.Close()

	c := New(srv.URL)
	raw, err := c.Analyze(context.Background(), risk.KindAddress, map[string]any{"address": "EQtest"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if raw.Score == nil || *raw.Score != 75 {
		t.Errorf("Score = %v, want 75", raw.Score)
	}
	if len(raw.Signals) != 1 || raw.Signals[0] != "flagged as scam" {
		t.Errorf("Signals = %v", raw.Signals)
	}
	if raw.Verdict != "Known scam address" {
		t.Errorf("Verdict = %q", raw.Verdict)
	}
}

func TestAnalyze_PartialPayload(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{}`))
	}))
	defer srv.Close()

	c := New(srv.URL)
	raw, err := c.Analyze(context.Background(), risk.KindLink, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if raw.Score != nil || raw.Signals != nil || raw.Verdict != "" {
		t.Errorf("empty payload should decode to zero Raw, got %+v", raw)
	}
}

func TestAnalyze_Unavailable(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	c := New(srv.URL)
	_, err := c.Analyze(context.Background(), risk.KindJetton, nil)
	if !errors.Is(err, normalize.ErrUpstreamUnavailable) {
		t.Fatalf("expected ErrUpstreamUnavailable, got %v", err)
	}
}

func TestAnalyze_Malformed(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`<html>gateway error</html>`))
	}))
	defer srv.Close()

	c := New(srv.URL)
	_, err := c.Analyze(context.Background(), risk.KindTransaction, nil)
	if !errors.Is(err, normalize.ErrMalformedResponse) {
		t.Fatalf("expected ErrMalformedResponse, got %v", err)
	}
}
