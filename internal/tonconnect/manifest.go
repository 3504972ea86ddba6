// Package tonconnect serves the TON Connect manifest wallets fetch before
// establishing a session with the Mini App.
package tonconnect

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
)

const (
	appName        = "TON Shield AI"
	appDescription = "AI-powered security scanner for TON blockchain"
	iconPath       = "/icon.svg"
)

// Manifest is the document wallets fetch to describe the app.
type Manifest struct {
	URL              string `json:"url"`
	Name             string `json:"name"`
	IconURL          string `json:"iconUrl"`
	TermsOfUseURL    string `json:"termsOfUseUrl"`
	PrivacyPolicyURL string `json:"privacyPolicyUrl"`
	Description      string `json:"description"`
}

// Handler serves the manifest endpoint.
type Handler struct {
	appURL string // configured public URL, may be empty
}

// NewHandler creates a manifest handler. appURL, when set, overrides any
// origin derived from the request.
func NewHandler(appURL string) *Handler {
	return &Handler{appURL: strings.TrimRight(appURL, "/")}
}

// RegisterRoutes sets up the manifest route.
func (h *Handler) RegisterRoutes(r *gin.RouterGroup) {
	r.GET("/tonconnect/manifest", h.Manifest)
}

// Manifest handles GET /tonconnect/manifest
func (h *Handler) Manifest(c *gin.Context) {
	base := h.appURL
	if base == "" {
		base = resolveOrigin(c.Request)
	}

	c.Header("Cache-Control", "public, max-age=600, stale-while-revalidate=86400")
	c.JSON(http.StatusOK, Manifest{
		URL:              base,
		Name:             appName,
		IconURL:          base + iconPath,
		TermsOfUseURL:    base + "/terms",
		PrivacyPolicyURL: base + "/privacy",
		Description:      appDescription,
	})
}

// resolveOrigin derives the public origin from proxy headers, skipping
// loopback hostnames that would produce a manifest wallets cannot reach.
func resolveOrigin(r *http.Request) string {
	proto := firstForwarded(r.Header.Get("X-Forwarded-Proto"))
	if proto == "" {
		proto = "https"
	}

	if host := firstForwarded(r.Header.Get("X-Forwarded-Host")); host != "" && !isLocalHost(host) {
		return proto + "://" + host
	}
	if host := r.Host; host != "" && !isLocalHost(host) {
		return proto + "://" + host
	}
	// Loopback fallback for local development.
	if r.Host != "" {
		return "http://" + r.Host
	}
	return "http://localhost"
}

// firstForwarded takes the first element of a comma-separated forwarded
// header value.
func firstForwarded(v string) string {
	if i := strings.IndexByte(v, ','); i >= 0 {
		v = v[:i]
	}
	return strings.TrimSpace(v)
}

func isLocalHost(host string) bool {
	if i := strings.LastIndexByte(host, ':'); i >= 0 && !strings.Contains(host[i:], "]") {
		host = host[:i]
	}
	host = strings.ToLower(strings.Trim(host, "[]"))
	return host == "localhost" || host == "127.0.0.1" || host == "::1"
}
