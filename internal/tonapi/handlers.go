package tonapi

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/tonshield/tonshield/internal/logging"
	"github.com/tonshield/tonshield/internal/normalize"
	"github.com/tonshield/tonshield/internal/validation"
)

// Event pagination bounds for the proxy endpoint.
const (
	DefaultEventsLimit = 20
	MaxEventsLimit     = 100
)

// Handler proxies selected indexer endpoints to the Mini App so the frontend
// never talks to the indexer directly.
type Handler struct {
	client *Client
}

// NewHandler creates a new indexer proxy handler.
func NewHandler(client *Client) *Handler {
	return &Handler{client: client}
}

// RegisterRoutes sets up the proxy routes.
func (h *Handler) RegisterRoutes(r *gin.RouterGroup) {
	accounts := r.Group("/accounts", validation.AddressParamMiddleware())
	accounts.GET("/:address/events", h.AccountEvents)
	accounts.GET("/:address/connections", h.AccountConnections)
}

// AccountEvents handles GET /v1/accounts/:address/events
func (h *Handler) AccountEvents(c *gin.Context) {
	addr := c.Param("address")

	limit := DefaultEventsLimit
	if raw := c.Query("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 || n > MaxEventsLimit {
			c.JSON(http.StatusBadRequest, gin.H{
				"error":   "invalid_limit",
				"message": "limit must be an integer between 1 and 100",
			})
			return
		}
		limit = n
	}

	var beforeLT int64
	if raw := c.Query("before_lt"); raw != "" {
		n, err := strconv.ParseInt(raw, 10, 64)
		if err != nil || n < 0 {
			c.JSON(http.StatusBadRequest, gin.H{
				"error":   "invalid_before_lt",
				"message": "before_lt must be a non-negative integer",
			})
			return
		}
		beforeLT = n
	}

	page, err := h.client.AccountEvents(c.Request.Context(), addr, limit, beforeLT)
	if err != nil {
		h.upstreamError(c, err)
		return
	}
	c.JSON(http.StatusOK, page)
}

// AccountConnections handles GET /v1/accounts/:address/connections
//
// Each section degrades independently inside the client, so this endpoint
// never fails as a whole when one indexer call does.
func (h *Handler) AccountConnections(c *gin.Context) {
	conns := h.client.AccountConnections(c.Request.Context(), c.Param("address"))
	c.JSON(http.StatusOK, conns)
}

func (h *Handler) upstreamError(c *gin.Context, err error) {
	log := logging.L(c.Request.Context())
	switch {
	case errors.Is(err, normalize.ErrMalformedResponse):
		log.Error("indexer returned malformed response", "error", err)
		c.JSON(http.StatusBadGateway, gin.H{
			"error":   "malformed_upstream_response",
			"message": "Upstream returned data we could not parse",
		})
	case errors.Is(err, normalize.ErrUpstreamUnavailable):
		log.Warn("indexer unavailable", "error", err)
		c.JSON(http.StatusBadGateway, gin.H{
			"error":   "upstream_unavailable",
			"message": "Upstream data source is unavailable, try again later",
		})
	default:
		log.Error("indexer proxy failed", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{
			"error":   "internal_error",
			"message": "Request failed",
		})
	}
}
