package history

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/tonshield/tonshield/internal/logging"
	"github.com/tonshield/tonshield/internal/risk"
)

// DefaultPageSize is the history page size when the client sends no limit.
const DefaultPageSize = 20

// MaxPageSize caps the history page size.
const MaxPageSize = 100

// Handler provides HTTP endpoints for history and stats
type Handler struct {
	store *Store
}

// NewHandler creates a new history handler
func NewHandler(store *Store) *Handler {
	return &Handler{store: store}
}

// RegisterRoutes sets up history routes
func (h *Handler) RegisterRoutes(r *gin.RouterGroup) {
	r.GET("/history/:userId", h.GetHistory)
	r.DELETE("/history/:userId", h.ClearHistory)
	r.GET("/stats/:userId", h.GetStats)
}

// GetHistory handles GET /v1/history/:userId
func (h *Handler) GetHistory(c *gin.Context) {
	userKey := c.Param("userId")

	limit := DefaultPageSize
	if l := c.Query("limit"); l != "" {
		parsed, err := strconv.Atoi(l)
		if err != nil || parsed <= 0 || parsed > MaxPageSize {
			c.JSON(http.StatusBadRequest, gin.H{
				"error":   "invalid_limit",
				"message": "limit must be between 1 and 100",
			})
			return
		}
		limit = parsed
	}

	offset := 0
	if o := c.Query("offset"); o != "" {
		parsed, err := strconv.Atoi(o)
		if err != nil || parsed < 0 {
			c.JSON(http.StatusBadRequest, gin.H{
				"error":   "invalid_offset",
				"message": "offset must be a non-negative integer",
			})
			return
		}
		offset = parsed
	}

	kind := risk.Kind(c.Query("type"))
	if kind != "" && !kind.Valid() {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "invalid_type",
			"message": "type must be one of: address, jetton, link, transaction",
		})
		return
	}

	level := risk.Level(c.Query("risk_level"))
	if level != "" && !level.Valid() {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "invalid_risk_level",
			"message": "risk_level must be one of: SAFE, WARNING, CRITICAL",
		})
		return
	}

	items, total, err := h.store.List(c.Request.Context(), userKey, ListOptions{
		Kind:   kind,
		Level:  level,
		Limit:  limit,
		Offset: offset,
	})
	if err != nil {
		logging.L(c.Request.Context()).Error("history list failed", "user_key", userKey, "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{
			"error":   "history_unavailable",
			"message": "Could not load history",
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"items":  items,
		"total":  total,
		"limit":  limit,
		"offset": offset,
	})
}

// ClearHistory handles DELETE /v1/history/:userId. Clearing an already empty
// history succeeds.
func (h *Handler) ClearHistory(c *gin.Context) {
	userKey := c.Param("userId")

	if err := h.store.Clear(c.Request.Context(), userKey); err != nil {
		logging.L(c.Request.Context()).Error("history clear failed", "user_key", userKey, "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{
			"error":   "history_unavailable",
			"message": "Could not clear history",
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

// GetStats handles GET /v1/stats/:userId
func (h *Handler) GetStats(c *gin.Context) {
	userKey := c.Param("userId")

	stats, err := h.store.Stats(c.Request.Context(), userKey)
	if err != nil {
		logging.L(c.Request.Context()).Error("history stats failed", "user_key", userKey, "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{
			"error":   "history_unavailable",
			"message": "Could not load stats",
		})
		return
	}

	c.JSON(http.StatusOK, stats)
}
