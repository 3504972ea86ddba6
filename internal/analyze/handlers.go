package analyze

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/tonshield/tonshield/internal/logging"
	"github.com/tonshield/tonshield/internal/normalize"
	"github.com/tonshield/tonshield/internal/validation"
)

// UserKeyHeader identifies the caller for history attribution. Absent or
// empty means an anonymous check: still analyzed, never persisted.
const UserKeyHeader = "X-User-ID"

// Handler provides the HTTP endpoints for risk checks.
type Handler struct {
	service *Service
}

// NewHandler creates a new analyze handler.
func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

// RegisterRoutes sets up the analyze routes.
func (h *Handler) RegisterRoutes(r *gin.RouterGroup) {
	addr := r.Group("/analyze", validation.AddressParamMiddleware())
	addr.GET("/address/:address", h.AnalyzeAddress)
	addr.GET("/jetton/:address", h.AnalyzeJetton)

	r.POST("/analyze/link", h.AnalyzeLink)
	r.POST("/analyze/transaction", h.AnalyzeTransaction)
}

// AnalyzeAddress handles GET /v1/analyze/address/:address
func (h *Handler) AnalyzeAddress(c *gin.Context) {
	out, err := h.service.Address(c.Request.Context(), userKey(c), c.Param("address"))
	if err != nil {
		h.upstreamError(c, err)
		return
	}
	c.JSON(http.StatusOK, out)
}

// AnalyzeJetton handles GET /v1/analyze/jetton/:address
func (h *Handler) AnalyzeJetton(c *gin.Context) {
	out, err := h.service.Jetton(c.Request.Context(), userKey(c), c.Param("address"))
	if err != nil {
		h.upstreamError(c, err)
		return
	}
	c.JSON(http.StatusOK, out)
}

// AnalyzeLinkRequest for link checks.
type AnalyzeLinkRequest struct {
	URL string `json:"url" binding:"required"`
}

// AnalyzeLink handles POST /v1/analyze/link
func (h *Handler) AnalyzeLink(c *gin.Context) {
	var req AnalyzeLinkRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "invalid_request",
			"message": "Invalid request body",
		})
		return
	}

	if verrs := validation.Validate(
		validation.ValidURL("url", req.URL),
		validation.MaxLength("url", req.URL, validation.MaxURLLength),
	); len(verrs) > 0 {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "invalid_url",
			"message": verrs[0].Message,
		})
		return
	}

	out, err := h.service.Link(c.Request.Context(), userKey(c), req.URL)
	if err != nil {
		h.upstreamError(c, err)
		return
	}
	c.JSON(http.StatusOK, out)
}

// AnalyzeTransaction handles POST /v1/analyze/transaction
func (h *Handler) AnalyzeTransaction(c *gin.Context) {
	var req TransactionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "invalid_request",
			"message": "Invalid request body",
		})
		return
	}

	validators := []func() *validation.ValidationError{
		validation.ValidAddress("user_wallet", req.UserWallet),
		validation.ValidAddress("target_address", req.TargetAddress),
	}
	if req.AmountNanoton != "" {
		validators = append(validators, validation.ValidNanotonAmount("amount_nanoton", req.AmountNanoton))
	}
	if verrs := validation.Validate(validators...); len(verrs) > 0 {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "invalid_transaction",
			"message": verrs[0].Message,
			"field":   verrs[0].Field,
		})
		return
	}

	out, err := h.service.Transaction(c.Request.Context(), userKey(c), req)
	if err != nil {
		h.upstreamError(c, err)
		return
	}
	c.JSON(http.StatusOK, out)
}

// upstreamError maps indexer failures to 502, distinguishing unreachable
// upstreams from responses we could not parse.
func (h *Handler) upstreamError(c *gin.Context, err error) {
	log := logging.L(c.Request.Context())

	var ff *normalize.FetchFailure
	switch {
	case errors.As(err, &ff) && errors.Is(err, normalize.ErrMalformedResponse):
		log.Error("upstream returned malformed response", "upstream", ff.Upstream, "error", err)
		c.JSON(http.StatusBadGateway, gin.H{
			"error":   "malformed_upstream_response",
			"message": "Upstream returned data we could not parse",
		})
	case errors.As(err, &ff):
		log.Warn("upstream unavailable", "upstream", ff.Upstream, "error", err)
		c.JSON(http.StatusBadGateway, gin.H{
			"error":   "upstream_unavailable",
			"message": "Upstream data source is unavailable, try again later",
		})
	default:
		log.Error("analyze failed", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{
			"error":   "internal_error",
			"message": "Analysis failed",
		})
	}
}

func userKey(c *gin.Context) string {
	return c.GetHeader(UserKeyHeader)
}
