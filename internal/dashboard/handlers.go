// Package dashboard aggregates a user's check history into the overview
// served to the Mini App home screen: lifetime stats, a 7-day activity
// timeline, and the most recent critical findings.
package dashboard

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/tonshield/tonshield/internal/history"
	"github.com/tonshield/tonshield/internal/logging"
	"github.com/tonshield/tonshield/internal/risk"
)

// TimelineDays is the length of the activity timeline.
const TimelineDays = 7

// RecentCriticalLimit caps the recent critical findings list.
const RecentCriticalLimit = 5

// TimelineDay is one day's worth of checks, bucketed by level.
type TimelineDay struct {
	Date     string `json:"date"` // YYYY-MM-DD, UTC
	Safe     int    `json:"safe"`
	Warning  int    `json:"warning"`
	Critical int    `json:"critical"`
	Total    int    `json:"total"`
}

// Handler provides the dashboard endpoint.
type Handler struct {
	store *history.Store

	now func() time.Time // injectable for tests
}

// NewHandler creates a new dashboard handler.
func NewHandler(store *history.Store) *Handler {
	return &Handler{store: store, now: time.Now}
}

// RegisterRoutes sets up dashboard routes under the given group.
func (h *Handler) RegisterRoutes(r *gin.RouterGroup) {
	r.GET("/dashboard/:userId", h.Dashboard)
}

// Dashboard handles GET /v1/dashboard/:userId
func (h *Handler) Dashboard(c *gin.Context) {
	ctx := c.Request.Context()
	userKey := c.Param("userId")

	stats, err := h.store.Stats(ctx, userKey)
	if err != nil {
		logging.L(ctx).Error("dashboard stats failed", "user_key", userKey, "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{
			"error":   "history_unavailable",
			"message": "Could not load check history",
		})
		return
	}

	entries, _, err := h.store.List(ctx, userKey, history.ListOptions{})
	if err != nil {
		logging.L(ctx).Error("dashboard history failed", "user_key", userKey, "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{
			"error":   "history_unavailable",
			"message": "Could not load check history",
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"stats":           stats,
		"timeline":        h.timeline(entries),
		"recent_critical": recentCritical(entries),
	})
}

// timeline buckets entries into the last TimelineDays UTC days, oldest first.
// Days with no checks are present with zero counts so the chart axis is
// always complete.
func (h *Handler) timeline(entries []history.Entry) []TimelineDay {
	now := h.now().UTC()
	start := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC).AddDate(0, 0, -(TimelineDays - 1))

	days := make([]TimelineDay, TimelineDays)
	index := make(map[string]int, TimelineDays)
	for i := range days {
		date := start.AddDate(0, 0, i).Format("2006-01-02")
		days[i] = TimelineDay{Date: date}
		index[date] = i
	}

	for _, e := range entries {
		i, ok := index[e.Timestamp.UTC().Format("2006-01-02")]
		if !ok {
			continue
		}
		switch e.Level {
		case risk.LevelSafe:
			days[i].Safe++
		case risk.LevelWarning:
			days[i].Warning++
		case risk.LevelCritical:
			days[i].Critical++
		}
		days[i].Total++
	}
	return days
}

// recentCritical returns the newest critical entries, capped. Entries arrive
// newest first from the store.
func recentCritical(entries []history.Entry) []history.Entry {
	out := []history.Entry{}
	for _, e := range entries {
		if e.Level != risk.LevelCritical {
			continue
		}
		out = append(out, e)
		if len(out) == RecentCriticalLimit {
			break
		}
	}
	return out
}
