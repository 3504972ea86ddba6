// Package history keeps a per-user log of completed checks. The log is a
// capacity-bounded, newest-first list persisted as one blob per user through
// a small KV abstraction, so the memory and PostgreSQL backends share the
// same read-modify-write semantics: concurrent writers are last-write-wins.
package history

import (
	"context"
	"errors"
	"time"

	"github.com/tonshield/tonshield/internal/risk"
)

// DefaultCapacity is the number of entries retained per user.
const DefaultCapacity = 100

// ErrPersistFailed marks an append whose entry could not be durably stored.
// The check result itself is still valid; callers report the entry together
// with a history_saved=false warning.
var ErrPersistFailed = errors.New("history persist failed")

// Entry is one recorded check.
type Entry struct {
	ID        string     `json:"id"`
	Kind      risk.Kind  `json:"type"`
	Target    string     `json:"target"`
	Level     risk.Level `json:"risk_level"`
	Score     int        `json:"risk_score"`
	Summary   string     `json:"result_summary,omitempty"`
	Timestamp time.Time  `json:"timestamp"`
}

// ListOptions filters and paginates a user's log.
type ListOptions struct {
	Kind   risk.Kind  // optional, empty matches all
	Level  risk.Level // optional, empty matches all
	Limit  int
	Offset int
}

// Stats aggregates a user's whole log, never the filtered view.
type Stats struct {
	Total    int `json:"total"`
	Safe     int `json:"safe"`
	Warning  int `json:"warning"`
	Critical int `json:"critical"`

	// Percentages are 0 when Total is 0.
	SafePercent     float64 `json:"safe_percent"`
	WarningPercent  float64 `json:"warning_percent"`
	CriticalPercent float64 `json:"critical_percent"`

	CheckedToday     int        `json:"checked_today"`
	CheckedThisWeek  int        `json:"checked_this_week"`
	CheckedThisMonth int        `json:"checked_this_month"`
	MostCheckedKind  risk.Kind  `json:"most_checked_kind,omitempty"`
	LastCheckAt      *time.Time `json:"last_check_at,omitempty"`
}

// KV stores the full per-user log blob. Get returns an empty log for unknown
// keys. Set replaces the whole blob atomically; concurrent Sets for the same
// key resolve last-write-wins. Delete is idempotent.
type KV interface {
	Get(ctx context.Context, userKey string) ([]Entry, error)
	Set(ctx context.Context, userKey string, log []Entry) error
	Delete(ctx context.Context, userKey string) error
}
