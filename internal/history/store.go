package history

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/tonshield/tonshield/internal/idgen"
	"github.com/tonshield/tonshield/internal/metrics"
	"github.com/tonshield/tonshield/internal/risk"
)

// Store implements the bounded per-user log on top of a KV backend.
type Store struct {
	kv       KV
	capacity int

	// Serializes read-modify-write cycles within this process. Across
	// processes the KV's last-write-wins upsert is the only guarantee.
	mu sync.Mutex

	now func() time.Time // injectable for tests
}

// NewStore creates a log store with the given per-user capacity.
func NewStore(kv KV, capacity int) *Store {
	if capacity <= 0 {
		capacity = DefaultCapacity
	}
	return &Store{kv: kv, capacity: capacity, now: time.Now}
}

// SetNowFunc overrides the store clock. Intended for tests.
func (s *Store) SetNowFunc(f func() time.Time) {
	s.now = f
}

// Append records a completed check at the head of the user's log, assigning a
// fresh ID and timestamp, and persists the whole log. When the log is full
// the oldest entries are evicted. On persist failure the assigned entry is
// still returned alongside an error wrapping ErrPersistFailed; the in-memory
// view is not authoritative in that case.
func (s *Store) Append(ctx context.Context, userKey string, e Entry) (Entry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	e.ID = idgen.WithPrefix("chk_")
	e.Timestamp = s.now().UTC()

	log, err := s.kv.Get(ctx, userKey)
	if err != nil {
		metrics.HistoryPersistErrorsTotal.Inc()
		return e, fmt.Errorf("%w: load log for %s: %v", ErrPersistFailed, userKey, err)
	}

	log = append([]Entry{e}, log...)
	if len(log) > s.capacity {
		metrics.HistoryEvictionsTotal.Add(float64(len(log) - s.capacity))
		log = log[:s.capacity]
	}

	if err := s.kv.Set(ctx, userKey, log); err != nil {
		metrics.HistoryPersistErrorsTotal.Inc()
		return e, fmt.Errorf("%w: store log for %s: %v", ErrPersistFailed, userKey, err)
	}
	return e, nil
}

// List returns the filtered, paginated view of a user's log, newest first,
// plus the total number of entries matching the filter before pagination.
func (s *Store) List(ctx context.Context, userKey string, opts ListOptions) ([]Entry, int, error) {
	log, err := s.kv.Get(ctx, userKey)
	if err != nil {
		return nil, 0, err
	}

	// The log is stored newest-first, but entries written by concurrent
	// last-write-wins updates may interleave; sorting keeps the contract.
	sort.SliceStable(log, func(i, j int) bool {
		return log[i].Timestamp.After(log[j].Timestamp)
	})

	filtered := log[:0:0]
	for _, e := range log {
		if opts.Kind != "" && e.Kind != opts.Kind {
			continue
		}
		if opts.Level != "" && e.Level != opts.Level {
			continue
		}
		filtered = append(filtered, e)
	}
	total := len(filtered)

	if opts.Offset > 0 {
		if opts.Offset >= len(filtered) {
			return []Entry{}, total, nil
		}
		filtered = filtered[opts.Offset:]
	}
	if opts.Limit > 0 && len(filtered) > opts.Limit {
		filtered = filtered[:opts.Limit]
	}
	if filtered == nil {
		filtered = []Entry{}
	}
	return filtered, total, nil
}

// Stats aggregates the user's whole log regardless of any filter.
func (s *Store) Stats(ctx context.Context, userKey string) (Stats, error) {
	log, err := s.kv.Get(ctx, userKey)
	if err != nil {
		return Stats{}, err
	}

	now := s.now().UTC()
	dayStart := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
	weekStart := now.AddDate(0, 0, -7)
	monthStart := now.AddDate(0, -1, 0)

	st := Stats{Total: len(log)}
	kindCounts := make(map[risk.Kind]int)
	var last time.Time

	for _, e := range log {
		switch e.Level {
		case risk.LevelSafe:
			st.Safe++
		case risk.LevelWarning:
			st.Warning++
		case risk.LevelCritical:
			st.Critical++
		}
		kindCounts[e.Kind]++

		ts := e.Timestamp
		if !ts.Before(dayStart) {
			st.CheckedToday++
		}
		if !ts.Before(weekStart) {
			st.CheckedThisWeek++
		}
		if !ts.Before(monthStart) {
			st.CheckedThisMonth++
		}
		if ts.After(last) {
			last = ts
		}
	}

	if st.Total > 0 {
		st.SafePercent = 100 * float64(st.Safe) / float64(st.Total)
		st.WarningPercent = 100 * float64(st.Warning) / float64(st.Total)
		st.CriticalPercent = 100 * float64(st.Critical) / float64(st.Total)
		st.LastCheckAt = &last
	}

	best := 0
	for kind, n := range kindCounts {
		if n > best || (n == best && kind < st.MostCheckedKind) {
			best = n
			st.MostCheckedKind = kind
		}
	}
	return st, nil
}

// Clear removes the user's whole log. Clearing an empty log succeeds.
func (s *Store) Clear(ctx context.Context, userKey string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.kv.Delete(ctx, userKey)
}
