package history

import (
	"context"
	"testing"
	"time"

	"github.com/tonshield/tonshield/internal/risk"
	"github.com/tonshield/tonshield/internal/testutil"
)

func TestPostgresKV_RoundTrip(t *testing.T) {
	db, cleanup := testutil.PGTest(t)
	defer cleanup()

	ctx := context.Background()
	kv := NewPostgresKV(db)
	require := func(err error) {
		t.Helper()
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
	}
	require(kv.Migrate(ctx))

	// Unknown key yields an empty log.
	log, err := kv.Get(ctx, "u1")
	require(err)
	if len(log) != 0 {
		t.Fatalf("expected empty log, got %d entries", len(log))
	}

	ts := time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)
	entries := []Entry{
		{ID: "chk_2", Kind: risk.KindLink, Target: "https://x", Level: risk.LevelCritical, Score: 90, Timestamp: ts.Add(time.Minute)},
		{ID: "chk_1", Kind: risk.KindAddress, Target: "EQx", Level: risk.LevelSafe, Score: 5, Summary: "looks fine", Timestamp: ts},
	}
	require(kv.Set(ctx, "u1", entries))

	got, err := kv.Get(ctx, "u1")
	require(err)
	if len(got) != 2 {
		t.Fatalf("expected 2 entries, got %d", len(got))
	}
	if got[0].ID != "chk_2" || got[0].Level != risk.LevelCritical {
		t.Errorf("entry order or fields lost: %+v", got[0])
	}
	if got[1].Summary != "looks fine" || !got[1].Timestamp.Equal(ts) {
		t.Errorf("entry fields lost: %+v", got[1])
	}

	// Set replaces the whole blob (last write wins).
	require(kv.Set(ctx, "u1", entries[:1]))
	got, err = kv.Get(ctx, "u1")
	require(err)
	if len(got) != 1 {
		t.Fatalf("expected blob replacement, got %d entries", len(got))
	}

	// Delete is idempotent.
	require(kv.Delete(ctx, "u1"))
	require(kv.Delete(ctx, "u1"))
	got, err = kv.Get(ctx, "u1")
	require(err)
	if len(got) != 0 {
		t.Fatalf("expected empty log after delete, got %d", len(got))
	}
}

func TestPostgresKV_StoreIntegration(t *testing.T) {
	db, cleanup := testutil.PGTest(t)
	defer cleanup()

	ctx := context.Background()
	kv := NewPostgresKV(db)
	if err := kv.Migrate(ctx); err != nil {
		t.Fatalf("migrate: %v", err)
	}

	s := NewStore(kv, 3)
	for i := 0; i < 5; i++ {
		if _, err := s.Append(ctx, "u2", Entry{Kind: risk.KindJetton, Target: "EQj", Level: risk.LevelWarning, Score: 40}); err != nil {
			t.Fatalf("append: %v", err)
		}
	}

	_, total, err := s.List(ctx, "u2", ListOptions{Limit: 10})
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if total != 3 {
		t.Errorf("capacity should bound the persisted log, got %d", total)
	}

	st, err := s.Stats(ctx, "u2")
	if err != nil {
		t.Fatalf("stats: %v", err)
	}
	if st.Warning != 3 || st.WarningPercent != 100 {
		t.Errorf("stats: %+v", st)
	}
}
