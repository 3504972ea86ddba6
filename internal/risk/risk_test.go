package risk

import "testing"

func TestLevelForScore_Boundaries(t *testing.T) {
	tests := []struct {
		score int
		want  Level
	}{
		{0, LevelSafe},
		{15, LevelSafe},
		{29, LevelSafe},
		{30, LevelWarning},
		{45, LevelWarning},
		{69, LevelWarning},
		{70, LevelCritical},
		{95, LevelCritical},
		{100, LevelCritical},
	}

	for _, tt := range tests {
		if got := LevelForScore(tt.score); got != tt.want {
			t.Errorf("LevelForScore(%d) = %s, want %s", tt.score, got, tt.want)
		}
	}
}

func TestSeverityForScore(t *testing.T) {
	if got := SeverityForScore(49); got != SeverityMedium {
		t.Errorf("SeverityForScore(49) = %s, want medium", got)
	}
	if got := SeverityForScore(50); got != SeverityHigh {
		t.Errorf("SeverityForScore(50) = %s, want high", got)
	}
	if got := SeverityForScore(0); got != SeverityMedium {
		t.Errorf("SeverityForScore(0) = %s, want medium", got)
	}
}

func TestClampScore(t *testing.T) {
	tests := []struct {
		in, want int
	}{
		{-5, 0},
		{0, 0},
		{55, 55},
		{100, 100},
		{180, 100},
	}
	for _, tt := range tests {
		if got := ClampScore(tt.in); got != tt.want {
			t.Errorf("ClampScore(%d) = %d, want %d", tt.in, got, tt.want)
		}
	}
}

func TestLevelRank_Ordering(t *testing.T) {
	if !(LevelSafe.Rank() < LevelWarning.Rank() && LevelWarning.Rank() < LevelCritical.Rank()) {
		t.Error("expected SAFE < WARNING < CRITICAL by rank")
	}
}

func TestKindValid(t *testing.T) {
	for _, k := range []Kind{KindAddress, KindJetton, KindLink, KindTransaction} {
		if !k.Valid() {
			t.Errorf("expected %s to be valid", k)
		}
	}
	if Kind("nft").Valid() {
		t.Error("unknown kind should not be valid")
	}
}

func TestLevelValid(t *testing.T) {
	if !LevelCritical.Valid() {
		t.Error("CRITICAL should be valid")
	}
	if Level("safe").Valid() {
		t.Error("levels are case-sensitive, lowercase should not be valid")
	}
}
