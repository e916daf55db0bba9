package models

import "testing"

func TestXPToNextLevelCurve(t *testing.T) {
	if got := XPToNextLevel(1); got != 100 {
		t.Errorf("level 1 should cost 100, got %d", got)
	}
	// Non-decreasing and strictly positive across a realistic range.
	prev := int64(0)
	for level := 1; level <= 200; level++ {
		cost := XPToNextLevel(level)
		if cost <= 0 {
			t.Fatalf("level %d: cost must be positive, got %d", level, cost)
		}
		if cost < prev {
			t.Fatalf("level %d: curve decreased from %d to %d", level, prev, cost)
		}
		prev = cost
	}
}

func TestXPToNextLevelClampsLowLevels(t *testing.T) {
	if XPToNextLevel(0) != XPToNextLevel(1) || XPToNextLevel(-3) != XPToNextLevel(1) {
		t.Error("levels below 1 should cost the same as level 1")
	}
}

func TestRankForLevel(t *testing.T) {
	cases := []struct {
		level int
		want  string
	}{
		{1, "Rookie"},
		{4, "Rookie"},
		{5, "Bronze"},
		{10, "Silver"},
		{24, "Silver"},
		{25, "Gold"},
		{50, "Platinum"},
		{100, "Diamond"},
		{250, "Diamond"},
	}
	for _, tc := range cases {
		if got := RankForLevel(tc.level); got.Name != tc.want {
			t.Errorf("level %d: expected %s, got %s", tc.level, tc.want, got.Name)
		}
	}
}
