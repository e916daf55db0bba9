package services

import (
	"errors"
	"testing"

	"game-progression-service/models"

	"github.com/google/uuid"
)

func seedProfile(t *testing.T, svc *LeaderboardService, p models.UserProfile) {
	t.Helper()
	p.ID = uuid.NewString()
	if p.Level == 0 {
		p.Level = 1
	}
	if err := svc.DB.Create(&p).Error; err != nil {
		t.Fatalf("failed to seed profile: %v", err)
	}
}

func TestRankByLevelWithTieBreak(t *testing.T) {
	svc := NewLeaderboardService(newTestDB(t))
	seedProfile(t, svc, models.UserProfile{ExternalUserID: "user-a", Level: 5, TotalXP: 1000})
	seedProfile(t, svc, models.UserProfile{ExternalUserID: "user-b", Level: 5, TotalXP: 2000})
	seedProfile(t, svc, models.UserProfile{ExternalUserID: "user-c", Level: 8, TotalXP: 500})

	view, err := svc.Rank(MetricLevel, 10, "user-a")
	if err != nil {
		t.Fatalf("Rank failed: %v", err)
	}
	got := []string{}
	for _, e := range view.Leaderboard {
		got = append(got, e.ExternalUserID)
	}
	want := []string{"user-c", "user-b", "user-a"}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("order mismatch: got %v, want %v", got, want)
		}
	}
	for i, e := range view.Leaderboard {
		if e.Rank != i+1 {
			t.Errorf("ranks should be dense, entry %d has rank %d", i, e.Rank)
		}
	}
	if view.UserRank != 3 {
		t.Errorf("caller rank should be 3, got %d", view.UserRank)
	}
}

func TestRankCallerOutsidePage(t *testing.T) {
	svc := NewLeaderboardService(newTestDB(t))
	seedProfile(t, svc, models.UserProfile{ExternalUserID: "user-a", Level: 9})
	seedProfile(t, svc, models.UserProfile{ExternalUserID: "user-b", Level: 7})
	seedProfile(t, svc, models.UserProfile{ExternalUserID: "user-c", Level: 3})

	view, err := svc.Rank(MetricLevel, 2, "user-c")
	if err != nil {
		t.Fatalf("Rank failed: %v", err)
	}
	if len(view.Leaderboard) != 2 {
		t.Fatalf("expected page of 2, got %d", len(view.Leaderboard))
	}
	// Caller is off the page but still ranked over the full ordering.
	if view.UserRank != 3 {
		t.Errorf("caller rank should be 3, got %d", view.UserRank)
	}
}

func TestRankMetrics(t *testing.T) {
	svc := NewLeaderboardService(newTestDB(t))
	seedProfile(t, svc, models.UserProfile{ExternalUserID: "user-a", Level: 2, TotalPoints: 900, CurrentStreak: 1, TotalMissionsCompleted: 10})
	seedProfile(t, svc, models.UserProfile{ExternalUserID: "user-b", Level: 6, TotalPoints: 100, CurrentStreak: 9, TotalMissionsCompleted: 2})

	cases := []struct {
		metric string
		first  string
	}{
		{MetricLevel, "user-b"},
		{MetricPoints, "user-a"},
		{MetricStreak, "user-b"},
		{MetricMissions, "user-a"},
	}
	for _, tc := range cases {
		view, err := svc.Rank(tc.metric, 10, "")
		if err != nil {
			t.Fatalf("Rank(%s) failed: %v", tc.metric, err)
		}
		if view.Leaderboard[0].ExternalUserID != tc.first {
			t.Errorf("metric %s: expected %s first, got %s", tc.metric, tc.first, view.Leaderboard[0].ExternalUserID)
		}
	}
}

func TestRankDefaultsAndRejectsMetric(t *testing.T) {
	svc := NewLeaderboardService(newTestDB(t))

	view, err := svc.Rank("", 10, "")
	if err != nil {
		t.Fatalf("empty metric should default: %v", err)
	}
	if view.Metric != MetricLevel {
		t.Errorf("expected default metric level, got %s", view.Metric)
	}

	if _, err := svc.Rank("karma", 10, ""); !errors.Is(err, ErrValidation) {
		t.Fatalf("expected ErrValidation for unknown metric, got %v", err)
	}
}

func TestRankResolvesUsernames(t *testing.T) {
	svc := NewLeaderboardService(newTestDB(t))
	seedProfile(t, svc, models.UserProfile{ExternalUserID: "user-a", Level: 5})
	seedProfile(t, svc, models.UserProfile{ExternalUserID: "user-b", Level: 3})
	svc.DB.Create(&models.GameUser{ID: uuid.NewString(), ExternalUserID: "user-a", Username: "alice"})

	view, err := svc.Rank(MetricLevel, 10, "")
	if err != nil {
		t.Fatalf("Rank failed: %v", err)
	}
	if view.Leaderboard[0].Username != "alice" {
		t.Errorf("expected username alice, got %q", view.Leaderboard[0].Username)
	}
	// No synced snapshot yet → blank, not an error.
	if view.Leaderboard[1].Username != "" {
		t.Errorf("unsynced user should have empty username, got %q", view.Leaderboard[1].Username)
	}
}

func TestRankUnknownCallerUnranked(t *testing.T) {
	svc := NewLeaderboardService(newTestDB(t))
	seedProfile(t, svc, models.UserProfile{ExternalUserID: "user-a", Level: 2})

	view, err := svc.Rank(MetricLevel, 10, "ghost")
	if err != nil {
		t.Fatalf("Rank failed: %v", err)
	}
	if view.UserRank != 0 {
		t.Errorf("caller without profile should be unranked, got %d", view.UserRank)
	}
}
