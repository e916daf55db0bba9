package services

import (
	"errors"
	"testing"

	"game-progression-service/models"
)

func newTestAchievements(t *testing.T) (*AchievementService, *LedgerService) {
	t.Helper()
	ledger, _ := newTestLedger(t)
	mustSeed(t, ledger.DB)
	return NewAchievementService(ledger.DB, ledger), ledger
}

func TestCheckAndUnlockCreditsOnce(t *testing.T) {
	svc, ledger := newTestAchievements(t)

	res, err := svc.CheckAndUnlock("user-1", "first_link")
	if err != nil {
		t.Fatalf("CheckAndUnlock failed: %v", err)
	}
	if !res.Unlocked || res.AlreadyUnlocked {
		t.Fatalf("expected fresh unlock, got %+v", res)
	}
	if res.XPReward != 100 || res.PointsReward != 50 {
		t.Errorf("unexpected rewards: %+v", res)
	}

	prof, _ := ledger.EnsureProfile("user-1")
	if prof.TotalXP != 100 || prof.AvailablePoints != 50 {
		t.Errorf("rewards not credited: xp=%d points=%d", prof.TotalXP, prof.AvailablePoints)
	}
	if prof.TotalAchievementsUnlocked != 1 {
		t.Errorf("expected 1 unlocked, got %d", prof.TotalAchievementsUnlocked)
	}
}

func TestCheckAndUnlockSecondCallIsNoOp(t *testing.T) {
	svc, ledger := newTestAchievements(t)

	if _, err := svc.CheckAndUnlock("user-1", "first_link"); err != nil {
		t.Fatalf("first unlock failed: %v", err)
	}
	res, err := svc.CheckAndUnlock("user-1", "first_link")
	if err != nil {
		t.Fatalf("second unlock errored: %v", err)
	}
	if !res.AlreadyUnlocked || res.Unlocked {
		t.Fatalf("expected already-unlocked no-op, got %+v", res)
	}

	// Exactly one credit despite two calls.
	prof, _ := ledger.EnsureProfile("user-1")
	if prof.TotalXP != 100 {
		t.Errorf("expected 100 XP total, got %d", prof.TotalXP)
	}
	var count int64
	ledger.DB.Model(&models.UserAchievement{}).Where("external_user_id = ?", "user-1").Count(&count)
	if count != 1 {
		t.Errorf("expected one unlock row, got %d", count)
	}
}

func TestCheckAndUnlockUnknownKey(t *testing.T) {
	svc, _ := newTestAchievements(t)

	if _, err := svc.CheckAndUnlock("user-1", "no_such_thing"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestListForUserHidesLockedSecrets(t *testing.T) {
	svc, _ := newTestAchievements(t)

	list, err := svc.ListForUser("user-1")
	if err != nil {
		t.Fatalf("ListForUser failed: %v", err)
	}
	for _, view := range list.All {
		if view.IsSecret {
			t.Errorf("locked secret %q should be hidden", view.Key)
		}
	}

	if _, err := svc.CheckAndUnlock("user-1", "night_owl"); err != nil {
		t.Fatalf("secret unlock failed: %v", err)
	}
	list, err = svc.ListForUser("user-1")
	if err != nil {
		t.Fatalf("ListForUser failed: %v", err)
	}
	found := false
	for _, view := range list.All {
		if view.Key == "night_owl" {
			found = true
			if !view.IsUnlocked {
				t.Error("night_owl should show as unlocked")
			}
		}
	}
	if !found {
		t.Error("unlocked secret should appear in the list")
	}
	if list.Unlocked != 1 {
		t.Errorf("expected unlocked count 1, got %d", list.Unlocked)
	}
}
