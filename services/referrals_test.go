package services

import (
	"errors"
	"strings"
	"testing"
	"time"

	"game-progression-service/models"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
)

func newTestReferrals(t *testing.T) (*ReferralService, *LedgerService, *clockwork.FakeClock) {
	t.Helper()
	ledger, clock := newTestLedger(t)
	return NewReferralService(ledger.DB, ledger, clock), ledger, clock
}

func seedGameUser(t *testing.T, svc *ReferralService, externalID, username string) {
	t.Helper()
	user := models.GameUser{ID: uuid.NewString(), ExternalUserID: externalID, Username: username}
	if err := svc.DB.Create(&user).Error; err != nil {
		t.Fatalf("failed to seed user: %v", err)
	}
}

func TestGetOrGenerateCodeIsStable(t *testing.T) {
	svc, _, _ := newTestReferrals(t)
	seedGameUser(t, svc, "referrer-1", "Ana María")

	first, err := svc.GetOrGenerateCode("referrer-1")
	if err != nil {
		t.Fatalf("GetOrGenerateCode failed: %v", err)
	}
	if !strings.HasPrefix(first.Code, "ANAMARIA-") {
		t.Errorf("expected ASCII-folded username prefix, got %q", first.Code)
	}

	second, err := svc.GetOrGenerateCode("referrer-1")
	if err != nil {
		t.Fatalf("second call failed: %v", err)
	}
	if second.Code != first.Code {
		t.Errorf("code must be immutable, got %q then %q", first.Code, second.Code)
	}
}

func TestValidateReportsReasonsNotErrors(t *testing.T) {
	svc, _, _ := newTestReferrals(t)
	seedGameUser(t, svc, "referrer-1", "alice")
	code, _ := svc.GetOrGenerateCode("referrer-1")

	res, err := svc.Validate(code.Code)
	if err != nil {
		t.Fatalf("Validate failed: %v", err)
	}
	if !res.Valid || res.ReferrerUsername != "alice" {
		t.Errorf("expected valid code for alice, got %+v", res)
	}

	res, err = svc.Validate("NOPE-0000")
	if err != nil {
		t.Fatalf("unknown code must not error: %v", err)
	}
	if res.Valid || res.Reason == "" {
		t.Errorf("expected invalid with reason, got %+v", res)
	}
}

func TestApplyPaysSignupBonusBothSides(t *testing.T) {
	svc, ledger, _ := newTestReferrals(t)
	seedGameUser(t, svc, "referrer-1", "alice")
	code, _ := svc.GetOrGenerateCode("referrer-1")

	res, err := svc.Apply("referred-1", code.Code)
	if err != nil {
		t.Fatalf("Apply failed: %v", err)
	}
	if res.ReferrerID != "referrer-1" || res.RewardKey != models.RewardSignupBonus {
		t.Errorf("unexpected result: %+v", res)
	}

	bundle := models.ReferralRewardTable[models.RewardSignupBonus]
	referrer, _ := ledger.EnsureProfile("referrer-1")
	if referrer.TotalXP != bundle.Referrer.XP || referrer.AvailablePoints != bundle.Referrer.Points {
		t.Errorf("referrer side not paid: xp=%d points=%d", referrer.TotalXP, referrer.AvailablePoints)
	}
	referred, _ := ledger.EnsureProfile("referred-1")
	if referred.TotalXP != bundle.Referred.XP || referred.AvailablePoints != bundle.Referred.Points {
		t.Errorf("referred side not paid: xp=%d points=%d", referred.TotalXP, referred.AvailablePoints)
	}

	var stats models.ReferralStats
	svc.DB.Where("external_user_id = ?", "referrer-1").First(&stats)
	if stats.TotalReferrals != 1 {
		t.Errorf("expected 1 total referral, got %d", stats.TotalReferrals)
	}
	if stats.QualifiedReferrals != 0 {
		t.Errorf("signup alone must not qualify, got %d", stats.QualifiedReferrals)
	}
}

func TestApplySecondCodeRejected(t *testing.T) {
	svc, _, _ := newTestReferrals(t)
	seedGameUser(t, svc, "referrer-1", "alice")
	seedGameUser(t, svc, "referrer-2", "bob")
	codeA, _ := svc.GetOrGenerateCode("referrer-1")
	codeB, _ := svc.GetOrGenerateCode("referrer-2")

	if _, err := svc.Apply("referred-1", codeA.Code); err != nil {
		t.Fatalf("first apply failed: %v", err)
	}
	if _, err := svc.Apply("referred-1", codeB.Code); !errors.Is(err, ErrInvalidState) {
		t.Fatalf("expected ErrInvalidState on second code, got %v", err)
	}
}

func TestApplySelfReferralRejected(t *testing.T) {
	svc, _, _ := newTestReferrals(t)
	seedGameUser(t, svc, "referrer-1", "alice")
	code, _ := svc.GetOrGenerateCode("referrer-1")

	if _, err := svc.Apply("referrer-1", code.Code); !errors.Is(err, ErrInvalidState) {
		t.Fatalf("expected ErrInvalidState on self-referral, got %v", err)
	}
}

func TestApplyExhaustedCodeRejected(t *testing.T) {
	svc, _, _ := newTestReferrals(t)
	seedGameUser(t, svc, "referrer-1", "alice")
	code, _ := svc.GetOrGenerateCode("referrer-1")

	maxUses := int64(1)
	svc.DB.Model(&models.ReferralCode{}).Where("id = ?", code.ID).Update("max_uses", maxUses)

	if _, err := svc.Apply("referred-1", code.Code); err != nil {
		t.Fatalf("first apply failed: %v", err)
	}
	if _, err := svc.Apply("referred-2", code.Code); !errors.Is(err, ErrInvalidState) {
		t.Fatalf("expected ErrInvalidState on exhausted code, got %v", err)
	}
}

func TestApplyCappedCodeNeverOversubscribes(t *testing.T) {
	svc, _, _ := newTestReferrals(t)
	seedGameUser(t, svc, "referrer-1", "alice")
	code, _ := svc.GetOrGenerateCode("referrer-1")

	maxUses := int64(2)
	svc.DB.Model(&models.ReferralCode{}).Where("id = ?", code.ID).Update("max_uses", maxUses)

	applied := 0
	for _, referred := range []string{"referred-1", "referred-2", "referred-3"} {
		if _, err := svc.Apply(referred, code.Code); err == nil {
			applied++
		} else if !errors.Is(err, ErrInvalidState) {
			t.Fatalf("apply for %s: unexpected error %v", referred, err)
		}
	}
	if applied != 2 {
		t.Fatalf("capped code must admit exactly 2, admitted %d", applied)
	}

	// The guarded increment keeps the counter at the cap and the rejected
	// apply leaves no partial writes behind.
	var stored models.ReferralCode
	svc.DB.Where("id = ?", code.ID).First(&stored)
	if stored.TotalUses != 2 {
		t.Errorf("expected total_uses 2, got %d", stored.TotalUses)
	}
	var referralCount int64
	svc.DB.Model(&models.Referral{}).Where("referrer_id = ?", "referrer-1").Count(&referralCount)
	if referralCount != 2 {
		t.Errorf("expected 2 referral rows, got %d", referralCount)
	}
	var stats models.ReferralStats
	svc.DB.Where("external_user_id = ?", "referrer-1").First(&stats)
	if stats.TotalReferrals != 2 {
		t.Errorf("stats must not count the rejected apply, got %d", stats.TotalReferrals)
	}
	var payoutCount int64
	svc.DB.Model(&models.ReferralPayout{}).Count(&payoutCount)
	if payoutCount != 2 {
		t.Errorf("expected 2 signup payouts, got %d", payoutCount)
	}
}

func TestApplyDeactivatedAfterCreationRejected(t *testing.T) {
	svc, _, _ := newTestReferrals(t)
	seedGameUser(t, svc, "referrer-1", "alice")
	code, _ := svc.GetOrGenerateCode("referrer-1")

	svc.DB.Model(&models.ReferralCode{}).Where("id = ?", code.ID).Update("is_active", false)

	if _, err := svc.Apply("referred-1", code.Code); !errors.Is(err, ErrNotFound) && !errors.Is(err, ErrInvalidState) {
		t.Fatalf("deactivated code must be rejected, got %v", err)
	}
	var count int64
	svc.DB.Model(&models.Referral{}).Count(&count)
	if count != 0 {
		t.Errorf("no referral row may exist after rejection, got %d", count)
	}
}

func TestApplyExpiredCodeRejected(t *testing.T) {
	svc, _, clock := newTestReferrals(t)
	seedGameUser(t, svc, "referrer-1", "alice")
	code, _ := svc.GetOrGenerateCode("referrer-1")

	past := clock.Now().Add(-time.Hour)
	svc.DB.Model(&models.ReferralCode{}).Where("id = ?", code.ID).Update("expires_at", past)

	if _, err := svc.Apply("referred-1", code.Code); !errors.Is(err, ErrInvalidState) {
		t.Fatalf("expected ErrInvalidState on expired code, got %v", err)
	}
}

func TestFirstLinkMilestoneFiresOnce(t *testing.T) {
	svc, ledger, _ := newTestReferrals(t)
	seedGameUser(t, svc, "referrer-1", "alice")
	code, _ := svc.GetOrGenerateCode("referrer-1")
	svc.Apply("referred-1", code.Code)

	res, err := svc.TriggerMilestone("referred-1", "first_link", 0)
	if err != nil {
		t.Fatalf("TriggerMilestone failed: %v", err)
	}
	if !res.RewardTriggered || res.RewardKey != models.RewardFirstLinkBonus {
		t.Fatalf("expected first-link payout, got %+v", res)
	}

	// Qualification flips exactly once.
	var stats models.ReferralStats
	svc.DB.Where("external_user_id = ?", "referrer-1").First(&stats)
	if stats.QualifiedReferrals != 1 {
		t.Errorf("expected 1 qualified referral, got %d", stats.QualifiedReferrals)
	}

	before, _ := ledger.EnsureProfile("referrer-1")
	res, err = svc.TriggerMilestone("referred-1", "first_link", 0)
	if err != nil {
		t.Fatalf("repeat milestone errored: %v", err)
	}
	if res.RewardTriggered {
		t.Error("repeat first-link must not pay again")
	}
	after, _ := ledger.EnsureProfile("referrer-1")
	if after.TotalXP != before.TotalXP {
		t.Errorf("repeat milestone changed XP: %d → %d", before.TotalXP, after.TotalXP)
	}
	svc.DB.Where("external_user_id = ?", "referrer-1").First(&stats)
	if stats.QualifiedReferrals != 1 {
		t.Errorf("qualified count must stay 1, got %d", stats.QualifiedReferrals)
	}
}

func TestEarningsMilestonePaysHighestTierOnly(t *testing.T) {
	svc, _, _ := newTestReferrals(t)
	seedGameUser(t, svc, "referrer-1", "alice")
	code, _ := svc.GetOrGenerateCode("referrer-1")
	svc.Apply("referred-1", code.Code)

	// Jump straight past tier 1 and 2.
	res, err := svc.TriggerMilestone("referred-1", "earnings", 150_000)
	if err != nil {
		t.Fatalf("TriggerMilestone failed: %v", err)
	}
	if !res.RewardTriggered || res.RewardKey != models.RewardEarningsTier2 {
		t.Fatalf("expected tier2 payout, got %+v", res)
	}

	var payouts []models.ReferralPayout
	svc.DB.Find(&payouts)
	keys := map[string]bool{}
	for _, p := range payouts {
		keys[p.RewardKey] = true
	}
	if keys[models.RewardEarningsTier1] {
		t.Error("tier1 must not pay when tier2 was the crossing")
	}
	if !keys[models.RewardEarningsTier2] {
		t.Error("tier2 payout row missing")
	}
}

func TestEarningsBelowTierPaysNothing(t *testing.T) {
	svc, _, _ := newTestReferrals(t)
	seedGameUser(t, svc, "referrer-1", "alice")
	code, _ := svc.GetOrGenerateCode("referrer-1")
	svc.Apply("referred-1", code.Code)

	res, err := svc.TriggerMilestone("referred-1", "earnings", 10_000)
	if err != nil {
		t.Fatalf("TriggerMilestone failed: %v", err)
	}
	if res.RewardTriggered {
		t.Errorf("earnings below tier1 must not pay, got %+v", res)
	}

	var referral models.Referral
	svc.DB.Where("referred_id = ?", "referred-1").First(&referral)
	if referral.ReferredEarningAmount != 10_000 {
		t.Errorf("earning amount should still be recorded, got %f", referral.ReferredEarningAmount)
	}
	if referral.Status != models.ReferralPending {
		t.Errorf("referral must stay pending, got %s", referral.Status)
	}
}

func TestMilestoneWithoutReferralIsNoOp(t *testing.T) {
	svc, _, _ := newTestReferrals(t)

	res, err := svc.TriggerMilestone("loner-1", "first_link", 0)
	if err != nil {
		t.Fatalf("milestone without referral errored: %v", err)
	}
	if !res.NoReferral || res.RewardTriggered {
		t.Errorf("expected silent no-op, got %+v", res)
	}
}

func TestReferralLeaderboardOrdersByQualified(t *testing.T) {
	svc, _, _ := newTestReferrals(t)
	seedGameUser(t, svc, "referrer-1", "alice")
	seedGameUser(t, svc, "referrer-2", "bob")
	codeA, _ := svc.GetOrGenerateCode("referrer-1")
	codeB, _ := svc.GetOrGenerateCode("referrer-2")

	// alice: two referrals, one qualified. bob: one referral, none qualified.
	svc.Apply("referred-1", codeA.Code)
	svc.Apply("referred-2", codeA.Code)
	svc.Apply("referred-3", codeB.Code)
	svc.TriggerMilestone("referred-1", "first_link", 0)

	view, err := svc.Leaderboard("all_time", 10, "referrer-2")
	if err != nil {
		t.Fatalf("Leaderboard failed: %v", err)
	}
	if len(view.Leaderboard) != 2 {
		t.Fatalf("expected 2 entries, got %d", len(view.Leaderboard))
	}
	if view.Leaderboard[0].ExternalUserID != "referrer-1" {
		t.Errorf("alice should rank first, got %q", view.Leaderboard[0].ExternalUserID)
	}
	if view.Leaderboard[0].Rank != 1 || view.Leaderboard[1].Rank != 2 {
		t.Errorf("ranks should be dense 1..N")
	}
	if view.UserRank != 2 {
		t.Errorf("caller rank should be 2, got %d", view.UserRank)
	}
	if view.Leaderboard[0].Username != "alice" || view.Leaderboard[1].Username != "bob" {
		t.Errorf("usernames not resolved: %q, %q", view.Leaderboard[0].Username, view.Leaderboard[1].Username)
	}
}

func TestStatsListsReferredUsers(t *testing.T) {
	svc, _, _ := newTestReferrals(t)
	seedGameUser(t, svc, "referrer-1", "alice")
	seedGameUser(t, svc, "referred-1", "carol")
	code, _ := svc.GetOrGenerateCode("referrer-1")
	svc.Apply("referred-1", code.Code)

	view, err := svc.Stats("referrer-1")
	if err != nil {
		t.Fatalf("Stats failed: %v", err)
	}
	if view.Code != code.Code || view.CodeUses != 1 {
		t.Errorf("unexpected code summary: %+v", view)
	}
	if len(view.Referrals) != 1 || view.Referrals[0].Username != "carol" {
		t.Errorf("unexpected referral list: %+v", view.Referrals)
	}
}
