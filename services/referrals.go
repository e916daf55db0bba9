package services

import (
	"fmt"
	"log"
	"sort"
	"strings"

	"game-progression-service/models"

	"github.com/google/uuid"
	"github.com/gosimple/slug"
	"github.com/jonboulle/clockwork"
	"gorm.io/gorm"
)

// ReferralService validates and applies referral codes and pays milestone
// rewards to both sides of a referral, each reward key at most once per
// relationship.
type ReferralService struct {
	DB     *gorm.DB
	Ledger *LedgerService
	Clock  clockwork.Clock
}

func NewReferralService(db *gorm.DB, ledger *LedgerService, clock clockwork.Clock) *ReferralService {
	return &ReferralService{DB: db, Ledger: ledger, Clock: clock}
}

// GetOrGenerateCode returns the user's referral code, deriving and storing it
// on first request. Codes are immutable once created.
func (s *ReferralService) GetOrGenerateCode(externalUserID string) (*models.ReferralCode, error) {
	var code models.ReferralCode
	err := s.DB.Where("external_user_id = ?", externalUserID).First(&code).Error
	if err == nil {
		return &code, nil
	}
	if err != gorm.ErrRecordNotFound {
		return nil, err
	}

	var user models.GameUser
	username := "USER"
	if err := s.DB.Where("external_user_id = ?", externalUserID).First(&user).Error; err == nil && user.Username != "" {
		username = user.Username
	}

	code = models.ReferralCode{
		ID:             uuid.NewString(),
		ExternalUserID: externalUserID,
		Code:           deriveCode(username, externalUserID),
		IsActive:       true,
	}
	if err := s.DB.Create(&code).Error; err != nil {
		return nil, err
	}

	// Stats row rides along so the referrer shows up on the leaderboard query
	// path without special-casing.
	stats := models.ReferralStats{ID: uuid.NewString(), ExternalUserID: externalUserID}
	if err := s.DB.Where("external_user_id = ?", externalUserID).FirstOrCreate(&stats).Error; err != nil {
		return nil, err
	}

	return &code, nil
}

// deriveCode builds a readable unique code: ASCII-folded username prefix plus
// a slice of the user's id to break collisions between same-named users.
func deriveCode(username, externalUserID string) string {
	prefix := strings.ToUpper(strings.ReplaceAll(slug.Make(username), "-", ""))
	if len(prefix) > 8 {
		prefix = prefix[:8]
	}
	if prefix == "" {
		prefix = "USER"
	}
	suffix := strings.ToUpper(strings.ReplaceAll(externalUserID, "-", ""))
	if len(suffix) > 4 {
		suffix = suffix[:4]
	}
	return prefix + "-" + suffix
}

// ValidationResult is a pure read over a code's usability.
type ValidationResult struct {
	Valid            bool   `json:"valid"`
	Reason           string `json:"reason,omitempty"`
	ReferrerUsername string `json:"referrer_username,omitempty"`
}

// Validate checks a code without side effects. Unknown, inactive, expired and
// exhausted codes are all reported as invalid with a reason, never as errors.
func (s *ReferralService) Validate(rawCode string) (*ValidationResult, error) {
	normalized := strings.ToUpper(strings.TrimSpace(rawCode))
	if normalized == "" {
		return nil, fmt.Errorf("%w: referral code is required", ErrValidation)
	}

	var code models.ReferralCode
	err := s.DB.Where("code = ? AND is_active = ?", normalized, true).First(&code).Error
	if err == gorm.ErrRecordNotFound {
		return &ValidationResult{Valid: false, Reason: "invalid referral code"}, nil
	}
	if err != nil {
		return nil, err
	}

	if code.ExpiresAt != nil && code.ExpiresAt.Before(s.Clock.Now()) {
		return &ValidationResult{Valid: false, Reason: "referral code has expired"}, nil
	}
	if code.MaxUses != nil && code.TotalUses >= *code.MaxUses {
		return &ValidationResult{Valid: false, Reason: "referral code has reached maximum uses"}, nil
	}

	var referrer models.GameUser
	username := ""
	if err := s.DB.Where("external_user_id = ?", code.ExternalUserID).First(&referrer).Error; err == nil {
		username = referrer.Username
	}

	return &ValidationResult{Valid: true, ReferrerUsername: username}, nil
}

// ApplyResult reports a successful code application.
type ApplyResult struct {
	ReferrerID string `json:"referrer_id"`
	RewardKey  string `json:"reward_key"`
}

// Apply links the referred user to the code's owner and immediately fires the
// signup bonus. One referrer per user for life; self-referral is rejected.
func (s *ReferralService) Apply(referredUserID, rawCode string) (*ApplyResult, error) {
	normalized := strings.ToUpper(strings.TrimSpace(rawCode))
	if normalized == "" {
		return nil, fmt.Errorf("%w: referral code is required", ErrValidation)
	}

	// The lookup outside the lock only identifies the code's owner for lock
	// ordering; usability is re-checked inside the transaction, because two
	// referred users applying the same code hold different lock pairs.
	var code models.ReferralCode
	err := s.DB.Where("code = ? AND is_active = ?", normalized, true).First(&code).Error
	if err == gorm.ErrRecordNotFound {
		return nil, fmt.Errorf("%w: referral code %q", ErrNotFound, normalized)
	}
	if err != nil {
		return nil, err
	}
	if code.ExternalUserID == referredUserID {
		return nil, fmt.Errorf("%w: cannot use your own referral code", ErrInvalidState)
	}

	unlockAll := s.lockPair(code.ExternalUserID, referredUserID)
	defer unlockAll()

	var result *ApplyResult
	err = s.DB.Transaction(func(tx *gorm.DB) error {
		// Re-read under the lock so the checks see current state.
		if err := tx.Where("id = ?", code.ID).First(&code).Error; err != nil {
			return err
		}
		if !code.IsActive {
			return fmt.Errorf("%w: referral code is no longer active", ErrInvalidState)
		}
		if code.ExpiresAt != nil && code.ExpiresAt.Before(s.Clock.Now()) {
			return fmt.Errorf("%w: referral code has expired", ErrInvalidState)
		}

		var existing models.Referral
		err := tx.Where("referred_id = ?", referredUserID).First(&existing).Error
		if err == nil {
			return fmt.Errorf("%w: a referral code was already applied", ErrInvalidState)
		}
		if err != gorm.ErrRecordNotFound {
			return err
		}

		// Guarded increment: the max-uses check and the bump are one
		// statement, so a capped code can never be oversubscribed.
		res := tx.Model(&models.ReferralCode{}).
			Where("id = ? AND (max_uses IS NULL OR total_uses < max_uses)", code.ID).
			Update("total_uses", gorm.Expr("total_uses + 1"))
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return fmt.Errorf("%w: referral code has reached maximum uses", ErrInvalidState)
		}

		referral := models.Referral{
			ID:         uuid.NewString(),
			ReferrerID: code.ExternalUserID,
			ReferredID: referredUserID,
			CodeUsed:   normalized,
			Status:     models.ReferralPending,
		}
		if err := tx.Create(&referral).Error; err != nil {
			return err
		}

		stats, err := s.ensureStatsTx(tx, code.ExternalUserID)
		if err != nil {
			return err
		}
		now := s.Clock.Now()
		stats.TotalReferrals++
		stats.LastReferralAt = &now
		if err := tx.Save(stats).Error; err != nil {
			return err
		}

		if _, err := s.payRewardTx(tx, &referral, models.RewardSignupBonus); err != nil {
			return err
		}

		result = &ApplyResult{ReferrerID: code.ExternalUserID, RewardKey: models.RewardSignupBonus}
		return nil
	})
	if err != nil {
		return nil, err
	}

	log.Printf("🤝 Referral applied: %s referred by %s (code %s)", referredUserID, result.ReferrerID, normalized)
	return result, nil
}

// MilestoneResult reports whether a milestone call paid anything.
type MilestoneResult struct {
	RewardTriggered bool   `json:"reward_triggered"`
	RewardKey       string `json:"reward_key,omitempty"`
	NoReferral      bool   `json:"no_referral,omitempty"`
}

// TriggerMilestone reacts to a referred user's progress. Users without a
// referral on file are a silent no-op — referral is optional. Each reward key
// pays at most once per referral; for earnings, only the highest newly-crossed
// tier pays.
func (s *ReferralService) TriggerMilestone(referredUserID, milestoneType string, value float64) (*MilestoneResult, error) {
	var referral models.Referral
	err := s.DB.Where("referred_id = ?", referredUserID).First(&referral).Error
	if err == gorm.ErrRecordNotFound {
		return &MilestoneResult{NoReferral: true}, nil
	}
	if err != nil {
		return nil, err
	}

	unlockAll := s.lockPair(referral.ReferrerID, referredUserID)
	defer unlockAll()

	var result *MilestoneResult
	err = s.DB.Transaction(func(tx *gorm.DB) error {
		// Re-read under the lock.
		if err := tx.Where("id = ?", referral.ID).First(&referral).Error; err != nil {
			return err
		}

		rewardKey := ""
		switch milestoneType {
		case "first_link":
			if !referral.ReferredHasLinked {
				referral.ReferredHasLinked = true
				rewardKey = models.RewardFirstLinkBonus
			}
		case "earnings":
			referral.ReferredEarningAmount = value
			referral.ReferredHasEarned = true
			for _, tier := range models.EarningsTiers {
				if value >= tier.Threshold {
					rewardKey = tier.RewardKey
				}
			}
		default:
			return fmt.Errorf("%w: unknown milestone type %q", ErrValidation, milestoneType)
		}

		if err := tx.Save(&referral).Error; err != nil {
			return err
		}

		if rewardKey == "" {
			result = &MilestoneResult{}
			return nil
		}

		paid, err := s.payRewardTx(tx, &referral, rewardKey)
		if err != nil {
			return err
		}
		if !paid {
			result = &MilestoneResult{RewardKey: rewardKey}
			return nil
		}

		if referral.Status != models.ReferralQualified {
			now := s.Clock.Now()
			referral.Status = models.ReferralQualified
			referral.QualifiedAt = &now
			if err := tx.Save(&referral).Error; err != nil {
				return err
			}
			stats, err := s.ensureStatsTx(tx, referral.ReferrerID)
			if err != nil {
				return err
			}
			stats.QualifiedReferrals++
			if err := tx.Save(stats).Error; err != nil {
				return err
			}
		}

		result = &MilestoneResult{RewardTriggered: true, RewardKey: rewardKey}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

// payRewardTx pays one reward key for a referral if it never fired before.
// Returns false with no writes when the payout row already exists.
func (s *ReferralService) payRewardTx(tx *gorm.DB, referral *models.Referral, rewardKey string) (bool, error) {
	var existing models.ReferralPayout
	err := tx.Where("referral_id = ? AND reward_key = ?", referral.ID, rewardKey).First(&existing).Error
	if err == nil {
		return false, nil
	}
	if err != gorm.ErrRecordNotFound {
		return false, err
	}

	bundle, ok := models.ReferralRewardTable[rewardKey]
	if !ok {
		return false, fmt.Errorf("%w: unknown reward key %q", ErrValidation, rewardKey)
	}

	payout := models.ReferralPayout{
		ID:         uuid.NewString(),
		ReferralID: referral.ID,
		RewardKey:  rewardKey,
	}
	if err := tx.Create(&payout).Error; err != nil {
		return false, err
	}

	desc := "Referral reward: " + rewardKey
	if err := s.paySideTx(tx, referral.ReferrerID, bundle.Referrer, referral.ID, desc); err != nil {
		return false, err
	}
	if err := s.paySideTx(tx, referral.ReferredID, bundle.Referred, referral.ID, desc); err != nil {
		return false, err
	}

	stats, err := s.ensureStatsTx(tx, referral.ReferrerID)
	if err != nil {
		return false, err
	}
	stats.LifetimeReferralXP += bundle.Referrer.XP
	stats.LifetimeReferralPoints += bundle.Referrer.Points
	stats.LifetimeReferralCash += bundle.Referrer.Cash
	if err := tx.Save(stats).Error; err != nil {
		return false, err
	}

	log.Printf("💸 Referral reward paid: %s for referral %s", rewardKey, referral.ID)
	return true, nil
}

func (s *ReferralService) paySideTx(tx *gorm.DB, userID string, reward models.ReferralReward, referralID, desc string) error {
	if reward.XP > 0 {
		if _, err := s.Ledger.grantXPTx(tx, userID, reward.XP, models.SourceReferral, &referralID, desc); err != nil {
			return err
		}
	}
	if reward.Points > 0 {
		if err := s.Ledger.grantPointsTx(tx, userID, reward.Points, models.SourceReferral, &referralID, desc); err != nil {
			return err
		}
	}
	if reward.Cash > 0 {
		if err := creditCashTx(tx, userID, reward.Cash); err != nil {
			return err
		}
	}
	return nil
}

func (s *ReferralService) ensureStatsTx(tx *gorm.DB, externalUserID string) (*models.ReferralStats, error) {
	var stats models.ReferralStats
	err := tx.Where("external_user_id = ?", externalUserID).First(&stats).Error
	if err == gorm.ErrRecordNotFound {
		stats = models.ReferralStats{ID: uuid.NewString(), ExternalUserID: externalUserID}
		if err := tx.Create(&stats).Error; err != nil {
			return nil, err
		}
		return &stats, nil
	}
	if err != nil {
		return nil, err
	}
	return &stats, nil
}

// lockPair takes both users' locks in a fixed order so two referral
// operations touching the same pair can't deadlock.
func (s *ReferralService) lockPair(a, b string) func() {
	ids := []string{a, b}
	sort.Strings(ids)
	unlocks := make([]func(), 0, 2)
	for _, id := range ids {
		unlocks = append(unlocks, s.Ledger.Locks.Lock(id))
	}
	return func() {
		for i := len(unlocks) - 1; i >= 0; i-- {
			unlocks[i]()
		}
	}
}

// ReferredEntry is one row in the referrer's stats view.
type ReferredEntry struct {
	ReferredID    string                `json:"referred_id"`
	Username      string                `json:"username"`
	Status        models.ReferralStatus `json:"status"`
	HasLinked     bool                  `json:"has_linked"`
	EarningAmount float64               `json:"earning_amount"`
	ReferredAt    string                `json:"referred_at"`
}

// StatsView bundles the aggregate mirror with the referred-user list.
type StatsView struct {
	Stats     models.ReferralStats `json:"stats"`
	Code      string               `json:"referral_code,omitempty"`
	CodeUses  int64                `json:"code_uses"`
	Referrals []ReferredEntry      `json:"referrals"`
}

// Stats returns the caller's referral aggregate plus every user they referred.
func (s *ReferralService) Stats(externalUserID string) (*StatsView, error) {
	view := &StatsView{Referrals: []ReferredEntry{}}

	var stats models.ReferralStats
	err := s.DB.Where("external_user_id = ?", externalUserID).First(&stats).Error
	if err != nil && err != gorm.ErrRecordNotFound {
		return nil, err
	}
	if err == nil {
		view.Stats = stats
	} else {
		view.Stats = models.ReferralStats{ExternalUserID: externalUserID}
	}

	var code models.ReferralCode
	if err := s.DB.Where("external_user_id = ?", externalUserID).First(&code).Error; err == nil {
		view.Code = code.Code
		view.CodeUses = code.TotalUses
	}

	var referrals []models.Referral
	if err := s.DB.Where("referrer_id = ?", externalUserID).Order("referred_at DESC").Find(&referrals).Error; err != nil {
		return nil, err
	}
	referredIDs := make([]string, 0, len(referrals))
	for _, r := range referrals {
		referredIDs = append(referredIDs, r.ReferredID)
	}
	usernames, err := usernamesFor(s.DB, referredIDs)
	if err != nil {
		return nil, err
	}
	for _, r := range referrals {
		view.Referrals = append(view.Referrals, ReferredEntry{
			ReferredID:    r.ReferredID,
			Username:      usernames[r.ReferredID],
			Status:        r.Status,
			HasLinked:     r.ReferredHasLinked,
			EarningAmount: r.ReferredEarningAmount,
			ReferredAt:    r.ReferredAt.Format("2006-01-02T15:04:05Z07:00"),
		})
	}
	return view, nil
}

// ReferralLeaderboardEntry is one ranked referrer.
type ReferralLeaderboardEntry struct {
	Rank               int     `json:"rank"`
	ExternalUserID     string  `json:"external_user_id"`
	Username           string  `json:"username"`
	TotalReferrals     int64   `json:"total_referrals"`
	QualifiedReferrals int64   `json:"qualified_referrals"`
	LifetimeCash       float64 `json:"lifetime_referral_cash"`
}

// ReferralLeaderboardView pairs the page with the caller's own rank.
type ReferralLeaderboardView struct {
	Leaderboard []ReferralLeaderboardEntry `json:"leaderboard"`
	UserRank    int                        `json:"user_rank"` // 0 when unranked
	Period      string                     `json:"period"`
}

// Leaderboard ranks referrers by qualified referrals then lifetime cash.
// period "monthly" counts only referrals qualified in the current calendar
// month, computed fresh from the referral rows — there is no synced monthly
// table to go stale.
func (s *ReferralService) Leaderboard(period string, limit int, callerID string) (*ReferralLeaderboardView, error) {
	if limit < 1 || limit > 100 {
		limit = 50
	}

	type row struct {
		ExternalUserID     string
		TotalReferrals     int64
		QualifiedReferrals int64
		LifetimeCash       float64
	}
	var rows []row

	if period == "monthly" {
		now := s.Clock.Now()
		monthStart := now.AddDate(0, 0, -(now.Day() - 1)).Format(dateLayout)
		err := s.DB.Model(&models.Referral{}).
			Select("referrer_id AS external_user_id, COUNT(*) AS total_referrals, SUM(CASE WHEN status = 'qualified' THEN 1 ELSE 0 END) AS qualified_referrals, 0 AS lifetime_cash").
			Where("referred_at >= ? OR (qualified_at IS NOT NULL AND qualified_at >= ?)", monthStart, monthStart).
			Group("referrer_id").
			Find(&rows).Error
		if err != nil {
			return nil, err
		}
	} else {
		period = "all_time"
		err := s.DB.Model(&models.ReferralStats{}).
			Select("external_user_id, total_referrals, qualified_referrals, lifetime_referral_cash AS lifetime_cash").
			Where("total_referrals > 0").
			Find(&rows).Error
		if err != nil {
			return nil, err
		}
	}

	sort.SliceStable(rows, func(i, j int) bool {
		if rows[i].QualifiedReferrals != rows[j].QualifiedReferrals {
			return rows[i].QualifiedReferrals > rows[j].QualifiedReferrals
		}
		if rows[i].LifetimeCash != rows[j].LifetimeCash {
			return rows[i].LifetimeCash > rows[j].LifetimeCash
		}
		if rows[i].TotalReferrals != rows[j].TotalReferrals {
			return rows[i].TotalReferrals > rows[j].TotalReferrals
		}
		return rows[i].ExternalUserID < rows[j].ExternalUserID
	})

	view := &ReferralLeaderboardView{Period: period, Leaderboard: []ReferralLeaderboardEntry{}}
	pageIDs := make([]string, 0, limit)
	for i, r := range rows {
		if r.ExternalUserID == callerID {
			view.UserRank = i + 1
		}
		if i < limit {
			pageIDs = append(pageIDs, r.ExternalUserID)
			view.Leaderboard = append(view.Leaderboard, ReferralLeaderboardEntry{
				Rank:               i + 1,
				ExternalUserID:     r.ExternalUserID,
				TotalReferrals:     r.TotalReferrals,
				QualifiedReferrals: r.QualifiedReferrals,
				LifetimeCash:       r.LifetimeCash,
			})
		}
	}

	usernames, err := usernamesFor(s.DB, pageIDs)
	if err != nil {
		return nil, err
	}
	for i := range view.Leaderboard {
		view.Leaderboard[i].Username = usernames[view.Leaderboard[i].ExternalUserID]
	}
	return view, nil
}
