package services

import (
	"fmt"
	"log"

	"game-progression-service/models"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// AchievementService unlocks achievements at most once per user and credits
// their reward bundle through the ledger.
type AchievementService struct {
	DB     *gorm.DB
	Ledger *LedgerService
}

func NewAchievementService(db *gorm.DB, ledger *LedgerService) *AchievementService {
	return &AchievementService{DB: db, Ledger: ledger}
}

// UnlockResult is the outcome of CheckAndUnlock. AlreadyUnlocked is a
// successful no-op, not an error, so callers can fire checks after every
// qualifying action.
type UnlockResult struct {
	Unlocked        bool               `json:"unlocked"`
	AlreadyUnlocked bool               `json:"already_unlocked"`
	Achievement     models.Achievement `json:"achievement"`
	XPReward        int64              `json:"xp_reward"`
	PointsReward    int64              `json:"points_reward"`
	LeveledUp       bool               `json:"leveled_up"`
}

// CheckAndUnlock unlocks the achievement named by key for the user, crediting
// its rewards exactly once. The unique (user, achievement) row is the
// idempotency guard.
func (s *AchievementService) CheckAndUnlock(externalUserID, key string) (*UnlockResult, error) {
	var ach models.Achievement
	if err := s.DB.Where("key = ? AND is_active = ?", key, true).First(&ach).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, fmt.Errorf("%w: achievement %q", ErrNotFound, key)
		}
		return nil, err
	}

	unlock := s.Ledger.Locks.Lock(externalUserID)
	defer unlock()

	var result *UnlockResult
	err := s.DB.Transaction(func(tx *gorm.DB) error {
		var existing models.UserAchievement
		err := tx.Where("external_user_id = ? AND achievement_id = ?", externalUserID, ach.ID).First(&existing).Error
		if err == nil {
			result = &UnlockResult{AlreadyUnlocked: true, Achievement: ach}
			return nil
		}
		if err != gorm.ErrRecordNotFound {
			return err
		}

		ua := models.UserAchievement{
			ID:             uuid.NewString(),
			ExternalUserID: externalUserID,
			AchievementID:  ach.ID,
			IsClaimed:      true,
		}
		if err := tx.Create(&ua).Error; err != nil {
			return err
		}

		result = &UnlockResult{
			Unlocked:     true,
			Achievement:  ach,
			XPReward:     ach.XPReward,
			PointsReward: ach.PointsReward,
		}

		if ach.XPReward > 0 {
			grant, err := s.Ledger.grantXPTx(tx, externalUserID, ach.XPReward, models.SourceAchievement, &ach.ID, "Achievement: "+ach.Name)
			if err != nil {
				return err
			}
			result.LeveledUp = grant.LeveledUp
		}
		if ach.PointsReward > 0 {
			if err := s.Ledger.grantPointsTx(tx, externalUserID, ach.PointsReward, models.SourceAchievement, &ach.ID, "Achievement: "+ach.Name); err != nil {
				return err
			}
		}

		prof, err := ensureProfileTx(tx, externalUserID)
		if err != nil {
			return err
		}
		prof.TotalAchievementsUnlocked++
		return tx.Save(prof).Error
	})
	if err != nil {
		return nil, err
	}

	if result.Unlocked {
		log.Printf("🏆 Achievement unlocked: %s → %s", ach.Key, externalUserID)
	}
	return result, nil
}

// AchievementView is a definition joined with the caller's unlock state.
type AchievementView struct {
	models.Achievement
	IsUnlocked bool    `json:"is_unlocked"`
	IsClaimed  bool    `json:"is_claimed"`
	UnlockedAt *string `json:"unlocked_at,omitempty"`
}

// AchievementList groups the catalog by category with summary counts.
type AchievementList struct {
	All        []AchievementView            `json:"all"`
	ByCategory map[string][]AchievementView `json:"by_category"`
	Total      int                          `json:"total"`
	Unlocked   int                          `json:"unlocked"`
	Claimed    int                          `json:"claimed"`
}

// ListForUser returns all active achievements with the caller's unlock state.
// Secret achievements stay hidden until the caller has unlocked them.
func (s *AchievementService) ListForUser(externalUserID string) (*AchievementList, error) {
	var defs []models.Achievement
	if err := s.DB.Where("is_active = ?", true).Order("category, key").Find(&defs).Error; err != nil {
		return nil, err
	}

	var unlocks []models.UserAchievement
	if err := s.DB.Where("external_user_id = ?", externalUserID).Find(&unlocks).Error; err != nil {
		return nil, err
	}
	byAchievement := make(map[string]models.UserAchievement, len(unlocks))
	for _, ua := range unlocks {
		byAchievement[ua.AchievementID] = ua
	}

	list := &AchievementList{ByCategory: make(map[string][]AchievementView)}
	for _, def := range defs {
		ua, unlocked := byAchievement[def.ID]
		if def.IsSecret && !unlocked {
			continue
		}
		view := AchievementView{Achievement: def, IsUnlocked: unlocked}
		if unlocked {
			view.IsClaimed = ua.IsClaimed
			ts := ua.UnlockedAt.Format("2006-01-02T15:04:05Z07:00")
			view.UnlockedAt = &ts
			list.Unlocked++
			if ua.IsClaimed {
				list.Claimed++
			}
		}
		list.All = append(list.All, view)
		list.ByCategory[def.Category] = append(list.ByCategory[def.Category], view)
	}
	list.Total = len(list.All)
	return list, nil
}

// SetIconURL stores the uploaded badge icon location on a definition.
func (s *AchievementService) SetIconURL(key, url string) error {
	res := s.DB.Model(&models.Achievement{}).Where("key = ?", key).Update("icon_url", url)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return fmt.Errorf("%w: achievement %q", ErrNotFound, key)
	}
	return nil
}
