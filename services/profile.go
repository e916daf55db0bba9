package services

import (
	"game-progression-service/models"

	"gorm.io/gorm"
)

// ProfileView is the full game profile returned to the dashboard.
type ProfileView struct {
	models.UserProfile
	RankColor      string `json:"rank_color"`
	RankIcon       string `json:"rank_icon"`
	XPToNextLevel  int64  `json:"xp_to_next_level"`
	BadgesUnlocked int64  `json:"badges_unlocked"`
	TotalBadges    int64  `json:"total_badges"`
}

// SummaryView is the compact dashboard aggregate.
type SummaryView struct {
	Level                  int    `json:"level"`
	CurrentXP              int64  `json:"current_xp"`
	TotalPoints            int64  `json:"total_points"`
	AvailablePoints        int64  `json:"available_points"`
	CurrentStreak          int    `json:"current_streak"`
	RankTitle              string `json:"rank_title"`
	TotalMissionsCompleted int64  `json:"total_missions_completed"`
	AchievementsUnlocked   int64  `json:"achievements_unlocked"`
	ActiveMissions         int64  `json:"active_missions"`
}

// Profile assembles the caller's profile view, creating the profile lazily.
func (s *LedgerService) Profile(externalUserID string) (*ProfileView, error) {
	prof, err := s.EnsureProfile(externalUserID)
	if err != nil {
		return nil, err
	}

	rank := models.RankForLevel(prof.Level)

	var unlocked int64
	if err := s.DB.Model(&models.UserAchievement{}).
		Where("external_user_id = ?", externalUserID).
		Count(&unlocked).Error; err != nil {
		return nil, err
	}
	var total int64
	if err := s.DB.Model(&models.Achievement{}).
		Where("is_active = ?", true).
		Count(&total).Error; err != nil {
		return nil, err
	}

	return &ProfileView{
		UserProfile:    *prof,
		RankColor:      rank.Color,
		RankIcon:       rank.Icon,
		XPToNextLevel:  models.XPToNextLevel(prof.Level),
		BadgesUnlocked: unlocked,
		TotalBadges:    total,
	}, nil
}

// Summary assembles the compact dashboard aggregate.
func (s *LedgerService) Summary(externalUserID string) (*SummaryView, error) {
	prof, err := s.EnsureProfile(externalUserID)
	if err != nil {
		return nil, err
	}

	var unlocked int64
	if err := s.DB.Model(&models.UserAchievement{}).
		Where("external_user_id = ?", externalUserID).
		Count(&unlocked).Error; err != nil {
		return nil, err
	}
	var activeMissions int64
	if err := s.DB.Model(&models.UserMission{}).
		Where("external_user_id = ? AND status = ?", externalUserID, models.MissionActive).
		Count(&activeMissions).Error; err != nil {
		return nil, err
	}

	return &SummaryView{
		Level:                  prof.Level,
		CurrentXP:              prof.CurrentXP,
		TotalPoints:            prof.TotalPoints,
		AvailablePoints:        prof.AvailablePoints,
		CurrentStreak:          prof.CurrentStreak,
		RankTitle:              prof.RankTitle,
		TotalMissionsCompleted: prof.TotalMissionsCompleted,
		AchievementsUnlocked:   unlocked,
		ActiveMissions:         activeMissions,
	}, nil
}

// VerifyLedger recomputes a user's XP aggregate from the log and reports
// whether the stored mirror matches. Intended for admin diagnostics.
func (s *LedgerService) VerifyLedger(externalUserID string) (bool, int64, error) {
	var sum struct{ Total int64 }
	err := s.DB.Model(&models.XPTransaction{}).
		Select("COALESCE(SUM(amount), 0) AS total").
		Where("external_user_id = ?", externalUserID).
		Scan(&sum).Error
	if err != nil {
		return false, 0, err
	}

	var prof models.UserProfile
	err = s.DB.Where("external_user_id = ?", externalUserID).First(&prof).Error
	if err == gorm.ErrRecordNotFound {
		return sum.Total == 0, sum.Total, nil
	}
	if err != nil {
		return false, 0, err
	}
	return prof.TotalXP == sum.Total, sum.Total, nil
}
