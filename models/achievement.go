package models

import "time"

// Achievement is a static/admin-managed definition. Unlock state lives in
// UserAchievement.
type Achievement struct {
	ID           string `gorm:"primaryKey;type:uuid" json:"id"`
	Key          string `gorm:"uniqueIndex;not null" json:"key"` // e.g., "first_link"
	Name         string `gorm:"not null" json:"name"`
	Category     string `gorm:"type:varchar(32);not null;default:'general'" json:"category"`
	Requirement  string `json:"requirement"` // human-readable unlock condition
	XPReward     int64  `json:"xp_reward" gorm:"default:0"`
	PointsReward int64  `json:"points_reward" gorm:"default:0"`
	IconURL      string `gorm:"type:text" json:"icon_url"`
	Rarity       string `gorm:"type:varchar(16);default:'common'" json:"rarity"` // common, rare, epic, legendary
	IsSecret     bool   `json:"is_secret" gorm:"default:false"`
	IsActive     bool   `json:"is_active" gorm:"default:true"`

	CreatedAt time.Time `json:"created_at" gorm:"autoCreateTime"`
	UpdatedAt time.Time `json:"updated_at" gorm:"autoUpdateTime"`
}

// UserAchievement exists only once a user has unlocked the achievement.
// The unique index on (user, achievement) is the idempotency guarantee:
// a second unlock attempt finds the row and credits nothing.
type UserAchievement struct {
	ID             string    `gorm:"primaryKey;type:uuid" json:"id"`
	ExternalUserID string    `gorm:"uniqueIndex:idx_user_achievement;not null" json:"external_user_id"`
	AchievementID  string    `gorm:"uniqueIndex:idx_user_achievement;not null" json:"achievement_id"`
	UnlockedAt     time.Time `json:"unlocked_at" gorm:"autoCreateTime"`
	IsClaimed      bool      `json:"is_claimed" gorm:"default:true"`
	Progress       int64     `json:"progress" gorm:"default:0"`
}

// DefaultAchievements seeds the definitions table on first boot.
var DefaultAchievements = []Achievement{
	{Key: "first_link", Name: "Connected", Category: "onboarding", Requirement: "Link your first device", XPReward: 100, PointsReward: 50, Rarity: "common"},
	{Key: "first_mission", Name: "Mission Rookie", Category: "missions", Requirement: "Claim your first mission reward", XPReward: 150, PointsReward: 75, Rarity: "common"},
	{Key: "mission_master", Name: "Mission Master", Category: "missions", Requirement: "Complete 25 missions", XPReward: 1000, PointsReward: 500, Rarity: "epic"},
	{Key: "streak_7", Name: "One Week Strong", Category: "streaks", Requirement: "Check in 7 days in a row", XPReward: 300, PointsReward: 150, Rarity: "rare"},
	{Key: "streak_30", Name: "Iron Habit", Category: "streaks", Requirement: "Check in 30 days in a row", XPReward: 1500, PointsReward: 750, Rarity: "legendary"},
	{Key: "level_10", Name: "Double Digits", Category: "leveling", Requirement: "Reach level 10", XPReward: 0, PointsReward: 250, Rarity: "rare"},
	{Key: "level_25", Name: "Gold Standard", Category: "leveling", Requirement: "Reach level 25", XPReward: 0, PointsReward: 1000, Rarity: "epic"},
	{Key: "first_referral", Name: "Recruiter", Category: "referrals", Requirement: "Refer your first friend", XPReward: 200, PointsReward: 100, Rarity: "common"},
	{Key: "referral_5", Name: "Talent Scout", Category: "referrals", Requirement: "Have 5 qualified referrals", XPReward: 1000, PointsReward: 500, Rarity: "epic"},
	{Key: "night_owl", Name: "Night Owl", Category: "general", Requirement: "???", XPReward: 100, PointsReward: 50, Rarity: "rare", IsSecret: true},
}
