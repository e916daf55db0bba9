package models

import "time"

// DailyActivity is one row per user per calendar date. The unique index on
// (user, date) plus the DailyRewardClaimed flag enforce at most one check-in
// reward per day.
type DailyActivity struct {
	ID                 string    `gorm:"primaryKey;type:uuid" json:"id"`
	ExternalUserID     string    `gorm:"uniqueIndex:idx_user_activity_date;not null" json:"external_user_id"`
	ActivityDate       string    `gorm:"uniqueIndex:idx_user_activity_date;type:varchar(10);not null" json:"activity_date"` // YYYY-MM-DD
	LoginsCount        int       `json:"logins_count" gorm:"default:0"`
	DailyRewardClaimed bool      `json:"daily_reward_claimed" gorm:"default:false"`
	CreatedAt          time.Time `json:"created_at" gorm:"autoCreateTime"`
	UpdatedAt          time.Time `json:"updated_at" gorm:"autoUpdateTime"`
}

// Check-in reward tuning. Bonus scales with streak length and is capped.
const (
	CheckinBaseXP      int64 = 50
	CheckinPerDayBonus int64 = 10
	CheckinMaxBonus    int64 = 100
)
