package models

import (
	"time"

	"gorm.io/gorm"
)

// UserProfile is the per-user aggregate mirror for the progression engine.
// All counters are derived caches over the transaction logs; only the service
// layer writes to this table, always inside the same DB transaction as the
// matching log append.
type UserProfile struct {
	ID             string `gorm:"primaryKey;type:uuid" json:"id"`
	ExternalUserID string `gorm:"uniqueIndex;not null" json:"external_user_id"` // links to profile service

	// Leveling
	Level     int    `json:"level" gorm:"default:1"`
	CurrentXP int64  `json:"current_xp" gorm:"default:0"` // XP within the current level
	TotalXP   int64  `json:"total_xp" gorm:"default:0"`   // lifetime, never decreases
	RankTitle string `json:"rank_title" gorm:"type:varchar(32);default:'Rookie'"`
	RankTier  int    `json:"rank_tier" gorm:"default:1"`

	// Points (spendable secondary currency)
	TotalPoints     int64 `json:"total_points" gorm:"default:0"`
	AvailablePoints int64 `json:"available_points" gorm:"default:0"`
	LifetimePoints  int64 `json:"lifetime_points" gorm:"default:0"`

	// Streaks
	CurrentStreak    int     `json:"current_streak" gorm:"default:0"`
	LongestStreak    int     `json:"longest_streak" gorm:"default:0"`
	LastActivityDate *string `json:"last_activity_date,omitempty" gorm:"type:varchar(10)"` // YYYY-MM-DD

	// Activity counters
	TotalMissionsCompleted    int64 `json:"total_missions_completed" gorm:"default:0"`
	TotalAchievementsUnlocked int64 `json:"total_achievements_unlocked" gorm:"default:0"`

	// Milestones
	LastLevelUpAt *time.Time `json:"last_level_up_at,omitempty"`
	LastRankUpAt  *time.Time `json:"last_rank_up_at,omitempty"`

	Timestamps
}

// Timestamps adds GORM auto-times
type Timestamps struct {
	CreatedAt time.Time      `json:"created_at" gorm:"autoCreateTime"`
	UpdatedAt time.Time      `json:"updated_at" gorm:"autoUpdateTime"`
	DeletedAt gorm.DeletedAt `json:"deleted_at,omitempty" gorm:"index"`
}
