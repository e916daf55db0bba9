package models

import "time"

// MissionType drives ordering and expiry: daily missions expire 24h after start.
type MissionType string

const (
	MissionDaily   MissionType = "daily"
	MissionWeekly  MissionType = "weekly"
	MissionSpecial MissionType = "special"
)

// MissionStatus is the user-mission lifecycle. Transitions are monotonic:
// active → completed → claimed, with expired reachable only from active.
type MissionStatus string

const (
	MissionActive    MissionStatus = "active"
	MissionCompleted MissionStatus = "completed"
	MissionClaimed   MissionStatus = "claimed"
	MissionExpired   MissionStatus = "expired"
)

// Mission is a static/admin-managed objective definition.
type Mission struct {
	ID                string      `gorm:"primaryKey;type:uuid" json:"id"`
	Title             string      `gorm:"not null" json:"title"`
	Description       string      `json:"description"`
	Type              MissionType `gorm:"type:varchar(16);not null" json:"type"`
	Difficulty        int         `json:"difficulty" gorm:"default:1"` // 1 (easy) .. 5 (brutal)
	RequirementTarget int64       `gorm:"not null" json:"requirement_target"`
	XPReward          int64       `json:"xp_reward" gorm:"default:0"`
	PointsReward      int64       `json:"points_reward" gorm:"default:0"`
	CashReward        float64     `json:"cash_reward" gorm:"default:0"`
	StartDate         *time.Time  `json:"start_date,omitempty"`
	EndDate           *time.Time  `json:"end_date,omitempty"`
	IsActive          bool        `json:"is_active" gorm:"default:true"`

	CreatedAt time.Time `json:"created_at" gorm:"autoCreateTime"`
	UpdatedAt time.Time `json:"updated_at" gorm:"autoUpdateTime"`
}

// UserMission is one attempt at a mission. TargetProgress is snapshotted from
// the definition at start time so later definition edits don't move the goal.
// The Earned columns record what claim actually paid, for audit.
type UserMission struct {
	ID             string        `gorm:"primaryKey;type:uuid" json:"id"`
	ExternalUserID string        `gorm:"index;not null" json:"external_user_id"`
	MissionID      string        `gorm:"index;not null" json:"mission_id"`
	Status         MissionStatus `gorm:"type:varchar(16);not null;default:'active';index" json:"status"`
	CurrentProgress int64        `json:"current_progress" gorm:"default:0"`
	TargetProgress  int64        `gorm:"not null" json:"target_progress"`

	StartedAt   time.Time  `json:"started_at" gorm:"autoCreateTime"`
	CompletedAt *time.Time `json:"completed_at,omitempty"`
	ClaimedAt   *time.Time `json:"claimed_at,omitempty"`
	ExpiresAt   *time.Time `json:"expires_at,omitempty" gorm:"index"`

	XPEarned     int64   `json:"xp_earned" gorm:"default:0"`
	PointsEarned int64   `json:"points_earned" gorm:"default:0"`
	CashEarned   float64 `json:"cash_earned" gorm:"default:0"`
}

// DefaultMissions seeds the definitions table on first boot.
var DefaultMissions = []Mission{
	{Title: "Daily Grinder", Description: "Send 20 messages today", Type: MissionDaily, Difficulty: 1, RequirementTarget: 20, XPReward: 100, PointsReward: 50},
	{Title: "Daily Login", Description: "Open the app today", Type: MissionDaily, Difficulty: 1, RequirementTarget: 1, XPReward: 25, PointsReward: 10},
	{Title: "Weekly Warrior", Description: "Send 200 messages this week", Type: MissionWeekly, Difficulty: 3, RequirementTarget: 200, XPReward: 750, PointsReward: 400, CashReward: 5000},
	{Title: "Link Up", Description: "Link 2 devices", Type: MissionSpecial, Difficulty: 2, RequirementTarget: 2, XPReward: 500, PointsReward: 250, CashReward: 10000},
	{Title: "Inner Circle", Description: "Refer 3 friends", Type: MissionSpecial, Difficulty: 4, RequirementTarget: 3, XPReward: 1500, PointsReward: 1000, CashReward: 25000},
}
