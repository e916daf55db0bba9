package models

import "time"

// SourceType labels where a grant came from.
type SourceType string

const (
	SourceAchievement  SourceType = "achievement"
	SourceMission      SourceType = "mission"
	SourceDailyCheckin SourceType = "daily_checkin"
	SourceReferral     SourceType = "referral"
	SourceManual       SourceType = "manual"
)

// PointsDirection separates earning from spending in the points log.
type PointsDirection string

const (
	PointsEarned PointsDirection = "earned"
	PointsSpent  PointsDirection = "spent"
)

// XPTransaction is an append-only log entry. Rows are never updated or deleted;
// UserProfile.TotalXP must always equal the sum of a user's amounts here.
type XPTransaction struct {
	ID             string     `gorm:"primaryKey;type:uuid" json:"id"`
	ExternalUserID string     `gorm:"index;not null" json:"external_user_id"`
	Amount         int64      `gorm:"not null" json:"amount"` // always > 0
	SourceType     SourceType `gorm:"type:varchar(32);not null" json:"source_type"`
	SourceID       *string    `gorm:"index" json:"source_id,omitempty"`
	Description    string     `json:"description"`
	CreatedAt      time.Time  `json:"created_at" gorm:"autoCreateTime"`
}

// PointsTransaction is the append-only points log, covering both directions.
type PointsTransaction struct {
	ID             string          `gorm:"primaryKey;type:uuid" json:"id"`
	ExternalUserID string          `gorm:"index;not null" json:"external_user_id"`
	Amount         int64           `gorm:"not null" json:"amount"`
	Direction      PointsDirection `gorm:"type:varchar(16);not null" json:"direction"`
	SourceType     SourceType      `gorm:"type:varchar(32);not null" json:"source_type"`
	SourceID       *string         `gorm:"index" json:"source_id,omitempty"`
	Description    string          `json:"description"`
	CreatedAt      time.Time       `json:"created_at" gorm:"autoCreateTime"`
}
