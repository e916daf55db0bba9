package models

import (
	"time"

	"gorm.io/gorm"
)

// GameUser is a local snapshot of profile-service user data. Owned by this
// service, populated by the user sync worker; supplies display names for
// leaderboards and referral validation.
type GameUser struct {
	ID             string  `gorm:"primaryKey;type:uuid" json:"id"`
	ExternalUserID string  `gorm:"uniqueIndex;not null" json:"external_user_id"`
	Username       string  `gorm:"index;not null" json:"username"`
	Email          string  `json:"email,omitempty"`
	AvatarURL      *string `json:"avatar_url,omitempty"`

	CreatedAt time.Time      `json:"created_at" gorm:"autoCreateTime"`
	UpdatedAt time.Time      `json:"updated_at" gorm:"autoUpdateTime"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"-"`
}
