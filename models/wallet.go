package models

import "time"

// CashWallet mirrors the spendable bonus balance owned by the payments
// service. Mission cash rewards and referral cash payouts credit it locally;
// the payments side reconciles from the same transaction logs.
type CashWallet struct {
	ID             string    `gorm:"primaryKey;type:uuid" json:"id"`
	ExternalUserID string    `gorm:"uniqueIndex;not null" json:"external_user_id"`
	BonusBalance   float64   `json:"bonus_balance" gorm:"default:0"`
	CreatedAt      time.Time `json:"created_at" gorm:"autoCreateTime"`
	UpdatedAt      time.Time `json:"updated_at" gorm:"autoUpdateTime"`
}
