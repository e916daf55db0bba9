package models

import "time"

// ReferralStatus tracks whether the referred user has hit any paying milestone.
type ReferralStatus string

const (
	ReferralPending   ReferralStatus = "pending"
	ReferralQualified ReferralStatus = "qualified"
)

// ReferralCode is one per user, created lazily, immutable once stored.
type ReferralCode struct {
	ID             string     `gorm:"primaryKey;type:uuid" json:"id"`
	ExternalUserID string     `gorm:"uniqueIndex;not null" json:"external_user_id"`
	Code           string     `gorm:"uniqueIndex;type:varchar(32);not null" json:"code"`
	TotalUses      int64      `json:"total_uses" gorm:"default:0"`
	MaxUses        *int64     `json:"max_uses,omitempty"`
	ExpiresAt      *time.Time `json:"expires_at,omitempty"`
	IsActive       bool       `json:"is_active" gorm:"default:true"`
	CreatedAt      time.Time  `json:"created_at" gorm:"autoCreateTime"`
}

// Referral records a referrer→referred relationship. The unique index on
// ReferredID enforces one referrer per user for life.
type Referral struct {
	ID         string `gorm:"primaryKey;type:uuid" json:"id"`
	ReferrerID string `gorm:"index;not null" json:"referrer_id"`
	ReferredID string `gorm:"uniqueIndex;not null" json:"referred_id"`

	CodeUsed string         `gorm:"not null" json:"code_used"`
	Status   ReferralStatus `gorm:"type:varchar(16);not null;default:'pending'" json:"status"`

	ReferredHasLinked     bool    `json:"referred_has_linked" gorm:"default:false"`
	ReferredHasEarned     bool    `json:"referred_has_earned" gorm:"default:false"`
	ReferredEarningAmount float64 `json:"referred_earning_amount" gorm:"default:0"`

	ReferredAt  time.Time  `json:"referred_at" gorm:"autoCreateTime"`
	QualifiedAt *time.Time `json:"qualified_at,omitempty"`
}

// ReferralPayout marks a reward key as paid for a referral. The unique index
// on (referral, reward key) is what makes every milestone at-most-once.
type ReferralPayout struct {
	ID         string    `gorm:"primaryKey;type:uuid" json:"id"`
	ReferralID string    `gorm:"uniqueIndex:idx_referral_reward;not null" json:"referral_id"`
	RewardKey  string    `gorm:"uniqueIndex:idx_referral_reward;type:varchar(32);not null" json:"reward_key"`
	PaidAt     time.Time `json:"paid_at" gorm:"autoCreateTime"`
}

// ReferralStats is the per-referrer aggregate mirror.
type ReferralStats struct {
	ID                     string     `gorm:"primaryKey;type:uuid" json:"id"`
	ExternalUserID         string     `gorm:"uniqueIndex;not null" json:"external_user_id"`
	TotalReferrals         int64      `json:"total_referrals" gorm:"default:0"`
	QualifiedReferrals     int64      `json:"qualified_referrals" gorm:"default:0"`
	LifetimeReferralCash   float64    `json:"lifetime_referral_cash" gorm:"default:0"`
	LifetimeReferralPoints int64      `json:"lifetime_referral_points" gorm:"default:0"`
	LifetimeReferralXP     int64      `json:"lifetime_referral_xp" gorm:"default:0"`
	LastReferralAt         *time.Time `json:"last_referral_at,omitempty"`
	CreatedAt              time.Time  `json:"created_at" gorm:"autoCreateTime"`
	UpdatedAt              time.Time  `json:"updated_at" gorm:"autoUpdateTime"`
}

// Milestone reward keys.
const (
	RewardSignupBonus    = "signup_bonus"
	RewardFirstLinkBonus = "first_link_bonus"
	RewardEarningsTier1  = "earnings_tier1"
	RewardEarningsTier2  = "earnings_tier2"
	RewardEarningsTier3  = "earnings_tier3"
)

// EarningsTier pairs a cumulative-earnings threshold with its reward key.
type EarningsTier struct {
	Threshold float64
	RewardKey string
}

// EarningsTiers is ascending by threshold. Only the highest newly-crossed tier
// pays out on an earnings update.
var EarningsTiers = []EarningsTier{
	{Threshold: 50_000, RewardKey: RewardEarningsTier1},
	{Threshold: 100_000, RewardKey: RewardEarningsTier2},
	{Threshold: 500_000, RewardKey: RewardEarningsTier3},
}

// ReferralReward is one side of a milestone payout bundle.
type ReferralReward struct {
	XP     int64
	Points int64
	Cash   float64
}

// ReferralRewardBundle holds both sides of a milestone payout.
type ReferralRewardBundle struct {
	Referrer ReferralReward
	Referred ReferralReward
}

// ReferralRewardTable maps reward key → payout bundle. Either side may be zero.
var ReferralRewardTable = map[string]ReferralRewardBundle{
	RewardSignupBonus:    {Referrer: ReferralReward{XP: 500, Points: 200}, Referred: ReferralReward{XP: 250, Points: 100}},
	RewardFirstLinkBonus: {Referrer: ReferralReward{XP: 250, Points: 500, Cash: 5_000}, Referred: ReferralReward{XP: 100, Points: 250}},
	RewardEarningsTier1:  {Referrer: ReferralReward{Points: 500, Cash: 10_000}, Referred: ReferralReward{XP: 100}},
	RewardEarningsTier2:  {Referrer: ReferralReward{Points: 1_000, Cash: 25_000}, Referred: ReferralReward{XP: 250}},
	RewardEarningsTier3:  {Referrer: ReferralReward{Points: 2_500, Cash: 100_000}, Referred: ReferralReward{XP: 500}},
}
