package services

import (
	"fmt"
	"log"

	"game-progression-service/models"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
	"gorm.io/gorm"
)

// LedgerService owns the append-only XP/points logs and the UserProfile
// aggregate mirror. Every grant appends exactly one transaction row and
// applies exactly one aggregate update, inside a single DB transaction.
type LedgerService struct {
	DB    *gorm.DB
	Locks *UserLocks
	Clock clockwork.Clock
}

func NewLedgerService(db *gorm.DB, locks *UserLocks, clock clockwork.Clock) *LedgerService {
	return &LedgerService{DB: db, Locks: locks, Clock: clock}
}

// XPGrantResult reports the outcome of a single XP grant.
type XPGrantResult struct {
	LeveledUp   bool   `json:"leveled_up"`
	Level       int    `json:"new_level"`
	CurrentXP   int64  `json:"new_xp"`
	TotalXP     int64  `json:"total_xp"`
	XPGained    int64  `json:"xp_gained"`
	RankTitle   string `json:"rank_title"`
	RankTier    int    `json:"rank_tier"`
	RankedUp    bool   `json:"ranked_up"`
}

// EnsureProfile returns the user's profile, creating it lazily with level 1
// and zeroed counters on first access.
func (s *LedgerService) EnsureProfile(externalUserID string) (*models.UserProfile, error) {
	return ensureProfileTx(s.DB, externalUserID)
}

func ensureProfileTx(tx *gorm.DB, externalUserID string) (*models.UserProfile, error) {
	var prof models.UserProfile
	err := tx.Where("external_user_id = ?", externalUserID).First(&prof).Error
	if err == gorm.ErrRecordNotFound {
		prof = models.UserProfile{
			ID:             uuid.NewString(),
			ExternalUserID: externalUserID,
			Level:          1,
			RankTitle:      models.RankTiers[0].Name,
			RankTier:       1,
		}
		if err := tx.Create(&prof).Error; err != nil {
			return nil, err
		}
		return &prof, nil
	}
	if err != nil {
		return nil, err
	}
	return &prof, nil
}

// GrantXP appends an XPTransaction and walks the level-up loop, atomically.
// Safe to call repeatedly; level and total XP never decrease.
func (s *LedgerService) GrantXP(externalUserID string, amount int64, sourceType models.SourceType, sourceID *string, description string) (*XPGrantResult, error) {
	if amount <= 0 {
		return nil, fmt.Errorf("%w: xp amount must be positive", ErrValidation)
	}

	unlock := s.Locks.Lock(externalUserID)
	defer unlock()

	var result *XPGrantResult
	err := s.DB.Transaction(func(tx *gorm.DB) error {
		var txErr error
		result, txErr = s.grantXPTx(tx, externalUserID, amount, sourceType, sourceID, description)
		return txErr
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

// grantXPTx is the in-transaction body of GrantXP, shared with achievement
// unlocks, mission claims, check-ins and referral payouts so each of those
// stays one atomic unit. Caller must hold the user's lock.
func (s *LedgerService) grantXPTx(tx *gorm.DB, externalUserID string, amount int64, sourceType models.SourceType, sourceID *string, description string) (*XPGrantResult, error) {
	if amount <= 0 {
		return nil, fmt.Errorf("%w: xp amount must be positive", ErrValidation)
	}

	prof, err := ensureProfileTx(tx, externalUserID)
	if err != nil {
		return nil, err
	}

	entry := models.XPTransaction{
		ID:             uuid.NewString(),
		ExternalUserID: externalUserID,
		Amount:         amount,
		SourceType:     sourceType,
		SourceID:       sourceID,
		Description:    description,
	}
	if err := tx.Create(&entry).Error; err != nil {
		return nil, err
	}

	prof.TotalXP += amount
	prof.CurrentXP += amount

	leveledUp := false
	for prof.CurrentXP >= models.XPToNextLevel(prof.Level) {
		prof.CurrentXP -= models.XPToNextLevel(prof.Level)
		prof.Level++
		leveledUp = true
	}

	rankedUp := false
	if leveledUp {
		now := s.Clock.Now()
		prof.LastLevelUpAt = &now
		if rank := models.RankForLevel(prof.Level); rank.Tier > prof.RankTier {
			prof.RankTier = rank.Tier
			prof.RankTitle = rank.Name
			prof.LastRankUpAt = &now
			rankedUp = true
		}
	}

	if err := tx.Save(prof).Error; err != nil {
		return nil, err
	}

	log.Printf("🎮 XP granted: %s +%d (%s) → L%d, total=%d", externalUserID, amount, sourceType, prof.Level, prof.TotalXP)

	return &XPGrantResult{
		LeveledUp: leveledUp,
		Level:     prof.Level,
		CurrentXP: prof.CurrentXP,
		TotalXP:   prof.TotalXP,
		XPGained:  amount,
		RankTitle: prof.RankTitle,
		RankTier:  prof.RankTier,
		RankedUp:  rankedUp,
	}, nil
}

// GrantPoints appends a PointsTransaction and raises all three points
// aggregates, atomically.
func (s *LedgerService) GrantPoints(externalUserID string, amount int64, sourceType models.SourceType, sourceID *string, description string) error {
	if amount <= 0 {
		return fmt.Errorf("%w: points amount must be positive", ErrValidation)
	}

	unlock := s.Locks.Lock(externalUserID)
	defer unlock()

	return s.DB.Transaction(func(tx *gorm.DB) error {
		return s.grantPointsTx(tx, externalUserID, amount, sourceType, sourceID, description)
	})
}

func (s *LedgerService) grantPointsTx(tx *gorm.DB, externalUserID string, amount int64, sourceType models.SourceType, sourceID *string, description string) error {
	if amount <= 0 {
		return fmt.Errorf("%w: points amount must be positive", ErrValidation)
	}

	prof, err := ensureProfileTx(tx, externalUserID)
	if err != nil {
		return err
	}

	entry := models.PointsTransaction{
		ID:             uuid.NewString(),
		ExternalUserID: externalUserID,
		Amount:         amount,
		Direction:      models.PointsEarned,
		SourceType:     sourceType,
		SourceID:       sourceID,
		Description:    description,
	}
	if err := tx.Create(&entry).Error; err != nil {
		return err
	}

	prof.TotalPoints += amount
	prof.AvailablePoints += amount
	prof.LifetimePoints += amount
	return tx.Save(prof).Error
}

// SpendPoints debits available points. Total and lifetime stay untouched so
// the earned fold over the log still matches.
func (s *LedgerService) SpendPoints(externalUserID string, amount int64, sourceType models.SourceType, sourceID *string, description string) error {
	if amount <= 0 {
		return fmt.Errorf("%w: points amount must be positive", ErrValidation)
	}

	unlock := s.Locks.Lock(externalUserID)
	defer unlock()

	return s.DB.Transaction(func(tx *gorm.DB) error {
		prof, err := ensureProfileTx(tx, externalUserID)
		if err != nil {
			return err
		}
		if prof.AvailablePoints < amount {
			return fmt.Errorf("%w: have %d, need %d", ErrInsufficientPoints, prof.AvailablePoints, amount)
		}

		entry := models.PointsTransaction{
			ID:             uuid.NewString(),
			ExternalUserID: externalUserID,
			Amount:         amount,
			Direction:      models.PointsSpent,
			SourceType:     sourceType,
			SourceID:       sourceID,
			Description:    description,
		}
		if err := tx.Create(&entry).Error; err != nil {
			return err
		}

		prof.AvailablePoints -= amount
		return tx.Save(prof).Error
	})
}

// creditCashTx raises the user's bonus-balance mirror inside the caller's
// transaction. The payments service reconciles from the same logs.
func creditCashTx(tx *gorm.DB, externalUserID string, amount float64) error {
	if amount <= 0 {
		return nil
	}
	var wallet models.CashWallet
	err := tx.Where("external_user_id = ?", externalUserID).First(&wallet).Error
	if err == gorm.ErrRecordNotFound {
		wallet = models.CashWallet{
			ID:             uuid.NewString(),
			ExternalUserID: externalUserID,
			BonusBalance:   amount,
		}
		return tx.Create(&wallet).Error
	}
	if err != nil {
		return err
	}
	wallet.BonusBalance += amount
	return tx.Save(&wallet).Error
}

// XPHistory returns the user's most recent XP log entries, newest first.
func (s *LedgerService) XPHistory(externalUserID string, limit int) ([]models.XPTransaction, error) {
	if limit < 1 || limit > 100 {
		limit = 50
	}
	var entries []models.XPTransaction
	err := s.DB.Where("external_user_id = ?", externalUserID).
		Order("created_at DESC").
		Limit(limit).
		Find(&entries).Error
	return entries, err
}

// PointsHistory returns the user's most recent points log entries, newest first.
func (s *LedgerService) PointsHistory(externalUserID string, limit int) ([]models.PointsTransaction, error) {
	if limit < 1 || limit > 100 {
		limit = 50
	}
	var entries []models.PointsTransaction
	err := s.DB.Where("external_user_id = ?", externalUserID).
		Order("created_at DESC").
		Limit(limit).
		Find(&entries).Error
	return entries, err
}
