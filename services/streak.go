package services

import (
	"fmt"
	"log"

	"game-progression-service/models"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
	"gorm.io/gorm"
)

// StreakService handles daily check-ins. The unique (user, date) DailyActivity
// row is the once-per-day guard; the streak counter never looks further back
// than yesterday.
type StreakService struct {
	DB     *gorm.DB
	Ledger *LedgerService
	Clock  clockwork.Clock
}

func NewStreakService(db *gorm.DB, ledger *LedgerService, clock clockwork.Clock) *StreakService {
	return &StreakService{DB: db, Ledger: ledger, Clock: clock}
}

// CheckinResult reports a check-in. AlreadyCheckedIn is a successful no-op.
type CheckinResult struct {
	AlreadyCheckedIn bool  `json:"already_checked_in"`
	NewStreak        int   `json:"new_streak"`
	LongestStreak    int   `json:"longest_streak"`
	XPEarned         int64 `json:"xp_earned"`
	BaseXP           int64 `json:"base_xp"`
	StreakBonus      int64 `json:"streak_bonus"`
	LeveledUp        bool  `json:"leveled_up"`
}

const dateLayout = "2006-01-02"

// CheckIn records today's visit, updates the streak and grants the reward,
// all in one atomic unit. A second call the same day changes nothing.
func (s *StreakService) CheckIn(externalUserID string) (*CheckinResult, error) {
	unlock := s.Ledger.Locks.Lock(externalUserID)
	defer unlock()

	now := s.Clock.Now()
	today := now.Format(dateLayout)
	yesterday := now.AddDate(0, 0, -1).Format(dateLayout)

	var result *CheckinResult
	err := s.DB.Transaction(func(tx *gorm.DB) error {
		var activity models.DailyActivity
		activityErr := tx.Where("external_user_id = ? AND activity_date = ?", externalUserID, today).First(&activity).Error
		if activityErr != nil && activityErr != gorm.ErrRecordNotFound {
			return activityErr
		}
		hadRow := activityErr == nil

		if hadRow && activity.DailyRewardClaimed {
			prof, err := ensureProfileTx(tx, externalUserID)
			if err != nil {
				return err
			}
			result = &CheckinResult{
				AlreadyCheckedIn: true,
				NewStreak:        prof.CurrentStreak,
				LongestStreak:    prof.LongestStreak,
			}
			return nil
		}

		prof, err := ensureProfileTx(tx, externalUserID)
		if err != nil {
			return err
		}

		// A gap of two days or more always resets to 1; so does the first
		// check-in ever.
		newStreak := 1
		if prof.LastActivityDate != nil && *prof.LastActivityDate == yesterday {
			newStreak = prof.CurrentStreak + 1
		}

		baseXP := models.CheckinBaseXP
		bonus := int64(newStreak) * models.CheckinPerDayBonus
		if bonus > models.CheckinMaxBonus {
			bonus = models.CheckinMaxBonus
		}

		grant, err := s.Ledger.grantXPTx(tx, externalUserID, baseXP+bonus, models.SourceDailyCheckin, nil,
			fmt.Sprintf("Daily check-in (%d day streak)", newStreak))
		if err != nil {
			return err
		}

		// grantXPTx saved the profile; re-read before the streak update so we
		// don't clobber the XP fields with a stale copy.
		prof, err = ensureProfileTx(tx, externalUserID)
		if err != nil {
			return err
		}
		prof.CurrentStreak = newStreak
		if newStreak > prof.LongestStreak {
			prof.LongestStreak = newStreak
		}
		day := today
		prof.LastActivityDate = &day
		if err := tx.Save(prof).Error; err != nil {
			return err
		}

		if hadRow {
			activity.DailyRewardClaimed = true
			activity.LoginsCount++
			if err := tx.Save(&activity).Error; err != nil {
				return err
			}
		} else {
			activity = models.DailyActivity{
				ID:                 uuid.NewString(),
				ExternalUserID:     externalUserID,
				ActivityDate:       today,
				LoginsCount:        1,
				DailyRewardClaimed: true,
			}
			if err := tx.Create(&activity).Error; err != nil {
				return err
			}
		}

		result = &CheckinResult{
			NewStreak:     newStreak,
			LongestStreak: prof.LongestStreak,
			XPEarned:      baseXP + bonus,
			BaseXP:        baseXP,
			StreakBonus:   bonus,
			LeveledUp:     grant.LeveledUp,
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	if !result.AlreadyCheckedIn {
		log.Printf("🔥 Check-in: %s → streak=%d (+%d xp)", externalUserID, result.NewStreak, result.XPEarned)
	}
	return result, nil
}
