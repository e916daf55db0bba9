package services

import (
	"fmt"
	"log"
	"time"

	"game-progression-service/models"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
	"gorm.io/gorm"
)

// MissionService runs the active → completed → claimed lifecycle. No
// transition skips a state or moves backward; expired is terminal and only
// reachable from active.
type MissionService struct {
	DB     *gorm.DB
	Ledger *LedgerService
	Clock  clockwork.Clock
}

func NewMissionService(db *gorm.DB, ledger *LedgerService, clock clockwork.Clock) *MissionService {
	return &MissionService{DB: db, Ledger: ledger, Clock: clock}
}

// MissionView is a definition joined with the caller's current attempt, if any.
type MissionView struct {
	models.Mission
	UserMissionID   *string               `json:"user_mission_id,omitempty"`
	UserStatus      *models.MissionStatus `json:"user_status,omitempty"`
	CurrentProgress int64                 `json:"current_progress"`
	IsStarted       bool                  `json:"is_started"`
}

// ListAvailable returns active in-window definitions with the caller's
// active/completed attempt state.
func (s *MissionService) ListAvailable(externalUserID string) ([]MissionView, error) {
	now := s.Clock.Now()

	var defs []models.Mission
	err := s.DB.Where("is_active = ?", true).
		Where("(start_date IS NULL OR start_date <= ?) AND (end_date IS NULL OR end_date > ?)", now, now).
		Order("type, difficulty").
		Find(&defs).Error
	if err != nil {
		return nil, err
	}

	var attempts []models.UserMission
	err = s.DB.Where("external_user_id = ? AND status IN ?", externalUserID,
		[]models.MissionStatus{models.MissionActive, models.MissionCompleted}).
		Find(&attempts).Error
	if err != nil {
		return nil, err
	}
	byMission := make(map[string]models.UserMission, len(attempts))
	for _, um := range attempts {
		byMission[um.MissionID] = um
	}

	views := make([]MissionView, 0, len(defs))
	for _, def := range defs {
		view := MissionView{Mission: def}
		if um, ok := byMission[def.ID]; ok {
			id, status := um.ID, um.Status
			view.UserMissionID = &id
			view.UserStatus = &status
			view.CurrentProgress = um.CurrentProgress
			view.IsStarted = true
		}
		views = append(views, view)
	}
	return views, nil
}

// StartResult reports Start's outcome; AlreadyStarted means an active attempt
// existed and was returned unchanged.
type StartResult struct {
	AlreadyStarted bool               `json:"already_started"`
	UserMission    models.UserMission `json:"user_mission"`
}

// Start begins an attempt at a mission. Idempotent: an existing active attempt
// for (user, mission) is returned as-is.
func (s *MissionService) Start(externalUserID, missionID string) (*StartResult, error) {
	var def models.Mission
	if err := s.DB.Where("id = ? AND is_active = ?", missionID, true).First(&def).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, fmt.Errorf("%w: mission %q", ErrNotFound, missionID)
		}
		return nil, err
	}

	now := s.Clock.Now()
	if def.EndDate != nil && def.EndDate.Before(now) {
		return nil, fmt.Errorf("%w: mission window closed", ErrInvalidState)
	}

	unlock := s.Ledger.Locks.Lock(externalUserID)
	defer unlock()

	var result *StartResult
	err := s.DB.Transaction(func(tx *gorm.DB) error {
		var existing models.UserMission
		err := tx.Where("external_user_id = ? AND mission_id = ? AND status = ?",
			externalUserID, missionID, models.MissionActive).First(&existing).Error
		if err == nil {
			result = &StartResult{AlreadyStarted: true, UserMission: existing}
			return nil
		}
		if err != gorm.ErrRecordNotFound {
			return err
		}

		um := models.UserMission{
			ID:             uuid.NewString(),
			ExternalUserID: externalUserID,
			MissionID:      missionID,
			Status:         models.MissionActive,
			TargetProgress: def.RequirementTarget,
			StartedAt:      now,
		}
		if def.Type == models.MissionDaily {
			expires := now.Add(24 * time.Hour)
			um.ExpiresAt = &expires
		}
		if err := tx.Create(&um).Error; err != nil {
			return err
		}
		result = &StartResult{UserMission: um}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

// AdvanceResult reports the new progress after an advance.
type AdvanceResult struct {
	Completed       bool  `json:"completed"`
	CurrentProgress int64 `json:"current_progress"`
	TargetProgress  int64 `json:"target_progress"`
}

// Advance adds increment (default 1) to an active attempt's progress and flips
// it to completed when the target is reached. Fails on any other state.
func (s *MissionService) Advance(externalUserID, userMissionID string, increment int64) (*AdvanceResult, error) {
	if increment <= 0 {
		increment = 1
	}

	unlock := s.Ledger.Locks.Lock(externalUserID)
	defer unlock()

	// Returning an error from the transaction closure rolls everything back,
	// so the lazy expired-flip must commit: the closure returns nil after the
	// Save and the error is raised afterwards.
	var lapsed bool
	var result *AdvanceResult
	err := s.DB.Transaction(func(tx *gorm.DB) error {
		var um models.UserMission
		err := tx.Where("id = ? AND external_user_id = ?", userMissionID, externalUserID).First(&um).Error
		if err == gorm.ErrRecordNotFound {
			return fmt.Errorf("%w: user mission %q", ErrNotFound, userMissionID)
		}
		if err != nil {
			return err
		}
		if um.Status != models.MissionActive {
			return fmt.Errorf("%w: mission is %s, not active", ErrInvalidState, um.Status)
		}

		now := s.Clock.Now()
		if um.ExpiresAt != nil && um.ExpiresAt.Before(now) {
			um.Status = models.MissionExpired
			if err := tx.Save(&um).Error; err != nil {
				return err
			}
			lapsed = true
			return nil
		}

		um.CurrentProgress += increment
		if um.CurrentProgress >= um.TargetProgress {
			um.Status = models.MissionCompleted
			um.CompletedAt = &now
		}
		if err := tx.Save(&um).Error; err != nil {
			return err
		}

		result = &AdvanceResult{
			Completed:       um.Status == models.MissionCompleted,
			CurrentProgress: um.CurrentProgress,
			TargetProgress:  um.TargetProgress,
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	if lapsed {
		return nil, fmt.Errorf("%w: mission expired", ErrInvalidState)
	}
	return result, nil
}

// ClaimResult records what a claim actually paid.
type ClaimResult struct {
	XP        int64   `json:"xp"`
	Points    int64   `json:"points"`
	Cash      float64 `json:"cash"`
	LeveledUp bool    `json:"leveled_up"`
}

// Claim pays out a completed attempt and moves it to claimed, all in one
// atomic unit. A second claim finds status=claimed and fails; nothing is ever
// paid twice.
func (s *MissionService) Claim(externalUserID, userMissionID string) (*ClaimResult, error) {
	unlock := s.Ledger.Locks.Lock(externalUserID)
	defer unlock()

	var result *ClaimResult
	err := s.DB.Transaction(func(tx *gorm.DB) error {
		var um models.UserMission
		err := tx.Where("id = ? AND external_user_id = ?", userMissionID, externalUserID).First(&um).Error
		if err == gorm.ErrRecordNotFound {
			return fmt.Errorf("%w: user mission %q", ErrNotFound, userMissionID)
		}
		if err != nil {
			return err
		}
		if um.Status != models.MissionCompleted {
			return fmt.Errorf("%w: mission is %s, not completed", ErrInvalidState, um.Status)
		}

		var def models.Mission
		if err := tx.Where("id = ?", um.MissionID).First(&def).Error; err != nil {
			return err
		}

		result = &ClaimResult{XP: def.XPReward, Points: def.PointsReward, Cash: def.CashReward}

		if def.XPReward > 0 {
			grant, err := s.Ledger.grantXPTx(tx, externalUserID, def.XPReward, models.SourceMission, &def.ID, "Mission: "+def.Title)
			if err != nil {
				return err
			}
			result.LeveledUp = grant.LeveledUp
		}
		if def.PointsReward > 0 {
			if err := s.Ledger.grantPointsTx(tx, externalUserID, def.PointsReward, models.SourceMission, &def.ID, "Mission: "+def.Title); err != nil {
				return err
			}
		}
		if def.CashReward > 0 {
			if err := creditCashTx(tx, externalUserID, def.CashReward); err != nil {
				return err
			}
		}

		now := s.Clock.Now()
		um.Status = models.MissionClaimed
		um.ClaimedAt = &now
		um.XPEarned = def.XPReward
		um.PointsEarned = def.PointsReward
		um.CashEarned = def.CashReward
		if err := tx.Save(&um).Error; err != nil {
			return err
		}

		prof, err := ensureProfileTx(tx, externalUserID)
		if err != nil {
			return err
		}
		prof.TotalMissionsCompleted++
		return tx.Save(prof).Error
	})
	if err != nil {
		return nil, err
	}

	log.Printf("🎯 Mission claimed: %s by %s (xp=%d pts=%d cash=%.0f)", userMissionID, externalUserID, result.XP, result.Points, result.Cash)
	return result, nil
}

// ExpireOverdue flips overdue active attempts to expired. Called by the
// scheduler; safe to run concurrently with request traffic because expired is
// only reachable from active.
func (s *MissionService) ExpireOverdue() (int64, error) {
	res := s.DB.Model(&models.UserMission{}).
		Where("status = ? AND expires_at IS NOT NULL AND expires_at < ?", models.MissionActive, s.Clock.Now()).
		Update("status", models.MissionExpired)
	return res.RowsAffected, res.Error
}
