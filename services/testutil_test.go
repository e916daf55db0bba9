package services

import (
	"testing"
	"time"

	"game-progression-service/models"

	"github.com/jonboulle/clockwork"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// newTestDB opens a fresh in-memory database with the full schema.
func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("failed to connect database: %v", err)
	}

	err = db.AutoMigrate(
		&models.UserProfile{},
		&models.XPTransaction{},
		&models.PointsTransaction{},
		&models.Achievement{},
		&models.UserAchievement{},
		&models.Mission{},
		&models.UserMission{},
		&models.DailyActivity{},
		&models.ReferralCode{},
		&models.Referral{},
		&models.ReferralPayout{},
		&models.ReferralStats{},
		&models.GameUser{},
		&models.CashWallet{},
	)
	if err != nil {
		t.Fatalf("failed to migrate database: %v", err)
	}
	return db
}

// newTestLedger wires a ledger service against a fake clock pinned to a known
// instant so streak and expiry tests can move time explicitly.
func newTestLedger(t *testing.T) (*LedgerService, *clockwork.FakeClock) {
	t.Helper()
	db := newTestDB(t)
	clock := clockwork.NewFakeClockAt(time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC))
	return NewLedgerService(db, NewUserLocks(), clock), clock
}

func mustSeed(t *testing.T, db *gorm.DB) {
	t.Helper()
	if err := SeedDefinitions(db); err != nil {
		t.Fatalf("failed to seed definitions: %v", err)
	}
}
