package database

import (
	"path/filepath"
	"testing"
	"time"

	sqlite "github.com/glebarez/sqlite"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/MarcoPoloResearchLab/frogsy/backend/internal/entries"
	"github.com/MarcoPoloResearchLab/frogsy/backend/internal/reminders"
)

func openMigrationDatabase(testContext *testing.T) *gorm.DB {
	testContext.Helper()
	databasePath := filepath.Join(testContext.TempDir(), "migration.db")
	database, err := gorm.Open(sqlite.Open(databasePath), &gorm.Config{})
	if err != nil {
		testContext.Fatalf("failed to open sqlite: %v", err)
	}
	if err := database.AutoMigrate(&entries.PainEntry{}, &reminders.NotificationPreference{}, &migrationRecord{}); err != nil {
		testContext.Fatalf("failed to migrate schema: %v", err)
	}
	return database
}

func TestApplyMigrationsNormalizesReminderTimes(testContext *testing.T) {
	database := openMigrationDatabase(testContext)

	legacy := reminders.NotificationPreference{
		UserID:           "user-1",
		MorningTime:      "08:00:00",
		AfternoonTime:    "19:30:00",
		MorningEnabled:   true,
		AfternoonEnabled: false,
		UpdatedAt:        time.Now().UTC(),
	}
	if err := database.Create(&legacy).Error; err != nil {
		testContext.Fatalf("failed to insert preference: %v", err)
	}

	if err := applyMigrations(database, zap.NewNop()); err != nil {
		testContext.Fatalf("failed to apply migrations: %v", err)
	}

	var stored reminders.NotificationPreference
	if err := database.Where("user_id = ?", legacy.UserID).Take(&stored).Error; err != nil {
		testContext.Fatalf("failed to reload preference: %v", err)
	}
	if stored.MorningTime != "08:00" || stored.AfternoonTime != "19:30" {
		testContext.Fatalf("expected HH:MM times, got %q and %q", stored.MorningTime, stored.AfternoonTime)
	}

	var record migrationRecord
	if err := database.Where("name = ?", migrationNormalizeReminderTimes).Take(&record).Error; err != nil {
		testContext.Fatalf("expected migration record to be created: %v", err)
	}
	if record.AppliedAtSeconds == 0 {
		testContext.Fatalf("expected migration timestamp to be set")
	}
}

func TestApplyMigrationsClearsBlankNotesOnce(testContext *testing.T) {
	database := openMigrationDatabase(testContext)

	blank := "   "
	now := time.Now().UTC()
	if err := database.Create(&entries.PainEntry{UserID: "user-1", PainDate: "2024-03-01", PainLevel: 4, Notes: &blank, CreatedAt: now, UpdatedAt: now}).Error; err != nil {
		testContext.Fatalf("failed to insert entry: %v", err)
	}

	if err := applyMigrations(database, nil); err != nil {
		testContext.Fatalf("failed to apply migrations: %v", err)
	}
	var stored entries.PainEntry
	if err := database.Where("user_id = ?", "user-1").Take(&stored).Error; err != nil {
		testContext.Fatalf("failed to reload entry: %v", err)
	}
	if stored.Notes != nil {
		testContext.Fatalf("expected blank note to be cleared, got %q", *stored.Notes)
	}

	if err := applyMigrations(database, nil); err != nil {
		testContext.Fatalf("second run failed: %v", err)
	}
	var count int64
	database.Model(&migrationRecord{}).Count(&count)
	if count != 2 {
		testContext.Fatalf("expected 2 migration records, got %d", count)
	}
}

func TestOpenCreatesSchema(testContext *testing.T) {
	database, err := Open(Config{Driver: DriverSQLite, Path: filepath.Join(testContext.TempDir(), "frogsy.db")}, zap.NewNop())
	if err != nil {
		testContext.Fatalf("failed to open database: %v", err)
	}
	for _, table := range []string{"pain_entries", "user_notification_preferences", "push_subscriptions", "medications", "medication_logs", "db_migrations"} {
		if !database.Migrator().HasTable(table) {
			testContext.Fatalf("expected table %s to exist", table)
		}
	}
}

func TestOpenRejectsUnknownDriver(testContext *testing.T) {
	if _, err := Open(Config{Driver: "mysql"}, nil); err == nil {
		testContext.Fatalf("expected unsupported driver error")
	}
	if _, err := Open(Config{Driver: DriverPostgres}, nil); err == nil {
		testContext.Fatalf("expected missing dsn error")
	}
}
