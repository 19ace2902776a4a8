package database

import (
	"errors"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/MarcoPoloResearchLab/frogsy/backend/internal/entries"
	"github.com/MarcoPoloResearchLab/frogsy/backend/internal/reminders"
)

const (
	migrationNormalizeReminderTimes = "2024-06-01_normalize_reminder_times"
	migrationBlankNotesToNull       = "2024-06-02_blank_notes_to_null"
)

type migrationRecord struct {
	Name             string `gorm:"column:name;primaryKey;size:190;not null"`
	AppliedAtSeconds int64  `gorm:"column:applied_at_s;not null"`
}

func (migrationRecord) TableName() string {
	return "db_migrations"
}

type migrationDefinition struct {
	name  string
	apply func(*gorm.DB) error
}

func applyMigrations(db *gorm.DB, logger *zap.Logger) error {
	migrations := []migrationDefinition{
		{name: migrationNormalizeReminderTimes, apply: normalizeReminderTimes},
		{name: migrationBlankNotesToNull, apply: blankNotesToNull},
	}

	for _, migration := range migrations {
		var record migrationRecord
		err := db.Where("name = ?", migration.name).Take(&record).Error
		if err == nil {
			continue
		}
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			return err
		}
		if err := db.Transaction(migration.apply); err != nil {
			return err
		}
		appliedAt := time.Now().UTC().Unix()
		if err := db.Create(&migrationRecord{Name: migration.name, AppliedAtSeconds: appliedAt}).Error; err != nil {
			return err
		}
		if logger != nil {
			logger.Info("database migration applied", zap.String("migration", migration.name))
		}
	}
	return nil
}

// normalizeReminderTimes trims stored "HH:MM:SS" preference times to "HH:MM".
func normalizeReminderTimes(db *gorm.DB) error {
	for _, column := range []string{"morning_time", "afternoon_time"} {
		err := db.Model(&reminders.NotificationPreference{}).
			Where("length("+column+") > 5").
			Update(column, gorm.Expr("substr("+column+", 1, 5)")).Error
		if err != nil {
			return err
		}
	}
	return nil
}

func blankNotesToNull(db *gorm.DB) error {
	return db.Model(&entries.PainEntry{}).
		Where("notes IS NOT NULL AND trim(notes) = ''").
		Update("notes", nil).Error
}
