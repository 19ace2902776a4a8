package medications

import (
	"time"

	"github.com/MarcoPoloResearchLab/frogsy/backend/internal/pain"
)

// Medication is an entry of a user's medication list. Archived medications
// keep their history but drop out of the active list.
type Medication struct {
	ID         string     `gorm:"column:id;primaryKey;size:64;not null" json:"id"`
	UserID     string     `gorm:"column:user_id;size:190;not null;index:idx_medications_user" json:"-"`
	Name       string     `gorm:"column:name;size:200;not null" json:"name"`
	Dosage     string     `gorm:"column:dosage;size:200;not null;default:''" json:"dosage"`
	Frequency  string     `gorm:"column:frequency;size:200;not null;default:''" json:"frequency"`
	CreatedAt  time.Time  `gorm:"column:created_at;not null" json:"created_at"`
	ArchivedAt *time.Time `gorm:"column:archived_at" json:"archived_at"`
}

// TableName provides the explicit table binding for GORM.
func (Medication) TableName() string {
	return "medications"
}

// IsArchived reports whether the medication was soft deleted.
func (m Medication) IsArchived() bool {
	return m.ArchivedAt != nil
}

// ActiveOn reports whether the medication existed and was not yet archived by
// the end of day as observed in loc.
func (m Medication) ActiveOn(day pain.Day, loc *time.Location) bool {
	if loc == nil {
		loc = time.UTC
	}
	nextDay := day.AddDays(1)
	endOfDay := time.Date(nextDay.Year, nextDay.Month, nextDay.Day, 0, 0, 0, 0, loc)
	if !m.CreatedAt.Before(endOfDay) {
		return false
	}
	if m.ArchivedAt != nil && m.ArchivedAt.Before(endOfDay) {
		return false
	}
	return true
}

// MedicationLog records one dose taken.
type MedicationLog struct {
	ID           string    `gorm:"column:id;primaryKey;size:64;not null" json:"id"`
	UserID       string    `gorm:"column:user_id;size:190;not null;index:idx_medication_logs_user_taken,priority:1" json:"-"`
	MedicationID string    `gorm:"column:medication_id;size:64;not null;index" json:"medication_id"`
	TakenAt      time.Time `gorm:"column:taken_at;not null;index:idx_medication_logs_user_taken,priority:2" json:"taken_at"`
}

// TableName provides the explicit table binding for GORM.
func (MedicationLog) TableName() string {
	return "medication_logs"
}
