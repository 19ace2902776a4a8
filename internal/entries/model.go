package entries

import (
	"time"

	"github.com/MarcoPoloResearchLab/frogsy/backend/internal/pain"
)

// PainEntry is the persisted daily pain log. At most one row exists per user and date.
type PainEntry struct {
	UserID    string    `gorm:"column:user_id;primaryKey;size:190;not null"`
	PainDate  string    `gorm:"column:pain_date;primaryKey;size:10;not null"`
	PainLevel int       `gorm:"column:pain_level;not null"`
	Notes     *string   `gorm:"column:notes;type:text"`
	CreatedAt time.Time `gorm:"column:created_at;not null"`
	UpdatedAt time.Time `gorm:"column:updated_at;not null"`
}

// TableName provides the explicit table binding for GORM.
func (PainEntry) TableName() string {
	return "pain_entries"
}

// Entry converts the row into the engine snapshot. CreatedAt is the logged instant.
func (e PainEntry) Entry() (pain.Entry, error) {
	day, err := pain.ParseDay(e.PainDate)
	if err != nil {
		return pain.Entry{}, err
	}
	loggedAt := e.CreatedAt
	entry := pain.Entry{
		Day:      day,
		Level:    e.PainLevel,
		LoggedAt: &loggedAt,
	}
	if e.Notes != nil {
		entry.Note = *e.Notes
	}
	return entry, nil
}
