package reminders

import (
	"time"
)

const (
	// DefaultMorningTime is the morning reminder for users who never saved preferences.
	DefaultMorningTime = "08:00"
	// DefaultAfternoonTime is the afternoon reminder for users who never saved preferences.
	DefaultAfternoonTime = "19:00"
)

// NotificationPreference stores one user's reminder schedule. Times are HH:MM
// in the reminder zone.
type NotificationPreference struct {
	UserID           string    `gorm:"column:user_id;primaryKey;size:190;not null" json:"-"`
	MorningTime      string    `gorm:"column:morning_time;size:8;not null" json:"morning_time"`
	AfternoonTime    string    `gorm:"column:afternoon_time;size:8;not null" json:"afternoon_time"`
	MorningEnabled   bool      `gorm:"column:morning_enabled;not null" json:"morning_enabled"`
	AfternoonEnabled bool      `gorm:"column:afternoon_enabled;not null" json:"afternoon_enabled"`
	UpdatedAt        time.Time `gorm:"column:updated_at;not null" json:"updated_at"`
}

// TableName provides the explicit table binding for GORM.
func (NotificationPreference) TableName() string {
	return "user_notification_preferences"
}

// DefaultPreference returns the schedule applied on a user's first read.
func DefaultPreference(userID string, now time.Time) NotificationPreference {
	return NotificationPreference{
		UserID:           userID,
		MorningTime:      DefaultMorningTime,
		AfternoonTime:    DefaultAfternoonTime,
		MorningEnabled:   true,
		AfternoonEnabled: true,
		UpdatedAt:        now,
	}
}

// Preference converts the row for the matcher.
func (p NotificationPreference) Preference() (Preference, error) {
	morning, err := ParseTimeOfDay(p.MorningTime)
	if err != nil {
		return Preference{}, err
	}
	afternoon, err := ParseTimeOfDay(p.AfternoonTime)
	if err != nil {
		return Preference{}, err
	}
	return Preference{
		UserID:           p.UserID,
		MorningTime:      morning,
		AfternoonTime:    afternoon,
		MorningEnabled:   p.MorningEnabled,
		AfternoonEnabled: p.AfternoonEnabled,
	}, nil
}

// PushSubscription is a browser push endpoint registered by a user.
type PushSubscription struct {
	Endpoint  string    `gorm:"column:endpoint;primaryKey;size:2048;not null"`
	UserID    string    `gorm:"column:user_id;size:190;not null;index:idx_push_subscriptions_user"`
	P256dh    string    `gorm:"column:p256dh;size:255;not null"`
	Auth      string    `gorm:"column:auth;size:255;not null"`
	CreatedAt time.Time `gorm:"column:created_at;not null"`
}

// TableName provides the explicit table binding for GORM.
func (PushSubscription) TableName() string {
	return "push_subscriptions"
}

// Subscription converts the row for dispatch.
func (s PushSubscription) Subscription() Subscription {
	return Subscription{
		Endpoint: s.Endpoint,
		UserID:   s.UserID,
		P256dh:   s.P256dh,
		Auth:     s.Auth,
	}
}
