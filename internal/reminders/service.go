// Package reminders schedules and delivers the twice-daily pain log reminders.
package reminders

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/MarcoPoloResearchLab/frogsy/backend/internal/pain"
)

const (
	// DefaultTimeZone is the zone reminder times are interpreted in.
	DefaultTimeZone = "Africa/Johannesburg"

	dispatchKindReminder = "reminder"
	dispatchKindTest     = "test"
)

var (
	// ErrInvalidSubscription indicates a push subscription missing its endpoint or keys.
	ErrInvalidSubscription = errors.New("reminders: invalid subscription")

	errMissingDatabase = errors.New("database handle is required")
	errMissingSender   = errors.New("push sender is required")
	noOpLogger         = zap.NewNop()
	validate           = validator.New()
)

// ReminderMessage is delivered at each scheduled reminder.
var ReminderMessage = Message{
	Title: "Frogsy Reminder 🐸",
	Body:  "Time to log your pain!",
}

// TestMessage is delivered by manual test dispatches.
var TestMessage = Message{
	Title:              "🧪 Manual Test Notification",
	Body:               "This is a manual test from Frogsy! Notifications are working!",
	Tag:                "manual-test-notification",
	RequireInteraction: true,
}

// Message is the notification payload the service worker renders.
type Message struct {
	Title              string `json:"title"`
	Body               string `json:"body"`
	Tag                string `json:"tag,omitempty"`
	RequireInteraction bool   `json:"requireInteraction,omitempty"`
}

// Payload encodes the message as the push body.
func (m Message) Payload() ([]byte, error) {
	return json.Marshal(m)
}

// Sender delivers a payload to a push subscription. Implementations wrap
// ErrSubscriptionGone when the endpoint no longer exists.
type Sender interface {
	Send(ctx context.Context, subscription Subscription, payload []byte) error
}

// Observer receives tick and dispatch outcomes, typically for metrics.
type Observer interface {
	ObserveTick(outcome string, duration time.Duration)
	ObserveDispatch(kind string, eligibleUsers, subscriptions, succeeded, failed, removed int)
}

type ServiceError struct {
	code string
	err  error
}

func (e *ServiceError) Error() string {
	if e.err == nil {
		return e.code
	}
	return fmt.Sprintf("%s: %v", e.code, e.err)
}

func (e *ServiceError) Unwrap() error {
	return e.err
}

func (e *ServiceError) Code() string {
	return e.code
}

const (
	opServiceNew           = "reminders.service.new"
	opGetPreferences       = "reminders.get_preferences"
	opUpdatePreferences    = "reminders.update_preferences"
	opRegisterSubscription = "reminders.register_subscription"
	opRemoveSubscription   = "reminders.remove_subscription"
	opRunTick              = "reminders.run_tick"
	opSendTest             = "reminders.send_test"
)

const (
	tickOutcomeDispatched = "dispatched"
	tickOutcomeIdle       = "idle"
	tickOutcomeFailed     = "failed"
	tickOutcomeSkipped    = "skipped"
)

func newServiceError(operation, reason string, cause error) error {
	code := fmt.Sprintf("%s.%s", operation, reason)
	return &ServiceError{code: code, err: cause}
}

type ServiceConfig struct {
	Database    *gorm.DB
	Sender      Sender
	Clock       func() time.Time
	Location    *time.Location
	Concurrency int
	Observer    Observer
	Logger      *zap.Logger
}

type Service struct {
	db         *gorm.DB
	sender     Sender
	clock      func() time.Time
	location   *time.Location
	reconciler Reconciler
	observer   Observer
	logger     *zap.Logger
}

func NewService(cfg ServiceConfig) (*Service, error) {
	if cfg.Database == nil {
		return nil, newServiceError(opServiceNew, "missing_database", errMissingDatabase)
	}
	if cfg.Sender == nil {
		return nil, newServiceError(opServiceNew, "missing_sender", errMissingSender)
	}

	clock := cfg.Clock
	if clock == nil {
		clock = time.Now
	}

	location := cfg.Location
	if location == nil {
		loaded, err := time.LoadLocation(DefaultTimeZone)
		if err != nil {
			return nil, newServiceError(opServiceNew, "invalid_location", err)
		}
		location = loaded
	}

	logger := cfg.Logger
	if logger == nil {
		logger = noOpLogger
	}

	return &Service{
		db:         cfg.Database,
		sender:     cfg.Sender,
		clock:      clock,
		location:   location,
		reconciler: Reconciler{Concurrency: cfg.Concurrency, Logger: logger},
		observer:   cfg.Observer,
		logger:     logger,
	}, nil
}

// Location returns the zone reminder times are interpreted in.
func (s *Service) Location() *time.Location {
	return s.location
}

// GetPreferences returns the user's schedule, creating the default row on first read.
func (s *Service) GetPreferences(ctx context.Context, userID pain.UserID) (NotificationPreference, error) {
	defaults := DefaultPreference(userID.String(), s.clock().UTC())
	var preference NotificationPreference
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Clauses(clause.OnConflict{DoNothing: true}).Create(&defaults).Error; err != nil {
			return err
		}
		return tx.Where("user_id = ?", userID.String()).Take(&preference).Error
	})
	if err != nil {
		s.logError(opGetPreferences, "query_failed", err, zap.String("user_id", userID.String()))
		return NotificationPreference{}, newServiceError(opGetPreferences, "query_failed", err)
	}
	return preference, nil
}

// PreferencesInput replaces a user's schedule.
type PreferencesInput struct {
	MorningTime      string `validate:"required"`
	AfternoonTime    string `validate:"required"`
	MorningEnabled   *bool  `validate:"required"`
	AfternoonEnabled *bool  `validate:"required"`
}

// UpdatePreferences upserts the user's schedule. Times are stored as HH:MM.
func (s *Service) UpdatePreferences(ctx context.Context, userID pain.UserID, input PreferencesInput) (NotificationPreference, error) {
	if err := validate.Struct(input); err != nil {
		return NotificationPreference{}, newServiceError(opUpdatePreferences, "invalid_input", fmt.Errorf("%w: %v", ErrInvalidTime, err))
	}
	morning, err := ParseTimeOfDay(input.MorningTime)
	if err != nil {
		return NotificationPreference{}, newServiceError(opUpdatePreferences, "invalid_time", err)
	}
	afternoon, err := ParseTimeOfDay(input.AfternoonTime)
	if err != nil {
		return NotificationPreference{}, newServiceError(opUpdatePreferences, "invalid_time", err)
	}

	preference := NotificationPreference{
		UserID:           userID.String(),
		MorningTime:      morning.String(),
		AfternoonTime:    afternoon.String(),
		MorningEnabled:   *input.MorningEnabled,
		AfternoonEnabled: *input.AfternoonEnabled,
		UpdatedAt:        s.clock().UTC(),
	}
	err = s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "user_id"}},
		DoUpdates: clause.AssignmentColumns([]string{"morning_time", "afternoon_time", "morning_enabled", "afternoon_enabled", "updated_at"}),
	}).Create(&preference).Error
	if err != nil {
		s.logError(opUpdatePreferences, "upsert_failed", err, zap.String("user_id", userID.String()))
		return NotificationPreference{}, newServiceError(opUpdatePreferences, "upsert_failed", err)
	}
	return preference, nil
}

// SubscriptionInput is the browser PushSubscription as posted by the client.
type SubscriptionInput struct {
	Endpoint string `validate:"required,url,max=2048"`
	P256dh   string `validate:"required,max=255"`
	Auth     string `validate:"required,max=255"`
}

// RegisterSubscription stores the endpoint for the user. Registering an existing
// endpoint moves it to this user and refreshes its keys.
func (s *Service) RegisterSubscription(ctx context.Context, userID pain.UserID, input SubscriptionInput) (PushSubscription, error) {
	input.Endpoint = strings.TrimSpace(input.Endpoint)
	if err := validate.Struct(input); err != nil {
		return PushSubscription{}, newServiceError(opRegisterSubscription, "invalid_input", fmt.Errorf("%w: %v", ErrInvalidSubscription, err))
	}
	subscription := PushSubscription{
		Endpoint:  input.Endpoint,
		UserID:    userID.String(),
		P256dh:    input.P256dh,
		Auth:      input.Auth,
		CreatedAt: s.clock().UTC(),
	}
	err := s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "endpoint"}},
		DoUpdates: clause.AssignmentColumns([]string{"user_id", "p256dh", "auth"}),
	}).Create(&subscription).Error
	if err != nil {
		s.logError(opRegisterSubscription, "upsert_failed", err, zap.String("user_id", userID.String()))
		return PushSubscription{}, newServiceError(opRegisterSubscription, "upsert_failed", err)
	}
	return subscription, nil
}

// RemoveSubscription deletes the user's endpoint. Removing an unknown endpoint succeeds.
func (s *Service) RemoveSubscription(ctx context.Context, userID pain.UserID, endpoint string) error {
	err := s.db.WithContext(ctx).
		Where("endpoint = ? AND user_id = ?", strings.TrimSpace(endpoint), userID.String()).
		Delete(&PushSubscription{}).Error
	if err != nil {
		s.logError(opRemoveSubscription, "delete_failed", err, zap.String("user_id", userID.String()))
		return newServiceError(opRemoveSubscription, "delete_failed", err)
	}
	return nil
}

func (s *Service) removeEndpoint(ctx context.Context, endpoint string) error {
	return s.db.WithContext(ctx).Where("endpoint = ?", endpoint).Delete(&PushSubscription{}).Error
}

// TickResult reports one reminder tick.
type TickResult struct {
	Time     string          `json:"time"`
	TimeZone string          `json:"time_zone"`
	Summary  DispatchSummary `json:"summary"`
}

// RunTick dispatches reminders due at the current minute.
func (s *Service) RunTick(ctx context.Context) (TickResult, error) {
	return s.RunTickAt(ctx, s.clock())
}

// RunTickAt dispatches reminders due at the wall-clock minute of at in the reminder zone.
func (s *Service) RunTickAt(ctx context.Context, at time.Time) (TickResult, error) {
	started := time.Now()
	now := TimeOfDayAt(at, s.location)
	result := TickResult{Time: now.String(), TimeZone: s.location.String()}

	var rows []NotificationPreference
	if err := s.db.WithContext(ctx).Find(&rows).Error; err != nil {
		s.logError(opRunTick, "preferences_query_failed", err)
		s.observeTick(tickOutcomeFailed, started)
		return result, newServiceError(opRunTick, "preferences_query_failed", err)
	}

	preferences := make([]Preference, 0, len(rows))
	for _, row := range rows {
		preference, err := row.Preference()
		if err != nil {
			s.logError(opRunTick, "invalid_preference", err, zap.String("user_id", row.UserID))
			continue
		}
		preferences = append(preferences, preference)
	}

	due := FindDueUsers(preferences, now)
	if len(due) == 0 {
		s.observeTick(tickOutcomeIdle, started)
		return result, nil
	}

	var subscriptionRows []PushSubscription
	if err := s.db.WithContext(ctx).Where("user_id IN ?", due).Find(&subscriptionRows).Error; err != nil {
		s.logError(opRunTick, "subscriptions_query_failed", err)
		s.observeTick(tickOutcomeFailed, started)
		return result, newServiceError(opRunTick, "subscriptions_query_failed", err)
	}

	summary, err := s.dispatch(ctx, dispatchKindReminder, subscriptionRows, ReminderMessage)
	if err != nil {
		s.observeTick(tickOutcomeFailed, started)
		return result, newServiceError(opRunTick, "payload_encode_failed", err)
	}
	summary.EligibleUserCount = len(due)
	result.Summary = summary

	s.observeDispatch(dispatchKindReminder, summary)
	s.observeTick(tickOutcomeDispatched, started)
	s.loggerOrDefault().Info("reminder tick dispatched",
		zap.String("time", result.Time),
		zap.String("time_zone", result.TimeZone),
		zap.Int("eligible_users", summary.EligibleUserCount),
		zap.Int("subscriptions", summary.SubscriptionCount),
		zap.Int("succeeded", summary.SuccessCount),
		zap.Int("failed", summary.FailureCount),
		zap.Int("removed", summary.RemovedCount))
	return result, nil
}

// SendTest sends the test message to one user's subscriptions, or to every
// subscription when userID is empty.
func (s *Service) SendTest(ctx context.Context, userID string) (DispatchSummary, error) {
	query := s.db.WithContext(ctx)
	if trimmed := strings.TrimSpace(userID); trimmed != "" {
		query = query.Where("user_id = ?", trimmed)
	}
	var rows []PushSubscription
	if err := query.Find(&rows).Error; err != nil {
		s.logError(opSendTest, "subscriptions_query_failed", err, zap.String("user_id", userID))
		return DispatchSummary{}, newServiceError(opSendTest, "subscriptions_query_failed", err)
	}

	summary, err := s.dispatch(ctx, dispatchKindTest, rows, TestMessage)
	if err != nil {
		return DispatchSummary{}, newServiceError(opSendTest, "payload_encode_failed", err)
	}
	s.observeDispatch(dispatchKindTest, summary)
	s.loggerOrDefault().Info("test notification dispatched",
		zap.String("user_id", userID),
		zap.Int("subscriptions", summary.SubscriptionCount),
		zap.Int("succeeded", summary.SuccessCount),
		zap.Int("failed", summary.FailureCount),
		zap.Int("removed", summary.RemovedCount))
	return summary, nil
}

func (s *Service) dispatch(ctx context.Context, kind string, rows []PushSubscription, message Message) (DispatchSummary, error) {
	payload, err := message.Payload()
	if err != nil {
		return DispatchSummary{}, err
	}
	subscriptions := make([]Subscription, 0, len(rows))
	for _, row := range rows {
		subscriptions = append(subscriptions, row.Subscription())
	}
	send := func(ctx context.Context, subscription Subscription) error {
		return s.sender.Send(ctx, subscription, payload)
	}
	summary := s.reconciler.Reconcile(ctx, subscriptions, send, s.removeEndpoint)
	if summary.RemovedCount > 0 {
		s.loggerOrDefault().Info("pruned gone push subscriptions",
			zap.String("kind", kind),
			zap.Int("removed", summary.RemovedCount))
	}
	return summary, nil
}

func (s *Service) observeTick(outcome string, started time.Time) {
	if s.observer == nil {
		return
	}
	s.observer.ObserveTick(outcome, time.Since(started))
}

func (s *Service) observeDispatch(kind string, summary DispatchSummary) {
	if s.observer == nil {
		return
	}
	s.observer.ObserveDispatch(kind, summary.EligibleUserCount, summary.SubscriptionCount, summary.SuccessCount, summary.FailureCount, summary.RemovedCount)
}

func (s *Service) loggerOrDefault() *zap.Logger {
	if s == nil || s.logger == nil {
		return noOpLogger
	}
	return s.logger
}

func (s *Service) logError(operation, reason string, err error, fields ...zap.Field) {
	attrs := []zap.Field{
		zap.String("operation", operation),
		zap.String("reason", reason),
	}
	if err != nil {
		attrs = append(attrs, zap.Error(err))
	}
	attrs = append(attrs, fields...)
	s.loggerOrDefault().Error("reminders service error", attrs...)
}
