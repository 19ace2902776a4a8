// Package entries persists daily pain entries and serves them as engine snapshots.
package entries

import (
	"context"
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

const maxNoteLength = 2000

var (
	// ErrFutureDate indicates an attempt to log pain for a day that has not happened yet.
	ErrFutureDate = errors.New("entries: date is in the future")
	// ErrNoteTooLong indicates a note exceeding the storage bound.
	ErrNoteTooLong = errors.New("entries: note too long")
	// ErrInvalidRange indicates a listing range whose start is after its end.
	ErrInvalidRange = errors.New("entries: invalid range")

	errMissingDatabase = errors.New("database handle is required")
	noOpLogger         = zap.NewNop()
	validate           = validator.New()
)

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
	opServiceNew = "entries.service.new"
	opUpsert     = "entries.upsert"
	opList       = "entries.list"
)

func newServiceError(operation, reason string, cause error) error {
	code := fmt.Sprintf("%s.%s", operation, reason)
	return &ServiceError{code: code, err: cause}
}

type ServiceConfig struct {
	Database *gorm.DB
	Clock    func() time.Time
	// Location decides which calendar day "today" is when rejecting future dates.
	Location *time.Location
	Logger   *zap.Logger
}

type Service struct {
	db       *gorm.DB
	clock    func() time.Time
	location *time.Location
	logger   *zap.Logger
}

func NewService(cfg ServiceConfig) (*Service, error) {
	if cfg.Database == nil {
		return nil, newServiceError(opServiceNew, "missing_database", errMissingDatabase)
	}

	clock := cfg.Clock
	if clock == nil {
		clock = time.Now
	}

	location := cfg.Location
	if location == nil {
		location = time.UTC
	}

	logger := cfg.Logger
	if logger == nil {
		logger = noOpLogger
	}

	return &Service{
		db:       cfg.Database,
		clock:    clock,
		location: location,
		logger:   logger,
	}, nil
}

// UpsertInput carries one day's log as submitted by a client.
type UpsertInput struct {
	Date  string `validate:"required"`
	Level *int   `validate:"required,min=0,max=10"`
	Note  string `validate:"max=2000"`
}

// Today returns the current calendar day in the service zone.
func (s *Service) Today() pain.Day {
	return pain.DayOf(s.clock(), s.location)
}

// Upsert records the pain level for a day. A second log for the same day
// replaces level and note and keeps the original logged instant.
func (s *Service) Upsert(ctx context.Context, userID pain.UserID, input UpsertInput) (PainEntry, error) {
	if err := validate.Struct(input); err != nil {
		return PainEntry{}, newServiceError(opUpsert, "invalid_input", translateValidationError(err))
	}
	day, err := pain.ParseDay(input.Date)
	if err != nil {
		return PainEntry{}, newServiceError(opUpsert, "invalid_date", err)
	}
	if day.After(s.Today()) {
		return PainEntry{}, newServiceError(opUpsert, "future_date", fmt.Errorf("%w: %s", ErrFutureDate, day))
	}

	now := s.clock().UTC()
	row := PainEntry{
		UserID:    userID.String(),
		PainDate:  day.String(),
		PainLevel: *input.Level,
		Notes:     normalizeNote(input.Note),
		CreatedAt: now,
		UpdatedAt: now,
	}

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		upsert := tx.Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "user_id"}, {Name: "pain_date"}},
			DoUpdates: clause.AssignmentColumns([]string{"pain_level", "notes", "updated_at"}),
		}).Create(&row)
		if upsert.Error != nil {
			return upsert.Error
		}
		return tx.Where("user_id = ? AND pain_date = ?", row.UserID, row.PainDate).Take(&row).Error
	})
	if err != nil {
		s.logError(opUpsert, "query_failed", err,
			zap.String("user_id", userID.String()),
			zap.String("pain_date", day.String()))
		return PainEntry{}, newServiceError(opUpsert, "query_failed", err)
	}
	return row, nil
}

// Range bounds a listing. Zero days leave that side open.
type Range struct {
	From pain.Day
	To   pain.Day
}

// List returns the user's entries ordered by date ascending.
func (s *Service) List(ctx context.Context, userID pain.UserID, bounds Range) ([]PainEntry, error) {
	if !bounds.From.IsZero() && !bounds.To.IsZero() && bounds.From.After(bounds.To) {
		return nil, newServiceError(opList, "invalid_range", ErrInvalidRange)
	}

	query := s.db.WithContext(ctx).Where("user_id = ?", userID.String())
	if !bounds.From.IsZero() {
		query = query.Where("pain_date >= ?", bounds.From.String())
	}
	if !bounds.To.IsZero() {
		query = query.Where("pain_date <= ?", bounds.To.String())
	}

	var rows []PainEntry
	if err := query.Order("pain_date ASC").Find(&rows).Error; err != nil {
		s.logError(opList, "query_failed", err, zap.String("user_id", userID.String()))
		return nil, newServiceError(opList, "query_failed", err)
	}
	return rows, nil
}

// Snapshot lists entries converted for the stats and calendar engines.
func (s *Service) Snapshot(ctx context.Context, userID pain.UserID, bounds Range) ([]pain.Entry, error) {
	rows, err := s.List(ctx, userID, bounds)
	if err != nil {
		return nil, err
	}
	snapshot := make([]pain.Entry, 0, len(rows))
	for _, row := range rows {
		entry, err := row.Entry()
		if err != nil {
			s.logError(opList, "corrupt_date", err,
				zap.String("user_id", row.UserID),
				zap.String("pain_date", row.PainDate))
			continue
		}
		snapshot = append(snapshot, entry)
	}
	return snapshot, nil
}

func normalizeNote(note string) *string {
	trimmed := strings.TrimSpace(note)
	if trimmed == "" {
		return nil
	}
	return &trimmed
}

func translateValidationError(err error) error {
	var fieldErrors validator.ValidationErrors
	if !errors.As(err, &fieldErrors) || len(fieldErrors) == 0 {
		return err
	}
	switch fieldErrors[0].Field() {
	case "Level":
		return fmt.Errorf("%w: %v", pain.ErrInvalidLevel, err)
	case "Date":
		return fmt.Errorf("%w: %v", pain.ErrInvalidDay, err)
	case "Note":
		return fmt.Errorf("%w: limit %d", ErrNoteTooLong, maxNoteLength)
	default:
		return err
	}
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
	s.loggerOrDefault().Error("entries service error", attrs...)
}
