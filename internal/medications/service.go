// Package medications manages a user's medication list and dose log.
package medications

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

var (
	// ErrMedicationNotFound indicates the medication does not exist for the user.
	ErrMedicationNotFound = errors.New("medications: not found")
	// ErrMedicationArchived indicates a dose was logged against an archived medication.
	ErrMedicationArchived = errors.New("medications: archived")
	// ErrInvalidMedication indicates malformed medication input.
	ErrInvalidMedication = errors.New("medications: invalid input")

	errMissingDatabase   = errors.New("database handle is required")
	errMissingIDProvider = errors.New("id provider is required")
	noOpLogger           = zap.NewNop()
	validate             = validator.New()
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
	opServiceNew = "medications.service.new"
	opCreate     = "medications.create"
	opList       = "medications.list"
	opArchive    = "medications.archive"
	opLogDose    = "medications.log_dose"
	opListDoses  = "medications.list_doses"
)

func newServiceError(operation, reason string, cause error) error {
	code := fmt.Sprintf("%s.%s", operation, reason)
	return &ServiceError{code: code, err: cause}
}

type ServiceConfig struct {
	Database   *gorm.DB
	Clock      func() time.Time
	IDProvider IDProvider
	Logger     *zap.Logger
}

type Service struct {
	db         *gorm.DB
	clock      func() time.Time
	idProvider IDProvider
	logger     *zap.Logger
}

func NewService(cfg ServiceConfig) (*Service, error) {
	if cfg.Database == nil {
		return nil, newServiceError(opServiceNew, "missing_database", errMissingDatabase)
	}

	clock := cfg.Clock
	if clock == nil {
		clock = time.Now
	}

	if cfg.IDProvider == nil {
		return nil, newServiceError(opServiceNew, "missing_id_provider", errMissingIDProvider)
	}

	logger := cfg.Logger
	if logger == nil {
		logger = noOpLogger
	}

	return &Service{
		db:         cfg.Database,
		clock:      clock,
		idProvider: cfg.IDProvider,
		logger:     logger,
	}, nil
}

// CreateInput describes a new medication. Dosage and frequency are free text.
type CreateInput struct {
	Name      string `validate:"required,max=200"`
	Dosage    string `validate:"max=200"`
	Frequency string `validate:"max=200"`
}

func (s *Service) Create(ctx context.Context, userID pain.UserID, input CreateInput) (Medication, error) {
	input.Name = strings.TrimSpace(input.Name)
	input.Dosage = strings.TrimSpace(input.Dosage)
	input.Frequency = strings.TrimSpace(input.Frequency)
	if err := validate.Struct(input); err != nil {
		return Medication{}, newServiceError(opCreate, "invalid_input", fmt.Errorf("%w: %v", ErrInvalidMedication, err))
	}

	id, err := s.idProvider.NewID()
	if err != nil {
		s.logError(opCreate, "id_generation_failed", err, zap.String("user_id", userID.String()))
		return Medication{}, newServiceError(opCreate, "id_generation_failed", err)
	}

	medication := Medication{
		ID:        id,
		UserID:    userID.String(),
		Name:      input.Name,
		Dosage:    input.Dosage,
		Frequency: input.Frequency,
		CreatedAt: s.clock().UTC(),
	}
	if err := s.db.WithContext(ctx).Create(&medication).Error; err != nil {
		s.logError(opCreate, "insert_failed", err, zap.String("user_id", userID.String()))
		return Medication{}, newServiceError(opCreate, "insert_failed", err)
	}
	return medication, nil
}

// ListActive returns the non-archived medications ordered by name.
func (s *Service) ListActive(ctx context.Context, userID pain.UserID) ([]Medication, error) {
	return s.list(ctx, userID, false)
}

// ListAll returns every medication including archived ones, for reports.
func (s *Service) ListAll(ctx context.Context, userID pain.UserID) ([]Medication, error) {
	return s.list(ctx, userID, true)
}

func (s *Service) list(ctx context.Context, userID pain.UserID, includeArchived bool) ([]Medication, error) {
	query := s.db.WithContext(ctx).Where("user_id = ?", userID.String())
	if !includeArchived {
		query = query.Where("archived_at IS NULL")
	}
	var medications []Medication
	if err := query.Order("name ASC").Find(&medications).Error; err != nil {
		s.logError(opList, "query_failed", err, zap.String("user_id", userID.String()))
		return nil, newServiceError(opList, "query_failed", err)
	}
	return medications, nil
}

// Archive soft deletes a medication. Archiving twice keeps the first timestamp.
func (s *Service) Archive(ctx context.Context, userID pain.UserID, medicationID string) (Medication, error) {
	var medication Medication
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			Where("user_id = ? AND id = ?", userID.String(), medicationID).
			Take(&medication).Error; err != nil {
			return err
		}
		if medication.ArchivedAt != nil {
			return nil
		}
		archivedAt := s.clock().UTC()
		medication.ArchivedAt = &archivedAt
		return tx.Model(&Medication{}).
			Where("user_id = ? AND id = ?", userID.String(), medicationID).
			Update("archived_at", archivedAt).Error
	})
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return Medication{}, newServiceError(opArchive, "not_found", ErrMedicationNotFound)
	}
	if err != nil {
		s.logError(opArchive, "update_failed", err,
			zap.String("user_id", userID.String()),
			zap.String("medication_id", medicationID))
		return Medication{}, newServiceError(opArchive, "update_failed", err)
	}
	return medication, nil
}

// LogDose records a dose of an active medication. A nil takenAt means now.
func (s *Service) LogDose(ctx context.Context, userID pain.UserID, medicationID string, takenAt *time.Time) (MedicationLog, error) {
	var medication Medication
	err := s.db.WithContext(ctx).
		Where("user_id = ? AND id = ?", userID.String(), medicationID).
		Take(&medication).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return MedicationLog{}, newServiceError(opLogDose, "not_found", ErrMedicationNotFound)
	}
	if err != nil {
		s.logError(opLogDose, "query_failed", err, zap.String("user_id", userID.String()))
		return MedicationLog{}, newServiceError(opLogDose, "query_failed", err)
	}
	if medication.IsArchived() {
		return MedicationLog{}, newServiceError(opLogDose, "archived", ErrMedicationArchived)
	}

	id, err := s.idProvider.NewID()
	if err != nil {
		s.logError(opLogDose, "id_generation_failed", err, zap.String("user_id", userID.String()))
		return MedicationLog{}, newServiceError(opLogDose, "id_generation_failed", err)
	}
	taken := s.clock().UTC()
	if takenAt != nil {
		taken = takenAt.UTC()
	}
	entry := MedicationLog{
		ID:           id,
		UserID:       userID.String(),
		MedicationID: medication.ID,
		TakenAt:      taken,
	}
	if err := s.db.WithContext(ctx).Create(&entry).Error; err != nil {
		s.logError(opLogDose, "insert_failed", err, zap.String("user_id", userID.String()))
		return MedicationLog{}, newServiceError(opLogDose, "insert_failed", err)
	}
	return entry, nil
}

// ListDoses returns doses taken in [from, to), newest first. Zero bounds are open.
func (s *Service) ListDoses(ctx context.Context, userID pain.UserID, from, to time.Time) ([]MedicationLog, error) {
	query := s.db.WithContext(ctx).Where("user_id = ?", userID.String())
	if !from.IsZero() {
		query = query.Where("taken_at >= ?", from.UTC())
	}
	if !to.IsZero() {
		query = query.Where("taken_at < ?", to.UTC())
	}
	var logs []MedicationLog
	if err := query.Order("taken_at DESC").Find(&logs).Error; err != nil {
		s.logError(opListDoses, "query_failed", err, zap.String("user_id", userID.String()))
		return nil, newServiceError(opListDoses, "query_failed", err)
	}
	return logs, nil
}

// ActiveOn filters medications to those active by the end of day.
func ActiveOn(medications []Medication, day pain.Day, loc *time.Location) []Medication {
	active := make([]Medication, 0, len(medications))
	for _, medication := range medications {
		if medication.ActiveOn(day, loc) {
			active = append(active, medication)
		}
	}
	return active
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
	s.loggerOrDefault().Error("medications service error", attrs...)
}
