package services

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/heilo27/rightrudder/internal/app/connectivity"
	"github.com/heilo27/rightrudder/internal/app/models"
	"github.com/heilo27/rightrudder/internal/app/repositories"
	"github.com/heilo27/rightrudder/internal/pkg/apperrors"
	"github.com/heilo27/rightrudder/internal/pkg/savequeue"
)

// StudentInput carries the instructor-editable student fields.
type StudentInput struct {
	FirstName       string
	LastName        string
	Email           string
	Phone           string
	HomeAirport     string
	AircraftType    string
	InstructorNotes string
}

// StudentService manages the instructor's student roster. Edits to a shared
// student push the record immediately when online and queue an update
// operation otherwise.
type StudentService interface {
	Create(ctx context.Context, input StudentInput) (*models.Student, error)
	GetByID(ctx context.Context, id uuid.UUID) (*models.Student, error)
	GetAll(ctx context.Context) ([]*models.Student, error)
	Update(ctx context.Context, id uuid.UUID, input StudentInput) (*models.Student, error)
	Delete(ctx context.Context, id uuid.UUID) error
}

type studentServiceImpl struct {
	repos   *repositories.Repositories
	queue   *savequeue.Queue
	sync    SyncService
	offline OfflineService
	monitor connectivity.Monitor
	logger  zerolog.Logger
}

// NewStudentService creates a new student service instance
func NewStudentService(repos *repositories.Repositories, queue *savequeue.Queue, syncService SyncService, offline OfflineService, monitor connectivity.Monitor, logger zerolog.Logger) StudentService {
	return &studentServiceImpl{
		repos:   repos,
		queue:   queue,
		sync:    syncService,
		offline: offline,
		monitor: monitor,
		logger:  logger.With().Str("component", "student").Logger(),
	}
}

// Create adds a student to the roster
func (s *studentServiceImpl) Create(ctx context.Context, input StudentInput) (*models.Student, error) {
	if strings.TrimSpace(input.FirstName) == "" && strings.TrimSpace(input.LastName) == "" {
		return nil, apperrors.NewValidationError("student needs a first or last name")
	}

	now := time.Now().UTC()
	student := &models.Student{
		ID:              uuid.New(),
		FirstName:       input.FirstName,
		LastName:        input.LastName,
		Email:           input.Email,
		Phone:           input.Phone,
		HomeAirport:     input.HomeAirport,
		AircraftType:    input.AircraftType,
		InstructorNotes: input.InstructorNotes,
		CreatedAt:       now,
		LastModified:    now,
	}

	err := s.queue.Save(ctx, func(ctx context.Context) error {
		return s.repos.Students.Create(ctx, student)
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info().Str("studentId", student.ID.String()).Msg("Created student")
	return student, nil
}

// GetByID returns one student
func (s *studentServiceImpl) GetByID(ctx context.Context, id uuid.UUID) (*models.Student, error) {
	return s.repos.Students.GetByID(ctx, id)
}

// GetAll returns the full roster
func (s *studentServiceImpl) GetAll(ctx context.Context) ([]*models.Student, error) {
	return s.repos.Students.GetAll(ctx)
}

// Update replaces the instructor-editable fields. Milestone flags and share
// info are not touched; they have their own mutation paths.
func (s *studentServiceImpl) Update(ctx context.Context, id uuid.UUID, input StudentInput) (*models.Student, error) {
	student, err := s.repos.Students.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	student.FirstName = input.FirstName
	student.LastName = input.LastName
	student.Email = input.Email
	student.Phone = input.Phone
	student.HomeAirport = input.HomeAirport
	student.AircraftType = input.AircraftType
	student.InstructorNotes = input.InstructorNotes
	student.LastModified = time.Now().UTC()

	err = s.queue.Save(ctx, func(ctx context.Context) error {
		return s.repos.Students.Update(ctx, student)
	})
	if err != nil {
		return nil, err
	}

	if student.HasActiveShare() {
		s.pushOrQueueUpdate(ctx, student.ID)
	}
	return student, nil
}

func (s *studentServiceImpl) pushOrQueueUpdate(ctx context.Context, studentID uuid.UUID) {
	if s.monitor.IsOnline() {
		err := s.sync.PushStudent(ctx, studentID)
		if err == nil {
			return
		}
		if !errors.Is(err, apperrors.ErrRemoteUnavailable) {
			s.logger.Error().Err(err).Str("studentId", studentID.String()).Msg("Failed to push student update")
			return
		}
	}

	if err := s.offline.Enqueue(ctx, models.OperationUpdate, studentID, nil, nil, nil); err != nil {
		s.logger.Error().Err(err).Str("studentId", studentID.String()).Msg("Failed to queue student update")
	}
}

// Delete removes a student and everything hanging off them. Remote records
// are left alone; the zone becomes unreferenced once the local row is gone.
func (s *studentServiceImpl) Delete(ctx context.Context, id uuid.UUID) error {
	if _, err := s.repos.Students.GetByID(ctx, id); err != nil {
		return err
	}

	err := s.queue.Save(ctx, func(ctx context.Context) error {
		return s.repos.Students.Delete(ctx, id)
	})
	if err != nil {
		return err
	}

	s.logger.Info().Str("studentId", id.String()).Msg("Deleted student")
	return nil
}
