package services

import (
	"context"
	"errors"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/heilo27/rightrudder/internal/app/models"
	"github.com/heilo27/rightrudder/internal/app/remote"
	"github.com/heilo27/rightrudder/internal/app/repositories"
	"github.com/heilo27/rightrudder/internal/pkg/apperrors"
	"github.com/heilo27/rightrudder/internal/pkg/savequeue"
)

// StudentPusher is the slice of the sync service the conflict service needs
// to re-push a student after resolution. Kept narrow to avoid a construction
// cycle between the two services.
type StudentPusher interface {
	PushStudent(ctx context.Context, studentID uuid.UUID) error
	PullStudentRecord(ctx context.Context, studentID uuid.UUID) (*remote.Record, error)
}

// ConflictService detects field-level divergence between the instructor's
// local student record and the student app's copy in the shared zone, and
// applies the instructor's resolution choices.
type ConflictService interface {
	DetectConflicts(local *models.Student, remoteRecord *remote.Record) []models.DataConflict
	ApplyStudentOwnedFields(ctx context.Context, student *models.Student, remoteRecord *remote.Record)
	ListConflicts(ctx context.Context, studentID uuid.UUID) ([]models.DataConflict, error)
	Resolve(ctx context.Context, studentID uuid.UUID, resolutions []models.ConflictResolution) error
	SetPusher(pusher StudentPusher)
}

// fieldAccessor binds a conflictable field to its record key and its getter
// and setter on the student model. Adding a field to the comparison set means
// adding one row here.
type fieldAccessor struct {
	field     models.ConflictField
	recordKey string
	get       func(*models.Student) string
	set       func(*models.Student, string)
}

// conflictFieldTable lists the instructor-editable identity fields that both
// apps may change. Instructor notes never leave the instructor app as an
// editable field on the student side, and milestone flags are student-owned,
// so neither appears here.
var conflictFieldTable = []fieldAccessor{
	{
		field:     models.FieldFirstName,
		recordKey: "firstName",
		get:       func(s *models.Student) string { return s.FirstName },
		set:       func(s *models.Student, v string) { s.FirstName = v },
	},
	{
		field:     models.FieldLastName,
		recordKey: "lastName",
		get:       func(s *models.Student) string { return s.LastName },
		set:       func(s *models.Student, v string) { s.LastName = v },
	},
	{
		field:     models.FieldEmail,
		recordKey: "email",
		get:       func(s *models.Student) string { return s.Email },
		set:       func(s *models.Student, v string) { s.Email = v },
	},
	{
		field:     models.FieldPhone,
		recordKey: "phone",
		get:       func(s *models.Student) string { return s.Phone },
		set:       func(s *models.Student, v string) { s.Phone = v },
	},
	{
		field:     models.FieldHomeAirport,
		recordKey: "homeAirport",
		get:       func(s *models.Student) string { return s.HomeAirport },
		set:       func(s *models.Student, v string) { s.HomeAirport = v },
	},
	{
		field:     models.FieldAircraftType,
		recordKey: "aircraftType",
		get:       func(s *models.Student) string { return s.AircraftType },
		set:       func(s *models.Student, v string) { s.AircraftType = v },
	},
}

type conflictServiceImpl struct {
	repos  *repositories.Repositories
	queue  *savequeue.Queue
	pusher StudentPusher
	logger zerolog.Logger
}

// NewConflictService creates a new conflict service instance
func NewConflictService(repos *repositories.Repositories, queue *savequeue.Queue, logger zerolog.Logger) ConflictService {
	return &conflictServiceImpl{
		repos:  repos,
		queue:  queue,
		logger: logger.With().Str("component", "conflict").Logger(),
	}
}

// SetPusher attaches the sync service after construction
func (s *conflictServiceImpl) SetPusher(pusher StudentPusher) {
	s.pusher = pusher
}

// DetectConflicts compares the conflictable fields one by one. An absent
// remote field compares as empty string, so a field neither side ever set
// is never reported.
func (s *conflictServiceImpl) DetectConflicts(local *models.Student, remoteRecord *remote.Record) []models.DataConflict {
	var conflicts []models.DataConflict
	for _, accessor := range conflictFieldTable {
		localValue := accessor.get(local)
		remoteValue := remoteRecord.Fields[accessor.recordKey]
		if localValue == remoteValue {
			continue
		}
		conflicts = append(conflicts, models.DataConflict{
			StudentID:       local.ID,
			Field:           accessor.field,
			InstructorValue: localValue,
			StudentValue:    remoteValue,
		})
	}
	return conflicts
}

// ApplyStudentOwnedFields copies the milestone flags from the remote record
// onto the local student. These fields belong to the student app, so they
// sync down without conflict detection.
func (s *conflictServiceImpl) ApplyStudentOwnedFields(ctx context.Context, student *models.Student, remoteRecord *remote.Record) {
	solo := parseRecordBool(remoteRecord.Fields["milestoneSoloComplete"])
	written := parseRecordBool(remoteRecord.Fields["milestoneWrittenPassed"])
	checkride := parseRecordBool(remoteRecord.Fields["milestoneCheckridePassed"])

	if student.MilestoneSoloComplete == solo &&
		student.MilestoneWrittenPassed == written &&
		student.MilestoneCheckridePassed == checkride {
		return
	}

	student.MilestoneSoloComplete = solo
	student.MilestoneWrittenPassed = written
	student.MilestoneCheckridePassed = checkride

	err := s.queue.Save(ctx, func(ctx context.Context) error {
		return s.repos.Students.Update(ctx, student)
	})
	if err != nil {
		s.logger.Error().Err(err).Str("studentId", student.ID.String()).Msg("Failed to persist student milestone flags")
	}
}

func parseRecordBool(v string) bool {
	parsed, err := strconv.ParseBool(v)
	return err == nil && parsed
}

// ListConflicts pulls the student's remote record and reports the diverged fields
func (s *conflictServiceImpl) ListConflicts(ctx context.Context, studentID uuid.UUID) ([]models.DataConflict, error) {
	student, err := s.repos.Students.GetByID(ctx, studentID)
	if err != nil {
		return nil, err
	}

	remoteRecord, err := s.pusher.PullStudentRecord(ctx, studentID)
	if err != nil {
		if errors.Is(err, apperrors.ErrRemoteNotFound) {
			return nil, nil
		}
		return nil, err
	}

	return s.DetectConflicts(student, remoteRecord), nil
}

// Resolve applies the instructor's per-field choices and re-pushes the merged
// record so the student app converges on the same values. Any conflicting
// field without an explicit resolution keeps the local value.
func (s *conflictServiceImpl) Resolve(ctx context.Context, studentID uuid.UUID, resolutions []models.ConflictResolution) error {
	student, err := s.repos.Students.GetByID(ctx, studentID)
	if err != nil {
		return err
	}

	remoteRecord, err := s.pusher.PullStudentRecord(ctx, studentID)
	if err != nil {
		return err
	}

	chosen := make(map[models.ConflictField]bool, len(resolutions))
	for _, resolution := range resolutions {
		chosen[resolution.Field] = resolution.AcceptLocal
	}

	changed := false
	for _, accessor := range conflictFieldTable {
		acceptLocal, listed := chosen[accessor.field]
		if !listed || acceptLocal {
			continue
		}
		remoteValue := remoteRecord.Fields[accessor.recordKey]
		if accessor.get(student) == remoteValue {
			continue
		}
		accessor.set(student, remoteValue)
		changed = true
	}

	if changed {
		student.LastModified = time.Now().UTC()
		err = s.queue.Save(ctx, func(ctx context.Context) error {
			return s.repos.Students.Update(ctx, student)
		})
		if err != nil {
			return err
		}
	}

	// Re-push right away so the merged record becomes the shared truth.
	if err := s.pusher.PushStudent(ctx, studentID); err != nil {
		if errors.Is(err, apperrors.ErrRemoteUnavailable) {
			s.logger.Warn().Str("studentId", studentID.String()).Msg("Remote unavailable after resolution; push deferred to next sync")
			return nil
		}
		return err
	}

	return nil
}
