package services

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/heilo27/rightrudder/internal/app/models"
	"github.com/heilo27/rightrudder/internal/app/remote"
	"github.com/heilo27/rightrudder/internal/app/repositories"
	"github.com/heilo27/rightrudder/internal/pkg/apperrors"
)

func isRemoteNotFound(err error) bool {
	return errors.Is(err, apperrors.ErrRemoteNotFound)
}

// SyncService pushes local entities to the student's shared remote zone and
// pulls remote records back. Each student gets their own zone; records use
// the entity's local UUID as the remote record name so both apps collide on
// the same logical entity, and parent references express the
// Student→Assignment→ItemProgress hierarchy for share scoping.
type SyncService interface {
	ZoneForStudent(studentID uuid.UUID) string
	PushStudent(ctx context.Context, studentID uuid.UUID) error
	PushAssignment(ctx context.Context, assignmentID uuid.UUID) error
	PushItemProgress(ctx context.Context, assignment *models.Assignment, progress *models.ItemProgress) error
	PushTemplate(ctx context.Context, templateID uuid.UUID) error
	PullStudentRecord(ctx context.Context, studentID uuid.UUID) (*remote.Record, error)
	SyncStudent(ctx context.Context, studentID uuid.UUID) (*SyncResult, error)
}

// SyncResult summarizes one full student sync.
type SyncResult struct {
	RecordsPushed  int                   `json:"recordsPushed"`
	ConflictsFound int                   `json:"conflictsFound"`
	Conflicts      []models.DataConflict `json:"conflicts,omitempty"`
}

type syncServiceImpl struct {
	repos      *repositories.Repositories
	store      remote.Store
	conflicts  ConflictService
	zonePrefix string
	logger     zerolog.Logger
}

// NewSyncService creates a new sync service instance
func NewSyncService(repos *repositories.Repositories, store remote.Store, conflicts ConflictService, zonePrefix string, logger zerolog.Logger) SyncService {
	if zonePrefix == "" {
		zonePrefix = "student-"
	}
	return &syncServiceImpl{
		repos:      repos,
		store:      store,
		conflicts:  conflicts,
		zonePrefix: zonePrefix,
		logger:     logger.With().Str("component", "sync").Logger(),
	}
}

// ZoneForStudent returns the remote zone name for a student
func (s *syncServiceImpl) ZoneForStudent(studentID uuid.UUID) string {
	return s.zonePrefix + studentID.String()
}

func studentToRecord(student *models.Student, zone string) *remote.Record {
	return &remote.Record{
		ID:   student.ID.String(),
		Type: remote.TypeStudent,
		Zone: zone,
		Fields: map[string]string{
			"firstName":                student.FirstName,
			"lastName":                 student.LastName,
			"email":                    student.Email,
			"phone":                    student.Phone,
			"homeAirport":              student.HomeAirport,
			"aircraftType":             student.AircraftType,
			"instructorNotes":          student.InstructorNotes,
			"milestoneSoloComplete":    strconv.FormatBool(student.MilestoneSoloComplete),
			"milestoneWrittenPassed":   strconv.FormatBool(student.MilestoneWrittenPassed),
			"milestoneCheckridePassed": strconv.FormatBool(student.MilestoneCheckridePassed),
		},
		ModifiedAt: student.LastModified,
	}
}

func assignmentToRecord(assignment *models.Assignment, zone string) *remote.Record {
	return &remote.Record{
		ID:       assignment.ID.String(),
		Type:     remote.TypeAssignment,
		Zone:     zone,
		ParentID: assignment.StudentID.String(),
		Fields: map[string]string{
			"templateId":         assignment.TemplateID.String(),
			"templateIdentifier": assignment.TemplateIdentifier,
			"isCustomChecklist":  strconv.FormatBool(assignment.IsCustomChecklist),
			"instructorComments": assignment.InstructorComments,
			"dualGivenHours":     strconv.FormatFloat(assignment.DualGivenHours, 'f', -1, 64),
		},
		ModifiedAt: assignment.LastModified,
	}
}

func progressToRecord(assignment *models.Assignment, progress *models.ItemProgress, zone string) *remote.Record {
	fields := map[string]string{
		"templateItemId": progress.TemplateItemID.String(),
		"isComplete":     strconv.FormatBool(progress.IsComplete),
		"notes":          progress.Notes,
	}
	if progress.CompletedAt != nil {
		fields["completedAt"] = progress.CompletedAt.Format(time.RFC3339)
	}
	return &remote.Record{
		ID:         progress.ID.String(),
		Type:       remote.TypeItemProgress,
		Zone:       zone,
		ParentID:   assignment.ID.String(),
		Fields:     fields,
		ModifiedAt: progress.LastModified,
	}
}

func templateToRecord(template *models.Template, zone string) *remote.Record {
	return &remote.Record{
		ID:   template.ID.String(),
		Type: remote.TypeTemplate,
		Zone: zone,
		Fields: map[string]string{
			"name":               template.Name,
			"category":           template.Category,
			"phase":              template.Phase,
			"templateIdentifier": template.TemplateIdentifier,
			"contentHash":        template.ContentHash,
			"isUserCreated":      strconv.FormatBool(template.IsUserCreated),
		},
		ModifiedAt: template.LastModified,
	}
}

// PushStudent pushes the student root record to its zone
func (s *syncServiceImpl) PushStudent(ctx context.Context, studentID uuid.UUID) error {
	student, err := s.repos.Students.GetByID(ctx, studentID)
	if err != nil {
		return err
	}

	zone := s.ZoneForStudent(studentID)
	if err := s.store.EnsureZone(ctx, zone); err != nil {
		return err
	}

	if err := s.store.SaveRecord(ctx, studentToRecord(student, zone)); err != nil {
		return fmt.Errorf("failed to push student record: %w", err)
	}

	s.logger.Debug().Str("studentId", studentID.String()).Msg("Pushed student record")
	return nil
}

// PushAssignment pushes an assignment and all its progress rows
func (s *syncServiceImpl) PushAssignment(ctx context.Context, assignmentID uuid.UUID) error {
	assignment, err := s.repos.Assignments.GetByID(ctx, assignmentID)
	if err != nil {
		return err
	}

	zone := s.ZoneForStudent(assignment.StudentID)
	if err := s.store.EnsureZone(ctx, zone); err != nil {
		return err
	}

	if err := s.store.SaveRecord(ctx, assignmentToRecord(assignment, zone)); err != nil {
		return fmt.Errorf("failed to push assignment record: %w", err)
	}

	for i := range assignment.ItemProgress {
		if err := s.store.SaveRecord(ctx, progressToRecord(assignment, &assignment.ItemProgress[i], zone)); err != nil {
			return fmt.Errorf("failed to push item progress record: %w", err)
		}
	}

	return nil
}

// PushItemProgress pushes a single progress row. Used for the incremental
// push after an item completion instead of a full resync.
func (s *syncServiceImpl) PushItemProgress(ctx context.Context, assignment *models.Assignment, progress *models.ItemProgress) error {
	zone := s.ZoneForStudent(assignment.StudentID)
	if err := s.store.SaveRecord(ctx, progressToRecord(assignment, progress, zone)); err != nil {
		return fmt.Errorf("failed to push item progress record: %w", err)
	}
	return nil
}

// PushTemplate pushes a template and its items to every zone the template is
// assigned in. Template items parent to the template record.
func (s *syncServiceImpl) PushTemplate(ctx context.Context, templateID uuid.UUID) error {
	template, err := s.repos.Templates.GetByID(ctx, templateID)
	if err != nil {
		return err
	}

	assignments, err := s.repos.Assignments.ListAll(ctx)
	if err != nil {
		return err
	}

	pushed := make(map[string]struct{})
	for _, assignment := range assignments {
		if assignment.TemplateID != template.ID {
			continue
		}
		zone := s.ZoneForStudent(assignment.StudentID)
		if _, done := pushed[zone]; done {
			continue
		}
		pushed[zone] = struct{}{}

		if err := s.store.EnsureZone(ctx, zone); err != nil {
			return err
		}
		if err := s.store.SaveRecord(ctx, templateToRecord(template, zone)); err != nil {
			return fmt.Errorf("failed to push template record: %w", err)
		}
		for _, item := range template.SortedItems() {
			record := &remote.Record{
				ID:       item.ID.String(),
				Type:     remote.TypeTemplateItem,
				Zone:     zone,
				ParentID: template.ID.String(),
				Fields: map[string]string{
					"title": item.Title,
					"notes": item.Notes,
					"order": strconv.Itoa(item.DisplayOrder),
				},
				ModifiedAt: template.LastModified,
			}
			if err := s.store.SaveRecord(ctx, record); err != nil {
				return fmt.Errorf("failed to push template item record: %w", err)
			}
		}
	}

	return nil
}

// PullStudentRecord fetches the student's root record from its zone
func (s *syncServiceImpl) PullStudentRecord(ctx context.Context, studentID uuid.UUID) (*remote.Record, error) {
	return s.store.FetchRecord(ctx, s.ZoneForStudent(studentID), studentID.String())
}

// SyncStudent pushes the student's full hierarchy, then pulls the remote
// student record and detects field conflicts against the local copy.
// Conflicts are surfaced, never auto-resolved; student-owned milestone fields
// sync down without conflict detection.
func (s *syncServiceImpl) SyncStudent(ctx context.Context, studentID uuid.UUID) (*SyncResult, error) {
	student, err := s.repos.Students.GetByID(ctx, studentID)
	if err != nil {
		return nil, err
	}

	result := &SyncResult{}

	// Pull before push: a push would overwrite the student app's edits at
	// record level and hide the divergence.
	remoteRecord, err := s.PullStudentRecord(ctx, studentID)
	switch {
	case err == nil:
		result.Conflicts = s.conflicts.DetectConflicts(student, remoteRecord)
		result.ConflictsFound = len(result.Conflicts)
		s.conflicts.ApplyStudentOwnedFields(ctx, student, remoteRecord)
	case isRemoteNotFound(err):
		// First sync for this student; nothing to compare.
	default:
		return nil, err
	}

	if result.ConflictsFound > 0 {
		s.logger.Warn().
			Str("studentId", studentID.String()).
			Int("conflicts", result.ConflictsFound).
			Msg("Field conflicts detected; push deferred until resolution")
		return result, nil
	}

	if err := s.PushStudent(ctx, studentID); err != nil {
		return nil, err
	}
	result.RecordsPushed++

	assignments, err := s.repos.Assignments.ListByStudent(ctx, studentID)
	if err != nil {
		return nil, err
	}
	for _, assignment := range assignments {
		if err := s.PushAssignment(ctx, assignment.ID); err != nil {
			return nil, err
		}
		result.RecordsPushed += 1 + len(assignment.ItemProgress)
	}

	return result, nil
}
