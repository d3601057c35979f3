package services

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/heilo27/rightrudder/internal/app/connectivity"
	"github.com/heilo27/rightrudder/internal/app/models"
	"github.com/heilo27/rightrudder/internal/app/repositories"
	"github.com/heilo27/rightrudder/internal/pkg/apperrors"
	"github.com/heilo27/rightrudder/internal/pkg/events"
	"github.com/heilo27/rightrudder/internal/pkg/idmap"
	"github.com/heilo27/rightrudder/internal/pkg/savequeue"
)

// ProgressSummary is the computed completion state of one assignment.
type ProgressSummary struct {
	CompletedItems int     `json:"completedItems"`
	TotalItems     int     `json:"totalItems"`
	Percentage     float64 `json:"percentage"`
	IsComplete     bool    `json:"isComplete"`
}

// AssignmentService assigns checklist templates to students and tracks
// per-item completion. Assignments reference templates by id; for built-in
// templates the id and the item ids are resolved through the deterministic
// mapping table so both apps address the same records.
type AssignmentService interface {
	Assign(ctx context.Context, studentID, templateID uuid.UUID) (*models.Assignment, error)
	GetAssignment(ctx context.Context, id uuid.UUID) (*models.Assignment, error)
	ListByStudent(ctx context.Context, studentID uuid.UUID) ([]*models.Assignment, error)
	UpdateComments(ctx context.Context, assignmentID uuid.UUID, comments string) error
	UpdateDualGiven(ctx context.Context, assignmentID uuid.UUID, hours float64) error
	UpdateItemCompletion(ctx context.Context, assignmentID, templateItemID uuid.UUID, isComplete bool, notes string) (*models.ItemProgress, error)
	RemoveAssignment(ctx context.Context, assignmentID uuid.UUID) error
	Progress(ctx context.Context, assignmentID uuid.UUID) (*ProgressSummary, error)
}

type assignmentServiceImpl struct {
	repos   *repositories.Repositories
	queue   *savequeue.Queue
	mapper  *idmap.Mapper
	sync    SyncService
	offline OfflineService
	monitor connectivity.Monitor
	hub     *events.Hub
	logger  zerolog.Logger
}

// NewAssignmentService creates a new assignment service instance
func NewAssignmentService(repos *repositories.Repositories, queue *savequeue.Queue, mapper *idmap.Mapper, syncService SyncService, offline OfflineService, monitor connectivity.Monitor, hub *events.Hub, logger zerolog.Logger) AssignmentService {
	return &assignmentServiceImpl{
		repos:   repos,
		queue:   queue,
		mapper:  mapper,
		sync:    syncService,
		offline: offline,
		monitor: monitor,
		hub:     hub,
		logger:  logger.With().Str("component", "assignment").Logger(),
	}
}

// Assign creates the assignment for a (student, template) pair, or returns
// the existing one. For built-in templates both the template id and the item
// ids come from the mapping table, not from the local template rows, so a
// device whose local catalog drifted still produces the canonical ids.
func (s *assignmentServiceImpl) Assign(ctx context.Context, studentID, templateID uuid.UUID) (*models.Assignment, error) {
	student, err := s.repos.Students.GetByID(ctx, studentID)
	if err != nil {
		return nil, err
	}

	template, err := s.repos.Templates.GetByID(ctx, templateID)
	if err != nil {
		return nil, err
	}

	resolvedTemplateID, itemIDs := s.resolveIDs(template)

	existing, err := s.repos.Assignments.GetByStudentAndTemplate(ctx, studentID, resolvedTemplateID)
	if err == nil {
		return existing, nil
	}
	if !errors.Is(err, apperrors.ErrAssignmentNotFound) {
		return nil, err
	}

	now := time.Now().UTC()
	assignment := &models.Assignment{
		ID:                 uuid.New(),
		StudentID:          studentID,
		TemplateID:         resolvedTemplateID,
		TemplateIdentifier: template.TemplateIdentifier,
		IsCustomChecklist:  template.IsUserCreated,
		CreatedAt:          now,
		LastModified:       now,
	}

	items := template.SortedItems()
	assignment.ItemProgress = make([]models.ItemProgress, 0, len(items))
	for i := range items {
		assignment.ItemProgress = append(assignment.ItemProgress, models.ItemProgress{
			ID:             uuid.New(),
			AssignmentID:   assignment.ID,
			TemplateItemID: itemIDs[i],
			LastModified:   now,
		})
	}

	err = s.queue.Save(ctx, func(ctx context.Context) error {
		return s.repos.Assignments.Create(ctx, assignment)
	})
	if err != nil {
		if errors.Is(err, apperrors.ErrAssignmentExists) {
			return s.repos.Assignments.GetByStudentAndTemplate(ctx, studentID, resolvedTemplateID)
		}
		return nil, err
	}

	s.logger.Info().
		Str("assignmentId", assignment.ID.String()).
		Str("studentId", studentID.String()).
		Str("templateId", resolvedTemplateID.String()).
		Msg("Assigned checklist to student")

	if student.HasActiveShare() {
		s.pushOrQueueAssignment(ctx, assignment)
	}

	return assignment, nil
}

func (s *assignmentServiceImpl) resolveIDs(template *models.Template) (uuid.UUID, []uuid.UUID) {
	return resolveCanonicalIDs(s.mapper, template, s.logger)
}

// resolveCanonicalIDs returns the canonical template id plus one item id per
// template item in display order. Built-in templates resolve through the
// mapping table; a lookup miss is loud because it means the embedded table
// and the seeded catalog disagree.
func resolveCanonicalIDs(mapper *idmap.Mapper, template *models.Template, logger zerolog.Logger) (uuid.UUID, []uuid.UUID) {
	items := template.SortedItems()
	itemIDs := make([]uuid.UUID, len(items))
	for i, item := range items {
		itemIDs[i] = item.ID
	}

	if !template.IsBuiltIn() {
		return template.ID, itemIDs
	}

	resolvedID := template.ID
	if mapped, ok := mapper.TemplateID(template.TemplateIdentifier); ok {
		resolvedID = mapped
	} else {
		logger.Error().
			Str("identifier", template.TemplateIdentifier).
			Str("templateId", template.ID.String()).
			Msg("Built-in template missing from mapping table; falling back to local id")
	}

	if mappedItems, ok := mapper.ItemIDs(template.TemplateIdentifier); ok {
		if len(mappedItems) == len(itemIDs) {
			copy(itemIDs, mappedItems)
		} else {
			logger.Error().
				Str("identifier", template.TemplateIdentifier).
				Int("mapped", len(mappedItems)).
				Int("local", len(itemIDs)).
				Msg("Mapping table item count mismatch; falling back to local item ids")
		}
	}

	return resolvedID, itemIDs
}

func (s *assignmentServiceImpl) pushOrQueueAssignment(ctx context.Context, assignment *models.Assignment) {
	if s.monitor.IsOnline() {
		err := s.sync.PushAssignment(ctx, assignment.ID)
		if err == nil {
			return
		}
		if !errors.Is(err, apperrors.ErrRemoteUnavailable) {
			s.logger.Error().Err(err).Str("assignmentId", assignment.ID.String()).Msg("Failed to push assignment")
			return
		}
	}

	checklistID := assignment.ID
	if err := s.offline.Enqueue(ctx, models.OperationAdd, assignment.StudentID, &checklistID, nil, nil); err != nil {
		s.logger.Error().Err(err).Str("assignmentId", assignment.ID.String()).Msg("Failed to queue assignment push")
	}
}

// GetAssignment returns one assignment with its progress rows
func (s *assignmentServiceImpl) GetAssignment(ctx context.Context, id uuid.UUID) (*models.Assignment, error) {
	return s.repos.Assignments.GetByID(ctx, id)
}

// ListByStudent returns all of a student's assignments
func (s *assignmentServiceImpl) ListByStudent(ctx context.Context, studentID uuid.UUID) ([]*models.Assignment, error) {
	if _, err := s.repos.Students.GetByID(ctx, studentID); err != nil {
		return nil, err
	}
	return s.repos.Assignments.ListByStudent(ctx, studentID)
}

// UpdateComments replaces the instructor comments on an assignment
func (s *assignmentServiceImpl) UpdateComments(ctx context.Context, assignmentID uuid.UUID, comments string) error {
	return s.updateAssignment(ctx, assignmentID, models.OperationComment, func(a *models.Assignment) {
		a.InstructorComments = comments
	})
}

// UpdateDualGiven replaces the dual instruction hours on an assignment
func (s *assignmentServiceImpl) UpdateDualGiven(ctx context.Context, assignmentID uuid.UUID, hours float64) error {
	return s.updateAssignment(ctx, assignmentID, models.OperationComment, func(a *models.Assignment) {
		a.DualGivenHours = hours
	})
}

func (s *assignmentServiceImpl) updateAssignment(ctx context.Context, assignmentID uuid.UUID, opType models.OperationType, mutate func(*models.Assignment)) error {
	assignment, err := s.repos.Assignments.GetByID(ctx, assignmentID)
	if err != nil {
		return err
	}

	mutate(assignment)
	assignment.LastModified = time.Now().UTC()

	err = s.queue.Save(ctx, func(ctx context.Context) error {
		return s.repos.Assignments.Update(ctx, assignment)
	})
	if err != nil {
		return err
	}

	student, err := s.repos.Students.GetByID(ctx, assignment.StudentID)
	if err != nil {
		return err
	}
	if student.HasActiveShare() {
		if s.monitor.IsOnline() {
			if pushErr := s.sync.PushAssignment(ctx, assignment.ID); pushErr == nil {
				return nil
			} else if !errors.Is(pushErr, apperrors.ErrRemoteUnavailable) {
				s.logger.Error().Err(pushErr).Str("assignmentId", assignment.ID.String()).Msg("Failed to push assignment update")
				return nil
			}
		}
		checklistID := assignment.ID
		if qErr := s.offline.Enqueue(ctx, opType, assignment.StudentID, &checklistID, nil, nil); qErr != nil {
			s.logger.Error().Err(qErr).Str("assignmentId", assignment.ID.String()).Msg("Failed to queue assignment update")
		}
	}
	return nil
}

// UpdateItemCompletion sets the absolute completion state of one item. The
// write covers both the progress row and the parent assignment's modification
// time in a single queued commit. When the student has an active share, only
// the changed progress record is pushed, not the whole hierarchy.
func (s *assignmentServiceImpl) UpdateItemCompletion(ctx context.Context, assignmentID, templateItemID uuid.UUID, isComplete bool, notes string) (*models.ItemProgress, error) {
	assignment, err := s.repos.Assignments.GetByID(ctx, assignmentID)
	if err != nil {
		return nil, err
	}

	progress := assignment.ProgressByItemID(templateItemID)
	if progress == nil {
		return nil, apperrors.ErrProgressNotFound
	}

	now := time.Now().UTC()
	progress.IsComplete = isComplete
	progress.Notes = notes
	progress.LastModified = now
	if isComplete {
		if progress.CompletedAt == nil {
			progress.CompletedAt = &now
		}
	} else {
		progress.CompletedAt = nil
	}
	assignment.LastModified = now

	err = s.queue.Save(ctx, func(ctx context.Context) error {
		if err := s.repos.Assignments.UpdateProgress(ctx, progress); err != nil {
			return err
		}
		return s.repos.Assignments.Update(ctx, assignment)
	})
	if err != nil {
		return nil, err
	}

	assignmentID = assignment.ID
	itemID := templateItemID
	s.hub.Publish(events.Event{
		Type:         events.EventItemCompleted,
		StudentID:    assignment.StudentID,
		AssignmentID: &assignmentID,
		ItemID:       &itemID,
		Timestamp:    now,
	})

	student, err := s.repos.Students.GetByID(ctx, assignment.StudentID)
	if err != nil {
		return nil, err
	}
	if student.HasActiveShare() {
		s.pushOrQueueCompletion(ctx, assignment, progress, now)
	}

	return progress, nil
}

func (s *assignmentServiceImpl) pushOrQueueCompletion(ctx context.Context, assignment *models.Assignment, progress *models.ItemProgress, changedAt time.Time) {
	if s.monitor.IsOnline() {
		err := s.sync.PushItemProgress(ctx, assignment, progress)
		if err == nil {
			return
		}
		if !errors.Is(err, apperrors.ErrRemoteUnavailable) {
			s.logger.Error().Err(err).Str("progressId", progress.ID.String()).Msg("Failed to push item completion")
			return
		}
	}

	checklistID := assignment.ID
	itemID := progress.TemplateItemID
	payload := models.CompletionPayload{
		TemplateItemID: progress.TemplateItemID,
		IsComplete:     progress.IsComplete,
		Notes:          progress.Notes,
		ChangedAt:      changedAt,
	}
	if err := s.offline.Enqueue(ctx, models.OperationCompletion, assignment.StudentID, &checklistID, &itemID, payload); err != nil {
		s.logger.Error().Err(err).Str("progressId", progress.ID.String()).Msg("Failed to queue item completion")
	}
}

// RemoveAssignment deletes an assignment and its progress rows
func (s *assignmentServiceImpl) RemoveAssignment(ctx context.Context, assignmentID uuid.UUID) error {
	assignment, err := s.repos.Assignments.GetByID(ctx, assignmentID)
	if err != nil {
		return err
	}

	err = s.queue.Save(ctx, func(ctx context.Context) error {
		return s.repos.Assignments.Delete(ctx, assignmentID)
	})
	if err != nil {
		return err
	}

	s.logger.Info().
		Str("assignmentId", assignmentID.String()).
		Str("studentId", assignment.StudentID.String()).
		Msg("Removed assignment")
	return nil
}

// Progress computes the completion summary for one assignment. When the
// progress rows have not materialized yet the live template's item count
// serves as the denominator.
func (s *assignmentServiceImpl) Progress(ctx context.Context, assignmentID uuid.UUID) (*ProgressSummary, error) {
	assignment, err := s.repos.Assignments.GetByID(ctx, assignmentID)
	if err != nil {
		return nil, err
	}

	templateItemCount := 0
	if template, err := s.repos.Templates.GetByID(ctx, assignment.TemplateID); err == nil {
		templateItemCount = len(template.Items)
	}

	total := len(assignment.ItemProgress)
	if total == 0 {
		total = templateItemCount
	}

	return &ProgressSummary{
		CompletedItems: assignment.CompletedCount(),
		TotalItems:     total,
		Percentage:     assignment.ProgressPercentage(templateItemCount),
		IsComplete:     assignment.IsComplete(templateItemCount),
	}, nil
}
