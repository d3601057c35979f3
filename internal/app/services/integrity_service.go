package services

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/heilo27/rightrudder/internal/app/models"
	"github.com/heilo27/rightrudder/internal/app/repositories"
	"github.com/heilo27/rightrudder/internal/pkg/events"
	"github.com/heilo27/rightrudder/internal/pkg/idmap"
	"github.com/heilo27/rightrudder/internal/pkg/savequeue"
)

// IntegrityReport summarizes one verification run.
type IntegrityReport struct {
	IssuesFound    int       `json:"issuesFound"`
	IssuesRepaired int       `json:"issuesRepaired"`
	RanAt          time.Time `json:"ranAt"`
}

// IntegrityService verifies and repairs the local store's referential
// invariants: no blank templates, content hashes that match content, no
// assignments pointing at deleted templates, and exactly one progress row per
// live template item on every assignment.
type IntegrityService interface {
	VerifyAndRepair(ctx context.Context) (*IntegrityReport, error)
}

type integrityServiceImpl struct {
	repos  *repositories.Repositories
	queue  *savequeue.Queue
	mapper *idmap.Mapper
	hub    *events.Hub
	logger zerolog.Logger
}

// NewIntegrityService creates a new integrity service instance
func NewIntegrityService(repos *repositories.Repositories, queue *savequeue.Queue, mapper *idmap.Mapper, hub *events.Hub, logger zerolog.Logger) IntegrityService {
	return &integrityServiceImpl{
		repos:  repos,
		queue:  queue,
		mapper: mapper,
		hub:    hub,
		logger: logger.With().Str("component", "integrity").Logger(),
	}
}

// VerifyAndRepair runs every check in dependency order inside a single
// queued write, so readers never observe a half-repaired store and no user
// write interleaves with the repair.
func (s *integrityServiceImpl) VerifyAndRepair(ctx context.Context) (*IntegrityReport, error) {
	report := &IntegrityReport{RanAt: time.Now().UTC()}

	err := s.queue.Save(ctx, func(ctx context.Context) error {
		templates, err := s.repos.Templates.GetAll(ctx)
		if err != nil {
			return err
		}

		templates, err = s.removeBlankTemplates(ctx, templates, report)
		if err != nil {
			return err
		}

		if err := s.repairContentHashes(ctx, templates, report); err != nil {
			return err
		}

		assignments, err := s.repos.Assignments.ListAll(ctx)
		if err != nil {
			return err
		}

		live := make(map[uuid.UUID]*models.Template, len(templates))
		for _, template := range templates {
			live[template.ID] = template
		}

		assignments, err = s.removeOrphanedAssignments(ctx, assignments, live, report)
		if err != nil {
			return err
		}

		for _, assignment := range assignments {
			if err := s.reconcileProgress(ctx, assignment, live[assignment.TemplateID], report); err != nil {
				return err
			}
		}

		// Second sweep over every student's assignments. Catches rows added
		// by concurrent callers between the listing above and now; the
		// reconcile is idempotent so re-visiting an assignment is free.
		return s.sweepStudents(ctx, live, report)
	})
	if err != nil {
		return nil, err
	}

	if report.IssuesRepaired > 0 {
		s.hub.Publish(events.Event{
			Type:      events.EventIntegrityRepaired,
			Detail:    "integrity repair completed",
			Timestamp: report.RanAt,
		})
	}

	s.logger.Info().
		Int("found", report.IssuesFound).
		Int("repaired", report.IssuesRepaired).
		Msg("Integrity verification finished")
	return report, nil
}

// removeBlankTemplates drops templates whose name is empty after trimming.
// These come from interrupted creations and sync glitches and render as
// unusable blank rows.
func (s *integrityServiceImpl) removeBlankTemplates(ctx context.Context, templates []*models.Template, report *IntegrityReport) ([]*models.Template, error) {
	kept := templates[:0]
	for _, template := range templates {
		if strings.TrimSpace(template.Name) != "" {
			kept = append(kept, template)
			continue
		}
		report.IssuesFound++
		if err := s.repos.Templates.Delete(ctx, template.ID); err != nil {
			return nil, err
		}
		report.IssuesRepaired++
		s.logger.Warn().Str("templateId", template.ID.String()).Msg("Removed blank template")
	}
	return kept, nil
}

// repairContentHashes recomputes each template's content hash and rewrites
// the stored value when it drifted. The content itself is the truth; the
// hash only exists to detect silent divergence between devices. A template
// with no stored hash yet is backfilled without being counted as drift.
func (s *integrityServiceImpl) repairContentHashes(ctx context.Context, templates []*models.Template, report *IntegrityReport) error {
	for _, template := range templates {
		computed := template.ComputeContentHash()
		if template.ContentHash == computed {
			continue
		}

		if template.ContentHash == "" {
			template.ContentHash = computed
			if err := s.repos.Templates.Update(ctx, template); err != nil {
				return err
			}
			s.logger.Debug().
				Str("templateId", template.ID.String()).
				Str("identifier", template.TemplateIdentifier).
				Msg("Backfilled missing template content hash")
			continue
		}

		report.IssuesFound++
		s.logger.Warn().
			Str("templateId", template.ID.String()).
			Str("identifier", template.TemplateIdentifier).
			Msg("Template content hash drift detected")

		template.ContentHash = computed
		if err := s.repos.Templates.Update(ctx, template); err != nil {
			return err
		}
		report.IssuesRepaired++
	}
	return nil
}

// removeOrphanedAssignments drops assignments whose template no longer exists
func (s *integrityServiceImpl) removeOrphanedAssignments(ctx context.Context, assignments []*models.Assignment, live map[uuid.UUID]*models.Template, report *IntegrityReport) ([]*models.Assignment, error) {
	kept := assignments[:0]
	for _, assignment := range assignments {
		if _, ok := live[assignment.TemplateID]; ok {
			kept = append(kept, assignment)
			continue
		}
		report.IssuesFound++
		if err := s.repos.Assignments.Delete(ctx, assignment.ID); err != nil {
			return nil, err
		}
		report.IssuesRepaired++
		s.logger.Warn().
			Str("assignmentId", assignment.ID.String()).
			Str("templateId", assignment.TemplateID.String()).
			Msg("Removed assignment referencing deleted template")
	}
	return kept, nil
}

// reconcileProgress makes the assignment's progress rows match the template's
// live items: one row per item, no rows for items that no longer exist.
// Completion state on surviving rows is never touched.
func (s *integrityServiceImpl) reconcileProgress(ctx context.Context, assignment *models.Assignment, template *models.Template, report *IntegrityReport) error {
	if template == nil {
		return nil
	}

	_, itemIDs := resolveCanonicalIDs(s.mapper, template, s.logger)
	expected := make(map[uuid.UUID]struct{}, len(itemIDs))
	for _, id := range itemIDs {
		expected[id] = struct{}{}
	}

	tracked := make(map[uuid.UUID]struct{}, len(assignment.ItemProgress))
	for i := range assignment.ItemProgress {
		progress := &assignment.ItemProgress[i]
		if _, ok := expected[progress.TemplateItemID]; !ok {
			report.IssuesFound++
			if err := s.repos.Assignments.DeleteProgress(ctx, progress.ID); err != nil {
				return err
			}
			report.IssuesRepaired++
			s.logger.Warn().
				Str("assignmentId", assignment.ID.String()).
				Str("templateItemId", progress.TemplateItemID.String()).
				Msg("Removed orphaned progress row")
			continue
		}
		tracked[progress.TemplateItemID] = struct{}{}
	}

	now := time.Now().UTC()
	for _, itemID := range itemIDs {
		if _, ok := tracked[itemID]; ok {
			continue
		}
		report.IssuesFound++
		progress := &models.ItemProgress{
			ID:             uuid.New(),
			AssignmentID:   assignment.ID,
			TemplateItemID: itemID,
			LastModified:   now,
		}
		if err := s.repos.Assignments.AddProgress(ctx, progress); err != nil {
			return err
		}
		report.IssuesRepaired++
		s.logger.Warn().
			Str("assignmentId", assignment.ID.String()).
			Str("templateItemId", itemID.String()).
			Msg("Created missing progress row")
	}

	return nil
}

func (s *integrityServiceImpl) sweepStudents(ctx context.Context, live map[uuid.UUID]*models.Template, report *IntegrityReport) error {
	students, err := s.repos.Students.GetAll(ctx)
	if err != nil {
		return err
	}

	for _, student := range students {
		assignments, err := s.repos.Assignments.ListByStudent(ctx, student.ID)
		if err != nil {
			return err
		}
		for _, assignment := range assignments {
			if err := s.reconcileProgress(ctx, assignment, live[assignment.TemplateID], report); err != nil {
				return err
			}
		}
	}
	return nil
}
