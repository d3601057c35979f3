package services

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/heilo27/rightrudder/internal/app/models"
	"github.com/heilo27/rightrudder/internal/app/models/dto"
	"github.com/heilo27/rightrudder/internal/app/repositories"
	"github.com/heilo27/rightrudder/internal/pkg/apperrors"
	"github.com/heilo27/rightrudder/internal/pkg/savequeue"
)

// ImportResult summarizes one template import.
type ImportResult struct {
	Imported int `json:"imported"`
	Skipped  int `json:"skipped"`
}

// ExportService serializes templates to a portable JSON document and imports
// such documents from another installation. Import is additive: templates
// whose id already exists locally are skipped, never overwritten.
type ExportService interface {
	Export(ctx context.Context, templateIDs []uuid.UUID, exportedBy string) (*dto.TemplateExportDocument, error)
	Import(ctx context.Context, doc *dto.TemplateExportDocument) (*ImportResult, error)
}

type exportServiceImpl struct {
	repos      *repositories.Repositories
	queue      *savequeue.Queue
	appVersion string
	logger     zerolog.Logger
}

// NewExportService creates a new export service instance
func NewExportService(repos *repositories.Repositories, queue *savequeue.Queue, appVersion string, logger zerolog.Logger) ExportService {
	return &exportServiceImpl{
		repos:      repos,
		queue:      queue,
		appVersion: appVersion,
		logger:     logger.With().Str("component", "export").Logger(),
	}
}

// Export bundles the selected templates, or the whole catalog when
// templateIDs is empty.
func (s *exportServiceImpl) Export(ctx context.Context, templateIDs []uuid.UUID, exportedBy string) (*dto.TemplateExportDocument, error) {
	var templates []*models.Template
	if len(templateIDs) == 0 {
		all, err := s.repos.Templates.GetAll(ctx)
		if err != nil {
			return nil, err
		}
		templates = all
	} else {
		for _, id := range templateIDs {
			template, err := s.repos.Templates.GetByID(ctx, id)
			if err != nil {
				return nil, err
			}
			templates = append(templates, template)
		}
	}

	doc := &dto.TemplateExportDocument{
		ExportDate: time.Now().UTC(),
		ExportedBy: exportedBy,
		AppVersion: s.appVersion,
	}
	for _, template := range templates {
		entry := dto.TemplateExportEntry{
			ID:             template.ID,
			Name:           template.Name,
			Category:       template.Category,
			Phase:          template.Phase,
			IsUserCreated:  template.IsUserCreated,
			IsUserModified: template.IsUserModified,
			OriginalAuthor: exportedBy,
			CreatedAt:      template.CreatedAt,
			LastModified:   template.LastModified,
		}
		for _, item := range template.SortedItems() {
			entry.Items = append(entry.Items, dto.TemplateExportItem{
				ID:    item.ID,
				Title: item.Title,
				Notes: item.Notes,
			})
		}
		doc.Templates = append(doc.Templates, entry)
	}

	s.logger.Info().Int("templates", len(doc.Templates)).Msg("Exported templates")
	return doc, nil
}

// Import inserts the document's templates, skipping ids that already exist
func (s *exportServiceImpl) Import(ctx context.Context, doc *dto.TemplateExportDocument) (*ImportResult, error) {
	result := &ImportResult{}

	for i := range doc.Templates {
		entry := doc.Templates[i]

		_, err := s.repos.Templates.GetByID(ctx, entry.ID)
		if err == nil {
			result.Skipped++
			continue
		}
		if !errors.Is(err, apperrors.ErrTemplateNotFound) {
			return nil, err
		}

		// Imported templates count as user-created on this install, keeping
		// them out of built-in hash verification.
		template := &models.Template{
			ID:            entry.ID,
			Name:          entry.Name,
			Category:      entry.Category,
			Phase:         entry.Phase,
			IsUserCreated: true,
			CreatedAt:     entry.CreatedAt,
			LastModified:  entry.LastModified,
		}
		if template.CreatedAt.IsZero() {
			template.CreatedAt = time.Now().UTC()
		}
		if template.LastModified.IsZero() {
			template.LastModified = time.Now().UTC()
		}
		for j, item := range entry.Items {
			template.Items = append(template.Items, models.TemplateItem{
				ID:           item.ID,
				TemplateID:   entry.ID,
				Title:        item.Title,
				Notes:        item.Notes,
				DisplayOrder: j,
			})
		}
		template.ContentHash = template.ComputeContentHash()

		err = s.queue.Save(ctx, func(ctx context.Context) error {
			return s.repos.Templates.Create(ctx, template)
		})
		if err != nil {
			return nil, err
		}
		result.Imported++
	}

	s.logger.Info().
		Int("imported", result.Imported).
		Int("skipped", result.Skipped).
		Msg("Imported template document")
	return result, nil
}
