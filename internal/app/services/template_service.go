package services

import (
	"context"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/heilo27/rightrudder/internal/app/models"
	"github.com/heilo27/rightrudder/internal/app/repositories"
	"github.com/heilo27/rightrudder/internal/pkg/apperrors"
	"github.com/heilo27/rightrudder/internal/pkg/savequeue"
)

// TemplateItemInput carries one checklist line for creation or update.
type TemplateItemInput struct {
	Title string
	Notes string
}

// TemplateService manages the checklist template catalog. Mutating a built-in
// template marks it user-modified, which exempts it from content-hash
// verification; every mutation recomputes the stored hash.
type TemplateService interface {
	Create(ctx context.Context, name, category, phase string, items []TemplateItemInput) (*models.Template, error)
	GetByID(ctx context.Context, id uuid.UUID) (*models.Template, error)
	GetAll(ctx context.Context) ([]*models.Template, error)
	Rename(ctx context.Context, id uuid.UUID, name, category, phase string) (*models.Template, error)
	Delete(ctx context.Context, id uuid.UUID) error
	AddItem(ctx context.Context, templateID uuid.UUID, input TemplateItemInput) (*models.TemplateItem, error)
	UpdateItem(ctx context.Context, templateID, itemID uuid.UUID, input TemplateItemInput) (*models.TemplateItem, error)
	DeleteItem(ctx context.Context, templateID, itemID uuid.UUID) error
	ReorderItems(ctx context.Context, templateID uuid.UUID, itemIDs []uuid.UUID) error
}

type templateServiceImpl struct {
	repos  *repositories.Repositories
	queue  *savequeue.Queue
	logger zerolog.Logger
}

// NewTemplateService creates a new template service instance
func NewTemplateService(repos *repositories.Repositories, queue *savequeue.Queue, logger zerolog.Logger) TemplateService {
	return &templateServiceImpl{
		repos:  repos,
		queue:  queue,
		logger: logger.With().Str("component", "template").Logger(),
	}
}

// Create adds a user-created template with its items
func (s *templateServiceImpl) Create(ctx context.Context, name, category, phase string, items []TemplateItemInput) (*models.Template, error) {
	if strings.TrimSpace(name) == "" {
		return nil, apperrors.NewValidationError("template name must not be blank")
	}

	now := time.Now().UTC()
	template := &models.Template{
		ID:            uuid.New(),
		Name:          name,
		Category:      category,
		Phase:         phase,
		IsUserCreated: true,
		CreatedAt:     now,
		LastModified:  now,
	}
	for i, input := range items {
		template.Items = append(template.Items, models.TemplateItem{
			ID:           uuid.New(),
			TemplateID:   template.ID,
			Title:        input.Title,
			Notes:        input.Notes,
			DisplayOrder: i,
		})
	}
	template.ContentHash = template.ComputeContentHash()

	err := s.queue.Save(ctx, func(ctx context.Context) error {
		return s.repos.Templates.Create(ctx, template)
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info().Str("templateId", template.ID.String()).Str("name", name).Msg("Created template")
	return template, nil
}

// GetByID returns one template with its items
func (s *templateServiceImpl) GetByID(ctx context.Context, id uuid.UUID) (*models.Template, error) {
	return s.repos.Templates.GetByID(ctx, id)
}

// GetAll returns the whole catalog
func (s *templateServiceImpl) GetAll(ctx context.Context) ([]*models.Template, error) {
	return s.repos.Templates.GetAll(ctx)
}

// Rename updates a template's name and grouping fields
func (s *templateServiceImpl) Rename(ctx context.Context, id uuid.UUID, name, category, phase string) (*models.Template, error) {
	if strings.TrimSpace(name) == "" {
		return nil, apperrors.NewValidationError("template name must not be blank")
	}

	template, err := s.repos.Templates.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	template.Name = name
	template.Category = category
	template.Phase = phase
	s.markModified(template)

	err = s.queue.Save(ctx, func(ctx context.Context) error {
		return s.repos.Templates.Update(ctx, template)
	})
	if err != nil {
		return nil, err
	}
	return template, nil
}

func (s *templateServiceImpl) markModified(template *models.Template) {
	if template.IsBuiltIn() {
		template.IsUserModified = true
	}
	template.LastModified = time.Now().UTC()
	template.ContentHash = template.ComputeContentHash()
}

// Delete removes a template and its items. Assignments referencing it become
// orphans and the integrity service clears them on its next run.
func (s *templateServiceImpl) Delete(ctx context.Context, id uuid.UUID) error {
	if _, err := s.repos.Templates.GetByID(ctx, id); err != nil {
		return err
	}

	err := s.queue.Save(ctx, func(ctx context.Context) error {
		return s.repos.Templates.Delete(ctx, id)
	})
	if err != nil {
		return err
	}

	s.logger.Info().Str("templateId", id.String()).Msg("Deleted template")
	return nil
}

// AddItem appends a checklist line at the end of the template
func (s *templateServiceImpl) AddItem(ctx context.Context, templateID uuid.UUID, input TemplateItemInput) (*models.TemplateItem, error) {
	template, err := s.repos.Templates.GetByID(ctx, templateID)
	if err != nil {
		return nil, err
	}

	maxOrder := -1
	for i := range template.Items {
		if template.Items[i].DisplayOrder > maxOrder {
			maxOrder = template.Items[i].DisplayOrder
		}
	}

	item := &models.TemplateItem{
		ID:           uuid.New(),
		TemplateID:   templateID,
		Title:        input.Title,
		Notes:        input.Notes,
		DisplayOrder: maxOrder + 1,
	}
	template.Items = append(template.Items, *item)
	s.markModified(template)

	err = s.queue.Save(ctx, func(ctx context.Context) error {
		if err := s.repos.Templates.AddItem(ctx, item); err != nil {
			return err
		}
		return s.repos.Templates.Update(ctx, template)
	})
	if err != nil {
		return nil, err
	}
	return item, nil
}

// UpdateItem replaces the title and notes of one checklist line
func (s *templateServiceImpl) UpdateItem(ctx context.Context, templateID, itemID uuid.UUID, input TemplateItemInput) (*models.TemplateItem, error) {
	template, err := s.repos.Templates.GetByID(ctx, templateID)
	if err != nil {
		return nil, err
	}

	item := template.ItemByID(itemID)
	if item == nil {
		return nil, apperrors.ErrResourceNotFound
	}

	item.Title = input.Title
	item.Notes = input.Notes
	s.markModified(template)

	err = s.queue.Save(ctx, func(ctx context.Context) error {
		if err := s.repos.Templates.UpdateItem(ctx, item); err != nil {
			return err
		}
		return s.repos.Templates.Update(ctx, template)
	})
	if err != nil {
		return nil, err
	}
	return item, nil
}

// DeleteItem removes one checklist line. Progress rows tracking the item
// become orphans; the integrity service removes them.
func (s *templateServiceImpl) DeleteItem(ctx context.Context, templateID, itemID uuid.UUID) error {
	template, err := s.repos.Templates.GetByID(ctx, templateID)
	if err != nil {
		return err
	}

	if template.ItemByID(itemID) == nil {
		return apperrors.ErrResourceNotFound
	}

	kept := template.Items[:0]
	for i := range template.Items {
		if template.Items[i].ID != itemID {
			kept = append(kept, template.Items[i])
		}
	}
	template.Items = kept
	s.markModified(template)

	return s.queue.Save(ctx, func(ctx context.Context) error {
		if err := s.repos.Templates.DeleteItem(ctx, itemID); err != nil {
			return err
		}
		return s.repos.Templates.Update(ctx, template)
	})
}

// ReorderItems rewrites the display order to match the given id sequence.
// Every existing item must appear exactly once.
func (s *templateServiceImpl) ReorderItems(ctx context.Context, templateID uuid.UUID, itemIDs []uuid.UUID) error {
	template, err := s.repos.Templates.GetByID(ctx, templateID)
	if err != nil {
		return err
	}

	if len(itemIDs) != len(template.Items) {
		return apperrors.NewValidationError("reorder must list every item exactly once")
	}

	order := make(map[uuid.UUID]int, len(itemIDs))
	for i, id := range itemIDs {
		order[id] = i
	}
	for i := range template.Items {
		position, ok := order[template.Items[i].ID]
		if !ok {
			return apperrors.NewValidationError("reorder references an unknown item")
		}
		template.Items[i].DisplayOrder = position
	}
	sort.Slice(template.Items, func(i, j int) bool {
		return template.Items[i].DisplayOrder < template.Items[j].DisplayOrder
	})
	s.markModified(template)

	return s.queue.Save(ctx, func(ctx context.Context) error {
		for i := range template.Items {
			if err := s.repos.Templates.UpdateItem(ctx, &template.Items[i]); err != nil {
				return err
			}
		}
		return s.repos.Templates.Update(ctx, template)
	})
}
