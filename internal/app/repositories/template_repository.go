package repositories

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/heilo27/rightrudder/internal/app/models"
	"github.com/heilo27/rightrudder/internal/pkg/apperrors"
)

// PostgresTemplateRepository handles database operations for templates and
// their items.
type PostgresTemplateRepository struct {
	db *pgxpool.Pool
}

// NewTemplateRepository creates a new template repository
func NewTemplateRepository(db *pgxpool.Pool) *PostgresTemplateRepository {
	return &PostgresTemplateRepository{
		db: db,
	}
}

// Create inserts a template together with its items
func (r *PostgresTemplateRepository) Create(ctx context.Context, template *models.Template) error {
	tx, err := r.db.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	_, err = tx.Exec(ctx, `
		INSERT INTO templates (
			id, name, category, phase, template_identifier, content_hash,
			is_user_created, is_user_modified, created_at, last_modified
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
	`,
		template.ID, template.Name, template.Category, template.Phase,
		template.TemplateIdentifier, template.ContentHash,
		template.IsUserCreated, template.IsUserModified,
		template.CreatedAt, template.LastModified,
	)
	if err != nil {
		return fmt.Errorf("error creating template: %w", err)
	}

	for i := range template.Items {
		item := &template.Items[i]
		item.TemplateID = template.ID
		_, err = tx.Exec(ctx, `
			INSERT INTO template_items (id, template_id, title, notes, display_order)
			VALUES ($1, $2, $3, $4, $5)
		`, item.ID, item.TemplateID, item.Title, item.Notes, item.DisplayOrder)
		if err != nil {
			return fmt.Errorf("error creating template item: %w", err)
		}
	}

	return tx.Commit(ctx)
}

// GetByID retrieves a template with its items
func (r *PostgresTemplateRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.Template, error) {
	return r.getOne(ctx, `WHERE id = $1`, id)
}

// GetByIdentifier retrieves a built-in template by its stable identifier
func (r *PostgresTemplateRepository) GetByIdentifier(ctx context.Context, identifier string) (*models.Template, error) {
	return r.getOne(ctx, `WHERE template_identifier = $1`, identifier)
}

func (r *PostgresTemplateRepository) getOne(ctx context.Context, where string, arg interface{}) (*models.Template, error) {
	query := `
		SELECT id, name, category, phase, template_identifier, content_hash,
			is_user_created, is_user_modified, created_at, last_modified
		FROM templates ` + where

	var template models.Template
	err := r.db.QueryRow(ctx, query, arg).Scan(
		&template.ID,
		&template.Name,
		&template.Category,
		&template.Phase,
		&template.TemplateIdentifier,
		&template.ContentHash,
		&template.IsUserCreated,
		&template.IsUserModified,
		&template.CreatedAt,
		&template.LastModified,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.ErrTemplateNotFound
		}
		return nil, fmt.Errorf("error retrieving template: %w", err)
	}

	items, err := r.loadItems(ctx, template.ID)
	if err != nil {
		return nil, err
	}
	template.Items = items

	return &template, nil
}

func (r *PostgresTemplateRepository) loadItems(ctx context.Context, templateID uuid.UUID) ([]models.TemplateItem, error) {
	rows, err := r.db.Query(ctx, `
		SELECT id, template_id, title, notes, display_order
		FROM template_items
		WHERE template_id = $1
		ORDER BY display_order
	`, templateID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var items []models.TemplateItem
	for rows.Next() {
		var item models.TemplateItem
		if err := rows.Scan(&item.ID, &item.TemplateID, &item.Title, &item.Notes, &item.DisplayOrder); err != nil {
			return nil, err
		}
		items = append(items, item)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return items, nil
}

// GetAll retrieves every template with its items
func (r *PostgresTemplateRepository) GetAll(ctx context.Context) ([]*models.Template, error) {
	rows, err := r.db.Query(ctx, `
		SELECT id, name, category, phase, template_identifier, content_hash,
			is_user_created, is_user_modified, created_at, last_modified
		FROM templates
		ORDER BY category, name
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var templates []*models.Template
	for rows.Next() {
		var template models.Template
		if err := rows.Scan(
			&template.ID,
			&template.Name,
			&template.Category,
			&template.Phase,
			&template.TemplateIdentifier,
			&template.ContentHash,
			&template.IsUserCreated,
			&template.IsUserModified,
			&template.CreatedAt,
			&template.LastModified,
		); err != nil {
			return nil, err
		}
		templates = append(templates, &template)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	for _, template := range templates {
		items, err := r.loadItems(ctx, template.ID)
		if err != nil {
			return nil, err
		}
		template.Items = items
	}

	return templates, nil
}

// Update updates template metadata (not its items)
func (r *PostgresTemplateRepository) Update(ctx context.Context, template *models.Template) error {
	cmdTag, err := r.db.Exec(ctx, `
		UPDATE templates
		SET name = $1, category = $2, phase = $3, content_hash = $4,
			is_user_modified = $5, last_modified = $6
		WHERE id = $7
	`,
		template.Name, template.Category, template.Phase, template.ContentHash,
		template.IsUserModified, template.LastModified, template.ID,
	)
	if err != nil {
		return fmt.Errorf("error updating template: %w", err)
	}

	if cmdTag.RowsAffected() == 0 {
		return apperrors.ErrTemplateNotFound
	}

	return nil
}

// Delete deletes a template; its items cascade via foreign key
func (r *PostgresTemplateRepository) Delete(ctx context.Context, id uuid.UUID) error {
	cmdTag, err := r.db.Exec(ctx, `DELETE FROM templates WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("error deleting template: %w", err)
	}

	if cmdTag.RowsAffected() == 0 {
		return apperrors.ErrTemplateNotFound
	}

	return nil
}

// AddItem inserts one template item
func (r *PostgresTemplateRepository) AddItem(ctx context.Context, item *models.TemplateItem) error {
	_, err := r.db.Exec(ctx, `
		INSERT INTO template_items (id, template_id, title, notes, display_order)
		VALUES ($1, $2, $3, $4, $5)
	`, item.ID, item.TemplateID, item.Title, item.Notes, item.DisplayOrder)
	if err != nil {
		return fmt.Errorf("error adding template item: %w", err)
	}

	return nil
}

// UpdateItem updates one template item
func (r *PostgresTemplateRepository) UpdateItem(ctx context.Context, item *models.TemplateItem) error {
	cmdTag, err := r.db.Exec(ctx, `
		UPDATE template_items
		SET title = $1, notes = $2, display_order = $3
		WHERE id = $4
	`, item.Title, item.Notes, item.DisplayOrder, item.ID)
	if err != nil {
		return fmt.Errorf("error updating template item: %w", err)
	}

	if cmdTag.RowsAffected() == 0 {
		return apperrors.ErrTemplateNotFound
	}

	return nil
}

// DeleteItem deletes one template item
func (r *PostgresTemplateRepository) DeleteItem(ctx context.Context, itemID uuid.UUID) error {
	cmdTag, err := r.db.Exec(ctx, `DELETE FROM template_items WHERE id = $1`, itemID)
	if err != nil {
		return fmt.Errorf("error deleting template item: %w", err)
	}

	if cmdTag.RowsAffected() == 0 {
		return apperrors.ErrTemplateNotFound
	}

	return nil
}
