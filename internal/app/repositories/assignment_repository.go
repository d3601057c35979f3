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
	"github.com/heilo27/rightrudder/internal/pkg/dberrors"
)

// PostgresAssignmentRepository handles database operations for assignments
// and their item progress rows.
type PostgresAssignmentRepository struct {
	db *pgxpool.Pool
}

// NewAssignmentRepository creates a new assignment repository
func NewAssignmentRepository(db *pgxpool.Pool) *PostgresAssignmentRepository {
	return &PostgresAssignmentRepository{
		db: db,
	}
}

// Create inserts an assignment together with its initial progress rows
func (r *PostgresAssignmentRepository) Create(ctx context.Context, assignment *models.Assignment) error {
	tx, err := r.db.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	_, err = tx.Exec(ctx, `
		INSERT INTO assignments (
			id, student_id, template_id, template_identifier,
			is_custom_checklist, instructor_comments, dual_given_hours,
			created_at, last_modified
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`,
		assignment.ID, assignment.StudentID, assignment.TemplateID,
		assignment.TemplateIdentifier, assignment.IsCustomChecklist,
		assignment.InstructorComments, assignment.DualGivenHours,
		assignment.CreatedAt, assignment.LastModified,
	)
	if err != nil {
		if dberrors.IsConstraintViolation(err, "uq_assignments_student_template") {
			return apperrors.ErrAssignmentExists
		}
		return fmt.Errorf("error creating assignment: %w", err)
	}

	for i := range assignment.ItemProgress {
		progress := &assignment.ItemProgress[i]
		progress.AssignmentID = assignment.ID
		_, err = tx.Exec(ctx, `
			INSERT INTO item_progress (
				id, assignment_id, template_item_id, is_complete, notes,
				completed_at, last_modified
			)
			VALUES ($1, $2, $3, $4, $5, $6, $7)
		`,
			progress.ID, progress.AssignmentID, progress.TemplateItemID,
			progress.IsComplete, progress.Notes, progress.CompletedAt,
			progress.LastModified,
		)
		if err != nil {
			return fmt.Errorf("error creating item progress: %w", err)
		}
	}

	return tx.Commit(ctx)
}

const assignmentColumns = `
	id, student_id, template_id, template_identifier, is_custom_checklist,
	instructor_comments, dual_given_hours, created_at, last_modified
`

func scanAssignment(row pgx.Row) (*models.Assignment, error) {
	var assignment models.Assignment
	err := row.Scan(
		&assignment.ID,
		&assignment.StudentID,
		&assignment.TemplateID,
		&assignment.TemplateIdentifier,
		&assignment.IsCustomChecklist,
		&assignment.InstructorComments,
		&assignment.DualGivenHours,
		&assignment.CreatedAt,
		&assignment.LastModified,
	)
	if err != nil {
		return nil, err
	}
	return &assignment, nil
}

// GetByID retrieves an assignment with its progress rows
func (r *PostgresAssignmentRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.Assignment, error) {
	assignment, err := scanAssignment(r.db.QueryRow(ctx,
		`SELECT `+assignmentColumns+` FROM assignments WHERE id = $1`, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.ErrAssignmentNotFound
		}
		return nil, fmt.Errorf("error retrieving assignment: %w", err)
	}

	if err := r.loadProgress(ctx, assignment); err != nil {
		return nil, err
	}

	return assignment, nil
}

// GetByStudentAndTemplate retrieves the single assignment for a
// (student, template) pair
func (r *PostgresAssignmentRepository) GetByStudentAndTemplate(ctx context.Context, studentID, templateID uuid.UUID) (*models.Assignment, error) {
	assignment, err := scanAssignment(r.db.QueryRow(ctx,
		`SELECT `+assignmentColumns+` FROM assignments WHERE student_id = $1 AND template_id = $2`,
		studentID, templateID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.ErrAssignmentNotFound
		}
		return nil, fmt.Errorf("error retrieving assignment: %w", err)
	}

	if err := r.loadProgress(ctx, assignment); err != nil {
		return nil, err
	}

	return assignment, nil
}

func (r *PostgresAssignmentRepository) loadProgress(ctx context.Context, assignment *models.Assignment) error {
	rows, err := r.db.Query(ctx, `
		SELECT id, assignment_id, template_item_id, is_complete, notes,
			completed_at, last_modified
		FROM item_progress
		WHERE assignment_id = $1
	`, assignment.ID)
	if err != nil {
		return err
	}
	defer rows.Close()

	var progressRows []models.ItemProgress
	for rows.Next() {
		var progress models.ItemProgress
		if err := rows.Scan(
			&progress.ID,
			&progress.AssignmentID,
			&progress.TemplateItemID,
			&progress.IsComplete,
			&progress.Notes,
			&progress.CompletedAt,
			&progress.LastModified,
		); err != nil {
			return err
		}
		progressRows = append(progressRows, progress)
	}

	if err := rows.Err(); err != nil {
		return err
	}

	assignment.ItemProgress = progressRows
	return nil
}

func (r *PostgresAssignmentRepository) list(ctx context.Context, where string, args ...interface{}) ([]*models.Assignment, error) {
	rows, err := r.db.Query(ctx, `SELECT `+assignmentColumns+` FROM assignments `+where, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var assignments []*models.Assignment
	for rows.Next() {
		assignment, err := scanAssignment(rows)
		if err != nil {
			return nil, err
		}
		assignments = append(assignments, assignment)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	for _, assignment := range assignments {
		if err := r.loadProgress(ctx, assignment); err != nil {
			return nil, err
		}
	}

	return assignments, nil
}

// ListByStudent retrieves every assignment for a student
func (r *PostgresAssignmentRepository) ListByStudent(ctx context.Context, studentID uuid.UUID) ([]*models.Assignment, error) {
	return r.list(ctx, `WHERE student_id = $1 ORDER BY created_at`, studentID)
}

// ListAll retrieves every assignment
func (r *PostgresAssignmentRepository) ListAll(ctx context.Context) ([]*models.Assignment, error) {
	return r.list(ctx, `ORDER BY created_at`)
}

// Update updates assignment metadata (not its progress rows)
func (r *PostgresAssignmentRepository) Update(ctx context.Context, assignment *models.Assignment) error {
	cmdTag, err := r.db.Exec(ctx, `
		UPDATE assignments
		SET instructor_comments = $1, dual_given_hours = $2, last_modified = $3
		WHERE id = $4
	`,
		assignment.InstructorComments, assignment.DualGivenHours,
		assignment.LastModified, assignment.ID,
	)
	if err != nil {
		return fmt.Errorf("error updating assignment: %w", err)
	}

	if cmdTag.RowsAffected() == 0 {
		return apperrors.ErrAssignmentNotFound
	}

	return nil
}

// Delete deletes an assignment; progress rows cascade via foreign key
func (r *PostgresAssignmentRepository) Delete(ctx context.Context, id uuid.UUID) error {
	cmdTag, err := r.db.Exec(ctx, `DELETE FROM assignments WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("error deleting assignment: %w", err)
	}

	if cmdTag.RowsAffected() == 0 {
		return apperrors.ErrAssignmentNotFound
	}

	return nil
}

// AddProgress inserts one item progress row
func (r *PostgresAssignmentRepository) AddProgress(ctx context.Context, progress *models.ItemProgress) error {
	_, err := r.db.Exec(ctx, `
		INSERT INTO item_progress (
			id, assignment_id, template_item_id, is_complete, notes,
			completed_at, last_modified
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`,
		progress.ID, progress.AssignmentID, progress.TemplateItemID,
		progress.IsComplete, progress.Notes, progress.CompletedAt,
		progress.LastModified,
	)
	if err != nil {
		return fmt.Errorf("error adding item progress: %w", err)
	}

	return nil
}

// UpdateProgress updates one item progress row
func (r *PostgresAssignmentRepository) UpdateProgress(ctx context.Context, progress *models.ItemProgress) error {
	cmdTag, err := r.db.Exec(ctx, `
		UPDATE item_progress
		SET is_complete = $1, notes = $2, completed_at = $3, last_modified = $4
		WHERE id = $5
	`,
		progress.IsComplete, progress.Notes, progress.CompletedAt,
		progress.LastModified, progress.ID,
	)
	if err != nil {
		return fmt.Errorf("error updating item progress: %w", err)
	}

	if cmdTag.RowsAffected() == 0 {
		return apperrors.ErrProgressNotFound
	}

	return nil
}

// DeleteProgress deletes one item progress row
func (r *PostgresAssignmentRepository) DeleteProgress(ctx context.Context, progressID uuid.UUID) error {
	cmdTag, err := r.db.Exec(ctx, `DELETE FROM item_progress WHERE id = $1`, progressID)
	if err != nil {
		return fmt.Errorf("error deleting item progress: %w", err)
	}

	if cmdTag.RowsAffected() == 0 {
		return apperrors.ErrProgressNotFound
	}

	return nil
}
