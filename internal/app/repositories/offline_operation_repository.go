package repositories

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/heilo27/rightrudder/internal/app/models"
	"github.com/heilo27/rightrudder/internal/pkg/apperrors"
)

// PostgresOfflineOperationRepository handles the offline operation log
type PostgresOfflineOperationRepository struct {
	db *pgxpool.Pool
}

// NewOfflineOperationRepository creates a new offline operation repository
func NewOfflineOperationRepository(db *pgxpool.Pool) *PostgresOfflineOperationRepository {
	return &PostgresOfflineOperationRepository{
		db: db,
	}
}

const operationColumns = `
	id, operation_type, student_id, checklist_id, item_id, operation_data,
	retry_count, max_retries, is_completed, created_at, completed_at,
	last_attempted_at
`

func scanOperation(row pgx.Row) (*models.OfflineOperation, error) {
	var op models.OfflineOperation
	err := row.Scan(
		&op.ID,
		&op.OperationType,
		&op.StudentID,
		&op.ChecklistID,
		&op.ItemID,
		&op.OperationData,
		&op.RetryCount,
		&op.MaxRetries,
		&op.IsCompleted,
		&op.CreatedAt,
		&op.CompletedAt,
		&op.LastAttemptedAt,
	)
	if err != nil {
		return nil, err
	}
	return &op, nil
}

// Create appends an operation to the log
func (r *PostgresOfflineOperationRepository) Create(ctx context.Context, op *models.OfflineOperation) error {
	_, err := r.db.Exec(ctx, `
		INSERT INTO offline_operations (
			id, operation_type, student_id, checklist_id, item_id,
			operation_data, retry_count, max_retries, is_completed,
			created_at, completed_at, last_attempted_at
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
	`,
		op.ID, op.OperationType, op.StudentID, op.ChecklistID, op.ItemID,
		op.OperationData, op.RetryCount, op.MaxRetries, op.IsCompleted,
		op.CreatedAt, op.CompletedAt, op.LastAttemptedAt,
	)
	if err != nil {
		return fmt.Errorf("error creating offline operation: %w", err)
	}

	return nil
}

// GetByID retrieves one operation
func (r *PostgresOfflineOperationRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.OfflineOperation, error) {
	op, err := scanOperation(r.db.QueryRow(ctx,
		`SELECT `+operationColumns+` FROM offline_operations WHERE id = $1`, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.ErrOperationNotFound
		}
		return nil, fmt.Errorf("error retrieving offline operation: %w", err)
	}

	return op, nil
}

func (r *PostgresOfflineOperationRepository) listWhere(ctx context.Context, where string) ([]*models.OfflineOperation, error) {
	rows, err := r.db.Query(ctx,
		`SELECT `+operationColumns+` FROM offline_operations `+where+` ORDER BY created_at`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var operations []*models.OfflineOperation
	for rows.Next() {
		op, err := scanOperation(rows)
		if err != nil {
			return nil, err
		}
		operations = append(operations, op)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return operations, nil
}

// ListPending returns retryable operations in creation order (FIFO replay)
func (r *PostgresOfflineOperationRepository) ListPending(ctx context.Context) ([]*models.OfflineOperation, error) {
	return r.listWhere(ctx, `WHERE NOT is_completed AND retry_count < max_retries`)
}

// ListDeadLettered returns operations that exhausted their retry budget
func (r *PostgresOfflineOperationRepository) ListDeadLettered(ctx context.Context) ([]*models.OfflineOperation, error) {
	return r.listWhere(ctx, `WHERE NOT is_completed AND retry_count >= max_retries`)
}

// CountPending returns the pending operations gauge
func (r *PostgresOfflineOperationRepository) CountPending(ctx context.Context) (int, error) {
	var count int
	err := r.db.QueryRow(ctx,
		`SELECT COUNT(*) FROM offline_operations WHERE NOT is_completed AND retry_count < max_retries`,
	).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("error counting pending operations: %w", err)
	}

	return count, nil
}

// MarkCompleted marks an operation done and records when. Idempotent: marking
// an already completed operation keeps its original completion time.
func (r *PostgresOfflineOperationRepository) MarkCompleted(ctx context.Context, id uuid.UUID, completedAt time.Time) error {
	cmdTag, err := r.db.Exec(ctx, `
		UPDATE offline_operations
		SET is_completed = TRUE, completed_at = COALESCE(completed_at, $1)
		WHERE id = $2
	`, completedAt, id)
	if err != nil {
		return fmt.Errorf("error completing offline operation: %w", err)
	}

	if cmdTag.RowsAffected() == 0 {
		return apperrors.ErrOperationNotFound
	}

	return nil
}

// IncrementRetry bumps the retry count after a failed attempt
func (r *PostgresOfflineOperationRepository) IncrementRetry(ctx context.Context, id uuid.UUID, attemptedAt time.Time) error {
	cmdTag, err := r.db.Exec(ctx, `
		UPDATE offline_operations
		SET retry_count = retry_count + 1, last_attempted_at = $1
		WHERE id = $2
	`, attemptedAt, id)
	if err != nil {
		return fmt.Errorf("error incrementing retry count: %w", err)
	}

	if cmdTag.RowsAffected() == 0 {
		return apperrors.ErrOperationNotFound
	}

	return nil
}

// ResetRetries returns a dead-lettered operation to the replayable set
func (r *PostgresOfflineOperationRepository) ResetRetries(ctx context.Context, id uuid.UUID) error {
	cmdTag, err := r.db.Exec(ctx,
		`UPDATE offline_operations SET retry_count = 0 WHERE id = $1 AND NOT is_completed`, id)
	if err != nil {
		return fmt.Errorf("error resetting retry count: %w", err)
	}

	if cmdTag.RowsAffected() == 0 {
		return apperrors.ErrOperationNotFound
	}

	return nil
}

// Delete removes one operation from the log
func (r *PostgresOfflineOperationRepository) Delete(ctx context.Context, id uuid.UUID) error {
	cmdTag, err := r.db.Exec(ctx, `DELETE FROM offline_operations WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("error deleting offline operation: %w", err)
	}

	if cmdTag.RowsAffected() == 0 {
		return apperrors.ErrOperationNotFound
	}

	return nil
}

// DeleteCompletedBefore garbage-collects operations that completed before the
// cutoff and returns how many were removed
func (r *PostgresOfflineOperationRepository) DeleteCompletedBefore(ctx context.Context, cutoff time.Time) (int, error) {
	cmdTag, err := r.db.Exec(ctx,
		`DELETE FROM offline_operations WHERE is_completed AND completed_at < $1`, cutoff)
	if err != nil {
		return 0, fmt.Errorf("error garbage collecting offline operations: %w", err)
	}

	return int(cmdTag.RowsAffected()), nil
}
