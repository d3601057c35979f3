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

// PostgresInstructorRepository handles the instructor account row
type PostgresInstructorRepository struct {
	db *pgxpool.Pool
}

// NewInstructorRepository creates a new instructor repository
func NewInstructorRepository(db *pgxpool.Pool) *PostgresInstructorRepository {
	return &PostgresInstructorRepository{
		db: db,
	}
}

// Create inserts a new instructor account
func (r *PostgresInstructorRepository) Create(ctx context.Context, instructor *models.Instructor) error {
	var exists bool
	err := r.db.QueryRow(ctx,
		`SELECT EXISTS(SELECT 1 FROM instructors WHERE email = $1)`,
		instructor.Email).Scan(&exists)
	if err != nil {
		return fmt.Errorf("error checking instructor existence: %w", err)
	}
	if exists {
		return apperrors.ErrEmailAlreadyExists
	}

	_, err = r.db.Exec(ctx, `
		INSERT INTO instructors (id, email, password_hash, full_name, certificate_number, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)
	`,
		instructor.ID, instructor.Email, instructor.PasswordHash,
		instructor.FullName, instructor.CertificateNumber, instructor.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("error creating instructor: %w", err)
	}

	return nil
}

func (r *PostgresInstructorRepository) getOne(ctx context.Context, where string, arg interface{}) (*models.Instructor, error) {
	var instructor models.Instructor
	err := r.db.QueryRow(ctx, `
		SELECT id, email, password_hash, full_name, certificate_number, created_at
		FROM instructors `+where, arg).Scan(
		&instructor.ID,
		&instructor.Email,
		&instructor.PasswordHash,
		&instructor.FullName,
		&instructor.CertificateNumber,
		&instructor.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.ErrInstructorNotFound
		}
		return nil, fmt.Errorf("error retrieving instructor: %w", err)
	}

	return &instructor, nil
}

// GetByID retrieves an instructor by id
func (r *PostgresInstructorRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.Instructor, error) {
	return r.getOne(ctx, `WHERE id = $1`, id)
}

// GetByEmail retrieves an instructor by email
func (r *PostgresInstructorRepository) GetByEmail(ctx context.Context, email string) (*models.Instructor, error) {
	return r.getOne(ctx, `WHERE email = $1`, email)
}
