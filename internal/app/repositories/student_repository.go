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

// PostgresStudentRepository handles database operations for students
type PostgresStudentRepository struct {
	db *pgxpool.Pool
}

// NewStudentRepository creates a new student repository
func NewStudentRepository(db *pgxpool.Pool) *PostgresStudentRepository {
	return &PostgresStudentRepository{
		db: db,
	}
}

const studentColumns = `
	id, first_name, last_name, email, phone, home_airport, aircraft_type,
	instructor_notes, milestone_solo_complete, milestone_written_passed,
	milestone_checkride_passed, remote_record_id, share_record_id,
	created_at, last_modified
`

func scanStudent(row pgx.Row) (*models.Student, error) {
	var student models.Student
	err := row.Scan(
		&student.ID,
		&student.FirstName,
		&student.LastName,
		&student.Email,
		&student.Phone,
		&student.HomeAirport,
		&student.AircraftType,
		&student.InstructorNotes,
		&student.MilestoneSoloComplete,
		&student.MilestoneWrittenPassed,
		&student.MilestoneCheckridePassed,
		&student.RemoteRecordID,
		&student.ShareRecordID,
		&student.CreatedAt,
		&student.LastModified,
	)
	if err != nil {
		return nil, err
	}
	return &student, nil
}

// Create inserts a new student
func (r *PostgresStudentRepository) Create(ctx context.Context, student *models.Student) error {
	query := `
		INSERT INTO students (
			id, first_name, last_name, email, phone, home_airport, aircraft_type,
			instructor_notes, milestone_solo_complete, milestone_written_passed,
			milestone_checkride_passed, remote_record_id, share_record_id,
			created_at, last_modified
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15)
	`

	_, err := r.db.Exec(ctx, query,
		student.ID, student.FirstName, student.LastName, student.Email,
		student.Phone, student.HomeAirport, student.AircraftType,
		student.InstructorNotes, student.MilestoneSoloComplete,
		student.MilestoneWrittenPassed, student.MilestoneCheckridePassed,
		student.RemoteRecordID, student.ShareRecordID,
		student.CreatedAt, student.LastModified,
	)
	if err != nil {
		return fmt.Errorf("error creating student: %w", err)
	}

	return nil
}

// GetByID retrieves a student by ID
func (r *PostgresStudentRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.Student, error) {
	query := `SELECT ` + studentColumns + ` FROM students WHERE id = $1`

	student, err := scanStudent(r.db.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.ErrStudentNotFound
		}
		return nil, fmt.Errorf("error retrieving student: %w", err)
	}

	return student, nil
}

// GetAll retrieves all students ordered by name
func (r *PostgresStudentRepository) GetAll(ctx context.Context) ([]*models.Student, error) {
	query := `SELECT ` + studentColumns + ` FROM students ORDER BY last_name, first_name`

	rows, err := r.db.Query(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var students []*models.Student
	for rows.Next() {
		student, err := scanStudent(rows)
		if err != nil {
			return nil, err
		}
		students = append(students, student)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return students, nil
}

// Update updates an existing student
func (r *PostgresStudentRepository) Update(ctx context.Context, student *models.Student) error {
	query := `
		UPDATE students
		SET first_name = $1, last_name = $2, email = $3, phone = $4,
			home_airport = $5, aircraft_type = $6, instructor_notes = $7,
			milestone_solo_complete = $8, milestone_written_passed = $9,
			milestone_checkride_passed = $10, last_modified = $11
		WHERE id = $12
	`

	cmdTag, err := r.db.Exec(ctx, query,
		student.FirstName, student.LastName, student.Email, student.Phone,
		student.HomeAirport, student.AircraftType, student.InstructorNotes,
		student.MilestoneSoloComplete, student.MilestoneWrittenPassed,
		student.MilestoneCheckridePassed, student.LastModified, student.ID,
	)
	if err != nil {
		return fmt.Errorf("error updating student: %w", err)
	}

	if cmdTag.RowsAffected() == 0 {
		return apperrors.ErrStudentNotFound
	}

	return nil
}

// Delete deletes a student. Assignments, progress rows, documents and
// endorsements cascade via foreign keys.
func (r *PostgresStudentRepository) Delete(ctx context.Context, id uuid.UUID) error {
	cmdTag, err := r.db.Exec(ctx, `DELETE FROM students WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("error deleting student: %w", err)
	}

	if cmdTag.RowsAffected() == 0 {
		return apperrors.ErrStudentNotFound
	}

	return nil
}

// SetShareInfo records the remote record and share identifiers for a student
func (r *PostgresStudentRepository) SetShareInfo(ctx context.Context, id uuid.UUID, remoteRecordID, shareRecordID *string) error {
	cmdTag, err := r.db.Exec(ctx,
		`UPDATE students SET remote_record_id = $1, share_record_id = $2 WHERE id = $3`,
		remoteRecordID, shareRecordID, id,
	)
	if err != nil {
		return fmt.Errorf("error updating student share info: %w", err)
	}

	if cmdTag.RowsAffected() == 0 {
		return apperrors.ErrStudentNotFound
	}

	return nil
}
