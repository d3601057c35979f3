// Package repositories contains the local persistent store access layer.
// Interfaces are defined here and satisfied by the Postgres implementations
// in this package and by the in-memory implementations under memory/ used in
// tests. All mutating calls are expected to be funnelled through the save
// queue by the service layer; the repositories themselves do no locking.
package repositories

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/heilo27/rightrudder/internal/app/models"
)

// StudentRepository handles student aggregate rows.
type StudentRepository interface {
	Create(ctx context.Context, student *models.Student) error
	GetByID(ctx context.Context, id uuid.UUID) (*models.Student, error)
	GetAll(ctx context.Context) ([]*models.Student, error)
	Update(ctx context.Context, student *models.Student) error
	Delete(ctx context.Context, id uuid.UUID) error
	SetShareInfo(ctx context.Context, id uuid.UUID, remoteRecordID, shareRecordID *string) error
}

// TemplateRepository handles the template catalog and its items.
type TemplateRepository interface {
	Create(ctx context.Context, template *models.Template) error
	GetByID(ctx context.Context, id uuid.UUID) (*models.Template, error)
	GetByIdentifier(ctx context.Context, identifier string) (*models.Template, error)
	GetAll(ctx context.Context) ([]*models.Template, error)
	Update(ctx context.Context, template *models.Template) error
	Delete(ctx context.Context, id uuid.UUID) error
	AddItem(ctx context.Context, item *models.TemplateItem) error
	UpdateItem(ctx context.Context, item *models.TemplateItem) error
	DeleteItem(ctx context.Context, itemID uuid.UUID) error
}

// AssignmentRepository handles assignments and their item progress rows.
type AssignmentRepository interface {
	Create(ctx context.Context, assignment *models.Assignment) error
	GetByID(ctx context.Context, id uuid.UUID) (*models.Assignment, error)
	GetByStudentAndTemplate(ctx context.Context, studentID, templateID uuid.UUID) (*models.Assignment, error)
	ListByStudent(ctx context.Context, studentID uuid.UUID) ([]*models.Assignment, error)
	ListAll(ctx context.Context) ([]*models.Assignment, error)
	Update(ctx context.Context, assignment *models.Assignment) error
	Delete(ctx context.Context, id uuid.UUID) error
	AddProgress(ctx context.Context, progress *models.ItemProgress) error
	UpdateProgress(ctx context.Context, progress *models.ItemProgress) error
	DeleteProgress(ctx context.Context, progressID uuid.UUID) error
}

// OfflineOperationRepository handles the durable offline operation log.
type OfflineOperationRepository interface {
	Create(ctx context.Context, op *models.OfflineOperation) error
	GetByID(ctx context.Context, id uuid.UUID) (*models.OfflineOperation, error)
	ListPending(ctx context.Context) ([]*models.OfflineOperation, error)
	ListDeadLettered(ctx context.Context) ([]*models.OfflineOperation, error)
	CountPending(ctx context.Context) (int, error)
	MarkCompleted(ctx context.Context, id uuid.UUID, completedAt time.Time) error
	IncrementRetry(ctx context.Context, id uuid.UUID, attemptedAt time.Time) error
	ResetRetries(ctx context.Context, id uuid.UUID) error
	Delete(ctx context.Context, id uuid.UUID) error
	DeleteCompletedBefore(ctx context.Context, cutoff time.Time) (int, error)
}

// InstructorRepository handles the instructor account.
type InstructorRepository interface {
	Create(ctx context.Context, instructor *models.Instructor) error
	GetByID(ctx context.Context, id uuid.UUID) (*models.Instructor, error)
	GetByEmail(ctx context.Context, email string) (*models.Instructor, error)
}

// Repositories bundles all repository implementations for injection.
type Repositories struct {
	Students    StudentRepository
	Templates   TemplateRepository
	Assignments AssignmentRepository
	OfflineOps  OfflineOperationRepository
	Instructors InstructorRepository
}

// NewRepositories creates the Postgres-backed repository set.
func NewRepositories(db *pgxpool.Pool) *Repositories {
	return &Repositories{
		Students:    NewStudentRepository(db),
		Templates:   NewTemplateRepository(db),
		Assignments: NewAssignmentRepository(db),
		OfflineOps:  NewOfflineOperationRepository(db),
		Instructors: NewInstructorRepository(db),
	}
}
