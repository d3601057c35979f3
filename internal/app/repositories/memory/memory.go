// Package memory provides an in-memory implementation of the repository
// interfaces: flat tables keyed by UUID with the same cascade-delete
// semantics the Postgres schema declares. It backs the test suites and any
// fully offline run.
package memory

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/heilo27/rightrudder/internal/app/models"
	"github.com/heilo27/rightrudder/internal/app/repositories"
	"github.com/heilo27/rightrudder/internal/pkg/apperrors"
)

// store holds every table behind one lock. Writes are serialized by the save
// queue above this layer; the lock only protects reads racing writes.
type store struct {
	mu          sync.RWMutex
	students    map[uuid.UUID]models.Student
	templates   map[uuid.UUID]models.Template
	items       map[uuid.UUID]models.TemplateItem
	assignments map[uuid.UUID]models.Assignment
	progress    map[uuid.UUID]models.ItemProgress
	operations  map[uuid.UUID]models.OfflineOperation
	instructors map[uuid.UUID]models.Instructor
}

// NewRepositories creates a repository set backed by one shared in-memory
// store.
func NewRepositories() *repositories.Repositories {
	s := &store{
		students:    make(map[uuid.UUID]models.Student),
		templates:   make(map[uuid.UUID]models.Template),
		items:       make(map[uuid.UUID]models.TemplateItem),
		assignments: make(map[uuid.UUID]models.Assignment),
		progress:    make(map[uuid.UUID]models.ItemProgress),
		operations:  make(map[uuid.UUID]models.OfflineOperation),
		instructors: make(map[uuid.UUID]models.Instructor),
	}
	return &repositories.Repositories{
		Students:    &studentTable{s},
		Templates:   &templateTable{s},
		Assignments: &assignmentTable{s},
		OfflineOps:  &operationTable{s},
		Instructors: &instructorTable{s},
	}
}

// --- students ---

type studentTable struct{ *store }

func (t *studentTable) Create(_ context.Context, student *models.Student) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.students[student.ID] = *student
	return nil
}

func (t *studentTable) GetByID(_ context.Context, id uuid.UUID) (*models.Student, error) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	student, ok := t.students[id]
	if !ok {
		return nil, apperrors.ErrStudentNotFound
	}
	copy := student
	return &copy, nil
}

func (t *studentTable) GetAll(_ context.Context) ([]*models.Student, error) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	students := make([]*models.Student, 0, len(t.students))
	for id := range t.students {
		student := t.students[id]
		students = append(students, &student)
	}
	sort.Slice(students, func(i, j int) bool {
		if students[i].LastName != students[j].LastName {
			return students[i].LastName < students[j].LastName
		}
		return students[i].FirstName < students[j].FirstName
	})
	return students, nil
}

func (t *studentTable) Update(_ context.Context, student *models.Student) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	existing, ok := t.students[student.ID]
	if !ok {
		return apperrors.ErrStudentNotFound
	}
	updated := *student
	// Share info has its own mutation path.
	updated.RemoteRecordID = existing.RemoteRecordID
	updated.ShareRecordID = existing.ShareRecordID
	t.students[student.ID] = updated
	return nil
}

func (t *studentTable) Delete(_ context.Context, id uuid.UUID) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if _, ok := t.students[id]; !ok {
		return apperrors.ErrStudentNotFound
	}
	delete(t.students, id)
	// Cascade: assignments and their progress rows.
	for assignmentID, assignment := range t.assignments {
		if assignment.StudentID != id {
			continue
		}
		for progressID, progress := range t.progress {
			if progress.AssignmentID == assignmentID {
				delete(t.progress, progressID)
			}
		}
		delete(t.assignments, assignmentID)
	}
	return nil
}

func (t *studentTable) SetShareInfo(_ context.Context, id uuid.UUID, remoteRecordID, shareRecordID *string) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	student, ok := t.students[id]
	if !ok {
		return apperrors.ErrStudentNotFound
	}
	student.RemoteRecordID = remoteRecordID
	student.ShareRecordID = shareRecordID
	t.students[id] = student
	return nil
}

// --- templates ---

type templateTable struct{ *store }

func (t *templateTable) Create(_ context.Context, template *models.Template) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	stored := *template
	stored.Items = nil
	t.templates[template.ID] = stored
	for i := range template.Items {
		item := template.Items[i]
		item.TemplateID = template.ID
		t.items[item.ID] = item
	}
	return nil
}

func (t *templateTable) withItems(template models.Template) *models.Template {
	var items []models.TemplateItem
	for _, item := range t.items {
		if item.TemplateID == template.ID {
			items = append(items, item)
		}
	}
	sort.Slice(items, func(i, j int) bool {
		return items[i].DisplayOrder < items[j].DisplayOrder
	})
	template.Items = items
	return &template
}

func (t *templateTable) GetByID(_ context.Context, id uuid.UUID) (*models.Template, error) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	template, ok := t.templates[id]
	if !ok {
		return nil, apperrors.ErrTemplateNotFound
	}
	return t.withItems(template), nil
}

func (t *templateTable) GetByIdentifier(_ context.Context, identifier string) (*models.Template, error) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	for _, template := range t.templates {
		if template.TemplateIdentifier == identifier {
			return t.withItems(template), nil
		}
	}
	return nil, apperrors.ErrTemplateNotFound
}

func (t *templateTable) GetAll(_ context.Context) ([]*models.Template, error) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	templates := make([]*models.Template, 0, len(t.templates))
	for id := range t.templates {
		templates = append(templates, t.withItems(t.templates[id]))
	}
	sort.Slice(templates, func(i, j int) bool {
		if templates[i].Category != templates[j].Category {
			return templates[i].Category < templates[j].Category
		}
		return strings.ToLower(templates[i].Name) < strings.ToLower(templates[j].Name)
	})
	return templates, nil
}

func (t *templateTable) Update(_ context.Context, template *models.Template) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if _, ok := t.templates[template.ID]; !ok {
		return apperrors.ErrTemplateNotFound
	}
	stored := *template
	stored.Items = nil
	t.templates[template.ID] = stored
	return nil
}

func (t *templateTable) Delete(_ context.Context, id uuid.UUID) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if _, ok := t.templates[id]; !ok {
		return apperrors.ErrTemplateNotFound
	}
	delete(t.templates, id)
	for itemID, item := range t.items {
		if item.TemplateID == id {
			delete(t.items, itemID)
		}
	}
	return nil
}

func (t *templateTable) AddItem(_ context.Context, item *models.TemplateItem) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.items[item.ID] = *item
	return nil
}

func (t *templateTable) UpdateItem(_ context.Context, item *models.TemplateItem) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if _, ok := t.items[item.ID]; !ok {
		return apperrors.ErrTemplateNotFound
	}
	t.items[item.ID] = *item
	return nil
}

func (t *templateTable) DeleteItem(_ context.Context, itemID uuid.UUID) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if _, ok := t.items[itemID]; !ok {
		return apperrors.ErrTemplateNotFound
	}
	delete(t.items, itemID)
	return nil
}

// --- assignments ---

type assignmentTable struct{ *store }

func (t *assignmentTable) Create(_ context.Context, assignment *models.Assignment) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	for _, existing := range t.assignments {
		if existing.StudentID == assignment.StudentID && existing.TemplateID == assignment.TemplateID {
			return apperrors.ErrAssignmentExists
		}
	}
	stored := *assignment
	stored.ItemProgress = nil
	t.assignments[assignment.ID] = stored
	for i := range assignment.ItemProgress {
		progress := assignment.ItemProgress[i]
		progress.AssignmentID = assignment.ID
		t.progress[progress.ID] = progress
	}
	return nil
}

func (t *assignmentTable) withProgress(assignment models.Assignment) *models.Assignment {
	var rows []models.ItemProgress
	for _, progress := range t.progress {
		if progress.AssignmentID == assignment.ID {
			rows = append(rows, progress)
		}
	}
	sort.Slice(rows, func(i, j int) bool {
		return rows[i].ID.String() < rows[j].ID.String()
	})
	assignment.ItemProgress = rows
	return &assignment
}

func (t *assignmentTable) GetByID(_ context.Context, id uuid.UUID) (*models.Assignment, error) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	assignment, ok := t.assignments[id]
	if !ok {
		return nil, apperrors.ErrAssignmentNotFound
	}
	return t.withProgress(assignment), nil
}

func (t *assignmentTable) GetByStudentAndTemplate(_ context.Context, studentID, templateID uuid.UUID) (*models.Assignment, error) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	for _, assignment := range t.assignments {
		if assignment.StudentID == studentID && assignment.TemplateID == templateID {
			return t.withProgress(assignment), nil
		}
	}
	return nil, apperrors.ErrAssignmentNotFound
}

func (t *assignmentTable) list(filter func(models.Assignment) bool) []*models.Assignment {
	var assignments []*models.Assignment
	for id := range t.assignments {
		if filter(t.assignments[id]) {
			assignments = append(assignments, t.withProgress(t.assignments[id]))
		}
	}
	sort.Slice(assignments, func(i, j int) bool {
		return assignments[i].CreatedAt.Before(assignments[j].CreatedAt)
	})
	return assignments
}

func (t *assignmentTable) ListByStudent(_ context.Context, studentID uuid.UUID) ([]*models.Assignment, error) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.list(func(a models.Assignment) bool { return a.StudentID == studentID }), nil
}

func (t *assignmentTable) ListAll(_ context.Context) ([]*models.Assignment, error) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.list(func(models.Assignment) bool { return true }), nil
}

func (t *assignmentTable) Update(_ context.Context, assignment *models.Assignment) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if _, ok := t.assignments[assignment.ID]; !ok {
		return apperrors.ErrAssignmentNotFound
	}
	stored := *assignment
	stored.ItemProgress = nil
	t.assignments[assignment.ID] = stored
	return nil
}

func (t *assignmentTable) Delete(_ context.Context, id uuid.UUID) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if _, ok := t.assignments[id]; !ok {
		return apperrors.ErrAssignmentNotFound
	}
	delete(t.assignments, id)
	for progressID, progress := range t.progress {
		if progress.AssignmentID == id {
			delete(t.progress, progressID)
		}
	}
	return nil
}

func (t *assignmentTable) AddProgress(_ context.Context, progress *models.ItemProgress) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.progress[progress.ID] = *progress
	return nil
}

func (t *assignmentTable) UpdateProgress(_ context.Context, progress *models.ItemProgress) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if _, ok := t.progress[progress.ID]; !ok {
		return apperrors.ErrProgressNotFound
	}
	t.progress[progress.ID] = *progress
	return nil
}

func (t *assignmentTable) DeleteProgress(_ context.Context, progressID uuid.UUID) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if _, ok := t.progress[progressID]; !ok {
		return apperrors.ErrProgressNotFound
	}
	delete(t.progress, progressID)
	return nil
}

// --- offline operations ---

type operationTable struct{ *store }

func (t *operationTable) Create(_ context.Context, op *models.OfflineOperation) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.operations[op.ID] = *op
	return nil
}

func (t *operationTable) GetByID(_ context.Context, id uuid.UUID) (*models.OfflineOperation, error) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	op, ok := t.operations[id]
	if !ok {
		return nil, apperrors.ErrOperationNotFound
	}
	copy := op
	return &copy, nil
}

func (t *operationTable) list(filter func(models.OfflineOperation) bool) []*models.OfflineOperation {
	var operations []*models.OfflineOperation
	for id := range t.operations {
		if filter(t.operations[id]) {
			op := t.operations[id]
			operations = append(operations, &op)
		}
	}
	sort.Slice(operations, func(i, j int) bool {
		return operations[i].CreatedAt.Before(operations[j].CreatedAt)
	})
	return operations
}

func (t *operationTable) ListPending(_ context.Context) ([]*models.OfflineOperation, error) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.list(func(op models.OfflineOperation) bool { return op.CanRetry() }), nil
}

func (t *operationTable) ListDeadLettered(_ context.Context) ([]*models.OfflineOperation, error) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.list(func(op models.OfflineOperation) bool { return op.IsDeadLettered() }), nil
}

func (t *operationTable) CountPending(ctx context.Context) (int, error) {
	pending, err := t.ListPending(ctx)
	if err != nil {
		return 0, err
	}
	return len(pending), nil
}

func (t *operationTable) MarkCompleted(_ context.Context, id uuid.UUID, completedAt time.Time) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	op, ok := t.operations[id]
	if !ok {
		return apperrors.ErrOperationNotFound
	}
	op.IsCompleted = true
	if op.CompletedAt == nil {
		op.CompletedAt = &completedAt
	}
	t.operations[id] = op
	return nil
}

func (t *operationTable) IncrementRetry(_ context.Context, id uuid.UUID, attemptedAt time.Time) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	op, ok := t.operations[id]
	if !ok {
		return apperrors.ErrOperationNotFound
	}
	op.RetryCount++
	op.LastAttemptedAt = &attemptedAt
	t.operations[id] = op
	return nil
}

func (t *operationTable) ResetRetries(_ context.Context, id uuid.UUID) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	op, ok := t.operations[id]
	if !ok || op.IsCompleted {
		return apperrors.ErrOperationNotFound
	}
	op.RetryCount = 0
	t.operations[id] = op
	return nil
}

func (t *operationTable) Delete(_ context.Context, id uuid.UUID) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if _, ok := t.operations[id]; !ok {
		return apperrors.ErrOperationNotFound
	}
	delete(t.operations, id)
	return nil
}

func (t *operationTable) DeleteCompletedBefore(_ context.Context, cutoff time.Time) (int, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	removed := 0
	for id, op := range t.operations {
		if op.IsCompleted && op.CompletedAt != nil && op.CompletedAt.Before(cutoff) {
			delete(t.operations, id)
			removed++
		}
	}
	return removed, nil
}

// --- instructors ---

type instructorTable struct{ *store }

func (t *instructorTable) Create(_ context.Context, instructor *models.Instructor) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	for _, existing := range t.instructors {
		if existing.Email == instructor.Email {
			return apperrors.ErrEmailAlreadyExists
		}
	}
	t.instructors[instructor.ID] = *instructor
	return nil
}

func (t *instructorTable) GetByID(_ context.Context, id uuid.UUID) (*models.Instructor, error) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	instructor, ok := t.instructors[id]
	if !ok {
		return nil, apperrors.ErrInstructorNotFound
	}
	copy := instructor
	return &copy, nil
}

func (t *instructorTable) GetByEmail(_ context.Context, email string) (*models.Instructor, error) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	for id := range t.instructors {
		if t.instructors[id].Email == email {
			instructor := t.instructors[id]
			return &instructor, nil
		}
	}
	return nil, apperrors.ErrInstructorNotFound
}
