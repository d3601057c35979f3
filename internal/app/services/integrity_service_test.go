package services

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/heilo27/rightrudder/internal/app/models"
	"github.com/heilo27/rightrudder/internal/pkg/apperrors"
)

func TestIntegrityRemovesBlankTemplates(t *testing.T) {
	f := newServiceFixture(t)

	blank := &models.Template{
		ID:           uuid.New(),
		Name:         "   ",
		LastModified: time.Now().UTC(),
	}
	require.NoError(t, f.repos.Templates.Create(f.ctx, blank))
	keeper := f.createTemplate(t, "Crosswind Landings", "Crab approach")

	report, err := f.integrity.VerifyAndRepair(f.ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, report.IssuesFound)
	assert.Equal(t, 1, report.IssuesRepaired)

	_, err = f.repos.Templates.GetByID(f.ctx, blank.ID)
	assert.ErrorIs(t, err, apperrors.ErrTemplateNotFound)
	_, err = f.repos.Templates.GetByID(f.ctx, keeper.ID)
	assert.NoError(t, err)
}

func TestIntegrityRepairsContentHashDrift(t *testing.T) {
	f := newServiceFixture(t)
	template := f.createTemplate(t, "Crosswind Landings", "Crab approach")

	// Corrupt the stored hash behind the service's back.
	template.ContentHash = "deadbeef"
	require.NoError(t, f.repos.Templates.Update(f.ctx, template))

	report, err := f.integrity.VerifyAndRepair(f.ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, report.IssuesRepaired)

	repaired, err := f.repos.Templates.GetByID(f.ctx, template.ID)
	require.NoError(t, err)
	assert.Equal(t, repaired.ComputeContentHash(), repaired.ContentHash)
}

func TestIntegrityBackfillsMissingContentHash(t *testing.T) {
	f := newServiceFixture(t)
	template := f.createTemplate(t, "Crosswind Landings", "Crab approach")

	// Templates that predate hashing carry no stored hash at all.
	template.ContentHash = ""
	require.NoError(t, f.repos.Templates.Update(f.ctx, template))

	report, err := f.integrity.VerifyAndRepair(f.ctx)
	require.NoError(t, err)

	// Backfilling the initial hash is not drift and does not count as a
	// repaired issue.
	assert.Zero(t, report.IssuesFound)
	assert.Zero(t, report.IssuesRepaired)

	stored, err := f.repos.Templates.GetByID(f.ctx, template.ID)
	require.NoError(t, err)
	assert.Equal(t, stored.ComputeContentHash(), stored.ContentHash)
}

func TestIntegrityRemovesOrphanedAssignments(t *testing.T) {
	f := newServiceFixture(t)
	student := f.createStudent(t, "Amelia", "Reed")

	orphan := &models.Assignment{
		ID:           uuid.New(),
		StudentID:    student.ID,
		TemplateID:   uuid.New(), // never existed
		CreatedAt:    time.Now().UTC(),
		LastModified: time.Now().UTC(),
	}
	require.NoError(t, f.repos.Assignments.Create(f.ctx, orphan))

	report, err := f.integrity.VerifyAndRepair(f.ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, report.IssuesRepaired)

	_, err = f.repos.Assignments.GetByID(f.ctx, orphan.ID)
	assert.ErrorIs(t, err, apperrors.ErrAssignmentNotFound)
}

func TestIntegrityReconcilesProgressRows(t *testing.T) {
	f := newServiceFixture(t)
	student := f.createStudent(t, "Amelia", "Reed")
	template := f.createTemplate(t, "Crosswind Landings", "Crab approach", "Sideslip touchdown", "Go-around")

	assignment, err := f.assignments.Assign(f.ctx, student.ID, template.ID)
	require.NoError(t, err)
	require.Len(t, assignment.ItemProgress, 3)

	// One row lost, one row pointing at an item that never existed.
	require.NoError(t, f.repos.Assignments.DeleteProgress(f.ctx, assignment.ItemProgress[0].ID))
	stray := &models.ItemProgress{
		ID:             uuid.New(),
		AssignmentID:   assignment.ID,
		TemplateItemID: uuid.New(),
		LastModified:   time.Now().UTC(),
	}
	require.NoError(t, f.repos.Assignments.AddProgress(f.ctx, stray))

	report, err := f.integrity.VerifyAndRepair(f.ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, report.IssuesRepaired)

	repaired, err := f.repos.Assignments.GetByID(f.ctx, assignment.ID)
	require.NoError(t, err)
	require.Len(t, repaired.ItemProgress, 3)

	expected := make(map[uuid.UUID]bool)
	for _, item := range template.Items {
		expected[item.ID] = true
	}
	for _, progress := range repaired.ItemProgress {
		assert.True(t, expected[progress.TemplateItemID])
		assert.NotEqual(t, stray.ID, progress.ID)
	}
}

func TestIntegrityPreservesCompletionState(t *testing.T) {
	f := newServiceFixture(t)
	student := f.createStudent(t, "Amelia", "Reed")
	template := f.createTemplate(t, "Crosswind Landings", "Crab approach", "Sideslip touchdown")

	assignment, err := f.assignments.Assign(f.ctx, student.ID, template.ID)
	require.NoError(t, err)
	completedItem := assignment.ItemProgress[0].TemplateItemID
	_, err = f.assignments.UpdateItemCompletion(f.ctx, assignment.ID, completedItem, true, "done")
	require.NoError(t, err)

	_, err = f.integrity.VerifyAndRepair(f.ctx)
	require.NoError(t, err)

	after, err := f.repos.Assignments.GetByID(f.ctx, assignment.ID)
	require.NoError(t, err)
	progress := after.ProgressByItemID(completedItem)
	require.NotNil(t, progress)
	assert.True(t, progress.IsComplete)
	assert.Equal(t, "done", progress.Notes)
}

func TestIntegrityIsIdempotent(t *testing.T) {
	f := newServiceFixture(t)
	student := f.createStudent(t, "Amelia", "Reed")
	template := f.createTemplate(t, "Crosswind Landings", "Crab approach")
	_, err := f.assignments.Assign(f.ctx, student.ID, template.ID)
	require.NoError(t, err)

	first, err := f.integrity.VerifyAndRepair(f.ctx)
	require.NoError(t, err)
	assert.Zero(t, first.IssuesFound)

	second, err := f.integrity.VerifyAndRepair(f.ctx)
	require.NoError(t, err)
	assert.Zero(t, second.IssuesFound)
	assert.Zero(t, second.IssuesRepaired)
}
