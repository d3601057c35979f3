package services

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/heilo27/rightrudder/internal/pkg/apperrors"
)

func TestCreateStudentNeedsAName(t *testing.T) {
	f := newServiceFixture(t)

	_, err := f.students.Create(f.ctx, StudentInput{Email: "amelia@example.com"})
	assert.ErrorIs(t, err, apperrors.ErrValidationFailed)

	// Either name alone is enough.
	student, err := f.students.Create(f.ctx, StudentInput{FirstName: "Amelia"})
	require.NoError(t, err)
	assert.Equal(t, "Amelia", student.FullName())
}

func TestUpdateStudentPreservesMilestonesAndShareInfo(t *testing.T) {
	f := newServiceFixture(t)
	student := f.createStudent(t, "Amelia", "Reed")
	f.shareStudent(t, student.ID)

	// Milestones arrive from the student app.
	loaded, err := f.students.GetByID(f.ctx, student.ID)
	require.NoError(t, err)
	loaded.MilestoneSoloComplete = true
	require.NoError(t, f.repos.Students.Update(f.ctx, loaded))

	updated, err := f.students.Update(f.ctx, student.ID, StudentInput{
		FirstName:    "Amelia",
		LastName:     "Reed",
		HomeAirport:  "KPAO",
		AircraftType: "C172",
	})
	require.NoError(t, err)
	assert.Equal(t, "KPAO", updated.HomeAirport)

	reloaded, err := f.students.GetByID(f.ctx, student.ID)
	require.NoError(t, err)
	assert.True(t, reloaded.MilestoneSoloComplete)
	assert.True(t, reloaded.HasActiveShare())
}

func TestDeleteStudentCascades(t *testing.T) {
	f := newServiceFixture(t)
	student := f.createStudent(t, "Amelia", "Reed")
	template := f.createTemplate(t, "Crosswind Landings", "Crab approach")
	assignment, err := f.assignments.Assign(f.ctx, student.ID, template.ID)
	require.NoError(t, err)

	require.NoError(t, f.students.Delete(f.ctx, student.ID))

	_, err = f.students.GetByID(f.ctx, student.ID)
	assert.ErrorIs(t, err, apperrors.ErrStudentNotFound)
	_, err = f.repos.Assignments.GetByID(f.ctx, assignment.ID)
	assert.ErrorIs(t, err, apperrors.ErrAssignmentNotFound)
}

func TestSharedStudentEditPushesImmediately(t *testing.T) {
	f := newServiceFixture(t)
	student := f.createStudent(t, "Amelia", "Reed")
	f.shareStudent(t, student.ID)

	_, err := f.students.Update(f.ctx, student.ID, StudentInput{FirstName: "Amelia", LastName: "Reed", Phone: "555-0111"})
	require.NoError(t, err)

	zone := f.sync.ZoneForStudent(student.ID)
	record, err := f.store.FetchRecord(f.ctx, zone, student.ID.String())
	require.NoError(t, err)
	assert.Equal(t, "555-0111", record.Fields["phone"])
}

func TestUnsharedStudentEditStaysLocal(t *testing.T) {
	f := newServiceFixture(t)
	student := f.createStudent(t, "Amelia", "Reed")

	before := f.store.SaveCount
	_, err := f.students.Update(f.ctx, student.ID, StudentInput{FirstName: "Amelia", LastName: "Reed", Phone: "555-0111"})
	require.NoError(t, err)
	assert.Equal(t, before, f.store.SaveCount)

	pending, err := f.offline.PendingCount(f.ctx)
	require.NoError(t, err)
	assert.Zero(t, pending)
}
