package services

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/heilo27/rightrudder/internal/app/models"
	"github.com/heilo27/rightrudder/internal/app/remote"
)

func TestSyncStudentPushesFullHierarchy(t *testing.T) {
	f := newServiceFixture(t)
	student := f.createStudent(t, "John", "Calhoun")
	template := f.createTemplate(t, "Crosswind Landings", "Crab approach", "Sideslip touchdown")

	assignment, err := f.assignments.Assign(f.ctx, student.ID, template.ID)
	require.NoError(t, err)

	result, err := f.sync.SyncStudent(f.ctx, student.ID)
	require.NoError(t, err)
	assert.Zero(t, result.ConflictsFound)
	// Student root, assignment, and two progress rows.
	assert.Equal(t, 4, result.RecordsPushed)

	zone := f.sync.ZoneForStudent(student.ID)

	root, err := f.store.FetchRecord(f.ctx, zone, student.ID.String())
	require.NoError(t, err)
	assert.Equal(t, remote.TypeStudent, root.Type)
	assert.Equal(t, "John", root.Fields["firstName"])

	child, err := f.store.FetchRecord(f.ctx, zone, assignment.ID.String())
	require.NoError(t, err)
	assert.Equal(t, remote.TypeAssignment, child.Type)
	assert.Equal(t, student.ID.String(), child.ParentID)

	for _, progress := range assignment.ItemProgress {
		row, err := f.store.FetchRecord(f.ctx, zone, progress.ID.String())
		require.NoError(t, err)
		assert.Equal(t, assignment.ID.String(), row.ParentID)
	}
}

func TestSyncStudentDetectsFieldConflict(t *testing.T) {
	f := newServiceFixture(t)
	student := f.createStudent(t, "John", "Calhoun")

	require.NoError(t, f.sync.PushStudent(f.ctx, student.ID))

	// The student app renamed itself in the shared zone.
	zone := f.sync.ZoneForStudent(student.ID)
	record, err := f.store.FetchRecord(f.ctx, zone, student.ID.String())
	require.NoError(t, err)
	record.Fields["firstName"] = "Jonathan"
	require.NoError(t, f.store.SaveRecord(f.ctx, record))

	before := f.store.SaveCount
	result, err := f.sync.SyncStudent(f.ctx, student.ID)
	require.NoError(t, err)

	require.Equal(t, 1, result.ConflictsFound)
	conflict := result.Conflicts[0]
	assert.Equal(t, models.FieldFirstName, conflict.Field)
	assert.Equal(t, "John", conflict.InstructorValue)
	assert.Equal(t, "Jonathan", conflict.StudentValue)

	// Push is deferred, so the student app's record survives untouched.
	assert.Zero(t, result.RecordsPushed)
	assert.Equal(t, before, f.store.SaveCount)
	record, err = f.store.FetchRecord(f.ctx, zone, student.ID.String())
	require.NoError(t, err)
	assert.Equal(t, "Jonathan", record.Fields["firstName"])
}

func TestMilestonesSyncDownWithoutConflict(t *testing.T) {
	f := newServiceFixture(t)
	student := f.createStudent(t, "John", "Calhoun")

	require.NoError(t, f.sync.PushStudent(f.ctx, student.ID))

	zone := f.sync.ZoneForStudent(student.ID)
	record, err := f.store.FetchRecord(f.ctx, zone, student.ID.String())
	require.NoError(t, err)
	record.Fields["milestoneSoloComplete"] = "true"
	record.Fields["milestoneWrittenPassed"] = "true"
	require.NoError(t, f.store.SaveRecord(f.ctx, record))

	result, err := f.sync.SyncStudent(f.ctx, student.ID)
	require.NoError(t, err)
	assert.Zero(t, result.ConflictsFound)

	updated, err := f.students.GetByID(f.ctx, student.ID)
	require.NoError(t, err)
	assert.True(t, updated.MilestoneSoloComplete)
	assert.True(t, updated.MilestoneWrittenPassed)
	assert.False(t, updated.MilestoneCheckridePassed)
}

func TestFirstSyncWithNoRemoteRecord(t *testing.T) {
	f := newServiceFixture(t)
	student := f.createStudent(t, "John", "Calhoun")

	result, err := f.sync.SyncStudent(f.ctx, student.ID)
	require.NoError(t, err)
	assert.Zero(t, result.ConflictsFound)
	assert.Equal(t, 1, result.RecordsPushed)
}

func TestResolveAcceptRemoteValue(t *testing.T) {
	f := newServiceFixture(t)
	student := f.createStudent(t, "John", "Calhoun")

	require.NoError(t, f.sync.PushStudent(f.ctx, student.ID))

	zone := f.sync.ZoneForStudent(student.ID)
	record, err := f.store.FetchRecord(f.ctx, zone, student.ID.String())
	require.NoError(t, err)
	record.Fields["firstName"] = "Jonathan"
	require.NoError(t, f.store.SaveRecord(f.ctx, record))

	err = f.conflicts.Resolve(f.ctx, student.ID, []models.ConflictResolution{
		{Field: models.FieldFirstName, AcceptLocal: false},
	})
	require.NoError(t, err)

	updated, err := f.students.GetByID(f.ctx, student.ID)
	require.NoError(t, err)
	assert.Equal(t, "Jonathan", updated.FirstName)

	// Both sides now agree.
	conflicts, err := f.conflicts.ListConflicts(f.ctx, student.ID)
	require.NoError(t, err)
	assert.Empty(t, conflicts)
}

func TestResolveKeepsLocalByDefault(t *testing.T) {
	f := newServiceFixture(t)
	student := f.createStudent(t, "John", "Calhoun")

	require.NoError(t, f.sync.PushStudent(f.ctx, student.ID))

	zone := f.sync.ZoneForStudent(student.ID)
	record, err := f.store.FetchRecord(f.ctx, zone, student.ID.String())
	require.NoError(t, err)
	record.Fields["firstName"] = "Jonathan"
	require.NoError(t, f.store.SaveRecord(f.ctx, record))

	// No resolution listed for the conflicting field.
	require.NoError(t, f.conflicts.Resolve(f.ctx, student.ID, nil))

	updated, err := f.students.GetByID(f.ctx, student.ID)
	require.NoError(t, err)
	assert.Equal(t, "John", updated.FirstName)

	// The re-push makes the local value the shared truth.
	record, err = f.store.FetchRecord(f.ctx, zone, student.ID.String())
	require.NoError(t, err)
	assert.Equal(t, "John", record.Fields["firstName"])
}

func TestDetectConflictsIgnoresUnsetFields(t *testing.T) {
	f := newServiceFixture(t)
	student := &models.Student{FirstName: "John", LastName: "Calhoun"}
	record := &remote.Record{Fields: map[string]string{
		"firstName": "John",
		"lastName":  "Calhoun",
		// email, phone, homeAirport, aircraftType absent on both sides.
	}}

	conflicts := f.conflicts.DetectConflicts(student, record)
	assert.Empty(t, conflicts)
}
