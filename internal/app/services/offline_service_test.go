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

func TestStudentUpdateQueuedOfflineAndReplayed(t *testing.T) {
	f := newServiceFixture(t)
	student := f.createStudent(t, "Amelia", "Reed")
	f.shareStudent(t, student.ID)

	f.monitor.SetOnline(false)
	f.store.SetAvailable(false)

	_, err := f.students.Update(f.ctx, student.ID, StudentInput{FirstName: "Amelia", LastName: "Reed-Park"})
	require.NoError(t, err)

	pending, err := f.offline.PendingCount(f.ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, pending)

	f.store.SetAvailable(true)
	f.monitor.SetOnline(true)

	result, err := f.offline.ProcessPending(f.ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, result.Replayed)
	assert.Zero(t, result.Failed)

	zone := f.sync.ZoneForStudent(student.ID)
	record, err := f.store.FetchRecord(f.ctx, zone, student.ID.String())
	require.NoError(t, err)
	assert.Equal(t, "Reed-Park", record.Fields["lastName"])

	pending, err = f.offline.PendingCount(f.ctx)
	require.NoError(t, err)
	assert.Zero(t, pending)
}

func TestReplayStopsOnRemoteOutage(t *testing.T) {
	f := newServiceFixture(t)
	student := f.createStudent(t, "Amelia", "Reed")

	require.NoError(t, f.offline.Enqueue(f.ctx, models.OperationUpdate, student.ID, nil, nil, nil))
	require.NoError(t, f.offline.Enqueue(f.ctx, models.OperationUpdate, student.ID, nil, nil, nil))

	f.store.SetAvailable(false)

	result, err := f.offline.ProcessPending(f.ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, result.Failed)
	assert.Zero(t, result.Replayed)

	// Only the first operation burned a retry; the pass stopped there.
	pending, err := f.repos.OfflineOps.ListPending(f.ctx)
	require.NoError(t, err)
	require.Len(t, pending, 2)
	assert.Equal(t, 1, pending[0].RetryCount)
	assert.Zero(t, pending[1].RetryCount)
}

func TestOperationDeadLettersAfterRetryBudget(t *testing.T) {
	f := newServiceFixture(t)
	student := f.createStudent(t, "Amelia", "Reed")

	require.NoError(t, f.offline.Enqueue(f.ctx, models.OperationUpdate, student.ID, nil, nil, nil))
	f.store.SetAvailable(false)

	for i := 0; i < models.MaxOperationRetries; i++ {
		_, err := f.offline.ProcessPending(f.ctx)
		require.NoError(t, err)
	}

	pending, err := f.offline.PendingCount(f.ctx)
	require.NoError(t, err)
	assert.Zero(t, pending)

	dead, err := f.offline.ListDeadLettered(f.ctx)
	require.NoError(t, err)
	require.Len(t, dead, 1)
	assert.Equal(t, models.MaxOperationRetries, dead[0].RetryCount)

	// A manual reset makes the operation eligible again.
	require.NoError(t, f.offline.ResetOperation(f.ctx, dead[0].ID))
	pending, err = f.offline.PendingCount(f.ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, pending)

	f.store.SetAvailable(true)
	result, err := f.offline.ProcessPending(f.ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, result.Replayed)
}

func TestReplayPushesCurrentRowState(t *testing.T) {
	f := newServiceFixture(t)
	student := f.createStudent(t, "Amelia", "Reed")
	template := f.createTemplate(t, "Crosswind Landings", "Crab approach")
	f.shareStudent(t, student.ID)

	assignment, err := f.assignments.Assign(f.ctx, student.ID, template.ID)
	require.NoError(t, err)
	itemID := assignment.ItemProgress[0].TemplateItemID

	f.monitor.SetOnline(false)
	f.store.SetAvailable(false)

	// Complete while offline, then change your mind before replay runs.
	_, err = f.assignments.UpdateItemCompletion(f.ctx, assignment.ID, itemID, true, "first pass")
	require.NoError(t, err)
	_, err = f.assignments.UpdateItemCompletion(f.ctx, assignment.ID, itemID, false, "redo it")
	require.NoError(t, err)

	f.store.SetAvailable(true)

	result, err := f.offline.ProcessPending(f.ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, result.Replayed)

	// Replay pushed the row's current state both times, so the earlier queued
	// completion never resurrects on the remote.
	zone := f.sync.ZoneForStudent(student.ID)
	record, err := f.store.FetchRecord(f.ctx, zone, assignment.ItemProgress[0].ID.String())
	require.NoError(t, err)
	assert.Equal(t, "false", record.Fields["isComplete"])
	assert.Equal(t, "redo it", record.Fields["notes"])
}

func TestReplaySkipsOperationsForDeletedAssignments(t *testing.T) {
	f := newServiceFixture(t)
	student := f.createStudent(t, "Amelia", "Reed")
	template := f.createTemplate(t, "Crosswind Landings", "Crab approach")
	f.shareStudent(t, student.ID)

	assignment, err := f.assignments.Assign(f.ctx, student.ID, template.ID)
	require.NoError(t, err)

	f.monitor.SetOnline(false)
	f.store.SetAvailable(false)
	_, err = f.assignments.UpdateItemCompletion(f.ctx, assignment.ID, assignment.ItemProgress[0].TemplateItemID, true, "")
	require.NoError(t, err)

	require.NoError(t, f.assignments.RemoveAssignment(f.ctx, assignment.ID))

	f.store.SetAvailable(true)
	result, err := f.offline.ProcessPending(f.ctx)
	require.NoError(t, err)

	// The queued completion is moot and completes as a no-op.
	assert.Equal(t, 1, result.Replayed)
	assert.Zero(t, result.Failed)
}

func TestPurgeKeysOffCompletionTime(t *testing.T) {
	f := newServiceFixture(t)
	student := f.createStudent(t, "Amelia", "Reed")

	enqueueAged := func(t *testing.T) *models.OfflineOperation {
		t.Helper()
		op := &models.OfflineOperation{
			ID:            uuid.New(),
			OperationType: models.OperationUpdate,
			StudentID:     student.ID,
			MaxRetries:    models.MaxOperationRetries,
			CreatedAt:     time.Now().UTC().Add(-10 * 24 * time.Hour),
		}
		require.NoError(t, f.repos.OfflineOps.Create(f.ctx, op))
		return op
	}

	cutoff := time.Now().UTC().Add(-7 * 24 * time.Hour)

	// Queued ten days ago but completed just now, so it is inside the
	// retention window and survives the purge.
	fresh := enqueueAged(t)
	require.NoError(t, f.repos.OfflineOps.MarkCompleted(f.ctx, fresh.ID, time.Now().UTC()))

	purged, err := f.repos.OfflineOps.DeleteCompletedBefore(f.ctx, cutoff)
	require.NoError(t, err)
	assert.Zero(t, purged)

	stale := enqueueAged(t)
	require.NoError(t, f.repos.OfflineOps.MarkCompleted(f.ctx, stale.ID, time.Now().UTC().Add(-8*24*time.Hour)))

	purged, err = f.repos.OfflineOps.DeleteCompletedBefore(f.ctx, cutoff)
	require.NoError(t, err)
	assert.Equal(t, 1, purged)

	_, err = f.repos.OfflineOps.GetByID(f.ctx, fresh.ID)
	assert.NoError(t, err)
	_, err = f.repos.OfflineOps.GetByID(f.ctx, stale.ID)
	assert.ErrorIs(t, err, apperrors.ErrOperationNotFound)
}

func TestDeleteOperation(t *testing.T) {
	f := newServiceFixture(t)
	student := f.createStudent(t, "Amelia", "Reed")

	require.NoError(t, f.offline.Enqueue(f.ctx, models.OperationUpdate, student.ID, nil, nil, nil))
	pending, err := f.repos.OfflineOps.ListPending(f.ctx)
	require.NoError(t, err)
	require.Len(t, pending, 1)

	require.NoError(t, f.offline.DeleteOperation(f.ctx, pending[0].ID))

	count, err := f.offline.PendingCount(f.ctx)
	require.NoError(t, err)
	assert.Zero(t, count)
}
