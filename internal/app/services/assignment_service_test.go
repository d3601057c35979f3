package services

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/heilo27/rightrudder/internal/app/models"
	"github.com/heilo27/rightrudder/internal/pkg/apperrors"
	"github.com/heilo27/rightrudder/internal/pkg/events"
)

func TestAssignCreatesProgressRows(t *testing.T) {
	f := newServiceFixture(t)
	student := f.createStudent(t, "Amelia", "Reed")
	template := f.createTemplate(t, "Crosswind Landings", "High-wing taxi", "Crab approach", "Sideslip touchdown")

	assignment, err := f.assignments.Assign(f.ctx, student.ID, template.ID)
	require.NoError(t, err)

	assert.Equal(t, student.ID, assignment.StudentID)
	assert.Equal(t, template.ID, assignment.TemplateID)
	assert.True(t, assignment.IsCustomChecklist)
	require.Len(t, assignment.ItemProgress, 3)
	for _, progress := range assignment.ItemProgress {
		assert.False(t, progress.IsComplete)
		assert.Nil(t, progress.CompletedAt)
	}
}

func TestAssignIsIdempotent(t *testing.T) {
	f := newServiceFixture(t)
	student := f.createStudent(t, "Amelia", "Reed")
	template := f.createTemplate(t, "Crosswind Landings", "Crab approach")

	first, err := f.assignments.Assign(f.ctx, student.ID, template.ID)
	require.NoError(t, err)
	second, err := f.assignments.Assign(f.ctx, student.ID, template.ID)
	require.NoError(t, err)

	assert.Equal(t, first.ID, second.ID)

	all, err := f.assignments.ListByStudent(f.ctx, student.ID)
	require.NoError(t, err)
	assert.Len(t, all, 1)
}

func TestConcurrentAssignCreatesSingleAssignment(t *testing.T) {
	f := newServiceFixture(t)
	student := f.createStudent(t, "Amelia", "Reed")
	template := f.createTemplate(t, "Crosswind Landings", "Crab approach")

	// Hold the write gate with an unrelated write so both calls pass the
	// existence pre-check before either commit runs; the store's pair
	// uniqueness is what must hold the line.
	release := make(chan struct{})
	holdDone := make(chan error, 1)
	go func() {
		holdDone <- f.queue.Save(f.ctx, func(context.Context) error {
			<-release
			return nil
		})
	}()

	var wg sync.WaitGroup
	results := make([]*models.Assignment, 2)
	errs := make([]error, 2)
	for i := 0; i < 2; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			results[i], errs[i] = f.assignments.Assign(f.ctx, student.ID, template.ID)
		}(i)
	}

	time.Sleep(50 * time.Millisecond)
	close(release)
	wg.Wait()
	require.NoError(t, <-holdDone)

	require.NoError(t, errs[0])
	require.NoError(t, errs[1])
	assert.Equal(t, results[0].ID, results[1].ID)

	all, err := f.assignments.ListByStudent(f.ctx, student.ID)
	require.NoError(t, err)
	assert.Len(t, all, 1)
}

func TestAssignBuiltInResolvesMappedIDs(t *testing.T) {
	f := newServiceFixture(t)
	student := f.createStudent(t, "Amelia", "Reed")
	template := f.createBuiltInTemplate(t, "pp-first-flight", 5)

	assignment, err := f.assignments.Assign(f.ctx, student.ID, template.ID)
	require.NoError(t, err)

	mappedTemplateID, ok := f.mapper.TemplateID("pp-first-flight")
	require.True(t, ok)
	assert.Equal(t, mappedTemplateID, assignment.TemplateID)
	assert.NotEqual(t, template.ID, assignment.TemplateID)

	mappedItemIDs, ok := f.mapper.ItemIDs("pp-first-flight")
	require.True(t, ok)
	require.Len(t, assignment.ItemProgress, len(mappedItemIDs))

	got := make(map[uuid.UUID]bool, len(assignment.ItemProgress))
	for _, progress := range assignment.ItemProgress {
		got[progress.TemplateItemID] = true
	}
	for _, id := range mappedItemIDs {
		assert.True(t, got[id], "progress row missing for mapped item %s", id)
	}
}

func TestAssignBuiltInFallsBackOnItemCountMismatch(t *testing.T) {
	f := newServiceFixture(t)
	student := f.createStudent(t, "Amelia", "Reed")
	// The table maps 5 items for this identifier; the local copy drifted.
	template := f.createBuiltInTemplate(t, "pp-first-flight", 3)

	assignment, err := f.assignments.Assign(f.ctx, student.ID, template.ID)
	require.NoError(t, err)

	mappedTemplateID, _ := f.mapper.TemplateID("pp-first-flight")
	assert.Equal(t, mappedTemplateID, assignment.TemplateID)

	// Item ids fall back to the local rows rather than mapping positionally.
	require.Len(t, assignment.ItemProgress, 3)
	localIDs := make(map[uuid.UUID]bool)
	for _, item := range template.Items {
		localIDs[item.ID] = true
	}
	for _, progress := range assignment.ItemProgress {
		assert.True(t, localIDs[progress.TemplateItemID])
	}
}

func TestUpdateItemCompletion(t *testing.T) {
	f := newServiceFixture(t)
	student := f.createStudent(t, "Amelia", "Reed")
	template := f.createTemplate(t, "Crosswind Landings", "Crab approach", "Sideslip touchdown")

	assignment, err := f.assignments.Assign(f.ctx, student.ID, template.ID)
	require.NoError(t, err)
	itemID := assignment.ItemProgress[0].TemplateItemID

	eventCh, unsubscribe := f.hub.Subscribe(4)
	defer unsubscribe()

	progress, err := f.assignments.UpdateItemCompletion(f.ctx, assignment.ID, itemID, true, "nailed it")
	require.NoError(t, err)
	assert.True(t, progress.IsComplete)
	assert.Equal(t, "nailed it", progress.Notes)
	require.NotNil(t, progress.CompletedAt)

	// The completion event carries the full routing keys.
	require.Len(t, eventCh, 1)
	evt := <-eventCh
	assert.Equal(t, events.EventItemCompleted, evt.Type)
	assert.Equal(t, student.ID, evt.StudentID)
	require.NotNil(t, evt.AssignmentID)
	assert.Equal(t, assignment.ID, *evt.AssignmentID)
	require.NotNil(t, evt.ItemID)
	assert.Equal(t, itemID, *evt.ItemID)

	summary, err := f.assignments.Progress(f.ctx, assignment.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, summary.CompletedItems)
	assert.Equal(t, 2, summary.TotalItems)
	// The percentage is a 0..1 ratio.
	assert.InDelta(t, 0.5, summary.Percentage, 0.001)
	assert.False(t, summary.IsComplete)

	// Un-completing clears the timestamp.
	progress, err = f.assignments.UpdateItemCompletion(f.ctx, assignment.ID, itemID, false, "")
	require.NoError(t, err)
	assert.False(t, progress.IsComplete)
	assert.Nil(t, progress.CompletedAt)
}

func TestUpdateItemCompletionUnknownItem(t *testing.T) {
	f := newServiceFixture(t)
	student := f.createStudent(t, "Amelia", "Reed")
	template := f.createTemplate(t, "Crosswind Landings", "Crab approach")

	assignment, err := f.assignments.Assign(f.ctx, student.ID, template.ID)
	require.NoError(t, err)

	_, err = f.assignments.UpdateItemCompletion(f.ctx, assignment.ID, uuid.New(), true, "")
	assert.ErrorIs(t, err, apperrors.ErrProgressNotFound)
}

func TestCompletionPushesOnlyChangedRecord(t *testing.T) {
	f := newServiceFixture(t)
	student := f.createStudent(t, "Amelia", "Reed")
	template := f.createTemplate(t, "Crosswind Landings", "Crab approach", "Sideslip touchdown")
	f.shareStudent(t, student.ID)

	assignment, err := f.assignments.Assign(f.ctx, student.ID, template.ID)
	require.NoError(t, err)

	before := f.store.SaveCount
	_, err = f.assignments.UpdateItemCompletion(f.ctx, assignment.ID, assignment.ItemProgress[0].TemplateItemID, true, "")
	require.NoError(t, err)
	assert.Equal(t, before+1, f.store.SaveCount)

	zone := f.sync.ZoneForStudent(student.ID)
	record, err := f.store.FetchRecord(f.ctx, zone, assignment.ItemProgress[0].ID.String())
	require.NoError(t, err)
	assert.Equal(t, "true", record.Fields["isComplete"])
}

func TestCompletionQueuedWhileOffline(t *testing.T) {
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

	pending, err := f.repos.OfflineOps.ListPending(f.ctx)
	require.NoError(t, err)
	require.Len(t, pending, 1)
	assert.Equal(t, models.OperationCompletion, pending[0].OperationType)
	assert.Equal(t, student.ID, pending[0].StudentID)
	require.NotNil(t, pending[0].ChecklistID)
	assert.Equal(t, assignment.ID, *pending[0].ChecklistID)
}

func TestRemoveAssignment(t *testing.T) {
	f := newServiceFixture(t)
	student := f.createStudent(t, "Amelia", "Reed")
	template := f.createTemplate(t, "Crosswind Landings", "Crab approach")

	assignment, err := f.assignments.Assign(f.ctx, student.ID, template.ID)
	require.NoError(t, err)

	require.NoError(t, f.assignments.RemoveAssignment(f.ctx, assignment.ID))

	_, err = f.assignments.GetAssignment(f.ctx, assignment.ID)
	assert.ErrorIs(t, err, apperrors.ErrAssignmentNotFound)
}
