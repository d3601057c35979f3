package services

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/heilo27/rightrudder/internal/pkg/apperrors"
)

func TestCreateTemplateRejectsBlankName(t *testing.T) {
	f := newServiceFixture(t)

	_, err := f.templates.Create(f.ctx, "   ", "Private Pilot", "", nil)
	assert.ErrorIs(t, err, apperrors.ErrValidationFailed)
}

func TestCreateTemplateComputesHash(t *testing.T) {
	f := newServiceFixture(t)

	template := f.createTemplate(t, "Crosswind Landings", "Crab approach", "Sideslip touchdown")
	assert.True(t, template.IsUserCreated)
	assert.Equal(t, template.ComputeContentHash(), template.ContentHash)
	require.Len(t, template.Items, 2)
	assert.Equal(t, 0, template.Items[0].DisplayOrder)
	assert.Equal(t, 1, template.Items[1].DisplayOrder)
}

func TestAddItemAppendsAtEnd(t *testing.T) {
	f := newServiceFixture(t)
	template := f.createTemplate(t, "Crosswind Landings", "Crab approach")

	item, err := f.templates.AddItem(f.ctx, template.ID, TemplateItemInput{Title: "Go-around"})
	require.NoError(t, err)
	assert.Equal(t, 1, item.DisplayOrder)

	reloaded, err := f.templates.GetByID(f.ctx, template.ID)
	require.NoError(t, err)
	require.Len(t, reloaded.Items, 2)
	assert.Equal(t, reloaded.ComputeContentHash(), reloaded.ContentHash)
}

func TestUpdateItem(t *testing.T) {
	f := newServiceFixture(t)
	template := f.createTemplate(t, "Crosswind Landings", "Crab approach")

	item, err := f.templates.UpdateItem(f.ctx, template.ID, template.Items[0].ID, TemplateItemInput{
		Title: "Crab then kick out",
		Notes: "hold centerline",
	})
	require.NoError(t, err)
	assert.Equal(t, "Crab then kick out", item.Title)

	_, err = f.templates.UpdateItem(f.ctx, template.ID, uuid.New(), TemplateItemInput{Title: "x"})
	assert.ErrorIs(t, err, apperrors.ErrResourceNotFound)
}

func TestDeleteItem(t *testing.T) {
	f := newServiceFixture(t)
	template := f.createTemplate(t, "Crosswind Landings", "Crab approach", "Sideslip touchdown")

	require.NoError(t, f.templates.DeleteItem(f.ctx, template.ID, template.Items[0].ID))

	reloaded, err := f.templates.GetByID(f.ctx, template.ID)
	require.NoError(t, err)
	require.Len(t, reloaded.Items, 1)
	assert.Equal(t, "Sideslip touchdown", reloaded.Items[0].Title)
}

func TestReorderItems(t *testing.T) {
	f := newServiceFixture(t)
	template := f.createTemplate(t, "Crosswind Landings", "First", "Second", "Third")
	items := template.SortedItems()

	err := f.templates.ReorderItems(f.ctx, template.ID, []uuid.UUID{items[2].ID, items[0].ID, items[1].ID})
	require.NoError(t, err)

	reloaded, err := f.templates.GetByID(f.ctx, template.ID)
	require.NoError(t, err)
	ordered := reloaded.SortedItems()
	assert.Equal(t, "Third", ordered[0].Title)
	assert.Equal(t, "First", ordered[1].Title)
	assert.Equal(t, "Second", ordered[2].Title)
}

func TestReorderItemsValidatesPermutation(t *testing.T) {
	f := newServiceFixture(t)
	template := f.createTemplate(t, "Crosswind Landings", "First", "Second")
	items := template.SortedItems()

	err := f.templates.ReorderItems(f.ctx, template.ID, []uuid.UUID{items[0].ID})
	assert.ErrorIs(t, err, apperrors.ErrValidationFailed)

	err = f.templates.ReorderItems(f.ctx, template.ID, []uuid.UUID{items[0].ID, uuid.New()})
	assert.ErrorIs(t, err, apperrors.ErrValidationFailed)
}

func TestMutatingBuiltInMarksUserModified(t *testing.T) {
	f := newServiceFixture(t)
	template := f.createBuiltInTemplate(t, "pp-first-flight", 5)
	require.False(t, template.IsUserModified)

	renamed, err := f.templates.Rename(f.ctx, template.ID, "First Flight (custom)", template.Category, template.Phase)
	require.NoError(t, err)
	assert.True(t, renamed.IsUserModified)
	assert.Equal(t, renamed.ComputeContentHash(), renamed.ContentHash)
}
