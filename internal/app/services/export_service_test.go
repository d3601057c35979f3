package services

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExportSelectedTemplates(t *testing.T) {
	f := newServiceFixture(t)
	first := f.createTemplate(t, "Crosswind Landings", "Crab approach")
	f.createTemplate(t, "Night Operations", "Cockpit lighting check")

	doc, err := f.exports.Export(f.ctx, []uuid.UUID{first.ID}, "Pat Instructor")
	require.NoError(t, err)
	require.Len(t, doc.Templates, 1)
	assert.Equal(t, first.ID, doc.Templates[0].ID)
	assert.Equal(t, "Pat Instructor", doc.Templates[0].OriginalAuthor)
	require.Len(t, doc.Templates[0].Items, 1)
	assert.Equal(t, "Crab approach", doc.Templates[0].Items[0].Title)
	assert.Equal(t, "Pat Instructor", doc.ExportedBy)
	assert.Equal(t, "test", doc.AppVersion)
	assert.False(t, doc.ExportDate.IsZero())
}

func TestExportWholeCatalogWhenUnfiltered(t *testing.T) {
	f := newServiceFixture(t)
	f.createTemplate(t, "Crosswind Landings", "Crab approach")
	f.createTemplate(t, "Night Operations", "Cockpit lighting check")

	doc, err := f.exports.Export(f.ctx, nil, "")
	require.NoError(t, err)
	assert.Len(t, doc.Templates, 2)
}

func TestImportSkipsExistingTemplates(t *testing.T) {
	f := newServiceFixture(t)
	f.createTemplate(t, "Crosswind Landings", "Crab approach")

	doc, err := f.exports.Export(f.ctx, nil, "")
	require.NoError(t, err)

	result, err := f.exports.Import(f.ctx, doc)
	require.NoError(t, err)
	assert.Zero(t, result.Imported)
	assert.Equal(t, 1, result.Skipped)
}

func TestImportAddsTemplatesAsUserCreated(t *testing.T) {
	source := newServiceFixture(t)
	// Exporting a built-in template from another install.
	source.createBuiltInTemplate(t, "pp-first-flight", 5)
	doc, err := source.exports.Export(source.ctx, nil, "")
	require.NoError(t, err)

	target := newServiceFixture(t)
	result, err := target.exports.Import(target.ctx, doc)
	require.NoError(t, err)
	assert.Equal(t, 1, result.Imported)
	assert.Zero(t, result.Skipped)

	imported, err := target.templates.GetByID(target.ctx, doc.Templates[0].ID)
	require.NoError(t, err)
	assert.True(t, imported.IsUserCreated)
	assert.Empty(t, imported.TemplateIdentifier)
	assert.Len(t, imported.Items, 5)
	assert.Equal(t, imported.ComputeContentHash(), imported.ContentHash)
}

func TestExportImportRoundTripKeepsItemOrder(t *testing.T) {
	source := newServiceFixture(t)
	template := source.createTemplate(t, "Crosswind Landings", "First", "Second", "Third")

	doc, err := source.exports.Export(source.ctx, []uuid.UUID{template.ID}, "")
	require.NoError(t, err)

	target := newServiceFixture(t)
	_, err = target.exports.Import(target.ctx, doc)
	require.NoError(t, err)

	imported, err := target.templates.GetByID(target.ctx, template.ID)
	require.NoError(t, err)
	ordered := imported.SortedItems()
	require.Len(t, ordered, 3)
	assert.Equal(t, "First", ordered[0].Title)
	assert.Equal(t, "Second", ordered[1].Title)
	assert.Equal(t, "Third", ordered[2].Title)
}
