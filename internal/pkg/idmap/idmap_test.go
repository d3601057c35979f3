package idmap

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewLoadsEmbeddedTable(t *testing.T) {
	m, err := New()
	require.NoError(t, err)

	assert.Equal(t, 3, m.Version())
	assert.ElementsMatch(t, []string{
		"pp-first-flight",
		"pp-preflight-ops",
		"pp-slow-flight-stalls",
		"pp-ground-reference",
		"pp-first-solo",
		"pp-cross-country",
		"pp-night-flying",
		"pp-checkride-prep",
	}, m.Identifiers())
}

func TestLookupsAreDeterministicAcrossInstances(t *testing.T) {
	first, err := New()
	require.NoError(t, err)
	second, err := New()
	require.NoError(t, err)

	for _, identifier := range first.Identifiers() {
		idA, okA := first.TemplateID(identifier)
		idB, okB := second.TemplateID(identifier)
		require.True(t, okA)
		require.True(t, okB)
		assert.Equal(t, idA, idB)

		itemsA, _ := first.ItemIDs(identifier)
		itemsB, _ := second.ItemIDs(identifier)
		assert.Equal(t, itemsA, itemsB)
	}
}

func TestTemplateIDKnownEntry(t *testing.T) {
	m, err := New()
	require.NoError(t, err)

	id, ok := m.TemplateID("pp-first-flight")
	require.True(t, ok)
	assert.Equal(t, uuid.MustParse("7d3b9a14-2c6f-4e85-b1d7-0a92c4e6f813"), id)

	items, ok := m.ItemIDs("pp-first-flight")
	require.True(t, ok)
	assert.Len(t, items, 5)
	assert.Equal(t, uuid.MustParse("1a64f0c2-8d3e-47b9-a251-6e90d7b3c4a1"), items[0])
}

func TestUnknownIdentifierMisses(t *testing.T) {
	m, err := New()
	require.NoError(t, err)

	id, ok := m.TemplateID("pp-does-not-exist")
	assert.False(t, ok)
	assert.Equal(t, uuid.Nil, id)

	items, ok := m.ItemIDs("pp-does-not-exist")
	assert.False(t, ok)
	assert.Nil(t, items)
}

func TestItemIDsReturnsACopy(t *testing.T) {
	m, err := New()
	require.NoError(t, err)

	items, ok := m.ItemIDs("pp-first-flight")
	require.True(t, ok)
	items[0] = uuid.Nil

	fresh, _ := m.ItemIDs("pp-first-flight")
	assert.NotEqual(t, uuid.Nil, fresh[0])
}

func TestParseRejectsMalformedTable(t *testing.T) {
	cases := []struct {
		name string
		yaml string
	}{
		{
			name: "bad template id",
			yaml: "version: 1\ntemplates:\n  - identifier: x\n    templateId: not-a-uuid\n    itemIds: []\n",
		},
		{
			name: "bad item id",
			yaml: "version: 1\ntemplates:\n  - identifier: x\n    templateId: 7d3b9a14-2c6f-4e85-b1d7-0a92c4e6f813\n    itemIds: [nope]\n",
		},
		{
			name: "duplicate identifier",
			yaml: "version: 1\ntemplates:\n  - identifier: x\n    templateId: 7d3b9a14-2c6f-4e85-b1d7-0a92c4e6f813\n    itemIds: []\n  - identifier: x\n    templateId: 8e4ca25b-3d70-4f96-c2e8-1ba3d5f7a924\n    itemIds: []\n",
		},
		{
			name: "not yaml",
			yaml: "{{{",
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := parse([]byte(tc.yaml))
			assert.Error(t, err)
		})
	}
}
