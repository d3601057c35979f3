// Package idmap holds the fixed mapping from built-in template identifiers to
// the UUIDs those templates (and their items) must carry on every install.
// Both the instructor and student apps ship the same versioned table, so a
// record created independently on two devices resolves to the same logical
// entity. The table is a pure lookup: it is never extended at runtime.
package idmap

import (
	_ "embed"
	"fmt"

	"github.com/google/uuid"
	"gopkg.in/yaml.v3"
)

//go:embed builtin_templates.yaml
var builtinTable []byte

type tableEntry struct {
	Identifier string   `yaml:"identifier"`
	TemplateID string   `yaml:"templateId"`
	ItemIDs    []string `yaml:"itemIds"`
}

type tableFile struct {
	Version int          `yaml:"version"`
	Entries []tableEntry `yaml:"templates"`
}

type mapping struct {
	templateID uuid.UUID
	itemIDs    []uuid.UUID
}

// Mapper resolves built-in template identifiers to their fixed UUIDs.
type Mapper struct {
	version  int
	mappings map[string]mapping
}

// New parses the embedded table. The table ships with the binary, so a parse
// failure is a build defect, not a runtime condition.
func New() (*Mapper, error) {
	return parse(builtinTable)
}

func parse(data []byte) (*Mapper, error) {
	var file tableFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("failed to parse id mapping table: %w", err)
	}

	m := &Mapper{
		version:  file.Version,
		mappings: make(map[string]mapping, len(file.Entries)),
	}

	for _, entry := range file.Entries {
		templateID, err := uuid.Parse(entry.TemplateID)
		if err != nil {
			return nil, fmt.Errorf("invalid template id for %q: %w", entry.Identifier, err)
		}

		itemIDs := make([]uuid.UUID, 0, len(entry.ItemIDs))
		for i, raw := range entry.ItemIDs {
			itemID, err := uuid.Parse(raw)
			if err != nil {
				return nil, fmt.Errorf("invalid item id %d for %q: %w", i, entry.Identifier, err)
			}
			itemIDs = append(itemIDs, itemID)
		}

		if _, exists := m.mappings[entry.Identifier]; exists {
			return nil, fmt.Errorf("duplicate identifier %q in id mapping table", entry.Identifier)
		}
		m.mappings[entry.Identifier] = mapping{templateID: templateID, itemIDs: itemIDs}
	}

	return m, nil
}

// Version returns the version of the shipped table.
func (m *Mapper) Version() int {
	return m.version
}

// TemplateID returns the fixed UUID for a built-in template identifier.
// The second return is false on a miss; the caller must fall back to its
// locally generated id and surface the miss loudly, because sync for that
// template will silently diverge across the two apps until the table is fixed.
func (m *Mapper) TemplateID(identifier string) (uuid.UUID, bool) {
	entry, ok := m.mappings[identifier]
	if !ok {
		return uuid.Nil, false
	}
	return entry.templateID, true
}

// ItemIDs returns the ordered fixed UUIDs for a built-in template's items.
// Position i corresponds to the item with display order i.
func (m *Mapper) ItemIDs(identifier string) ([]uuid.UUID, bool) {
	entry, ok := m.mappings[identifier]
	if !ok {
		return nil, false
	}
	ids := make([]uuid.UUID, len(entry.itemIDs))
	copy(ids, entry.itemIDs)
	return ids, true
}

// Identifiers returns every identifier present in the table.
func (m *Mapper) Identifiers() []string {
	ids := make([]string, 0, len(m.mappings))
	for identifier := range m.mappings {
		ids = append(ids, identifier)
	}
	return ids
}
