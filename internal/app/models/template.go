package models

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"
)

// Template represents a reusable lesson checklist definition owned by the
// instructor app. Built-in templates carry a stable TemplateIdentifier and
// their ID must equal the deterministic mapping for that identifier so that
// independently installed apps materialise the same UUID. User-created
// templates have a freshly generated ID and no identifier.
type Template struct {
	ID                 uuid.UUID      `json:"id"`
	Name               string         `json:"name"`
	Category           string         `json:"category"`
	Phase              string         `json:"phase"`
	TemplateIdentifier string         `json:"templateIdentifier,omitempty"`
	Items              []TemplateItem `json:"items"`
	ContentHash        string         `json:"contentHash,omitempty"`
	IsUserCreated      bool           `json:"isUserCreated"`
	IsUserModified     bool           `json:"isUserModified"`
	CreatedAt          time.Time      `json:"createdAt"`
	LastModified       time.Time      `json:"lastModified"`
}

// TemplateItem is a single checklist line within a Template. Items are owned
// by their template and deleted with it. DisplayOrder is unique per template
// and defines the display sequence.
type TemplateItem struct {
	ID           uuid.UUID `json:"id"`
	TemplateID   uuid.UUID `json:"templateId"`
	Title        string    `json:"title"`
	Notes        string    `json:"notes,omitempty"`
	DisplayOrder int       `json:"order"`
}

// IsBuiltIn reports whether the template is part of the shipped catalog.
func (t *Template) IsBuiltIn() bool {
	return !t.IsUserCreated && t.TemplateIdentifier != ""
}

// SortedItems returns the items ordered by DisplayOrder.
func (t *Template) SortedItems() []TemplateItem {
	items := make([]TemplateItem, len(t.Items))
	copy(items, t.Items)
	sort.Slice(items, func(i, j int) bool {
		return items[i].DisplayOrder < items[j].DisplayOrder
	})
	return items
}

// ItemByID returns the item with the given id, or nil.
func (t *Template) ItemByID(id uuid.UUID) *TemplateItem {
	for i := range t.Items {
		if t.Items[i].ID == id {
			return &t.Items[i]
		}
	}
	return nil
}

// ComputeContentHash produces an order-sensitive digest of the template's
// name, category and item titles/notes/order. A stored hash that no longer
// matches the computed one indicates the content drifted outside a normal
// edit path.
func (t *Template) ComputeContentHash() string {
	h := sha256.New()
	fmt.Fprintf(h, "%s|%s", t.Name, t.Category)
	for _, item := range t.SortedItems() {
		fmt.Fprintf(h, "|%s|%s|%d", item.Title, item.Notes, item.DisplayOrder)
	}
	return hex.EncodeToString(h.Sum(nil))
}
