package dto

import (
	"time"

	"github.com/google/uuid"
)

// TemplateRequest represents a template creation or rename payload
type TemplateRequest struct {
	Name     string                `json:"name" binding:"required"`
	Category string                `json:"category,omitempty"`
	Phase    string                `json:"phase,omitempty"`
	Items    []TemplateItemRequest `json:"items,omitempty"`
}

// TemplateItemRequest represents one checklist line
type TemplateItemRequest struct {
	Title string `json:"title" binding:"required"`
	Notes string `json:"notes,omitempty"`
}

// ReorderItemsRequest lists every item id in its new display order
type ReorderItemsRequest struct {
	ItemIDs []uuid.UUID `json:"itemIds" binding:"required,min=1"`
}

// TemplateExportDocument is the portable JSON bundle produced by the export
// endpoint. The shape is stable across app versions; AppVersion records the
// producer for diagnostics only.
type TemplateExportDocument struct {
	Templates  []TemplateExportEntry `json:"templates"`
	ExportDate time.Time             `json:"exportDate"`
	ExportedBy string                `json:"exportedBy,omitempty"`
	AppVersion string                `json:"appVersion,omitempty"`
}

// TemplateExportEntry is one template in the export document. Item array
// order defines the display order on import. RelevantData is an opaque
// passthrough field carried for compatibility with older documents.
type TemplateExportEntry struct {
	ID             uuid.UUID            `json:"id"`
	Name           string               `json:"name"`
	Category       string               `json:"category,omitempty"`
	Phase          string               `json:"phase,omitempty"`
	RelevantData   string               `json:"relevantData,omitempty"`
	Items          []TemplateExportItem `json:"items"`
	IsUserCreated  bool                 `json:"isUserCreated"`
	IsUserModified bool                 `json:"isUserModified"`
	OriginalAuthor string               `json:"originalAuthor,omitempty"`
	CreatedAt      time.Time            `json:"createdAt"`
	LastModified   time.Time            `json:"lastModified"`
}

// TemplateExportItem is one checklist line inside an export entry.
type TemplateExportItem struct {
	ID    uuid.UUID `json:"id"`
	Title string    `json:"title"`
	Notes string    `json:"notes,omitempty"`
}
