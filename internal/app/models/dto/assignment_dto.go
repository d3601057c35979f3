package dto

import "github.com/google/uuid"

// AssignRequest binds a template to a student
type AssignRequest struct {
	TemplateID uuid.UUID `json:"templateId" binding:"required"`
}

// UpdateCommentsRequest replaces the instructor comments on an assignment
type UpdateCommentsRequest struct {
	Comments string `json:"comments"`
}

// UpdateDualGivenRequest replaces the logged dual instruction hours
type UpdateDualGivenRequest struct {
	Hours float64 `json:"hours" binding:"min=0"`
}

// ItemCompletionRequest sets the absolute completion state of one item
type ItemCompletionRequest struct {
	IsComplete bool   `json:"isComplete"`
	Notes      string `json:"notes,omitempty"`
}
