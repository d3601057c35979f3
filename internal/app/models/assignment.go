package models

import (
	"time"

	"github.com/google/uuid"
)

// Assignment binds one template to one student. TemplateID is a reference,
// not an owning pointer: the referenced template may be edited or deleted
// independently and the integrity service reconciles the progress rows. There
// is exactly one assignment per (student, template) pair.
type Assignment struct {
	ID                 uuid.UUID      `json:"id"`
	StudentID          uuid.UUID      `json:"studentId"`
	TemplateID         uuid.UUID      `json:"templateId"`
	TemplateIdentifier string         `json:"templateIdentifier,omitempty"`
	IsCustomChecklist  bool           `json:"isCustomChecklist"`
	InstructorComments string         `json:"instructorComments,omitempty"`
	DualGivenHours     float64        `json:"dualGivenHours"`
	ItemProgress       []ItemProgress `json:"itemProgress"`
	CreatedAt          time.Time      `json:"createdAt"`
	LastModified       time.Time      `json:"lastModified"`
}

// ItemProgress is the completion state for one template item within one
// assignment. IsComplete, Notes and CompletedAt are instructor-owned and sync
// down read-only to the student app. Rows are created with the assignment and
// lazily by the integrity service when a gap is detected; a row whose
// TemplateItemID no longer matches a live item is an orphan and gets removed.
type ItemProgress struct {
	ID             uuid.UUID  `json:"id"`
	AssignmentID   uuid.UUID  `json:"assignmentId"`
	TemplateItemID uuid.UUID  `json:"templateItemId"`
	IsComplete     bool       `json:"isComplete"`
	Notes          string     `json:"notes,omitempty"`
	CompletedAt    *time.Time `json:"completedAt,omitempty"`
	LastModified   time.Time  `json:"lastModified"`
}

// ProgressByItemID returns the progress row tracking the given template item,
// or nil when no row exists yet.
func (a *Assignment) ProgressByItemID(templateItemID uuid.UUID) *ItemProgress {
	for i := range a.ItemProgress {
		if a.ItemProgress[i].TemplateItemID == templateItemID {
			return &a.ItemProgress[i]
		}
	}
	return nil
}

// CompletedCount returns the number of completed progress rows.
func (a *Assignment) CompletedCount() int {
	count := 0
	for i := range a.ItemProgress {
		if a.ItemProgress[i].IsComplete {
			count++
		}
	}
	return count
}

// ProgressPercentage computes completed/total. The total prefers the existing
// progress rows; when none exist yet (the window between assignment creation
// and progress sync-down) the caller passes the live template's item count as
// the fallback denominator.
func (a *Assignment) ProgressPercentage(templateItemCount int) float64 {
	total := len(a.ItemProgress)
	if total == 0 {
		total = templateItemCount
	}
	if total == 0 {
		return 0.0
	}
	return float64(a.CompletedCount()) / float64(total)
}

// IsComplete reports whether every tracked item is complete. An assignment
// with no items is never complete.
func (a *Assignment) IsComplete(templateItemCount int) bool {
	total := len(a.ItemProgress)
	if total == 0 {
		total = templateItemCount
	}
	return total > 0 && a.ProgressPercentage(templateItemCount) >= 1.0
}
