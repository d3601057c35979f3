package dto

import "github.com/heilo27/rightrudder/internal/app/models"

// StudentRequest represents the instructor-editable student fields
type StudentRequest struct {
	FirstName       string `json:"firstName"`
	LastName        string `json:"lastName"`
	Email           string `json:"email,omitempty" binding:"omitempty,email"`
	Phone           string `json:"phone,omitempty"`
	HomeAirport     string `json:"homeAirport,omitempty"`
	AircraftType    string `json:"aircraftType,omitempty"`
	InstructorNotes string `json:"instructorNotes,omitempty"`
}

// ResolveConflictsRequest carries the per-field conflict resolution choices
type ResolveConflictsRequest struct {
	Resolutions []models.ConflictResolution `json:"resolutions" binding:"required,min=1,dive"`
}

// ConflictListResponse represents the detected conflicts for one student
type ConflictListResponse struct {
	StudentID string                `json:"studentId"`
	Conflicts []models.DataConflict `json:"conflicts"`
}
