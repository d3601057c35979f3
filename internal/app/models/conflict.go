package models

import "github.com/google/uuid"

// ConflictField identifies one syncable student field tracked by the conflict
// detector. The set is fixed; dispatch happens through a static accessor
// table rather than field-name strings.
type ConflictField string

const (
	FieldFirstName    ConflictField = "firstName"
	FieldLastName     ConflictField = "lastName"
	FieldEmail        ConflictField = "email"
	FieldPhone        ConflictField = "phone"
	FieldHomeAirport  ConflictField = "homeAirport"
	FieldAircraftType ConflictField = "aircraftType"
)

// DataConflict is one field-level divergence between the instructor's local
// copy and the remote (student-written) copy of a student record.
type DataConflict struct {
	StudentID       uuid.UUID     `json:"studentId"`
	Field           ConflictField `json:"field"`
	InstructorValue string        `json:"instructorValue"`
	StudentValue    string        `json:"studentValue"`
}

// ConflictResolution selects which side wins for one conflicting field.
type ConflictResolution struct {
	Field       ConflictField `json:"field"`
	AcceptLocal bool          `json:"acceptLocal"`
}

// ShareParticipant describes one participant on a student's share.
type ShareParticipant struct {
	Identity   string `json:"identity"`
	Role       string `json:"role"`
	Acceptance string `json:"acceptance"`
}
