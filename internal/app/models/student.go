package models

import (
	"time"

	"github.com/google/uuid"
)

// Student is the aggregate root on the instructor side. Assignments
// cascade-delete with the student. RemoteRecordID and ShareRecordID link the
// local row to the shared remote zone record and its share object once one
// exists.
type Student struct {
	ID           uuid.UUID `json:"id"`
	FirstName    string    `json:"firstName"`
	LastName     string    `json:"lastName"`
	Email        string    `json:"email,omitempty"`
	Phone        string    `json:"phone,omitempty"`
	HomeAirport  string    `json:"homeAirport,omitempty"`
	AircraftType string    `json:"aircraftType,omitempty"`

	// Instructor-owned annotation, read-only to the student app.
	InstructorNotes string `json:"instructorNotes,omitempty"`

	// Student-owned milestone flags. These sync down verbatim and are never
	// surfaced as conflicts; the student app is authoritative for them.
	MilestoneSoloComplete    bool `json:"milestoneSoloComplete"`
	MilestoneWrittenPassed   bool `json:"milestoneWrittenPassed"`
	MilestoneCheckridePassed bool `json:"milestoneCheckridePassed"`

	RemoteRecordID *string   `json:"remoteRecordId,omitempty"`
	ShareRecordID  *string   `json:"shareRecordId,omitempty"`
	CreatedAt      time.Time `json:"createdAt"`
	LastModified   time.Time `json:"lastModified"`
}

// FullName returns the display name.
func (s *Student) FullName() string {
	if s.FirstName == "" {
		return s.LastName
	}
	if s.LastName == "" {
		return s.FirstName
	}
	return s.FirstName + " " + s.LastName
}

// HasActiveShare reports whether a share record has been created and accepted
// for this student.
func (s *Student) HasActiveShare() bool {
	return s.ShareRecordID != nil && *s.ShareRecordID != ""
}
